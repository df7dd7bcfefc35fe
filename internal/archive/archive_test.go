package archive

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/baiirun/openfocus/internal/model"
)

func TestParseName(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    Archive
		wantErr bool
	}{
		{
			name: "root",
			path: "/doc.ofocus/00000000000000=00000000000+AAAAAAAAAAA.zip",
			want: Archive{Path: "/doc.ofocus/00000000000000=00000000000+AAAAAAAAAAA.zip", Date: RootDate, ParentID: "00000000000", ID: "AAAAAAAAAAA"},
		},
		{
			name: "delta",
			path: "20190102030405=AAAAAAAAAAA+b_c-D1234zz.zip",
			want: Archive{Path: "20190102030405=AAAAAAAAAAA+b_c-D1234zz.zip", Date: "20190102030405", ParentID: "AAAAAAAAAAA", ID: "b_c-D1234zz"},
		},
		{name: "short timestamp", path: "2019010203040=AAAAAAAAAAA+BBBBBBBBBBB.zip", wantErr: true},
		{name: "short id", path: "20190102030405=AAAAAAAAAA+BBBBBBBBBBB.zip", wantErr: true},
		{name: "bad id char", path: "20190102030405=AAAAAAAAAA.+BBBBBBBBBBB.zip", wantErr: true},
		{name: "wrong separator", path: "20190102030405-AAAAAAAAAAA+BBBBBBBBBBB.zip", wantErr: true},
		{name: "wrong extension", path: "20190102030405=AAAAAAAAAAA+BBBBBBBBBBB.xml", wantErr: true},
		{name: "trailing junk", path: "20190102030405=AAAAAAAAAAA+BBBBBBBBBBB.zip.bak", wantErr: true},
		{name: "leading junk", path: "x20190102030405=AAAAAAAAAAA+BBBBBBBBBBB.zip", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseName(tt.path)
			if tt.wantErr {
				if !errors.Is(err, model.ErrParse) {
					t.Errorf("expected ErrParse, got %v", err)
				}
				if err != nil && !strings.Contains(err.Error(), tt.path) {
					t.Errorf("error %q should name the path", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseName: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseName = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestArchiveName(t *testing.T) {
	at := time.Date(2024, 2, 29, 23, 59, 58, 0, time.UTC)
	a := New("/doc", at, "AAAAAAAAAAA", "BBBBBBBBBBB")

	if a.Name() != "20240229235958=AAAAAAAAAAA+BBBBBBBBBBB.zip" {
		t.Errorf("Name() = %q", a.Name())
	}
	if a.Path != filepath.Join("/doc", a.Name()) {
		t.Errorf("Path = %q", a.Path)
	}
	if a.IsRoot() {
		t.Error("dated archive should not be a root")
	}
	if !a.Time().Equal(at) {
		t.Errorf("Time() = %v, want %v", a.Time(), at)
	}

	parsed, err := ParseName(a.Path)
	if err != nil {
		t.Fatalf("ParseName: %v", err)
	}
	if parsed != a {
		t.Errorf("ParseName(Name()) = %+v, want %+v", parsed, a)
	}

	root := NewRoot("/doc", "AAAAAAAAAAA")
	if !root.IsRoot() || root.Name() != "00000000000000=00000000000+AAAAAAAAAAA.zip" {
		t.Errorf("NewRoot = %+v", root)
	}
}

func sampleContent() model.Content {
	return model.NewTaskContent(model.Task{
		ID:    "T1",
		Added: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Title: "Buy milk",
		Inbox: true,
	})
}

func TestCreateAndRead(t *testing.T) {
	dir := t.TempDir()
	a := NewRoot(dir, "AAAAAAAAAAA")

	if err := Create(a, sampleContent()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := Read(a)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !reflect.DeepEqual(got, sampleContent()) {
		t.Errorf("Read = %+v, want %+v", got, sampleContent())
	}

	// Exactly one entry, and no temp files left behind.
	zr, err := zip.OpenReader(a.Path)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	defer func() { _ = zr.Close() }()
	if len(zr.File) != 1 || zr.File[0].Name != EntryName {
		t.Errorf("expected single %s entry, got %d entries", EntryName, len(zr.File))
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected 1 file in dir, got %d", len(entries))
	}
}

func TestCreate_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	a := NewRoot(dir, "AAAAAAAAAAA")
	if err := Create(a, sampleContent()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := Create(a, model.Content{}); !errors.Is(err, model.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument on overwrite, got %v", err)
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()

	a, err := Save(dir, "AAAAAAAAAAA", sampleContent())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if a.ParentID != "AAAAAAAAAAA" {
		t.Errorf("ParentID = %q", a.ParentID)
	}
	if !model.IsValidID(a.ID) {
		t.Errorf("ID = %q is not a valid id", a.ID)
	}
	if _, err := ParseName(a.Path); err != nil {
		t.Errorf("saved name does not match the grammar: %v", err)
	}
	if _, err := os.Stat(a.Path); err != nil {
		t.Errorf("saved archive missing: %v", err)
	}

	if _, err := Save(dir, "bad", sampleContent()); !errors.Is(err, model.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for bad parent id, got %v", err)
	}
}

func TestReadEntry_Errors(t *testing.T) {
	dir := t.TempDir()

	notZip := filepath.Join(dir, "not-a-zip.zip")
	if err := os.WriteFile(notZip, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadEntry(notZip); !errors.Is(err, model.ErrParse) {
		t.Errorf("not a zip: expected ErrParse, got %v", err)
	}

	wrongEntry := filepath.Join(dir, "wrong-entry.zip")
	f, err := os.Create(wrongEntry)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, _ := zw.Create("other.xml")
	_, _ = w.Write([]byte("<omnifocus/>"))
	_ = zw.Close()
	_ = f.Close()
	if _, err := ReadEntry(wrongEntry); !errors.Is(err, model.ErrParse) {
		t.Errorf("missing entry: expected ErrParse, got %v", err)
	}

	if _, err := ReadEntry(filepath.Join(dir, "missing.zip")); !errors.Is(err, model.ErrIO) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: expected ErrIO wrapping ErrNotExist, got %v", err)
	}
}

func TestWriteEntryThenReadEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.zip")
	body := []byte(`<?xml version="1.0"?><omnifocus/>`)
	if err := WriteEntry(path, body); err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}
	got, err := ReadEntry(path)
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	if string(got) != string(body) {
		t.Errorf("ReadEntry = %q, want %q", got, body)
	}
}

func TestStat(t *testing.T) {
	dir := t.TempDir()
	milk := filepath.Join(dir, "milk.zip")
	other := filepath.Join(dir, "other.zip")
	if err := WriteEntry(milk, []byte("<omnifocus>Buy milk</omnifocus>")); err != nil {
		t.Fatal(err)
	}
	if err := WriteEntry(other, []byte("<omnifocus>Buy m001</omnifocus>")); err != nil {
		t.Fatal(err)
	}

	a, err := Stat(milk)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	b, err := Stat(other)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if a.Size != b.Size {
		t.Fatalf("bodies should have equal length, got %d and %d", a.Size, b.Size)
	}
	if a == b {
		t.Errorf("different bodies share fingerprint %+v", a)
	}

	again, err := Stat(milk)
	if err != nil || again != a {
		t.Errorf("Stat is not stable: %+v vs %+v (%v)", again, a, err)
	}

	if _, err := Stat(filepath.Join(dir, "missing.zip")); !errors.Is(err, model.ErrIO) {
		t.Errorf("missing file: expected ErrIO, got %v", err)
	}
}
