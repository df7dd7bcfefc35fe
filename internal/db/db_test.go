package db

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/baiirun/openfocus/internal/archive"
	"github.com/baiirun/openfocus/internal/cache"
	"github.com/baiirun/openfocus/internal/model"
)

const (
	idA = "AAAAAAAAAAA"
	idB = "BBBBBBBBBBB"
	idC = "CCCCCCCCCCC"
	idD = "DDDDDDDDDDD"
)

var added = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func task(id, title string) model.Task {
	return model.Task{ID: id, Title: title, Added: added}
}

func tasks(ts ...model.Task) model.Content {
	return model.Content{Tasks: ts}
}

// writeArchive creates one archive in dir and fails the test on error.
func writeArchive(t *testing.T, a archive.Archive, c model.Content) archive.Archive {
	t.Helper()
	if err := archive.Create(a, c); err != nil {
		t.Fatalf("failed to create archive %s: %v", a.Name(), err)
	}
	return a
}

func at(day int) time.Time {
	return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
}

// setupTestDoc creates a document whose root holds one inbox task.
func setupTestDoc(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t1 := task("T1", "Buy milk")
	t1.Inbox = true
	writeArchive(t, archive.NewRoot(dir, idA), tasks(t1))
	return dir
}

func openTestDB(t *testing.T, dir string) *DB {
	t.Helper()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("failed to open document: %v", err)
	}
	return db
}

func TestOpenWriteReopen(t *testing.T) {
	dir := setupTestDoc(t)
	db := openTestDB(t, dir)

	if db.Head() != idA {
		t.Errorf("Head() = %q, want %q", db.Head(), idA)
	}
	if name := db.Archives()[0].Name(); name != "00000000000000=00000000000+AAAAAAAAAAA.zip" {
		t.Errorf("root name = %q", name)
	}
	if len(db.Tasks()) != 1 {
		t.Fatalf("expected 1 task, got %d", len(db.Tasks()))
	}
	got, err := db.Task("T1")
	if err != nil {
		t.Fatalf("failed to get task: %v", err)
	}
	// Every optional field stays nil.
	want := model.Task{ID: "T1", Title: "Buy milk", Inbox: true, Added: added}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Task(T1) = %+v, want %+v", got, want)
	}

	a, err := db.Write(tasks(task("T1", "Buy oat milk")))
	if err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	if a.ParentID != idA {
		t.Errorf("ParentID = %q, want %q", a.ParentID, idA)
	}
	if !strings.HasPrefix(filepath.Base(a.Path), a.Date+"="+idA+"+") {
		t.Errorf("unexpected archive name %q", filepath.Base(a.Path))
	}
	if db.Head() != a.ID {
		t.Errorf("Head() = %q, want %q", db.Head(), a.ID)
	}

	reopened := openTestDB(t, dir)
	got, err = reopened.Task("T1")
	if err != nil {
		t.Fatalf("failed to get task after reopen: %v", err)
	}
	if got.Title != "Buy oat milk" {
		t.Errorf("Title = %q, want %q", got.Title, "Buy oat milk")
	}
	// Whole-record replacement: the inbox flag was not in the delta.
	if got.Inbox {
		t.Error("expected Inbox to be replaced along with the record")
	}
	if len(reopened.Archives()) != 2 {
		t.Errorf("expected 2 archives, got %d", len(reopened.Archives()))
	}
}

func TestWrite_ReadAfterWrite(t *testing.T) {
	db := openTestDB(t, setupTestDoc(t))

	if _, err := db.Write(tasks(task("T2", "Walk dog"))); err != nil {
		t.Fatalf("failed to write: %v", err)
	}

	if _, err := db.Task("T2"); err != nil {
		t.Errorf("expected written task to be visible: %v", err)
	}
	all := db.Tasks()
	if len(all) != 2 || all[0].ID != "T1" || all[1].ID != "T2" {
		t.Errorf("Tasks() = %v, want [T1 T2]", all)
	}
}

func TestWrite_DeferFold(t *testing.T) {
	dir := setupTestDoc(t)
	db, err := OpenWith(dir, Options{DeferFold: true})
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}

	if !db.Deferred() {
		t.Error("expected Deferred() to report DeferFold")
	}
	if _, err := db.Write(tasks(task("T2", "Walk dog"))); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	if _, err := db.Task("T2"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected deferred write to be invisible, got %v", err)
	}

	// A second write still extends the new head.
	a, err := db.Write(tasks(task("T3", "Call mum")))
	if err != nil {
		t.Fatalf("failed to write: %v", err)
	}

	if err := db.Refold(); err != nil {
		t.Fatalf("failed to refold: %v", err)
	}
	if db.Head() != a.ID {
		t.Errorf("Head() = %q, want %q", db.Head(), a.ID)
	}
	if len(db.Tasks()) != 3 {
		t.Errorf("expected 3 tasks after refold, got %d", len(db.Tasks()))
	}
}

func TestWrite_Unopened(t *testing.T) {
	var db DB
	if _, err := db.Write(tasks(task("T1", "x"))); !errors.Is(err, model.ErrInvalidArgument) {
		t.Errorf("Write on unopened handle = %v, want ErrInvalidArgument", err)
	}
}

func TestWrite_InvalidDeltaLeavesHandle(t *testing.T) {
	db := openTestDB(t, setupTestDoc(t))
	head := db.Head()

	// Added is mandatory.
	if _, err := db.Write(tasks(model.Task{ID: "T9", Title: "bad"})); err == nil {
		t.Fatal("expected error writing a task without added")
	}
	if db.Head() != head || len(db.Archives()) != 1 {
		t.Error("expected failed write to leave the handle unchanged")
	}
}

func TestContentIsACopy(t *testing.T) {
	db := openTestDB(t, setupTestDoc(t))

	c := db.Content()
	c.Tasks[0].Title = "mutated"
	ts := db.Tasks()
	ts[0].Title = "mutated too"

	got, _ := db.Task("T1")
	if got.Title != "Buy milk" {
		t.Errorf("snapshot was mutated through a copy: %q", got.Title)
	}
}

func TestTask_NotFound(t *testing.T) {
	db := openTestDB(t, setupTestDoc(t))

	_, err := db.Task("nope")
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Task(nope) = %v, want ErrNotFound", err)
	}
	if !strings.Contains(err.Error(), "openfocus list all") {
		t.Errorf("expected hint in error, got %q", err.Error())
	}
}

func TestOpen_ChainOrderIgnoresListingOrder(t *testing.T) {
	dir := t.TempDir()
	writeArchive(t, archive.NewRoot(dir, idA), tasks(task("T1", "root")))
	// The chain is A -> B -> C but C sorts before B by date.
	writeArchive(t, archive.New(dir, at(5), idA, idB), tasks(task("T1", "from B")))
	writeArchive(t, archive.New(dir, at(2), idB, idC), tasks(task("T1", "from C")))

	db := openTestDB(t, dir)

	var ids []string
	for _, a := range db.Archives() {
		ids = append(ids, a.ID)
	}
	if strings.Join(ids, ",") != idA+","+idB+","+idC {
		t.Errorf("chain = %v, want [A B C]", ids)
	}
	if db.Head() != idC {
		t.Errorf("Head() = %q, want %q", db.Head(), idC)
	}
	got, _ := db.Task("T1")
	if got.Title != "from C" {
		t.Errorf("Title = %q, want %q", got.Title, "from C")
	}
}

func TestOpen_ChainErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(t *testing.T, dir string)
		want  error
	}{
		{
			name:  "empty directory",
			build: func(t *testing.T, dir string) {},
			want:  model.ErrNotFound,
		},
		{
			name: "no root",
			build: func(t *testing.T, dir string) {
				writeArchive(t, archive.New(dir, at(1), idA, idB), model.Content{})
			},
			want: model.ErrNotFound,
		},
		{
			name: "fork",
			build: func(t *testing.T, dir string) {
				writeArchive(t, archive.NewRoot(dir, idA), model.Content{})
				writeArchive(t, archive.New(dir, at(1), idA, idB), model.Content{})
				writeArchive(t, archive.New(dir, at(2), idA, idC), model.Content{})
			},
			want: model.ErrInvalidChain,
		},
		{
			name: "dangling parent",
			build: func(t *testing.T, dir string) {
				writeArchive(t, archive.NewRoot(dir, idA), model.Content{})
				writeArchive(t, archive.New(dir, at(1), idD, idB), model.Content{})
			},
			want: model.ErrInvalidChain,
		},
		{
			name: "cycle off the chain",
			build: func(t *testing.T, dir string) {
				writeArchive(t, archive.NewRoot(dir, idA), model.Content{})
				writeArchive(t, archive.New(dir, at(1), idC, idB), model.Content{})
				writeArchive(t, archive.New(dir, at(2), idB, idC), model.Content{})
			},
			want: model.ErrInvalidChain,
		},
		{
			name: "duplicate id",
			build: func(t *testing.T, dir string) {
				writeArchive(t, archive.NewRoot(dir, idA), model.Content{})
				writeArchive(t, archive.New(dir, at(1), idA, idA), model.Content{})
			},
			want: model.ErrInvalidChain,
		},
		{
			name: "malformed zip name",
			build: func(t *testing.T, dir string) {
				writeArchive(t, archive.NewRoot(dir, idA), model.Content{})
				if err := os.WriteFile(filepath.Join(dir, "junk.zip"), []byte("x"), 0644); err != nil {
					t.Fatal(err)
				}
			},
			want: model.ErrParse,
		},
		{
			name: "corrupt archive",
			build: func(t *testing.T, dir string) {
				writeArchive(t, archive.NewRoot(dir, idA), model.Content{})
				bad := archive.New(dir, at(1), idA, idB)
				if err := os.WriteFile(bad.Path, []byte("not a zip"), 0644); err != nil {
					t.Fatal(err)
				}
			},
			want: model.ErrParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tt.build(t, dir)

			_, err := Open(dir)
			if !errors.Is(err, tt.want) {
				t.Errorf("Open() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOpen_MissingDirectory(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, model.ErrIO) {
		t.Errorf("Open(missing) = %v, want ErrIO", err)
	}
}

func TestOpen_IgnoresOtherFiles(t *testing.T) {
	dir := setupTestDoc(t)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "data.zip"), 0755); err != nil {
		t.Fatal(err)
	}

	db := openTestDB(t, dir)
	if len(db.Archives()) != 1 {
		t.Errorf("expected 1 archive, got %d", len(db.Archives()))
	}
}

func TestOpen_SeveralRoots(t *testing.T) {
	dir := t.TempDir()
	writeArchive(t, archive.NewRoot(dir, idB), tasks(task("T2", "second root")))
	writeArchive(t, archive.NewRoot(dir, idA), tasks(task("T1", "first root")))

	var logs bytes.Buffer
	db, err := OpenWith(dir, Options{Logger: slog.New(slog.NewTextHandler(&logs, nil))})
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}

	if db.Head() != idA {
		t.Errorf("Head() = %q, want %q", db.Head(), idA)
	}
	if _, err := db.Task("T2"); !errors.Is(err, model.ErrNotFound) {
		t.Error("expected content of the ignored root to be absent")
	}
	if !strings.Contains(logs.String(), "several root") {
		t.Errorf("expected a warning about several roots, got %q", logs.String())
	}
}

func TestInit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "New.ofocus")

	db, err := Init(dir, Options{})
	if err != nil {
		t.Fatalf("failed to init: %v", err)
	}
	chain := db.Archives()
	if len(chain) != 1 || !chain[0].IsRoot() {
		t.Fatalf("expected a single root archive, got %v", chain)
	}
	if len(db.Tasks()) != 0 {
		t.Errorf("expected empty document, got %d tasks", len(db.Tasks()))
	}

	if _, err := Init(dir, Options{}); !errors.Is(err, model.ErrInvalidArgument) {
		t.Errorf("second Init = %v, want ErrInvalidArgument", err)
	}
}

type fakeCache struct {
	entries map[string]model.Content
	gets    int
	hits    int
	puts    int
}

func (c *fakeCache) Get(name string, fp archive.Fingerprint) (model.Content, bool, error) {
	c.gets++
	content, ok := c.entries[name]
	if ok {
		c.hits++
	}
	return content, ok, nil
}

func (c *fakeCache) Put(name string, fp archive.Fingerprint, content model.Content) error {
	c.puts++
	c.entries[name] = content
	return nil
}

func TestOpen_Cache(t *testing.T) {
	dir := setupTestDoc(t)
	writeArchive(t, archive.New(dir, at(1), idA, idB), tasks(task("T2", "Walk dog")))
	cache := &fakeCache{entries: make(map[string]model.Content)}

	first, err := OpenWith(dir, Options{Cache: cache})
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}
	if cache.puts != 2 || cache.hits != 0 {
		t.Errorf("first open: puts %d hits %d, want 2 and 0", cache.puts, cache.hits)
	}

	second, err := OpenWith(dir, Options{Cache: cache})
	if err != nil {
		t.Fatalf("failed to reopen: %v", err)
	}
	if cache.hits != 2 || cache.puts != 2 {
		t.Errorf("second open: puts %d hits %d, want 2 and 2", cache.puts, cache.hits)
	}
	if len(first.Tasks()) != len(second.Tasks()) {
		t.Errorf("cached fold differs: %d vs %d tasks", len(first.Tasks()), len(second.Tasks()))
	}
}

func TestOpen_CacheSharedByDocuments(t *testing.T) {
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("failed to open cache: %v", err)
	}
	defer func() { _ = c.Close() }()

	// Both documents have the same root name and equally long titles.
	first := t.TempDir()
	writeArchive(t, archive.NewRoot(first, idA), tasks(task("T1", "Buy milk")))
	second := t.TempDir()
	writeArchive(t, archive.NewRoot(second, idA), tasks(task("T1", "Buy m001")))

	for _, tt := range []struct {
		dir  string
		want string
	}{
		{first, "Buy milk"},
		{second, "Buy m001"},
		{first, "Buy milk"},
	} {
		db, err := OpenWith(tt.dir, Options{Cache: c})
		if err != nil {
			t.Fatalf("failed to open %s: %v", tt.dir, err)
		}
		got, err := db.Task("T1")
		if err != nil {
			t.Fatal(err)
		}
		if got.Title != tt.want {
			t.Errorf("Title = %q, want %q", got.Title, tt.want)
		}
	}

	if s, _ := c.Stats(); s.Archives != 2 {
		t.Errorf("expected one entry per distinct body, got %+v", s)
	}
}
