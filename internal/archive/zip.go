package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/baiirun/openfocus/internal/codec"
	"github.com/baiirun/openfocus/internal/model"
)

// EntryName is the single entry inside every archive.
const EntryName = "contents.xml"

// entryReader closes both the entry and its container.
type entryReader struct {
	io.ReadCloser
	zr *zip.ReadCloser
}

func (r *entryReader) Close() error {
	return errors.Join(r.ReadCloser.Close(), r.zr.Close())
}

// OpenEntry opens the document body of the archive at path for streaming.
func OpenEntry(path string) (io.ReadCloser, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: failed to open archive: %w", model.ErrIO, err)
	}
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a zip container: %w", model.ErrParse, path, err)
	}
	rc, err := zr.Open(EntryName)
	if err != nil {
		_ = zr.Close()
		return nil, fmt.Errorf("%w: %s has no %s entry", model.ErrParse, path, EntryName)
	}
	return &entryReader{ReadCloser: rc, zr: zr}, nil
}

// Fingerprint identifies an archive's body by the checksum and length the
// zip central directory records for it.
type Fingerprint struct {
	CRC32 uint32
	Size  uint64
}

// Stat returns the fingerprint of the archive at path without inflating it.
func Stat(path string) (Fingerprint, error) {
	if _, err := os.Stat(path); err != nil {
		return Fingerprint{}, fmt.Errorf("%w: failed to open archive: %w", model.ErrIO, err)
	}
	zr, err := zip.OpenReader(path)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("%w: %s is not a zip container: %w", model.ErrParse, path, err)
	}
	defer func() { _ = zr.Close() }()

	for _, f := range zr.File {
		if f.Name == EntryName {
			return Fingerprint{CRC32: f.CRC32, Size: f.UncompressedSize64}, nil
		}
	}
	return Fingerprint{}, fmt.Errorf("%w: %s has no %s entry", model.ErrParse, path, EntryName)
}

// ReadEntry returns the raw XML body of the archive at path.
func ReadEntry(path string) ([]byte, error) {
	rc, err := OpenEntry(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", model.ErrParse, path, err)
	}
	return body, nil
}

// WriteEntry creates a new archive at path holding body as its only entry.
// It refuses to overwrite an existing file. The container is assembled in a
// temporary file next to path and renamed into place.
func WriteEntry(path string, body []byte) error {
	if _, err := os.Lstat(path); err == nil {
		return fmt.Errorf("%w: archive already exists: %s", model.ErrInvalidArgument, path)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: failed to create archive: %w", model.ErrIO, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	zw := zip.NewWriter(tmp)
	w, err := zw.Create(EntryName)
	if err == nil {
		_, err = io.Copy(w, bytes.NewReader(body))
	}
	if err == nil {
		err = zw.Close()
	}
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("%w: failed to write archive %s: %w", model.ErrIO, path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: failed to move archive into place: %w", model.ErrIO, err)
	}
	return nil
}

// Read decodes the content of archive a.
func Read(a Archive) (model.Content, error) {
	rc, err := OpenEntry(a.Path)
	if err != nil {
		return model.Content{}, err
	}
	defer func() { _ = rc.Close() }()

	c, err := codec.Decode(rc)
	if err != nil {
		return model.Content{}, fmt.Errorf("%s: %w", filepath.Base(a.Path), err)
	}
	return c, nil
}

// Create encodes delta and writes it as archive a.
func Create(a Archive, delta model.Content) error {
	var buf bytes.Buffer
	if err := codec.Encode(&buf, delta); err != nil {
		return err
	}
	return WriteEntry(a.Path, buf.Bytes())
}

// Save writes delta as a new archive in dir extending parentID, with a fresh
// id and the current time.
func Save(dir, parentID string, delta model.Content) (Archive, error) {
	if !model.IsValidID(parentID) {
		return Archive{}, fmt.Errorf("%w: invalid parent archive id %q", model.ErrInvalidArgument, parentID)
	}
	a := New(dir, model.Now(), parentID, model.GenerateID())
	if err := Create(a, delta); err != nil {
		return Archive{}, err
	}
	return a, nil
}
