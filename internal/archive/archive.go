// Package archive handles the files that make up a document: the filename
// grammar that encodes each file's place in the chain, and the zip container
// holding the XML body.
package archive

import (
	"fmt"
	"path/filepath"
	"regexp"
	"time"

	"github.com/baiirun/openfocus/internal/model"
)

// RootDate is the timestamp of the first archive in every chain.
const RootDate = "00000000000000"

// RootParentID is the parent id written on a root archive. It is never
// dereferenced.
const RootParentID = "00000000000"

// DateLayout formats the 14-digit timestamp of a filename.
const DateLayout = "20060102150405"

// Ext is the file extension of every archive.
const Ext = ".zip"

var namePattern = regexp.MustCompile(`^(\d{14})=([A-Za-z0-9_-]{11})\+([A-Za-z0-9_-]{11})\.zip$`)

// Archive is one immutable file in the chain.
type Archive struct {
	Path     string
	Date     string
	ParentID string
	ID       string
}

// ParseName parses the chain metadata out of an archive path.
func ParseName(path string) (Archive, error) {
	m := namePattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return Archive{}, fmt.Errorf("%w: not an archive name: %s", model.ErrParse, path)
	}
	return Archive{
		Path:     path,
		Date:     m[1],
		ParentID: m[2],
		ID:       m[3],
	}, nil
}

// New returns the archive that extends parentID, dated t.
func New(dir string, t time.Time, parentID, id string) Archive {
	a := Archive{
		Date:     t.UTC().Format(DateLayout),
		ParentID: parentID,
		ID:       id,
	}
	a.Path = filepath.Join(dir, a.Name())
	return a
}

// NewRoot returns a root archive with the given id.
func NewRoot(dir, id string) Archive {
	a := Archive{Date: RootDate, ParentID: RootParentID, ID: id}
	a.Path = filepath.Join(dir, a.Name())
	return a
}

// Name rebuilds the filename from the chain metadata.
func (a Archive) Name() string {
	return a.Date + "=" + a.ParentID + "+" + a.ID + Ext
}

// IsRoot reports whether a is a chain root.
func (a Archive) IsRoot() bool {
	return a.Date == RootDate
}

// Time returns the archive's timestamp. Roots return the zero time.
func (a Archive) Time() time.Time {
	t, err := time.ParseInLocation(DateLayout, a.Date, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}
