package db

import (
	"fmt"

	"github.com/baiirun/openfocus/internal/archive"
	"github.com/baiirun/openfocus/internal/model"
)

// Write appends delta to the document as a new archive extending the head.
//
// Unless the handle was opened with DeferFold, the delta is folded into the
// snapshot before Write returns, so later reads through this handle see it.
// On failure nothing in the handle changes.
func (db *DB) Write(delta model.Content) (archive.Archive, error) {
	if db.headID == "" {
		return archive.Archive{}, fmt.Errorf("%w: database must be opened before writing", model.ErrInvalidArgument)
	}

	a, err := archive.Save(db.path, db.headID, delta)
	if err != nil {
		return archive.Archive{}, fmt.Errorf("failed to write archive: %w", err)
	}

	db.archives = append(db.archives, a)
	db.headID = a.ID
	if !db.deferFold {
		db.content.Merge(delta.Clone())
	}

	db.logger.Info("wrote archive",
		"archive", a.Name(),
		"parent", a.ParentID,
		"tasks", len(delta.Tasks))
	return a, nil
}

// Deferred reports whether Write leaves the snapshot for Refold to update.
func (db *DB) Deferred() bool {
	return db.deferFold
}

// Refold re-reads the directory and rebuilds the snapshot from scratch.
func (db *DB) Refold() error {
	return db.load()
}
