// Package db reconstructs a task document from its chain of archives.
//
// A document is a directory of immutable archives. Each archive names its
// parent in its filename; following those links from the root archive to the
// head and folding every archive's content in order yields the snapshot.
// Use Open() to fold an existing document and Init() to create a new one.
package db

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/baiirun/openfocus/internal/archive"
	"github.com/baiirun/openfocus/internal/model"
)

// Cache stores decoded archive content. A cache may be shared by several
// documents, so lookups carry the body fingerprint as well as the name.
type Cache interface {
	Get(name string, fp archive.Fingerprint) (model.Content, bool, error)
	Put(name string, fp archive.Fingerprint, c model.Content) error
}

// Options tune how a document is opened.
type Options struct {
	// Logger receives chain discovery and cache diagnostics. Nil discards.
	Logger *slog.Logger
	// Cache, when set, is consulted before decoding each archive.
	Cache Cache
	// DeferFold leaves the snapshot untouched by Write. Refold picks the
	// written archives up again.
	DeferFold bool
}

// DB is an open document: its chain of archives and the folded snapshot.
// It is not safe for concurrent use.
type DB struct {
	path      string
	headID    string
	archives  []archive.Archive
	content   model.Content
	logger    *slog.Logger
	cache     Cache
	deferFold bool
}

// Open folds the document at path.
func Open(path string) (*DB, error) {
	return OpenWith(path, Options{})
}

// OpenWith folds the document at path with the given options.
func OpenWith(path string, opts Options) (*DB, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	db := &DB{
		path:      path,
		logger:    logger,
		cache:     opts.Cache,
		deferFold: opts.DeferFold,
	}
	if err := db.load(); err != nil {
		return nil, err
	}
	return db, nil
}

// Init creates a new document at path holding an empty root archive, then
// opens it. It fails if path already contains archives.
func Init(path string, opts Options) (*DB, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create directory: %w", model.ErrIO, err)
	}

	existing, err := list(path)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("%w: %s already holds %d archives", model.ErrInvalidArgument, path, len(existing))
	}

	root := archive.NewRoot(path, model.GenerateID())
	if err := archive.Create(root, model.Content{}); err != nil {
		return nil, fmt.Errorf("failed to create root archive: %w", err)
	}
	return OpenWith(path, opts)
}

// load replaces the chain and snapshot with a fresh fold of the directory.
// On error the handle is left as it was.
func (db *DB) load() error {
	found, err := list(db.path)
	if err != nil {
		return err
	}

	chain, err := resolve(found, db.logger)
	if err != nil {
		return err
	}

	var content model.Content
	for _, a := range chain {
		delta, err := db.read(a)
		if err != nil {
			return err
		}
		content.Merge(delta)
	}

	db.archives = chain
	db.headID = chain[len(chain)-1].ID
	db.content = content
	db.logger.Debug("folded document",
		"path", db.path,
		"archives", len(chain),
		"head", db.headID,
		"tasks", len(content.Tasks))
	return nil
}

// read decodes one archive, going through the cache when there is one.
// Cache failures are logged and otherwise ignored.
func (db *DB) read(a archive.Archive) (model.Content, error) {
	if db.cache == nil {
		return archive.Read(a)
	}

	fp, err := archive.Stat(a.Path)
	if err != nil {
		return model.Content{}, fmt.Errorf("%s: %w", a.Name(), err)
	}
	name := a.Name()

	cached, ok, err := db.cache.Get(name, fp)
	if err != nil {
		db.logger.Warn("cache lookup failed", "archive", name, "error", err)
	} else if ok {
		return cached, nil
	}

	db.logger.Debug("decoding archive", "archive", name)
	c, err := archive.Read(a)
	if err != nil {
		return model.Content{}, err
	}
	if err := db.cache.Put(name, fp, c); err != nil {
		db.logger.Warn("cache store failed", "archive", name, "error", err)
	}
	return c, nil
}

// Path returns the document directory.
func (db *DB) Path() string {
	return db.path
}

// Head returns the id of the most recent archive in the chain.
func (db *DB) Head() string {
	return db.headID
}

// Archives returns the chain from root to head.
func (db *DB) Archives() []archive.Archive {
	return slices.Clone(db.archives)
}

// Content returns a copy of the snapshot. Mutating it does not affect the
// document; build a delta and Write it instead.
func (db *DB) Content() model.Content {
	return db.content.Clone()
}

// Tasks returns a copy of the snapshot's tasks in display order.
func (db *DB) Tasks() []model.Task {
	return db.content.Clone().Tasks
}

// Task returns the task with the given id.
func (db *DB) Task(id string) (model.Task, error) {
	t, ok := db.content.Task(id)
	if !ok {
		return model.Task{}, fmt.Errorf("%w: task not found: %s (use 'openfocus list all' to see available tasks)", model.ErrNotFound, id)
	}
	return t.Clone(), nil
}
