// Package cache keeps decoded archive content in SQLite so that archives
// already seen are not parsed again on every open.
//
// The cache is stored at ~/.cache/openfocus/cache.db by default (the
// platform user cache directory). One cache serves every document, and
// archive names repeat across documents, so an entry is keyed by filename
// together with the checksum and length of the archive body.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/baiirun/openfocus/internal/archive"
	"github.com/baiirun/openfocus/internal/model"

	_ "modernc.org/sqlite"
)

// Caches written before entries carried a body checksum used the archives
// table; it is dropped on open.
const schema = `
DROP TABLE IF EXISTS archives;

CREATE TABLE IF NOT EXISTS entries (
	name TEXT NOT NULL,
	crc32 INTEGER NOT NULL,
	size INTEGER NOT NULL,
	tasks INTEGER NOT NULL DEFAULT 0,
	content TEXT NOT NULL,
	cached_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (name, crc32, size)
);

CREATE INDEX IF NOT EXISTS idx_entries_cached_at ON entries(cached_at);
`

// Cache wraps a SQL database connection holding decoded archives.
type Cache struct {
	*sql.DB
}

// Stats summarizes what the cache holds.
type Stats struct {
	Archives int
	Tasks    int
	Bytes    int64
}

// DefaultPath returns the default cache path in the user cache directory.
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to get cache directory: %w", err)
	}
	return filepath.Join(dir, "openfocus", "cache.db"), nil
}

// Open opens or creates the cache at the given path.
func Open(path string) (*Cache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	// One connection keeps :memory: databases alive and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Cache{db}, nil
}

// Get returns the content cached for an archive. ok is false on a miss,
// including when a same-named archive with a different body was cached.
func (c *Cache) Get(name string, fp archive.Fingerprint) (content model.Content, ok bool, err error) {
	var raw string
	err = c.QueryRow(`SELECT content FROM entries WHERE name = ? AND crc32 = ? AND size = ?`,
		name, int64(fp.CRC32), int64(fp.Size)).Scan(&raw)
	if err == sql.ErrNoRows {
		return model.Content{}, false, nil
	}
	if err != nil {
		return model.Content{}, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		return model.Content{}, false, fmt.Errorf("failed to decode cache entry %s: %w", name, err)
	}
	return content, true, nil
}

// Put stores the decoded content of an archive, replacing any older entry.
func (c *Cache) Put(name string, fp archive.Fingerprint, content model.Content) error {
	raw, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	_, err = c.Exec(`
		INSERT OR REPLACE INTO entries (name, crc32, size, tasks, content, cached_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		name, int64(fp.CRC32), int64(fp.Size), len(content.Tasks), string(raw), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// Delete removes every entry cached under an archive name.
func (c *Cache) Delete(name string) error {
	if _, err := c.Exec(`DELETE FROM entries WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry and returns how many were dropped.
func (c *Cache) Clear() (int64, error) {
	result, err := c.Exec(`DELETE FROM entries`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

// Stats reports the number of cached archives, their tasks, and the size of
// the stored content.
func (c *Cache) Stats() (Stats, error) {
	var s Stats
	err := c.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(tasks), 0), COALESCE(SUM(LENGTH(content)), 0)
		FROM entries`).Scan(&s.Archives, &s.Tasks, &s.Bytes)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read cache stats: %w", err)
	}
	return s, nil
}
