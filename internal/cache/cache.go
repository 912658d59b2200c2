// Package cache persists resolved chains between invocations. The cache key
// covers the full multiset of manifest IDs and modification timestamps, so a
// change to any manifest under a key makes the previous entry unreachable:
// correctness over hit rate, a stale read is impossible by construction.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/mamertofabian/maid-runner-sub001/internal/chain"
	"github.com/mamertofabian/maid-runner-sub001/internal/logging"
	"github.com/mamertofabian/maid-runner-sub001/internal/manifest"
)

// Chains is a sqlite-backed cache of merged expected sets, one row per
// target file.
type Chains struct {
	db *sql.DB
	mu sync.Mutex
}

// Open initializes the cache database at the given path.
func Open(path string) (*Chains, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.CacheDebug("set busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.CacheDebug("set journal_mode=WAL: %v", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS resolved_chains (
	file       TEXT PRIMARY KEY,
	cache_key  TEXT NOT NULL,
	payload    BLOB NOT NULL,
	updated_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize cache schema: %w", err)
	}

	logging.Cache("chain cache opened at %s", path)
	return &Chains{db: db}, nil
}

// Close releases the underlying database.
func (c *Chains) Close() error {
	return c.db.Close()
}

// Key computes the cache key for a file's manifest set: a SHA-256 over the
// sorted (id, mtime) pairs. Any manifest edit, addition, or removal changes
// the key.
func Key(manifests []*manifest.Manifest) string {
	entries := make([]string, 0, len(manifests))
	for _, m := range manifests {
		mtime := int64(0)
		if info, err := os.Stat(m.Path); err == nil {
			mtime = info.ModTime().UnixNano()
		}
		entries = append(entries, fmt.Sprintf("%s@%d", m.ID, mtime))
	}
	sort.Strings(entries)

	h := sha256.New()
	for _, e := range entries {
		h.Write([]byte(e))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached expected set for file if the stored key matches.
func (c *Chains) Get(file, key string) (*chain.ExpectedSet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var storedKey string
	var blob []byte
	err := c.db.QueryRow(
		"SELECT cache_key, payload FROM resolved_chains WHERE file = ?", file,
	).Scan(&storedKey, &blob)
	if err != nil {
		return nil, false
	}
	if storedKey != key {
		logging.CacheDebug("stale entry for %s, key mismatch", file)
		return nil, false
	}

	var set chain.ExpectedSet
	if err := json.Unmarshal(blob, &set); err != nil {
		logging.Get(logging.CategoryCache).Warn("corrupt cache entry for %s: %v", file, err)
		return nil, false
	}
	logging.CacheDebug("hit for %s", file)
	return &set, true
}

// Put stores the expected set for file under key, replacing any previous
// entry.
func (c *Chains) Put(file, key string, set *chain.ExpectedSet) error {
	blob, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.db.Exec(`
INSERT INTO resolved_chains (file, cache_key, payload, updated_at)
VALUES (?, ?, ?, strftime('%s','now'))
ON CONFLICT(file) DO UPDATE SET
	cache_key = excluded.cache_key,
	payload = excluded.payload,
	updated_at = excluded.updated_at`,
		file, key, blob)
	if err != nil {
		return fmt.Errorf("store cache entry: %w", err)
	}
	return nil
}

// Invalidate removes the entry for file, if present.
func (c *Chains) Invalidate(file string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.db.Exec("DELETE FROM resolved_chains WHERE file = ?", file)
	return err
}

// InvalidateAll clears the cache.
func (c *Chains) InvalidateAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.db.Exec("DELETE FROM resolved_chains")
	return err
}
