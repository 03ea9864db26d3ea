// Package buildcache persists per-page content hashes and build history in
// SQLite, enabling incremental rebuilds and a `builds` status listing.
package buildcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Cache is a SQLite-backed build cache.
// Use ":memory:" for an in-memory database, or a file path for persistence.
type Cache struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (and if needed initializes) the cache database.
func Open(dbPath string) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	c := &Cache{db: db}
	if err := c.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return c, nil
}

func (c *Cache) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pages (
		path TEXT PRIMARY KEY,
		content_hash TEXT NOT NULL,
		output_path TEXT NOT NULL,
		rendered_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		pages INTEGER NOT NULL,
		outcome TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_builds_started_at ON builds(started_at);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (c *Cache) Close() error { return c.db.Close() }

// UpToDate reports whether a page's recorded hash matches contentHash.
// Unknown paths are never up to date.
func (c *Cache) UpToDate(ctx context.Context, path, contentHash string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var stored string
	err := c.db.QueryRowContext(ctx, "SELECT content_hash FROM pages WHERE path = ?", path).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query page hash: %w", err)
	}
	return stored == contentHash, nil
}

// RecordPage upserts a page's hash after it has been rendered.
func (c *Cache) RecordPage(ctx context.Context, path, contentHash, outputPath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO pages (path, content_hash, output_path, rendered_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			content_hash = excluded.content_hash,
			output_path = excluded.output_path,
			rendered_at = excluded.rendered_at`,
		path, contentHash, outputPath, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("record page %s: %w", path, err)
	}
	return nil
}

// ForgetMissing drops cache rows for paths no longer present, so deleted
// documents do not keep stale skip state.
func (c *Cache) ForgetMissing(ctx context.Context, present map[string]bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.db.QueryContext(ctx, "SELECT path FROM pages")
	if err != nil {
		return fmt.Errorf("list cached pages: %w", err)
	}
	var stale []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			_ = rows.Close()
			return err
		}
		if !present[p] {
			stale = append(stale, p)
		}
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, p := range stale {
		if _, err := c.db.ExecContext(ctx, "DELETE FROM pages WHERE path = ?", p); err != nil {
			return fmt.Errorf("forget page %s: %w", p, err)
		}
	}
	return nil
}

// BuildRecord is one completed build pass.
type BuildRecord struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	Pages     int
	Outcome   string
}

// RecordBuild appends a build to the history.
func (c *Cache) RecordBuild(ctx context.Context, rec BuildRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.ExecContext(ctx,
		"INSERT INTO builds (id, started_at, duration_ms, pages, outcome) VALUES (?, ?, ?, ?, ?)",
		rec.ID, rec.StartedAt.Unix(), rec.Duration.Milliseconds(), rec.Pages, rec.Outcome)
	if err != nil {
		return fmt.Errorf("record build %s: %w", rec.ID, err)
	}
	return nil
}

// RecentBuilds returns the newest builds, most recent first.
func (c *Cache) RecentBuilds(ctx context.Context, limit int) ([]BuildRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if limit <= 0 {
		limit = 10
	}
	rows, err := c.db.QueryContext(ctx,
		"SELECT id, started_at, duration_ms, pages, outcome FROM builds ORDER BY started_at DESC, id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	var out []BuildRecord
	for rows.Next() {
		var rec BuildRecord
		var started int64
		var durationMS int64
		if err := rows.Scan(&rec.ID, &started, &durationMS, &rec.Pages, &rec.Outcome); err != nil {
			return nil, err
		}
		rec.StartedAt = time.Unix(started, 0)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}
