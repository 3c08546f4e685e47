package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Item is one ingested piece of content. URL is the natural key: the
// ingestion path never writes a second row for the same URL.
type Item struct {
	ID          int64
	Title       string
	URL         string
	Source      string
	PublishedAt time.Time
	Body        string
	Summary     string
	Meta        Meta
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

var ErrNotFound = errors.New("not found")

// Handle bundles an open database with the operations the ingestion path
// needs, so callers inject it instead of reaching for package state.
type Handle struct {
	DB *sql.DB
}

func (h *Handle) Ping(ctx context.Context) error {
	return h.DB.PingContext(ctx)
}

func (h *Handle) InsertIfAbsent(ctx context.Context, it Item) (bool, error) {
	return InsertIfAbsent(ctx, h.DB, it)
}

func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

func InitSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  title TEXT NOT NULL,
  url TEXT NOT NULL UNIQUE,
  source TEXT NOT NULL,
  published_at TIMESTAMP,
  body TEXT,
  summary TEXT,
  metadata TEXT,
  created_at TIMESTAMP,
  updated_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_items_source ON items(source);
CREATE INDEX IF NOT EXISTS idx_items_created ON items(created_at);
`
	_, err := db.Exec(schema)
	return err
}

// InsertIfAbsent persists the item unless a row with the same URL already
// exists. A duplicate is the normal dedupe outcome and is reported as
// (false, nil), not as an error.
func InsertIfAbsent(ctx context.Context, db *sql.DB, it Item) (bool, error) {
	if strings.TrimSpace(it.Title) == "" {
		return false, fmt.Errorf("insert rejected: empty title (url=%s)", it.URL)
	}
	if strings.TrimSpace(it.URL) == "" {
		return false, fmt.Errorf("insert rejected: empty url (title=%q)", it.Title)
	}
	meta, err := encodeMeta(it.Meta)
	if err != nil {
		return false, fmt.Errorf("encode metadata: %w", err)
	}
	now := time.Now().UTC()
	published := it.PublishedAt.UTC()
	if it.PublishedAt.IsZero() {
		// The origin platform reported no timestamp; fall back to ingestion time.
		published = now
	}
	res, err := db.ExecContext(ctx, `
INSERT INTO items (title, url, source, published_at, body, summary, metadata, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(url) DO NOTHING
`, it.Title, it.URL, it.Source, published, it.Body, it.Summary, meta, now, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetBySource returns items with exactly this source, newest first.
func GetBySource(ctx context.Context, db *sql.DB, source string, limit int) ([]Item, error) {
	q := selectColumns + ` WHERE source = ? ORDER BY created_at DESC`
	args := []any{source}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	return queryItems(ctx, db, q, args...)
}

// GetBySourcePrefix returns items whose source starts with prefix, newest
// first. The prefix is matched literally; LIKE wildcards in it are escaped.
func GetBySourcePrefix(ctx context.Context, db *sql.DB, prefix string, limit int) ([]Item, error) {
	q := selectColumns + ` WHERE source LIKE ? ESCAPE '\' ORDER BY created_at DESC`
	args := []any{escapeLike(prefix) + "%"}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	return queryItems(ctx, db, q, args...)
}

func GetByURL(ctx context.Context, db *sql.DB, url string) (*Item, error) {
	items, err := queryItems(ctx, db, selectColumns+` WHERE url = ?`, url)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return &items[0], nil
}

// CountsByBucket groups row counts by the platform part of the source
// identifier: everything before the first underscore ("reddit_golang"
// counts toward "reddit", a bare "medium" toward "medium").
func CountsByBucket(ctx context.Context, db *sql.DB) (map[string]int64, error) {
	rows, err := db.QueryContext(ctx, `SELECT source, COUNT(*) FROM items GROUP BY source`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[string]int64)
	for rows.Next() {
		var source string
		var n int64
		if err := rows.Scan(&source, &n); err != nil {
			return nil, err
		}
		bucket := source
		if i := strings.Index(source, "_"); i > 0 {
			bucket = source[:i]
		}
		counts[bucket] += n
	}
	return counts, rows.Err()
}

func CountAll(ctx context.Context, db *sql.DB) (int64, error) {
	var n int64
	if err := db.QueryRowContext(ctx, `SELECT count(1) FROM items`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

const selectColumns = `SELECT id, title, url, source, published_at, body, summary, metadata, created_at, updated_at FROM items`

func queryItems(ctx context.Context, db *sql.DB, q string, args ...any) ([]Item, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		var it Item
		var published, created, updated sql.NullTime
		var body, summary, meta sql.NullString
		if err := rows.Scan(&it.ID, &it.Title, &it.URL, &it.Source, &published, &body, &summary, &meta, &created, &updated); err != nil {
			return nil, err
		}
		if published.Valid {
			it.PublishedAt = published.Time
		}
		if created.Valid {
			it.CreatedAt = created.Time
		}
		if updated.Valid {
			it.UpdatedAt = updated.Time
		}
		it.Body = body.String
		it.Summary = summary.String
		if meta.Valid && meta.String != "" {
			m, err := decodeMeta(meta.String)
			if err != nil {
				return nil, fmt.Errorf("decode metadata (url=%s): %w", it.URL, err)
			}
			it.Meta = m
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
