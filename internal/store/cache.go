// Package store provides a SQLite-backed cache for forecast provider responses.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/londongap/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// ErrMiss is returned when nothing is cached under a key.
var ErrMiss = errors.New("store: cache miss")

// Cache provides SQLite-backed dataset caching.
type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database at the given path.
func Open(dbPath string) (*Cache, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Entry is a cached dataset with the time it was fetched.
type Entry struct {
	Dataset   model.Dataset
	FetchedAt time.Time
}

// Age returns how long ago the entry was fetched.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.FetchedAt)
}

// EntryInfo summarizes a cached dataset without its payload.
type EntryInfo struct {
	Key        string    `json:"key"`
	Title      string    `json:"title"`
	YearsAhead int       `json:"years_ahead"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// SaveDataset stores a dataset under key, replacing any previous entry.
func (c *Cache) SaveDataset(key string, d model.Dataset, fetchedAt time.Time) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding dataset: %w", err)
	}

	_, err = c.db.Exec(`INSERT OR REPLACE INTO datasets
		(cache_key, title, years_ahead, payload, fetched_at)
		VALUES (?, ?, ?, ?, ?)`,
		key, d.Title, d.Meta.YearsAhead, string(payload), fetchedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// LoadDataset returns the dataset cached under key, or ErrMiss.
func (c *Cache) LoadDataset(key string) (*Entry, error) {
	var payload, fetched string
	err := c.db.QueryRow("SELECT payload, fetched_at FROM datasets WHERE cache_key = ?", key).
		Scan(&payload, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}

	var e Entry
	if err := json.Unmarshal([]byte(payload), &e.Dataset); err != nil {
		return nil, fmt.Errorf("decoding cached dataset %q: %w", key, err)
	}
	if e.FetchedAt, err = parseFetchedAt(key, fetched); err != nil {
		return nil, err
	}
	return &e, nil
}

// ListDatasets returns every cached dataset, most recently fetched first.
func (c *Cache) ListDatasets() ([]EntryInfo, error) {
	rows, err := c.db.Query(`SELECT cache_key, title, years_ahead, fetched_at
		FROM datasets ORDER BY fetched_at DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []EntryInfo
	for rows.Next() {
		var info EntryInfo
		var fetched string
		if err := rows.Scan(&info.Key, &info.Title, &info.YearsAhead, &fetched); err != nil {
			return nil, err
		}
		if info.FetchedAt, err = parseFetchedAt(info.Key, fetched); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// DeleteDataset removes the entry under key.
func (c *Cache) DeleteDataset(key string) error {
	_, err := c.db.Exec("DELETE FROM datasets WHERE cache_key = ?", key)
	return err
}

// PurgeBefore removes datasets fetched before cutoff and reports how many went.
func (c *Cache) PurgeBefore(cutoff time.Time) (int64, error) {
	res, err := c.db.Exec("DELETE FROM datasets WHERE fetched_at < ?", cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DatasetCount returns the number of cached datasets.
func (c *Cache) DatasetCount() (int, error) {
	var count int
	err := c.db.QueryRow("SELECT COUNT(*) FROM datasets").Scan(&count)
	return count, err
}

// SaveBoroughs replaces the cached borough list.
func (c *Cache) SaveBoroughs(names []string, fetchedAt time.Time) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM boroughs"); err != nil {
		return err
	}

	at := fetchedAt.UTC().Format(time.RFC3339Nano)
	for i, name := range names {
		if _, err := tx.Exec("INSERT OR REPLACE INTO boroughs (name, position, fetched_at) VALUES (?, ?, ?)",
			name, i, at); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadBoroughs returns the cached borough list in provider order, or ErrMiss.
func (c *Cache) LoadBoroughs() ([]string, time.Time, error) {
	rows, err := c.db.Query("SELECT name, fetched_at FROM boroughs ORDER BY position")
	if err != nil {
		return nil, time.Time{}, err
	}
	defer func() { _ = rows.Close() }()

	var names []string
	var fetched string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name, &fetched); err != nil {
			return nil, time.Time{}, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, err
	}
	if len(names) == 0 {
		return nil, time.Time{}, ErrMiss
	}
	at, err := parseFetchedAt("boroughs", fetched)
	if err != nil {
		return nil, time.Time{}, err
	}
	return names, at, nil
}

func parseFetchedAt(key, raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt fetched_at for %q: %w", key, err)
	}
	return t, nil
}
