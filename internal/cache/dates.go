// Package cache holds the caller-owned caches shared by comparison workers.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"ccdsync/internal/port"
)

// DateStore is a DateCache that holds resources until closed.
type DateStore interface {
	port.DateCache
	Close() error
}

// NewDateStore opens the sqlite cache at path, or an in-memory cache when
// path is empty.
func NewDateStore(path string) (DateStore, error) {
	if path == "" {
		return NewMemoryDates(), nil
	}
	return OpenSQLiteDates(path)
}

// MemoryDates keeps dates for the lifetime of the process.
type MemoryDates struct {
	mu    sync.RWMutex
	dates map[string]string
}

// NewMemoryDates creates an empty in-memory date cache.
func NewMemoryDates() *MemoryDates {
	return &MemoryDates{dates: make(map[string]string)}
}

func (m *MemoryDates) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	date, ok := m.dates[key]
	return date, ok, nil
}

func (m *MemoryDates) Put(_ context.Context, key, date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dates[key] = date
	return nil
}

// Len returns the number of remembered keys.
func (m *MemoryDates) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.dates)
}

func (m *MemoryDates) Close() error { return nil }

const createDatesTable = `
CREATE TABLE IF NOT EXISTS commit_dates (
	key        TEXT PRIMARY KEY,
	date       TEXT NOT NULL,
	fetched_at TEXT NOT NULL
)`

// SQLiteDates persists dates across runs in a local sqlite file.
type SQLiteDates struct {
	db *sqlx.DB
}

// OpenSQLiteDates opens (creating if needed) the cache database at path.
func OpenSQLiteDates(path string) (*SQLiteDates, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening date cache %s: %w", path, err)
	}
	// sqlite allows a single writer; serialize through one connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(createDatesTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating date cache schema: %w", err)
	}
	return &SQLiteDates{db: db}, nil
}

func (s *SQLiteDates) Get(ctx context.Context, key string) (string, bool, error) {
	var date string
	err := s.db.GetContext(ctx, &date, `SELECT date FROM commit_dates WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqliteDates.Get: %w", err)
	}
	return date, true, nil
}

func (s *SQLiteDates) Put(ctx context.Context, key, date string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO commit_dates (key, date, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET date = excluded.date, fetched_at = excluded.fetched_at`,
		key, date, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("sqliteDates.Put: %w", err)
	}
	return nil
}

func (s *SQLiteDates) Close() error {
	return s.db.Close()
}
