// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// sqliteslot.go — local-disk save slot backend on an embedded SQLite file.
// The natural choice for single-player builds that need durable slots
// without a database server.

// Package sqliteslot provides the SQLite save slot backend.
package sqliteslot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	_ "modernc.org/sqlite"
)

// Store is the SQLite slot adapter.
type Store struct {
	db     *sql.DB
	closed atomic.Bool
}

// Open opens (creating when needed) the slot database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqliteslot: empty db path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqliteslot: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqliteslot open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("sqliteslot pragma: %w", err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS slots (
		slot       TEXT    NOT NULL,
		user_index INTEGER NOT NULL,
		data       BLOB    NOT NULL,
		updated_at TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
		PRIMARY KEY (slot, user_index)
	);`)
	if err != nil {
		return fmt.Errorf("sqliteslot schema: %w", err)
	}
	return nil
}

// Save upserts data under slot/userIndex.
func (s *Store) Save(ctx context.Context, slot string, userIndex int, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO slots (slot, user_index, data, updated_at)
		 VALUES (?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		 ON CONFLICT(slot, user_index) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		slot, userIndex, data)
	if err != nil {
		return fmt.Errorf("sqliteslot save %s: %w", slot, err)
	}
	return nil
}

// Load reads the bytes stored under slot/userIndex.
func (s *Store) Load(ctx context.Context, slot string, userIndex int) ([]byte, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM slots WHERE slot = ? AND user_index = ?`, slot, userIndex).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("sqliteslot load %s: %w", slot, err)
	}
	return data, true, nil
}

// Exists reports whether slot/userIndex is stored.
func (s *Store) Exists(ctx context.Context, slot string, userIndex int) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM slots WHERE slot = ? AND user_index = ?`, slot, userIndex).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqliteslot exists %s: %w", slot, err)
	}
	return n > 0, nil
}

// Delete removes slot/userIndex.
func (s *Store) Delete(ctx context.Context, slot string, userIndex int) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM slots WHERE slot = ? AND user_index = ?`, slot, userIndex); err != nil {
		return fmt.Errorf("sqliteslot delete %s: %w", slot, err)
	}
	return nil
}

// List returns the sorted slot names stored for userIndex.
func (s *Store) List(ctx context.Context, userIndex int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT slot FROM slots WHERE user_index = ? ORDER BY slot`, userIndex)
	if err != nil {
		return nil, fmt.Errorf("sqliteslot list: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("sqliteslot list: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Close closes the database. It is safe to call more than once.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}
