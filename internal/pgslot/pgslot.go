// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// pgslot.go — PostgreSQL save slot backend: idempotent table bootstrap,
// upsert on save, and primary-key lookups keyed by (slot, user_index).

// Package pgslot provides the PostgreSQL save slot backend.
package pgslot

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTable is the table used when none is configured.
const DefaultTable = "savestate_slots"

// Store is the PostgreSQL slot adapter.
type Store struct {
	pool  *pgxpool.Pool
	table string // sanitized identifier
}

// New creates a Store over an existing pool. An empty table selects
// DefaultTable.
func New(pool *pgxpool.Pool, table string) *Store {
	if table == "" {
		table = DefaultTable
	}
	return &Store{pool: pool, table: pgx.Identifier{table}.Sanitize()}
}

// Connect parses dsn, opens a pool and ensures the slot table exists.
func Connect(ctx context.Context, dsn, table string, maxConns, minConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pgslot parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns > 0 {
		cfg.MinConns = minConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgslot connect: %w", err)
	}
	s := New(pool, table)
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Table returns the sanitized table identifier.
func (s *Store) Table() string { return s.table }

// EnsureSchema creates the slot table when it is missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  slot       TEXT        NOT NULL,
  user_index INTEGER     NOT NULL,
  data       BYTEA       NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  PRIMARY KEY (slot, user_index)
)`, s.table)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("pgslot ensure %s: %w", s.table, err)
	}
	return nil
}

// Ping verifies the pool is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Save upserts data under slot/userIndex.
func (s *Store) Save(ctx context.Context, slot string, userIndex int, data []byte) error {
	sql := fmt.Sprintf(
		"INSERT INTO %s (slot, user_index, data, updated_at) VALUES ($1, $2, $3, now()) "+
			"ON CONFLICT (slot, user_index) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at",
		s.table)
	if data == nil {
		data = []byte{}
	}
	if _, err := s.pool.Exec(ctx, sql, slot, userIndex, data); err != nil {
		return fmt.Errorf("pgslot upsert %s: %w", slot, err)
	}
	return nil
}

// Load reads the bytes stored under slot/userIndex.
func (s *Store) Load(ctx context.Context, slot string, userIndex int) ([]byte, bool, error) {
	sql := fmt.Sprintf("SELECT data FROM %s WHERE slot = $1 AND user_index = $2", s.table)
	var data []byte
	if err := s.pool.QueryRow(ctx, sql, slot, userIndex).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("pgslot load %s: %w", slot, err)
	}
	return data, true, nil
}

// Exists reports whether slot/userIndex is stored.
func (s *Store) Exists(ctx context.Context, slot string, userIndex int) (bool, error) {
	sql := fmt.Sprintf("SELECT 1 FROM %s WHERE slot = $1 AND user_index = $2 LIMIT 1", s.table)
	var dummy int
	if err := s.pool.QueryRow(ctx, sql, slot, userIndex).Scan(&dummy); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("pgslot exists %s: %w", slot, err)
	}
	return true, nil
}

// Delete removes slot/userIndex.
func (s *Store) Delete(ctx context.Context, slot string, userIndex int) error {
	sql := fmt.Sprintf("DELETE FROM %s WHERE slot = $1 AND user_index = $2", s.table)
	if _, err := s.pool.Exec(ctx, sql, slot, userIndex); err != nil {
		return fmt.Errorf("pgslot delete %s: %w", slot, err)
	}
	return nil
}

// List returns the sorted slot names stored for userIndex.
func (s *Store) List(ctx context.Context, userIndex int) ([]string, error) {
	sql := fmt.Sprintf("SELECT slot FROM %s WHERE user_index = $1 ORDER BY slot", s.table)
	rows, err := s.pool.Query(ctx, sql, userIndex)
	if err != nil {
		return nil, fmt.Errorf("pgslot list: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("pgslot list: %w", err)
	}
	return out, nil
}

// Pool returns the underlying connection pool.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Close shuts down the underlying connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
