// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the durable key-value snapshot store for anita.
//
// Two independent slots are used: one for the serialized message history and
// one for the serialized task list. Each slot holds an opaque full-collection
// snapshot that is overwritten wholesale on every mutation; there is no
// incremental diffing and no transactional coupling between slots.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Slot names used by the application.
const (
	SlotHistory = "history"
	SlotTasks   = "tasks"
)

// schemaVersion is written to the meta table so future releases can migrate
// old snapshots deliberately instead of guessing.
const schemaVersion = 1

// =============================================================================
// STORE
// =============================================================================

// Store is a SQLite-backed key-value snapshot store.
type Store struct {
	db *sql.DB
}

// Open creates (or opens) the store at the given path and runs migrations.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		slot TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	_, err := s.db.Exec(
		`INSERT INTO meta (key, value) VALUES ('schema_version', ?)
		 ON CONFLICT(key) DO NOTHING`,
		fmt.Sprintf("%d", schemaVersion),
	)
	return err
}

// SchemaVersion returns the schema version recorded in the store.
func (s *Store) SchemaVersion() (int, error) {
	var v int
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&v)
	if err != nil {
		return 0, err
	}
	return v, nil
}

// =============================================================================
// SNAPSHOT OPERATIONS
// =============================================================================

// Put overwrites the snapshot stored in the given slot.
func (s *Store) Put(slot string, data []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO snapshots (slot, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(slot) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		slot, data, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("put %s snapshot: %w", slot, err)
	}
	return nil
}

// Get returns the snapshot stored in the given slot, or (nil, nil) when the
// slot has never been written.
func (s *Store) Get(slot string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow(`SELECT data FROM snapshots WHERE slot = ?`, slot).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s snapshot: %w", slot, err)
	}
	return data, nil
}

// Delete removes the snapshot stored in the given slot. No-op if absent.
func (s *Store) Delete(slot string) error {
	_, err := s.db.Exec(`DELETE FROM snapshots WHERE slot = ?`, slot)
	if err != nil {
		return fmt.Errorf("delete %s snapshot: %w", slot, err)
	}
	return nil
}

// =============================================================================
// SLOT VIEW
// =============================================================================

// SlotView is a narrow handle bound to one slot, satisfying the
// save/load interfaces the collections expect.
type SlotView struct {
	store *Store
	slot  string
}

// Slot returns a view bound to the named slot.
func (s *Store) Slot(name string) *SlotView {
	return &SlotView{store: s, slot: name}
}

// Save overwrites the slot's snapshot.
func (v *SlotView) Save(data []byte) error {
	return v.store.Put(v.slot, data)
}

// Load returns the slot's snapshot, or (nil, nil) when absent.
func (v *SlotView) Load() ([]byte, error) {
	return v.store.Get(v.slot)
}
