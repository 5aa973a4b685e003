// Package minidb is the top-level facade: it owns the table registry and
// the single mutual-exclusion boundary behind which statements execute.
package minidb

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/mvxt99/minidb/internal/dberr"
	"github.com/mvxt99/minidb/internal/storage"
)

// Database is the owned table registry. Tables are loaded from disk on
// first reference and stay resident for the process lifetime. There is
// exactly one logical writer: every statement runs to completion (including
// persistence) under mu, because cross-table cascades and foreign-key
// checks must observe a consistent snapshot of the whole registry.
type Database struct {
	mu     sync.Mutex
	store  *storage.Store
	tables map[string]*storage.Table
	logger *slog.Logger
}

// Open returns a database over a data directory. Nothing is read until a
// table is first referenced.
func Open(dir string) *Database {
	return &Database{
		store:  storage.NewStore(dir),
		tables: make(map[string]*storage.Table),
		logger: slog.Default().With("component", "minidb"),
	}
}

// Lock serializes statement execution registry-wide.
func (db *Database) Lock() { db.mu.Lock() }

// Unlock releases the statement boundary.
func (db *Database) Unlock() { db.mu.Unlock() }

// Has reports whether a table exists, loaded or on disk.
// Callers must hold the statement lock.
func (db *Database) Has(name string) bool {
	if _, ok := db.tables[storage.KeyName(name)]; ok {
		return true
	}
	return db.store.Exists(name)
}

// Table returns a resident table, lazily loading it from disk.
// Callers must hold the statement lock.
func (db *Database) Table(name string) (*storage.Table, error) {
	key := storage.KeyName(name)
	if t, ok := db.tables[key]; ok {
		return t, nil
	}
	t, err := db.store.Load(name)
	if err != nil {
		if errors.Is(err, storage.ErrTableFileMissing) {
			return nil, dberr.NotFoundf("Table '%s' does not exist", name)
		}
		return nil, err
	}
	db.logger.Debug("table loaded", "table", t.Name, "rows", len(t.Rows))
	db.tables[key] = t
	return t, nil
}

// Register adds a newly created table to the registry and persists its
// (empty) file. Callers must hold the statement lock.
func (db *Database) Register(t *storage.Table) error {
	if err := db.store.Save(t); err != nil {
		return err
	}
	db.tables[storage.KeyName(t.Name)] = t
	return nil
}

// Persist writes a table file through to disk.
func (db *Database) Persist(t *storage.Table) error {
	return db.store.Save(t)
}

// All loads and returns every table in the database. DELETE uses it to
// scan every other table's schema for referencing foreign keys.
// Callers must hold the statement lock.
func (db *Database) All() ([]*storage.Table, error) {
	names, err := db.store.List()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(names))
	out := make([]*storage.Table, 0, len(names))
	for _, name := range names {
		t, err := db.Table(name)
		if err != nil {
			return nil, err
		}
		seen[storage.KeyName(t.Name)] = true
		out = append(out, t)
	}
	// Tables created this process may not be in the directory listing yet
	// on exotic filesystems; keep the registry authoritative.
	for key, t := range db.tables {
		if !seen[key] {
			out = append(out, t)
		}
	}
	return out, nil
}

// Names returns every table name, for the shell's \dt.
func (db *Database) Names() ([]string, error) {
	tables, err := db.All()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(tables))
	for _, t := range tables {
		names = append(names, t.Name)
	}
	return names, nil
}

// Close releases the registry. Every statement persists synchronously, so
// there is nothing left to flush.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.tables = make(map[string]*storage.Table)
	return nil
}
