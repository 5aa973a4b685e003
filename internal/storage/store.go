// Package storage owns per-table row data, the automatic indexes, and the
// durable file-backed representation. One JSON file per table lives under
// <dir>/tables; every mutating statement writes through synchronously.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mvxt99/minidb/internal/record"
)

var ErrTableFileMissing = errors.New("storage: table file does not exist")

// tableFile is the persisted shape of a table. Index contents are written
// for inspection but rebuilt from the row set on load, so a stale index on
// disk can never violate the in-memory invariant.
type tableFile struct {
	Name    string        `json:"name"`
	Schema  record.Schema `json:"schema"`
	AutoInc int64         `json:"auto_increment"`
	Rows    []record.Row  `json:"rows"`
	Indexes []*Index      `json:"indexes"`
}

// Store reads and writes table files under a data directory.
type Store struct {
	Dir string
}

func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

func (s *Store) tableDir() string {
	return filepath.Join(s.Dir, "tables")
}

func (s *Store) tablePath(name string) string {
	return filepath.Join(s.tableDir(), strings.ToLower(name)+".json")
}

// Exists reports whether a table file is present on disk.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.tablePath(name))
	return err == nil
}

// List returns the names of all persisted tables, sorted by the directory
// listing order (lexicographic).
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.tableDir())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: list tables: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	return names, nil
}

// Load reads a table file and rebuilds its indexes from the row set.
func (s *Store) Load(name string) (*Table, error) {
	data, err := os.ReadFile(s.tablePath(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrTableFileMissing
		}
		return nil, fmt.Errorf("storage: read table %s: %w", name, err)
	}

	var tf tableFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("storage: decode table %s: %w", name, err)
	}

	t := &Table{
		Name:    tf.Name,
		Schema:  tf.Schema,
		Rows:    tf.Rows,
		AutoInc: tf.AutoInc,
	}
	if t.AutoInc < 1 {
		t.AutoInc = 1
	}
	t.RebuildIndexes()
	return t, nil
}

// Save persists a table: marshal, write to a temp file in the same
// directory, then rename over the real file so a reader never observes a
// half-written table.
func (s *Store) Save(t *Table) error {
	tf := tableFile{
		Name:    t.Name,
		Schema:  t.Schema,
		AutoInc: t.AutoInc,
		Rows:    t.Rows,
		Indexes: t.snapshotIndexes(),
	}

	data, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode table %s: %w", t.Name, err)
	}

	if err := os.MkdirAll(s.tableDir(), 0o755); err != nil {
		return fmt.Errorf("storage: create table dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.tableDir(), "."+strings.ToLower(t.Name)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("storage: temp file for %s: %w", t.Name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("storage: write table %s: %w", t.Name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("storage: close table %s: %w", t.Name, err)
	}

	if err := os.Rename(tmpName, s.tablePath(t.Name)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("storage: replace table %s: %w", t.Name, err)
	}
	return nil
}

// Remove deletes a table file.
func (s *Store) Remove(name string) error {
	if err := os.Remove(s.tablePath(name)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrTableFileMissing
		}
		return fmt.Errorf("storage: remove table %s: %w", name, err)
	}
	return nil
}

func KeyName(name string) string { return strings.ToLower(name) }
