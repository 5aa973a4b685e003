package storage

import "github.com/mvxt99/minidb/internal/record"

// Table is one table's resident state: schema, rows in insertion order, the
// auto-increment counter, and the automatic indexes. Indexes are derived
// state and are kept in lockstep with every row mutation.
type Table struct {
	Name    string
	Schema  record.Schema
	Rows    []record.Row
	AutoInc int64

	indexes map[string]*Index // keyed by lower-cased column name
}

// NewTable builds an empty table with fresh indexes for every PRIMARY
// KEY/UNIQUE column. The auto-increment counter starts at 1.
func NewTable(name string, schema record.Schema) *Table {
	t := &Table{Name: name, Schema: schema, AutoInc: 1}
	t.RebuildIndexes()
	return t
}

// Index returns the automatic index on a column, nil when the column is not
// indexed.
func (t *Table) Index(column string) *Index {
	pos := t.Schema.ColPos(column)
	if pos < 0 {
		return nil
	}
	return t.indexes[KeyName(t.Schema.Cols[pos].Name)]
}

// Append adds a fully validated row and updates every index with its
// position. Callers must have run all constraint checks first.
func (t *Table) Append(row record.Row) {
	pos := len(t.Rows)
	t.Rows = append(t.Rows, row)
	for i, col := range t.Schema.Cols {
		if ix := t.indexes[KeyName(col.Name)]; ix != nil {
			ix.Add(row[i], pos)
		}
	}
}

// DeleteAt removes the rows at the given positions. Remaining rows shift
// down, so indexes are rebuilt from the surviving row set.
func (t *Table) DeleteAt(positions map[int]bool) {
	if len(positions) == 0 {
		return
	}
	kept := make([]record.Row, 0, len(t.Rows))
	for i, row := range t.Rows {
		if !positions[i] {
			kept = append(kept, row)
		}
	}
	t.Rows = kept
	t.RebuildIndexes()
}

// NextAutoInc returns the next auto-increment value and bumps the counter.
// Values are never reused, even after the row that held one is deleted.
func (t *Table) NextAutoInc() int64 {
	v := t.AutoInc
	t.AutoInc++
	return v
}

// BumpAutoInc moves the counter past an explicitly inserted value so later
// auto-assigned values cannot collide with it.
func (t *Table) BumpAutoInc(v int64) {
	if v >= t.AutoInc {
		t.AutoInc = v + 1
	}
}

// RebuildIndexes derives every automatic index from the current row set.
// Also called after loading from disk: persisted index contents are never
// trusted.
func (t *Table) RebuildIndexes() {
	t.indexes = make(map[string]*Index)
	for i, col := range t.Schema.Cols {
		if !col.Indexed() {
			continue
		}
		ix := NewIndex(col.Name)
		for pos, row := range t.Rows {
			ix.Add(row[i], pos)
		}
		t.indexes[KeyName(col.Name)] = ix
	}
}

func (t *Table) snapshotIndexes() []*Index {
	out := make([]*Index, 0, len(t.indexes))
	for _, col := range t.Schema.Cols {
		if ix := t.indexes[KeyName(col.Name)]; ix != nil {
			out = append(out, ix)
		}
	}
	return out
}
