package executor

import (
	"github.com/mvxt99/minidb/internal/dberr"
	"github.com/mvxt99/minidb/internal/record"
	"github.com/mvxt99/minidb/internal/sql/parser"
	"github.com/mvxt99/minidb/internal/storage"
)

func (e *Executor) execUpdate(st *parser.UpdateStmt) (*Result, error) {
	t, err := e.db.Table(st.TableName)
	if err != nil {
		return nil, err
	}

	candidates, err := matchPositions(t, st.Where)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &Result{AffectedRows: 0}, nil
	}

	// Resolve assignment columns once.
	assignPos := make([]int, len(st.Assignments))
	for i, a := range st.Assignments {
		pos := t.Schema.ColPos(a.Column)
		if pos < 0 {
			return nil, dberr.Schemaf("Column '%s' not found in table '%s'", a.Column, t.Name)
		}
		assignPos[i] = pos
	}

	// Validate every candidate's would-be row before mutating any: the
	// statement is all-or-nothing across the matched set. A row keeps its
	// own index entries out of the uniqueness probe, and staged tracks
	// duplicates introduced between candidates of this same statement.
	staged := make(map[string]map[string]bool)

	newRows := make(map[int]record.Row, len(candidates))
	for _, rowPos := range candidates {
		next := make(record.Row, len(t.Rows[rowPos]))
		copy(next, t.Rows[rowPos])

		for i, a := range st.Assignments {
			col := t.Schema.Cols[assignPos[i]]
			if a.Value.IsNull() {
				if col.PrimaryKey {
					return nil, dberr.Constraintf("Primary key column '%s' cannot be NULL", col.Name)
				}
				next[assignPos[i]] = record.Null()
				continue
			}
			cv, ok := a.Value.Coerce(col.Type)
			if !ok {
				return nil, dberr.Typef("Cannot convert '%s' to %s in column '%s'", a.Value, col.Type, col.Name)
			}
			next[assignPos[i]] = cv
		}

		if err := checkUnique(t, next, map[int]bool{rowPos: true}, staged); err != nil {
			return nil, err
		}
		if err := e.checkForeignKeys(t, next); err != nil {
			return nil, err
		}
		if err := e.checkNotReferenced(t, t.Rows[rowPos], next); err != nil {
			return nil, err
		}
		newRows[rowPos] = next
	}

	for pos, row := range newRows {
		t.Rows[pos] = row
	}
	t.RebuildIndexes()

	if err := e.db.Persist(t); err != nil {
		return nil, err
	}
	return &Result{AffectedRows: int64(len(candidates))}, nil
}

// checkNotReferenced rejects rewriting a value that other tables' foreign
// keys still point at. Only indexed columns can be foreign-key targets, so
// only those are scanned; unchanged values keep their referencing rows
// valid and are skipped. There is no cascading variant of UPDATE: any live
// reference blocks the statement.
func (e *Executor) checkNotReferenced(t *storage.Table, oldRow, next record.Row) error {
	var tables []*storage.Table
	for i, col := range t.Schema.Cols {
		if !col.Indexed() || oldRow[i].IsNull() || oldRow[i].Equal(next[i]) {
			continue
		}
		if tables == nil {
			var err error
			tables, err = e.db.All()
			if err != nil {
				return err
			}
		}
		for _, other := range tables {
			for ci, ocol := range other.Schema.Cols {
				if ocol.Ref == nil ||
					storage.KeyName(ocol.Ref.Table) != storage.KeyName(t.Name) ||
					storage.KeyName(ocol.Ref.Column) != storage.KeyName(col.Name) {
					continue
				}
				for _, orow := range other.Rows {
					if orow[ci].Equal(oldRow[i]) {
						return dberr.Constraintf("Foreign key constraint fails: value '%s' is referenced by %s(%s)",
							oldRow[i], other.Name, ocol.Name)
					}
				}
			}
		}
	}
	return nil
}
