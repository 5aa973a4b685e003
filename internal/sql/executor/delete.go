package executor

import (
	"github.com/mvxt99/minidb/internal/dberr"
	"github.com/mvxt99/minidb/internal/record"
	"github.com/mvxt99/minidb/internal/sql/parser"
	"github.com/mvxt99/minidb/internal/storage"
)

// deletePlan accumulates row positions to remove per table. The whole walk
// completes (or fails) before any row is touched, so a RESTRICT hit leaves
// every table unchanged.
type deletePlan map[string]map[int]bool

func (p deletePlan) mark(table string, pos int) bool {
	key := storage.KeyName(table)
	if p[key] == nil {
		p[key] = make(map[int]bool)
	}
	if p[key][pos] {
		return false
	}
	p[key][pos] = true
	return true
}

func (e *Executor) execDelete(st *parser.DeleteStmt) (*Result, error) {
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

	tables, err := e.db.All()
	if err != nil {
		return nil, err
	}

	plan := make(deletePlan)
	for _, pos := range candidates {
		if err := e.planDelete(t, pos, tables, plan); err != nil {
			return nil, err
		}
	}

	// Commit: remove planned rows and persist every touched table.
	for key, positions := range plan {
		pt, err := e.db.Table(key)
		if err != nil {
			return nil, err
		}
		pt.DeleteAt(positions)
		if err := e.db.Persist(pt); err != nil {
			return nil, err
		}
		if storage.KeyName(pt.Name) != storage.KeyName(t.Name) {
			e.logger.Info("cascade delete", "table", pt.Name, "rows", len(positions))
		}
	}

	return &Result{AffectedRows: int64(len(candidates))}, nil
}

// planDelete marks one row for deletion and walks every foreign key
// pointing at its table: RESTRICT references reject the whole statement,
// CASCADE references recurse. Rows already planned are skipped, which also
// terminates the walk on any (rejected-at-create, but guarded) cycle.
func (e *Executor) planDelete(t *storage.Table, pos int, tables []*storage.Table, plan deletePlan) error {
	if !plan.mark(t.Name, pos) {
		return nil
	}
	row := t.Rows[pos]

	for _, other := range tables {
		for ci, col := range other.Schema.Cols {
			if col.Ref == nil || storage.KeyName(col.Ref.Table) != storage.KeyName(t.Name) {
				continue
			}
			refPos := t.Schema.ColPos(col.Ref.Column)
			if refPos < 0 {
				continue
			}
			val := row[refPos]
			if val.IsNull() {
				continue
			}

			for opos, orow := range other.Rows {
				if plan[storage.KeyName(other.Name)][opos] {
					continue
				}
				if !orow[ci].Equal(val) {
					continue
				}
				if col.Ref.OnDelete == record.Restrict {
					return dberr.Constraintf("Foreign key constraint fails: value '%s' is referenced by %s(%s)",
						val, other.Name, col.Name)
				}
				if err := e.planDelete(other, opos, tables, plan); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
