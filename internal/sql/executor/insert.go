package executor

import (
	"github.com/mvxt99/minidb/internal/dberr"
	"github.com/mvxt99/minidb/internal/record"
	"github.com/mvxt99/minidb/internal/sql/parser"
	"github.com/mvxt99/minidb/internal/storage"
)

func (e *Executor) execInsert(st *parser.InsertStmt) (*Result, error) {
	t, err := e.db.Table(st.TableName)
	if err != nil {
		return nil, err
	}

	// Build and validate the candidate row fully before mutating anything:
	// the auto-increment counter is only committed after validation passes.
	row, usedAuto, err := buildRow(t, st.Values)
	if err != nil {
		return nil, err
	}
	if err := checkUnique(t, row, nil, nil); err != nil {
		return nil, err
	}
	if err := e.checkForeignKeys(t, row); err != nil {
		return nil, err
	}

	if usedAuto {
		t.NextAutoInc()
	} else if pk := t.Schema.PrimaryKeyPos(); pk >= 0 && t.Schema.Cols[pk].AutoInc && row[pk].Kind == record.KindInt {
		t.BumpAutoInc(row[pk].I64)
	}

	t.Append(row)
	if err := e.db.Persist(t); err != nil {
		return nil, err
	}

	res := &Result{AffectedRows: 1}
	if pk := t.Schema.PrimaryKeyPos(); pk >= 0 && row[pk].Kind == record.KindInt {
		res.LastInsertID = row[pk].I64
	}
	return res, nil
}

// buildRow checks arity, substitutes the auto-increment counter for a NULL
// in the auto-increment primary key, rejects NULL in a non-auto primary
// key, and type-checks every value against its column.
func buildRow(t *storage.Table, values []record.Value) (record.Row, bool, error) {
	if len(values) != t.Schema.NumCols() {
		return nil, false, dberr.Schemaf("Column count mismatch: expected %d, got %d", t.Schema.NumCols(), len(values))
	}

	row := make(record.Row, len(values))
	usedAuto := false
	for i, col := range t.Schema.Cols {
		v := values[i]
		if v.IsNull() {
			if col.AutoInc {
				row[i] = record.Int(t.AutoInc)
				usedAuto = true
				continue
			}
			if col.PrimaryKey {
				return nil, false, dberr.Constraintf("Primary key column '%s' cannot be NULL", col.Name)
			}
			row[i] = v
			continue
		}
		cv, ok := v.Coerce(col.Type)
		if !ok {
			return nil, false, dberr.Typef("Cannot convert '%s' to %s in column '%s'", v, col.Type, col.Name)
		}
		row[i] = cv
	}
	return row, usedAuto, nil
}

// checkUnique probes every PRIMARY KEY/UNIQUE index for the candidate row's
// values. exclude holds row positions whose current entries do not count
// (an updated row may keep its own unique value); staged holds per-column
// keys already claimed by earlier rows of the same statement.
func checkUnique(t *storage.Table, row record.Row, exclude map[int]bool, staged map[string]map[string]bool) error {
	for i, col := range t.Schema.Cols {
		if !col.Indexed() || row[i].IsNull() {
			continue
		}
		v := row[i]
		violation := false

		ix := t.Index(col.Name)
		for _, pos := range ix.Lookup(v) {
			if !exclude[pos] {
				violation = true
				break
			}
		}
		if !violation && staged != nil {
			colKey := storage.KeyName(col.Name)
			if staged[colKey][v.Key()] {
				violation = true
			} else {
				if staged[colKey] == nil {
					staged[colKey] = make(map[string]bool)
				}
				staged[colKey][v.Key()] = true
			}
		}

		if violation {
			if col.PrimaryKey {
				return dberr.Constraintf("Primary key violation: duplicate value '%s' in column '%s'", v, col.Name)
			}
			return dberr.Constraintf("Unique constraint violation: duplicate value '%s' in column '%s'", v, col.Name)
		}
	}
	return nil
}

// checkForeignKeys verifies every non-NULL foreign-key value has a matching
// row in the referenced table's referenced column.
func (e *Executor) checkForeignKeys(t *storage.Table, row record.Row) error {
	for i, col := range t.Schema.Cols {
		if col.Ref == nil || row[i].IsNull() {
			continue
		}
		target, err := e.db.Table(col.Ref.Table)
		if err != nil {
			return err
		}
		ix := target.Index(col.Ref.Column)
		if ix == nil || !ix.Contains(row[i]) {
			return dberr.Constraintf("Foreign key constraint fails: value '%s' in column '%s' has no match in %s(%s)",
				row[i], col.Name, col.Ref.Table, col.Ref.Column)
		}
	}
	return nil
}
