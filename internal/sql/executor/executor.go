// Package executor runs parsed statements against the table registry,
// enforcing schema, uniqueness and foreign-key constraints.
package executor

import (
	"log/slog"
	"sort"

	minidb "github.com/mvxt99/minidb"
	"github.com/mvxt99/minidb/internal/dberr"
	"github.com/mvxt99/minidb/internal/record"
	"github.com/mvxt99/minidb/internal/sql/parser"
	"github.com/mvxt99/minidb/internal/storage"
)

// Result is the generic statement result returned to the caller.
type Result struct {
	Columns []string
	Rows    []record.Row

	// For DML:
	AffectedRows int64

	// LastInsertID is the INT primary key of the row added by an INSERT,
	// whether auto-assigned or explicit. Zero when the table has no INT
	// primary key.
	LastInsertID int64
}

// Executor executes statements against a Database. Each statement runs to
// completion (including persistence) behind the registry-wide lock.
type Executor struct {
	db     *minidb.Database
	logger *slog.Logger
}

func NewExecutor(db *minidb.Database) *Executor {
	return &Executor{
		db:     db,
		logger: slog.Default().With("component", "executor"),
	}
}

// ExecSQL is the top-level entry: statement text -> Result.
func (e *Executor) ExecSQL(sql string) (*Result, error) {
	stmt, err := parser.Parse(sql)
	if err != nil {
		return nil, err
	}
	return e.Exec(stmt)
}

// Exec executes one parsed statement.
func (e *Executor) Exec(stmt parser.Statement) (*Result, error) {
	e.db.Lock()
	defer e.db.Unlock()

	switch st := stmt.(type) {
	case *parser.CreateTableStmt:
		return e.execCreateTable(st)
	case *parser.InsertStmt:
		return e.execInsert(st)
	case *parser.SelectStmt:
		return e.execSelect(st)
	case *parser.UpdateStmt:
		return e.execUpdate(st)
	case *parser.DeleteStmt:
		return e.execDelete(st)
	default:
		return nil, dberr.Parsef("unsupported statement type %T", stmt)
	}
}

// PrimaryKey returns the primary key column of a table. The HTTP facade
// uses it to generate point statements against /{table}/{id}.
func (e *Executor) PrimaryKey(table string) (record.Column, error) {
	e.db.Lock()
	defer e.db.Unlock()
	t, err := e.db.Table(table)
	if err != nil {
		return record.Column{}, err
	}
	pk := t.Schema.PrimaryKeyPos()
	if pk < 0 {
		return record.Column{}, dberr.Schemaf("Table '%s' has no primary key", table)
	}
	return t.Schema.Cols[pk], nil
}

// TableNames lists every table, for the shell's \dt meta command.
func (e *Executor) TableNames() ([]string, error) {
	e.db.Lock()
	defer e.db.Unlock()
	return e.db.Names()
}

// resolveInTable resolves a possibly qualified column reference against a
// single table.
func resolveInTable(t *storage.Table, ref parser.ColumnRef) (int, error) {
	if ref.Table != "" && storage.KeyName(ref.Table) != storage.KeyName(t.Name) {
		return -1, dberr.Schemaf("Column '%s' does not belong to table '%s'", ref, t.Name)
	}
	pos := t.Schema.ColPos(ref.Name)
	if pos < 0 {
		return -1, dberr.Schemaf("Column '%s' not found in table '%s'", ref.Name, t.Name)
	}
	return pos, nil
}

// matchPositions returns the positions of rows matching the predicate, in
// row order. An equality predicate on an indexed column is answered by an
// index point lookup; everything else is a full scan. This is purely an
// optimization: observable behavior is identical.
func matchPositions(t *storage.Table, where *parser.Predicate) ([]int, error) {
	if where == nil {
		all := make([]int, len(t.Rows))
		for i := range t.Rows {
			all[i] = i
		}
		return all, nil
	}

	pos, err := resolveInTable(t, where.Column)
	if err != nil {
		return nil, err
	}
	col := t.Schema.Cols[pos]

	if where.Op == parser.OpEq {
		if ix := t.Index(col.Name); ix != nil {
			v, ok := where.Value.Coerce(col.Type)
			if !ok {
				return nil, nil
			}
			hits := append([]int(nil), ix.Lookup(v)...)
			sort.Ints(hits)
			return hits, nil
		}
	}

	var out []int
	for i, row := range t.Rows {
		ok, err := evalPredicate(row[pos], col, where)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, i)
		}
	}
	return out, nil
}
