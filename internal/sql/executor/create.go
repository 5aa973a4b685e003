package executor

import (
	"github.com/mvxt99/minidb/internal/dberr"
	"github.com/mvxt99/minidb/internal/record"
	"github.com/mvxt99/minidb/internal/sql/parser"
	"github.com/mvxt99/minidb/internal/storage"
)

func (e *Executor) execCreateTable(st *parser.CreateTableStmt) (*Result, error) {
	if e.db.Has(st.TableName) {
		return nil, dberr.Schemaf("Table '%s' already exists", st.TableName)
	}

	schema := record.Schema{Cols: st.Columns}
	if err := schema.Validate(); err != nil {
		return nil, dberr.Schemaf("%v", err)
	}

	// Foreign-key targets must already exist: forward references to
	// not-yet-created tables are rejected.
	for _, col := range st.Columns {
		if col.Ref == nil {
			continue
		}
		if err := e.checkForeignKeyTarget(col); err != nil {
			return nil, err
		}
	}

	if err := e.wouldIntroduceCycle(st.TableName, st.Columns); err != nil {
		return nil, err
	}

	t := storage.NewTable(st.TableName, schema)
	if err := e.db.Register(t); err != nil {
		return nil, err
	}

	e.logger.Info("table created", "table", st.TableName, "columns", len(st.Columns))
	return &Result{}, nil
}

func (e *Executor) checkForeignKeyTarget(col record.Column) error {
	if !e.db.Has(col.Ref.Table) {
		return dberr.Schemaf("foreign key on column '%s' references unknown table '%s'", col.Name, col.Ref.Table)
	}
	target, err := e.db.Table(col.Ref.Table)
	if err != nil {
		return err
	}
	pos := target.Schema.ColPos(col.Ref.Column)
	if pos < 0 {
		return dberr.Schemaf("foreign key on column '%s' references unknown column %s(%s)", col.Name, col.Ref.Table, col.Ref.Column)
	}
	tcol := target.Schema.Cols[pos]
	if !tcol.Indexed() {
		return dberr.Schemaf("foreign key target %s(%s) must be PRIMARY KEY or UNIQUE", col.Ref.Table, col.Ref.Column)
	}
	if tcol.Type != col.Type {
		return dberr.Schemaf("foreign key column '%s' is %s but %s(%s) is %s",
			col.Name, col.Type, col.Ref.Table, col.Ref.Column, tcol.Type)
	}
	return nil
}

// wouldIntroduceCycle walks the foreign-key graph as it would look with the
// new table added. A cycle is rejected at CREATE TABLE time so cascading
// deletes can never loop.
func (e *Executor) wouldIntroduceCycle(name string, cols []record.Column) error {
	edges := make(map[string][]string)
	existing, err := e.db.All()
	if err != nil {
		return err
	}
	for _, t := range existing {
		from := storage.KeyName(t.Name)
		for _, c := range t.Schema.Cols {
			if c.Ref != nil {
				edges[from] = append(edges[from], storage.KeyName(c.Ref.Table))
			}
		}
	}
	start := storage.KeyName(name)
	for _, c := range cols {
		if c.Ref != nil {
			edges[start] = append(edges[start], storage.KeyName(c.Ref.Table))
		}
	}

	visited := map[string]bool{}
	var walk func(n string) bool
	walk = func(n string) bool {
		for _, next := range edges[n] {
			if next == start {
				return true
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			if walk(next) {
				return true
			}
		}
		return false
	}
	if walk(start) {
		return dberr.Schemaf("foreign key cycle detected involving table '%s'", name)
	}
	return nil
}
