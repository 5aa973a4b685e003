package executor

import (
	"github.com/mvxt99/minidb/internal/dberr"
	"github.com/mvxt99/minidb/internal/record"
	"github.com/mvxt99/minidb/internal/sql/parser"
	"github.com/mvxt99/minidb/internal/storage"
)

// boundCol is one column of the (possibly joined) working row set, tagged
// with the table it came from so qualified references can resolve.
type boundCol struct {
	table string
	col   record.Column
}

func (e *Executor) execSelect(st *parser.SelectStmt) (*Result, error) {
	base, err := e.db.Table(st.TableName)
	if err != nil {
		return nil, err
	}

	cols := make([]boundCol, 0, base.Schema.NumCols())
	for _, c := range base.Schema.Cols {
		cols = append(cols, boundCol{table: base.Name, col: c})
	}
	rows := make([]record.Row, len(base.Rows))
	copy(rows, base.Rows)

	// Joins compose left to right: each produces the inner equi-join of the
	// working set with the next table, preserving left row order.
	for _, j := range st.Joins {
		cols, rows, err = e.applyJoin(cols, rows, j)
		if err != nil {
			return nil, err
		}
	}

	if st.Where != nil {
		pos, err := resolveRef(cols, st.Where.Column)
		if err != nil {
			return nil, err
		}
		filtered := rows[:0]
		for _, row := range rows {
			ok, err := evalPredicate(row[pos], cols[pos].col, st.Where)
			if err != nil {
				return nil, err
			}
			if ok {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	return project(st, cols, rows, len(st.Joins) > 0)
}

// applyJoin composes the working set with one joined table. Either side of
// the ON condition may name the newly joined table; the other resolves
// against the columns already in the working set.
func (e *Executor) applyJoin(cols []boundCol, rows []record.Row, j parser.JoinClause) ([]boundCol, []record.Row, error) {
	right, err := e.db.Table(j.Table)
	if err != nil {
		return nil, nil, err
	}

	newRef, oldRef := j.Right, j.Left
	if storage.KeyName(j.Left.Table) == storage.KeyName(j.Table) {
		newRef, oldRef = j.Left, j.Right
	}
	if storage.KeyName(newRef.Table) != storage.KeyName(j.Table) {
		return nil, nil, dberr.Schemaf("ON clause of JOIN %s must reference the joined table", j.Table)
	}

	leftPos, err := resolveRef(cols, oldRef)
	if err != nil {
		return nil, nil, err
	}
	rightPos := right.Schema.ColPos(newRef.Name)
	if rightPos < 0 {
		return nil, nil, dberr.Schemaf("Column '%s' not found in table '%s'", newRef.Name, right.Name)
	}

	joined := make([]record.Row, 0, len(rows))
	for _, lrow := range rows {
		for _, rrow := range right.Rows {
			if lrow[leftPos].Equal(rrow[rightPos]) {
				combined := make(record.Row, 0, len(lrow)+len(rrow))
				combined = append(combined, lrow...)
				combined = append(combined, rrow...)
				joined = append(joined, combined)
			}
		}
	}

	outCols := make([]boundCol, 0, len(cols)+right.Schema.NumCols())
	outCols = append(outCols, cols...)
	for _, c := range right.Schema.Cols {
		outCols = append(outCols, boundCol{table: right.Name, col: c})
	}
	return outCols, joined, nil
}

// resolveRef resolves a column reference against the working column set.
// Unqualified references that match more than one joined table are an
// error; qualified references must name a joined table.
func resolveRef(cols []boundCol, ref parser.ColumnRef) (int, error) {
	found := -1
	for i, bc := range cols {
		if storage.KeyName(bc.col.Name) != storage.KeyName(ref.Name) {
			continue
		}
		if ref.Table != "" && storage.KeyName(bc.table) != storage.KeyName(ref.Table) {
			continue
		}
		if found >= 0 {
			return -1, dberr.Schemaf("ambiguous column reference '%s': qualify it as table.column", ref)
		}
		found = i
	}
	if found < 0 {
		return -1, dberr.Schemaf("Column '%s' not found", ref)
	}
	return found, nil
}

// project builds the result: requested columns in requested order, or all
// columns in join-then-schema order for *. Row order is the underlying
// insertion order; nothing is reordered or deduplicated.
func project(st *parser.SelectStmt, cols []boundCol, rows []record.Row, qualified bool) (*Result, error) {
	res := &Result{}

	var positions []int
	if st.Star {
		positions = make([]int, len(cols))
		for i, bc := range cols {
			positions[i] = i
			if qualified {
				res.Columns = append(res.Columns, bc.table+"."+bc.col.Name)
			} else {
				res.Columns = append(res.Columns, bc.col.Name)
			}
		}
	} else {
		for _, ref := range st.Columns {
			pos, err := resolveRef(cols, ref)
			if err != nil {
				return nil, err
			}
			positions = append(positions, pos)
			res.Columns = append(res.Columns, ref.String())
		}
	}

	res.Rows = make([]record.Row, 0, len(rows))
	for _, row := range rows {
		out := make(record.Row, len(positions))
		for i, pos := range positions {
			out[i] = row[pos]
		}
		res.Rows = append(res.Rows, out)
	}
	res.AffectedRows = int64(len(res.Rows))
	return res, nil
}
