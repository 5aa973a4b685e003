package storage

import "github.com/mvxt99/minidb/internal/record"

// Index maps a column value's canonical key to the positions of the rows
// holding that value. Maintained for PRIMARY KEY and UNIQUE columns, where
// a key in practice never maps to more than one position (a second row with
// the same value is rejected before insertion). NULL values are not indexed.
type Index struct {
	Column    string           `json:"column"`
	Positions map[string][]int `json:"positions"`
}

func NewIndex(column string) *Index {
	return &Index{Column: column, Positions: make(map[string][]int)}
}

// Add records that the row at pos holds v in the indexed column.
func (ix *Index) Add(v record.Value, pos int) {
	if v.IsNull() {
		return
	}
	k := v.Key()
	ix.Positions[k] = append(ix.Positions[k], pos)
}

// Lookup returns the positions of rows holding v, nil for NULL.
func (ix *Index) Lookup(v record.Value) []int {
	if v.IsNull() {
		return nil
	}
	return ix.Positions[v.Key()]
}

// Contains reports whether any row holds v in the indexed column.
func (ix *Index) Contains(v record.Value) bool {
	return len(ix.Lookup(v)) > 0
}
