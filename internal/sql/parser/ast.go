package parser

import "github.com/mvxt99/minidb/internal/record"

// Statement is the root interface for all parsed statements.
type Statement interface {
	stmtNode()
}

// ColumnRef names a column, optionally qualified by table. Qualification is
// required to resolve ambiguity across joined tables.
type ColumnRef struct {
	Table string // empty when unqualified
	Name  string
}

func (r ColumnRef) String() string {
	if r.Table == "" {
		return r.Name
	}
	return r.Table + "." + r.Name
}

// ----- CREATE TABLE -----

type CreateTableStmt struct {
	TableName string
	Columns   []record.Column
}

func (*CreateTableStmt) stmtNode() {}

// ----- INSERT -----

type InsertStmt struct {
	TableName string
	Values    []record.Value // positional, aligned to schema column order
}

func (*InsertStmt) stmtNode() {}

// ----- SELECT -----

// JoinClause is one inner equi-join: JOIN Table ON Left = Right.
type JoinClause struct {
	Table string
	Left  ColumnRef
	Right ColumnRef
}

type SelectStmt struct {
	TableName string
	Star      bool
	Columns   []ColumnRef // empty when Star
	Joins     []JoinClause
	Where     *Predicate
}

func (*SelectStmt) stmtNode() {}

// ----- UPDATE -----

type Assignment struct {
	Column string
	Value  record.Value
}

type UpdateStmt struct {
	TableName   string
	Assignments []Assignment
	Where       *Predicate
}

func (*UpdateStmt) stmtNode() {}

// ----- DELETE -----

type DeleteStmt struct {
	TableName string
	Where     *Predicate
}

func (*DeleteStmt) stmtNode() {}

// ----- WHERE -----

type PredOp uint8

const (
	OpEq PredOp = iota + 1
	OpLike
)

// Predicate is the WHERE condition: equality or LIKE. These are the only
// supported operators.
type Predicate struct {
	Column ColumnRef
	Op     PredOp
	Value  record.Value
}
