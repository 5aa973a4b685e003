// Package parser turns command text into an executable statement AST.
// Parsing never touches table state; a malformed statement fails before
// anything executes.
package parser

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/mvxt99/minidb/internal/dberr"
	"github.com/mvxt99/minidb/internal/record"
)

// Parse parses a single statement. A trailing ';' is accepted and stripped.
func Parse(sql string) (Statement, error) {
	s := strings.TrimSpace(sql)
	s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	if s == "" {
		return nil, dberr.Parsef("empty command")
	}

	up := strings.ToUpper(s)

	switch {
	case strings.HasPrefix(up, "CREATE TABLE"):
		return parseCreateTable(s)
	case strings.HasPrefix(up, "INSERT INTO"):
		return parseInsert(s)
	case strings.HasPrefix(up, "SELECT"):
		return parseSelect(s)
	case strings.HasPrefix(up, "UPDATE"):
		return parseUpdate(s)
	case strings.HasPrefix(up, "DELETE FROM"):
		return parseDelete(s)
	default:
		return nil, dberr.Parsef("unknown command: %q", strings.Fields(s)[0])
	}
}

// parseIdent validates a table/column name: one token, first char letter or
// '_', rest letters/digits/'_'.
func parseIdent(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dberr.Parsef("missing identifier")
	}
	parts := strings.Fields(s)
	if len(parts) != 1 {
		return "", dberr.Parsef("invalid identifier %q", s)
	}
	id := parts[0]
	for i, r := range id {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return "", dberr.Parsef("invalid identifier %q", id)
			}
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return "", dberr.Parsef("invalid identifier %q", id)
		}
	}
	return id, nil
}

// parseColumnRef parses "col" or "table.col".
func parseColumnRef(s string) (ColumnRef, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		tbl, err := parseIdent(s[:i])
		if err != nil {
			return ColumnRef{}, err
		}
		col, err := parseIdent(s[i+1:])
		if err != nil {
			return ColumnRef{}, err
		}
		return ColumnRef{Table: tbl, Name: col}, nil
	}
	col, err := parseIdent(s)
	if err != nil {
		return ColumnRef{}, err
	}
	return ColumnRef{Name: col}, nil
}

func parseCreateTable(sql string) (Statement, error) {
	// "CREATE TABLE users (id INT PRIMARY KEY AUTO_INCREMENT, email TEXT UNIQUE, ...)"
	rest := strings.TrimSpace(sql[len("CREATE TABLE"):])

	open := strings.IndexByte(rest, '(')
	if open < 0 || !strings.HasSuffix(rest, ")") {
		return nil, dberr.Parsef("invalid CREATE TABLE syntax: expected CREATE TABLE name (column definitions)")
	}

	tableName, err := parseIdent(rest[:open])
	if err != nil {
		return nil, dberr.Parsef("invalid CREATE TABLE syntax: %v", err)
	}

	body := strings.TrimSpace(rest[open+1 : len(rest)-1])
	if body == "" {
		return nil, dberr.Parsef("invalid CREATE TABLE syntax: empty column list")
	}

	defs := splitComma(body)
	cols := make([]record.Column, 0, len(defs))
	for _, def := range defs {
		col, err := parseColumnDef(strings.TrimSpace(def))
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}

	return &CreateTableStmt{TableName: tableName, Columns: cols}, nil
}

// parseColumnDef parses one column definition:
//
//	name TYPE [PRIMARY KEY] [AUTO_INCREMENT] [UNIQUE]
//	     [REFERENCES table(col) [ON DELETE CASCADE|RESTRICT]]
func parseColumnDef(def string) (record.Column, error) {
	toks := strings.Fields(def)
	if len(toks) < 2 {
		return record.Column{}, dberr.Parsef("invalid column definition: %q", def)
	}

	name, err := parseIdent(toks[0])
	if err != nil {
		return record.Column{}, dberr.Parsef("invalid column name: %v", err)
	}
	typ, ok := record.ParseDataType(toks[1])
	if !ok {
		return record.Column{}, dberr.Parsef("unsupported data type %q in column '%s'", toks[1], name)
	}

	col := record.Column{Name: name, Type: typ}

	for i := 2; i < len(toks); {
		switch strings.ToUpper(toks[i]) {
		case "PRIMARY":
			if i+1 >= len(toks) || !strings.EqualFold(toks[i+1], "KEY") {
				return record.Column{}, dberr.Parsef("expected KEY after PRIMARY in column '%s'", name)
			}
			col.PrimaryKey = true
			i += 2
		case "AUTO_INCREMENT", "AUTOINCREMENT":
			col.AutoInc = true
			i++
		case "UNIQUE":
			col.Unique = true
			i++
		case "REFERENCES":
			ref, err := parseReferences(strings.Join(toks[i+1:], " "), name)
			if err != nil {
				return record.Column{}, err
			}
			col.Ref = ref
			return col, nil
		default:
			return record.Column{}, dberr.Parsef("unexpected token %q in column '%s'", toks[i], name)
		}
	}
	return col, nil
}

// parseReferences parses "table(col) [ON DELETE CASCADE|RESTRICT]".
func parseReferences(rest, colName string) (*record.ForeignKey, error) {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return nil, dberr.Parsef("REFERENCES in column '%s' is missing a target", colName)
	}

	target := rest
	action := record.Restrict
	up := strings.ToUpper(rest)
	if idx := strings.Index(up, "ON DELETE"); idx >= 0 {
		target = strings.TrimSpace(rest[:idx])
		switch strings.ToUpper(strings.TrimSpace(rest[idx+len("ON DELETE"):])) {
		case "CASCADE":
			action = record.Cascade
		case "RESTRICT":
			action = record.Restrict
		default:
			return nil, dberr.Parsef("ON DELETE in column '%s' must be CASCADE or RESTRICT", colName)
		}
	}

	open := strings.IndexByte(target, '(')
	if open < 0 || !strings.HasSuffix(target, ")") {
		return nil, dberr.Parsef("invalid REFERENCES target %q in column '%s': expected table(column)", target, colName)
	}
	tbl, err := parseIdent(target[:open])
	if err != nil {
		return nil, dberr.Parsef("invalid REFERENCES table in column '%s': %v", colName, err)
	}
	refCol, err := parseIdent(target[open+1 : len(target)-1])
	if err != nil {
		return nil, dberr.Parsef("invalid REFERENCES column in column '%s': %v", colName, err)
	}

	return &record.ForeignKey{Table: tbl, Column: refCol, OnDelete: action}, nil
}

func parseInsert(sql string) (Statement, error) {
	// "INSERT INTO users VALUES (NULL, 'Jane', 'jane@x.com')"
	rest := strings.TrimSpace(sql[len("INSERT INTO"):])

	tablePart, valPart := splitKeyword(rest, "VALUES")
	if strings.TrimSpace(valPart) == "" {
		return nil, dberr.Parsef("invalid INSERT syntax: expected INSERT INTO name VALUES (value, ...)")
	}

	tableName, err := parseIdent(tablePart)
	if err != nil {
		return nil, dberr.Parsef("invalid INSERT syntax: %v", err)
	}

	valPart = strings.TrimSpace(valPart)
	if !strings.HasPrefix(valPart, "(") || !strings.HasSuffix(valPart, ")") {
		return nil, dberr.Parsef("invalid INSERT syntax: VALUES list must be parenthesized")
	}
	valPart = strings.TrimSpace(valPart[1 : len(valPart)-1])
	if valPart == "" {
		return nil, dberr.Parsef("invalid INSERT syntax: empty VALUES list")
	}

	raw := splitComma(valPart)
	values := make([]record.Value, 0, len(raw))
	for _, rv := range raw {
		v, err := parseLiteral(strings.TrimSpace(rv))
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}

	return &InsertStmt{TableName: tableName, Values: values}, nil
}

func parseSelect(sql string) (Statement, error) {
	// "SELECT cols FROM t [JOIN t2 ON a.c = b.c]... [WHERE pred]"
	rest := strings.TrimSpace(sql[len("SELECT"):])

	colsPart, fromPart := splitKeyword(rest, "FROM")
	if strings.TrimSpace(fromPart) == "" {
		return nil, dberr.Parsef("invalid SELECT syntax: missing FROM clause")
	}

	stmt := &SelectStmt{}
	colsPart = strings.TrimSpace(colsPart)
	if colsPart == "*" {
		stmt.Star = true
	} else {
		for _, c := range splitComma(colsPart) {
			ref, err := parseColumnRef(c)
			if err != nil {
				return nil, dberr.Parsef("invalid SELECT column: %v", err)
			}
			stmt.Columns = append(stmt.Columns, ref)
		}
		if len(stmt.Columns) == 0 {
			return nil, dberr.Parsef("invalid SELECT syntax: empty column list")
		}
	}

	fromClause, wherePart := splitKeyword(fromPart, "WHERE")

	joinParts := splitAllKeyword(fromClause, "JOIN")
	tableName, err := parseIdent(joinParts[0])
	if err != nil {
		return nil, dberr.Parsef("invalid SELECT syntax: %v", err)
	}
	stmt.TableName = tableName

	for _, jp := range joinParts[1:] {
		join, err := parseJoin(jp)
		if err != nil {
			return nil, err
		}
		stmt.Joins = append(stmt.Joins, join)
	}

	if strings.TrimSpace(wherePart) != "" {
		pred, err := parsePredicate(wherePart)
		if err != nil {
			return nil, err
		}
		stmt.Where = pred
	}

	return stmt, nil
}

// parseJoin parses "table ON left.col = right.col". Both sides of the ON
// condition must be table-qualified.
func parseJoin(s string) (JoinClause, error) {
	tablePart, onPart := splitKeyword(s, "ON")
	if strings.TrimSpace(onPart) == "" {
		return JoinClause{}, dberr.Parsef("invalid JOIN syntax: missing ON clause in %q", strings.TrimSpace(s))
	}

	table, err := parseIdent(tablePart)
	if err != nil {
		return JoinClause{}, dberr.Parsef("invalid JOIN syntax: %v", err)
	}

	kv := strings.SplitN(onPart, "=", 2)
	if len(kv) != 2 {
		return JoinClause{}, dberr.Parsef("invalid ON clause %q: expected table.column = table.column", strings.TrimSpace(onPart))
	}

	left, err := parseColumnRef(kv[0])
	if err != nil {
		return JoinClause{}, err
	}
	right, err := parseColumnRef(kv[1])
	if err != nil {
		return JoinClause{}, err
	}
	if left.Table == "" || right.Table == "" {
		return JoinClause{}, dberr.Parsef("ON clause columns must be table-qualified: %q", strings.TrimSpace(onPart))
	}

	return JoinClause{Table: table, Left: left, Right: right}, nil
}

func parseUpdate(sql string) (Statement, error) {
	// "UPDATE users SET email='b@x.com', age=31 [WHERE id=1]"
	rest := strings.TrimSpace(sql[len("UPDATE"):])

	tablePart, afterSet := splitKeyword(rest, "SET")
	if strings.TrimSpace(afterSet) == "" {
		return nil, dberr.Parsef("invalid UPDATE syntax: missing SET clause")
	}

	tableName, err := parseIdent(tablePart)
	if err != nil {
		return nil, dberr.Parsef("invalid UPDATE syntax: %v", err)
	}

	setPart, wherePart := splitKeyword(afterSet, "WHERE")

	assignStrs := splitComma(setPart)
	assigns := make([]Assignment, 0, len(assignStrs))
	for _, a := range assignStrs {
		kv := strings.SplitN(a, "=", 2)
		if len(kv) != 2 {
			return nil, dberr.Parsef("invalid assignment %q: expected column=value", strings.TrimSpace(a))
		}
		col, err := parseIdent(kv[0])
		if err != nil {
			return nil, dberr.Parsef("invalid assignment column: %v", err)
		}
		v, err := parseLiteral(strings.TrimSpace(kv[1]))
		if err != nil {
			return nil, err
		}
		assigns = append(assigns, Assignment{Column: col, Value: v})
	}
	if len(assigns) == 0 {
		return nil, dberr.Parsef("UPDATE must set at least one column")
	}

	stmt := &UpdateStmt{TableName: tableName, Assignments: assigns}
	if strings.TrimSpace(wherePart) != "" {
		pred, err := parsePredicate(wherePart)
		if err != nil {
			return nil, err
		}
		stmt.Where = pred
	}
	return stmt, nil
}

func parseDelete(sql string) (Statement, error) {
	// "DELETE FROM users [WHERE id=1]"
	rest := strings.TrimSpace(sql[len("DELETE FROM"):])

	tablePart, wherePart := splitKeyword(rest, "WHERE")
	tableName, err := parseIdent(tablePart)
	if err != nil {
		return nil, dberr.Parsef("invalid DELETE syntax: %v", err)
	}

	stmt := &DeleteStmt{TableName: tableName}
	if strings.TrimSpace(wherePart) != "" {
		pred, err := parsePredicate(wherePart)
		if err != nil {
			return nil, err
		}
		stmt.Where = pred
	}
	return stmt, nil
}

// parsePredicate parses "col = literal" or "col LIKE 'pattern'". Range
// operators are rejected explicitly rather than mis-parsed.
func parsePredicate(s string) (*Predicate, error) {
	s = strings.TrimSpace(s)

	if left, right := splitKeyword(s, "LIKE"); strings.TrimSpace(right) != "" {
		col, err := parseColumnRef(left)
		if err != nil {
			return nil, dberr.Parsef("invalid WHERE column: %v", err)
		}
		pat, err := parseLiteral(strings.TrimSpace(right))
		if err != nil {
			return nil, err
		}
		if pat.Kind != record.KindText {
			return nil, dberr.Parsef("LIKE pattern must be a quoted string")
		}
		return &Predicate{Column: col, Op: OpLike, Value: pat}, nil
	}

	if op := findUnsupportedOp(s); op != "" {
		return nil, dberr.Parsef("operator %q is not supported in WHERE: use column=value or column LIKE 'pattern'", op)
	}

	kv := strings.SplitN(s, "=", 2)
	if len(kv) != 2 {
		return nil, dberr.Parsef("unsupported WHERE clause %q: use column=value or column LIKE 'pattern'", s)
	}
	col, err := parseColumnRef(kv[0])
	if err != nil {
		return nil, dberr.Parsef("invalid WHERE column: %v", err)
	}
	v, err := parseLiteral(strings.TrimSpace(kv[1]))
	if err != nil {
		return nil, err
	}
	return &Predicate{Column: col, Op: OpEq, Value: v}, nil
}

// findUnsupportedOp scans outside quotes for a range/inequality operator.
func findUnsupportedOp(s string) string {
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\'' {
			inQuote = !inQuote
			continue
		}
		if inQuote {
			continue
		}
		switch c {
		case '<', '>':
			if i+1 < len(s) && s[i+1] == '=' {
				return s[i : i+2]
			}
			return string(c)
		case '!':
			if i+1 < len(s) && s[i+1] == '=' {
				return "!="
			}
		}
	}
	return ""
}

// parseLiteral parses NULL, true/false, a single-quoted string, an INT (no
// decimal point) or a FLOAT (decimal point present).
func parseLiteral(rv string) (record.Value, error) {
	if rv == "" {
		return record.Value{}, dberr.Parsef("empty literal")
	}

	switch strings.ToUpper(rv) {
	case "NULL":
		return record.Null(), nil
	case "TRUE":
		return record.Bool(true), nil
	case "FALSE":
		return record.Bool(false), nil
	}

	if len(rv) >= 2 && rv[0] == '\'' && rv[len(rv)-1] == '\'' {
		return record.Text(rv[1 : len(rv)-1]), nil
	}

	if i, err := strconv.ParseInt(rv, 10, 64); err == nil {
		return record.Int(i), nil
	}
	if f, err := strconv.ParseFloat(rv, 64); err == nil {
		return record.Float(f), nil
	}

	return record.Value{}, dberr.Parsef("unsupported literal: %q", rv)
}

// splitKeyword splits "X <keyword> Y" case-insensitively, requiring the
// keyword to stand alone between spaces and outside quotes. If the keyword
// is absent the whole input is returned as X.
func splitKeyword(s, keyword string) (string, string) {
	up := strings.ToUpper(s)
	k := " " + strings.ToUpper(keyword) + " "
	from := 0
	for {
		idx := strings.Index(up[from:], k)
		if idx < 0 {
			return s, ""
		}
		idx += from
		if !insideQuotes(s, idx) {
			return strings.TrimSpace(s[:idx]), strings.TrimSpace(s[idx+len(k):])
		}
		from = idx + 1
	}
}

// splitAllKeyword splits on every standalone occurrence of the keyword.
func splitAllKeyword(s, keyword string) []string {
	var parts []string
	rest := s
	for {
		left, right := splitKeyword(rest, keyword)
		parts = append(parts, left)
		if right == "" {
			return parts
		}
		rest = right
	}
}

func insideQuotes(s string, idx int) bool {
	inQuote := false
	for i := 0; i < idx && i < len(s); i++ {
		if s[i] == '\'' {
			inQuote = !inQuote
		}
	}
	return inQuote
}

// splitComma splits a comma-separated list, ignoring commas inside quotes
// and inside parentheses (column definitions carry REFERENCES table(col)).
func splitComma(s string) []string {
	parts := []string{}
	cur := strings.Builder{}
	inQuote := false
	depth := 0
	for _, r := range s {
		switch r {
		case '\'':
			inQuote = !inQuote
			cur.WriteRune(r)
		case '(':
			if !inQuote {
				depth++
			}
			cur.WriteRune(r)
		case ')':
			if !inQuote {
				depth--
			}
			cur.WriteRune(r)
		case ',':
			if inQuote || depth > 0 {
				cur.WriteRune(r)
			} else {
				parts = append(parts, strings.TrimSpace(cur.String()))
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if strings.TrimSpace(cur.String()) != "" {
		parts = append(parts, strings.TrimSpace(cur.String()))
	}
	return parts
}
