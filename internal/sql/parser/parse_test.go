package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvxt99/minidb/internal/dberr"
	"github.com/mvxt99/minidb/internal/record"
)

func TestParse_Empty(t *testing.T) {
	_, err := Parse("   ;")
	require.Error(t, err)
	assert.Equal(t, dberr.KindParse, dberr.KindOf(err))
}

func TestParse_UnknownCommand(t *testing.T) {
	_, err := Parse("DROP TABLE users;")
	require.Error(t, err)
	assert.Equal(t, dberr.KindParse, dberr.KindOf(err))
}

func TestParse_CreateTable(t *testing.T) {
	stmt, err := Parse("CREATE TABLE users (id INT PRIMARY KEY AUTO_INCREMENT, name TEXT, email TEXT UNIQUE, age INT);")
	require.NoError(t, err)

	s, ok := stmt.(*CreateTableStmt)
	require.True(t, ok, "want *CreateTableStmt, got %T", stmt)
	assert.Equal(t, "users", s.TableName)
	require.Len(t, s.Columns, 4)

	assert.Equal(t, "id", s.Columns[0].Name)
	assert.Equal(t, record.TypeInt, s.Columns[0].Type)
	assert.True(t, s.Columns[0].PrimaryKey)
	assert.True(t, s.Columns[0].AutoInc)

	assert.Equal(t, record.TypeText, s.Columns[1].Type)
	assert.False(t, s.Columns[1].Unique)
	assert.True(t, s.Columns[2].Unique)
}

func TestParse_CreateTable_References(t *testing.T) {
	stmt, err := Parse("CREATE TABLE orders (id INT PRIMARY KEY, user_id INT REFERENCES users(id) ON DELETE CASCADE);")
	require.NoError(t, err)

	s := stmt.(*CreateTableStmt)
	ref := s.Columns[1].Ref
	require.NotNil(t, ref)
	assert.Equal(t, "users", ref.Table)
	assert.Equal(t, "id", ref.Column)
	assert.Equal(t, record.Cascade, ref.OnDelete)
}

func TestParse_CreateTable_ReferencesDefaultsToRestrict(t *testing.T) {
	stmt, err := Parse("CREATE TABLE orders (id INT PRIMARY KEY, user_id INT REFERENCES users(id));")
	require.NoError(t, err)

	ref := stmt.(*CreateTableStmt).Columns[1].Ref
	require.NotNil(t, ref)
	assert.Equal(t, record.Restrict, ref.OnDelete)
}

func TestParse_CreateTable_BadType(t *testing.T) {
	_, err := Parse("CREATE TABLE users (id SERIAL PRIMARY KEY);")
	require.Error(t, err)
	assert.Equal(t, dberr.KindParse, dberr.KindOf(err))
}

func TestParse_CreateTable_BadOnDelete(t *testing.T) {
	_, err := Parse("CREATE TABLE orders (user_id INT REFERENCES users(id) ON DELETE IGNORE);")
	require.Error(t, err)
}

func TestParse_Insert(t *testing.T) {
	stmt, err := Parse("INSERT INTO users VALUES (NULL, 'Jane, Smith', 'jane@x.com', 25);")
	require.NoError(t, err)

	s, ok := stmt.(*InsertStmt)
	require.True(t, ok, "want *InsertStmt, got %T", stmt)
	assert.Equal(t, "users", s.TableName)
	require.Len(t, s.Values, 4)

	assert.True(t, s.Values[0].IsNull())
	// the comma inside the quoted string must not split the list
	assert.Equal(t, record.Text("Jane, Smith"), s.Values[1])
	assert.Equal(t, record.Int(25), s.Values[3])
}

func TestParse_Insert_Literals(t *testing.T) {
	stmt, err := Parse("INSERT INTO t VALUES (3.5, true, FALSE, -7);")
	require.NoError(t, err)

	s := stmt.(*InsertStmt)
	assert.Equal(t, record.Float(3.5), s.Values[0])
	assert.Equal(t, record.Bool(true), s.Values[1])
	assert.Equal(t, record.Bool(false), s.Values[2])
	assert.Equal(t, record.Int(-7), s.Values[3])
}

func TestParse_Insert_MissingParens(t *testing.T) {
	_, err := Parse("INSERT INTO users VALUES NULL, 'Jane';")
	require.Error(t, err)
}

func TestParse_SelectStar(t *testing.T) {
	stmt, err := Parse("SELECT * FROM users;")
	require.NoError(t, err)

	s, ok := stmt.(*SelectStmt)
	require.True(t, ok, "want *SelectStmt, got %T", stmt)
	assert.True(t, s.Star)
	assert.Equal(t, "users", s.TableName)
	assert.Nil(t, s.Where)
}

func TestParse_SelectColumnsAndWhere(t *testing.T) {
	stmt, err := Parse("SELECT name, email FROM users WHERE id = 3;")
	require.NoError(t, err)

	s := stmt.(*SelectStmt)
	assert.False(t, s.Star)
	require.Len(t, s.Columns, 2)
	assert.Equal(t, "name", s.Columns[0].Name)

	require.NotNil(t, s.Where)
	assert.Equal(t, OpEq, s.Where.Op)
	assert.Equal(t, record.Int(3), s.Where.Value)
}

func TestParse_SelectJoin(t *testing.T) {
	stmt, err := Parse("SELECT users.name, orders.total FROM orders JOIN users ON orders.user_id = users.id;")
	require.NoError(t, err)

	s := stmt.(*SelectStmt)
	assert.Equal(t, "orders", s.TableName)
	require.Len(t, s.Joins, 1)
	assert.Equal(t, "users", s.Joins[0].Table)
	assert.Equal(t, ColumnRef{Table: "orders", Name: "user_id"}, s.Joins[0].Left)
	assert.Equal(t, ColumnRef{Table: "users", Name: "id"}, s.Joins[0].Right)
}

func TestParse_SelectMultiJoin(t *testing.T) {
	stmt, err := Parse("SELECT * FROM order_items JOIN orders ON order_items.order_id = orders.id JOIN users ON orders.user_id = users.id WHERE users.name = 'John Doe';")
	require.NoError(t, err)

	s := stmt.(*SelectStmt)
	require.Len(t, s.Joins, 2)
	assert.Equal(t, "orders", s.Joins[0].Table)
	assert.Equal(t, "users", s.Joins[1].Table)
	require.NotNil(t, s.Where)
	assert.Equal(t, ColumnRef{Table: "users", Name: "name"}, s.Where.Column)
}

func TestParse_JoinRequiresQualifiedOn(t *testing.T) {
	_, err := Parse("SELECT * FROM orders JOIN users ON user_id = id;")
	require.Error(t, err)
}

func TestParse_SelectLike(t *testing.T) {
	stmt, err := Parse("SELECT * FROM users WHERE name LIKE 'John%';")
	require.NoError(t, err)

	s := stmt.(*SelectStmt)
	require.NotNil(t, s.Where)
	assert.Equal(t, OpLike, s.Where.Op)
	assert.Equal(t, record.Text("John%"), s.Where.Value)
}

func TestParse_LikeRequiresStringPattern(t *testing.T) {
	_, err := Parse("SELECT * FROM users WHERE age LIKE 30;")
	require.Error(t, err)
}

func TestParse_RangeOperatorsRejected(t *testing.T) {
	for _, q := range []string{
		"SELECT * FROM users WHERE age > 30;",
		"SELECT * FROM users WHERE age < 30;",
		"SELECT * FROM users WHERE age >= 30;",
		"SELECT * FROM users WHERE age <= 30;",
		"SELECT * FROM users WHERE age != 30;",
	} {
		_, err := Parse(q)
		require.Error(t, err, q)
		assert.Equal(t, dberr.KindParse, dberr.KindOf(err), q)
	}
}

func TestParse_OperatorInsideQuotesIsFine(t *testing.T) {
	stmt, err := Parse("SELECT * FROM notes WHERE body = 'a < b';")
	require.NoError(t, err)
	assert.Equal(t, record.Text("a < b"), stmt.(*SelectStmt).Where.Value)
}

func TestParse_KeywordInsideQuotes(t *testing.T) {
	stmt, err := Parse("SELECT * FROM notes WHERE body = 'pick from the list where possible';")
	require.NoError(t, err)

	s := stmt.(*SelectStmt)
	assert.Equal(t, "notes", s.TableName)
	assert.Equal(t, record.Text("pick from the list where possible"), s.Where.Value)
}

func TestParse_Update(t *testing.T) {
	stmt, err := Parse("UPDATE users SET email = 'new@x.com', age = 31 WHERE id = 1;")
	require.NoError(t, err)

	s, ok := stmt.(*UpdateStmt)
	require.True(t, ok, "want *UpdateStmt, got %T", stmt)
	assert.Equal(t, "users", s.TableName)
	require.Len(t, s.Assignments, 2)
	assert.Equal(t, "email", s.Assignments[0].Column)
	assert.Equal(t, record.Text("new@x.com"), s.Assignments[0].Value)
	assert.Equal(t, record.Int(31), s.Assignments[1].Value)
	require.NotNil(t, s.Where)
}

func TestParse_UpdateWithoutWhere(t *testing.T) {
	stmt, err := Parse("UPDATE users SET age = 40;")
	require.NoError(t, err)
	assert.Nil(t, stmt.(*UpdateStmt).Where)
}

func TestParse_UpdateNoAssignments(t *testing.T) {
	_, err := Parse("UPDATE users SET WHERE id = 1;")
	require.Error(t, err)
}

func TestParse_Delete(t *testing.T) {
	stmt, err := Parse("DELETE FROM users WHERE id = 2;")
	require.NoError(t, err)

	s, ok := stmt.(*DeleteStmt)
	require.True(t, ok, "want *DeleteStmt, got %T", stmt)
	assert.Equal(t, "users", s.TableName)
	require.NotNil(t, s.Where)
}

func TestParse_DeleteWithoutWhere(t *testing.T) {
	stmt, err := Parse("DELETE FROM users;")
	require.NoError(t, err)
	assert.Nil(t, stmt.(*DeleteStmt).Where)
}

func TestParseIdent_Invalid(t *testing.T) {
	for _, id := range []string{"", "1abc", "a b", "na-me"} {
		_, err := parseIdent(id)
		require.Error(t, err, "ident %q", id)
	}
}

func TestSplitComma_NestedParens(t *testing.T) {
	parts := splitComma("id INT PRIMARY KEY, user_id INT REFERENCES users(id), note TEXT")
	require.Len(t, parts, 3)
	assert.Equal(t, "user_id INT REFERENCES users(id)", parts[1])
}
