package record

import (
	"fmt"
	"strings"
)

// DataType is the declared type of a column.
type DataType uint8

const (
	TypeInt DataType = iota + 1
	TypeFloat
	TypeBool
	TypeText
)

func (t DataType) String() string {
	switch t {
	case TypeInt:
		return "INT"
	case TypeFloat:
		return "FLOAT"
	case TypeBool:
		return "BOOL"
	case TypeText:
		return "TEXT"
	default:
		return "INVALID"
	}
}

// ParseDataType recognizes a declared type name, case-insensitively.
func ParseDataType(s string) (DataType, bool) {
	switch strings.ToUpper(s) {
	case "INT":
		return TypeInt, true
	case "FLOAT":
		return TypeFloat, true
	case "BOOL":
		return TypeBool, true
	case "TEXT":
		return TypeText, true
	default:
		return 0, false
	}
}

func (t DataType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *DataType) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	dt, ok := ParseDataType(s)
	if !ok {
		return fmt.Errorf("record: unknown data type %q", s)
	}
	*t = dt
	return nil
}

// FKAction is the on-delete behavior of a foreign key.
type FKAction uint8

const (
	Restrict FKAction = iota // default
	Cascade
)

func (a FKAction) String() string {
	if a == Cascade {
		return "CASCADE"
	}
	return "RESTRICT"
}

func (a FKAction) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

func (a *FKAction) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "RESTRICT":
		*a = Restrict
	case "CASCADE":
		*a = Cascade
	default:
		return fmt.Errorf("record: unknown foreign key action %s", data)
	}
	return nil
}

// ForeignKey points a column at another table's column.
type ForeignKey struct {
	Table    string   `json:"table"`
	Column   string   `json:"column"`
	OnDelete FKAction `json:"on_delete"`
}

// Column describes one column of a table, including constraint flags.
// A PRIMARY KEY column is implicitly NOT NULL and UNIQUE.
type Column struct {
	Name       string      `json:"name"`
	Type       DataType    `json:"type"`
	PrimaryKey bool        `json:"primary_key,omitempty"`
	Unique     bool        `json:"unique,omitempty"`
	AutoInc    bool        `json:"auto_increment,omitempty"`
	Ref        *ForeignKey `json:"references,omitempty"`
}

// Indexed reports whether the column carries an automatic index.
func (c Column) Indexed() bool { return c.PrimaryKey || c.Unique }

// Schema is the ordered column list of a table. Order is significant: it is
// the positional order for INSERT ... VALUES and for SELECT *.
type Schema struct {
	Cols []Column `json:"columns"`
}

func (s Schema) NumCols() int { return len(s.Cols) }

// ColPos returns the position of a named column, -1 if absent.
func (s Schema) ColPos(name string) int {
	for i := range s.Cols {
		if strings.EqualFold(s.Cols[i].Name, name) {
			return i
		}
	}
	return -1
}

// PrimaryKeyPos returns the position of the primary key column, -1 if none.
func (s Schema) PrimaryKeyPos() int {
	for i := range s.Cols {
		if s.Cols[i].PrimaryKey {
			return i
		}
	}
	return -1
}

// Validate checks the structural invariants of a schema: at least one
// column, unique column names, at most one primary key, AUTO_INCREMENT only
// on an INT primary key.
func (s Schema) Validate() error {
	if len(s.Cols) == 0 {
		return fmt.Errorf("table must have at least one column")
	}
	seen := make(map[string]bool, len(s.Cols))
	pks := 0
	for _, col := range s.Cols {
		name := strings.ToLower(col.Name)
		if seen[name] {
			return fmt.Errorf("duplicate column name: '%s'", col.Name)
		}
		seen[name] = true
		if col.PrimaryKey {
			pks++
			if pks > 1 {
				return fmt.Errorf("table can have only one primary key")
			}
		}
		if col.AutoInc && (!col.PrimaryKey || col.Type != TypeInt) {
			return fmt.Errorf("AUTO_INCREMENT is only allowed on an INT PRIMARY KEY column ('%s')", col.Name)
		}
	}
	return nil
}
