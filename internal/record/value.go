package record

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind discriminates the closed set of runtime value shapes.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindBool
	KindText
)

// Value is one cell of a row: a tagged scalar. Only the field matching
// Kind is meaningful; the rest stay at their zero values.
type Value struct {
	Kind Kind

	I64 int64
	F64 float64
	B   bool
	S   string
}

func Null() Value           { return Value{Kind: KindNull} }
func Int(i int64) Value     { return Value{Kind: KindInt, I64: i} }
func Float(f float64) Value { return Value{Kind: KindFloat, F64: f} }
func Bool(b bool) Value     { return Value{Kind: KindBool, B: b} }
func Text(s string) Value   { return Value{Kind: KindText, S: s} }

func (v Value) IsNull() bool { return v.Kind == KindNull }

// Matches reports whether the value's runtime shape agrees with a declared
// column type. NULL matches nothing here; nullability is checked separately.
func (v Value) Matches(t DataType) bool {
	switch v.Kind {
	case KindInt:
		return t == TypeInt
	case KindFloat:
		return t == TypeFloat
	case KindBool:
		return t == TypeBool
	case KindText:
		return t == TypeText
	default:
		return false
	}
}

// Coerce adapts a value to a declared column type where that is lossless:
// an INT literal is accepted into a FLOAT column. NULL passes through.
// The second result is false when the value cannot live in the column.
func (v Value) Coerce(t DataType) (Value, bool) {
	if v.IsNull() {
		return v, true
	}
	if v.Kind == KindInt && t == TypeFloat {
		return Float(float64(v.I64)), true
	}
	if v.Matches(t) {
		return v, true
	}
	return Value{}, false
}

// Equal is the WHERE/JOIN equality: type-aware, TEXT compared
// case-insensitively, NULL equal to nothing (including NULL).
func (v Value) Equal(o Value) bool {
	if v.IsNull() || o.IsNull() {
		return false
	}
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindInt:
		return v.I64 == o.I64
	case KindFloat:
		return v.F64 == o.F64
	case KindBool:
		return v.B == o.B
	case KindText:
		return strings.EqualFold(v.S, o.S)
	default:
		return false
	}
}

// Key is the canonical index key. It must agree with Equal: two values are
// Equal iff their keys collide, so TEXT is lower-cased. NULL has no key and
// must never be indexed.
func (v Value) Key() string {
	switch v.Kind {
	case KindInt:
		return "i:" + strconv.FormatInt(v.I64, 10)
	case KindFloat:
		return "f:" + strconv.FormatFloat(v.F64, 'g', -1, 64)
	case KindBool:
		return "b:" + strconv.FormatBool(v.B)
	case KindText:
		return "t:" + strings.ToLower(v.S)
	default:
		return ""
	}
}

// String renders the value the way the shell prints it.
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.I64, 10)
	case KindFloat:
		return strconv.FormatFloat(v.F64, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.B)
	case KindText:
		return v.S
	default:
		return "NULL"
	}
}

// Native unwraps the value for JSON serialization at the transport layer.
func (v Value) Native() any {
	switch v.Kind {
	case KindInt:
		return v.I64
	case KindFloat:
		return v.F64
	case KindBool:
		return v.B
	case KindText:
		return v.S
	default:
		return nil
	}
}

// jsonValue is the persisted-file shape. The explicit type tag keeps the
// INT/FLOAT distinction across a round trip (plain JSON numbers would not).
type jsonValue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	jv := jsonValue{}
	switch v.Kind {
	case KindNull:
		jv.Type = "NULL"
	case KindInt:
		jv.Type = "INT"
		jv.Value = json.RawMessage(strconv.FormatInt(v.I64, 10))
	case KindFloat:
		jv.Type = "FLOAT"
		raw, err := json.Marshal(v.F64)
		if err != nil {
			return nil, err
		}
		jv.Value = raw
	case KindBool:
		jv.Type = "BOOL"
		jv.Value = json.RawMessage(strconv.FormatBool(v.B))
	case KindText:
		jv.Type = "TEXT"
		raw, err := json.Marshal(v.S)
		if err != nil {
			return nil, err
		}
		jv.Value = raw
	default:
		return nil, fmt.Errorf("record: cannot marshal value kind %d", v.Kind)
	}
	return json.Marshal(jv)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var jv jsonValue
	if err := json.Unmarshal(data, &jv); err != nil {
		return err
	}
	switch jv.Type {
	case "NULL":
		*v = Null()
	case "INT":
		i, err := strconv.ParseInt(string(jv.Value), 10, 64)
		if err != nil {
			return fmt.Errorf("record: bad INT value %q: %w", jv.Value, err)
		}
		*v = Int(i)
	case "FLOAT":
		var f float64
		if err := json.Unmarshal(jv.Value, &f); err != nil {
			return fmt.Errorf("record: bad FLOAT value %q: %w", jv.Value, err)
		}
		*v = Float(f)
	case "BOOL":
		var b bool
		if err := json.Unmarshal(jv.Value, &b); err != nil {
			return fmt.Errorf("record: bad BOOL value %q: %w", jv.Value, err)
		}
		*v = Bool(b)
	case "TEXT":
		var s string
		if err := json.Unmarshal(jv.Value, &s); err != nil {
			return fmt.Errorf("record: bad TEXT value %q: %w", jv.Value, err)
		}
		*v = Text(s)
	default:
		return fmt.Errorf("record: unknown value type %q", jv.Type)
	}
	return nil
}

// Row is one record in a table, positionally aligned with the schema.
type Row []Value
