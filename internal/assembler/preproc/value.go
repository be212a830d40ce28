package preproc

import (
	"fmt"

	"github.com/tessera-cpu/tasm/internal/assembler/fixed"
)

type ValueKind int

const (
	Void ValueKind = iota
	Integer
	Number
	Boolean
	String
)

// Value is the tagged runtime value of the preprocessor expression language.
// Exactly one variant is live; the zero Value is void.
type Value struct {
	kind ValueKind
	i    int64
	n    fixed.Number
	b    bool
	s    string
}

func VoidValue() Value                 { return Value{} }
func IntValue(i int64) Value           { return Value{kind: Integer, i: i} }
func NumberValue(n fixed.Number) Value { return Value{kind: Number, n: n} }
func BoolValue(b bool) Value           { return Value{kind: Boolean, b: b} }
func StringValue(s string) Value       { return Value{kind: String, s: s} }

func (v Value) Kind() ValueKind      { return v.kind }
func (v Value) Int() int64           { return v.i }
func (v Value) Number() fixed.Number { return v.n }
func (v Value) Bool() bool           { return v.b }
func (v Value) Str() string          { return v.s }

// Truthy applies the per-type rule conditionals use: void is always false,
// an integer is false only at zero, a number is false only when its raw bit
// pattern is zero, a string is false only when empty.
func (v Value) Truthy() bool {
	switch v.kind {
	case Void:
		return false
	case Integer:
		return v.i != 0
	case Number:
		return v.n != 0
	case Boolean:
		return v.b
	case String:
		return v.s != ""
	}
	return false
}

// TypeName returns the name typeof() reports.
func (v Value) TypeName() string {
	switch v.kind {
	case Integer:
		return "integer"
	case Number:
		return "fixed-point"
	case Boolean:
		return "boolean"
	case String:
		return "string"
	}
	return "void"
}

func (v Value) String() string {
	switch v.kind {
	case Integer:
		return fmt.Sprintf("%d", v.i)
	case Number:
		return v.n.String()
	case Boolean:
		return fmt.Sprintf("%t", v.b)
	case String:
		return v.s
	}
	return "<void>"
}
