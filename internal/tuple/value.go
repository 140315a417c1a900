package tuple

import (
	"encoding/binary"
	"fmt"
)

// Tuple is an opaque row buffer whose layout is fully determined by a
// Schema: fixed-width columns at their schema-declared offsets, Varchar
// columns storing a (offset, length) pointer into the tail.
type Tuple []byte

// Value is a typed scalar decoded out of a tuple.
type Value struct {
	Ty      Type
	tinyInt int8
	boolean bool
	i32     int32
	i64     int64
	varchar string
}

func TinyIntValue(v int8) Value  { return Value{Ty: TinyInt, tinyInt: v} }
func BoolValue(v bool) Value     { return Value{Ty: Bool, boolean: v} }
func IntValue(v int32) Value     { return Value{Ty: Int, i32: v} }
func BigIntValue(v int64) Value  { return Value{Ty: BigInt, i64: v} }
func VarcharValue(v string) Value { return Value{Ty: Varchar, varchar: v} }

func (v Value) TinyInt() int8   { return v.tinyInt }
func (v Value) Bool() bool      { return v.boolean }
func (v Value) Int() int32      { return v.i32 }
func (v Value) BigInt() int64   { return v.i64 }
func (v Value) Varchar() string { return v.varchar }

// Truthy reports whether v counts as true for Filter's predicate semantics:
// TinyInt 0, Bool false, Int 0, BigInt 0, and empty Varchar are falsy.
func (v Value) Truthy() bool {
	switch v.Ty {
	case TinyInt:
		return v.tinyInt != 0
	case Bool:
		return v.boolean
	case Int:
		return v.i32 != 0
	case BigInt:
		return v.i64 != 0
	case Varchar:
		return v.varchar != ""
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.Ty {
	case TinyInt:
		return fmt.Sprintf("%d", v.tinyInt)
	case Bool:
		return fmt.Sprintf("%t", v.boolean)
	case Int:
		return fmt.Sprintf("%d", v.i32)
	case BigInt:
		return fmt.Sprintf("%d", v.i64)
	case Varchar:
		return v.varchar
	default:
		return "?"
	}
}

// Compare orders two values of the same type. Comparing values of differing
// types panics: callers (Comparand, the evaluator) only ever compare values
// decoded from the same column position of compatible schemas.
func (v Value) Compare(other Value) int {
	if v.Ty != other.Ty {
		panic(fmt.Sprintf("tuple: compare mismatched types %v vs %v", v.Ty, other.Ty))
	}
	switch v.Ty {
	case TinyInt:
		return cmpInt(int64(v.tinyInt), int64(other.tinyInt))
	case Bool:
		return cmpInt(boolToInt(v.boolean), boolToInt(other.boolean))
	case Int:
		return cmpInt(int64(v.i32), int64(other.i32))
	case BigInt:
		return cmpInt(v.i64, other.i64)
	case Varchar:
		switch {
		case v.varchar < other.varchar:
			return -1
		case v.varchar > other.varchar:
			return 1
		default:
			return 0
		}
	default:
		panic(fmt.Sprintf("tuple: compare unknown type %v", v.Ty))
	}
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// Increment returns the "next" value of the same type, used to derive a
// B+-tree leaf-split separator (last_key.Increment()) from the last key of
// the lower half. Incrementing a Varchar value increments its first byte,
// matching the reference design.
func (v Value) Increment() Value {
	switch v.Ty {
	case TinyInt:
		return TinyIntValue(v.tinyInt + 1)
	case Bool:
		return BoolValue(true)
	case Int:
		return IntValue(v.i32 + 1)
	case BigInt:
		return BigIntValue(v.i64 + 1)
	case Varchar:
		if v.varchar == "" {
			return VarcharValue(v.varchar)
		}
		b := []byte(v.varchar)
		b[0]++
		return VarcharValue(string(b))
	default:
		panic(fmt.Sprintf("tuple: increment unknown type %v", v.Ty))
	}
}

// ValueFrom decodes the value of column col out of t.
func ValueFrom(t Tuple, col Column) Value {
	off := col.Offset
	switch col.Ty {
	case TinyInt:
		return TinyIntValue(int8(t[off]))
	case Bool:
		return BoolValue(t[off] != 0)
	case Int:
		return IntValue(int32(binary.BigEndian.Uint32(t[off : off+4])))
	case BigInt:
		return BigIntValue(int64(binary.BigEndian.Uint64(t[off : off+8])))
	case Varchar:
		vOff := binary.BigEndian.Uint16(t[off : off+2])
		vLen := binary.BigEndian.Uint16(t[off+2 : off+4])
		if int(vOff)+int(vLen) > len(t) {
			panic("tuple: varchar pointer out of bounds")
		}
		return VarcharValue(string(t[vOff : vOff+vLen]))
	default:
		panic(fmt.Sprintf("tuple: decode unknown type %v", col.Ty))
	}
}

// Comparand implements total ordering over tuples of a given schema: it
// compares Value-decoded columns left to right, returning at the first
// non-equal column. Used as the B+-tree key comparator for composite-tuple
// keys.
type Comparand struct {
	Schema *Schema
	Tuple  Tuple
}

// Compare orders two tuples column by column, returning -1, 0 or 1.
// btree.TupleComparand wraps it to implement btree.Key for tuple-keyed
// indexes.
func (c Comparand) Compare(other Comparand) int {
	for i, col := range c.Schema.Columns {
		a := ValueFrom(c.Tuple, col)
		b := ValueFrom(other.Tuple, other.Schema.Columns[i])
		if d := a.Compare(b); d != 0 {
			return d
		}
	}
	return 0
}
