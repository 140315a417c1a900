// Package tuple implements row encoding and decoding: fixed-width columns
// at fixed offsets, variable-width (Varchar) columns stored as a 4-byte
// (offset, length) pointer into a variable-length tail region.
package tuple

import "fmt"

// Type is a column's storage type.
type Type uint8

const (
	TinyInt Type = iota
	Bool
	Int
	BigInt
	Varchar
)

// Size returns the number of bytes this type occupies in a tuple's fixed
// region. For Varchar this is the size of the (offset, length) pointer, not
// the variable payload.
func (t Type) Size() int {
	switch t {
	case TinyInt, Bool:
		return 1
	case Int:
		return 4
	case BigInt:
		return 8
	case Varchar:
		return 4
	default:
		panic(fmt.Sprintf("tuple: unknown type %d", t))
	}
}

func (t Type) String() string {
	switch t {
	case TinyInt:
		return "TINYINT"
	case Bool:
		return "BOOL"
	case Int:
		return "INT"
	case BigInt:
		return "BIGINT"
	case Varchar:
		return "VARCHAR"
	default:
		return "UNKNOWN"
	}
}

// Column is one named, typed, positioned field of a Schema.
type Column struct {
	Name   string
	Ty     Type
	Offset int
	// Table optionally qualifies this column's source table, e.g. for
	// resolving "t1.c1" vs "t2.c1" after a join.
	Table string
}

// Schema is an ordered list of columns plus the resulting fixed-region
// tuple size.
type Schema struct {
	Columns   []Column
	TupleSize int
}

// New builds a schema assigning sequential offsets (a prefix sum of column
// sizes) starting at 0.
func New(cols []Column) *Schema {
	out := make([]Column, len(cols))
	offset := 0
	for i, c := range cols {
		c.Offset = offset
		out[i] = c
		offset += c.Ty.Size()
	}
	return &Schema{Columns: out, TupleSize: offset}
}

// Len returns the number of columns.
func (s *Schema) Len() int { return len(s.Columns) }

// FindColumnByName returns the first column named name, its index, and
// whether it was found.
func (s *Schema) FindColumnByName(name string) (Column, int, bool) {
	for i, c := range s.Columns {
		if c.Name == name {
			return c, i, true
		}
	}
	return Column{}, -1, false
}

// FindColumnByNameAndTable additionally requires the column's table
// qualifier to match table.
func (s *Schema) FindColumnByNameAndTable(table, name string) (Column, int, bool) {
	for i, c := range s.Columns {
		if c.Name == name && c.Table == table {
			return c, i, true
		}
	}
	return Column{}, -1, false
}

// Filter returns a new schema containing only the named columns, in the
// order named, preserving each column's original offset (it is a
// subsequence of s.Columns, not a repacked layout -- call Compact if a
// packed layout is required).
func (s *Schema) Filter(names []string) *Schema {
	cols := make([]Column, 0, len(names))
	for _, n := range names {
		if c, _, ok := s.FindColumnByName(n); ok {
			cols = append(cols, c)
		}
	}
	return &Schema{Columns: cols, TupleSize: s.TupleSize}
}

// Compact returns a new schema with the same columns but offsets recomputed
// as a prefix sum of column sizes, starting at 0.
func (s *Schema) Compact() *Schema {
	out := make([]Column, len(s.Columns))
	offset := 0
	for i, c := range s.Columns {
		c.Offset = offset
		out[i] = c
		offset += c.Ty.Size()
	}
	return &Schema{Columns: out, TupleSize: offset}
}

// Join concatenates this schema's columns with other's and compacts the
// result, equivalent to Compact(concat(self, other)).
func (s *Schema) Join(other *Schema) *Schema {
	cols := make([]Column, 0, len(s.Columns)+len(other.Columns))
	cols = append(cols, s.Columns...)
	cols = append(cols, other.Columns...)
	return (&Schema{Columns: cols}).Compact()
}

// Qualify returns a copy of this schema with every column's Table field set
// to table.
func (s *Schema) Qualify(table string) *Schema {
	cols := make([]Column, len(s.Columns))
	for i, c := range s.Columns {
		c.Table = table
		cols[i] = c
	}
	return &Schema{Columns: cols, TupleSize: s.TupleSize}
}

// SchemaBuilder constructs schemas fluently for tests and planner code.
type SchemaBuilder struct {
	cols []Column
}

func NewBuilder() *SchemaBuilder { return &SchemaBuilder{} }

func (b *SchemaBuilder) Append(name string, ty Type) *SchemaBuilder {
	b.cols = append(b.cols, Column{Name: name, Ty: ty})
	return b
}

func (b *SchemaBuilder) AppendQualified(table, name string, ty Type) *SchemaBuilder {
	b.cols = append(b.cols, Column{Name: name, Ty: ty, Table: table})
	return b
}

func (b *SchemaBuilder) Build() *Schema { return New(b.cols) }
