package btree

import (
	"encoding/binary"

	"github.com/SimonWaldherr/basedb/internal/tuple"
)

// Key is a B+-tree key: an ordered, incrementable, fixed-size-encodable
// value. Both plain scalars (IntKey) and composite tuple keys
// (TupleComparand) implement it.
type Key interface {
	Compare(Key) int
	Increment() Key
	Encode() []byte
}

// IntKey is a plain 4-byte signed integer key, useful for tests and for
// indexes keyed by a single integer column.
type IntKey int32

func (k IntKey) Compare(other Key) int {
	o := other.(IntKey)
	switch {
	case k < o:
		return -1
	case k > o:
		return 1
	default:
		return 0
	}
}

func (k IntKey) Increment() Key { return k + 1 }

func (k IntKey) Encode() []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(int32(k)))
	return b[:]
}

// DecodeIntKey decodes an IntKey from its 4-byte encoding.
func DecodeIntKey(b []byte) Key {
	return IntKey(int32(binary.BigEndian.Uint32(b)))
}

// TupleComparand adapts tuple.Comparand (a schema-driven composite-tuple
// comparator) to the Key interface, so the B+-tree can be keyed by
// arbitrary index columns.
type TupleComparand struct {
	tuple.Comparand
}

func (k TupleComparand) Compare(other Key) int {
	o := other.(TupleComparand)
	return k.Comparand.Compare(o.Comparand)
}

func (k TupleComparand) Increment() Key {
	t := make(tuple.Tuple, len(k.Tuple))
	copy(t, k.Tuple)
	if len(k.Schema.Columns) == 0 {
		return TupleComparand{tuple.Comparand{Schema: k.Schema, Tuple: t}}
	}
	first := k.Schema.Columns[0]
	incremented := tuple.ValueFrom(k.Tuple, first).Increment()
	patchValue(t, first, incremented)
	return TupleComparand{tuple.Comparand{Schema: k.Schema, Tuple: t}}
}

func (k TupleComparand) Encode() []byte {
	b := make([]byte, len(k.Tuple))
	copy(b, k.Tuple)
	return b
}

// patchValue overwrites column col's fixed-region bytes in t with v's
// encoding. Only used by Increment, on the key's first column, whatever its
// type; a Varchar is patched in place since its increment keeps the length.
func patchValue(t tuple.Tuple, col tuple.Column, v tuple.Value) {
	switch col.Ty {
	case tuple.Varchar:
		// Varchar.Increment preserves length and only changes the first
		// payload byte, so patch the payload in place via the existing
		// (offset, length) pointer rather than rewriting it.
		if v.Varchar() == "" {
			return
		}
		vOff := binary.BigEndian.Uint16(t[col.Offset : col.Offset+2])
		t[vOff] = v.Varchar()[0]
	default:
		b := tuple.NewTupleBuilder().Add(v).Build()
		copy(t[col.Offset:col.Offset+col.Ty.Size()], b)
	}
}

// decodeTupleKey builds a decode function for a TupleComparand keyed
// B+-tree, given the key schema.
func decodeTupleKey(schema *tuple.Schema) func([]byte) Key {
	return func(b []byte) Key {
		t := make(tuple.Tuple, len(b))
		copy(t, b)
		return TupleComparand{tuple.Comparand{Schema: schema, Tuple: t}}
	}
}
