package tuple

import "encoding/binary"

type variableSlot struct {
	offsetOffset int // where the (offset,length) pointer lives in the fixed region
	data         []byte
}

// Builder appends fixed values inline as they are added; for each Varchar
// value it reserves 4 bytes in the fixed region (writing the length
// immediately) and defers the payload bytes to Build, which concatenates
// them at the tail and patches in their offsets.
type Builder struct {
	fixed     []byte
	variables []variableSlot
}

func NewTupleBuilder() *Builder { return &Builder{} }

func (b *Builder) TinyInt(v int8) *Builder {
	b.fixed = append(b.fixed, byte(v))
	return b
}

func (b *Builder) Bool(v bool) *Builder {
	if v {
		b.fixed = append(b.fixed, 1)
	} else {
		b.fixed = append(b.fixed, 0)
	}
	return b
}

func (b *Builder) Int(v int32) *Builder {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))
	b.fixed = append(b.fixed, buf[:]...)
	return b
}

func (b *Builder) BigInt(v int64) *Builder {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	b.fixed = append(b.fixed, buf[:]...)
	return b
}

func (b *Builder) Varchar(v string) *Builder {
	offsetOffset := len(b.fixed)
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(v)))
	// Reserve the 2-byte offset placeholder (patched in Build) followed by
	// the already-known 2-byte length.
	b.fixed = append(b.fixed, 0, 0)
	b.fixed = append(b.fixed, lenBuf[:]...)
	b.variables = append(b.variables, variableSlot{offsetOffset: offsetOffset, data: []byte(v)})
	return b
}

// Add appends a value of any type, dispatching to the matching typed
// method.
func (b *Builder) Add(v Value) *Builder {
	switch v.Ty {
	case TinyInt:
		return b.TinyInt(v.tinyInt)
	case Bool:
		return b.Bool(v.boolean)
	case Int:
		return b.Int(v.i32)
	case BigInt:
		return b.BigInt(v.i64)
	case Varchar:
		return b.Varchar(v.varchar)
	default:
		panic("tuple: add unknown type")
	}
}

// Build concatenates variable payloads at the tail of the fixed region and
// patches each reserved (offset, length) pointer.
func (b *Builder) Build() Tuple {
	out := make([]byte, len(b.fixed))
	copy(out, b.fixed)

	tailOffset := len(out)
	for _, v := range b.variables {
		out = append(out, v.data...)
		binary.BigEndian.PutUint16(out[v.offsetOffset:v.offsetOffset+2], uint16(tailOffset))
		tailOffset += len(v.data)
	}
	return Tuple(out)
}

// FitTupleWithSchema projects a wider tuple down to a narrower schema
// (typically one built via Schema.Filter, for an index's key columns),
// rewriting variable-length offsets so the output is self-contained. It
// does not repack fixed-region offsets to the narrower schema's own
// layout -- callers needing a packed layout apply Schema.Compact
// separately.
func FitTupleWithSchema(t Tuple, narrower *Schema) Tuple {
	maxOffset := 0
	for _, c := range narrower.Columns {
		end := c.Offset + c.Ty.Size()
		if end > maxOffset {
			maxOffset = end
		}
	}
	fixed := make([]byte, maxOffset)
	copy(fixed, t[:maxOffset])

	var tail []byte
	tailBase := maxOffset
	for _, c := range narrower.Columns {
		if c.Ty != Varchar {
			continue
		}
		vOff := binary.BigEndian.Uint16(t[c.Offset : c.Offset+2])
		vLen := binary.BigEndian.Uint16(t[c.Offset+2 : c.Offset+4])
		payload := t[vOff : vOff+vLen]

		newOffset := tailBase + len(tail)
		binary.BigEndian.PutUint16(fixed[c.Offset:c.Offset+2], uint16(newOffset))
		tail = append(tail, payload...)
	}

	out := make([]byte, 0, len(fixed)+len(tail))
	out = append(out, fixed...)
	out = append(out, tail...)
	return Tuple(out)
}
