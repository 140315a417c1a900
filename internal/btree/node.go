package btree

import (
	"encoding/binary"

	"github.com/SimonWaldherr/basedb/internal/storage/page"
)

type nodeType uint8

const (
	typeInternal nodeType = 1
	typeLeaf     nodeType = 2
)

const (
	headerSize  = 18 // type(1) is_root(1) len(4) max(4) next(4) id(4)
	typeOff     = 0
	isRootOff   = 1
	lenOff      = 2
	maxOff      = 6
	nextOff     = 10
	idOff       = 14
	slotsStart  = headerSize
	pointerTag  = byte(1)
	valueTag    = byte(0)
)

// layout describes the fixed-size slot geometry for one BTree instance: key
// size and value size determine how many slots fit in a page, and whether a
// slot's payload holds an inlined value (leaf) or a child page id
// (internal) -- both share the same on-disk size.
type layout struct {
	keySize     int
	valueSize   int
	payloadSize int
	slotSize    int
	maxSlots    uint32
}

func newLayout(keySize, valueSize int) layout {
	payload := valueSize
	if payload < 4 {
		payload = 4
	}
	slot := keySize + 1 + payload
	maxSlots := uint32((page.Size - headerSize) / slot)
	return layout{keySize: keySize, valueSize: valueSize, payloadSize: payload, slotSize: slot, maxSlots: maxSlots}
}

// node is a view over one B+-tree page's bytes.
type node struct {
	buf *page.Buf
	lo  layout
}

func newLeaf(buf *page.Buf, lo layout, id int32, isRoot bool) *node {
	n := &node{buf: buf, lo: lo}
	n.setType(typeLeaf)
	n.setIsRoot(isRoot)
	n.setLen(0)
	n.setMax(lo.maxSlots)
	n.setNext(-1)
	n.setID(id)
	return n
}

func newInternal(buf *page.Buf, lo layout, id int32, isRoot bool) *node {
	n := &node{buf: buf, lo: lo}
	n.setType(typeInternal)
	n.setIsRoot(isRoot)
	n.setLen(0)
	n.setMax(lo.maxSlots)
	n.setNext(-1)
	n.setID(id)
	return n
}

func fromBuf(buf *page.Buf, lo layout) *node { return &node{buf: buf, lo: lo} }

func (n *node) IsLeaf() bool { return nodeType(n.buf[typeOff]) == typeLeaf }
func (n *node) IsRoot() bool { return n.buf[isRootOff] != 0 }
func (n *node) setIsRoot(v bool) {
	if v {
		n.buf[isRootOff] = 1
	} else {
		n.buf[isRootOff] = 0
	}
}
func (n *node) setType(t nodeType) { n.buf[typeOff] = byte(t) }

func (n *node) Len() uint32      { return binary.BigEndian.Uint32(n.buf[lenOff:]) }
func (n *node) setLen(v uint32)  { binary.BigEndian.PutUint32(n.buf[lenOff:], v) }
func (n *node) Max() uint32      { return binary.BigEndian.Uint32(n.buf[maxOff:]) }
func (n *node) setMax(v uint32)  { binary.BigEndian.PutUint32(n.buf[maxOff:], v) }
func (n *node) Next() int32      { return int32(binary.BigEndian.Uint32(n.buf[nextOff:])) }
func (n *node) setNext(v int32)  { binary.BigEndian.PutUint32(n.buf[nextOff:], uint32(v)) }
func (n *node) ID() int32        { return int32(binary.BigEndian.Uint32(n.buf[idOff:])) }
func (n *node) setID(v int32)    { binary.BigEndian.PutUint32(n.buf[idOff:], uint32(v)) }

// AlmostFull reports whether the node has reached half its configured
// maximum slot count, triggering a pre-emptive split on descent.
func (n *node) AlmostFull() bool { return n.Len() >= n.Max()/2 }

func (n *node) slotOffset(i uint32) int { return slotsStart + int(i)*n.lo.slotSize }

func (n *node) keyBytes(i uint32) []byte {
	o := n.slotOffset(i)
	return n.buf[o : o+n.lo.keySize]
}

func (n *node) tag(i uint32) byte {
	o := n.slotOffset(i)
	return n.buf[o+n.lo.keySize]
}

func (n *node) payloadBytes(i uint32) []byte {
	o := n.slotOffset(i) + n.lo.keySize + 1
	return n.buf[o : o+n.lo.payloadSize]
}

func (n *node) childID(i uint32) int32 {
	return int32(binary.BigEndian.Uint32(n.payloadBytes(i)))
}

func (n *node) valueBytes(i uint32) []byte {
	return n.payloadBytes(i)[:n.lo.valueSize]
}

// writeSlotAt writes a slot at index i, shifting any existing slots at and
// after i one position to the right first.
func (n *node) writeSlotAt(i uint32, key []byte, tagByte byte, payload []byte) {
	count := n.Len()
	for j := count; j > i; j-- {
		src := n.slotOffset(j - 1)
		dst := n.slotOffset(j)
		copy(n.buf[dst:dst+n.lo.slotSize], n.buf[src:src+n.lo.slotSize])
	}
	o := n.slotOffset(i)
	copy(n.buf[o:o+n.lo.keySize], key)
	n.buf[o+n.lo.keySize] = tagByte
	copy(n.buf[o+n.lo.keySize+1:o+n.lo.slotSize], payload)
	n.setLen(count + 1)
}

// insertLeaf inserts (key, value) at its sorted position. Returns false on
// an exact duplicate key, without mutation.
func (n *node) insertLeaf(key Key, keyBytes []byte, valueBytes []byte, decodeKey func([]byte) Key) bool {
	i := n.findInsertPos(key, decodeKey)
	if i > 0 {
		existing := decodeKey(n.keyBytes(i - 1))
		if existing.Compare(key) == 0 {
			return false
		}
	}
	n.writeSlotAt(i, keyBytes, valueTag, valueBytes)
	return true
}

// replaceLeaf upserts (key, value): if key already exists its value is
// overwritten in place and the previous payload bytes are returned.
func (n *node) replaceLeaf(key Key, keyBytes []byte, valueBytes []byte, decodeKey func([]byte) Key) (prev []byte, replaced bool) {
	i := n.findInsertPos(key, decodeKey)
	if i > 0 {
		existing := decodeKey(n.keyBytes(i - 1))
		if existing.Compare(key) == 0 {
			old := make([]byte, n.lo.valueSize)
			copy(old, n.valueBytes(i-1))
			o := n.slotOffset(i - 1)
			copy(n.buf[o+n.lo.keySize+1:o+n.lo.slotSize], valueBytes)
			return old, true
		}
	}
	n.writeSlotAt(i, keyBytes, valueTag, valueBytes)
	return nil, false
}

// findInsertPos returns the index of the first slot whose key is >= key
// (i.e. where key should be inserted to keep the slots sorted).
func (n *node) findInsertPos(key Key, decodeKey func([]byte) Key) uint32 {
	count := n.Len()
	for i := uint32(0); i < count; i++ {
		k := decodeKey(n.keyBytes(i))
		if k.Compare(key) >= 0 {
			return i
		}
	}
	return count
}

// findChild returns the index of the first slot whose key is strictly
// greater than search, for internal-node descent; if no such slot exists,
// the caller falls back to n.Next().
func (n *node) findChild(search Key, decodeKey func([]byte) Key) (uint32, bool) {
	count := n.Len()
	for i := uint32(0); i < count; i++ {
		k := decodeKey(n.keyBytes(i))
		if k.Compare(search) > 0 {
			return i, true
		}
	}
	return 0, false
}

// lastKey returns the key of the final slot.
func (n *node) lastKey(decodeKey func([]byte) Key) Key {
	return decodeKey(n.keyBytes(n.Len() - 1))
}

// firstPtr returns the child pointer of the first slot, used as the
// leftmost-descent pointer when scanning from the root.
func (n *node) firstPtr() int32 { return n.childID(0) }

// split moves the upper half of this node's slots into newNode (a freshly
// created node of the same kind and layout). It returns nothing; the caller
// derives the parent's separator keys from the two halves' last keys.
func (n *node) split(newNode *node, decodeKey func([]byte) Key) {
	count := n.Len()
	mid := count / 2
	upper := count - mid

	for j := uint32(0); j < upper; j++ {
		src := n.slotOffset(mid + j)
		dst := newNode.slotOffset(j)
		copy(newNode.buf[dst:dst+n.lo.slotSize], n.buf[src:src+n.lo.slotSize])
	}
	newNode.setLen(upper)
	n.setLen(mid)

	if n.IsLeaf() {
		newNode.setNext(n.Next())
		n.setNext(newNode.ID())
	}
}
