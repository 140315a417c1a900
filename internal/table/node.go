// Package table implements the table heap: a singly-linked list of slotted
// pages holding variable-length rows, addressed by RID.
package table

import (
	"encoding/binary"

	"github.com/SimonWaldherr/basedb/internal/storage/page"
)

const (
	headerSize   = 12 // next_page_id(4) + tuples_len(4) + deleted_tuples_len(4)
	slotSize     = 9  // offset(4) + len(4) + deleted(1)
	slotsStart   = headerSize
	nextPageOff  = 0
	tuplesLenOff = 4
	delLenOff    = 8
)

// TupleMeta carries per-row metadata alongside its bytes. Deleted rows are
// tombstoned in place, never physically compacted by this layer.
type TupleMeta struct {
	Deleted bool
}

// Node is a view over one table page's bytes, exposing the slotted layout:
// a forward-growing slot directory after a fixed header, and a
// backward-growing tuple region.
type Node struct {
	buf *page.Buf
}

// NewNode wraps buf as a table node, zeroing its header (used when a page
// is first allocated for the table heap).
func NewNode(buf *page.Buf) *Node {
	n := &Node{buf: buf}
	n.SetNextPageID(page.Invalid)
	binary.BigEndian.PutUint32(buf[tuplesLenOff:], 0)
	binary.BigEndian.PutUint32(buf[delLenOff:], 0)
	return n
}

// FromBuf wraps an existing, already-populated page's bytes.
func FromBuf(buf *page.Buf) *Node { return &Node{buf: buf} }

func (n *Node) NextPageID() page.ID {
	return page.ID(int32(binary.BigEndian.Uint32(n.buf[nextPageOff:])))
}

func (n *Node) SetNextPageID(id page.ID) {
	binary.BigEndian.PutUint32(n.buf[nextPageOff:], uint32(int32(id)))
}

func (n *Node) TuplesLen() uint32 {
	return binary.BigEndian.Uint32(n.buf[tuplesLenOff:])
}

func (n *Node) DeletedTuplesLen() uint32 {
	return binary.BigEndian.Uint32(n.buf[delLenOff:])
}

func (n *Node) setTuplesLen(v uint32) {
	binary.BigEndian.PutUint32(n.buf[tuplesLenOff:], v)
}

func (n *Node) setDeletedTuplesLen(v uint32) {
	binary.BigEndian.PutUint32(n.buf[delLenOff:], v)
}

func (n *Node) slotOffset(i uint32) int { return slotsStart + int(i)*slotSize }

type slot struct {
	offset  uint32
	length  uint32
	deleted bool
}

func (n *Node) readSlot(i uint32) slot {
	o := n.slotOffset(i)
	return slot{
		offset:  binary.BigEndian.Uint32(n.buf[o:]),
		length:  binary.BigEndian.Uint32(n.buf[o+4:]),
		deleted: n.buf[o+8] != 0,
	}
}

func (n *Node) writeSlot(i uint32, s slot) {
	o := n.slotOffset(i)
	binary.BigEndian.PutUint32(n.buf[o:], s.offset)
	binary.BigEndian.PutUint32(n.buf[o+4:], s.length)
	if s.deleted {
		n.buf[o+8] = 1
	} else {
		n.buf[o+8] = 0
	}
}

// nextTupleOffset computes where a new tuple's bytes would start: right
// before the earliest tuple currently stored, or at the end of the page if
// this is the first tuple.
func (n *Node) nextTupleOffset() uint32 {
	count := n.TuplesLen()
	if count == 0 {
		return page.Size
	}
	min := uint32(page.Size)
	for i := uint32(0); i < count; i++ {
		s := n.readSlot(i)
		if s.offset < min {
			min = s.offset
		}
	}
	return min
}

// Insert appends tuple bytes plus a new slot. It returns ok == false if
// there is not enough room, without mutating the page.
func (n *Node) Insert(t []byte, meta TupleMeta) (slotID uint32, ok bool) {
	count := n.TuplesLen()
	next := n.nextTupleOffset()
	if uint32(len(t)) > next {
		return 0, false
	}
	newOffset := next - uint32(len(t))
	if slotsStart+int(count+1)*slotSize > int(newOffset) {
		return 0, false
	}
	copy(n.buf[newOffset:], t)
	n.writeSlot(count, slot{offset: newOffset, length: uint32(len(t)), deleted: meta.Deleted})
	n.setTuplesLen(count + 1)
	if meta.Deleted {
		n.setDeletedTuplesLen(n.DeletedTuplesLen() + 1)
	}
	return count, true
}

// Get returns the tuple stored at slotID.
func (n *Node) Get(slotID uint32) (TupleMeta, []byte, bool) {
	if slotID >= n.TuplesLen() {
		return TupleMeta{}, nil, false
	}
	s := n.readSlot(slotID)
	t := make([]byte, s.length)
	copy(t, n.buf[s.offset:s.offset+s.length])
	return TupleMeta{Deleted: s.deleted}, t, true
}

// Delete tombstones slotID in place.
func (n *Node) Delete(slotID uint32) bool {
	if slotID >= n.TuplesLen() {
		return false
	}
	s := n.readSlot(slotID)
	if s.deleted {
		return true
	}
	s.deleted = true
	n.writeSlot(slotID, s)
	n.setDeletedTuplesLen(n.DeletedTuplesLen() + 1)
	return true
}
