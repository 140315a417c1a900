// Package btree implements a recursive, split-propagating, page-backed
// B+-tree index keyed by scalars or composite tuples.
package btree

import (
	"fmt"
	"sync"

	"github.com/SimonWaldherr/basedb/internal/storage/cache"
	"github.com/SimonWaldherr/basedb/internal/storage/page"
)

// ValueCodec encodes/decodes a fixed-size value payload stored inline in
// leaf slots.
type ValueCodec struct {
	Size   int
	Encode func(any) []byte
	Decode func([]byte) any
}

// BTree is a page-backed B+-tree index. Keys may be bounded-width: when a
// key's natural encoding (e.g. a composite tuple containing a Varchar
// column) is shorter than the configured key width, it is zero-padded;
// decoders only ever read explicit, bounded ranges (fixed columns, or a
// Varchar's own offset+length pointer), so trailing padding is always
// harmless. Callers choose a key width generous enough for every key they
// will insert.
type BTree struct {
	pc        *cache.PageCache
	lo        layout
	decodeKey func([]byte) Key
	valCodec  ValueCodec

	mu   sync.Mutex
	root page.ID
}

// New constructs an empty B+-tree index. keyWidth bounds every key's
// encoded size; valCodec describes the fixed-size value payload.
func New(pc *cache.PageCache, keyWidth int, decodeKey func([]byte) Key, valCodec ValueCodec) *BTree {
	return &BTree{
		pc:        pc,
		lo:        newLayout(keyWidth, valCodec.Size),
		decodeKey: decodeKey,
		valCodec:  valCodec,
		root:      page.Invalid,
	}
}

// Open reconstructs a handle onto a B+-tree whose root already exists on
// disk (recorded by the catalog).
func Open(pc *cache.PageCache, keyWidth int, decodeKey func([]byte) Key, valCodec ValueCodec, root page.ID) *BTree {
	bt := New(pc, keyWidth, decodeKey, valCodec)
	bt.root = root
	return bt
}

// Root returns the current root page id, for persistence by the catalog.
func (bt *BTree) Root() page.ID {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	return bt.root
}

func (bt *BTree) padKey(key Key) []byte {
	b := key.Encode()
	if len(b) >= bt.lo.keySize {
		return b[:bt.lo.keySize]
	}
	out := make([]byte, bt.lo.keySize)
	copy(out, b)
	return out
}

type splitInfo struct {
	loKey   Key
	loChild int32
	hiKey   Key
	hiChild int32
}

func (bt *BTree) separatorKey(n *node) Key {
	last := n.lastKey(bt.decodeKey)
	if n.IsLeaf() {
		return last.Increment()
	}
	return last
}

// Insert inserts (key, value). It returns ok == false, without mutation, if
// key already exists -- see Replace for an upsert.
func (bt *BTree) Insert(key Key, value any) (bool, error) {
	ok, _, err := bt.insertOrReplace(key, value, false)
	return ok, err
}

// Replace upserts (key, value), returning the previous value if key already
// existed.
func (bt *BTree) Replace(key Key, value any) (prev any, err error) {
	_, prev, err = bt.insertOrReplace(key, value, true)
	return prev, err
}

func (bt *BTree) insertOrReplace(key Key, value any, upsert bool) (bool, any, error) {
	valueBytes := bt.valCodec.Encode(value)

	bt.mu.Lock()
	root := bt.root
	if root == page.Invalid {
		pin, err := bt.pc.NewPage()
		if err != nil {
			bt.mu.Unlock()
			return false, nil, fmt.Errorf("btree: allocate root: %w", err)
		}
		w := pin.Write()
		n := newLeaf(w.Bytes(), bt.lo, int32(pin.ID()), true)
		n.insertLeaf(key, bt.padKey(key), valueBytes, bt.decodeKey)
		w.Unlock()
		pin.Unpin()
		bt.root = pin.ID()
		bt.mu.Unlock()
		return true, nil, nil
	}
	bt.mu.Unlock()

	ok, prevBytes, split, err := bt.insertRec(int32(root), key, valueBytes, upsert)
	if err != nil {
		return false, nil, err
	}
	if split != nil {
		pin, err := bt.pc.NewPage()
		if err != nil {
			return false, nil, fmt.Errorf("btree: allocate new root: %w", err)
		}
		w := pin.Write()
		n := newInternal(w.Bytes(), bt.lo, int32(pin.ID()), true)
		// The upper half is the unbounded rightmost child, reached by
		// Next() on a "no slot key > search key" descent -- it must not
		// be installed as a finite-key slot (mirrors installSeparators).
		insertChildSlot(n, split.loKey, split.loChild, bt.decodeKey)
		n.setNext(split.hiChild)
		w.Unlock()
		pin.Unpin()

		bt.mu.Lock()
		bt.root = pin.ID()
		bt.mu.Unlock()
	}
	var prev any
	if prevBytes != nil {
		prev = bt.valCodec.Decode(prevBytes)
	}
	return ok, prev, nil
}

// insertRec descends into nodeID, splitting eagerly when almost full, and
// returns whether the insert/replace succeeded, the previous value bytes
// (for Replace), and a splitInfo describing this subtree's own split (if
// any), for the caller to install into its own node.
func (bt *BTree) insertRec(nodeID int32, key Key, valueBytes []byte, upsert bool) (bool, []byte, *splitInfo, error) {
	pin, err := bt.pc.FetchPage(page.ID(nodeID))
	if err != nil {
		return false, nil, nil, fmt.Errorf("btree: fetch node %d: %w", nodeID, err)
	}
	w := pin.Write()
	n := fromBuf(w.Bytes(), bt.lo)

	var split *splitInfo
	descendIntoUpper := false

	if n.AlmostFull() {
		np, err := bt.pc.NewPage()
		if err != nil {
			w.Unlock()
			pin.Unpin()
			return false, nil, nil, fmt.Errorf("btree: allocate split sibling: %w", err)
		}
		nw := np.Write()
		var newNode *node
		if n.IsLeaf() {
			newNode = newLeaf(nw.Bytes(), bt.lo, int32(np.ID()), false)
		} else {
			newNode = newInternal(nw.Bytes(), bt.lo, int32(np.ID()), false)
		}
		n.setIsRoot(false)
		n.split(newNode, bt.decodeKey)

		split = &splitInfo{
			loKey:   bt.separatorKey(n),
			loChild: n.ID(),
			hiKey:   bt.separatorKey(newNode),
			hiChild: newNode.ID(),
		}
		descendIntoUpper = n.Len() > 0 && key.Compare(n.lastKey(bt.decodeKey)) > 0

		nw.Unlock()
		np.Unpin()
	}

	if descendIntoUpper {
		w.Unlock()
		pin.Unpin()

		np2, err := bt.pc.FetchPage(page.ID(split.hiChild))
		if err != nil {
			return false, nil, nil, fmt.Errorf("btree: fetch split sibling %d: %w", split.hiChild, err)
		}
		w2 := np2.Write()
		target := fromBuf(w2.Bytes(), bt.lo)
		ok, prev, childSplit, err := bt.insertLeafOrDescend(target, key, valueBytes, upsert, split)
		w2.Unlock()
		np2.Unpin()
		return ok, prev, childSplit, err
	}

	ok, prev, childSplit, err := bt.insertLeafOrDescend(n, key, valueBytes, upsert, split)
	w.Unlock()
	pin.Unpin()
	return ok, prev, childSplit, err
}

// insertLeafOrDescend performs the leaf insert/replace, or recurses into
// the appropriate child of an internal node, given the already-resolved
// target node (post eager-split, if any).
func (bt *BTree) insertLeafOrDescend(target *node, key Key, valueBytes []byte, upsert bool, ownSplit *splitInfo) (bool, []byte, *splitInfo, error) {
	if target.IsLeaf() {
		keyBytes := bt.padKey(key)
		if upsert {
			prev, _ := target.replaceLeaf(key, keyBytes, valueBytes, bt.decodeKey)
			return true, prev, ownSplit, nil
		}
		ok := target.insertLeaf(key, keyBytes, valueBytes, bt.decodeKey)
		return ok, nil, ownSplit, nil
	}

	idx, found := target.findChild(key, bt.decodeKey)
	var childID int32
	if found {
		childID = target.childID(idx)
	} else {
		childID = target.Next()
	}
	if childID < 0 {
		panic("btree: internal node missing child pointer")
	}

	ok, prev, childSplit, err := bt.insertRec(childID, key, valueBytes, upsert)
	if err != nil {
		return false, nil, nil, err
	}
	if childSplit != nil {
		installSeparators(target, childSplit, bt.decodeKey)
	}
	return ok, prev, ownSplit, nil
}

func installSeparators(target *node, cs *splitInfo, decodeKey func([]byte) Key) {
	count := target.Len()
	foundIdx := -1
	for i := uint32(0); i < count; i++ {
		if target.childID(i) == cs.loChild {
			foundIdx = int(i)
			break
		}
	}
	if foundIdx >= 0 {
		removeSlotAt(target, uint32(foundIdx))
		insertChildSlot(target, cs.loKey, cs.loChild, decodeKey)
		insertChildSlot(target, cs.hiKey, cs.hiChild, decodeKey)
		return
	}
	target.setNext(cs.hiChild)
	insertChildSlot(target, cs.loKey, cs.loChild, decodeKey)
}

func removeSlotAt(n *node, i uint32) {
	count := n.Len()
	for j := i; j < count-1; j++ {
		src := n.slotOffset(j + 1)
		dst := n.slotOffset(j)
		copy(n.buf[dst:dst+n.lo.slotSize], n.buf[src:src+n.lo.slotSize])
	}
	n.setLen(count - 1)
}

// insertChildSlot inserts a pointer slot (key -> childID) into an internal
// node, in sorted key order.
func insertChildSlot(n *node, key Key, childID int32, decodeKey func([]byte) Key) {
	keyBytes := key.Encode()
	if len(keyBytes) < n.lo.keySize {
		padded := make([]byte, n.lo.keySize)
		copy(padded, keyBytes)
		keyBytes = padded
	} else {
		keyBytes = keyBytes[:n.lo.keySize]
	}
	payload := make([]byte, n.lo.payloadSize)
	putInt32(payload, childID)

	i := n.findInsertPos(key, decodeKey)
	n.writeSlotAt(i, keyBytes, pointerTag, payload)
}

func putInt32(b []byte, v int32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

// Get performs a point lookup.
func (bt *BTree) Get(key Key) (any, bool, error) {
	bt.mu.Lock()
	root := bt.root
	bt.mu.Unlock()
	if root == page.Invalid {
		return nil, false, nil
	}
	return bt.getRec(int32(root), key)
}

func (bt *BTree) getRec(nodeID int32, key Key) (any, bool, error) {
	pin, err := bt.pc.FetchPage(page.ID(nodeID))
	if err != nil {
		return nil, false, fmt.Errorf("btree: fetch node %d: %w", nodeID, err)
	}
	r := pin.Read()
	n := fromBuf(r.Bytes(), bt.lo)

	if n.IsLeaf() {
		count := n.Len()
		for i := uint32(0); i < count; i++ {
			k := bt.decodeKey(n.keyBytes(i))
			if k.Compare(key) == 0 {
				val := bt.valCodec.Decode(n.valueBytes(i))
				r.Unlock()
				pin.Unpin()
				return val, true, nil
			}
		}
		r.Unlock()
		pin.Unpin()
		return nil, false, nil
	}

	idx, found := n.findChild(key, bt.decodeKey)
	var childID int32
	if found {
		childID = n.childID(idx)
	} else {
		childID = n.Next()
	}
	r.Unlock()
	pin.Unpin()
	if childID < 0 {
		return nil, false, nil
	}
	return bt.getRec(childID, key)
}

// Slot is one (key, value) pair yielded by Scan.
type Slot struct {
	Key   Key
	Value any
}

// Scan returns every (key, value) pair in ascending key order.
func (bt *BTree) Scan() ([]Slot, error) {
	bt.mu.Lock()
	root := bt.root
	bt.mu.Unlock()
	if root == page.Invalid {
		return nil, nil
	}

	leafID, err := bt.leftmostLeaf(int32(root))
	if err != nil {
		return nil, err
	}

	var out []Slot
	for leafID >= 0 {
		pin, err := bt.pc.FetchPage(page.ID(leafID))
		if err != nil {
			return nil, fmt.Errorf("btree: fetch leaf %d: %w", leafID, err)
		}
		r := pin.Read()
		n := fromBuf(r.Bytes(), bt.lo)
		count := n.Len()
		for i := uint32(0); i < count; i++ {
			out = append(out, Slot{
				Key:   bt.decodeKey(n.keyBytes(i)),
				Value: bt.valCodec.Decode(n.valueBytes(i)),
			})
		}
		next := n.Next()
		r.Unlock()
		pin.Unpin()
		leafID = next
	}
	return out, nil
}

func (bt *BTree) leftmostLeaf(nodeID int32) (int32, error) {
	pin, err := bt.pc.FetchPage(page.ID(nodeID))
	if err != nil {
		return 0, fmt.Errorf("btree: fetch node %d: %w", nodeID, err)
	}
	r := pin.Read()
	n := fromBuf(r.Bytes(), bt.lo)
	if n.IsLeaf() {
		r.Unlock()
		pin.Unpin()
		return nodeID, nil
	}
	child := n.firstPtr()
	r.Unlock()
	pin.Unpin()
	return bt.leftmostLeaf(child)
}
