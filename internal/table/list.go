package table

import (
	"errors"
	"fmt"
	"sync"

	"github.com/SimonWaldherr/basedb/internal/storage/cache"
	"github.com/SimonWaldherr/basedb/internal/storage/page"
)

// ErrTupleTooLarge is returned when a tuple cannot fit on an empty page, so
// no amount of spilling to a new page would help.
var ErrTupleTooLarge = errors.New("table: tuple too large for a page")

// List is a table heap: a singly-linked list of slotted pages, in
// insertion order, plus a mutex-guarded tail pointer.
type List struct {
	pc *cache.PageCache

	firstPageID page.ID

	mu          sync.Mutex
	lastPageID  page.ID
}

// New creates a brand new, empty table heap: a single page is allocated to
// serve as both first and last page.
func New(pc *cache.PageCache) (*List, error) {
	pin, err := pc.NewPage()
	if err != nil {
		return nil, fmt.Errorf("table: allocate first page: %w", err)
	}
	func() {
		w := pin.Write()
		defer w.Unlock()
		NewNode(w.Bytes())
	}()
	id := pin.ID()
	pin.Unpin()
	return &List{pc: pc, firstPageID: id, lastPageID: id}, nil
}

// Open reconstructs a table heap whose pages already exist on disk, given
// its first and last page ids (as recorded in the catalog).
func Open(pc *cache.PageCache, firstPageID, lastPageID page.ID) *List {
	return &List{pc: pc, firstPageID: firstPageID, lastPageID: lastPageID}
}

func (l *List) FirstPageID() page.ID { return l.firstPageID }

func (l *List) LastPageID() page.ID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastPageID
}

// Insert appends t to the heap with default (non-deleted) metadata.
func (l *List) Insert(t []byte) (RID, error) {
	return l.InsertWithMeta(t, TupleMeta{})
}

// InsertWithMeta appends t with explicit metadata, allocating a new page
// and linking it in if the current last page has no room.
func (l *List) InsertWithMeta(t []byte, meta TupleMeta) (RID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pin, err := l.pc.FetchPage(l.lastPageID)
	if err != nil {
		return RID{}, fmt.Errorf("table: fetch last page %d: %w", l.lastPageID, err)
	}
	w := pin.Write()
	node := FromBuf(w.Bytes())
	slotID, ok := node.Insert(t, meta)
	if ok {
		w.Unlock()
		pin.Unpin()
		return RID{PageID: l.lastPageID, SlotID: slotID}, nil
	}
	empty := node.TuplesLen() == 0
	w.Unlock()
	pin.Unpin()

	if empty {
		return RID{}, ErrTupleTooLarge
	}

	newPin, err := l.pc.NewPage()
	if err != nil {
		return RID{}, fmt.Errorf("table: allocate spill page: %w", err)
	}
	newID := newPin.ID()

	oldPin, err := l.pc.FetchPage(l.lastPageID)
	if err != nil {
		return RID{}, fmt.Errorf("table: re-fetch last page %d: %w", l.lastPageID, err)
	}
	ow := oldPin.Write()
	FromBuf(ow.Bytes()).SetNextPageID(newID)
	ow.Unlock()
	oldPin.Unpin()

	nw := newPin.Write()
	newNode := NewNode(nw.Bytes())
	newSlotID, ok := newNode.Insert(t, meta)
	nw.Unlock()
	newPin.Unpin()
	if !ok {
		return RID{}, ErrTupleTooLarge
	}

	l.lastPageID = newID
	return RID{PageID: newID, SlotID: newSlotID}, nil
}

// Get returns the tuple named by rid.
func (l *List) Get(rid RID) (TupleMeta, []byte, bool, error) {
	pin, err := l.pc.FetchPage(rid.PageID)
	if err != nil {
		return TupleMeta{}, nil, false, fmt.Errorf("table: fetch page %d: %w", rid.PageID, err)
	}
	r := pin.Read()
	meta, t, ok := FromBuf(r.Bytes()).Get(rid.SlotID)
	r.Unlock()
	pin.Unpin()
	return meta, t, ok, nil
}

// Row is one (meta, tuple, rid) triple yielded by an Iterator.
type Row struct {
	Meta  TupleMeta
	Tuple []byte
	RID   RID
}

// Iterator walks every row of a table heap in insertion order. It snapshots
// the heap's last page and row count at construction time: rows inserted
// after that snapshot are not visible to this iterator. This mirrors the
// reference design and is deliberate, not a defect.
type Iterator struct {
	l   *List
	pc  *cache.PageCache
	cur page.ID
	idx uint32

	endPage page.ID
	endIdx  uint32
	done    bool
}

// Iter constructs a snapshot iterator over l.
func (l *List) Iter() (*Iterator, error) {
	l.mu.Lock()
	endPage := l.lastPageID
	l.mu.Unlock()

	pin, err := l.pc.FetchPage(endPage)
	if err != nil {
		return nil, fmt.Errorf("table: iter snapshot fetch %d: %w", endPage, err)
	}
	r := pin.Read()
	endIdx := FromBuf(r.Bytes()).TuplesLen()
	r.Unlock()
	pin.Unpin()

	return &Iterator{
		l:       l,
		pc:      l.pc,
		cur:     l.firstPageID,
		idx:     0,
		endPage: endPage,
		endIdx:  endIdx,
	}, nil
}

// Next returns the next row, or ok == false once the snapshot is exhausted.
func (it *Iterator) Next() (Row, bool, error) {
	for {
		if it.done {
			return Row{}, false, nil
		}
		if it.cur == it.endPage && it.idx >= it.endIdx {
			it.done = true
			return Row{}, false, nil
		}

		pin, err := it.pc.FetchPage(it.cur)
		if err != nil {
			return Row{}, false, fmt.Errorf("table: iter fetch %d: %w", it.cur, err)
		}
		r := pin.Read()
		node := FromBuf(r.Bytes())
		count := node.TuplesLen()
		next := node.NextPageID()

		if it.idx >= count {
			r.Unlock()
			pin.Unpin()
			if it.cur == it.endPage {
				it.done = true
				return Row{}, false, nil
			}
			it.cur = next
			it.idx = 0
			continue
		}

		meta, t, _ := node.Get(it.idx)
		rid := RID{PageID: it.cur, SlotID: it.idx}
		r.Unlock()
		pin.Unpin()
		it.idx++
		return Row{Meta: meta, Tuple: t, RID: rid}, true, nil
	}
}
