// Package cache implements the concurrent page cache: a page table (page id
// -> frame), a free-frame pool, and an LRU-K replacer, fronting a Disk. All
// higher layers (table heap, B+-tree) talk to pages exclusively through
// Pins obtained here.
package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/SimonWaldherr/basedb/internal/storage/disk"
	"github.com/SimonWaldherr/basedb/internal/storage/page"
	"github.com/SimonWaldherr/basedb/internal/storage/replacer"
)

// ErrOutOfMemory is returned when every frame is pinned and no frame can be
// evicted to satisfy a NewPage/FetchPage request.
var ErrOutOfMemory = errors.New("cache: out of memory (all frames pinned)")

type frame struct {
	mu sync.RWMutex
	pg page.Page
}

// PageCache is the concurrent buffer pool described by the design: a page
// table guarded by a read/write lock, a lock-free free list, and a
// single-owner LRU-K replacer.
type PageCache struct {
	d        disk.Disk
	replacer *replacer.LRUK
	frames   []*frame
	free     *freeList

	tableMu sync.RWMutex
	table   map[page.ID]int

	nextPageID atomic.Int32
}

// New constructs a page cache of the given size (number of resident frames),
// backed by d, evicting via the given replacer. startPageID seeds the
// monotonic page-id allocator.
func New(d disk.Disk, r *replacer.LRUK, size int, startPageID page.ID) *PageCache {
	frames := make([]*frame, size)
	for i := range frames {
		frames[i] = &frame{}
		frames[i].pg.ID = page.Invalid
	}
	pc := &PageCache{
		d:        d,
		replacer: r,
		frames:   frames,
		free:     newFreeList(size),
		table:    make(map[page.ID]int, size),
	}
	pc.nextPageID.Store(int32(startPageID))
	return pc
}

// NewPage allocates a fresh page id and returns a pin on a zeroed frame for
// it.
func (pc *PageCache) NewPage() (*Pin, error) {
	id := page.ID(pc.nextPageID.Add(1) - 1)
	idx, err := pc.obtainFrame(id)
	if err != nil {
		return nil, err
	}
	f := pc.frames[idx]
	f.mu.Lock()
	f.pg.Reset()
	f.pg.ID = id
	f.mu.Unlock()
	return pc.finishFetch(id, idx)
}

// FetchPage returns a pin on the page with the given id, loading it from
// disk if it is not already resident.
func (pc *PageCache) FetchPage(id page.ID) (*Pin, error) {
	pc.tableMu.RLock()
	idx, resident := pc.table[id]
	pc.tableMu.RUnlock()
	if resident {
		pc.replacer.RecordAccess(idx)
		pc.replacer.Pin(idx)
		return &Pin{cache: pc, frame: idx, id: id}, nil
	}

	idx, err := pc.obtainFrame(id)
	if err != nil {
		return nil, err
	}
	buf, err := pc.d.ReadPage(id)
	if err != nil {
		return nil, fmt.Errorf("cache: fetch page %d: %w", id, err)
	}
	f := pc.frames[idx]
	f.mu.Lock()
	f.pg.Reset()
	f.pg.ID = id
	f.pg.Data = buf
	f.mu.Unlock()
	return pc.finishFetch(id, idx)
}

// obtainFrame finds an available frame index for a page not yet resident:
// from the free list, or by evicting a victim. It does not assign the page
// id into the page table; callers do that via finishFetch after writing
// the frame's contents.
func (pc *PageCache) obtainFrame(id page.ID) (int, error) {
	idx, ok := pc.free.pop()
	if !ok {
		victim, ok := pc.replacer.Evict()
		if !ok {
			slog.Error("cache: out of memory", "requested_page_id", id)
			return 0, ErrOutOfMemory
		}
		idx = victim
		f := pc.frames[idx]
		f.mu.RLock()
		dirty := f.pg.Dirty
		oldID := f.pg.ID
		buf := f.pg.Data
		f.mu.RUnlock()
		if dirty {
			if err := pc.d.WritePage(oldID, buf); err != nil {
				return 0, fmt.Errorf("cache: evict flush page %d: %w", oldID, err)
			}
		}
		pc.tableMu.Lock()
		delete(pc.table, oldID)
		pc.tableMu.Unlock()
	}
	return idx, nil
}

func (pc *PageCache) finishFetch(id page.ID, idx int) (*Pin, error) {
	pc.tableMu.Lock()
	pc.table[id] = idx
	pc.tableMu.Unlock()
	pc.replacer.RecordAccess(idx)
	pc.replacer.Pin(idx)
	return &Pin{cache: pc, frame: idx, id: id}, nil
}

// FlushPage writes the page's bytes to disk if dirty and clears the dirty
// flag.
func (pc *PageCache) FlushPage(id page.ID) error {
	pc.tableMu.RLock()
	idx, ok := pc.table[id]
	pc.tableMu.RUnlock()
	if !ok {
		return nil
	}
	f := pc.frames[idx]
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.pg.Dirty {
		return nil
	}
	if err := pc.d.WritePage(id, f.pg.Data); err != nil {
		return fmt.Errorf("cache: flush page %d: %w", id, err)
	}
	f.pg.Dirty = false
	return nil
}

// FlushAll flushes every dirty resident page. It is used both by explicit
// callers and by background checkpointing (internal/maintenance).
func (pc *PageCache) FlushAll() error {
	pc.tableMu.RLock()
	ids := make([]page.ID, 0, len(pc.table))
	for id := range pc.table {
		ids = append(ids, id)
	}
	pc.tableMu.RUnlock()
	for _, id := range ids {
		if err := pc.FlushPage(id); err != nil {
			return err
		}
	}
	return nil
}

// RemovePage evicts id from the cache immediately, without writing back,
// and returns its frame to the free list.
func (pc *PageCache) RemovePage(id page.ID) error {
	pc.tableMu.Lock()
	idx, ok := pc.table[id]
	if !ok {
		pc.tableMu.Unlock()
		return nil
	}
	delete(pc.table, id)
	pc.tableMu.Unlock()

	f := pc.frames[idx]
	f.mu.Lock()
	f.pg.Reset()
	f.pg.ID = page.Invalid
	f.mu.Unlock()

	pc.replacer.Remove(idx)
	pc.free.push(idx)
	return nil
}
