package cache

import (
	"fmt"

	"github.com/SimonWaldherr/basedb/internal/storage/page"
)

// Pin is a short-lived handle on a resident frame. While any pin on a frame
// is live, that frame is non-evictable. Callers must call Unpin when done;
// forgetting to do so leaks frames (no finalizer recovers a lost pin).
type Pin struct {
	cache *PageCache
	frame int
	id    page.ID
}

// ID returns the page id this pin holds.
func (p *Pin) ID() page.ID { return p.id }

// ReadGuard is a read lock on the pinned page's bytes.
type ReadGuard struct {
	pin *Pin
	buf *page.Buf
}

// Bytes returns the page's current byte buffer. The returned pointer is
// only valid until Unlock.
func (g *ReadGuard) Bytes() *page.Buf { return g.buf }

// Unlock releases the read lock.
func (g *ReadGuard) Unlock() { g.pin.cache.frames[g.pin.frame].mu.RUnlock() }

// WriteGuard is a write lock on the pinned page's bytes.
type WriteGuard struct {
	pin *Pin
	buf *page.Buf
}

// Bytes returns the page's mutable byte buffer. The returned pointer is
// only valid until Unlock.
func (g *WriteGuard) Bytes() *page.Buf { return g.buf }

// Unlock marks the page dirty and releases the write lock.
func (g *WriteGuard) Unlock() {
	f := g.pin.cache.frames[g.pin.frame]
	f.pg.Dirty = true
	f.mu.Unlock()
}

// Read acquires the frame's read lock. The caller must call Unlock on the
// returned guard.
func (p *Pin) Read() *ReadGuard {
	f := p.cache.frames[p.frame]
	f.mu.RLock()
	return &ReadGuard{pin: p, buf: &f.pg.Data}
}

// Write acquires the frame's write lock. It panics if the frame no longer
// holds the page this pin was issued for -- that indicates the cache
// repurposed a pinned frame, which is a core bug, not a caller error.
func (p *Pin) Write() *WriteGuard {
	f := p.cache.frames[p.frame]
	f.mu.Lock()
	if f.pg.ID != p.id {
		id := f.pg.ID
		f.mu.Unlock()
		panic(fmt.Sprintf("cache: pin invariant violated: frame %d holds page %d, pin expects %d", p.frame, id, p.id))
	}
	return &WriteGuard{pin: p, buf: &f.pg.Data}
}

// Unpin releases this pin, allowing the frame to become evictable once its
// pin count reaches zero.
func (p *Pin) Unpin() {
	p.cache.replacer.Unpin(p.frame)
}
