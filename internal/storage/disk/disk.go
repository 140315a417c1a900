// Package disk implements the positional read/write contract for a dense
// file of fixed-size pages: page i lives at byte offset i*page.Size. There is
// no caching or locking at this layer -- that is the page cache's job.
package disk

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/SimonWaldherr/basedb/internal/storage/page"
)

// Disk is the positional page store contract. Implementations must be safe
// for concurrent use by multiple goroutines.
type Disk interface {
	// ReadPage returns the Size bytes of page id, or all-zero bytes if the
	// page has never been written.
	ReadPage(id page.ID) (page.Buf, error)
	// WritePage writes buf to page id. Writing a negative id is a caller
	// bug: it is logged and otherwise ignored, matching the reference
	// design's "log and no-op" contract rather than returning an error.
	WritePage(id page.ID, buf page.Buf) error
	// Close releases any underlying OS resources.
	Close() error
}

// File is a file-backed Disk using positional pread/pwrite so that readers
// and writers never need to share a single *os.File offset.
type File struct {
	f *os.File
}

// NewFile opens (creating if necessary) path as a page-addressable file.
func NewFile(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("disk: open %s: %w", path, err)
	}
	return &File{f: f}, nil
}

func (d *File) ReadPage(id page.ID) (page.Buf, error) {
	var buf page.Buf
	if id < 0 {
		slog.Warn("disk: read of invalid page id", "page_id", id)
		return buf, nil
	}
	off := int64(id) * page.Size
	n, err := d.f.ReadAt(buf[:], off)
	if err != nil && err != io.EOF {
		return buf, fmt.Errorf("disk: read page %d: %w", id, err)
	}
	// Short or missing reads (page never written) are zero-filled; buf is
	// already zero-valued beyond n.
	_ = n
	return buf, nil
}

func (d *File) WritePage(id page.ID, buf page.Buf) error {
	if id < 0 {
		slog.Warn("disk: write of invalid page id ignored", "page_id", id)
		return nil
	}
	off := int64(id) * page.Size
	if _, err := d.f.WriteAt(buf[:], off); err != nil {
		return fmt.Errorf("disk: write page %d: %w", id, err)
	}
	return nil
}

func (d *File) Close() error {
	if err := d.f.Close(); err != nil {
		return fmt.Errorf("disk: close: %w", err)
	}
	return nil
}

// Mem is a memory-backed Disk for tests: a map of page id to page bytes
// protected by a mutex, with no actual file I/O.
type Mem struct {
	mu    sync.Mutex
	pages map[page.ID]page.Buf
}

// NewMem constructs an empty in-memory disk. capacityHint pre-sizes the
// backing map; it is advisory only, matching the reference design's fixed
// "N pages of disk" test setups.
func NewMem(capacityHint int) *Mem {
	return &Mem{pages: make(map[page.ID]page.Buf, capacityHint)}
}

func (d *Mem) ReadPage(id page.ID) (page.Buf, error) {
	var buf page.Buf
	if id < 0 {
		slog.Warn("disk: read of invalid page id", "page_id", id)
		return buf, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.pages[id]; ok {
		return b, nil
	}
	return buf, nil
}

func (d *Mem) WritePage(id page.ID, buf page.Buf) error {
	if id < 0 {
		slog.Warn("disk: write of invalid page id ignored", "page_id", id)
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pages[id] = buf
	return nil
}

func (d *Mem) Close() error { return nil }
