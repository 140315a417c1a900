// Package page defines the fixed-size on-disk page format shared by every
// higher layer (table heap, B+-tree index): a 4096-byte buffer identified by
// a 32-bit signed id, with -1 reserved for "invalid".
package page

// Size is the fixed size, in bytes, of every page in the backing file.
const Size = 4096

// ID identifies a page. Negative values, and in particular Invalid, never
// refer to a real page.
type ID int32

// Invalid is the sentinel page id meaning "no page".
const Invalid ID = -1

// Buf is the raw byte buffer backing one page.
type Buf = [Size]byte

// Page is an owned page buffer plus header metadata, guarded by a read/write
// lock so that readers may share access while a single writer is exclusive.
// A Page does not itself know which frame holds it; frames manage that.
type Page struct {
	ID    ID
	Dirty bool
	Data  Buf
}

// Reset clears the page back to its just-allocated state. Notably the id is
// reset to 0, not Invalid -- this mirrors the reference implementation this
// design is based on, where a freshly reset page is considered "page zero"
// until the cache assigns it a real id.
func (p *Page) Reset() {
	p.ID = 0
	p.Dirty = false
	p.Data = Buf{}
}
