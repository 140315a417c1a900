package table

import "github.com/SimonWaldherr/basedb/internal/storage/page"

// RID (record identifier) names a row inside a table heap.
type RID struct {
	PageID page.ID
	SlotID uint32
}
