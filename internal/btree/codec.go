package btree

import (
	"encoding/binary"

	"github.com/SimonWaldherr/basedb/internal/storage/page"
	"github.com/SimonWaldherr/basedb/internal/table"
)

// RIDValueCodec encodes/decodes table.RID values, for secondary indexes
// that map an index key to the row's location in its table heap.
func RIDValueCodec() ValueCodec {
	return ValueCodec{
		Size: 8, // page id (int32) + slot id (uint32)
		Encode: func(v any) []byte {
			rid := v.(table.RID)
			var b [8]byte
			binary.BigEndian.PutUint32(b[0:4], uint32(int32(rid.PageID)))
			binary.BigEndian.PutUint32(b[4:8], rid.SlotID)
			return b[:]
		},
		Decode: func(b []byte) any {
			return table.RID{
				PageID: page.ID(int32(binary.BigEndian.Uint32(b[0:4]))),
				SlotID: binary.BigEndian.Uint32(b[4:8]),
			}
		},
	}
}

// IntValueCodec encodes/decodes a plain int32 value, used by scalar-keyed
// test trees (e.g. insert(8, 8)).
func IntValueCodec() ValueCodec {
	return ValueCodec{
		Size: 4,
		Encode: func(v any) []byte {
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], uint32(v.(int32)))
			return b[:]
		},
		Decode: func(b []byte) any {
			return int32(binary.BigEndian.Uint32(b))
		},
	}
}
