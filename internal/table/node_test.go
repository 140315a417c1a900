package table

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SimonWaldherr/basedb/internal/storage/page"
)

func TestNewNodeIsEmpty(t *testing.T) {
	var buf page.Buf
	n := NewNode(&buf)
	require.Equal(t, uint32(0), n.TuplesLen())
	require.Equal(t, uint32(0), n.DeletedTuplesLen())
	require.Equal(t, page.Invalid, n.NextPageID())
}

func TestNodeInsertAndGetRoundTrip(t *testing.T) {
	var buf page.Buf
	n := NewNode(&buf)

	slotID, ok := n.Insert([]byte("row one"), TupleMeta{})
	require.True(t, ok)
	require.Equal(t, uint32(0), slotID)

	meta, got, ok := n.Get(slotID)
	require.True(t, ok)
	require.False(t, meta.Deleted)
	require.Equal(t, []byte("row one"), got)
}

func TestNodeInsertAppendsSlotsForward(t *testing.T) {
	var buf page.Buf
	n := NewNode(&buf)

	id0, _ := n.Insert([]byte("a"), TupleMeta{})
	id1, _ := n.Insert([]byte("bb"), TupleMeta{})
	id2, _ := n.Insert([]byte("ccc"), TupleMeta{})
	require.Equal(t, []uint32{0, 1, 2}, []uint32{id0, id1, id2})
	require.Equal(t, uint32(3), n.TuplesLen())

	_, got0, _ := n.Get(id0)
	_, got1, _ := n.Get(id1)
	_, got2, _ := n.Get(id2)
	require.Equal(t, []byte("a"), got0)
	require.Equal(t, []byte("bb"), got1)
	require.Equal(t, []byte("ccc"), got2)
}

func TestNodeInsertFailsWhenFull(t *testing.T) {
	var buf page.Buf
	n := NewNode(&buf)

	// Two copies fit beside the header and two slots; a third does not.
	big := make([]byte, page.Size/3)
	_, ok := n.Insert(big, TupleMeta{})
	require.True(t, ok)
	_, ok = n.Insert(big, TupleMeta{})
	require.True(t, ok)
	// A third copy cannot possibly fit.
	_, ok = n.Insert(big, TupleMeta{})
	require.False(t, ok)
}

func TestNodeDeleteTombstonesInPlace(t *testing.T) {
	var buf page.Buf
	n := NewNode(&buf)
	slotID, _ := n.Insert([]byte("gone soon"), TupleMeta{})

	require.True(t, n.Delete(slotID))
	meta, got, ok := n.Get(slotID)
	require.True(t, ok)
	require.True(t, meta.Deleted)
	require.Equal(t, []byte("gone soon"), got) // bytes remain, only tombstoned
	require.Equal(t, uint32(1), n.DeletedTuplesLen())
}

func TestNodeDeleteUnknownSlotFails(t *testing.T) {
	var buf page.Buf
	n := NewNode(&buf)
	require.False(t, n.Delete(0))
}

func TestNodeNextPageIDRoundTrip(t *testing.T) {
	var buf page.Buf
	n := NewNode(&buf)
	n.SetNextPageID(page.ID(42))
	require.Equal(t, page.ID(42), n.NextPageID())

	// FromBuf wraps the same bytes and sees the same state.
	n2 := FromBuf(&buf)
	require.Equal(t, page.ID(42), n2.NextPageID())
}
