package btree

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SimonWaldherr/basedb/internal/storage/cache"
	"github.com/SimonWaldherr/basedb/internal/storage/disk"
	"github.com/SimonWaldherr/basedb/internal/storage/replacer"
)

func newTestTree(t *testing.T, cacheSize int) *BTree {
	t.Helper()
	pc := cache.New(disk.NewMem(256), replacer.New(cacheSize, 2), cacheSize, 0)
	return New(pc, 4, DecodeIntKey, IntValueCodec())
}

// TestInsertGetScenario reproduces the design spec's B+-tree scenario:
// insert (8, 8), flush all pages, get(8) == Some((8, 8)).
func TestInsertGetScenario(t *testing.T) {
	pc := cache.New(disk.NewMem(256), replacer.New(8, 2), 8, 0)
	bt := New(pc, 4, DecodeIntKey, IntValueCodec())

	ok, err := bt.Insert(IntKey(8), int32(8))
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, pc.FlushAll())

	v, found, err := bt.Get(IntKey(8))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int32(8), v)
}

func TestGetMissingKey(t *testing.T) {
	bt := newTestTree(t, 8)
	_, found, err := bt.Get(IntKey(1))
	require.NoError(t, err)
	require.False(t, found)
}

func TestInsertDuplicateFailsWithoutMutation(t *testing.T) {
	bt := newTestTree(t, 8)
	ok, err := bt.Insert(IntKey(1), int32(100))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = bt.Insert(IntKey(1), int32(200))
	require.NoError(t, err)
	require.False(t, ok)

	v, found, err := bt.Get(IntKey(1))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int32(100), v, "duplicate insert must not mutate the existing value")
}

func TestReplaceUpsertsAndReturnsPrevious(t *testing.T) {
	bt := newTestTree(t, 8)
	_, err := bt.Replace(IntKey(1), int32(100))
	require.NoError(t, err)

	prev, err := bt.Replace(IntKey(1), int32(200))
	require.NoError(t, err)
	require.Equal(t, int32(100), prev)

	v, found, err := bt.Get(IntKey(1))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int32(200), v)
}

// TestScanOrderIndependentOfInsertPermutation inserts several permutations
// of the same key set and checks Scan always returns ascending key order.
func TestScanOrderIndependentOfInsertPermutation(t *testing.T) {
	keys := []int32{50, 10, 90, 30, 70, 20, 60, 80, 40, 5}

	for trial := 0; trial < 5; trial++ {
		perm := append([]int32(nil), keys...)
		rand.New(rand.NewSource(int64(trial))).Shuffle(len(perm), func(i, j int) {
			perm[i], perm[j] = perm[j], perm[i]
		})

		bt := newTestTree(t, 8)
		for _, k := range perm {
			ok, err := bt.Insert(IntKey(k), k)
			require.NoError(t, err)
			require.True(t, ok)
		}

		slots, err := bt.Scan()
		require.NoError(t, err)
		require.Len(t, slots, len(keys))
		for i := 1; i < len(slots); i++ {
			require.LessOrEqual(t, slots[i-1].Key.Compare(slots[i].Key), 0)
		}

		seen := make(map[int32]bool, len(keys))
		for _, s := range slots {
			seen[s.Value.(int32)] = true
		}
		require.Len(t, seen, len(keys))
	}
}

// TestManyInsertsForceSplits inserts enough keys to force several levels
// of node splits, then confirms every key is still retrievable and Scan
// is in ascending order.
func TestManyInsertsForceSplits(t *testing.T) {
	bt := newTestTree(t, 32)

	const n = 500
	for i := 0; i < n; i++ {
		ok, err := bt.Insert(IntKey(i), int32(i*2))
		require.NoError(t, err)
		require.True(t, ok)
	}

	for i := 0; i < n; i++ {
		v, found, err := bt.Get(IntKey(i))
		require.NoError(t, err)
		require.True(t, found, "key %d", i)
		require.Equal(t, int32(i*2), v)
	}

	slots, err := bt.Scan()
	require.NoError(t, err)
	require.Len(t, slots, n)
	for i, s := range slots {
		require.Equal(t, IntKey(i), s.Key)
	}
}

func TestEmptyTreeScanReturnsNil(t *testing.T) {
	bt := newTestTree(t, 4)
	slots, err := bt.Scan()
	require.NoError(t, err)
	require.Empty(t, slots)
}
