package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SimonWaldherr/basedb/internal/storage/cache"
	"github.com/SimonWaldherr/basedb/internal/storage/disk"
	"github.com/SimonWaldherr/basedb/internal/storage/replacer"
	"github.com/SimonWaldherr/basedb/internal/tuple"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	pc := cache.New(disk.NewMem(256), replacer.New(32, 2), 32, 0)
	return New(pc)
}

func personSchema() *tuple.Schema {
	return tuple.New([]tuple.Column{
		{Name: "id", Ty: tuple.Int},
		{Name: "name", Ty: tuple.Varchar},
	})
}

func TestCreateTableThenLookup(t *testing.T) {
	c := newTestCatalog(t)
	info, err := c.CreateTable("people", personSchema())
	require.NoError(t, err)
	require.Equal(t, "people", info.Name)
	require.Equal(t, uint32(1), info.OID)

	got, ok := c.Table("people")
	require.True(t, ok)
	require.Same(t, info, got)
}

func TestCreateTableDuplicateNameFails(t *testing.T) {
	c := newTestCatalog(t)
	_, err := c.CreateTable("people", personSchema())
	require.NoError(t, err)

	_, err = c.CreateTable("people", personSchema())
	require.ErrorIs(t, err, ErrTableExists)
}

func TestTableOIDsAreMonotonic(t *testing.T) {
	c := newTestCatalog(t)
	a, err := c.CreateTable("a", personSchema())
	require.NoError(t, err)
	b, err := c.CreateTable("b", personSchema())
	require.NoError(t, err)
	require.Less(t, a.OID, b.OID)
}

func TestCreateIndexBuildsFromExistingRows(t *testing.T) {
	c := newTestCatalog(t)
	info, err := c.CreateTable("people", personSchema())
	require.NoError(t, err)

	row1 := tuple.NewTupleBuilder().Int(1).Varchar("alice").Build()
	row2 := tuple.NewTupleBuilder().Int(2).Varchar("bob").Build()
	rid1, err := info.Heap.Insert(row1)
	require.NoError(t, err)
	_, err = info.Heap.Insert(row2)
	require.NoError(t, err)

	idx, err := c.CreateIndex("idx_id", "people", []string{"id"})
	require.NoError(t, err)
	require.Equal(t, "people", idx.Table)

	slots, err := idx.Tree.Scan()
	require.NoError(t, err)
	require.Len(t, slots, 2)

	got, ok := c.Index("idx_id")
	require.True(t, ok)
	require.Same(t, idx, got)

	v, found, err := idx.Tree.Get(mustKey(t, idx.KeySchema, tuple.NewTupleBuilder().Int(1).Build()))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, rid1, v)
}

func TestCreateIndexDoesNotSeeLaterInserts(t *testing.T) {
	c := newTestCatalog(t)
	info, err := c.CreateTable("people", personSchema())
	require.NoError(t, err)
	_, err = info.Heap.Insert(tuple.NewTupleBuilder().Int(1).Varchar("alice").Build())
	require.NoError(t, err)

	idx, err := c.CreateIndex("idx_id", "people", []string{"id"})
	require.NoError(t, err)

	_, err = info.Heap.Insert(tuple.NewTupleBuilder().Int(2).Varchar("bob").Build())
	require.NoError(t, err)

	slots, err := idx.Tree.Scan()
	require.NoError(t, err)
	require.Len(t, slots, 1, "index is not maintained incrementally on later writes")
}

func TestCreateIndexOnMissingTableFails(t *testing.T) {
	c := newTestCatalog(t)
	_, err := c.CreateIndex("idx", "nope", []string{"id"})
	require.ErrorIs(t, err, ErrTableNotFound)
}

func TestIndexesOnFiltersByTable(t *testing.T) {
	c := newTestCatalog(t)
	_, err := c.CreateTable("people", personSchema())
	require.NoError(t, err)
	_, err = c.CreateTable("pets", personSchema())
	require.NoError(t, err)
	_, err = c.CreateIndex("idx_people", "people", []string{"id"})
	require.NoError(t, err)

	require.Len(t, c.IndexesOn("people"), 1)
	require.Len(t, c.IndexesOn("pets"), 0)
}

func mustKey(t *testing.T, schema *tuple.Schema, row tuple.Tuple) tupleKey {
	t.Helper()
	fitted := tuple.FitTupleWithSchema(row, schema)
	return tupleKey{schema: schema, tuple: fitted}
}
