// Package catalog tracks the tables and indexes that exist in a database:
// their schemas, their underlying heap/tree handles, and the object ids
// used to name them in persisted metadata.
package catalog

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/SimonWaldherr/basedb/internal/btree"
	"github.com/SimonWaldherr/basedb/internal/storage/cache"
	"github.com/SimonWaldherr/basedb/internal/table"
	"github.com/SimonWaldherr/basedb/internal/tuple"
)

// IndexType names the kind of secondary structure backing an index. Only
// BTree is supported; a hash-table index is an explicit non-goal.
type IndexType uint8

const BTreeIndex IndexType = 1

// TableInfo is the catalog's record of one table: its name, its row
// schema, its object id, and a live handle onto its heap.
type TableInfo struct {
	Name   string
	Schema *tuple.Schema
	OID    uint32
	Heap   *table.List
}

// IndexInfo is the catalog's record of one secondary index: the table it
// indexes, the columns it is keyed by (as a schema, so key width and
// column order are unambiguous), and a live handle onto its tree.
type IndexInfo struct {
	Name      string
	Table     string
	KeySchema *tuple.Schema
	OID       uint32
	Ty        IndexType
	Tree      *btree.BTree
}

// keyWidth bounds every indexed tuple key's encoded size. 256 bytes
// comfortably covers any realistic composite key of a handful of fixed
// columns plus a couple of Varchar columns. The tree truncates keys above
// this width, which can cut off a Varchar payload, so every indexed key
// has to fit within it.
const keyWidth = 256

// Catalog is the database's collection of tables and indexes. All methods
// are safe for concurrent use.
type Catalog struct {
	pc *cache.PageCache

	mu      sync.RWMutex
	tables  map[string]*TableInfo
	indexes map[string]*IndexInfo

	nextTableOID atomic.Uint32
	nextIndexOID atomic.Uint32
}

// New creates an empty catalog backed by pc.
func New(pc *cache.PageCache) *Catalog {
	return &Catalog{
		pc:      pc,
		tables:  make(map[string]*TableInfo),
		indexes: make(map[string]*IndexInfo),
	}
}

var ErrTableExists = fmt.Errorf("catalog: table already exists")
var ErrTableNotFound = fmt.Errorf("catalog: table not found")
var ErrIndexExists = fmt.Errorf("catalog: index already exists")
var ErrIndexNotFound = fmt.Errorf("catalog: index not found")

// CreateTable registers a new, empty table named name with the given
// schema, allocating its first heap page.
func (c *Catalog) CreateTable(name string, schema *tuple.Schema) (*TableInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tables[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrTableExists, name)
	}
	heap, err := table.New(c.pc)
	if err != nil {
		return nil, fmt.Errorf("catalog: create table %s: %w", name, err)
	}
	info := &TableInfo{
		Name:   name,
		Schema: schema.Qualify(name),
		OID:    c.nextTableOID.Add(1),
		Heap:   heap,
	}
	c.tables[name] = info
	return info, nil
}

// Table looks up a table by name.
func (c *Catalog) Table(name string) (*TableInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.tables[name]
	return info, ok
}

// Tables returns every registered table, in no particular order.
func (c *Catalog) Tables() []*TableInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*TableInfo, 0, len(c.tables))
	for _, t := range c.tables {
		out = append(out, t)
	}
	return out
}

// CreateIndex builds a new B+-tree index named name over table tableName's
// columns, by doing a single full scan of the table's current contents at
// creation time. Rows inserted into the table afterwards are NOT reflected
// in the index: there is no write-path maintenance hook. This mirrors the
// reference design, where CREATE INDEX is the only moment an index is
// populated.
func (c *Catalog) CreateIndex(name, tableName string, columns []string) (*IndexInfo, error) {
	c.mu.Lock()
	if _, ok := c.indexes[name]; ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrIndexExists, name)
	}
	tinfo, ok := c.tables[tableName]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, tableName)
	}
	c.mu.Unlock()

	keySchema := tinfo.Schema.Filter(columns)
	decodeKey := decodeTupleKeyFor(keySchema)
	tree := btree.New(c.pc, keyWidth, decodeKey, btree.RIDValueCodec())

	it, err := tinfo.Heap.Iter()
	if err != nil {
		return nil, fmt.Errorf("catalog: create index %s: %w", name, err)
	}
	for {
		row, ok, err := it.Next()
		if err != nil {
			return nil, fmt.Errorf("catalog: create index %s: scan: %w", name, err)
		}
		if !ok {
			break
		}
		keyTuple := tuple.FitTupleWithSchema(tuple.Tuple(row.Tuple), keySchema)
		key := tupleKey{schema: keySchema, tuple: keyTuple}
		if _, err := tree.Insert(key, row.RID); err != nil {
			return nil, fmt.Errorf("catalog: create index %s: insert: %w", name, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	info := &IndexInfo{
		Name:      name,
		Table:     tableName,
		KeySchema: keySchema,
		OID:       c.nextIndexOID.Add(1),
		Ty:        BTreeIndex,
		Tree:      tree,
	}
	c.indexes[name] = info
	return info, nil
}

// Index looks up an index by name.
func (c *Catalog) Index(name string) (*IndexInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.indexes[name]
	return info, ok
}

// IndexesOn returns every index defined over tableName.
func (c *Catalog) IndexesOn(tableName string) []*IndexInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*IndexInfo
	for _, idx := range c.indexes {
		if idx.Table == tableName {
			out = append(out, idx)
		}
	}
	return out
}

// tupleKey adapts a (schema, tuple) pair to btree.Key without requiring
// the Comparand wrapper's specific Encode layout -- CreateIndex keys on
// the projected, tail-repacked tuple produced by FitTupleWithSchema.
type tupleKey struct {
	schema *tuple.Schema
	tuple  tuple.Tuple
}

func (k tupleKey) Compare(other btree.Key) int {
	o := other.(tupleKey)
	return tuple.Comparand{Schema: k.schema, Tuple: k.tuple}.Compare(tuple.Comparand{Schema: o.schema, Tuple: o.tuple})
}

func (k tupleKey) Increment() btree.Key {
	c := btree.TupleComparand{Comparand: tuple.Comparand{Schema: k.schema, Tuple: k.tuple}}
	inc := c.Increment().(btree.TupleComparand)
	return tupleKey{schema: inc.Schema, tuple: inc.Tuple}
}

func (k tupleKey) Encode() []byte {
	b := make([]byte, len(k.tuple))
	copy(b, k.tuple)
	return b
}

func decodeTupleKeyFor(schema *tuple.Schema) func([]byte) btree.Key {
	return func(b []byte) btree.Key {
		t := make(tuple.Tuple, len(b))
		copy(t, b)
		return tupleKey{schema: schema, tuple: t}
	}
}
