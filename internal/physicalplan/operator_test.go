package physicalplan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SimonWaldherr/basedb/internal/catalog"
	"github.com/SimonWaldherr/basedb/internal/expr"
	"github.com/SimonWaldherr/basedb/internal/storage/cache"
	"github.com/SimonWaldherr/basedb/internal/storage/disk"
	"github.com/SimonWaldherr/basedb/internal/storage/replacer"
	"github.com/SimonWaldherr/basedb/internal/tuple"
)

func newCatalogForTest(t *testing.T) *catalog.Catalog {
	t.Helper()
	pc := cache.New(disk.NewMem(64), replacer.New(16, 2), 16, 0)
	return catalog.New(pc)
}

func drainAll(t *testing.T, op Operator) []tuple.Tuple {
	t.Helper()
	var out []tuple.Tuple
	for {
		row, ok, err := op.Next()
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, row)
	}
}

func TestScanYieldsInsertedRows(t *testing.T) {
	cat := newCatalogForTest(t)
	schema := tuple.New([]tuple.Column{{Name: "id", Ty: tuple.Int}})
	info, err := cat.CreateTable("t", schema)
	require.NoError(t, err)

	_, err = info.Heap.Insert(tuple.NewTupleBuilder().Int(1).Build())
	require.NoError(t, err)
	_, err = info.Heap.Insert(tuple.NewTupleBuilder().Int(2).Build())
	require.NoError(t, err)

	scan, err := NewScan(info)
	require.NoError(t, err)
	rows := drainAll(t, scan)
	require.Len(t, rows, 2)
	require.Equal(t, int32(1), tuple.ValueFrom(rows[0], info.Schema.Columns[0]).Int())
	require.Equal(t, int32(2), tuple.ValueFrom(rows[1], info.Schema.Columns[0]).Int())
}

func TestFilterDropsFalsyRows(t *testing.T) {
	cat := newCatalogForTest(t)
	schema := tuple.New([]tuple.Column{{Name: "c1", Ty: tuple.Int}, {Name: "c2", Ty: tuple.Int}})
	info, err := cat.CreateTable("t", schema)
	require.NoError(t, err)
	_, err = info.Heap.Insert(tuple.NewTupleBuilder().Int(1).Int(1).Build())
	require.NoError(t, err)
	_, err = info.Heap.Insert(tuple.NewTupleBuilder().Int(1).Int(2).Build())
	require.NoError(t, err)

	scan, err := NewScan(info)
	require.NoError(t, err)
	filter := NewFilter(scan, expr.BinaryOp{Left: expr.Ident{Name: "c1"}, Op: expr.Eq, Right: expr.Ident{Name: "c2"}})

	rows := drainAll(t, filter)
	require.Len(t, rows, 1)
	require.Equal(t, int32(1), tuple.ValueFrom(rows[0], info.Schema.Columns[0]).Int())
	require.Equal(t, int32(1), tuple.ValueFrom(rows[0], info.Schema.Columns[1]).Int())
}

// TestProjectionQualifiedColumnsOverJoinedSchema reproduces the design
// spec's projection scenario: schema {t1.c1 Int, t1.c2 Varchar, t2.c1 Int},
// tuple (1, "x", 2), projection [t1.*, t2.c1] yields (1, "x", 2). The
// physical Projection only sees wildcards after the planner has expanded
// them, so t1.* is supplied here as its expansion t1.c1, t1.c2.
func TestProjectionQualifiedColumnsOverJoinedSchema(t *testing.T) {
	t1Schema := tuple.New([]tuple.Column{{Name: "c1", Ty: tuple.Int}, {Name: "c2", Ty: tuple.Varchar}}).Qualify("t1")
	t2Schema := tuple.New([]tuple.Column{{Name: "c1", Ty: tuple.Int}}).Qualify("t2")
	joined := t1Schema.Join(t2Schema)

	row := tuple.NewTupleBuilder().Int(1).Varchar("x").Int(2).Build()

	items := []Item{
		{Expr: expr.Ident{Table: "t1", Name: "c1"}},
		{Expr: expr.Ident{Table: "t1", Name: "c2"}},
		{Expr: expr.Ident{Table: "t2", Name: "c1"}},
	}
	outSchema := tuple.New([]tuple.Column{
		{Name: "c1", Ty: tuple.Int},
		{Name: "c2", Ty: tuple.Varchar},
		{Name: "c1", Ty: tuple.Int},
	})

	values := &fixedInput{schema: joined, rows: []tuple.Tuple{row}}
	proj := NewProjection(values, items, outSchema)

	rows := drainAll(t, proj)
	require.Len(t, rows, 1)
	require.Equal(t, int32(1), tuple.ValueFrom(rows[0], outSchema.Columns[0]).Int())
	require.Equal(t, "x", tuple.ValueFrom(rows[0], outSchema.Columns[1]).Varchar())
	require.Equal(t, int32(2), tuple.ValueFrom(rows[0], outSchema.Columns[2]).Int())
}

// fixedInput is a minimal Operator over a fixed row slice, used to drive
// Projection tests without needing a full table/catalog setup.
type fixedInput struct {
	schema *tuple.Schema
	rows   []tuple.Tuple
	pos    int
}

func (f *fixedInput) Schema() *tuple.Schema { return f.schema }
func (f *fixedInput) Next() (tuple.Tuple, bool, error) {
	if f.pos >= len(f.rows) {
		return nil, false, nil
	}
	row := f.rows[f.pos]
	f.pos++
	return row, true, nil
}

func TestValuesEvaluatesConstants(t *testing.T) {
	schema := tuple.New([]tuple.Column{{Name: "a", Ty: tuple.Int}, {Name: "b", Ty: tuple.Varchar}})
	rows := [][]expr.Expr{
		{expr.Literal{Value: tuple.IntValue(1)}, expr.Literal{Value: tuple.VarcharValue("x")}},
		{expr.Literal{Value: tuple.IntValue(2)}, expr.Literal{Value: tuple.VarcharValue("y")}},
	}
	v := NewValues(rows, schema)
	got := drainAll(t, v)
	require.Len(t, got, 2)
	require.Equal(t, int32(1), tuple.ValueFrom(got[0], schema.Columns[0]).Int())
	require.Equal(t, "y", tuple.ValueFrom(got[1], schema.Columns[1]).Varchar())
}

func TestInsertWritesRowsAndYieldsOneOkRow(t *testing.T) {
	cat := newCatalogForTest(t)
	schema := tuple.New([]tuple.Column{{Name: "a", Ty: tuple.Int}})
	info, err := cat.CreateTable("t", schema)
	require.NoError(t, err)

	rows := [][]expr.Expr{
		{expr.Literal{Value: tuple.IntValue(1)}},
		{expr.Literal{Value: tuple.IntValue(2)}},
		{expr.Literal{Value: tuple.IntValue(3)}},
	}
	values := NewValues(rows, schema)
	ins := NewInsert(values, info.Heap)

	out := drainAll(t, ins)
	require.Len(t, out, 1)
	require.Equal(t, int32(1), tuple.ValueFrom(out[0], ins.Schema().Columns[0]).Int())

	it, err := info.Heap.Iter()
	require.NoError(t, err)
	count := 0
	for {
		_, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		count++
	}
	require.Equal(t, 3, count)
}

func TestLimitCapsRows(t *testing.T) {
	schema := tuple.New([]tuple.Column{{Name: "a", Ty: tuple.Int}})
	rows := make([][]expr.Expr, 10)
	for i := range rows {
		rows[i] = []expr.Expr{expr.Literal{Value: tuple.IntValue(int32(i))}}
	}
	values := NewValues(rows, schema)
	limit := NewLimit(values, 3)

	got := drainAll(t, limit)
	require.Len(t, got, 3)
	require.Equal(t, int32(0), tuple.ValueFrom(got[0], schema.Columns[0]).Int())
	require.Equal(t, int32(2), tuple.ValueFrom(got[2], schema.Columns[0]).Int())
}
