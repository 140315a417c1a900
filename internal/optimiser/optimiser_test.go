package optimiser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SimonWaldherr/basedb/internal/catalog"
	"github.com/SimonWaldherr/basedb/internal/expr"
	"github.com/SimonWaldherr/basedb/internal/logicalplan"
	"github.com/SimonWaldherr/basedb/internal/storage/cache"
	"github.com/SimonWaldherr/basedb/internal/storage/disk"
	"github.com/SimonWaldherr/basedb/internal/storage/replacer"
	"github.com/SimonWaldherr/basedb/internal/tuple"
)

func newTestTable(t *testing.T) *catalog.TableInfo {
	t.Helper()
	pc := cache.New(disk.NewMem(64), replacer.New(16, 2), 16, 0)
	cat := catalog.New(pc)
	schema := tuple.New([]tuple.Column{{Name: "id", Ty: tuple.Int}})
	info, err := cat.CreateTable("t", schema)
	require.NoError(t, err)
	return info
}

func TestTransformIsIdentity(t *testing.T) {
	info := newTestTable(t)
	plan := logicalplan.NewScan(info)
	require.Same(t, plan, Transform(plan))
}

func TestImplementScanFilterProjectionLimitChain(t *testing.T) {
	info := newTestTable(t)
	_, err := info.Heap.Insert(tuple.NewTupleBuilder().Int(1).Build())
	require.NoError(t, err)
	_, err = info.Heap.Insert(tuple.NewTupleBuilder().Int(2).Build())
	require.NoError(t, err)

	scan := logicalplan.NewScan(info)
	filter := logicalplan.NewFilter(expr.BinaryOp{Left: expr.Ident{Name: "id"}, Op: expr.Gt, Right: expr.Literal{Value: tuple.IntValue(0)}}, scan)
	proj, err := logicalplan.NewProjection([]logicalplan.Item{{Expr: expr.Ident{Name: "id"}}}, filter)
	require.NoError(t, err)
	limit := logicalplan.NewLimit(expr.Literal{Value: tuple.IntValue(1)}, proj)

	op, err := Implement(limit)
	require.NoError(t, err)

	row, ok, err := op.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int32(1), tuple.ValueFrom(row, op.Schema().Columns[0]).Int())

	_, ok, err = op.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestImplementRejectsJoinGroupAggregateSort(t *testing.T) {
	info := newTestTable(t)
	scan := logicalplan.NewScan(info)

	join := logicalplan.NewJoinOn(expr.Literal{Value: tuple.BoolValue(true)}, scan, scan)
	_, err := Implement(join)
	require.ErrorIs(t, err, logicalplan.ErrNotImplemented)

	group := logicalplan.NewGroup([]expr.Expr{expr.Ident{Name: "id"}}, scan)
	_, err = Implement(group)
	require.ErrorIs(t, err, logicalplan.ErrNotImplemented)

	agg := logicalplan.NewAggregate(expr.Function{Name: expr.Count}, nil, scan)
	_, err = Implement(agg)
	require.ErrorIs(t, err, logicalplan.ErrNotImplemented)

	sort := logicalplan.NewSort([]expr.Expr{expr.Ident{Name: "id"}}, false, scan)
	_, err = Implement(sort)
	require.ErrorIs(t, err, logicalplan.ErrNotImplemented)
}

func TestImplementInsertWritesToHeap(t *testing.T) {
	info := newTestTable(t)
	values, err := logicalplan.NewValues([][]expr.Expr{{expr.Literal{Value: tuple.IntValue(7)}}})
	require.NoError(t, err)
	ins, err := logicalplan.NewInsert(info, values)
	require.NoError(t, err)

	op, err := Implement(ins)
	require.NoError(t, err)
	row, ok, err := op.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int32(1), tuple.ValueFrom(row, op.Schema().Columns[0]).Int())
}
