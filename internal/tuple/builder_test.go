package tuple

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilderRoundTrip(t *testing.T) {
	schema := New([]Column{
		{Name: "id", Ty: Int},
		{Name: "name", Ty: Varchar},
		{Name: "flag", Ty: Bool},
		{Name: "big", Ty: BigInt},
		{Name: "tiny", Ty: TinyInt},
	})

	built := NewTupleBuilder().
		Int(42).
		Varchar("hello world").
		Bool(true).
		BigInt(-9).
		TinyInt(5).
		Build()

	require.Equal(t, int32(42), ValueFrom(built, schema.Columns[0]).Int())
	require.Equal(t, "hello world", ValueFrom(built, schema.Columns[1]).Varchar())
	require.True(t, ValueFrom(built, schema.Columns[2]).Bool())
	require.Equal(t, int64(-9), ValueFrom(built, schema.Columns[3]).BigInt())
	require.Equal(t, int8(5), ValueFrom(built, schema.Columns[4]).TinyInt())
}

func TestBuilderMultipleVarcharsRoundTrip(t *testing.T) {
	schema := New([]Column{
		{Name: "a", Ty: Varchar},
		{Name: "b", Ty: Varchar},
	})
	built := NewTupleBuilder().Varchar("first").Varchar("second, longer").Build()

	require.Equal(t, "first", ValueFrom(built, schema.Columns[0]).Varchar())
	require.Equal(t, "second, longer", ValueFrom(built, schema.Columns[1]).Varchar())
}

func TestBuilderEmptyVarchar(t *testing.T) {
	schema := New([]Column{{Name: "a", Ty: Varchar}})
	built := NewTupleBuilder().Varchar("").Build()
	require.Equal(t, "", ValueFrom(built, schema.Columns[0]).Varchar())
}

func TestBuilderAddDispatchesByType(t *testing.T) {
	schema := New([]Column{{Name: "a", Ty: Int}, {Name: "b", Ty: Varchar}})
	built := NewTupleBuilder().Add(IntValue(7)).Add(VarcharValue("x")).Build()
	require.Equal(t, int32(7), ValueFrom(built, schema.Columns[0]).Int())
	require.Equal(t, "x", ValueFrom(built, schema.Columns[1]).Varchar())
}

func TestFitTupleWithSchemaProjectsNarrower(t *testing.T) {
	wide := New([]Column{
		{Name: "id", Ty: Int},
		{Name: "name", Ty: Varchar},
		{Name: "extra", Ty: BigInt},
	})
	row := NewTupleBuilder().Int(1).Varchar("abc").BigInt(99).Build()

	narrow := wide.Filter([]string{"name"})
	fitted := FitTupleWithSchema(row, narrow)

	require.Equal(t, "abc", ValueFrom(fitted, narrow.Columns[0]).Varchar())
}

func TestFitTupleWithSchemaSelfContained(t *testing.T) {
	wide := New([]Column{
		{Name: "id", Ty: Int},
		{Name: "name", Ty: Varchar},
	})
	row := NewTupleBuilder().Int(5).Varchar("a value").Build()

	narrow := wide.Filter([]string{"id", "name"})
	fitted := FitTupleWithSchema(row, narrow)

	// The fitted tuple must be independently decodable: its own bytes
	// contain both the fixed region and the varchar payload.
	require.Equal(t, int32(5), ValueFrom(fitted, narrow.Columns[0]).Int())
	require.Equal(t, "a value", ValueFrom(fitted, narrow.Columns[1]).Varchar())
	require.LessOrEqual(t, len(fitted), len(row))
}
