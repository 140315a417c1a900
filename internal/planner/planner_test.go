package planner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SimonWaldherr/basedb/internal/catalog"
	"github.com/SimonWaldherr/basedb/internal/logicalplan"
	"github.com/SimonWaldherr/basedb/internal/sqlfrontend"
	"github.com/SimonWaldherr/basedb/internal/storage/cache"
	"github.com/SimonWaldherr/basedb/internal/storage/disk"
	"github.com/SimonWaldherr/basedb/internal/storage/replacer"
)

func newTestPlanner(t *testing.T) (*Planner, *catalog.Catalog) {
	t.Helper()
	pc := cache.New(disk.NewMem(64), replacer.New(16, 2), 16, 0)
	cat := catalog.New(pc)
	return New(cat), cat
}

func mustParse(t *testing.T, sql string) sqlfrontend.Statement {
	t.Helper()
	stmt, err := sqlfrontend.Parse(sql)
	require.NoError(t, err)
	return stmt
}

func TestPlanCreateTableAppliesToCatalog(t *testing.T) {
	pl, cat := newTestPlanner(t)
	plan, err := pl.PlanStatement(mustParse(t, "CREATE TABLE t (id INT)"))
	require.NoError(t, err)
	require.Nil(t, plan)

	_, ok := cat.Table("t")
	require.True(t, ok)
}

func TestPlanCreateIndexAppliesToCatalog(t *testing.T) {
	pl, cat := newTestPlanner(t)
	_, err := pl.PlanStatement(mustParse(t, "CREATE TABLE t (id INT)"))
	require.NoError(t, err)

	plan, err := pl.PlanStatement(mustParse(t, "CREATE INDEX idx ON t (id)"))
	require.NoError(t, err)
	require.Nil(t, plan)

	_, ok := cat.Index("idx")
	require.True(t, ok)
}

func TestPlanInsertRejectsUnknownTable(t *testing.T) {
	pl, _ := newTestPlanner(t)
	_, err := pl.PlanStatement(mustParse(t, "INSERT INTO nope (id) VALUES (1)"))
	require.ErrorIs(t, err, catalog.ErrTableNotFound)
}

func TestPlanInsertBuildsInsertOverValues(t *testing.T) {
	pl, _ := newTestPlanner(t)
	_, err := pl.PlanStatement(mustParse(t, "CREATE TABLE t (id INT)"))
	require.NoError(t, err)

	plan, err := pl.PlanStatement(mustParse(t, "INSERT INTO t (id) VALUES (1), (2)"))
	require.NoError(t, err)
	ins, ok := plan.(*logicalplan.Insert)
	require.True(t, ok)
	require.Equal(t, "t", ins.Table.Name)
}

func TestPlanSelectWildcardExpandsToAllColumns(t *testing.T) {
	pl, _ := newTestPlanner(t)
	_, err := pl.PlanStatement(mustParse(t, "CREATE TABLE t (id INT, name VARCHAR)"))
	require.NoError(t, err)

	plan, err := pl.PlanStatement(mustParse(t, "SELECT * FROM t"))
	require.NoError(t, err)
	require.Len(t, plan.Schema().Columns, 2)
}

func TestPlanSelectRejectsUnknownTable(t *testing.T) {
	pl, _ := newTestPlanner(t)
	_, err := pl.PlanStatement(mustParse(t, "SELECT * FROM nope"))
	require.ErrorIs(t, err, catalog.ErrTableNotFound)
}

func TestPlanSelectWithWhereAndLimitWrapsChain(t *testing.T) {
	pl, _ := newTestPlanner(t)
	_, err := pl.PlanStatement(mustParse(t, "CREATE TABLE t (id INT)"))
	require.NoError(t, err)

	plan, err := pl.PlanStatement(mustParse(t, "SELECT id FROM t WHERE id = 1 LIMIT 5"))
	require.NoError(t, err)
	_, ok := plan.(*logicalplan.Limit)
	require.True(t, ok)
}

func TestPlanSelectJoinUsingDesugarsToEquiJoin(t *testing.T) {
	pl, _ := newTestPlanner(t)
	_, err := pl.PlanStatement(mustParse(t, "CREATE TABLE a (id INT)"))
	require.NoError(t, err)
	_, err = pl.PlanStatement(mustParse(t, "CREATE TABLE b (id INT)"))
	require.NoError(t, err)

	plan, err := pl.PlanStatement(mustParse(t, "SELECT * FROM a JOIN b USING (id)"))
	require.NoError(t, err)
	require.Len(t, plan.Schema().Columns, 2)
}

func TestPlanSelectJoinWithoutOnOrUsingFails(t *testing.T) {
	pl, _ := newTestPlanner(t)
	_, err := pl.PlanStatement(mustParse(t, "CREATE TABLE a (id INT)"))
	require.NoError(t, err)
	_, err = pl.PlanStatement(mustParse(t, "CREATE TABLE b (id INT)"))
	require.NoError(t, err)

	stmt := mustParse(t, "SELECT * FROM a JOIN b ON a.id = b.id").(sqlfrontend.Select)
	stmt.Joins[0].On = nil
	_, err = pl.PlanStatement(stmt)
	require.Error(t, err)
}
