// Package planner lowers a parsed SQL statement into a logical plan,
// resolving table and column references against the catalog.
package planner

import (
	"fmt"

	"github.com/SimonWaldherr/basedb/internal/catalog"
	"github.com/SimonWaldherr/basedb/internal/expr"
	"github.com/SimonWaldherr/basedb/internal/logicalplan"
	"github.com/SimonWaldherr/basedb/internal/sqlfrontend"
	"github.com/SimonWaldherr/basedb/internal/tuple"
)

// Planner builds logical plans against a fixed catalog.
type Planner struct {
	cat *catalog.Catalog
}

func New(cat *catalog.Catalog) *Planner { return &Planner{cat: cat} }

// PlanStatement lowers any parsed statement. DDL statements (CreateTable,
// CreateIndex) are executed directly against the catalog and return a
// nil plan, since they have no row-producing shape.
func (p *Planner) PlanStatement(stmt sqlfrontend.Statement) (logicalplan.Plan, error) {
	switch s := stmt.(type) {
	case sqlfrontend.CreateTable:
		return nil, p.planCreateTable(s)
	case sqlfrontend.CreateIndex:
		return nil, p.planCreateIndex(s)
	case sqlfrontend.Insert:
		return p.planInsert(s)
	case sqlfrontend.Select:
		return p.planSelect(s)
	default:
		return nil, fmt.Errorf("planner: unsupported statement %T", stmt)
	}
}

func (p *Planner) planCreateTable(s sqlfrontend.CreateTable) error {
	cols := make([]tuple.Column, len(s.Columns))
	for i, c := range s.Columns {
		cols[i] = tuple.Column{Name: c.Name, Ty: c.Ty}
	}
	_, err := p.cat.CreateTable(s.Table, tuple.New(cols))
	return err
}

func (p *Planner) planCreateIndex(s sqlfrontend.CreateIndex) error {
	_, err := p.cat.CreateIndex(s.Index, s.Table, s.Columns)
	return err
}

func (p *Planner) planInsert(s sqlfrontend.Insert) (logicalplan.Plan, error) {
	tinfo, ok := p.cat.Table(s.Table)
	if !ok {
		return nil, fmt.Errorf("planner: %w: %s", catalog.ErrTableNotFound, s.Table)
	}

	var input logicalplan.Plan
	if s.Select != nil {
		selPlan, err := p.planSelect(*s.Select)
		if err != nil {
			return nil, err
		}
		input = selPlan
	} else {
		values, err := logicalplan.NewValues(s.Values)
		if err != nil {
			return nil, err
		}
		input = values
	}

	ins, err := logicalplan.NewInsert(tinfo, input)
	if err != nil {
		return nil, err
	}
	return ins, nil
}

func (p *Planner) planSelect(s sqlfrontend.Select) (logicalplan.Plan, error) {
	tinfo, ok := p.cat.Table(s.From)
	if !ok {
		return nil, fmt.Errorf("planner: %w: %s", catalog.ErrTableNotFound, s.From)
	}
	var plan logicalplan.Plan = logicalplan.NewScanAlias(tinfo, s.FromAlias)

	for _, j := range s.Joins {
		rtinfo, ok := p.cat.Table(j.Table)
		if !ok {
			return nil, fmt.Errorf("planner: %w: %s", catalog.ErrTableNotFound, j.Table)
		}
		right := logicalplan.Plan(logicalplan.NewScanAlias(rtinfo, j.Alias))
		on := j.On
		if on == nil && len(j.Using) > 0 {
			left, right := s.From, j.Table
			if s.FromAlias != "" {
				left = s.FromAlias
			}
			if j.Alias != "" {
				right = j.Alias
			}
			on = usingToOn(j.Using, left, right)
		}
		if on == nil {
			return nil, fmt.Errorf("planner: JOIN requires ON or USING")
		}
		plan = logicalplan.NewJoinOn(on, plan, right)
	}

	if s.Where != nil {
		plan = logicalplan.NewFilter(s.Where, plan)
	}

	items, err := expandProjection(s.Projection, plan.Schema())
	if err != nil {
		return nil, err
	}
	proj, err := logicalplan.NewProjection(items, plan)
	if err != nil {
		return nil, err
	}
	plan = proj

	if len(s.GroupBy) > 0 {
		plan = logicalplan.NewGroup(s.GroupBy, plan)
	}
	if len(s.OrderBy) > 0 {
		plan = logicalplan.NewSort(s.OrderBy, s.OrderDesc, plan)
	}
	if s.Limit != nil {
		plan = logicalplan.NewLimit(s.Limit, plan)
	}

	return plan, nil
}

// usingToOn desugars "JOIN t2 USING (c1, c2)" into the equivalent
// "ON t1.c1 = t2.c1 AND t1.c2 = t2.c2" form, where t1 is the qualifier of
// the FROM table (its alias, if any) and t2 that of the joined table.
func usingToOn(columns []string, left, right string) expr.Expr {
	var e expr.Expr
	for _, c := range columns {
		cmp := expr.Expr(expr.BinaryOp{Left: expr.Ident{Table: left, Name: c}, Op: expr.Eq, Right: expr.Ident{Table: right, Name: c}})
		if e == nil {
			e = cmp
		} else {
			e = expr.BinaryOp{Left: e, Op: expr.And, Right: cmp}
		}
	}
	return e
}

// expandProjection turns "*" and "t.*" select items into one Item per
// schema column, leaving explicit expressions untouched.
func expandProjection(items []sqlfrontend.SelectItem, schema *tuple.Schema) ([]logicalplan.Item, error) {
	var out []logicalplan.Item
	for _, it := range items {
		switch {
		case it.Wildcard:
			for _, col := range schema.Columns {
				out = append(out, logicalplan.Item{Expr: expr.Ident{Table: col.Table, Name: col.Name}})
			}
		case it.QualifiedWildcard != "":
			for _, col := range schema.Columns {
				if col.Table == it.QualifiedWildcard {
					out = append(out, logicalplan.Item{Expr: expr.Ident{Table: col.Table, Name: col.Name}})
				}
			}
		default:
			out = append(out, logicalplan.Item{Expr: it.Expr, Alias: it.Alias})
		}
	}
	return out, nil
}
