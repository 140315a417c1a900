// Package logicalplan builds and prints the algebraic operator tree a SQL
// statement is lowered to, before the optimiser turns it into an
// executable physical plan.
package logicalplan

import (
	"errors"
	"fmt"
	"strings"

	"github.com/SimonWaldherr/basedb/internal/catalog"
	"github.com/SimonWaldherr/basedb/internal/expr"
	"github.com/SimonWaldherr/basedb/internal/tuple"
)

// ErrNotImplemented marks a logical node the optimiser knows how to plan
// but cannot yet turn into a physical operator (Join, Group, Aggregate,
// Sort). It is returned at Implement time, not at plan-build time: these
// statements parse and plan successfully.
var ErrNotImplemented = errors.New("logicalplan: not implemented")

// Plan is one node of the logical operator tree.
type Plan interface {
	Schema() *tuple.Schema
	Inputs() []Plan
	String() string
}

func render(p Plan) string {
	var b strings.Builder
	var walk func(p Plan, indent int)
	walk = func(p Plan, indent int) {
		b.WriteString(strings.Repeat("    ", indent))
		b.WriteString(nodeLabel(p))
		b.WriteString("\n")
		for _, in := range p.Inputs() {
			walk(in, indent+1)
		}
	}
	walk(p, 0)
	return b.String()
}

func nodeLabel(p Plan) string {
	switch n := p.(type) {
	case *Scan:
		alias := n.Alias
		return fmt.Sprintf("Scan table=%s alias=%s oid=%d", n.Table.Name, alias, n.Table.OID)
	case *Filter:
		return fmt.Sprintf("Filter [%s]", n.Expr)
	case *Projection:
		parts := make([]string, len(n.Items))
		for i, it := range n.Items {
			parts[i] = it.String()
		}
		return fmt.Sprintf("Projection [%s]", strings.Join(parts, ", "))
	case *Values:
		return fmt.Sprintf("Values rows=%d", len(n.Rows))
	case *Insert:
		return fmt.Sprintf("Insert table=%s", n.Table.Name)
	case *Limit:
		return fmt.Sprintf("Limit %s", n.Expr)
	case *Join:
		return fmt.Sprintf("Join ON %s", n.On)
	case *Group:
		return fmt.Sprintf("Group %v", n.Keys)
	case *Aggregate:
		return fmt.Sprintf("Aggregate %s", n.Func)
	case *Sort:
		dir := "ASC"
		if n.Desc {
			dir = "DESC"
		}
		return fmt.Sprintf("Sort %v %s", n.Exprs, dir)
	default:
		return fmt.Sprintf("%T", p)
	}
}

// Scan reads every row of a table.
type Scan struct {
	Table *catalog.TableInfo
	Alias string
	schema *tuple.Schema
}

func NewScan(table *catalog.TableInfo) *Scan { return NewScanAlias(table, "") }

func NewScanAlias(table *catalog.TableInfo, alias string) *Scan {
	s := table.Schema
	if alias != "" {
		s = s.Qualify(alias)
	}
	return &Scan{Table: table, Alias: alias, schema: s}
}

func (s *Scan) Schema() *tuple.Schema { return s.schema }
func (s *Scan) Inputs() []Plan        { return nil }
func (s *Scan) String() string        { return render(s) }

// Values produces literal rows, one per entry of Rows, each evaluated
// against an empty input tuple.
type Values struct {
	Rows   [][]expr.Expr
	schema *tuple.Schema
}

// NewValues builds a Values node. Column types are inferred from the
// first row's literal expressions; every row must be a Literal.
func NewValues(rows [][]expr.Expr) (*Values, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("logicalplan: VALUES requires at least one row")
	}
	cols := make([]tuple.Column, len(rows[0]))
	for i, e := range rows[0] {
		lit, ok := e.(expr.Literal)
		if !ok {
			return nil, fmt.Errorf("logicalplan: VALUES entries must be literals")
		}
		cols[i] = tuple.Column{Name: fmt.Sprintf("column%d", i+1), Ty: lit.Value.Ty}
	}
	return &Values{Rows: rows, schema: tuple.New(cols)}, nil
}

func (v *Values) Schema() *tuple.Schema { return v.schema }
func (v *Values) Inputs() []Plan        { return nil }
func (v *Values) String() string        { return render(v) }

// Filter keeps only the rows of Input for which Expr evaluates truthy.
type Filter struct {
	Expr  expr.Expr
	Input Plan
}

func NewFilter(e expr.Expr, input Plan) *Filter { return &Filter{Expr: e, Input: input} }

func (f *Filter) Schema() *tuple.Schema { return f.Input.Schema() }
func (f *Filter) Inputs() []Plan        { return []Plan{f.Input} }
func (f *Filter) String() string        { return render(f) }

// Item is one entry of a projection list.
type Item struct {
	Expr  expr.Expr
	Alias string
}

func (i Item) String() string {
	if i.Alias != "" {
		return fmt.Sprintf("%s AS %s", i.Expr, i.Alias)
	}
	return i.Expr.String()
}

// Projection computes a new schema and row shape from Input.
type Projection struct {
	Items  []Item
	Input  Plan
	schema *tuple.Schema
}

// NewProjection resolves each item's output column against input's
// schema (idents and aliases keep their name/alias; other expressions
// get a positional name) and builds the projected schema. Wildcard
// items are not supported here; callers expand "*" before constructing
// a Projection.
func NewProjection(items []Item, input Plan) (*Projection, error) {
	inSchema := input.Schema()
	cols := make([]tuple.Column, 0, len(items))
	for i, it := range items {
		switch e := it.Expr.(type) {
		case expr.Ident:
			var col tuple.Column
			var ok bool
			if e.Table != "" {
				col, _, ok = inSchema.FindColumnByNameAndTable(e.Table, e.Name)
			} else {
				col, _, ok = inSchema.FindColumnByName(e.Name)
			}
			if !ok {
				return nil, fmt.Errorf("logicalplan: unknown column %q", e.String())
			}
			name := col.Name
			if it.Alias != "" {
				name = it.Alias
			}
			cols = append(cols, tuple.Column{Name: name, Ty: col.Ty})
		default:
			name := it.Alias
			if name == "" {
				name = fmt.Sprintf("col%d", i+1)
			}
			cols = append(cols, tuple.Column{Name: name, Ty: exprType(e, inSchema)})
		}
	}
	return &Projection{Items: items, Input: input, schema: tuple.New(cols)}, nil
}

func (p *Projection) Schema() *tuple.Schema { return p.schema }
func (p *Projection) Inputs() []Plan        { return []Plan{p.Input} }
func (p *Projection) String() string        { return render(p) }

func exprType(e expr.Expr, schema *tuple.Schema) tuple.Type {
	switch n := e.(type) {
	case expr.Literal:
		return n.Value.Ty
	case expr.Ident:
		col, _, ok := schema.FindColumnByName(n.Name)
		if ok {
			return col.Ty
		}
		return tuple.Int
	case expr.IsNull, expr.InList, expr.Between, expr.BinaryOp:
		return tuple.Bool
	case expr.Function:
		if n.Name == expr.Concat {
			return tuple.Varchar
		}
		if n.Name == expr.Contains {
			return tuple.Bool
		}
		return tuple.Int
	default:
		return tuple.Int
	}
}

// Insert writes every row produced by Input into Table, and produces a
// single-column ("ok") result row holding Int(1).
type Insert struct {
	Table  *catalog.TableInfo
	Input  Plan
	schema *tuple.Schema
}

func NewInsert(table *catalog.TableInfo, input Plan) (*Insert, error) {
	return &Insert{Table: table, Input: input, schema: tuple.New([]tuple.Column{{Name: "ok", Ty: tuple.Int}})}, nil
}

func (i *Insert) Schema() *tuple.Schema { return i.schema }
func (i *Insert) Inputs() []Plan        { return []Plan{i.Input} }
func (i *Insert) String() string        { return render(i) }

// Limit caps the number of rows Input yields.
type Limit struct {
	Expr  expr.Expr
	Input Plan
}

func NewLimit(e expr.Expr, input Plan) *Limit { return &Limit{Expr: e, Input: input} }

func (l *Limit) Schema() *tuple.Schema { return l.Input.Schema() }
func (l *Limit) Inputs() []Plan        { return []Plan{l.Input} }
func (l *Limit) String() string        { return render(l) }

// Join, Group, Aggregate, and Sort build and print but are rejected by
// the optimiser's Implement step: runtime joins, grouping, aggregation,
// and sorting are out of scope for this engine.

type Join struct {
	On          expr.Expr
	Left, Right Plan
	schema      *tuple.Schema
}

func NewJoinOn(e expr.Expr, left, right Plan) *Join {
	return &Join{On: e, Left: left, Right: right, schema: left.Schema().Join(right.Schema())}
}

func (j *Join) Schema() *tuple.Schema { return j.schema }
func (j *Join) Inputs() []Plan        { return []Plan{j.Left, j.Right} }
func (j *Join) String() string        { return render(j) }

type Group struct {
	Keys  []expr.Expr
	Input Plan
}

func NewGroup(keys []expr.Expr, input Plan) *Group { return &Group{Keys: keys, Input: input} }

func (g *Group) Schema() *tuple.Schema { return g.Input.Schema() }
func (g *Group) Inputs() []Plan        { return []Plan{g.Input} }
func (g *Group) String() string        { return render(g) }

type Aggregate struct {
	Func  expr.Expr
	Keys  []expr.Expr
	Input Plan
}

func NewAggregate(fn expr.Expr, keys []expr.Expr, input Plan) *Aggregate {
	return &Aggregate{Func: fn, Keys: keys, Input: input}
}

func (a *Aggregate) Schema() *tuple.Schema { return a.Input.Schema() }
func (a *Aggregate) Inputs() []Plan        { return []Plan{a.Input} }
func (a *Aggregate) String() string        { return render(a) }

type Sort struct {
	Exprs []expr.Expr
	Desc  bool
	Input Plan
}

func NewSort(exprs []expr.Expr, desc bool, input Plan) *Sort {
	return &Sort{Exprs: exprs, Desc: desc, Input: input}
}

func (s *Sort) Schema() *tuple.Schema { return s.Input.Schema() }
func (s *Sort) Inputs() []Plan        { return []Plan{s.Input} }
func (s *Sort) String() string        { return render(s) }
