// Package physicalplan implements the Volcano-style pull-iterator
// execution operators: each Operator pulls one row at a time from its
// input(s) via Next, with no buffering beyond a single tuple.
package physicalplan

import (
	"fmt"

	"github.com/SimonWaldherr/basedb/internal/catalog"
	"github.com/SimonWaldherr/basedb/internal/eval"
	"github.com/SimonWaldherr/basedb/internal/expr"
	"github.com/SimonWaldherr/basedb/internal/table"
	"github.com/SimonWaldherr/basedb/internal/tuple"
)

// Operator is one node of the physical execution tree.
type Operator interface {
	// Next returns the next output row, or ok == false once exhausted.
	Next() (tuple.Tuple, bool, error)
	Schema() *tuple.Schema
}

// Scan pulls every row of a table heap, in the snapshot order fixed by
// table.Iterator.
type Scan struct {
	it     *table.Iterator
	schema *tuple.Schema
}

func NewScan(info *catalog.TableInfo) (*Scan, error) {
	it, err := info.Heap.Iter()
	if err != nil {
		return nil, fmt.Errorf("physicalplan: scan %s: %w", info.Name, err)
	}
	return &Scan{it: it, schema: info.Schema}, nil
}

func (s *Scan) Schema() *tuple.Schema { return s.schema }

func (s *Scan) Next() (tuple.Tuple, bool, error) {
	row, ok, err := s.it.Next()
	if err != nil || !ok {
		return nil, false, err
	}
	return tuple.Tuple(row.Tuple), true, nil
}

// Filter drops rows of Input for which Expr is not truthy.
type Filter struct {
	input Operator
	expr  expr.Expr
}

func NewFilter(input Operator, e expr.Expr) *Filter { return &Filter{input: input, expr: e} }

func (f *Filter) Schema() *tuple.Schema { return f.input.Schema() }

func (f *Filter) Next() (tuple.Tuple, bool, error) {
	for {
		t, ok, err := f.input.Next()
		if err != nil || !ok {
			return nil, false, err
		}
		v, err := eval.Eval(f.expr, f.input.Schema(), t)
		if err != nil {
			return nil, false, fmt.Errorf("physicalplan: filter: %w", err)
		}
		if v.Truthy() {
			return t, true, nil
		}
	}
}

// Item is one resolved projection entry: either a straight passthrough
// of an input column (Ident), or an expression evaluated per row.
type Item struct {
	Expr expr.Expr
}

// Projection computes a new row shape from Input, one Item per output
// column.
type Projection struct {
	input  Operator
	items  []Item
	schema *tuple.Schema
}

func NewProjection(input Operator, items []Item, schema *tuple.Schema) *Projection {
	return &Projection{input: input, items: items, schema: schema}
}

func (p *Projection) Schema() *tuple.Schema { return p.schema }

func (p *Projection) Next() (tuple.Tuple, bool, error) {
	t, ok, err := p.input.Next()
	if err != nil || !ok {
		return nil, false, err
	}
	b := tuple.NewTupleBuilder()
	inSchema := p.input.Schema()
	for _, item := range p.items {
		v, err := eval.Eval(item.Expr, inSchema, t)
		if err != nil {
			return nil, false, fmt.Errorf("physicalplan: projection: %w", err)
		}
		b = b.Add(v)
	}
	return b.Build(), true, nil
}

// Values yields one row per entry of Rows, each built by evaluating its
// expressions against an empty input (every entry must be a constant).
type Values struct {
	rows   [][]expr.Expr
	schema *tuple.Schema
	pos    int
}

func NewValues(rows [][]expr.Expr, schema *tuple.Schema) *Values {
	return &Values{rows: rows, schema: schema}
}

func (v *Values) Schema() *tuple.Schema { return v.schema }

func (v *Values) Next() (tuple.Tuple, bool, error) {
	if v.pos >= len(v.rows) {
		return nil, false, nil
	}
	row := v.rows[v.pos]
	v.pos++

	empty := tuple.New(nil)
	b := tuple.NewTupleBuilder()
	for _, e := range row {
		val, err := eval.Eval(e, empty, nil)
		if err != nil {
			return nil, false, fmt.Errorf("physicalplan: values: %w", err)
		}
		b = b.Add(val)
	}
	return b.Build(), true, nil
}

// Insert drains Input, writing every row it produces into Table, and
// yields a single Int(1) row.
type Insert struct {
	input  Operator
	table  *table.List
	schema *tuple.Schema
	done   bool
}

func NewInsert(input Operator, heap *table.List) *Insert {
	return &Insert{
		input:  input,
		table:  heap,
		schema: tuple.New([]tuple.Column{{Name: "ok", Ty: tuple.Int}}),
	}
}

func (i *Insert) Schema() *tuple.Schema { return i.schema }

func (i *Insert) Next() (tuple.Tuple, bool, error) {
	if i.done {
		return nil, false, nil
	}
	i.done = true
	for {
		t, ok, err := i.input.Next()
		if err != nil {
			return nil, false, fmt.Errorf("physicalplan: insert: %w", err)
		}
		if !ok {
			break
		}
		if _, err := i.table.Insert(t); err != nil {
			return nil, false, fmt.Errorf("physicalplan: insert: %w", err)
		}
	}
	return tuple.NewTupleBuilder().Int(1).Build(), true, nil
}

// Limit caps the number of rows Input yields.
type Limit struct {
	input Operator
	limit int
	pos   int
}

func NewLimit(input Operator, limit int) *Limit { return &Limit{input: input, limit: limit} }

func (l *Limit) Schema() *tuple.Schema { return l.input.Schema() }

func (l *Limit) Next() (tuple.Tuple, bool, error) {
	if l.pos >= l.limit {
		return nil, false, nil
	}
	l.pos++
	return l.input.Next()
}
