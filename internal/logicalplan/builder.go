package logicalplan

import (
	"github.com/SimonWaldherr/basedb/internal/catalog"
	"github.com/SimonWaldherr/basedb/internal/expr"
)

// Builder assembles a Plan fluently, mirroring how the planner lowers one
// SQL clause at a time.
type Builder struct {
	root Plan
	err  error
}

func NewScanBuilder(table *catalog.TableInfo) *Builder {
	return &Builder{root: NewScan(table)}
}

func NewScanAliasBuilder(table *catalog.TableInfo, alias string) *Builder {
	return &Builder{root: NewScanAlias(table, alias)}
}

func NewValuesBuilder(rows [][]expr.Expr) *Builder {
	v, err := NewValues(rows)
	if err != nil {
		return &Builder{err: err}
	}
	return &Builder{root: v}
}

func (b *Builder) Build() (Plan, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.root, nil
}

func (b *Builder) Filter(e expr.Expr) *Builder {
	if b.err != nil {
		return b
	}
	return &Builder{root: NewFilter(e, b.root)}
}

func (b *Builder) Project(items []Item) *Builder {
	if b.err != nil {
		return b
	}
	p, err := NewProjection(items, b.root)
	if err != nil {
		return &Builder{err: err}
	}
	return &Builder{root: p}
}

func (b *Builder) JoinOn(rhs Plan, on expr.Expr) *Builder {
	if b.err != nil {
		return b
	}
	return &Builder{root: NewJoinOn(on, b.root, rhs)}
}

func (b *Builder) Group(keys []expr.Expr) *Builder {
	if b.err != nil {
		return b
	}
	return &Builder{root: NewGroup(keys, b.root)}
}

func (b *Builder) Aggregate(fn expr.Expr, keys []expr.Expr) *Builder {
	if b.err != nil {
		return b
	}
	return &Builder{root: NewAggregate(fn, keys, b.root)}
}

func (b *Builder) Sort(exprs []expr.Expr, desc bool) *Builder {
	if b.err != nil {
		return b
	}
	return &Builder{root: NewSort(exprs, desc, b.root)}
}

func (b *Builder) Limit(e expr.Expr) *Builder {
	if b.err != nil {
		return b
	}
	return &Builder{root: NewLimit(e, b.root)}
}

func (b *Builder) Insert(table *catalog.TableInfo) *Builder {
	if b.err != nil {
		return b
	}
	ins, err := NewInsert(table, b.root)
	if err != nil {
		return &Builder{err: err}
	}
	return &Builder{root: ins}
}
