// Package optimiser turns a logical plan into an executable physical
// plan. Transform is the hook for rewrite rules (identity for now:
// there is no cost-based search or rule set yet); Implement lowers each
// logical node to its physical operator.
package optimiser

import (
	"fmt"

	"github.com/SimonWaldherr/basedb/internal/eval"
	"github.com/SimonWaldherr/basedb/internal/logicalplan"
	"github.com/SimonWaldherr/basedb/internal/physicalplan"
	"github.com/SimonWaldherr/basedb/internal/tuple"
)

// Transform applies rewrite rules to plan. It is the identity function:
// no transformation rules (predicate pushdown, projection pruning, join
// reordering) are implemented yet.
func Transform(plan logicalplan.Plan) logicalplan.Plan {
	return plan
}

// Implement lowers plan to a tree of physical operators ready for
// execution. Join, Group, Aggregate, and Sort plan nodes are accepted by
// the planner but rejected here with a wrapped logicalplan.ErrNotImplemented,
// since runtime joins, grouping, aggregation, and sorting are out of
// scope for this engine.
func Implement(plan logicalplan.Plan) (physicalplan.Operator, error) {
	switch n := plan.(type) {
	case *logicalplan.Scan:
		return physicalplan.NewScan(n.Table)

	case *logicalplan.Filter:
		input, err := Implement(n.Input)
		if err != nil {
			return nil, err
		}
		return physicalplan.NewFilter(input, n.Expr), nil

	case *logicalplan.Projection:
		input, err := Implement(n.Input)
		if err != nil {
			return nil, err
		}
		items := make([]physicalplan.Item, len(n.Items))
		for i, it := range n.Items {
			items[i] = physicalplan.Item{Expr: it.Expr}
		}
		return physicalplan.NewProjection(input, items, n.Schema()), nil

	case *logicalplan.Values:
		return physicalplan.NewValues(n.Rows, n.Schema()), nil

	case *logicalplan.Insert:
		input, err := Implement(n.Input)
		if err != nil {
			return nil, err
		}
		return physicalplan.NewInsert(input, n.Table.Heap), nil

	case *logicalplan.Limit:
		input, err := Implement(n.Input)
		if err != nil {
			return nil, err
		}
		limitVal, err := eval.Eval(n.Expr, tuple.New(nil), nil)
		if err != nil {
			return nil, fmt.Errorf("optimiser: limit: %w", err)
		}
		return physicalplan.NewLimit(input, int(limitValAsInt(limitVal))), nil

	case *logicalplan.Join:
		return nil, fmt.Errorf("optimiser: JOIN: %w", logicalplan.ErrNotImplemented)
	case *logicalplan.Group:
		return nil, fmt.Errorf("optimiser: GROUP BY: %w", logicalplan.ErrNotImplemented)
	case *logicalplan.Aggregate:
		return nil, fmt.Errorf("optimiser: aggregate function: %w", logicalplan.ErrNotImplemented)
	case *logicalplan.Sort:
		return nil, fmt.Errorf("optimiser: ORDER BY: %w", logicalplan.ErrNotImplemented)

	default:
		return nil, fmt.Errorf("optimiser: unknown plan node %T", plan)
	}
}

func limitValAsInt(v tuple.Value) int64 {
	switch v.Ty {
	case tuple.Int:
		return int64(v.Int())
	case tuple.BigInt:
		return v.BigInt()
	case tuple.TinyInt:
		return int64(v.TinyInt())
	default:
		return 0
	}
}
