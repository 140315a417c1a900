// Package execution drains a physical operator tree to completion,
// respecting context cancellation at the per-row boundary.
package execution

import (
	"context"
	"fmt"

	"github.com/SimonWaldherr/basedb/internal/physicalplan"
	"github.com/SimonWaldherr/basedb/internal/tuple"
)

// Execute pulls every row out of root and returns them as a slice. The
// engine has no resumable cursor: a full statement is always run to
// completion in one call.
func Execute(ctx context.Context, root physicalplan.Operator) ([]tuple.Tuple, error) {
	var out []tuple.Tuple
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("execution: %w", err)
		}
		t, ok, err := root.Next()
		if err != nil {
			return nil, fmt.Errorf("execution: %w", err)
		}
		if !ok {
			return out, nil
		}
		out = append(out, t)
	}
}
