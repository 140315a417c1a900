// Package eval evaluates scalar expressions against a tuple and its
// schema, producing a tuple.Value.
package eval

import (
	"fmt"
	"strings"

	"github.com/SimonWaldherr/basedb/internal/expr"
	"github.com/SimonWaldherr/basedb/internal/tuple"
)

// Eval evaluates e against t, whose columns are described by schema.
func Eval(e expr.Expr, schema *tuple.Schema, t tuple.Tuple) (tuple.Value, error) {
	switch n := e.(type) {
	case expr.Ident:
		var col tuple.Column
		var ok bool
		if n.Table != "" {
			col, _, ok = schema.FindColumnByNameAndTable(n.Table, n.Name)
		} else {
			col, _, ok = schema.FindColumnByName(n.Name)
		}
		if !ok {
			return tuple.Value{}, fmt.Errorf("eval: unknown column %q", n.String())
		}
		return tuple.ValueFrom(t, col), nil

	case expr.Literal:
		return n.Value, nil

	case expr.IsNull:
		// The engine carries no NULL values: IS NULL is always false and
		// IS NOT NULL is always true.
		return tuple.BoolValue(n.Negated), nil

	case expr.InList:
		v, err := Eval(n.Expr, schema, t)
		if err != nil {
			return tuple.Value{}, err
		}
		found := false
		for _, item := range n.List {
			iv, err := Eval(item, schema, t)
			if err != nil {
				return tuple.Value{}, err
			}
			if v.Compare(iv) == 0 {
				found = true
				break
			}
		}
		return tuple.BoolValue(found != n.Negated), nil

	case expr.Between:
		v, err := Eval(n.Expr, schema, t)
		if err != nil {
			return tuple.Value{}, err
		}
		lo, err := Eval(n.Low, schema, t)
		if err != nil {
			return tuple.Value{}, err
		}
		hi, err := Eval(n.High, schema, t)
		if err != nil {
			return tuple.Value{}, err
		}
		in := v.Compare(lo) >= 0 && v.Compare(hi) <= 0
		return tuple.BoolValue(in != n.Negated), nil

	case expr.BinaryOp:
		return evalBinaryOp(n, schema, t)

	case expr.Function:
		return evalFunction(n, schema, t)

	case expr.Alias:
		return Eval(n.Expr, schema, t)

	default:
		return tuple.Value{}, fmt.Errorf("eval: unsupported expression %T", e)
	}
}

func evalBinaryOp(n expr.BinaryOp, schema *tuple.Schema, t tuple.Tuple) (tuple.Value, error) {
	switch n.Op {
	case expr.And:
		l, err := Eval(n.Left, schema, t)
		if err != nil {
			return tuple.Value{}, err
		}
		if !l.Truthy() {
			return tuple.BoolValue(false), nil
		}
		r, err := Eval(n.Right, schema, t)
		if err != nil {
			return tuple.Value{}, err
		}
		return tuple.BoolValue(r.Truthy()), nil

	case expr.Or:
		l, err := Eval(n.Left, schema, t)
		if err != nil {
			return tuple.Value{}, err
		}
		if l.Truthy() {
			return tuple.BoolValue(true), nil
		}
		r, err := Eval(n.Right, schema, t)
		if err != nil {
			return tuple.Value{}, err
		}
		return tuple.BoolValue(r.Truthy()), nil
	}

	l, err := Eval(n.Left, schema, t)
	if err != nil {
		return tuple.Value{}, err
	}
	r, err := Eval(n.Right, schema, t)
	if err != nil {
		return tuple.Value{}, err
	}
	cmp := l.Compare(r)
	switch n.Op {
	case expr.Eq:
		return tuple.BoolValue(cmp == 0), nil
	case expr.Neq:
		return tuple.BoolValue(cmp != 0), nil
	case expr.Lt:
		return tuple.BoolValue(cmp < 0), nil
	case expr.Le:
		return tuple.BoolValue(cmp <= 0), nil
	case expr.Gt:
		return tuple.BoolValue(cmp > 0), nil
	case expr.Ge:
		return tuple.BoolValue(cmp >= 0), nil
	default:
		return tuple.Value{}, fmt.Errorf("eval: unsupported operator %v", n.Op)
	}
}

func evalFunction(n expr.Function, schema *tuple.Schema, t tuple.Tuple) (tuple.Value, error) {
	switch n.Name {
	case expr.Concat:
		var b strings.Builder
		for _, a := range n.Args {
			v, err := Eval(a, schema, t)
			if err != nil {
				return tuple.Value{}, err
			}
			b.WriteString(v.String())
		}
		return tuple.VarcharValue(b.String()), nil

	case expr.Contains:
		if len(n.Args) != 2 {
			return tuple.Value{}, fmt.Errorf("eval: CONTAINS expects 2 arguments, got %d", len(n.Args))
		}
		haystack, err := Eval(n.Args[0], schema, t)
		if err != nil {
			return tuple.Value{}, err
		}
		needle, err := Eval(n.Args[1], schema, t)
		if err != nil {
			return tuple.Value{}, err
		}
		return tuple.BoolValue(strings.Contains(haystack.Varchar(), needle.Varchar())), nil

	case expr.Count:
		// Outside a Group/Aggregate plan, COUNT sees exactly one row.
		return tuple.IntValue(1), nil

	case expr.Min, expr.Max, expr.Sum, expr.Avg:
		// Outside a Group/Aggregate plan, these aggregates degenerate to
		// their single argument's own value.
		if len(n.Args) != 1 {
			return tuple.Value{}, fmt.Errorf("eval: %v expects 1 argument in scalar context, got %d", n.Name, len(n.Args))
		}
		return Eval(n.Args[0], schema, t)

	default:
		return tuple.Value{}, fmt.Errorf("eval: unknown function %v", n.Name)
	}
}
