// Package expr defines the scalar expression tree shared by the SQL
// frontend, the logical planner, and the tuple evaluator: a single AST
// walked by every stage, rather than a separate type per layer.
package expr

import (
	"fmt"
	"strings"

	"github.com/SimonWaldherr/basedb/internal/tuple"
)

// Expr is a scalar expression node.
type Expr interface {
	String() string
}

// Ident references a column, optionally qualified by a table name (as
// produced by "t1.c1").
type Ident struct {
	Table string
	Name  string
}

func (i Ident) String() string {
	if i.Table != "" {
		return i.Table + "." + i.Name
	}
	return i.Name
}

// Literal wraps a constant tuple.Value.
type Literal struct {
	Value tuple.Value
}

func (l Literal) String() string {
	if l.Value.Ty == tuple.Varchar {
		return "'" + l.Value.Varchar() + "'"
	}
	return l.Value.String()
}

// Op is a binary comparison or boolean connective.
type Op int

const (
	Eq Op = iota
	Neq
	Lt
	Le
	Gt
	Ge
	And
	Or
)

func (o Op) String() string {
	switch o {
	case Eq:
		return "="
	case Neq:
		return "!="
	case Lt:
		return "<"
	case Le:
		return "<="
	case Gt:
		return ">"
	case Ge:
		return ">="
	case And:
		return "AND"
	case Or:
		return "OR"
	default:
		return "?"
	}
}

// BinaryOp is a two-operand expression: comparisons and boolean
// connectives.
type BinaryOp struct {
	Left  Expr
	Op    Op
	Right Expr
}

func (b BinaryOp) String() string {
	return fmt.Sprintf("%s %s %s", b.Left, b.Op, b.Right)
}

// IsNull tests an expression's nullness (negated for IS NOT NULL). Since
// the engine carries no NULL values, this always evaluates to a constant:
// false for IsNull, true for IS NOT NULL.
type IsNull struct {
	Expr    Expr
	Negated bool
}

func (n IsNull) String() string {
	if n.Negated {
		return fmt.Sprintf("%s IS NOT NULL", n.Expr)
	}
	return fmt.Sprintf("%s IS NULL", n.Expr)
}

// InList tests expr's membership in a literal list.
type InList struct {
	Expr    Expr
	List    []Expr
	Negated bool
}

func (n InList) String() string {
	parts := make([]string, len(n.List))
	for i, e := range n.List {
		parts[i] = e.String()
	}
	not := ""
	if n.Negated {
		not = "NOT "
	}
	return fmt.Sprintf("%s %sIN (%s)", n.Expr, not, strings.Join(parts, ", "))
}

// Between tests whether expr falls within [low, high].
type Between struct {
	Expr    Expr
	Low     Expr
	High    Expr
	Negated bool
}

func (n Between) String() string {
	not := ""
	if n.Negated {
		not = "NOT "
	}
	return fmt.Sprintf("%s %sBETWEEN %s AND %s", n.Expr, not, n.Low, n.High)
}

// FunctionName names a supported scalar or aggregate function.
type FunctionName int

const (
	Min FunctionName = iota
	Max
	Sum
	Avg
	Count
	Contains
	Concat
)

func (f FunctionName) String() string {
	switch f {
	case Min:
		return "MIN"
	case Max:
		return "MAX"
	case Sum:
		return "SUM"
	case Avg:
		return "AVG"
	case Count:
		return "COUNT"
	case Contains:
		return "CONTAINS"
	case Concat:
		return "CONCAT"
	default:
		return "?"
	}
}

// Function is a named function call. Min/Max/Sum/Avg/Count are aggregate
// functions, only meaningful under a Group/Aggregate plan node; Contains
// and Concat are scalar and can appear in any expression position.
type Function struct {
	Name Name
	Args []Expr
}

// Name aliases FunctionName to keep Function's field self-describing at
// call sites (expr.Function{Name: expr.Concat, ...}).
type Name = FunctionName

func (f Function) String() string {
	parts := make([]string, len(f.Args))
	for i, a := range f.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", f.Name, strings.Join(parts, ", "))
}

// Wildcard represents "*" in a projection list.
type Wildcard struct{}

func (Wildcard) String() string { return "*" }

// QualifiedWildcard represents "t.*" in a projection list.
type QualifiedWildcard struct{ Table string }

func (q QualifiedWildcard) String() string { return q.Table + ".*" }

// Alias names an expression's result column, e.g. "1 AS one".
type Alias struct {
	Expr Expr
	Name string
}

func (a Alias) String() string { return fmt.Sprintf("%s AS %s", a.Expr, a.Name) }
