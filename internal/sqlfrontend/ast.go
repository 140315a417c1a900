package sqlfrontend

import (
	"github.com/SimonWaldherr/basedb/internal/expr"
	"github.com/SimonWaldherr/basedb/internal/tuple"
)

// Statement is any parsed top-level SQL statement.
type Statement interface{ statement() }

// ColumnDef is one column of a CREATE TABLE statement.
type ColumnDef struct {
	Name string
	Ty   tuple.Type
}

// CreateTable is "CREATE TABLE name (col ty, ...)".
type CreateTable struct {
	Table   string
	Columns []ColumnDef
}

func (CreateTable) statement() {}

// CreateIndex is "CREATE INDEX name ON table (col, ...)".
type CreateIndex struct {
	Index   string
	Table   string
	Columns []string
}

func (CreateIndex) statement() {}

// Insert is "INSERT INTO table [(cols)] VALUES (...), (...)" or
// "INSERT INTO table SELECT ...".
type Insert struct {
	Table   string
	Columns []string
	Values  [][]expr.Expr
	Select  *Select
}

func (Insert) statement() {}

// SelectItem is one entry of a SELECT's projection list.
type SelectItem struct {
	Expr     expr.Expr
	Alias    string
	Wildcard bool
	// QualifiedWildcard holds the table name for "t.*"; empty otherwise.
	QualifiedWildcard string
}

// JoinClause is a single "JOIN table [AS alias] ON expr | USING (cols)".
type JoinClause struct {
	Table      string
	Alias      string
	On         expr.Expr
	Using      []string
}

// Select is a full SELECT statement.
type Select struct {
	Projection []SelectItem
	From       string
	FromAlias  string
	Joins      []JoinClause
	Where      expr.Expr
	GroupBy    []expr.Expr
	OrderBy    []expr.Expr
	OrderDesc  bool
	Limit      expr.Expr
}

func (Select) statement() {}
