package sqlfrontend

import (
	"fmt"
	"strconv"

	"github.com/SimonWaldherr/basedb/internal/expr"
	"github.com/SimonWaldherr/basedb/internal/tuple"
)

// Parser consumes a fixed token stream produced by the lexer.
type Parser struct {
	toks []token
	pos  int
}

// Parse tokenises and parses a single SQL statement (an optional
// trailing semicolon is accepted and discarded).
func Parse(sql string) (Statement, error) {
	toks, err := newLexer(sql).tokens()
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if p.cur().kind == tokSemicolon {
		p.pos++
	}
	if p.cur().kind != tokEOF {
		return nil, fmt.Errorf("sqlfrontend: unexpected trailing input near %q", p.cur().text)
	}
	return stmt, nil
}

func (p *Parser) cur() token  { return p.toks[p.pos] }
func (p *Parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) isKeyword(kw string) bool {
	return p.cur().kind == tokKeyword && p.cur().text == kw
}

func (p *Parser) expectKeyword(kw string) error {
	if !p.isKeyword(kw) {
		return fmt.Errorf("sqlfrontend: expected %s, found %q", kw, p.cur().text)
	}
	p.advance()
	return nil
}

func (p *Parser) expect(kind tokenKind, what string) (token, error) {
	if p.cur().kind != kind {
		return token{}, fmt.Errorf("sqlfrontend: expected %s, found %q", what, p.cur().text)
	}
	return p.advance(), nil
}

func (p *Parser) parseStatement() (Statement, error) {
	switch {
	case p.isKeyword("CREATE"):
		return p.parseCreate()
	case p.isKeyword("INSERT"):
		return p.parseInsert()
	case p.isKeyword("SELECT"):
		return p.parseSelect()
	default:
		return nil, fmt.Errorf("sqlfrontend: expected a statement, found %q", p.cur().text)
	}
}

func (p *Parser) parseCreate() (Statement, error) {
	p.advance() // CREATE
	switch {
	case p.isKeyword("TABLE"):
		p.advance()
		name, err := p.expect(tokIdent, "table name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokLParen, "("); err != nil {
			return nil, err
		}
		var cols []ColumnDef
		for {
			colName, err := p.expect(tokIdent, "column name")
			if err != nil {
				return nil, err
			}
			ty, err := p.parseType()
			if err != nil {
				return nil, err
			}
			cols = append(cols, ColumnDef{Name: colName.text, Ty: ty})
			if p.cur().kind == tokComma {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return CreateTable{Table: name.text, Columns: cols}, nil

	case p.isKeyword("INDEX"):
		p.advance()
		name, err := p.expect(tokIdent, "index name")
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("ON"); err != nil {
			return nil, err
		}
		table, err := p.expect(tokIdent, "table name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokLParen, "("); err != nil {
			return nil, err
		}
		var cols []string
		for {
			c, err := p.expect(tokIdent, "column name")
			if err != nil {
				return nil, err
			}
			cols = append(cols, c.text)
			if p.cur().kind == tokComma {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return CreateIndex{Index: name.text, Table: table.text, Columns: cols}, nil

	default:
		return nil, fmt.Errorf("sqlfrontend: expected TABLE or INDEX after CREATE, found %q", p.cur().text)
	}
}

func (p *Parser) parseType() (tuple.Type, error) {
	if p.cur().kind != tokKeyword {
		return 0, fmt.Errorf("sqlfrontend: expected a column type, found %q", p.cur().text)
	}
	switch p.advance().text {
	case "TINYINT":
		return tuple.TinyInt, nil
	case "BOOL":
		return tuple.Bool, nil
	case "INT":
		return tuple.Int, nil
	case "BIGINT":
		return tuple.BigInt, nil
	case "VARCHAR":
		return tuple.Varchar, nil
	default:
		return 0, fmt.Errorf("sqlfrontend: unknown column type %q", p.toks[p.pos-1].text)
	}
}

func (p *Parser) parseInsert() (Statement, error) {
	p.advance() // INSERT
	if err := p.expectKeyword("INTO"); err != nil {
		return nil, err
	}
	table, err := p.expect(tokIdent, "table name")
	if err != nil {
		return nil, err
	}
	ins := Insert{Table: table.text}

	if p.cur().kind == tokLParen {
		p.advance()
		for {
			c, err := p.expect(tokIdent, "column name")
			if err != nil {
				return nil, err
			}
			ins.Columns = append(ins.Columns, c.text)
			if p.cur().kind == tokComma {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
	}

	if p.isKeyword("SELECT") {
		sel, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		s := sel.(Select)
		ins.Select = &s
		return ins, nil
	}

	if err := p.expectKeyword("VALUES"); err != nil {
		return nil, err
	}
	for {
		row, err := p.parseValueRow()
		if err != nil {
			return nil, err
		}
		ins.Values = append(ins.Values, row)
		if p.cur().kind == tokComma {
			p.advance()
			continue
		}
		break
	}
	return ins, nil
}

func (p *Parser) parseValueRow() ([]expr.Expr, error) {
	if _, err := p.expect(tokLParen, "("); err != nil {
		return nil, err
	}
	var row []expr.Expr
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		row = append(row, e)
		if p.cur().kind == tokComma {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(tokRParen, ")"); err != nil {
		return nil, err
	}
	return row, nil
}

func (p *Parser) parseSelect() (Statement, error) {
	p.advance() // SELECT
	sel := Select{}

	for {
		item, err := p.parseSelectItem()
		if err != nil {
			return nil, err
		}
		sel.Projection = append(sel.Projection, item)
		if p.cur().kind == tokComma {
			p.advance()
			continue
		}
		break
	}

	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	from, err := p.expect(tokIdent, "table name")
	if err != nil {
		return nil, err
	}
	sel.From = from.text
	if p.isKeyword("AS") {
		p.advance()
		alias, err := p.expect(tokIdent, "alias")
		if err != nil {
			return nil, err
		}
		sel.FromAlias = alias.text
	}

	for p.isKeyword("JOIN") {
		p.advance()
		jt, err := p.expect(tokIdent, "join table name")
		if err != nil {
			return nil, err
		}
		jc := JoinClause{Table: jt.text}
		if p.isKeyword("AS") {
			p.advance()
			alias, err := p.expect(tokIdent, "alias")
			if err != nil {
				return nil, err
			}
			jc.Alias = alias.text
		}
		switch {
		case p.isKeyword("ON"):
			p.advance()
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			jc.On = e
		case p.isKeyword("USING"):
			p.advance()
			if _, err := p.expect(tokLParen, "("); err != nil {
				return nil, err
			}
			for {
				c, err := p.expect(tokIdent, "column name")
				if err != nil {
					return nil, err
				}
				jc.Using = append(jc.Using, c.text)
				if p.cur().kind == tokComma {
					p.advance()
					continue
				}
				break
			}
			if _, err := p.expect(tokRParen, ")"); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("sqlfrontend: expected ON or USING after JOIN, found %q", p.cur().text)
		}
		sel.Joins = append(sel.Joins, jc)
	}

	if p.isKeyword("WHERE") {
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		sel.Where = e
	}

	if p.isKeyword("GROUP") {
		p.advance()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			sel.GroupBy = append(sel.GroupBy, e)
			if p.cur().kind == tokComma {
				p.advance()
				continue
			}
			break
		}
	}

	if p.isKeyword("ORDER") {
		p.advance()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			sel.OrderBy = append(sel.OrderBy, e)
			if p.cur().kind == tokComma {
				p.advance()
				continue
			}
			break
		}
		if p.isKeyword("DESC") {
			p.advance()
			sel.OrderDesc = true
		} else if p.isKeyword("ASC") {
			p.advance()
		}
	}

	if p.isKeyword("LIMIT") {
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		sel.Limit = e
	}

	return sel, nil
}

func (p *Parser) parseSelectItem() (SelectItem, error) {
	if p.cur().kind == tokAsterisk {
		p.advance()
		return SelectItem{Wildcard: true}, nil
	}
	if p.cur().kind == tokIdent {
		// Disambiguate "t.*" from a plain identifier/compound ident.
		save := p.pos
		name := p.advance().text
		if p.cur().kind == tokDot {
			p.advance()
			if p.cur().kind == tokAsterisk {
				p.advance()
				return SelectItem{QualifiedWildcard: name}, nil
			}
		}
		p.pos = save
	}

	e, err := p.parseExpr()
	if err != nil {
		return SelectItem{}, err
	}
	item := SelectItem{Expr: e}
	if p.isKeyword("AS") {
		p.advance()
		alias, err := p.expect(tokIdent, "alias")
		if err != nil {
			return SelectItem{}, err
		}
		item.Alias = alias.text
	}
	return item, nil
}

// Expression grammar, weakest to strongest binding:
//   or := and (OR and)*
//   and := cmp (AND cmp)*
//   cmp := unary (op unary)?        -- also absorbs IS [NOT] NULL / [NOT] IN / [NOT] BETWEEN
//   unary := primary

func (p *Parser) parseExpr() (expr.Expr, error) { return p.parseOr() }

func (p *Parser) parseOr() (expr.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("OR") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = expr.BinaryOp{Left: left, Op: expr.Or, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (expr.Expr, error) {
	left, err := p.parseCmp()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("AND") {
		p.advance()
		right, err := p.parseCmp()
		if err != nil {
			return nil, err
		}
		left = expr.BinaryOp{Left: left, Op: expr.And, Right: right}
	}
	return left, nil
}

func (p *Parser) parseCmp() (expr.Expr, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	switch {
	case p.isKeyword("IS"):
		p.advance()
		negated := false
		if p.isKeyword("NOT") {
			p.advance()
			negated = true
		}
		if err := p.expectKeyword("NULL"); err != nil {
			return nil, err
		}
		return expr.IsNull{Expr: left, Negated: negated}, nil

	case p.isKeyword("NOT"):
		p.advance()
		switch {
		case p.isKeyword("IN"):
			list, err := p.parseInList(left, true)
			if err != nil {
				return nil, err
			}
			return list, nil
		case p.isKeyword("BETWEEN"):
			return p.parseBetween(left, true)
		default:
			return nil, fmt.Errorf("sqlfrontend: expected IN or BETWEEN after NOT, found %q", p.cur().text)
		}

	case p.isKeyword("IN"):
		return p.parseInList(left, false)

	case p.isKeyword("BETWEEN"):
		return p.parseBetween(left, false)
	}

	var op expr.Op
	switch p.cur().kind {
	case tokEq:
		op = expr.Eq
	case tokNeq:
		op = expr.Neq
	case tokLt:
		op = expr.Lt
	case tokLe:
		op = expr.Le
	case tokGt:
		op = expr.Gt
	case tokGe:
		op = expr.Ge
	default:
		return left, nil
	}
	p.advance()
	right, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return expr.BinaryOp{Left: left, Op: op, Right: right}, nil
}

func (p *Parser) parseInList(left expr.Expr, negated bool) (expr.Expr, error) {
	p.advance() // IN
	if _, err := p.expect(tokLParen, "("); err != nil {
		return nil, err
	}
	var list []expr.Expr
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		list = append(list, e)
		if p.cur().kind == tokComma {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(tokRParen, ")"); err != nil {
		return nil, err
	}
	return expr.InList{Expr: left, List: list, Negated: negated}, nil
}

func (p *Parser) parseBetween(left expr.Expr, negated bool) (expr.Expr, error) {
	p.advance() // BETWEEN
	low, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("AND"); err != nil {
		return nil, err
	}
	high, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return expr.Between{Expr: left, Low: low, High: high, Negated: negated}, nil
}

func (p *Parser) parsePrimary() (expr.Expr, error) {
	t := p.cur()
	switch t.kind {
	case tokLParen:
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return e, nil

	case tokNumber:
		p.advance()
		n, err := strconv.ParseInt(t.text, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("sqlfrontend: invalid integer literal %q", t.text)
		}
		return expr.Literal{Value: tuple.IntValue(int32(n))}, nil

	case tokString:
		p.advance()
		return expr.Literal{Value: tuple.VarcharValue(t.text)}, nil

	case tokIdent:
		p.advance()
		name := t.text
		if p.cur().kind == tokDot {
			p.advance()
			col, err := p.expect(tokIdent, "column name")
			if err != nil {
				return nil, err
			}
			return expr.Ident{Table: name, Name: col.text}, nil
		}
		return expr.Ident{Name: name}, nil

	case tokKeyword:
		switch t.text {
		case "TRUE":
			p.advance()
			return expr.Literal{Value: tuple.BoolValue(true)}, nil
		case "FALSE":
			p.advance()
			return expr.Literal{Value: tuple.BoolValue(false)}, nil
		case "CONCAT", "CONTAINS", "MIN", "MAX", "SUM", "AVG", "COUNT":
			return p.parseFunctionCall()
		}
	}

	return nil, fmt.Errorf("sqlfrontend: expected an expression, found %q", t.text)
}

func (p *Parser) parseFunctionCall() (expr.Expr, error) {
	name := p.advance().text
	var fn expr.FunctionName
	switch name {
	case "CONCAT":
		fn = expr.Concat
	case "CONTAINS":
		fn = expr.Contains
	case "MIN":
		fn = expr.Min
	case "MAX":
		fn = expr.Max
	case "SUM":
		fn = expr.Sum
	case "AVG":
		fn = expr.Avg
	case "COUNT":
		fn = expr.Count
	}
	if _, err := p.expect(tokLParen, "("); err != nil {
		return nil, err
	}
	var args []expr.Expr
	if p.cur().kind == tokAsterisk && fn == expr.Count {
		p.advance()
		args = append(args, expr.Wildcard{})
	} else {
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, e)
			if p.cur().kind == tokComma {
				p.advance()
				continue
			}
			break
		}
	}
	if _, err := p.expect(tokRParen, ")"); err != nil {
		return nil, err
	}
	return expr.Function{Name: fn, Args: args}, nil
}
