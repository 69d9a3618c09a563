// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sqltemplate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/awslabs/ar-go-txeffects/analysis/value"
)

// ParseError is returned when a template is not one of the supported statements.
type ParseError struct {
	Template string
	Offset   int
	Msg      string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse SQL template %q at offset %d: %s", e.Template, e.Offset, e.Msg)
}

type parser struct {
	input string
	l     *Lexer
	cur   Token
	peek  Token
}

// Parse parses a template into exactly one INSERT, UPDATE, DELETE or SELECT statement. A trailing ";" (optionally
// preceded by a stray ")") is accepted.
func Parse(text string) (Statement, error) {
	p := &parser{input: text, l: NewLexer(text)}
	p.next()
	p.next()
	var (
		s   Statement
		err error
	)
	switch p.cur.Type {
	case TokenInsert:
		s, err = p.parseInsert()
	case TokenUpdate:
		s, err = p.parseUpdate()
	case TokenDelete:
		s, err = p.parseDelete()
	case TokenSelect:
		s, err = p.parseSelect()
	default:
		return nil, p.errorf("expected INSERT, UPDATE, DELETE or SELECT, found %s", p.cur)
	}
	if err != nil {
		return nil, err
	}
	p.accept(TokenRParen)
	p.accept(TokenSemicolon)
	if p.cur.Type != TokenEOF {
		return nil, p.errorf("unexpected %s after statement", p.cur)
	}
	return s, nil
}

func (p *parser) next() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

func (p *parser) errorf(format string, args ...any) *ParseError {
	return &ParseError{Template: p.input, Offset: p.cur.Offset, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) accept(tt TokenType) bool {
	if p.cur.Type == tt {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(tt TokenType) error {
	if p.accept(tt) {
		return nil
	}
	return p.errorf("expected %s, found %s", tt, p.cur)
}

// soft keywords may be used as identifiers
func isName(t Token) bool {
	switch t.Type {
	case TokenIdent, TokenMax, TokenMin, TokenCount, TokenSum, TokenNow, TokenAsc, TokenDesc:
		return true
	}
	return false
}

func (p *parser) parseName() (string, error) {
	if !isName(p.cur) {
		return "", p.errorf("expected a name, found %s", p.cur)
	}
	name := p.cur.Literal
	p.next()
	return name, nil
}

var aggregates = map[TokenType]value.Aggregate{
	TokenMax: value.Max, TokenMin: value.Min, TokenCount: value.Count, TokenSum: value.Sum,
}

// parseColumn parses [table.]name, [table.]*, or AGG(column).
func (p *parser) parseColumn() (ColumnRef, error) {
	if agg, ok := aggregates[p.cur.Type]; ok && p.peek.Type == TokenLParen {
		p.next()
		p.next()
		col, err := p.parseColumn()
		if err != nil {
			return col, err
		}
		col.Aggregate = agg
		return col, p.expect(TokenRParen)
	}
	if p.accept(TokenStar) {
		return ColumnRef{Star: true}, nil
	}
	name, err := p.parseName()
	if err != nil {
		return ColumnRef{}, err
	}
	if !p.accept(TokenDot) {
		return ColumnRef{Name: name}, nil
	}
	if p.accept(TokenStar) {
		return ColumnRef{Table: name, Star: true}, nil
	}
	col, err := p.parseName()
	return ColumnRef{Table: name, Name: col}, err
}

func (p *parser) parseColumnList() ([]ColumnRef, error) {
	var cols []ColumnRef
	for {
		c, err := p.parseColumn()
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
		if !p.accept(TokenComma) {
			return cols, nil
		}
	}
}

// soloPlaceholder consumes a placeholder standing for a whole list, i.e. directly followed by ")".
func (p *parser) soloPlaceholder() bool {
	if p.cur.Type == TokenPlaceholder && p.peek.Type == TokenRParen {
		p.next()
		return true
	}
	return false
}

func (p *parser) parseInsert() (*Insert, error) {
	p.next()
	if err := p.expect(TokenInto); err != nil {
		return nil, err
	}
	table, err := p.parseName()
	if err != nil {
		return nil, err
	}
	s := &Insert{Table: table}
	if p.accept(TokenLParen) {
		if p.soloPlaceholder() {
			s.OpaqueColumns = true
		} else if s.Columns, err = p.parseColumnList(); err != nil {
			return nil, err
		}
		if err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
	}
	if err := p.expect(TokenValues); err != nil {
		return nil, err
	}
	if err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	if p.soloPlaceholder() {
		s.OpaqueValues = true
	} else {
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			s.Values = append(s.Values, e)
			if !p.accept(TokenComma) {
				break
			}
		}
	}
	if !s.OpaqueColumns && !s.OpaqueValues && s.Columns != nil && len(s.Columns) != len(s.Values) {
		return nil, p.errorf("%d columns but %d values", len(s.Columns), len(s.Values))
	}
	return s, p.expect(TokenRParen)
}

func (p *parser) parseUpdate() (*Update, error) {
	p.next()
	table, err := p.parseName()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenSet); err != nil {
		return nil, err
	}
	s := &Update{Table: table}
	for {
		if p.cur.Type == TokenPlaceholder && p.peek.Type != TokenEq {
			// an opaque part of the SET clause, such as SET [[assignments]]
			s.Opaque = true
			p.next()
		} else {
			col, err := p.parseColumn()
			if err != nil {
				return nil, err
			}
			if err := p.expect(TokenEq); err != nil {
				return nil, err
			}
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			s.Set = append(s.Set, Assign{Column: col, Value: v})
		}
		if !p.accept(TokenComma) {
			break
		}
	}
	if p.accept(TokenWhere) {
		if s.Where, err = p.parseLocators(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (p *parser) parseDelete() (*Delete, error) {
	p.next()
	if err := p.expect(TokenFrom); err != nil {
		return nil, err
	}
	table, err := p.parseName()
	if err != nil {
		return nil, err
	}
	s := &Delete{Table: table}
	if p.accept(TokenWhere) {
		if s.Where, err = p.parseLocators(); err != nil {
			return nil, err
		}
	}
	if p.accept(TokenLimit) {
		if s.Limit, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (p *parser) parseSelect() (*Select, error) {
	p.next()
	cols, err := p.parseColumnList()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenFrom); err != nil {
		return nil, err
	}
	from, err := p.parseName()
	if err != nil {
		return nil, err
	}
	s := &Select{Columns: cols, From: from}
	if p.cur.Type == TokenInner || p.cur.Type == TokenJoin {
		p.accept(TokenInner)
		if err := p.expect(TokenJoin); err != nil {
			return nil, err
		}
		j := &Join{}
		if j.Table, err = p.parseName(); err != nil {
			return nil, err
		}
		if err := p.expect(TokenOn); err != nil {
			return nil, err
		}
		if j.Left, err = p.parseColumn(); err != nil {
			return nil, err
		}
		if err := p.expect(TokenEq); err != nil {
			return nil, err
		}
		if j.Right, err = p.parseColumn(); err != nil {
			return nil, err
		}
		s.Join = j
	}
	if p.accept(TokenWhere) {
		if s.Where, err = p.parseLocators(); err != nil {
			return nil, err
		}
	}
	if p.accept(TokenOrder) {
		if err := p.expect(TokenBy); err != nil {
			return nil, err
		}
		if s.OrderBy, err = p.parseColumnList(); err != nil {
			return nil, err
		}
		if !p.accept(TokenAsc) {
			p.accept(TokenDesc)
		}
	}
	if p.accept(TokenLimit) {
		if s.Limit, err = p.parseExpr(); err != nil {
			return nil, err
		}
		if p.accept(TokenComma) {
			// LIMIT offset, count
			if s.Limit, err = p.parseExpr(); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

var comparisons = map[TokenType]value.Op{
	TokenEq: value.Eq, TokenNe: value.Ne, TokenLt: value.Lt, TokenLe: value.Le, TokenGt: value.Gt, TokenGe: value.Ge,
}

func (p *parser) parseLocators() ([]Locator, error) {
	var res []Locator
	for {
		col, err := p.parseColumn()
		if err != nil {
			return nil, err
		}
		op, ok := comparisons[p.cur.Type]
		if !ok {
			return nil, p.errorf("expected a comparison, found %s", p.cur)
		}
		p.next()
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		res = append(res, Locator{Column: col, Op: op, Value: v})
		if !p.accept(TokenAnd) {
			return res, nil
		}
	}
}

func (p *parser) parseExpr() (Expr, error) {
	x, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenPlus || p.cur.Type == TokenMinus {
		op := value.Add
		if p.cur.Type == TokenMinus {
			op = value.Sub
		}
		p.next()
		y, err := p.parseProduct()
		if err != nil {
			return nil, err
		}
		x = &BinaryExpr{Op: op, X: x, Y: y}
	}
	return x, nil
}

func (p *parser) parseProduct() (Expr, error) {
	x, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenStar || p.cur.Type == TokenSlash {
		op := value.Mul
		if p.cur.Type == TokenSlash {
			op = value.Div
		}
		p.next()
		y, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		x = &BinaryExpr{Op: op, X: x, Y: y}
	}
	return x, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.accept(TokenMinus) {
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if i, ok := x.(*IntLit); ok {
			return &IntLit{Value: -i.Value}, nil
		}
		return &Negative{X: x}, nil
	}
	return p.parseTerm()
}

func (p *parser) parseTerm() (Expr, error) {
	tok := p.cur
	switch tok.Type {
	case TokenLParen:
		p.next()
		if p.cur.Type == TokenSelect {
			q, err := p.parseSelect()
			if err != nil {
				return nil, err
			}
			return &Subquery{Query: q}, p.expect(TokenRParen)
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return e, p.expect(TokenRParen)
	case TokenNumber:
		p.next()
		if strings.Contains(tok.Literal, ".") {
			f, err := strconv.ParseFloat(tok.Literal, 64)
			if err != nil {
				return nil, &ParseError{Template: p.input, Offset: tok.Offset, Msg: err.Error()}
			}
			return &FloatLit{Value: f}, nil
		}
		i, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			return nil, &ParseError{Template: p.input, Offset: tok.Offset, Msg: err.Error()}
		}
		return &IntLit{Value: i}, nil
	case TokenString:
		p.next()
		return &StringLit{Text: unquote(tok.Literal)}, nil
	case TokenPlaceholder:
		p.next()
		return &Placeholder{Tag: strings.TrimSuffix(strings.TrimPrefix(tok.Literal, "[["), "]]")}, nil
	case TokenQuestion:
		p.next()
		return &Placeholder{Tag: "?"}, nil
	case TokenTrue, TokenFalse:
		p.next()
		return &BoolLit{Value: tok.Type == TokenTrue}, nil
	case TokenNull:
		p.next()
		return &NullLit{}, nil
	}
	if isName(tok) && p.peek.Type == TokenLParen {
		if _, agg := aggregates[tok.Type]; !agg {
			p.next()
			p.next()
			f := &Func{Name: strings.ToUpper(tok.Literal)}
			for p.cur.Type != TokenRParen {
				a, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				f.Args = append(f.Args, a)
				if !p.accept(TokenComma) {
					break
				}
			}
			return f, p.expect(TokenRParen)
		}
	}
	if isName(tok) {
		c, err := p.parseColumn()
		if err != nil {
			return nil, err
		}
		return &ColumnExpr{Column: c}, nil
	}
	return nil, p.errorf("unexpected %s in expression", tok)
}
