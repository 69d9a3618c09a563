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
	"strconv"
	"strings"

	"github.com/awslabs/ar-go-txeffects/analysis/value"
)

// Statement is a parsed SQL statement: *Insert, *Update, *Delete or *Select.
type Statement interface {
	String() string
	stmt()
}

// Expr is a SQL expression.
type Expr interface {
	String() string
	expr()
}

// ColumnRef is a column reference, possibly qualified by a table and wrapped in an aggregate. Star is set for * and
// COUNT(*).
type ColumnRef struct {
	Table     string
	Name      string
	Star      bool
	Aggregate value.Aggregate
}

func (c ColumnRef) String() string {
	s := c.Name
	if c.Star {
		s = "*"
	}
	if c.Table != "" {
		s = c.Table + "." + s
	}
	if c.Aggregate != value.NoAggregate {
		s = c.Aggregate.String() + "(" + s + ")"
	}
	return s
}

// Assign is col = expr in a SET clause.
type Assign struct {
	Column ColumnRef
	Value  Expr
}

// Locator is a comparison of a WHERE clause.
type Locator struct {
	Column ColumnRef
	Op     value.Op
	Value  Expr
}

func (l Locator) String() string { return l.Column.String() + " " + sqlOp(l.Op) + " " + l.Value.String() }

// Insert is INSERT INTO table [(columns)] VALUES (values). Columns is nil when omitted; OpaqueColumns and
// OpaqueValues are set when the list was a single placeholder.
type Insert struct {
	Table         string
	Columns       []ColumnRef
	Values        []Expr
	OpaqueColumns bool
	OpaqueValues  bool
}

// Update is UPDATE table SET assignments WHERE locators. Opaque is set when the SET clause was a placeholder.
type Update struct {
	Table  string
	Set    []Assign
	Opaque bool
	Where  []Locator
}

// Delete is DELETE FROM table WHERE locators [LIMIT n].
type Delete struct {
	Table string
	Where []Locator
	Limit Expr
}

// Join is INNER JOIN table ON left = right.
type Join struct {
	Table string
	Left  ColumnRef
	Right ColumnRef
}

// Select is a query over one table or an inner join of two.
type Select struct {
	Columns []ColumnRef
	From    string
	Join    *Join
	Where   []Locator
	OrderBy []ColumnRef
	Limit   Expr
}

func (*Insert) stmt() {}
func (*Update) stmt() {}
func (*Delete) stmt() {}
func (*Select) stmt() {}

// IntLit is an integer literal.
type IntLit struct{ Value int64 }

// FloatLit is a decimal literal.
type FloatLit struct{ Value float64 }

// BoolLit is TRUE or FALSE.
type BoolLit struct{ Value bool }

// NullLit is NULL.
type NullLit struct{}

// StringLit is a quoted literal. Text is unquoted and may contain placeholders.
type StringLit struct{ Text string }

// Placeholder is a naked [[...]] placeholder. Tag is the text between the brackets.
type Placeholder struct{ Tag string }

// ColumnExpr is a column used as a value.
type ColumnExpr struct{ Column ColumnRef }

// Func is a function call such as NOW().
type Func struct {
	Name string
	Args []Expr
}

// Subquery is a parenthesized SELECT used as a value.
type Subquery struct{ Query *Select }

// Negative is unary minus.
type Negative struct{ X Expr }

// BinaryExpr is an arithmetic expression.
type BinaryExpr struct {
	Op   value.Op
	X, Y Expr
}

func (*IntLit) expr()      {}
func (*FloatLit) expr()    {}
func (*BoolLit) expr()     {}
func (*NullLit) expr()     {}
func (*StringLit) expr()   {}
func (*Placeholder) expr() {}
func (*ColumnExpr) expr()  {}
func (*Func) expr()        {}
func (*Subquery) expr()    {}
func (*Negative) expr()    {}
func (*BinaryExpr) expr()  {}

func (e *IntLit) String() string      { return strconv.FormatInt(e.Value, 10) }
func (e *FloatLit) String() string    { return strconv.FormatFloat(e.Value, 'g', -1, 64) }
func (e *BoolLit) String() string     { return strings.ToUpper(strconv.FormatBool(e.Value)) }
func (e *NullLit) String() string     { return "NULL" }
func (e *StringLit) String() string   { return "'" + strings.ReplaceAll(e.Text, "'", "''") + "'" }
func (e *Placeholder) String() string { return "[[" + e.Tag + "]]" }
func (e *ColumnExpr) String() string  { return e.Column.String() }
func (e *Subquery) String() string    { return "(" + e.Query.String() + ")" }
func (e *Negative) String() string    { return "-" + e.X.String() }
func (e *BinaryExpr) String() string  { return e.X.String() + " " + sqlOp(e.Op) + " " + e.Y.String() }

func (e *Func) String() string { return e.Name + "(" + joinExprs(e.Args) + ")" }

func sqlOp(op value.Op) string {
	switch op {
	case value.Eq:
		return "="
	case value.Ne:
		return "<>"
	}
	return op.String()
}

func joinExprs(es []Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

func joinColumns(cs []ColumnRef) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}

func joinLocators(ls []Locator) string {
	parts := make([]string, len(ls))
	for i, l := range ls {
		parts[i] = l.String()
	}
	return strings.Join(parts, " AND ")
}

func (s *Insert) String() string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO " + s.Table)
	switch {
	case s.OpaqueColumns:
		sb.WriteString(" ([[...]])")
	case s.Columns != nil:
		sb.WriteString(" (" + joinColumns(s.Columns) + ")")
	}
	if s.OpaqueValues {
		sb.WriteString(" VALUES ([[...]])")
	} else {
		sb.WriteString(" VALUES (" + joinExprs(s.Values) + ")")
	}
	return sb.String()
}

func (s *Update) String() string {
	set := "[[...]]"
	if !s.Opaque {
		parts := make([]string, len(s.Set))
		for i, a := range s.Set {
			parts[i] = a.Column.String() + " = " + a.Value.String()
		}
		set = strings.Join(parts, ", ")
	}
	res := "UPDATE " + s.Table + " SET " + set
	if len(s.Where) > 0 {
		res += " WHERE " + joinLocators(s.Where)
	}
	return res
}

func (s *Delete) String() string {
	res := "DELETE FROM " + s.Table
	if len(s.Where) > 0 {
		res += " WHERE " + joinLocators(s.Where)
	}
	if s.Limit != nil {
		res += " LIMIT " + s.Limit.String()
	}
	return res
}

func (s *Select) String() string {
	res := "SELECT " + joinColumns(s.Columns) + " FROM " + s.From
	if s.Join != nil {
		res += " INNER JOIN " + s.Join.Table + " ON " + s.Join.Left.String() + " = " + s.Join.Right.String()
	}
	if len(s.Where) > 0 {
		res += " WHERE " + joinLocators(s.Where)
	}
	if len(s.OrderBy) > 0 {
		res += " ORDER BY " + joinColumns(s.OrderBy)
	}
	if s.Limit != nil {
		res += " LIMIT " + s.Limit.String()
	}
	return res
}
