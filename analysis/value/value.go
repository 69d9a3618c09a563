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

// Package value implements the abstract values manipulated by the interpreter and the operators over them.
//
// The lattice is total: an operator applied to operands it cannot fold produces a symbolic Unary or Binary node
// instead of failing. Values are immutable once constructed.
package value

import (
	"fmt"
	"sort"
	"strings"

	"github.com/awslabs/ar-go-txeffects/analysis/ir"
)

// Value is an abstract value. Every value remembers the expression it was computed from, which may be nil for
// values synthesized by the analysis.
type Value interface {
	Source() ir.Expr
	String() string
	isValue()
}

// Base holds the originating expression of a value.
type Base struct {
	Origin ir.Expr
}

// Source returns the expression the value was computed from.
func (b Base) Source() ir.Expr { return b.Origin }

func (b Base) isValue() {}

// Unknown is an opaque value. Tag records why the value is unknown.
type Unknown struct {
	Base
	Tag string
}

// Null is the null reference.
type Null struct {
	Base
}

// Constant is a known constant. Data is an int64, float64, bool or string.
type Constant struct {
	Base
	Data any
}

// Free is a symbolic input introduced by the analysis: a parameter, a fresh argument standing for an opaque SQL
// column value, or the current date.
type Free struct {
	Base
	Name string
	Type ir.Type
}

// Call is an uninterpreted call. Receiver is nil for static calls.
type Call struct {
	Base
	Receiver Value
	Name     string
	Args     []Value
}

// SQLStatement is a (prepared) statement under construction: the SQL text and the values bound to its positional
// parameters, indexed from 1.
type SQLStatement struct {
	Base
	Text   Value
	Params map[int]Value
}

// Bind returns a copy of the statement with parameter i bound to v.
func (s *SQLStatement) Bind(i int, v Value) *SQLStatement {
	params := make(map[int]Value, len(s.Params)+1)
	for k, x := range s.Params {
		params[k] = x
	}
	params[i] = v
	return &SQLStatement{Base: s.Base, Text: s.Text, Params: params}
}

// Aggregate is the aggregate function applied to a projected column.
type Aggregate int

// Aggregates recognized by the SQL parser.
const (
	NoAggregate Aggregate = iota
	Max
	Min
	Count
	Sum
)

func (a Aggregate) String() string {
	switch a {
	case Max:
		return "MAX"
	case Min:
		return "MIN"
	case Count:
		return "COUNT"
	case Sum:
		return "SUM"
	}
	return ""
}

// Column is a projected column of a query.
type Column struct {
	Name      string
	Table     string
	Aggregate Aggregate
}

// Binding associates a column with a value, as in a locator col = v.
type Binding struct {
	Column string
	Value  Value
}

// ResultSet describes the rows returned by a query.
type ResultSet struct {
	Base
	Query    string
	Table    string
	Columns  []Column
	Joined   bool
	Limited  bool
	Locators []Binding
}

// Column returns the projected column with the given name, or false. A query projecting * projects every column.
func (r *ResultSet) Column(name string) (Column, bool) {
	for _, c := range r.Columns {
		if strings.EqualFold(c.Name, name) || c.Name == "*" {
			if c.Name == "*" {
				return Column{Name: name, Table: c.Table}, true
			}
			return c, true
		}
	}
	return Column{}, false
}

// ColumnState is the value read from a column of the rows described by Rows, constrained by Locators.
type ColumnState struct {
	Base
	Rows      *ResultSet
	Column    string
	Aggregate Aggregate
	Locators  []Binding
}

// ColumnStateExists is the condition "the query returned a row", or its negation when Reversed.
type ColumnStateExists struct {
	Base
	Rows     *ResultSet
	Reversed bool
}

// Unary is a symbolic unary operation.
type Unary struct {
	Base
	Op      Op
	Operand Value
}

// Binary is a symbolic binary operation.
type Binary struct {
	Base
	Op    Op
	Left  Value
	Right Value
}

// Int returns the constant i.
func Int(i int64) *Constant { return &Constant{Data: i} }

// Str returns the constant s.
func Str(s string) *Constant { return &Constant{Data: s} }

// Bool returns the constant b.
func Bool(b bool) *Constant { return &Constant{Data: b} }

// Float returns the constant f.
func Float(f float64) *Constant { return &Constant{Data: f} }

// IsSymbolic returns true for values that are neither constants nor null.
func IsSymbolic(v Value) bool {
	switch v.(type) {
	case *Constant, *Null:
		return false
	}
	return true
}

func (v *Unknown) String() string {
	if v.Tag == "" {
		return "unknown"
	}
	return "unknown(" + v.Tag + ")"
}

func (v *Null) String() string { return "null" }

func (v *Constant) String() string {
	if s, ok := v.Data.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", v.Data)
}

func (v *Free) String() string { return v.Name }

func (v *Call) String() string {
	args := make([]string, len(v.Args))
	for i, a := range v.Args {
		args[i] = a.String()
	}
	s := v.Name + "(" + strings.Join(args, ", ") + ")"
	if v.Receiver != nil {
		return v.Receiver.String() + "." + s
	}
	return s
}

func (v *SQLStatement) String() string {
	keys := make([]int, 0, len(v.Params))
	for k := range v.Params {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	params := make([]string, len(keys))
	for i, k := range keys {
		params[i] = fmt.Sprintf("%d=%s", k, v.Params[k])
	}
	return "sql(" + v.Text.String() + "; " + strings.Join(params, ", ") + ")"
}

func (v *ResultSet) String() string { return "rows(" + v.Query + ")" }

func (v *ColumnState) String() string {
	col := v.Column
	if v.Aggregate != NoAggregate {
		col = v.Aggregate.String() + "(" + col + ")"
	}
	return v.Rows.Table + "." + col + renderBindings(v.Locators)
}

func (v *ColumnStateExists) String() string {
	s := "exists(" + v.Rows.Table + renderBindings(v.Rows.Locators) + ")"
	if v.Reversed {
		return "!" + s
	}
	return s
}

func (v *Unary) String() string  { return v.Op.String() + v.Operand.String() }
func (v *Binary) String() string { return "(" + v.Left.String() + " " + v.Op.String() + " " + v.Right.String() + ")" }

func renderBindings(bs []Binding) string {
	if len(bs) == 0 {
		return ""
	}
	parts := make([]string, len(bs))
	for i, b := range bs {
		parts[i] = b.Column + "=" + b.Value.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
