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
	"errors"
	"fmt"
	"go/token"
	"regexp"
	"strconv"
	"strings"

	"github.com/awslabs/ar-go-txeffects/analysis/diagnostics"
	"github.com/awslabs/ar-go-txeffects/analysis/effect"
	"github.com/awslabs/ar-go-txeffects/analysis/ir"
	"github.com/awslabs/ar-go-txeffects/analysis/schema"
	"github.com/awslabs/ar-go-txeffects/analysis/value"
)

var (
	// ErrUnknownTable is returned when a statement names a table missing from the schema.
	ErrUnknownTable = errors.New("unknown table")
	// ErrUnknownColumn is returned when a statement names a column missing from its table.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrNotAWrite is returned when a query is executed as an update, or the converse.
	ErrNotAWrite = errors.New("statement kind does not match its use")
)

// Env resolves placeholders against the state of the interpreter and the arguments of the effect being built.
type Env interface {
	// Lookup returns the value of a variable in scope.
	Lookup(name string) (value.Value, bool)
	// Arg returns the type of a free argument of the effect.
	Arg(name string) (ir.Type, bool)
	// AddArg registers a free argument.
	AddArg(name string, t ir.Type)
	// FreshArg registers a new free argument.
	FreshArg(hint string, t ir.Type) *value.Free
}

// KeyPolicy decides which columns an opaque UPDATE is assumed not to write. Primary key columns are always excluded;
// Suffixes additionally excludes columns whose name ends with one of them, ignoring case.
type KeyPolicy struct {
	Suffixes []string
}

// Excludes returns true if an opaque UPDATE does not write c.
func (k KeyPolicy) Excludes(c *schema.Column) bool {
	if c.IsKey() {
		return true
	}
	name := strings.ToLower(c.Name)
	for _, s := range k.Suffixes {
		if s != "" && strings.HasSuffix(name, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

// Atomizer converts parsed statements into atoms and result sets.
type Atomizer struct {
	Schema *schema.Schema
	Env    Env
	Keys   KeyPolicy
	Sink   diagnostics.Sink
	// Pos is the position diagnostics are attached to, usually the call executing the statement.
	Pos token.Position
}

// scope is the context of the expressions of one statement.
type scope struct {
	table    *schema.Table
	other    *schema.Table
	query    string
	values   map[int]value.Value
	locators []value.Binding
}

func (a *Atomizer) report(c diagnostics.Category, format string, args ...any) {
	if a.Sink != nil {
		a.Sink.Report(c, a.Pos, format, args...)
	}
}

// Atomize parses t and converts the resulting INSERT, UPDATE or DELETE into an atom.
func (a *Atomizer) Atomize(t Template) (*effect.Atom, error) {
	stmt, err := Parse(t.Text)
	if err != nil {
		return nil, err
	}
	return a.AtomizeStatement(stmt, t.Text, t.Values)
}

// Query parses t and evaluates the resulting SELECT.
func (a *Atomizer) Query(t Template) (*value.ResultSet, error) {
	stmt, err := Parse(t.Text)
	if err != nil {
		return nil, err
	}
	sel, ok := stmt.(*Select)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a query", ErrNotAWrite, t.Text)
	}
	return a.EvalSelect(sel, t.Text, t.Values)
}

// AtomizeStatement converts stmt into an atom. values is the side table of the template stmt was parsed from.
func (a *Atomizer) AtomizeStatement(stmt Statement, text string, values map[int]value.Value) (*effect.Atom, error) {
	switch stmt := stmt.(type) {
	case *Insert:
		return a.insert(stmt, text, values)
	case *Update:
		return a.update(stmt, text, values)
	case *Delete:
		return a.delete(stmt, text, values)
	}
	return nil, fmt.Errorf("%w: %q is not a write", ErrNotAWrite, text)
}

func (a *Atomizer) table(name string) (*schema.Table, error) {
	t := a.Schema.Table(name)
	if t == nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownTable, name)
	}
	return t, nil
}

func (a *Atomizer) column(s *scope, ref ColumnRef) (*schema.Column, error) {
	t := s.table
	if ref.Table != "" && !strings.EqualFold(ref.Table, t.Name) {
		if s.other != nil && strings.EqualFold(ref.Table, s.other.Name) {
			t = s.other
		} else {
			var err error
			if t, err = a.table(ref.Table); err != nil {
				return nil, err
			}
		}
	}
	c := t.Column(ref.Name)
	if c == nil && s.other != nil && ref.Table == "" {
		c = s.other.Column(ref.Name)
	}
	if c == nil {
		return nil, fmt.Errorf("%w %s.%s", ErrUnknownColumn, t.Name, ref.Name)
	}
	return c, nil
}

func (a *Atomizer) insert(stmt *Insert, text string, values map[int]value.Value) (*effect.Atom, error) {
	t, err := a.table(stmt.Table)
	if err != nil {
		return nil, err
	}
	s := &scope{table: t, query: text, values: values}
	atom := &effect.Atom{Kind: effect.Insert, Table: t}
	cols := t.Columns
	if stmt.Columns != nil && !stmt.OpaqueColumns {
		cols = make([]*schema.Column, len(stmt.Columns))
		for i, ref := range stmt.Columns {
			if cols[i], err = a.column(s, ref); err != nil {
				return nil, err
			}
		}
	}
	if stmt.OpaqueValues {
		for _, c := range cols {
			atom.Values = append(atom.Values, effect.Assignment{Column: c.Name, Value: a.fresh(c.Name, c.Type)})
		}
		return atom, nil
	}
	if len(stmt.Values) > len(cols) {
		return nil, fmt.Errorf("%d values for the %d columns of %s", len(stmt.Values), len(cols), t.Name)
	}
	for i, e := range stmt.Values {
		v, err := a.eval(e, s, cols[i].Type)
		if err != nil {
			return nil, err
		}
		atom.Values = append(atom.Values, effect.Assignment{Column: cols[i].Name, Value: v})
	}
	return atom, nil
}

func (a *Atomizer) update(stmt *Update, text string, values map[int]value.Value) (*effect.Atom, error) {
	t, err := a.table(stmt.Table)
	if err != nil {
		return nil, err
	}
	s := &scope{table: t, query: text, values: values}
	if s.locators, err = a.locators(stmt.Where, s); err != nil {
		return nil, err
	}
	atom := &effect.Atom{Kind: effect.Update, Table: t, Locators: s.locators}
	assigned := map[*schema.Column]bool{}
	for _, as := range stmt.Set {
		c, err := a.column(s, as.Column)
		if err != nil {
			return nil, err
		}
		v, err := a.eval(as.Value, s, c.Type)
		if err != nil {
			return nil, err
		}
		assigned[c] = true
		atom.Values = append(atom.Values, effect.Assignment{Column: c.Name, Value: v})
	}
	if stmt.Opaque {
		for _, c := range t.Columns {
			if assigned[c] || isLocator(s.locators, c.Name) || a.Keys.Excludes(c) {
				continue
			}
			atom.Values = append(atom.Values, effect.Assignment{Column: c.Name, Value: a.fresh(c.Name, c.Type)})
		}
	}
	return atom, nil
}

func (a *Atomizer) delete(stmt *Delete, text string, values map[int]value.Value) (*effect.Atom, error) {
	t, err := a.table(stmt.Table)
	if err != nil {
		return nil, err
	}
	s := &scope{table: t, query: text, values: values}
	if s.locators, err = a.locators(stmt.Where, s); err != nil {
		return nil, err
	}
	return &effect.Atom{Kind: effect.Delete, Table: t, Locators: s.locators}, nil
}

// EvalSelect describes the rows returned by sel. Projections of * are expanded to the columns of the table, except
// for joins.
func (a *Atomizer) EvalSelect(sel *Select, text string, values map[int]value.Value) (*value.ResultSet, error) {
	t, err := a.table(sel.From)
	if err != nil {
		return nil, err
	}
	s := &scope{table: t, query: text, values: values}
	rs := &value.ResultSet{Query: text, Table: t.Name, Limited: sel.Limit != nil}
	if sel.Join != nil {
		if s.other, err = a.table(sel.Join.Table); err != nil {
			return nil, err
		}
		rs.Joined = true
	}
	for _, ref := range sel.Columns {
		if ref.Star {
			if rs.Joined || ref.Aggregate != value.NoAggregate {
				rs.Columns = append(rs.Columns, value.Column{Name: "*", Table: ref.Table, Aggregate: ref.Aggregate})
				continue
			}
			for _, c := range t.Columns {
				rs.Columns = append(rs.Columns, value.Column{Name: c.Name, Table: t.Name})
			}
			continue
		}
		c, err := a.column(s, ref)
		if err != nil {
			return nil, err
		}
		rs.Columns = append(rs.Columns, value.Column{Name: c.Name, Table: c.Table.Name, Aggregate: ref.Aggregate})
	}
	if rs.Locators, err = a.locators(sel.Where, s); err != nil {
		return nil, err
	}
	s.locators = rs.Locators
	return rs, nil
}

func isLocator(ls []value.Binding, name string) bool {
	for _, l := range ls {
		if strings.EqualFold(l.Column, name) {
			return true
		}
	}
	return false
}

// locators evaluates the equalities of a WHERE clause. Columns of the statement's table compared for equality are
// marked as primary key columns.
func (a *Atomizer) locators(ls []Locator, s *scope) ([]value.Binding, error) {
	var res []value.Binding
	for _, l := range ls {
		c, err := a.column(s, l.Column)
		if err != nil {
			return nil, err
		}
		if l.Op != value.Eq {
			a.report(diagnostics.Unsupported, "locator %s is not an equality, ignored", l)
			continue
		}
		v, err := a.eval(l.Value, s, c.Type)
		if err != nil {
			return nil, err
		}
		if c.Table == s.table {
			c.MarkKey()
		}
		res = append(res, value.Binding{Column: c.Name, Value: v})
	}
	return res, nil
}

func (a *Atomizer) eval(e Expr, s *scope, want schema.Type) (value.Value, error) {
	switch e := e.(type) {
	case *IntLit:
		return value.Int(e.Value), nil
	case *FloatLit:
		return value.Float(e.Value), nil
	case *BoolLit:
		return value.Bool(e.Value), nil
	case *NullLit:
		return &value.Null{}, nil
	case *StringLit:
		return a.evalString(e.Text, s, want)
	case *Placeholder:
		return a.evalPlaceholder(e.Tag, s, want)
	case *ColumnExpr:
		c, err := a.column(s, e.Column)
		if err != nil {
			return nil, err
		}
		rows := &value.ResultSet{Query: s.query, Table: c.Table.Name, Locators: s.locators,
			Columns: []value.Column{{Name: c.Name, Table: c.Table.Name, Aggregate: e.Column.Aggregate}}}
		return &value.ColumnState{Rows: rows, Column: c.Name, Aggregate: e.Column.Aggregate, Locators: s.locators}, nil
	case *Func:
		if e.Name == "NOW" || e.Name == "CURRENT_TIMESTAMP" || e.Name == "CURDATE" {
			t := schema.Datetime.IRType()
			a.Env.AddArg("now", t)
			return &value.Free{Name: "now", Type: t}, nil
		}
		a.report(diagnostics.Unsupported, "SQL function %s", e.Name)
		return &value.Unknown{Tag: e.Name}, nil
	case *Subquery:
		rs, err := a.EvalSelect(e.Query, e.Query.String(), s.values)
		if err != nil {
			return nil, err
		}
		if len(rs.Columns) != 1 {
			return nil, fmt.Errorf("subquery %s must project one column", e.Query)
		}
		col := rs.Columns[0]
		return &value.ColumnState{Rows: rs, Column: col.Name, Aggregate: col.Aggregate, Locators: rs.Locators}, nil
	case *Negative:
		x, err := a.eval(e.X, s, want)
		if err != nil {
			return nil, err
		}
		return value.ApplyUnary(a.Sink, value.Negate, x, nil), nil
	case *BinaryExpr:
		x, err := a.eval(e.X, s, want)
		if err != nil {
			return nil, err
		}
		y, err := a.eval(e.Y, s, want)
		if err != nil {
			return nil, err
		}
		return value.Apply(a.Sink, e.Op, x, y, nil), nil
	}
	return nil, fmt.Errorf("unexpected SQL expression %s", e)
}

var placeholderRegex = regexp.MustCompile(`\[\[([^\]]*)\]\]`)

// evalString evaluates a quoted literal. A literal made of a single placeholder stands for the placeholder's value;
// a literal mixing text and placeholders is a concatenation.
func (a *Atomizer) evalString(text string, s *scope, want schema.Type) (value.Value, error) {
	locs := placeholderRegex.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return value.Str(text), nil
	}
	if len(locs) == 1 && locs[0][0] == 0 && locs[0][1] == len(text) {
		return a.evalPlaceholder(text[locs[0][2]:locs[0][3]], s, want)
	}
	var res value.Value
	prev := 0
	add := func(v value.Value) {
		if res == nil {
			res = v
		} else {
			res = value.Apply(a.Sink, value.Add, res, v, nil)
		}
	}
	for _, loc := range locs {
		if loc[0] > prev {
			add(value.Str(text[prev:loc[0]]))
		}
		v, err := a.evalPlaceholder(text[loc[2]:loc[3]], s, schema.String)
		if err != nil {
			return nil, err
		}
		add(toString(a.Sink, v))
		prev = loc[1]
	}
	if prev < len(text) {
		add(value.Str(text[prev:]))
	}
	return res, nil
}

var opaqueTag = regexp.MustCompile(`^v\d+$`)

// evalPlaceholder evaluates the content of a [[...]] placeholder. want is the type the context expects, e.g. the type
// of the column the placeholder is written to.
func (a *Atomizer) evalPlaceholder(tag string, s *scope, want schema.Type) (value.Value, error) {
	switch {
	case tag == "?":
		return a.fresh("param", want), nil
	case strings.HasPrefix(tag, "?"):
		n, err := strconv.Atoi(tag[1:])
		if err != nil {
			return nil, fmt.Errorf("malformed placeholder [[%s]]", tag)
		}
		v, ok := s.values[n]
		if !ok {
			return nil, fmt.Errorf("placeholder [[%s]] has no value", tag)
		}
		if c, ok := v.(*value.Constant); ok {
			return cast(c, want), nil
		}
		return v, nil
	case opaqueTag.MatchString(tag):
		return a.fresh("v", want), nil
	}
	name := tag
	if i := strings.Index(tag, "|"); i >= 0 {
		name = tag[i+1:]
	} else if t, ok := a.Env.Arg(name); ok {
		return &value.Free{Name: name, Type: t}, nil
	}
	if v, ok := a.Env.Lookup(name); ok {
		switch v := v.(type) {
		case *value.Constant:
			return cast(v, want), nil
		case *value.Free:
			return v, nil
		}
	}
	return a.fresh(name, want), nil
}

func (a *Atomizer) fresh(hint string, t schema.Type) *value.Free {
	return a.Env.FreshArg(strings.ReplaceAll(hint, ".", "_"), t.IRType())
}

// cast converts a constant to the representation of a column type when the conversion is exact.
func cast(c *value.Constant, t schema.Type) value.Value {
	switch d := c.Data.(type) {
	case string:
		switch t {
		case schema.Int:
			if i, err := strconv.ParseInt(strings.TrimSpace(d), 10, 64); err == nil {
				return value.Int(i)
			}
		case schema.Real:
			if f, err := strconv.ParseFloat(strings.TrimSpace(d), 64); err == nil {
				return value.Float(f)
			}
		}
	case int64:
		switch t {
		case schema.String:
			return value.Str(strconv.FormatInt(d, 10))
		case schema.Real:
			return value.Float(float64(d))
		}
	}
	return c
}

func toString(sink diagnostics.Sink, v value.Value) value.Value {
	if c, ok := v.(*value.Constant); ok {
		return cast(c, schema.String)
	}
	if f, ok := v.(*value.Free); ok && f.Type.IsNumeric() {
		return value.ApplyUnary(sink, value.I2S, f, nil)
	}
	return v
}
