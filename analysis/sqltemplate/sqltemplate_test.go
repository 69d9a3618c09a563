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
	"testing"

	"github.com/awslabs/ar-go-txeffects/analysis/effect"
	"github.com/awslabs/ar-go-txeffects/analysis/ir"
	"github.com/awslabs/ar-go-txeffects/analysis/schema"
	"github.com/awslabs/ar-go-txeffects/analysis/value"
)

type testEnv struct {
	vars map[string]value.Value
	eff  *effect.Effect
}

func newTestEnv() *testEnv {
	return &testEnv{vars: map[string]value.Value{}, eff: effect.New(ir.Signature{Class: "T", Name: "m"}, nil)}
}

func (e *testEnv) Lookup(name string) (value.Value, bool) {
	v, ok := e.vars[name]
	return v, ok
}

func (e *testEnv) Arg(name string) (ir.Type, bool) {
	a, ok := e.eff.Arg(name)
	return a.Type, ok
}

func (e *testEnv) AddArg(name string, t ir.Type) { e.eff.AddArg(name, t) }

func (e *testEnv) FreshArg(hint string, t ir.Type) *value.Free { return e.eff.FreshArg(hint, t) }

func testSchema() *schema.Schema {
	return schema.New(
		schema.NewTable("foo",
			&schema.Column{Name: "col1", Type: schema.Int},
			&schema.Column{Name: "col2", Type: schema.Int}),
		schema.NewTable("t",
			&schema.Column{Name: "id", Type: schema.Int},
			&schema.Column{Name: "a", Type: schema.String},
			&schema.Column{Name: "b", Type: schema.Real}),
		schema.NewTable("bill",
			&schema.Column{Name: "billID", Type: schema.String},
			&schema.Column{Name: "patientID", Type: schema.String},
			&schema.Column{Name: "amount", Type: schema.Real}),
		schema.NewTable("counter",
			&schema.Column{Name: "id", Type: schema.Int},
			&schema.Column{Name: "n", Type: schema.Int}),
	)
}

func TestTokenize(t *testing.T) {
	toks := Tokenize("update t SET a='x''y' WHERE id>=[[?1]];")
	want := []TokenType{TokenUpdate, TokenIdent, TokenSet, TokenIdent, TokenEq, TokenString, TokenWhere, TokenIdent,
		TokenGe, TokenPlaceholder, TokenSemicolon, TokenEOF}
	if len(toks) != len(want) {
		t.Fatalf("expected %d tokens, got %v", len(want), toks)
	}
	for i, tok := range toks {
		if tok.Type != want[i] {
			t.Errorf("token %d: expected %s, got %s", i, want[i], tok.Type)
		}
	}
	if unquote(toks[5].Literal) != "x'y" {
		t.Errorf("unexpected string content %q", unquote(toks[5].Literal))
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"INSERT INTO foo VALUES (1,2)", "INSERT INTO foo VALUES (1, 2)"},
		{"INSERT INTO foo (col1, col2) VALUES ('[[x]]', -3);", "INSERT INTO foo (col1, col2) VALUES ('[[x]]', -3)"},
		{"INSERT INTO foo VALUES ([[v1]])", "INSERT INTO foo VALUES ([[...]])"},
		{"UPDATE t SET [[X]] WHERE id=5", "UPDATE t SET [[...]] WHERE id = 5"},
		{"UPDATE counter SET n = (SELECT MAX(n) FROM counter) + 1 WHERE id = [[?1]]",
			"UPDATE counter SET n = (SELECT MAX(n) FROM counter) + 1 WHERE id = [[?1]]"},
		{"delete from bill where billID = 'b1' limit 1", "DELETE FROM bill WHERE billID = 'b1' LIMIT 1"},
		{"SELECT * FROM bill WHERE billID = [[b]] AND amount > 2.5 ORDER BY amount DESC",
			"SELECT * FROM bill WHERE billID = [[b]] AND amount > 2.5 ORDER BY amount"},
		{"SELECT bill.amount FROM bill INNER JOIN counter ON bill.billID = counter.id WHERE n = NOW());",
			"SELECT bill.amount FROM bill INNER JOIN counter ON bill.billID = counter.id WHERE n = NOW()"},
		{"SELECT COUNT(*) FROM t LIMIT 0, 10", "SELECT COUNT(*) FROM t LIMIT 10"},
	}
	for _, test := range tests {
		s, err := Parse(test.text)
		if err != nil {
			t.Errorf("Parse(%q) failed: %v", test.text, err)
			continue
		}
		if got := s.String(); got != test.want {
			t.Errorf("Parse(%q) = %q, want %q", test.text, got, test.want)
		}
	}
}

func TestParseErrors(t *testing.T) {
	for _, text := range []string{
		"",
		"DROP TABLE t",
		"INSERT foo VALUES (1)",
		"INSERT INTO foo (col1) VALUES (1, 2)",
		"UPDATE t SET a WHERE id = 1",
		"SELECT a FROM t WHERE id",
		"DELETE FROM t WHERE id = 1 garbage",
		"SELECT a FROM t WHERE id = 'unterminated",
	} {
		_, err := Parse(text)
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Errorf("Parse(%q): expected a *ParseError, got %v", text, err)
			continue
		}
		if perr.Template != text {
			t.Errorf("the error should name the template, got %q", perr.Template)
		}
	}
}

func TestReconstruct(t *testing.T) {
	x := &value.Free{Name: "X", Type: ir.TypeString}
	concat := func(vs ...value.Value) value.Value {
		res := vs[0]
		for _, v := range vs[1:] {
			res = &value.Binary{Op: value.Add, Left: res, Right: v}
		}
		return res
	}
	tmpl := Reconstruct(concat(value.Str("UPDATE t SET "), x, value.Str(" WHERE id="), value.Str("5")))
	if tmpl.Text != "UPDATE t SET [[X]] WHERE id=5" || len(tmpl.Values) != 0 {
		t.Errorf("unexpected template %q %v", tmpl.Text, tmpl.Values)
	}

	col := &value.ColumnState{Rows: &value.ResultSet{Table: "counter"}, Column: "n"}
	amount := &value.Unknown{Base: value.Base{Origin: ir.Ident("amount", ir.TypeString)}}
	tmpl = Reconstruct(concat(value.Str("UPDATE t SET b = "), col, value.Str(", a = '"), amount, value.Str("'"),
		value.Str(" WHERE id = "), value.Int(3)))
	if tmpl.Text != "UPDATE t SET b = [[?1]], a = '[[v2|amount]]' WHERE id = 3" {
		t.Errorf("unexpected template %q", tmpl.Text)
	}
	if tmpl.Values[1] != value.Value(col) {
		t.Errorf("the column read should be in the side table")
	}

	p := &value.Free{Name: "p", Type: ir.TypeInt}
	stmt := &value.SQLStatement{Text: value.Str("SELECT a FROM t WHERE id = ? AND a = '?' AND b = ?"),
		Params: map[int]value.Value{1: p}}
	tmpl = Reconstruct(stmt)
	if tmpl.Text != "SELECT a FROM t WHERE id = [[?1]] AND a = '?' AND b = [[v2]]" {
		t.Errorf("unexpected template %q", tmpl.Text)
	}
	if tmpl.Values[1] != value.Value(p) {
		t.Errorf("bound parameters go to the side table")
	}
}

func TestAtomizeInsert(t *testing.T) {
	a := &Atomizer{Schema: testSchema(), Env: newTestEnv()}
	atom, err := a.Atomize(Template{Text: "INSERT INTO foo VALUES (1,2)"})
	if err != nil {
		t.Fatalf("Atomize failed: %v", err)
	}
	if atom.Kind != effect.Insert || atom.Table.Name != "foo" {
		t.Fatalf("unexpected atom %s", atom)
	}
	for col, want := range map[string]int64{"col1": 1, "col2": 2} {
		v, ok := atom.Value(col)
		if c, isConst := v.(*value.Constant); !ok || !isConst || c.Data != want {
			t.Errorf("%s: expected %d, got %v", col, want, v)
		}
	}

	env := newTestEnv()
	a = &Atomizer{Schema: testSchema(), Env: env}
	atom, err = a.Atomize(Template{Text: "INSERT INTO bill VALUES ([[v1]])"})
	if err != nil {
		t.Fatalf("Atomize failed: %v", err)
	}
	if len(atom.Values) != 3 || len(env.eff.Args) != 3 {
		t.Errorf("an opaque value list writes a fresh argument to every column, got %s", atom)
	}

	atom, err = a.Atomize(Template{Text: "INSERT INTO bill (billID, amount) VALUES ('B[[?1]]', [[v2|total]])",
		Values: map[int]value.Value{1: value.Int(7)}})
	if err != nil {
		t.Fatalf("Atomize failed: %v", err)
	}
	if v, _ := atom.Value("billID"); v.(*value.Constant).Data != "B7" {
		t.Errorf("expected billID B7, got %v", v)
	}
	if v, _ := atom.Value("amount"); v.(*value.Free).Type != ir.TypeDouble {
		t.Errorf("expected a fresh double for amount, got %v", v)
	}
}

func TestAtomizeOpaqueUpdate(t *testing.T) {
	s := testSchema()
	env := newTestEnv()
	env.eff.AddArg("X", ir.TypeString)
	a := &Atomizer{Schema: s, Env: env}
	atom, err := a.Atomize(Template{Text: "UPDATE t SET [[X]] WHERE id=5"})
	if err != nil {
		t.Fatalf("Atomize failed: %v", err)
	}
	if atom.Kind != effect.Update {
		t.Fatalf("expected an update, got %s", atom)
	}
	if v, ok := atom.Locator("id"); !ok || v.(*value.Constant).Data != int64(5) {
		t.Errorf("expected locator id = 5, got %s", atom)
	}
	if len(atom.Values) != 2 {
		t.Fatalf("expected the two non-key columns to be written, got %s", atom)
	}
	for _, as := range atom.Values {
		if _, ok := as.Value.(*value.Free); !ok || as.Column == "id" {
			t.Errorf("unexpected assignment %s: %s", as.Column, as.Value)
		}
	}
	if !s.Table("t").Column("id").IsKey() {
		t.Errorf("locator columns should be marked as keys")
	}
}

func TestKeyPolicy(t *testing.T) {
	env := newTestEnv()
	a := &Atomizer{Schema: testSchema(), Env: env, Keys: KeyPolicy{Suffixes: []string{"ID"}}}
	atom, err := a.Atomize(Template{Text: "UPDATE bill SET [[v1]] WHERE billID = [[?1]]",
		Values: map[int]value.Value{1: value.Str("b")}})
	if err != nil {
		t.Fatalf("Atomize failed: %v", err)
	}
	if len(atom.Values) != 1 || atom.Values[0].Column != "amount" {
		t.Errorf("patientID should be excluded by the suffix policy, got %s", atom)
	}
}

func TestAtomizeSubquery(t *testing.T) {
	a := &Atomizer{Schema: testSchema(), Env: newTestEnv()}
	atom, err := a.Atomize(Template{Text: "UPDATE counter SET n = (SELECT MAX(n) FROM counter) + 1 WHERE id = [[?1]]",
		Values: map[int]value.Value{1: value.Int(3)}})
	if err != nil {
		t.Fatalf("Atomize failed: %v", err)
	}
	v, _ := atom.Value("n")
	b, ok := v.(*value.Binary)
	if !ok || b.Op != value.Add {
		t.Fatalf("expected MAX(n) + 1, got %v", v)
	}
	cs, ok := b.Left.(*value.ColumnState)
	if !ok || cs.Aggregate != value.Max || cs.Column != "n" {
		t.Errorf("expected a MAX column read, got %v", b.Left)
	}
}

func TestQuery(t *testing.T) {
	env := newTestEnv()
	env.eff.AddArg("b", ir.TypeString)
	env.vars["limit"] = value.Int(1)
	a := &Atomizer{Schema: testSchema(), Env: env}
	rs, err := a.Query(Template{Text: "SELECT * FROM bill WHERE billID = '[[b]]' LIMIT 1"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(rs.Columns) != 3 || !rs.Limited || rs.Table != "bill" {
		t.Errorf("unexpected result set %+v", rs)
	}
	if len(rs.Locators) != 1 || rs.Locators[0].Value.(*value.Free).Name != "b" {
		t.Errorf("expected locator billID = b, got %v", rs.Locators)
	}
	if _, err := a.Query(Template{Text: "DELETE FROM bill"}); !errors.Is(err, ErrNotAWrite) {
		t.Errorf("a delete is not a query, got %v", err)
	}
}

func TestPlaceholderLookup(t *testing.T) {
	env := newTestEnv()
	env.vars["amount"] = value.Str("12")
	a := &Atomizer{Schema: testSchema(), Env: env}
	atom, err := a.Atomize(Template{Text: "UPDATE counter SET n = [[v1|amount]] WHERE id = 1"})
	if err != nil {
		t.Fatalf("Atomize failed: %v", err)
	}
	if v, _ := atom.Value("n"); v.(*value.Constant).Data != int64(12) {
		t.Errorf("known constants are cast to the column type, got %v", v)
	}
}

func TestArgumentNamedLikeOpaqueValue(t *testing.T) {
	env := newTestEnv()
	env.eff.AddArg("v1", ir.TypeString)
	v1 := &value.Free{Name: "v1", Type: ir.TypeString}
	text := &value.Binary{Op: value.Add,
		Left:  &value.Binary{Op: value.Add, Left: value.Str("UPDATE t SET a = '"), Right: v1},
		Right: value.Str("' WHERE id = 5")}
	tmpl := Reconstruct(text)
	if tmpl.Text != "UPDATE t SET a = '[[?1]]' WHERE id = 5" || tmpl.Values[1] != value.Value(v1) {
		t.Errorf("unexpected template %q %v", tmpl.Text, tmpl.Values)
	}
	a := &Atomizer{Schema: testSchema(), Env: env}
	atom, err := a.Atomize(tmpl)
	if err != nil {
		t.Fatalf("Atomize failed: %v", err)
	}
	if v, _ := atom.Value("a"); v != value.Value(v1) {
		t.Errorf("expected a = v1, got %v", v)
	}
	if len(env.eff.Args) != 1 {
		t.Errorf("no fresh argument should be created, got %v", env.eff.Args)
	}
}

func TestBoundParametersCast(t *testing.T) {
	a := &Atomizer{Schema: testSchema(), Env: newTestEnv()}
	atom, err := a.Atomize(Template{Text: "UPDATE t SET a = [[?1]], b = [[?2]] WHERE id = [[?3]]",
		Values: map[int]value.Value{1: value.Int(4), 2: value.Int(2), 3: value.Str("5")}})
	if err != nil {
		t.Fatalf("Atomize failed: %v", err)
	}
	if v, _ := atom.Value("a"); v.(*value.Constant).Data != "4" {
		t.Errorf("expected the string 4, got %v", v)
	}
	if v, _ := atom.Value("b"); v.(*value.Constant).Data != float64(2) {
		t.Errorf("expected the real 2, got %v", v)
	}
	if v, _ := atom.Locator("id"); v.(*value.Constant).Data != int64(5) {
		t.Errorf("expected the integer 5, got %v", v)
	}
}

func TestAtomizeErrors(t *testing.T) {
	a := &Atomizer{Schema: testSchema(), Env: newTestEnv()}
	if _, err := a.Atomize(Template{Text: "DELETE FROM nothing WHERE id = 1"}); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("expected ErrUnknownTable, got %v", err)
	}
	if _, err := a.Atomize(Template{Text: "DELETE FROM t WHERE nothing = 1"}); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("expected ErrUnknownColumn, got %v", err)
	}
	var perr *ParseError
	if _, err := a.Atomize(Template{Text: "UPDATE t SET"}); !errors.As(err, &perr) {
		t.Errorf("expected a parse error, got %v", err)
	}
	if _, err := a.Atomize(Template{Text: "SELECT a FROM t"}); !errors.Is(err, ErrNotAWrite) {
		t.Errorf("a query is not a write, got %v", err)
	}
}
