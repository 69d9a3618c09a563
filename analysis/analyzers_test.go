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

package analysis

import (
	"io"
	"strings"
	"testing"

	"github.com/awslabs/ar-go-txeffects/analysis/config"
	"github.com/awslabs/ar-go-txeffects/analysis/diagnostics"
	"github.com/awslabs/ar-go-txeffects/analysis/effect"
	"github.com/awslabs/ar-go-txeffects/analysis/ir"
	"github.com/awslabs/ar-go-txeffects/analysis/schema"
	"github.com/awslabs/ar-go-txeffects/analysis/value"
)

const (
	store = "shop.Store"
	sqlTx = "database/sql.Tx"
	txPtr = ir.Type("*database/sql.Tx")
)

var (
	execSig   = ir.Signature{Class: sqlTx, Name: "Exec", Params: []ir.Type{"string", "...any"}}
	commitSig = ir.Signature{Class: sqlTx, Name: "Commit"}
)

func storeSig(name string, params ...ir.Type) ir.Signature {
	return ir.Signature{Class: store, Name: name, Params: params}
}

func tx() ir.Expr { return ir.Ident("tx", txPtr) }

func exec(sql string, args ...ir.Expr) *ir.Call {
	return ir.MethodCall(tx(), execSig, "database/sql.Result", append([]ir.Expr{ir.Str(sql)}, args...)...)
}

func commitTx() ir.Stmt { return ir.Eval(ir.MethodCall(tx(), commitSig, "error")) }

func storeMethod(name string, body *ir.Block, params ...*ir.Param) *ir.Method {
	var types []ir.Type
	for _, p := range params {
		types = append(types, p.Type)
	}
	return &ir.Method{Signature: storeSig(name, types...), Params: params, Body: body}
}

// testProgram is a small store:
//
//	Save(tx, n)    inserts n
//	Bump(tx, n)    calls Save, then commits if n > 10
//	Finish(tx)     commits twice
//	Risky(tx)      inserts, and inserts again in the handler of a failed insert
//	Broken(tx)     writes to an unknown table
//	Skipped(tx)    excluded by a directive
//	Log(n)         no effect
func testProgram() *ir.Program {
	txParam := &ir.Param{Name: "tx", Type: txPtr}
	nParam := &ir.Param{Name: "n", Type: ir.TypeInt}
	n := ir.Ident("n", ir.TypeInt)

	risky := exec("INSERT INTO counter (id, n) VALUES (1, 1)")
	risky.Raises = []ir.Type{"SQLException"}

	skipped := storeMethod("Skipped", ir.Seq(ir.Eval(exec("INSERT INTO counter (id, n) VALUES (3, 3)"))), txParam)
	skipped.Directives = []string{DirectiveExclude}

	return ir.NewProgram(&ir.Class{Name: store, Methods: []*ir.Method{
		storeMethod("Save", ir.Seq(
			ir.Eval(exec("INSERT INTO counter (id, n) VALUES (?, ?)", ir.Int(1), n))), txParam, nParam),
		storeMethod("Bump", ir.Seq(
			ir.Eval(ir.StaticCall(storeSig("Save", txPtr, ir.TypeInt), ir.TypeVoid, tx(), n)),
			ir.IfElse(ir.Bin(ir.Gt, n, ir.Int(10)), ir.Seq(commitTx()), nil)), txParam, nParam),
		storeMethod("Finish", ir.Seq(commitTx(), commitTx()), txParam),
		storeMethod("Risky", ir.Seq(&ir.Try{
			Body: ir.Seq(ir.Eval(risky)),
			Catches: []*ir.Catch{{Name: "e", Type: "SQLException",
				Body: ir.Seq(ir.Eval(exec("INSERT INTO counter (id, n) VALUES (2, 2)")))}},
		}), txParam),
		storeMethod("Broken", ir.Seq(ir.Eval(exec("INSERT INTO nowhere (a) VALUES (1)"))), txParam),
		skipped,
		storeMethod("Log", ir.Seq(ir.Eval(ir.Decl("m", ir.TypeInt, n))), nParam),
	}})
}

func testSchema() *schema.Schema {
	return schema.New(schema.NewTable("counter",
		&schema.Column{Name: "id", Type: schema.Int},
		&schema.Column{Name: "n", Type: schema.Int}))
}

func newTestAnalyzer(c *config.Config) *Analyzer {
	if c == nil {
		c = config.NewDefault()
	}
	logger := config.NewLogGroup(c)
	logger.SetAllOutput(io.Discard)
	return NewAnalyzer(c, testProgram(), testSchema(), logger)
}

func name(method string) string {
	for _, m := range testProgram().Methods() {
		if m.Name == method {
			return m.Signature.String()
		}
	}
	return ""
}

func TestEffectfulSignatures(t *testing.T) {
	a := newTestAnalyzer(nil)
	a.BuildCFGs()
	a.BuildCallGraph()
	sigs := a.EffectfulSignatures()
	pos := map[string]int{}
	for i, s := range sigs {
		pos[s] = i
	}
	for _, m := range []string{"Save", "Bump", "Finish", "Risky", "Broken"} {
		if _, ok := pos[name(m)]; !ok {
			t.Errorf("%s should be effectful, got %v", m, sigs)
		}
	}
	for _, m := range []string{"Log", "Skipped"} {
		if _, ok := pos[name(m)]; ok {
			t.Errorf("%s should not be analyzed", m)
		}
	}
	if pos[name("Save")] > pos[name("Bump")] {
		t.Errorf("callees should come first: %v", sigs)
	}
	for _, s := range sigs {
		if strings.HasPrefix(s, sqlTx) {
			t.Errorf("primitives are not analyzed: %s", s)
		}
	}
}

func TestRun(t *testing.T) {
	a := newTestAnalyzer(nil)
	r := a.Run()

	save := r.Effects[name("Save")]
	if len(save) != 1 || save[0].Err != nil {
		t.Fatalf("expected one successful effect for Save, got %v", save)
	}
	if len(save[0].Atoms) != 1 || save[0].Atoms[0].Kind != effect.Insert {
		t.Fatalf("expected one insert, got %s", save[0])
	}
	if v, _ := save[0].Atoms[0].Value("n"); v == nil || v.(*value.Free).Name != "n" {
		t.Errorf("expected n to be the argument, got %v", v)
	}

	bump := r.Effects[name("Bump")]
	if len(bump) != 2 {
		t.Fatalf("expected two paths in Bump, got %d", len(bump))
	}
	var chained, committed bool
	for _, e := range bump {
		if e.Err != nil {
			t.Fatalf("unexpected failure %v", e.Err)
		}
		if len(e.Next) > 0 && e.Next[0].Signature.String() == name("Save") {
			chained = true
		}
		if e.Committed {
			committed = true
			if len(e.Conditions) != 1 {
				t.Errorf("the commit is conditional, got %v", e.Conditions)
			}
		}
	}
	if !chained || !committed {
		t.Errorf("expected the effects of Save chained and a committing path (chained=%t, committed=%t)",
			chained, committed)
	}

	if len(r.Failures) != 1 || r.Failures[0].Signature != name("Broken") {
		t.Fatalf("expected Broken to fail, got %v", r.Failures)
	}
	n := 0
	for _, d := range r.Diagnostics {
		if d.Category == diagnostics.SQLParse {
			n++
		}
	}
	if n == 0 {
		t.Errorf("expected a diagnostic for the unknown table")
	}
	index := map[string]int{}
	for i, s := range r.Order {
		index[s] = i
	}
	if index[name("Save")] > index[name("Bump")] {
		t.Errorf("Save is a callee of Bump and should be analyzed first: %v", r.Order)
	}
}

func TestNoChaining(t *testing.T) {
	c := config.NewDefault()
	c.ChainCallees = false
	r := newTestAnalyzer(c).Run()
	for _, e := range r.Effects[name("Bump")] {
		for _, next := range e.Next {
			if next.Path != e.Path {
				t.Errorf("callee effects should not be chained, got %s", next)
			}
		}
	}
}

func TestPathLimit(t *testing.T) {
	c := config.NewDefault()
	c.MaxPaths = 1
	a := newTestAnalyzer(c)
	r := a.Run()
	if len(r.Effects[name("Bump")]) != 1 {
		t.Errorf("expected one path in Bump, got %d", len(r.Effects[name("Bump")]))
	}
	if a.Diagnostics.Count(diagnostics.PathLimit) == 0 {
		t.Errorf("expected a path limit diagnostic")
	}
}

func TestStatistics(t *testing.T) {
	a := newTestAnalyzer(nil)
	r := a.Run()
	s := a.Statistics(r)
	if len(s.MultipleCommits) != 1 || s.MultipleCommits[0] != name("Finish") {
		t.Errorf("expected Finish to commit twice, got %v", s.MultipleCommits)
	}
	if len(s.EffectInCatch) != 1 || s.EffectInCatch[0] != name("Risky") {
		t.Errorf("expected Risky to write in a handler, got %v", s.EffectInCatch)
	}
	if s.Failures != 1 || s.Effects != r.NumEffects() {
		t.Errorf("unexpected counters %+v", s)
	}
	if s.Committed == 0 {
		t.Errorf("expected committed effects")
	}
}

func TestCommitDirective(t *testing.T) {
	done := &ir.Method{Signature: ir.Signature{Class: "shop.Tx", Name: "Done"}, Directives: []string{DirectiveCommit}}
	p := ir.NewProgram(
		&ir.Class{Name: "shop.Tx", Methods: []*ir.Method{done}},
		&ir.Class{Name: "shop.Svc", Methods: []*ir.Method{{
			Signature: ir.Signature{Class: "shop.Svc", Name: "Run"},
			Body:      ir.Seq(ir.Eval(ir.StaticCall(done.Signature, ir.TypeVoid))),
		}}})
	c := config.NewDefault()
	logger := config.NewLogGroup(c)
	logger.SetAllOutput(io.Discard)
	a := NewAnalyzer(c, p, nil, logger)
	r := a.Run()
	es := r.Effects["shop.Svc.Run()"]
	if len(es) != 1 || !es[0].Committed {
		t.Fatalf("expected one committing effect, got %v", es)
	}
}
