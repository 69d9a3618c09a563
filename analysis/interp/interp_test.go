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

package interp

import (
	"errors"
	"sort"
	"testing"

	"github.com/awslabs/ar-go-txeffects/analysis/cfg"
	"github.com/awslabs/ar-go-txeffects/analysis/diagnostics"
	"github.com/awslabs/ar-go-txeffects/analysis/effect"
	"github.com/awslabs/ar-go-txeffects/analysis/ir"
	"github.com/awslabs/ar-go-txeffects/analysis/schema"
	"github.com/awslabs/ar-go-txeffects/analysis/value"
)

var (
	writeSig  = ir.Signature{Class: "Db", Name: "write", Params: []ir.Type{ir.TypeInt}}
	commitSig = ir.Signature{Class: "Db", Name: "commit"}
)

func write(x ir.Expr) *ir.ExprStmt { return ir.Eval(ir.StaticCall(writeSig, ir.TypeVoid, x)) }

func commit() *ir.ExprStmt { return ir.Eval(ir.StaticCall(commitSig, ir.TypeVoid)) }

func testOptions(sink diagnostics.Sink) Options {
	reg := NewRegistry()
	reg.Register("Db.write", func(in *Interpreter, call *ir.Call, recv value.Value, args []value.Value) (value.Value, error) {
		in.Effect().AddAtom(&effect.Atom{Kind: effect.Insert, Table: in.Schema().Table("t"),
			Values: []effect.Assignment{{Column: "x", Value: args[0]}}})
		return nil, nil
	})
	reg.Register("Db.commit", func(in *Interpreter, call *ir.Call, recv value.Value, args []value.Value) (value.Value, error) {
		in.Commit()
		return nil, nil
	})
	return Options{
		Registry: reg,
		Schema:   schema.New(schema.NewTable("t", &schema.Column{Name: "x", Type: schema.Int})),
		Sink:     sink,
		IsEffectCall: func(c *ir.Call) bool {
			return c.Method.Class == "Db"
		},
	}
}

func method(body *ir.Block, params ...*ir.Param) *ir.Method {
	sig := ir.Signature{Class: "T", Name: "m"}
	for _, p := range params {
		sig.Params = append(sig.Params, p.Type)
	}
	return &ir.Method{Signature: sig, Params: params, Body: body}
}

func isWrite(n *cfg.Node) bool {
	for _, c := range cfg.NodeCalls(n) {
		if c.Method.Name == "write" {
			return true
		}
	}
	return false
}

// effectsOf interprets every path to the writes matching isSite.
func effectsOf(t *testing.T, m *ir.Method, opts Options, isSite func(*cfg.Node) bool) ([]*effect.Effect, []error) {
	t.Helper()
	g := cfg.Build(m, cfg.Options{})
	g.Optimize()
	paths, _ := g.EffectPaths(isSite, 0)
	var effs []*effect.Effect
	var errs []error
	for _, p := range paths {
		eff, err := Interpret(g, p, opts)
		effs = append(effs, eff)
		errs = append(errs, err)
	}
	return effs, errs
}

func writtenValue(t *testing.T, e *effect.Effect) value.Value {
	t.Helper()
	if len(e.Atoms) != 1 {
		t.Fatalf("expected one atom, got %s", e)
	}
	v, _ := e.Atoms[0].Value("x")
	return v
}

func TestBranchesProduceTwoEffects(t *testing.T) {
	cond := ir.Ident("cond", ir.TypeBool)
	x := ir.Ident("x", ir.TypeInt)
	body := ir.Seq(
		ir.Eval(ir.Decl("x", ir.TypeInt, ir.Int(0))),
		ir.IfElse(cond, ir.Seq(ir.Eval(ir.Set(x, ir.Int(2)))), ir.Seq(ir.Eval(ir.Set(x, ir.Int(3))))),
		write(x))
	effs, errs := effectsOf(t, method(body, &ir.Param{Name: "cond", Type: ir.TypeBool}), testOptions(nil), isWrite)
	if len(effs) != 2 {
		t.Fatalf("expected 2 effects, got %d", len(effs))
	}
	got := map[string]int64{}
	for i, e := range effs {
		if errs[i] != nil {
			t.Fatalf("unexpected error %v", errs[i])
		}
		if len(e.Conditions) != 1 {
			t.Fatalf("expected one condition, got %v", e.Conditions)
		}
		c, ok := writtenValue(t, e).(*value.Constant)
		if !ok {
			t.Fatalf("expected a constant write, got %s", e)
		}
		got[e.Conditions[0].String()] = c.Data.(int64)
		if !e.Frozen() {
			t.Errorf("interpreted effects are frozen")
		}
		if _, ok := e.Arg("cond"); !ok {
			t.Errorf("parameters are free arguments")
		}
	}
	if got["cond"] != 2 || got["!cond"] != 3 {
		t.Errorf("expected [cond] -> 2 and [!cond] -> 3, got %v", got)
	}
}

func TestUnsafeLoopEffect(t *testing.T) {
	i := ir.Ident("i", ir.TypeInt)
	body := ir.Seq(
		ir.Eval(ir.Decl("i", ir.TypeInt, ir.Int(0))),
		ir.Loop(ir.Bin(ir.Lt, i, ir.Ident("n", ir.TypeInt)), ir.Seq(
			write(i),
			ir.Eval(ir.Set(i, ir.Bin(ir.Add, i, ir.Int(1)))))))
	diags := diagnostics.NewCollector(nil)
	effs, errs := effectsOf(t, method(body, &ir.Param{Name: "n", Type: ir.TypeInt}), testOptions(diags), isWrite)
	if len(effs) != 1 {
		t.Fatalf("expected 1 path, got %d", len(effs))
	}
	if !errors.Is(errs[0], ErrUnsafeLoopEffect) {
		t.Errorf("expected ErrUnsafeLoopEffect, got %v", errs[0])
	}
	if effs[0].Err == nil {
		t.Errorf("the failure is recorded on the effect")
	}
	if diags.Count(diagnostics.UnsafeLoopEffect) != 1 {
		t.Errorf("expected one unsafe-loop-effect diagnostic, got %v", diags.All())
	}
}

func TestLoopExitCondition(t *testing.T) {
	i := ir.Ident("i", ir.TypeInt)
	body := ir.Seq(
		ir.Eval(ir.Decl("i", ir.TypeInt, ir.Int(0))),
		ir.Loop(ir.Bin(ir.Lt, i, ir.Ident("n", ir.TypeInt)), ir.Seq(
			ir.Eval(ir.Set(i, ir.Bin(ir.Add, i, ir.Int(1)))))),
		write(i))
	effs, errs := effectsOf(t, method(body, &ir.Param{Name: "n", Type: ir.TypeInt}), testOptions(nil), isWrite)
	if len(effs) != 1 || errs[0] != nil {
		t.Fatalf("expected one successful path, got %v", errs)
	}
	e := effs[0]
	if len(e.Conditions) != 1 {
		t.Fatalf("expected the negated loop condition, got %v", e.Conditions)
	}
	b, ok := e.Conditions[0].(*value.Binary)
	if !ok || b.Op != value.Ge {
		t.Errorf("expected i >= n, got %s", e.Conditions[0])
	}
	if _, ok := writtenValue(t, e).(*value.Unknown); !ok {
		t.Errorf("variables assigned in the loop are unknown after it, got %s", writtenValue(t, e))
	}
}

func TestLoopExitWrite(t *testing.T) {
	// a write that always leaves the loop executes at most once
	i := ir.Ident("i", ir.TypeInt)
	n := ir.Ident("n", ir.TypeInt)
	exit := write(i)
	after := write(n)
	body := ir.Seq(
		ir.Eval(ir.Decl("i", ir.TypeInt, ir.Int(0))),
		ir.Loop(ir.Bin(ir.Lt, i, n), ir.Seq(
			ir.IfElse(ir.Bin(ir.Gt, i, ir.Int(3)), ir.Seq(exit, &ir.Break{}), nil),
			ir.Eval(ir.Set(i, ir.Bin(ir.Add, i, ir.Int(1)))))),
		after)
	m := method(body, &ir.Param{Name: "n", Type: ir.TypeInt})
	isLoopValue := func(v value.Value) bool {
		u, ok := v.(*value.Unknown)
		return ok && u.Tag == "loop"
	}

	effs, errs := effectsOf(t, m, testOptions(nil), func(nd *cfg.Node) bool { return nd.Stmt == exit })
	if len(effs) != 1 || errs[0] != nil {
		t.Fatalf("expected one successful path, got %v", errs)
	}
	if !isLoopValue(writtenValue(t, effs[0])) {
		t.Errorf("variables assigned in the loop are unknown in it, got %s", writtenValue(t, effs[0]))
	}
	if c := effs[0].Conditions; len(c) != 1 {
		t.Errorf("entering the loop body adds no condition, got %v", c)
	}

	effs, errs = effectsOf(t, m, testOptions(nil), func(nd *cfg.Node) bool { return nd.Stmt == after })
	if len(effs) != 2 {
		t.Fatalf("expected the loop exit and the break paths, got %d", len(effs))
	}
	exits := 0
	for k, e := range effs {
		if errs[k] != nil {
			t.Fatalf("unexpected error %v", errs[k])
		}
		for _, c := range e.Conditions {
			b, ok := c.(*value.Binary)
			if !ok || b.Op != value.Ge {
				continue
			}
			exits++
			if !isLoopValue(b.Left) {
				t.Errorf("the loop test reads the summarized i, got %s", c)
			}
			if f, ok := writtenValue(t, e).(*value.Free); !ok || f.Name != "n" {
				t.Errorf("expected a write of n, got %s", e)
			}
		}
	}
	if exits != 1 {
		t.Errorf("expected one path with the negated loop test i >= n, got %v and %v", effs[0].Conditions, effs[1].Conditions)
	}
}

func TestLoopHeaderWrite(t *testing.T) {
	i := ir.Ident("i", ir.TypeInt)
	n := ir.Ident("n", ir.TypeInt)
	loop := ir.Loop(ir.StaticCall(writeSig, ir.TypeBool, i), ir.Seq(ir.Eval(ir.Set(i, ir.Bin(ir.Add, i, ir.Int(1))))))
	after := write(n)
	m := method(ir.Seq(ir.Eval(ir.Decl("i", ir.TypeInt, ir.Int(0))), loop, after),
		&ir.Param{Name: "n", Type: ir.TypeInt})

	// the header may write when the path ends there
	effs, errs := effectsOf(t, m, testOptions(nil), func(nd *cfg.Node) bool { return nd.Stmt == loop })
	if len(effs) != 1 || errs[0] != nil {
		t.Fatalf("expected one successful path, got %v", errs)
	}
	if u, ok := writtenValue(t, effs[0]).(*value.Unknown); !ok || u.Tag != "loop" {
		t.Errorf("expected the summarized i, got %s", writtenValue(t, effs[0]))
	}

	// past the loop, the header write may have run any number of times
	_, errs = effectsOf(t, m, testOptions(nil), func(nd *cfg.Node) bool { return nd.Stmt == after })
	if len(errs) == 0 {
		t.Fatalf("expected a path to the write after the loop")
	}
	for _, err := range errs {
		if !errors.Is(err, ErrUnsafeLoopEffect) {
			t.Errorf("expected ErrUnsafeLoopEffect, got %v", err)
		}
	}
}

func TestCommitSplitsEffect(t *testing.T) {
	body := ir.Seq(write(ir.Int(1)), commit(), write(ir.Int(2)))
	last := body.Stmts[2]
	effs, errs := effectsOf(t, method(body), testOptions(nil), func(n *cfg.Node) bool { return n.Stmt == last })
	if len(effs) != 1 || errs[0] != nil {
		t.Fatalf("expected one successful path, got %v", errs)
	}
	root := effs[0]
	if !root.Committed || len(root.Next) != 1 {
		t.Fatalf("expected a committed effect with a successor, got %s", root)
	}
	if writtenValue(t, root).(*value.Constant).Data != int64(1) ||
		writtenValue(t, root.Next[0]).(*value.Constant).Data != int64(2) {
		t.Errorf("writes should be split at the commit, got %s", root)
	}
}

func TestInfeasiblePath(t *testing.T) {
	f := ir.Ident("f", ir.TypeBool)
	body := ir.Seq(ir.Eval(ir.Decl("f", ir.TypeBool, ir.Bool(false))), ir.IfElse(f, ir.Seq(write(ir.Int(1))), nil))
	diags := diagnostics.NewCollector(nil)
	_, errs := effectsOf(t, method(body), testOptions(diags), isWrite)
	if len(errs) != 1 || !errors.Is(errs[0], ErrInfeasiblePath) {
		t.Fatalf("expected ErrInfeasiblePath, got %v", errs)
	}
	if diags.Count(diagnostics.InfeasiblePath) != 1 {
		t.Errorf("expected an infeasible-path diagnostic")
	}
}

func TestCatchBinding(t *testing.T) {
	risky := ir.StaticCall(ir.Signature{Class: "App", Name: "risky"}, ir.TypeVoid)
	risky.Raises = []ir.Type{"SQLException"}
	body := ir.Seq(&ir.Try{
		Body:    ir.Seq(ir.Eval(risky)),
		Catches: []*ir.Catch{{Name: "e", Type: "SQLException", Body: ir.Seq(write(ir.Ident("e", "SQLException")))}},
	})
	effs, errs := effectsOf(t, method(body), testOptions(nil), isWrite)
	if len(effs) != 1 || errs[0] != nil {
		t.Fatalf("expected one successful path, got %v", errs)
	}
	u, ok := writtenValue(t, effs[0]).(*value.Unknown)
	if !ok || u.Tag != "SQLException" {
		t.Errorf("the caught exception should be bound, got %s", writtenValue(t, effs[0]))
	}
}

func TestCompoundAssignment(t *testing.T) {
	x := ir.Ident("x", ir.TypeInt)
	body := ir.Seq(
		ir.Eval(ir.Decl("x", ir.TypeInt, ir.Int(1))),
		ir.Eval(&ir.Assign{Target: x, Op: ir.Add, Value: ir.Int(2)}),
		write(x))
	effs, _ := effectsOf(t, method(body), testOptions(nil), isWrite)
	if c, ok := writtenValue(t, effs[0]).(*value.Constant); !ok || c.Data != int64(3) {
		t.Errorf("expected 3, got %s", writtenValue(t, effs[0]))
	}
}

func TestScopes(t *testing.T) {
	in := New(cfg.BuildStmt(ir.Seq(), cfg.Options{}), Options{})
	in.Define("a", value.Int(1))
	in.PushScope()
	in.Define("a", value.Int(2))
	if v, _ := in.Lookup("a"); v.(*value.Constant).Data != int64(2) {
		t.Errorf("inner definitions shadow outer ones")
	}
	in.Assign("b", value.Int(3))
	in.PopScope()
	if v, _ := in.Lookup("a"); v.(*value.Constant).Data != int64(1) {
		t.Errorf("popping a scope restores outer definitions")
	}
	if _, ok := in.Lookup("b"); ok {
		t.Errorf("b was defined in the popped scope")
	}
	in.SyncDepth(3)
	if in.Depth() != 3 {
		t.Errorf("expected depth 3, got %d", in.Depth())
	}
	in.SyncDepth(0)
	in.PopScope()
	if in.Depth() != 0 {
		t.Errorf("the outermost scope is never popped")
	}
}

func TestRunClass(t *testing.T) {
	count := &ir.FieldAccess{X: &ir.This{}, Field: "count"}
	c := &ir.Class{
		Name:   "T",
		Fields: []*ir.VarDecl{ir.Decl("rate", ir.TypeInt, ir.Int(5)), ir.Decl("count", ir.TypeInt, ir.Int(0))},
		Methods: []*ir.Method{{Signature: ir.Signature{Class: "T", Name: "inc"},
			Body: ir.Seq(ir.Eval(ir.Set(count, ir.Bin(ir.Add, count, ir.Int(1)))))}},
	}
	in := New(cfg.BuildStmt(ir.Seq(), cfg.Options{}), Options{})
	if err := in.RunClass(c); err != nil {
		t.Fatalf("RunClass failed: %v", err)
	}
	if v, _ := in.Lookup("rate"); v.(*value.Constant).Data != int64(5) {
		t.Errorf("fields never assigned keep their initial value")
	}
	if v, _ := in.EvalExpr(count); !value.IsSymbolic(v) {
		t.Errorf("assigned fields are unknown, got %s", v)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	var hit []string
	mk := func(name string) Handler {
		return func(*Interpreter, *ir.Call, value.Value, []value.Value) (value.Value, error) {
			hit = append(hit, name)
			return nil, nil
		}
	}
	r.Register("S.f", mk("any"))
	r.Register("S.f(int)", mk("int"))
	for _, sig := range []ir.Signature{
		{Class: "S", Name: "f", Params: []ir.Type{ir.TypeInt}},
		{Class: "S", Name: "f", Params: []ir.Type{ir.TypeString}},
	} {
		h, ok := r.Lookup(sig)
		if !ok {
			t.Fatalf("no handler for %s", sig)
		}
		_, _ = h(nil, nil, nil, nil)
	}
	if !sort.StringsAreSorted(r.Names()) || len(r.Names()) != 2 {
		t.Errorf("unexpected names %v", r.Names())
	}
	if len(hit) != 2 || hit[0] != "int" || hit[1] != "any" {
		t.Errorf("full signatures take precedence, got %v", hit)
	}
}
