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

package cfg

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/awslabs/ar-go-txeffects/analysis/ir"
)

func call(name string, raises ...ir.Type) *ir.ExprStmt {
	c := ir.StaticCall(ir.Signature{Class: "App", Name: name}, ir.TypeVoid)
	c.Raises = raises
	return ir.Eval(c)
}

func checkSentinels(t *testing.T, g *Graph) {
	t.Helper()
	for _, id := range []NodeID{g.Entry, g.Exit, g.Return, g.Exception, g.Break, g.Continue} {
		n := g.Node(id)
		if n == nil || !n.IsSentinel() {
			t.Errorf("missing sentinel %d", id)
		}
	}
	if len(g.Preds(g.Entry)) != 0 {
		t.Errorf("entry must not have incoming edges: %v", g.Preds(g.Entry))
	}
	for _, e := range g.Edges() {
		if g.Node(e.From) == nil || g.Node(e.To) == nil {
			t.Errorf("edge %s references a removed node", e)
		}
	}
}

func countStmtNodes(g *Graph, s ir.Stmt) int {
	n := 0
	for _, x := range g.Nodes() {
		if x.Stmt == s {
			n++
		}
	}
	return n
}

func diamond() (ir.Stmt, *ir.ExprStmt, *ir.ExprStmt, *ir.ExprStmt) {
	cond := ir.Ident("cond", ir.TypeBool)
	x := ir.Ident("x", ir.TypeInt)
	a2 := ir.Eval(ir.Set(x, ir.Int(2)))
	a3 := ir.Eval(ir.Set(x, ir.Int(3)))
	write := ir.Eval(ir.StaticCall(ir.Signature{Name: "write", Params: []ir.Type{ir.TypeInt}}, ir.TypeVoid, x))
	body := ir.Seq(ir.Eval(ir.Decl("x", ir.TypeInt, nil)), ir.IfElse(cond, ir.Seq(a2), ir.Seq(a3)), write)
	return body, a2, a3, write
}

func TestSentinels(t *testing.T) {
	w := ir.Loop(ir.Ident("c", ir.TypeBool), ir.Seq(call("f")))
	stmts := map[string]ir.Stmt{
		"empty block": ir.Seq(),
		"empty":       &ir.Empty{},
		"top loop":    w,
		"return":      ir.Seq(&ir.Return{}, call("dead")),
		"throw":       &ir.Throw{X: ir.Ident("e", "Exception")},
		"break":       ir.Loop(ir.Bool(true), &ir.Break{}),
	}
	for name, s := range stmts {
		t.Run(name, func(t *testing.T) {
			g := BuildStmt(s, Options{})
			checkSentinels(t, g)
			g.Optimize()
			checkSentinels(t, g)
		})
	}
}

func TestIfElse(t *testing.T) {
	body, a2, a3, write := diamond()
	g := BuildStmt(body, Options{})
	g.Optimize()
	checkSentinels(t, g)

	branches := 0
	for _, e := range g.Edges() {
		if e.Label.Kind == Branch {
			branches++
		}
	}
	if branches != 2 {
		t.Errorf("expected two branch edges, got %d\n%s", branches, g)
	}
	paths, truncated := g.EffectPaths(func(n *Node) bool { return n.Stmt == write }, 0)
	if truncated || len(paths) != 2 {
		t.Fatalf("expected two paths to the write, got %d", len(paths))
	}
	n2, _ := g.StmtNode(a2)
	n3, _ := g.StmtNode(a3)
	wn, _ := g.StmtNode(write)
	seen := map[NodeID]int{}
	for _, p := range paths {
		if p.Nodes[0] != g.Entry || p.Terminal() != wn {
			t.Errorf("path %s should go from entry to the write", p)
		}
		if len(p.Edges) != len(p.Nodes)-1 {
			t.Errorf("path %s has %d edges", p, len(p.Edges))
		}
		for _, n := range p.Nodes {
			if n == n2 || n == n3 {
				seen[n]++
			}
		}
	}
	if seen[n2] != 1 || seen[n3] != 1 {
		t.Errorf("each branch should be on exactly one path: %v", seen)
	}
}

func TestOptimizeIdempotent(t *testing.T) {
	body, _, _, _ := diamond()
	for _, s := range []ir.Stmt{
		body,
		ir.Seq(ir.Loop(ir.Ident("c", ir.TypeBool), ir.Seq(call("f"), &ir.Continue{})), call("g")),
		&ir.Try{Body: ir.Seq(call("f", "E")), Catches: []*ir.Catch{{Name: "e", Type: "E", Body: ir.Seq()}},
			Finally: ir.Seq(call("close"))},
	} {
		g := BuildStmt(s, Options{})
		before := len(g.Nodes())
		if !g.Optimize() {
			t.Errorf("first optimization should remove routing nodes")
		}
		if len(g.Nodes()) >= before {
			t.Errorf("optimization did not shrink the graph")
		}
		snap := g.Snapshot()
		if g.Optimize() {
			t.Errorf("second optimization changed the graph")
		}
		if !reflect.DeepEqual(snap, g.Snapshot()) {
			t.Errorf("snapshot changed after second optimization")
		}
	}
}

func TestWhileLoop(t *testing.T) {
	i := ir.Ident("i", ir.TypeInt)
	inc := ir.Eval(ir.Set(i, ir.Bin(ir.Add, i, ir.Int(1))))
	w := ir.Loop(ir.Bin(ir.Lt, i, ir.Int(10)), ir.Seq(inc))
	after := call("commit")
	g := BuildStmt(ir.Seq(w, after), Options{})
	g.Optimize()

	if g.LoopCount != 1 {
		t.Errorf("LoopCount = %d", g.LoopCount)
	}
	loops := g.Loops()
	if len(loops) != 1 {
		t.Fatalf("expected one loop, got %d", len(loops))
	}
	h, _ := g.StmtNode(w)
	in, _ := g.StmtNode(inc)
	an, _ := g.StmtNode(after)
	if loops[0].Header != h || !loops[0].Contains(in) || loops[0].Contains(an) {
		t.Errorf("unexpected loop %+v", loops[0])
	}
	if g.LoopAt(h) != loops[0] {
		t.Errorf("LoopAt should find the loop by its header")
	}

	paths, _ := g.EffectPaths(func(n *Node) bool { return n.Stmt == after }, 0)
	if len(paths) != 1 {
		t.Fatalf("expected a single path skipping the loop, got %d", len(paths))
	}
	negated := false
	for _, e := range paths[0].Edges {
		if e.Label.Kind == Branch && e.Label.Negated && e.From == h {
			negated = true
		}
	}
	if !negated {
		t.Errorf("the path should leave the loop through the negated condition")
	}
}

func TestNestedLoops(t *testing.T) {
	inner := ir.Loop(ir.Ident("b", ir.TypeBool), ir.Seq(call("f")))
	outer := ir.Loop(ir.Ident("a", ir.TypeBool), ir.Seq(inner, call("g")))
	g := BuildStmt(outer, Options{})
	g.Optimize()
	all := g.AllLoops()
	if len(all) != 2 {
		t.Fatalf("expected two loops, got %d", len(all))
	}
	oh, _ := g.StmtNode(outer)
	ih, _ := g.StmtNode(inner)
	if all[0].Header != oh || all[1].Header != ih || all[1].Parent != all[0] {
		t.Errorf("unexpected loop forest: outer %d inner %d", all[0].Header, all[1].Header)
	}
	if !all[0].Contains(ih) {
		t.Errorf("the outer loop contains the inner loop")
	}
}

func TestBreakLeavesLoop(t *testing.T) {
	d := ir.Ident("d", ir.TypeBool)
	w := ir.Loop(ir.Ident("c", ir.TypeBool), ir.Seq(ir.IfElse(d, &ir.Break{}, nil), call("f")))
	after := call("after")
	g := BuildStmt(ir.Seq(w, after), Options{})
	g.Optimize()
	paths, _ := g.EffectPaths(func(n *Node) bool { return n.Stmt == after }, 0)
	if len(paths) != 2 {
		t.Errorf("expected the loop exit and the break, got %d paths", len(paths))
	}
	if len(g.Preds(g.Break)) != 0 {
		t.Errorf("a break inside a loop must not reach the break sentinel")
	}
}

func TestEmptyHandlerBindsNothing(t *testing.T) {
	tr := &ir.Try{
		Body:    ir.Seq(call("update", "SQLException")),
		Catches: []*ir.Catch{{Name: "e", Type: "SQLException", Body: ir.Seq()}},
	}
	g := BuildStmt(ir.Seq(tr, call("log")), Options{})
	g.Optimize()
	caught := false
	for _, e := range g.Edges() {
		if e.Label.Kind == ExceptionCatch {
			caught = true
			if e.Label.Binding != "" {
				t.Errorf("an empty handler should not bind %q", e.Label.Binding)
			}
		}
	}
	if !caught {
		t.Errorf("expected a catch edge")
	}
}

func TestTryFinally(t *testing.T) {
	fin := call("close")
	handler := call("log")
	tr := &ir.Try{
		Body:    ir.Seq(call("update", "SQLException")),
		Catches: []*ir.Catch{{Name: "e", Type: "SQLException", Body: ir.Seq(handler, &ir.Throw{X: ir.Ident("e", "SQLException")})}},
		Finally: ir.Seq(fin),
	}
	g := BuildStmt(tr, Options{})
	g.Optimize()
	checkSentinels(t, g)
	if n := countStmtNodes(g, fin); n != 2 {
		t.Fatalf("finally should be built twice, got %d copies", n)
	}
	toExit, _ := g.PathsTo(g.Exit, 0, false)
	toExc, _ := g.PathsTo(g.Exception, 0, false)
	if len(toExit) == 0 || len(toExc) == 0 {
		t.Fatalf("expected paths to exit and exception")
	}
	hn, _ := g.StmtNode(handler)
	for _, p := range toExc {
		through := 0
		caught := false
		for i, n := range p.Nodes {
			if g.Node(n).Stmt == fin {
				through++
			}
			if n == hn {
				caught = true
			}
			if i > 0 && p.Edges[i-1].Label.Kind == ExceptionCatch && p.Edges[i-1].Label.Binding != "e" {
				t.Errorf("unexpected catch binding")
			}
		}
		if through != 1 || !caught {
			t.Errorf("exceptional path %s should run the handler and finally once", p)
		}
	}
	for _, p := range toExit {
		through := 0
		for _, n := range p.Nodes {
			if g.Node(n).Stmt == fin {
				through++
			}
		}
		if through != 1 {
			t.Errorf("normal path %s should run finally once", p)
		}
	}
}

func TestInterestingExceptions(t *testing.T) {
	s := call("f", "IOException", "SQLException")
	g := BuildStmt(ir.Seq(s), Options{Interesting: func(t ir.Type) bool { return t == "SQLException" }})
	raises := 0
	for _, e := range g.Edges() {
		if e.Label.Kind == ExceptionRaise {
			raises++
			if e.Label.ExcType != "SQLException" {
				t.Errorf("unexpected raise edge %s", e)
			}
		}
	}
	if raises != 1 {
		t.Errorf("expected one raise edge, got %d", raises)
	}
}

func TestSwitchFallThrough(t *testing.T) {
	a, b, c := call("a"), call("b"), call("c")
	sw := &ir.Switch{Tag: ir.Ident("k", ir.TypeInt), Cases: []*ir.Case{
		{Labels: []ir.Expr{ir.Int(1)}, Body: []ir.Stmt{a}},
		{Labels: []ir.Expr{ir.Int(2)}, Body: []ir.Stmt{b, &ir.Break{}}},
		{Body: []ir.Stmt{c}},
	}}
	g := BuildStmt(sw, Options{})
	g.Optimize()
	count := func(s ir.Stmt) int {
		ps, _ := g.EffectPaths(func(n *Node) bool { return n.Stmt == s }, 0)
		return len(ps)
	}
	if n := count(a); n != 1 {
		t.Errorf("paths to a: %d", n)
	}
	if n := count(b); n != 2 {
		t.Errorf("paths to b (direct and fall through): %d", n)
	}
	if n := count(c); n != 1 {
		t.Errorf("paths to c (default only): %d", n)
	}
}

func TestPathLimit(t *testing.T) {
	body, _, _, write := diamond()
	g := BuildStmt(body, Options{})
	g.Optimize()
	paths, truncated := g.EffectPaths(func(n *Node) bool { return n.Stmt == write }, 1)
	if len(paths) != 1 || !truncated {
		t.Errorf("expected one path and truncation, got %d %v", len(paths), truncated)
	}
}

func TestWriteDot(t *testing.T) {
	body, _, _, _ := diamond()
	g := BuildStmt(body, Options{})
	var buf bytes.Buffer
	if err := g.WriteDot(&buf, "diamond"); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, `digraph "diamond" {`) || !strings.Contains(out, "label=\"!cond\"") {
		t.Errorf("unexpected dot output:\n%s", out)
	}
}

func TestDirectedView(t *testing.T) {
	body, _, _, _ := diamond()
	g := BuildStmt(body, Options{})
	g.Optimize()
	d := g.Directed()
	if d.Nodes().Len() != len(g.Nodes()) {
		t.Errorf("gonum view should have the same nodes")
	}
	if d.To(int64(g.Entry)).Len() != 0 {
		t.Errorf("entry has no predecessors")
	}
}
