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
	"github.com/awslabs/ar-go-txeffects/analysis/diagnostics"
	"github.com/awslabs/ar-go-txeffects/analysis/ir"
)

// Options parameterize graph construction.
type Options struct {
	// Interesting filters the exception types that produce raise edges for calls. All types are interesting when
	// it is nil. Explicit throw statements always produce a raise edge.
	Interesting func(ir.Type) bool

	// Sink receives diagnostics about unsupported statements.
	Sink diagnostics.Sink
}

// frag is the set of sentinels of a sub-graph under construction.
type frag struct {
	entry, exit, ret, exc, brk, cont NodeID
}

type builder struct {
	g      *Graph
	opts   Options
	depth  int
	byStmt map[ir.Stmt]NodeID
}

// Build returns the control flow graph of the body of m. Loops must have been desugared to While.
func Build(m *ir.Method, opts Options) *Graph {
	var body ir.Stmt = &ir.Block{}
	if m.Body != nil {
		body = m.Body
	}
	g := BuildStmt(body, opts)
	g.Method = m
	return g
}

// BuildStmt returns the control flow graph of a statement.
func BuildStmt(s ir.Stmt, opts Options) *Graph {
	if opts.Sink == nil {
		opts.Sink = diagnostics.Discard
	}
	b := &builder{g: newGraph(), opts: opts, byStmt: map[ir.Stmt]NodeID{}}
	top := b.build(s)
	g := b.g
	g.addEdge(g.Entry, top.entry, Label{})
	g.redirect(top.exit, g.Exit)
	g.redirect(top.ret, g.Return)
	g.redirect(top.exc, g.Exception)
	g.redirect(top.brk, g.Break)
	g.redirect(top.cont, g.Continue)
	return g
}

func (b *builder) newFrag() frag {
	r := func() NodeID { return b.g.addNode(Routing, nil, b.depth) }
	return frag{entry: r(), exit: r(), ret: r(), exc: r(), brk: r(), cont: r()}
}

// nodeFor returns the node of s, creating it on first use.
func (b *builder) nodeFor(s ir.Stmt) NodeID {
	if id, ok := b.byStmt[s]; ok {
		return id
	}
	id := b.g.addNode(Statement, s, b.depth)
	b.byStmt[s] = id
	return id
}

func (b *builder) edge(from, to NodeID) {
	b.g.addEdge(from, to, Label{})
}

func (b *builder) branch(from, to NodeID, cond ir.Expr, negated bool) {
	if ir.IsTrueLiteral(cond) && !negated {
		b.edge(from, to)
		return
	}
	b.g.addEdge(from, to, Label{Kind: Branch, Cond: cond, Negated: negated})
}

// absorb forwards the return, exception, break and continue sentinels of c to those of f.
func (b *builder) absorb(c, f frag) {
	b.g.redirect(c.ret, f.ret)
	b.g.redirect(c.exc, f.exc)
	b.g.redirect(c.brk, f.brk)
	b.g.redirect(c.cont, f.cont)
}

// simple builds the fragment entry -> node(s) -> next, where next is the sentinel returned by target.
func (b *builder) simple(s ir.Stmt, target func(f frag) NodeID) (frag, NodeID) {
	f := b.newFrag()
	n := b.nodeFor(s)
	b.edge(f.entry, n)
	b.edge(n, target(f))
	return f, n
}

func (b *builder) raises(n NodeID, e ir.Expr, f frag) {
	if e == nil {
		return
	}
	for _, c := range ir.Calls(e) {
		for _, t := range c.Raises {
			if b.opts.Interesting == nil || b.opts.Interesting(t) {
				b.g.addEdge(n, f.exc, Label{Kind: ExceptionRaise, ExcType: t, Expr: c})
			}
		}
	}
}

func (b *builder) build(s ir.Stmt) frag {
	switch s := s.(type) {
	case *ir.Block:
		return b.block(s.Stmts, true)
	case *ir.If:
		return b.ifStmt(s)
	case *ir.While:
		return b.while(s)
	case *ir.Break:
		f, _ := b.simple(s, func(f frag) NodeID { return f.brk })
		return f
	case *ir.Continue:
		f, _ := b.simple(s, func(f frag) NodeID { return f.cont })
		return f
	case *ir.ExprStmt:
		f, n := b.simple(s, func(f frag) NodeID { return f.exit })
		b.raises(n, s.X, f)
		return f
	case *ir.Throw:
		f := b.newFrag()
		n := b.nodeFor(s)
		b.edge(f.entry, n)
		b.g.addEdge(n, f.exc, Label{Kind: ExceptionRaise, ExcType: s.X.Type(), Expr: s.X})
		return f
	case *ir.Return:
		f, n := b.simple(s, func(f frag) NodeID { return f.ret })
		b.raises(n, s.X, f)
		return f
	case *ir.Try:
		return b.try(s)
	case *ir.Switch:
		return b.switchStmt(s)
	case *ir.Empty:
		f := b.newFrag()
		b.edge(f.entry, f.exit)
		return f
	case *ir.OpaqueStmt:
		b.opts.Sink.Report(diagnostics.Unsupported, s.Pos(), "statement %s is not modeled", s.Kind)
		f, _ := b.simple(s, func(f frag) NodeID { return f.exit })
		return f
	case *ir.For, *ir.ForEach, *ir.DoWhile:
		// tolerated for callers that skipped desugaring
		return b.build(ir.Desugar(s))
	default:
		b.opts.Sink.Report(diagnostics.Unresolvable, s.Pos(), "unknown statement kind %T", s)
		f := b.newFrag()
		b.edge(f.entry, f.exit)
		return f
	}
}

// block sequences the statements. A block opens a new scope, case bodies of a switch do not.
func (b *builder) block(stmts []ir.Stmt, scope bool) frag {
	f := b.newFrag()
	if scope {
		b.depth++
		defer func() { b.depth-- }()
	}
	prev := f.entry
	for _, st := range stmts {
		c := b.build(st)
		b.edge(prev, c.entry)
		b.absorb(c, f)
		prev = c.exit
	}
	b.edge(prev, f.exit)
	return f
}

func (b *builder) ifStmt(s *ir.If) frag {
	f := b.newFrag()
	n := b.nodeFor(s)
	b.edge(f.entry, n)
	then := b.build(s.Then)
	b.branch(n, then.entry, s.Cond, false)
	b.edge(then.exit, f.exit)
	b.absorb(then, f)
	if s.Else != nil {
		els := b.build(s.Else)
		b.branch(n, els.entry, s.Cond, true)
		b.edge(els.exit, f.exit)
		b.absorb(els, f)
	} else {
		b.branch(n, f.exit, s.Cond, true)
	}
	return f
}

func (b *builder) while(s *ir.While) frag {
	f := b.newFrag()
	h := b.nodeFor(s)
	b.edge(f.entry, h)
	body := b.build(s.Body)
	b.branch(h, body.entry, s.Cond, false)
	if !ir.IsTrueLiteral(s.Cond) {
		b.branch(h, f.exit, s.Cond, true)
	}
	b.edge(body.exit, h)
	b.g.redirect(body.brk, f.exit)
	b.g.redirect(body.cont, h)
	b.g.redirect(body.ret, f.ret)
	b.g.redirect(body.exc, f.exc)
	b.g.LoopCount++
	return f
}

// switchStmt builds Java switch semantics: the first matching case is entered and execution falls through the
// following cases until a break.
func (b *builder) switchStmt(s *ir.Switch) frag {
	f := b.newFrag()
	n := b.nodeFor(s)
	b.edge(f.entry, n)

	var all ir.Expr
	conds := make([]ir.Expr, len(s.Cases))
	for i, c := range s.Cases {
		for _, l := range c.Labels {
			eq := ir.Bin(ir.Eq, s.Tag, l)
			if conds[i] == nil {
				conds[i] = eq
			} else {
				conds[i] = ir.Bin(ir.Or, conds[i], eq)
			}
		}
		if conds[i] != nil {
			if all == nil {
				all = conds[i]
			} else {
				all = ir.Bin(ir.Or, all, conds[i])
			}
		}
	}

	b.depth++
	hasDefault := false
	prev := NodeID(-1)
	for i, c := range s.Cases {
		cf := b.block(c.Body, false)
		switch {
		case conds[i] != nil:
			b.branch(n, cf.entry, conds[i], false)
		case all != nil:
			hasDefault = true
			b.branch(n, cf.entry, all, true)
		default:
			hasDefault = true
			b.edge(n, cf.entry)
		}
		if prev >= 0 {
			b.edge(prev, cf.entry)
		}
		b.g.redirect(cf.brk, f.exit)
		b.g.redirect(cf.ret, f.ret)
		b.g.redirect(cf.exc, f.exc)
		b.g.redirect(cf.cont, f.cont)
		prev = cf.exit
	}
	b.depth--
	if prev >= 0 {
		b.edge(prev, f.exit)
	}
	if !hasDefault {
		if all == nil {
			b.edge(n, f.exit)
		} else {
			b.branch(n, f.exit, all, true)
		}
	}
	return f
}

// try routes the normal exits of the body and handlers through one copy of the finally block, and the exceptional
// exits through a second copy that ends at the exception sentinel.
func (b *builder) try(s *ir.Try) frag {
	f := b.newFrag()
	body := b.build(s.Body)
	b.edge(f.entry, body.entry)
	b.g.redirect(body.ret, f.ret)
	b.g.redirect(body.brk, f.brk)
	b.g.redirect(body.cont, f.cont)

	handlers := make([]frag, len(s.Catches))
	for i, c := range s.Catches {
		h := b.build(c.Body)
		binding := c.Name
		if c.Body == nil || len(c.Body.Stmts) == 0 {
			// no handler statement would consume the binding
			binding = ""
		}
		b.g.addEdge(body.exc, h.entry, Label{Kind: ExceptionCatch, ExcType: c.Type, Binding: binding})
		b.g.redirect(h.ret, f.ret)
		b.g.redirect(h.brk, f.brk)
		b.g.redirect(h.cont, f.cont)
		handlers[i] = h
	}

	if s.Finally == nil {
		b.edge(body.exit, f.exit)
		for _, h := range handlers {
			b.edge(h.exit, f.exit)
			b.g.redirect(h.exc, f.exc)
		}
		if len(handlers) == 0 {
			b.g.redirect(body.exc, f.exc)
		}
		return f
	}

	fin := b.build(s.Finally)
	// the exceptional copy must not share nodes with the normal one
	saved := b.byStmt
	b.byStmt = map[ir.Stmt]NodeID{}
	finEx := b.build(s.Finally)
	b.byStmt = saved

	b.edge(body.exit, fin.entry)
	for _, h := range handlers {
		b.edge(h.exit, fin.entry)
		b.edge(h.exc, finEx.entry)
	}
	if len(handlers) == 0 {
		b.edge(body.exc, finEx.entry)
	}
	b.edge(fin.exit, f.exit)
	b.edge(finEx.exit, f.exc)
	b.absorb(fin, f)
	b.absorb(finEx, f)
	return f
}
