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

// Package interp implements the abstract interpreter replaying a linear path of a control flow graph over the value
// lattice. Each path is interpreted by its own Interpreter, which owns the Effect it populates; the Registry of known
// semantics is shared read-only.
package interp

import (
	"errors"
	"fmt"
	"go/token"

	"github.com/awslabs/ar-go-txeffects/analysis/cfg"
	"github.com/awslabs/ar-go-txeffects/analysis/diagnostics"
	"github.com/awslabs/ar-go-txeffects/analysis/effect"
	"github.com/awslabs/ar-go-txeffects/analysis/ir"
	"github.com/awslabs/ar-go-txeffects/analysis/schema"
	"github.com/awslabs/ar-go-txeffects/analysis/sqltemplate"
	"github.com/awslabs/ar-go-txeffects/analysis/value"
)

var (
	// ErrUnsafeLoopEffect is returned when a path enters a loop that may write or commit more than once.
	ErrUnsafeLoopEffect = errors.New("unsafe loop effect")
	// ErrInfeasiblePath is returned when a branch condition of the path is false.
	ErrInfeasiblePath = errors.New("infeasible path")
)

// Options configure an interpreter. Options are shared by every interpreter of an analysis.
type Options struct {
	Registry *Registry
	Schema   *schema.Schema
	Sink     diagnostics.Sink
	// Keys is the policy for opaque UPDATE statements.
	Keys sqltemplate.KeyPolicy
	// Program is used to find the class of the interpreted method. May be nil.
	Program *ir.Program
	// IsEffectCall returns true for calls that write or end a transaction. It decides which loops are unsafe.
	IsEffectCall func(*ir.Call) bool
	// CalleeEffects returns the effects of an already analyzed callee, which are chained onto the effect being
	// built. May be nil.
	CalleeEffects func(*ir.Call) []*effect.Effect
}

type scope map[string]value.Value

// Interpreter interprets paths of one graph.
type Interpreter struct {
	graph  *cfg.Graph
	opts   Options
	diag   diagnostics.Sink
	effect *effect.Effect
	root   *effect.Effect

	scopes []scope

	// pinned holds the values of the condition (or switch tag) computed at the current node, reused by the branch
	// edge leaving it
	pinned map[ir.Expr]value.Value
	// pending catch bindings, defined once the scope of the handler is entered
	pending map[string]value.Value
	// headers of loops already summarized
	summarized map[cfg.NodeID]*cfg.Loop

	pos token.Position
}

// New returns an interpreter of paths of g, populating a fresh effect.
func New(g *cfg.Graph, opts Options) *Interpreter {
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}
	if opts.IsEffectCall == nil {
		opts.IsEffectCall = func(*ir.Call) bool { return false }
	}
	in := &Interpreter{
		graph:      g,
		opts:       opts,
		diag:       opts.Sink,
		scopes:     []scope{{}},
		pinned:     map[ir.Expr]value.Value{},
		summarized: map[cfg.NodeID]*cfg.Loop{},
	}
	if in.diag == nil {
		in.diag = diagnostics.Discard
	}
	var sig ir.Signature
	if g.Method != nil {
		sig = g.Method.Signature
	}
	in.root = effect.New(sig, nil)
	in.effect = in.root
	return in
}

// Interpret replays path in a fresh interpreter and returns the frozen effect. The effect is returned even on error,
// with Err set.
func Interpret(g *cfg.Graph, path cfg.Path, opts Options) (*effect.Effect, error) {
	in := New(g, opts)
	in.root.Path = &path
	if g.Method != nil {
		if opts.Program != nil {
			if c := opts.Program.Class(g.Method.Class); c != nil {
				if err := in.RunClass(c); err != nil {
					return in.finish(err)
				}
			}
		}
		in.BindParams(g.Method)
	}
	return in.finish(in.Run(path))
}

func (in *Interpreter) finish(err error) (*effect.Effect, error) {
	in.root.Err = err
	in.root.Freeze()
	return in.root, err
}

// Effect returns the effect currently populated, the last one of the chain after commits.
func (in *Interpreter) Effect() *effect.Effect { return in.effect }

// Root returns the first effect of the chain.
func (in *Interpreter) Root() *effect.Effect { return in.root }

// Schema returns the schema writes are checked against.
func (in *Interpreter) Schema() *schema.Schema { return in.opts.Schema }

// Sink returns the sink diagnostics are reported to.
func (in *Interpreter) Sink() diagnostics.Sink { return in.diag }

// Report emits a diagnostic at the position of the statement being interpreted.
func (in *Interpreter) Report(c diagnostics.Category, format string, args ...any) {
	in.diag.Report(c, in.pos, format, args...)
}

// Atomizer returns an atomizer evaluating placeholders in the current state.
func (in *Interpreter) Atomizer() *sqltemplate.Atomizer {
	return &sqltemplate.Atomizer{Schema: in.opts.Schema, Env: in, Keys: in.opts.Keys, Sink: in.diag, Pos: in.pos}
}

// Commit ends the current effect at a commit; later writes belong to its successor.
func (in *Interpreter) Commit() {
	in.effect = in.effect.Split()
}

// Rollback marks the current effect as rolled back.
func (in *Interpreter) Rollback() {
	in.effect.RolledBack = true
}

// PushScope opens a new innermost scope.
func (in *Interpreter) PushScope() {
	in.scopes = append(in.scopes, scope{})
}

// PopScope closes the innermost scope. The outermost scope, holding fields and parameters, is never closed.
func (in *Interpreter) PopScope() {
	if len(in.scopes) > 1 {
		in.scopes = in.scopes[:len(in.scopes)-1]
	}
}

// SyncDepth opens or closes scopes until the innermost scope is at the given depth.
func (in *Interpreter) SyncDepth(depth int) {
	for len(in.scopes) < depth+1 {
		in.PushScope()
	}
	for len(in.scopes) > depth+1 && len(in.scopes) > 1 {
		in.PopScope()
	}
}

// Depth returns the depth of the innermost scope.
func (in *Interpreter) Depth() int { return len(in.scopes) - 1 }

// Lookup returns the value of a variable, searching from the innermost scope. Fields of the receiver are also found
// by their bare name.
func (in *Interpreter) Lookup(name string) (value.Value, bool) {
	for i := len(in.scopes) - 1; i >= 0; i-- {
		if v, ok := in.scopes[i][name]; ok {
			return v, true
		}
	}
	if v, ok := in.scopes[0]["this."+name]; ok {
		return v, true
	}
	return nil, false
}

// Define binds name in the innermost scope.
func (in *Interpreter) Define(name string, v value.Value) {
	in.scopes[len(in.scopes)-1][name] = v
}

// Assign updates the innermost binding of name, defining it in the innermost scope if there is none.
func (in *Interpreter) Assign(name string, v value.Value) {
	for i := len(in.scopes) - 1; i >= 0; i-- {
		if _, ok := in.scopes[i][name]; ok {
			in.scopes[i][name] = v
			return
		}
	}
	if _, ok := in.scopes[0]["this."+name]; ok {
		in.scopes[0]["this."+name] = v
		return
	}
	in.Define(name, v)
}

// Arg returns the type of a free argument of the current effect.
func (in *Interpreter) Arg(name string) (ir.Type, bool) {
	a, ok := in.effect.Arg(name)
	return a.Type, ok
}

// AddArg registers a free argument of the current effect.
func (in *Interpreter) AddArg(name string, t ir.Type) { in.effect.AddArg(name, t) }

// FreshArg registers a new free argument of the current effect.
func (in *Interpreter) FreshArg(hint string, t ir.Type) *value.Free { return in.effect.FreshArg(hint, t) }

// RunClass evaluates the initializers of the fields of c. Fields assigned by a method of the class are unknown on
// entry of a method and keep an unknown value.
func (in *Interpreter) RunClass(c *ir.Class) error {
	assigned := map[string]bool{}
	for _, m := range c.Methods {
		if m.Body == nil || m.Name == "<init>" {
			continue
		}
		for _, n := range ir.AssignedNames(m.Body) {
			assigned[n] = true
		}
	}
	for _, f := range c.Fields {
		var v value.Value = &value.Unknown{Base: value.Base{Origin: &ir.FieldAccess{X: &ir.This{}, Field: f.Name}},
			Tag: f.Name}
		if f.Init != nil && !assigned[f.Name] && !assigned["this."+f.Name] {
			var err error
			if v, err = in.EvalExpr(f.Init); err != nil {
				return err
			}
		}
		in.scopes[0]["this."+f.Name] = v
	}
	return nil
}

// BindParams binds every parameter of m to a free argument of the same name.
func (in *Interpreter) BindParams(m *ir.Method) {
	for _, p := range m.Params {
		in.effect.AddArg(p.Name, p.Type)
		in.scopes[0][p.Name] = &value.Free{Name: p.Name, Type: p.Type}
	}
}

// Run replays path. Branch edges add their condition to the path condition; the first visit of a loop header
// forgets every variable assigned in the loop, and fails if the loop may write more than once.
func (in *Interpreter) Run(path cfg.Path) error {
	terminal := path.Terminal()
	for i, id := range path.Nodes {
		n := in.graph.Node(id)
		if n == nil {
			continue
		}
		if l := in.graph.LoopAt(id); l != nil {
			if _, done := in.summarized[id]; !done {
				if err := in.enterLoop(l, terminal); err != nil {
					return err
				}
			}
		}
		if n.Stmt != nil {
			in.pos = n.Stmt.Pos()
			in.SyncDepth(n.Depth)
			for name, v := range in.pending {
				in.Define(name, v)
			}
			in.pending = nil
			if err := in.EvalStmt(n.Stmt); err != nil {
				return err
			}
		}
		if i < len(path.Edges) {
			if err := in.follow(path.Edges[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// enterLoop summarizes l. A loop is unsafe if it contains a node writing or committing whose execution does not
// always leave the loop; the header itself may write when it ends the path.
func (in *Interpreter) enterLoop(l *cfg.Loop, terminal cfg.NodeID) error {
	in.summarized[l.Header] = l
	nodes := append([]cfg.NodeID{l.Header}, l.Nodes...)
	for _, id := range nodes {
		n := in.graph.Node(id)
		if !in.isEffectNode(n) || (id == l.Header && id == terminal) {
			continue
		}
		leaves := true
		for _, e := range in.graph.Succs(id) {
			if l.Contains(e.To) {
				leaves = false
			}
		}
		if !leaves {
			pos := token.Position{}
			if n.Stmt != nil {
				pos = n.Stmt.Pos()
			}
			in.diag.Report(diagnostics.UnsafeLoopEffect, pos, "write in loop at node %d may execute more than once", id)
			return fmt.Errorf("%w: node %d in loop %d", ErrUnsafeLoopEffect, id, l.Header)
		}
	}
	for _, id := range nodes {
		for _, e := range cfg.NodeExprs(in.graph.Node(id)) {
			for _, name := range ir.AssignedNames(e) {
				if _, ok := in.Lookup(name); ok {
					in.Assign(name, &value.Unknown{Base: value.Base{Origin: ir.Ident(name, ir.TypeUnknown)},
						Tag: "loop"})
				}
			}
		}
	}
	return nil
}

func (in *Interpreter) isEffectNode(n *cfg.Node) bool {
	for _, c := range cfg.NodeCalls(n) {
		if in.opts.IsEffectCall(c) {
			return true
		}
	}
	return false
}

// follow applies the label of an edge of the path.
func (in *Interpreter) follow(e *cfg.Edge) error {
	switch e.Label.Kind {
	case cfg.Branch:
		if l, ok := in.summarized[e.From]; ok && l.Header == e.From && l.Contains(e.To) {
			// entering the body of a summarized loop
			return nil
		}
		c, err := in.EvalExpr(e.Label.Cond)
		if err != nil {
			return err
		}
		if e.Label.Negated {
			c = value.ApplyUnary(in.diag, value.Not, c, e.Label.Cond)
		}
		switch value.TruthOf(c) {
		case value.False:
			in.diag.Report(diagnostics.InfeasiblePath, in.pos, "condition %s is always false", e.Label)
			return fmt.Errorf("%w: %s", ErrInfeasiblePath, e.Label)
		case value.Maybe:
			in.effect.AddCondition(c)
		}
	case cfg.ExceptionCatch:
		if e.Label.Binding != "" {
			if in.pending == nil {
				in.pending = map[string]value.Value{}
			}
			in.pending[e.Label.Binding] = &value.Unknown{Tag: string(e.Label.ExcType)}
		}
	}
	return nil
}

// EvalStmt evaluates the part of s executed at its node: the expression of simple statements, the condition of
// branching statements.
func (in *Interpreter) EvalStmt(s ir.Stmt) error {
	clear(in.pinned)
	switch s := s.(type) {
	case *ir.ExprStmt:
		_, err := in.EvalExpr(s.X)
		return err
	case *ir.Return:
		if s.X == nil {
			return nil
		}
		v, err := in.EvalExpr(s.X)
		if err == nil {
			in.effect.Return = v
		}
		return err
	case *ir.Throw:
		_, err := in.EvalExpr(s.X)
		return err
	case *ir.If:
		return in.pin(s.Cond)
	case *ir.While:
		return in.pin(s.Cond)
	case *ir.Switch:
		return in.pin(s.Tag)
	case *ir.Break, *ir.Continue, *ir.Empty:
		return nil
	case *ir.OpaqueStmt:
		in.Report(diagnostics.Unsupported, "statement %s ignored", s.Kind)
		return nil
	}
	in.Report(diagnostics.Unresolvable, "cannot interpret statement %T", s)
	return nil
}

func (in *Interpreter) pin(e ir.Expr) error {
	v, err := in.EvalExpr(e)
	if err != nil {
		return err
	}
	in.pinned[e] = v
	return nil
}
