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

// Package analysis runs the transaction effect analysis of a whole program: it builds the control flow graph of every
// method, the call graph of the program, and interprets every path reaching a database write or a commit into an
// effect.
package analysis

import (
	"fmt"
	"runtime"
	"slices"
	"time"

	"github.com/awslabs/ar-go-txeffects/analysis/callgraph"
	"github.com/awslabs/ar-go-txeffects/analysis/cfg"
	"github.com/awslabs/ar-go-txeffects/analysis/config"
	"github.com/awslabs/ar-go-txeffects/analysis/diagnostics"
	"github.com/awslabs/ar-go-txeffects/analysis/effect"
	"github.com/awslabs/ar-go-txeffects/analysis/interp"
	"github.com/awslabs/ar-go-txeffects/analysis/ir"
	"github.com/awslabs/ar-go-txeffects/analysis/schema"
	"github.com/awslabs/ar-go-txeffects/analysis/semantics"
	"github.com/awslabs/ar-go-txeffects/analysis/sqltemplate"
	"github.com/awslabs/ar-go-txeffects/internal/funcutil"
)

// Directives understood on method declarations.
const (
	// DirectiveBasic marks a method as a write primitive: it seeds the effect marking and is not analyzed itself.
	DirectiveBasic = "basic"
	// DirectiveCommit marks a method as committing the current transaction.
	DirectiveCommit = "commit"
	// DirectiveExclude excludes a method from the analysis.
	DirectiveExclude = "exclude"
)

// EffectMap maps the signature of every analyzed method to the effects of its paths, in path order.
type EffectMap map[string][]*effect.Effect

// Failure is a path whose interpretation was aborted.
type Failure struct {
	Signature string
	Path      cfg.Path
	Err       error
}

func (f Failure) String() string {
	return fmt.Sprintf("%s [%s]: %v", f.Signature, f.Path, f.Err)
}

// Result is the outcome of Run.
type Result struct {
	// Effects of every effectful method, including the failed paths (with Err set).
	Effects EffectMap
	// Order is the order in which methods were analyzed: callees before callers.
	Order       []string
	Failures    []Failure
	Diagnostics []diagnostics.Diagnostic
}

// Analyzer holds the state of one analysis of a program.
type Analyzer struct {
	Config      *config.Config
	Logger      *config.LogGroup
	Program     *ir.Program
	Schema      *schema.Schema
	Diagnostics *diagnostics.Collector

	// Graphs are the optimized control flow graphs of the methods with a body, by signature. Set by BuildCFGs.
	Graphs map[string]*cfg.Graph
	// CallGraph is set by BuildCallGraph.
	CallGraph *callgraph.Graph

	resolver *callgraph.Resolver
	registry *interp.Registry
	// primitives are the names of the write and commit methods seeding the effect marking
	primitives map[string]bool
	commits    map[string]bool
	effects    EffectMap

	// excludePaths are the absolute exclude paths of the config
	excludePaths []string
}

// NewAnalyzer returns an analyzer of program p against the database schema s. A nil config uses the defaults and a
// nil logger logs according to the config.
func NewAnalyzer(c *config.Config, p *ir.Program, s *schema.Schema, logger *config.LogGroup) *Analyzer {
	if c == nil {
		c = config.NewDefault()
	}
	if logger == nil {
		logger = config.NewLogGroup(c)
	}
	if s == nil {
		s = schema.New()
	}
	a := &Analyzer{
		Config:      c,
		Logger:      logger,
		Program:     p,
		Schema:      s,
		Diagnostics: diagnostics.NewCollector(logger),
		Graphs:      map[string]*cfg.Graph{},
		primitives:  map[string]bool{},
		commits:     map[string]bool{},
	}
	a.resolver = callgraph.NewResolver(p, callgraph.DefaultSingletonPrefixes)
	a.excludePaths = MakeAbsolute(c.ExcludedPaths())

	// Directives extend the configured primitives
	regCfg := *c
	regCfg.BasicCommits = slices.Clone(c.BasicCommits)
	for _, m := range p.Methods() {
		if m.HasDirective(DirectiveCommit) {
			regCfg.BasicCommits = append(regCfg.BasicCommits, m.Signature.String())
		}
		if m.HasDirective(DirectiveBasic) {
			a.primitives[m.Signature.String()] = true
		}
	}
	for _, name := range semantics.Commits(&regCfg) {
		a.commits[name] = true
		a.primitives[name] = true
	}
	for _, name := range semantics.Writes(&regCfg) {
		a.primitives[name] = true
	}
	for _, name := range c.BasicEffects {
		a.primitives[name] = true
	}
	a.registry = interp.NewRegistry()
	semantics.Register(a.registry, &regCfg)
	return a
}

func (a *Analyzer) parallelism() int {
	if a.Config.Parallelism > 0 {
		return a.Config.Parallelism
	}
	return runtime.NumCPU()
}

// BuildCFGs desugars the loops of the program and builds the optimized control flow graph of every method with a
// body, in parallel.
func (a *Analyzer) BuildCFGs() {
	a.Logger.Infof("Building control flow graphs ...")
	start := time.Now()
	ir.DesugarProgram(a.Program)
	var methods []*ir.Method
	for _, m := range a.Program.Methods() {
		if m.Body != nil {
			methods = append(methods, m)
		}
	}
	opts := cfg.Options{
		Interesting: func(t ir.Type) bool { return a.Config.IsInterestingException(string(t)) },
		Sink:        a.Diagnostics,
	}
	graphs := funcutil.MapParallel(methods, func(m *ir.Method) *cfg.Graph {
		g := cfg.Build(m, opts)
		g.Optimize()
		return g
	}, a.parallelism())
	for i, m := range methods {
		a.Graphs[m.Signature.String()] = graphs[i]
	}
	a.Logger.Infof("Control flow graphs of %d methods built (%.2f s).", len(graphs), time.Since(start).Seconds())
}

// BuildCallGraph builds the class hierarchy call graph of the program and marks its effectful methods.
func (a *Analyzer) BuildCallGraph() {
	start := time.Now()
	a.CallGraph = callgraph.Build(a.Program, a.resolver)
	n := a.MarkEffects()
	a.Logger.Infof("Call graph of %d methods built, %d effectful (%.2f s).",
		len(a.CallGraph.Nodes()), n, time.Since(start).Seconds())
}

// MarkEffects marks the write and commit primitives of the call graph and, transitively, their callers. It returns
// the number of effectful methods.
func (a *Analyzer) MarkEffects() int {
	for _, name := range funcutil.SetToOrderedSlice(a.primitives) {
		if a.CallGraph.MarkNameAsEffect(name) == 0 {
			a.Logger.Tracef("primitive %s is never called", name)
		}
	}
	return len(a.CallGraph.Effects())
}

func (a *Analyzer) isPrimitive(sig ir.Signature) bool {
	return a.primitives[sig.String()] || a.primitives[sig.QualifiedName()]
}

func (a *Analyzer) isExcluded(sig ir.Signature) bool {
	if a.Config.IsExcluded(sig.Class, sig.Name) {
		return true
	}
	m := a.Program.Method(sig)
	return m != nil && (m.HasDirective(DirectiveExclude) || IsExcludedPosition(m.Pos, a.excludePaths))
}

// EffectfulSignatures returns the non-trivial effectful methods in topological order, callees first. A method is
// trivial if it has no body or is a primitive.
func (a *Analyzer) EffectfulSignatures() []string {
	var res []string
	for _, name := range a.CallGraph.Sorted(a.Diagnostics) {
		if !a.CallGraph.IsEffect(name) || a.Graphs[name] == nil {
			continue
		}
		sig, _ := a.CallGraph.Signature(name)
		if a.isPrimitive(sig) || a.isExcluded(sig) {
			continue
		}
		res = append(res, name)
	}
	return res
}

// IsEffectCall returns true if c calls a primitive or a method that may transitively call one.
func (a *Analyzer) IsEffectCall(c *ir.Call) bool {
	if a.isPrimitive(c.Method) {
		return true
	}
	if a.CallGraph == nil {
		return false
	}
	for _, target := range a.resolver.Resolve(c) {
		if a.CallGraph.IsEffect(target.String()) {
			return true
		}
	}
	return false
}

// IsCommitCall returns true if c commits the current transaction.
func (a *Analyzer) IsCommitCall(c *ir.Call) bool {
	return a.commits[c.Method.String()] || a.commits[c.Method.QualifiedName()]
}

func (a *Analyzer) isSite(n *cfg.Node) bool {
	return funcutil.Exists(cfg.NodeCalls(n), a.IsEffectCall)
}

// calleeEffects returns the successful effects of the analyzed targets of c.
func (a *Analyzer) calleeEffects(c *ir.Call) []*effect.Effect {
	var res []*effect.Effect
	for _, target := range a.resolver.Resolve(c) {
		for _, e := range a.effects[target.String()] {
			if e.Err == nil {
				res = append(res, e)
			}
		}
	}
	return res
}

func (a *Analyzer) interpOptions() interp.Options {
	opts := interp.Options{
		Registry:     a.registry,
		Schema:       a.Schema,
		Sink:         a.Diagnostics,
		Keys:         sqltemplate.KeyPolicy{Suffixes: a.Config.KeySuffixes},
		Program:      a.Program,
		IsEffectCall: a.IsEffectCall,
	}
	if a.Config.ChainCallees {
		opts.CalleeEffects = a.calleeEffects
	}
	return opts
}

// Run builds the graphs if needed and interprets every path from the entry of every effectful method to each of its
// effect sites. Methods are analyzed callees first, so that the effects of a callee are available to its callers.
// Paths of one method are interpreted in parallel.
func (a *Analyzer) Run() *Result {
	if len(a.Graphs) == 0 {
		a.BuildCFGs()
	}
	if a.CallGraph == nil {
		a.BuildCallGraph()
	}
	a.Logger.Infof("Interpreting effect paths ...")
	start := time.Now()
	a.effects = EffectMap{}
	res := &Result{Effects: a.effects}
	opts := a.interpOptions()
	for _, name := range a.EffectfulSignatures() {
		g := a.Graphs[name]
		paths, truncated := g.EffectPaths(a.isSite, a.Config.MaxPaths)
		if truncated {
			a.Diagnostics.Report(diagnostics.PathLimit, g.Method.Pos,
				"%s has more than %d effect paths, the rest are ignored", name, a.Config.MaxPaths)
		}
		a.Logger.Debugf("%-10s%s: %d paths", "Analyzing", name, len(paths))
		// the loop forest is cached on first use, compute it before the graph is shared
		g.Loops()
		effects := funcutil.MapParallel(paths, func(p cfg.Path) *effect.Effect {
			e, _ := interp.Interpret(g, p, opts)
			return e
		}, a.parallelism())
		for i, e := range effects {
			if e.Err != nil {
				res.Failures = append(res.Failures, Failure{Signature: name, Path: paths[i], Err: e.Err})
				a.Logger.Debugf("path %s of %s failed: %v", paths[i], name, e.Err)
			}
		}
		a.effects[name] = effects
		res.Order = append(res.Order, name)
	}
	res.Diagnostics = a.Diagnostics.All()
	a.Logger.Infof("%d effects of %d methods, %d failed paths (%.2f s).",
		res.NumEffects(), len(res.Order), len(res.Failures), time.Since(start).Seconds())
	return res
}

// NumEffects returns the total number of effects in the result.
func (r *Result) NumEffects() int {
	n := 0
	for _, es := range r.Effects {
		n += len(es)
	}
	return n
}
