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

// Package callgraph implements the whole-program call graph over method signatures, its construction by class
// hierarchy analysis, and the backward marking of effectful methods.
package callgraph

import (
	"go/token"
	"sort"
	"strings"

	"github.com/awslabs/ar-go-txeffects/analysis/diagnostics"
	"github.com/awslabs/ar-go-txeffects/analysis/ir"
	"github.com/awslabs/ar-go-txeffects/internal/graphutil"
	"github.com/yourbasic/graph"
)

// Graph is a caller -> callee graph whose nodes are fully-qualified signatures. The set of effect nodes only grows.
type Graph struct {
	sigs   []ir.Signature
	index  map[string]int
	succ   map[int]map[int]bool
	pred   map[int]map[int]bool
	effect map[int]bool
}

// New returns an empty call graph.
func New() *Graph {
	return &Graph{
		index:  map[string]int{},
		succ:   map[int]map[int]bool{},
		pred:   map[int]map[int]bool{},
		effect: map[int]bool{},
	}
}

// AddNode adds sig to the graph and returns its id.
func (g *Graph) AddNode(sig ir.Signature) int {
	key := sig.String()
	if id, ok := g.index[key]; ok {
		return id
	}
	id := len(g.sigs)
	g.sigs = append(g.sigs, sig)
	g.index[key] = id
	g.succ[id] = map[int]bool{}
	g.pred[id] = map[int]bool{}
	return id
}

// Add adds the edge caller -> callee.
func (g *Graph) Add(caller, callee ir.Signature) {
	x, y := g.AddNode(caller), g.AddNode(callee)
	g.succ[x][y] = true
	g.pred[y][x] = true
}

// Union adds the nodes, edges and effect marks of other to g.
func (g *Graph) Union(other *Graph) {
	for _, s := range other.sigs {
		g.AddNode(s)
	}
	for x, ys := range other.succ {
		for y := range ys {
			g.Add(other.sigs[x], other.sigs[y])
		}
	}
	for x := range other.effect {
		g.effect[g.index[other.sigs[x].String()]] = true
	}
}

// Has returns true if sig is a node of the graph.
func (g *Graph) Has(sig string) bool {
	_, ok := g.index[sig]
	return ok
}

// Signature returns the signature of the node with the given string form.
func (g *Graph) Signature(sig string) (ir.Signature, bool) {
	id, ok := g.index[sig]
	if !ok {
		return ir.Signature{}, false
	}
	return g.sigs[id], true
}

// Nodes returns the signatures of the graph, sorted.
func (g *Graph) Nodes() []string {
	res := make([]string, len(g.sigs))
	for i, s := range g.sigs {
		res[i] = s.String()
	}
	sort.Strings(res)
	return res
}

func (g *Graph) names(ids map[int]bool) []string {
	res := make([]string, 0, len(ids))
	for id := range ids {
		res = append(res, g.sigs[id].String())
	}
	sort.Strings(res)
	return res
}

// Callers returns the sorted callers of sig.
func (g *Graph) Callers(sig string) []string {
	id, ok := g.index[sig]
	if !ok {
		return nil
	}
	return g.names(g.pred[id])
}

// Callees returns the sorted callees of sig.
func (g *Graph) Callees(sig string) []string {
	id, ok := g.index[sig]
	if !ok {
		return nil
	}
	return g.names(g.succ[id])
}

// MarkAsEffect marks sig and all its transitive callers as effects. Unknown signatures and signatures already
// marked are ignored.
func (g *Graph) MarkAsEffect(sig string) {
	id, ok := g.index[sig]
	if !ok || g.effect[id] {
		return
	}
	g.markFrom(id)
}

func (g *Graph) markFrom(id int) {
	queue := []int{id}
	vis := map[int]bool{}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if vis[cur] {
			continue
		}
		vis[cur] = true
		g.effect[cur] = true
		for p := range g.pred[cur] {
			if !vis[p] {
				queue = append(queue, p)
			}
		}
	}
}

// MarkNameAsEffect marks every node whose qualified name (Class.Name) or full signature is name, and returns the
// number of nodes matched.
func (g *Graph) MarkNameAsEffect(name string) int {
	n := 0
	for id, s := range g.sigs {
		if s.QualifiedName() == name || s.String() == name {
			n++
			if !g.effect[id] {
				g.markFrom(id)
			}
		}
	}
	return n
}

// IsEffect returns true if sig has been marked.
func (g *Graph) IsEffect(sig string) bool {
	id, ok := g.index[sig]
	return ok && g.effect[id]
}

// Effects returns the marked signatures, sorted.
func (g *Graph) Effects() []string {
	return g.names(g.effect)
}

// Sorted returns the effect nodes in topological order, callees first. If the effect subgraph has cycles, a
// diagnostic listing them is reported and the back edges found by a depth-first search from the nodes without
// callers are dropped to produce a best-effort order.
func (g *Graph) Sorted(sink diagnostics.Sink) []string {
	ids := make([]int, 0, len(g.effect))
	for id := range g.effect {
		ids = append(ids, id)
	}
	// dense local ids, ordered by signature for determinism
	sort.Slice(ids, func(i, j int) bool { return g.sigs[ids[i]].String() < g.sigs[ids[j]].String() })
	local := make(map[int]int64, len(ids))
	d := graphutil.NewDigraph()
	for i, id := range ids {
		local[id] = int64(i)
		d.AddNode(int64(i))
	}
	for _, id := range ids {
		for callee := range g.succ[id] {
			if y, ok := local[callee]; ok {
				d.AddEdge(local[id], y)
			}
		}
	}

	order, ok := graph.TopSort(d)
	if !ok {
		if sink != nil {
			var cycles []string
			for _, c := range graphutil.FindAllElementaryCycles(d) {
				names := make([]string, len(c))
				for i, x := range c {
					names[i] = g.sigs[ids[x]].String()
				}
				cycles = append(cycles, strings.Join(names, " -> "))
			}
			sink.Report(diagnostics.CyclicCallGraph, token.Position{},
				"effect call graph has %d cycle(s), dropping back edges: %s", len(cycles), strings.Join(cycles, "; "))
		}
		dropBackEdges(d)
		order, _ = graph.TopSort(d)
	}
	res := make([]string, len(order))
	for i, x := range order {
		// TopSort puts callers first
		res[len(order)-1-i] = g.sigs[ids[x]].String()
	}
	return res
}

// dropBackEdges removes the back edges of a depth-first search started from every node without predecessors, then
// from the remaining unvisited nodes.
func dropBackEdges(d *graphutil.Digraph) {
	const (
		white = iota
		grey
		black
	)
	color := map[int64]int{}
	var visit func(v int64)
	visit = func(v int64) {
		color[v] = grey
		for _, w := range d.Successors(v) {
			switch color[w] {
			case grey:
				d.RemoveEdge(v, w)
			case white:
				visit(w)
			}
		}
		color[v] = black
	}
	for _, v := range d.Keys {
		if len(d.Predecessors(v)) == 0 && color[v] == white {
			visit(v)
		}
	}
	for _, v := range d.Keys {
		if color[v] == white {
			visit(v)
		}
	}
}
