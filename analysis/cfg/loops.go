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
	"sort"

	"github.com/awslabs/ar-go-txeffects/internal/graphutil"
	"gonum.org/v1/gonum/graph/topo"
)

// Loop is a natural loop of the graph. Nodes contains every node of the loop except its header, including the
// nodes of nested loops.
type Loop struct {
	Header   NodeID
	Nodes    []NodeID
	Parent   *Loop
	Children []*Loop
}

// Contains returns true if id is the header or a node of the loop.
func (l *Loop) Contains(id NodeID) bool {
	if id == l.Header {
		return true
	}
	i := sort.Search(len(l.Nodes), func(i int) bool { return l.Nodes[i] >= id })
	return i < len(l.Nodes) && l.Nodes[i] == id
}

// Loops returns the outermost loops of the graph ordered by header. Nested loops are found by recursively computing
// the strongly connected components of a loop body without its header.
func (g *Graph) Loops() []*Loop {
	g.index()
	if g.loops == nil {
		d := g.digraph()
		g.loops = g.findLoops(d, nil)
		if g.loops == nil {
			g.loops = []*Loop{}
		}
	}
	return g.loops
}

// AllLoops returns every loop, outer loops before the loops they contain.
func (g *Graph) AllLoops() []*Loop {
	var res []*Loop
	var visit func(ls []*Loop)
	visit = func(ls []*Loop) {
		for _, l := range ls {
			res = append(res, l)
			visit(l.Children)
		}
	}
	visit(g.Loops())
	return res
}

// LoopAt returns the loop whose header is id, or nil.
func (g *Graph) LoopAt(id NodeID) *Loop {
	for _, l := range g.AllLoops() {
		if l.Header == id {
			return l
		}
	}
	return nil
}

func (g *Graph) findLoops(d *graphutil.Digraph, parent *Loop) []*Loop {
	var res []*Loop
	for _, scc := range topo.TarjanSCC(d) {
		ids := make([]int64, len(scc))
		for i, n := range scc {
			ids[i] = n.ID()
		}
		if len(ids) == 1 && !d.HasEdgeFromTo(ids[0], ids[0]) {
			continue
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		in := map[int64]bool{}
		for _, id := range ids {
			in[id] = true
		}
		header := ids[0]
		for _, id := range ids {
			entered := false
			for _, p := range d.Predecessors(id) {
				if !in[p] {
					entered = true
					break
				}
			}
			if entered {
				header = id
				break
			}
		}
		l := &Loop{Header: NodeID(header), Parent: parent}
		var body []int64
		for _, id := range ids {
			if id != header {
				body = append(body, id)
				l.Nodes = append(l.Nodes, NodeID(id))
			}
		}
		l.Children = g.findLoops(d.Subgraph(body), l)
		res = append(res, l)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Header < res[j].Header })
	return res
}
