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

// Optimize simplifies the graph until a fixpoint is reached by
//   - contracting routing nodes with exactly one unconditional incoming edge and one unconditional outgoing edge,
//   - removing the nodes that are not reachable from Entry.
//
// Sentinels are never removed. Optimize is idempotent and returns true if it changed the graph.
func (g *Graph) Optimize() bool {
	changed := false
	for {
		round := g.contract()
		round = g.removeUnreachable() || round
		if !round {
			return changed
		}
		changed = true
	}
}

func (g *Graph) canContract(n *Node) (pred, succ *Edge, ok bool) {
	if n == nil || n.IsSentinel() || n.Stmt != nil {
		return nil, nil, false
	}
	in, out := g.Preds(n.ID), g.Succs(n.ID)
	if len(in) != 1 || len(out) != 1 {
		return nil, nil, false
	}
	pred, succ = in[0], out[0]
	if pred.Label.Kind != Unconditional || succ.Label.Kind != Unconditional {
		return nil, nil, false
	}
	if pred.From == n.ID || succ.To == n.ID {
		return nil, nil, false
	}
	return pred, succ, true
}

func (g *Graph) contract() bool {
	changed := false
	for _, n := range g.Nodes() {
		pred, succ, ok := g.canContract(n)
		if !ok {
			continue
		}
		from, to := pred.From, succ.To
		g.removeNode(n.ID)
		g.addEdge(from, to, Label{})
		changed = true
	}
	return changed
}

func (g *Graph) removeUnreachable() bool {
	reached := map[NodeID]bool{g.Entry: true}
	queue := []NodeID{g.Entry}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range g.Succs(cur) {
			if !reached[e.To] {
				reached[e.To] = true
				queue = append(queue, e.To)
			}
		}
	}
	changed := false
	for _, n := range g.Nodes() {
		if !reached[n.ID] && !n.IsSentinel() {
			g.removeNode(n.ID)
			changed = true
		}
	}
	return changed
}
