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

// Package graphutil contains the directed graph adapter shared by the control flow graphs and the call graph, so
// that both can be handed to the gonum and yourbasic graph algorithms.
package graphutil

import (
	"sort"

	"gonum.org/v1/gonum/graph"
)

// Digraph is a directed graph over int64 node ids. It implements gonum's graph.Directed and yourbasic's
// graph.Iterator. Parallel edges are collapsed.
type Digraph struct {
	// order is one more than the largest node id
	order int

	// Keys are all the node IDs, sorted
	Keys []int64

	// Edges is an adjacency matrix: Edges[x][y] means there is a directed edge from x to y
	Edges map[int64]map[int64]bool

	preds map[int64]map[int64]bool
}

// NewDigraph returns an empty graph.
func NewDigraph() *Digraph {
	return &Digraph{Edges: map[int64]map[int64]bool{}, preds: map[int64]map[int64]bool{}}
}

// AddNode adds the node id to the graph.
func (d *Digraph) AddNode(id int64) {
	if _, ok := d.Edges[id]; ok {
		return
	}
	d.Edges[id] = map[int64]bool{}
	d.preds[id] = map[int64]bool{}
	i := sort.Search(len(d.Keys), func(i int) bool { return d.Keys[i] >= id })
	d.Keys = append(d.Keys, 0)
	copy(d.Keys[i+1:], d.Keys[i:])
	d.Keys[i] = id
	if int(id)+1 > d.order {
		d.order = int(id) + 1
	}
}

// AddEdge adds the edge x -> y, adding the nodes if necessary.
func (d *Digraph) AddEdge(x, y int64) {
	d.AddNode(x)
	d.AddNode(y)
	d.Edges[x][y] = true
	d.preds[y][x] = true
}

// RemoveEdge removes the edge x -> y if it exists.
func (d *Digraph) RemoveEdge(x, y int64) {
	delete(d.Edges[x], y)
	delete(d.preds[y], x)
}

// Subgraph returns a new graph that is the original graph with only the nodes in include. Only the edges that have
// both the origin and destination nodes in the include nodes are kept in the resulting graph.
// Node ids stay consistent across subgraphs.
func (d *Digraph) Subgraph(include []int64) *Digraph {
	sub := NewDigraph()
	in := make(map[int64]bool, len(include))
	for _, i := range include {
		if _, ok := d.Edges[i]; ok {
			in[i] = true
			sub.AddNode(i)
		}
	}
	for i := range in {
		for j := range d.Edges[i] {
			if in[j] {
				sub.AddEdge(i, j)
			}
		}
	}
	sub.order = d.order
	return sub
}

// Successors returns the sorted successors of x.
func (d *Digraph) Successors(x int64) []int64 { return sortedKeys(d.Edges[x]) }

// Predecessors returns the sorted predecessors of x.
func (d *Digraph) Predecessors(x int64) []int64 { return sortedKeys(d.preds[x]) }

func sortedKeys(m map[int64]bool) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// *************** yourbasic graph.Iterator implementation **********************

// Order implements the order of the graph.Iterator interface for the Digraph
func (d *Digraph) Order() int {
	return d.order
}

// Visit implements the graph.Iterator interface for the Digraph. Successors are visited in increasing order.
func (d *Digraph) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	for _, w := range d.Successors(int64(v)) {
		if do(int(w), 1) {
			return true
		}
	}
	return false
}

// *************** gonum graph.Directed implementation **********************

// Node implements the Graph interface
func (d *Digraph) Node(id int64) graph.Node {
	if _, ok := d.Edges[id]; !ok {
		return nil
	}
	return Node(id)
}

// Nodes returns the set of nodes in the graph
func (d *Digraph) Nodes() graph.Nodes {
	return NewNodeSet(d.Keys)
}

// From returns the set of nodes reachable from the id in one step
func (d *Digraph) From(id int64) graph.Nodes {
	return NewNodeSet(d.Successors(id))
}

// To returns the set of nodes reaching id in one step
func (d *Digraph) To(id int64) graph.Nodes {
	return NewNodeSet(d.Predecessors(id))
}

// HasEdgeBetween returns a boolean indicating whether an edge exists between the two node identifiers
func (d *Digraph) HasEdgeBetween(xid, yid int64) bool {
	return d.Edges[xid][yid] || d.Edges[yid][xid]
}

// HasEdgeFromTo returns whether an edge exists from u to v
func (d *Digraph) HasEdgeFromTo(uid, vid int64) bool {
	return d.Edges[uid][vid]
}

// Edge returns the edge between the two identifiers (nil if none exists)
func (d *Digraph) Edge(uid, vid int64) graph.Edge {
	if d.Edges[uid][vid] {
		return Edge{F: Node(uid), T: Node(vid)}
	}
	return nil
}

// Node is a graph.Node identified by its id.
type Node int64

// ID returns the id of the node
func (n Node) ID() int64 { return int64(n) }

// NodeSet implements the graph.Nodes interface, an iterator over a set of nodes
type NodeSet struct {
	ids []int64

	// cur is the current index of the iterator, -1 before the first call to Next
	cur int
}

// NewNodeSet returns an iterator over ids.
func NewNodeSet(ids []int64) *NodeSet {
	return &NodeSet{ids: ids, cur: -1}
}

// Next moves the current node to the next, and returns true if such a node exists.
func (ns *NodeSet) Next() bool {
	if ns.cur < len(ns.ids)-1 {
		ns.cur++
		return true
	}
	ns.cur = len(ns.ids)
	return false
}

// Len returns the number of nodes remaining in the iterator
func (ns *NodeSet) Len() int {
	if ns.cur >= len(ns.ids) {
		return 0
	}
	return len(ns.ids) - ns.cur - 1
}

// Reset resets the iterator before its first node
func (ns *NodeSet) Reset() {
	ns.cur = -1
}

// Node return the current node in the set
func (ns *NodeSet) Node() graph.Node {
	if ns.cur < 0 || ns.cur >= len(ns.ids) {
		return nil
	}
	return Node(ns.ids[ns.cur])
}

// Edge implements the graph.Edge interface
type Edge struct {
	F, T Node
}

// From returns the origin of the edge
func (e Edge) From() graph.Node { return e.F }

// To returns the destination of the edge
func (e Edge) To() graph.Node { return e.T }

// ReversedEdge returns a new value representing the reversed edge
func (e Edge) ReversedEdge() graph.Edge { return Edge{F: e.T, T: e.F} }
