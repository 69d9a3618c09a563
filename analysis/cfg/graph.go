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

// Package cfg builds and simplifies the intraprocedural control flow graphs replayed by the interpreter.
//
// A Graph is an arena: nodes are indices into a flat store and edges are index pairs with a label. Every graph
// has six sentinel nodes (Entry, Exit, Return, Exception, Break, Continue). Entry never has incoming edges.
package cfg

import (
	"fmt"
	"sort"
	"strings"

	"github.com/awslabs/ar-go-txeffects/analysis/ir"
	"github.com/awslabs/ar-go-txeffects/internal/graphutil"
	"gonum.org/v1/gonum/graph"
)

// NodeID identifies a node of a graph.
type NodeID int

// Kind is the kind of a node.
type Kind int

// Node kinds. Routing nodes carry no statement and only exist to connect sub-graphs.
const (
	Routing Kind = iota
	Statement
	Entry
	Exit
	Return
	Exception
	Break
	Continue
)

var kindNames = [...]string{"routing", "stmt", "entry", "exit", "return", "exception", "break", "continue"}

func (k Kind) String() string { return kindNames[k] }

// Node is a node of the graph. Depth is the scoping depth of the statement: the number of blocks enclosing it.
type Node struct {
	ID    NodeID
	Kind  Kind
	Stmt  ir.Stmt
	Depth int
}

// IsSentinel returns true for the six sentinel nodes.
func (n *Node) IsSentinel() bool {
	return n.Kind >= Entry
}

func (n *Node) String() string {
	if n.Stmt != nil {
		return fmt.Sprintf("%d: %s", n.ID, n.Stmt)
	}
	return fmt.Sprintf("%d: <%s>", n.ID, n.Kind)
}

// LabelKind is the kind of an edge label.
type LabelKind int

// Edge label kinds.
const (
	Unconditional LabelKind = iota
	Branch
	ExceptionRaise
	ExceptionCatch
)

// Label is the label of an edge.
//
//   - Branch edges are taken when Cond evaluates to true (or false when Negated).
//   - ExceptionRaise edges carry the type raised and the raising expression.
//   - ExceptionCatch edges bind the caught exception to Binding.
type Label struct {
	Kind    LabelKind
	Cond    ir.Expr
	Negated bool
	ExcType ir.Type
	Expr    ir.Expr
	Binding string
}

func (l Label) String() string {
	switch l.Kind {
	case Branch:
		if l.Negated {
			return "!" + l.Cond.String()
		}
		return l.Cond.String()
	case ExceptionRaise:
		return "raise " + string(l.ExcType)
	case ExceptionCatch:
		return "catch " + string(l.ExcType) + " " + l.Binding
	}
	return ""
}

// Edge is a labeled edge.
type Edge struct {
	From  NodeID
	To    NodeID
	Label Label
}

func (e *Edge) String() string {
	if l := e.Label.String(); l != "" {
		return fmt.Sprintf("%d -[%s]-> %d", e.From, l, e.To)
	}
	return fmt.Sprintf("%d -> %d", e.From, e.To)
}

// Graph is the control flow graph of one method body.
type Graph struct {
	// Method is the method the graph was built for, nil for graphs of bare statements.
	Method *ir.Method

	Entry, Exit, Return, Exception, Break, Continue NodeID

	// LoopCount is the number of loops built into the graph.
	LoopCount int

	nodes []*Node
	edges []*Edge

	// adjacency caches, rebuilt when dirty
	dirty bool
	out   map[NodeID][]*Edge
	in    map[NodeID][]*Edge
	loops []*Loop
}

func newGraph() *Graph {
	g := &Graph{}
	g.Entry = g.addNode(Entry, nil, 0)
	g.Exit = g.addNode(Exit, nil, 0)
	g.Return = g.addNode(Return, nil, 0)
	g.Exception = g.addNode(Exception, nil, 0)
	g.Break = g.addNode(Break, nil, 0)
	g.Continue = g.addNode(Continue, nil, 0)
	return g
}

func (g *Graph) addNode(k Kind, s ir.Stmt, depth int) NodeID {
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, &Node{ID: id, Kind: k, Stmt: s, Depth: depth})
	g.dirty = true
	return id
}

func (g *Graph) addEdge(from, to NodeID, l Label) *Edge {
	e := &Edge{From: from, To: to, Label: l}
	g.edges = append(g.edges, e)
	g.dirty = true
	return e
}

// removeNode removes the node and its incident edges.
func (g *Graph) removeNode(id NodeID) {
	g.nodes[id] = nil
	for i, e := range g.edges {
		if e != nil && (e.From == id || e.To == id) {
			g.edges[i] = nil
		}
	}
	g.dirty = true
}

// redirect moves every edge incident to from onto into and removes from.
func (g *Graph) redirect(from, into NodeID) {
	if from == into {
		return
	}
	for _, e := range g.edges {
		if e == nil {
			continue
		}
		if e.From == from {
			e.From = into
		}
		if e.To == from {
			e.To = into
		}
	}
	g.nodes[from] = nil
	g.dirty = true
}

func (g *Graph) index() {
	if !g.dirty && g.out != nil {
		return
	}
	g.out = map[NodeID][]*Edge{}
	g.in = map[NodeID][]*Edge{}
	live := g.edges[:0]
	for _, e := range g.edges {
		if e == nil {
			continue
		}
		live = append(live, e)
		g.out[e.From] = append(g.out[e.From], e)
		g.in[e.To] = append(g.in[e.To], e)
	}
	for i := len(live); i < len(g.edges); i++ {
		g.edges[i] = nil
	}
	g.edges = live
	g.loops = nil
	g.dirty = false
}

// Node returns the node with the given id, or nil if it has been removed.
func (g *Graph) Node(id NodeID) *Node {
	if int(id) < 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// Nodes returns the nodes of the graph by increasing id.
func (g *Graph) Nodes() []*Node {
	var res []*Node
	for _, n := range g.nodes {
		if n != nil {
			res = append(res, n)
		}
	}
	return res
}

// Edges returns the edges of the graph in creation order.
func (g *Graph) Edges() []*Edge {
	g.index()
	return g.edges
}

// Succs returns the outgoing edges of id.
func (g *Graph) Succs(id NodeID) []*Edge {
	g.index()
	return g.out[id]
}

// Preds returns the incoming edges of id.
func (g *Graph) Preds(id NodeID) []*Edge {
	g.index()
	return g.in[id]
}

// Directed returns a gonum view of the graph. Parallel edges are collapsed.
func (g *Graph) Directed() graph.Directed {
	return g.digraph()
}

func (g *Graph) digraph() *graphutil.Digraph {
	d := graphutil.NewDigraph()
	for _, n := range g.Nodes() {
		d.AddNode(int64(n.ID))
	}
	for _, e := range g.Edges() {
		d.AddEdge(int64(e.From), int64(e.To))
	}
	return d
}

// StmtNode returns the first node representing s, if any.
func (g *Graph) StmtNode(s ir.Stmt) (NodeID, bool) {
	for _, n := range g.nodes {
		if n != nil && n.Stmt == s {
			return n.ID, true
		}
	}
	return 0, false
}

// Snapshot is an immutable rendering of a graph, for external renderers.
type Snapshot struct {
	Nodes []string
	Edges []string
}

// Snapshot returns a textual snapshot of the nodes and edges of the graph.
func (g *Graph) Snapshot() Snapshot {
	var s Snapshot
	for _, n := range g.Nodes() {
		s.Nodes = append(s.Nodes, n.String())
	}
	for _, e := range g.Edges() {
		s.Edges = append(s.Edges, e.String())
	}
	sort.Strings(s.Edges)
	return s
}

func (g *Graph) String() string {
	s := g.Snapshot()
	return strings.Join(s.Nodes, "\n") + "\n" + strings.Join(s.Edges, "\n")
}

// NodeExprs returns the expressions evaluated when the node is executed.
func NodeExprs(n *Node) []ir.Expr {
	switch s := n.Stmt.(type) {
	case *ir.ExprStmt:
		return []ir.Expr{s.X}
	case *ir.Return:
		if s.X != nil {
			return []ir.Expr{s.X}
		}
	case *ir.Throw:
		return []ir.Expr{s.X}
	case *ir.If:
		return []ir.Expr{s.Cond}
	case *ir.While:
		return []ir.Expr{s.Cond}
	case *ir.Switch:
		return []ir.Expr{s.Tag}
	}
	return nil
}

// NodeCalls returns the calls evaluated when the node is executed.
func NodeCalls(n *Node) []*ir.Call {
	var res []*ir.Call
	for _, e := range NodeExprs(n) {
		res = append(res, ir.Calls(e)...)
	}
	return res
}
