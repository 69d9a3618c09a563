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
	"fmt"
	"strings"
)

// Path is a linear path from Entry. Edges[i] goes from Nodes[i] to Nodes[i+1].
type Path struct {
	Nodes []NodeID
	Edges []*Edge
}

// Terminal returns the last node of the path.
func (p Path) Terminal() NodeID {
	return p.Nodes[len(p.Nodes)-1]
}

func (p Path) String() string {
	parts := make([]string, len(p.Nodes))
	for i, n := range p.Nodes {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, " -> ")
}

// Sites returns the nodes satisfying isSite, by increasing id.
func (g *Graph) Sites(isSite func(*Node) bool) []NodeID {
	var res []NodeID
	for _, n := range g.Nodes() {
		if isSite(n) {
			res = append(res, n.ID)
		}
	}
	return res
}

// EffectPaths enumerates the simple paths from Entry to every node satisfying isSite. Each loop is either skipped
// or entered once, since a path never visits a node twice. Parallel edges with distinct labels yield distinct paths.
// When max is positive, enumeration stops after max paths and the second result is true.
func (g *Graph) EffectPaths(isSite func(*Node) bool, max int) ([]Path, bool) {
	var res []Path
	for _, site := range g.Sites(isSite) {
		paths, truncated := g.PathsTo(site, max-len(res), max > 0)
		res = append(res, paths...)
		if truncated {
			return res, true
		}
	}
	return res, false
}

// PathsTo enumerates the simple paths from Entry to target. When limited, at most max paths are returned and the
// second result is true if more exist.
func (g *Graph) PathsTo(target NodeID, max int, limited bool) ([]Path, bool) {
	var res []Path
	onPath := map[NodeID]bool{}
	var nodes []NodeID
	var edges []*Edge
	truncated := false

	var walk func(cur NodeID)
	walk = func(cur NodeID) {
		if truncated {
			return
		}
		onPath[cur] = true
		nodes = append(nodes, cur)
		defer func() {
			onPath[cur] = false
			nodes = nodes[:len(nodes)-1]
		}()
		if cur == g.Entry {
			if limited && len(res) >= max {
				truncated = true
				return
			}
			res = append(res, reversed(nodes, edges))
			return
		}
		seen := map[labelKey]bool{}
		for _, e := range g.Preds(cur) {
			k := keyOf(e)
			if onPath[e.From] || seen[k] {
				continue
			}
			seen[k] = true
			edges = append(edges, e)
			walk(e.From)
			edges = edges[:len(edges)-1]
		}
	}
	walk(target)
	return res, truncated
}

type labelKey struct {
	from    NodeID
	kind    LabelKind
	cond    any
	negated bool
	exc     string
	binding string
}

func keyOf(e *Edge) labelKey {
	return labelKey{from: e.From, kind: e.Label.Kind, cond: e.Label.Cond, negated: e.Label.Negated,
		exc: string(e.Label.ExcType), binding: e.Label.Binding}
}

func reversed(nodes []NodeID, edges []*Edge) Path {
	p := Path{Nodes: make([]NodeID, len(nodes)), Edges: make([]*Edge, len(edges))}
	for i, n := range nodes {
		p.Nodes[len(nodes)-1-i] = n
	}
	for i, e := range edges {
		p.Edges[len(edges)-1-i] = e
	}
	return p
}
