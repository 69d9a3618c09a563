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

package graphutil

import (
	"sort"

	"github.com/yourbasic/graph"
)

// FindAllElementaryCycles finds all elementary cycles in the graph d.
// This uses Donald B. Johnson's algorithm presented in
// "Finding All The Elementary Circuits of a Directed Graph", 1975
//
// Each cycle starts and ends with its smallest node id. Self loops are cycles of length one.
func FindAllElementaryCycles(d *Digraph) [][]int64 {
	s := &state{}
	start := 0
	for start < len(d.Keys) {
		fg := d.Subgraph(d.Keys[start:])
		least := int64(-1)
		for _, component := range graph.StrongComponents(fg) {
			if len(component) == 1 && !fg.Edges[int64(component[0])][int64(component[0])] {
				continue
			}
			if _, ok := fg.Edges[int64(component[0])]; !ok {
				continue
			}
			sort.Ints(component)
			if least < 0 || int64(component[0]) < least {
				least = int64(component[0])
			}
		}
		if least < 0 {
			break
		}
		s.blocked = map[int64]bool{}
		s.blist = map[int64]map[int64]bool{}
		s.stack = nil
		s.circuit(least, least, fg)
		start = sort.Search(len(d.Keys), func(i int) bool { return d.Keys[i] > least })
	}
	return s.cycles
}

type state struct {
	blocked map[int64]bool
	blist   map[int64]map[int64]bool
	stack   []int64
	cycles  [][]int64
}

func (s *state) unblock(u int64) {
	s.blocked[u] = false
	for w := range s.blist[u] {
		delete(s.blist[u], w)
		if s.blocked[w] {
			s.unblock(w)
		}
	}
}

func (s *state) circuit(v int64, i int64, g *Digraph) bool {
	f := false
	s.stack = append(s.stack, v)
	s.blocked[v] = true
	for _, w := range g.Successors(v) {
		if w < i {
			continue
		}
		if w == i {
			stackCopy := make([]int64, len(s.stack), len(s.stack)+1)
			copy(stackCopy, s.stack)
			stackCopy = append(stackCopy, w)
			s.cycles = append(s.cycles, stackCopy)
			f = true
		} else if !s.blocked[w] {
			if s.circuit(w, i, g) {
				f = true
			}
		}
	}

	if f {
		s.unblock(v)
	} else {
		for _, w := range g.Successors(v) {
			if s.blist[w] == nil {
				s.blist[w] = map[int64]bool{}
			}
			s.blist[w][v] = true
		}
	}
	s.stack = s.stack[:len(s.stack)-1]
	return f
}
