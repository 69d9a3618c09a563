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

package graphutil_test

import (
	"reflect"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/awslabs/ar-go-txeffects/internal/funcutil"
	"github.com/awslabs/ar-go-txeffects/internal/graphutil"
	"github.com/yourbasic/graph"
	gograph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/topo"
)

func newGraph(edges [][2]int64) *graphutil.Digraph {
	d := graphutil.NewDigraph()
	for _, e := range edges {
		d.AddEdge(e[0], e[1])
	}
	return d
}

func TestFindAllElementaryCycles(t *testing.T) {
	d := newGraph([][2]int64{
		{2, 4}, {4, 2}, {2, 5}, {5, 10}, {10, 2}, {2, 6}, {6, 4},
		{3, 8}, {8, 3}, {3, 9}, {9, 8}, {7, 7}, {1, 2},
	})
	stats := graph.Check(d)
	t.Logf("Stats:\n\tsize: %d\n\tmulti: %d\n\tloops: %d\n\tisolated: %d",
		stats.Size, stats.Multi, stats.Loops, stats.Isolated)

	cycles := graphutil.FindAllElementaryCycles(d)
	results := funcutil.Map(cycles, func(c []int64) string {
		return strings.Join(funcutil.Map(c, func(x int64) string { return strconv.Itoa(int(x)) }), "-")
	})
	expected := []string{"2-4-2", "2-5-10-2", "2-6-4-2", "3-8-3", "3-9-8-3", "7-7"}
	sort.Strings(results)
	if !reflect.DeepEqual(results, expected) {
		t.Errorf("cycles = %v, want %v", results, expected)
	}
}

func TestNoCycles(t *testing.T) {
	d := newGraph([][2]int64{{0, 1}, {1, 2}, {0, 2}})
	if cycles := graphutil.FindAllElementaryCycles(d); len(cycles) != 0 {
		t.Errorf("expected no cycles, got %v", cycles)
	}
	order, ok := graph.TopSort(d)
	if !ok || !reflect.DeepEqual(order, []int{0, 1, 2}) {
		t.Errorf("TopSort = %v %v", order, ok)
	}
}

func TestGonumSCC(t *testing.T) {
	d := newGraph([][2]int64{{0, 1}, {1, 2}, {2, 1}, {2, 3}})
	var big [][]int64
	for _, scc := range topo.TarjanSCC(d) {
		if len(scc) > 1 {
			ids := funcutil.Map(scc, func(n gograph.Node) int64 { return n.ID() })
			big = append(big, ids)
		}
	}
	if len(big) != 1 || len(big[0]) != 2 {
		t.Fatalf("expected one component {1, 2}, got %v", big)
	}
	sub := d.Subgraph([]int64{1, 2})
	if sub.HasEdgeFromTo(2, 3) || !sub.HasEdgeFromTo(1, 2) || !sub.HasEdgeBetween(1, 2) {
		t.Errorf("subgraph should keep only internal edges")
	}
	if got := d.Predecessors(1); !reflect.DeepEqual(got, []int64{0, 2}) {
		t.Errorf("Predecessors(1) = %v", got)
	}
	n := d.From(2)
	count := 0
	for n.Next() {
		count++
	}
	if count != 2 || n.Len() != 0 {
		t.Errorf("From(2) should iterate over 2 nodes, got %d", count)
	}
}
