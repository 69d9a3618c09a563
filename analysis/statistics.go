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

package analysis

import (
	"sort"

	"github.com/awslabs/ar-go-txeffects/analysis/cfg"
	"github.com/awslabs/ar-go-txeffects/analysis/effect"
	"github.com/awslabs/ar-go-txeffects/internal/funcutil"
)

// Stats are counters over the effects of a result.
type Stats struct {
	Methods     int
	Effects     int
	Failures    int
	Committed   int
	RolledBack  int
	Conditional int
	// MultipleCommits are the methods with a path going through two commits or more.
	MultipleCommits []string
	// EffectInCatch are the methods with a path going through an exception handler.
	EffectInCatch []string
}

// Statistics computes the counters of r.
func (a *Analyzer) Statistics(r *Result) Stats {
	s := Stats{
		Methods:         len(r.Order),
		Effects:         r.NumEffects(),
		Failures:        len(r.Failures),
		MultipleCommits: a.CountMultipleCommits(r),
		EffectInCatch:   a.CountEffectInCatch(r),
	}
	for _, es := range r.Effects {
		for _, e := range es {
			if e.Err != nil {
				continue
			}
			if len(e.Conditions) > 0 {
				s.Conditional++
			}
			for cur := e; cur != nil; cur = splitOf(cur) {
				if cur.Committed {
					s.Committed++
				}
				if cur.RolledBack {
					s.RolledBack++
				}
			}
		}
	}
	return s
}

// splitOf returns the remainder of e after its commit, if any.
func splitOf(e *effect.Effect) *effect.Effect {
	if !e.Committed {
		return nil
	}
	for _, n := range e.Next {
		if n.Path == e.Path {
			return n
		}
	}
	return nil
}

// CountMultipleCommits returns the sorted methods of r with a path containing two commit sites or more.
func (a *Analyzer) CountMultipleCommits(r *Result) []string {
	return a.methodsWithPath(r, func(g *cfg.Graph, p *cfg.Path) bool {
		commits := 0
		for _, id := range p.Nodes {
			if n := g.Node(id); n != nil && funcutil.Exists(cfg.NodeCalls(n), a.IsCommitCall) {
				commits++
			}
		}
		return commits > 1
	})
}

// CountEffectInCatch returns the sorted methods of r with a path reaching an effect through a catch edge.
func (a *Analyzer) CountEffectInCatch(r *Result) []string {
	return a.methodsWithPath(r, func(_ *cfg.Graph, p *cfg.Path) bool {
		return funcutil.Exists(p.Edges, func(e *cfg.Edge) bool { return e.Label.Kind == cfg.ExceptionCatch })
	})
}

func (a *Analyzer) methodsWithPath(r *Result, f func(*cfg.Graph, *cfg.Path) bool) []string {
	var res []string
	for name, es := range r.Effects {
		g := a.Graphs[name]
		if g == nil {
			continue
		}
		if funcutil.Exists(es, func(e *effect.Effect) bool { return e.Path != nil && f(g, e.Path) }) {
			res = append(res, name)
		}
	}
	sort.Strings(res)
	return res
}
