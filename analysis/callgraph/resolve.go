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

package callgraph

import (
	"strings"
	"sync"

	"github.com/awslabs/ar-go-txeffects/analysis/ir"
)

// DefaultSingletonPrefixes are the class prefixes whose virtual calls are never dispatched to program classes.
var DefaultSingletonPrefixes = []string{"java.sql.", "javax.sql.", "database/sql."}

// Resolver resolves call sites by class hierarchy analysis. Resolutions are cached per call site; a Resolver is safe
// for concurrent use.
type Resolver struct {
	hierarchy ir.Hierarchy
	singleton []string

	mu    sync.Mutex
	cache map[*ir.Call][]ir.Signature
}

// NewResolver returns a resolver over h. Virtual calls to classes starting with one of singletonPrefixes resolve to
// the declared target only.
func NewResolver(h ir.Hierarchy, singletonPrefixes []string) *Resolver {
	return &Resolver{hierarchy: h, singleton: singletonPrefixes, cache: map[*ir.Call][]ir.Signature{}}
}

// Resolve returns the possible targets of c. Statically bound calls (static methods, super calls and constructors)
// resolve to their declared target. Virtual calls resolve to the declared target and every override of its
// descriptor in the subtypes of the declaring class.
func (r *Resolver) Resolve(c *ir.Call) []ir.Signature {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res, ok := r.cache[c]; ok {
		return res
	}
	res := r.resolve(c)
	r.cache[c] = res
	return res
}

func (r *Resolver) resolve(c *ir.Call) []ir.Signature {
	res := []ir.Signature{c.Method}
	if c.Static || c.Super || c.Constructor || r.hierarchy == nil {
		return res
	}
	for _, p := range r.singleton {
		if strings.HasPrefix(c.Method.Class, p) {
			return res
		}
	}
	seen := map[string]bool{c.Method.String(): true}
	desc := c.Method.Descriptor()
	for _, impl := range r.hierarchy.Implementors(c.Method.Class) {
		if sig, ok := r.hierarchy.LookupMethod(impl, desc); ok && !seen[sig.String()] {
			seen[sig.String()] = true
			res = append(res, sig)
		}
	}
	return res
}

// Build returns the call graph of the program. Every method with a body is a node; every resolved target of every
// call in its body is a callee.
func Build(p *ir.Program, r *Resolver) *Graph {
	g := New()
	for _, m := range p.Methods() {
		if m.Body == nil {
			continue
		}
		g.AddNode(m.Signature)
		for _, c := range ir.Calls(m.Body) {
			for _, target := range r.Resolve(c) {
				g.Add(m.Signature, target)
			}
		}
		for _, c := range fieldInitCalls(p, m) {
			for _, target := range r.Resolve(c) {
				g.Add(m.Signature, target)
			}
		}
	}
	return g
}

// fieldInitCalls returns the calls in field initializers, which run as part of constructors.
func fieldInitCalls(p *ir.Program, m *ir.Method) []*ir.Call {
	if m.Name != "<init>" {
		return nil
	}
	c := p.Class(m.Class)
	if c == nil {
		return nil
	}
	var res []*ir.Call
	for _, f := range c.Fields {
		res = append(res, ir.Calls(f)...)
	}
	return res
}
