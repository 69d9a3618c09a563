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

package interp

import (
	"sort"
	"sync"

	"github.com/awslabs/ar-go-txeffects/analysis/ir"
	"github.com/awslabs/ar-go-txeffects/analysis/value"
)

// A Handler gives semantics to calls of one method. recv is nil for static calls. A returned error is fatal for the
// path being interpreted.
type Handler func(in *Interpreter, call *ir.Call, recv value.Value, args []value.Value) (value.Value, error)

// Registry maps method names to handlers. It is built once before the analysis starts and shared by every
// interpreter; it must not be modified once interpretation has started.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

// Register binds h to name, which is either a full signature (Class.Name(P1, P2)) or a qualified name (Class.Name)
// matching every overload.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Lookup returns the handler of sig, preferring handlers registered for the full signature.
func (r *Registry) Lookup(sig ir.Signature) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h, ok := r.handlers[sig.String()]; ok {
		return h, true
	}
	h, ok := r.handlers[sig.QualifiedName()]
	return h, ok
}

// Has returns true if a handler is registered for name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[name]
	return ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}
