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

// Package diagnostics implements the advisory diagnostic channel shared by the graph builder, the value lattice, the
// call graph and the interpreter. Diagnostics are collected rather than printed so that callers (and tests) can
// inspect them by category.
package diagnostics

import (
	"fmt"
	"go/token"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Category classifies a diagnostic.
type Category int

const (
	// Unresolvable is emitted for constructs the analysis cannot resolve (unknown expression kind, call target, ...).
	// The construct evaluates to an unknown value.
	Unresolvable Category = iota + 1

	// Unsupported is emitted for constructs that are recognized but deliberately not modeled.
	Unsupported

	// TypeMismatch is emitted when an operator is applied to incompatible constant kinds.
	TypeMismatch

	// NullDereference is emitted when an operation would raise a null-dereference.
	NullDereference

	// UnsafeLoopEffect is emitted when a path enters a loop whose body contains a write-effect or commit.
	UnsafeLoopEffect

	// SQLParse is emitted when a reconstructed SQL template cannot be parsed.
	SQLParse

	// CyclicCallGraph is emitted when the effect subgraph of the call graph contains a cycle.
	CyclicCallGraph

	// InfeasiblePath is emitted when a path condition evaluates to false.
	InfeasiblePath

	// PathLimit is emitted when path enumeration stops at the configured limit.
	PathLimit
)

var categoryNames = map[Category]string{
	Unresolvable:     "unresolvable",
	Unsupported:      "unsupported",
	TypeMismatch:     "type-mismatch",
	NullDereference:  "null-dereference",
	UnsafeLoopEffect: "unsafe-loop-effect",
	SQLParse:         "sql-parse",
	CyclicCallGraph:  "cyclic-call-graph",
	InfeasiblePath:   "infeasible-path",
	PathLimit:        "path-limit",
}

func (c Category) String() string {
	if s, ok := categoryNames[c]; ok {
		return s
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// IsFatal returns true for the categories that stop the processing of the current path.
func (c Category) IsFatal() bool {
	return c == UnsafeLoopEffect || c == SQLParse
}

// A Diagnostic is an advisory message attached to a position in the analyzed program.
type Diagnostic struct {
	Category Category
	Pos      token.Position
	Message  string
}

func (d Diagnostic) String() string {
	if d.Pos.IsValid() {
		return fmt.Sprintf("%s: [%s] %s", d.Pos, d.Category, d.Message)
	}
	return fmt.Sprintf("[%s] %s", d.Category, d.Message)
}

// Fields returns the structured log fields of d.
func (d Diagnostic) Fields() logrus.Fields {
	f := logrus.Fields{"category": d.Category.String()}
	if d.Pos.IsValid() {
		f["pos"] = d.Pos.String()
	}
	return f
}

// A Sink receives diagnostics.
type Sink interface {
	Report(c Category, pos token.Position, format string, args ...any)
}

// Logger is the subset of the config.LogGroup used to forward diagnostics.
type Logger interface {
	DebugFields(fields logrus.Fields, msg string)
	WarnFields(fields logrus.Fields, msg string)
}

// Collector is a Sink that keeps every diagnostic it receives. It is safe for concurrent use since control flow
// graphs may be built in parallel.
type Collector struct {
	mu    sync.Mutex
	diags []Diagnostic

	// Forward, if not nil, receives each diagnostic as a log line. Fatal categories and call graph cycles are
	// logged as warnings, the rest at debug level.
	Forward Logger
}

// NewCollector returns an empty collector forwarding to logger (which may be nil).
func NewCollector(logger Logger) *Collector {
	return &Collector{Forward: logger}
}

// Report implements Sink.
func (c *Collector) Report(cat Category, pos token.Position, format string, args ...any) {
	d := Diagnostic{Category: cat, Pos: pos, Message: fmt.Sprintf(format, args...)}
	c.mu.Lock()
	c.diags = append(c.diags, d)
	c.mu.Unlock()
	if c.Forward != nil {
		if cat.IsFatal() || cat == CyclicCallGraph {
			c.Forward.WarnFields(d.Fields(), d.Message)
		} else {
			c.Forward.DebugFields(d.Fields(), d.Message)
		}
	}
}

// All returns a copy of the collected diagnostics, in reporting order.
func (c *Collector) All() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	res := make([]Diagnostic, len(c.diags))
	copy(res, c.diags)
	return res
}

// Count returns the number of diagnostics of category cat.
func (c *Collector) Count(cat Category) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, d := range c.diags {
		if d.Category == cat {
			n++
		}
	}
	return n
}

// Summary returns one line per category with the number of diagnostics, sorted by category.
func (c *Collector) Summary() string {
	c.mu.Lock()
	counts := map[Category]int{}
	for _, d := range c.diags {
		counts[d.Category]++
	}
	c.mu.Unlock()
	cats := make([]Category, 0, len(counts))
	for cat := range counts {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	var sb strings.Builder
	for _, cat := range cats {
		fmt.Fprintf(&sb, "%-20s %d\n", cat, counts[cat])
	}
	return sb.String()
}

// Discard is a Sink dropping every diagnostic.
var Discard Sink = discard{}

type discard struct{}

func (discard) Report(Category, token.Position, string, ...any) {}
