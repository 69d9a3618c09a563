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

// Package effect defines the result of the analysis: for one path to a database write, the condition under which
// the path executes, the symbolic inputs it depends on and the ordered writes it performs.
package effect

import (
	"fmt"
	"strings"

	"github.com/awslabs/ar-go-txeffects/analysis/cfg"
	"github.com/awslabs/ar-go-txeffects/analysis/ir"
	"github.com/awslabs/ar-go-txeffects/analysis/schema"
	"github.com/awslabs/ar-go-txeffects/analysis/value"
)

// Kind is the kind of a write.
type Kind int

// Write kinds.
const (
	Insert Kind = iota
	Update
	Delete
)

func (k Kind) String() string {
	switch k {
	case Update:
		return "Update"
	case Delete:
		return "Delete"
	}
	return "Insert"
}

// Assignment binds a column to a value.
type Assignment = value.Binding

// Atom is a single write to a table. Values are the columns written (Insert, Update); Locators are the equalities of
// the WHERE clause (Update, Delete).
type Atom struct {
	Kind     Kind
	Table    *schema.Table
	Values   []Assignment
	Locators []Assignment
}

func lookup(as []Assignment, name string) (value.Value, bool) {
	for _, a := range as {
		if strings.EqualFold(a.Column, name) {
			return a.Value, true
		}
	}
	return nil, false
}

// Value returns the value written to column name.
func (a *Atom) Value(name string) (value.Value, bool) { return lookup(a.Values, name) }

// Locator returns the value column name is compared to in the WHERE clause.
func (a *Atom) Locator(name string) (value.Value, bool) { return lookup(a.Locators, name) }

func renderAssignments(as []Assignment) string {
	parts := make([]string, len(as))
	for i, x := range as {
		parts[i] = x.Column + ": " + x.Value.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (a *Atom) String() string {
	switch a.Kind {
	case Insert:
		return fmt.Sprintf("Insert(%s, %s)", a.Table.Name, renderAssignments(a.Values))
	case Update:
		return fmt.Sprintf("Update(%s, %s, where %s)", a.Table.Name, renderAssignments(a.Values),
			renderAssignments(a.Locators))
	}
	return fmt.Sprintf("Delete(%s, where %s)", a.Table.Name, renderAssignments(a.Locators))
}

// Arg is a free argument of an effect.
type Arg struct {
	Name string
	Type ir.Type
}

// Effect is one feasible path to a database write. An effect is populated once by interpreting its path and is
// immutable after Freeze.
type Effect struct {
	Signature ir.Signature
	// Path is the replayed path, nil for effects of callees appended by chaining.
	Path *cfg.Path
	// Conditions is the path condition: the conjunction of the branch conditions taken, in order.
	Conditions []value.Value
	Args       []Arg
	Atoms      []*Atom
	// Next are the effects following this one: the remainder of the path after a commit, and the effects of
	// effectful callees.
	Next []*Effect
	// Committed is true if the effect ends with a commit.
	Committed bool
	// RolledBack is true if the effect ends with a rollback.
	RolledBack bool
	// Return is the value returned at the end of the path, nil if the path does not return.
	Return value.Value
	// Err is set when interpretation of the path failed; such effects are reported but carry no atoms.
	Err error

	frozen bool
	fresh  *int
}

// New returns an empty effect for a path of the method sig.
func New(sig ir.Signature, path *cfg.Path) *Effect {
	return &Effect{Signature: sig, Path: path, fresh: new(int)}
}

func (e *Effect) mutable() {
	if e.frozen {
		panic(fmt.Sprintf("effect of %s is frozen", e.Signature))
	}
}

// AddCondition appends c to the path condition. Conditions that are constant true are dropped.
func (e *Effect) AddCondition(c value.Value) {
	e.mutable()
	if value.TruthOf(c) == value.True {
		return
	}
	e.Conditions = append(e.Conditions, c)
}

// AddAtom appends a write.
func (e *Effect) AddAtom(a *Atom) {
	e.mutable()
	e.Atoms = append(e.Atoms, a)
}

// AddArg registers a free argument. Arguments are unique by name.
func (e *Effect) AddArg(name string, t ir.Type) {
	e.mutable()
	for _, a := range e.Args {
		if a.Name == name {
			return
		}
	}
	e.Args = append(e.Args, Arg{Name: name, Type: t})
}

// Arg returns the free argument with the given name.
func (e *Effect) Arg(name string) (Arg, bool) {
	for _, a := range e.Args {
		if a.Name == name {
			return a, true
		}
	}
	return Arg{}, false
}

// FreshArg registers and returns a new free argument named after hint. Names are unique across an effect and its
// successors.
func (e *Effect) FreshArg(hint string, t ir.Type) *value.Free {
	e.mutable()
	if hint == "" {
		hint = "v"
	}
	*e.fresh++
	name := fmt.Sprintf("%s$%d", hint, *e.fresh)
	e.AddArg(name, t)
	return &value.Free{Name: name, Type: t}
}

// Chain appends next to the successors of e.
func (e *Effect) Chain(next *Effect) {
	e.mutable()
	e.Next = append(e.Next, next)
}

// Split ends e at a commit boundary and returns its successor, which starts with the same path condition and
// arguments and shares the fresh argument counter.
func (e *Effect) Split() *Effect {
	e.mutable()
	e.Committed = true
	next := &Effect{
		Signature:  e.Signature,
		Path:       e.Path,
		Conditions: append([]value.Value(nil), e.Conditions...),
		Args:       append([]Arg(nil), e.Args...),
		fresh:      e.fresh,
	}
	e.Next = append(e.Next, next)
	return next
}

// Freeze makes the effect and its successors immutable.
func (e *Effect) Freeze() {
	if e.frozen {
		return
	}
	e.frozen = true
	for _, n := range e.Next {
		n.Freeze()
	}
}

// PathCondition returns the conjunction of the conditions, or the constant true.
func (e *Effect) PathCondition() value.Value {
	if len(e.Conditions) == 0 {
		return value.Bool(true)
	}
	res := e.Conditions[0]
	for _, c := range e.Conditions[1:] {
		res = &value.Binary{Op: value.And, Left: res, Right: c}
	}
	return res
}

// Frozen returns true after Freeze.
func (e *Effect) Frozen() bool { return e.frozen }

// HasWrites returns true if the effect or one of its successors writes.
func (e *Effect) HasWrites() bool {
	if len(e.Atoms) > 0 {
		return true
	}
	for _, n := range e.Next {
		if n.HasWrites() {
			return true
		}
	}
	return false
}

func (e *Effect) String() string {
	var sb strings.Builder
	e.write(&sb, 0)
	return sb.String()
}

func (e *Effect) write(sb *strings.Builder, indent int) {
	pad := strings.Repeat("  ", indent)
	conds := make([]string, len(e.Conditions))
	for i, c := range e.Conditions {
		conds[i] = c.String()
	}
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.Name + ": " + string(a.Type)
	}
	fmt.Fprintf(sb, "%sEffect %s\n", pad, e.Signature)
	fmt.Fprintf(sb, "%s  args: [%s]\n", pad, strings.Join(args, ", "))
	fmt.Fprintf(sb, "%s  when: [%s]\n", pad, strings.Join(conds, ", "))
	for _, a := range e.Atoms {
		fmt.Fprintf(sb, "%s  %s\n", pad, a)
	}
	for _, n := range e.Next {
		n.write(sb, indent+1)
	}
}
