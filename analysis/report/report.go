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

// Package report serializes the effects computed by an analysis as YAML, Markdown or HTML.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/awslabs/ar-go-txeffects/analysis"
	"github.com/awslabs/ar-go-txeffects/analysis/effect"
	"github.com/awslabs/ar-go-txeffects/analysis/value"
	"gopkg.in/yaml.v3"
)

// Report is the serializable form of a result.
type Report struct {
	Project     string         `yaml:"project,omitempty"`
	Methods     []Method       `yaml:"methods"`
	Failures    []Failure      `yaml:"failures,omitempty"`
	Diagnostics map[string]int `yaml:"diagnostics,omitempty"`
	Stats       *Stats         `yaml:"stats,omitempty"`
}

// Method groups the effects of one method.
type Method struct {
	Signature string   `yaml:"signature"`
	Effects   []Effect `yaml:"effects"`
}

// Effect is one path of a method. Next holds the effects following a commit on the same path; Chained references
// the effects of callees, as "signature#index".
type Effect struct {
	ID         string   `yaml:"id"`
	Path       string   `yaml:"path,omitempty"`
	Args       []string `yaml:"args,omitempty"`
	Conditions []string `yaml:"conditions,omitempty"`
	Atoms      []Atom   `yaml:"atoms,omitempty"`
	Committed  bool     `yaml:"committed,omitempty"`
	RolledBack bool     `yaml:"rolled-back,omitempty"`
	Return     string   `yaml:"return,omitempty"`
	Error      string   `yaml:"error,omitempty"`
	Chained    []string `yaml:"chained,omitempty"`
	Next       []Effect `yaml:"next,omitempty"`
}

// Atom is a single row operation.
type Atom struct {
	Kind     string       `yaml:"kind"`
	Table    string       `yaml:"table"`
	Values   []Assignment `yaml:"values,omitempty"`
	Locators []Assignment `yaml:"locators,omitempty"`
}

// Assignment is a column and its abstract value.
type Assignment struct {
	Column string `yaml:"column"`
	Value  string `yaml:"value"`
}

// Failure is a path whose interpretation failed.
type Failure struct {
	Signature string `yaml:"signature"`
	Path      string `yaml:"path"`
	Error     string `yaml:"error"`
}

// Stats are the counters of the analysis.
type Stats struct {
	Methods         int      `yaml:"methods"`
	Effects         int      `yaml:"effects"`
	Failures        int      `yaml:"failures"`
	Committed       int      `yaml:"committed"`
	RolledBack      int      `yaml:"rolled-back"`
	Conditional     int      `yaml:"conditional"`
	MultipleCommits []string `yaml:"multiple-commits,omitempty"`
	EffectInCatch   []string `yaml:"effect-in-catch,omitempty"`
}

type builder struct {
	ids map[*effect.Effect]string
}

// Build converts a result. Methods appear in analysis order.
func Build(project string, r *analysis.Result) *Report {
	b := &builder{ids: map[*effect.Effect]string{}}
	for _, name := range r.Order {
		for i, e := range r.Effects[name] {
			b.ids[e] = fmt.Sprintf("%s#%d", name, i)
		}
	}
	rep := &Report{Project: project}
	for _, name := range r.Order {
		m := Method{Signature: name}
		for _, e := range r.Effects[name] {
			m.Effects = append(m.Effects, b.effect(e, b.ids[e]))
		}
		rep.Methods = append(rep.Methods, m)
	}
	for _, f := range r.Failures {
		rep.Failures = append(rep.Failures, Failure{Signature: f.Signature, Path: f.Path.String(), Error: f.Err.Error()})
	}
	if len(r.Diagnostics) > 0 {
		rep.Diagnostics = map[string]int{}
		for _, d := range r.Diagnostics {
			rep.Diagnostics[d.Category.String()]++
		}
	}
	return rep
}

// WithStats attaches the counters of the analysis.
func (r *Report) WithStats(s analysis.Stats) *Report {
	r.Stats = &Stats{
		Methods:         s.Methods,
		Effects:         s.Effects,
		Failures:        s.Failures,
		Committed:       s.Committed,
		RolledBack:      s.RolledBack,
		Conditional:     s.Conditional,
		MultipleCommits: s.MultipleCommits,
		EffectInCatch:   s.EffectInCatch,
	}
	return r
}

func (b *builder) effect(e *effect.Effect, id string) Effect {
	res := Effect{
		ID:         id,
		Committed:  e.Committed,
		RolledBack: e.RolledBack,
	}
	if e.Path != nil {
		res.Path = e.Path.String()
	}
	for _, a := range e.Args {
		res.Args = append(res.Args, fmt.Sprintf("%s %s", a.Name, a.Type))
	}
	for _, c := range e.Conditions {
		res.Conditions = append(res.Conditions, c.String())
	}
	for _, a := range e.Atoms {
		res.Atoms = append(res.Atoms, atom(a))
	}
	if e.Return != nil {
		res.Return = e.Return.String()
	}
	if e.Err != nil {
		res.Error = e.Err.Error()
	}
	n := 0
	for _, next := range e.Next {
		if ref, ok := b.ids[next]; ok {
			res.Chained = append(res.Chained, ref)
			continue
		}
		n++
		res.Next = append(res.Next, b.effect(next, fmt.Sprintf("%s.%d", id, n)))
	}
	return res
}

func atom(a *effect.Atom) Atom {
	res := Atom{Kind: a.Kind.String(), Values: assignments(a.Values), Locators: assignments(a.Locators)}
	if a.Table != nil {
		res.Table = a.Table.Name
	}
	return res
}

func assignments(bs []value.Binding) []Assignment {
	var res []Assignment
	for _, b := range bs {
		res = append(res, Assignment{Column: b.Column, Value: b.Value.String()})
	}
	return res
}

// WriteYAML writes the report as YAML.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("could not encode report: %w", err)
	}
	return enc.Close()
}

func (r *Report) diagnosticNames() []string {
	names := make([]string, 0, len(r.Diagnostics))
	for name := range r.Diagnostics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
