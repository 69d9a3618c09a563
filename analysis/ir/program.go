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

package ir

import (
	"go/token"
	"sort"
)

// Param is a formal parameter of a method.
type Param struct {
	Name string
	Type Type
}

// Method is a procedure with a body. Abstract and interface methods have a nil body.
type Method struct {
	Signature
	Params []*Param
	Result Type
	Body   *Block
	Static bool
	Pos    token.Position
	// Directives are the analysis directives attached to the declaration (e.g. "basic", "commit", "exclude").
	Directives []string
}

// HasDirective returns true if the method carries the directive d.
func (m *Method) HasDirective(d string) bool {
	for _, x := range m.Directives {
		if x == d {
			return true
		}
	}
	return false
}

// Class is a class, interface or, for languages without classes, a named type with methods. Functions of a package
// without a receiver are methods of a Class named after the package.
type Class struct {
	Name        string
	Super       string
	Interfaces  []string
	IsInterface bool
	Fields      []*VarDecl
	Methods     []*Method
}

// Method returns the method with the given descriptor declared by the class, or nil.
func (c *Class) Method(descriptor string) *Method {
	for _, m := range c.Methods {
		if m.Descriptor() == descriptor {
			return m
		}
	}
	return nil
}

// Hierarchy answers the class hierarchy queries needed by class hierarchy analysis.
type Hierarchy interface {
	// Implementors returns every class that transitively extends or implements class, excluding class itself.
	Implementors(class string) []string
	// LookupMethod returns the signature of the method with the given descriptor declared by class.
	LookupMethod(class, descriptor string) (Signature, bool)
}

// Program is the whole program handed to the analysis by a front end.
type Program struct {
	Classes []*Class

	byName   map[string]*Class
	subtypes map[string][]string
}

// NewProgram indexes the classes. The program must not be modified afterwards.
func NewProgram(classes ...*Class) *Program {
	p := &Program{Classes: classes}
	p.index()
	return p
}

func (p *Program) index() {
	p.byName = make(map[string]*Class, len(p.Classes))
	p.subtypes = make(map[string][]string)
	for _, c := range p.Classes {
		p.byName[c.Name] = c
		if c.Super != "" {
			p.subtypes[c.Super] = append(p.subtypes[c.Super], c.Name)
		}
		for _, i := range c.Interfaces {
			p.subtypes[i] = append(p.subtypes[i], c.Name)
		}
	}
}

// Class returns the class with the given name, or nil.
func (p *Program) Class(name string) *Class {
	if p.byName == nil {
		p.index()
	}
	return p.byName[name]
}

// Methods returns all methods of the program in declaration order.
func (p *Program) Methods() []*Method {
	var res []*Method
	for _, c := range p.Classes {
		res = append(res, c.Methods...)
	}
	return res
}

// Method returns the method with the given signature, or nil.
func (p *Program) Method(sig Signature) *Method {
	c := p.Class(sig.Class)
	if c == nil {
		return nil
	}
	return c.Method(sig.Descriptor())
}

// Implementors returns the sorted transitive subtypes of class.
func (p *Program) Implementors(class string) []string {
	if p.byName == nil {
		p.index()
	}
	seen := map[string]bool{class: true}
	queue := []string{class}
	var res []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, sub := range p.subtypes[cur] {
			if !seen[sub] {
				seen[sub] = true
				res = append(res, sub)
				queue = append(queue, sub)
			}
		}
	}
	sort.Strings(res)
	return res
}

// LookupMethod returns the signature of the method with the given descriptor declared in class.
func (p *Program) LookupMethod(class, descriptor string) (Signature, bool) {
	c := p.Class(class)
	if c == nil {
		return Signature{}, false
	}
	if m := c.Method(descriptor); m != nil && m.Body != nil {
		return m.Signature, true
	}
	return Signature{}, false
}
