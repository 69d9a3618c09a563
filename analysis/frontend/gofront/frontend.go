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

// Package gofront converts Go packages into the program representation of the analysis.
//
// Functions belong to a class named after their package path and methods to the class of their receiver type, so
// that "(*database/sql.Tx).Exec" is the method Exec of class "database/sql.Tx" and "fmt.Sprintf" the method Sprintf
// of class "fmt". Calls through interfaces are virtual; every other call is statically bound. A panic is a throw,
// and a defer at the top level of a function runs the deferred call in a finally block around the rest of the
// function.
//
// Directive comments on function declarations mark methods for the analysis:
//
//	//txeffect:basic    the function writes to the database and is not analyzed itself
//	//txeffect:commit   the function commits the current transaction
//	//txeffect:exclude  the function is not analyzed
package gofront

import (
	"errors"
	"fmt"
	"go/ast"
	"go/types"
	"sort"

	"github.com/awslabs/ar-go-txeffects/analysis/diagnostics"
	"github.com/awslabs/ar-go-txeffects/analysis/ir"
	"github.com/dave/dst"
	"github.com/dave/dst/decorator"
	"golang.org/x/tools/go/packages"
)

// LoadMode is the mode packages are loaded with: the front end needs the syntax and the type information.
const LoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedImports |
	packages.NeedDeps |
	packages.NeedTypes |
	packages.NeedSyntax |
	packages.NeedTypesInfo

// Load loads, parses and type checks the packages matching patterns in dir, and converts them.
func Load(dir string, sink diagnostics.Sink, patterns ...string) (*ir.Program, error) {
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}
	cfg := &packages.Config{Mode: LoadMode, Dir: dir, Tests: false}
	pkgs, err := decorator.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("could not load packages: %w", err)
	}
	var errs []error
	for _, p := range pkgs {
		for _, e := range p.Errors {
			errs = append(errs, e)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("errors in loaded packages: %w", errors.Join(errs...))
	}
	return Convert(pkgs, sink), nil
}

type converter struct {
	sink     diagnostics.Sink
	classes  map[string]*ir.Class
	names    []string
	ifaces   []*types.Named
	concrete []*types.Named
}

// Convert converts loaded packages into a program. Unsupported constructs are reported to sink and converted to
// opaque expressions or statements.
func Convert(pkgs []*decorator.Package, sink diagnostics.Sink) *ir.Program {
	if sink == nil {
		sink = diagnostics.Discard
	}
	c := &converter{sink: sink, classes: map[string]*ir.Class{}}
	for _, p := range pkgs {
		c.declareTypes(p)
	}
	for _, p := range pkgs {
		for _, file := range p.Syntax {
			for _, decl := range file.Decls {
				if fd, ok := decl.(*dst.FuncDecl); ok {
					c.function(p, fd)
				}
			}
		}
	}
	c.hierarchy()
	classes := make([]*ir.Class, len(c.names))
	for i, name := range c.names {
		classes[i] = c.classes[name]
	}
	return ir.NewProgram(classes...)
}

func (c *converter) class(name string) *ir.Class {
	if cls, ok := c.classes[name]; ok {
		return cls
	}
	cls := &ir.Class{Name: name}
	c.classes[name] = cls
	c.names = append(c.names, name)
	return cls
}

// declareTypes declares a class for each named type of p. Interfaces get their abstract methods and structs their
// fields.
func (c *converter) declareTypes(p *decorator.Package) {
	if p.Types == nil {
		return
	}
	scope := p.Types.Scope()
	for _, name := range scope.Names() {
		obj, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || obj.IsAlias() {
			continue
		}
		n, ok := obj.Type().(*types.Named)
		if !ok || n.TypeParams().Len() > 0 {
			continue
		}
		cls := c.class(className(n))
		switch u := n.Underlying().(type) {
		case *types.Interface:
			cls.IsInterface = true
			for i := 0; i < u.NumMethods(); i++ {
				m := u.Method(i)
				cls.Methods = append(cls.Methods, &ir.Method{
					Signature: signatureOf(m),
					Params:    params(m.Type().(*types.Signature)),
					Result:    typeName(m.Type().(*types.Signature).Results()),
					Pos:       p.Fset.Position(m.Pos()),
				})
			}
			if u.NumMethods() > 0 {
				c.ifaces = append(c.ifaces, n)
			}
		case *types.Struct:
			for i := 0; i < u.NumFields(); i++ {
				fld := u.Field(i)
				cls.Fields = append(cls.Fields, &ir.VarDecl{
					ExprInfo: ir.ExprInfo{Position: p.Fset.Position(fld.Pos()), Typ: typeName(fld.Type())},
					Name:     fld.Name(),
				})
			}
			c.concrete = append(c.concrete, n)
		default:
			c.concrete = append(c.concrete, n)
		}
	}
}

func params(sig *types.Signature) []*ir.Param {
	var res []*ir.Param
	for i := 0; i < sig.Params().Len(); i++ {
		v := sig.Params().At(i)
		name := v.Name()
		if name == "" || name == "_" {
			name = fmt.Sprintf("$p%d", i)
		}
		res = append(res, &ir.Param{Name: name, Type: typeName(v.Type())})
	}
	return res
}

// function converts a function declaration into a method of its class.
func (c *converter) function(p *decorator.Package, fd *dst.FuncDecl) {
	astDecl, ok := p.Decorator.Ast.Nodes[fd].(*ast.FuncDecl)
	if !ok {
		return
	}
	obj, ok := p.TypesInfo.Defs[astDecl.Name].(*types.Func)
	if !ok {
		return
	}
	sig := obj.Type().(*types.Signature)
	if sig.TypeParams().Len() > 0 || sig.RecvTypeParams().Len() > 0 {
		c.sink.Report(diagnostics.Unsupported, p.Fset.Position(astDecl.Pos()), "generic function %s", obj.FullName())
		return
	}
	m := &ir.Method{
		Signature: signatureOf(obj),
		Params:    params(sig),
		Result:    typeName(sig.Results()),
		Static:    sig.Recv() == nil,
		Pos:       p.Fset.Position(astDecl.Pos()),
	}
	names, malformed := directives(fd.Decs.Start)
	m.Directives = names
	for _, line := range malformed {
		c.sink.Report(diagnostics.Unsupported, m.Pos, "malformed directive %q", line)
	}
	if fd.Body != nil {
		f := &fn{pkg: p, info: p.TypesInfo, sink: c.sink}
		if astDecl.Recv != nil && len(astDecl.Recv.List) > 0 && len(astDecl.Recv.List[0].Names) > 0 {
			f.recv, _ = p.TypesInfo.Defs[astDecl.Recv.List[0].Names[0]].(*types.Var)
		}
		m.Body = f.functionBody(fd.Body)
	}
	cls := c.class(m.Class)
	cls.Methods = append(cls.Methods, m)
}

// hierarchy records the interfaces implemented by each concrete type, by its value or its pointer.
func (c *converter) hierarchy() {
	for _, t := range c.concrete {
		cls := c.classes[className(t)]
		for _, i := range c.ifaces {
			iface := i.Underlying().(*types.Interface)
			if types.Implements(t, iface) || types.Implements(types.NewPointer(t), iface) {
				cls.Interfaces = append(cls.Interfaces, className(i))
			}
		}
		sort.Strings(cls.Interfaces)
	}
}
