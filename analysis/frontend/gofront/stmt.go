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

package gofront

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"

	"github.com/awslabs/ar-go-txeffects/analysis/diagnostics"
	"github.com/awslabs/ar-go-txeffects/analysis/ir"
	"github.com/dave/dst"
)

var assignOps = map[token.Token]ir.BinaryOp{
	token.ADD_ASSIGN: ir.Add, token.SUB_ASSIGN: ir.Sub, token.MUL_ASSIGN: ir.Mul, token.QUO_ASSIGN: ir.Div,
	token.REM_ASSIGN: ir.Rem, token.AND_ASSIGN: ir.BitAnd, token.OR_ASSIGN: ir.BitOr, token.XOR_ASSIGN: ir.Xor,
	token.SHL_ASSIGN: ir.Shl, token.SHR_ASSIGN: ir.Shr,
}

func (f *fn) stmtInfo(n dst.Node) ir.StmtInfo {
	return ir.StmtInfo{Position: f.pos(n)}
}

func (f *fn) unsupportedStmt(s dst.Stmt, kind string) []ir.Stmt {
	pos := f.pos(s)
	f.sink.Report(diagnostics.Unsupported, pos, "%s", kind)
	return []ir.Stmt{&ir.OpaqueStmt{StmtInfo: ir.StmtInfo{Position: pos}, Kind: kind, Text: kind}}
}

// functionBody converts the body of a function. A defer wraps the statements following it in a try whose finally
// block runs the deferred call.
func (f *fn) functionBody(b *dst.BlockStmt) *ir.Block {
	return &ir.Block{StmtInfo: f.stmtInfo(b), Stmts: f.topLevel(b.List)}
}

func (f *fn) topLevel(list []dst.Stmt) []ir.Stmt {
	var res []ir.Stmt
	for i, s := range list {
		if d, ok := s.(*dst.DeferStmt); ok {
			si := f.stmtInfo(d)
			deferred := &ir.ExprStmt{StmtInfo: si, X: f.expr(d.Call)}
			return append(res, &ir.Try{
				StmtInfo: si,
				Body:     &ir.Block{StmtInfo: si, Stmts: f.topLevel(list[i+1:])},
				Finally:  &ir.Block{StmtInfo: si, Stmts: []ir.Stmt{deferred}},
			})
		}
		res = append(res, f.stmt(s)...)
	}
	return res
}

func (f *fn) block(b *dst.BlockStmt) *ir.Block {
	res := &ir.Block{StmtInfo: f.stmtInfo(b)}
	for _, s := range b.List {
		res.Stmts = append(res.Stmts, f.stmt(s)...)
	}
	return res
}

// single converts s into one statement, wrapping the statements of a declaration list in a block.
func (f *fn) single(s dst.Stmt) ir.Stmt {
	stmts := f.stmt(s)
	if len(stmts) == 1 {
		return stmts[0]
	}
	return &ir.Block{StmtInfo: f.stmtInfo(s), Stmts: stmts}
}

// withInit prepends the init statement of an if or switch, in a block scoping the variables it declares.
func (f *fn) withInit(init dst.Stmt, s ir.Stmt, si ir.StmtInfo) []ir.Stmt {
	if init == nil {
		return []ir.Stmt{s}
	}
	return []ir.Stmt{&ir.Block{StmtInfo: si, Stmts: append(f.stmt(init), s)}}
}

// stmt converts a statement. Declarations of several variables produce several statements.
func (f *fn) stmt(s dst.Stmt) []ir.Stmt {
	si := f.stmtInfo(s)
	switch s := s.(type) {
	case *dst.BlockStmt:
		return []ir.Stmt{f.block(s)}
	case *dst.ExprStmt:
		if x := f.panicArg(s.X); x != nil {
			return []ir.Stmt{&ir.Throw{StmtInfo: si, X: f.expr(x)}}
		}
		return []ir.Stmt{&ir.ExprStmt{StmtInfo: si, X: f.expr(s.X)}}
	case *dst.AssignStmt:
		return f.assign(s, si)
	case *dst.IncDecStmt:
		op := ir.Add
		if s.Tok == token.DEC {
			op = ir.Sub
		}
		x := f.expr(s.X)
		return []ir.Stmt{&ir.ExprStmt{StmtInfo: si, X: &ir.Assign{
			ExprInfo: ir.ExprInfo{Position: si.Position, Typ: x.Type()}, Target: x, Op: op, Value: ir.Int(1)}}}
	case *dst.DeclStmt:
		return f.decl(s, si)
	case *dst.IfStmt:
		st := &ir.If{StmtInfo: si, Cond: f.expr(s.Cond), Then: f.block(s.Body)}
		if s.Else != nil {
			st.Else = f.single(s.Else)
		}
		return f.withInit(s.Init, st, si)
	case *dst.ForStmt:
		st := &ir.For{StmtInfo: si, Body: f.block(s.Body)}
		if s.Init != nil {
			st.Init = f.stmt(s.Init)
		}
		if s.Cond != nil {
			st.Cond = f.expr(s.Cond)
		}
		if s.Post != nil {
			st.Post = f.stmt(s.Post)
		}
		return []ir.Stmt{st}
	case *dst.RangeStmt:
		return f.rangeStmt(s, si)
	case *dst.SwitchStmt:
		var tag ir.Expr = &ir.Literal{ExprInfo: ir.ExprInfo{Position: si.Position, Typ: "bool"}, Kind: ir.BoolLit,
			Value: true}
		if s.Tag != nil {
			tag = f.expr(s.Tag)
		}
		sw := &ir.Switch{StmtInfo: si, Tag: tag}
		for _, c := range s.Body.List {
			clause := c.(*dst.CaseClause)
			sw.Cases = append(sw.Cases, f.caseClause(f.exprs(clause.List), clause.Body, nil))
		}
		return f.withInit(s.Init, sw, si)
	case *dst.TypeSwitchStmt:
		return f.typeSwitch(s, si)
	case *dst.ReturnStmt:
		ret := &ir.Return{StmtInfo: si}
		if len(s.Results) > 0 {
			ret.X = f.expr(s.Results[0])
		}
		return []ir.Stmt{ret}
	case *dst.BranchStmt:
		if s.Label != nil {
			f.sink.Report(diagnostics.Unsupported, si.Position, "labeled %s treated as unlabeled", s.Tok)
		}
		switch s.Tok {
		case token.BREAK:
			return []ir.Stmt{&ir.Break{StmtInfo: si}}
		case token.CONTINUE:
			return []ir.Stmt{&ir.Continue{StmtInfo: si}}
		}
		return f.unsupportedStmt(s, s.Tok.String())
	case *dst.LabeledStmt:
		return f.stmt(s.Stmt)
	case *dst.GoStmt:
		// the call is interpreted as if synchronous
		return []ir.Stmt{&ir.ExprStmt{StmtInfo: si, X: f.expr(s.Call)}}
	case *dst.DeferStmt:
		return f.unsupportedStmt(s, "nested defer")
	case *dst.EmptyStmt:
		return []ir.Stmt{&ir.Empty{StmtInfo: si}}
	}
	return f.unsupportedStmt(s, fmt.Sprintf("statement %T", s))
}

// panicArg returns the argument of a call to the builtin panic.
func (f *fn) panicArg(x dst.Expr) dst.Expr {
	call, ok := unparen(x).(*dst.CallExpr)
	if !ok || len(call.Args) != 1 {
		return nil
	}
	id, ok := unparen(call.Fun).(*dst.Ident)
	if !ok {
		return nil
	}
	if a, ok := f.ast(id).(*ast.Ident); ok {
		if b, ok := f.info.Uses[a].(*types.Builtin); ok && b.Name() == "panic" {
			return call.Args[0]
		}
	}
	return nil
}

// assign converts assignments and short variable declarations. Parallel assignments go through temporaries; when a
// call returns several results, the first variable takes the value of the call and the others are unknown.
func (f *fn) assign(s *dst.AssignStmt, si ir.StmtInfo) []ir.Stmt {
	if op, ok := assignOps[s.Tok]; ok {
		x := f.expr(s.Lhs[0])
		return []ir.Stmt{&ir.ExprStmt{StmtInfo: si, X: &ir.Assign{
			ExprInfo: ir.ExprInfo{Position: si.Position, Typ: x.Type()}, Target: x, Op: op, Value: f.expr(s.Rhs[0])}}}
	}
	if s.Tok != token.DEFINE && s.Tok != token.ASSIGN {
		return f.unsupportedStmt(s, "assignment "+s.Tok.String())
	}
	define := s.Tok == token.DEFINE
	if len(s.Lhs) == len(s.Rhs) {
		if len(s.Lhs) == 1 {
			return []ir.Stmt{f.bind(s.Lhs[0], f.expr(s.Rhs[0]), define, si)}
		}
		var temps, binds []ir.Stmt
		for i, r := range s.Rhs {
			v := f.expr(r)
			tmp := f.temp()
			vi := ir.ExprInfo{Position: si.Position, Typ: v.Type()}
			temps = append(temps, &ir.ExprStmt{StmtInfo: si, X: &ir.VarDecl{ExprInfo: vi, Name: tmp, Init: v}})
			binds = append(binds, f.bind(s.Lhs[i], &ir.Name{ExprInfo: vi, Ident: tmp}, define, si))
		}
		return append(temps, binds...)
	}
	res := []ir.Stmt{f.bind(s.Lhs[0], f.expr(s.Rhs[0]), define, si)}
	for _, l := range s.Lhs[1:] {
		rest := &ir.Opaque{ExprInfo: ir.ExprInfo{Position: si.Position, Typ: typeName(f.typeOf(l))}, Kind: "result",
			Text: f.text(s.Rhs[0])}
		res = append(res, f.bind(l, rest, define, si))
	}
	return res
}

// bind assigns v to lhs, declaring lhs when it is a new variable of a short variable declaration.
func (f *fn) bind(lhs dst.Expr, v ir.Expr, define bool, si ir.StmtInfo) ir.Stmt {
	id, isIdent := unparen(lhs).(*dst.Ident)
	if isIdent && id.Name == "_" {
		return &ir.ExprStmt{StmtInfo: si, X: v}
	}
	if isIdent && define {
		if a, ok := f.ast(id).(*ast.Ident); ok && f.info.Defs[a] != nil {
			return &ir.ExprStmt{StmtInfo: si, X: &ir.VarDecl{
				ExprInfo: ir.ExprInfo{Position: f.pos(id), Typ: typeName(f.info.Defs[a].Type())},
				Name:     id.Name,
				Init:     v,
			}}
		}
	}
	target := f.expr(lhs)
	return &ir.ExprStmt{StmtInfo: si, X: &ir.Assign{
		ExprInfo: ir.ExprInfo{Position: si.Position, Typ: target.Type()}, Target: target, Value: v}}
}

// decl converts var declarations. Variables without a value start with the zero value of their type.
func (f *fn) decl(s *dst.DeclStmt, si ir.StmtInfo) []ir.Stmt {
	gen, ok := s.Decl.(*dst.GenDecl)
	if !ok || gen.Tok != token.VAR {
		return nil
	}
	var res []ir.Stmt
	for _, spec := range gen.Specs {
		vs, ok := spec.(*dst.ValueSpec)
		if !ok {
			continue
		}
		for i, name := range vs.Names {
			a, _ := f.ast(name).(*ast.Ident)
			obj := f.info.Defs[a]
			if obj == nil {
				continue
			}
			var init ir.Expr
			switch {
			case len(vs.Values) == len(vs.Names):
				init = f.expr(vs.Values[i])
			case len(vs.Values) == 1 && i == 0:
				init = f.expr(vs.Values[0])
			case len(vs.Values) == 1:
				init = &ir.Opaque{ExprInfo: ir.ExprInfo{Position: si.Position, Typ: typeName(obj.Type())},
					Kind: "result", Text: f.text(vs.Values[0])}
			default:
				init = zero(obj.Type())
			}
			if name.Name == "_" {
				res = append(res, &ir.ExprStmt{StmtInfo: si, X: init})
				continue
			}
			res = append(res, &ir.ExprStmt{StmtInfo: si, X: &ir.VarDecl{
				ExprInfo: ir.ExprInfo{Position: f.pos(name), Typ: typeName(obj.Type())},
				Name:     name.Name,
				Init:     init,
			}})
		}
	}
	return res
}

// rangeStmt converts a range loop to a for-each loop over the value, or over the key when there is no value. The key
// of a loop binding both is unknown in the body.
func (f *fn) rangeStmt(s *dst.RangeStmt, si ir.StmtInfo) []ir.Stmt {
	v := s.Value
	if v == nil {
		v = s.Key
	}
	name, typ := "$_", ir.TypeUnknown
	if id, ok := v.(*dst.Ident); ok && id.Name != "_" {
		name, typ = id.Name, typeName(f.typeOf(id))
	}
	body := f.block(s.Body)
	if key, ok := s.Key.(*dst.Ident); ok && s.Value != nil && key.Name != "_" {
		ki := ir.ExprInfo{Position: f.pos(key), Typ: typeName(f.typeOf(key))}
		decl := &ir.VarDecl{ExprInfo: ki, Name: key.Name, Init: &ir.Opaque{ExprInfo: ki, Kind: "range key", Text: key.Name}}
		body.Stmts = append([]ir.Stmt{&ir.ExprStmt{StmtInfo: si, X: decl}}, body.Stmts...)
	}
	return []ir.Stmt{&ir.ForEach{
		StmtInfo: si,
		Var:      &ir.VarDecl{ExprInfo: ir.ExprInfo{Position: si.Position, Typ: typ}, Name: name},
		Iterable: f.expr(s.X),
		Body:     body,
	}}
}

// caseClause converts a case of a switch. Go cases break implicitly unless they end with a fallthrough.
func (f *fn) caseClause(labels []ir.Expr, body []dst.Stmt, prefix []ir.Stmt) *ir.Case {
	falls := false
	if n := len(body); n > 0 {
		if b, ok := body[n-1].(*dst.BranchStmt); ok && b.Tok == token.FALLTHROUGH {
			falls = true
			body = body[:n-1]
		}
	}
	c := &ir.Case{Labels: labels, Body: prefix}
	for _, s := range body {
		c.Body = append(c.Body, f.stmt(s)...)
	}
	if !falls {
		c.Body = append(c.Body, &ir.Break{})
	}
	return c
}

// typeSwitch converts a type switch to a switch over an unknown tag. Each case binds the variable of the switch, if
// any, to the operand converted to the type of the case.
func (f *fn) typeSwitch(s *dst.TypeSwitchStmt, si ir.StmtInfo) []ir.Stmt {
	var operand dst.Expr
	var binding string
	switch a := s.Assign.(type) {
	case *dst.ExprStmt:
		if ta, ok := a.X.(*dst.TypeAssertExpr); ok {
			operand = ta.X
		}
	case *dst.AssignStmt:
		if ta, ok := a.Rhs[0].(*dst.TypeAssertExpr); ok {
			operand = ta.X
		}
		if id, ok := a.Lhs[0].(*dst.Ident); ok && id.Name != "_" {
			binding = id.Name
		}
	}
	if operand == nil {
		return f.unsupportedStmt(s, "type switch")
	}
	x := f.expr(operand)
	sw := &ir.Switch{StmtInfo: si, Tag: &ir.Opaque{ExprInfo: ir.ExprInfo{Position: si.Position}, Kind: "dynamic type",
		Text: f.text(operand)}}
	for _, c := range s.Body.List {
		clause := c.(*dst.CaseClause)
		var labels []ir.Expr
		for _, t := range clause.List {
			labels = append(labels, &ir.Opaque{ExprInfo: ir.ExprInfo{Position: f.pos(t)}, Kind: "type", Text: f.text(t)})
		}
		var prefix []ir.Stmt
		if binding != "" {
			typ := x.Type()
			if a, ok := f.ast(clause).(*ast.CaseClause); ok {
				if obj := f.info.Implicits[a]; obj != nil {
					typ = typeName(obj.Type())
				}
			}
			vi := ir.ExprInfo{Position: f.pos(clause), Typ: typ}
			prefix = []ir.Stmt{&ir.ExprStmt{StmtInfo: si, X: &ir.VarDecl{ExprInfo: vi, Name: binding,
				Init: &ir.Cast{ExprInfo: vi, X: x}}}}
		}
		sw.Cases = append(sw.Cases, f.caseClause(labels, clause.Body, prefix))
	}
	return f.withInit(s.Init, sw, si)
}
