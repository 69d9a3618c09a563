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
	"go/constant"
	"go/token"
	"go/types"

	"github.com/awslabs/ar-go-txeffects/analysis/diagnostics"
	"github.com/awslabs/ar-go-txeffects/analysis/ir"
	"github.com/dave/dst"
	"github.com/dave/dst/decorator"
	"golang.org/x/tools/go/types/typeutil"
)

// fn converts the body of one function.
type fn struct {
	pkg  *decorator.Package
	info *types.Info
	sink diagnostics.Sink
	// recv is the receiver of the method, nil for functions and anonymous receivers
	recv *types.Var
	tmp  int
}

func (f *fn) ast(n dst.Node) ast.Node {
	return f.pkg.Decorator.Ast.Nodes[n]
}

func (f *fn) pos(n dst.Node) token.Position {
	if a := f.ast(n); a != nil {
		return f.pkg.Fset.Position(a.Pos())
	}
	return token.Position{}
}

func (f *fn) typeOf(e dst.Expr) types.Type {
	if a, ok := f.ast(e).(ast.Expr); ok {
		return f.info.TypeOf(a)
	}
	return nil
}

func (f *fn) text(e dst.Expr) string {
	if a, ok := f.ast(e).(ast.Expr); ok {
		return types.ExprString(a)
	}
	return "?"
}

func (f *fn) temp() string {
	f.tmp++
	return fmt.Sprintf("$t%d", f.tmp)
}

func (f *fn) unsupported(e dst.Expr, info ir.ExprInfo, kind string) ir.Expr {
	text := f.text(e)
	f.sink.Report(diagnostics.Unsupported, info.Position, "%s: %s", kind, text)
	return &ir.Opaque{ExprInfo: info, Kind: kind, Text: text}
}

func unparen(e dst.Expr) dst.Expr {
	for {
		p, ok := e.(*dst.ParenExpr)
		if !ok {
			return e
		}
		e = p.X
	}
}

var binaryOps = map[token.Token]ir.BinaryOp{
	token.ADD: ir.Add, token.SUB: ir.Sub, token.MUL: ir.Mul, token.QUO: ir.Div, token.REM: ir.Rem,
	token.LAND: ir.And, token.LOR: ir.Or, token.XOR: ir.Xor,
	token.EQL: ir.Eq, token.NEQ: ir.Ne, token.LSS: ir.Lt, token.LEQ: ir.Le, token.GTR: ir.Gt, token.GEQ: ir.Ge,
	token.SHL: ir.Shl, token.SHR: ir.Shr, token.AND: ir.BitAnd, token.OR: ir.BitOr,
}

var unaryOps = map[token.Token]ir.UnaryOp{
	token.SUB: ir.Neg, token.NOT: ir.Not, token.ADD: ir.Plus, token.AND: ir.AddrOf, token.XOR: ir.Complement,
}

func (f *fn) exprs(es []dst.Expr) []ir.Expr {
	res := make([]ir.Expr, len(es))
	for i, e := range es {
		res[i] = f.expr(e)
	}
	return res
}

// expr converts an expression. Constant expressions are folded by the type checker.
func (f *fn) expr(e dst.Expr) ir.Expr {
	info := ir.ExprInfo{Position: f.pos(e), Typ: typeName(f.typeOf(e))}
	if a, ok := f.ast(e).(ast.Expr); ok {
		if tv, ok := f.info.Types[a]; ok && tv.Value != nil {
			return literal(tv.Value, info)
		}
	}
	switch e := e.(type) {
	case *dst.ParenExpr:
		return f.expr(e.X)
	case *dst.Ident:
		return f.ident(e, info)
	case *dst.SelectorExpr:
		return f.selector(e, info)
	case *dst.CallExpr:
		return f.call(e, info)
	case *dst.BinaryExpr:
		if op, ok := binaryOps[e.Op]; ok {
			return &ir.Binary{ExprInfo: info, Op: op, X: f.expr(e.X), Y: f.expr(e.Y)}
		}
		return f.unsupported(e, info, "operator "+e.Op.String())
	case *dst.UnaryExpr:
		if op, ok := unaryOps[e.Op]; ok {
			return &ir.Unary{ExprInfo: info, Op: op, X: f.expr(e.X)}
		}
		return f.unsupported(e, info, "operator "+e.Op.String())
	case *dst.StarExpr:
		return &ir.Unary{ExprInfo: info, Op: ir.Deref, X: f.expr(e.X)}
	case *dst.IndexExpr:
		return &ir.Index{ExprInfo: info, X: f.expr(e.X), Index: f.expr(e.Index)}
	case *dst.TypeAssertExpr:
		return &ir.Cast{ExprInfo: info, X: f.expr(e.X)}
	case *dst.CompositeLit:
		return &ir.Opaque{ExprInfo: info, Kind: "composite", Text: f.text(e)}
	case *dst.FuncLit:
		return f.unsupported(e, info, "closure")
	}
	return f.unsupported(e, info, fmt.Sprintf("expression %T", e))
}

func literal(v constant.Value, info ir.ExprInfo) ir.Expr {
	switch v.Kind() {
	case constant.Int:
		if i, exact := constant.Int64Val(v); exact {
			return &ir.Literal{ExprInfo: info, Kind: ir.IntLit, Value: i}
		}
		fv, _ := constant.Float64Val(v)
		return &ir.Literal{ExprInfo: info, Kind: ir.FloatLit, Value: fv}
	case constant.Float:
		fv, _ := constant.Float64Val(v)
		return &ir.Literal{ExprInfo: info, Kind: ir.FloatLit, Value: fv}
	case constant.String:
		return &ir.Literal{ExprInfo: info, Kind: ir.StringLit, Value: constant.StringVal(v)}
	case constant.Bool:
		return &ir.Literal{ExprInfo: info, Kind: ir.BoolLit, Value: constant.BoolVal(v)}
	}
	return &ir.Opaque{ExprInfo: info, Kind: "constant", Text: v.ExactString()}
}

// ident converts a reference to a variable. The receiver is this; package variables are named after their package.
func (f *fn) ident(e *dst.Ident, info ir.ExprInfo) ir.Expr {
	a, _ := f.ast(e).(*ast.Ident)
	var obj types.Object
	if a != nil {
		obj = f.info.ObjectOf(a)
	}
	if _, ok := obj.(*types.Nil); ok || (obj == nil && e.Name == "nil") {
		return &ir.Literal{ExprInfo: ir.ExprInfo{Position: info.Position, Typ: ir.TypeNull}, Kind: ir.NullLit}
	}
	if obj != nil && obj == types.Object(f.recv) {
		return &ir.This{ExprInfo: info}
	}
	if v, ok := obj.(*types.Var); ok && v.Pkg() != nil && v.Parent() == v.Pkg().Scope() {
		return &ir.Name{ExprInfo: info, Ident: v.Pkg().Path() + "." + v.Name()}
	}
	return &ir.Name{ExprInfo: info, Ident: e.Name}
}

// selector converts field accesses and qualified identifiers.
func (f *fn) selector(e *dst.SelectorExpr, info ir.ExprInfo) ir.Expr {
	a, ok := f.ast(e).(*ast.SelectorExpr)
	if !ok {
		return f.unsupported(e, info, "selector")
	}
	if sel, ok := f.info.Selections[a]; ok {
		if sel.Kind() == types.FieldVal {
			return &ir.FieldAccess{ExprInfo: info, X: f.expr(e.X), Field: e.Sel.Name}
		}
		return f.unsupported(e, info, "method value")
	}
	if v, ok := f.info.Uses[a.Sel].(*types.Var); ok && v.Pkg() != nil {
		return &ir.Name{ExprInfo: info, Ident: v.Pkg().Path() + "." + v.Name()}
	}
	return f.unsupported(e, info, "function value")
}

// call converts conversions, calls of builtins, functions and methods. Calls of function values are opaque.
func (f *fn) call(e *dst.CallExpr, info ir.ExprInfo) ir.Expr {
	a, ok := f.ast(e).(*ast.CallExpr)
	if !ok {
		return f.unsupported(e, info, "call")
	}
	if tv, ok := f.info.Types[a.Fun]; ok && tv.IsType() && len(e.Args) == 1 {
		return &ir.Cast{ExprInfo: info, X: f.expr(e.Args[0])}
	}
	switch callee := typeutil.Callee(f.info, a).(type) {
	case *types.Builtin:
		return &ir.Call{ExprInfo: info, Method: ir.Signature{Class: "builtin", Name: callee.Name()},
			Args: f.exprs(e.Args), Static: true}
	case *types.Func:
		c := &ir.Call{ExprInfo: info, Method: signatureOf(callee), Args: f.exprs(e.Args)}
		if callee.Type().(*types.Signature).Recv() == nil {
			c.Static = true
			return c
		}
		if sel, ok := unparen(e.Fun).(*dst.SelectorExpr); ok {
			c.Receiver = f.expr(sel.X)
		}
		c.Static = !isInterfaceCall(callee)
		return c
	}
	return f.unsupported(e, info, "dynamic call")
}
