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

// Constructors for building trees by hand, used by front ends for synthesized nodes and by tests.

// Int returns an integer literal.
func Int(v int64) *Literal {
	return &Literal{ExprInfo: ExprInfo{Typ: TypeInt}, Kind: IntLit, Value: v}
}

// Float returns a floating point literal.
func Float(v float64) *Literal {
	return &Literal{ExprInfo: ExprInfo{Typ: TypeDouble}, Kind: FloatLit, Value: v}
}

// Bool returns a boolean literal.
func Bool(v bool) *Literal {
	return &Literal{ExprInfo: ExprInfo{Typ: TypeBool}, Kind: BoolLit, Value: v}
}

// Str returns a string literal.
func Str(v string) *Literal {
	return &Literal{ExprInfo: ExprInfo{Typ: TypeString}, Kind: StringLit, Value: v}
}

// Null returns the null literal.
func Null() *Literal {
	return &Literal{ExprInfo: ExprInfo{Typ: TypeNull}, Kind: NullLit}
}

// Ident returns a reference to the variable name of type t.
func Ident(name string, t Type) *Name {
	return &Name{ExprInfo: ExprInfo{Typ: t}, Ident: name}
}

// Set returns the assignment target = v.
func Set(target Expr, v Expr) *Assign {
	return &Assign{ExprInfo: ExprInfo{Typ: target.Type()}, Target: target, Value: v}
}

// Decl returns the declaration of name with type t and initializer init (possibly nil).
func Decl(name string, t Type, init Expr) *VarDecl {
	return &VarDecl{ExprInfo: ExprInfo{Typ: t}, Name: name, Init: init}
}

// Bin returns x op y. Comparison and logical operators have boolean type, the others take the type of x.
func Bin(op BinaryOp, x, y Expr) *Binary {
	t := x.Type()
	switch op {
	case Eq, Ne, Lt, Le, Gt, Ge, And, Or:
		t = TypeBool
	case Add:
		if x.Type().IsString() || y.Type().IsString() {
			t = TypeString
		}
	}
	return &Binary{ExprInfo: ExprInfo{Typ: t}, Op: op, X: x, Y: y}
}

// Un returns op x.
func Un(op UnaryOp, x Expr) *Unary {
	t := x.Type()
	if op == Not {
		t = TypeBool
	}
	return &Unary{ExprInfo: ExprInfo{Typ: t}, Op: op, X: x}
}

// StaticCall returns a call to the static method sig with result type ret.
func StaticCall(sig Signature, ret Type, args ...Expr) *Call {
	return &Call{ExprInfo: ExprInfo{Typ: ret}, Method: sig, Static: true, Args: args}
}

// MethodCall returns a virtual call of sig on recv with result type ret.
func MethodCall(recv Expr, sig Signature, ret Type, args ...Expr) *Call {
	return &Call{ExprInfo: ExprInfo{Typ: ret}, Method: sig, Receiver: recv, Args: args}
}

// Eval wraps an expression in a statement.
func Eval(x Expr) *ExprStmt {
	return &ExprStmt{X: x}
}

// Seq returns a block of statements.
func Seq(stmts ...Stmt) *Block {
	return &Block{Stmts: stmts}
}

// IfElse returns if (cond) then else els. els may be nil.
func IfElse(cond Expr, then Stmt, els Stmt) *If {
	return &If{Cond: cond, Then: then, Else: els}
}

// Loop returns while (cond) body.
func Loop(cond Expr, body Stmt) *While {
	return &While{Cond: cond, Body: body}
}
