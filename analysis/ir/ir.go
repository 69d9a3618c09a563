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

// Package ir defines the resolved statement and expression tree consumed by the analysis. A front end (for example
// analysis/frontend/gofront) is responsible for parsing, name resolution and typing; the tree it produces carries a
// static type on every expression and a resolved signature on every call.
//
// Node identity is pointer identity: the control flow graph builder keys its nodes on statement pointers and the
// interpreter keys call-site resolutions on call pointers.
package ir

import (
	"fmt"
	"go/token"
	"strings"
)

// Type is the name of a static type, e.g. "int", "java.lang.String" or "*database/sql.Tx".
type Type string

// Well-known types used by front ends and by the analysis when synthesizing expressions.
const (
	TypeUnknown Type = ""
	TypeVoid    Type = "void"
	TypeInt     Type = "int"
	TypeLong    Type = "long"
	TypeDouble  Type = "double"
	TypeFloat   Type = "float"
	TypeBool    Type = "boolean"
	TypeString  Type = "java.lang.String"
	TypeNull    Type = "null"
)

// IsNumeric returns true for integral and floating point types of Java and Go.
func (t Type) IsNumeric() bool {
	switch t {
	case TypeInt, TypeLong, TypeDouble, TypeFloat, "short", "byte",
		"int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64", "float32", "float64",
		"java.lang.Integer", "java.lang.Long", "java.lang.Double":
		return true
	}
	return false
}

// IsString returns true for string types of Java and Go.
func (t Type) IsString() bool {
	return t == TypeString || t == "string" || t == "String" || t == "char"
}

// IsBool returns true for boolean types of Java and Go.
func (t Type) IsBool() bool {
	return t == TypeBool || t == "bool" || t == "java.lang.Boolean"
}

// A Signature identifies a procedure: the class (or package, for functions) declaring it, its name and the types of
// its parameters.
type Signature struct {
	Class  string
	Name   string
	Params []Type
}

// QualifiedName returns Class.Name, the key used by the known semantics registry and by effect seeds.
func (s Signature) QualifiedName() string {
	if s.Class == "" {
		return s.Name
	}
	return s.Class + "." + s.Name
}

// Descriptor returns the erased signature Name(P1, P2) used to match overrides.
func (s Signature) Descriptor() string {
	params := make([]string, len(s.Params))
	for i, p := range s.Params {
		params[i] = string(p)
	}
	return s.Name + "(" + strings.Join(params, ", ") + ")"
}

// String returns the fully-qualified signature Class.Name(P1, P2). This is the node identity in the call graph.
func (s Signature) String() string {
	if s.Class == "" {
		return s.Descriptor()
	}
	return s.Class + "." + s.Descriptor()
}

// IsZero returns true when the signature has not been resolved.
func (s Signature) IsZero() bool {
	return s.Class == "" && s.Name == ""
}

// A Node is either a statement or an expression.
type Node interface {
	Pos() token.Position
	String() string
}

// An Expr is an expression with a static type.
type Expr interface {
	Node
	Type() Type
	exprNode()
}

// A Stmt is a statement.
type Stmt interface {
	Node
	stmtNode()
}

// ExprInfo holds the information shared by all expressions.
type ExprInfo struct {
	Position token.Position
	Typ      Type
}

// Pos returns the source position of the expression.
func (e *ExprInfo) Pos() token.Position { return e.Position }

// Type returns the static type of the expression.
func (e *ExprInfo) Type() Type { return e.Typ }

func (e *ExprInfo) exprNode() {}

// StmtInfo holds the information shared by all statements.
type StmtInfo struct {
	Position token.Position
}

// Pos returns the source position of the statement.
func (s *StmtInfo) Pos() token.Position { return s.Position }

func (s *StmtInfo) stmtNode() {}

// LitKind is the kind of a literal.
type LitKind int

// Literal kinds.
const (
	IntLit LitKind = iota
	FloatLit
	BoolLit
	StringLit
	NullLit
)

// Literal is a constant of the source language. Value is an int64, float64, bool, string or nil.
type Literal struct {
	ExprInfo
	Kind  LitKind
	Value any
}

// Name is a reference to a local variable, parameter or field.
type Name struct {
	ExprInfo
	Ident string
}

// This is the receiver of the current method.
type This struct {
	ExprInfo
}

// FieldAccess is X.Field.
type FieldAccess struct {
	ExprInfo
	X     Expr
	Field string
}

// Index is X[Index].
type Index struct {
	ExprInfo
	X     Expr
	Index Expr
}

// Assign is Target = Value, or Target Op= Value when Op is not NoOp.
type Assign struct {
	ExprInfo
	Target Expr
	Op     BinaryOp
	Value  Expr
}

// VarDecl declares a local variable, with an optional initializer.
type VarDecl struct {
	ExprInfo
	Name string
	Init Expr
}

// UnaryOp is a unary operator.
type UnaryOp int

// Unary operators.
const (
	Neg UnaryOp = iota + 1
	Not
	Plus
	AddrOf
	Deref
	Complement
)

var unaryOpText = map[UnaryOp]string{Neg: "-", Not: "!", Plus: "+", AddrOf: "&", Deref: "*", Complement: "~"}

func (op UnaryOp) String() string { return unaryOpText[op] }

// Unary is Op X.
type Unary struct {
	ExprInfo
	Op UnaryOp
	X  Expr
}

// BinaryOp is a binary operator.
type BinaryOp int

// Binary operators. NoOp marks a plain assignment.
const (
	NoOp BinaryOp = iota
	Add
	Sub
	Mul
	Div
	Rem
	And
	Or
	Xor
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
	Shl
	Shr
	BitAnd
	BitOr
)

var binaryOpText = map[BinaryOp]string{
	NoOp: "", Add: "+", Sub: "-", Mul: "*", Div: "/", Rem: "%", And: "&&", Or: "||", Xor: "^",
	Eq: "==", Ne: "!=", Lt: "<", Le: "<=", Gt: ">", Ge: ">=", Shl: "<<", Shr: ">>", BitAnd: "&", BitOr: "|",
}

func (op BinaryOp) String() string { return binaryOpText[op] }

// Binary is X Op Y.
type Binary struct {
	ExprInfo
	Op BinaryOp
	X  Expr
	Y  Expr
}

// Call is a resolved call. Method is the statically declared target; the call graph resolves virtual calls to the
// set of possible targets. Raises lists the exception types declared by the target.
type Call struct {
	ExprInfo
	Method      Signature
	Receiver    Expr
	Args        []Expr
	Static      bool
	Super       bool
	Constructor bool
	Raises      []Type
}

// Conditional is Cond ? Then : Else.
type Conditional struct {
	ExprInfo
	Cond Expr
	Then Expr
	Else Expr
}

// Cast converts X to the expression's static type.
type Cast struct {
	ExprInfo
	X Expr
}

// Opaque is an expression the front end could not translate. It always evaluates to an unknown value.
type Opaque struct {
	ExprInfo
	Kind string
	Text string
}

// Block is a sequence of statements opening a new scope.
type Block struct {
	StmtInfo
	Stmts []Stmt
}

// If is a conditional statement; Else may be nil.
type If struct {
	StmtInfo
	Cond Expr
	Then Stmt
	Else Stmt
}

// While is the pre-test loop. All other loop forms are desugared to While before graph construction.
type While struct {
	StmtInfo
	Cond Expr
	Body Stmt
}

// For is for (Init; Cond; Post) Body. Cond may be nil.
type For struct {
	StmtInfo
	Init []Stmt
	Cond Expr
	Post []Stmt
	Body Stmt
}

// ForEach is for (Var : Iterable) Body.
type ForEach struct {
	StmtInfo
	Var      *VarDecl
	Iterable Expr
	Body     Stmt
}

// DoWhile is do Body while (Cond).
type DoWhile struct {
	StmtInfo
	Body Stmt
	Cond Expr
}

// Break exits the innermost loop or switch.
type Break struct {
	StmtInfo
}

// Continue jumps to the head of the innermost loop.
type Continue struct {
	StmtInfo
}

// ExprStmt evaluates an expression for its side effects.
type ExprStmt struct {
	StmtInfo
	X Expr
}

// Throw raises X.
type Throw struct {
	StmtInfo
	X Expr
}

// Catch is a handler of a Try statement binding the exception to Name.
type Catch struct {
	Name string
	Type Type
	Body *Block
}

// Try is try Body catch ... finally Finally. Finally may be nil.
type Try struct {
	StmtInfo
	Body    *Block
	Catches []*Catch
	Finally *Block
}

// Empty does nothing.
type Empty struct {
	StmtInfo
}

// Return returns from the current method. X may be nil.
type Return struct {
	StmtInfo
	X Expr
}

// Case is a switch case. A case without labels is the default case.
type Case struct {
	Labels []Expr
	Body   []Stmt
}

// Switch selects the first case whose label equals Tag and falls through the following cases until a break.
type Switch struct {
	StmtInfo
	Tag   Expr
	Cases []*Case
}

// OpaqueStmt is a statement the front end could not translate. It is a no-op for the interpreter.
type OpaqueStmt struct {
	StmtInfo
	Kind string
	Text string
}

// IsTrueLiteral returns true if e is the literal true.
func IsTrueLiteral(e Expr) bool {
	l, ok := e.(*Literal)
	return ok && l.Kind == BoolLit && l.Value == true
}

func (e *Literal) String() string {
	switch e.Kind {
	case StringLit:
		return fmt.Sprintf("%q", e.Value)
	case NullLit:
		return "null"
	default:
		return fmt.Sprintf("%v", e.Value)
	}
}

func (e *Name) String() string        { return e.Ident }
func (e *This) String() string        { return "this" }
func (e *FieldAccess) String() string { return e.X.String() + "." + e.Field }
func (e *Index) String() string       { return e.X.String() + "[" + e.Index.String() + "]" }

func (e *Assign) String() string {
	return e.Target.String() + " " + e.Op.String() + "= " + e.Value.String()
}

func (e *VarDecl) String() string {
	if e.Init == nil {
		return string(e.Typ) + " " + e.Name
	}
	return string(e.Typ) + " " + e.Name + " = " + e.Init.String()
}

func (e *Unary) String() string  { return e.Op.String() + e.X.String() }
func (e *Binary) String() string { return "(" + e.X.String() + " " + e.Op.String() + " " + e.Y.String() + ")" }

func (e *Call) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	prefix := ""
	switch {
	case e.Constructor:
		prefix = "new " + e.Method.Class
		return prefix + "(" + strings.Join(args, ", ") + ")"
	case e.Super:
		prefix = "super."
	case e.Receiver != nil:
		prefix = e.Receiver.String() + "."
	}
	return prefix + e.Method.Name + "(" + strings.Join(args, ", ") + ")"
}

func (e *Conditional) String() string {
	return e.Cond.String() + " ? " + e.Then.String() + " : " + e.Else.String()
}

func (e *Cast) String() string   { return "(" + string(e.Typ) + ") " + e.X.String() }
func (e *Opaque) String() string { return e.Text }

func (s *Block) String() string {
	parts := make([]string, len(s.Stmts))
	for i, st := range s.Stmts {
		parts[i] = st.String()
	}
	return "{ " + strings.Join(parts, " ") + " }"
}

func (s *If) String() string { return "if (" + s.Cond.String() + ") ..." }

func (s *While) String() string   { return "while (" + s.Cond.String() + ") ..." }
func (s *For) String() string     { return "for (...) ..." }
func (s *ForEach) String() string { return "for (" + s.Var.Name + " : " + s.Iterable.String() + ") ..." }
func (s *DoWhile) String() string { return "do ... while (" + s.Cond.String() + ")" }
func (s *Break) String() string   { return "break;" }
func (s *Continue) String() string {
	return "continue;"
}
func (s *ExprStmt) String() string { return s.X.String() + ";" }
func (s *Throw) String() string    { return "throw " + s.X.String() + ";" }
func (s *Try) String() string      { return "try ..." }
func (s *Empty) String() string    { return ";" }

func (s *Return) String() string {
	if s.X == nil {
		return "return;"
	}
	return "return " + s.X.String() + ";"
}

func (s *Switch) String() string     { return "switch (" + s.Tag.String() + ") ..." }
func (s *OpaqueStmt) String() string { return s.Text }
