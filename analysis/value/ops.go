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

package value

import (
	"go/token"
	"math"
	"strconv"

	"github.com/awslabs/ar-go-txeffects/analysis/diagnostics"
	"github.com/awslabs/ar-go-txeffects/analysis/ir"
)

// Op is an operator of the lattice.
type Op int

// Operators. I2S converts an integer to its decimal string.
const (
	Negate Op = iota + 1
	Not
	And
	Or
	Xor
	Add
	Sub
	Mul
	Div
	Rem
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
	I2S
)

var opText = map[Op]string{
	Negate: "-", Not: "!", And: "&&", Or: "||", Xor: "^", Add: "+", Sub: "-", Mul: "*", Div: "/", Rem: "%",
	Eq: "==", Ne: "!=", Lt: "<", Le: "<=", Gt: ">", Ge: ">=", I2S: "str",
}

func (op Op) String() string { return opText[op] }

// IsComparison returns true for the relational operators.
func (op Op) IsComparison() bool {
	return op >= Eq && op <= Ge
}

// Negated returns the comparison with the opposite truth value, e.g. Ge for Lt.
func (op Op) Negated() (Op, bool) {
	switch op {
	case Eq:
		return Ne, true
	case Ne:
		return Eq, true
	case Lt:
		return Ge, true
	case Le:
		return Gt, true
	case Gt:
		return Le, true
	case Ge:
		return Lt, true
	}
	return op, false
}

// FromBinary maps a source binary operator to a lattice operator.
func FromBinary(op ir.BinaryOp) (Op, bool) {
	switch op {
	case ir.Add:
		return Add, true
	case ir.Sub:
		return Sub, true
	case ir.Mul:
		return Mul, true
	case ir.Div:
		return Div, true
	case ir.Rem:
		return Rem, true
	case ir.And:
		return And, true
	case ir.Or:
		return Or, true
	case ir.Xor:
		return Xor, true
	case ir.Eq:
		return Eq, true
	case ir.Ne:
		return Ne, true
	case ir.Lt:
		return Lt, true
	case ir.Le:
		return Le, true
	case ir.Gt:
		return Gt, true
	case ir.Ge:
		return Ge, true
	}
	return 0, false
}

func position(src ir.Expr) token.Position {
	if src == nil {
		return token.Position{}
	}
	return src.Pos()
}

func report(sink diagnostics.Sink, c diagnostics.Category, src ir.Expr, format string, args ...any) {
	if sink != nil {
		sink.Report(c, position(src), format, args...)
	}
}

// ApplyUnary applies op to x. src is the expression being evaluated.
func ApplyUnary(sink diagnostics.Sink, op Op, x Value, src ir.Expr) Value {
	base := Base{Origin: src}
	if _, ok := x.(*Null); ok {
		if op == I2S {
			return &Constant{Base: base, Data: "null"}
		}
		report(sink, diagnostics.NullDereference, src, "%s applied to null would raise a null-dereference", op)
		return &Unknown{Base: base, Tag: "null"}
	}
	switch x := x.(type) {
	case *Constant:
		switch d := x.Data.(type) {
		case int64:
			switch op {
			case Negate:
				return &Constant{Base: base, Data: -d}
			case I2S:
				return &Constant{Base: base, Data: strconv.FormatInt(d, 10)}
			}
		case float64:
			switch op {
			case Negate:
				return &Constant{Base: base, Data: -d}
			case I2S:
				return &Constant{Base: base, Data: strconv.FormatFloat(d, 'f', -1, 64)}
			}
		case bool:
			if op == Not {
				return &Constant{Base: base, Data: !d}
			}
		case string:
			if op == I2S {
				return &Constant{Base: base, Data: d}
			}
		}
		report(sink, diagnostics.TypeMismatch, src, "%s is not defined on %s", op, x)
	case *ColumnStateExists:
		if op == Not {
			return &ColumnStateExists{Base: base, Rows: x.Rows, Reversed: !x.Reversed}
		}
	case *Unary:
		if op == Not && x.Op == Not {
			return x.Operand
		}
	case *Binary:
		if op == Not {
			if neg, ok := x.Op.Negated(); ok {
				return &Binary{Base: base, Op: neg, Left: x.Left, Right: x.Right}
			}
		}
	}
	return &Unary{Base: base, Op: op, Operand: x}
}

// Apply applies the binary operator op to l and r. src is the expression being evaluated.
//
// Equality tests against null are null checks: they fold when the other operand is a constant or null, and turn a
// column read into a row existence condition.
func Apply(sink diagnostics.Sink, op Op, l, r Value, src ir.Expr) Value {
	base := Base{Origin: src}
	_, lnull := l.(*Null)
	_, rnull := r.(*Null)
	if lnull || rnull {
		if op == Eq || op == Ne {
			return nullCheck(base, op, l, r, lnull, rnull)
		}
		report(sink, diagnostics.NullDereference, src, "%s applied to null would raise a null-dereference", op)
		return &Unknown{Base: base, Tag: "null"}
	}
	lc, lok := l.(*Constant)
	rc, rok := r.(*Constant)
	if lok && rok {
		if v, ok := fold(op, lc.Data, rc.Data); ok {
			return &Constant{Base: base, Data: v}
		}
		if !(op == Div || op == Rem) {
			report(sink, diagnostics.TypeMismatch, src, "cannot fold %s %s %s", lc, op, rc)
		}
	}
	return &Binary{Base: base, Op: op, Left: l, Right: r}
}

func nullCheck(base Base, op Op, l, r Value, lnull, rnull bool) Value {
	other := l
	if lnull {
		other = r
	}
	isNull := func(b bool) Value {
		if op == Ne {
			b = !b
		}
		return &Constant{Base: base, Data: b}
	}
	if lnull && rnull {
		return isNull(true)
	}
	switch o := other.(type) {
	case *Constant, *SQLStatement, *ResultSet:
		return isNull(false)
	case *ColumnState:
		return &ColumnStateExists{Base: base, Rows: o.Rows, Reversed: op == Eq}
	}
	return &Binary{Base: base, Op: op, Left: l, Right: r}
}

func fold(op Op, x, y any) (any, bool) {
	switch a := x.(type) {
	case int64:
		switch b := y.(type) {
		case int64:
			return foldInt(op, a, b)
		case float64:
			return foldFloat(op, float64(a), b)
		}
	case float64:
		switch b := y.(type) {
		case int64:
			return foldFloat(op, a, float64(b))
		case float64:
			return foldFloat(op, a, b)
		}
	case bool:
		if b, ok := y.(bool); ok {
			return foldBool(op, a, b)
		}
	case string:
		if b, ok := y.(string); ok {
			return foldString(op, a, b)
		}
	}
	return nil, false
}

func foldInt(op Op, a, b int64) (any, bool) {
	switch op {
	case Add:
		return a + b, true
	case Sub:
		return a - b, true
	case Mul:
		return a * b, true
	case Div:
		if b == 0 {
			return nil, false
		}
		return a / b, true
	case Rem:
		if b == 0 {
			return nil, false
		}
		return a % b, true
	case Xor:
		return a ^ b, true
	}
	return compare(op, a, b)
}

func foldFloat(op Op, a, b float64) (any, bool) {
	switch op {
	case Add:
		return a + b, true
	case Sub:
		return a - b, true
	case Mul:
		return a * b, true
	case Div:
		if b == 0 {
			return nil, false
		}
		return a / b, true
	case Rem:
		if b == 0 {
			return nil, false
		}
		return math.Mod(a, b), true
	}
	return compare(op, a, b)
}

func foldBool(op Op, a, b bool) (any, bool) {
	switch op {
	case And:
		return a && b, true
	case Or:
		return a || b, true
	case Xor, Ne:
		return a != b, true
	case Eq:
		return a == b, true
	}
	return nil, false
}

func foldString(op Op, a, b string) (any, bool) {
	switch op {
	case Add:
		return a + b, true
	case Eq:
		return a == b, true
	case Ne:
		return a != b, true
	}
	return nil, false
}

func compare[T int64 | float64](op Op, a, b T) (any, bool) {
	switch op {
	case Eq:
		return a == b, true
	case Ne:
		return a != b, true
	case Lt:
		return a < b, true
	case Le:
		return a <= b, true
	case Gt:
		return a > b, true
	case Ge:
		return a >= b, true
	}
	return nil, false
}

// RenderApprox guesses the text of a string built by concatenation. Operands that are not constants render as "?",
// and "?" is absorbed by the other side of a concatenation.
func RenderApprox(v Value) string {
	switch v := v.(type) {
	case *Constant:
		if s, ok := v.Data.(string); ok {
			return s
		}
		return v.String()
	case *Binary:
		if v.Op != Add {
			return "?"
		}
		l, r := RenderApprox(v.Left), RenderApprox(v.Right)
		if l == "?" {
			return r
		}
		if r == "?" {
			return l
		}
		return l + r
	}
	return "?"
}

// Truth is the truth value of a path condition.
type Truth int

// Truth values.
const (
	Maybe Truth = iota
	True
	False
)

// TruthOf classifies a condition.
func TruthOf(v Value) Truth {
	if c, ok := v.(*Constant); ok {
		if b, ok := c.Data.(bool); ok {
			if b {
				return True
			}
			return False
		}
	}
	return Maybe
}
