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
	"testing"

	"github.com/awslabs/ar-go-txeffects/analysis/diagnostics"
)

func TestApplyFolding(t *testing.T) {
	tests := []struct {
		name string
		op   Op
		l, r Value
		want any
	}{
		{"int add", Add, Int(2), Int(3), int64(5)},
		{"int rem", Rem, Int(7), Int(4), int64(3)},
		{"mixed mul", Mul, Int(2), Float(1.5), 3.0},
		{"int lt", Lt, Int(1), Int(2), true},
		{"float ge", Ge, Float(1), Int(2), false},
		{"bool and", And, Bool(true), Bool(false), false},
		{"bool xor", Xor, Bool(true), Bool(false), true},
		{"string concat", Add, Str("a"), Str("b"), "ab"},
		{"string eq", Eq, Str("a"), Str("a"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := diagnostics.NewCollector(nil)
			got, ok := Apply(c, tt.op, tt.l, tt.r, nil).(*Constant)
			if !ok {
				t.Fatalf("expected a constant, got %v", Apply(c, tt.op, tt.l, tt.r, nil))
			}
			if got.Data != tt.want {
				t.Errorf("got %v (%T), want %v (%T)", got.Data, got.Data, tt.want, tt.want)
			}
			if len(c.All()) != 0 {
				t.Errorf("unexpected diagnostics %v", c.All())
			}
		})
	}
}

func TestApplySymbolic(t *testing.T) {
	c := diagnostics.NewCollector(nil)
	unknown := &Unknown{}
	v := Apply(c, Add, Int(2), unknown, nil)
	b, ok := v.(*Binary)
	if !ok {
		t.Fatalf("2 + unknown should be symbolic, got %v", v)
	}
	if b.Op != Add || b.Left.(*Constant).Data != int64(2) || b.Right != Value(unknown) {
		t.Errorf("unexpected node %v", b)
	}
}

func TestApplyMismatch(t *testing.T) {
	c := diagnostics.NewCollector(nil)
	// concatenation is only folded between strings
	v := Apply(c, Add, Str("id="), Int(5), nil)
	if _, ok := v.(*Binary); !ok {
		t.Fatalf("expected a symbolic node, got %v", v)
	}
	if c.Count(diagnostics.TypeMismatch) != 1 {
		t.Errorf("expected one type mismatch diagnostic, got %v", c.All())
	}
	if _, ok := Apply(c, Div, Int(1), Int(0), nil).(*Binary); !ok {
		t.Errorf("division by zero should stay symbolic")
	}
}

func TestNull(t *testing.T) {
	c := diagnostics.NewCollector(nil)
	if _, ok := ApplyUnary(c, Negate, &Null{}, nil).(*Unknown); !ok {
		t.Errorf("negate(null) should be unknown")
	}
	if n := c.Count(diagnostics.NullDereference); n != 1 {
		t.Errorf("expected one null-dereference diagnostic, got %d", n)
	}
	if _, ok := Apply(c, Add, Int(1), &Null{}, nil).(*Unknown); !ok {
		t.Errorf("1 + null should be unknown")
	}
	if v := Apply(c, Eq, Str("x"), &Null{}, nil); TruthOf(v) != False {
		t.Errorf("\"x\" == null should be false, got %v", v)
	}
	if v := Apply(c, Ne, &Null{}, &Null{}, nil); TruthOf(v) != False {
		t.Errorf("null != null should be false, got %v", v)
	}
	if n := c.Count(diagnostics.NullDereference); n != 2 {
		t.Errorf("null checks are not dereferences, got %d diagnostics", n)
	}
}

func TestColumnStateExistence(t *testing.T) {
	rows := &ResultSet{Query: "SELECT name FROM users WHERE id = 1", Table: "users",
		Columns: []Column{{Name: "name"}}}
	read := &ColumnState{Rows: rows, Column: "name"}
	v := Apply(nil, Eq, read, &Null{}, nil)
	e, ok := v.(*ColumnStateExists)
	if !ok || !e.Reversed {
		t.Fatalf("name == null should be !exists, got %v", v)
	}
	back := ApplyUnary(nil, Not, e, nil).(*ColumnStateExists)
	if back.Reversed {
		t.Errorf("negating !exists should give exists")
	}
}

func TestNotComparison(t *testing.T) {
	x := &Free{Name: "x"}
	lt := Apply(nil, Lt, x, Int(3), nil)
	v := ApplyUnary(nil, Not, lt, nil)
	b, ok := v.(*Binary)
	if !ok || b.Op != Ge {
		t.Errorf("!(x < 3) should be x >= 3, got %v", v)
	}
	nn := ApplyUnary(nil, Not, ApplyUnary(nil, Not, x, nil), nil)
	if nn != Value(x) {
		t.Errorf("double negation should cancel, got %v", nn)
	}
}

func TestI2S(t *testing.T) {
	if v := ApplyUnary(nil, I2S, Int(42), nil).(*Constant); v.Data != "42" {
		t.Errorf("I2S(42) = %v", v.Data)
	}
	if _, ok := ApplyUnary(nil, I2S, &Free{Name: "n"}, nil).(*Unary); !ok {
		t.Errorf("I2S of a free variable should be symbolic")
	}
}

func TestRenderApprox(t *testing.T) {
	id := &Free{Name: "id"}
	v := Apply(nil, Add, Apply(nil, Add, Str("SELECT * FROM t WHERE id = "), id, nil), Str(" LIMIT 1"), nil)
	if got := RenderApprox(v); got != "SELECT * FROM t WHERE id =  LIMIT 1" {
		t.Errorf("RenderApprox = %q", got)
	}
	if got := RenderApprox(id); got != "?" {
		t.Errorf("free variables render as ?, got %q", got)
	}
}

func TestSQLStatementBind(t *testing.T) {
	s := &SQLStatement{Text: Str("UPDATE t SET a = ? WHERE id = ?")}
	s1 := s.Bind(1, Int(3))
	s2 := s1.Bind(2, Int(4))
	if len(s.Params) != 0 || len(s1.Params) != 1 || len(s2.Params) != 2 {
		t.Errorf("Bind must not modify the receiver")
	}
}
