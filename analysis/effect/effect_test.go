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

package effect

import (
	"strings"
	"testing"

	"github.com/awslabs/ar-go-txeffects/analysis/ir"
	"github.com/awslabs/ar-go-txeffects/analysis/schema"
	"github.com/awslabs/ar-go-txeffects/analysis/value"
)

func TestEffectLifecycle(t *testing.T) {
	e := New(ir.Signature{Class: "Dao", Name: "pay"}, nil)
	cond := &value.Free{Name: "ok", Type: ir.TypeBool}
	e.AddCondition(value.Bool(true))
	e.AddCondition(cond)
	if len(e.Conditions) != 1 || e.Conditions[0] != value.Value(cond) {
		t.Errorf("constant true conditions are dropped, got %v", e.Conditions)
	}
	e.AddArg("ok", ir.TypeBool)
	e.AddArg("ok", ir.TypeBool)
	a1 := e.FreshArg("amount", ir.TypeDouble)
	a2 := e.FreshArg("amount", ir.TypeDouble)
	if a1.Name == a2.Name {
		t.Errorf("fresh arguments must be unique")
	}
	if len(e.Args) != 3 {
		t.Errorf("expected 3 arguments, got %v", e.Args)
	}

	bill := schema.NewTable("bill", &schema.Column{Name: "id"}, &schema.Column{Name: "amount", Type: schema.Real})
	e.AddAtom(&Atom{Kind: Update, Table: bill,
		Values:   []Assignment{{Column: "amount", Value: a1}},
		Locators: []Assignment{{Column: "id", Value: value.Int(5)}}})
	if v, ok := e.Atoms[0].Locator("ID"); !ok || v.(*value.Constant).Data != int64(5) {
		t.Errorf("Locator lookup should ignore case")
	}
	if !strings.HasPrefix(e.Atoms[0].String(), "Update(bill, {amount: amount$1}") {
		t.Errorf("unexpected atom rendering %s", e.Atoms[0])
	}

	next := e.Split()
	if !e.Committed || len(e.Next) != 1 || e.Next[0] != next {
		t.Fatalf("Split should chain a successor")
	}
	if len(next.Conditions) != 1 || len(next.Atoms) != 0 {
		t.Errorf("successor keeps the path condition and starts without writes")
	}
	if a3 := next.FreshArg("amount", ir.TypeDouble); a3.Name == a1.Name || a3.Name == a2.Name {
		t.Errorf("successors share the fresh counter, got %s", a3.Name)
	}
	if !e.HasWrites() || next.HasWrites() {
		t.Errorf("HasWrites mismatch")
	}

	e.Freeze()
	if !next.Frozen() {
		t.Errorf("Freeze must reach successors")
	}
	defer func() {
		if recover() == nil {
			t.Errorf("mutating a frozen effect should panic")
		}
	}()
	e.AddCondition(cond)
}
