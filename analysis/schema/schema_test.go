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

package schema

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestConvertType(t *testing.T) {
	tests := []struct {
		raw  string
		want Type
		ok   bool
	}{
		{"varchar(45)", String, true},
		{"CHAR(2)", String, true},
		{"int(11)", Int, true},
		{"tinyint(1)", Int, true},
		{"double", Real, true},
		{"float", Real, true},
		{"decimal(10,2)", Real, true},
		{"date", Datetime, true},
		{"datetime", Datetime, true},
		{"time", Datetime, true},
		{"blob", Int, false},
	}
	for _, tt := range tests {
		got, ok := ConvertType(tt.raw)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ConvertType(%q) = %v, %v; want %v, %v", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNormalizeDDL(t *testing.T) {
	out := NormalizeDDL("CREATE TABLE t (\n  id int NOT NULL AUTO_INCREMENT,\n  PRIMARY KEY (id),\n  KEY k (id)\n) ENGINE=InnoDB DEFAULT CHARSET=utf8;")
	for _, s := range []string{"AUTO_INCREMENT", "ENGINE", "CHARSET", "KEY k"} {
		if strings.Contains(out, s) {
			t.Errorf("normalized DDL still contains %q:\n%s", s, out)
		}
	}
	if !strings.Contains(out, "PRIMARY KEY (id)\n);") {
		t.Errorf("unexpected table end:\n%s", out)
	}
}

func TestLoadFiles(t *testing.T) {
	s, err := LoadFiles(filepath.Join("testdata", "billing.sql"))
	if err != nil {
		t.Fatalf("failed to load schema: %v", err)
	}
	tables := s.Tables()
	if len(tables) != 2 || tables[0].Name != "bill" || tables[1].Name != "counter" {
		t.Fatalf("unexpected tables %v", tables)
	}
	bill := s.Table("BILL")
	if bill == nil {
		t.Fatalf("table lookup should ignore case")
	}
	if len(bill.Columns) != 5 {
		t.Fatalf("expected 5 columns in bill, got %d", len(bill.Columns))
	}
	expect := map[string]Type{"billID": String, "patientID": String, "amount": Real, "issued": Datetime, "status": String}
	for name, typ := range expect {
		c := bill.Column(name)
		if c == nil {
			t.Errorf("missing column %s", name)
			continue
		}
		if c.Type != typ {
			t.Errorf("column %s has type %v, want %v", name, c.Type, typ)
		}
		if c.Table != bill {
			t.Errorf("column %s is not attached to its table", name)
		}
	}
	if !bill.Column("billid").IsKey() || bill.Column("amount").IsKey() {
		t.Errorf("only billID is a primary key")
	}
	if keys := s.Table("counter").Keys(); len(keys) != 1 || keys[0].Name != "id" || keys[0].Type != Int {
		t.Errorf("unexpected keys of counter: %v", keys)
	}
}

func TestLazyPrimaryKey(t *testing.T) {
	tbl := NewTable("visit", &Column{Name: "patient", Type: String}, &Column{Name: "date", Type: Datetime})
	s := New(tbl)
	if len(tbl.Keys()) != 0 {
		t.Fatalf("no key declared")
	}
	tbl.SetPrimaryKey("Patient", "unknown")
	if keys := s.Table("visit").Keys(); len(keys) != 1 || keys[0].Name != "patient" {
		t.Errorf("SetPrimaryKey should mark patient, got %v", keys)
	}
}

func TestAddReplaces(t *testing.T) {
	s := New(NewTable("a"), NewTable("b"))
	repl := NewTable("A")
	s.Add(repl)
	if len(s.Tables()) != 2 || s.Tables()[0] != repl || s.Table("a") != repl {
		t.Errorf("Add should replace the table in place")
	}
}
