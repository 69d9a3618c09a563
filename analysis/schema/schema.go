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

// Package schema represents the relational schema written by the analyzed program. Tables are loaded from DDL
// scripts; primary keys may be inferred lazily from the locators used by UPDATE and DELETE statements.
package schema

import (
	"strings"
	"sync/atomic"

	"github.com/awslabs/ar-go-txeffects/analysis/ir"
)

// Type is the type of a column.
type Type int

// Column types.
const (
	String Type = iota
	Int
	Real
	Datetime
)

func (t Type) String() string {
	switch t {
	case Int:
		return "Int"
	case Real:
		return "Real"
	case Datetime:
		return "Datetime"
	}
	return "String"
}

// IRType returns the type of program values stored in a column of type t.
func (t Type) IRType() ir.Type {
	switch t {
	case Int:
		return ir.TypeInt
	case Real:
		return ir.TypeDouble
	case Datetime:
		return "datetime"
	}
	return ir.TypeString
}

// ConvertType maps a declared SQL type to a column type. The second result is false when the declared type is not
// recognized, in which case Int is returned.
func ConvertType(raw string) (Type, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	hasPrefix := func(ps ...string) bool {
		for _, p := range ps {
			if strings.HasPrefix(raw, p) {
				return true
			}
		}
		return false
	}
	switch {
	case hasPrefix("varchar", "char", "text", "tinytext", "mediumtext", "longtext", "nvarchar", "enum", "clob"):
		return String, true
	case hasPrefix("int", "tinyint", "smallint", "mediumint", "bigint", "integer", "bool", "serial"):
		return Int, true
	case hasPrefix("double", "float", "real", "decimal", "numeric"):
		return Real, true
	case hasPrefix("datetime", "date", "time", "timestamp", "year"):
		return Datetime, true
	}
	return Int, false
}

// Column is a column of a table.
type Column struct {
	Name    string
	Type    Type
	RawType string
	Table   *Table

	key atomic.Bool
}

// IsKey returns true if the column is (or has been inferred to be) part of the primary key.
func (c *Column) IsKey() bool { return c.key.Load() }

// MarkKey marks the column as part of the primary key.
func (c *Column) MarkKey() { c.key.Store(true) }

// Table is a table of the schema. Columns are in declaration order.
type Table struct {
	Name    string
	Columns []*Column
}

// NewTable returns a table with columns of the given names and types.
func NewTable(name string, cols ...*Column) *Table {
	t := &Table{Name: name}
	for _, c := range cols {
		t.Add(c)
	}
	return t
}

// Add appends a column to the table.
func (t *Table) Add(c *Column) {
	c.Table = t
	t.Columns = append(t.Columns, c)
}

// Column returns the column with the given name, ignoring case, or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// SetPrimaryKey marks the named columns as primary key columns. Unknown names are ignored.
func (t *Table) SetPrimaryKey(names ...string) {
	for _, n := range names {
		if c := t.Column(n); c != nil {
			c.MarkKey()
		}
	}
}

// Keys returns the primary key columns of the table.
func (t *Table) Keys() []*Column {
	var res []*Column
	for _, c := range t.Columns {
		if c.IsKey() {
			res = append(res, c)
		}
	}
	return res
}

// Schema is a set of tables.
type Schema struct {
	tables []*Table
	byName map[string]*Table
}

// New returns a schema with the given tables.
func New(tables ...*Table) *Schema {
	s := &Schema{byName: map[string]*Table{}}
	for _, t := range tables {
		s.Add(t)
	}
	return s
}

// Add adds or replaces a table.
func (s *Schema) Add(t *Table) {
	if s.byName == nil {
		s.byName = map[string]*Table{}
	}
	key := strings.ToLower(t.Name)
	if old, ok := s.byName[key]; ok {
		for i, x := range s.tables {
			if x == old {
				s.tables[i] = t
			}
		}
	} else {
		s.tables = append(s.tables, t)
	}
	s.byName[key] = t
}

// Table returns the table with the given name, ignoring case, or nil.
func (s *Schema) Table(name string) *Table {
	if s == nil {
		return nil
	}
	return s.byName[strings.ToLower(name)]
}

// Tables returns the tables in the order they were added.
func (s *Schema) Tables() []*Table {
	if s == nil {
		return nil
	}
	return s.tables
}
