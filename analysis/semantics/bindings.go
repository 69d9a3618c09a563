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

package semantics

import (
	"fmt"

	"github.com/awslabs/ar-go-txeffects/analysis/config"
	"github.com/awslabs/ar-go-txeffects/analysis/diagnostics"
	"github.com/awslabs/ar-go-txeffects/analysis/effect"
	"github.com/awslabs/ar-go-txeffects/analysis/interp"
	"github.com/awslabs/ar-go-txeffects/analysis/ir"
	"github.com/awslabs/ar-go-txeffects/analysis/schema"
	"github.com/awslabs/ar-go-txeffects/analysis/sqltemplate"
	"github.com/awslabs/ar-go-txeffects/analysis/value"
)

// binding returns the handler of an application method wrapping a database access.
func binding(b config.Binding) interp.Handler {
	switch b.Kind {
	case config.ExecSQL:
		return func(in *interp.Interpreter, _ *ir.Call, _ value.Value, args []value.Value) (value.Value, error) {
			if err := execute(in, argAt(args, b.Arg)); err != nil {
				return nil, err
			}
			// the update is assumed to succeed
			return value.Bool(true), nil
		}
	case config.QuerySQL:
		return func(in *interp.Interpreter, call *ir.Call, _ value.Value, args []value.Value) (value.Value, error) {
			rs, err := query(in, argAt(args, b.Arg))
			if err != nil {
				return nil, err
			}
			rs.Origin = call
			return rs, nil
		}
	case config.InsertRow:
		return func(in *interp.Interpreter, call *ir.Call, _ value.Value, args []value.Value) (value.Value, error) {
			t, err := tableArg(in, argAt(args, b.Arg))
			if err != nil {
				return nil, err
			}
			atom := &effect.Atom{Kind: effect.Insert, Table: t}
			for _, c := range t.Columns {
				atom.Values = append(atom.Values,
					effect.Assignment{Column: c.Name, Value: in.FreshArg(call.Method.Name, c.Type.IRType())})
			}
			in.Effect().AddAtom(atom)
			return value.Bool(true), nil
		}
	case config.DeleteRow:
		return func(in *interp.Interpreter, _ *ir.Call, _ value.Value, args []value.Value) (value.Value, error) {
			t, err := tableArg(in, argAt(args, b.Arg))
			if err != nil {
				return nil, err
			}
			name, ok := constString(argAt(args, b.Arg+1))
			c := t.Column(name)
			if !ok || c == nil {
				in.Report(diagnostics.SQLParse, "cannot resolve the column of the deleted rows of %s", t.Name)
				return nil, fmt.Errorf("delete from %s: %w", t.Name, sqltemplate.ErrUnknownColumn)
			}
			c.MarkKey()
			in.Effect().AddAtom(&effect.Atom{Kind: effect.Delete, Table: t,
				Locators: []effect.Assignment{{Column: c.Name, Value: argAt(args, b.Arg+2)}}})
			return nil, nil
		}
	case config.RowGet:
		return rowGet(b.Arg)
	}
	return func(in *interp.Interpreter, call *ir.Call, _ value.Value, _ []value.Value) (value.Value, error) {
		in.Report(diagnostics.Unsupported, "binding %s of %s", b.Kind, call.Method)
		return nil, nil
	}
}

// rowGet models list accessors over query results: on rows it returns the row at an index, a row existence
// condition; on a row it reads a column, by index from 0, asserting that the row exists when the query is
// constrained by locators. Integer columns are read as strings.
func rowGet(arg int) interp.Handler {
	return func(in *interp.Interpreter, call *ir.Call, recv value.Value, args []value.Value) (value.Value, error) {
		switch r := recv.(type) {
		case *value.ResultSet:
			return &value.ColumnStateExists{Base: value.Base{Origin: call}, Rows: r}, nil
		case *value.ColumnStateExists:
			if len(r.Rows.Locators) > 0 {
				in.Effect().AddCondition(r)
			}
			v, ok := column(in, r.Rows, argAt(args, arg), 0)
			if ok {
				v = stringOf(in, v)
			}
			return v, nil
		}
		return nil, nil
	}
}

func tableArg(in *interp.Interpreter, v value.Value) (*schema.Table, error) {
	name, _ := constString(v)
	t := in.Schema().Table(name)
	if t == nil {
		in.Report(diagnostics.SQLParse, "cannot resolve table %s", v)
		return nil, fmt.Errorf("table %s: %w", v, sqltemplate.ErrUnknownTable)
	}
	return t, nil
}
