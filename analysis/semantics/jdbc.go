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
	"github.com/awslabs/ar-go-txeffects/analysis/diagnostics"
	"github.com/awslabs/ar-go-txeffects/analysis/interp"
	"github.com/awslabs/ar-go-txeffects/analysis/ir"
	"github.com/awslabs/ar-go-txeffects/analysis/value"
)

const (
	jdbcConnection = "java.sql.Connection"
	jdbcStatement  = "java.sql.Statement"
	jdbcPrepared   = "java.sql.PreparedStatement"
	jdbcResultSet  = "java.sql.ResultSet"
)

var jdbcSetters = []string{"setInt", "setLong", "setShort", "setString", "setDouble", "setFloat", "setBigDecimal",
	"setBoolean", "setDate", "setTime", "setTimestamp", "setObject", "setNull"}

var jdbcGetters = []string{"getInt", "getLong", "getShort", "getString", "getDouble", "getFloat", "getBigDecimal",
	"getBoolean", "getDate", "getTime", "getTimestamp", "getObject"}

func registerJDBC(reg *interp.Registry) {
	reg.Register(jdbcConnection+".prepareStatement", prepareStatement)
	reg.Register(jdbcConnection+".commit", commit)
	reg.Register(jdbcConnection+".rollback", rollback)
	for _, s := range jdbcSetters {
		reg.Register(jdbcPrepared+"."+s, setParameter)
	}
	for _, recv := range []string{jdbcStatement, jdbcPrepared} {
		reg.Register(recv+".executeUpdate", executeUpdate)
		reg.Register(recv+".execute", executeUpdate)
		reg.Register(recv+".executeQuery", executeQuery)
	}
	reg.Register(jdbcResultSet+".next", next)
	for _, g := range jdbcGetters {
		reg.Register(jdbcResultSet+"."+g, get)
	}
}

// Connection.prepareStatement(sql)
func prepareStatement(in *interp.Interpreter, call *ir.Call, _ value.Value, args []value.Value) (value.Value, error) {
	return &value.SQLStatement{Base: value.Base{Origin: call}, Text: argAt(args, 0), Params: map[int]value.Value{}},
		nil
}

// PreparedStatement.setX(index, v) binds the parameter in the variable holding the statement.
func setParameter(in *interp.Interpreter, call *ir.Call, recv value.Value, args []value.Value) (value.Value, error) {
	st, ok := recv.(*value.SQLStatement)
	if !ok {
		in.Report(diagnostics.Unresolvable, "%s on an unknown statement", call.Method.Name)
		return nil, nil
	}
	i, ok := constInt(argAt(args, 0))
	if !ok {
		in.Report(diagnostics.Unsupported, "%s with a non-constant index", call.Method.Name)
		return nil, nil
	}
	v := argAt(args, 1)
	if call.Method.Name == "setNull" {
		v = &value.Null{}
	}
	if name := ir.TargetName(call.Receiver); name != "" {
		in.Assign(name, st.Bind(int(i), v))
	} else {
		in.Report(diagnostics.Unsupported, "%s on a statement not held by a variable", call.Method.Name)
	}
	return nil, nil
}

// executeUpdate() on a prepared statement, executeUpdate(sql) on a statement. The update count is unknown.
func executeUpdate(in *interp.Interpreter, call *ir.Call, recv value.Value, args []value.Value) (value.Value, error) {
	sql := recv
	if len(args) > 0 {
		sql = args[0]
	}
	if err := execute(in, sql); err != nil {
		return nil, err
	}
	return &value.Unknown{Base: value.Base{Origin: call}, Tag: "updated"}, nil
}

func executeQuery(in *interp.Interpreter, call *ir.Call, recv value.Value, args []value.Value) (value.Value, error) {
	sql := recv
	if len(args) > 0 {
		sql = args[0]
	}
	rs, err := query(in, sql)
	if err != nil {
		return nil, err
	}
	rs.Origin = call
	return rs, nil
}

// ResultSet.next() is true when the query returned a row.
func next(in *interp.Interpreter, call *ir.Call, recv value.Value, _ []value.Value) (value.Value, error) {
	rs, ok := recv.(*value.ResultSet)
	if !ok {
		return nil, nil
	}
	return &value.ColumnStateExists{Base: value.Base{Origin: call}, Rows: rs}, nil
}

// ResultSet.getX(column) with a column label or an index starting at 1.
func get(in *interp.Interpreter, call *ir.Call, recv value.Value, args []value.Value) (value.Value, error) {
	rs, ok := recv.(*value.ResultSet)
	if !ok {
		return nil, nil
	}
	v, ok := column(in, rs, argAt(args, 0), 1)
	if ok && call.Method.Name == "getString" {
		v = stringOf(in, v)
	}
	return v, nil
}
