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
	"github.com/awslabs/ar-go-txeffects/analysis/interp"
	"github.com/awslabs/ar-go-txeffects/analysis/ir"
	"github.com/awslabs/ar-go-txeffects/analysis/value"
)

// Classes of the database/sql types, as named by the Go front end.
const (
	sqlDB   = "database/sql.DB"
	sqlTx   = "database/sql.Tx"
	sqlConn = "database/sql.Conn"
	sqlStmt = "database/sql.Stmt"
	sqlRows = "database/sql.Rows"
	sqlRow  = "database/sql.Row"
)

func registerDatabaseSQL(reg *interp.Registry) {
	for _, recv := range []string{sqlDB, sqlTx, sqlConn} {
		reg.Register(recv+".Exec", sqlExec(0))
		reg.Register(recv+".ExecContext", sqlExec(1))
		reg.Register(recv+".Query", sqlQuery(0))
		reg.Register(recv+".QueryContext", sqlQuery(1))
		reg.Register(recv+".QueryRow", sqlQuery(0))
		reg.Register(recv+".QueryRowContext", sqlQuery(1))
		reg.Register(recv+".Prepare", sqlPrepare(0))
		reg.Register(recv+".PrepareContext", sqlPrepare(1))
	}
	reg.Register(sqlStmt+".Exec", stmtExec(0))
	reg.Register(sqlStmt+".ExecContext", stmtExec(1))
	reg.Register(sqlStmt+".Query", stmtQuery(0))
	reg.Register(sqlStmt+".QueryContext", stmtQuery(1))
	reg.Register(sqlStmt+".QueryRow", stmtQuery(0))
	reg.Register(sqlStmt+".QueryRowContext", stmtQuery(1))
	reg.Register(sqlRows+".Next", next)
	reg.Register(sqlRows+".Scan", scan)
	reg.Register(sqlRow+".Scan", scan)
	reg.Register(sqlTx+".Commit", commit)
	reg.Register(sqlTx+".Rollback", rollback)
}

// Exec(query, args...) where query is argument i; the following arguments bind the ? parameters.
func sqlExec(i int) interp.Handler {
	return func(in *interp.Interpreter, call *ir.Call, _ value.Value, args []value.Value) (value.Value, error) {
		if err := execute(in, statement(argAt(args, i), tail(args, i+1))); err != nil {
			return nil, err
		}
		return &value.Unknown{Base: value.Base{Origin: call}, Tag: "result"}, nil
	}
}

func sqlQuery(i int) interp.Handler {
	return func(in *interp.Interpreter, call *ir.Call, _ value.Value, args []value.Value) (value.Value, error) {
		rs, err := query(in, statement(argAt(args, i), tail(args, i+1)))
		if err != nil {
			return nil, err
		}
		rs.Origin = call
		return rs, nil
	}
}

func sqlPrepare(i int) interp.Handler {
	return func(in *interp.Interpreter, call *ir.Call, _ value.Value, args []value.Value) (value.Value, error) {
		return &value.SQLStatement{Base: value.Base{Origin: call}, Text: argAt(args, i), Params: map[int]value.Value{}},
			nil
	}
}

// Stmt.Exec(args...) binds the arguments to a copy of the prepared statement.
func stmtExec(i int) interp.Handler {
	return func(in *interp.Interpreter, call *ir.Call, recv value.Value, args []value.Value) (value.Value, error) {
		st, ok := recv.(*value.SQLStatement)
		if !ok {
			return nil, nil
		}
		if err := execute(in, bindAll(st, tail(args, i))); err != nil {
			return nil, err
		}
		return &value.Unknown{Base: value.Base{Origin: call}, Tag: "result"}, nil
	}
}

func stmtQuery(i int) interp.Handler {
	return func(in *interp.Interpreter, call *ir.Call, recv value.Value, args []value.Value) (value.Value, error) {
		st, ok := recv.(*value.SQLStatement)
		if !ok {
			return nil, nil
		}
		rs, err := query(in, bindAll(st, tail(args, i)))
		if err != nil {
			return nil, err
		}
		rs.Origin = call
		return rs, nil
	}
}

// Scan(&a, &b, ...) assigns the projected columns, in order, to the variables whose address is passed.
func scan(in *interp.Interpreter, call *ir.Call, recv value.Value, _ []value.Value) (value.Value, error) {
	rs, ok := recv.(*value.ResultSet)
	if !ok {
		return nil, nil
	}
	for i, a := range call.Args {
		u, ok := a.(*ir.Unary)
		if !ok || u.Op != ir.AddrOf || ir.TargetName(u.X) == "" {
			continue
		}
		name := ir.TargetName(u.X)
		v, _ := column(in, rs, value.Int(int64(i)), 0)
		if u.X.Type().IsString() {
			v = stringOf(in, v)
		}
		in.Assign(name, v)
	}
	return &value.Unknown{Base: value.Base{Origin: call}, Tag: "error"}, nil
}

func bindAll(st *value.SQLStatement, args []value.Value) *value.SQLStatement {
	for i, a := range args {
		st = st.Bind(i+1, a)
	}
	return st
}

func tail(args []value.Value, i int) []value.Value {
	if i >= len(args) {
		return nil
	}
	return args[i:]
}
