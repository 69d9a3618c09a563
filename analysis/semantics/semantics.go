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

// Package semantics registers the handlers of library methods whose effect on the database is known: JDBC,
// database/sql, string formatting, and application wrappers declared in the configuration.
package semantics

import (
	"fmt"
	"strings"

	"github.com/awslabs/ar-go-txeffects/analysis/config"
	"github.com/awslabs/ar-go-txeffects/analysis/diagnostics"
	"github.com/awslabs/ar-go-txeffects/analysis/interp"
	"github.com/awslabs/ar-go-txeffects/analysis/ir"
	"github.com/awslabs/ar-go-txeffects/analysis/sqltemplate"
	"github.com/awslabs/ar-go-txeffects/analysis/value"
)

// Names of the bundles of known semantics.
const (
	JDBC        = "jdbc"
	DatabaseSQL = "database-sql"
	Strings     = "strings"
)

// Register binds the bundles selected by c, its commit and rollback methods, and its application bindings.
// A nil config registers every bundle.
func Register(reg *interp.Registry, c *config.Config) {
	if c == nil {
		c = config.NewDefault()
	}
	if c.HasSemantics(JDBC) {
		registerJDBC(reg)
	}
	if c.HasSemantics(DatabaseSQL) {
		registerDatabaseSQL(reg)
	}
	if c.HasSemantics(Strings) {
		registerStrings(reg)
	}
	for _, name := range c.BasicCommits {
		reg.Register(name, commit)
	}
	for _, name := range c.BasicRollbacks {
		reg.Register(name, rollback)
	}
	for _, b := range c.Bindings {
		reg.Register(b.Method, binding(b))
	}
}

// Commits returns the methods registered by the selected bundles that commit a transaction.
func Commits(c *config.Config) []string {
	var res []string
	if c == nil || c.HasSemantics(JDBC) {
		res = append(res, jdbcConnection+".commit")
	}
	if c == nil || c.HasSemantics(DatabaseSQL) {
		res = append(res, sqlTx+".Commit")
	}
	if c != nil {
		res = append(res, c.BasicCommits...)
	}
	return res
}

// Writes returns the methods registered by the selected bundles and bindings that write to the database. They seed
// the effect marking of the call graph.
func Writes(c *config.Config) []string {
	var res []string
	if c == nil || c.HasSemantics(JDBC) {
		res = append(res, jdbcStatement+".executeUpdate", jdbcPrepared+".executeUpdate",
			jdbcStatement+".execute", jdbcPrepared+".execute")
	}
	if c == nil || c.HasSemantics(DatabaseSQL) {
		for _, recv := range []string{sqlDB, sqlTx, sqlConn} {
			res = append(res, recv+".Exec", recv+".ExecContext")
		}
		res = append(res, sqlStmt+".Exec", sqlStmt+".ExecContext")
	}
	if c != nil {
		for _, b := range c.Bindings {
			switch b.Kind {
			case config.ExecSQL, config.InsertRow, config.DeleteRow:
				res = append(res, b.Method)
			}
		}
	}
	return res
}

func commit(in *interp.Interpreter, _ *ir.Call, _ value.Value, _ []value.Value) (value.Value, error) {
	in.Commit()
	return nil, nil
}

func rollback(in *interp.Interpreter, _ *ir.Call, _ value.Value, _ []value.Value) (value.Value, error) {
	in.Rollback()
	return nil, nil
}

// execute atomizes the SQL statement sql and adds the atom to the current effect.
func execute(in *interp.Interpreter, sql value.Value) error {
	t := sqltemplate.Reconstruct(sql)
	atom, err := in.Atomizer().Atomize(t)
	if err != nil {
		return fail(in, t, err)
	}
	in.Effect().AddAtom(atom)
	return nil
}

// query evaluates the SQL query sql.
func query(in *interp.Interpreter, sql value.Value) (*value.ResultSet, error) {
	t := sqltemplate.Reconstruct(sql)
	rs, err := in.Atomizer().Query(t)
	if err != nil {
		return nil, fail(in, t, err)
	}
	return rs, nil
}

func fail(in *interp.Interpreter, t sqltemplate.Template, err error) error {
	in.Report(diagnostics.SQLParse, "cannot interpret %q: %v", t.Text, err)
	return fmt.Errorf("sql statement %q: %w", t.Text, err)
}

// statement returns the statement text with the arguments bound to its positional parameters, from 1.
func statement(text value.Value, args []value.Value) *value.SQLStatement {
	st := &value.SQLStatement{Text: text, Params: map[int]value.Value{}}
	for i, a := range args {
		st.Params[i+1] = a
	}
	return st
}

func constInt(v value.Value) (int64, bool) {
	if c, ok := v.(*value.Constant); ok {
		i, ok := c.Data.(int64)
		return i, ok
	}
	return 0, false
}

func constString(v value.Value) (string, bool) {
	if c, ok := v.(*value.Constant); ok {
		s, ok := c.Data.(string)
		return s, ok
	}
	return "", false
}

func argAt(args []value.Value, i int) value.Value {
	if i < 0 || i >= len(args) {
		return &value.Unknown{Tag: "missing"}
	}
	return args[i]
}

// column returns the value read from the column of rs at col, a column name or a position starting at base.
func column(in *interp.Interpreter, rs *value.ResultSet, col value.Value, base int64) (value.Value, bool) {
	var c value.Column
	found := false
	if name, ok := constString(col); ok {
		c, found = rs.Column(name)
	} else if i, ok := constInt(col); ok {
		i -= base
		if i >= 0 && int(i) < len(rs.Columns) && (rs.Columns[i].Name != "*" || rs.Columns[i].Aggregate != value.NoAggregate) {
			c, found = rs.Columns[i], true
		}
	}
	if !found {
		in.Report(diagnostics.Unresolvable, "cannot resolve column %s of %s", col, rs)
		return &value.Unknown{Tag: "column"}, false
	}
	table := rs.Table
	if c.Table != "" {
		table = c.Table
	}
	return &value.ColumnState{Rows: rs, Column: c.Name, Aggregate: c.Aggregate, Locators: locatorsOf(rs, table)}, true
}

// locatorsOf returns the locators of rs constraining table. Joined queries only keep locators when the table is the
// main one.
func locatorsOf(rs *value.ResultSet, table string) []value.Binding {
	if rs.Joined && !strings.EqualFold(table, rs.Table) {
		return nil
	}
	return rs.Locators
}

// stringOf converts an integer column read to a string, as the getters returning strings do.
func stringOf(in *interp.Interpreter, v value.Value) value.Value {
	cs, ok := v.(*value.ColumnState)
	if !ok {
		return v
	}
	if t := in.Schema().Table(cs.Rows.Table); t != nil {
		if c := t.Column(cs.Column); c != nil && c.Type.IRType() == ir.TypeInt {
			return value.ApplyUnary(in.Sink(), value.I2S, v, nil)
		}
	}
	return v
}
