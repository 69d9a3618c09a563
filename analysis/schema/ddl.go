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
	"fmt"
	"os"
	"regexp"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// The DDL is executed by SQLite, so MySQL-only syntax is rewritten or dropped first.
var mysqlRewrites = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?s)/\*!.*?\*/\s*;?`), ""},
	{regexp.MustCompile(`(?im)^\s*(?:USE|SET|LOCK\s+TABLES|UNLOCK\s+TABLES|CREATE\s+DATABASE|DROP\s+DATABASE)\b[^;]*;`), ""},
	{regexp.MustCompile(`(?i)\s+COMMENT\s+'(?:[^']|'')*'`), ""},
	{regexp.MustCompile(`(?i)\s+COMMENT\s*=\s*'(?:[^']|'')*'`), ""},
	{regexp.MustCompile(`(?i)\bAUTO_INCREMENT\s*=\s*\d+`), ""},
	{regexp.MustCompile(`(?i)\bAUTO_INCREMENT\b`), ""},
	{regexp.MustCompile(`(?i)\s+ON\s+UPDATE\s+CURRENT_TIMESTAMP(?:\(\))?`), ""},
	{regexp.MustCompile(`(?i)\s+(?:CHARACTER\s+SET|CHARSET)\s*=?\s*\w+`), ""},
	{regexp.MustCompile(`(?i)\s+COLLATE\s*=?\s*\w+`), ""},
	{regexp.MustCompile(`(?i)\benum\s*\([^)]*\)`), "varchar(255)"},
	{regexp.MustCompile(`(?im)^\s*(?:UNIQUE\s+|FULLTEXT\s+)?(?:KEY|INDEX)\s+[^(\n]*\([^)\n]*\)[^,\n]*,?\s*$`), ""},
	{regexp.MustCompile(`(?is)\)\s*(?:ENGINE|TYPE)\s*=[^;]*;`), ");"},
	{regexp.MustCompile(`(?i)\)\s*DEFAULT\s*;`), ");"},
	{regexp.MustCompile(`,\s*\)\s*;`), "\n);"},
}

// NormalizeDDL rewrites a MySQL dump into DDL accepted by SQLite.
func NormalizeDDL(ddl string) string {
	for _, r := range mysqlRewrites {
		ddl = r.re.ReplaceAllString(ddl, r.repl)
	}
	return ddl
}

// LoadDDL returns the schema created by the CREATE TABLE statements of ddl.
func LoadDDL(ddl string) (*Schema, error) {
	conn, err := sqlite.OpenConn(":memory:", sqlite.OpenReadWrite, sqlite.OpenCreate)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if err := sqlitex.ExecuteScript(conn, NormalizeDDL(ddl), nil); err != nil {
		return nil, fmt.Errorf("execute ddl: %w", err)
	}

	var names []string
	if err := sqlitex.ExecuteTransient(conn,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY rowid`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				names = append(names, stmt.ColumnText(0))
				return nil
			},
		}); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	s := New()
	for _, name := range names {
		t := &Table{Name: name}
		if err := sqlitex.ExecuteTransient(conn,
			`SELECT name, type, pk FROM pragma_table_info(?) ORDER BY cid`,
			&sqlitex.ExecOptions{
				Args: []any{name},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					raw := stmt.ColumnText(1)
					typ, _ := ConvertType(raw)
					c := &Column{Name: stmt.ColumnText(0), Type: typ, RawType: raw}
					if stmt.ColumnInt64(2) > 0 {
						c.MarkKey()
					}
					t.Add(c)
					return nil
				},
			}); err != nil {
			return nil, fmt.Errorf("columns of %s: %w", name, err)
		}
		s.Add(t)
	}
	return s, nil
}

// LoadFiles loads the DDL scripts at paths into a single schema. Later files replace tables of earlier ones.
func LoadFiles(paths ...string) (*Schema, error) {
	s := New()
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("could not read schema file: %w", err)
		}
		part, err := LoadDDL(string(content))
		if err != nil {
			return nil, fmt.Errorf("schema file %s: %w", p, err)
		}
		for _, t := range part.Tables() {
			s.Add(t)
		}
	}
	return s, nil
}
