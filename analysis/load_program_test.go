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

package analysis

import (
	"go/token"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/awslabs/ar-go-txeffects/analysis/config"
	"github.com/awslabs/ar-go-txeffects/analysis/diagnostics"
)

const storeDDL = `
CREATE TABLE stock (item INT PRIMARY KEY, count INT);
CREATE TABLE audit (item INT);
`

func storeDir(t *testing.T) string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "frontend", "gofront", "testdata", "store")
}

func writeDDL(t *testing.T) string {
	p := filepath.Join(t.TempDir(), "store.sql")
	if err := os.WriteFile(p, []byte(storeDDL), 0600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadProgram(t *testing.T) {
	loaded, err := LoadProgram(nil, storeDir(t), []string{writeDDL(t)}, nil)
	if err != nil {
		t.Fatalf("error loading program: %s", err)
	}
	if loaded.Program.Class("example.com/store.Store") == nil {
		t.Errorf("class Store not loaded")
	}
	if loaded.Schema.Table("stock") == nil || loaded.Schema.Table("audit") == nil {
		t.Errorf("schema tables not loaded: %v", loaded.Schema.Tables())
	}
	malformed := 0
	for _, d := range loaded.Diagnostics {
		if d.Category == diagnostics.Unsupported {
			malformed++
		}
	}
	if malformed == 0 {
		t.Errorf("expected the malformed directive to be reported")
	}

	c := config.NewDefault()
	logger := config.NewLogGroup(c)
	logger.SetAllOutput(io.Discard)
	a := loaded.NewAnalyzer(c, logger)
	if a.Diagnostics.Count(diagnostics.Unsupported) != malformed {
		t.Errorf("front end diagnostics should be carried by the analyzer")
	}
}

func TestLoadProgramErrors(t *testing.T) {
	if _, err := LoadProgram(nil, storeDir(t), []string{"does-not-exist.sql"}, nil); err == nil {
		t.Errorf("expected an error for a missing schema file")
	}
	if _, err := LoadProgram(nil, t.TempDir(), nil, []string{"./..."}); err == nil {
		t.Errorf("expected an error outside of a module")
	}
}

func TestExcludePaths(t *testing.T) {
	loaded, err := LoadProgram(nil, storeDir(t), []string{writeDDL(t)}, nil)
	if err != nil {
		t.Fatalf("error loading program: %s", err)
	}
	c := config.NewDefault()
	c.ExcludePaths = []string{storeDir(t) + "/"}
	logger := config.NewLogGroup(c)
	logger.SetAllOutput(io.Discard)
	r := loaded.NewAnalyzer(c, logger).Run()
	if len(r.Order) != 0 {
		t.Errorf("expected every method to be excluded, got %v", r.Order)
	}
}

func TestIsExcludedPosition(t *testing.T) {
	exclude := []string{"/src/store/gen/", "/src/store/debug.go", "/src/vendor"}
	tests := []struct {
		file string
		want bool
	}{
		{"/src/store/gen/tables.go", true},
		{"/src/store/debug.go", true},
		{"/src/store/debug_test.go", false},
		{"/src/vendor/x/y.go", true},
		{"/src/vendorx/y.go", false},
		{"/src/store/store.go", false},
	}
	for _, test := range tests {
		pos := token.Position{Filename: test.file, Line: 1}
		if got := IsExcludedPosition(pos, exclude); got != test.want {
			t.Errorf("IsExcludedPosition(%s) = %v, want %v", test.file, got, test.want)
		}
	}
	if IsExcludedPosition(token.Position{}, exclude) {
		t.Errorf("invalid positions are never excluded")
	}
	if abs := MakeAbsolute([]string{"gen", "/abs"}); !filepath.IsAbs(abs[0]) || abs[1] != "/abs" {
		t.Errorf("unexpected absolute paths %v", abs)
	}
}
