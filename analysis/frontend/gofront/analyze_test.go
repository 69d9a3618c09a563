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

package gofront_test

import (
	"errors"
	"io"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/awslabs/ar-go-txeffects/analysis"
	"github.com/awslabs/ar-go-txeffects/analysis/config"
	"github.com/awslabs/ar-go-txeffects/analysis/effect"
	"github.com/awslabs/ar-go-txeffects/analysis/frontend/gofront"
	"github.com/awslabs/ar-go-txeffects/analysis/interp"
	"github.com/awslabs/ar-go-txeffects/analysis/schema"
)

func TestAnalyzeStore(t *testing.T) {
	_, filename, _, _ := runtime.Caller(0)
	dir := filepath.Join(filepath.Dir(filename), "testdata", "store")
	c := config.NewDefault()
	logger := config.NewLogGroup(c)
	logger.SetAllOutput(io.Discard)
	p, err := gofront.Load(dir, nil, "./...")
	if err != nil {
		t.Fatalf("could not load test program: %v", err)
	}
	s := schema.New(
		schema.NewTable("stock", &schema.Column{Name: "item", Type: schema.Int},
			&schema.Column{Name: "count", Type: schema.Int}),
		schema.NewTable("audit", &schema.Column{Name: "item", Type: schema.Int}))
	a := analysis.NewAnalyzer(c, p, s, logger)
	r := a.Run()

	analyzed := func(prefix string) string {
		for _, name := range r.Order {
			if strings.HasPrefix(name, prefix) {
				return name
			}
		}
		return ""
	}
	for _, m := range []string{"example.com/store.Store.Restock", "example.com/store.Reset",
		"example.com/store.auditNotifier.Notify", "example.com/store.notifyAll"} {
		if analyzed(m) == "" {
			t.Errorf("%s should be analyzed, got %v", m, r.Order)
		}
	}
	for _, m := range []string{"example.com/store.debugDump", "example.com/store.finish",
		"example.com/store.logNotifier.Notify"} {
		if analyzed(m) != "" {
			t.Errorf("%s should not be analyzed", m)
		}
	}

	notify := r.Effects[analyzed("example.com/store.auditNotifier.Notify")]
	if len(notify) != 1 || notify[0].Err != nil || len(notify[0].Atoms) != 1 {
		t.Fatalf("expected one insert for Notify, got %v", notify)
	}
	if atom := notify[0].Atoms[0]; atom.Kind != effect.Insert || atom.Table.Name != "audit" {
		t.Errorf("expected an insert into audit, got %s", atom)
	}

	for _, e := range r.Effects[analyzed("example.com/store.Reset")] {
		if !errors.Is(e.Err, interp.ErrUnsafeLoopEffect) {
			t.Errorf("deleting in a loop is unsafe, got %v", e.Err)
		}
	}
	if len(r.Effects[analyzed("example.com/store.Store.Restock")]) == 0 {
		t.Errorf("expected effects for Restock")
	}
}
