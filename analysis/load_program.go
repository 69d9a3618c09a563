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
	"fmt"

	"github.com/awslabs/ar-go-txeffects/analysis/config"
	"github.com/awslabs/ar-go-txeffects/analysis/diagnostics"
	"github.com/awslabs/ar-go-txeffects/analysis/frontend/gofront"
	"github.com/awslabs/ar-go-txeffects/analysis/ir"
	"github.com/awslabs/ar-go-txeffects/analysis/schema"
)

// LoadedProgram represents a loaded program and the database schema it writes to.
type LoadedProgram struct {
	// Program is the intermediate representation of the loaded packages.
	Program *ir.Program
	// Schema holds the tables of every schema file.
	Schema *schema.Schema
	// Diagnostics are the diagnostics of the front end (unsupported constructs, malformed directives).
	Diagnostics []diagnostics.Diagnostic
}

// LoadProgram loads the schema files and the packages matching patterns in dir. When no pattern is given, the
// packages of the config are loaded, and ./... if the config names none. Schema files given as arguments are loaded
// after the schema files of the config.
func LoadProgram(c *config.Config, dir string, schemaFiles []string, patterns []string) (LoadedProgram, error) {
	if c == nil {
		c = config.NewDefault()
	}
	s, err := schema.LoadFiles(append(c.SchemaPaths(), schemaFiles...)...)
	if err != nil {
		return LoadedProgram{}, err
	}
	if len(patterns) == 0 {
		patterns = c.Packages
	}
	front := diagnostics.NewCollector(nil)
	p, err := gofront.Load(dir, front, patterns...)
	if err != nil {
		return LoadedProgram{}, fmt.Errorf("could not load program: %w", err)
	}
	if len(p.Methods()) == 0 {
		return LoadedProgram{}, fmt.Errorf("could not load program: no function in %v", patterns)
	}
	return LoadedProgram{Program: p, Schema: s, Diagnostics: front.All()}, nil
}

// NewAnalyzer returns an analyzer of the loaded program whose diagnostics start with the front end diagnostics.
func (l LoadedProgram) NewAnalyzer(c *config.Config, logger *config.LogGroup) *Analyzer {
	a := NewAnalyzer(c, l.Program, l.Schema, logger)
	for _, d := range l.Diagnostics {
		a.Diagnostics.Report(d.Category, d.Pos, "%s", d.Message)
	}
	return a
}
