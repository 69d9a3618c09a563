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

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/awslabs/ar-go-txeffects/analysis"
	"github.com/awslabs/ar-go-txeffects/analysis/config"
	"github.com/awslabs/ar-go-txeffects/analysis/diagnostics"
	"github.com/awslabs/ar-go-txeffects/analysis/format"
	"github.com/awslabs/ar-go-txeffects/analysis/report"
)

var formatExtensions = map[string]string{
	".yaml": "yaml",
	".yml":  "yaml",
	".md":   "md",
	".html": "html",
	".htm":  "html",
}

// reportFormat returns the report format named by flag, or the format matching the extension of reportPath.
func reportFormat(flag, reportPath string) (string, error) {
	switch flag {
	case "yaml", "md", "html":
		return flag, nil
	case "":
		if f, ok := formatExtensions[strings.ToLower(filepath.Ext(reportPath))]; ok {
			return f, nil
		}
		return "yaml", nil
	}
	return "", fmt.Errorf("unknown report format %q (want yaml, md or html)", flag)
}

func loadConfig(o options) (*config.Config, error) {
	c := config.NewDefault()
	if o.configPath != "" {
		var err error
		c, err = config.Load(o.configPath)
		if err != nil {
			return nil, fmt.Errorf("could not load config %q: %w", o.configPath, err)
		}
	}
	if o.verbose && c.LogLevel < int(config.DebugLevel) {
		c.LogLevel = int(config.DebugLevel)
	}
	return c, nil
}

func (o options) schemaPaths(c *config.Config) []string {
	return append(c.SchemaPaths(), o.schemas...)
}

// run runs the analysis once, writes the report and prints a summary on standard error.
func run(o options) error {
	c, err := loadConfig(o)
	if err != nil {
		return err
	}
	logger := config.NewLogGroup(c)

	logger.Infof("%s", format.Faint("Reading sources"))
	loaded, err := analysis.LoadProgram(c, o.dir, o.schemas, o.patterns)
	if err != nil {
		return err
	}
	logger.Infof("%d methods, %d tables", len(loaded.Program.Methods()), len(loaded.Schema.Tables()))

	a := loaded.NewAnalyzer(c, logger)
	res := a.Run()

	if o.dotDir != "" {
		if err := writeGraphs(a, res, o.dotDir); err != nil {
			return err
		}
		logger.Infof("Control flow graphs written to %s", o.dotDir)
	}

	stats := a.Statistics(res)
	project := c.ProjectName
	if project == "" {
		project = filepath.Base(absDir(o.dir))
	}
	rep := report.Build(project, res).WithStats(stats)
	if err := writeReport(rep, o, c); err != nil {
		return err
	}
	printSummary(os.Stderr, res, stats)
	return nil
}

func absDir(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

// reportDestination returns the path of the report file, or "" for standard output.
func reportDestination(o options, c *config.Config) string {
	if o.reportPath != "" || c.ReportsDir == "" {
		return o.reportPath
	}
	return filepath.Join(c.ReportsDir, "effects."+o.format)
}

func writeReport(rep *report.Report, o options, c *config.Config) error {
	dest := reportDestination(o, c)
	var w io.Writer = os.Stdout
	if dest != "" {
		f, err := os.Create(dest)
		if err != nil {
			return fmt.Errorf("could not create report: %w", err)
		}
		defer f.Close()
		w = f
	}
	var err error
	switch o.format {
	case "md":
		err = rep.WriteMarkdown(w)
	case "html":
		err = rep.WriteHTML(w)
	default:
		err = rep.WriteYAML(w)
	}
	if err != nil {
		return fmt.Errorf("could not write report: %w", err)
	}
	return nil
}

// dotFileName maps a method signature to a file name.
func dotFileName(sig string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, sig)
	return strings.Trim(name, "_") + ".dot"
}

func writeGraphs(a *analysis.Analyzer, res *analysis.Result, dir string) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("could not create directory %s: %w", dir, err)
	}
	for _, sig := range res.Order {
		g, ok := a.Graphs[sig]
		if !ok {
			continue
		}
		f, err := os.Create(filepath.Join(dir, dotFileName(sig)))
		if err != nil {
			return err
		}
		err = g.WriteDot(f, sig)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("could not write graph of %s: %w", sig, err)
		}
	}
	return nil
}

func printSummary(w io.Writer, res *analysis.Result, stats analysis.Stats) {
	fmt.Fprintf(w, "Methods analyzed:  %d\n", stats.Methods)
	fmt.Fprintf(w, "Effects:           %d (%d committed, %d rolled back, %d conditional)\n",
		stats.Effects, stats.Committed, stats.RolledBack, stats.Conditional)
	fmt.Fprintf(w, "Failed paths:      %s\n", format.Count(stats.Failures))
	if len(stats.MultipleCommits) > 0 {
		fmt.Fprintf(w, "Multiple commits:  %s\n", format.Yellow(strings.Join(stats.MultipleCommits, ", ")))
	}
	if len(stats.EffectInCatch) > 0 {
		fmt.Fprintf(w, "Effects in catch:  %s\n", format.Yellow(strings.Join(stats.EffectInCatch, ", ")))
	}
	counts := map[diagnostics.Category]int{}
	for _, d := range res.Diagnostics {
		counts[d.Category]++
	}
	cats := make([]diagnostics.Category, 0, len(counts))
	for cat := range counts {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	for _, cat := range cats {
		fmt.Fprintf(w, "  %-20s %d\n", format.Category(cat), counts[cat])
	}
}
