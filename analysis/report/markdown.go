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

package report

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// WriteMarkdown writes the report as a Markdown document, one section per method and one table of atoms per effect.
func (r *Report) WriteMarkdown(w io.Writer) error {
	var b strings.Builder
	title := "Transaction effects"
	if r.Project != "" {
		title += ": " + r.Project
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	for _, m := range r.Methods {
		fmt.Fprintf(&b, "## `%s`\n\n", m.Signature)
		for _, e := range m.Effects {
			writeEffect(&b, e, 3)
		}
	}
	if len(r.Failures) > 0 {
		b.WriteString("## Failed paths\n\n| Method | Path | Error |\n|---|---|---|\n")
		for _, f := range r.Failures {
			fmt.Fprintf(&b, "| `%s` | %s | %s |\n", f.Signature, f.Path, cell(f.Error))
		}
		b.WriteString("\n")
	}
	if len(r.Diagnostics) > 0 {
		b.WriteString("## Diagnostics\n\n| Category | Count |\n|---|---|\n")
		for _, name := range r.diagnosticNames() {
			fmt.Fprintf(&b, "| %s | %d |\n", name, r.Diagnostics[name])
		}
		b.WriteString("\n")
	}
	if s := r.Stats; s != nil {
		b.WriteString("## Statistics\n\n")
		fmt.Fprintf(&b, "- Methods: %d\n- Effects: %d\n- Failed paths: %d\n", s.Methods, s.Effects, s.Failures)
		fmt.Fprintf(&b, "- Committed: %d\n- Rolled back: %d\n- Conditional: %d\n", s.Committed, s.RolledBack,
			s.Conditional)
		fmt.Fprintf(&b, "- Multiple commits: %s\n", list(s.MultipleCommits))
		fmt.Fprintf(&b, "- Effect in catch: %s\n", list(s.EffectInCatch))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeEffect(b *strings.Builder, e Effect, level int) {
	fmt.Fprintf(b, "%s Effect %s\n\n", strings.Repeat("#", min(level, 6)), cell(e.ID))
	if e.Path != "" {
		fmt.Fprintf(b, "- Path: %s\n", e.Path)
	}
	if len(e.Args) > 0 {
		fmt.Fprintf(b, "- Arguments: %s\n", list(e.Args))
	}
	if len(e.Conditions) > 0 {
		fmt.Fprintf(b, "- Condition: %s\n", list(e.Conditions))
	}
	switch {
	case e.Committed:
		b.WriteString("- Ends with a commit\n")
	case e.RolledBack:
		b.WriteString("- Rolled back\n")
	}
	if e.Return != "" {
		fmt.Fprintf(b, "- Returns `%s`\n", e.Return)
	}
	if e.Error != "" {
		fmt.Fprintf(b, "- **Failed**: %s\n", cell(e.Error))
	}
	if len(e.Chained) > 0 {
		fmt.Fprintf(b, "- Callee effects: %s\n", list(e.Chained))
	}
	b.WriteString("\n")
	if len(e.Atoms) > 0 {
		b.WriteString("| Kind | Table | Values | Locators |\n|---|---|---|---|\n")
		for _, a := range e.Atoms {
			fmt.Fprintf(b, "| %s | %s | %s | %s |\n", a.Kind, a.Table, assignmentsCell(a.Values),
				assignmentsCell(a.Locators))
		}
		b.WriteString("\n")
	}
	for _, next := range e.Next {
		writeEffect(b, next, level+1)
	}
}

func list(xs []string) string {
	if len(xs) == 0 {
		return "none"
	}
	quoted := make([]string, len(xs))
	for i, x := range xs {
		quoted[i] = "`" + x + "`"
	}
	return strings.Join(quoted, ", ")
}

func assignmentsCell(as []Assignment) string {
	parts := make([]string, len(as))
	for i, a := range as {
		parts[i] = fmt.Sprintf("`%s = %s`", a.Column, a.Value)
	}
	return cell(strings.Join(parts, ", "))
}

// cell escapes the characters that would break a table row.
func cell(s string) string {
	return strings.NewReplacer("|", "\\|", "\n", " ").Replace(s)
}

// WriteHTML renders the Markdown form of the report to a standalone HTML page.
func (r *Report) WriteHTML(w io.Writer) error {
	var md bytes.Buffer
	if err := r.WriteMarkdown(&md); err != nil {
		return err
	}
	var body bytes.Buffer
	conv := goldmark.New(goldmark.WithExtensions(extension.Table))
	if err := conv.Convert(md.Bytes(), &body); err != nil {
		return fmt.Errorf("could not render report: %w", err)
	}
	title := "Transaction effects"
	if r.Project != "" {
		title += ": " + r.Project
	}
	_, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n"+
		"<style>table { border-collapse: collapse; } td, th { border: 1px solid #ccc; padding: 4px; }</style>\n"+
		"</head>\n<body>\n%s</body>\n</html>\n", html.EscapeString(title), body.String())
	return err
}
