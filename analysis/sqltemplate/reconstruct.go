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

// Package sqltemplate turns abstract SQL strings into write atoms. A string value is first rendered into a template,
// where every symbolic part becomes a [[...]] placeholder; the template is then parsed and converted into an
// effect.Atom (or a value.ResultSet for queries) against the schema.
//
// Placeholders take three shapes:
//   - [[name]] names a free argument of the effect, unless the name has the shape of an opaque placeholder,
//   - [[?n]] refers to entry n of the template's side table, for values that must survive the round trip unchanged,
//   - [[vN]] or [[vN|expr]] is an opaque value, expr being the variable it was read from when known.
package sqltemplate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/awslabs/ar-go-txeffects/analysis/ir"
	"github.com/awslabs/ar-go-txeffects/analysis/value"
)

// Template is a SQL text with placeholders, and the values behind its [[?n]] placeholders.
type Template struct {
	Text   string
	Values map[int]value.Value
}

func (t Template) String() string { return t.Text }

type reconstructor struct {
	counter int
	values  map[int]value.Value
}

// Reconstruct renders v into a template. Counters restart at 1 for every call.
func Reconstruct(v value.Value) Template {
	r := &reconstructor{values: map[int]value.Value{}}
	return Template{Text: r.render(v), Values: r.values}
}

func (r *reconstructor) side(v value.Value) string {
	r.counter++
	r.values[r.counter] = v
	return fmt.Sprintf("[[?%d]]", r.counter)
}

func (r *reconstructor) opaque(hint string) string {
	r.counter++
	if hint == "" {
		return fmt.Sprintf("[[v%d]]", r.counter)
	}
	return fmt.Sprintf("[[v%d|%s]]", r.counter, hint)
}

func (r *reconstructor) render(v value.Value) string {
	switch v := v.(type) {
	case *value.Constant:
		return constantText(v)
	case *value.Binary:
		if v.Op == value.Add {
			return r.render(v.Left) + r.render(v.Right)
		}
		return r.side(v)
	case *value.Free:
		if opaqueTag.MatchString(v.Name) {
			// [[vN]] is taken by opaque values
			return r.side(v)
		}
		return "[[" + v.Name + "]]"
	case *value.Unknown:
		if v.Source() != nil {
			return r.opaque(ir.TargetName(v.Source()))
		}
		return r.opaque("")
	case *value.Call:
		return r.opaque("")
	case *value.SQLStatement:
		return r.bindParams(r.render(v.Text), v.Params)
	}
	// column reads, unary operations, null and anything else go through the side table
	return r.side(v)
}

func constantText(c *value.Constant) string {
	switch d := c.Data.(type) {
	case string:
		return d
	case int64:
		return strconv.FormatInt(d, 10)
	case float64:
		return strconv.FormatFloat(d, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(d)
	}
	return fmt.Sprintf("%v", c.Data)
}

// bindParams replaces the positional ? markers of text, outside quotes and placeholders, by the bound parameters.
// Unbound markers become opaque placeholders.
func (r *reconstructor) bindParams(text string, params map[int]value.Value) string {
	var sb strings.Builder
	idx := 0
	var quote byte
	for i := 0; i < len(text); i++ {
		ch := text[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == '[' && strings.HasPrefix(text[i:], "[["):
			if end := strings.Index(text[i:], "]]"); end >= 0 {
				sb.WriteString(text[i : i+end+2])
				i += end + 1
				continue
			}
		case ch == '?':
			idx++
			if p, ok := params[idx]; ok {
				sb.WriteString(r.side(p))
			} else {
				sb.WriteString(r.opaque(""))
			}
			continue
		}
		sb.WriteByte(ch)
	}
	return sb.String()
}
