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

package cfg

import (
	"fmt"
	"io"
	"strconv"
)

// WriteDot writes the graph in Graphviz format. Rendering the output is left to the caller.
func (g *Graph) WriteDot(w io.Writer, name string) error {
	if _, err := fmt.Fprintf(w, "digraph %s {\n", strconv.Quote(name)); err != nil {
		return err
	}
	for _, n := range g.Nodes() {
		shape := "box"
		if n.IsSentinel() {
			shape = "ellipse"
		} else if n.Stmt == nil {
			shape = "point"
		}
		label := n.Kind.String()
		if n.Stmt != nil {
			label = n.Stmt.String()
		}
		if _, err := fmt.Fprintf(w, "  n%d [shape=%s, label=%s];\n", n.ID, shape, strconv.Quote(label)); err != nil {
			return err
		}
	}
	for _, e := range g.Edges() {
		attrs := ""
		switch e.Label.Kind {
		case Branch:
			attrs = fmt.Sprintf(" [label=%s]", strconv.Quote(e.Label.String()))
		case ExceptionRaise, ExceptionCatch:
			attrs = fmt.Sprintf(" [style=dashed, label=%s]", strconv.Quote(e.Label.String()))
		}
		if _, err := fmt.Fprintf(w, "  n%d -> n%d%s;\n", e.From, e.To, attrs); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}
