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

package gofront

import (
	"regexp"
	"strings"

	"github.com/dave/dst"
)

const directivePrefix = "//txeffect:"

// directiveRegex matches a directive line of the form //txeffect:<name> [comment]
var directiveRegex = regexp.MustCompile(`^//txeffect:([a-z][a-z\-]*)(?:\s.*)?$`)

// directives returns the directives in the comments preceding a declaration, in order. Lines that start with the
// prefix but are malformed are returned in the second result.
func directives(decs dst.Decorations) (names []string, malformed []string) {
	for _, line := range decs.All() {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, directivePrefix) {
			continue
		}
		if m := directiveRegex.FindStringSubmatch(line); m != nil {
			names = append(names, m[1])
		} else {
			malformed = append(malformed, line)
		}
	}
	return names, malformed
}
