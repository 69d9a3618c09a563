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

// Package format colors the terminal output of the command line tool.
package format

import (
	"fmt"
	"os"

	"github.com/awslabs/ar-go-txeffects/analysis/diagnostics"
	"golang.org/x/term"
)

// Enabled is true when colors are written. It defaults to whether standard output is a terminal.
var Enabled = term.IsTerminal(int(os.Stdout.Fd()))

var (
	Faint  = Color("\033[2m%s\033[0m")
	Red    = Color("\033[1;31m%s\033[0m")
	Green  = Color("\033[1;32m%s\033[0m")
	Yellow = Color("\033[1;33m%s\033[0m")
	Purple = Color("\033[1;34m%s\033[0m")
)

// Color returns a function printing its arguments in the color of colorString when colors are enabled.
func Color(colorString string) func(...any) string {
	return func(args ...any) string {
		if Enabled {
			return fmt.Sprintf(colorString, fmt.Sprint(args...))
		}
		return fmt.Sprint(args...)
	}
}

// Category prints a diagnostic category: red when it aborts a path, yellow for call graph cycles and path limits.
func Category(c diagnostics.Category) string {
	switch {
	case c.IsFatal():
		return Red(c)
	case c == diagnostics.CyclicCallGraph || c == diagnostics.PathLimit:
		return Yellow(c)
	}
	return Faint(c)
}

// Count prints n green when it is zero and red otherwise, for counts of failures.
func Count(n int) string {
	if n == 0 {
		return Green(n)
	}
	return Red(n)
}
