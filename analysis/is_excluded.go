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
	"os"
	"path/filepath"
	"strings"
)

// MakeAbsolute returns the paths of excludeRelative made absolute against the working directory.
func MakeAbsolute(excludeRelative []string) []string {
	result := make([]string, 0, len(excludeRelative))
	cwd, _ := os.Getwd()
	for _, s := range excludeRelative {
		if filepath.IsAbs(s) {
			result = append(result, s)
		} else {
			result = append(result, filepath.Join(cwd, s))
		}
	}
	return result
}

func isExcludedOne(filename string, exclude string) bool {
	if strings.HasSuffix(exclude, ".go") {
		return filename == exclude // full match required
	} else if strings.HasSuffix(exclude, "/") {
		return strings.HasPrefix(filename, exclude) // prefix match required
	} else {
		return strings.HasPrefix(filename, exclude+"/") // prefix match plus / required
	}
}

// IsExcludedPosition returns true if pos is in a file matched by one of the exclude paths: a Go file matches itself,
// a directory matches every file below it.
func IsExcludedPosition(pos token.Position, exclude []string) bool {
	if !pos.IsValid() {
		return false
	}
	for _, e := range exclude {
		if isExcludedOne(pos.Filename, e) {
			return true
		}
	}
	return false
}
