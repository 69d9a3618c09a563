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

package config

import "regexp"

// A CodeIdentifier identifies methods by their class and name, or any combination of those.
// The strings are seen as regexes if they can be compiled to regexes, otherwise they are matched exactly.
type CodeIdentifier struct {
	Class  string `yaml:"class"`
	Method string `yaml:"method"`
	// This will not be part of the yaml config
	computedRegexs *CodeIdentifierRegex
}

type CodeIdentifierRegex struct {
	classRegex  *regexp.Regexp
	methodRegex *regexp.Regexp
}

// CompileRegexes compiles the strings in the code identifier into regexes. It compiles all identifiers into regexes
// or none.
func CompileRegexes(cid CodeIdentifier) CodeIdentifier {
	classRegex, err := regexp.Compile(cid.Class)
	if err != nil {
		return cid
	}
	methodRegex, err := regexp.Compile(cid.Method)
	if err != nil {
		return cid
	}
	cid.computedRegexs = &CodeIdentifierRegex{classRegex, methodRegex}
	return cid
}

// equalOnNonEmptyFields returns true if each of the receiver's fields are either equal to the corresponding
// argument's field, or the argument's field is empty
func (cid *CodeIdentifier) equalOnNonEmptyFields(cidRef CodeIdentifier) bool {
	if cidRef.computedRegexs != nil {
		return (cidRef.Class == "" || cidRef.computedRegexs.classRegex.MatchString(cid.Class)) &&
			(cidRef.Method == "" || cidRef.computedRegexs.methodRegex.MatchString(cid.Method))
	}
	return (cidRef.Class == "" || cid.Class == cidRef.Class) &&
		(cidRef.Method == "" || cid.Method == cidRef.Method)
}

// ExistsCid is true if there is some x in a such that f(x) is true.
func ExistsCid(a []CodeIdentifier, f func(identifier CodeIdentifier) bool) bool {
	for _, x := range a {
		if f(x) {
			return true
		}
	}
	return false
}
