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

import "regexp"

// Captures errors happening before any analysis starts (packages could not load)
var regexCouldNotLoad = regexp.MustCompile("could not load packages|errors in loaded packages")

// Captures the kind of error that happen when a flag is put after the package patterns
var regexFlagAfterPatterns = regexp.MustCompile("flag -(\\w+) after package patterns")

// Captures DDL scripts that SQLite could not execute
var regexSchema = regexp.MustCompile("schema file .*: ")

// Captures config files with an unsupported version
var regexConfigVersion = regexp.MustCompile("config-version .* is not supported")

// hintForErrorMessage looks for specific error message and returns some other message that might help the user
// resolve the problem.
func hintForErrorMessage(errMsg string) string {
	switch {
	case regexFlagAfterPatterns.MatchString(errMsg):
		return "all command line flags should be before the package patterns"
	case regexCouldNotLoad.MatchString(errMsg):
		return "make sure -dir points to a Go module and the patterns match packages that type check"
	case regexSchema.MatchString(errMsg):
		return "schema files are MySQL or SQLite DDL scripts of CREATE TABLE statements"
	case regexConfigVersion.MatchString(errMsg):
		return "update config-version in the config file, or remove it"
	}
	return ""
}
