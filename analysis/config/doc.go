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

/*
Package config manages the configuration of the effect extraction.

Use [Load](filename) to load a configuration from a specific filename.

Use [SetGlobalConfig](filename) to set filename as the global config, and then [LoadGlobal]() to load the global config.

A config file is in yaml format. The top-level fields can be any of the fields defined in the Config
struct type, including the fields of the embedded [Options]. For example, a valid config file is as follows:

	project-name: billing
	config-version: 1.0.0
	packages:
	  - ./...
	schema-files:
	  - schema.sql
	basic-effects:
	  - Repo.insertBill
	bindings:
	  - method: Db.customInsertion
	    kind: exec-sql
	exclude-patterns:
	  - class: .*Test$
	exclude-paths:
	  - internal/generated/
	key-suffixes: [id]
	log-level: 4

# Identifying code elements

The exclude patterns use [CodeIdentifier] to identify methods. The string specifications are seen as regexes if they
can be compiled to regexes, otherwise they are strings. The exclude paths exclude every method declared in a Go file,
or below a directory, relative to the config file.

# Logging

[NewLogGroup] returns the loggers used by every stage of the analysis, at the level set by log-level (1 for errors
only, up to 5 for traces).
*/
package config
