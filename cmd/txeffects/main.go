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

// txeffects extracts the database write effects of a Go program.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// Version is the version of the tool, set at link time.
var Version = "dev"

const usage = `txeffects: transactional effects of database programs
Usage:
  txeffects [options] <package pattern(s)>
The packages are loaded relative to -dir. When no pattern is given, the packages of the
config file are loaded, or ./... when the config file names none.
Examples:
  txeffects -schema schema.sql ./...
  txeffects -config txeffects.yaml -format md -report effects.md
  txeffects -config txeffects.yaml -dot graphs -watch`

// fileList is a repeatable flag.
type fileList []string

func (f *fileList) String() string {
	if f == nil {
		return "[]"
	}
	return fmt.Sprintf("%v", []string(*f))
}

// Set appends value to f.
func (f *fileList) Set(value string) error {
	*f = append(*f, value)
	return nil
}

type options struct {
	configPath string
	schemas    fileList
	dir        string
	reportPath string
	format     string
	dotDir     string
	watch      bool
	verbose    bool
	patterns   []string
}

func parseFlags(args []string) (options, error) {
	var o options
	cmd := flag.NewFlagSet("txeffects", flag.ContinueOnError)
	cmd.StringVar(&o.configPath, "config", "", "config file path for analysis")
	cmd.Var(&o.schemas, "schema", "DDL script of the database schema (repeatable)")
	cmd.StringVar(&o.dir, "dir", ".", "directory the package patterns are relative to")
	cmd.StringVar(&o.reportPath, "report", "", "report output file (default: standard output)")
	cmd.StringVar(&o.format, "format", "", "report format: yaml, md or html (default: from -report extension)")
	cmd.StringVar(&o.dotDir, "dot", "", "directory receiving the control flow graph of every analyzed method")
	cmd.BoolVar(&o.watch, "watch", false, "re-run the analysis when a Go, SQL or config file changes")
	cmd.BoolVar(&o.verbose, "v", false, "verbose logging")
	version := cmd.Bool("version", false, "print the version and exit")
	cmd.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s\n", usage)
		fmt.Fprintf(os.Stderr, "Options:\n")
		cmd.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(os.Stderr, "  %s: %s (default: %q)\n", f.Name, f.Usage, f.DefValue)
		})
	}
	if err := cmd.Parse(args); err != nil {
		return options{}, err
	}
	if *version {
		fmt.Println(Version)
		os.Exit(0)
	}
	o.patterns = cmd.Args()
	for _, p := range o.patterns {
		if strings.HasPrefix(p, "-") {
			return options{}, fmt.Errorf("flag %s after package patterns", p)
		}
	}
	f, err := reportFormat(o.format, o.reportPath)
	if err != nil {
		return options{}, err
	}
	o.format = f
	return o, nil
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if err == flag.ErrHelp {
		return
	}
	if err != nil {
		errExit(err)
	}
	if o.watch {
		err = watch(o)
	} else {
		err = run(o)
	}
	if err != nil {
		errExit(err)
	}
}

func errExit(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	if hint := hintForErrorMessage(err.Error()); hint != "" {
		fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
	}
	os.Exit(2)
}
