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

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/awslabs/ar-go-txeffects/internal/funcutil"
	"gopkg.in/yaml.v3"
)

var (
	// The global config file
	configFile string
)

// SetGlobalConfig sets the global config filename
func SetGlobalConfig(filename string) {
	configFile = filename
}

// LoadGlobal loads the config file that has been set by SetGlobalConfig
func LoadGlobal() (*Config, error) {
	return Load(configFile)
}

// Config describes the program to analyze and the methods with known database semantics.
// If some field is not defined in the config file, it will be empty/zero in the struct.
// private fields are not populated from a yaml file, but computed after initialization
type Config struct {
	Options `yaml:",inline"`

	sourceFile string

	// ProjectName names the analyzed application in reports
	ProjectName string `yaml:"project-name"`

	// ConfigVersion is the version of the config format. It must satisfy SupportedConfigVersions when set.
	ConfigVersion string `yaml:"config-version"`

	// Packages are the package patterns loaded by the Go front end
	Packages []string `yaml:"packages"`

	// SchemaFiles are DDL scripts describing the tables written by the program, relative to the config file
	SchemaFiles []string `yaml:"schema-files"`

	// BasicEffects are the qualified names (Class.method) of the methods writing to the database. Every method that
	// may transitively call one of them is analyzed.
	BasicEffects []string `yaml:"basic-effects"`

	// BasicCommits are the qualified names of the methods committing a transaction
	BasicCommits []string `yaml:"basic-commits"`

	// BasicRollbacks are the qualified names of the methods rolling back a transaction
	BasicRollbacks []string `yaml:"basic-rollbacks"`

	// Semantics lists the bundles of known semantics to register: "jdbc", "database-sql" and "strings". All
	// bundles are registered when empty.
	Semantics []string `yaml:"semantics"`

	// Bindings give the semantics of application methods wrapping database accesses
	Bindings []Binding `yaml:"bindings"`

	// ExcludePatterns identify methods that are never analyzed
	ExcludePatterns []CodeIdentifier `yaml:"exclude-patterns"`

	// ExcludePaths are Go files, or directories, relative to the config file, whose methods are never analyzed
	ExcludePaths []string `yaml:"exclude-paths"`

	// InterestingExceptions filters the exception types that produce raise edges. All types are interesting when
	// empty.
	InterestingExceptions []string `yaml:"interesting-exceptions"`
}

// BindingKind is the kind of semantics given to an application method.
type BindingKind string

// Binding kinds.
const (
	// ExecSQL executes the SQL statement in argument Arg and returns true
	ExecSQL BindingKind = "exec-sql"
	// QuerySQL executes the query in argument Arg and returns its rows
	QuerySQL BindingKind = "query-sql"
	// InsertRow inserts a row of unknown values in the table named by argument Arg
	InsertRow BindingKind = "insert-row"
	// DeleteRow deletes the rows of the table named by argument Arg whose column named by argument Arg+1 equals
	// argument Arg+2
	DeleteRow BindingKind = "delete-row"
	// RowGet reads the column at index argument Arg of the rows its receiver was returned by
	RowGet BindingKind = "row-get"
)

// Binding gives the semantics of Method, a qualified name or a full signature.
type Binding struct {
	Method string      `yaml:"method"`
	Kind   BindingKind `yaml:"kind"`
	Arg    int         `yaml:"arg"`
}

// Options are the tuning parameters of the analysis.
type Options struct {
	// ReportsDir is the directory where the reports will be stored. It is created by Load when set.
	ReportsDir string `yaml:"reports-dir"`

	// MaxPaths bounds the number of paths enumerated per method. If MaxPaths <= 0, it is ignored.
	MaxPaths int `yaml:"max-paths"`

	// ChainCallees chains the effects of analyzed callees onto the effects of their callers
	ChainCallees bool `yaml:"chain-callees"`

	// KeySuffixes are column name suffixes (e.g. "id") that an opaque UPDATE is assumed not to write, in addition
	// to primary keys
	KeySuffixes []string `yaml:"key-suffixes"`

	// Parallelism is the number of goroutines building control flow graphs. Defaults to the number of CPUs.
	Parallelism int `yaml:"parallelism"`

	// Loglevel controls the verbosity of the tool
	LogLevel int `yaml:"log-level"`

	// Suppress warnings
	SilenceWarn bool `yaml:"silence-warn"`
}

// NewDefault returns an empty default config.
func NewDefault() *Config {
	return &Config{
		sourceFile: "",
		Options: Options{
			ReportsDir:   "",
			MaxPaths:     DefaultMaxPaths,
			ChainCallees: true,
			LogLevel:     int(InfoLevel),
			SilenceWarn:  false,
		},
	}
}

// Load reads a configuration from a file
func Load(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	return LoadBytes(filename, b)
}

// LoadBytes parses a configuration read from filename. Relative paths of the configuration are resolved against
// the directory of filename.
func LoadBytes(filename string, b []byte) (*Config, error) {
	cfg := NewDefault()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file: %w", err)
	}
	cfg.sourceFile = filename

	if err := checkVersion(cfg.ConfigVersion); err != nil {
		return nil, err
	}

	if cfg.ReportsDir != "" {
		if err := setReportsDir(cfg); err != nil {
			return nil, err
		}
	}

	// If logLevel has not been specified (i.e. it is 0) set the default to Info
	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}

	for i, b := range cfg.Bindings {
		if b.Method == "" {
			return nil, fmt.Errorf("binding %d has no method", i)
		}
		if !funcutil.Contains(bindingKinds, b.Kind) {
			return nil, fmt.Errorf("binding of %s: unknown kind %q", b.Method, b.Kind)
		}
	}

	funcutil.MapInPlace(cfg.ExcludePatterns, CompileRegexes)
	return cfg, nil
}

var bindingKinds = []BindingKind{ExecSQL, QuerySQL, InsertRow, DeleteRow, RowGet}

func checkVersion(v string) error {
	if v == "" {
		return nil
	}
	version, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("invalid config-version %q: %w", v, err)
	}
	constraint, err := semver.NewConstraint(SupportedConfigVersions)
	if err != nil {
		return fmt.Errorf("invalid supported version range: %w", err)
	}
	if !constraint.Check(version) {
		return fmt.Errorf("config-version %s is not supported (want %s)", v, SupportedConfigVersions)
	}
	return nil
}

func setReportsDir(c *Config) error {
	if !path.IsAbs(c.ReportsDir) {
		c.ReportsDir = c.RelPath(c.ReportsDir)
	}
	err := os.MkdirAll(c.ReportsDir, 0750)
	if err != nil {
		return fmt.Errorf("could not create directory %s", c.ReportsDir)
	}
	return nil
}

// RelPath returns filename path relative to the config source file
func (c Config) RelPath(filename string) string {
	if path.IsAbs(filename) {
		return filename
	}
	return path.Join(path.Dir(c.sourceFile), filename)
}

// SchemaPaths returns the schema files resolved against the directory of the config file.
func (c Config) SchemaPaths() []string {
	return funcutil.Map(c.SchemaFiles, c.RelPath)
}

// ExcludedPaths returns the exclude paths resolved against the directory of the config file.
func (c Config) ExcludedPaths() []string {
	return funcutil.Map(c.ExcludePaths, c.RelPath)
}

// IsExcluded returns true if the method name of class matches some exclude pattern.
func (c Config) IsExcluded(class, method string) bool {
	cid := CodeIdentifier{Class: class, Method: method}
	return ExistsCid(c.ExcludePatterns, cid.equalOnNonEmptyFields)
}

// IsInterestingException returns true if raise edges should be built for exceptions of type t. Types are matched on
// their full name or on their simple name.
func (c Config) IsInterestingException(t string) bool {
	if len(c.InterestingExceptions) == 0 {
		return true
	}
	simple := t[strings.LastIndex(t, ".")+1:]
	for _, x := range c.InterestingExceptions {
		if x == t || x == simple {
			return true
		}
	}
	return false
}

// HasSemantics returns true if the bundle of known semantics should be registered.
func (c Config) HasSemantics(bundle string) bool {
	return len(c.Semantics) == 0 || funcutil.Contains(c.Semantics, bundle)
}

// Verbose returns true is the configuration verbosity setting is larger than Info (i.e. Debug or Trace)
func (c Config) Verbose() bool {
	return c.LogLevel >= int(DebugLevel)
}
