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
	"io"

	"github.com/sirupsen/logrus"
)

type LogLevel int

const (
	// ErrLevel=1 - the minimum level of logging.
	ErrLevel LogLevel = iota + 1

	// WarnLEvel=2 - the level for logging warnings, and errors
	WarnLevel

	// InfoLevel=3 - the level for logging high-level information, results
	InfoLevel

	// DebugLevel=4 - the level for debugging information. The tool will run properly on large programs with
	// that level of debug information.
	DebugLevel

	// TraceLevel=5 - the level for tracing. The tool will not run properly on large programs with that level
	// of information, but this is useful on smaller testing programs.
	TraceLevel
)

func (l LogLevel) logrus() logrus.Level {
	switch {
	case l <= ErrLevel:
		return logrus.ErrorLevel
	case l == WarnLevel:
		return logrus.WarnLevel
	case l == InfoLevel:
		return logrus.InfoLevel
	case l == DebugLevel:
		return logrus.DebugLevel
	}
	return logrus.TraceLevel
}

// LogGroup is the set of leveled loggers of the analysis. All levels share one logrus logger.
type LogGroup struct {
	level       LogLevel
	silenceWarn bool
	logger      *logrus.Logger
}

// NewLogGroup returns a log group that is configured to the logging settings stored inside the config
func NewLogGroup(config *Config) *LogGroup {
	l := &LogGroup{
		level:       LogLevel(config.LogLevel),
		silenceWarn: config.SilenceWarn,
		logger:      logrus.New(),
	}
	l.logger.SetLevel(l.level.logrus())
	l.logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
	return l
}

// SetAllOutput sets the output writer of every level to the writer provided
func (l *LogGroup) SetAllOutput(w io.Writer) {
	l.logger.SetOutput(w)
}

// SetFormatter replaces the formatter of the log group.
func (l *LogGroup) SetFormatter(f logrus.Formatter) {
	l.logger.SetFormatter(f)
}

// Tracef prints to the trace level. Arguments are handled in the manner of Printf
func (l *LogGroup) Tracef(format string, v ...any) {
	if l.level >= TraceLevel {
		l.logger.Tracef(format, v...)
	}
}

// Debugf prints to the debug level. Arguments are handled in the manner of Printf
func (l *LogGroup) Debugf(format string, v ...any) {
	if l.level >= DebugLevel {
		l.logger.Debugf(format, v...)
	}
}

// Infof prints to the info level. Arguments are handled in the manner of Printf
func (l *LogGroup) Infof(format string, v ...any) {
	if l.level >= InfoLevel {
		l.logger.Infof(format, v...)
	}
}

// Warnf prints to the warning level, unless warnings are silenced. Arguments are handled in the manner of Printf
func (l *LogGroup) Warnf(format string, v ...any) {
	if l.level >= WarnLevel && !l.silenceWarn {
		l.logger.Warnf(format, v...)
	}
}

// Errorf prints to the error level. Arguments are handled in the manner of Printf
func (l *LogGroup) Errorf(format string, v ...any) {
	if l.level >= ErrLevel {
		l.logger.Errorf(format, v...)
	}
}

// WarnFields prints msg with structured fields to the warning level, unless warnings are silenced.
func (l *LogGroup) WarnFields(fields logrus.Fields, msg string) {
	if l.level >= WarnLevel && !l.silenceWarn {
		l.logger.WithFields(fields).Warn(msg)
	}
}

// DebugFields prints msg with structured fields to the debug level.
func (l *LogGroup) DebugFields(fields logrus.Fields, msg string) {
	if l.level >= DebugLevel {
		l.logger.WithFields(fields).Debug(msg)
	}
}

// Level returns the level of the log group.
func (l *LogGroup) Level() LogLevel { return l.level }
