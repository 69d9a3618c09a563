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

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settle is the delay between the last file event and the next run, so that editors saving several files trigger a
// single run.
const settle = 300 * time.Millisecond

// watchedDirs returns the directories under root holding Go sources, skipping hidden directories, vendor and
// testdata, plus the directories of the extra files.
func watchedDirs(root string, extra ...string) ([]string, error) {
	seen := map[string]bool{}
	var dirs []string
	add := func(d string) {
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if p != root && (strings.HasPrefix(name, ".") || name == "vendor" || name == "testdata") {
			return filepath.SkipDir
		}
		add(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, f := range extra {
		if f != "" {
			add(filepath.Dir(f))
		}
	}
	return dirs, nil
}

// triggers returns true if the event should cause a new run.
func triggers(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	switch filepath.Ext(ev.Name) {
	case ".go", ".sql", ".yaml", ".yml":
		return !strings.HasSuffix(ev.Name, "_test.go")
	}
	return false
}

// watch runs the analysis, then runs it again every time a source, schema or config file changes, until interrupted.
func watch(o options) error {
	c, err := loadConfig(o)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not start watcher: %w", err)
	}
	defer w.Close()
	dirs, err := watchedDirs(o.dir, append(o.schemaPaths(c), o.configPath)...)
	if err != nil {
		return err
	}
	for _, d := range dirs {
		if err := w.Add(d); err != nil {
			return fmt.Errorf("could not watch %s: %w", d, err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runOnce := func() {
		if err := run(o); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		fmt.Fprintf(os.Stderr, "Watching %d directories for changes\n", len(dirs))
	}
	runOnce()

	timer := time.NewTimer(settle)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if triggers(ev) {
				timer.Reset(settle)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		case <-timer.C:
			runOnce()
		}
	}
}
