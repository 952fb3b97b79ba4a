// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

// Package clean removes build, cache and coverage artifacts from a project.
//
// Removal is best-effort: targets that are already gone are skipped and a
// target that cannot be removed is reported in the Report, never as an error.
package clean

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Options selects what is removed.
type Options struct {
	// Recursive patterns match base names anywhere in the tree.
	Recursive []string
	// Root patterns match base names directly below the root only.
	Root []string
	// Exclude lists directory names that are never entered.
	Exclude []string
	// DryRun reports matches without removing anything.
	DryRun bool
}

// Failure records a target that could not be removed.
type Failure struct {
	Path string
	Err  error
}

// Report lists what was (or, on a dry run, would be) removed. Paths are
// relative to the root and sorted.
type Report struct {
	Removed []string
	Failed  []Failure
}

// Run walks root and removes every match. The only error returned is for a
// root that cannot be read.
func Run(root string, opts Options) (Report, error) {
	var rep Report

	info, err := os.Stat(root)
	if err != nil {
		return rep, fmt.Errorf("clean: %w", err)
	}
	if !info.IsDir() {
		return rep, fmt.Errorf("clean: %s is not a directory", root)
	}

	matches, err := find(root, opts)
	if err != nil {
		return rep, err
	}

	for _, rel := range matches {
		if opts.DryRun {
			rep.Removed = append(rep.Removed, rel)
			continue
		}
		if err := os.RemoveAll(filepath.Join(root, rel)); err != nil {
			rep.Failed = append(rep.Failed, Failure{Path: rel, Err: err})
			continue
		}
		rep.Removed = append(rep.Removed, rel)
	}
	return rep, nil
}

// find collects matching paths. A matched directory is not descended into.
func find(root string, opts Options) ([]string, error) {
	exclude := make(map[string]bool, len(opts.Exclude))
	for _, name := range opts.Exclude {
		exclude[name] = true
	}

	var matches []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// unreadable or vanished subtree
			return nil
		}
		if path == root {
			return nil
		}

		name := d.Name()
		if d.IsDir() && exclude[name] {
			return filepath.SkipDir
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		atRoot := filepath.Dir(rel) == "."

		if matchAny(opts.Recursive, name) || (atRoot && matchAny(opts.Root, name)) {
			matches = append(matches, rel)
			if d.IsDir() {
				return filepath.SkipDir
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("clean: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, err := filepath.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}
