// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

// Package watch reports debounced source changes below a set of directories.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/toeirei/devrun/internal/logging"
)

// DefaultSkip lists directory names never descended into.
var DefaultSkip = []string{".git", "venv", ".venv", "node_modules", "__pycache__", ".mypy_cache", ".pytest_cache"}

// Options tunes a Watcher.
type Options struct {
	// Extensions filters changed files by suffix (".py"). Empty means all files.
	Extensions []string
	// Debounce is how long a path must stay quiet before it is reported.
	Debounce time.Duration
	// Skip lists directory names that are not watched. Nil means DefaultSkip.
	Skip []string
}

// Stats counts watcher activity.
type Stats struct {
	Events  int
	Batches int
	Errors  int
}

// Watcher watches directory trees and calls onChange with the sorted list of
// paths that changed once they settle. onChange runs on the watcher goroutine.
type Watcher struct {
	mu       sync.Mutex
	fs       *fsnotify.Watcher
	roots    []string
	exts     []string
	skip     map[string]bool
	debounce time.Duration
	pending  map[string]time.Time
	onChange func(paths []string)
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	stats    Stats
}

// New creates a watcher for roots. Call Start to begin watching.
func New(roots []string, opts Options, onChange func(paths []string)) (*Watcher, error) {
	if len(roots) == 0 {
		return nil, errors.New("watch: no directories given")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}

	skip := opts.Skip
	if skip == nil {
		skip = DefaultSkip
	}
	w := &Watcher{
		fs:       fw,
		roots:    roots,
		exts:     opts.Extensions,
		skip:     make(map[string]bool, len(skip)),
		debounce: opts.Debounce,
		pending:  make(map[string]time.Time),
		onChange: onChange,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, name := range skip {
		w.skip[name] = true
	}
	if w.debounce <= 0 {
		w.debounce = 100 * time.Millisecond
	}
	return w, nil
}

// Start registers every directory below the roots and starts the event loop.
// Roots that do not exist are skipped with a warning; if none can be watched
// Start fails.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	watched := 0
	for _, root := range w.roots {
		if _, err := os.Stat(root); err != nil {
			logging.Warnf("watch: skipping %s: %v", root, err)
			continue
		}
		if err := w.addTree(root); err != nil {
			logging.Warnf("watch: %v", err)
			continue
		}
		watched++
	}
	if watched == 0 {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		_ = w.fs.Close()
		return fmt.Errorf("watch: none of %s could be watched", strings.Join(w.roots, ", "))
	}

	go w.run(ctx)
	return nil
}

// Stop ends the event loop and releases the underlying watcher. It is safe
// to call after the context passed to Start was cancelled.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	if err := w.fs.Close(); err != nil {
		logging.Debugf("watch: close: %v", err)
	}
}

// Stats returns a snapshot of the activity counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// vanished or unreadable subtree
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.skip[d.Name()] {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		logging.Debugf("watch: watching %s", path)
		return nil
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounce / 3
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logging.Warnf("watch: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.skip[info.Name()] {
				return
			}
			if err := w.addTree(event.Name); err != nil {
				logging.Warnf("watch: %v", err)
			}
			// files written before the directory was added raised no event
			w.queueTree(event.Name)
			return
		}
	}

	if !w.matches(event.Name) {
		return
	}

	w.mu.Lock()
	w.stats.Events++
	w.pending[event.Name] = time.Now()
	w.mu.Unlock()
}

// queueTree marks every matching file below root as changed.
func (w *Watcher) queueTree(root string) {
	now := time.Now()
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && w.skip[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !w.matches(path) {
			return nil
		}
		w.mu.Lock()
		w.stats.Events++
		w.pending[path] = now
		w.mu.Unlock()
		return nil
	})
}

func (w *Watcher) matches(path string) bool {
	if len(w.exts) == 0 {
		return true
	}
	for _, ext := range w.exts {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// flush reports pending paths once the newest of them has been quiet for
// the debounce window, so a burst of saves yields one batch.
func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	var newest time.Time
	for _, at := range w.pending {
		if at.After(newest) {
			newest = at
		}
	}
	if time.Since(newest) < w.debounce {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]time.Time)
	w.stats.Batches++
	w.mu.Unlock()

	sort.Strings(paths)
	if w.onChange != nil {
		w.onChange(paths)
	}
}
