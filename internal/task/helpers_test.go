// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

package task

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/toeirei/devrun/config"
)

// project is a temporary Python project with fake tools on PATH. Every
// fake tool appends "<name> <args>" to the log file.
type project struct {
	root string
	bin  string
	log  string
}

func newProject(t *testing.T) *project {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tools are POSIX shell scripts")
	}
	p := &project{root: t.TempDir(), bin: t.TempDir()}
	p.log = filepath.Join(p.bin, "calls.log")
	t.Setenv("DEVRUN_TEST_LOG", p.log)
	t.Setenv("PATH", p.bin+string(os.PathListSeparator)+"/usr/bin:/bin")
	return p
}

// tool installs a fake executable that logs its invocation and exits with code.
func (p *project) tool(t *testing.T, name string, code int) {
	t.Helper()
	p.script(t, name, `echo "`+name+` $*" >> "$DEVRUN_TEST_LOG"`+"\nexit "+strconv.Itoa(code))
}

func (p *project) script(t *testing.T, name, body string) {
	t.Helper()
	writeExec(t, filepath.Join(p.bin, name), body)
}

func (p *project) write(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(p.root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func (p *project) exists(rel string) bool {
	_, err := os.Stat(filepath.Join(p.root, rel))
	return err == nil
}

// calls returns the logged invocations in order.
func (p *project) calls(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(p.log)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func (p *project) config(mode string) config.Config {
	return config.Config{
		Language:   "en",
		ProjectDir: p.root,
		Env: config.EnvConfig{
			Mode:      mode,
			Dir:       "venv",
			Python:    "python3",
			Template:  ".env.example",
			File:      ".env",
			HostTools: []string{"docker", "docker-compose", "git"},
		},
		Server: config.ServerConfig{
			App:      "app.main:app",
			Host:     "0.0.0.0",
			Port:     8000,
			Command:  []string{"uvicorn", "${app}", "--host", "${host}", "--port", "${port}"},
			Watch:    []string{"app"},
			WatchExt: []string{".py"},
			Debounce: 50 * time.Millisecond,
			Grace:    time.Second,
		},
		Exec: config.ExecConfig{WaitDelay: time.Second},
		Migrate: config.MigrateConfig{
			Driver: config.DriverExec,
			Dir:    "migrations",
			Table:  "schema_migrations",
		},
		Clean: config.CleanConfig{
			Recursive: []string{"__pycache__", ".pytest_cache", ".mypy_cache", ".ruff_cache", "*.pyc", "*.pyo"},
			Root:      []string{"build", "dist", "*.egg-info", "htmlcov", ".coverage", ".coverage.*", "coverage.xml"},
			Exclude:   []string{".git", ".venv", "node_modules"},
		},
	}
}

func (p *project) runner(t *testing.T, cfg config.Config, opts ...Option) *Runner {
	t.Helper()
	opts = append([]Option{
		WithStreams(strings.NewReader(""), os.Stdout, os.Stderr),
		WithLookPath(p.lookPath),
	}, opts...)
	r, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

// lookPath only sees the fake tools, so tools installed on the host do not
// leak into the tests.
func (p *project) lookPath(name string) (string, error) {
	path := filepath.Join(p.bin, name)
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return path, nil
	}
	return "", exec.ErrNotFound
}

func writeExec(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
}
