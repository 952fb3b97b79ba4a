// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

package task

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/toeirei/devrun/config"
)

func venvEnv(t *testing.T) (*Environment, string) {
	t.Helper()
	root := t.TempDir()
	return NewEnvironment(root, config.EnvConfig{
		Mode:      config.ModeVenv,
		Dir:       "venv",
		HostTools: []string{"docker"},
	}), root
}

func TestEnvironment_Inside(t *testing.T) {
	e, root := venvEnv(t)
	if e.Dir() != filepath.Join(root, "venv") {
		t.Fatalf("Dir = %s", e.Dir())
	}
	if !e.Inside("pytest") {
		t.Fatalf("pytest should resolve inside the environment")
	}
	if e.Inside("docker") {
		t.Fatalf("host tools never resolve inside")
	}
	if e.Inside("./scripts/lint.sh") {
		t.Fatalf("explicit paths never resolve inside")
	}

	path := NewEnvironment(root, config.EnvConfig{Mode: config.ModePath, Dir: "venv"})
	if path.Isolated() || path.Inside("pytest") {
		t.Fatalf("path mode has no isolated tools")
	}
}

func TestEnvironment_Provisioned(t *testing.T) {
	e, _ := venvEnv(t)
	if e.Provisioned() {
		t.Fatalf("fresh environment reported as provisioned")
	}
	if err := os.MkdirAll(e.Dir(), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(e.Dir(), "pyvenv.cfg"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if !e.Provisioned() {
		t.Fatalf("environment with pyvenv.cfg not reported as provisioned")
	}
}

func TestEnvironment_Resolve(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX layout")
	}
	e, root := venvEnv(t)
	e.lookPath = func(name string) (string, error) {
		if name == "docker" {
			return "/usr/bin/docker", nil
		}
		return "", errors.New("not found")
	}

	writeExec(t, filepath.Join(e.BinDir(), "pytest"), "exit 0")
	writeExec(t, filepath.Join(root, "scripts", "check.sh"), "exit 0")

	if got, err := e.Resolve("test", "pytest", true); err != nil || got != filepath.Join(e.BinDir(), "pytest") {
		t.Fatalf("inside: %s %v", got, err)
	}
	if got, err := e.Resolve("docker-build", "docker", false); err != nil || got != "/usr/bin/docker" {
		t.Fatalf("host: %s %v", got, err)
	}
	if got, err := e.Resolve("lint", "scripts/check.sh", false); err != nil || got != filepath.Join(root, "scripts", "check.sh") {
		t.Fatalf("relative path: %s %v", got, err)
	}

	_, err := e.Resolve("lint", "flake8", true)
	var nf *ToolNotFoundError
	if !errors.As(err, &nf) || nf.Where != e.BinDir() || nf.Task != "lint" {
		t.Fatalf("expected ToolNotFoundError in bin dir, got %v", err)
	}
	_, err = e.Resolve("lint", "flake8", false)
	if !errors.As(err, &nf) || nf.Where != "PATH" {
		t.Fatalf("expected ToolNotFoundError on PATH, got %v", err)
	}
}

func TestEnvironment_Environ(t *testing.T) {
	e, _ := venvEnv(t)
	t.Setenv("PATH", "/usr/bin")
	t.Setenv("PYTHONHOME", "/opt/python")

	get := func(env []string, key string) (string, bool) {
		for _, kv := range env {
			if k, v, ok := strings.Cut(kv, "="); ok && k == key {
				return v, true
			}
		}
		return "", false
	}

	inside := e.Environ(true)
	if v, _ := get(inside, "VIRTUAL_ENV"); v != e.Dir() {
		t.Fatalf("VIRTUAL_ENV = %q", v)
	}
	if v, _ := get(inside, "PATH"); v != e.BinDir()+string(os.PathListSeparator)+"/usr/bin" {
		t.Fatalf("PATH = %q", v)
	}
	if _, ok := get(inside, "PYTHONHOME"); ok {
		t.Fatalf("PYTHONHOME leaked into the isolated environment")
	}

	outside := e.Environ(false)
	if v, _ := get(outside, "PATH"); v != "/usr/bin" {
		t.Fatalf("host PATH changed: %q", v)
	}
	if v, _ := get(outside, "PYTHONHOME"); v != "/opt/python" {
		t.Fatalf("PYTHONHOME dropped for host tools")
	}
}
