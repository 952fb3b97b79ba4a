// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

package task

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/toeirei/devrun/config"
)

// Environment decides where tools come from: the project's isolated
// environment directory (venv mode) or the invoker's PATH.
type Environment struct {
	mode     string
	root     string
	dir      string
	host     map[string]bool
	lookPath func(string) (string, error)
}

// NewEnvironment builds the tool resolver for a project rooted at root.
func NewEnvironment(root string, cfg config.EnvConfig) *Environment {
	dir := cfg.Dir
	if dir != "" && !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	e := &Environment{
		mode:     cfg.Mode,
		root:     root,
		dir:      dir,
		host:     make(map[string]bool, len(cfg.HostTools)),
		lookPath: exec.LookPath,
	}
	for _, t := range cfg.HostTools {
		e.host[t] = true
	}
	return e
}

// Isolated reports whether tools are resolved inside the environment dir.
func (e *Environment) Isolated() bool {
	return e.mode == config.ModeVenv
}

// Dir returns the absolute environment directory.
func (e *Environment) Dir() string {
	return e.dir
}

// BinDir returns the directory holding the environment's executables.
func (e *Environment) BinDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(e.dir, "Scripts")
	}
	return filepath.Join(e.dir, "bin")
}

// Provisioned reports whether the environment directory has been created.
func (e *Environment) Provisioned() bool {
	if e.dir == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(e.dir, "pyvenv.cfg"))
	return err == nil
}

// IsHostTool reports whether tool always comes from PATH.
func (e *Environment) IsHostTool(tool string) bool {
	return e.host[tool]
}

// Inside reports whether tool is resolved inside the environment.
func (e *Environment) Inside(tool string) bool {
	return e.Isolated() && !e.IsHostTool(tool) && !hasPathSeparator(tool)
}

// Resolve returns the executable path for tool. Tools given with a path
// are taken relative to the project root.
func (e *Environment) Resolve(taskName, tool string, inside bool) (string, error) {
	if hasPathSeparator(tool) {
		p := tool
		if !filepath.IsAbs(p) {
			p = filepath.Join(e.root, p)
		}
		if isFile(p) {
			return p, nil
		}
		return "", &ToolNotFoundError{Task: taskName, Tool: tool, Where: filepath.Dir(p)}
	}

	if inside {
		candidate := filepath.Join(e.BinDir(), tool)
		if runtime.GOOS == "windows" && filepath.Ext(candidate) == "" {
			candidate += ".exe"
		}
		if isFile(candidate) {
			return candidate, nil
		}
		return "", &ToolNotFoundError{Task: taskName, Tool: tool, Where: e.BinDir()}
	}

	p, err := e.lookPath(tool)
	if err != nil {
		return "", &ToolNotFoundError{Task: taskName, Tool: tool, Where: "PATH"}
	}
	return p, nil
}

// Environ returns the child environment. Inside the isolated environment
// VIRTUAL_ENV is set, its bin dir leads PATH and PYTHONHOME is dropped.
func (e *Environment) Environ(inside bool) []string {
	envMap := make(map[string]string)
	for _, kv := range os.Environ() {
		if idx := strings.Index(kv, "="); idx > 0 {
			envMap[kv[:idx]] = kv[idx+1:]
		}
	}

	if inside {
		pathKey := "PATH"
		for k := range envMap {
			// Windows spells it "Path"
			if strings.EqualFold(k, "PATH") {
				pathKey = k
				break
			}
		}
		envMap["VIRTUAL_ENV"] = e.dir
		if cur := envMap[pathKey]; cur != "" {
			envMap[pathKey] = e.BinDir() + string(os.PathListSeparator) + cur
		} else {
			envMap[pathKey] = e.BinDir()
		}
		delete(envMap, "PYTHONHOME")
	}

	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}

func hasPathSeparator(tool string) bool {
	return strings.ContainsRune(tool, '/') || strings.ContainsRune(tool, filepath.Separator)
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
