// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

package task

import (
	"os"
	"regexp"
	"strings"
)

// varPattern matches ${name}, ${name:default}, ${env:NAME} and ${env:NAME:default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// Variables substitutes ${...} references in command arguments. The values
// are fixed at construction, so a Variables is safe for concurrent use.
type Variables struct {
	values map[string]string
}

// NewVariables creates a resolver seeded with values.
func NewVariables(values map[string]string) *Variables {
	v := &Variables{values: make(map[string]string, len(values))}
	for k, val := range values {
		v.values[k] = val
	}
	return v
}

// Resolve replaces variable references in input. extra takes precedence over
// the stored values. References to unknown variables without a default are
// left untouched. Substituted text is never expanded again.
func (v *Variables) Resolve(input string, extra map[string]string) string {
	if !strings.Contains(input, "${") {
		return input
	}

	return varPattern.ReplaceAllStringFunc(input, func(match string) string {
		inner := match[2 : len(match)-1]

		if rest, ok := strings.CutPrefix(inner, "env:"); ok {
			name, def, _ := strings.Cut(rest, ":")
			if val := os.Getenv(name); val != "" {
				return val
			}
			return def
		}

		name, def, hasDefault := strings.Cut(inner, ":")
		if val, ok := extra[name]; ok {
			return val
		}
		if val, ok := v.values[name]; ok && val != "" {
			return val
		}
		if hasDefault {
			return def
		}
		return match
	})
}

// ResolveAll resolves every element of argv into a new slice.
func (v *Variables) ResolveAll(argv []string, extra map[string]string) []string {
	out := make([]string, len(argv))
	for i, arg := range argv {
		out[i] = v.Resolve(arg, extra)
	}
	return out
}

// displayCommand renders argv the way a user would type it in a POSIX shell.
func displayCommand(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		parts[i] = shellQuote(a)
	}
	return strings.Join(parts, " ")
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, c := range s {
		if !isShellSafe(c) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func isShellSafe(c rune) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.' || c == '/' || c == '=' || c == ':' || c == ','
}
