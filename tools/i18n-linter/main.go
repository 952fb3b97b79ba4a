// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

// i18n-linter checks the devrun locale files against the source tree. It
// reports keys used in code but missing from a locale, keys no code uses,
// and translations whose fmt verbs differ from the primary locale, which
// would garble the formatted message at runtime.
package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Location stores the file and line number of a found string.
type Location struct {
	Filepath string
	Line     int
}

const (
	localesDir    = "internal/i18n/locales"
	primaryLocale = "active.en.yaml"
	projectRoot   = "."
)

var (
	// i18n.T("some.key") and key-shaped literals such as catalog summary IDs
	usedKeyRe = regexp.MustCompile(`i18n\.T\("([^"]+)"|"([a-z]+\.[a-z_]+(?:\.[a-z_]+)*)"`)
	verbRe    = regexp.MustCompile(`%(?:\[\d+\])?[-+# 0]*\d*(?:\.\d+)?[a-zA-Z]`)
)

func main() {
	os.Exit(run(projectRoot, localesDir, os.Stdout))
}

// run lints root and returns the process exit code: 1 when a locale lacks
// a key or disagrees on placeholders, 0 otherwise.
func run(root, locales string, w io.Writer) int {
	_, _ = fmt.Fprintln(w, "Running i18n linter...")

	usedKeys, err := findUsedKeys(root)
	if err != nil {
		_, _ = fmt.Fprintf(w, "error finding used keys: %v\n", err)
		return 1
	}

	primary, err := loadLocale(filepath.Join(locales, primaryLocale))
	if err != nil {
		_, _ = fmt.Fprintf(w, "error loading primary locale %s: %v\n", primaryLocale, err)
		return 1
	}
	_, _ = fmt.Fprintf(w, "%d keys used in code, %d keys in %s\n\n", len(usedKeys), len(primary), primaryLocale)

	failed := false

	_, _ = fmt.Fprintln(w, "--- Keys used in code but missing from the primary locale ---")
	called := make(map[string]string)
	for k, v := range usedKeys {
		if v == viaCall {
			called[k] = v
		}
	}
	if missing := difference(called, primary); len(missing) > 0 {
		for _, k := range missing {
			_, _ = fmt.Fprintf(w, "  - Missing: %s\n", k)
		}
		failed = true
	} else {
		_, _ = fmt.Fprintln(w, "  none")
	}

	_, _ = fmt.Fprintln(w, "--- Orphaned keys (in the primary locale, unused in code) ---")
	if orphaned := difference(primary, usedKeys); len(orphaned) > 0 {
		for _, k := range orphaned {
			_, _ = fmt.Fprintf(w, "  - Orphaned: %s\n", k)
		}
	} else {
		_, _ = fmt.Fprintln(w, "  none")
	}

	files, err := filepath.Glob(filepath.Join(locales, "*.yaml"))
	if err != nil {
		_, _ = fmt.Fprintf(w, "error finding locale files: %v\n", err)
		return 1
	}
	sort.Strings(files)
	for _, file := range files {
		if filepath.Base(file) == primaryLocale {
			continue
		}
		_, _ = fmt.Fprintf(w, "--- Checking %s ---\n", filepath.Base(file))
		other, err := loadLocale(file)
		if err != nil {
			_, _ = fmt.Fprintf(w, "  - error: %v\n", err)
			failed = true
			continue
		}
		problems := compareLocales(primary, other)
		for _, p := range problems {
			_, _ = fmt.Fprintf(w, "  - %s\n", p)
		}
		if len(problems) > 0 {
			failed = true
		} else {
			_, _ = fmt.Fprintln(w, "  all keys present")
		}
	}

	untranslated, err := findUntranslatedStrings(root, usedKeys, primary)
	if err != nil {
		_, _ = fmt.Fprintf(w, "error scanning for untranslated strings: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(w, "--- Potentially untranslated strings ---")
	if len(untranslated) == 0 {
		_, _ = fmt.Fprintln(w, "  none")
	}
	literals := make([]string, 0, len(untranslated))
	for l := range untranslated {
		literals = append(literals, l)
	}
	sort.Strings(literals)
	for _, l := range literals {
		loc := untranslated[l][0]
		_, _ = fmt.Fprintf(w, "  - Potential: %q (found in %s:%d)\n", l, loc.Filepath, loc.Line)
	}

	if failed {
		_, _ = fmt.Fprintln(w, "\nFound issues that need to be addressed.")
		return 1
	}
	_, _ = fmt.Fprintln(w, "\nAll translation files are consistent.")
	return 0
}

// compareLocales reports keys of primary missing from other and messages
// whose fmt verbs differ.
func compareLocales(primary, other map[string]string) []string {
	var problems []string
	for _, k := range sortedKeys(primary) {
		msg, ok := other[k]
		if !ok {
			problems = append(problems, "Missing: "+k)
			continue
		}
		want, got := verbs(primary[k]), verbs(msg)
		if want != got {
			problems = append(problems, fmt.Sprintf("Placeholders differ in %s: %q vs %q", k, want, got))
		}
	}
	for _, k := range sortedKeys(other) {
		if _, ok := primary[k]; !ok {
			problems = append(problems, "Extra: "+k)
		}
	}
	return problems
}

// verbs returns the sorted fmt verbs of msg; explicit argument indexes let
// translations reorder arguments.
func verbs(msg string) string {
	found := verbRe.FindAllString(strings.ReplaceAll(msg, "%%", ""), -1)
	sort.Strings(found)
	return strings.Join(found, " ")
}

// skipDir excludes tooling, vendored and hidden directories from scans.
func skipDir(name string) bool {
	return name == "tools" || name == "vendor" || name == "testdata" ||
		(len(name) > 1 && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")))
}

func walkGo(root string, fn func(path, content string) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return fn(path, string(content))
	})
}

// viaCall marks keys passed to i18n.T directly. Key-shaped literals
// elsewhere may be config keys or span attributes, so only direct calls
// must exist in the locale.
const viaCall = "call"

// findUsedKeys scans all .go files for translation keys.
func findUsedKeys(root string) (map[string]string, error) {
	keys := make(map[string]string)
	err := walkGo(root, func(_ string, content string) error {
		for _, m := range usedKeyRe.FindAllStringSubmatch(content, -1) {
			if m[1] != "" {
				keys[m[1]] = viaCall
			} else if _, seen := keys[m[2]]; !seen && m[2] != "" {
				keys[m[2]] = ""
			}
		}
		return nil
	})
	return keys, err
}

// findUntranslatedStrings scans for hardcoded strings that might need translation.
func findUntranslatedStrings(root string, usedKeys, allKeys map[string]string) (map[string][]Location, error) {
	untranslated := make(map[string][]Location)
	callRe := regexp.MustCompile(`([a-zA-Z0-9_]+\.)?([a-zA-Z0-9_]+)\("([^"]+)"`)
	// calls whose literal is never shown to users, or is a debug-only message
	ignored := map[string]struct{}{
		"Print": {}, "Println": {}, "Printf": {}, "Fprintf": {}, "Fprintln": {},
		"WriteString": {}, "Debugf": {}, "MustCompile": {}, "Getenv": {}, "Setenv": {},
		"Errorf": {}, "New": {}, "NewBinding": {}, "WithKeys": {}, "WithHelp": {},
		"String": {}, "Int": {}, "Bool": {}, "StringVar": {}, "BoolVar": {},
	}
	keyRe := regexp.MustCompile(`^[a-z_]+\.[a-z._]+$`)
	allCaps := regexp.MustCompile(`^[A-Z_]+$`)

	err := walkGo(root, func(path, content string) error {
		for i, line := range strings.Split(content, "\n") {
			for _, m := range callRe.FindAllStringSubmatch(line, -1) {
				fn, literal := m[2], m[3]
				if _, skip := ignored[fn]; skip {
					continue
				}
				if _, known := allKeys[literal]; known {
					continue
				}
				if _, known := usedKeys[literal]; known {
					continue
				}
				switch {
				case keyRe.MatchString(literal),
					len(literal) < 4,
					!strings.Contains(literal, " "),
					allCaps.MatchString(literal),
					strings.HasPrefix(literal, "http"):
					continue
				}
				untranslated[literal] = append(untranslated[literal], Location{Filepath: path, Line: i + 1})
			}
		}
		return nil
	})
	return untranslated, err
}

// loadLocale reads a YAML locale and returns its messages keyed by their
// dot-separated IDs.
func loadLocale(path string) (map[string]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, err
	}
	out := make(map[string]string)
	flattenYAML("", data, out)
	return out, nil
}

// flattenYAML converts a nested map into dot-separated keys.
func flattenYAML(prefix string, node any, out map[string]string) {
	switch v := node.(type) {
	case map[string]any:
		for k, val := range v {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flattenYAML(key, val, out)
		}
	case []any:
		for i, val := range v {
			flattenYAML(fmt.Sprintf("%s[%d]", prefix, i), val, out)
		}
	default:
		if prefix != "" {
			out[prefix] = fmt.Sprint(v)
		}
	}
}

func difference(a, b map[string]string) []string {
	var out []string
	for k := range a {
		if _, ok := b[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
