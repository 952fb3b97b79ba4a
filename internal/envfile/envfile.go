// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

// Package envfile handles the project's dotenv file: seeding it from the
// committed template and reading single values out of it.
package envfile

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/subosito/gotenv"
)

// CopyTemplate copies template to target unless target already exists.
// It reports whether a copy was made. The target is never overwritten.
func CopyTemplate(template, target string) (bool, error) {
	if _, err := os.Stat(target); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("checking %s: %w", target, err)
	}

	src, err := os.Open(template)
	if err != nil {
		return false, fmt.Errorf("opening template: %w", err)
	}
	defer func() { _ = src.Close() }()

	// O_EXCL keeps a concurrently created file intact.
	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("creating %s: %w", target, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(target)
		return false, fmt.Errorf("copying template: %w", err)
	}
	if err := dst.Close(); err != nil {
		return false, fmt.Errorf("closing %s: %w", target, err)
	}
	return true, nil
}

// Read parses a dotenv file into a map.
func Read(path string) (map[string]string, error) {
	env, err := gotenv.Read(path)
	if err != nil {
		return nil, err
	}
	return env, nil
}

// Lookup returns key from the dotenv file at path. A missing file is not
// an error; it simply has no keys.
func Lookup(path, key string) (string, bool, error) {
	env, err := Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading %s: %w", path, err)
	}
	v, ok := env[key]
	return v, ok, nil
}
