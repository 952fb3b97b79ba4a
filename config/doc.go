// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config provides configuration loading, merging, and persistence
// helpers for devrun. It uses Viper for file/env/flag parsing and
// goccy/go-yaml to write `devrun.yaml`.
//
// Precedence, lowest first: built-in defaults, the first `devrun.yaml`
// found in the system dir, the user config dir or the project dir, an
// explicit `--config` file, `DEVRUN_*` environment variables, flags.
package config
