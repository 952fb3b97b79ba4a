// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for Devrun.
//
// Usage:
//
//	go run . [flags] <task>
//	./devrun [flags] <task>
//
// See `devrun help` for the available tasks.
package main

import (
	"os"

	"github.com/toeirei/devrun/internal/task"
	"github.com/toeirei/devrun/ui/cli"
)

func main() {
	// Execute reports the failure itself; only the exit code is left.
	if err := cli.Execute(); err != nil {
		os.Exit(task.ExitCode(err))
	}
}
