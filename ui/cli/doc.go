// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

// Package cli implements the devrun command line with Cobra. Every task is a
// subcommand; the commands stay thin and delegate to the task runner.
package cli
