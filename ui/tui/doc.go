// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

// Package tui implements the interactive task picker shown when devrun is
// started on a terminal without a task. It only selects a task; running it
// is left to the caller.
package tui
