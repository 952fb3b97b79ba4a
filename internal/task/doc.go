// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

// Package task runs devrun's named tasks.
//
// Every task is a one-shot delegation: the Runner resolves the configured
// argv lists for the task, substitutes variables, locates each tool (inside
// the isolated environment or on PATH) and runs the steps one after another
// with the terminal's stdio attached. The first failing step ends the task
// and its exit code becomes the task's exit code.
//
// Variables use the forms ${name}, ${name:default}, ${env:NAME} and
// ${env:NAME:default}. Substitution happens once per argument, after which
// the argument is passed to the tool as-is; no shell is involved.
package task
