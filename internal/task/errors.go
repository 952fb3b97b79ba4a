// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

package task

import (
	"context"
	"errors"
	"fmt"
)

// Process exit codes for failures that did not come from a delegated tool.
const (
	ExitFailure      = 1
	ExitUsage        = 2
	ExitToolNotFound = 127
	ExitInterrupted  = 130
)

var (
	// ErrEmptyMigrationMessage rejects create-migration without a message.
	ErrEmptyMigrationMessage = errors.New("migration message must not be empty")
	// ErrNoCommands is returned for a task with no configured commands.
	ErrNoCommands = errors.New("no commands configured")
	// ErrEmptyCommand is returned for a configured step with no argv.
	ErrEmptyCommand = errors.New("empty command")
)

// ExitError reports a delegated tool that exited non-zero.
type ExitError struct {
	Task string
	Tool string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: %s exited with code %d", e.Task, e.Tool, e.Code)
}

// DependencyInstallError reports a failed package installation.
type DependencyInstallError struct {
	Mode InstallMode
	Err  *ExitError
}

func (e *DependencyInstallError) Error() string {
	return fmt.Sprintf("installing %s dependencies failed: %v", e.Mode, e.Err)
}

func (e *DependencyInstallError) Unwrap() error { return e.Err }

// ToolNotFoundError reports a tool that could not be located.
type ToolNotFoundError struct {
	Task  string
	Tool  string
	Where string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("%s: %s not found in %s", e.Task, e.Tool, e.Where)
}

// ExitCode maps an error returned by a task to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Code > 0 {
			return exitErr.Code
		}
		return ExitFailure
	}

	var notFound *ToolNotFoundError
	switch {
	case errors.As(err, &notFound):
		return ExitToolNotFound
	case errors.Is(err, ErrEmptyMigrationMessage):
		return ExitUsage
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	}
	return ExitFailure
}
