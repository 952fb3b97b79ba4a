// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

package migrate

import "context"

// Task names run by ExecDriver.
const (
	migrateTask = "migrate"
	createTask  = "create-migration"
)

// Driver applies pending migrations and creates new ones.
type Driver interface {
	Migrate(ctx context.Context) error
	// Create adds a migration described by message and returns the files
	// it wrote, if it knows them.
	Create(ctx context.Context, message string) ([]string, error)
}

// CommandRunner runs a configured task with extra variables.
type CommandRunner interface {
	RunTask(ctx context.Context, name string, vars map[string]string) error
}

// ExecDriver delegates to the commands configured for the migrate and
// create-migration tasks. The message reaches the tool as ${message}.
type ExecDriver struct {
	runner CommandRunner
}

// NewExecDriver returns a driver running tasks through r.
func NewExecDriver(r CommandRunner) *ExecDriver {
	return &ExecDriver{runner: r}
}

// Migrate runs the migrate task.
func (d *ExecDriver) Migrate(ctx context.Context) error {
	return d.runner.RunTask(ctx, migrateTask, nil)
}

// Create runs the create-migration task. The tool reports the files it
// created itself, so none are returned.
func (d *ExecDriver) Create(ctx context.Context, message string) ([]string, error) {
	return nil, d.runner.RunTask(ctx, createTask, map[string]string{"message": message})
}
