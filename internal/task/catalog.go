// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

package task

// Task names.
const (
	Venv            = "venv"
	Install         = "install"
	InstallDev      = "install-dev"
	Run             = "run"
	Test            = "test"
	TestCov         = "test-cov"
	Lint            = "lint"
	Format          = "format"
	Clean           = "clean"
	DockerBuild     = "docker-build"
	DockerRun       = "docker-run"
	DockerDown      = "docker-down"
	Migrate         = "migrate"
	CreateMigration = "create-migration"
	SetupDev        = "setup-dev"
	Help            = "help"
)

// Definition describes a task for listings.
type Definition struct {
	Name string
	// SummaryID is the i18n message ID of the one-line description.
	SummaryID string
}

var catalog = []Definition{
	{Name: Venv, SummaryID: "task.venv.summary"},
	{Name: Install, SummaryID: "task.install.summary"},
	{Name: InstallDev, SummaryID: "task.install_dev.summary"},
	{Name: Run, SummaryID: "task.run.summary"},
	{Name: Test, SummaryID: "task.test.summary"},
	{Name: TestCov, SummaryID: "task.test_cov.summary"},
	{Name: Lint, SummaryID: "task.lint.summary"},
	{Name: Format, SummaryID: "task.format.summary"},
	{Name: Clean, SummaryID: "task.clean.summary"},
	{Name: DockerBuild, SummaryID: "task.docker_build.summary"},
	{Name: DockerRun, SummaryID: "task.docker_run.summary"},
	{Name: DockerDown, SummaryID: "task.docker_down.summary"},
	{Name: Migrate, SummaryID: "task.migrate.summary"},
	{Name: CreateMigration, SummaryID: "task.create_migration.summary"},
	{Name: SetupDev, SummaryID: "task.setup_dev.summary"},
	{Name: Help, SummaryID: "task.help.summary"},
}

// Catalog returns every task in display order.
func Catalog() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a task definition by name.
func Lookup(name string) (Definition, bool) {
	for _, d := range catalog {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}
