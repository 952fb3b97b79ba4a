// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/toeirei/devrun/buildvars"
	"github.com/toeirei/devrun/config"
	"github.com/toeirei/devrun/internal/i18n"
	"github.com/toeirei/devrun/internal/logging"
	"github.com/toeirei/devrun/internal/task"
	"github.com/toeirei/devrun/internal/telemetry"
)

var version = buildvars.VersionOrDefault("dev")  // set by the linker
var gitCommit = buildvars.CommitOrDefault("dev") // short commit SHA
var buildDate = buildvars.Date                   // RFC3339

const shutdownTimeout = 5 * time.Second

// flagBindings maps persistent flags onto config keys.
var flagBindings = map[string]string{
	"mode":     "env.mode",
	"dir":      "project_dir",
	"language": "language",
}

// app carries the state shared by one command tree.
type app struct {
	cfgFile     string
	verbose     bool
	quiet       bool
	showVersion bool

	in       io.Reader
	cfg      config.Config
	runner   *task.Runner
	shutdown telemetry.ShutdownFunc
}

func newApp(in io.Reader) *app {
	return &app{in: in}
}

// Execute runs the CLI. Task failures are reported here; the caller maps
// the returned error to an exit code with task.ExitCode.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(os.Stdin)
	err := a.command().ExecuteContext(ctx)
	a.close()
	if err != nil {
		reportError(err)
	}
	return err
}

func (a *app) close() {
	if a.shutdown == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.shutdown(ctx); err != nil {
		logging.Debugf("telemetry shutdown: %v", err)
	}
}

func reportError(err error) {
	var exitErr *task.ExitError
	var notFound *task.ToolNotFoundError
	switch {
	case errors.Is(err, context.Canceled):
		// interrupted by the user; the tool has said what it had to say
	case errors.As(err, &exitErr):
		logging.Errorf("%s", i18n.T("task.failed", exitErr.Task, exitErr.Tool, exitErr.Code))
	case errors.As(err, &notFound):
		logging.Errorf("%s", i18n.T("error.tool_not_found", notFound.Task, notFound.Tool, notFound.Where))
	default:
		logging.Errorf("%s", i18n.T("error.generic", err))
	}
}

func getConfigPathFromCli(cmd *cobra.Command) (*string, error) {
	// Only honour --config when the user set it explicitly.
	if !cmd.Flags().Changed("config") {
		return nil, nil
	}
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("could not read --config flag: %w", err)
	}
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
	}
	return &path, nil
}

// setup loads the configuration and builds the task runner. It runs before
// every subcommand.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.showVersion {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), compositeVersion())
		os.Exit(0)
	}

	logging.SetOutput(cmd.ErrOrStderr())

	cfgPath, err := getConfigPathFromCli(cmd)
	if err != nil {
		return err
	}
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = "."
	}

	cfg, err := config.LoadConfig[config.Config](cmd, config.Defaults(), cfgPath, flagBindings, dir)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("dir") {
		cfg.ProjectDir = dir
	}

	level := cfg.LogLevel
	switch {
	case a.verbose:
		level = "debug"
	case a.quiet:
		level = "warn"
	}
	if err := logging.SetLevel(level); err != nil {
		return err
	}

	i18n.Init(cfg.Language)
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	a.shutdown = telemetry.Setup(cmd.Context(), cfg.Telemetry, "devrun")

	r, err := task.New(cfg, task.WithStreams(a.in, cmd.OutOrStdout(), cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	a.runner = r
	logging.Debugf("project %s, env mode %s", r.Root(), cfg.Env.Mode)
	return nil
}

// NewRootCmd creates a fresh command tree reading from os.Stdin.
func NewRootCmd() *cobra.Command {
	return newApp(os.Stdin).command()
}

func (a *app) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devrun",
		Short: "Devrun runs the development tasks of a Python web service.",
		Long: `Devrun wraps the everyday chores of a Python web service: creating the
virtual environment, installing dependencies, running the server with
live reload, testing, linting, formatting, containers and migrations.
Every task delegates to the usual tool and exits with its exit code.

Running without a task on a terminal opens an interactive task picker.`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		RunE:              a.runRoot,
	}
	cmd.Version = compositeVersion()
	cmd.SetVersionTemplate("{{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug output")
	pf.BoolVarP(&a.quiet, "quiet", "q", false, "Only print warnings and errors")
	pf.BoolVarP(&a.showVersion, "version", "V", false, "Print version and exit")
	pf.String("language", "en", `Message language ("en", "de")`)
	pf.StringP("dir", "C", ".", "Project directory")
	pf.String("mode", "", `Environment mode ("venv", "path")`)
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.SetHelpCommand(a.helpCommand())
	cmd.AddCommand(a.taskCommands()...)
	cmd.AddCommand(
		a.tasksCommand(),
		a.configCommand(),
		versionCommand(),
	)
	return cmd
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			v, c, d := resolveBuildVersion(nil)
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "version: %s\n", v)
			_, _ = fmt.Fprintf(out, "commit: %s\n", c)
			if d != "" {
				_, _ = fmt.Fprintf(out, "built: %s\n", d)
			}
		},
	}
}

func compositeVersion() string {
	v, c, d := resolveBuildVersion(nil)
	out := v
	if c != "" && c != "dev" && c != v {
		out += " (" + c + ")"
	}
	if d != "" {
		out += " built: " + d
	}
	return out
}

// resolveBuildVersion computes the best-available version, commit and build
// date for the running binary. If `info` is nil, it reads build info from
// the runtime.
func resolveBuildVersion(info *debug.BuildInfo) (versionOut, commitOut, dateOut string) {
	resolvedVersion := version
	resolvedCommit := gitCommit
	resolvedDate := buildDate

	if info == nil {
		if local, ok := debug.ReadBuildInfo(); ok {
			info = local
		}
	}

	if info != nil {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			resolvedVersion = info.Main.Version
		}
		// Some build paths only record the module as a dependency.
		if resolvedVersion == "dev" || resolvedVersion == "(devel)" {
			for _, dep := range info.Deps {
				if dep.Path == "github.com/toeirei/devrun" && dep.Version != "" {
					resolvedVersion = dep.Version
					break
				}
			}
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if s.Value != "" && resolvedCommit == "dev" {
					resolvedCommit = s.Value
				}
			case "vcs.time":
				if s.Value != "" && resolvedDate == "" {
					resolvedDate = s.Value
				}
			}
		}
	}

	// Fall back to the ldflags commit so support has something to go on.
	if resolvedVersion == "dev" && gitCommit != "dev" && gitCommit != "" {
		resolvedVersion = gitCommit
	}

	return resolvedVersion, resolvedCommit, resolvedDate
}
