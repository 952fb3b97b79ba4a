// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

package task

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/toeirei/devrun/config"
	"github.com/toeirei/devrun/internal/clean"
	"github.com/toeirei/devrun/internal/envfile"
	"github.com/toeirei/devrun/internal/i18n"
	"github.com/toeirei/devrun/internal/logging"
	"github.com/toeirei/devrun/internal/migrate"
	"github.com/toeirei/devrun/internal/process"
	"github.com/toeirei/devrun/internal/server"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstallMode selects the dependency set installed by Install.
type InstallMode string

const (
	Production  InstallMode = "production"
	Development InstallMode = "development"
)

// ServerOptions are the per-invocation settings of RunServer.
type ServerOptions struct {
	Host   string
	Port   int
	Reload bool
}

// Runner executes tasks for one project. Steps run one at a time.
type Runner struct {
	cfg      config.Config
	root     string
	env      *Environment
	vars     *Variables
	commands map[string][][]string

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	tracer trace.Tracer
}

// Option configures a Runner.
type Option func(*Runner)

// WithStreams sets the standard streams handed to delegated tools.
func WithStreams(in io.Reader, out, errw io.Writer) Option {
	return func(r *Runner) {
		r.stdin, r.stdout, r.stderr = in, out, errw
	}
}

// WithTracer overrides the tracer used for task and step spans.
func WithTracer(t trace.Tracer) Option {
	return func(r *Runner) { r.tracer = t }
}

// WithLookPath replaces the PATH lookup used for host tools.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(r *Runner) { r.env.lookPath = fn }
}

// New returns a runner for cfg. Configured commands replace the defaults
// task by task.
func New(cfg config.Config, opts ...Option) (*Runner, error) {
	dir := cfg.ProjectDir
	if dir == "" {
		dir = "."
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve project dir: %w", err)
	}

	commands := config.DefaultCommands()
	for name, steps := range cfg.Commands {
		commands[name] = steps
	}
	if len(cfg.Server.Command) == 0 {
		cfg.Server.Command = []string{"uvicorn", "${app}", "--host", "${host}", "--port", "${port}"}
	}

	r := &Runner{
		cfg:      cfg,
		root:     root,
		env:      NewEnvironment(root, cfg.Env),
		commands: commands,
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		tracer:   otel.Tracer("github.com/toeirei/devrun/internal/task"),
	}
	r.vars = NewVariables(map[string]string{
		"app":         cfg.Server.App,
		"host":        cfg.Server.Host,
		"port":        strconv.Itoa(cfg.Server.Port),
		"python":      cfg.Env.Python,
		"env_dir":     cfg.Env.Dir,
		"project_dir": root,
	})
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Root returns the absolute project directory.
func (r *Runner) Root() string { return r.root }

// Environment returns the tool resolver.
func (r *Runner) Environment() *Environment { return r.env }

// Commands returns the configured argv lists of a task.
func (r *Runner) Commands(name string) [][]string {
	return r.commands[name]
}

type invocation struct {
	tool string
	path string
	args []string
	env  []string
}

// RunTask runs the configured commands of a task in order and stops at the
// first failure. vars are added to the substitution variables.
func (r *Runner) RunTask(ctx context.Context, name string, vars map[string]string) error {
	return r.run(ctx, name, vars, false)
}

func (r *Runner) run(ctx context.Context, name string, vars map[string]string, host bool) error {
	return r.traced(ctx, name, func(ctx context.Context) error {
		steps := r.commands[name]
		if len(steps) == 0 {
			return fmt.Errorf("%s: %w", name, ErrNoCommands)
		}
		for _, argv := range steps {
			inv, err := r.prepare(ctx, name, argv, vars, host)
			if err != nil {
				return err
			}
			if err := r.step(ctx, name, inv); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Runner) traced(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := r.tracer.Start(ctx, "task "+name, trace.WithAttributes(
		attribute.String("devrun.task", name),
		attribute.String("devrun.env_mode", r.cfg.Env.Mode),
	))
	defer span.End()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// prepare resolves variables and the executable of one step. Steps whose
// tool lives in the isolated environment provision it first; host steps
// never do.
func (r *Runner) prepare(ctx context.Context, name string, argv []string, vars map[string]string, host bool) (*invocation, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyCommand)
	}
	args := r.vars.ResolveAll(argv, vars)
	tool := args[0]

	inside := !host && r.env.Inside(tool)
	if inside {
		if err := r.ensureEnv(ctx); err != nil {
			return nil, err
		}
	}

	path, err := r.env.Resolve(name, tool, inside)
	if err != nil {
		return nil, err
	}
	logging.Infof("%s", displayCommand(args))

	return &invocation{
		tool: tool,
		path: path,
		args: args[1:],
		env:  r.env.Environ(inside),
	}, nil
}

func (r *Runner) ensureEnv(ctx context.Context) error {
	if r.env.Provisioned() {
		return nil
	}
	logging.Infof("%s", i18n.T("env.provisioning", r.env.Dir()))
	return r.run(ctx, Venv, nil, true)
}

// attach wires the invocation's directory, environment and streams into cmd.
func (r *Runner) attach(cmd *exec.Cmd, inv *invocation) *exec.Cmd {
	cmd.Dir = r.root
	cmd.Env = inv.env
	cmd.Stdin = r.stdin
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr
	return cmd
}

func (r *Runner) step(ctx context.Context, name string, inv *invocation) error {
	ctx, span := r.tracer.Start(ctx, "step "+filepath.Base(inv.tool), trace.WithAttributes(
		attribute.String("devrun.tool", inv.tool),
		attribute.Int("devrun.args", len(inv.args)),
	))
	defer span.End()

	cmd := r.attach(exec.CommandContext(ctx, inv.path, inv.args...), inv)
	cmd.Cancel = func() error { return process.Interrupt(cmd.Process) }
	cmd.WaitDelay = r.cfg.Exec.WaitDelay

	err := cmd.Run()
	code, _ := process.ExitStatus(err)
	span.SetAttributes(attribute.Int("devrun.exit_code", code))
	if err == nil {
		return nil
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return &ExitError{Task: name, Tool: filepath.Base(inv.tool), Code: code}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%s: %s: %w", name, inv.tool, err)
}

// Venv creates the isolated environment with the host interpreter.
func (r *Runner) Venv(ctx context.Context) error {
	return r.run(ctx, Venv, nil, true)
}

// Install installs the production or development dependency set.
func (r *Runner) Install(ctx context.Context, mode InstallMode) error {
	name := Install
	if mode == Development {
		name = InstallDev
	}
	err := r.RunTask(ctx, name, nil)
	var ee *ExitError
	if errors.As(err, &ee) {
		return &DependencyInstallError{Mode: mode, Err: ee}
	}
	return err
}

// ServerOptions returns the configured server defaults.
func (r *Runner) ServerOptions() ServerOptions {
	return ServerOptions{
		Host:   r.cfg.Server.Host,
		Port:   r.cfg.Server.Port,
		Reload: r.cfg.Server.Reload,
	}
}

// RunServer runs the development server until ctx is cancelled. Without
// reload it also returns when the server exits.
func (r *Runner) RunServer(ctx context.Context, opts ServerOptions) error {
	return r.traced(ctx, Run, func(ctx context.Context) error {
		vars := map[string]string{
			"host": opts.Host,
			"port": strconv.Itoa(opts.Port),
		}
		inv, err := r.prepare(ctx, Run, r.cfg.Server.Command, vars, false)
		if err != nil {
			return err
		}

		watch := make([]string, 0, len(r.cfg.Server.Watch))
		for _, d := range r.cfg.Server.Watch {
			watch = append(watch, r.abs(d))
		}

		logging.Infof("%s", i18n.T("server.starting", opts.Host, opts.Port))
		code, err := server.Run(ctx, server.Config{
			// the supervisor owns shutdown, so the command is not bound to ctx
			Command: func(context.Context) (*exec.Cmd, error) {
				return r.attach(exec.Command(inv.path, inv.args...), inv), nil
			},
			Reload:     opts.Reload,
			Watch:      watch,
			Extensions: r.cfg.Server.WatchExt,
			Debounce:   r.cfg.Server.Debounce,
			Grace:      r.cfg.Server.Grace,
		})
		if err != nil {
			return err
		}
		if code != 0 {
			return &ExitError{Task: Run, Tool: filepath.Base(inv.tool), Code: code}
		}
		return nil
	})
}

// RunTests runs the test suite, with coverage reports when coverage is set.
func (r *Runner) RunTests(ctx context.Context, coverage bool) error {
	if coverage {
		return r.RunTask(ctx, TestCov, nil)
	}
	return r.RunTask(ctx, Test, nil)
}

// Lint runs the linters in order.
func (r *Runner) Lint(ctx context.Context) error { return r.RunTask(ctx, Lint, nil) }

// Format runs the formatters in order.
func (r *Runner) Format(ctx context.Context) error { return r.RunTask(ctx, Format, nil) }

func (r *Runner) DockerBuild(ctx context.Context) error { return r.RunTask(ctx, DockerBuild, nil) }

func (r *Runner) DockerRun(ctx context.Context) error { return r.RunTask(ctx, DockerRun, nil) }

func (r *Runner) DockerDown(ctx context.Context) error { return r.RunTask(ctx, DockerDown, nil) }

// Clean removes cache and build artifacts. Failed removals are reported as
// warnings and do not fail the task.
func (r *Runner) Clean(ctx context.Context, dryRun bool) (clean.Report, error) {
	var rep clean.Report
	err := r.traced(ctx, Clean, func(ctx context.Context) error {
		exclude := slices.Clone(r.cfg.Clean.Exclude)
		if d := r.env.Dir(); d != "" {
			exclude = append(exclude, filepath.Base(d))
		}

		var err error
		rep, err = clean.Run(r.root, clean.Options{
			Recursive: r.cfg.Clean.Recursive,
			Root:      r.cfg.Clean.Root,
			Exclude:   exclude,
			DryRun:    dryRun,
		})
		if err != nil {
			return err
		}

		for _, p := range rep.Removed {
			if dryRun {
				logging.Infof("%s", i18n.T("clean.would_remove", p))
			} else {
				logging.Infof("%s", i18n.T("clean.removed", p))
			}
		}
		for _, f := range rep.Failed {
			logging.Warnf("%s", i18n.T("clean.failed", f.Path, f.Err))
		}
		if len(rep.Removed) == 0 && len(rep.Failed) == 0 {
			logging.Infof("%s", i18n.T("clean.nothing"))
		}
		return nil
	})
	return rep, err
}

func (r *Runner) migrator() (migrate.Driver, error) {
	m := r.cfg.Migrate
	if m.Driver != config.DriverBuiltin {
		return migrate.NewExecDriver(r), nil
	}

	dsn := m.DSN
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" && r.cfg.Env.File != "" {
		v, ok, err := envfile.Lookup(r.abs(r.cfg.Env.File), "DATABASE_URL")
		if err != nil {
			return nil, err
		}
		if ok {
			dsn = v
		}
	}
	return migrate.NewBunDriver(migrate.BunOptions{
		DSN:     dsn,
		Dialect: m.Dialect,
		Dir:     r.abs(m.Dir),
		Table:   m.Table,
		Root:    r.root,
	}), nil
}

// Migrate applies pending migrations.
func (r *Runner) Migrate(ctx context.Context) error {
	d, err := r.migrator()
	if err != nil {
		return err
	}
	if _, ok := d.(*migrate.ExecDriver); ok {
		return d.Migrate(ctx)
	}
	return r.traced(ctx, Migrate, d.Migrate)
}

// CreateMigration generates a new migration named after message. An empty
// or blank message is rejected before any tool runs.
func (r *Runner) CreateMigration(ctx context.Context, message string) ([]string, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMigrationMessage
	}
	d, err := r.migrator()
	if err != nil {
		return nil, err
	}

	var files []string
	create := func(ctx context.Context) error {
		var err error
		files, err = d.Create(ctx, message)
		return err
	}
	if _, ok := d.(*migrate.ExecDriver); ok {
		err = create(ctx)
	} else {
		err = r.traced(ctx, CreateMigration, create)
	}
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if rel, err := filepath.Rel(r.root, f); err == nil {
			f = rel
		}
		logging.Infof("%s", i18n.T("migrate.created", f))
	}
	return files, nil
}

// SetupDev provisions the isolated environment when used, installs the
// development dependencies and creates the env file from its template.
// An existing env file is left alone.
func (r *Runner) SetupDev(ctx context.Context) error {
	return r.traced(ctx, SetupDev, func(ctx context.Context) error {
		if r.env.Isolated() {
			if err := r.ensureEnv(ctx); err != nil {
				return err
			}
		}
		if err := r.Install(ctx, Development); err != nil {
			return err
		}

		target := r.abs(r.cfg.Env.File)
		copied, err := envfile.CopyTemplate(r.abs(r.cfg.Env.Template), target)
		if err != nil {
			return err
		}
		if copied {
			logging.Infof("%s", i18n.T("setup.env_copied", r.cfg.Env.Template, r.cfg.Env.File))
		} else {
			logging.Infof("%s", i18n.T("setup.env_exists", r.cfg.Env.File))
		}
		logging.Infof("%s", i18n.T("setup.done"))
		return nil
	})
}

func (r *Runner) abs(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(r.root, p)
}
