// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/toeirei/devrun/internal/i18n"
	"github.com/toeirei/devrun/internal/task"
	"github.com/toeirei/devrun/ui/tui"
	"golang.org/x/term"
)

// simpleTask wraps a runner operation without arguments or flags.
func (a *app) simpleTask(name string, run func(r *task.Runner, ctx context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: summary(name),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(a.runner, cmd.Context())
		},
	}
}

func summary(name string) string {
	if def, ok := task.Lookup(name); ok {
		return i18n.T(def.SummaryID)
	}
	return ""
}

func (a *app) taskCommands() []*cobra.Command {
	return []*cobra.Command{
		a.simpleTask(task.Venv, (*task.Runner).Venv),
		a.simpleTask(task.Install, func(r *task.Runner, ctx context.Context) error {
			return r.Install(ctx, task.Production)
		}),
		a.simpleTask(task.InstallDev, func(r *task.Runner, ctx context.Context) error {
			return r.Install(ctx, task.Development)
		}),
		a.runCommand(),
		a.simpleTask(task.Test, func(r *task.Runner, ctx context.Context) error {
			return r.RunTests(ctx, false)
		}),
		a.simpleTask(task.TestCov, func(r *task.Runner, ctx context.Context) error {
			return r.RunTests(ctx, true)
		}),
		a.simpleTask(task.Lint, (*task.Runner).Lint),
		a.simpleTask(task.Format, (*task.Runner).Format),
		a.cleanCommand(),
		a.simpleTask(task.DockerBuild, (*task.Runner).DockerBuild),
		a.simpleTask(task.DockerRun, (*task.Runner).DockerRun),
		a.simpleTask(task.DockerDown, (*task.Runner).DockerDown),
		a.simpleTask(task.Migrate, (*task.Runner).Migrate),
		a.createMigrationCommand(),
		a.simpleTask(task.SetupDev, (*task.Runner).SetupDev),
	}
}

func (a *app) runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   task.Run,
		Short: summary(task.Run),
		Long: `Runs the development server until interrupted. With --reload (the
default) the server is restarted whenever a watched source file changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := a.runner.ServerOptions()
			f := cmd.Flags()
			if f.Changed("host") {
				opts.Host, _ = f.GetString("host")
			}
			if f.Changed("port") {
				opts.Port, _ = f.GetInt("port")
			}
			if f.Changed("reload") {
				opts.Reload, _ = f.GetBool("reload")
			}
			if opts.Port < 1 || opts.Port > 65535 {
				return fmt.Errorf("port out of range: %d", opts.Port)
			}
			return a.runner.RunServer(cmd.Context(), opts)
		},
	}
	cmd.Flags().String("host", "0.0.0.0", "Interface to bind")
	cmd.Flags().IntP("port", "p", 8000, "Port to listen on")
	cmd.Flags().Bool("reload", true, "Restart the server when sources change")
	return cmd
}

func (a *app) cleanCommand() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   task.Clean,
		Short: summary(task.Clean),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.runner.Clean(cmd.Context(), dryRun)
			return err
		},
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "List what would be removed without removing it")
	return cmd
}

func (a *app) createMigrationCommand() *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   task.CreateMigration + " [message]",
		Short: summary(task.CreateMigration),
		Long: `Creates a new migration. The message is taken from --message, from the
arguments, or read from standard input when neither is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			msg := message
			if msg == "" && len(args) > 0 {
				msg = strings.Join(args, " ")
			}
			if msg == "" && !cmd.Flags().Changed("message") {
				var err error
				msg, err = readLine(a.in, cmd.ErrOrStderr(), i18n.T("migrate.prompt"), isTerminal(a.in))
				if err != nil {
					return err
				}
			}
			_, err := a.runner.CreateMigration(cmd.Context(), msg)
			return err
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "Migration message")
	return cmd
}

// tasksCommand prints the task names, one per line, for scripts and
// shell completion.
func (a *app) tasksCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List task names",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, def := range task.Catalog() {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), def.Name)
			}
		},
	}
}

// runRoot opens the task picker on a terminal and prints the task table
// otherwise.
func (a *app) runRoot(cmd *cobra.Command, args []string) error {
	if !isTerminal(a.in) || !isTerminal(cmd.OutOrStdout()) {
		return renderHelp(cmd.OutOrStdout(), a.cfg.Env.Mode)
	}

	var items []tui.Item
	for _, def := range task.Catalog() {
		if def.Name == task.Help {
			continue
		}
		items = append(items, tui.Item{Name: def.Name, Summary: i18n.T(def.SummaryID)})
	}
	choice, err := tui.Run(i18n.T("picker.title"), items, a.in, cmd.OutOrStdout())
	if err != nil || choice == "" {
		return err
	}

	sub, _, err := cmd.Find([]string{choice})
	if err != nil {
		return err
	}
	sub.SetContext(cmd.Context())
	return sub.RunE(sub, nil)
}

type fdHolder interface {
	Fd() uintptr
}

func isTerminal(v any) bool {
	f, ok := v.(fdHolder)
	return ok && term.IsTerminal(int(f.Fd()))
}
