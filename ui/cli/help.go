// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/toeirei/devrun/internal/i18n"
	"github.com/toeirei/devrun/internal/task"
)

// renderHelp prints the task table. Colours are only used when w is a
// terminal that supports them.
func renderHelp(w io.Writer, mode string) error {
	r := lipgloss.NewRenderer(w)
	titleStyle := r.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	nameStyle := r.NewStyle().Foreground(lipgloss.Color("208"))
	subtleStyle := r.NewStyle().Foreground(lipgloss.Color("240"))

	defs := task.Catalog()
	width := 0
	for _, d := range defs {
		width = max(width, len(d.Name))
	}

	var b strings.Builder
	b.WriteString(i18n.T("help.usage") + "\n\n")
	b.WriteString(titleStyle.Render(i18n.T("help.header")) + "\n")
	for _, d := range defs {
		name := nameStyle.Width(width + 2).Render(d.Name)
		b.WriteString("  " + name + i18n.T(d.SummaryID) + "\n")
	}
	if mode != "" {
		b.WriteString("\n" + subtleStyle.Render(i18n.T("help.mode", mode)) + "\n")
	}

	_, err := fmt.Fprint(w, b.String())
	return err
}

// helpCommand replaces Cobra's help: without arguments it prints the task
// table, with a task name it shows that command's usage.
func (a *app) helpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   task.Help + " [task]",
		Short: summary(task.Help),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				target, _, err := cmd.Root().Find(args)
				if err != nil {
					return err
				}
				return target.Help()
			}
			return renderHelp(cmd.OutOrStdout(), a.cfg.Env.Mode)
		},
	}
}
