// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"io"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the picker on the given terminal streams and returns the chosen
// task name, or "" when the user quit without choosing.
func Run(title string, items []Item, in io.Reader, out io.Writer) (string, error) {
	final, err := tea.NewProgram(
		New(title, items),
		tea.WithInput(in),
		tea.WithOutput(out),
		tea.WithAltScreen(),
	).Run()
	if err != nil {
		return "", err
	}
	if m, ok := final.(Model); ok {
		return m.Choice(), nil
	}
	return "", nil
}
