// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// Item is one selectable task.
type Item struct {
	Name    string
	Summary string
}

func (i Item) Title() string       { return i.Name }
func (i Item) Description() string { return i.Summary }
func (i Item) FilterValue() string { return i.Name }

// KeyMap holds the picker's own bindings; navigation and filtering come
// from the list.
type KeyMap struct {
	Choose key.Binding
	Quit   key.Binding
}

var DefaultKeyMap = KeyMap{
	Choose: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "run task"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q/esc", "quit"),
	),
}

// Model is the bubbletea model of the picker.
type Model struct {
	list   list.Model
	keys   KeyMap
	choice string
	done   bool
}

// New builds a picker listing items under title.
func New(title string, items []Item) Model {
	entries := make([]list.Item, len(items))
	for i, it := range items {
		entries[i] = it
	}

	l := list.New(entries, list.NewDefaultDelegate(), 60, 20)
	l.Title = title
	l.Styles.Title = titleStyle
	l.Styles.HelpStyle = helpStyle
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{DefaultKeyMap.Choose}
	}

	return Model{list: l, keys: DefaultKeyMap}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v)

	case tea.KeyMsg:
		// keys belong to the filter input while it is open
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Choose):
			if it, ok := m.list.SelectedItem().(Item); ok {
				m.choice = it.Name
			}
			m.done = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Quit):
			m.done = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.done {
		return ""
	}
	return docStyle.Render(m.list.View())
}

// Choice returns the selected task name, or "" when the picker was quit.
func (m Model) Choice() string { return m.choice }
