// Package tui provides the full-screen annotation form built on bubbletea.
package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for the annotation form.
type KeyMap struct {
	NextField key.Binding
	PrevField key.Binding
	Submit    key.Binding
	Quit      key.Binding
	ScrollUp  key.Binding
	ScrollDn  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		NextField: key.NewBinding(
			key.WithKeys("tab", "enter"),
			key.WithHelp("tab/enter", "next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "previous field"),
		),
		Submit: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "submit decision"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("esc", "quit session"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("up", "pgup"),
			key.WithHelp("↑/pgup", "scroll commentary"),
		),
		ScrollDn: key.NewBinding(
			key.WithKeys("down", "pgdown"),
			key.WithHelp("↓/pgdn", "scroll commentary"),
		),
	}
}
