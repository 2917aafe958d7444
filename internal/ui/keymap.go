package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the monitor screen.
type KeyMap struct {
	Start    key.Binding
	Stop     key.Binding
	Increase key.Binding
	Decrease key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Start: key.NewBinding(
			key.WithKeys("s", "enter"),
			key.WithHelp("s", "start recording"),
		),
		Stop: key.NewBinding(
			key.WithKeys("x", "esc"),
			key.WithHelp("x", "stop"),
		),
		Increase: key.NewBinding(
			key.WithKeys("+", "=", "up"),
			key.WithHelp("+", "interval +100ms"),
		),
		Decrease: key.NewBinding(
			key.WithKeys("-", "down"),
			key.WithHelp("-", "interval -100ms"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Stop, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Start, k.Stop},
		{k.Increase, k.Decrease},
		{k.Help, k.Quit},
	}
}
