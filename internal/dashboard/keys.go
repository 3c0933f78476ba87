package dashboard

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the dashboard's keyboard shortcuts.
type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	PrevTab   key.Binding
	NextTab   key.Binding
	Toggle    key.Binding
	Refresh   key.Binding
	SwitchURL key.Binding
	Help      key.Binding
	Quit      key.Binding
}

// ShortHelp returns the bindings shown in the mini help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Refresh, k.SwitchURL, k.Help, k.Quit}
}

// FullHelp returns the bindings shown in the expanded help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PrevTab, k.NextTab},
		{k.Toggle, k.Refresh, k.SwitchURL},
		{k.Help, k.Quit},
	}
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	PrevTab: key.NewBinding(
		key.WithKeys("left", "h", "shift+tab"),
		key.WithHelp("←/h", "previous tab"),
	),
	NextTab: key.NewBinding(
		key.WithKeys("right", "l", "tab"),
		key.WithHelp("→/l", "next tab"),
	),
	Toggle: key.NewBinding(
		key.WithKeys("enter", " "),
		key.WithHelp("enter", "toggle"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	SwitchURL: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "switch url"),
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
