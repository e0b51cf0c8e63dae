package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all dashboard key bindings with built-in help text.
type KeyMap struct {
	Quit      key.Binding
	ForceQuit key.Binding
	Help      key.Binding
	Escape    key.Binding

	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding

	NextMetric key.Binding
	PrevMetric key.Binding
	Refresh    key.Binding
	Pause      key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQuit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "force quit")),
		Help:      key.NewBinding(key.WithKeys("?", "h"), key.WithHelp("?/h", "help")),
		Escape:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),

		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "scroll up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "scroll down")),
		PageUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "page up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "page down")),

		NextMetric: key.NewBinding(key.WithKeys("]", "tab"), key.WithHelp("]/tab", "next metric")),
		PrevMetric: key.NewBinding(key.WithKeys("[", "shift+tab"), key.WithHelp("[/shift+tab", "prev metric")),
		Refresh:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh now")),
		Pause:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "pause/resume")),
	}
}

// ShortHelp lists the bindings shown in the status line.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.NextMetric, k.Pause, k.Quit}
}

// FullHelp lists every binding, grouped for the help modal.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextMetric, k.PrevMetric, k.Refresh, k.Pause},
		{k.Help, k.Escape, k.Quit, k.ForceQuit},
		{k.Up, k.Down, k.PageUp, k.PageDown},
	}
}
