package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all browser keybindings.
type KeyMap struct {
	// Views
	NextView    key.Binding
	PrevView    key.Binding
	ViewReport  key.Binding
	ViewSQL     key.Binding
	ViewHistory key.Binding

	// Panes
	FocusSidebar  key.Binding
	FocusContent  key.Binding
	ToggleSidebar key.Binding
	ResizeLeft    key.Binding
	ResizeRight   key.Binding

	// Migration
	ToggleDrop key.Binding
	WriteSQL   key.Binding

	// App
	Quit key.Binding
	Help key.Binding
}

// DefaultKeyMap returns the browser keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		NextView: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next view"),
		),
		PrevView: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev view"),
		),
		ViewReport: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "report"),
		),
		ViewSQL: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "sql"),
		),
		ViewHistory: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "history"),
		),
		FocusSidebar: key.NewBinding(
			key.WithKeys("alt+1", "ctrl+h"),
			key.WithHelp("alt+1", "tree"),
		),
		FocusContent: key.NewBinding(
			key.WithKeys("alt+2", "ctrl+l"),
			key.WithHelp("alt+2", "content"),
		),
		ToggleSidebar: key.NewBinding(
			key.WithKeys("ctrl+b"),
			key.WithHelp("ctrl+b", "toggle tree"),
		),
		ResizeLeft: key.NewBinding(
			key.WithKeys("ctrl+left"),
			key.WithHelp("ctrl+←", "shrink tree"),
		),
		ResizeRight: key.NewBinding(
			key.WithKeys("ctrl+right"),
			key.WithHelp("ctrl+→", "grow tree"),
		),
		ToggleDrop: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "toggle drops"),
		),
		WriteSQL: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "write sql"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?", "f1"),
			key.WithHelp("?", "help"),
		),
	}
}

// ShortHelp returns a subset of keybindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.NextView, k.ToggleDrop, k.WriteSQL, k.Quit, k.Help,
	}
}

// FullHelp returns all keybindings grouped for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextView, k.PrevView, k.ViewReport, k.ViewSQL, k.ViewHistory},
		{k.FocusSidebar, k.FocusContent, k.ToggleSidebar, k.ResizeLeft, k.ResizeRight},
		{k.ToggleDrop, k.WriteSQL},
		{k.Quit, k.Help},
	}
}
