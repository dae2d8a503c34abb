package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Copy        key.Binding
	Next        key.Binding
	Prev        key.Binding
	Search      key.Binding
	Context     key.Binding
	Instruction key.Binding
	Chapters    key.Binding
	Verbosity   key.Binding
	Refresh     key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Copy: key.NewBinding(
			key.WithKeys(" ", "enter"),
			key.WithHelp("space", "copy & next"),
		),
		Next: key.NewBinding(
			key.WithKeys("right", "l", "n"),
			key.WithHelp("→", "next"),
		),
		Prev: key.NewBinding(
			key.WithKeys("left", "h", "p"),
			key.WithHelp("←", "prev"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "jump/search"),
		),
		Context: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "copy context"),
		),
		Instruction: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "copy instruction"),
		),
		Chapters: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "chapters"),
		),
		Verbosity: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "brief/detailed"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "resync"),
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

// ShortHelp returns a slice of key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Copy, k.Prev, k.Next, k.Search, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Copy, k.Prev, k.Next, k.Search},
		{k.Context, k.Instruction, k.Chapters, k.Verbosity},
		{k.Refresh, k.Help, k.Quit},
	}
}
