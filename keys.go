//go:build !gui

package main

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the reader's key bindings. Line and page scrolling use
// the viewport's own bindings.
type keyMap struct {
	// Navigation
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding

	// Chapters
	NextChapter key.Binding
	PrevChapter key.Binding
	TOC         key.Binding
	Select      key.Binding
	Back        key.Binding

	// Display
	MoreSpacing key.Binding
	LessSpacing key.Binding

	Restart key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "b"),
			key.WithHelp("PgUp/b", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", " ", "f"),
			key.WithHelp("PgDn/space", "page down"),
		),
		Home: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("g", "top"),
		),
		End: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("G", "bottom"),
		),
		NextChapter: key.NewBinding(
			key.WithKeys("n", "]", "right"),
			key.WithHelp("n/→", "next chapter"),
		),
		PrevChapter: key.NewBinding(
			key.WithKeys("p", "[", "left"),
			key.WithHelp("p/←", "prev chapter"),
		),
		TOC: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "contents"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "go to chapter"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		MoreSpacing: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+/-", "spacing"),
		),
		LessSpacing: key.NewBinding(
			key.WithKeys("-"),
		),
		Restart: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "restart"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextChapter, k.PrevChapter, k.TOC, k.MoreSpacing, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Home, k.End},
		{k.NextChapter, k.PrevChapter, k.TOC, k.Select, k.Back},
		{k.MoreSpacing, k.Restart, k.Help, k.Quit},
	}
}
