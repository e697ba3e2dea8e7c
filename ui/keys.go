package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap maps keyboard input 1:1 onto navigation operations.
type keyMap struct {
	Next      key.Binding
	Prev      key.Binding
	ChildNext key.Binding
	ChildPrev key.Binding
	PlayPause key.Binding
	First     key.Binding
	Last      key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Next: key.NewBinding(
			key.WithKeys("right", "l", "n"),
			key.WithHelp("→/l", "next slide"),
		),
		Prev: key.NewBinding(
			key.WithKeys("left", "h", "p"),
			key.WithHelp("←/h", "previous slide"),
		),
		ChildNext: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next follow-up"),
		),
		ChildPrev: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "back out of follow-up"),
		),
		PlayPause: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "play/pause"),
		),
		First: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("g", "first slide"),
		),
		Last: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("G", "last slide"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q", "quit"),
		),
	}
}
