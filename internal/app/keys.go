package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings of the client.
type KeyMap struct {
	Submit       key.Binding
	Locate       key.Binding
	SwitchFocus  key.Binding
	Up           key.Binding
	Down         key.Binding
	FlyTo        key.Binding
	CloseNotice  key.Binding
	DismissToast key.Binding
	Quit         key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "publish"),
		),
		Locate: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "my location"),
		),
		SwitchFocus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "form/list"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		FlyTo: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "show on map"),
		),
		CloseNotice: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close notice"),
		),
		DismissToast: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "dismiss toast"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}
