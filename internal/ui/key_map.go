package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	open       key.Binding
	back       key.Binding
	like       key.Binding
	watchLater key.Binding
	subscribe  key.Binding
	reload     key.Binding
	quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		open:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		back:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		like:       key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "like")),
		watchLater: key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "watch later")),
		subscribe:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "subscribe")),
		reload:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.open, k.back, k.reload},
		{k.like, k.watchLater, k.subscribe},
		{k.quit},
	}
}
