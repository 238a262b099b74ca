package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up    key.Binding
	down  key.Binding
	enter key.Binding
	back  key.Binding
	tab   key.Binding
	link  key.Binding
	save  key.Binding
	sync  key.Binding
	quit  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		back:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		tab:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "playlists")),
		link:  key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "stream link")),
		save:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "save as playlist")),
		sync:  key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "sync")),
		quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter},
		{k.back, k.tab, k.link},
		{k.save, k.sync, k.quit},
	}
}
