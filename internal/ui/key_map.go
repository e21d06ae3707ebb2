package ui

import (
	"github.com/charmbracelet/bubbles/key"
)

// keyMap defines the key bindings for the TUI.
type keyMap struct {
	next     key.Binding
	back     key.Binding
	prevQ    key.Binding
	nextQ    key.Binding
	upvote   key.Binding
	downvote key.Binding
	category key.Binding
	restart  key.Binding
	enter    key.Binding
	escape   key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		next: key.NewBinding(
			key.WithKeys("n", "right", "l"),
			key.WithHelp("n/→", "next title"),
		),
		back: key.NewBinding(
			key.WithKeys("b", "left", "h"),
			key.WithHelp("b/←", "previous title"),
		),
		prevQ: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "previous recap"),
		),
		nextQ: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next recap"),
		),
		upvote: key.NewBinding(
			key.WithKeys("+", "u"),
			key.WithHelp("+/u", "upvote"),
		),
		downvote: key.NewBinding(
			key.WithKeys("-", "d"),
			key.WithHelp("-/d", "downvote"),
		),
		category: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "category"),
		),
		restart: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "restart feed"),
		),
		enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.next, k.back, k.nextQ, k.upvote, k.category, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.next, k.back, k.restart},
		{k.prevQ, k.nextQ},
		{k.upvote, k.downvote},
		{k.category, k.quit},
	}
}
