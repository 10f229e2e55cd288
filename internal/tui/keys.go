package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the key bindings for the TUI.
type KeyMap struct {
	// Messages
	Enqueue           key.Binding
	EnqueueNavigation key.Binding
	EnqueueWindow     key.Binding
	Compose           key.Binding
	Accept            key.Binding
	Dismiss           key.Binding
	DismissAll        key.Binding
	Suspend           key.Binding

	// Tabs
	NextTab    key.Binding
	PrevTab    key.Binding
	NewTab     key.Binding
	CloseTab   key.Binding
	Navigate   key.Binding
	Reload     key.Binding
	MoveWindow key.Binding

	// Session
	Log        key.Binding
	CopyScript key.Binding
	Back       key.Binding

	// Global
	Quit key.Binding
	Help key.Binding
}

// ShortHelp returns a short help message.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Enqueue, k.Accept, k.Dismiss, k.Help, k.Quit}
}

// FullHelp returns a full help message.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Enqueue, k.EnqueueNavigation, k.EnqueueWindow, k.Compose},
		{k.Accept, k.Dismiss, k.DismissAll, k.Suspend},
		{k.NextTab, k.PrevTab, k.NewTab, k.CloseTab},
		{k.Navigate, k.Reload, k.MoveWindow},
		{k.Log, k.CopyScript, k.Help, k.Quit},
	}
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Enqueue: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "enqueue"),
		),
		EnqueueNavigation: key.NewBinding(
			key.WithKeys("E"),
			key.WithHelp("E", "enqueue until navigation"),
		),
		EnqueueWindow: key.NewBinding(
			key.WithKeys("W"),
			key.WithHelp("W", "enqueue for window"),
		),
		Compose: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "compose"),
		),
		Accept: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "accept"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("d", "x"),
			key.WithHelp("d", "swipe away"),
		),
		DismissAll: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "dismiss all"),
		),
		Suspend: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "suspend/resume"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("tab", "right", "l"),
			key.WithHelp("tab/→", "next tab"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("shift+tab", "left", "h"),
			key.WithHelp("shift+tab/←", "previous tab"),
		),
		NewTab: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "new tab"),
		),
		CloseTab: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "close tab"),
		),
		Navigate: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "follow link"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		MoveWindow: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "move to window"),
		),
		Log: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "event log"),
		),
		CopyScript: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy session as YAML"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}
