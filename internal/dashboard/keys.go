package dashboard

import "github.com/charmbracelet/bubbles/key"

// keyMap defines key bindings for the main screen
type keyMap struct {
	Brew     key.Binding
	Stop     key.Binding
	Delay    key.Binding
	Warm     key.Binding
	Schedule key.Binding
	Refresh  key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Brew, k.Stop, k.Delay, k.Warm, k.Refresh, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Brew, k.Stop, k.Refresh},
		{k.Delay, k.Warm, k.Schedule},
		{k.Help, k.Quit},
	}
}

// promptKeyMap defines key bindings while a timer is being typed
type promptKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k promptKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Confirm, k.Cancel}
}

// FullHelp returns keybindings for the expanded help view
func (k promptKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Confirm, k.Cancel}}
}

func newKeyMap() keyMap {
	return keyMap{
		Brew: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "brew"),
		),
		Stop: key.NewBinding(
			key.WithKeys("t", "s"),
			key.WithHelp("t", "stop"),
		),
		Delay: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delay"),
		),
		Warm: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "warm"),
		),
		Schedule: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "schedule"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
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

func newPromptKeyMap() promptKeyMap {
	return promptKeyMap{
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}
