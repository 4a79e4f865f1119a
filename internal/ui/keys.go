package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the overlay's keyboard bindings.
type keyMap struct {
	Quit        key.Binding
	Help        key.Binding
	CycleTheme  key.Binding
	ToggleStats key.Binding

	Up         key.Binding
	Down       key.Binding
	SwitchZone key.Binding

	NextArt  key.Binding
	PrevArt  key.Binding
	ResetArt key.Binding

	ScrollUp   key.Binding
	ScrollDown key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "e"),
			key.WithHelp("e", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h/?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		ToggleStats: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Toggle draft stats"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Previous card"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Next card"),
		),
		SwitchZone: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", "Switch hand/battlefield"),
		),

		NextArt: key.NewBinding(
			key.WithKeys("right", "]"),
			key.WithHelp("→/]", "Next art"),
		),
		PrevArt: key.NewBinding(
			key.WithKeys("left", "["),
			key.WithHelp("←/[", "Previous art"),
		),
		ResetArt: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Reset art"),
		),

		ScrollUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "Scroll detail up"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdown", "Scroll detail down"),
		),
	}
}

// ShortHelp returns key bindings for the footer.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.SwitchZone, k.NextArt, k.ResetArt, k.Help, k.Quit}
}

// FullHelp returns key bindings grouped for the help overlay.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.SwitchZone, k.ScrollUp, k.ScrollDown},
		{k.NextArt, k.PrevArt, k.ResetArt},
		{k.ToggleStats, k.CycleTheme, k.Help, k.Quit},
	}
}
