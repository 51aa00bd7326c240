package dashboard

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit    key.Binding
	Help    key.Binding
	Refresh key.Binding

	Up   key.Binding
	Down key.Binding

	CycleStatus key.Binding
	CycleTime   key.Binding
	CustomRange key.Binding
	ToggleMine  key.Binding
	CycleStaff  key.Binding

	MarkOpen       key.Binding
	MarkInProgress key.Binding
	MarkDone       key.Binding
	CycleAssignee  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "down"),
		),
		CycleStatus: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "status filter"),
		),
		CycleTime: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "time range"),
		),
		CustomRange: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "custom range"),
		),
		CycleStaff: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "assignee filter"),
		),
		ToggleMine: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "mine/all"),
		),
		MarkOpen: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open"),
		),
		MarkInProgress: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "in progress"),
		),
		MarkDone: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "done"),
		),
		CycleAssignee: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "assign"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.MarkOpen, k.MarkInProgress, k.MarkDone, k.CycleAssignee, k.CycleStatus, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Refresh, k.Quit, k.Help},
		{k.CycleStatus, k.CycleTime, k.CustomRange, k.ToggleMine, k.CycleStaff},
		{k.MarkOpen, k.MarkInProgress, k.MarkDone, k.CycleAssignee},
	}
}
