package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the dashboard key bindings.
type keyMap struct {
	NextMetric   key.Binding
	PrevMetric   key.Binding
	CycleClass   key.Binding
	Up           key.Binding
	Down         key.Binding
	Toggle       key.Binding
	SelectAll    key.Binding
	ClearDevices key.Binding
	FocusNext    key.Binding
	Details      key.Binding
	Copy         key.Binding
	Export       key.Binding
	Help         key.Binding
	Quit         key.Binding
}

var keys = keyMap{
	NextMetric:   key.NewBinding(key.WithKeys("right", "l", "]"), key.WithHelp("→/l", "next metric")),
	PrevMetric:   key.NewBinding(key.WithKeys("left", "h", "["), key.WithHelp("←/h", "prev metric")),
	CycleClass:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "cycle class")),
	Up:           key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:         key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Toggle:       key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "toggle device")),
	SelectAll:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "all devices")),
	ClearDevices: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "no devices")),
	FocusNext:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next pane")),
	Details:      key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "details")),
	Copy:         key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy commands")),
	Export:       key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export")),
	Help:         key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextMetric, k.CycleClass, k.FocusNext, k.Toggle, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextMetric, k.PrevMetric, k.CycleClass},
		{k.Up, k.Down, k.FocusNext},
		{k.Toggle, k.SelectAll, k.ClearDevices},
		{k.Details, k.Copy, k.Export},
		{k.Help, k.Quit},
	}
}
