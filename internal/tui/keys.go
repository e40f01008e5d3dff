package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	DragUp   key.Binding
	DragDown key.Binding
	Grab     key.Binding
	Drop     key.Binding
	Cancel   key.Binding
	Top      key.Binding
	Bottom   key.Binding
	StepUp   key.Binding
	StepDown key.Binding
	Line     key.Binding
	UpNext   key.Binding
	Deep     key.Binding
	Delete   key.Binding
	Confirm  key.Binding
	Resync   key.Binding
	Preview  key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		DragUp:   key.NewBinding(key.WithKeys("shift+up", "K"), key.WithHelp("K", "drop on previous")),
		DragDown: key.NewBinding(key.WithKeys("shift+down", "J"), key.WithHelp("J", "drop on next")),
		Grab:     key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "grab")),
		Drop:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "drop here")),
		Cancel:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Top:      key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "top")),
		Bottom:   key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "bottom")),
		StepUp:   key.NewBinding(key.WithKeys("["), key.WithHelp("[", "move up")),
		StepDown: key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "move down")),
		Line:     key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "below the line")),
		UpNext:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "up next")),
		Deep:     key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "deep backlog")),
		Delete:   key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "delete")),
		Confirm:  key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "confirm")),
		Resync:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "resync")),
		Preview:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "preview")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.DragUp, k.DragDown, k.Grab, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.DragUp, k.DragDown},
		{k.Grab, k.Drop, k.Cancel},
		{k.Top, k.Bottom, k.StepUp, k.StepDown},
		{k.Line, k.UpNext, k.Deep, k.Delete},
		{k.Resync, k.Preview, k.Help, k.Quit},
	}
}
