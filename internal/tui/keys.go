package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Left      key.Binding
	Right     key.Binding
	Up        key.Binding
	Down      key.Binding
	PrevMonth key.Binding
	NextMonth key.Binding
	Today     key.Binding
	Jump      key.Binding
	Add       key.Binding
	Clear     key.Binding
	Quit      key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Left:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←→", "day")),
		Right:     key.NewBinding(key.WithKeys("right", "l")),
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑↓", "week")),
		Down:      key.NewBinding(key.WithKeys("down", "j")),
		PrevMonth: key.NewBinding(key.WithKeys("[", "p", "pgup"), key.WithHelp("[ ]", "month")),
		NextMonth: key.NewBinding(key.WithKeys("]", "n", "pgdown")),
		Today:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "today")),
		Jump:      key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "go to")),
		Add:       key.NewBinding(key.WithKeys("a", "enter"), key.WithHelp("a", "add event")),
		Clear:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Left, k.Up, k.PrevMonth, k.Today, k.Jump, k.Add, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp(), {k.Clear}}
}
