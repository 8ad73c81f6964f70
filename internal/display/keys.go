package display

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/hammamikhairi/ottoplate/internal/domain"
)

// keyMap is the set of bindings shown in the help line.
type keyMap struct {
	Prev   key.Binding
	Next   key.Binding
	Pick   key.Binding
	Create key.Binding
	Reset  key.Binding
	Help   key.Binding
	Quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Prev:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "previous dish")),
		Next:   key.NewBinding(key.WithKeys("right", "l", "tab"), key.WithHelp("→", "next dish")),
		Pick:   key.NewBinding(key.WithKeys("1", "2"), key.WithHelp("1/2", "pick dish")),
		Create: key.NewBinding(key.WithKeys("enter", "c"), key.WithHelp("enter", "create")),
		Reset:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
		Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// sync enables only the bindings that make sense in state s. Selection and
// creation are off while busy; reset exists only in the error state.
func (k *keyMap) sync(s domain.State) {
	busy := s.Busy()
	k.Prev.SetEnabled(!busy)
	k.Next.SetEnabled(!busy)
	k.Pick.SetEnabled(!busy)
	k.Create.SetEnabled(!busy)
	k.Reset.SetEnabled(s == domain.StateError)
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pick, k.Create, k.Reset, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Prev, k.Next, k.Pick},
		{k.Create, k.Reset},
		{k.Help, k.Quit},
	}
}
