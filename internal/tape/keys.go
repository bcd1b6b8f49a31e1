package tape

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Clear key.Binding
	Quit  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear tape"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding { return []key.Binding{k.Clear, k.Quit} }

func (k keyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }
