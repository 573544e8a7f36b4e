package tui

import (
	"github.com/brizzai/agency-chat/internal/tui/models"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// newItemDelegate lets the user pick which messages go into an export.
func newItemDelegate(keys *delegateKeyMap) list.DefaultDelegate {
	d := list.NewDefaultDelegate()

	d.UpdateFunc = func(msg tea.Msg, m *list.Model) tea.Cmd {
		item, ok := m.SelectedItem().(models.MessageItem)
		if !ok {
			return nil
		}

		switch msg := msg.(type) {
		case tea.KeyMsg:
			switch {
			case key.Matches(msg, keys.includeAll):
				restored := 0
				for i, it := range m.Items() {
					if mi, ok := it.(models.MessageItem); ok && mi.Excluded {
						mi.Excluded = false
						m.SetItem(i, mi)
						restored++
					}
				}
				return m.NewStatusMessage(statusMessageStyle("Restored " + pluralize(restored, "message")))
			case key.Matches(msg, keys.exclude):
				updated := item.ToggleExcluded()
				m.SetItem(m.Index(), updated)
				if updated.Excluded {
					return m.NewStatusMessage(statusMessageStyle("Excluded " + item.Title() + " from the export"))
				}
				return m.NewStatusMessage(statusMessageStyle("Added " + item.Title() + " back to the export"))
			}
		}
		return nil
	}

	help := []key.Binding{keys.exclude, keys.includeAll}

	d.ShortHelpFunc = func() []key.Binding {
		return help
	}

	d.FullHelpFunc = func() [][]key.Binding {
		return [][]key.Binding{help}
	}

	return d
}

// delegateKeyMap holds key bindings for list item actions.
type delegateKeyMap struct {
	exclude    key.Binding
	includeAll key.Binding
}

// newDelegateKeyMap creates a new delegateKeyMap with default bindings.
func newDelegateKeyMap() *delegateKeyMap {
	return &delegateKeyMap{
		exclude: key.NewBinding(
			key.WithKeys("x", "backspace"),
			key.WithHelp("x", "Exclude from export"),
		),
		includeAll: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Include all"),
		),
	}
}
