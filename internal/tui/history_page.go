package tui

import (
	chatmodels "github.com/brizzai/agency-chat/internal/models"
	"github.com/brizzai/agency-chat/internal/tui/models"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// historyKeyMap holds key bindings for the history list actions.
type historyKeyMap struct {
	export key.Binding
	back   key.Binding
	quit   key.Binding
}

// ExportMsg asks the app to open the export view for messages
type ExportMsg struct {
	Messages []chatmodels.ChatMessage
}

// BackToChatMsg returns to the conversation
type BackToChatMsg struct{}

func newHistoryKeyMap() *historyKeyMap {
	return &historyKeyMap{
		export: key.NewBinding(
			key.WithKeys("E", "e"),
			key.WithHelp("E", "Export"),
		),
		back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Back to chat"),
		),
		quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "Quit"),
		),
	}
}

// HistoryPageModel lists the conversation so it can be filtered and
// exported selectively.
type HistoryPageModel struct {
	list list.Model
	keys *historyKeyMap
}

// NewHistoryPageModel creates the list for a set of messages
func NewHistoryPageModel(messages []chatmodels.ChatMessage) HistoryPageModel {
	keys := newHistoryKeyMap()

	items := make([]list.Item, len(messages))
	for i, msg := range messages {
		items[i] = models.MessageItem{Message: msg}
	}
	delegate := newItemDelegate(newDelegateKeyMap())

	l := list.New(items, delegate, 0, 0)
	l.Title = titleStyle.Render("Conversation history")
	l.SetShowFilter(true)
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{
			keys.export,
			keys.back,
			keys.quit,
		}
	}
	return HistoryPageModel{list: l, keys: keys}
}

// Init returns the initial command for the history model.
func (m HistoryPageModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the list.
func (m HistoryPageModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.back):
			if m.list.FilterState() == list.FilterApplied {
				break
			}
			return m, func() tea.Msg { return BackToChatMsg{} }
		case key.Matches(msg, m.keys.export):
			return m, func() tea.Msg {
				return ExportMsg{Messages: m.Selected()}
			}
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the list
func (m HistoryPageModel) View() string {
	return docStyle.Render(m.list.View())
}

// Selected returns the visible messages not excluded from export
func (m HistoryPageModel) Selected() []chatmodels.ChatMessage {
	visible := m.list.VisibleItems()
	result := make([]chatmodels.ChatMessage, 0, len(visible))
	for _, item := range visible {
		mi := item.(models.MessageItem)
		if !mi.Excluded {
			result = append(result, mi.Message)
		}
	}
	return result
}
