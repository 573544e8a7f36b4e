package tui

import (
	"context"

	"github.com/brizzai/agency-chat/internal/models"
	tea "github.com/charmbracelet/bubbletea"
)

// AppModel is the main application model that manages page switching
type AppModel struct {
	chatPage    ChatPageModel
	historyPage HistoryPageModel
	exportView  ExportView
	page        string // "chat", "history" or "export"
	size        tea.WindowSizeMsg
}

// NewAppModel creates the chat application for a session
func NewAppModel(ctx context.Context, s Session, historyLimit int) AppModel {
	return AppModel{
		chatPage: NewChatPageModel(ctx, s, historyLimit),
		page:     "chat",
	}
}

// Init initializes the AppModel
func (m AppModel) Init() tea.Cmd {
	return m.chatPage.Init()
}

// Update handles app-level messages and delegates to the appropriate page model
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case OpenHistoryMsg:
		m.page = "history"
		m.historyPage = NewHistoryPageModel(msg.Messages)
		if m.size.Width > 0 {
			tempModel, _ := m.historyPage.Update(m.size)
			m.historyPage = tempModel.(HistoryPageModel)
		}
		return m, m.historyPage.Init()

	case ExportMsg:
		m.page = "export"
		m.exportView = NewExportView(msg.Messages)
		tempModel, _ := m.exportView.Update(m.size)
		m.exportView = tempModel.(ExportView)
		return m, m.exportView.Init()

	case BackToChatMsg:
		m.page = "chat"
		return m, nil

	case tea.WindowSizeMsg:
		m.size = msg
		var cmd tea.Cmd
		var tempModel tea.Model

		tempModel, cmd = m.chatPage.Update(msg)
		m.chatPage = tempModel.(ChatPageModel)
		cmds = append(cmds, cmd)

		if m.page == "history" {
			tempModel, cmd = m.historyPage.Update(msg)
			m.historyPage = tempModel.(HistoryPageModel)
			cmds = append(cmds, cmd)
		}

		tempModel, cmd = m.exportView.Update(msg)
		m.exportView = tempModel.(ExportView)
		cmds = append(cmds, cmd)

		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		// keys belong to the active page only
	default:
		// session traffic always reaches the chat page
		if m.page != "chat" {
			tempModel, cmd := m.chatPage.Update(msg)
			m.chatPage = tempModel.(ChatPageModel)
			cmds = append(cmds, cmd)
		}
	}

	var cmd tea.Cmd
	var tempModel tea.Model
	switch m.page {
	case "chat":
		tempModel, cmd = m.chatPage.Update(msg)
		m.chatPage = tempModel.(ChatPageModel)
	case "history":
		tempModel, cmd = m.historyPage.Update(msg)
		m.historyPage = tempModel.(HistoryPageModel)
	case "export":
		tempModel, cmd = m.exportView.Update(msg)
		m.exportView = tempModel.(ExportView)
	}
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View renders the active page
func (m AppModel) View() string {
	switch m.page {
	case "history":
		return m.historyPage.View()
	case "export":
		return m.exportView.View()
	default:
		return m.chatPage.View()
	}
}

// Transcript returns the conversation as shown in the chat page
func (m AppModel) Transcript() []models.ChatMessage {
	return m.chatPage.Transcript()
}

// Run starts the chat UI and blocks until the user quits.
func Run(ctx context.Context, s Session, historyLimit int) error {
	p := tea.NewProgram(
		NewAppModel(ctx, s, historyLimit),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	return err
}
