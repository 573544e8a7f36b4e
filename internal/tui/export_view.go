package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/brizzai/agency-chat/internal/chat"
	"github.com/brizzai/agency-chat/internal/models"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ExportView handles prompting for a filename and exporting the conversation
type ExportView struct {
	messages     []models.ChatMessage
	textInput    textinput.Model
	err          error
	width        int
	height       int
	exportStatus string
	Success      bool
	Path         string
}

// NewExportView creates a new export view
func NewExportView(messages []models.ChatMessage) ExportView {
	ti := textinput.New()
	ti.Placeholder = "conversation.yaml"
	ti.Focus()
	ti.Width = 40

	return ExportView{
		messages:  messages,
		textInput: ti,
	}
}

// Init initializes the export view
func (m ExportView) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the export view
func (m ExportView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			return m, func() tea.Msg { return BackToChatMsg{} }
		case "enter":
			if m.Success {
				return m, nil
			}
			filename := strings.TrimSpace(m.textInput.Value())
			if filename == "" {
				m.exportStatus = "Please enter a filename"
				return m, nil
			}

			path, err := chat.ExportToFile(m.messages, filename)
			if err != nil {
				m.err = err
				m.exportStatus = errorMessageStyle(fmt.Sprintf("Error exporting: %v", err))
				return m, nil
			}

			m.Success = true
			m.Path = path
			m.exportStatus = completeMessageStyle(fmt.Sprintf("Exported %s to %s", pluralize(len(m.messages), "message"), path))
			return m, tea.Tick(time.Second, func(time.Time) tea.Msg {
				return BackToChatMsg{}
			})
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

// View renders the export form centred in the window
func (m ExportView) View() string {
	lines := []string{
		titleStyle.Render("Export Conversation"),
		"",
		fmt.Sprintf("Export %s to (.yaml or .json):", pluralize(len(m.messages), "message")),
		m.textInput.View(),
	}
	if m.exportStatus != "" {
		lines = append(lines, "", m.exportStatus)
	}
	lines = append(lines, "", helpStyle.Render("(esc) Back to chat | (enter) Export"))

	body := lipgloss.JoinVertical(lipgloss.Center, lines...)
	if m.width == 0 || m.height == 0 {
		return body
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
}
