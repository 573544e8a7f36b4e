package models

import (
	"fmt"
	"strings"

	chatmodels "github.com/brizzai/agency-chat/internal/models"
	"github.com/charmbracelet/lipgloss"
)

// MessageItem wraps a ChatMessage for display in the history list
// Implements list.Item
type MessageItem struct {
	Message  chatmodels.ChatMessage
	Excluded bool
}

func (i MessageItem) Title() string {
	who := "You"
	if i.Message.Sender == chatmodels.SenderBot {
		who = "Assistant"
	}
	if i.Message.Timestamp.IsZero() {
		return who
	}
	return fmt.Sprintf("%s · %s", who, i.Message.Timestamp.Local().Format("2006-01-02 15:04"))
}

func (i MessageItem) Description() string {
	if i.Excluded {
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Render("[Excluded from export]")
	}
	return firstLine(i.Message.Text)
}

func (i MessageItem) ToggleExcluded() MessageItem {
	i.Excluded = !i.Excluded
	return i
}

func (i MessageItem) FilterValue() string {
	return string(i.Message.Sender) + " " + i.Message.Text
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx] + " ..."
	}
	return s
}
