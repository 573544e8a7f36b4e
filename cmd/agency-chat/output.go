package main

import (
	"io"
	"strings"
	"time"

	"github.com/brizzai/agency-chat/internal/chat"
	"github.com/brizzai/agency-chat/internal/models"
	"github.com/pterm/pterm"
)

// maxCellWidth keeps long messages from stretching the history table
const maxCellWidth = 72

// renderHistory writes msgs to w in the requested format.
func renderHistory(w io.Writer, msgs []models.ChatMessage, format chat.Format) error {
	if format != chat.FormatTable {
		return chat.Export(w, msgs, format)
	}

	if len(msgs) == 0 {
		_, err := io.WriteString(w, "No messages yet.\n")
		return err
	}

	data := pterm.TableData{{"Time", "From", "Message"}}
	for _, m := range msgs {
		data = append(data, []string{
			formatTime(m.Timestamp),
			string(m.Sender),
			truncate(m.Text, maxCellWidth),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(data).Render()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// truncate shortens s to n runes on a single line.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
