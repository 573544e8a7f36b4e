package tui

import (
	"context"

	"github.com/brizzai/agency-chat/internal/models"
	"github.com/brizzai/agency-chat/internal/sessionview"
	tea "github.com/charmbracelet/bubbletea"
)

// Session is what the chat UI needs from a session view.
type Session interface {
	Snapshot() sessionview.Snapshot
	Changes() <-chan sessionview.Snapshot
	SignIn(ctx context.Context) error
	SignOut(ctx context.Context)
	SendMessage(ctx context.Context, text string) (*models.ChatReply, error)
	ChatHistory(ctx context.Context, limit int) []models.ChatMessage
}

type authChangedMsg sessionview.Snapshot

type sessionClosedMsg struct{}

type replyMsg struct {
	reply *models.ChatReply
	err   error
}

type historyMsg []models.ChatMessage

type signInResultMsg struct{ err error }

type signedOutMsg struct{}

// waitForChange blocks until the session publishes a new snapshot.
func waitForChange(s Session) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-s.Changes()
		if !ok {
			return sessionClosedMsg{}
		}
		return authChangedMsg(snap)
	}
}

func sendMessage(ctx context.Context, s Session, text string) tea.Cmd {
	return func() tea.Msg {
		reply, err := s.SendMessage(ctx, text)
		return replyMsg{reply: reply, err: err}
	}
}

func loadHistory(ctx context.Context, s Session, limit int) tea.Cmd {
	return func() tea.Msg {
		return historyMsg(s.ChatHistory(ctx, limit))
	}
}

func signIn(ctx context.Context, s Session) tea.Cmd {
	return func() tea.Msg {
		return signInResultMsg{err: s.SignIn(ctx)}
	}
}

func signOut(ctx context.Context, s Session) tea.Cmd {
	return func() tea.Msg {
		s.SignOut(ctx)
		return signedOutMsg{}
	}
}
