package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// loginKeyMap holds key bindings for the login gate.
type loginKeyMap struct {
	confirm key.Binding
	cancel  key.Binding
}

func newLoginKeyMap() *loginKeyMap {
	return &loginKeyMap{
		confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Sign in with Google"),
		),
		cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Cancel"),
		),
	}
}

// LoginModal asks the user to sign in before a message can be sent.
type LoginModal struct {
	keys      *loginKeyMap
	spinner   spinner.Model
	signingIn bool
	err       error
}

type loginCancelledMsg struct{}

type loginRequestedMsg struct{}

func NewLoginModal() LoginModal {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return LoginModal{keys: newLoginKeyMap(), spinner: s}
}

// Update handles keys while the modal is open. Enter is ignored while a
// sign-in is already running.
func (m LoginModal) Update(msg tea.Msg) (LoginModal, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.cancel):
			return m, func() tea.Msg { return loginCancelledMsg{} }
		case key.Matches(msg, m.keys.confirm):
			if m.signingIn {
				return m, nil
			}
			m.signingIn = true
			m.err = nil
			return m, tea.Batch(
				func() tea.Msg { return loginRequestedMsg{} },
				m.spinner.Tick,
			)
		}

	case signInResultMsg:
		m.signingIn = false
		m.err = msg.err
		return m, nil

	case spinner.TickMsg:
		if !m.signingIn {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the modal body.
func (m LoginModal) View() string {
	body := "Sign in to chat with our team.\nYour conversation is saved to your account."
	status := helpStyle.Render("(enter) Sign in with Google | (esc) Cancel")
	switch {
	case m.signingIn:
		status = fmt.Sprintf("%s Waiting for Google sign-in in your browser...", m.spinner.View())
	case m.err != nil:
		status = errorMessageStyle(fmt.Sprintf("Sign-in failed: %v", m.err)) + "\n" + status
	}

	return modalStyle.Render(fmt.Sprintf(
		"%s\n\n%s\n\n%s",
		titleStyle.Render("Sign in required"),
		body,
		status,
	))
}
