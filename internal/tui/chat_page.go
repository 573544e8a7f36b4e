package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/brizzai/agency-chat/internal/chat"
	"github.com/brizzai/agency-chat/internal/models"
	"github.com/brizzai/agency-chat/internal/sessionview"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ChatPageKeyMap holds key bindings for the chat page actions
type ChatPageKeyMap struct {
	send     key.Binding
	signOut  key.Binding
	history  key.Binding
	export   key.Binding
	quit     key.Binding
	up       key.Binding
	down     key.Binding
	complete key.Binding
	dismiss  key.Binding
}

func newChatPageKeyMap() *ChatPageKeyMap {
	return &ChatPageKeyMap{
		send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Send"),
		),
		signOut: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "Sign out"),
		),
		history: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("ctrl+o", "Browse history"),
		),
		export: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "Export"),
		),
		quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "Quit"),
		),
		up:       key.NewBinding(key.WithKeys("up")),
		down:     key.NewBinding(key.WithKeys("down")),
		complete: key.NewBinding(key.WithKeys("tab", "enter")),
		dismiss:  key.NewBinding(key.WithKeys("esc")),
	}
}

// OpenHistoryMsg is sent when the user opens the history browser
type OpenHistoryMsg struct {
	Messages []models.ChatMessage
}

// ChatPageModel is the conversation screen: transcript, input and palette.
type ChatPageModel struct {
	ctx          context.Context
	session      Session
	historyLimit int

	keys       *ChatPageKeyMap
	transcript *chat.Transcript
	palette    *chat.Palette
	input      textarea.Model
	viewport   viewport.Model
	spinner    spinner.Model
	login      LoginModal

	snap      sessionview.Snapshot
	typing    bool
	showLogin bool
	status    string
	width     int
	height    int
}

// NewChatPageModel creates the chat page for a session
func NewChatPageModel(ctx context.Context, s Session, historyLimit int) ChatPageModel {
	ta := textarea.New()
	ta.Placeholder = "Ask us about your project, or type / for shortcuts"
	ta.ShowLineNumbers = false
	ta.CharLimit = 4000
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Ellipsis

	return ChatPageModel{
		ctx:          ctx,
		session:      s,
		historyLimit: historyLimit,
		keys:         newChatPageKeyMap(),
		transcript:   chat.NewTranscript(),
		palette:      chat.NewPalette(),
		input:        ta,
		viewport:     viewport.New(0, 0),
		spinner:      sp,
		login:        NewLoginModal(),
		snap:         s.Snapshot(),
	}
}

// Init starts listening for session changes
func (m ChatPageModel) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink, waitForChange(m.session)}
	if m.snap.IsAuthenticated {
		cmds = append(cmds, loadHistory(m.ctx, m.session, m.historyLimit))
	}
	return tea.Batch(cmds...)
}

// Update handles messages for the chat page
func (m ChatPageModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case authChangedMsg:
		return m.handleAuthChanged(sessionview.Snapshot(msg))

	case sessionClosedMsg:
		return m, nil

	case replyMsg:
		m.typing = false
		if msg.err != nil {
			m.transcript.AddFailure()
			m.status = errorMessageStyle(msg.err.Error())
		} else {
			m.transcript.AddBot(msg.reply.Message)
			m.status = ""
		}
		m.refresh()
		return m, nil

	case historyMsg:
		if n := m.transcript.Merge(msg); n > 0 {
			m.status = statusMessageStyle(fmt.Sprintf("Loaded %s from your history", pluralize(n, "message")))
			m.refresh()
		}
		return m, nil

	case loginRequestedMsg:
		return m, signIn(m.ctx, m.session)

	case loginCancelledMsg:
		m.showLogin = false
		return m, nil

	case signInResultMsg:
		var cmd tea.Cmd
		m.login, cmd = m.login.Update(msg)
		if msg.err == nil {
			m.showLogin = false
		}
		return m, cmd

	case signedOutMsg:
		m.status = statusMessageStyle("Signed out")
		return m, nil

	case spinner.TickMsg:
		var cmds []tea.Cmd
		if m.showLogin {
			var cmd tea.Cmd
			m.login, cmd = m.login.Update(msg)
			cmds = append(cmds, cmd)
		}
		if m.typing {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
		if m.showLogin {
			var cmd tea.Cmd
			m.login, cmd = m.login.Update(msg)
			return m, cmd
		}
		if m.palette.Visible() {
			if handled, cmd := m.handlePaletteKey(msg); handled {
				return m, cmd
			}
		}
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m ChatPageModel) handleAuthChanged(snap sessionview.Snapshot) (tea.Model, tea.Cmd) {
	was := m.snap.IsAuthenticated
	m.snap = snap
	cmds := []tea.Cmd{waitForChange(m.session)}

	switch {
	case !was && snap.IsAuthenticated:
		m.showLogin = false
		cmds = append(cmds, loadHistory(m.ctx, m.session, m.historyLimit))
	case was && !snap.IsAuthenticated && !snap.IsLoading:
		m.status = statusMessageStyle("Your session has ended")
	}
	return m, tea.Batch(cmds...)
}

func (m *ChatPageModel) handlePaletteKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.down):
		m.palette.Next()
	case key.Matches(msg, m.keys.up):
		m.palette.Prev()
	case key.Matches(msg, m.keys.complete):
		if value, ok := m.palette.Complete(); ok {
			m.input.SetValue(value)
			m.input.CursorEnd()
		}
	case key.Matches(msg, m.keys.dismiss):
		m.palette.Hide()
	default:
		return false, nil
	}
	return true, nil
}

func (m ChatPageModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.send):
		return m.submit()
	case key.Matches(msg, m.keys.signOut):
		if !m.snap.IsAuthenticated {
			return m, nil
		}
		return m, signOut(m.ctx, m.session)
	case key.Matches(msg, m.keys.history):
		return m, func() tea.Msg {
			return OpenHistoryMsg{Messages: m.transcript.Messages()}
		}
	case key.Matches(msg, m.keys.export):
		return m, func() tea.Msg {
			return ExportMsg{Messages: m.transcript.Messages()}
		}
	case msg.Type == tea.KeyPgUp || msg.Type == tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.palette.Update(m.input.Value())
	return m, cmd
}

// submit sends the input, or opens the login gate when signed out.
func (m ChatPageModel) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.typing {
		return m, nil
	}
	if !m.snap.IsAuthenticated {
		m.showLogin = true
		m.login = NewLoginModal()
		return m, nil
	}

	m.transcript.AddUser(text)
	m.input.Reset()
	m.palette.Update("")
	m.typing = true
	m.status = ""
	m.refresh()
	return m, tea.Batch(sendMessage(m.ctx, m.session, text), m.spinner.Tick)
}

func (m *ChatPageModel) layout() {
	h, v := docStyle.GetFrameSize()
	width := max(m.width-h, 20)
	m.input.SetWidth(width)
	m.viewport.Width = width
	// header, typing line, status line, help line, input and its spacing
	m.viewport.Height = max(m.height-v-m.input.Height()-6, 3)
	m.refresh()
}

func (m *ChatPageModel) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m ChatPageModel) renderTranscript() string {
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}
	bubbleWidth := max(width*3/4, 10)

	if m.transcript.Len() == 0 {
		return helpStyle.Render("Hi! Tell us what you want to build.")
	}

	var sb strings.Builder
	for _, msg := range m.transcript.Messages() {
		stamp := ""
		if !msg.Timestamp.IsZero() {
			stamp = timestampStyle.Render(msg.Timestamp.Local().Format("15:04"))
		}
		if msg.Sender == models.SenderUser {
			bubble := renderBubble(userBubbleStyle, msg.Text, bubbleWidth)
			sb.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Right, lipgloss.JoinVertical(lipgloss.Right, bubble, stamp)))
		} else {
			bubble := renderBubble(botBubbleStyle, msg.Text, bubbleWidth)
			sb.WriteString(lipgloss.JoinVertical(lipgloss.Left, bubble, stamp))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// renderBubble wraps text at maxWidth and shrinks short messages to fit.
func renderBubble(style lipgloss.Style, text string, maxWidth int) string {
	width := min(lipgloss.Width(text)+style.GetHorizontalPadding(), maxWidth)
	return style.Width(width).Render(text)
}

func (m ChatPageModel) renderPalette() string {
	var sb strings.Builder
	for i, c := range m.palette.Commands() {
		line := fmt.Sprintf("%-8s %s  %s", c.Prefix, c.Label, helpStyle.Render(c.Description))
		if i == m.palette.Active() {
			line = paletteActiveStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		sb.WriteString(line)
		if i < len(m.palette.Commands())-1 {
			sb.WriteString("\n")
		}
	}
	return paletteStyle.Render(sb.String())
}

func (m ChatPageModel) header() string {
	who := helpStyle.Render("not signed in")
	switch {
	case m.snap.IsLoading:
		who = helpStyle.Render("checking session...")
	case m.snap.User != nil:
		who = headerUserStyle.Render(m.snap.User.DisplayName())
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, titleStyle.Render("Agency Chat"), " ", who)
}

// View renders the chat page
func (m ChatPageModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	if m.showLogin {
		return docStyle.Render(lipgloss.Place(m.width-4, m.height-2, lipgloss.Center, lipgloss.Center, m.login.View()))
	}

	typing := ""
	if m.typing {
		typing = helpStyle.Render("Assistant is typing") + m.spinner.View()
	}

	parts := []string{m.header(), m.viewport.View(), typing}
	if m.palette.Visible() {
		parts = append(parts, m.renderPalette())
	}
	parts = append(parts, m.input.View(), m.status,
		helpStyle.Render("enter send | / shortcuts | ctrl+o history | ctrl+s export | ctrl+l sign out | ctrl+c quit"))

	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// Transcript exposes the conversation, for export after the program exits.
func (m ChatPageModel) Transcript() []models.ChatMessage {
	return m.transcript.Messages()
}

// pluralize returns the count with the noun in singular or plural form
func pluralize(count int, singular string) string {
	if count == 1 {
		return "1 " + singular
	}
	return fmt.Sprintf("%d %ss", count, singular)
}
