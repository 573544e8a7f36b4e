package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.Color("#8b5cf6")
	muted  = lipgloss.AdaptiveColor{Light: "#626262", Dark: "#A49FA5"}

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#0f0f14")).
			Background(accent).
			Padding(0, 1)

	headerUserStyle = lipgloss.NewStyle().
			Foreground(accent).
			Padding(0, 1)

	userBubbleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Background(lipgloss.Color("#4c1d95")).
			Padding(0, 1)

	botBubbleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#1f1f1f", Dark: "#e5e5e5"}).
			Background(lipgloss.AdaptiveColor{Light: "#ececec", Dark: "#262626"}).
			Padding(0, 1)

	timestampStyle = lipgloss.NewStyle().Foreground(muted)

	paletteStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1)

	paletteActiveStyle = lipgloss.NewStyle().Foreground(accent).Bold(true)

	modalStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.DoubleBorder()).
			BorderForeground(accent).
			Padding(1, 3).
			Align(lipgloss.Center)

	helpStyle = lipgloss.NewStyle().Foreground(muted)

	statusMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#7c3aed", Dark: "#a78bfa"}).
				Render

	errorMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#f87171")).
				Render

	completeMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#56FF4E")).
				Render
)

var docStyle = lipgloss.NewStyle().Margin(1, 2)
