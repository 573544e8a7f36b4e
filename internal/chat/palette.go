// Package chat holds the interface-independent pieces of the chat widget:
// the slash-command palette, the transcript and transcript export.
package chat

import "strings"

// Command is one entry of the slash-command palette.
type Command struct {
	Label       string
	Description string
	Prefix      string
}

// DefaultCommands are the shortcuts offered by the agency chat.
var DefaultCommands = []Command{
	{Label: "Web Development", Description: "Websites, platforms and web applications", Prefix: "/web"},
	{Label: "Mobile App", Description: "iOS and Android applications", Prefix: "/app"},
	{Label: "AI Integration", Description: "Chatbots, automation and AI", Prefix: "/ai"},
	{Label: "Project Budget", Description: "Detailed project quote", Prefix: "/budget"},
	{Label: "Talk to a Human", Description: "Get in touch with our team", Prefix: "/human"},
}

// Palette tracks visibility and selection of the command suggestions for
// the current input. Active is -1 when no suggestion is selected.
type Palette struct {
	commands []Command
	visible  bool
	active   int
}

// NewPalette uses DefaultCommands when none are given.
func NewPalette(commands ...Command) *Palette {
	if len(commands) == 0 {
		commands = DefaultCommands
	}
	return &Palette{commands: commands, active: -1}
}

// Update recomputes the palette for a new input value. The palette shows
// while the input is a bare slash word; the active entry is the first
// whose prefix starts with the input.
func (p *Palette) Update(input string) {
	if !strings.HasPrefix(input, "/") || strings.Contains(input, " ") {
		p.visible = false
		return
	}
	p.visible = true
	p.active = -1
	for i, c := range p.commands {
		if strings.HasPrefix(c.Prefix, input) {
			p.active = i
			break
		}
	}
}

func (p *Palette) Visible() bool {
	return p.visible
}

func (p *Palette) Active() int {
	return p.active
}

func (p *Palette) Commands() []Command {
	return p.commands
}

// Next moves the selection down, wrapping to the top.
func (p *Palette) Next() {
	if p.active < len(p.commands)-1 {
		p.active++
		return
	}
	p.active = 0
}

// Prev moves the selection up, wrapping to the bottom.
func (p *Palette) Prev() {
	if p.active > 0 {
		p.active--
		return
	}
	p.active = len(p.commands) - 1
}

// Complete returns the input for the active entry and hides the palette.
// With nothing selected it reports false and leaves the palette open.
func (p *Palette) Complete() (string, bool) {
	if p.active < 0 || p.active >= len(p.commands) {
		return "", false
	}
	p.visible = false
	return p.commands[p.active].Prefix + " ", true
}

// Select completes entry i directly, as a click would.
func (p *Palette) Select(i int) (string, bool) {
	if i < 0 || i >= len(p.commands) {
		return "", false
	}
	p.active = i
	return p.Complete()
}

func (p *Palette) Hide() {
	p.visible = false
}
