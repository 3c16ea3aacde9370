package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Detail is one labelled value in a header or result box. Details render in
// the order given.
type Detail struct {
	Key   string
	Value string
}

// Header is the box a command prints before it starts: its title, how it
// was invoked, and the parameters it resolved.
type Header struct {
	Title   string
	Command string
	Params  []Detail
	Width   int
}

func NewHeader(title, command string, params ...Detail) *Header {
	return &Header{Title: title, Command: command, Params: params, Width: terminalWidth()}
}

func (h *Header) SetWidth(width int) *Header {
	h.Width = width
	return h
}

// Render draws the header in the primary color. Parameters go below a
// divider, keys padded to line up.
func (h *Header) Render() string {
	width := ClampWidth(h.Width)

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(strings.ToUpper(h.Title)),
		commandStyle.Render(h.Command),
	)

	if len(h.Params) > 0 {
		divider := dividerStyle.Render(strings.Repeat("─", max(width-6, 10)))
		keyWidth := 0
		for _, p := range h.Params {
			keyWidth = max(keyWidth, lipgloss.Width(p.Key)+3)
		}
		params := lipgloss.NewStyle().PaddingLeft(1).Render(renderDetails(h.Params, keyWidth))
		content = lipgloss.JoinVertical(lipgloss.Left, content, divider, params)
	}

	return box(PrimaryColor, width).Render(content)
}

func (h *Header) String() string {
	return h.Render()
}
