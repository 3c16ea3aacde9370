package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/freshpots/freshpots/internal/poller"
)

// Palette
var (
	PrimaryColor = lipgloss.Color("#A0522D") // sienna: borders, titles
	SuccessColor = lipgloss.Color("#43BF6D")
	ErrorColor   = lipgloss.Color("#FF5555")
	WarningColor = lipgloss.Color("#FFA500")
	MutedColor   = lipgloss.Color("#626262")
	TextColor    = lipgloss.Color("#FFFFFF")
	InfoColor    = lipgloss.Color("#5DADE2")
)

const (
	MinTerminalWidth = 48
	MaxContentWidth  = 100

	// defaultHeight is assumed when stdout is not a terminal
	defaultHeight = 24
)

const (
	SuccessMarker = "✓"
	FailureMarker = "✗"
	WarningMarker = "!"
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(TextColor).Bold(true).PaddingLeft(2)
	commandStyle = lipgloss.NewStyle().Foreground(MutedColor).PaddingLeft(2)
	keyStyle     = lipgloss.NewStyle().Foreground(MutedColor)
	valueStyle   = lipgloss.NewStyle().Foreground(TextColor)
	mutedStyle   = lipgloss.NewStyle().Foreground(MutedColor)
	dividerStyle = lipgloss.NewStyle().Foreground(PrimaryColor)
)

// stateColors colors each pot state wherever it is shown.
var stateColors = map[poller.State]lipgloss.Color{
	poller.StateNotConnected: MutedColor,
	poller.StateOff:          TextColor,
	poller.StateOn:           SuccessColor,
	poller.StateDelaying:     WarningColor,
	poller.StateWarming:      ErrorColor,
	poller.StateScheduled:    InfoColor,
}

// StateStyle returns the style for a pot state label.
func StateStyle(s poller.State) lipgloss.Style {
	color, ok := stateColors[s]
	if !ok {
		color = MutedColor
	}
	return lipgloss.NewStyle().Foreground(color).Bold(true)
}

// GetTerminalSize returns stdout's width, clamped with ClampWidth, and
// height. Non-terminals get the minimum width.
func GetTerminalSize() (int, int) {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return MinTerminalWidth, defaultHeight
	}
	return ClampWidth(width), height
}

func terminalWidth() int {
	width, _ := GetTerminalSize()
	return width
}

// ClampWidth keeps a width within [MinTerminalWidth, MaxContentWidth].
func ClampWidth(width int) int {
	return max(MinTerminalWidth, min(width, MaxContentWidth))
}

// box draws a rounded border of the given color, width including the border.
func box(color lipgloss.Color, width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Width(width - 2)
}
