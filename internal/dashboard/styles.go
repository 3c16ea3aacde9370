package dashboard

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/freshpots/freshpots/internal/ui"
	"github.com/freshpots/freshpots/internal/version"
)

// AppName is shown in the dashboard header
const AppName = "FRESHPOTS"

var (
	labelStyle = lipgloss.NewStyle().
			Foreground(ui.MutedColor).
			Width(14)

	valueStyle = lipgloss.NewStyle().
			Foreground(ui.TextColor)

	stateBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ui.PrimaryColor).
			Padding(1, 3).
			MarginTop(1).
			MarginBottom(1)

	pendingStyle = lipgloss.NewStyle().
			Foreground(ui.WarningColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(ui.ErrorColor).
			Bold(true)

	promptStyle = lipgloss.NewStyle().
			Foreground(ui.PrimaryColor).
			Bold(true)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(ui.PrimaryColor)
)

// buildHeader creates header content with app name, version and endpoint.
func buildHeader(endpoint string) string {
	left := lipgloss.NewStyle().
		Foreground(ui.TextColor).
		Bold(true).
		Render(AppName + " " + version.Version)

	if endpoint == "" {
		endpoint = "searching..."
	}
	right := lipgloss.NewStyle().
		Foreground(ui.MutedColor).
		Render(endpoint)

	return lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right)
}

// renderContainer wraps a screen in the bordered header/content/footer frame
// and fills the terminal.
func renderContainer(header, content, footer string, width, height int) string {
	headerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Bottom: "─"}).
		BorderForeground(ui.PrimaryColor).
		Width(width-4). // Leave room for outer border
		Padding(0, 1)

	footerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Top: "─"}).
		BorderForeground(ui.PrimaryColor).
		Width(width-4).
		Padding(0, 1)

	contentStyle := lipgloss.NewStyle().
		Width(width - 4).
		Padding(0, 2)

	inner := lipgloss.JoinVertical(
		lipgloss.Left,
		headerStyle.Render(header),
		contentStyle.Render(content),
		footerStyle.Render(footer),
	)

	borderStyle := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(ui.PrimaryColor).
		Width(width - 2)
	if height > 2 {
		borderStyle = borderStyle.Height(height - 2).AlignVertical(lipgloss.Top)
	}

	return lipgloss.Place(width, height, lipgloss.Left, lipgloss.Top, borderStyle.Render(inner))
}
