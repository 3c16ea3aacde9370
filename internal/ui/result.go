package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ResultType selects a result box's color, marker and label.
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
	ResultWarning
)

type resultLook struct {
	color  lipgloss.Color
	marker string
	label  string
}

var resultLooks = map[ResultType]resultLook{
	ResultSuccess: {SuccessColor, SuccessMarker, "SUCCESS"},
	ResultFailure: {ErrorColor, FailureMarker, "FAILED"},
	ResultWarning: {WarningColor, WarningMarker, "WARNING"},
}

// Result is the box a command prints when it finishes.
type Result struct {
	Type            ResultType
	Title           string
	Details         []Detail
	Error           error
	Troubleshooting []string
	Width           int
}

// NewSuccessResult creates a success box listing details.
func NewSuccessResult(title string, details ...Detail) *Result {
	return &Result{Type: ResultSuccess, Title: title, Details: details, Width: terminalWidth()}
}

// NewFailureResult creates a failure box showing err and troubleshooting tips.
func NewFailureResult(title string, err error, troubleshooting ...string) *Result {
	return &Result{Type: ResultFailure, Title: title, Error: err, Troubleshooting: troubleshooting, Width: terminalWidth()}
}

// NewWarningResult creates a warning box listing details.
func NewWarningResult(title string, details ...Detail) *Result {
	return &Result{Type: ResultWarning, Title: title, Details: details, Width: terminalWidth()}
}

func (r *Result) SetWidth(width int) *Result {
	r.Width = width
	return r
}

func (r *Result) AddDetail(key, value string) *Result {
	r.Details = append(r.Details, Detail{Key: key, Value: value})
	return r
}

// Render draws the result in a double border of its type's color.
func (r *Result) Render() string {
	width := ClampWidth(r.Width)
	look, ok := resultLooks[r.Type]
	if !ok {
		look = resultLooks[ResultSuccess]
	}
	accent := lipgloss.NewStyle().Foreground(look.color)

	lines := []string{
		"",
		accent.Bold(true).Render(fmt.Sprintf(" %s  %s  ─  %s", look.marker, look.label, r.Title)),
		"",
	}
	if r.Error != nil {
		lines = append(lines, accent.Render(" Error: "+r.Error.Error()), "")
	}
	if len(r.Details) > 0 {
		lines = append(lines, renderDetails(r.Details, 15), "")
	}
	if len(r.Troubleshooting) > 0 {
		lines = append(lines, renderTips(r.Troubleshooting, width-8), "")
	}

	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(look.color).
		Width(width-2).
		Padding(0, 2).
		Render(strings.Join(lines, "\n"))
}

func (r *Result) String() string {
	return r.Render()
}

// renderDetails lays details out one per line with keys padded to keyWidth.
func renderDetails(details []Detail, keyWidth int) string {
	key := keyStyle.Width(keyWidth)
	lines := make([]string, len(details))
	for i, d := range details {
		lines[i] = key.Render(" "+d.Key+":") + " " + valueStyle.Render(d.Value)
	}
	return strings.Join(lines, "\n")
}

func renderTips(tips []string, width int) string {
	lines := []string{mutedStyle.Bold(true).Render("Troubleshooting:"), ""}
	for _, tip := range tips {
		lines = append(lines, mutedStyle.Render("  • "+tip))
	}
	return box(MutedColor, width+2).Padding(0, 1).Render(strings.Join(lines, "\n"))
}
