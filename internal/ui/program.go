package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/freshpots/freshpots/internal/poller"
)

// Printer writes styled command output. This is how one-shot commands
// report to the terminal; the interactive dashboard renders on its own.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: terminalWidth(),
	}
}

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// SetWidth overrides the detected terminal width
func (p *Printer) SetWidth(width int) {
	p.width = ClampWidth(width)
}

// Print writes content to the output
func (p *Printer) Print(content string) {
	_, _ = fmt.Fprint(p.out, content)
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params ...Detail) {
	p.Println(NewHeader(title, command, params...).SetWidth(p.width).Render())
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details ...Detail) {
	p.Println(NewSuccessResult(title, details...).SetWidth(p.width).Render())
}

// PrintError prints an error result box with troubleshooting tips
func (p *Printer) PrintError(title string, err error, troubleshooting ...string) {
	p.Println(NewFailureResult(title, err, troubleshooting...).SetWidth(p.width).Render())
}

// PrintSnapshot prints what the pot is doing as a result box. A pot that
// did not answer is shown as a failure with troubleshooting tips.
func (p *Printer) PrintSnapshot(title string, snap poller.Snapshot, endpoint string) {
	if !snap.Connected() {
		p.PrintError(title, fmt.Errorf("no reply from %s", orNone(endpoint)), NotConnectedTips...)
		return
	}
	p.PrintSuccess(title, SnapshotDetails(snap, endpoint)...)
}

// SnapshotDetails lists a snapshot's fields for display.
func SnapshotDetails(snap poller.Snapshot, endpoint string) []Detail {
	details := []Detail{
		{Key: "Pot", Value: orNone(endpoint)},
		{Key: "State", Value: RenderState(snap.State)},
		{Key: "Status", Value: snap.Describe()},
	}
	if !snap.At.IsZero() {
		details = append(details, Detail{Key: "Checked", Value: snap.At.Format("15:04:05")})
	}
	return details
}

// RenderState renders a state label in its color.
func RenderState(s poller.State) string {
	return StateStyle(s).Render(s.String())
}

// NotConnectedTips are shown when the pot does not answer.
var NotConnectedTips = []string{
	"Check that the pot is powered on and on the same network",
	"Run 'freshpots scan' to see which pots answer mDNS",
	"Use --host to skip discovery if mDNS is blocked",
	"Raise --response-delay if the pot is slow to answer",
}

func orNone(s string) string {
	if s == "" {
		return mutedStyle.Render("(none)")
	}
	return s
}
