package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/freshpots/freshpots/internal/poller"
	"github.com/freshpots/freshpots/internal/protocol"
	"github.com/freshpots/freshpots/internal/timer"
	"github.com/freshpots/freshpots/internal/ui"
)

// Commander sends commands to the pot. *poller.Poller satisfies it.
type Commander interface {
	Command(req protocol.Request) <-chan poller.Snapshot
	Last() (poller.Snapshot, bool)
}

// Messages for async operations
type snapshotMsg poller.Snapshot

type commandDoneMsg struct {
	req  protocol.Request
	snap poller.Snapshot
}

type subscriptionClosedMsg struct{}

// Model is the live pot dashboard.
type Model struct {
	pot      Commander
	snaps    <-chan poller.Snapshot
	endpoint func() string

	// Pot state
	Snapshot    poller.Snapshot
	HasSnapshot bool

	// In-flight command, if any
	Busy    bool
	Sending protocol.Kind
	Err     error

	// Timer entry; Prompt is KindUnknown when not prompting
	Prompt protocol.Kind
	Input  textinput.Model

	// UI state
	Width      int
	Height     int
	Spinner    spinner.Model
	Help       help.Model
	Keys       keyMap
	PromptKeys promptKeyMap

	now func() time.Time
}

// New creates a dashboard driving pot. snaps is a subscription to the
// poller's snapshots; endpoint reports the current pot address (may be nil).
func New(pot Commander, snaps <-chan poller.Snapshot, endpoint func() string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	input := textinput.New()
	input.CharLimit = 24
	input.Width = 24

	width, height := ui.GetTerminalSize()

	m := Model{
		pot:        pot,
		snaps:      snaps,
		endpoint:   endpoint,
		Prompt:     protocol.KindUnknown,
		Input:      input,
		Width:      width,
		Height:     height,
		Spinner:    s,
		Help:       help.New(),
		Keys:       newKeyMap(),
		PromptKeys: newPromptKeyMap(),
		now:        time.Now,
	}
	if last, ok := pot.Last(); ok {
		m.Snapshot, m.HasSnapshot = last, true
	}
	return m
}

// Init starts listening for snapshots
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForSnapshot(m.snaps), m.Spinner.Tick)
}

func waitForSnapshot(ch <-chan poller.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return subscriptionClosedMsg{}
		}
		return snapshotMsg(snap)
	}
}

func sendCommand(pot Commander, req protocol.Request) tea.Cmd {
	return func() tea.Msg {
		return commandDoneMsg{req: req, snap: <-pot.Command(req)}
	}
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = ui.ClampWidth(msg.Width)
		m.Height = msg.Height
		m.Help.Width = m.Width
		return m, nil

	case tea.KeyMsg:
		if m.Prompt != protocol.KindUnknown {
			return m.updatePrompt(msg)
		}
		return m.updateNormal(msg)

	case snapshotMsg:
		m.Snapshot, m.HasSnapshot = poller.Snapshot(msg), true
		return m, waitForSnapshot(m.snaps)

	case subscriptionClosedMsg:
		return m, tea.Quit

	case commandDoneMsg:
		m.Busy = false
		m.Err = nil
		if !msg.snap.Connected() {
			m.Err = fmt.Errorf("%s: no reply from pot", msg.req.Kind)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.Keys.Help):
		m.Help.ShowAll = !m.Help.ShowAll
	case key.Matches(msg, m.Keys.Brew):
		return m.send(protocol.Brew())
	case key.Matches(msg, m.Keys.Stop):
		return m.send(protocol.Stop())
	case key.Matches(msg, m.Keys.Refresh):
		return m.send(protocol.QueryState())
	case key.Matches(msg, m.Keys.Delay):
		return m.startPrompt(protocol.KindDelay)
	case key.Matches(msg, m.Keys.Warm):
		return m.startPrompt(protocol.KindWarm)
	case key.Matches(msg, m.Keys.Schedule):
		return m.startPrompt(protocol.KindSchedule)
	}
	return m, nil
}

func (m Model) startPrompt(kind protocol.Kind) (tea.Model, tea.Cmd) {
	if m.Busy {
		return m, nil
	}
	m.Prompt = kind
	m.Err = nil
	m.Input.SetValue("")
	m.Input.Placeholder = placeholder(kind)
	return m, m.Input.Focus()
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit

	case key.Matches(msg, m.PromptKeys.Cancel):
		m.Prompt = protocol.KindUnknown
		m.Input.Blur()
		return m, nil

	case key.Matches(msg, m.PromptKeys.Confirm):
		req, err := buildTimedRequest(m.Prompt, m.Input.Value(), m.now())
		if err != nil {
			m.Err = err
			return m, nil
		}
		m.Prompt = protocol.KindUnknown
		m.Input.Blur()
		return m.send(req)
	}

	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	return m, cmd
}

// send starts req unless a command is already in flight.
func (m Model) send(req protocol.Request) (tea.Model, tea.Cmd) {
	if m.Busy {
		return m, nil
	}
	m.Busy = true
	m.Sending = req.Kind
	m.Err = nil
	return m, sendCommand(m.pot, req)
}

// buildTimedRequest parses the prompt input for kind. Schedule takes two
// space-separated timers: the delay, then the warm time.
func buildTimedRequest(kind protocol.Kind, input string, now time.Time) (protocol.Request, error) {
	fields := strings.Fields(input)
	if len(fields) != kind.TimerCount() {
		return protocol.Request{}, fmt.Errorf("%s needs %d timer(s), e.g. %s", kind, kind.TimerCount(), placeholder(kind))
	}

	timers := make([]uint16, 0, len(fields))
	for _, f := range fields {
		secs, err := timer.Parse(f, now)
		if err != nil {
			return protocol.Request{}, err
		}
		timers = append(timers, secs)
	}
	return protocol.NewRequest(kind, timers...), nil
}

func placeholder(kind protocol.Kind) string {
	if kind == protocol.KindSchedule {
		return "07:00 30m"
	}
	return "15m"
}

// View renders the dashboard
func (m Model) View() string {
	endpoint := ""
	if m.endpoint != nil {
		endpoint = m.endpoint()
	}

	var footer string
	if m.Prompt != protocol.KindUnknown {
		footer = m.Help.View(m.PromptKeys)
	} else {
		footer = m.Help.View(m.Keys)
	}

	return renderContainer(buildHeader(endpoint), m.renderContent(), footer, m.Width, m.Height)
}

func (m Model) renderContent() string {
	var b strings.Builder

	if !m.HasSnapshot {
		b.WriteString(m.Spinner.View() + " Waiting for the pot...\n")
	} else {
		state := m.Snapshot.State
		b.WriteString(stateBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
			ui.StateStyle(state).Render(strings.ToUpper(state.String())),
			valueStyle.Render(m.Snapshot.Describe()),
		)))
		b.WriteString("\n")
		b.WriteString(m.row("Last checked", m.lastChecked()))
		if m.Snapshot.Sent != protocol.KindUnknown && m.Snapshot.Sent != protocol.KindQueryState {
			b.WriteString(m.row("Last command", m.Snapshot.Sent.String()))
		}
	}

	if m.Busy {
		b.WriteString("\n" + m.Spinner.View() + pendingStyle.Render(" Sending "+m.Sending.String()+"..."))
	}

	if m.Prompt != protocol.KindUnknown {
		b.WriteString("\n" + promptStyle.Render(promptLabel(m.Prompt)) + " " + m.Input.View())
	}

	if m.Err != nil {
		b.WriteString("\n" + errorStyle.Render(ui.FailureMarker+" "+m.Err.Error()))
	}

	return b.String()
}

func (m Model) row(label, value string) string {
	return labelStyle.Render(label+":") + valueStyle.Render(value) + "\n"
}

func (m Model) lastChecked() string {
	if m.Snapshot.At.IsZero() {
		return "never"
	}
	ago := m.now().Sub(m.Snapshot.At).Round(time.Second)
	return fmt.Sprintf("%s (%s ago)", m.Snapshot.At.Format("15:04:05"), ago)
}

func promptLabel(kind protocol.Kind) string {
	switch kind {
	case protocol.KindDelay:
		return "Brew in:"
	case protocol.KindWarm:
		return "Keep warm for:"
	case protocol.KindSchedule:
		return "Brew in, then warm for:"
	}
	return kind.String() + ":"
}
