package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/adsmith-io/adsmith/internal/clip"
	"github.com/adsmith-io/adsmith/internal/core"
	"github.com/adsmith-io/adsmith/internal/events"
)

// quitDelay keeps the final frame on screen long enough for the
// persist events, which arrive just after run completion.
const quitDelay = 500 * time.Millisecond

// maxActivity caps the activity feed length.
const maxActivity = 100

// Model is the live run view.
type Model struct {
	runID string
	input string

	rows   []*agentRow
	rowIdx map[string]int // agentID -> rows index

	currentPhase int
	selectedIdx  int
	width        int
	height       int
	ready        bool

	spinner      spinner.Model
	activity     []activityLine
	showActivity bool

	finished     bool
	finalStatus  string
	duration     time.Duration
	failedAgents []string
	persistNote  string
	notice       string

	err           error
	droppedEvents int64

	adapter   *BusAdapter
	cancelRun func()
}

// agentRow is the display state of one pipeline agent.
type agentRow struct {
	ID        string
	Name      string
	Role      string
	Phase     int
	Kind      core.AgentKind
	Status    core.AgentStatus
	Progress  string
	StreamURL string
	Error     string
	StartedAt *time.Time
	Duration  time.Duration
}

// activityLine is one entry of the activity feed.
type activityLine struct {
	Time  time.Time
	Level string
	Text  string
}

// New creates a run view with every pipeline agent idle. The agent
// rows come from the pipeline table, so the full run shape is visible
// before the first event arrives.
func New(runID, input string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = WorkingStyle

	agents := core.PipelineAgents()
	rows := make([]*agentRow, 0, len(agents))
	rowIdx := make(map[string]int, len(agents))
	for i, def := range agents {
		rows = append(rows, &agentRow{
			ID:     def.ID,
			Name:   def.Name,
			Role:   def.Role,
			Phase:  def.Phase,
			Kind:   def.Kind,
			Status: core.StatusIdle,
		})
		rowIdx[def.ID] = i
	}

	return Model{
		runID:   runID,
		input:   input,
		rows:    rows,
		rowIdx:  rowIdx,
		spinner: sp,
	}
}

// NewWithBus creates a run view fed by the event bus. The adapter is
// closed when the view quits.
func NewWithBus(runID, input string, bus *events.Bus) Model {
	m := New(runID, input)
	m.adapter = NewBusAdapter(bus, runID)
	return m
}

// WithCancel sets the function invoked when the user cancels the run.
func (m Model) WithCancel(cancel func()) Model {
	m.cancelRun = cancel
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		durationTick(),
	}
	if m.adapter != nil {
		cmds = append(cmds, waitForBusMsg(m.adapter))
	}
	return tea.Batch(cmds...)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case durationTickMsg:
		if m.finished {
			return m, nil
		}
		return m, durationTick()

	case RunStartedMsg:
		if msg.Input != "" {
			m.input = msg.Input
		}
		return m, m.nextBusMsg()

	case PhaseStartedMsg:
		m.currentPhase = msg.Phase
		m.addActivity("info", fmt.Sprintf("phase %d (%s) started", msg.Phase, msg.Name))
		return m, m.nextBusMsg()

	case PhaseCompletedMsg:
		m.addActivity("info", fmt.Sprintf("phase %d (%s) finished: %d done, %d failed [%s]",
			msg.Phase, msg.Name, msg.Done, msg.Failed, formatDuration(msg.Duration)))
		return m, m.nextBusMsg()

	case AgentStartedMsg:
		if row := m.row(msg.Agent); row != nil {
			now := time.Now()
			row.Status = core.StatusWorking
			row.StartedAt = &now
		}
		return m, m.nextBusMsg()

	case AgentProgressMsg:
		if row := m.row(msg.Agent); row != nil {
			row.Progress = msg.Message
		}
		m.addActivity("info", fmt.Sprintf("%s: %s", agentDisplayName(msg.Agent), msg.Message))
		return m, m.nextBusMsg()

	case AgentStreamLinkMsg:
		if row := m.row(msg.Agent); row != nil {
			row.StreamURL = msg.URL
		}
		m.addActivity("info", fmt.Sprintf("%s streaming at %s", agentDisplayName(msg.Agent), msg.URL))
		return m, m.nextBusMsg()

	case AgentCompletedMsg:
		if row := m.row(msg.Agent); row != nil {
			row.Status = core.StatusDone
			row.Duration = msg.Duration
			row.Progress = ""
		}
		return m, m.nextBusMsg()

	case AgentFailedMsg:
		if row := m.row(msg.Agent); row != nil {
			row.Status = core.StatusError
			row.Error = msg.Error
			row.Progress = ""
			if row.StartedAt != nil {
				row.Duration = time.Since(*row.StartedAt)
			}
		}
		m.addActivity("error", fmt.Sprintf("%s failed (%s): %s",
			agentDisplayName(msg.Agent), msg.Category, msg.Error))
		return m, m.nextBusMsg()

	case RunCompletedMsg:
		m.finished = true
		m.finalStatus = "completed"
		m.duration = msg.Duration
		m.failedAgents = msg.FailedAgents
		return m, tea.Batch(m.nextBusMsg(), quitAfter(quitDelay))

	case RunCancelledMsg:
		m.finished = true
		m.finalStatus = "cancelled"
		m.addActivity("warn", fmt.Sprintf("run cancelled during phase %d", msg.Phase))
		return m, tea.Batch(m.nextBusMsg(), quitAfter(quitDelay))

	case RunPersistedMsg:
		m.persistNote = "saved as " + msg.PersistedID
		return m, m.nextBusMsg()

	case RunPersistFailedMsg:
		m.persistNote = "not saved: " + msg.Error
		m.addActivity("warn", "run record not saved: "+msg.Error)
		return m, m.nextBusMsg()

	case ConfigReloadedMsg:
		if msg.Warning != "" {
			m.addActivity("warn", "config reload: "+msg.Warning)
		} else {
			m.addActivity("info", "config reloaded")
		}
		return m, m.nextBusMsg()

	case LogMsg:
		m.addActivity(msg.Level, msg.Message)
		return m, m.nextBusMsg()

	case EventsDroppedMsg:
		m.droppedEvents = msg.Count
		return m, m.nextBusMsg()

	case ErrorMsg:
		m.err = msg.Error
		return m, m.nextBusMsg()

	case clipResultMsg:
		m.notice = msg.describe()
		return m, clearNoticeAfter(3 * time.Second)

	case clearNoticeMsg:
		m.notice = ""
		return m, nil

	case quitMsg:
		m.closeAdapter()
		return m, tea.Quit
	}

	return m, nil
}

// handleKeyPress handles keyboard input.
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if !m.finished && m.cancelRun != nil {
			m.cancelRun()
		}
		m.closeAdapter()
		return m, tea.Quit

	case "c":
		if !m.finished && m.cancelRun != nil {
			m.cancelRun()
			m.addActivity("warn", "cancelling run")
		}
		return m, nil

	case "up", "k":
		if m.selectedIdx > 0 {
			m.selectedIdx--
		}
		return m, nil

	case "down", "j":
		if m.selectedIdx < len(m.rows)-1 {
			m.selectedIdx++
		}
		return m, nil

	case "o":
		if m.selectedIdx < len(m.rows) {
			row := m.rows[m.selectedIdx]
			if row.StreamURL == "" {
				m.notice = "no stream link for " + row.Name
				return m, clearNoticeAfter(3 * time.Second)
			}
			return m, copyStreamCmd(row.StreamURL)
		}
		return m, nil

	case "a":
		m.showActivity = !m.showActivity
		return m, nil
	}

	return m, nil
}

// View renders the run view.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.err != nil {
		return ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}

	if m.showActivity {
		return m.renderActivityView()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(InputStyle.Render(truncate(m.input, m.width-10)))
	b.WriteString("\n")
	b.WriteString(m.renderPhases())
	b.WriteString("\n")
	b.WriteString(m.renderActivityTail(3))
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// renderHeader renders the run title and status.
func (m Model) renderHeader() string {
	status := fmt.Sprintf("phase %d of %d", m.currentPhase, len(core.Pipeline()))
	if m.currentPhase == 0 {
		status = "starting"
	}
	if m.finished {
		status = m.finalStatus
		if m.duration > 0 {
			status += " in " + formatDuration(m.duration)
		}
		if len(m.failedAgents) > 0 {
			status += fmt.Sprintf(", %d agent(s) failed", len(m.failedAgents))
		}
	}
	return HeaderStyle.Render(fmt.Sprintf("adsmith run %s | %s", m.runID, status))
}

// renderPhases renders the agent rows grouped by pipeline phase.
func (m Model) renderPhases() string {
	var b strings.Builder

	for _, phase := range core.Pipeline() {
		b.WriteString("\n")
		b.WriteString(PhaseBadge(phase.Name).Render(fmt.Sprintf("%d %s", phase.Number, phase.Name)))
		b.WriteString("\n")

		for i, row := range m.rows {
			if row.Phase != phase.Number {
				continue
			}
			style := AgentRowStyle
			if i == m.selectedIdx {
				style = SelectedAgentStyle
			}
			b.WriteString(style.Render(m.renderRow(row)))
			b.WriteString("\n")
		}
	}

	return b.String()
}

// renderRow renders a single agent line.
func (m Model) renderRow(row *agentRow) string {
	line := fmt.Sprintf("%s %s", m.statusIcon(row.Status), padName(row.Name))

	switch row.Status {
	case core.StatusWorking:
		line += " " + m.spinner.View()
		if row.StartedAt != nil {
			line += " " + formatDuration(time.Since(*row.StartedAt))
		}
		if row.Progress != "" {
			line += " " + SubtleStyle.Render(truncate(row.Progress, m.width-40))
		}
	case core.StatusDone:
		line += " " + DoneStyle.Render(formatDuration(row.Duration))
	case core.StatusError:
		line += " " + ErrorStatusStyle.Render(truncate(row.Error, m.width-40))
	}

	if row.StreamURL != "" {
		line += " " + StreamLinkStyle.Render("⧉")
	}

	return line
}

// renderActivityView renders the full-screen activity feed.
func (m Model) renderActivityView() string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render("Activity (press 'a' to return)"))
	b.WriteString("\n\n")

	limit := m.height - 6
	if limit < 5 {
		limit = 5
	}
	start := 0
	if len(m.activity) > limit {
		start = len(m.activity) - limit
	}

	for _, line := range m.activity[start:] {
		b.WriteString(m.renderActivityLine(line))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// renderActivityTail renders the last n activity lines.
func (m Model) renderActivityTail(n int) string {
	if len(m.activity) == 0 {
		return ""
	}
	start := 0
	if len(m.activity) > n {
		start = len(m.activity) - n
	}

	var b strings.Builder
	b.WriteString(ActivityStyle.Render("recent:"))
	b.WriteString("\n")
	for _, line := range m.activity[start:] {
		b.WriteString(m.renderActivityLine(line))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderActivityLine(line activityLine) string {
	style := ActivityStyle
	switch line.Level {
	case "error":
		style = ErrorLogStyle
	case "warn":
		style = WarnLogStyle
	}
	return style.Render(fmt.Sprintf("[%s] %s",
		line.Time.Format("15:04:05"), truncate(line.Text, m.width-14)))
}

// renderFooter renders the keybindings plus transient notices.
func (m Model) renderFooter() string {
	footer := "q: quit | j/k: select | o: copy stream link | a: activity"
	if !m.finished {
		footer += " | c: cancel"
	}
	if m.droppedEvents > 0 {
		footer += fmt.Sprintf(" | ⚠ %d dropped", m.droppedEvents)
	}
	if m.persistNote != "" {
		footer += " | " + m.persistNote
	}

	out := FooterStyle.Render(footer)
	if m.notice != "" {
		out += "\n" + NoticeStyle.Render(m.notice)
	}
	return out
}

// statusIcon returns an icon for an agent status.
func (m Model) statusIcon(status core.AgentStatus) string {
	switch status {
	case core.StatusIdle:
		return IdleStyle.Render("○")
	case core.StatusWorking:
		return WorkingStyle.Render("●")
	case core.StatusDone:
		return DoneStyle.Render("✓")
	case core.StatusError:
		return ErrorStatusStyle.Render("✗")
	default:
		return "?"
	}
}

// row returns the display row for an agent, nil for unknown agents.
func (m *Model) row(agentID string) *agentRow {
	if i, ok := m.rowIdx[agentID]; ok {
		return m.rows[i]
	}
	return nil
}

// addActivity appends a line to the activity feed.
func (m *Model) addActivity(level, text string) {
	m.activity = append(m.activity, activityLine{
		Time:  time.Now(),
		Level: level,
		Text:  text,
	})
	if len(m.activity) > maxActivity {
		m.activity = m.activity[1:]
	}
}

// nextBusMsg re-arms the bus wait after a bus-derived message.
func (m Model) nextBusMsg() tea.Cmd {
	if m.adapter == nil {
		return nil
	}
	return waitForBusMsg(m.adapter)
}

func (m Model) closeAdapter() {
	if m.adapter != nil {
		m.adapter.Close()
	}
}

// waitForBusMsg blocks on the adapter channel for the next message.
func waitForBusMsg(a *BusAdapter) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-a.MsgChannel()
		if !ok {
			return nil
		}
		return msg
	}
}

// durationTick refreshes live durations twice a second.
type durationTickMsg time.Time

func durationTick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return durationTickMsg(t)
	})
}

// quitMsg ends the program after the completion frame has been shown.
type quitMsg struct{}

func quitAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return quitMsg{}
	})
}

// clipResultMsg reports a stream link copy attempt.
type clipResultMsg struct {
	result clip.Result
	err    error
}

func (msg clipResultMsg) describe() string {
	if msg.err != nil {
		return "copy failed: " + msg.err.Error()
	}
	switch msg.result.Method {
	case clip.MethodFile:
		return "stream link written to " + msg.result.FilePath
	default:
		return "stream link copied (" + string(msg.result.Method) + ")"
	}
}

// copyStreamCmd copies a stream URL to the clipboard off the UI loop.
func copyStreamCmd(url string) tea.Cmd {
	return func() tea.Msg {
		result, err := clip.Copy(url)
		return clipResultMsg{result: result, err: err}
	}
}

// padName pads agent names so status columns line up.
func padName(name string) string {
	const width = 20
	if len(name) >= width {
		return name
	}
	return name + strings.Repeat(" ", width-len(name))
}

// truncate shortens s to max runes with an ellipsis.
func truncate(s string, max int) string {
	if max < 10 {
		max = 10
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		secs := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%02ds", mins, secs)
	}
	hours := int(d.Hours())
	mins := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%02dm", hours, mins)
}
