package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// RunStartedMsg signals that the pipeline run has begun.
type RunStartedMsg struct {
	Input string
}

// RunCompletedMsg signals that the final phase closed. Per-agent
// failures ride along; the run itself still completed.
type RunCompletedMsg struct {
	Duration     time.Duration
	FailedAgents []string
}

// RunCancelledMsg signals that the run was cancelled by the caller.
type RunCancelledMsg struct {
	Phase int
}

// RunPersistedMsg signals that the run record was saved.
type RunPersistedMsg struct {
	PersistedID string
}

// RunPersistFailedMsg signals that saving the run record failed.
type RunPersistFailedMsg struct {
	Error string
}

// PhaseStartedMsg signals that a phase has begun.
type PhaseStartedMsg struct {
	Phase  int
	Name   string
	Agents []string
}

// PhaseCompletedMsg signals that every agent in a phase reached a
// terminal state.
type PhaseCompletedMsg struct {
	Phase    int
	Name     string
	Duration time.Duration
	Done     int
	Failed   int
}

// AgentStartedMsg signals that an agent's task call began.
type AgentStartedMsg struct {
	Agent string
	Phase int
	Kind  string
}

// AgentProgressMsg carries an interim message from a streaming agent.
type AgentProgressMsg struct {
	Agent   string
	Message string
}

// AgentStreamLinkMsg announces an agent's live stream URL.
type AgentStreamLinkMsg struct {
	Agent string
	URL   string
}

// AgentCompletedMsg signals that an agent delivered its payload.
type AgentCompletedMsg struct {
	Agent    string
	Duration time.Duration
	Bytes    int
}

// AgentFailedMsg signals that an agent's task failed. Sibling agents
// keep going.
type AgentFailedMsg struct {
	Agent    string
	Category string
	Error    string
}

// ConfigReloadedMsg signals a config file reload while running.
type ConfigReloadedMsg struct {
	Warning string
}

// LogMsg adds a log entry to the activity feed.
type LogMsg struct {
	Time    time.Time
	Level   string
	Message string
}

// EventsDroppedMsg reports the bus drop counter so slow terminals can
// see that the feed is lossy rather than silently stale.
type EventsDroppedMsg struct {
	Count int64
}

// ErrorMsg signals an error.
type ErrorMsg struct {
	Error error
}

// clearNoticeMsg expires a transient footer notice.
type clearNoticeMsg struct{}

// SendLog creates a log message stamped with the current time.
func SendLog(level, message string) tea.Msg {
	return LogMsg{
		Time:    time.Now(),
		Level:   level,
		Message: message,
	}
}

// SendError creates an error message.
func SendError(err error) tea.Msg {
	return ErrorMsg{Error: err}
}

// clearNoticeAfter expires the footer notice after d.
func clearNoticeAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearNoticeMsg{}
	})
}
