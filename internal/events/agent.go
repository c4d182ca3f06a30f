package events

import "time"

// Event type constants for per-agent events.
const (
	TypeAgentStarted    = "agent_started"
	TypeAgentProgress   = "agent_progress"
	TypeAgentStreamLink = "agent_stream_link"
	TypeAgentCompleted  = "agent_completed"
	TypeAgentFailed     = "agent_failed"
)

// AgentStartedEvent is emitted when an agent's task call begins.
type AgentStartedEvent struct {
	BaseEvent
	Agent string `json:"agent"`
	Phase int    `json:"phase"`
	Kind  string `json:"kind"`
}

// NewAgentStartedEvent creates a new agent started event.
func NewAgentStartedEvent(runID, agent string, phase int, kind string) AgentStartedEvent {
	return AgentStartedEvent{
		BaseEvent: NewBaseEvent(TypeAgentStarted, runID),
		Agent:     agent,
		Phase:     phase,
		Kind:      kind,
	}
}

// AgentProgressEvent carries an interim progress message from a
// streaming agent.
type AgentProgressEvent struct {
	BaseEvent
	Agent   string `json:"agent"`
	Message string `json:"message"`
}

// NewAgentProgressEvent creates a new agent progress event.
func NewAgentProgressEvent(runID, agent, message string) AgentProgressEvent {
	return AgentProgressEvent{
		BaseEvent: NewBaseEvent(TypeAgentProgress, runID),
		Agent:     agent,
		Message:   message,
	}
}

// AgentStreamLinkEvent announces a URL where the agent's work can be
// watched live.
type AgentStreamLinkEvent struct {
	BaseEvent
	Agent string `json:"agent"`
	URL   string `json:"url"`
}

// NewAgentStreamLinkEvent creates a new agent stream link event.
func NewAgentStreamLinkEvent(runID, agent, url string) AgentStreamLinkEvent {
	return AgentStreamLinkEvent{
		BaseEvent: NewBaseEvent(TypeAgentStreamLink, runID),
		Agent:     agent,
		URL:       url,
	}
}

// AgentCompletedEvent is emitted when an agent delivers its payload.
type AgentCompletedEvent struct {
	BaseEvent
	Agent    string        `json:"agent"`
	Duration time.Duration `json:"duration"`
	Bytes    int           `json:"bytes"`
}

// NewAgentCompletedEvent creates a new agent completed event.
func NewAgentCompletedEvent(runID, agent string, duration time.Duration, bytes int) AgentCompletedEvent {
	return AgentCompletedEvent{
		BaseEvent: NewBaseEvent(TypeAgentCompleted, runID),
		Agent:     agent,
		Duration:  duration,
		Bytes:     bytes,
	}
}

// AgentFailedEvent is emitted when an agent's task fails. Sibling
// agents and the run keep going; this event is informational.
type AgentFailedEvent struct {
	BaseEvent
	Agent    string `json:"agent"`
	Category string `json:"category"`
	Error    string `json:"error"`
}

// NewAgentFailedEvent creates a new agent failed event.
func NewAgentFailedEvent(runID, agent, category string, err error) AgentFailedEvent {
	errStr := ""
	if err != nil {
		errStr = err.Error()
	}
	return AgentFailedEvent{
		BaseEvent: NewBaseEvent(TypeAgentFailed, runID),
		Agent:     agent,
		Category:  category,
		Error:     errStr,
	}
}
