package events

import "time"

// Event type constants for phase events.
const (
	TypePhaseStarted   = "phase_started"
	TypePhaseCompleted = "phase_completed"
)

// PhaseStartedEvent is emitted when a phase begins.
type PhaseStartedEvent struct {
	BaseEvent
	Phase  int      `json:"phase"`
	Name   string   `json:"name"`
	Agents []string `json:"agents"`
}

// NewPhaseStartedEvent creates a new phase started event.
func NewPhaseStartedEvent(runID string, phase int, name string, agents []string) PhaseStartedEvent {
	return PhaseStartedEvent{
		BaseEvent: NewBaseEvent(TypePhaseStarted, runID),
		Phase:     phase,
		Name:      name,
		Agents:    agents,
	}
}

// PhaseCompletedEvent is emitted when every agent in a phase reaches a
// terminal state. The next phase does not start before this point.
type PhaseCompletedEvent struct {
	BaseEvent
	Phase    int           `json:"phase"`
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
	Done     int           `json:"done"`
	Failed   int           `json:"failed"`
}

// NewPhaseCompletedEvent creates a new phase completed event.
func NewPhaseCompletedEvent(runID string, phase int, name string, duration time.Duration, done, failed int) PhaseCompletedEvent {
	return PhaseCompletedEvent{
		BaseEvent: NewBaseEvent(TypePhaseCompleted, runID),
		Phase:     phase,
		Name:      name,
		Duration:  duration,
		Done:      done,
		Failed:    failed,
	}
}
