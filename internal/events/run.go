package events

import "time"

// Event type constants for run events.
const (
	TypeRunStarted       = "run_started"
	TypeRunCompleted     = "run_completed"
	TypeRunCancelled     = "run_cancelled"
	TypeRunPersisted     = "run_persisted"
	TypeRunPersistFailed = "run_persist_failed"
)

// RunStartedEvent is emitted when a pipeline run begins.
type RunStartedEvent struct {
	BaseEvent
	Input string `json:"input"`
}

// NewRunStartedEvent creates a new run started event.
func NewRunStartedEvent(runID, input string) RunStartedEvent {
	return RunStartedEvent{
		BaseEvent: NewBaseEvent(TypeRunStarted, runID),
		Input:     input,
	}
}

// RunCompletedEvent is emitted exactly once when the final phase closes.
// Per-agent failures ride along; the run itself still completed.
type RunCompletedEvent struct {
	BaseEvent
	Duration     time.Duration `json:"duration"`
	FailedAgents []string      `json:"failed_agents,omitempty"`
}

// NewRunCompletedEvent creates a new run completed event.
func NewRunCompletedEvent(runID string, duration time.Duration, failed []string) RunCompletedEvent {
	return RunCompletedEvent{
		BaseEvent:    NewBaseEvent(TypeRunCompleted, runID),
		Duration:     duration,
		FailedAgents: failed,
	}
}

// RunCancelledEvent is emitted when a run is cancelled by the caller.
type RunCancelledEvent struct {
	BaseEvent
	Phase int `json:"phase"`
}

// NewRunCancelledEvent creates a new run cancelled event.
func NewRunCancelledEvent(runID string, phase int) RunCancelledEvent {
	return RunCancelledEvent{
		BaseEvent: NewBaseEvent(TypeRunCancelled, runID),
		Phase:     phase,
	}
}

// RunPersistedEvent is emitted after the run record is saved.
type RunPersistedEvent struct {
	BaseEvent
	PersistedID string `json:"persisted_id"`
}

// NewRunPersistedEvent creates a new run persisted event.
func NewRunPersistedEvent(runID, persistedID string) RunPersistedEvent {
	return RunPersistedEvent{
		BaseEvent:   NewBaseEvent(TypeRunPersisted, runID),
		PersistedID: persistedID,
	}
}

// RunPersistFailedEvent is emitted when saving the run record fails.
// This is a PRIORITY event - the run state itself stays valid.
type RunPersistFailedEvent struct {
	BaseEvent
	Error string `json:"error"`
}

// NewRunPersistFailedEvent creates a new persist failed event.
func NewRunPersistFailedEvent(runID string, err error) RunPersistFailedEvent {
	errStr := ""
	if err != nil {
		errStr = err.Error()
	}
	return RunPersistFailedEvent{
		BaseEvent: NewBaseEvent(TypeRunPersistFailed, runID),
		Error:     errStr,
	}
}
