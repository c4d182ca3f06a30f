package core

import (
	"encoding/json"
	"time"
)

// RunStatus represents the overall state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed" // All phases finished; failures may be recorded per agent
	RunStatusCancelled RunStatus = "cancelled"
)

// RunResult is the final record of a run, assembled exactly once when
// the last phase closes and handed to the persister. Per-agent failures
// live inside it; the run itself still completes.
type RunResult struct {
	RunID      string                     `json:"run_id"`
	Input      string                     `json:"input"`
	Status     RunStatus                  `json:"status"`
	StartedAt  time.Time                  `json:"started_at"`
	FinishedAt time.Time                  `json:"finished_at"`
	Agents     []TaskState                `json:"agents"`
	Results    map[string]json.RawMessage `json:"results"`
	Failed     []string                   `json:"failed,omitempty"`
	Activity   []ActivityEntry            `json:"activity"`
}

// Duration returns the wall-clock duration of the run.
func (r *RunResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded returns true if every agent delivered a payload.
func (r *RunResult) Succeeded() bool {
	return len(r.Failed) == 0
}

// RunSummary is the listing view of a persisted run.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Input      string    `json:"input"`
	Status     RunStatus `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	AgentCount int       `json:"agent_count"`
	FailCount  int       `json:"fail_count"`
}

// Summary reduces a run result to its listing view.
func (r *RunResult) Summary() RunSummary {
	return RunSummary{
		RunID:      r.RunID,
		Input:      r.Input,
		Status:     r.Status,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		AgentCount: len(r.Agents),
		FailCount:  len(r.Failed),
	}
}

// AgentView is the live per-agent cell of a run snapshot.
type AgentView struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Phase       int         `json:"phase"`
	Kind        AgentKind   `json:"kind"`
	Status      AgentStatus `json:"status"`
	LastMessage string      `json:"last_message,omitempty"`
}

// RunSnapshot is a point-in-time copy of a live (or just-finished) run:
// per-agent status lines, the ordered activity feed, and the payloads
// received so far. It shares no memory with the run's internal state.
type RunSnapshot struct {
	RunID      string                     `json:"run_id"`
	Input      string                     `json:"input"`
	Status     RunStatus                  `json:"status"`
	Phase      int                        `json:"phase"` // 1-based phase currently executing; 0 before start
	Agents     []AgentView                `json:"agents"`
	Activity   []ActivityEntry            `json:"activity"`
	Results    map[string]json.RawMessage `json:"results"`
	Failed     []string                   `json:"failed,omitempty"`
	StartedAt  time.Time                  `json:"started_at"`
	FinishedAt *time.Time                 `json:"finished_at,omitempty"`
}
