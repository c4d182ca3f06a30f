package core

import (
	"context"
	"encoding/json"
	"time"
)

// =============================================================================
// Task Client Ports
// =============================================================================

// TaskRequest is the unit of work sent to an agent service.
type TaskRequest struct {
	// RunID identifies the run this task belongs to.
	RunID string `json:"run_id"`

	// AgentID names the agent being invoked.
	AgentID string `json:"agent_id"`

	// Input is the seed input of the run (URL or business description).
	Input string `json:"input"`

	// Context carries the payloads of earlier phases, keyed by agent ID.
	// Agents that failed contribute nothing.
	Context map[string]json.RawMessage `json:"context,omitempty"`
}

// TaskEventKind classifies interim events from a streaming task.
type TaskEventKind string

const (
	// TaskEventProgress is a human-readable status update.
	TaskEventProgress TaskEventKind = "progress"

	// TaskEventStreamLink announces a URL where the agent's work can be
	// watched live.
	TaskEventStreamLink TaskEventKind = "stream_link"
)

// TaskEvent is an interim event observed while a streaming task runs.
type TaskEvent struct {
	Kind      TaskEventKind `json:"kind"`
	Message   string        `json:"message,omitempty"`
	StreamURL string        `json:"stream_url,omitempty"`
	At        time.Time     `json:"at"`
}

// UnaryClient calls an agent service once and returns its payload.
// The deadline comes from ctx; implementations never panic on failure.
type UnaryClient interface {
	Call(ctx context.Context, req TaskRequest) (json.RawMessage, error)
}

// StreamingClient holds one long-lived call to an agent service open,
// invoking onEvent for each interim event, and returns the final payload
// carried by the completion frame. A connection that closes before
// completion is a transport error, not a truncated success.
type StreamingClient interface {
	CallStream(ctx context.Context, req TaskRequest, onEvent func(TaskEvent)) (json.RawMessage, error)
}

// =============================================================================
// Run Store Port
// =============================================================================

// RunStore persists finished runs. SaveRun is idempotent per run ID:
// saving the same run twice returns the same persisted ID without
// writing a duplicate.
type RunStore interface {
	SaveRun(ctx context.Context, res RunResult) (string, error)
	GetRun(ctx context.Context, runID string) (*RunResult, error)
	ListRuns(ctx context.Context) ([]RunSummary, error)
	DeleteRun(ctx context.Context, runID string) error
	Close() error
}
