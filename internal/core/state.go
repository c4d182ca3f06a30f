package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// AgentStatus represents the current state of one agent's task in a run.
type AgentStatus string

const (
	StatusIdle    AgentStatus = "idle"    // Not started yet
	StatusWorking AgentStatus = "working" // Call in flight
	StatusDone    AgentStatus = "done"    // Final payload received
	StatusError   AgentStatus = "error"   // Failed; siblings unaffected
)

// TaskState tracks one agent across a run. Transitions are monotone:
// idle -> working -> (done | error). Terminal states are never left;
// Mark calls against a terminal state return an error the caller is
// expected to log and drop.
type TaskState struct {
	AgentID     string          `json:"agent_id"`
	Status      AgentStatus     `json:"status"`
	LastMessage string          `json:"last_message,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrDetail   string          `json:"error,omitempty"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
}

// NewTaskState creates an idle task state for an agent.
func NewTaskState(agentID string) *TaskState {
	return &TaskState{
		AgentID: agentID,
		Status:  StatusIdle,
	}
}

// MarkWorking transitions the task to working.
func (s *TaskState) MarkWorking() error {
	if s.Status != StatusIdle {
		return ErrState("BAD_TRANSITION", fmt.Sprintf("agent %s cannot start in %s state", s.AgentID, s.Status))
	}
	s.Status = StatusWorking
	now := time.Now()
	s.StartedAt = &now
	return nil
}

// SetMessage updates the last progress message. Only a working task
// accepts updates; terminal tasks keep their final message.
func (s *TaskState) SetMessage(msg string) {
	if s.Status != StatusWorking {
		return
	}
	s.LastMessage = msg
}

// MarkDone transitions the task to done with its final payload.
func (s *TaskState) MarkDone(result json.RawMessage) error {
	if s.Status != StatusWorking {
		return ErrState("BAD_TRANSITION", fmt.Sprintf("agent %s cannot complete in %s state", s.AgentID, s.Status))
	}
	s.Status = StatusDone
	s.Result = result
	now := time.Now()
	s.FinishedAt = &now
	return nil
}

// MarkError transitions the task to error. Allowed from idle as well as
// working so a cancelled run can fail agents that never started.
func (s *TaskState) MarkError(err error) error {
	if s.IsTerminal() {
		return ErrState("BAD_TRANSITION", fmt.Sprintf("agent %s cannot fail in %s state", s.AgentID, s.Status))
	}
	s.Status = StatusError
	if err != nil {
		s.ErrDetail = err.Error()
		s.LastMessage = err.Error()
	}
	now := time.Now()
	s.FinishedAt = &now
	return nil
}

// IsTerminal returns true if the task is done or errored.
func (s *TaskState) IsTerminal() bool {
	return s.Status == StatusDone || s.Status == StatusError
}

// IsSuccess returns true if the task finished with a payload.
func (s *TaskState) IsSuccess() bool {
	return s.Status == StatusDone
}

// Clone returns a deep copy safe to hand out in snapshots.
func (s *TaskState) Clone() TaskState {
	out := *s
	if s.Result != nil {
		out.Result = append(json.RawMessage(nil), s.Result...)
	}
	if s.StartedAt != nil {
		t := *s.StartedAt
		out.StartedAt = &t
	}
	if s.FinishedAt != nil {
		t := *s.FinishedAt
		out.FinishedAt = &t
	}
	return out
}
