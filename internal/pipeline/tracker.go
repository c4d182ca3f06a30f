package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/adsmith-io/adsmith/internal/core"
)

// runTracker owns the live state of one run: per-agent task states, the
// activity feed, and received payloads. Every mutation goes through its
// mutex; snapshots and the final record are deep copies, so readers
// never alias orchestrator-owned memory.
type runTracker struct {
	mu         sync.Mutex
	runID      string
	input      string
	status     core.RunStatus
	phase      int
	agents     map[string]*core.TaskState
	order      []string
	activity   *core.ActivityLog
	results    map[string]json.RawMessage
	startedAt  time.Time
	finishedAt *time.Time

	cancel   context.CancelFunc
	finalize sync.Once
}

func newRunTracker(runID, input string, table []core.PhaseDef, cancel context.CancelFunc) *runTracker {
	tr := &runTracker{
		runID:     runID,
		input:     input,
		status:    core.RunStatusRunning,
		agents:    make(map[string]*core.TaskState),
		activity:  core.NewActivityLog(),
		results:   make(map[string]json.RawMessage),
		startedAt: time.Now(),
		cancel:    cancel,
	}
	for _, ph := range table {
		for _, a := range ph.Agents {
			tr.agents[a.ID] = core.NewTaskState(a.ID)
			tr.order = append(tr.order, a.ID)
		}
	}
	return tr
}

func (tr *runTracker) setPhase(n int) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.phase = n
}

// markWorking transitions an agent to working. The error return carries
// rejected transitions (terminal states stay put) for the caller to log.
func (tr *runTracker) markWorking(agentID string) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	st, ok := tr.agents[agentID]
	if !ok {
		return core.ErrNotFound("agent", agentID)
	}
	return st.MarkWorking()
}

// progress records an interim message for a working agent.
func (tr *runTracker) progress(agentID, message string) {
	tr.mu.Lock()
	st, ok := tr.agents[agentID]
	if !ok {
		tr.mu.Unlock()
		return
	}
	st.SetMessage(message)
	tr.mu.Unlock()
	tr.activity.Append(core.ActProgress, agentID, message)
}

// streamLink records a live-stream URL announced by an agent.
func (tr *runTracker) streamLink(agentID, url string) {
	tr.activity.AppendStreamLink(agentID, url)
}

// complete stores an agent's final payload and marks it done.
func (tr *runTracker) complete(agentID string, payload json.RawMessage, kind string) error {
	tr.mu.Lock()
	st, ok := tr.agents[agentID]
	if !ok {
		tr.mu.Unlock()
		return core.ErrNotFound("agent", agentID)
	}
	if err := st.MarkDone(payload); err != nil {
		tr.mu.Unlock()
		return err
	}
	tr.results[agentID] = append(json.RawMessage(nil), payload...)
	tr.mu.Unlock()

	tr.activity.Append(core.ActResult, agentID, fmt.Sprintf("delivered %s", kind))
	return nil
}

// fail marks an agent failed. Sibling agents and the run continue.
func (tr *runTracker) fail(agentID string, cause error) error {
	tr.mu.Lock()
	st, ok := tr.agents[agentID]
	if !ok {
		tr.mu.Unlock()
		return core.ErrNotFound("agent", agentID)
	}
	if err := st.MarkError(cause); err != nil {
		tr.mu.Unlock()
		return err
	}
	tr.mu.Unlock()

	tr.activity.Append(core.ActError, agentID, cause.Error())
	return nil
}

// failRemaining errors every agent that has not reached a terminal
// state. Used when a run is cancelled before later phases start.
func (tr *runTracker) failRemaining(cause error) {
	tr.mu.Lock()
	var hit []string
	for _, id := range tr.order {
		st := tr.agents[id]
		if !st.IsTerminal() {
			_ = st.MarkError(cause)
			hit = append(hit, id)
		}
	}
	tr.mu.Unlock()

	for _, id := range hit {
		tr.activity.Append(core.ActError, id, cause.Error())
	}
}

// system appends a run-level boundary marker to the activity feed.
func (tr *runTracker) system(message string) {
	tr.activity.Append(core.ActSystem, "", message)
}

// systemError appends a run-level error to the activity feed.
func (tr *runTracker) systemError(message string) {
	tr.activity.Append(core.ActError, "", message)
}

// contextPayloads returns a copy of the payloads received so far, for
// handing to later-phase agents. Failed agents contribute nothing.
func (tr *runTracker) contextPayloads() map[string]json.RawMessage {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	out := make(map[string]json.RawMessage, len(tr.results))
	for id, payload := range tr.results {
		out[id] = append(json.RawMessage(nil), payload...)
	}
	return out
}

// phaseTally counts terminal outcomes for the agents of one phase.
func (tr *runTracker) phaseTally(ph core.PhaseDef) (done, failed int) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	for _, a := range ph.Agents {
		switch tr.agents[a.ID].Status {
		case core.StatusDone:
			done++
		case core.StatusError:
			failed++
		}
	}
	return done, failed
}

// failedAgents lists errored agents in pipeline order.
func (tr *runTracker) failedAgents() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	var out []string
	for _, id := range tr.order {
		if tr.agents[id].Status == core.StatusError {
			out = append(out, id)
		}
	}
	return out
}

// snapshot returns a point-in-time copy of the run.
func (tr *runTracker) snapshot(table []core.PhaseDef) core.RunSnapshot {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	snap := core.RunSnapshot{
		RunID:     tr.runID,
		Input:     tr.input,
		Status:    tr.status,
		Phase:     tr.phase,
		Results:   make(map[string]json.RawMessage, len(tr.results)),
		StartedAt: tr.startedAt,
	}
	if tr.finishedAt != nil {
		t := *tr.finishedAt
		snap.FinishedAt = &t
	}
	for _, ph := range table {
		for _, def := range ph.Agents {
			st := tr.agents[def.ID]
			snap.Agents = append(snap.Agents, core.AgentView{
				ID:          def.ID,
				Name:        def.Name,
				Phase:       def.Phase,
				Kind:        def.Kind,
				Status:      st.Status,
				LastMessage: st.LastMessage,
			})
			if st.Status == core.StatusError {
				snap.Failed = append(snap.Failed, def.ID)
			}
		}
	}
	for id, payload := range tr.results {
		snap.Results[id] = append(json.RawMessage(nil), payload...)
	}
	// Activity has its own lock; append order is already total.
	snap.Activity = tr.activity.Snapshot()
	return snap
}

// finish seals the run. Only the first caller gets true; the status
// and finish time never change again afterwards.
func (tr *runTracker) finish(status core.RunStatus) (first bool) {
	tr.finalize.Do(func() {
		first = true
		now := time.Now()

		tr.mu.Lock()
		tr.status = status
		tr.finishedAt = &now
		tr.mu.Unlock()
	})
	return first
}

// record assembles the final run record from current state.
func (tr *runTracker) record() core.RunResult {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	res := core.RunResult{
		RunID:     tr.runID,
		Input:     tr.input,
		Status:    tr.status,
		StartedAt: tr.startedAt,
		Results:   make(map[string]json.RawMessage, len(tr.results)),
	}
	if tr.finishedAt != nil {
		res.FinishedAt = *tr.finishedAt
	}
	for _, id := range tr.order {
		st := tr.agents[id]
		res.Agents = append(res.Agents, st.Clone())
		if st.Status == core.StatusError {
			res.Failed = append(res.Failed, id)
		}
	}
	for id, payload := range tr.results {
		res.Results[id] = append(json.RawMessage(nil), payload...)
	}
	res.Activity = tr.activity.Snapshot()
	return res
}

func (tr *runTracker) finished() bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.finishedAt != nil
}

func (tr *runTracker) currentPhase() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.phase
}
