// Package pipeline runs the ad-campaign agent pipeline: a fixed table
// of phases executed in order, with the agents of each phase dispatched
// concurrently. One agent failing never takes down its siblings or the
// run; the run always finishes and is persisted exactly once.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/adsmith-io/adsmith/internal/core"
	"github.com/adsmith-io/adsmith/internal/events"
	"github.com/adsmith-io/adsmith/internal/logging"
)

// Config holds orchestrator tuning. Timeouts apply per agent call and
// are the only resilience knob: there are no retries.
type Config struct {
	// UnaryTimeout bounds a single request/response agent call.
	UnaryTimeout time.Duration

	// StreamTimeout bounds a streaming agent call end to end.
	StreamTimeout time.Duration

	// PersistTimeout bounds the final store write.
	PersistTimeout time.Duration

	// MaxHistory caps how many finished runs stay queryable in memory.
	MaxHistory int
}

// DefaultConfig returns the orchestrator defaults.
func DefaultConfig() Config {
	return Config{
		UnaryTimeout:   60 * time.Second,
		StreamTimeout:  10 * time.Minute,
		PersistTimeout: 30 * time.Second,
		MaxHistory:     50,
	}
}

// CompletionFunc is invoked after a run has finished and its store
// write has been attempted. persistErr is nil when the write succeeded.
type CompletionFunc func(runID string, res core.RunResult, persistErr error)

// Orchestrator drives runs through the pipeline table. It is safe for
// concurrent use; each StartRun spawns one goroutine that owns the
// run's lifecycle.
type Orchestrator struct {
	table     []core.PhaseDef
	unary     core.UnaryClient
	streaming core.StreamingClient
	store     core.RunStore
	bus       *events.Bus
	log       *logging.Logger
	cfg       Config

	mu         sync.RWMutex
	runs       map[string]*runTracker
	runOrder   []string
	onComplete []CompletionFunc

	wg sync.WaitGroup
}

// New constructs an Orchestrator over the standard pipeline table.
func New(unary core.UnaryClient, streaming core.StreamingClient, store core.RunStore, bus *events.Bus, log *logging.Logger, cfg Config) (*Orchestrator, error) {
	return NewWithTable(core.Pipeline(), unary, streaming, store, bus, log, cfg)
}

// NewWithTable constructs an Orchestrator over a custom table. The
// table is validated up front; a bad table is a construction error,
// not a per-run one.
func NewWithTable(table []core.PhaseDef, unary core.UnaryClient, streaming core.StreamingClient, store core.RunStore, bus *events.Bus, log *logging.Logger, cfg Config) (*Orchestrator, error) {
	if err := core.ValidateTable(table); err != nil {
		return nil, err
	}
	if unary == nil || streaming == nil {
		return nil, core.ErrInternal("CLIENT_MISSING", "orchestrator requires unary and streaming clients")
	}
	if store == nil {
		return nil, core.ErrInternal("STORE_MISSING", "orchestrator requires a run store")
	}
	if log == nil {
		log = logging.NewNop()
	}
	if cfg.UnaryTimeout <= 0 {
		cfg.UnaryTimeout = DefaultConfig().UnaryTimeout
	}
	if cfg.StreamTimeout <= 0 {
		cfg.StreamTimeout = DefaultConfig().StreamTimeout
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = DefaultConfig().PersistTimeout
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = DefaultConfig().MaxHistory
	}
	return &Orchestrator{
		table:     table,
		unary:     unary,
		streaming: streaming,
		store:     store,
		bus:       bus,
		log:       log.WithComponent("pipeline"),
		cfg:       cfg,
		runs:      make(map[string]*runTracker),
	}, nil
}

// OnRunComplete registers a callback fired once per finished run, after
// the persistence attempt. Callbacks run on the run's goroutine.
func (o *Orchestrator) OnRunComplete(fn CompletionFunc) {
	if fn == nil {
		return
	}
	o.mu.Lock()
	o.onComplete = append(o.onComplete, fn)
	o.mu.Unlock()
}

// StartRun validates the input, registers a new run and returns its ID
// immediately. The pipeline executes on a background goroutine that
// deliberately does not inherit the caller's context: an HTTP request
// ending must not kill the run it started.
func (o *Orchestrator) StartRun(ctx context.Context, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", core.ErrValidation(core.CodeEmptyInput, "run input must not be empty")
	}
	if err := ctx.Err(); err != nil {
		return "", core.ErrTransport(core.CodeRunCancelled, "caller context already done").WithCause(err)
	}

	runID := newRunID()
	runCtx, cancel := context.WithCancel(context.Background())
	tr := newRunTracker(runID, input, o.table, cancel)

	o.mu.Lock()
	o.runs[runID] = tr
	o.runOrder = append(o.runOrder, runID)
	o.evictLocked()
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer cancel()
		o.execute(runCtx, tr)
	}()
	return runID, nil
}

// Snapshot returns a point-in-time copy of a run's state.
func (o *Orchestrator) Snapshot(runID string) (core.RunSnapshot, error) {
	o.mu.RLock()
	tr, ok := o.runs[runID]
	o.mu.RUnlock()
	if !ok {
		return core.RunSnapshot{}, core.ErrNotFound("run", runID)
	}
	return tr.snapshot(o.table), nil
}

// LiveRuns snapshots every run still held in memory, newest first.
func (o *Orchestrator) LiveRuns() []core.RunSnapshot {
	o.mu.RLock()
	trackers := make([]*runTracker, 0, len(o.runs))
	for _, tr := range o.runs {
		trackers = append(trackers, tr)
	}
	o.mu.RUnlock()

	snaps := make([]core.RunSnapshot, 0, len(trackers))
	for _, tr := range trackers {
		snaps = append(snaps, tr.snapshot(o.table))
	}
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].StartedAt.After(snaps[j].StartedAt)
	})
	return snaps
}

// Cancel requests cancellation of a running run. In-flight agent calls
// are cut through their contexts; phases not yet started never start.
// Cancelling a finished run is an error.
func (o *Orchestrator) Cancel(runID string) error {
	o.mu.RLock()
	tr, ok := o.runs[runID]
	o.mu.RUnlock()
	if !ok {
		return core.ErrNotFound("run", runID)
	}
	if tr.finished() {
		return core.ErrState("RUN_FINISHED", fmt.Sprintf("run %s already finished", runID))
	}

	tr.system("cancellation requested")
	tr.cancel()
	o.log.WithRun(runID).Info("run cancellation requested")
	return nil
}

// Shutdown waits for in-flight runs to finish, honouring ctx.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return core.ErrTimeout("shutdown deadline reached with runs still active").WithCause(ctx.Err())
	}
}

// execute owns a run from first phase to persisted record.
func (o *Orchestrator) execute(ctx context.Context, tr *runTracker) {
	log := o.log.WithRun(tr.runID)
	log.Info("run started", "input", tr.input)
	tr.system(fmt.Sprintf("run started: %s", tr.input))
	o.publish(events.NewRunStartedEvent(tr.runID, tr.input))

	for _, ph := range o.table {
		if ctx.Err() != nil {
			break
		}
		o.runPhase(ctx, tr, ph)
	}

	status := core.RunStatusCompleted
	if ctx.Err() != nil {
		status = core.RunStatusCancelled
		cause := core.ErrTransport(core.CodeRunCancelled, "run cancelled").WithCause(ctx.Err())
		tr.failRemaining(cause)
		tr.system("run cancelled")
	}
	o.completeRun(tr, status)
}

// completeRun seals the run, persists it and notifies listeners. The
// tracker guarantees the seal happens once; every later call sees
// first=false and returns without a second store write.
func (o *Orchestrator) completeRun(tr *runTracker, status core.RunStatus) {
	if !tr.finish(status) {
		return
	}

	log := o.log.WithRun(tr.runID)
	failed := tr.failedAgents()
	tr.system(fmt.Sprintf("run finished: %d/%d agents succeeded", len(tr.order)-len(failed), len(tr.order)))

	res := tr.record()
	persistErr := o.persist(tr, res)

	switch status {
	case core.RunStatusCancelled:
		o.publishPriority(events.NewRunCancelledEvent(tr.runID, tr.currentPhase()))
	default:
		o.publishPriority(events.NewRunCompletedEvent(tr.runID, res.Duration(), failed))
	}
	log.Info("run finished",
		"status", string(status),
		"duration", res.Duration().String(),
		"failed_agents", len(failed))

	o.mu.RLock()
	callbacks := append([]CompletionFunc(nil), o.onComplete...)
	o.mu.RUnlock()
	for _, fn := range callbacks {
		fn(tr.runID, res, persistErr)
	}
}

// persist writes the final record through the store exactly once per
// run. A failed write is reported, never retried; the in-memory run
// stays queryable either way.
func (o *Orchestrator) persist(tr *runTracker, res core.RunResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.PersistTimeout)
	defer cancel()

	persistedID, err := o.store.SaveRun(ctx, res)
	if err != nil {
		tr.systemError(fmt.Sprintf("saving run failed: %v", err))
		o.publishPriority(events.NewRunPersistFailedEvent(tr.runID, err))
		o.log.WithRun(tr.runID).Error("run persistence failed", "error", err)
		return err
	}
	o.publish(events.NewRunPersistedEvent(tr.runID, persistedID))
	o.log.WithRun(tr.runID).Debug("run persisted", "persisted_id", persistedID)
	return nil
}

// runPhase dispatches one phase's agents concurrently and waits for
// all of them. Workers always return nil so one agent's failure never
// cancels its siblings through the group context.
func (o *Orchestrator) runPhase(ctx context.Context, tr *runTracker, ph core.PhaseDef) {
	log := o.log.WithRun(tr.runID).WithPhase(ph.Number)
	tr.setPhase(ph.Number)
	tr.system(fmt.Sprintf("phase %d (%s) started", ph.Number, ph.Name))

	names := make([]string, 0, len(ph.Agents))
	for _, a := range ph.Agents {
		names = append(names, a.ID)
	}
	o.publish(events.NewPhaseStartedEvent(tr.runID, ph.Number, ph.Name, names))
	log.Info("phase started", "agents", strings.Join(names, ","))

	started := time.Now()
	prior := tr.contextPayloads()

	g, gctx := errgroup.WithContext(ctx)
	for _, def := range ph.Agents {
		def := def
		g.Go(func() error {
			o.runAgent(gctx, tr, def, prior)
			return nil
		})
	}
	_ = g.Wait()

	done, failed := tr.phaseTally(ph)
	tr.system(fmt.Sprintf("phase %d (%s) finished: %d ok, %d failed", ph.Number, ph.Name, done, failed))
	o.publish(events.NewPhaseCompletedEvent(tr.runID, ph.Number, ph.Name, time.Since(started), done, failed))
	log.Info("phase finished", "done", done, "failed", failed, "duration", time.Since(started).String())
}

// runAgent executes a single agent call, decodes its payload at the
// boundary and records the outcome. Errors end here: they are written
// to the tracker and the bus, never returned.
func (o *Orchestrator) runAgent(ctx context.Context, tr *runTracker, def core.AgentDef, prior map[string]json.RawMessage) {
	log := o.log.WithRun(tr.runID).WithAgent(def.ID)
	if err := tr.markWorking(def.ID); err != nil {
		log.Debug("agent start rejected", "error", err)
		return
	}
	o.publish(events.NewAgentStartedEvent(tr.runID, def.ID, def.Phase, string(def.Kind)))

	req := core.TaskRequest{
		RunID:   tr.runID,
		AgentID: def.ID,
		Input:   tr.input,
		Context: prior,
	}

	timeout := o.cfg.UnaryTimeout
	if def.Kind == core.KindStreaming {
		timeout = o.cfg.StreamTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	var (
		payload json.RawMessage
		err     error
	)
	switch def.Kind {
	case core.KindStreaming:
		payload, err = o.streaming.CallStream(callCtx, req, func(ev core.TaskEvent) {
			o.handleTaskEvent(tr, def.ID, ev)
		})
	default:
		payload, err = o.unary.Call(callCtx, req)
	}
	if err != nil {
		o.failAgent(tr, def.ID, err)
		return
	}

	decoded, err := core.DecodeAgentResult(def.ID, payload)
	if err != nil {
		o.failAgent(tr, def.ID, err)
		return
	}
	if err := tr.complete(def.ID, payload, decoded.Kind()); err != nil {
		log.Debug("agent completion rejected", "error", err)
		return
	}
	o.publish(events.NewAgentCompletedEvent(tr.runID, def.ID, time.Since(started), len(payload)))
	log.Info("agent finished", "result", decoded.Kind(), "duration", time.Since(started).String())
}

// failAgent records one agent's failure and moves on.
func (o *Orchestrator) failAgent(tr *runTracker, agentID string, cause error) {
	if err := tr.fail(agentID, cause); err != nil {
		o.log.WithRun(tr.runID).WithAgent(agentID).Debug("agent failure rejected", "error", err)
		return
	}
	o.publish(events.NewAgentFailedEvent(tr.runID, agentID, string(core.GetCategory(cause)), cause))
	o.log.WithRun(tr.runID).WithAgent(agentID).Warn("agent failed",
		"category", string(core.GetCategory(cause)),
		"error", cause)
}

// handleTaskEvent relays interim agent events into the tracker and bus.
func (o *Orchestrator) handleTaskEvent(tr *runTracker, agentID string, ev core.TaskEvent) {
	switch ev.Kind {
	case core.TaskEventStreamLink:
		tr.streamLink(agentID, ev.StreamURL)
		o.publish(events.NewAgentStreamLinkEvent(tr.runID, agentID, ev.StreamURL))
	default:
		tr.progress(agentID, ev.Message)
		o.publish(events.NewAgentProgressEvent(tr.runID, agentID, ev.Message))
	}
}

func (o *Orchestrator) publish(ev events.Event) {
	if o.bus != nil {
		o.bus.Publish(ev)
	}
}

func (o *Orchestrator) publishPriority(ev events.Event) {
	if o.bus != nil {
		o.bus.PublishPriority(ev)
	}
}

// evictLocked drops the oldest finished runs past the history cap.
// Callers hold o.mu.
func (o *Orchestrator) evictLocked() {
	if len(o.runOrder) <= o.cfg.MaxHistory {
		return
	}
	kept := o.runOrder[:0]
	excess := len(o.runOrder) - o.cfg.MaxHistory
	for _, id := range o.runOrder {
		tr := o.runs[id]
		if excess > 0 && tr != nil && tr.finished() {
			delete(o.runs, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	o.runOrder = kept
}

// newRunID builds a sortable, collision-safe run identifier.
func newRunID() string {
	return fmt.Sprintf("run-%s-%s", time.Now().UTC().Format("20060102-150405"), uuid.New().String()[:8])
}
