//go:build integration

package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/adsmith-io/adsmith/internal/agent"
	"github.com/adsmith-io/adsmith/internal/core"
	"github.com/adsmith-io/adsmith/internal/events"
	"github.com/adsmith-io/adsmith/internal/logging"
	"github.com/adsmith-io/adsmith/internal/pipeline"
	"github.com/adsmith-io/adsmith/internal/snapshot"
	"github.com/adsmith-io/adsmith/internal/store"
	"github.com/adsmith-io/adsmith/internal/testutil"
	"github.com/adsmith-io/adsmith/internal/web"
)

// stack wires fake agents, a real sqlite store and the HTTP API the
// same way the serve command does.
type stack struct {
	store    core.RunStore
	bus      *events.Bus
	orch     *pipeline.Orchestrator
	server   *httptest.Server
	outcomes chan outcome
}

type outcome struct {
	res        core.RunResult
	persistErr error
}

func newStack(t *testing.T, stepDelay time.Duration) *stack {
	t.Helper()

	script := agent.DefaultScript()
	script.StepDelay = stepDelay

	st, err := store.New(store.Config{
		Backend: "sqlite",
		Path:    filepath.Join(t.TempDir(), "runs.db"),
	})
	testutil.AssertNoError(t, err)

	bus := events.New(256)
	log := logging.NewNop()

	orch, err := pipeline.New(
		agent.NewFakeUnaryClient(script),
		agent.NewFakeStreamingClient(script),
		st, bus, log, pipeline.DefaultConfig(),
	)
	testutil.AssertNoError(t, err)

	outcomes := make(chan outcome, 8)
	orch.OnRunComplete(func(_ string, res core.RunResult, persistErr error) {
		outcomes <- outcome{res: res, persistErr: persistErr}
	})

	srv := web.New(web.DefaultConfig(), orch, st, bus, log)
	ts := httptest.NewServer(srv.Router())

	s := &stack{store: st, bus: bus, orch: orch, server: ts, outcomes: outcomes}
	t.Cleanup(func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = orch.Shutdown(ctx)
		bus.Close()
		_ = st.Close()
	})
	return s
}

// startRun posts a run through the API and returns its initial snapshot.
func (s *stack) startRun(t *testing.T, input string) core.RunSnapshot {
	t.Helper()

	body, err := json.Marshal(web.StartRunRequest{Input: input})
	testutil.AssertNoError(t, err)

	resp, err := http.Post(s.server.URL+"/api/runs", "application/json", bytes.NewReader(body))
	testutil.AssertNoError(t, err)
	defer resp.Body.Close()

	testutil.AssertEqual(t, resp.StatusCode, http.StatusAccepted)

	var snap core.RunSnapshot
	testutil.AssertNoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	return snap
}

// awaitRun blocks until the completion callback for runID fires.
func (s *stack) awaitRun(t *testing.T, runID string) core.RunResult {
	t.Helper()

	deadline := time.After(30 * time.Second)
	for {
		select {
		case out := <-s.outcomes:
			testutil.AssertNoError(t, out.persistErr)
			if out.res.RunID == runID {
				return out.res
			}
		case <-deadline:
			t.Fatalf("run %s did not finish in time", runID)
		}
	}
}

func (s *stack) getJSON(t *testing.T, path string, v interface{}) int {
	t.Helper()

	resp, err := http.Get(s.server.URL + path)
	testutil.AssertNoError(t, err)
	defer resp.Body.Close()

	if v != nil {
		testutil.AssertNoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestPipeline_RunToCompletion(t *testing.T) {
	s := newStack(t, 0)

	snap := s.startRun(t, "vegan bakery in Lisbon")
	testutil.AssertTrue(t, snap.RunID != "", "run ID assigned")
	testutil.AssertEqual(t, snap.Input, "vegan bakery in Lisbon")

	res := s.awaitRun(t, snap.RunID)
	testutil.AssertEqual(t, res.Status, core.RunStatusCompleted)
	testutil.AssertLen(t, res.Agents, 7)
	testutil.AssertLen(t, res.Failed, 0)

	if _, ok := res.Results[core.AgentCampaignAssembler]; !ok {
		t.Fatal("expected an assembled campaign in the results")
	}

	var fetched core.RunSnapshot
	status := s.getJSON(t, "/api/runs/"+snap.RunID, &fetched)
	testutil.AssertEqual(t, status, http.StatusOK)
	testutil.AssertEqual(t, fetched.Status, core.RunStatusCompleted)
	testutil.AssertLen(t, fetched.Agents, 7)

	var listed []web.RunListItem
	status = s.getJSON(t, "/api/runs", &listed)
	testutil.AssertEqual(t, status, http.StatusOK)

	found := false
	for _, item := range listed {
		if item.RunID == snap.RunID {
			found = true
		}
	}
	testutil.AssertTrue(t, found, "completed run appears in the listing")
}

func TestPipeline_CancelMidRun(t *testing.T) {
	s := newStack(t, 300*time.Millisecond)

	snap := s.startRun(t, "surf school in Ericeira")

	// Give the first agent a moment to start before cancelling.
	time.Sleep(100 * time.Millisecond)

	resp, err := http.Post(s.server.URL+"/api/runs/"+snap.RunID+"/cancel", "application/json", nil)
	testutil.AssertNoError(t, err)
	resp.Body.Close()
	testutil.AssertEqual(t, resp.StatusCode, http.StatusAccepted)

	res := s.awaitRun(t, snap.RunID)
	testutil.AssertEqual(t, res.Status, core.RunStatusCancelled)

	// Cancelled runs persist too.
	ctx := context.Background()
	stored, err := s.store.GetRun(ctx, snap.RunID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, stored.Status, core.RunStatusCancelled)
}

func TestPipeline_ExportImportRoundTrip(t *testing.T) {
	s := newStack(t, 0)
	ctx := context.Background()

	snap := s.startRun(t, "vinyl record store")
	res := s.awaitRun(t, snap.RunID)
	testutil.AssertEqual(t, res.Status, core.RunStatusCompleted)

	archivePath := filepath.Join(t.TempDir(), "runs.yaml")
	exported, err := snapshot.Export(ctx, s.store, &snapshot.ExportOptions{
		OutputPath: archivePath,
	})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, exported.RunCount, 1)

	dest, err := store.New(store.Config{
		Backend: "sqlite",
		Path:    filepath.Join(t.TempDir(), "dest.db"),
	})
	testutil.AssertNoError(t, err)
	defer dest.Close()

	report, err := snapshot.Import(ctx, dest, &snapshot.ImportOptions{
		InputPath:      archivePath,
		ConflictPolicy: snapshot.ConflictSkip,
	})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, report.ImportedRuns, 1)

	moved, err := dest.GetRun(ctx, snap.RunID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, moved.Status, core.RunStatusCompleted)
	testutil.AssertEqual(t, len(moved.Results), len(res.Results))

	// A second import of the same archive skips the existing run.
	again, err := snapshot.Import(ctx, dest, &snapshot.ImportOptions{
		InputPath:      archivePath,
		ConflictPolicy: snapshot.ConflictSkip,
	})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, again.ImportedRuns, 0)
	testutil.AssertEqual(t, again.SkippedRuns, 1)
}

func TestAPI_HealthAndSystem(t *testing.T) {
	s := newStack(t, 0)

	var health map[string]string
	status := s.getJSON(t, "/api/health", &health)
	testutil.AssertEqual(t, status, http.StatusOK)
	testutil.AssertEqual(t, health["status"], "healthy")

	var system web.SystemResponse
	status = s.getJSON(t, "/api/system", &system)
	testutil.AssertEqual(t, status, http.StatusOK)
}
