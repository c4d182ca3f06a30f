package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/adsmith-io/adsmith/internal/core"
	"github.com/adsmith-io/adsmith/internal/diagnostics"
)

// StartRunRequest is the request body for starting a run.
type StartRunRequest struct {
	Input string `json:"input"`
}

// RunListItem is one row of the merged live + stored run listing.
type RunListItem struct {
	RunID      string         `json:"run_id"`
	Input      string         `json:"input"`
	Status     core.RunStatus `json:"status"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	AgentCount int            `json:"agent_count"`
	FailCount  int            `json:"fail_count"`
	Live       bool           `json:"live"`
}

// handleStartRun starts a pipeline run and returns its initial snapshot.
func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var req StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	runID, err := s.runs.StartRun(r.Context(), req.Input)
	if err != nil {
		s.respondDomainError(w, err, "failed to start run")
		return
	}

	snap, err := s.runs.Snapshot(runID)
	if err != nil {
		// The run exists but raced eviction; report the ID anyway.
		respondJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
		return
	}

	respondJSON(w, http.StatusAccepted, snap)
}

// handleListRuns lists live and stored runs, newest first. A run both
// in memory and in the store appears once, with the in-memory view.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	seen := make(map[string]bool)
	items := make([]RunListItem, 0)

	for _, snap := range s.runs.LiveRuns() {
		failCount := len(snap.Failed)
		items = append(items, RunListItem{
			RunID:      snap.RunID,
			Input:      truncateInput(snap.Input),
			Status:     snap.Status,
			StartedAt:  snap.StartedAt,
			FinishedAt: snap.FinishedAt,
			AgentCount: len(snap.Agents),
			FailCount:  failCount,
			Live:       true,
		})
		seen[snap.RunID] = true
	}

	if s.store != nil {
		stored, err := s.store.ListRuns(r.Context())
		if err != nil {
			s.log.Error("failed to list stored runs", "error", err)
			respondError(w, http.StatusInternalServerError, "failed to list runs")
			return
		}
		for _, sum := range stored {
			if seen[sum.RunID] {
				continue
			}
			finished := sum.FinishedAt
			items = append(items, RunListItem{
				RunID:      sum.RunID,
				Input:      sum.Input,
				Status:     sum.Status,
				StartedAt:  sum.StartedAt,
				FinishedAt: &finished,
				AgentCount: sum.AgentCount,
				FailCount:  sum.FailCount,
			})
		}
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].StartedAt.After(items[j].StartedAt)
	})

	respondJSON(w, http.StatusOK, items)
}

// handleGetRun returns the snapshot of a live run, falling back to the
// store for runs that finished and left memory.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if runID == "" {
		respondError(w, http.StatusBadRequest, "run ID is required")
		return
	}

	snap, err := s.runs.Snapshot(runID)
	if err == nil {
		respondJSON(w, http.StatusOK, snap)
		return
	}
	if !core.IsCategory(err, core.ErrCatNotFound) {
		s.respondDomainError(w, err, "failed to load run")
		return
	}

	if s.store == nil {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}

	res, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		s.respondDomainError(w, err, "failed to load run")
		return
	}

	respondJSON(w, http.StatusOK, snapshotFromResult(res))
}

// handleCancelRun requests cancellation of a live run.
func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if runID == "" {
		respondError(w, http.StatusBadRequest, "run ID is required")
		return
	}

	if err := s.runs.Cancel(runID); err != nil {
		s.respondDomainError(w, err, "failed to cancel run")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{
		"run_id": runID,
		"status": "cancelling",
	})
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// SystemResponse is the body of GET /api/system.
type SystemResponse struct {
	Version       string                     `json:"version"`
	Uptime        string                     `json:"uptime"`
	LiveRuns      int                        `json:"live_runs"`
	SSEClients    int                        `json:"sse_clients"`
	EventsDropped int64                      `json:"events_dropped"`
	Metrics       *diagnostics.SystemMetrics `json:"metrics,omitempty"`
}

// handleSystem reports process and machine diagnostics.
func (s *Server) handleSystem(w http.ResponseWriter, _ *http.Request) {
	resp := SystemResponse{
		Version:  s.version,
		Uptime:   time.Since(s.startedAt).Round(time.Second).String(),
		LiveRuns: len(s.runs.LiveRuns()),
	}
	if s.sseHandler != nil {
		resp.SSEClients = s.sseHandler.ClientCount()
	}
	if s.bus != nil {
		resp.EventsDropped = s.bus.DroppedCount()
	}
	if s.collector != nil {
		m := s.collector.Collect()
		resp.Metrics = &m
	}

	respondJSON(w, http.StatusOK, resp)
}

// snapshotFromResult rebuilds the snapshot view of a persisted run.
func snapshotFromResult(res *core.RunResult) core.RunSnapshot {
	finished := res.FinishedAt
	snap := core.RunSnapshot{
		RunID:      res.RunID,
		Input:      res.Input,
		Status:     res.Status,
		Agents:     make([]core.AgentView, 0, len(res.Agents)),
		Activity:   res.Activity,
		Results:    res.Results,
		Failed:     res.Failed,
		StartedAt:  res.StartedAt,
		FinishedAt: &finished,
	}

	for _, st := range res.Agents {
		view := core.AgentView{
			ID:          st.AgentID,
			Status:      st.Status,
			LastMessage: st.LastMessage,
		}
		if def, ok := core.AgentByID(st.AgentID); ok {
			view.Name = def.Name
			view.Phase = def.Phase
			view.Kind = def.Kind
			if def.Phase > snap.Phase {
				snap.Phase = def.Phase
			}
		}
		snap.Agents = append(snap.Agents, view)
	}

	return snap
}

// truncateInput bounds long inputs in listing rows, matching the
// store's summary behavior.
func truncateInput(input string) string {
	if len(input) > 100 {
		return input[:100] + "..."
	}
	return input
}

// respondDomainError maps a domain error to an HTTP status. fallback
// is used when the error carries no useful message.
func (s *Server) respondDomainError(w http.ResponseWriter, err error, fallback string) {
	status := httpStatusFor(err)
	msg := fallback

	var domErr *core.DomainError
	if errors.As(err, &domErr) && domErr != nil {
		msg = domErr.Message
	}
	if status >= http.StatusInternalServerError {
		s.log.Error(fallback, "error", err)
	}

	respondError(w, status, msg)
}

func httpStatusFor(err error) int {
	switch core.GetCategory(err) {
	case core.ErrCatValidation:
		return http.StatusUnprocessableEntity
	case core.ErrCatNotFound:
		return http.StatusNotFound
	case core.ErrCatState:
		return http.StatusConflict
	case core.ErrCatTimeout:
		return http.StatusGatewayTimeout
	case core.ErrCatTransport, core.ErrCatUpstream, core.ErrCatProtocol:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondError sends a JSON error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": strings.TrimSpace(message)})
}
