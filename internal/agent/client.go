// Package agent provides the task clients that call agent services:
// a unary client for request/response agents, a streaming client for
// agents that emit event frames while they work, and fake clients that
// replay canned scripts for offline runs and tests.
package agent

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/adsmith-io/adsmith/internal/core"
	"github.com/adsmith-io/adsmith/internal/logging"
)

// Config holds the shared settings for HTTP task clients.
type Config struct {
	// BaseURL is the root of the agent gateway, e.g. "https://agents.local".
	BaseURL string

	// APIKey, when set, is sent as a bearer token.
	APIKey string

	// Headers are extra headers applied to every request.
	Headers map[string]string
}

// maxErrorBody caps how much of an error response is read for diagnostics.
const maxErrorBody = 8 * 1024

// httpDoer is the subset of http.Client the task clients use.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

func newTransportClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        16,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

func taskURL(base, agentID string) string {
	return fmt.Sprintf("%s/agents/%s/task", strings.TrimRight(base, "/"), agentID)
}

func streamURL(base, agentID string) string {
	return fmt.Sprintf("%s/agents/%s/stream", strings.TrimRight(base, "/"), agentID)
}

func applyHeaders(req *http.Request, cfg Config) {
	req.Header.Set("Content-Type", "application/json")
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}
}

// badStatusError maps a non-2xx response to an upstream error carrying a
// bounded slice of the body for diagnosis.
func badStatusError(agentID string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return core.ErrUpstream(core.CodeBadStatus, fmt.Sprintf("agent %s returned status %d", agentID, resp.StatusCode)).
		WithDetail("status", resp.StatusCode).
		WithDetail("body", strings.TrimSpace(string(body)))
}

func logCallStart(log *logging.Logger, kind string, req core.TaskRequest) {
	log.Debug("calling agent service",
		"kind", kind,
		"agent", req.AgentID,
		"run_id", req.RunID,
		"context_keys", len(req.Context),
	)
}
