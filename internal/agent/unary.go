package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/adsmith-io/adsmith/internal/core"
	"github.com/adsmith-io/adsmith/internal/logging"
)

// UnaryHTTPClient calls request/response agent services over HTTP.
// The deadline comes from the caller's context; the client itself
// imposes none, so the orchestrator stays the single owner of timeout
// policy.
type UnaryHTTPClient struct {
	cfg    Config
	client httpDoer
	log    *logging.Logger
}

var _ core.UnaryClient = (*UnaryHTTPClient)(nil)

// NewUnaryHTTPClient creates a unary task client.
func NewUnaryHTTPClient(cfg Config, log *logging.Logger) *UnaryHTTPClient {
	if log == nil {
		log = logging.NewNop()
	}
	return &UnaryHTTPClient{
		cfg:    cfg,
		client: newTransportClient(),
		log:    log.WithComponent("unary_client"),
	}
}

// Call posts the task request and returns the agent's JSON payload.
func (c *UnaryHTTPClient) Call(ctx context.Context, req core.TaskRequest) (json.RawMessage, error) {
	logCallStart(c.log, "unary", req)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, core.ErrInternal("MARSHAL_FAILED", "encoding task request").WithCause(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, taskURL(c.cfg.BaseURL, req.AgentID), bytes.NewReader(body))
	if err != nil {
		return nil, core.ErrInternal("BAD_REQUEST", "building task request").WithCause(err)
	}
	applyHeaders(httpReq, c.cfg)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyCallError(req.AgentID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, badStatusError(req.AgentID, resp)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyCallError(req.AgentID, err)
	}
	if !json.Valid(payload) {
		return nil, core.ErrProtocol(core.CodeBadResponse, "agent response is not valid JSON").
			WithDetail("agent", req.AgentID)
	}

	c.log.Debug("agent responded", "agent", req.AgentID, "bytes", len(payload))
	return payload, nil
}

// classifyCallError separates deadline hits from other connection-level
// failures so callers can tell a slow agent from an unreachable one.
func classifyCallError(agentID string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return core.ErrTimeout("agent " + agentID + " timed out").WithCause(err)
	}
	if errors.Is(err, context.Canceled) {
		return core.ErrTransport(core.CodeRunCancelled, "agent "+agentID+" call cancelled").WithCause(err)
	}
	return core.ErrTransport("CALL_FAILED", "calling agent "+agentID).WithCause(err)
}
