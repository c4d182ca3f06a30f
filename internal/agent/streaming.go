package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/adsmith-io/adsmith/internal/core"
	"github.com/adsmith-io/adsmith/internal/logging"
	"github.com/adsmith-io/adsmith/internal/stream"
)

// StreamingHTTPClient holds one long-lived call open per task and feeds
// the response through the frame decoder. Interim frames become task
// events; the COMPLETE frame's payload is the return value. A connection
// that closes without a terminal frame surfaces as a transport error
// from the decoder, never as a truncated success.
type StreamingHTTPClient struct {
	cfg    Config
	client httpDoer
	log    *logging.Logger
}

var _ core.StreamingClient = (*StreamingHTTPClient)(nil)

// NewStreamingHTTPClient creates a streaming task client.
func NewStreamingHTTPClient(cfg Config, log *logging.Logger) *StreamingHTTPClient {
	if log == nil {
		log = logging.NewNop()
	}
	return &StreamingHTTPClient{
		cfg:    cfg,
		client: newTransportClient(),
		log:    log.WithComponent("streaming_client"),
	}
}

// CallStream opens the stream and pumps frames until the task ends.
func (c *StreamingHTTPClient) CallStream(ctx context.Context, req core.TaskRequest, onEvent func(core.TaskEvent)) (json.RawMessage, error) {
	logCallStart(c.log, "streaming", req)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, core.ErrInternal("MARSHAL_FAILED", "encoding task request").WithCause(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, streamURL(c.cfg.BaseURL, req.AgentID), bytes.NewReader(body))
	if err != nil {
		return nil, core.ErrInternal("BAD_REQUEST", "building stream request").WithCause(err)
	}
	applyHeaders(httpReq, c.cfg)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyCallError(req.AgentID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, badStatusError(req.AgentID, resp)
	}

	dec := stream.NewDecoder(resp.Body)
	for {
		frame, err := dec.Next()
		if err != nil {
			// Prefer the caller's cancellation over the read error it causes.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, classifyCallError(req.AgentID, ctxErr)
			}
			return nil, err
		}

		switch frame.Type {
		case stream.FrameProgress:
			c.log.Debug("agent progress", "agent", req.AgentID, "message", frame.Message)
			if onEvent != nil {
				onEvent(core.TaskEvent{
					Kind:    core.TaskEventProgress,
					Message: frame.Message,
					At:      time.Now(),
				})
			}
		case stream.FrameStreamingURL:
			c.log.Debug("agent stream link", "agent", req.AgentID, "url", frame.URL)
			if onEvent != nil {
				onEvent(core.TaskEvent{
					Kind:      core.TaskEventStreamLink,
					StreamURL: frame.URL,
					At:        time.Now(),
				})
			}
		case stream.FrameComplete:
			c.log.Debug("agent completed", "agent", req.AgentID, "bytes", len(frame.Payload))
			return frame.Payload, nil
		}
	}
}
