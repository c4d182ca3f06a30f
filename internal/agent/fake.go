package agent

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/adsmith-io/adsmith/internal/core"
)

// Script holds the canned behavior the fake clients replay. One script
// serves both clients so a whole offline run comes from one place.
type Script struct {
	// Unary maps agent ID to the payload its unary call returns.
	Unary map[string]json.RawMessage

	// Streams maps agent ID to the event sequence and final payload its
	// streaming call produces.
	Streams map[string]StreamScript

	// Fail maps agent ID to the error its call returns instead of a
	// payload. Takes precedence over Unary and Streams.
	Fail map[string]error

	// StepDelay spaces out events and responses so live views have
	// something to show. Zero means instant.
	StepDelay time.Duration
}

// StreamScript is the canned sequence for one streaming agent.
type StreamScript struct {
	Events  []core.TaskEvent
	Payload json.RawMessage
}

// DefaultScript returns the built-in scenario: a cafe discovered from
// its website, researched, and assembled into a small campaign.
func DefaultScript() *Script {
	return &Script{
		Unary: map[string]json.RawMessage{
			core.AgentBusinessAnalyst: json.RawMessage(`{"business_type":"cafe","name":"Driftwood Cafe","summary":"Neighborhood espresso bar with fresh pastries","location":"Portland, OR"}`),
			core.AgentCopywriter:      json.RawMessage(`{"ads":[{"headline":"Try us","body":"Small-batch espresso, baked-this-morning pastries.","call_to_action":"Visit today"},{"headline":"Your third place","body":"Work, meet, linger. The coffee is on.","call_to_action":"Find us"}]}`),
			core.AgentAudiencePlanner: json.RawMessage(`{"segments":[{"name":"Remote workers","age_range":"25-44","interests":["coffee","coworking"]},{"name":"Weekend brunchers","age_range":"21-35","interests":["brunch","pastry"]}]}`),
			core.AgentBudgetPlanner:   json.RawMessage(`{"currency":"USD","total":1200,"channels":[{"channel":"search","amount":500},{"channel":"social","amount":450},{"channel":"display","amount":250}]}`),
			core.AgentCampaignAssembler: json.RawMessage(`{"campaign":{"name":"Driftwood Mornings","ads":[{"headline":"Try us","body":"Small-batch espresso, baked-this-morning pastries.","call_to_action":"Visit today"}],"audience":{"segments":[{"name":"Remote workers","age_range":"25-44"}]},"budget":{"currency":"USD","total":1200}}}`),
		},
		Streams: map[string]StreamScript{
			core.AgentMarketScout: {
				Events: []core.TaskEvent{
					{Kind: core.TaskEventProgress, Message: "searching"},
					{Kind: core.TaskEventProgress, Message: "scoring nearby competitors"},
					{Kind: core.TaskEventStreamLink, StreamURL: "https://watch/1"},
					{Kind: core.TaskEventProgress, Message: "collecting ad examples"},
				},
				Payload: json.RawMessage(`{"ad_count":4,"competitors":["Beanhouse","Ristretto Row"],"keywords":["espresso near me","best pastries"]}`),
			},
			core.AgentCreativeDirector: {
				Events: []core.TaskEvent{
					{Kind: core.TaskEventProgress, Message: "sketching themes"},
					{Kind: core.TaskEventStreamLink, StreamURL: "https://watch/2"},
					{Kind: core.TaskEventProgress, Message: "pairing palettes"},
				},
				Payload: json.RawMessage(`{"themes":["morning ritual","third place"],"palette":["#6b4f3a","#f3e9dc"],"notes":"Warm light, close-up crema shots."}`),
			},
		},
	}
}

// FakeUnaryClient replays scripted unary responses.
type FakeUnaryClient struct {
	mu     sync.Mutex
	script *Script
	calls  []core.TaskRequest
}

var _ core.UnaryClient = (*FakeUnaryClient)(nil)

// NewFakeUnaryClient creates a fake unary client. A nil script uses the
// default scenario.
func NewFakeUnaryClient(script *Script) *FakeUnaryClient {
	if script == nil {
		script = DefaultScript()
	}
	return &FakeUnaryClient{script: script}
}

// Call returns the scripted payload for the agent.
func (c *FakeUnaryClient) Call(ctx context.Context, req core.TaskRequest) (json.RawMessage, error) {
	c.recordCall(req)
	if err := sleepStep(ctx, c.script.StepDelay); err != nil {
		return nil, err
	}
	if err, ok := c.script.Fail[req.AgentID]; ok {
		return nil, err
	}
	payload, ok := c.script.Unary[req.AgentID]
	if !ok {
		return nil, core.ErrUpstream(core.CodeUnknownAgent, "no script for agent "+req.AgentID)
	}
	return payload, nil
}

// Calls returns the requests seen so far.
func (c *FakeUnaryClient) Calls() []core.TaskRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.TaskRequest, len(c.calls))
	copy(out, c.calls)
	return out
}

func (c *FakeUnaryClient) recordCall(req core.TaskRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, req)
}

// FakeStreamingClient replays scripted event sequences.
type FakeStreamingClient struct {
	mu     sync.Mutex
	script *Script
	calls  []core.TaskRequest
}

var _ core.StreamingClient = (*FakeStreamingClient)(nil)

// NewFakeStreamingClient creates a fake streaming client. A nil script
// uses the default scenario.
func NewFakeStreamingClient(script *Script) *FakeStreamingClient {
	if script == nil {
		script = DefaultScript()
	}
	return &FakeStreamingClient{script: script}
}

// CallStream replays the scripted events, then returns the payload.
func (c *FakeStreamingClient) CallStream(ctx context.Context, req core.TaskRequest, onEvent func(core.TaskEvent)) (json.RawMessage, error) {
	c.mu.Lock()
	c.calls = append(c.calls, req)
	c.mu.Unlock()

	if err := sleepStep(ctx, c.script.StepDelay); err != nil {
		return nil, err
	}
	if err, ok := c.script.Fail[req.AgentID]; ok {
		return nil, err
	}
	ss, ok := c.script.Streams[req.AgentID]
	if !ok {
		return nil, core.ErrUpstream(core.CodeUnknownAgent, "no stream script for agent "+req.AgentID)
	}

	for _, ev := range ss.Events {
		if err := sleepStep(ctx, c.script.StepDelay); err != nil {
			return nil, err
		}
		ev.At = time.Now()
		if onEvent != nil {
			onEvent(ev)
		}
	}
	return ss.Payload, nil
}

// Calls returns the requests seen so far.
func (c *FakeStreamingClient) Calls() []core.TaskRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.TaskRequest, len(c.calls))
	copy(out, c.calls)
	return out
}

func sleepStep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return core.ErrTransport(core.CodeRunCancelled, "call cancelled").WithCause(err)
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return core.ErrTransport(core.CodeRunCancelled, "call cancelled").WithCause(ctx.Err())
	case <-timer.C:
		return nil
	}
}
