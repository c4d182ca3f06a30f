package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/adsmith-io/adsmith/internal/events"
)

func TestNewHandler(t *testing.T) {
	bus := events.New(100)
	defer bus.Close()

	h := NewHandler(bus)
	if h == nil {
		t.Fatal("expected non-nil handler")
	}
	if h.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", h.ClientCount())
	}
}

func TestHandler_ServeHTTP_ConnectsClient(t *testing.T) {
	bus := events.New(100)
	defer bus.Close()

	h := NewHandler(bus)
	h.SetHeartbeatFrequency(100 * time.Millisecond)

	ts := httptest.NewServer(h)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", ts.URL, nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected Content-Type text/event-stream, got %s", ct)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("expected Cache-Control no-cache, got %s", cc)
	}

	reader := bufio.NewReader(resp.Body)
	eventLine, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("failed to read event line: %v", err)
	}
	if !strings.HasPrefix(eventLine, "event: connected") {
		t.Errorf("expected connected event, got %s", eventLine)
	}
}

func TestHandler_StreamsEvents(t *testing.T) {
	bus := events.New(100)
	defer bus.Close()

	h := NewHandler(bus)
	h.SetHeartbeatFrequency(10 * time.Second) // Long heartbeat to avoid interference

	ts := httptest.NewServer(h)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", ts.URL, nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)

	// Skip connection event: event line, data line, blank line
	for i := 0; i < 3; i++ {
		_, _ = reader.ReadString('\n')
	}

	// Give the handler time to subscribe
	time.Sleep(100 * time.Millisecond)

	bus.Publish(events.NewRunStartedEvent("run-123", "coffee shop in Lisbon"))

	eventLine, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("failed to read event line: %v", err)
	}
	if !strings.HasPrefix(eventLine, "event: run_started") {
		t.Errorf("expected run_started event, got %s", eventLine)
	}

	dataLine, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("failed to read data line: %v", err)
	}
	if !strings.HasPrefix(dataLine, "data: ") {
		t.Errorf("expected data line, got %s", dataLine)
	}

	jsonStr := strings.TrimPrefix(dataLine, "data: ")
	var eventData map[string]interface{}
	if err := json.Unmarshal([]byte(jsonStr), &eventData); err != nil {
		t.Fatalf("failed to parse event data: %v", err)
	}

	if eventData["run_id"] != "run-123" {
		t.Errorf("expected run_id run-123, got %v", eventData["run_id"])
	}
	if eventData["input"] != "coffee shop in Lisbon" {
		t.Errorf("expected input to round-trip, got %v", eventData["input"])
	}
}

func TestHandler_FiltersByRun(t *testing.T) {
	bus := events.New(100)
	defer bus.Close()

	h := NewHandler(bus)
	h.SetHeartbeatFrequency(10 * time.Second)

	ts := httptest.NewServer(h)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", ts.URL+"?run=run-123", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	for i := 0; i < 3; i++ {
		_, _ = reader.ReadString('\n')
	}

	time.Sleep(100 * time.Millisecond)

	bus.Publish(events.NewRunStartedEvent("run-456", "other run"))
	bus.Publish(events.NewRunStartedEvent("run-123", "filtered run"))

	eventLine, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("failed to read event line: %v", err)
	}

	dataLine, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("failed to read data line: %v", err)
	}

	jsonStr := strings.TrimPrefix(dataLine, "data: ")
	var eventData map[string]interface{}
	if err := json.Unmarshal([]byte(jsonStr), &eventData); err != nil {
		t.Fatalf("failed to parse event data: %v", err)
	}

	if eventData["run_id"] != "run-123" {
		t.Errorf("expected filtered run run-123, got %v (event: %s)", eventData["run_id"], eventLine)
	}
}

func TestHandler_FiltersByType(t *testing.T) {
	bus := events.New(100)
	defer bus.Close()

	h := NewHandler(bus)
	h.SetHeartbeatFrequency(10 * time.Second)

	ts := httptest.NewServer(h)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", ts.URL+"?types=agent_failed", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	for i := 0; i < 3; i++ {
		_, _ = reader.ReadString('\n')
	}

	time.Sleep(100 * time.Millisecond)

	bus.Publish(events.NewAgentProgressEvent("run-1", "market-scout", "scanning"))
	bus.Publish(events.NewAgentFailedEvent("run-1", "copywriter", "upstream", nil))

	eventLine, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("failed to read event line: %v", err)
	}
	if !strings.HasPrefix(eventLine, "event: agent_failed") {
		t.Errorf("expected only agent_failed through the filter, got %s", eventLine)
	}
}

func TestHandler_ClientCount(t *testing.T) {
	bus := events.New(100)
	defer bus.Close()

	h := NewHandler(bus)

	ts := httptest.NewServer(h)
	defer ts.Close()

	if h.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", h.ClientCount())
	}

	ctx, cancel := context.WithCancel(context.Background())
	req, _ := http.NewRequestWithContext(ctx, "GET", ts.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if h.ClientCount() != 1 {
		t.Errorf("expected 1 client, got %d", h.ClientCount())
	}

	cancel()
	resp.Body.Close()

	time.Sleep(100 * time.Millisecond)

	if h.ClientCount() != 0 {
		t.Errorf("expected 0 clients after disconnect, got %d", h.ClientCount())
	}
}

func TestHandler_Shutdown(t *testing.T) {
	bus := events.New(100)
	defer bus.Close()

	h := NewHandler(bus)

	ts := httptest.NewServer(h)
	defer ts.Close()

	clients := make([]*http.Response, 3)
	defer func() {
		for _, resp := range clients {
			if resp != nil {
				resp.Body.Close()
			}
		}
	}()

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		req, _ := http.NewRequestWithContext(ctx, "GET", ts.URL, nil)
		resp, err := http.DefaultClient.Do(req) //nolint:bodyclose // closed in deferred cleanup above
		if err != nil {
			t.Fatalf("failed to connect client %d: %v", i, err)
		}
		clients[i] = resp
	}

	time.Sleep(100 * time.Millisecond)

	if h.ClientCount() != 3 {
		t.Errorf("expected 3 clients, got %d", h.ClientCount())
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := h.Shutdown(ctx); err != nil {
		t.Errorf("shutdown error: %v", err)
	}

	if h.ClientCount() != 0 {
		t.Errorf("expected 0 clients after shutdown, got %d", h.ClientCount())
	}
}

func TestHandler_Heartbeat(t *testing.T) {
	bus := events.New(100)
	defer bus.Close()

	h := NewHandler(bus)
	h.SetHeartbeatFrequency(100 * time.Millisecond)

	ts := httptest.NewServer(h)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, "GET", ts.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)

	// Skip initial event
	for i := 0; i < 3; i++ {
		_, _ = reader.ReadString('\n')
	}

	time.Sleep(150 * time.Millisecond)

	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("failed to read heartbeat: %v", err)
	}

	if !strings.HasPrefix(line, ": heartbeat") {
		t.Errorf("expected heartbeat comment, got %s", line)
	}
}

func TestSplitTypes(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 0},
		{"agent_failed", 1},
		{"agent_failed,run_completed", 2},
		{" agent_failed , ,run_completed ", 2},
	}
	for _, tt := range tests {
		if got := splitTypes(tt.raw); len(got) != tt.want {
			t.Errorf("splitTypes(%q) = %v, want %d entries", tt.raw, got, tt.want)
		}
	}
}
