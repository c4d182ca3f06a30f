package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/adsmith-io/adsmith/internal/core"
	"github.com/adsmith-io/adsmith/internal/logging"
)

func TestUnaryHTTPClient_Call(t *testing.T) {
	var gotPath string
	var gotReq core.TaskRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"business_type":"cafe"}`))
	}))
	defer srv.Close()

	c := NewUnaryHTTPClient(Config{BaseURL: srv.URL}, logging.NewNop())
	payload, err := c.Call(context.Background(), core.TaskRequest{
		RunID:   "run-1",
		AgentID: core.AgentBusinessAnalyst,
		Input:   "https://example.com",
	})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if gotPath != "/agents/business-analyst/task" {
		t.Errorf("path = %s", gotPath)
	}
	if gotReq.Input != "https://example.com" {
		t.Errorf("request input = %q", gotReq.Input)
	}
	if string(payload) != `{"business_type":"cafe"}` {
		t.Errorf("payload = %s", payload)
	}
}

func TestUnaryHTTPClient_SendsAuthAndContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key-123" {
			t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		var req core.TaskRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if string(req.Context["business-analyst"]) != `{"business_type":"cafe"}` {
			t.Errorf("prior-phase context not forwarded: %v", req.Context)
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewUnaryHTTPClient(Config{BaseURL: srv.URL, APIKey: "key-123"}, nil)
	_, err := c.Call(context.Background(), core.TaskRequest{
		AgentID: core.AgentCopywriter,
		Context: map[string]json.RawMessage{
			"business-analyst": json.RawMessage(`{"business_type":"cafe"}`),
		},
	})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
}

func TestUnaryHTTPClient_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewUnaryHTTPClient(Config{BaseURL: srv.URL}, nil)
	_, err := c.Call(context.Background(), core.TaskRequest{AgentID: "x"})
	if err == nil {
		t.Fatalf("expected error for 503")
	}
	if !core.IsUpstream(err) {
		t.Errorf("expected upstream category, got %s", core.GetCategory(err))
	}
}

func TestUnaryHTTPClient_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("definitely not json"))
	}))
	defer srv.Close()

	c := NewUnaryHTTPClient(Config{BaseURL: srv.URL}, nil)
	_, err := c.Call(context.Background(), core.TaskRequest{AgentID: "x"})
	if err == nil {
		t.Fatalf("expected error for non-JSON body")
	}
	if !core.IsProtocol(err) {
		t.Errorf("expected protocol category, got %s", core.GetCategory(err))
	}
}

func TestUnaryHTTPClient_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := NewUnaryHTTPClient(Config{BaseURL: srv.URL}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := c.Call(ctx, core.TaskRequest{AgentID: "x"})
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if !core.IsCategory(err, core.ErrCatTimeout) {
		t.Errorf("expected timeout category, got %s", core.GetCategory(err))
	}
}

func TestUnaryHTTPClient_ConnectionRefused(t *testing.T) {
	// Reserve a port, then close the listener so the dial fails.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewUnaryHTTPClient(Config{BaseURL: url}, nil)
	_, err := c.Call(context.Background(), core.TaskRequest{AgentID: "x"})
	if err == nil {
		t.Fatalf("expected dial error")
	}
	if !core.IsTransport(err) {
		t.Errorf("expected transport category, got %s", core.GetCategory(err))
	}
}
