// Package sse streams pipeline events to web clients over
// Server-Sent Events.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/adsmith-io/adsmith/internal/events"
)

// Handler fans events from the Bus out to connected SSE clients.
// Clients may scope their feed with ?run=<id> and ?types=<a,b,c>.
type Handler struct {
	bus           *events.Bus
	mu            sync.RWMutex
	clients       map[*client]struct{}
	heartbeatFreq time.Duration
}

// client represents one connected SSE stream.
type client struct {
	id     string
	done   chan struct{}
	run    string // optional filter by run ID
	closed bool   // tracks if done channel is already closed
}

// NewHandler creates an SSE handler connected to the given Bus.
func NewHandler(bus *events.Bus) *Handler {
	return &Handler{
		bus:           bus,
		clients:       make(map[*client]struct{}),
		heartbeatFreq: 15 * time.Second,
	}
}

// SetHeartbeatFrequency sets the interval between heartbeat comments.
func (h *Handler) SetHeartbeatFrequency(d time.Duration) {
	if d > 0 {
		h.heartbeatFreq = d
	}
}

// ServeHTTP implements http.Handler for SSE connections.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	runID := r.URL.Query().Get("run")
	types := splitTypes(r.URL.Query().Get("types"))
	c := &client{
		id:   fmt.Sprintf("%d", time.Now().UnixNano()),
		done: make(chan struct{}),
		run:  runID,
	}

	h.addClient(c)
	defer h.removeClient(c)

	// Type filtering happens in the bus; run filtering below.
	eventCh := h.bus.Subscribe(types...)
	defer h.bus.Unsubscribe(eventCh)

	h.sendEvent(w, flusher, "connected", map[string]string{
		"client_id": c.id,
		"run":       runID,
		"types":     strings.Join(types, ","),
	})

	heartbeat := time.NewTicker(h.heartbeatFreq)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-heartbeat.C:
			h.sendComment(w, flusher, "heartbeat")
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			if c.run != "" && event.RunID() != c.run {
				continue
			}
			h.sendEvent(w, flusher, event.EventType(), event)
		}
	}
}

// splitTypes parses the comma-separated types parameter.
func splitTypes(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	types := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			types = append(types, p)
		}
	}
	return types
}

// sendEvent sends a typed SSE event.
func (h *Handler) sendEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, jsonData)
	flusher.Flush()
}

// sendComment sends an SSE comment (used for heartbeats).
func (h *Handler) sendComment(w http.ResponseWriter, flusher http.Flusher, comment string) {
	fmt.Fprintf(w, ": %s\n\n", comment)
	flusher.Flush()
}

func (h *Handler) addClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Handler) removeClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	if !c.closed {
		c.closed = true
		close(c.done)
	}
}

// ClientCount returns the number of connected clients.
func (h *Handler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown disconnects all clients.
func (h *Handler) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if !c.closed {
			c.closed = true
			close(c.done)
		}
	}
	h.clients = make(map[*client]struct{})
	return nil
}
