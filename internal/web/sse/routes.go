package sse

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/adsmith-io/adsmith/internal/events"
)

// RegisterRoutes registers the SSE handler on the given chi router at
// GET /events relative to the router's mount point.
func RegisterRoutes(r chi.Router, bus *events.Bus) *Handler {
	h := NewHandler(bus)
	r.Get("/events", h.ServeHTTP)
	return h
}

// HandlerFunc returns the SSE handler as http.HandlerFunc for non-chi
// routers.
func (h *Handler) HandlerFunc() http.HandlerFunc {
	return h.ServeHTTP
}
