package tui

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// LogHandler is a slog.Handler that forwards records into the running
// TUI as LogMsg values instead of writing to stderr, which would tear
// the Bubbletea screen.
type LogHandler struct {
	mu    sync.RWMutex
	sink  func(tea.Msg)
	level slog.Level
	attrs []slog.Attr
}

// NewLogHandler creates a handler that drops records until a sink is
// bound with SetSink.
func NewLogHandler(level slog.Level) *LogHandler {
	return &LogHandler{level: level}
}

// SetSink binds the message sink, typically tea.Program.Send. A nil
// sink detaches the handler again.
func (h *LogHandler) SetSink(sink func(tea.Msg)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sink = sink
}

func (h *LogHandler) currentSink() func(tea.Msg) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sink
}

// Enabled reports whether the handler handles records at the given level.
func (h *LogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle forwards the record to the TUI as a LogMsg.
func (h *LogHandler) Handle(_ context.Context, r slog.Record) error {
	forwardRecord(h.currentSink(), h.attrs, r)
	return nil
}

// WithAttrs returns a new handler with the given attributes added.
// The sink stays shared so late binding reaches derived handlers too.
func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return &derivedLogHandler{root: h, attrs: mergeAttrs(h.attrs, attrs)}
}

// WithGroup returns the handler unchanged. Group nesting adds nothing
// to a single-line activity feed.
func (h *LogHandler) WithGroup(string) slog.Handler {
	return h
}

// derivedLogHandler carries accumulated attrs while routing through
// the root's sink, so SetSink on the root reaches every child.
type derivedLogHandler struct {
	root  *LogHandler
	attrs []slog.Attr
}

func (h *derivedLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.root.level
}

func (h *derivedLogHandler) Handle(_ context.Context, r slog.Record) error {
	forwardRecord(h.root.currentSink(), h.attrs, r)
	return nil
}

func (h *derivedLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return &derivedLogHandler{root: h.root, attrs: mergeAttrs(h.attrs, attrs)}
}

func (h *derivedLogHandler) WithGroup(string) slog.Handler {
	return h
}

// forwardRecord renders a record with its accumulated attrs and sends
// it to the sink as a LogMsg. A nil sink drops the record.
func forwardRecord(sink func(tea.Msg), attrs []slog.Attr, r slog.Record) {
	if sink == nil {
		return
	}

	var parts []string
	for _, a := range attrs {
		parts = append(parts, a.Key+"="+a.Value.String())
	}
	r.Attrs(func(a slog.Attr) bool {
		parts = append(parts, a.Key+"="+a.Value.String())
		return true
	})

	message := r.Message
	if len(parts) > 0 {
		message += " " + strings.Join(parts, " ")
	}

	sink(LogMsg{
		Time:    r.Time,
		Level:   levelToString(r.Level),
		Message: message,
	})
}

func mergeAttrs(base, extra []slog.Attr) []slog.Attr {
	merged := make([]slog.Attr, 0, len(base)+len(extra))
	merged = append(merged, base...)
	merged = append(merged, extra...)
	return merged
}

func levelToString(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}
