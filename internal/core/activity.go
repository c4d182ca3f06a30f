package core

import (
	"sync"
	"time"
)

// ActivityCategory classifies entries in a run's activity log.
type ActivityCategory string

const (
	ActProgress   ActivityCategory = "progress"    // Streaming progress message
	ActResult     ActivityCategory = "result"      // Agent delivered its payload
	ActError      ActivityCategory = "error"       // Agent or run failure
	ActSystem     ActivityCategory = "system"      // Run/phase boundary marker
	ActStreamLink ActivityCategory = "stream_link" // Live stream URL from an agent
)

// ActivityEntry is one line in the run's activity feed.
type ActivityEntry struct {
	Seq       int64            `json:"seq"`
	At        time.Time        `json:"at"`
	Category  ActivityCategory `json:"category"`
	AgentID   string           `json:"agent_id,omitempty"`
	Message   string           `json:"message"`
	StreamURL string           `json:"stream_url,omitempty"`
}

// ActivityLog is an append-only feed of run activity. Entries are
// ordered by the time they were appended; the sequence number is
// assigned under the same lock as the timestamp, so entries with equal
// timestamps keep their insertion order. Snapshots never re-sort.
type ActivityLog struct {
	mu      sync.Mutex
	nextSeq int64
	entries []ActivityEntry
}

// NewActivityLog creates an empty activity log.
func NewActivityLog() *ActivityLog {
	return &ActivityLog{}
}

// Append records an entry stamped with the current time.
func (l *ActivityLog) Append(cat ActivityCategory, agentID, message string) ActivityEntry {
	return l.append(ActivityEntry{Category: cat, AgentID: agentID, Message: message})
}

// AppendStreamLink records a stream-link entry carrying the live URL.
func (l *ActivityLog) AppendStreamLink(agentID, url string) ActivityEntry {
	return l.append(ActivityEntry{
		Category:  ActStreamLink,
		AgentID:   agentID,
		Message:   "live stream available",
		StreamURL: url,
	})
}

func (l *ActivityLog) append(e ActivityEntry) ActivityEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.Seq = l.nextSeq
	e.At = time.Now()
	l.nextSeq++
	l.entries = append(l.entries, e)
	return e
}

// Snapshot returns a copy of all entries in order.
func (l *ActivityLog) Snapshot() []ActivityEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ActivityEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *ActivityLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
