package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/adsmith-io/adsmith/internal/events"
)

// BusAdapter bridges event bus events to Bubbletea messages for one
// run. Events from other runs sharing the bus are ignored.
type BusAdapter struct {
	bus        *events.Bus
	runID      string
	eventCh    <-chan events.Event
	priorityCh <-chan events.Event
	msgCh      chan tea.Msg
	closeCh    chan struct{}
	mu         sync.Mutex
	closed     bool

	reportedDrops int64
}

// NewBusAdapter subscribes to the bus and starts translating events
// for the given run.
func NewBusAdapter(bus *events.Bus, runID string) *BusAdapter {
	adapter := &BusAdapter{
		bus:        bus,
		runID:      runID,
		eventCh:    bus.Subscribe(), // all event types
		priorityCh: bus.SubscribePriority(),
		msgCh:      make(chan tea.Msg, 100),
		closeCh:    make(chan struct{}),
	}

	go adapter.run()
	return adapter
}

// MsgChannel returns the channel for Bubbletea to read from.
func (a *BusAdapter) MsgChannel() <-chan tea.Msg {
	return a.msgCh
}

// Close shuts down the adapter.
func (a *BusAdapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	a.closed = true
	close(a.closeCh)
}

// run processes events and converts them to tea.Msg.
func (a *BusAdapter) run() {
	for {
		select {
		case <-a.closeCh:
			close(a.msgCh)
			return

		case event, ok := <-a.priorityCh:
			if !ok {
				return
			}
			a.handleEvent(event)

		case event, ok := <-a.eventCh:
			if !ok {
				return
			}
			a.handleEvent(event)
		}
	}
}

// handleEvent converts an event to a tea.Msg and sends it, then
// reports any new bus drops so the view can flag a lossy feed.
func (a *BusAdapter) handleEvent(event events.Event) {
	if run := event.RunID(); run != "" && run != a.runID {
		return
	}

	if msg := eventToMsg(event); msg != nil {
		a.sendMsg(msg)
	}

	if dropped := a.bus.DroppedCount(); dropped > a.reportedDrops {
		a.reportedDrops = dropped
		a.sendMsg(EventsDroppedMsg{Count: dropped})
	}
}

// eventToMsg converts an events.Event to a tea.Msg.
func eventToMsg(event events.Event) tea.Msg {
	switch e := event.(type) {
	case events.RunStartedEvent:
		return RunStartedMsg{Input: e.Input}

	case events.RunCompletedEvent:
		return RunCompletedMsg{
			Duration:     e.Duration,
			FailedAgents: e.FailedAgents,
		}

	case events.RunCancelledEvent:
		return RunCancelledMsg{Phase: e.Phase}

	case events.RunPersistedEvent:
		return RunPersistedMsg{PersistedID: e.PersistedID}

	case events.RunPersistFailedEvent:
		return RunPersistFailedMsg{Error: e.Error}

	case events.PhaseStartedEvent:
		return PhaseStartedMsg{
			Phase:  e.Phase,
			Name:   e.Name,
			Agents: e.Agents,
		}

	case events.PhaseCompletedEvent:
		return PhaseCompletedMsg{
			Phase:    e.Phase,
			Name:     e.Name,
			Duration: e.Duration,
			Done:     e.Done,
			Failed:   e.Failed,
		}

	case events.AgentStartedEvent:
		return AgentStartedMsg{
			Agent: e.Agent,
			Phase: e.Phase,
			Kind:  e.Kind,
		}

	case events.AgentProgressEvent:
		return AgentProgressMsg{
			Agent:   e.Agent,
			Message: e.Message,
		}

	case events.AgentStreamLinkEvent:
		return AgentStreamLinkMsg{
			Agent: e.Agent,
			URL:   e.URL,
		}

	case events.AgentCompletedEvent:
		return AgentCompletedMsg{
			Agent:    e.Agent,
			Duration: e.Duration,
			Bytes:    e.Bytes,
		}

	case events.AgentFailedEvent:
		return AgentFailedMsg{
			Agent:    e.Agent,
			Category: e.Category,
			Error:    e.Error,
		}

	case events.ConfigReloadedEvent:
		return ConfigReloadedMsg{Warning: e.Warning}

	default:
		return nil
	}
}

// sendMsg sends a message to the channel without blocking. The model
// reads fast; a full channel means the terminal is hopelessly behind,
// so dropping is the lesser evil.
func (a *BusAdapter) sendMsg(msg tea.Msg) {
	select {
	case a.msgCh <- msg:
	default:
	}
}
