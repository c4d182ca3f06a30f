package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/adsmith-io/adsmith/internal/core"
	"github.com/adsmith-io/adsmith/internal/events"
)

func adapterRig(t *testing.T, runID string) (*events.Bus, *BusAdapter) {
	t.Helper()
	bus := events.New(16)
	adapter := NewBusAdapter(bus, runID)
	t.Cleanup(func() {
		adapter.Close()
		bus.Close()
	})
	return bus, adapter
}

func recvMsg(t *testing.T, ch <-chan tea.Msg) tea.Msg {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestBusAdapter_TranslatesRunEvents(t *testing.T) {
	bus, adapter := adapterRig(t, "run-1")

	bus.Publish(events.NewRunStartedEvent("run-1", "bakery in Lisbon"))
	msg := recvMsg(t, adapter.MsgChannel())
	started, ok := msg.(RunStartedMsg)
	if !ok {
		t.Fatalf("got %T, want RunStartedMsg", msg)
	}
	if started.Input != "bakery in Lisbon" {
		t.Errorf("input = %q", started.Input)
	}

	bus.Publish(events.NewRunCompletedEvent("run-1", 42*time.Second, []string{core.AgentCopywriter}))
	msg = recvMsg(t, adapter.MsgChannel())
	completed, ok := msg.(RunCompletedMsg)
	if !ok {
		t.Fatalf("got %T, want RunCompletedMsg", msg)
	}
	if completed.Duration != 42*time.Second || len(completed.FailedAgents) != 1 {
		t.Errorf("completed = %+v", completed)
	}
}

func TestBusAdapter_TranslatesAgentEvents(t *testing.T) {
	bus, adapter := adapterRig(t, "run-1")

	bus.Publish(events.NewAgentStartedEvent("run-1", core.AgentMarketScout, 2, "streaming"))
	bus.Publish(events.NewAgentProgressEvent("run-1", core.AgentMarketScout, "scanning"))
	bus.Publish(events.NewAgentStreamLinkEvent("run-1", core.AgentMarketScout, "http://localhost:8700/s/1"))
	bus.Publish(events.NewAgentCompletedEvent("run-1", core.AgentMarketScout, time.Second, 2048))
	bus.Publish(events.NewAgentFailedEvent("run-1", core.AgentCopywriter, "UPSTREAM", errors.New("boom")))

	wantTypes := []string{"AgentStartedMsg", "AgentProgressMsg", "AgentStreamLinkMsg", "AgentCompletedMsg", "AgentFailedMsg"}
	for _, want := range wantTypes {
		msg := recvMsg(t, adapter.MsgChannel())
		var got string
		switch msg.(type) {
		case AgentStartedMsg:
			got = "AgentStartedMsg"
		case AgentProgressMsg:
			got = "AgentProgressMsg"
		case AgentStreamLinkMsg:
			got = "AgentStreamLinkMsg"
		case AgentCompletedMsg:
			got = "AgentCompletedMsg"
		case AgentFailedMsg:
			got = "AgentFailedMsg"
		default:
			got = "unknown"
		}
		if got != want {
			t.Fatalf("got %s, want %s", got, want)
		}
	}
}

func TestBusAdapter_TranslatesPhaseEvents(t *testing.T) {
	bus, adapter := adapterRig(t, "run-1")

	bus.Publish(events.NewPhaseStartedEvent("run-1", 2, core.PhaseIdeation, []string{core.AgentMarketScout, core.AgentCopywriter}))
	msg := recvMsg(t, adapter.MsgChannel())
	started, ok := msg.(PhaseStartedMsg)
	if !ok {
		t.Fatalf("got %T, want PhaseStartedMsg", msg)
	}
	if started.Phase != 2 || len(started.Agents) != 2 {
		t.Errorf("phase started = %+v", started)
	}

	bus.Publish(events.NewPhaseCompletedEvent("run-1", 2, core.PhaseIdeation, time.Minute, 1, 1))
	msg = recvMsg(t, adapter.MsgChannel())
	if _, ok := msg.(PhaseCompletedMsg); !ok {
		t.Fatalf("got %T, want PhaseCompletedMsg", msg)
	}
}

func TestBusAdapter_PriorityEventsArrive(t *testing.T) {
	bus, adapter := adapterRig(t, "run-1")

	bus.PublishPriority(events.NewRunPersistFailedEvent("run-1", errors.New("disk full")))
	msg := recvMsg(t, adapter.MsgChannel())
	failed, ok := msg.(RunPersistFailedMsg)
	if !ok {
		t.Fatalf("got %T, want RunPersistFailedMsg", msg)
	}
	if failed.Error != "disk full" {
		t.Errorf("error = %q", failed.Error)
	}
}

func TestBusAdapter_FiltersOtherRuns(t *testing.T) {
	bus, adapter := adapterRig(t, "run-1")

	bus.Publish(events.NewAgentStartedEvent("run-other", "intruder", 1, "unary"))
	bus.Publish(events.NewAgentStartedEvent("run-1", core.AgentBusinessAnalyst, 1, "unary"))

	msg := recvMsg(t, adapter.MsgChannel())
	started, ok := msg.(AgentStartedMsg)
	if !ok {
		t.Fatalf("got %T, want AgentStartedMsg", msg)
	}
	if started.Agent != core.AgentBusinessAnalyst {
		t.Errorf("agent = %q, the other run's event should have been dropped", started.Agent)
	}
}

func TestBusAdapter_CloseClosesChannel(t *testing.T) {
	bus := events.New(16)
	defer bus.Close()

	adapter := NewBusAdapter(bus, "run-1")
	adapter.Close()
	adapter.Close() // idempotent

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-adapter.MsgChannel():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("message channel never closed")
		}
	}
}
