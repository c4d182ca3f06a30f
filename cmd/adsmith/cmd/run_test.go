package cmd

import (
	"errors"
	"testing"
	"time"

	"github.com/adsmith-io/adsmith/internal/core"
	"github.com/adsmith-io/adsmith/internal/tui"
)

func completedOutcome() runOutcome {
	start := time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC)
	return runOutcome{
		result: core.RunResult{
			RunID:      "run-20250602-103000-8f14e45f",
			Input:      "vegan bakery in Lisbon",
			Status:     core.RunStatusCompleted,
			StartedAt:  start,
			FinishedAt: start.Add(95 * time.Second),
		},
	}
}

func TestReportRun_Completed(t *testing.T) {
	if err := reportRun(completedOutcome(), tui.ModeQuiet); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestReportRun_Cancelled(t *testing.T) {
	out := completedOutcome()
	out.result.Status = core.RunStatusCancelled

	if err := reportRun(out, tui.ModeQuiet); err == nil {
		t.Error("expected error for cancelled run")
	}
}

func TestReportRun_PersistFailureStillSucceeds(t *testing.T) {
	out := completedOutcome()
	out.persistErr = errors.New("disk full")

	if err := reportRun(out, tui.ModeQuiet); err != nil {
		t.Errorf("expected persist failure to warn, not fail: %v", err)
	}
}
