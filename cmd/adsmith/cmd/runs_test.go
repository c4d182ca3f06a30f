package cmd

import (
	"testing"
	"time"

	"github.com/adsmith-io/adsmith/internal/core"
)

func TestRunsCommand_Structure(t *testing.T) {
	found := false
	for _, c := range rootCmd.Commands() {
		if c.Use == "runs" {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("runs command not registered")
	}

	if len(runsCmd.Commands()) < 5 {
		t.Fatalf("expected runs subcommands list/show/export/import/validate")
	}

	if runsListCmd.Flags().Lookup("filter") == nil {
		t.Fatalf("runs list missing --filter flag")
	}
	if runsShowCmd.Flags().Lookup("copy") == nil {
		t.Fatalf("runs show missing --copy flag")
	}
	if runsExportCmd.Flags().Lookup("output") == nil {
		t.Fatalf("runs export missing --output flag")
	}
	if runsImportCmd.Flags().Lookup("input") == nil {
		t.Fatalf("runs import missing --input flag")
	}
	if runsValidateCmd.Flags().Lookup("input") == nil {
		t.Fatalf("runs validate missing --input flag")
	}
}

// --- filterRuns ---

func filterFixtures() []core.RunSummary {
	return []core.RunSummary{
		{RunID: "run-20250601-100000-aaaaaaaa", Input: "vegan bakery in Lisbon"},
		{RunID: "run-20250602-110000-dddddddd", Input: "surf school in Ericeira"},
		{RunID: "run-20250603-120000-cccccccc", Input: "vinyl record store"},
	}
}

func TestFilterRuns_ByInput(t *testing.T) {
	t.Parallel()
	got := filterRuns(filterFixtures(), "bakery")
	if len(got) != 1 {
		t.Fatalf("expected 1 match, got %d", len(got))
	}
	if got[0].RunID != "run-20250601-100000-aaaaaaaa" {
		t.Errorf("unexpected match: %s", got[0].RunID)
	}
}

func TestFilterRuns_ByRunID(t *testing.T) {
	t.Parallel()
	got := filterRuns(filterFixtures(), "cccccccc")
	if len(got) != 1 {
		t.Fatalf("expected 1 match, got %d", len(got))
	}
	if got[0].Input != "vinyl record store" {
		t.Errorf("unexpected match: %s", got[0].Input)
	}
}

func TestFilterRuns_NoMatch(t *testing.T) {
	t.Parallel()
	if got := filterRuns(filterFixtures(), "zzzz"); len(got) != 0 {
		t.Errorf("expected no matches, got %d", len(got))
	}
}

// --- formatters ---

func TestFormatRunTime_Zero(t *testing.T) {
	t.Parallel()
	if got := formatRunTime(time.Time{}); got != "-" {
		t.Errorf("expected -, got %s", got)
	}
}

func TestFormatRunTime_Value(t *testing.T) {
	t.Parallel()
	ts := time.Date(2025, 6, 2, 10, 30, 0, 0, time.Local)
	if got := formatRunTime(ts); got != "2025-06-02 10:30" {
		t.Errorf("expected 2025-06-02 10:30, got %s", got)
	}
}

func TestFormatRunDuration_Zero(t *testing.T) {
	t.Parallel()
	if got := formatRunDuration(core.RunSummary{}); got != "-" {
		t.Errorf("expected -, got %s", got)
	}
}

func TestFormatRunDuration_Value(t *testing.T) {
	t.Parallel()
	start := time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC)
	s := core.RunSummary{StartedAt: start, FinishedAt: start.Add(95 * time.Second)}
	if got := formatRunDuration(s); got != "1m35s" {
		t.Errorf("expected 1m35s, got %s", got)
	}
}

func TestFormatAgentCounts(t *testing.T) {
	t.Parallel()
	if got := formatAgentCounts(core.RunSummary{AgentCount: 7, FailCount: 1}); got != "6/7" {
		t.Errorf("expected 6/7, got %s", got)
	}
	if got := formatAgentCounts(core.RunSummary{AgentCount: 7}); got != "7/7" {
		t.Errorf("expected 7/7, got %s", got)
	}
}
