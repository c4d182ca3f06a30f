package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/adsmith-io/adsmith/internal/core"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_SaveAndGetRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	run := newTestRun("run-20260823-120000-aaaa1111")

	id, err := s.SaveRun(ctx, run)
	if err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	if id != run.RunID {
		t.Errorf("SaveRun() id = %q, want %q", id, run.RunID)
	}

	got, err := s.GetRun(ctx, run.RunID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	assertRunEqual(t, got, run)
}

func TestSQLiteStore_SaveIsIdempotent(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	run := newTestRun("run-20260823-120000-bbbb2222")

	if _, err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("first SaveRun() error = %v", err)
	}

	// A second save with different content must not replace the record.
	altered := run
	altered.Input = "someoneelse.example"
	altered.Failed = nil
	id, err := s.SaveRun(ctx, altered)
	if err != nil {
		t.Fatalf("second SaveRun() error = %v", err)
	}
	if id != run.RunID {
		t.Errorf("second SaveRun() id = %q, want %q", id, run.RunID)
	}

	got, err := s.GetRun(ctx, run.RunID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Input != run.Input {
		t.Errorf("Input = %q, want first record %q", got.Input, run.Input)
	}

	summaries, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(summaries) != 1 {
		t.Errorf("len(ListRuns()) = %d, want 1", len(summaries))
	}
}

func TestSQLiteStore_SaveRejectsMissingID(t *testing.T) {
	s := newTestSQLiteStore(t)

	run := newTestRun("")
	if _, err := s.SaveRun(context.Background(), run); err == nil {
		t.Fatal("SaveRun() accepted a run with no ID")
	}
}

func TestSQLiteStore_ListRunsNewestFirst(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour).Round(time.Millisecond)
	ids := []string{"run-a", "run-b", "run-c"}
	for i, id := range ids {
		run := newTestRun(id)
		run.StartedAt = base.Add(time.Duration(i) * time.Minute)
		run.FinishedAt = run.StartedAt.Add(30 * time.Second)
		if _, err := s.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun(%s) error = %v", id, err)
		}
	}

	summaries, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(summaries) != 3 {
		t.Fatalf("len(summaries) = %d, want 3", len(summaries))
	}
	for i, want := range []string{"run-c", "run-b", "run-a"} {
		if summaries[i].RunID != want {
			t.Errorf("summaries[%d].RunID = %q, want %q", i, summaries[i].RunID, want)
		}
	}
	if summaries[0].AgentCount != 3 || summaries[0].FailCount != 1 {
		t.Errorf("counts = %d/%d, want 3/1", summaries[0].AgentCount, summaries[0].FailCount)
	}
}

func TestSQLiteStore_ListTruncatesLongInput(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	run := newTestRun("run-long-input")
	for len(run.Input) <= 100 {
		run.Input += ".campaign-brief-with-a-very-long-tail"
	}
	if _, err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	summaries, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if got := summaries[0].Input; len(got) != 103 || got[100:] != "..." {
		t.Errorf("truncated input = %q (len %d)", got, len(got))
	}

	// The full input stays intact on the record itself.
	full, err := s.GetRun(ctx, run.RunID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if full.Input != run.Input {
		t.Error("GetRun() returned the truncated input")
	}
}

func TestSQLiteStore_DeleteRun(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	run := newTestRun("run-to-delete")

	if _, err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	if err := s.DeleteRun(ctx, run.RunID); err != nil {
		t.Fatalf("DeleteRun() error = %v", err)
	}

	if _, err := s.GetRun(ctx, run.RunID); err == nil {
		t.Fatal("GetRun() succeeded after delete")
	}
	err := s.DeleteRun(ctx, run.RunID)
	if err == nil {
		t.Fatal("second DeleteRun() succeeded")
	}
	var derr *core.DomainError
	if !errors.As(err, &derr) || derr.Category != core.ErrCatNotFound {
		t.Errorf("second DeleteRun() error = %v, want not_found", err)
	}
}

func TestSQLiteStore_GetRunNotFound(t *testing.T) {
	s := newTestSQLiteStore(t)

	_, err := s.GetRun(context.Background(), "run-missing")
	if err == nil {
		t.Fatal("GetRun() on empty store succeeded")
	}
	var derr *core.DomainError
	if !errors.As(err, &derr) || derr.Category != core.ErrCatNotFound {
		t.Errorf("error = %v, want not_found", err)
	}
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()
	run := newTestRun("run-persisted")

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	if _, err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetRun(ctx, run.RunID)
	if err != nil {
		t.Fatalf("GetRun() after reopen error = %v", err)
	}
	assertRunEqual(t, got, run)
}

func TestSQLiteStore_EmptyRunRoundTrips(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	run := newTestRun("run-empty")
	run.Agents = nil
	run.Results = nil
	run.Failed = nil
	run.Activity = nil
	run.Status = core.RunStatusCancelled

	if _, err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	got, err := s.GetRun(ctx, run.RunID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Status != core.RunStatusCancelled {
		t.Errorf("Status = %q, want cancelled", got.Status)
	}
	if len(got.Agents) != 0 || len(got.Activity) != 0 {
		t.Errorf("empty run came back with %d agents, %d activity entries", len(got.Agents), len(got.Activity))
	}
}
