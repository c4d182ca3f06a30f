package diagnostics

import (
	"path/filepath"
	"testing"
)

func TestCollect_ReturnsMetrics(t *testing.T) {
	t.Parallel()
	c := NewCollector(t.TempDir())
	m := c.Collect()

	// Memory should be > 0 on any real system
	if m.MemTotalMB <= 0 {
		t.Error("expected MemTotalMB > 0")
	}
	if m.MemPercent < 0 || m.MemPercent > 100 {
		t.Errorf("MemPercent out of range: %f", m.MemPercent)
	}

	if m.DiskTotalGB <= 0 {
		t.Error("expected DiskTotalGB > 0")
	}
	if m.DiskPercent < 0 || m.DiskPercent > 100 {
		t.Errorf("DiskPercent out of range: %f", m.DiskPercent)
	}

	if m.Process.Goroutines <= 0 {
		t.Error("expected at least one goroutine")
	}
	if m.Process.GoVersion == "" {
		t.Error("expected a Go version")
	}
}

func TestCollect_CPUInfoCached(t *testing.T) {
	t.Parallel()
	c := NewCollector(t.TempDir())

	m1 := c.Collect()
	m2 := c.Collect()

	if m1.CPUModel != m2.CPUModel {
		t.Errorf("CPU model changed between calls: %q vs %q", m1.CPUModel, m2.CPUModel)
	}
	if m1.CPUCores != m2.CPUCores {
		t.Errorf("CPU cores changed between calls: %d vs %d", m1.CPUCores, m2.CPUCores)
	}
	if m1.CPUThreads != m2.CPUThreads {
		t.Errorf("CPU threads changed between calls: %d vs %d", m1.CPUThreads, m2.CPUThreads)
	}
}

func TestCollect_CPUPercentInRange(t *testing.T) {
	t.Parallel()
	c := NewCollector(t.TempDir())

	// First sample has no delta and must report zero.
	m1 := c.Collect()
	if m1.CPUPercent != 0 {
		t.Errorf("first CPUPercent = %f, want 0", m1.CPUPercent)
	}

	m2 := c.Collect()
	if m2.CPUPercent < 0 || m2.CPUPercent > 100 {
		t.Errorf("CPUPercent out of range: %f", m2.CPUPercent)
	}
}

func TestExistingDir_WalksUpToExistingParent(t *testing.T) {
	t.Parallel()
	base := t.TempDir()

	missing := filepath.Join(base, "nope", "deeper", "runs.db")
	if got := existingDir(missing); got != base {
		t.Errorf("existingDir(%q) = %q, want %q", missing, got, base)
	}

	if got := existingDir(base); got != base {
		t.Errorf("existingDir(%q) = %q, want same dir", base, got)
	}

	if got := existingDir(""); got == "" {
		t.Error("existingDir(\"\") returned empty path")
	}
}
