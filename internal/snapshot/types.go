package snapshot

import (
	"time"
)

// FormatVersion is the current archive format version.
const FormatVersion = 1

// ConflictPolicy controls how import handles runs that already exist in
// the destination store.
type ConflictPolicy string

const (
	ConflictSkip      ConflictPolicy = "skip"
	ConflictOverwrite ConflictPolicy = "overwrite"
	ConflictFail      ConflictPolicy = "fail"
)

// RunEntry is one archived run. The full record travels as its JSON
// encoding in Payload; the other fields are a human-readable index and
// the checksum guards the payload bytes.
type RunEntry struct {
	RunID      string    `yaml:"run_id"`
	Input      string    `yaml:"input"`
	Status     string    `yaml:"status"`
	StartedAt  time.Time `yaml:"started_at"`
	FinishedAt time.Time `yaml:"finished_at"`
	AgentCount int       `yaml:"agent_count"`
	FailCount  int       `yaml:"fail_count"`
	SHA256     string    `yaml:"sha256"`
	Payload    string    `yaml:"payload"`
}

// Archive is the document written by Export.
type Archive struct {
	Version     int        `yaml:"version"`
	ExportedAt  time.Time  `yaml:"exported_at"`
	ToolVersion string     `yaml:"tool_version,omitempty"`
	RunCount    int        `yaml:"run_count"`
	Runs        []RunEntry `yaml:"runs"`
}

// ExportOptions configures archive export.
type ExportOptions struct {
	OutputPath  string
	RunIDs      []string // empty exports every stored run
	ToolVersion string
}

// ExportResult describes an export operation.
type ExportResult struct {
	OutputPath string   `yaml:"output_path" json:"output_path"`
	RunCount   int      `yaml:"run_count" json:"run_count"`
	RunIDs     []string `yaml:"run_ids" json:"run_ids"`
}

// ImportOptions configures archive import.
type ImportOptions struct {
	InputPath      string
	ConflictPolicy ConflictPolicy
	DryRun         bool
}

// RunImportReport is the per-run result from import.
type RunImportReport struct {
	RunID  string `yaml:"run_id" json:"run_id"`
	Action string `yaml:"action" json:"action"` // imported, overwritten, skipped
	Reason string `yaml:"reason,omitempty" json:"reason,omitempty"`
}

// ImportReport summarizes import execution.
type ImportReport struct {
	DryRun         bool              `yaml:"dry_run" json:"dry_run"`
	ConflictPolicy ConflictPolicy    `yaml:"conflict_policy" json:"conflict_policy"`
	Runs           []RunImportReport `yaml:"runs" json:"runs"`
	Conflicts      []string          `yaml:"conflicts,omitempty" json:"conflicts,omitempty"`
	ImportedRuns   int               `yaml:"imported_runs" json:"imported_runs"`
	SkippedRuns    int               `yaml:"skipped_runs" json:"skipped_runs"`
}
