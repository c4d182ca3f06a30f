// Package snapshot exports persisted runs to YAML archives and imports
// them back, for backups and for moving runs between machines. Payloads
// are checksummed so a hand-edited or truncated archive is rejected
// instead of half-imported.
package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/adsmith-io/adsmith/internal/core"
)

// Export writes the selected runs from the store into a YAML archive.
// An empty RunIDs selects every stored run.
func Export(ctx context.Context, store core.RunStore, opts *ExportOptions) (*ExportResult, error) {
	if err := normalizeExportOptions(opts); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("run store is required")
	}

	runIDs, err := selectRunsForExport(ctx, store, opts.RunIDs)
	if err != nil {
		return nil, err
	}
	if len(runIDs) == 0 {
		return nil, fmt.Errorf("no runs to export")
	}

	archive := &Archive{
		Version:     FormatVersion,
		ExportedAt:  time.Now().UTC(),
		ToolVersion: opts.ToolVersion,
		RunCount:    len(runIDs),
		Runs:        make([]RunEntry, 0, len(runIDs)),
	}

	for _, id := range runIDs {
		res, getErr := store.GetRun(ctx, id)
		if getErr != nil {
			return nil, fmt.Errorf("reading run %s: %w", id, getErr)
		}
		entry, encErr := encodeRunEntry(res)
		if encErr != nil {
			return nil, fmt.Errorf("encoding run %s: %w", id, encErr)
		}
		archive.Runs = append(archive.Runs, entry)
	}

	sort.Slice(archive.Runs, func(i, j int) bool {
		return archive.Runs[i].RunID < archive.Runs[j].RunID
	})

	data, err := yaml.Marshal(archive)
	if err != nil {
		return nil, fmt.Errorf("encoding archive: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(opts.OutputPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	if err := writeFileAtomic(opts.OutputPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("writing archive: %w", err)
	}

	exported := make([]string, 0, len(archive.Runs))
	for _, entry := range archive.Runs {
		exported = append(exported, entry.RunID)
	}

	return &ExportResult{
		OutputPath: opts.OutputPath,
		RunCount:   len(exported),
		RunIDs:     exported,
	}, nil
}

func selectRunsForExport(ctx context.Context, store core.RunStore, selectedIDs []string) ([]string, error) {
	if len(selectedIDs) == 0 {
		summaries, err := store.ListRuns(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing runs: %w", err)
		}
		ids := make([]string, 0, len(summaries))
		for _, s := range summaries {
			ids = append(ids, s.RunID)
		}
		return ids, nil
	}

	seen := make(map[string]bool, len(selectedIDs))
	ids := make([]string, 0, len(selectedIDs))
	for _, id := range selectedIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// encodeRunEntry freezes a run into an archive entry. The payload is
// the run's indented JSON, so the archive stays readable in a pager.
func encodeRunEntry(res *core.RunResult) (RunEntry, error) {
	if res == nil {
		return RunEntry{}, fmt.Errorf("run record is nil")
	}
	payload, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return RunEntry{}, err
	}

	hash := sha256.Sum256(payload)
	failCount := len(res.Failed)

	return RunEntry{
		RunID:      res.RunID,
		Input:      res.Input,
		Status:     string(res.Status),
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		AgentCount: len(res.Agents),
		FailCount:  failCount,
		SHA256:     hex.EncodeToString(hash[:]),
		Payload:    string(payload),
	}, nil
}
