package snapshot

import (
	"context"
	"fmt"

	"github.com/adsmith-io/adsmith/internal/core"
)

// Import restores runs from a YAML archive into the store. Runs already
// present are handled per the conflict policy; a dry run reports what
// would happen without touching the store.
func Import(ctx context.Context, store core.RunStore, opts *ImportOptions) (*ImportReport, error) {
	if err := normalizeImportOptions(opts); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("run store is required")
	}

	archive, err := loadArchive(opts.InputPath)
	if err != nil {
		return nil, err
	}

	report := &ImportReport{
		DryRun:         opts.DryRun,
		ConflictPolicy: opts.ConflictPolicy,
		Runs:           make([]RunImportReport, 0, len(archive.Runs)),
		Conflicts:      make([]string, 0),
	}

	for _, entry := range archive.Runs {
		res, decErr := decodeRunEntry(entry)
		if decErr != nil {
			return nil, fmt.Errorf("archive entry %s: %w", entry.RunID, decErr)
		}

		exists, checkErr := runExists(ctx, store, res.RunID)
		if checkErr != nil {
			return nil, fmt.Errorf("checking run %s: %w", res.RunID, checkErr)
		}

		if exists {
			conflictMsg := fmt.Sprintf("run %s already exists in the store", res.RunID)
			switch opts.ConflictPolicy {
			case ConflictSkip:
				report.Runs = append(report.Runs, RunImportReport{
					RunID:  res.RunID,
					Action: "skipped",
					Reason: conflictMsg,
				})
				report.Conflicts = append(report.Conflicts, conflictMsg)
				report.SkippedRuns++
				continue
			case ConflictFail:
				return nil, fmt.Errorf("import conflict: %s", conflictMsg)
			case ConflictOverwrite:
				if !opts.DryRun {
					// SaveRun is first-record-wins, so the old row has
					// to go before the new one can land.
					if delErr := store.DeleteRun(ctx, res.RunID); delErr != nil {
						return nil, fmt.Errorf("replacing run %s: %w", res.RunID, delErr)
					}
					if _, saveErr := store.SaveRun(ctx, res); saveErr != nil {
						return nil, fmt.Errorf("saving run %s: %w", res.RunID, saveErr)
					}
				}
				report.Runs = append(report.Runs, RunImportReport{
					RunID:  res.RunID,
					Action: "overwritten",
					Reason: conflictMsg,
				})
				report.Conflicts = append(report.Conflicts, conflictMsg)
				report.ImportedRuns++
				continue
			default:
				return nil, fmt.Errorf("unsupported conflict policy: %s", opts.ConflictPolicy)
			}
		}

		if !opts.DryRun {
			if _, saveErr := store.SaveRun(ctx, res); saveErr != nil {
				return nil, fmt.Errorf("saving run %s: %w", res.RunID, saveErr)
			}
		}
		report.Runs = append(report.Runs, RunImportReport{
			RunID:  res.RunID,
			Action: "imported",
		})
		report.ImportedRuns++
	}

	return report, nil
}

func runExists(ctx context.Context, store core.RunStore, runID string) (bool, error) {
	_, err := store.GetRun(ctx, runID)
	if err == nil {
		return true, nil
	}
	if core.IsCategory(err, core.ErrCatNotFound) {
		return false, nil
	}
	return false, err
}
