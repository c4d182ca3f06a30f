package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/adsmith-io/adsmith/internal/core"
	"github.com/adsmith-io/adsmith/internal/fsutil"
)

// Validate checks an archive's structure and checksums without touching
// any store, and returns the decoded archive for inspection.
func Validate(inputPath string) (*Archive, error) {
	return loadArchive(inputPath)
}

func loadArchive(inputPath string) (*Archive, error) {
	if strings.TrimSpace(inputPath) == "" {
		return nil, fmt.Errorf("input path is required")
	}

	data, err := fsutil.ReadFileScoped(inputPath)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	var archive Archive
	if err := yaml.Unmarshal(data, &archive); err != nil {
		return nil, fmt.Errorf("decoding archive: %w", err)
	}
	if archive.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported archive version: %d", archive.Version)
	}
	if archive.RunCount != len(archive.Runs) {
		return nil, fmt.Errorf("archive lists %d runs but contains %d", archive.RunCount, len(archive.Runs))
	}

	seen := make(map[string]bool, len(archive.Runs))
	for i, entry := range archive.Runs {
		if err := validateRunEntry(entry); err != nil {
			return nil, fmt.Errorf("archive entry %d (%s): %w", i, entry.RunID, err)
		}
		if seen[entry.RunID] {
			return nil, fmt.Errorf("archive contains run %s twice", entry.RunID)
		}
		seen[entry.RunID] = true
	}

	return &archive, nil
}

func validateRunEntry(entry RunEntry) error {
	if strings.TrimSpace(entry.RunID) == "" {
		return fmt.Errorf("missing run_id")
	}
	if entry.Payload == "" {
		return fmt.Errorf("missing payload")
	}

	hash := sha256.Sum256([]byte(entry.Payload))
	if hex.EncodeToString(hash[:]) != entry.SHA256 {
		return fmt.Errorf("payload checksum mismatch")
	}
	return nil
}

// decodeRunEntry verifies an entry and unpacks its run record. The
// index fields are advisory; the payload is the source of truth, except
// that its run ID must agree with the index.
func decodeRunEntry(entry RunEntry) (core.RunResult, error) {
	if err := validateRunEntry(entry); err != nil {
		return core.RunResult{}, err
	}

	var res core.RunResult
	if err := json.Unmarshal([]byte(entry.Payload), &res); err != nil {
		return core.RunResult{}, fmt.Errorf("decoding payload: %w", err)
	}
	if res.RunID != entry.RunID {
		return core.RunResult{}, fmt.Errorf("payload run ID %s does not match entry %s", res.RunID, entry.RunID)
	}
	return res, nil
}
