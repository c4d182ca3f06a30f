package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/adsmith-io/adsmith/internal/core"
	"github.com/adsmith-io/adsmith/internal/fsutil"
)

// JSONStore keeps one JSON file per run in a directory. Files carry a
// checksum envelope so silent corruption is caught on load.
type JSONStore struct {
	dir string
	mu  sync.Mutex
}

var _ core.RunStore = (*JSONStore)(nil)

// runEnvelope wraps a persisted run with integrity metadata.
type runEnvelope struct {
	Version  int             `json:"version"`
	Checksum string          `json:"checksum"`
	SavedAt  time.Time       `json:"saved_at"`
	Run      *core.RunResult `json:"run"`
}

// NewJSONStore creates a JSON run store rooted at dir.
func NewJSONStore(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, core.ErrPersistence("STORE_DIR_FAILED", "creating store directory").WithCause(err)
	}
	return &JSONStore{dir: dir}, nil
}

// Close is a no-op; files are closed per operation.
func (s *JSONStore) Close() error { return nil }

// Path returns the store directory.
func (s *JSONStore) Path() string { return s.dir }

// SaveRun writes the run to its own file. An existing file for the
// same run ID is left untouched: the first record wins.
func (s *JSONStore) SaveRun(_ context.Context, res core.RunResult) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if res.RunID == "" {
		return "", core.ErrValidation("RUN_ID_MISSING", "run has no ID")
	}
	path, err := s.runPath(res.RunID)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err == nil {
		// Already persisted.
		return res.RunID, nil
	}

	runBytes, err := json.Marshal(&res)
	if err != nil {
		return "", core.ErrPersistence(core.CodeSaveFailed, "marshaling run").WithCause(err)
	}
	hash := sha256.Sum256(runBytes)

	envelope := runEnvelope{
		Version:  1,
		Checksum: hex.EncodeToString(hash[:]),
		SavedAt:  time.Now(),
		Run:      &res,
	}
	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return "", core.ErrPersistence(core.CodeSaveFailed, "marshaling envelope").WithCause(err)
	}

	if err := atomicWriteFile(path, data, 0o644); err != nil {
		return "", core.ErrPersistence(core.CodeSaveFailed, "writing run file").WithCause(err)
	}
	return res.RunID, nil
}

// GetRun loads and verifies one run file.
func (s *JSONStore) GetRun(_ context.Context, runID string) (*core.RunResult, error) {
	path, err := s.runPath(runID)
	if err != nil {
		return nil, err
	}
	res, err := s.loadFromPath(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, core.ErrNotFound("run", runID)
		}
		return nil, err
	}
	return res, nil
}

func (s *JSONStore) loadFromPath(path string) (*core.RunResult, error) {
	data, err := fsutil.ReadFileScoped(path)
	if err != nil {
		return nil, core.ErrPersistence("LOAD_FAILED", "reading run file").WithCause(err)
	}

	var envelope runEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, core.ErrPersistence("RUN_CORRUPTED", "unmarshaling run envelope").WithCause(err)
	}
	if envelope.Run == nil {
		return nil, core.ErrPersistence("RUN_CORRUPTED", "run envelope has no payload")
	}

	runBytes, err := json.Marshal(envelope.Run)
	if err != nil {
		return nil, core.ErrPersistence("LOAD_FAILED", "marshaling run for checksum").WithCause(err)
	}
	hash := sha256.Sum256(runBytes)
	if hex.EncodeToString(hash[:]) != envelope.Checksum {
		return nil, core.ErrPersistence("RUN_CORRUPTED", "checksum mismatch in "+filepath.Base(path))
	}
	return envelope.Run, nil
}

// ListRuns summarises every readable run file, most recent first.
// Unreadable or corrupt files are skipped; GetRun surfaces their error.
func (s *JSONStore) ListRuns(_ context.Context) ([]core.RunSummary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, core.ErrPersistence("LOAD_FAILED", "reading store directory").WithCause(err)
	}

	var summaries []core.RunSummary
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		res, err := s.loadFromPath(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		sum := res.Summary()
		if len(sum.Input) > 100 {
			sum.Input = sum.Input[:100] + "..."
		}
		summaries = append(summaries, sum)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StartedAt.After(summaries[j].StartedAt)
	})
	return summaries, nil
}

// DeleteRun removes a run file.
func (s *JSONStore) DeleteRun(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.runPath(runID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return core.ErrNotFound("run", runID)
		}
		return core.ErrPersistence("DELETE_FAILED", "removing run file").WithCause(err)
	}
	return nil
}

// runPath maps a run ID to its file, rejecting IDs that would escape
// the store directory.
func (s *JSONStore) runPath(runID string) (string, error) {
	if runID == "" || runID != filepath.Base(runID) || strings.ContainsAny(runID, "/\\") {
		return "", core.ErrValidation("RUN_ID_INVALID", fmt.Sprintf("run ID %q is not a valid file name", runID))
	}
	return filepath.Join(s.dir, runID+".json"), nil
}
