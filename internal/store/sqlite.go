package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adsmith-io/adsmith/internal/core"
	_ "modernc.org/sqlite"
)

//go:embed migrations/001_initial_schema.sql
var migrationV1 string

//go:embed migrations/002_add_run_indexes.sql
var migrationV2 string

// SQLiteStore keeps run history in a single SQLite database.
type SQLiteStore struct {
	dbPath string
	db     *sql.DB
	mu     sync.RWMutex
}

var _ core.RunStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at dbPath and applies
// pending migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, core.ErrPersistence("STORE_DIR_FAILED", "creating store directory").WithCause(err)
	}

	// WAL keeps readers unblocked while a save commits.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, core.ErrPersistence("STORE_OPEN_FAILED", "opening run database").WithCause(err)
	}

	s := &SQLiteStore{dbPath: dbPath, db: db}
	if err := s.migrate(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("running migrations: %w (close error: %v)", err, closeErr)
		}
		return nil, core.ErrPersistence("STORE_MIGRATE_FAILED", "running migrations").WithCause(err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

func (s *SQLiteStore) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		// Table doesn't exist yet, start from zero.
		version = 0
	}

	if version < 1 {
		if _, err := s.db.Exec(migrationV1); err != nil {
			return fmt.Errorf("applying migration v1: %w", err)
		}
	}
	if version < 2 {
		if _, err := s.db.Exec(migrationV2); err != nil {
			return fmt.Errorf("applying migration v2: %w", err)
		}
	}
	return nil
}

// SaveRun persists a finished run. Saving a run ID that already exists
// is a no-op returning the existing ID: the first record wins.
func (s *SQLiteStore) SaveRun(ctx context.Context, res core.RunResult) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if res.RunID == "" {
		return "", core.ErrValidation("RUN_ID_MISSING", "run has no ID")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", core.ErrPersistence(core.CodeSaveFailed, "beginning transaction").WithCause(err)
	}
	defer func() { _ = tx.Rollback() }()

	failCount := len(res.Failed)
	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, input, status, started_at, finished_at, agent_count, fail_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`, res.RunID, res.Input, string(res.Status), res.StartedAt, res.FinishedAt,
		len(res.Agents), failCount, time.Now())
	if err != nil {
		return "", core.ErrPersistence(core.CodeSaveFailed, "inserting run").WithCause(err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return "", core.ErrPersistence(core.CodeSaveFailed, "checking insert result").WithCause(err)
	}
	if inserted == 0 {
		// Already persisted; keep the first record.
		return res.RunID, nil
	}

	for pos, st := range res.Agents {
		if err := insertAgentState(ctx, tx, res.RunID, pos, st); err != nil {
			return "", core.ErrPersistence(core.CodeSaveFailed, "inserting agent state "+st.AgentID).WithCause(err)
		}
	}
	for _, entry := range res.Activity {
		if err := insertActivity(ctx, tx, res.RunID, entry); err != nil {
			return "", core.ErrPersistence(core.CodeSaveFailed, "inserting activity entry").WithCause(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", core.ErrPersistence(core.CodeSaveFailed, "committing run").WithCause(err)
	}
	return res.RunID, nil
}

func insertAgentState(ctx context.Context, tx *sql.Tx, runID string, pos int, st core.TaskState) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO agent_states (run_id, position, agent_id, status, last_message, result, err_detail, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, pos, st.AgentID, string(st.Status),
		nullableString([]byte(st.LastMessage)), nullableString(st.Result),
		nullableString([]byte(st.ErrDetail)), nullableTime(st.StartedAt), nullableTime(st.FinishedAt))
	return err
}

func insertActivity(ctx context.Context, tx *sql.Tx, runID string, e core.ActivityEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO activity (run_id, seq, at, category, agent_id, message, stream_url)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, runID, e.Seq, e.At, string(e.Category),
		nullableString([]byte(e.AgentID)), nullableString([]byte(e.Message)),
		nullableString([]byte(e.StreamURL)))
	return err
}

// GetRun loads one run with its agent states and activity feed.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*core.RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var res core.RunResult
	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, input, status, started_at, finished_at
		FROM runs WHERE run_id = ?
	`, runID).Scan(&res.RunID, &res.Input, &status, &res.StartedAt, &res.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound("run", runID)
	}
	if err != nil {
		return nil, core.ErrPersistence("LOAD_FAILED", "loading run").WithCause(err)
	}
	res.Status = core.RunStatus(status)
	res.Results = make(map[string]json.RawMessage)

	if err := s.loadAgentStates(ctx, &res); err != nil {
		return nil, err
	}
	if err := s.loadActivity(ctx, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *SQLiteStore) loadAgentStates(ctx context.Context, res *core.RunResult) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT agent_id, status, last_message, result, err_detail, started_at, finished_at
		FROM agent_states WHERE run_id = ?
		ORDER BY position
	`, res.RunID)
	if err != nil {
		return core.ErrPersistence("LOAD_FAILED", "loading agent states").WithCause(err)
	}
	defer rows.Close()

	for rows.Next() {
		var st core.TaskState
		var status string
		var lastMessage, result, errDetail sql.NullString
		var startedAt, finishedAt sql.NullTime
		if err := rows.Scan(&st.AgentID, &status, &lastMessage, &result, &errDetail, &startedAt, &finishedAt); err != nil {
			return core.ErrPersistence("LOAD_FAILED", "scanning agent state").WithCause(err)
		}
		st.Status = core.AgentStatus(status)
		if lastMessage.Valid {
			st.LastMessage = lastMessage.String
		}
		if result.Valid {
			st.Result = json.RawMessage(result.String)
			res.Results[st.AgentID] = st.Result
		}
		if errDetail.Valid {
			st.ErrDetail = errDetail.String
		}
		if startedAt.Valid {
			st.StartedAt = &startedAt.Time
		}
		if finishedAt.Valid {
			st.FinishedAt = &finishedAt.Time
		}
		res.Agents = append(res.Agents, st)
		if st.Status == core.StatusError {
			res.Failed = append(res.Failed, st.AgentID)
		}
	}
	if err := rows.Err(); err != nil {
		return core.ErrPersistence("LOAD_FAILED", "iterating agent states").WithCause(err)
	}
	return nil
}

func (s *SQLiteStore) loadActivity(ctx context.Context, res *core.RunResult) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, at, category, agent_id, message, stream_url
		FROM activity WHERE run_id = ?
		ORDER BY seq
	`, res.RunID)
	if err != nil {
		return core.ErrPersistence("LOAD_FAILED", "loading activity").WithCause(err)
	}
	defer rows.Close()

	for rows.Next() {
		var e core.ActivityEntry
		var category string
		var agentID, message, streamURL sql.NullString
		if err := rows.Scan(&e.Seq, &e.At, &category, &agentID, &message, &streamURL); err != nil {
			return core.ErrPersistence("LOAD_FAILED", "scanning activity entry").WithCause(err)
		}
		e.Category = core.ActivityCategory(category)
		if agentID.Valid {
			e.AgentID = agentID.String
		}
		if message.Valid {
			e.Message = message.String
		}
		if streamURL.Valid {
			e.StreamURL = streamURL.String
		}
		res.Activity = append(res.Activity, e)
	}
	if err := rows.Err(); err != nil {
		return core.ErrPersistence("LOAD_FAILED", "iterating activity").WithCause(err)
	}
	return nil
}

// ListRuns returns run summaries, most recent first.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]core.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, input, status, started_at, finished_at, agent_count, fail_count
		FROM runs
		ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, core.ErrPersistence("LOAD_FAILED", "listing runs").WithCause(err)
	}
	defer rows.Close()

	var summaries []core.RunSummary
	for rows.Next() {
		var sum core.RunSummary
		var status string
		if err := rows.Scan(&sum.RunID, &sum.Input, &status, &sum.StartedAt, &sum.FinishedAt,
			&sum.AgentCount, &sum.FailCount); err != nil {
			return nil, core.ErrPersistence("LOAD_FAILED", "scanning run summary").WithCause(err)
		}
		sum.Status = core.RunStatus(status)
		// Long inputs get truncated for display.
		if len(sum.Input) > 100 {
			sum.Input = sum.Input[:100] + "..."
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, core.ErrPersistence("LOAD_FAILED", "iterating run summaries").WithCause(err)
	}
	return summaries, nil
}

// DeleteRun removes a run and its dependent rows.
func (s *SQLiteStore) DeleteRun(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.ErrPersistence("DELETE_FAILED", "beginning transaction").WithCause(err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM activity WHERE run_id = ?", runID); err != nil {
		return core.ErrPersistence("DELETE_FAILED", "deleting activity").WithCause(err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM agent_states WHERE run_id = ?", runID); err != nil {
		return core.ErrPersistence("DELETE_FAILED", "deleting agent states").WithCause(err)
	}
	result, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE run_id = ?", runID)
	if err != nil {
		return core.ErrPersistence("DELETE_FAILED", "deleting run").WithCause(err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return core.ErrPersistence("DELETE_FAILED", "checking delete result").WithCause(err)
	}
	if deleted == 0 {
		return core.ErrNotFound("run", runID)
	}
	return tx.Commit()
}

// Helper functions for nullable values.

func nullableString(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
