package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/zillowetl/pkg/core"
)

const stageColumns = `sr.id, sr.run_id, sr.stage, sr.status, sr.outcome, sr.artifact, sr.files,
	sr.row_count, sr.started_at, sr.completed_at, sr.error, sr.execution_ms`

// RecordStageRun inserts a stage run. An empty ID is filled in.
func (s *SQLiteStore) RecordStageRun(ctx context.Context, sr *core.StageRun) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if sr.ID == "" {
		sr.ID = generateID()
	}

	s.logger.Debug("recording stage run",
		slog.String("id", sr.ID),
		slog.String("run_id", sr.RunID),
		slog.String("stage", sr.Stage),
		slog.String("status", string(sr.Status)))

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stage_runs (id, run_id, stage, status, outcome, artifact, files,
			row_count, started_at, completed_at, error, execution_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sr.ID, sr.RunID, sr.Stage, string(sr.Status), sr.Outcome, sr.Artifact, sr.Files,
		sr.Rows, toMillis(sr.StartedAt), nullMillis(sr.CompletedAt), nullString(sr.Error), sr.ExecutionMS,
	)
	if err != nil {
		return fmt.Errorf("failed to record stage run: %w", err)
	}
	return nil
}

// UpdateStageRun overwrites the mutable fields of an existing stage run.
func (s *SQLiteStore) UpdateStageRun(ctx context.Context, sr *core.StageRun) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE stage_runs SET status = ?, outcome = ?, artifact = ?, files = ?, row_count = ?,
			completed_at = ?, error = ?, execution_ms = ?
		WHERE id = ?`,
		string(sr.Status), sr.Outcome, sr.Artifact, sr.Files, sr.Rows,
		nullMillis(sr.CompletedAt), nullString(sr.Error), sr.ExecutionMS, sr.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update stage run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("stage run %s: %w", sr.ID, ErrNotFound)
	}
	return nil
}

// GetStageRunsForRun returns a run's stage runs in the order they started.
func (s *SQLiteStore) GetStageRunsForRun(ctx context.Context, runID string) ([]*core.StageRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+stageColumns+` FROM stage_runs sr WHERE sr.run_id = ? ORDER BY sr.started_at, sr.rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stage runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*core.StageRun
	for rows.Next() {
		sr, err := scanStageRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stage run: %w", err)
		}
		out = append(out, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stage runs: %w", err)
	}
	return out, nil
}

// GetLatestStage returns the most recently finished attempt (success or
// failure) of stage in env. Skipped and unfinished stage runs are ignored.
// It returns ErrNotFound when the stage never finished.
func (s *SQLiteStore) GetLatestStage(ctx context.Context, env, stage string) (*core.StageRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+stageColumns+`
		FROM stage_runs sr
		JOIN runs r ON r.id = sr.run_id
		WHERE r.environment = ? AND sr.stage = ? AND sr.status IN (?, ?)
		ORDER BY sr.completed_at DESC, sr.rowid DESC
		LIMIT 1`,
		env, stage, string(core.StageRunStatusSuccess), string(core.StageRunStatusFailed),
	)
	sr, err := scanStageRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no finished %s stage in %s: %w", stage, env, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest stage run: %w", err)
	}
	return sr, nil
}

func scanStageRun(sc scanner) (*core.StageRun, error) {
	var (
		sr          core.StageRun
		status      string
		startedAt   int64
		completedAt sql.NullInt64
		errMsg      sql.NullString
	)
	err := sc.Scan(&sr.ID, &sr.RunID, &sr.Stage, &status, &sr.Outcome, &sr.Artifact, &sr.Files,
		&sr.Rows, &startedAt, &completedAt, &errMsg, &sr.ExecutionMS)
	if err != nil {
		return nil, err
	}
	sr.Status = core.StageRunStatus(status)
	sr.StartedAt = fromMillis(startedAt)
	sr.CompletedAt = timePtr(completedAt)
	sr.Error = errMsg.String
	return &sr, nil
}
