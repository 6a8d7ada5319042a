package core

import (
	"context"
	"time"
)

// Store defines the interface for run state persistence.
type Store interface {
	Open(path string) error
	Close() error
	InitSchema() error

	// Run operations
	CreateRun(ctx context.Context, env string) (*Run, error)
	GetRun(ctx context.Context, id string) (*Run, error)
	CompleteRun(ctx context.Context, id string, status RunStatus, errMsg string) error
	ListRuns(ctx context.Context, limit int) ([]*Run, error)

	// Stage run operations
	RecordStageRun(ctx context.Context, sr *StageRun) error
	UpdateStageRun(ctx context.Context, sr *StageRun) error
	GetStageRunsForRun(ctx context.Context, runID string) ([]*StageRun, error)
	GetLatestStage(ctx context.Context, env string, stage string) (*StageRun, error)
}

// RunStatus represents the status of a pipeline run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run represents one pipeline execution session.
type Run struct {
	ID          string
	Environment string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// StageRunStatus represents the status of an individual stage execution.
type StageRunStatus string

// Stage run status constants.
const (
	StageRunStatusPending StageRunStatus = "pending"
	StageRunStatusRunning StageRunStatus = "running"
	StageRunStatusSuccess StageRunStatus = "success"
	StageRunStatusFailed  StageRunStatus = "failed"
	StageRunStatusSkipped StageRunStatus = "skipped"
)

// StageRun represents a single execution of a stage within a run.
//
// Outcome is a short machine-readable result ("written", "no_data", "loaded")
// and Artifact names what the stage produced, so that a later standalone
// invocation of the downstream stage can pick up where this one left off.
type StageRun struct {
	ID          string
	RunID       string
	Stage       string
	Status      StageRunStatus
	Outcome     string
	Artifact    string
	Files       int
	Rows        int64
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
	ExecutionMS int64
}
