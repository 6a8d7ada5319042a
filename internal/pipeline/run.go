package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/zillowetl/internal/dag"
	"github.com/leapstack-labs/zillowetl/internal/state"
	"github.com/leapstack-labs/zillowetl/pkg/core"
)

// RunOptions selects which stages a run executes.
type RunOptions struct {
	// Stages to run. Empty means every enabled stage.
	Stages []Stage
	// Downstream adds every stage that depends on a selected one.
	Downstream bool
}

// RunResult holds the reports of the stages that ran.
type RunResult struct {
	Run     *state.Run
	Stages  []*state.StageRun
	Process *ProcessReport
	Combine *CombineReport
	Load    *LoadReport
}

// Runner executes pipeline stages in dependency order and records every run
// in the state store.
type Runner struct {
	pipeline *Pipeline
	store    state.Store
	env      string
	logger   *slog.Logger
	graph    *dag.Graph[Stage]
}

// NewRunner creates a runner recording runs under env.
func NewRunner(p *Pipeline, store state.Store, env string) *Runner {
	g := dag.New[Stage]()
	g.AddNode(string(StageProcess), StageProcess)
	g.AddNode(string(StageCombine), StageCombine)
	_ = g.AddEdge(string(StageProcess), string(StageCombine))
	if p.LoadEnabled() {
		g.AddNode(string(StageLoad), StageLoad)
		_ = g.AddEdge(string(StageCombine), string(StageLoad))
	}

	return &Runner{
		pipeline: p,
		store:    store,
		env:      env,
		logger:   p.logger,
		graph:    g,
	}
}

// Plan returns the stages opts selects, in execution order.
func (r *Runner) Plan(opts RunOptions) ([]Stage, error) {
	ids := make([]string, 0, len(opts.Stages))
	for _, s := range opts.Stages {
		if _, ok := r.graph.Node(string(s)); !ok {
			if s == StageLoad {
				return nil, ErrLoadDisabled
			}
			return nil, fmt.Errorf("unknown stage %q", s)
		}
		ids = append(ids, string(s))
	}

	nodes, err := r.graph.TopologicalSort()
	if err != nil {
		return nil, err
	}

	selected := make(map[string]bool, len(ids))
	if opts.Downstream {
		ids = r.graph.Downstream(ids...)
	}
	for _, id := range ids {
		selected[id] = true
	}

	plan := make([]Stage, 0, len(nodes))
	for _, n := range nodes {
		if len(selected) == 0 || selected[n.ID] {
			plan = append(plan, n.Data)
		}
	}
	return plan, nil
}

// Run executes the selected stages. A stage whose upstream is not part of
// the run takes its input from the latest finished upstream execution in
// the state store, which must have succeeded. The first failing stage ends the run and the remaining
// stages are recorded as skipped.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	plan, err := r.Plan(opts)
	if err != nil {
		return nil, err
	}

	run, err := r.store.CreateRun(ctx, r.env)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	r.logger.Info("run started",
		slog.String("run_id", run.ID),
		slog.String("environment", r.env),
		slog.Any("stages", plan))

	result := &RunResult{Run: run}
	var runErr error
	for i, stage := range plan {
		sr := &state.StageRun{
			RunID:     run.ID,
			Stage:     string(stage),
			Status:    core.StageRunStatusRunning,
			StartedAt: time.Now(),
		}
		if err := r.store.RecordStageRun(ctx, sr); err != nil {
			runErr = fmt.Errorf("failed to record %s stage: %w", stage, err)
			r.skipRemaining(ctx, run.ID, plan[i+1:], result)
			break
		}
		result.Stages = append(result.Stages, sr)

		serr := r.runStage(ctx, stage, sr, result)
		finishStageRun(sr, serr)
		if err := r.store.UpdateStageRun(ctx, sr); err != nil {
			serr = errors.Join(serr, fmt.Errorf("failed to update %s stage: %w", stage, err))
		}

		if serr != nil {
			runErr = serr
			r.logger.Error("stage failed", slog.String("stage", string(stage)), slog.String("error", serr.Error()))
			r.skipRemaining(ctx, run.ID, plan[i+1:], result)
			break
		}
	}

	status := core.RunStatusCompleted
	errMsg := ""
	if runErr != nil {
		status = core.RunStatusFailed
		errMsg = runErr.Error()
	}
	if err := r.store.CompleteRun(ctx, run.ID, status, errMsg); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("failed to complete run: %w", err))
	}
	if completed, err := r.store.GetRun(ctx, run.ID); err == nil {
		result.Run = completed
	}

	r.logger.Info("run finished", slog.String("run_id", run.ID), slog.String("status", string(status)))
	return result, runErr
}

func (r *Runner) runStage(ctx context.Context, stage Stage, sr *state.StageRun, result *RunResult) error {
	switch stage {
	case StageProcess:
		rep, err := r.pipeline.Process(ctx)
		if err != nil {
			return err
		}
		result.Process = rep
		sr.Outcome = string(OutcomeWritten)
		sr.Files = rep.Written
		sr.Rows = rep.Rows
		return nil

	case StageCombine:
		upstream := result.Process
		if upstream == nil {
			var err error
			if upstream, err = r.recoverProcess(ctx); err != nil {
				return err
			}
		}
		rep, err := r.pipeline.Combine(ctx, upstream)
		if err != nil {
			return err
		}
		result.Combine = rep
		sr.Outcome = string(rep.Outcome)
		sr.Artifact = rep.URI
		sr.Files = len(rep.Files)
		sr.Rows = rep.Rows
		return nil

	case StageLoad:
		upstream := result.Combine
		if upstream == nil {
			var err error
			if upstream, err = r.recoverCombine(ctx); err != nil {
				return err
			}
		}
		rep, err := r.pipeline.Load(ctx, upstream)
		if err != nil {
			return err
		}
		result.Load = rep
		sr.Outcome = string(rep.Outcome)
		sr.Artifact = rep.Table
		sr.Rows = upstream.Rows
		return nil
	}
	return fmt.Errorf("unknown stage %q", stage)
}

// recoverProcess rebuilds the process completion signal from the state store.
func (r *Runner) recoverProcess(ctx context.Context) (*ProcessReport, error) {
	sr, err := r.latest(ctx, StageProcess)
	if err != nil {
		return nil, err
	}
	return &ProcessReport{Written: sr.Files, Rows: sr.Rows, Complete: true}, nil
}

// recoverCombine rebuilds the combine completion signal from the state store.
func (r *Runner) recoverCombine(ctx context.Context) (*CombineReport, error) {
	sr, err := r.latest(ctx, StageCombine)
	if err != nil {
		return nil, err
	}
	rep := &CombineReport{Outcome: Outcome(sr.Outcome), Rows: sr.Rows}
	if rep.Outcome == OutcomeWritten {
		rep.Location = r.pipeline.CombinedLocation()
		rep.URI = sr.Artifact
	}
	return rep, nil
}

func (r *Runner) latest(ctx context.Context, stage Stage) (*state.StageRun, error) {
	sr, err := r.store.GetLatestStage(ctx, r.env, string(stage))
	if errors.Is(err, state.ErrNotFound) {
		return nil, fmt.Errorf("no completed %s stage in %s: %w", stage, r.env, ErrUpstreamIncomplete)
	}
	if err != nil {
		return nil, err
	}
	// A newer failed attempt may have left its outputs half-written.
	if sr.Status != core.StageRunStatusSuccess {
		return nil, fmt.Errorf("latest %s stage in %s (run %s) %s: %w", stage, r.env, sr.RunID, sr.Status, ErrUpstreamIncomplete)
	}
	r.logger.Debug("using upstream stage from state",
		slog.String("stage", string(stage)),
		slog.String("run_id", sr.RunID))
	return sr, nil
}

func (r *Runner) skipRemaining(ctx context.Context, runID string, stages []Stage, result *RunResult) {
	now := time.Now()
	for _, stage := range stages {
		sr := &state.StageRun{
			RunID:       runID,
			Stage:       string(stage),
			Status:      core.StageRunStatusSkipped,
			StartedAt:   now,
			CompletedAt: &now,
		}
		if err := r.store.RecordStageRun(ctx, sr); err != nil {
			r.logger.Warn("failed to record skipped stage", slog.String("stage", string(stage)), slog.String("error", err.Error()))
			continue
		}
		result.Stages = append(result.Stages, sr)
	}
}

func finishStageRun(sr *state.StageRun, err error) {
	now := time.Now()
	sr.CompletedAt = &now
	sr.ExecutionMS = now.Sub(sr.StartedAt).Milliseconds()
	if err != nil {
		sr.Status = core.StageRunStatusFailed
		sr.Error = err.Error()
		return
	}
	sr.Status = core.StageRunStatusSuccess
}
