package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/zillowetl/internal/pipeline"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

// NewScheduleCommand creates the schedule command.
func NewScheduleCommand() *cobra.Command {
	var (
		spec   string
		runNow bool
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline on a cron schedule",
		Long: `Run the full pipeline every time the cron expression fires, until
interrupted. The expression defaults to schedule.cron (@daily). Runs never
overlap: a tick that arrives while a run is in progress is skipped.`,
		Example: `  # Run at 06:00 every day
  zillowetl schedule --cron "0 6 * * *"

  # Run once immediately, then hourly
  zillowetl schedule --cron @hourly --run-now`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if spec == "" {
				spec = cc.Cfg.Schedule.Cron
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Scheduling pipeline with %q (environment %s)\n", spec, cc.Cfg.Environment)
			return schedulePipeline(ctx, spec, runNow, cc.Logger, pipelineJob(cc))
		},
	}

	cmd.Flags().StringVar(&spec, "cron", "", "Cron expression (default: schedule.cron)")
	cmd.Flags().BoolVar(&runNow, "run-now", false, "Run once immediately before waiting for the schedule")

	return cmd
}

// pipelineJob runs every enabled stage and logs the outcome.
func pipelineJob(cc *CommandContext) func(context.Context) {
	return func(ctx context.Context) {
		result, err := cc.Runner.Run(ctx, pipeline.RunOptions{})
		if err != nil {
			cc.Logger.Error("scheduled run failed", slog.String("error", err.Error()))
			return
		}
		cc.Logger.Info("scheduled run completed",
			slog.String("run_id", result.Run.ID),
			slog.String("status", string(result.Run.Status)))
	}
}

// schedulePipeline runs job on spec until ctx is done, then waits for a
// running job to finish.
func schedulePipeline(ctx context.Context, spec string, runNow bool, logger *slog.Logger, job func(context.Context)) error {
	cl := cronLogger{logger: logger}
	sched := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := sched.AddFunc(spec, func() { job(ctx) }); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}

	if runNow {
		job(ctx)
	}

	sched.Start()
	logger.Info("scheduler started", slog.String("cron", spec))

	<-ctx.Done()
	logger.Info("scheduler stopping")
	<-sched.Stop().Done()
	return nil
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
