package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/zillowetl/internal/pipeline"
	"github.com/spf13/cobra"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Select     string
	Downstream bool
	JSONOutput bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline stages in order",
		Long: `Execute the pipeline: process, then combine, then load (when a
warehouse is enabled).

Use --select to run specific stages. A selected stage whose upstream stage is
not selected uses the latest upstream run recorded in the state store; if that
run failed, the stage refuses to start. Use --downstream to also run the stages that depend on the selection.`,
		Example: `  # Run every stage
  zillowetl run

  # Re-run combine and everything after it
  zillowetl run --select combine --downstream

  # Emit a JSON summary for CI/CD integration
  zillowetl run --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stages, err := parseStages(opts.Select)
			if err != nil {
				return err
			}
			return runStages(cmd, pipeline.RunOptions{Stages: stages, Downstream: opts.Downstream}, opts.JSONOutput)
		},
	}

	cmd.Flags().StringVarP(&opts.Select, "select", "s", "", "Comma-separated list of stages to run (process,combine,load)")
	cmd.Flags().BoolVar(&opts.Downstream, "downstream", false, "Include downstream stages when using --select")
	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "Output the run summary as JSON")

	return cmd
}

func parseStages(s string) ([]pipeline.Stage, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var stages []pipeline.Stage
	for _, part := range strings.Split(s, ",") {
		name := pipeline.Stage(strings.ToLower(strings.TrimSpace(part)))
		switch name {
		case pipeline.StageProcess, pipeline.StageCombine, pipeline.StageLoad:
			stages = append(stages, name)
		case "":
		default:
			return nil, fmt.Errorf("unknown stage %q (want process, combine or load)", part)
		}
	}
	return stages, nil
}

// runStages executes opts through the runner and prints a summary.
func runStages(cmd *cobra.Command, opts pipeline.RunOptions, jsonOutput bool) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	result, runErr := cc.Runner.Run(ctx, opts)
	if result == nil {
		return runErr
	}

	w := cmd.OutOrStdout()
	if jsonOutput {
		if err := writeRunJSON(w, result, runErr); err != nil {
			return err
		}
		return runErr
	}

	writeRunText(w, result, time.Since(start))
	return runErr
}

// runSummary is the JSON form of a run.
type runSummary struct {
	RunID   string                  `json:"run_id"`
	Status  string                  `json:"status"`
	Error   string                  `json:"error,omitempty"`
	Stages  []stageSummary          `json:"stages"`
	Process *pipeline.ProcessReport `json:"process,omitempty"`
	Combine *pipeline.CombineReport `json:"combine,omitempty"`
	Load    *pipeline.LoadReport    `json:"load,omitempty"`
}

type stageSummary struct {
	Stage       string `json:"stage"`
	Status      string `json:"status"`
	Outcome     string `json:"outcome,omitempty"`
	Artifact    string `json:"artifact,omitempty"`
	Files       int    `json:"files"`
	Rows        int64  `json:"rows"`
	ExecutionMS int64  `json:"execution_ms"`
	Error       string `json:"error,omitempty"`
}

func writeRunJSON(w io.Writer, result *pipeline.RunResult, runErr error) error {
	summary := runSummary{
		RunID:   result.Run.ID,
		Status:  string(result.Run.Status),
		Process: result.Process,
		Combine: result.Combine,
		Load:    result.Load,
	}
	if runErr != nil {
		summary.Error = runErr.Error()
	}
	for _, sr := range result.Stages {
		summary.Stages = append(summary.Stages, stageSummary{
			Stage:       sr.Stage,
			Status:      string(sr.Status),
			Outcome:     sr.Outcome,
			Artifact:    sr.Artifact,
			Files:       sr.Files,
			Rows:        sr.Rows,
			ExecutionMS: sr.ExecutionMS,
			Error:       sr.Error,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

func writeRunText(w io.Writer, result *pipeline.RunResult, elapsed time.Duration) {
	if result.Process != nil {
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Source", "Label", "Status", "Rows", "Destination"})
		for _, f := range result.Process.Files {
			status := string(f.Status)
			if f.Reason != "" {
				status += " (" + f.Reason + ")"
			}
			t.AppendRow(table.Row{f.Key, f.Label, status, f.Rows, f.Dest})
		}
		t.Render()
		_, _ = fmt.Fprintf(w, "Processed %d files: %d written, %d skipped, %d rows\n",
			len(result.Process.Files), result.Process.Written, result.Process.Skipped, result.Process.Rows)
	}

	if c := result.Combine; c != nil {
		switch c.Outcome {
		case pipeline.OutcomeNoData:
			_, _ = fmt.Fprintln(w, "Combine: no staged files found, nothing written")
		default:
			_, _ = fmt.Fprintf(w, "Combined %d files into %s (%d rows, %d columns)\n",
				len(c.Files), c.URI, c.Rows, len(c.Columns))
		}
	}

	if l := result.Load; l != nil {
		switch l.Outcome {
		case pipeline.OutcomeSkipped:
			_, _ = fmt.Fprintf(w, "Load: skipped, no combined data for %s\n", l.Table)
		default:
			_, _ = fmt.Fprintf(w, "Loaded %s into %s table %s\n", l.Source, l.Target, l.Table)
		}
	}

	_, _ = fmt.Fprintf(w, "Run %s: %s\n", result.Run.ID, result.Run.Status)
	if result.Run.Error != "" {
		_, _ = fmt.Fprintf(w, "Error: %s\n", result.Run.Error)
	}
	_, _ = fmt.Fprintf(w, "Completed in %s\n", elapsed.Round(time.Millisecond))
}
