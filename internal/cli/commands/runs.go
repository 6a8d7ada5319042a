package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/zillowetl/internal/state"
	"github.com/spf13/cobra"
)

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "Show pipeline run history",
		Long: `List recent pipeline runs, newest first. With a run ID, show the
stages of that run.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfig(cmd)
			if err != nil {
				return err
			}
			st, err := openState(cfg, nil)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			ctx := cmd.Context()
			w := cmd.OutOrStdout()

			if len(args) == 1 {
				run, err := st.GetRun(ctx, args[0])
				if err != nil {
					return err
				}
				stages, err := st.GetStageRunsForRun(ctx, run.ID)
				if err != nil {
					return err
				}
				renderStageRuns(w, run, stages)
				return nil
			}

			runs, err := st.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			renderRuns(w, runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	return cmd
}

func renderRuns(w io.Writer, runs []*state.Run) {
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, "No runs recorded")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run ID", "Environment", "Status", "Started", "Duration", "Error"})
	for _, r := range runs {
		t.AppendRow(table.Row{r.ID, r.Environment, string(r.Status), r.StartedAt.Local().Format(time.DateTime), runDuration(r), r.Error})
	}
	t.Render()
}

func renderStageRuns(w io.Writer, run *state.Run, stages []*state.StageRun) {
	_, _ = fmt.Fprintf(w, "Run %s (%s): %s\n", run.ID, run.Environment, run.Status)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Stage", "Status", "Outcome", "Files", "Rows", "Time", "Artifact", "Error"})
	for _, sr := range stages {
		elapsed := (time.Duration(sr.ExecutionMS) * time.Millisecond).String()
		t.AppendRow(table.Row{sr.Stage, string(sr.Status), sr.Outcome, sr.Files, sr.Rows, elapsed, sr.Artifact, sr.Error})
	}
	t.Render()
}

func runDuration(r *state.Run) string {
	if r.CompletedAt == nil {
		return "-"
	}
	return r.CompletedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
}
