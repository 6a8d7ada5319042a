package commands

import (
	"github.com/leapstack-labs/zillowetl/internal/pipeline"
	"github.com/spf13/cobra"
)

// NewProcessCommand creates the process command.
func NewProcessCommand() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Reshape raw metric files into staged long-format files",
		Long: `Read every file under the raw prefix, reshape it from one column per
date to one row per (region, date), and write it to the staging prefix.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStages(cmd, pipeline.RunOptions{Stages: []pipeline.Stage{pipeline.StageProcess}}, jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the run summary as JSON")
	return cmd
}

// NewCombineCommand creates the combine command.
func NewCombineCommand() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "combine",
		Short: "Combine staged files into one Parquet file",
		Long: `Concatenate every staged CSV file into a single Parquet file at the
combined key. Requires a successful process run in the same environment.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStages(cmd, pipeline.RunOptions{Stages: []pipeline.Stage{pipeline.StageCombine}}, jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the run summary as JSON")
	return cmd
}

// NewLoadCommand creates the load command.
func NewLoadCommand() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Bulk-load the combined file into the warehouse",
		Long: `Copy the combined Parquet file into the configured warehouse table.
Requires warehouse.enabled and a successful combine run in the same
environment.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStages(cmd, pipeline.RunOptions{Stages: []pipeline.Stage{pipeline.StageLoad}}, jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the run summary as JSON")
	return cmd
}
