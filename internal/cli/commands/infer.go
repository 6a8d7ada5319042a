package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/zillowetl/internal/cli/config"
	"github.com/leapstack-labs/zillowetl/internal/frame"
	"github.com/leapstack-labs/zillowetl/internal/typeinfer"
	"github.com/spf13/cobra"
)

// InferOptions holds options for the infer-types command.
type InferOptions struct {
	DDL        bool
	Table      string
	JSONOutput bool
}

// NewInferCommand creates the infer-types command.
func NewInferCommand() *cobra.Command {
	opts := &InferOptions{}

	cmd := &cobra.Command{
		Use:   "infer-types [file]",
		Short: "Classify integer columns as INT or BIGINT",
		Long: `Read a .csv or .parquet file and classify each integer column as INT
(every value fits in 32 bits) or BIGINT. Without a file argument the combined
file is fetched from the object store.

Use --ddl to print a CREATE TABLE statement for the warehouse table.`,
		Example: `  # Classify a local file
  zillowetl infer-types combined.parquet

  # Classify the combined file and print DDL for the warehouse table
  zillowetl infer-types --ddl`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfer(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.DDL, "ddl", false, "Print a CREATE TABLE statement")
	cmd.Flags().StringVar(&opts.Table, "table", "", "Table name for --ddl (default: warehouse.table)")
	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "Output the classification as JSON")

	return cmd
}

func runInfer(cmd *cobra.Command, args []string, opts *InferOptions) error {
	ctx := cmd.Context()
	logger := config.GetLogger(ctx)

	var (
		f   *frame.Frame
		err error
	)
	if len(args) == 1 {
		f, err = typeinfer.ReadFile(ctx, args[0], logger)
	} else {
		f, err = readCombined(cmd, logger)
	}
	if err != nil {
		return err
	}

	cls := typeinfer.Infer(f)
	w := cmd.OutOrStdout()

	if opts.DDL {
		tableName := opts.Table
		if tableName == "" {
			if cfg := config.GetConfig(ctx); cfg != nil {
				tableName = cfg.Warehouse.Table
			}
		}
		if tableName == "" {
			tableName = config.DefaultTable
		}
		ddl, err := typeinfer.CreateTableDDL(tableName, f, cls)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w, ddl)
		return nil
	}

	if opts.JSONOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cls)
	}

	renderClassification(w, cls)
	return nil
}

// readCombined downloads the combined file to a temporary directory and reads it.
func readCombined(cmd *cobra.Command, logger *slog.Logger) (*frame.Frame, error) {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	loc := cc.Pipeline.CombinedLocation()
	data, err := cc.Objects.Get(cmd.Context(), loc)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch combined file: %w", err)
	}

	dir, err := os.MkdirTemp("", "zillowetl-infer-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	path := filepath.Join(dir, loc.Base())
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return typeinfer.ReadFile(cmd.Context(), path, logger)
}

func renderClassification(w io.Writer, cls typeinfer.Classification) {
	if len(cls) == 0 {
		_, _ = fmt.Fprintln(w, "No integer columns found")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Column", "Type"})
	for _, name := range cls.Columns() {
		t.AppendRow(table.Row{name, string(cls[name])})
	}
	t.Render()
}
