package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var example bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a zillowetl.yaml configuration",
		Long: `Create a zillowetl.yaml configuration file with the default buckets,
prefixes and warehouse settings.

Use --example to create a self-contained demo that runs entirely on the local
machine: local buckets under data/ with sample Zillow metric files and a
DuckDB warehouse.`,
		Example: `  # Initialize in current directory
  zillowetl init

  # Initialize a local demo and run it
  zillowetl init demo --example
  cd demo && zillowetl run

  # Force overwrite existing config
  zillowetl init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			name := "minimal"
			if example {
				name = "example"
			}
			return runInit(cmd.OutOrStdout(), name, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&example, "example", false, "Create a local demo with sample data and a DuckDB warehouse")

	return cmd
}

func runInit(w io.Writer, templateName, dir string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, "zillowetl.yaml")
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("zillowetl.yaml already exists. Use --force to overwrite")
	}

	if err := copyTemplate(templateName, dir, force); err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	files, _ := listTemplateFiles(templateName)
	groups := groupTemplateFiles(files)
	for _, f := range groups["config"] {
		_, _ = fmt.Fprintf(w, "  created %s\n", f)
	}
	for _, f := range groups["data"] {
		_, _ = fmt.Fprintf(w, "  created %s\n", f)
	}

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "zillowetl initialized.")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Next steps:")
	if templateName == "example" {
		_, _ = fmt.Fprintln(w, "  zillowetl run           Process, combine and load the sample data")
		_, _ = fmt.Fprintln(w, "  zillowetl runs          Show recorded runs")
		_, _ = fmt.Fprintln(w, "  zillowetl infer-types   Classify the combined columns")
		return nil
	}
	_, _ = fmt.Fprintln(w, "  1. Set the bucket names in zillowetl.yaml")
	_, _ = fmt.Fprintln(w, "  2. Export REDSHIFT_* variables and set warehouse.enabled")
	_, _ = fmt.Fprintln(w, "  3. Run 'zillowetl doctor' to check connectivity")
	_, _ = fmt.Fprintln(w, "  4. Run 'zillowetl run'")
	return nil
}
