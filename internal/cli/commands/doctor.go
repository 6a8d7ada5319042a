package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/zillowetl/internal/cli/config"
	"github.com/leapstack-labs/zillowetl/internal/objstore"
	"github.com/leapstack-labs/zillowetl/internal/state"
	"github.com/leapstack-labs/zillowetl/pkg/adapter"
	"github.com/leapstack-labs/zillowetl/pkg/core"
	"github.com/spf13/cobra"
)

// DoctorOptions holds options for the doctor command.
type DoctorOptions struct {
	JSONOutput bool
	Timeout    time.Duration
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	opts := &DoctorOptions{}
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, storage, state and warehouse health",
		Long: `Check that the pipeline can run in the current environment.

The doctor command verifies:
  - Configuration: config file and metric catalog
  - Storage: raw and staging buckets are reachable, raw files are cataloged
  - State: the state store opens and the last run succeeded
  - Warehouse: the configured warehouse accepts connections`,
		Example: `  # Run health check
  zillowetl doctor

  # Output as JSON
  zillowetl doctor --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "Output the report as JSON")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "Timeout for storage and warehouse checks")

	return cmd
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	HealthChecks    []HealthCheck `json:"health_checks"`
	Score           int           `json:"score"`
	Recommendations []string      `json:"recommendations"`
	IssueCount      int           `json:"issue_count"`
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Group   string   `json:"group"`
	Status  string   `json:"status"` // "pass", "warn", "error"
	Details []string `json:"details,omitempty"`
}

const (
	checkPass  = "pass"
	checkWarn  = "warn"
	checkError = "error"
)

func runDoctor(cmd *cobra.Command, opts *DoctorOptions) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}
	logger := config.GetLogger(cmd.Context())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	d := &doctor{cfg: cfg, logger: logger, configFile: config.GetConfigFileUsed()}
	checks := d.run(ctx)
	out := buildDoctorOutput(checks)

	if opts.JSONOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	renderDoctorText(cmd.OutOrStdout(), out)
	return nil
}

// doctor runs the health checks against one configuration.
type doctor struct {
	cfg        *config.Config
	logger     *slog.Logger
	configFile string

	// openObjects and openWarehouse are replaced in tests.
	openObjects   func(objstore.Config, *slog.Logger) (objstore.Store, error)
	openWarehouse func(adapter.Config, *slog.Logger) (adapter.Adapter, error)
}

func (d *doctor) run(ctx context.Context) []HealthCheck {
	if d.openObjects == nil {
		d.openObjects = objstore.Open
	}
	if d.openWarehouse == nil {
		d.openWarehouse = adapter.NewAdapter
	}

	var checks []HealthCheck
	checks = append(checks, d.checkConfig()...)
	checks = append(checks, d.checkStorage(ctx)...)
	checks = append(checks, d.checkState(ctx)...)
	checks = append(checks, d.checkWarehouse(ctx))
	return checks
}

func (d *doctor) checkConfig() []HealthCheck {
	file := HealthCheck{ID: "CF01", Name: "Configuration file", Group: "Configuration", Status: checkPass}
	if d.configFile == "" {
		file.Status = checkWarn
		file.Details = []string{"no zillowetl.yaml found, using defaults and environment"}
	} else {
		file.Details = []string{d.configFile}
	}

	cat := d.cfg.Catalog()
	catalog := HealthCheck{
		ID:      "CF02",
		Name:    "Metric catalog",
		Group:   "Configuration",
		Status:  checkPass,
		Details: []string{fmt.Sprintf("%d metric files mapped", cat.Len())},
	}
	return []HealthCheck{file, catalog}
}

func (d *doctor) checkStorage(ctx context.Context) []HealthCheck {
	p := d.cfg.Pipeline
	raw := HealthCheck{ID: "ST01", Name: "Raw bucket", Group: "Storage", Status: checkPass}
	cataloged := HealthCheck{ID: "ST02", Name: "Raw files cataloged", Group: "Storage", Status: checkPass}
	staging := HealthCheck{ID: "ST03", Name: "Staging bucket", Group: "Storage", Status: checkPass}

	store, err := d.openObjects(d.cfg.ObjectStore(), d.logger)
	if err != nil {
		for _, c := range []*HealthCheck{&raw, &cataloged, &staging} {
			c.Status = checkError
			c.Details = []string{err.Error()}
		}
		return []HealthCheck{raw, cataloged, staging}
	}

	objects, err := store.List(ctx, p.RawBucket, p.RawPrefix)
	switch {
	case err != nil:
		raw.Status = checkError
		raw.Details = []string{err.Error()}
		cataloged.Status = checkError
		cataloged.Details = []string{"raw bucket is not reachable"}
	default:
		cat := d.cfg.Catalog()
		var csvs int
		present := make(map[string]bool)
		for _, obj := range objects {
			if !strings.HasSuffix(obj.Key, ".csv") {
				continue
			}
			csvs++
			present[path.Base(obj.Key)] = true
			if _, ok := cat.Lookup(obj.Key); !ok {
				cataloged.Status = checkWarn
				cataloged.Details = append(cataloged.Details, path.Base(obj.Key)+" has no metric label")
			}
		}
		if cataloged.Status == checkPass {
			var found int
			for _, file := range cat.Files() {
				if present[file] {
					found++
				}
			}
			cataloged.Details = []string{fmt.Sprintf("%d of %d cataloged metrics present", found, cat.Len())}
		}
		raw.Details = []string{fmt.Sprintf("%d CSV files under %s", csvs, store.URI(objstore.Location{Bucket: p.RawBucket, Key: p.RawPrefix}))}
		if csvs == 0 {
			raw.Status = checkWarn
		}
	}

	if _, err := store.List(ctx, p.StagingBucket, p.StagingPrefix); err != nil {
		staging.Status = checkError
		staging.Details = []string{err.Error()}
	} else {
		staging.Details = []string{store.URI(objstore.Location{Bucket: p.StagingBucket, Key: p.StagingPrefix})}
	}

	return []HealthCheck{raw, cataloged, staging}
}

func (d *doctor) checkState(ctx context.Context) []HealthCheck {
	store := HealthCheck{ID: "SS01", Name: "State store", Group: "State", Status: checkPass}
	last := HealthCheck{ID: "SS02", Name: "Last run", Group: "State", Status: checkPass}

	st, err := openState(d.cfg, d.logger)
	if err != nil {
		store.Status = checkError
		store.Details = []string{err.Error()}
		last.Status = checkError
		last.Details = []string{"state store unavailable"}
		return []HealthCheck{store, last}
	}
	defer func() { _ = st.Close() }()

	version, err := st.MigrationVersion(ctx)
	if err != nil {
		store.Status = checkWarn
		store.Details = []string{err.Error()}
	} else {
		store.Details = []string{fmt.Sprintf("%s (schema version %d)", d.cfg.StatePath, version)}
	}

	last = lastRunCheck(ctx, st)
	return []HealthCheck{store, last}
}

func lastRunCheck(ctx context.Context, st state.Store) HealthCheck {
	check := HealthCheck{ID: "SS02", Name: "Last run", Group: "State", Status: checkPass}
	runs, err := st.ListRuns(ctx, 1)
	switch {
	case err != nil:
		check.Status = checkError
		check.Details = []string{err.Error()}
	case len(runs) == 0:
		check.Status = checkWarn
		check.Details = []string{"no runs recorded yet"}
	default:
		run := runs[0]
		check.Details = []string{fmt.Sprintf("%s %s at %s", run.ID, run.Status, run.StartedAt.Format(time.RFC3339))}
		if run.Status == core.RunStatusFailed {
			check.Status = checkWarn
			if run.Error != "" {
				check.Details = append(check.Details, run.Error)
			}
		}
	}
	return check
}

func (d *doctor) checkWarehouse(ctx context.Context) HealthCheck {
	check := HealthCheck{ID: "WH01", Name: "Warehouse", Group: "Warehouse", Status: checkPass}
	wh := d.cfg.Warehouse
	if !wh.Enabled {
		check.Details = []string{"loading disabled"}
		return check
	}
	if wh.Type == "redshift" && d.cfg.Storage.Type != "s3" {
		check.Status = checkError
		check.Details = []string{"redshift loads read from S3 but storage.type is " + d.cfg.Storage.Type}
		return check
	}

	acfg := wh.AdapterConfig()
	a, err := d.openWarehouse(acfg, d.logger)
	if err != nil {
		check.Status = checkError
		check.Details = []string{err.Error()}
		return check
	}
	if err := a.Connect(ctx, acfg); err != nil {
		check.Status = checkError
		check.Details = []string{fmt.Sprintf("failed to connect to %s: %v", wh.Type, err)}
		return check
	}
	defer func() { _ = a.Close() }()

	check.Details = []string{"connected to " + wh.Type}
	meta, err := a.GetTableMetadata(ctx, wh.Table)
	switch {
	case err != nil:
		check.Status = checkWarn
		check.Details = append(check.Details, fmt.Sprintf("table %s is not readable yet: %v", wh.Table, err))
	default:
		check.Details = append(check.Details, fmt.Sprintf("table %s: %d columns, %d rows", wh.Table, len(meta.Columns), meta.RowCount))
	}
	return check
}

func buildDoctorOutput(checks []HealthCheck) *DoctorOutput {
	var issues int
	for _, c := range checks {
		if c.Status != checkPass {
			issues++
		}
	}
	return &DoctorOutput{
		HealthChecks:    checks,
		Score:           calculateHealthScore(checks),
		Recommendations: generateRecommendations(checks),
		IssueCount:      issues,
	}
}

// calculateHealthScore computes a health score from 0-100.
// Warnings cost 10 points and errors 25.
func calculateHealthScore(checks []HealthCheck) int {
	score := 100
	for _, check := range checks {
		switch check.Status {
		case checkError:
			score -= 25
		case checkWarn:
			score -= 10
		}
	}
	return max(score, 0)
}

// generateRecommendations creates actionable recommendations based on findings.
func generateRecommendations(checks []HealthCheck) []string {
	var recommendations []string
	for _, check := range checks {
		if check.Status == checkPass {
			continue
		}
		if rec := getRecommendation(check.ID); rec != "" {
			recommendations = append(recommendations, rec)
		}
	}
	return recommendations
}

// getRecommendation returns a recommendation for a specific check.
func getRecommendation(id string) string {
	switch id {
	case "CF01":
		return "Run 'zillowetl init' to create a zillowetl.yaml"
	case "ST01":
		return "Check storage credentials and pipeline.raw_bucket / pipeline.raw_prefix"
	case "ST02":
		return "Map new metric files under 'metrics' in zillowetl.yaml"
	case "ST03":
		return "Create the staging bucket or fix pipeline.staging_bucket"
	case "SS01":
		return "Check that state_path is writable"
	case "SS02":
		return "Inspect the last run with 'zillowetl runs'"
	case "WH01":
		return "Check the warehouse section of zillowetl.yaml and its credentials"
	default:
		return ""
	}
}

func renderDoctorText(w io.Writer, out *DoctorOutput) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Check", "Group", "Status", "Details"})
	for _, c := range out.HealthChecks {
		t.AppendRow(table.Row{c.ID + " " + c.Name, c.Group, statusLabel(c.Status), strings.Join(c.Details, "\n")})
	}
	t.Render()

	_, _ = fmt.Fprintf(w, "Health score: %d/100 (%d issues)\n", out.Score, out.IssueCount)
	if len(out.Recommendations) > 0 {
		_, _ = fmt.Fprintln(w, "\nRecommendations:")
		for i, rec := range out.Recommendations {
			_, _ = fmt.Fprintf(w, "  %d. %s\n", i+1, rec)
		}
	}
}

func statusLabel(status string) string {
	switch status {
	case checkPass:
		return "OK"
	case checkWarn:
		return "WARN"
	case checkError:
		return "FAIL"
	default:
		return strings.ToUpper(status)
	}
}
