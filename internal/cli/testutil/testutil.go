// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

// ZHVI is a small wide-format home value file with three months.
const ZHVI = `RegionID,SizeRank,RegionName,RegionType,StateName,2024-01-31,2024-02-29,2024-03-31
102001,0,United States,country,,347357.0,348560.0,350110.0
394913,1,"New York, NY",msa,NY,628452.0,631230.0,
`

// ZORI is a small wide-format rent index file with two months.
const ZORI = `RegionID,SizeRank,RegionName,RegionType,StateName,2024-01-31,2024-02-29
102001,0,United States,country,,1984.5,1994.3
`

// Raw file names matching the built-in metric catalog.
const (
	ZHVIFile = "Metro_zhvi_uc_sfrcondo_tier_0.33_0.67_sm_sa_month.csv"
	ZORIFile = "Metro_zori_uc_sfrcondomfr_sm_sa_month.csv"
)

// ProjectOptions controls the generated test project.
type ProjectOptions struct {
	// Warehouse adds a file-backed DuckDB warehouse.
	Warehouse bool
	// Files maps raw file names to contents. Nil writes ZHVI and ZORI.
	Files map[string]string
}

// SetupTestProject creates a temporary project with local buckets and raw
// metric files. It returns the project directory and the config file path.
func SetupTestProject(t *testing.T, opts ProjectOptions) (string, string) {
	t.Helper()

	tmpDir := t.TempDir()
	rawDir := filepath.Join(tmpDir, "data", "zillow-raw", "raw-data")
	dirs := []string{
		rawDir,
		filepath.Join(tmpDir, "data", "zillow-staging"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0750); err != nil {
			t.Fatalf("failed to create directory %s: %v", dir, err)
		}
	}

	files := opts.Files
	if files == nil {
		files = map[string]string{ZHVIFile: ZHVI, ZORIFile: ZORI}
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(rawDir, name), []byte(content), 0600); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}

	var cfg strings.Builder
	cfg.WriteString(`environment: test
state_path: .zillowetl/state.db
storage:
  type: local
  root: data
`)
	if opts.Warehouse {
		cfg.WriteString(`warehouse:
  enabled: true
  type: duckdb
  database: warehouse.duckdb
  table: zillow_data
`)
	}

	cfgPath := filepath.Join(tmpDir, "zillowetl.yaml")
	if err := os.WriteFile(cfgPath, []byte(cfg.String()), 0600); err != nil {
		t.Fatalf("failed to create zillowetl.yaml: %v", err)
	}
	return tmpDir, cfgPath
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertContains checks that the string contains the expected substring.
func AssertContains(t *testing.T, s, expected string) {
	t.Helper()
	if !strings.Contains(s, expected) {
		t.Errorf("string %q does not contain expected %q", s, expected)
	}
}

// AssertNotContains checks that the string does not contain the substring.
func AssertNotContains(t *testing.T, s, unexpected string) {
	t.Helper()
	if strings.Contains(s, unexpected) {
		t.Errorf("string %q unexpectedly contains %q", s, unexpected)
	}
}
