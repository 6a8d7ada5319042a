// Package duckdb provides a DuckDB warehouse adapter for zillowetl.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/zillowetl/pkg/adapter"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// DialectName returns the SQL dialect for this adapter.
func (a *Adapter) DialectName() string {
	return "duckdb"
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" as the path for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	a.Logger.Debug("connecting to duckdb", slog.String("path", path))

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	// Extensions, secrets and settings are per-connection state.
	db.SetMaxOpenConns(1)

	a.DB = db
	a.Cfg = cfg

	if err := a.applyParams(ctx, params); err != nil {
		_ = db.Close()
		a.DB = nil
		return err
	}
	return nil
}

func (a *Adapter) applyParams(ctx context.Context, p *Params) error {
	for _, stmt := range p.statements() {
		a.Logger.Debug("applying duckdb param", slog.String("sql", redactSecret(stmt)))
		if err := a.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply duckdb params: %w", err)
		}
	}
	return nil
}

// GetTableMetadata retrieves metadata for a specified table.
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*adapter.Metadata, error) {
	return a.GetTableMetadataCommon(ctx, table, "main", func(int) string { return "?" })
}

// CopyFrom replaces spec.Table with the contents of spec.Source.
// Parquet sources go through read_parquet, everything else through
// read_csv_auto. Local paths are made absolute; URIs (s3://...) are passed
// through and need the httpfs extension plus a matching secret.
func (a *Adapter) CopyFrom(ctx context.Context, spec adapter.CopySpec) error {
	return a.RunCopy(ctx, spec, copySQL)
}

func copySQL(spec adapter.CopySpec) (string, error) {
	if err := adapter.ValidateTableName(spec.Table); err != nil {
		return "", err
	}
	if spec.Source == "" {
		return "", fmt.Errorf("copy source not specified")
	}

	source := spec.Source
	if !strings.Contains(source, "://") {
		abs, err := filepath.Abs(source)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		source = abs
	}

	var reader string
	switch strings.ToUpper(spec.Format) {
	case "", "PARQUET":
		reader = fmt.Sprintf("read_parquet(%s)", adapter.QuoteLiteral(source))
	case "CSV":
		reader = fmt.Sprintf("read_csv_auto(%s, header=true)", adapter.QuoteLiteral(source))
	default:
		return "", fmt.Errorf("unsupported copy format %q", spec.Format)
	}

	return fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM %s", spec.Table, reader), nil
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
