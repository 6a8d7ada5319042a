// Package redshift provides an Amazon Redshift warehouse adapter for zillowetl.
//
// Redshift speaks the PostgreSQL wire protocol, so connections go through
// pgx's database/sql driver. Bulk loads use Redshift's COPY ... IAM_ROLE
// command, which pulls the file from S3 server-side.
package redshift

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/leapstack-labs/zillowetl/pkg/adapter"
)

// DefaultPort is the port Redshift clusters listen on unless configured otherwise.
const DefaultPort = 5439

// Adapter implements the adapter.Adapter interface for Redshift.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new Redshift adapter instance.
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
	return "redshift"
}

// Connect establishes a connection to the Redshift cluster.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	if cfg.Host == "" {
		return fmt.Errorf("redshift host not specified")
	}

	a.Logger.Debug("connecting to redshift", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", buildDSN(cfg))
	if err != nil {
		return fmt.Errorf("failed to open redshift connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping redshift: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildDSN constructs a key=value connection string. Values are quoted
// when they contain spaces, quotes or backslashes.
func buildDSN(cfg adapter.Config) string {
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}

	sslmode := "require"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	parts := []string{
		"host=" + dsnValue(cfg.Host),
		"port=" + strconv.Itoa(port),
		"dbname=" + dsnValue(cfg.Database),
		"sslmode=" + dsnValue(sslmode),
	}
	if cfg.Username != "" {
		parts = append(parts, "user="+dsnValue(cfg.Username))
	}
	if cfg.Password != "" {
		parts = append(parts, "password="+dsnValue(cfg.Password))
	}
	return strings.Join(parts, " ")
}

var dsnEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " \t\n'\\") {
		return v
	}
	return "'" + dsnEscaper.Replace(v) + "'"
}

// GetTableMetadata retrieves metadata for a specified table.
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*adapter.Metadata, error) {
	schema := a.Cfg.Schema
	if schema == "" {
		schema = "public"
	}
	return a.GetTableMetadataCommon(ctx, table, schema, func(n int) string { return fmt.Sprintf("$%d", n) })
}

// CopyFrom issues a single COPY command loading spec.Source (an s3:// URI)
// into spec.Table, authorized by the IAM role in spec.Credential.
func (a *Adapter) CopyFrom(ctx context.Context, spec adapter.CopySpec) error {
	return a.RunCopy(ctx, spec, copySQL)
}

func copySQL(spec adapter.CopySpec) (string, error) {
	if err := adapter.ValidateTableName(spec.Table); err != nil {
		return "", err
	}
	if !strings.HasPrefix(spec.Source, "s3://") {
		return "", fmt.Errorf("redshift COPY requires an s3:// source, got %q", spec.Source)
	}
	if spec.Credential == "" {
		return "", fmt.Errorf("redshift COPY requires an IAM role")
	}

	format := strings.ToUpper(spec.Format)
	if format == "" {
		format = "PARQUET"
	}
	if format != "PARQUET" && format != "CSV" {
		return "", fmt.Errorf("unsupported copy format %q", spec.Format)
	}

	return fmt.Sprintf("COPY %s FROM %s IAM_ROLE %s FORMAT AS %s;",
		spec.Table, adapter.QuoteLiteral(spec.Source), adapter.QuoteLiteral(spec.Credential), format), nil
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
