package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/leapstack-labs/zillowetl/pkg/core"
)

// ErrNotConnected is returned by any call made before Connect succeeds.
var ErrNotConnected = errors.New("warehouse connection not established")

// BaseSQLAdapter carries the database/sql handle shared by the warehouse
// adapters. Concrete adapters embed it and fill DB in Connect.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    core.AdapterConfig
	Logger *slog.Logger
}

func (b *BaseSQLAdapter) log() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

// Close releases the connection pool. Closing an unconnected adapter is a no-op.
func (b *BaseSQLAdapter) Close() error {
	if b.DB == nil {
		return nil
	}
	b.log().Debug("closing warehouse connection", slog.String("type", b.Cfg.Type))
	err := b.DB.Close()
	b.DB = nil
	return err
}

// IsConnected reports whether Connect has succeeded.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// Exec runs a statement that returns no rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, stmt string) error {
	if b.DB == nil {
		return ErrNotConnected
	}
	if _, err := b.DB.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	return nil
}

// Query runs a statement that returns rows. The caller closes them and
// checks Err after iterating.
func (b *BaseSQLAdapter) Query(ctx context.Context, stmt string) (*core.Rows, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}
	rows, err := b.DB.QueryContext(ctx, stmt) //nolint:rowserrcheck // checked by the caller
	if err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}
	return &core.Rows{Rows: rows}, nil
}

// RunCopy renders spec with build and executes the resulting load command.
// Adapters implement CopyFrom on top of it.
func (b *BaseSQLAdapter) RunCopy(ctx context.Context, spec core.CopySpec, build func(core.CopySpec) (string, error)) error {
	if b.DB == nil {
		return ErrNotConnected
	}
	stmt, err := build(spec)
	if err != nil {
		return err
	}

	b.log().Info("loading table",
		slog.String("warehouse", b.Cfg.Type),
		slog.String("table", spec.Table),
		slog.String("source", spec.Source))
	if err := b.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to load %s: %w", spec.Table, err)
	}
	return nil
}

// ParseQualifiedName splits "schema.table", using defaultSchema for a bare name.
func ParseQualifiedName(table, defaultSchema string) (schema, name string) {
	if s, n, ok := strings.Cut(table, "."); ok {
		return s, n
	}
	return defaultSchema, table
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidateTableName accepts plain identifiers, optionally schema-qualified.
// Table names are interpolated into load and DDL statements unquoted.
func ValidateTableName(table string) error {
	if !identRe.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	return nil
}

// QuoteLiteral renders s as a single-quoted SQL string literal.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// GetTableMetadataCommon describes table from information_schema.columns.
// placeholder renders the n-th bind parameter for the driver ("?" or "$n").
// A failed row count is logged and reported as zero.
func (b *BaseSQLAdapter) GetTableMetadataCommon(ctx context.Context, table, defaultSchema string, placeholder func(n int) string) (*core.TableMetadata, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}
	if err := ValidateTableName(table); err != nil {
		return nil, err
	}
	schema, name := ParseQualifiedName(table, defaultSchema)

	columns, err := b.describeColumns(ctx, schema, name, placeholder)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}

	var count int64
	//nolint:gosec // schema and name passed ValidateTableName
	if err := b.DB.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s.%s", schema, name)).Scan(&count); err != nil {
		b.log().Debug("row count unavailable", slog.String("table", table), slog.String("error", err.Error()))
		count = 0
	}

	return &core.TableMetadata{Schema: schema, Name: name, Columns: columns, RowCount: count}, nil
}

func (b *BaseSQLAdapter) describeColumns(ctx context.Context, schema, name string, placeholder func(n int) string) ([]core.Column, error) {
	query := "SELECT column_name, data_type, is_nullable, ordinal_position FROM information_schema.columns" +
		" WHERE table_schema = " + placeholder(1) + " AND table_name = " + placeholder(2) +
		" ORDER BY ordinal_position"

	rows, err := b.DB.QueryContext(ctx, query, schema, name)
	if err != nil {
		return nil, fmt.Errorf("failed to describe %s.%s: %w", schema, name, err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.Column
	for rows.Next() {
		var (
			col      core.Column
			nullable string
		)
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		col.Nullable = strings.EqualFold(nullable, "YES")
		columns = append(columns, col)
	}
	return columns, rows.Err()
}
