package core

import (
	"context"
	"database/sql"
)

// Adapter defines the interface that all warehouse adapters must implement.
type Adapter interface {
	// Connect establishes a connection to the warehouse.
	Connect(ctx context.Context, cfg AdapterConfig) error

	// Close closes the warehouse connection.
	Close() error

	// Exec executes a SQL statement that doesn't return rows.
	Exec(ctx context.Context, sql string) error

	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// GetTableMetadata retrieves metadata for a table.
	GetTableMetadata(ctx context.Context, table string) (*TableMetadata, error)

	// CopyFrom bulk-loads an external file into a table with a single command.
	CopyFrom(ctx context.Context, spec CopySpec) error

	// DialectName returns the SQL dialect spoken by the warehouse.
	DialectName() string
}

// AdapterConfig holds configuration for connecting to a warehouse.
type AdapterConfig struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
	Params   map[string]any
}

// CopySpec parameterizes a bulk-copy command.
type CopySpec struct {
	// Table is the (optionally schema-qualified) target table.
	Table string
	// Source is the location of the file to load (s3:// URI or local path).
	Source string
	// Credential is the access credential handed to the warehouse (e.g. an IAM role ARN).
	Credential string
	// Format is the file format, e.g. PARQUET or CSV.
	Format string
}

// Column represents a column in a warehouse table.
type Column struct {
	Name       string
	Type       string
	Nullable   bool
	PrimaryKey bool
	Position   int
}

// TableMetadata holds metadata about a warehouse table.
type TableMetadata struct {
	Schema    string
	Name      string
	Columns   []Column
	RowCount  int64
	SizeBytes int64
}

// Rows wraps sql.Rows to provide a consistent interface.
type Rows struct {
	*sql.Rows
}
