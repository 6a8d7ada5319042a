package typeinfer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/leapstack-labs/zillowetl/internal/frame"
	"github.com/leapstack-labs/zillowetl/pkg/adapter"
	"github.com/leapstack-labs/zillowetl/pkg/adapters/duckdb"
)

// ReadFile loads a .csv or .parquet file into a frame. Parquet files are
// read through an in-memory DuckDB connection.
func ReadFile(ctx context.Context, path string, logger *slog.Logger) (*frame.Frame, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readCSVFile(path)
	case ".parquet":
		return readParquetFile(ctx, path, logger)
	default:
		return nil, fmt.Errorf("unsupported file type %q (want .csv or .parquet)", filepath.Ext(path))
	}
}

func readCSVFile(path string) (*frame.Frame, error) {
	fh, err := os.Open(path) //nolint:gosec // path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = fh.Close() }()

	f, err := frame.ReadCSV(fh)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return f, nil
}

func readParquetFile(ctx context.Context, path string, logger *slog.Logger) (*frame.Frame, error) {
	db := duckdb.New(logger)
	if err := db.Connect(ctx, adapter.Config{Path: ":memory:"}); err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	rows, err := db.Query(ctx, "SELECT * FROM read_parquet("+adapter.QuoteLiteral(abs)+")")
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer func() { _ = rows.Close() }()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}

	cols := make([]frame.Column, len(types))
	for i, ct := range types {
		cols[i] = frame.Column{Name: ct.Name(), Kind: kindOf(ct.DatabaseTypeName())}
	}
	f := frame.New(cols...)

	dest := make([]any, len(types))
	ptrs := make([]any, len(types))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make([]any, len(dest))
		for i, v := range dest {
			row[i] = convert(v, f.Columns[i].Kind)
		}
		f.Append(row...)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return f, nil
}

// kindOf maps a DuckDB type name onto a frame kind.
func kindOf(dbType string) frame.Kind {
	t := strings.ToUpper(dbType)
	switch {
	case t == "TINYINT", t == "SMALLINT", t == "INTEGER", t == "BIGINT", t == "HUGEINT",
		t == "UTINYINT", t == "USMALLINT", t == "UINTEGER", t == "UBIGINT":
		return frame.Int
	case t == "FLOAT", t == "DOUBLE", strings.HasPrefix(t, "DECIMAL"):
		return frame.Float
	case t == "DATE":
		return frame.Date
	default:
		return frame.String
	}
}

func convert(v any, kind frame.Kind) any {
	if v == nil {
		return nil
	}
	switch kind {
	case frame.Int:
		if n, ok := toInt64(v); ok {
			return n
		}
		// HUGEINT and large UBIGINT values stay exact.
		return toBigInt(v)
	case frame.Float:
		switch x := v.(type) {
		case float64:
			return x
		case float32:
			return float64(x)
		case interface{ Float64() float64 }:
			return x.Float64()
		}
		return nil
	case frame.Date:
		if d, ok := v.(time.Time); ok {
			return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		}
		return nil
	default:
		return fmt.Sprint(v)
	}
}

func toBigInt(v any) any {
	switch x := v.(type) {
	case uint64:
		return new(big.Int).SetUint64(x)
	case *big.Int:
		return x
	}
	return nil
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case *big.Int:
		if !x.IsInt64() {
			return 0, false
		}
		return x.Int64(), true
	}
	return 0, false
}
