package typeinfer

import (
	"context"
	"math"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/zillowetl/internal/frame"
	"github.com/leapstack-labs/zillowetl/internal/testutil"
	"github.com/leapstack-labs/zillowetl/pkg/adapter"
	"github.com/leapstack-labs/zillowetl/pkg/adapters/duckdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFile_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "combined.csv")
	require.NoError(t, os.WriteFile(path, []byte("regionid,sizerank,zhvi\n394913,1,1.5\n753899,3000000000,\n"), 0o600))

	f, err := ReadFile(context.Background(), path, testutil.NewTestLogger(t))
	require.NoError(t, err)

	assert.Equal(t, Classification{"regionid": Int, "sizerank": BigInt}, Infer(f))
}

func TestReadFile_Parquet(t *testing.T) {
	f := frame.New(
		frame.Column{Name: "regionid", Kind: frame.Int},
		frame.Column{Name: "regionname", Kind: frame.String},
		frame.Column{Name: "date", Kind: frame.Date},
		frame.Column{Name: "total_transaction_value", Kind: frame.Int},
		frame.Column{Name: "zhvi", Kind: frame.Float},
	)
	f.Append(int64(394913), "New York, NY", time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC), int64(-50), 1.5)
	f.Append(int64(753899), nil, nil, int64(3000000000), nil)

	path := filepath.Join(t.TempDir(), "combined_file.parquet")
	require.NoError(t, frame.WriteParquet(path, f))

	got, err := ReadFile(context.Background(), path, testutil.NewTestLogger(t))
	require.NoError(t, err)

	require.Equal(t, 2, got.NumRows())
	assert.Equal(t, f.Columns, got.Columns)
	assert.Equal(t, f.Rows, got.Rows)

	assert.Equal(t, Classification{"regionid": Int, "total_transaction_value": BigInt}, Infer(got))
}

func TestReadFile_ParquetWideIntegers(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "wide.parquet")

	db := duckdb.New(nil)
	require.NoError(t, db.Connect(ctx, adapter.Config{Path: ":memory:"}))
	require.NoError(t, db.Exec(ctx, "COPY (SELECT * FROM (VALUES "+
		"(1::UBIGINT, 3::UBIGINT), "+
		"(18446744073709551615::UBIGINT, 4::UBIGINT)"+
		") AS t(ubig, small)) TO "+adapter.QuoteLiteral(path)+" (FORMAT PARQUET)"))
	require.NoError(t, db.Close())

	f, err := ReadFile(ctx, path, testutil.NewTestLogger(t))
	require.NoError(t, err)
	require.Equal(t, 2, f.NumRows())

	for i := range f.NumRows() {
		v, ok := f.Value(i, "ubig")
		require.True(t, ok)
		assert.NotNil(t, v, "row %d", i)
	}
	assert.Equal(t, Classification{"ubig": BigInt, "small": Int}, Infer(f))
}

func TestConvert_WideIntegers(t *testing.T) {
	got := convert(uint64(math.MaxUint64), frame.Int)
	require.IsType(t, &big.Int{}, got)
	assert.Equal(t, "18446744073709551615", got.(*big.Int).String())

	huge, ok := new(big.Int).SetString("-170141183460469231731687303715884105727", 10)
	require.True(t, ok)
	assert.Same(t, huge, convert(huge, frame.Int))

	assert.Equal(t, int64(7), convert(uint64(7), frame.Int))
	assert.Nil(t, convert(nil, frame.Int))
}

func TestReadFile_Unsupported(t *testing.T) {
	_, err := ReadFile(context.Background(), "combined.json", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open")
}

func TestKindOf(t *testing.T) {
	tests := map[string]frame.Kind{
		"INTEGER":       frame.Int,
		"BIGINT":        frame.Int,
		"DOUBLE":        frame.Float,
		"DECIMAL(18,3)": frame.Float,
		"DATE":          frame.Date,
		"VARCHAR":       frame.String,
		"TIMESTAMP":     frame.String,
	}
	for in, want := range tests {
		assert.Equal(t, want, kindOf(in), in)
	}
}
