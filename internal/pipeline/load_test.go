package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/zillowetl/pkg/adapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/leapstack-labs/zillowetl/pkg/adapters/duckdb"
)

type fakeAdapter struct {
	connectErr error
	copyErr    error

	connected *adapter.Config
	copies    []adapter.CopySpec
	closed    bool
}

func (f *fakeAdapter) Connect(_ context.Context, cfg adapter.Config) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = &cfg
	return nil
}

func (f *fakeAdapter) Close() error {
	f.closed = true
	return nil
}

func (f *fakeAdapter) Exec(context.Context, string) error { return nil }

func (f *fakeAdapter) Query(context.Context, string) (*adapter.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAdapter) GetTableMetadata(context.Context, string) (*adapter.Metadata, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAdapter) CopyFrom(_ context.Context, spec adapter.CopySpec) error {
	if f.copyErr != nil {
		return f.copyErr
	}
	f.copies = append(f.copies, spec)
	return nil
}

func (f *fakeAdapter) DialectName() string { return "fake" }

func redshiftWarehouse(c *Config) {
	c.Warehouse = &WarehouseConfig{
		Adapter: adapter.Config{Type: "redshift", Host: "cluster.example.com"},
		Table:   "zillow_data",
		IAMRole: "arn:aws:iam::123456789012:role/redshift-s3",
	}
}

func fakeFactory(fake *fakeAdapter) AdapterFactory {
	return func(adapter.Config, *slog.Logger) (adapter.Adapter, error) {
		return fake, nil
	}
}

func writtenCombine() *CombineReport {
	return &CombineReport{
		Outcome: OutcomeWritten,
		URI:     "s3://zillow-staging/combined-data/combined.parquet",
		Rows:    8,
	}
}

func TestLoad_IssuesSingleCopy(t *testing.T) {
	fake := &fakeAdapter{}
	env := newTestEnv(t, redshiftWarehouse)
	env.pipeline.SetAdapterFactory(fakeFactory(fake))

	report, err := env.pipeline.Load(context.Background(), writtenCombine())
	require.NoError(t, err)

	assert.Equal(t, OutcomeLoaded, report.Outcome)
	assert.Equal(t, "redshift", report.Target)
	assert.Equal(t, "zillow_data", report.Table)

	require.NotNil(t, fake.connected)
	assert.Equal(t, "cluster.example.com", fake.connected.Host)
	require.Len(t, fake.copies, 1)
	assert.Equal(t, adapter.CopySpec{
		Table:      "zillow_data",
		Source:     "s3://zillow-staging/combined-data/combined.parquet",
		Credential: "arn:aws:iam::123456789012:role/redshift-s3",
		Format:     "PARQUET",
	}, fake.copies[0])
	assert.True(t, fake.closed)
}

func TestLoad_SkipsWhenNoData(t *testing.T) {
	fake := &fakeAdapter{}
	env := newTestEnv(t, redshiftWarehouse)
	env.pipeline.SetAdapterFactory(fakeFactory(fake))

	report, err := env.pipeline.Load(context.Background(), &CombineReport{Outcome: OutcomeNoData})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, report.Outcome)
	assert.Nil(t, fake.connected)
	assert.Empty(t, fake.copies)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name     string
		fake     *fakeAdapter
		upstream *CombineReport
		wantIs   error
		wantMsg  string
	}{
		{name: "nil upstream", fake: &fakeAdapter{}, wantIs: ErrUpstreamIncomplete},
		{name: "written without uri", fake: &fakeAdapter{}, upstream: &CombineReport{Outcome: OutcomeWritten}, wantIs: ErrUpstreamIncomplete},
		{name: "connect failure", fake: &fakeAdapter{connectErr: errors.New("refused")}, upstream: writtenCombine(), wantMsg: "failed to connect to redshift"},
		{name: "copy failure", fake: &fakeAdapter{copyErr: errors.New("bad role")}, upstream: writtenCombine(), wantMsg: "bad role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, redshiftWarehouse)
			env.pipeline.SetAdapterFactory(fakeFactory(tt.fake))

			_, err := env.pipeline.Load(context.Background(), tt.upstream)
			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			if tt.wantMsg != "" {
				var stageErr *StageError
				require.ErrorAs(t, err, &stageErr)
				assert.Equal(t, StageLoad, stageErr.Stage)
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestLoad_Disabled(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.pipeline.Load(context.Background(), writtenCombine())
	require.ErrorIs(t, err, ErrLoadDisabled)
}

func TestLoad_UnknownWarehouse(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.Warehouse = &WarehouseConfig{Adapter: adapter.Config{Type: "oracle"}, Table: "zillow_data"}
	})

	_, err := env.pipeline.Load(context.Background(), writtenCombine())
	require.Error(t, err)
	var unknown *adapter.UnknownAdapterError
	assert.ErrorAs(t, err, &unknown)
}

func TestLoad_DuckDB(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "warehouse.duckdb")
	env := newTestEnv(t, func(c *Config) {
		c.Warehouse = &WarehouseConfig{
			Adapter: adapter.Config{Type: "duckdb", Path: dbPath},
			Table:   "zillow_data",
		}
	})
	env.putRaw(t, zhviFile, zhviWide)
	env.putRaw(t, zoriFile, zhviWide)
	ctx := context.Background()

	processed, err := env.pipeline.Process(ctx)
	require.NoError(t, err)
	combined, err := env.pipeline.Combine(ctx, processed)
	require.NoError(t, err)

	report, err := env.pipeline.Load(ctx, combined)
	require.NoError(t, err)
	assert.Equal(t, OutcomeLoaded, report.Outcome)

	db, err := adapter.NewAdapter(adapter.Config{Type: "duckdb"}, nil)
	require.NoError(t, err)
	require.NoError(t, db.Connect(ctx, adapter.Config{Path: dbPath}))
	defer func() { _ = db.Close() }()

	meta, err := db.GetTableMetadata(ctx, "zillow_data")
	require.NoError(t, err)
	assert.Equal(t, int64(4), meta.RowCount)
	assert.Len(t, meta.Columns, 8)
}
