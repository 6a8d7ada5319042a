package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/leapstack-labs/zillowetl/internal/catalog"
	"github.com/leapstack-labs/zillowetl/internal/frame"
	"github.com/leapstack-labs/zillowetl/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const zhviWide = "RegionID,SizeRank,RegionName,RegionType,StateName,2000-01-31,2000-02-29\n" +
	"102001,0,United States,country,,100.5,101\n" +
	"394913,1,\"New York, NY\",msa,NY,200,201.5\n"

func TestProcess_ReshapesAndStages(t *testing.T) {
	env := newTestEnv(t, nil)
	env.putRaw(t, zhviFile, zhviWide)

	report, err := env.pipeline.Process(context.Background())
	require.NoError(t, err)

	require.True(t, report.Complete)
	assert.Equal(t, 1, report.Written)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, int64(2), report.Rows)

	require.Len(t, report.Files, 1)
	res := report.Files[0]
	assert.Equal(t, testRawPrefix+zhviFile, res.Key)
	assert.Equal(t, "processed-data/Metro_zhvi_uc_sfrcondo_tier_0.33_0.67_sm_sa_month_transformed.csv", res.Dest)
	assert.Equal(t, "zhvi", res.Label)
	assert.Equal(t, FileWritten, res.Status)

	want := "regionid,sizerank,regionname,regiontype,statename,date,zhvi\n" +
		"394913,1,\"New York, NY\",msa,NY,2000-01-31,200.0\n" +
		"394913,1,\"New York, NY\",msa,NY,2000-02-29,201.5\n"
	assert.Equal(t, want, env.getStaged(t, res.Dest))
}

func TestProcess_ByteOrderMarkedSource(t *testing.T) {
	env := newTestEnv(t, nil)
	env.putRaw(t, zhviFile, "\ufeff"+zhviWide)

	report, err := env.pipeline.Process(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Written)

	staged := env.getStaged(t, report.Files[0].Dest)
	assert.True(t, strings.HasPrefix(staged, "regionid,sizerank,"), staged)
}

func TestProcess_Idempotent(t *testing.T) {
	env := newTestEnv(t, nil)
	env.putRaw(t, zhviFile, zhviWide)
	ctx := context.Background()

	first, err := env.pipeline.Process(ctx)
	require.NoError(t, err)
	before := env.getStaged(t, first.Files[0].Dest)

	second, err := env.pipeline.Process(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Files, second.Files)
	assert.Equal(t, before, env.getStaged(t, second.Files[0].Dest))
}

func TestProcess_SkipsEmptyResults(t *testing.T) {
	logger, rec := testutil.NewRecordingLogger(t)
	env := newTestEnv(t, func(c *Config) { c.Logger = logger })
	env.putRaw(t, "a_country_only.csv", "RegionID,SizeRank,RegionName,RegionType,StateName,2000-01-31\n102001,0,United States,country,,1\n")
	env.putRaw(t, "b_empty.csv", "")
	env.putRaw(t, zhviFile, zhviWide)

	report, err := env.pipeline.Process(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Written)
	assert.Equal(t, 2, report.Skipped)
	require.Len(t, report.Files, 3)

	assert.Equal(t, FileSkipped, report.Files[0].Status)
	assert.Equal(t, ReasonEmptyOutput, report.Files[0].Reason)
	assert.Empty(t, report.Files[0].Dest)

	assert.Equal(t, FileSkipped, report.Files[1].Status)
	assert.Equal(t, ReasonEmptyInput, report.Files[1].Reason)

	assert.Equal(t, FileWritten, report.Files[2].Status)

	warnings := rec.Messages(slog.LevelWarn)
	require.Len(t, warnings, 2)
	assert.Equal(t, "skipped file", warnings[0].Message)
	assert.Equal(t, ReasonEmptyInput, warnings[1].Attrs["reason"])

	objects, err := env.store.List(context.Background(), testStagingBucket, testStagingPrefix)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, report.Files[2].Dest, objects[0].Key)
}

func TestProcess_LabelResolution(t *testing.T) {
	tests := []struct {
		name    string
		catalog *catalog.Catalog
		file    string
		want    string
	}{
		{name: "known file", file: zoriFile, want: "zori"},
		{name: "unknown file", file: "Metro_something_new.csv", want: catalog.Fallback},
		{
			name:    "override",
			catalog: catalog.Default().With(map[string]string{"Metro_something_new.csv": "new_metric"}),
			file:    "Metro_something_new.csv",
			want:    "new_metric",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, func(c *Config) { c.Catalog = tt.catalog })
			env.putRaw(t, tt.file, zhviWide)

			report, err := env.pipeline.Process(context.Background())
			require.NoError(t, err)
			require.Len(t, report.Files, 1)
			assert.Equal(t, tt.want, report.Files[0].Label)

			staged := env.getStaged(t, report.Files[0].Dest)
			assert.Contains(t, staged, "statename,date,"+tt.want+"\n")
		})
	}
}

func TestProcess_MissingIDColumnIsFatal(t *testing.T) {
	env := newTestEnv(t, nil)
	env.putRaw(t, zhviFile, "RegionID,RegionName,2000-01-31\n1,NY,2\n")

	_, err := env.pipeline.Process(context.Background())
	require.Error(t, err)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageProcess, stageErr.Stage)
	assert.Equal(t, testRawPrefix+zhviFile, stageErr.Key)

	var missing *frame.MissingColumnError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "sizerank", missing.Column)
}

func TestProcess_ListFailureIsFatal(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.RawBucket = "does-not-exist" })

	_, err := env.pipeline.Process(context.Background())
	require.Error(t, err)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageProcess, stageErr.Stage)
	assert.Empty(t, stageErr.Key)
}

func TestProcess_CustomIDColumns(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.IDColumns = []string{"regionid", "regionname"} })
	env.putRaw(t, zhviFile, zhviWide)

	report, err := env.pipeline.Process(context.Background())
	require.NoError(t, err)

	want := "regionid,regionname,date,zhvi\n" +
		"394913,\"New York, NY\",2000-01-31,200.0\n" +
		"394913,\"New York, NY\",2000-02-29,201.5\n"
	assert.Equal(t, want, env.getStaged(t, report.Files[0].Dest))
}

func TestProcess_Canceled(t *testing.T) {
	env := newTestEnv(t, nil)
	env.putRaw(t, zhviFile, zhviWide)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.pipeline.Process(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
