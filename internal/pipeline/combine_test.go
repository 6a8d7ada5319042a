package pipeline

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/leapstack-labs/zillowetl/internal/objstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
)

func readParquetShape(t *testing.T, path string) (rows int64, names []string) {
	t.Helper()
	fr, err := local.NewLocalFileReader(path)
	require.NoError(t, err)
	defer func() { _ = fr.Close() }()

	pr, err := reader.NewParquetReader(fr, nil, 1)
	require.NoError(t, err)
	defer pr.ReadStop()

	for _, el := range pr.Footer.Schema[1:] {
		names = append(names, strings.ToLower(el.Name))
	}
	return pr.GetNumRows(), names
}

func TestCombine_UnionOfStagedFiles(t *testing.T) {
	env := newTestEnv(t, nil)
	env.putRaw(t, zhviFile, "RegionID,SizeRank,RegionName,RegionType,StateName,2000-01-31,2000-02-29,2000-03-31\n"+
		"394913,1,\"New York, NY\",msa,NY,1,2,3\n")
	env.putRaw(t, zoriFile, "RegionID,SizeRank,RegionName,RegionType,StateName,2015-01-31,2015-02-28,2015-03-31,2015-04-30,2015-05-31\n"+
		"394913,1,\"New York, NY\",msa,NY,1.5,2.5,3.5,4.5,5.5\n")
	ctx := context.Background()

	processed, err := env.pipeline.Process(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(8), processed.Rows)

	report, err := env.pipeline.Combine(ctx, processed)
	require.NoError(t, err)

	assert.Equal(t, OutcomeWritten, report.Outcome)
	assert.Equal(t, int64(8), report.Rows)
	assert.Len(t, report.Files, 2)
	assert.Equal(t, []string{"regionid", "sizerank", "regionname", "regiontype", "statename", "date", "zhvi", "zori"}, report.Columns)
	assert.Equal(t, env.pipeline.CombinedLocation(), report.Location)
	assert.Equal(t, env.store.URI(report.Location), report.URI)

	rows, names := readParquetShape(t, report.URI)
	assert.Equal(t, int64(8), rows)
	assert.Equal(t, report.Columns, names)
}

func TestCombine_IgnoresNonCSV(t *testing.T) {
	env := newTestEnv(t, nil)
	env.putRaw(t, zhviFile, zhviWide)
	ctx := context.Background()

	processed, err := env.pipeline.Process(ctx)
	require.NoError(t, err)

	notes := objstore.Location{Bucket: testStagingBucket, Key: testStagingPrefix + "README.txt"}
	require.NoError(t, env.store.Put(ctx, notes, []byte("not a staged file")))

	report, err := env.pipeline.Combine(ctx, processed)
	require.NoError(t, err)
	assert.Equal(t, []string{"processed-data/Metro_zhvi_uc_sfrcondo_tier_0.33_0.67_sm_sa_month_transformed.csv"}, report.Files)
	assert.Equal(t, int64(2), report.Rows)
}

func TestCombine_NoData(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	processed, err := env.pipeline.Process(ctx)
	require.NoError(t, err)
	assert.Empty(t, processed.Files)

	report, err := env.pipeline.Combine(ctx, processed)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoData, report.Outcome)
	assert.Empty(t, report.URI)

	_, err = os.Stat(env.store.URI(env.pipeline.CombinedLocation()))
	assert.True(t, os.IsNotExist(err), "combined file must not be written")
}

func TestCombine_RequiresCompletedUpstream(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.pipeline.Combine(ctx, nil)
	require.ErrorIs(t, err, ErrUpstreamIncomplete)

	_, err = env.pipeline.Combine(ctx, &ProcessReport{})
	require.ErrorIs(t, err, ErrUpstreamIncomplete)
}

func TestCombine_Deterministic(t *testing.T) {
	env := newTestEnv(t, nil)
	env.putRaw(t, zhviFile, zhviWide)
	env.putRaw(t, zoriFile, zhviWide)
	ctx := context.Background()

	processed, err := env.pipeline.Process(ctx)
	require.NoError(t, err)

	first, err := env.pipeline.Combine(ctx, processed)
	require.NoError(t, err)
	second, err := env.pipeline.Combine(ctx, processed)
	require.NoError(t, err)

	assert.Equal(t, first.Files, second.Files)
	assert.Equal(t, first.Columns, second.Columns)
	assert.Equal(t, first.Rows, second.Rows)
}
