package objstore

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/leapstack-labs/zillowetl/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is an in-memory S3 that serves listings in pages of pageSize keys.
type fakeS3 struct {
	s3iface.S3API

	objects      map[string]map[string][]byte
	pageSize     int
	contentTypes map[string]string
	listErr      error
}

func newFakeS3(pageSize int) *fakeS3 {
	return &fakeS3{
		objects:      make(map[string]map[string][]byte),
		pageSize:     pageSize,
		contentTypes: make(map[string]string),
	}
}

func (f *fakeS3) put(bucket, key, body string) {
	if f.objects[bucket] == nil {
		f.objects[bucket] = make(map[string][]byte)
	}
	f.objects[bucket][key] = []byte(body)
}

func (f *fakeS3) ListObjectsV2PagesWithContext(_ aws.Context, in *s3.ListObjectsV2Input, fn func(*s3.ListObjectsV2Output, bool) bool, _ ...request.Option) error {
	if f.listErr != nil {
		return f.listErr
	}
	bucket, ok := f.objects[aws.StringValue(in.Bucket)]
	if !ok {
		return awserr.New(s3.ErrCodeNoSuchBucket, "no such bucket", nil)
	}

	var keys []string
	for k := range bucket {
		if strings.HasPrefix(k, aws.StringValue(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for start := 0; ; start += f.pageSize {
		end := min(start+f.pageSize, len(keys))
		page := &s3.ListObjectsV2Output{}
		for _, k := range keys[start:end] {
			page.Contents = append(page.Contents, &s3.Object{Key: aws.String(k), Size: aws.Int64(int64(len(bucket[k])))})
		}
		last := end >= len(keys)
		if !fn(page, last) || last {
			return nil
		}
	}
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.StringValue(in.Bucket)][aws.StringValue(in.Key)]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "no such key", nil)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.put(aws.StringValue(in.Bucket), aws.StringValue(in.Key), string(data))
	f.contentTypes[aws.StringValue(in.Key)] = aws.StringValue(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store_ListPaginates(t *testing.T) {
	fake := newFakeS3(2)
	for _, k := range []string{"Metro_zori.csv", "Metro_zhvi.csv", "Metro_mlp.csv", "readme.txt", "Metro_new_listings.csv"} {
		fake.put("zillow-raw", k, "x")
	}

	store := NewS3StoreFromClient(fake, testutil.NewTestLogger(t))
	objs, err := store.List(context.Background(), "zillow-raw", "Metro_")
	require.NoError(t, err)

	var keys []string
	for _, o := range objs {
		keys = append(keys, o.Key)
		assert.Equal(t, int64(1), o.Size)
	}
	assert.Equal(t, []string{"Metro_mlp.csv", "Metro_new_listings.csv", "Metro_zhvi.csv", "Metro_zori.csv"}, keys)
}

func TestS3Store_ListError(t *testing.T) {
	store := NewS3StoreFromClient(newFakeS3(10), nil)
	_, err := store.List(context.Background(), "missing", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list s3://missing/")

	var aerr awserr.Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, s3.ErrCodeNoSuchBucket, aerr.Code())
}

func TestS3Store_GetPut(t *testing.T) {
	fake := newFakeS3(10)
	store := NewS3StoreFromClient(fake, nil)
	ctx := context.Background()

	loc := Location{Bucket: "zillow-staging", Key: "processed-data/Metro_zhvi_transformed.csv"}
	require.NoError(t, store.Put(ctx, loc, []byte("regionid,date,zhvi\n")))

	data, err := store.Get(ctx, loc)
	require.NoError(t, err)
	assert.Equal(t, "regionid,date,zhvi\n", string(data))
	assert.Equal(t, "text/csv", fake.contentTypes[loc.Key])

	_, err = store.Get(ctx, Location{Bucket: "zillow-staging", Key: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://zillow-staging/nope")
}

func TestS3Store_URI(t *testing.T) {
	store := NewS3StoreFromClient(newFakeS3(1), nil)
	assert.Equal(t, "s3://zillow-staging/combined-data/combined_file.parquet",
		store.URI(Location{Bucket: "zillow-staging", Key: "combined-data/combined_file.parquet"}))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/csv", contentType("a/b.csv"))
	assert.Equal(t, "application/vnd.apache.parquet", contentType("combined.parquet"))
	assert.Equal(t, "application/octet-stream", contentType("README"))
}

func TestNewS3Store(t *testing.T) {
	store, err := NewS3Store(Config{
		Region:          "us-east-1",
		Endpoint:        "http://localhost:9000",
		PathStyle:       true,
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
	}, nil)
	require.NoError(t, err)
	assert.NotNil(t, store.client)
}
