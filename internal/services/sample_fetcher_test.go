package services

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infinite-experiment/reconboard/internal/common"
	"infinite-experiment/reconboard/internal/models/dtos"
	"infinite-experiment/reconboard/internal/providers"
)

func TestCachedSampleFetcher_CachesSuccess(t *testing.T) {
	source := &mockSampleSource{getFunc: func(ctx context.Context, locator string) (*dtos.SampleBlobResponse, int, error) {
		return &dtos.SampleBlobResponse{Preview: []string{"a|b (Count: 1)"}}, http.StatusOK, nil
	}}
	f := NewCachedSampleFetcher(source, common.NewCacheService(time.Minute, time.Minute), time.Minute, nil)

	for i := 0; i < 3; i++ {
		lines, err := f.FetchSample(context.Background(), "s3://x")
		require.NoError(t, err)
		assert.Equal(t, []string{"a|b (Count: 1)"}, lines)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&source.calls))
}

func TestCachedSampleFetcher_ErrorsNotCached(t *testing.T) {
	source := &mockSampleSource{getFunc: func(ctx context.Context, locator string) (*dtos.SampleBlobResponse, int, error) {
		return nil, http.StatusNotFound, notFound()
	}}
	f := NewCachedSampleFetcher(source, common.NewCacheService(time.Minute, time.Minute), time.Minute, nil)

	for i := 0; i < 2; i++ {
		_, err := f.FetchSample(context.Background(), "s3://x")
		assert.True(t, providers.IsNotFound(err))
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&source.calls))
}

func TestCachedSampleFetcher_NilCache(t *testing.T) {
	source := &mockSampleSource{getFunc: func(ctx context.Context, locator string) (*dtos.SampleBlobResponse, int, error) {
		return &dtos.SampleBlobResponse{Preview: []string{"h"}}, http.StatusOK, nil
	}}
	f := NewCachedSampleFetcher(source, nil, time.Minute, nil)

	f.FetchSample(context.Background(), "s3://x")
	f.FetchSample(context.Background(), "s3://x")

	assert.Equal(t, int32(2), atomic.LoadInt32(&source.calls))
}

func TestCachedSampleFetcher_IgnoresForeignCacheValues(t *testing.T) {
	source := &mockSampleSource{getFunc: func(ctx context.Context, locator string) (*dtos.SampleBlobResponse, int, error) {
		return &dtos.SampleBlobResponse{Preview: []string{"fresh"}}, http.StatusOK, nil
	}}
	cache := common.NewCacheService(time.Minute, time.Minute)
	cache.Set("SAMPLE_BLOB_s3://x", 42, time.Minute)
	f := NewCachedSampleFetcher(source, cache, time.Minute, nil)

	lines, err := f.FetchSample(context.Background(), "s3://x")

	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, lines)
}
