package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"infinite-experiment/reconboard/internal/common"
	"infinite-experiment/reconboard/internal/constants"
	"infinite-experiment/reconboard/internal/metrics"
)

// SampleFetcher returns the lines of a sample blob.
type SampleFetcher interface {
	FetchSample(ctx context.Context, locator string) ([]string, error)
}

// CachedSampleFetcher reads sample blobs through a CacheInterface. Only
// successful fetches are cached, so a missing blob is asked for again by the
// next view that wants it.
type CachedSampleFetcher struct {
	source  SampleSource
	cache   common.CacheInterface
	ttl     time.Duration
	metrics *metrics.MetricsRegistry
}

// NewCachedSampleFetcher returns a fetcher; a nil cache disables caching.
func NewCachedSampleFetcher(source SampleSource, cache common.CacheInterface, ttl time.Duration, m *metrics.MetricsRegistry) *CachedSampleFetcher {
	return &CachedSampleFetcher{source: source, cache: cache, ttl: ttl, metrics: m}
}

func (f *CachedSampleFetcher) FetchSample(ctx context.Context, locator string) ([]string, error) {
	key := string(constants.CachePrefixSampleBlob) + locator

	if f.cache != nil {
		if val, found := f.cache.Get(key); found {
			if lines, ok := decodeCachedLines(val); ok {
				f.metrics.ObserveCache(string(constants.CachePrefixSampleBlob), true)
				return lines, nil
			}
			f.cache.Delete(key)
		}
		f.metrics.ObserveCache(string(constants.CachePrefixSampleBlob), false)
	}

	blob, _, err := f.source.GetSampleBlob(ctx, locator)
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		encoded, err := json.Marshal(blob.Preview)
		if err != nil {
			return nil, fmt.Errorf("encode sample for cache: %w", err)
		}
		f.cache.Set(key, string(encoded), f.ttl)
	}
	return blob.Preview, nil
}

// Cached values are JSON strings so the memory and Redis caches hand back
// the same shape.
func decodeCachedLines(val interface{}) ([]string, bool) {
	s, ok := val.(string)
	if !ok {
		return nil, false
	}
	var lines []string
	if err := json.Unmarshal([]byte(s), &lines); err != nil {
		return nil, false
	}
	return lines, true
}
