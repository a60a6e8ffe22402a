package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infinite-experiment/reconboard/internal/auth"
	"infinite-experiment/reconboard/internal/constants"
	"infinite-experiment/reconboard/internal/decoder"
	"infinite-experiment/reconboard/internal/models/entities"
)

func sampleResult() entities.ReconciliationResult {
	return entities.ReconciliationResult{
		ReconciliationID:               "map-1",
		Status:                         entities.StatusSuccess,
		ReconciliationMethod:           entities.MethodExactMatch,
		SampleCommonRowsS3Path:         "s3://common",
		SampleExclusiveLeftRowsS3Path:  "s3://left",
		SampleExclusiveRightRowsS3Path: "s3://right",
	}
}

func waitCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestPreviewView_LoadsAndDecodesWithFieldMap(t *testing.T) {
	fetcher := &mockFetcher{fetchFunc: func(ctx context.Context, locator string) ([]string, error) {
		return []string{"1|2 (Count: 2)"}, nil
	}}
	cache := NewPreviewCache(fetcher, decoder.Options{}, nil)
	fm := entities.NewFieldMap(
		entities.FieldPair{Left: "id", Right: "userId"},
		entities.FieldPair{Left: "amt", Right: "total"},
	)
	view := cache.OpenView(context.Background(), "map-1", sampleResult(), fm)

	state, err := view.Load(waitCtx(t), entities.CategoryCommon)

	require.NoError(t, err)
	require.NotNil(t, state.Data)
	assert.True(t, state.Data.IsCompactEncoding)
	assert.Equal(t, []string{"id", "amt"}, state.Data.Table.Headers)
	assert.Len(t, state.Data.Table.Rows, 2)
	assert.False(t, state.Loading)
	assert.Empty(t, state.Error)

	// Loaded categories are not fetched again.
	started, err := view.EnsureLoaded(entities.CategoryCommon)
	require.NoError(t, err)
	assert.False(t, started)
	assert.Equal(t, 1, fetcher.callsFor("s3://common"))
}

func TestPreviewView_PermanentErrorIsSticky(t *testing.T) {
	fetcher := &mockFetcher{fetchFunc: func(ctx context.Context, locator string) ([]string, error) {
		return nil, notFound()
	}}
	view := NewPreviewCache(fetcher, decoder.Options{}, nil).OpenView(context.Background(), "map-1", sampleResult(), nil)

	state, err := view.Load(waitCtx(t), entities.CategoryLeftExclusive)
	require.NoError(t, err)
	assert.True(t, state.PermanentError)
	assert.Equal(t, constants.MsgFileNotFound, state.Error)

	for i := 0; i < 3; i++ {
		started, err := view.EnsureLoaded(entities.CategoryLeftExclusive)
		require.NoError(t, err)
		assert.False(t, started)
	}
	assert.Equal(t, 1, fetcher.callsFor("s3://left"))
}

func TestPreviewView_TransientErrorRetries(t *testing.T) {
	attempts := 0
	fetcher := &mockFetcher{fetchFunc: func(ctx context.Context, locator string) ([]string, error) {
		attempts++
		if attempts == 1 {
			return nil, networkError()
		}
		return []string{"a,b", "1,2"}, nil
	}}
	view := NewPreviewCache(fetcher, decoder.Options{}, nil).OpenView(context.Background(), "map-1", sampleResult(), nil)

	state, err := view.Load(waitCtx(t), entities.CategoryCommon)
	require.NoError(t, err)
	assert.NotEmpty(t, state.Error)
	assert.False(t, state.PermanentError)
	assert.Nil(t, state.Data)

	state, err = view.Load(waitCtx(t), entities.CategoryCommon)
	require.NoError(t, err)
	assert.Empty(t, state.Error)
	require.NotNil(t, state.Data)
	assert.False(t, state.Data.IsCompactEncoding)
	assert.Equal(t, "a,b\n1,2", state.Data.RawText)
	assert.Equal(t, 2, fetcher.callsFor("s3://common"))
}

func TestPreviewView_SingleInFlightFetchPerCategory(t *testing.T) {
	release := make(chan struct{})
	fetcher := &mockFetcher{fetchFunc: func(ctx context.Context, locator string) ([]string, error) {
		<-release
		return []string{"x (Count: 1)"}, nil
	}}
	view := NewPreviewCache(fetcher, decoder.Options{}, nil).OpenView(context.Background(), "map-1", sampleResult(), nil)

	started, err := view.EnsureLoaded(entities.CategoryCommon)
	require.NoError(t, err)
	assert.True(t, started)
	assert.True(t, view.State(entities.CategoryCommon).Loading)

	started, err = view.EnsureLoaded(entities.CategoryCommon)
	require.NoError(t, err)
	assert.False(t, started)

	// Other categories load independently.
	started, err = view.EnsureLoaded(entities.CategoryRightExclusive)
	require.NoError(t, err)
	assert.True(t, started)

	close(release)
	view.inflight.Wait()
	assert.Equal(t, 1, fetcher.callsFor("s3://common"))
	assert.Equal(t, 1, fetcher.callsFor("s3://right"))
}

func TestPreviewView_InertWithoutPath(t *testing.T) {
	fetcher := &mockFetcher{fetchFunc: func(ctx context.Context, locator string) ([]string, error) {
		return nil, nil
	}}
	result := sampleResult()
	result.SampleExclusiveRightRowsS3Path = ""
	view := NewPreviewCache(fetcher, decoder.Options{}, nil).OpenView(context.Background(), "map-1", result, nil)

	started, err := view.EnsureLoaded(entities.CategoryRightExclusive)

	require.NoError(t, err)
	assert.False(t, started)
	assert.Equal(t, 0, fetcher.callsFor(""))
}

func TestPreviewView_ProbabilisticDisablesPreviews(t *testing.T) {
	fetcher := &mockFetcher{fetchFunc: func(ctx context.Context, locator string) ([]string, error) {
		return nil, nil
	}}
	result := sampleResult()
	result.ReconciliationMethod = entities.MethodProbabilisticMatch
	view := NewPreviewCache(fetcher, decoder.Options{}, nil).OpenView(context.Background(), "map-1", result, nil)

	started, err := view.EnsureLoaded(entities.CategoryCommon)

	require.NoError(t, err)
	assert.False(t, started)
	assert.False(t, view.PreviewsEnabled())
}

func TestPreviewView_CloseDiscardsInFlightResult(t *testing.T) {
	release := make(chan struct{})
	fetcher := &mockFetcher{fetchFunc: func(ctx context.Context, locator string) ([]string, error) {
		<-release
		return []string{"x (Count: 1)"}, nil
	}}
	cache := NewPreviewCache(fetcher, decoder.Options{}, nil)
	view := cache.OpenView(context.Background(), "map-1", sampleResult(), nil)

	_, err := view.EnsureLoaded(entities.CategoryCommon)
	require.NoError(t, err)

	require.NoError(t, cache.CloseView(view.ID))
	close(release)
	view.inflight.Wait()

	assert.Nil(t, view.State(entities.CategoryCommon).Data)
	_, err = view.EnsureLoaded(entities.CategoryCommon)
	assert.ErrorIs(t, err, ErrViewClosed)
	_, err = cache.View(view.ID)
	assert.ErrorIs(t, err, ErrUnknownView)
	assert.ErrorIs(t, cache.CloseView(view.ID), ErrUnknownView)
}

func TestPreviewView_CloseCancelsFetchContext(t *testing.T) {
	fetcher := &mockFetcher{fetchFunc: func(ctx context.Context, locator string) ([]string, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	cache := NewPreviewCache(fetcher, decoder.Options{}, nil)
	view := cache.OpenView(context.Background(), "map-1", sampleResult(), nil)

	_, err := view.EnsureLoaded(entities.CategoryCommon)
	require.NoError(t, err)
	view.Close()
	view.inflight.Wait()

	assert.Empty(t, view.State(entities.CategoryCommon).Error)
}

func TestPreviewView_ActiveCategorySelection(t *testing.T) {
	tests := []struct {
		name       string
		paths      [3]string
		wantActive entities.PreviewCategory
	}{
		{"common first", [3]string{"c", "l", "r"}, entities.CategoryCommon},
		{"left when no common", [3]string{"", "l", "r"}, entities.CategoryLeftExclusive},
		{"right only", [3]string{"", "", "r"}, entities.CategoryRightExclusive},
		{"none keeps common", [3]string{"", "", ""}, entities.CategoryCommon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := entities.ReconciliationResult{
				SampleCommonRowsS3Path:         tt.paths[0],
				SampleExclusiveLeftRowsS3Path:  tt.paths[1],
				SampleExclusiveRightRowsS3Path: tt.paths[2],
			}
			view := NewPreviewCache(&mockFetcher{}, decoder.Options{}, nil).OpenView(context.Background(), "m", result, nil)
			assert.Equal(t, tt.wantActive, view.Active())
		})
	}
}

func TestPreviewView_SetActiveFallsBackToCategoryWithPath(t *testing.T) {
	result := entities.ReconciliationResult{SampleExclusiveLeftRowsS3Path: "l"}
	view := NewPreviewCache(&mockFetcher{}, decoder.Options{}, nil).OpenView(context.Background(), "m", result, nil)

	active, err := view.SetActive(entities.CategoryRightExclusive)

	require.NoError(t, err)
	assert.Equal(t, entities.CategoryLeftExclusive, active)

	_, err = view.SetActive("bogus")
	assert.Error(t, err)
}

func TestPreviewView_StatesInPriorityOrder(t *testing.T) {
	view := NewPreviewCache(&mockFetcher{}, decoder.Options{}, nil).OpenView(context.Background(), "m", sampleResult(), nil)

	states := view.States()

	require.Len(t, states, 3)
	for i, cat := range entities.CategoryOrder {
		assert.Equal(t, cat, states[i].Category)
	}
	assert.Equal(t, "s3://left", states[1].S3Path)
}

func TestPreviewView_FetchCarriesOpenerBearer(t *testing.T) {
	var seen []string
	var mu sync.Mutex
	fetcher := &mockFetcher{fetchFunc: func(ctx context.Context, locator string) ([]string, error) {
		mu.Lock()
		seen = append(seen, auth.GetBearerToken(ctx))
		mu.Unlock()
		return []string{"x (Count: 1)"}, nil
	}}
	cache := NewPreviewCache(fetcher, decoder.Options{}, nil)

	reqCtx, cancel := context.WithCancel(auth.SetBearerToken(context.Background(), "user-token"))
	view := cache.OpenView(reqCtx, "map-1", sampleResult(), nil)
	// The request that opened the view is long gone by the time tabs switch.
	cancel()

	for _, cat := range entities.CategoryOrder {
		state, err := view.Load(waitCtx(t), cat)
		require.NoError(t, err)
		require.NotNil(t, state.Data, "category %s", cat)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"user-token", "user-token", "user-token"}, seen)
}

func TestPreviewCache_IdleViewIsEvicted(t *testing.T) {
	release := make(chan struct{})
	fetcher := &mockFetcher{fetchFunc: func(ctx context.Context, locator string) ([]string, error) {
		<-release
		return []string{"x (Count: 1)"}, nil
	}}
	cache := NewPreviewCache(fetcher, decoder.Options{}, nil, WithViewIdleTimeout(20*time.Millisecond, 5*time.Millisecond))
	view := cache.OpenView(context.Background(), "map-1", sampleResult(), nil)

	started, err := view.EnsureLoaded(entities.CategoryCommon)
	require.NoError(t, err)
	require.True(t, started)

	assert.Eventually(t, view.Closed, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, cache.OpenViews())

	close(release)
	view.inflight.Wait()

	assert.Nil(t, view.State(entities.CategoryCommon).Data)
	_, err = cache.View(view.ID)
	assert.ErrorIs(t, err, ErrUnknownView)
}

func TestPreviewCache_AccessKeepsViewAlive(t *testing.T) {
	cache := NewPreviewCache(&mockFetcher{}, decoder.Options{}, nil, WithViewIdleTimeout(60*time.Millisecond, 5*time.Millisecond))
	view := cache.OpenView(context.Background(), "map-1", sampleResult(), nil)

	for i := 0; i < 6; i++ {
		time.Sleep(20 * time.Millisecond)
		_, err := cache.View(view.ID)
		require.NoError(t, err, "access %d", i)
	}
	assert.False(t, view.Closed())
	require.NoError(t, cache.CloseView(view.ID))
	assert.True(t, view.Closed())
}

func TestPreviewCache_CloseAll(t *testing.T) {
	cache := NewPreviewCache(&mockFetcher{}, decoder.Options{}, nil)
	a := cache.OpenView(context.Background(), "map-1", sampleResult(), nil)
	b := cache.OpenView(context.Background(), "map-2", sampleResult(), nil)

	cache.CloseAll()

	assert.True(t, a.Closed())
	assert.True(t, b.Closed())
	assert.Equal(t, 0, cache.OpenViews())
}
