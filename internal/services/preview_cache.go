package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"infinite-experiment/reconboard/internal/auth"
	"infinite-experiment/reconboard/internal/constants"
	"infinite-experiment/reconboard/internal/decoder"
	"infinite-experiment/reconboard/internal/logging"
	"infinite-experiment/reconboard/internal/metrics"
	"infinite-experiment/reconboard/internal/models/entities"
	"infinite-experiment/reconboard/internal/providers"
)

const (
	PreviewViewIdleTimeout = 30 * time.Minute
	previewViewSweep       = 5 * time.Minute
)

// PreviewCache owns the open result views. Each view keeps one fetch-once
// record per preview category. Views left idle for the idle timeout are
// closed and dropped.
type PreviewCache struct {
	fetcher SampleFetcher
	opts    decoder.Options
	metrics *metrics.MetricsRegistry
	idle    time.Duration
	sweep   time.Duration

	views *cache.Cache
}

type PreviewCacheOption func(*PreviewCache)

// WithViewIdleTimeout overrides how long an untouched view lives and how often
// expired views are swept.
func WithViewIdleTimeout(idle, sweep time.Duration) PreviewCacheOption {
	return func(c *PreviewCache) {
		c.idle = idle
		c.sweep = sweep
	}
}

func NewPreviewCache(fetcher SampleFetcher, opts decoder.Options, m *metrics.MetricsRegistry, options ...PreviewCacheOption) *PreviewCache {
	c := &PreviewCache{
		fetcher: fetcher,
		opts:    opts,
		metrics: m,
		idle:    PreviewViewIdleTimeout,
		sweep:   previewViewSweep,
	}
	for _, opt := range options {
		opt(c)
	}

	c.views = cache.New(c.idle, c.sweep)
	c.views.OnEvicted(func(key string, val interface{}) {
		v, ok := val.(*PreviewView)
		if !ok {
			return
		}
		if v.release() {
			c.metrics.AddOpenViews(-1)
			logging.Debug("Preview view closed", "view_id", v.ID, "reconciliation_id", v.MappingID)
		}
	})
	return c
}

// OpenView starts a view over a result. fieldMap supplies decoded headers.
// The caller's bearer token in ctx is kept for the view's background fetches;
// the view itself outlives ctx.
func (c *PreviewCache) OpenView(
	ctx context.Context,
	mappingID string,
	result entities.ReconciliationResult,
	fieldMap *entities.FieldMap,
) *PreviewView {
	base := context.Background()
	if token := auth.GetBearerToken(ctx); token != "" {
		base = auth.SetBearerToken(base, token)
	}
	viewCtx, cancel := context.WithCancel(base)

	v := &PreviewView{
		ID:              uuid.NewString(),
		MappingID:       mappingID,
		fieldMap:        fieldMap.Clone(),
		previewsEnabled: result.PreviewsEnabled(),
		result:          result.Clone(),
		owner:           c,
		ctx:             viewCtx,
		cancel:          cancel,
		categories:      make(map[entities.PreviewCategory]*categoryRecord, len(entities.CategoryOrder)),
	}
	for _, cat := range entities.CategoryOrder {
		v.categories[cat] = &categoryRecord{
			state: entities.PreviewCategoryState{Category: cat, S3Path: result.SamplePath(cat)},
		}
	}
	v.active = v.resolveActive(entities.CategoryCommon)

	c.views.Set(c.key(v.ID), v, c.idle)
	c.metrics.AddOpenViews(1)

	logging.Debug("Preview view opened", "view_id", v.ID, "reconciliation_id", mappingID, "active", v.active)
	return v
}

// View returns an open view and extends its idle deadline.
func (c *PreviewCache) View(viewID string) (*PreviewView, error) {
	val, found := c.views.Get(c.key(viewID))
	if !found {
		return nil, ErrUnknownView
	}
	v := val.(*PreviewView)
	if v.Closed() {
		return nil, ErrUnknownView
	}
	c.views.Set(c.key(viewID), v, c.idle)
	return v, nil
}

// CloseView closes and forgets a view. In-flight fetches finish but their
// results are discarded.
func (c *PreviewCache) CloseView(viewID string) error {
	if _, found := c.views.Get(c.key(viewID)); !found {
		return ErrUnknownView
	}
	c.views.Delete(c.key(viewID))
	return nil
}

// CloseAll closes every open view, e.g. on shutdown.
func (c *PreviewCache) CloseAll() {
	for key := range c.views.Items() {
		c.views.Delete(key)
	}
}

// OpenViews counts the views that have not been closed or evicted.
func (c *PreviewCache) OpenViews() int {
	return c.views.ItemCount()
}

func (c *PreviewCache) key(viewID string) string {
	return string(constants.CachePrefixPreview) + viewID
}

func unknownCategory(category entities.PreviewCategory) error {
	return &providers.ProviderError{
		Code:    constants.ErrCodeInvalidDataFormat,
		Message: "unknown preview category " + string(category),
	}
}

type categoryRecord struct {
	mu    sync.Mutex
	state entities.PreviewCategoryState
	done  chan struct{}
}

// PreviewView is one open results view.
type PreviewView struct {
	ID        string
	MappingID string

	fieldMap        *entities.FieldMap
	previewsEnabled bool
	result          entities.ReconciliationResult
	owner           *PreviewCache
	ctx             context.Context
	cancel          context.CancelFunc
	categories      map[entities.PreviewCategory]*categoryRecord
	inflight        sync.WaitGroup

	mu       sync.Mutex
	active   entities.PreviewCategory
	closed   bool
	released bool
}

func (v *PreviewView) PreviewsEnabled() bool {
	return v.previewsEnabled
}

// EnsureLoaded starts a background fetch for category unless the category
// has no sample, failed permanently, is already loading or already loaded.
// It reports whether a fetch was started.
func (v *PreviewView) EnsureLoaded(category entities.PreviewCategory) (bool, error) {
	rec, ok := v.categories[category]
	if !ok {
		return false, unknownCategory(category)
	}

	v.mu.Lock()
	closed := v.closed
	v.mu.Unlock()
	if closed {
		return false, ErrViewClosed
	}
	if !v.previewsEnabled {
		return false, nil
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	s := &rec.state
	if s.S3Path == "" || s.PermanentError || s.Loading || s.Data != nil {
		return false, nil
	}

	s.Loading = true
	s.Error = ""
	rec.done = make(chan struct{})
	v.inflight.Add(1)
	go v.fetch(category, rec, s.S3Path, rec.done)
	return true, nil
}

func (v *PreviewView) fetch(category entities.PreviewCategory, rec *categoryRecord, path string, done chan struct{}) {
	defer v.inflight.Done()
	defer close(done)

	lines, err := v.owner.fetcher.FetchSample(v.ctx, path)

	var data *entities.PreviewData
	if err == nil {
		res, raw := decoder.DecodeLines(lines, v.fieldMap, v.owner.opts)
		data = &entities.PreviewData{IsCompactEncoding: res.Compact, Table: res.Table, RawText: raw}
		encoding := "delimited"
		if res.Compact {
			encoding = "compact"
		}
		v.owner.metrics.AddDecodedRows(encoding, len(res.Table.Rows))
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.state.Loading = false
	if v.Closed() {
		v.owner.metrics.ObservePreviewFetch(string(category), "discarded")
		return
	}

	switch {
	case err == nil:
		rec.state.Data = data
		rec.state.Error = ""
		v.owner.metrics.ObservePreviewFetch(string(category), "ok")
	case providers.IsNotFound(err):
		rec.state.PermanentError = true
		rec.state.Error = constants.MsgFileNotFound
		v.owner.metrics.ObservePreviewFetch(string(category), "not_found")
		logging.Warn("Sample blob missing", "view_id", v.ID, "category", category, "path", path)
	default:
		rec.state.Error = err.Error()
		v.owner.metrics.ObservePreviewFetch(string(category), "error")
		logging.Warn("Sample fetch failed", "view_id", v.ID, "category", category, "error", err)
	}
}

// Wait blocks until the current fetch for category finishes or ctx ends.
func (v *PreviewView) Wait(ctx context.Context, category entities.PreviewCategory) (entities.PreviewCategoryState, error) {
	rec, ok := v.categories[category]
	if !ok {
		return entities.PreviewCategoryState{}, unknownCategory(category)
	}
	rec.mu.Lock()
	done := rec.done
	rec.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return v.State(category), ctx.Err()
		}
	}
	return v.State(category), nil
}

// Load ensures the category is loaded and waits for the outcome.
func (v *PreviewView) Load(ctx context.Context, category entities.PreviewCategory) (entities.PreviewCategoryState, error) {
	if _, err := v.EnsureLoaded(category); err != nil {
		return entities.PreviewCategoryState{}, err
	}
	return v.Wait(ctx, category)
}

func (v *PreviewView) State(category entities.PreviewCategory) entities.PreviewCategoryState {
	rec, ok := v.categories[category]
	if !ok {
		return entities.PreviewCategoryState{Category: category}
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.state
}

// States lists every category in priority order.
func (v *PreviewView) States() []entities.PreviewCategoryState {
	out := make([]entities.PreviewCategoryState, 0, len(entities.CategoryOrder))
	for _, cat := range entities.CategoryOrder {
		out = append(out, v.State(cat))
	}
	return out
}

func (v *PreviewView) Active() entities.PreviewCategory {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.active
}

// SetActive switches the active category. A category without a sample gives
// way to the first one that has one.
func (v *PreviewView) SetActive(category entities.PreviewCategory) (entities.PreviewCategory, error) {
	if _, ok := v.categories[category]; !ok {
		return "", unknownCategory(category)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return "", ErrViewClosed
	}
	v.active = v.resolveActive(category)
	return v.active, nil
}

func (v *PreviewView) resolveActive(wanted entities.PreviewCategory) entities.PreviewCategory {
	if v.result.HasSample(wanted) {
		return wanted
	}
	for _, cat := range entities.CategoryOrder {
		if v.result.HasSample(cat) {
			return cat
		}
	}
	return wanted
}

// Close cancels in-flight fetches. It does not wait for them.
func (v *PreviewView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	v.cancel()
}

// release closes the view once it left its cache. It reports true only the
// first time, so the open-views gauge drops once per view.
func (v *PreviewView) release() bool {
	v.Close()
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.released {
		return false
	}
	v.released = true
	return true
}

func (v *PreviewView) Closed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}
