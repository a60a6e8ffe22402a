package services

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"infinite-experiment/reconboard/internal/constants"
	"infinite-experiment/reconboard/internal/models/dtos"
	"infinite-experiment/reconboard/internal/models/entities"
	"infinite-experiment/reconboard/internal/providers"
)

type mockMappingBackend struct {
	createFunc func(ctx context.Context, req dtos.CreateMappingReq) (*entities.ReconciliationMapping, int, error)
	listFunc   func(ctx context.Context, playgroundID string) ([]entities.ReconciliationMapping, int, error)
	updateFunc func(ctx context.Context, req dtos.UpdateMappingReq) (*entities.ReconciliationMapping, int, error)
	deleteFunc func(ctx context.Context, mappingID string) (int, error)
	calls      int32
}

func (m *mockMappingBackend) CreateMapping(ctx context.Context, req dtos.CreateMappingReq) (*entities.ReconciliationMapping, int, error) {
	atomic.AddInt32(&m.calls, 1)
	return m.createFunc(ctx, req)
}

func (m *mockMappingBackend) ListMappings(ctx context.Context, playgroundID string) ([]entities.ReconciliationMapping, int, error) {
	atomic.AddInt32(&m.calls, 1)
	return m.listFunc(ctx, playgroundID)
}

func (m *mockMappingBackend) UpdateMapping(ctx context.Context, req dtos.UpdateMappingReq) (*entities.ReconciliationMapping, int, error) {
	atomic.AddInt32(&m.calls, 1)
	return m.updateFunc(ctx, req)
}

func (m *mockMappingBackend) DeleteMapping(ctx context.Context, mappingID string) (int, error) {
	atomic.AddInt32(&m.calls, 1)
	return m.deleteFunc(ctx, mappingID)
}

type mockFieldSource struct {
	fields map[string][]string
}

func (m *mockFieldSource) GetTaskFields(ctx context.Context, taskID string) ([]string, int, error) {
	f, ok := m.fields[taskID]
	if !ok {
		return nil, http.StatusNotFound, notFound()
	}
	return f, http.StatusOK, nil
}

type mockRunBackend struct {
	triggerFunc func(ctx context.Context, id string) (string, int, error)
	statusFunc  func(ctx context.Context, id string) (*entities.StatusUpdate, int, error)
	resultFunc  func(ctx context.Context, id string) (*entities.ReconciliationResult, int, error)
}

func (m *mockRunBackend) TriggerRun(ctx context.Context, id string) (string, int, error) {
	return m.triggerFunc(ctx, id)
}

func (m *mockRunBackend) GetRunStatus(ctx context.Context, id string) (*entities.StatusUpdate, int, error) {
	return m.statusFunc(ctx, id)
}

func (m *mockRunBackend) GetRunResult(ctx context.Context, id string) (*entities.ReconciliationResult, int, error) {
	return m.resultFunc(ctx, id)
}

type mockRecorder struct {
	mu      sync.Mutex
	results []entities.ReconciliationResult
}

func (m *mockRecorder) RecordRun(ctx context.Context, result entities.ReconciliationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, result)
	return nil
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.results)
}

// mockFetcher counts calls per locator.
type mockFetcher struct {
	fetchFunc func(ctx context.Context, locator string) ([]string, error)
	mu        sync.Mutex
	calls     map[string]int
}

func (m *mockFetcher) FetchSample(ctx context.Context, locator string) ([]string, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[locator]++
	m.mu.Unlock()
	return m.fetchFunc(ctx, locator)
}

func (m *mockFetcher) callsFor(locator string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[locator]
}

type mockSampleSource struct {
	getFunc func(ctx context.Context, locator string) (*dtos.SampleBlobResponse, int, error)
	calls   int32
}

func (m *mockSampleSource) GetSampleBlob(ctx context.Context, locator string) (*dtos.SampleBlobResponse, int, error) {
	atomic.AddInt32(&m.calls, 1)
	return m.getFunc(ctx, locator)
}

func notFound() error {
	return &providers.ProviderError{
		Code:       constants.ErrCodeNotFound,
		Message:    constants.GetErrorMessage(constants.ErrCodeNotFound),
		StatusCode: http.StatusNotFound,
	}
}

func networkError() error {
	return &providers.ProviderError{
		Code:    constants.ErrCodeNetworkError,
		Message: constants.GetErrorMessage(constants.ErrCodeNetworkError),
	}
}

func malformed() error {
	return &providers.ProviderError{
		Code:       constants.ErrCodeMalformedIdentifier,
		Message:    "Invalid reconciliation id",
		StatusCode: http.StatusBadRequest,
	}
}

func count(v int64) *int64 {
	return &v
}
