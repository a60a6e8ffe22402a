package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"infinite-experiment/reconboard/internal/auth"
	"infinite-experiment/reconboard/internal/constants"
	"infinite-experiment/reconboard/internal/models/dtos"
	"infinite-experiment/reconboard/internal/models/entities"
)

// PlaygroundAPIProvider calls the playground backend that owns tasks,
// mappings and reconciliation runs.
type PlaygroundAPIProvider struct {
	BaseURL     string
	Credentials auth.CredentialSource
	Client      *http.Client
	// Limiter throttles outgoing calls when set.
	Limiter *rate.Limiter
}

// NewPlaygroundAPIProvider creates a provider with a bounded HTTP client
func NewPlaygroundAPIProvider(baseURL string, creds auth.CredentialSource, timeout time.Duration) *PlaygroundAPIProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PlaygroundAPIProvider{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Credentials: creds,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

// ============================================================================
// Tasks and mappings
// ============================================================================

// GetTaskFields fetches the selected output fields of a task, in backend order
func (p *PlaygroundAPIProvider) GetTaskFields(ctx context.Context, taskID string) ([]string, int, error) {
	if err := validateID("task id", taskID); err != nil {
		return nil, 0, err
	}

	var raw json.RawMessage
	status, err := p.doJSON(ctx, http.MethodGet, "/tasks/"+url.PathEscape(taskID)+"/fields", nil, &raw)
	if err != nil {
		return nil, status, err
	}

	var fields []string
	if err := json.Unmarshal(raw, &fields); err == nil {
		return fields, status, nil
	}
	var wrapped dtos.TaskFieldsResponse
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, status, &ProviderError{
			Code:       constants.ErrCodeInvalidDataFormat,
			Message:    "Failed to decode task fields",
			Details:    string(raw),
			StatusCode: status,
			Err:        err,
		}
	}
	return wrapped.Fields, status, nil
}

// CreateMapping persists a new mapping and returns it with its assigned id
func (p *PlaygroundAPIProvider) CreateMapping(ctx context.Context, req dtos.CreateMappingReq) (*entities.ReconciliationMapping, int, error) {
	if err := validateID("playground id", req.PlaygroundID); err != nil {
		return nil, 0, err
	}

	var result entities.ReconciliationMapping
	status, err := p.doJSON(ctx, http.MethodPost, "/reconciliation/mappings", req, &result)
	if err != nil {
		return nil, status, err
	}
	return &result, status, nil
}

// ListMappings returns every mapping in a playground
func (p *PlaygroundAPIProvider) ListMappings(ctx context.Context, playgroundID string) ([]entities.ReconciliationMapping, int, error) {
	if err := validateID("playground id", playgroundID); err != nil {
		return nil, 0, err
	}

	var result []entities.ReconciliationMapping
	endpoint := "/reconciliation/mappings?playgroundId=" + url.QueryEscape(playgroundID)
	status, err := p.doJSON(ctx, http.MethodGet, endpoint, nil, &result)
	if err != nil {
		return nil, status, err
	}
	return result, status, nil
}

// UpdateMapping replaces a mapping's whole field map
func (p *PlaygroundAPIProvider) UpdateMapping(ctx context.Context, req dtos.UpdateMappingReq) (*entities.ReconciliationMapping, int, error) {
	if err := validateID("mapping id", req.ID); err != nil {
		return nil, 0, err
	}

	var result entities.ReconciliationMapping
	status, err := p.doJSON(ctx, http.MethodPut, "/reconciliation/mappings/"+url.PathEscape(req.ID), req, &result)
	if err != nil {
		return nil, status, err
	}
	return &result, status, nil
}

// DeleteMapping removes a mapping by id
func (p *PlaygroundAPIProvider) DeleteMapping(ctx context.Context, id string) (int, error) {
	if err := validateID("mapping id", id); err != nil {
		return 0, err
	}
	return p.doJSON(ctx, http.MethodDelete, "/reconciliation/mappings/"+url.PathEscape(id), nil, nil)
}

// ============================================================================
// Reconciliation runs
// ============================================================================

// TriggerRun starts a run for a mapping and returns the backend's acknowledgement text
func (p *PlaygroundAPIProvider) TriggerRun(ctx context.Context, reconciliationID string) (string, int, error) {
	if err := validateID("reconciliation id", reconciliationID); err != nil {
		return "", 0, err
	}

	body, status, err := p.do(ctx, http.MethodPost, "/reconciliation/"+url.PathEscape(reconciliationID)+"/run", nil)
	if err != nil {
		return "", status, err
	}
	return strings.TrimSpace(string(body)), status, nil
}

// GetRunStatus fetches the lightweight status of a mapping's latest run
func (p *PlaygroundAPIProvider) GetRunStatus(ctx context.Context, reconciliationID string) (*entities.StatusUpdate, int, error) {
	if err := validateID("reconciliation id", reconciliationID); err != nil {
		return nil, 0, err
	}

	var result entities.StatusUpdate
	status, err := p.doJSON(ctx, http.MethodGet, "/reconciliation/"+url.PathEscape(reconciliationID)+"/status", nil, &result)
	if err != nil {
		return nil, status, err
	}
	return &result, status, nil
}

// GetRunResult fetches counts and sample locators; 404 until the run has been computed
func (p *PlaygroundAPIProvider) GetRunResult(ctx context.Context, reconciliationID string) (*entities.ReconciliationResult, int, error) {
	if err := validateID("reconciliation id", reconciliationID); err != nil {
		return nil, 0, err
	}

	var result entities.ReconciliationResult
	status, err := p.doJSON(ctx, http.MethodGet, "/reconciliation/"+url.PathEscape(reconciliationID)+"/result", nil, &result)
	if err != nil {
		return nil, status, err
	}
	return &result, status, nil
}

// GetSampleBlob fetches a raw sample by its opaque locator
func (p *PlaygroundAPIProvider) GetSampleBlob(ctx context.Context, locator string) (*dtos.SampleBlobResponse, int, error) {
	if strings.TrimSpace(locator) == "" {
		return nil, 0, &ProviderError{
			Code:    constants.ErrCodeMalformedIdentifier,
			Message: "sample locator cannot be empty",
		}
	}

	var result dtos.SampleBlobResponse
	status, err := p.doJSON(ctx, http.MethodGet, "/reconciliation/samples?path="+url.QueryEscape(locator), nil, &result)
	if err != nil {
		return nil, status, err
	}
	return &result, status, nil
}

// ============================================================================
// HTTP Helper Methods
// ============================================================================

func validateID(name, id string) error {
	if strings.TrimSpace(id) == "" {
		return &ProviderError{
			Code:    constants.ErrCodeMalformedIdentifier,
			Message: fmt.Sprintf("%s cannot be empty", name),
		}
	}
	return nil
}

// doJSON performs a request with an optional JSON payload and decodes a JSON response into result
func (p *PlaygroundAPIProvider) doJSON(ctx context.Context, method, endpoint string, payload interface{}, result interface{}) (int, error) {
	body, status, err := p.do(ctx, method, endpoint, payload)
	if err != nil {
		return status, err
	}
	if result == nil || len(bytes.TrimSpace(body)) == 0 {
		return status, nil
	}

	if err := json.Unmarshal(body, result); err != nil {
		return status, &ProviderError{
			Code:       constants.ErrCodeInvalidDataFormat,
			Message:    "Failed to decode response",
			Details:    string(body),
			StatusCode: status,
			Err:        err,
		}
	}
	return status, nil
}

// do performs an authenticated request and returns the raw response body.
// A missing credential fails before any network activity.
func (p *PlaygroundAPIProvider) do(ctx context.Context, method, endpoint string, payload interface{}) ([]byte, int, error) {
	token, err := p.token(ctx)
	if err != nil {
		return nil, 0, err
	}

	var reader io.Reader
	if payload != nil {
		payloadBytes, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, &ProviderError{
				Code:    constants.ErrCodeInvalidDataFormat,
				Message: "Failed to marshal request body",
				Err:     err,
			}
		}
		reader = bytes.NewReader(payloadBytes)
	}

	if p.Limiter != nil {
		if err := p.Limiter.Wait(ctx); err != nil {
			return nil, 0, &ProviderError{
				Code:    constants.ErrCodeRateLimited,
				Message: constants.GetErrorMessage(constants.ErrCodeRateLimited),
				Err:     err,
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, p.BaseURL+endpoint, reader)
	if err != nil {
		return nil, 0, &ProviderError{
			Code:    constants.ErrCodeNetworkError,
			Message: "Failed to create request",
			Err:     err,
		}
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, 0, &ProviderError{
			Code:    constants.ErrCodeNetworkError,
			Message: constants.GetErrorMessage(constants.ErrCodeNetworkError),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	bodyBytes, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, resp.StatusCode, &ProviderError{
			Code:       constants.ErrCodeNetworkError,
			Message:    "Failed to read response body",
			StatusCode: resp.StatusCode,
			Err:        readErr,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, buildHTTPError(resp.StatusCode, endpoint, bodyBytes)
	}
	return bodyBytes, resp.StatusCode, nil
}

func (p *PlaygroundAPIProvider) token(ctx context.Context) (string, error) {
	if p.Credentials == nil {
		return "", &ProviderError{
			Code:    constants.ErrCodeCredentialMissing,
			Message: constants.GetErrorMessage(constants.ErrCodeCredentialMissing),
		}
	}
	token, err := p.Credentials.Token(ctx)
	if err != nil || token == "" {
		return "", &ProviderError{
			Code:    constants.ErrCodeCredentialMissing,
			Message: constants.GetErrorMessage(constants.ErrCodeCredentialMissing),
			Err:     err,
		}
	}
	return token, nil
}

// backendMessage extracts a user-facing message from an error body:
// a JSON "message" or "error" field when present, the trimmed text otherwise.
func backendMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	return strings.TrimSpace(string(body))
}

// buildHTTPError creates appropriate error based on status code
func buildHTTPError(statusCode int, endpoint string, body []byte) error {
	msg := backendMessage(body)

	switch {
	case statusCode == http.StatusBadRequest:
		if msg == "" {
			msg = constants.GetErrorMessage(constants.ErrCodeMalformedIdentifier)
		}
		return &ProviderError{
			Code:       constants.ErrCodeMalformedIdentifier,
			Message:    msg,
			Details:    string(body),
			StatusCode: statusCode,
		}
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return &ProviderError{
			Code:       constants.ErrCodeAuthenticationFailed,
			Message:    fmt.Sprintf("Authentication failed for endpoint %s", endpoint),
			Details:    string(body),
			StatusCode: statusCode,
		}
	case statusCode == http.StatusNotFound:
		return &ProviderError{
			Code:       constants.ErrCodeNotFound,
			Message:    fmt.Sprintf("Resource not found: %s", endpoint),
			Details:    string(body),
			StatusCode: statusCode,
		}
	case statusCode == http.StatusTooManyRequests:
		return &ProviderError{
			Code:       constants.ErrCodeRateLimited,
			Message:    constants.GetErrorMessage(constants.ErrCodeRateLimited),
			Details:    string(body),
			StatusCode: statusCode,
		}
	case statusCode >= 500:
		return &ProviderError{
			Code:       constants.ErrCodeBackendFailure,
			Message:    fmt.Sprintf("HTTP %d from %s: %s", statusCode, endpoint, msg),
			Details:    string(body),
			StatusCode: statusCode,
		}
	default:
		return &ProviderError{
			Code:       constants.ErrCodeNetworkError,
			Message:    fmt.Sprintf("HTTP %d from %s: %s", statusCode, endpoint, msg),
			Details:    string(body),
			StatusCode: statusCode,
		}
	}
}
