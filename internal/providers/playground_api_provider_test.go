package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"infinite-experiment/reconboard/internal/auth"
	"infinite-experiment/reconboard/internal/models/dtos"
	"infinite-experiment/reconboard/internal/models/entities"
)

func newTestProvider(url string) *PlaygroundAPIProvider {
	return &PlaygroundAPIProvider{
		BaseURL:     url,
		Credentials: auth.StaticCredentials("test-token"),
		Client:      &http.Client{},
	}
}

func TestPlaygroundAPIProvider_CreateMapping_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST request, got %s", r.Method)
		}
		if r.URL.Path != "/reconciliation/mappings" {
			t.Errorf("Expected path /reconciliation/mappings, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Expected bearer header, got %q", got)
		}

		var req dtos.CreateMappingReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode body: %v", err)
			return
		}
		if keys := req.FieldMap.Keys(); len(keys) != 2 || keys[0] != "id" || keys[1] != "amt" {
			t.Errorf("Expected ordered keys [id amt], got %v", keys)
		}

		resp := entities.ReconciliationMapping{
			ID:           "map-1",
			PlaygroundID: req.PlaygroundID,
			LeftTaskID:   req.LeftTaskID,
			RightTaskID:  req.RightTaskID,
			FieldMap:     req.FieldMap,
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider := newTestProvider(server.URL)
	fm := entities.NewFieldMap(
		entities.FieldPair{Left: "id", Right: "userId"},
		entities.FieldPair{Left: "amt", Right: "total"},
	)

	result, status, err := provider.CreateMapping(context.Background(), dtos.CreateMappingReq{
		PlaygroundID: "pg-1",
		LeftTaskID:   "t-left",
		RightTaskID:  "t-right",
		FieldMap:     fm,
	})

	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if status != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", status)
	}
	if result.ID != "map-1" {
		t.Errorf("Expected id map-1, got %s", result.ID)
	}
}

func TestPlaygroundAPIProvider_MissingCredential_NoNetwork(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	provider := &PlaygroundAPIProvider{
		BaseURL:     server.URL,
		Credentials: auth.StaticCredentials(""),
		Client:      &http.Client{},
	}

	_, status, err := provider.GetRunStatus(context.Background(), "map-1")

	if !IsCredentialMissing(err) {
		t.Fatalf("Expected credential missing error, got %v", err)
	}
	if status != 0 {
		t.Errorf("Expected status 0, got %d", status)
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Errorf("Expected no network calls, got %d", n)
	}
}

func TestPlaygroundAPIProvider_EmptyID(t *testing.T) {
	provider := newTestProvider("http://127.0.0.1:0")

	_, status, err := provider.GetRunResult(context.Background(), "  ")

	if !IsMalformed(err) {
		t.Errorf("Expected malformed identifier error, got %v", err)
	}
	if status != 0 {
		t.Errorf("Expected status 0, got %d", status)
	}
}

func TestPlaygroundAPIProvider_BadRequestMessageVerbatim(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message": "Invalid reconciliation id: abc"}`))
	}))
	defer server.Close()

	_, status, err := newTestProvider(server.URL).GetRunStatus(context.Background(), "abc")

	if !IsMalformed(err) {
		t.Fatalf("Expected malformed error, got %v", err)
	}
	if status != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", status)
	}
	if err.Error() != "Invalid reconciliation id: abc" {
		t.Errorf("Expected verbatim message, got %q", err.Error())
	}
}

func TestPlaygroundAPIProvider_ResultNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, status, err := newTestProvider(server.URL).GetRunResult(context.Background(), "map-1")

	if !IsNotFound(err) {
		t.Errorf("Expected not found error, got %v", err)
	}
	if status != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", status)
	}
}

func TestPlaygroundAPIProvider_TriggerRunReturnsText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reconciliation/map-1/run" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.Write([]byte("Reconciliation started\n"))
	}))
	defer server.Close()

	ack, _, err := newTestProvider(server.URL).TriggerRun(context.Background(), "map-1")

	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if ack != "Reconciliation started" {
		t.Errorf("Unexpected acknowledgement %q", ack)
	}
}

func TestPlaygroundAPIProvider_GetTaskFields_BothShapes(t *testing.T) {
	bodies := map[string]string{
		"/tasks/bare/fields":    `["a","b"]`,
		"/tasks/wrapped/fields": `{"fields":["a","b"]}`,
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(bodies[r.URL.Path]))
	}))
	defer server.Close()

	provider := newTestProvider(server.URL)
	for _, task := range []string{"bare", "wrapped"} {
		fields, _, err := provider.GetTaskFields(context.Background(), task)
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", task, err)
		}
		if len(fields) != 2 || fields[0] != "a" || fields[1] != "b" {
			t.Errorf("%s: unexpected fields %v", task, fields)
		}
	}
}

func TestPlaygroundAPIProvider_GetSampleBlob(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("path"); got != "s3://bucket/key with space" {
			t.Errorf("Unexpected locator %q", got)
		}
		json.NewEncoder(w).Encode(dtos.SampleBlobResponse{Preview: []string{"a|b (Count: 1)"}})
	}))
	defer server.Close()

	blob, _, err := newTestProvider(server.URL).GetSampleBlob(context.Background(), "s3://bucket/key with space")

	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(blob.Preview) != 1 {
		t.Errorf("Expected 1 line, got %d", len(blob.Preview))
	}
}

func TestPlaygroundAPIProvider_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	_, status, err := newTestProvider(server.URL).ListMappings(context.Background(), "pg-1")

	if err == nil {
		t.Fatal("Expected error for 500 response")
	}
	if IsNotFound(err) || IsMalformed(err) {
		t.Errorf("Expected backend failure, got %v", err)
	}
	if status != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", status)
	}
}
