package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/indigo-hass-bridge/internal/bridge"
	"github.com/nerrad567/indigo-hass-bridge/internal/history"
	"github.com/nerrad567/indigo-hass-bridge/internal/infrastructure/config"
	"github.com/nerrad567/indigo-hass-bridge/internal/infrastructure/logging"
)

// mockBridge implements the Bridge interface with fixed values.
type mockBridge struct {
	mu        sync.Mutex
	connected bool
	entities  []bridge.EntityInfo
}

func (m *mockBridge) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockBridge) EntityCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entities)
}

func (m *mockBridge) Entities() []bridge.EntityInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bridge.EntityInfo(nil), m.entities...)
}

// mockHistorian records the query it received and returns canned entries.
type mockHistorian struct {
	mu       sync.Mutex
	entityID string
	limit    int
	entries  []history.Entry
	err      error
}

func (m *mockHistorian) Recent(_ context.Context, entityID string, limit int) ([]history.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entityID = entityID
	m.limit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.entries, nil
}

// newTestServer builds a Server without starting the listener.
func newTestServer(t *testing.T, b Bridge, h Historian) *Server {
	t.Helper()

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	srv, err := New(Deps{
		Config:  config.APIConfig{Host: "127.0.0.1", Port: 0},
		Logger:  log,
		Bridge:  b,
		History: h,
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return srv
}

func TestNewRequiresDependencies(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	if _, err := New(Deps{Logger: log}); err == nil {
		t.Error("expected error without bridge")
	}
	if _, err := New(Deps{Bridge: &mockBridge{}}); err == nil {
		t.Error("expected error without logger")
	}
}

func TestHandleHealthConnected(t *testing.T) {
	b := &mockBridge{connected: true, entities: []bridge.EntityInfo{
		{ID: "123", Name: "Porch Light", MQTTName: "porch_light", HassType: "light"},
	}}
	srv := newTestServer(t, b, nil)

	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("Status = %q, want ok", resp.Status)
	}
	if !resp.MQTTConnected {
		t.Error("MQTTConnected = false, want true")
	}
	if resp.EntityCount != 1 {
		t.Errorf("EntityCount = %d, want 1", resp.EntityCount)
	}
	if resp.Version != "test" {
		t.Errorf("Version = %q, want test", resp.Version)
	}
}

func TestHandleHealthDisconnected(t *testing.T) {
	srv := newTestServer(t, &mockBridge{connected: false}, nil)

	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "degraded" {
		t.Errorf("Status = %q, want degraded", resp.Status)
	}
}

func TestHandleEntities(t *testing.T) {
	b := &mockBridge{connected: true, entities: []bridge.EntityInfo{
		{ID: "123", Name: "Porch Light", MQTTName: "porch_light", HassType: "light", HAEntityID: "light.porch_light"},
		{ID: "456", Name: "Front Door", MQTTName: "front_door", HassType: "lock"},
	}}
	srv := newTestServer(t, b, nil)

	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/entities", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Count    int                 `json:"count"`
		Entities []bridge.EntityInfo `json:"entities"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 2 {
		t.Errorf("Count = %d, want 2", resp.Count)
	}
	if len(resp.Entities) != 2 {
		t.Fatalf("len(Entities) = %d, want 2", len(resp.Entities))
	}
	if resp.Entities[0].HAEntityID != "light.porch_light" {
		t.Errorf("HAEntityID = %q, want light.porch_light", resp.Entities[0].HAEntityID)
	}
}

func TestHandleEntityHistory(t *testing.T) {
	h := &mockHistorian{entries: []history.Entry{
		{ID: 2, EntityID: "porch_light", Topic: "indigo/light/porch_light/status", Payload: "ON", RecordedAt: time.Now().UTC()},
		{ID: 1, EntityID: "porch_light", Topic: "indigo/light/porch_light/status", Payload: "OFF", RecordedAt: time.Now().UTC().Add(-time.Minute)},
	}}
	srv := newTestServer(t, &mockBridge{connected: true}, h)

	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/entities/porch_light/history", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		EntityID string          `json:"entity_id"`
		Count    int             `json:"count"`
		Entries  []history.Entry `json:"entries"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.EntityID != "porch_light" {
		t.Errorf("EntityID = %q, want porch_light", resp.EntityID)
	}
	if resp.Count != 2 {
		t.Errorf("Count = %d, want 2", resp.Count)
	}
	if h.entityID != "porch_light" {
		t.Errorf("queried entity = %q, want porch_light", h.entityID)
	}
	if h.limit != defaultHistoryLimit {
		t.Errorf("limit = %d, want %d", h.limit, defaultHistoryLimit)
	}
}

func TestHandleEntityHistoryLimit(t *testing.T) {
	h := &mockHistorian{}
	srv := newTestServer(t, &mockBridge{}, h)
	router := srv.buildRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/entities/porch_light/history?limit=10", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if h.limit != 10 {
		t.Errorf("limit = %d, want 10", h.limit)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/entities/porch_light/history?limit=99999", nil))
	if h.limit != maxHistoryLimit {
		t.Errorf("limit = %d, want %d", h.limit, maxHistoryLimit)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/entities/porch_light/history?limit=abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/entities/porch_light/history?limit=0", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleEntityHistoryDisabled(t *testing.T) {
	srv := newTestServer(t, &mockBridge{}, nil)

	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/entities/porch_light/history", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	var resp Error
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != ErrCodeNotFound {
		t.Errorf("Code = %q, want %q", resp.Code, ErrCodeNotFound)
	}
}

func TestHandleEntityHistoryQueryError(t *testing.T) {
	h := &mockHistorian{err: errors.New("database closed")}
	srv := newTestServer(t, &mockBridge{}, h)

	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/entities/porch_light/history", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t, &mockBridge{connected: true}, nil)
	router := srv.buildRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected generated X-Request-ID header")
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc123")
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc123" {
		t.Errorf("X-Request-ID = %q, want abc123", got)
	}
}
