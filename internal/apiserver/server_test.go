package apiserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/riskgraph/internal/config"
	"github.com/moolen/riskgraph/internal/engine"
	"github.com/moolen/riskgraph/internal/graph"
	"github.com/moolen/riskgraph/internal/graph/graphtest"
)

func testStore(t *testing.T) *graph.MemoryStore {
	return graphtest.New(t).
		Resource("db-1", graph.TypeDatabase, nil).
		Resource("api-1", graph.TypeCompute, nil).
		Depends("api-1", "db-1", graph.DependencyRequired).
		Store()
}

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	registry := prometheus.NewRegistry()
	eng, err := engine.New(testStore(t), engine.DefaultSettings(), engine.WithMetrics(engine.NewMetrics(registry)))
	require.NoError(t, err)

	cfg := config.Default().Server
	cfg.Address = "127.0.0.1:0"
	return New(cfg, eng, append([]Option{WithRegistry(registry)}, opts...)...)
}

type unavailableStore struct {
	graph.Store
}

func (unavailableStore) ListResources(context.Context, graph.ResourceFilter) ([]graph.Resource, error) {
	return nil, errors.New("connection refused")
}

func TestServer_Routes(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	tests := []struct {
		name       string
		method     string
		target     string
		wantStatus int
		wantBody   string
	}{
		{name: "health", method: http.MethodGet, target: "/health", wantStatus: http.StatusOK, wantBody: `"healthy"`},
		{name: "ready", method: http.MethodGet, target: "/ready", wantStatus: http.StatusOK, wantBody: `"ready":true`},
		{name: "risk", method: http.MethodGet, target: "/v1/risk?resource_id=db-1", wantStatus: http.StatusOK, wantBody: `"resource_id":"db-1"`},
		{name: "not found", method: http.MethodGet, target: "/v1/risk?resource_id=nope", wantStatus: http.StatusNotFound, wantBody: `"error":"NotFound"`},
		{name: "method not allowed", method: http.MethodDelete, target: "/v1/spofs", wantStatus: http.StatusMethodNotAllowed, wantBody: `"MethodNotAllowed"`},
		{name: "preflight", method: http.MethodOptions, target: "/v1/risk", wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestServer_MetricsExposeEngineOperations(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/blast-radius?resource_id=db-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "riskgraph_engine_operation_duration_seconds")
}

func TestServer_NotReady(t *testing.T) {
	s := newTestServer(t, WithReadinessChecker(NewGraphReadinessChecker(unavailableStore{}, time.Second)))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body["ready"])
}

func TestGraphReadinessChecker(t *testing.T) {
	assert.True(t, NewGraphReadinessChecker(testStore(t), 0).IsReady())
	assert.False(t, NewGraphReadinessChecker(unavailableStore{}, 0).IsReady())
}

func TestServer_StartStop(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, s.Start(ctx))
	assert.False(t, strings.HasSuffix(s.Addr(), ":0"))

	resp, err := http.Get("http://" + s.Addr() + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "healthy")

	require.NoError(t, s.Stop(ctx))
	_, err = http.Get("http://" + s.Addr() + "/health")
	assert.Error(t, err)
}

func TestServer_StartFailsOnBusyAddress(t *testing.T) {
	first := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, first.Start(ctx))
	defer func() { _ = first.Stop(ctx) }()

	second := newTestServer(t)
	second.config.Address = first.Addr()
	assert.Error(t, second.Start(ctx))
}

func TestServer_RateLimit(t *testing.T) {
	eng, err := engine.New(testStore(t), engine.DefaultSettings())
	require.NoError(t, err)
	cfg := config.Default().Server
	cfg.RateLimitRPS = 0.001
	cfg.RateLimitBurst = 1
	h := New(cfg, eng).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/risk?resource_id=db-1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/risk?resource_id=db-1", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"error":"RateLimited"`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
