package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	apierrors "github.com/moolen/riskgraph/internal/api/errors"
	"github.com/moolen/riskgraph/internal/engine"
	"github.com/moolen/riskgraph/internal/graph"
	"github.com/moolen/riskgraph/internal/graph/graphtest"
	"github.com/moolen/riskgraph/internal/logging"
)

// Saturday 2026-10-17 12:00 UTC.
var fixedNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func methodOnly(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func newRouter(t *testing.T) *http.ServeMux {
	t.Helper()
	store := graphtest.New(t).
		Resource("db-1", graph.TypeDatabase, graph.Attributes{"estimated_users": 100, "has_sla": true}).
		Resource("api-1", graph.TypeCompute, nil).
		Resource("web-1", graph.TypeCompute, nil).
		Resource("loop-a", graph.TypeCompute, nil).
		Resource("loop-b", graph.TypeCompute, nil).
		Depends("api-1", "db-1", graph.DependencyRequired).
		Depends("web-1", "api-1", graph.DependencyRequired).
		Depends("loop-a", "loop-b", graph.DependencyRequired).
		Depends("loop-b", "loop-a", graph.DependencyRequired).
		Store()

	clock := func() time.Time { return fixedNow }
	eng, err := engine.New(store, engine.DefaultSettings(), engine.WithClock(clock))
	require.NoError(t, err)

	router := http.NewServeMux()
	RegisterHandlers(router, eng, logging.GetLogger("handlers.test"), noop.NewTracerProvider().Tracer("test"),
		Options{MaxBodyBytes: 1 << 12, Now: clock}, methodOnly)
	return router
}

func do(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHandlers_StatusCodes(t *testing.T) {
	router := newRouter(t)

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
		wantError  string
	}{
		{name: "risk", method: http.MethodGet, target: "/v1/risk?resource_id=db-1", wantStatus: http.StatusOK},
		{name: "comprehensive risk", method: http.MethodGet, target: "/v1/risk?resource_id=db-1&comprehensive=true", wantStatus: http.StatusOK},
		{name: "risk missing id", method: http.MethodGet, target: "/v1/risk", wantStatus: http.StatusBadRequest, wantError: "InvalidParameter"},
		{name: "risk unknown id", method: http.MethodGet, target: "/v1/risk?resource_id=nope", wantStatus: http.StatusNotFound, wantError: "NotFound"},
		{name: "risk bad bool", method: http.MethodGet, target: "/v1/risk?resource_id=db-1&comprehensive=maybe", wantStatus: http.StatusBadRequest, wantError: "InvalidParameter"},
		{name: "blast radius", method: http.MethodGet, target: "/v1/blast-radius?resource_id=db-1", wantStatus: http.StatusOK},
		{name: "simulate", method: http.MethodGet, target: "/v1/blast-radius?resource_id=db-1&simulate=true", wantStatus: http.StatusOK},
		{name: "dependencies", method: http.MethodGet, target: "/v1/dependencies?resource_id=web-1&direction=upstream&max_depth=3", wantStatus: http.StatusOK},
		{name: "dependencies bad direction", method: http.MethodGet, target: "/v1/dependencies?resource_id=web-1&direction=sideways", wantStatus: http.StatusBadRequest, wantError: "InvalidParameter"},
		{name: "dependencies bad depth", method: http.MethodGet, target: "/v1/dependencies?resource_id=web-1&max_depth=abc", wantStatus: http.StatusBadRequest, wantError: "InvalidParameter"},
		{name: "spofs", method: http.MethodGet, target: "/v1/spofs?limit=5", wantStatus: http.StatusOK},
		{name: "spofs negative limit", method: http.MethodGet, target: "/v1/spofs?limit=-1", wantStatus: http.StatusBadRequest, wantError: "InvalidParameter"},
		{name: "cycles", method: http.MethodGet, target: "/v1/cycles", wantStatus: http.StatusOK},
		{name: "time aware", method: http.MethodGet, target: "/v1/time-aware-risk?resource_id=db-1&deployment_time=now%2B2h", wantStatus: http.StatusOK},
		{name: "time aware bad time", method: http.MethodGet, target: "/v1/time-aware-risk?resource_id=db-1&deployment_time=-5", wantStatus: http.StatusBadRequest, wantError: "InvalidParameter"},
		{name: "cost", method: http.MethodGet, target: "/v1/cost-impact?resource_id=db-1&industry=finance", wantStatus: http.StatusOK},
		{name: "annual cost", method: http.MethodGet, target: "/v1/cost-impact?resource_id=db-1&annual=true", wantStatus: http.StatusOK},
		{name: "cost unknown industry", method: http.MethodGet, target: "/v1/cost-impact?resource_id=db-1&industry=piracy", wantStatus: http.StatusBadRequest, wantError: "InvalidParameter"},
		{name: "wrong method", method: http.MethodPost, target: "/v1/risk?resource_id=db-1", wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, tt.method, tt.target, tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, decode(t, rec)["error"])
			}
		})
	}
}

func TestGraphHandler_Risk(t *testing.T) {
	rec := do(t, newRouter(t), http.MethodGet, "/v1/risk?resource_id=db-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "db-1", body["resource_id"])
	assert.Equal(t, "database", body["resource_type"])
	assert.Contains(t, body, "score")
	assert.Contains(t, body, "level")
}

func TestGraphHandler_CyclesForResource(t *testing.T) {
	rec := do(t, newRouter(t), http.MethodGet, "/v1/cycles?resource_id=loop-a", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	cycles, ok := body["cycles"].([]interface{})
	require.True(t, ok)
	assert.Len(t, cycles, 1)
}

func TestTrendHandler(t *testing.T) {
	router := newRouter(t)

	t.Run("degrading history", func(t *testing.T) {
		var snaps []string
		for i := 0; i < 6; i++ {
			ts := fixedNow.AddDate(0, 0, i-6).Format(time.RFC3339)
			snaps = append(snaps, `{"timestamp":"`+ts+`","score":`+[]string{"20", "22", "25", "30", "34", "40"}[i]+`}`)
		}
		body := `{"resource_id":"db-1","horizon_days":7,"snapshots":[` + strings.Join(snaps, ",") + `]}`

		rec := do(t, router, http.MethodPost, "/v1/trend", body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		out := decode(t, rec)
		assert.Equal(t, "db-1", out["resource_id"])
		assert.Equal(t, "degrading", out["direction"])
	})

	invalid := []struct {
		name string
		body string
	}{
		{name: "empty body", body: ""},
		{name: "not json", body: "{"},
		{name: "unknown field", body: `{"snapshots":[],"extra":1}`},
		{name: "negative horizon", body: `{"snapshots":[],"horizon_days":-1}`},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/trend", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, "InvalidParameter", decode(t, rec)["error"])
		})
	}
}

func TestRootCauseHandler(t *testing.T) {
	router := newRouter(t)
	start := fixedNow.Add(-2 * time.Hour).Format(time.RFC3339)
	end := fixedNow.Format(time.RFC3339)
	deployed := fixedNow.Add(-30 * time.Minute).Format(time.RFC3339)

	t.Run("ranks the deployment", func(t *testing.T) {
		body := `{
			"resource_id": "web-1",
			"window": {"start": "` + start + `", "end": "` + end + `"},
			"deployments": [{"id": "d1", "resource_id": "db-1", "timestamp": "` + deployed + `"}]
		}`
		rec := do(t, router, http.MethodPost, "/v1/root-cause", body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, decode(t, rec), "candidates")
	})

	t.Run("anomaly score out of range", func(t *testing.T) {
		body := `{
			"resource_id": "web-1",
			"window": {"start": "` + start + `", "end": "` + end + `"},
			"anomalies": [{"resource_id": "db-1", "timestamp": "` + deployed + `", "score": 1.5}]
		}`
		rec := do(t, router, http.MethodPost, "/v1/root-cause", body)
		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		out := decode(t, rec)
		assert.Equal(t, "InvalidParameter", out["error"])
		assert.Contains(t, out["message"], "Score")
	})

	t.Run("body too large", func(t *testing.T) {
		body := `{"resource_id":"` + strings.Repeat("x", 1<<13) + `"}`
		rec := do(t, router, http.MethodPost, "/v1/root-cause", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong content type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/root-cause", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "text/plain")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestValidationMessage(t *testing.T) {
	err := newBase(nil, logging.GetLogger("test"), noop.NewTracerProvider().Tracer("test"), Options{}).
		validate.Struct(TrendRequest{HorizonDays: -1})
	require.Error(t, err)
	assert.Contains(t, validationMessage(err), "TrendRequest.HorizonDays")

	assert.Equal(t, apierrors.FromError(apierrors.NewInvalidRequestError("x")).HTTPStatus, http.StatusBadRequest)
}
