package commands

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/riskgraph/internal/engine"
	"github.com/moolen/riskgraph/internal/graph"
	"github.com/moolen/riskgraph/internal/mcp"
)

func newTestMCPServer(t *testing.T) *httptest.Server {
	t.Helper()
	eng, err := engine.New(graph.NewMemoryStore(), engine.DefaultSettings())
	require.NoError(t, err)
	mcpServer := mcp.NewRiskServer(eng, mcp.ServerOptions{Version: "test"}).GetMCPServer()

	mux, _ := newMCPHTTPMux(mcpServer, "/mcp")
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestMCPServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
}

func TestHealthEndpointMethod(t *testing.T) {
	ts := newTestMCPServer(t)

	resp, err := http.Post(ts.URL+"/health", "text/plain", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestMCPEndpointInitialize(t *testing.T) {
	ts := newTestMCPServer(t)

	req := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{` +
		`"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}}}`
	httpReq, err := http.NewRequest(http.MethodPost, ts.URL+"/mcp", strings.NewReader(req))
	require.NoError(t, err)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, text/event-stream")

	resp, err := http.DefaultClient.Do(httpReq)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "riskgraph")
}

func TestNormalizeEndpointPath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "/mcp"},
		{"mcp", "/mcp"},
		{"/v1/mcp", "/v1/mcp"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeEndpointPath(tt.in))
	}
}
