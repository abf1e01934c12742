package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/moolen/riskgraph/internal/engine"
	"github.com/moolen/riskgraph/internal/logging"
	"github.com/moolen/riskgraph/internal/mcp"
)

var (
	httpAddr        string
	transportType   string
	mcpEndpointPath string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start a standalone MCP server",
	Long: `Start a Model Context Protocol server that exposes the analysis engine
as MCP tools for AI assistants.

Supports two transport modes:
  - http: streamable HTTP (default), with a /health endpoint
  - stdio: standard input/output for subprocess-based MCP clients`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&httpAddr, "http-addr", ":8082", "HTTP server address (host:port)")
	mcpCmd.Flags().StringVar(&transportType, "transport", "http", "Transport type: http or stdio")
	mcpCmd.Flags().StringVar(&mcpEndpointPath, "mcp-endpoint", "/mcp", "HTTP endpoint path for MCP requests")
}

func runMCP(cmd *cobra.Command, args []string) error {
	if transportType != "http" && transportType != "stdio" {
		return fmt.Errorf("invalid transport type: %s (must be 'http' or 'stdio')", transportType)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := logging.GetLogger("mcp")
	logger.Info("Starting riskgraph MCP server (transport: %s)", transportType)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openStoreConnected(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	eng, err := engine.New(store, cfg.EngineSettings())
	if err != nil {
		return err
	}
	mcpServer := mcp.NewRiskServer(eng, mcp.ServerOptions{Version: Version}).GetMCPServer()

	if transportType == "stdio" {
		logger.Info("Starting stdio transport")
		return server.ServeStdio(mcpServer)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("Received signal: %v, shutting down gracefully...", sig)
		cancel()
	}()

	return serveMCPHTTP(ctx, mcpServer, httpAddr, mcpEndpointPath)
}

// serveMCPHTTP serves mcpServer over streamable HTTP until ctx is done.
func serveMCPHTTP(ctx context.Context, mcpServer *server.MCPServer, addr, endpointPath string) error {
	logger := logging.GetLogger("mcp")
	endpointPath = normalizeEndpointPath(endpointPath)

	httpSrv := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 5 * time.Second,
	}
	mux, streamableServer := newMCPHTTPMux(mcpServer, endpointPath, server.WithStreamableHTTPServer(httpSrv))
	httpSrv.Handler = mux

	logger.Info("Starting HTTP server on %s (endpoint: %s)", addr, endpointPath)
	errCh := make(chan error, 1)
	go func() {
		if err := streamableServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := streamableServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error during shutdown: %w", err)
		}
		logger.Info("Server stopped")
		return nil
	case err := <-errCh:
		return err
	}
}

// newMCPHTTPMux routes endpointPath to a stateless streamable MCP handler
// and /health to a plain liveness probe.
func newMCPHTTPMux(mcpServer *server.MCPServer, endpointPath string, opts ...server.StreamableHTTPOption) (*http.ServeMux, *server.StreamableHTTPServer) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	opts = append([]server.StreamableHTTPOption{
		server.WithEndpointPath(endpointPath),
		server.WithStateLess(true),
	}, opts...)
	streamableServer := server.NewStreamableHTTPServer(mcpServer, opts...)
	mux.Handle(endpointPath, streamableServer)
	return mux, streamableServer
}

func normalizeEndpointPath(path string) string {
	if path == "" {
		return "/mcp"
	}
	if path[0] != '/' {
		return "/" + path
	}
	return path
}
