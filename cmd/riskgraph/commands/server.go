package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/moolen/riskgraph/internal/apiserver"
	"github.com/moolen/riskgraph/internal/config"
	"github.com/moolen/riskgraph/internal/engine"
	"github.com/moolen/riskgraph/internal/lifecycle"
	"github.com/moolen/riskgraph/internal/logging"
	"github.com/moolen/riskgraph/internal/mcp"
	"github.com/moolen/riskgraph/internal/tracing"
)

var (
	serverAddr   string
	stdioEnabled bool
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the riskgraph API server",
	Long: `Start the HTTP API server. It serves the /v1 analysis endpoints, the MCP
endpoint at /v1/mcp, Prometheus metrics at /metrics and health probes.

With server.watch_config enabled, changes to the analysis sections of the
config file are applied without a restart.`,
	RunE: runServer,
}

func init() {
	serverCmd.Flags().StringVar(&serverAddr, "addr", "", "Listen address (overrides server.address)")
	serverCmd.Flags().BoolVar(&stdioEnabled, "stdio", false, "Also serve MCP over stdio")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serverAddr != "" {
		cfg.Server.Address = serverAddr
	}
	logger := logging.GetLogger("riskgraph")
	logger.Info("Starting riskgraph %s", Version)

	manager := lifecycle.NewManager()
	manager.SetShutdownTimeout(cfg.Server.ShutdownTimeout)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	tracingProvider, err := tracing.NewProvider(cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := manager.Register(tracingProvider); err != nil {
		return err
	}

	store, falkor, err := openStore(cfg, registry)
	if err != nil {
		return err
	}
	apiDeps := []lifecycle.Component{tracingProvider}
	if falkor != nil {
		if err := manager.Register(falkor); err != nil {
			return err
		}
		apiDeps = append(apiDeps, falkor)
	}

	eng, err := engine.New(store, cfg.EngineSettings(), engine.WithMetrics(engine.NewMetrics(registry)))
	if err != nil {
		return err
	}

	var mcpServer *server.MCPServer
	if cfg.Server.MCPEnabled || stdioEnabled {
		mcpServer = mcp.NewRiskServer(eng, mcp.ServerOptions{Version: Version}).GetMCPServer()
	}

	opts := []apiserver.Option{
		apiserver.WithRegistry(registry),
		apiserver.WithReadinessChecker(apiserver.NewGraphReadinessChecker(store, 2*time.Second)),
		apiserver.WithTracerProvider(otel.GetTracerProvider()),
	}
	if cfg.Server.MCPEnabled {
		opts = append(opts, apiserver.WithMCPServer(mcpServer))
	}
	apiComponent := apiserver.New(cfg.Server, eng, opts...)
	if err := manager.Register(apiComponent, apiDeps...); err != nil {
		return err
	}

	if cfg.Server.WatchConfig {
		if configPath == "" {
			logger.Warn("server.watch_config is set but no --config file was given, not watching")
		} else {
			watcher, err := config.NewWatcher(configPath, config.DefaultDebounce, func(next *config.Config) error {
				return eng.Reload(next.EngineSettings())
			})
			if err != nil {
				return err
			}
			if err := manager.Register(watcher); err != nil {
				return err
			}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start components: %w", err)
	}

	if stdioEnabled {
		logger.Info("Starting stdio MCP transport alongside HTTP")
		go func() {
			if err := server.ServeStdio(mcpServer); err != nil {
				logger.Error("Stdio transport error: %v", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Received %v, shutting down gracefully...", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout+5*time.Second)
	defer shutdownCancel()
	if err := manager.Stop(shutdownCtx); err != nil {
		logger.Error("Shutdown completed with errors: %v", err)
		return err
	}
	logger.Info("Shutdown complete")
	return nil
}
