package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moolen/riskgraph/internal/config"
	"github.com/moolen/riskgraph/internal/logging"
)

// Version is set at build time with -ldflags.
var Version = "0.1.0"

var (
	logLevelFlags []string // Supports multiple --log-level flags
	configPath    string
	snapshotPath  string
)

var rootCmd = &cobra.Command{
	Use:   "riskgraph",
	Short: "riskgraph - dependency graph risk and impact analysis",
	Long: `riskgraph analyzes an infrastructure dependency graph: blast radius,
single points of failure, circular dependencies, risk scores, deployment
timing, failure cost, risk trends and incident root causes.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func init() {
	// Supports per-package log levels: --log-level debug --log-level graph.falkordb=debug
	rootCmd.PersistentFlags().StringSliceVar(&logLevelFlags, "log-level", nil,
		"Log level for packages. Use 'level' or 'default=level' for the default, or 'package.name=level' per package.\n"+
			"Examples: --log-level debug (all), --log-level engine=debug --log-level graph.*=warn")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&snapshotPath, "snapshot", "",
		"Graph snapshot file; selects the in-memory backend and overrides graph.snapshot")

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(versionCmd)
}

// HandleError prints error and exits
func HandleError(err error, msg string) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
		os.Exit(1)
	}
}

// loadConfig reads --config, applies --snapshot and initializes logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if snapshotPath != "" {
		cfg.Graph.Backend = config.BackendMemory
		cfg.Graph.Snapshot = snapshotPath
	}
	if err := setupLog(logLevelFlags, cfg.Logging); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLog initializes the logging system.
// Priority: CLI flags > environment variables > config file
func setupLog(flags []string, base config.LoggingConfig) error {
	defaultLevel, packageLevels, err := parseLogLevelFlags(flags, base)
	if err != nil {
		return err
	}
	return logging.Initialize(defaultLevel, packageLevels)
}

// parseLogLevelFlags merges the config file levels, LOG_LEVEL_* environment
// variables and CLI flags, later sources winning.
//
// CLI format: ["debug"], ["default=info", "graph.falkordb=debug"]
// Env vars: LOG_LEVEL_GRAPH_FALKORDB=debug (package name uppercased, dots to underscores)
//
// Returns: (defaultLevel, packageLevels map, error)
func parseLogLevelFlags(flags []string, base config.LoggingConfig) (string, map[string]string, error) {
	result := make(map[string]string)
	for pkg, level := range base.Packages {
		result[pkg] = level
	}
	if base.Level != "" {
		result["default"] = base.Level
	}

	for _, envPair := range os.Environ() {
		if strings.HasPrefix(envPair, "LOG_LEVEL_") {
			parts := strings.SplitN(envPair, "=", 2)
			if len(parts) != 2 {
				continue
			}
			result[convertEnvKeyToPackageName(parts[0])] = parts[1]
		}
	}

	for _, flag := range flags {
		if !strings.Contains(flag, "=") {
			result["default"] = flag
			continue
		}
		parts := strings.SplitN(flag, "=", 2)
		result[parts[0]] = parts[1]
	}

	defaultLevel := "info"
	if level, exists := result["default"]; exists {
		defaultLevel = level
		delete(result, "default")
	}

	if err := validateLogLevel(defaultLevel); err != nil {
		return "", nil, err
	}
	for pkg, level := range result {
		if err := validateLogLevel(level); err != nil {
			return "", nil, fmt.Errorf("invalid log level for package %q: %v", pkg, err)
		}
	}

	return strings.ToLower(defaultLevel), result, nil
}

// convertEnvKeyToPackageName converts LOG_LEVEL_GRAPH_FALKORDB -> graph.falkordb
func convertEnvKeyToPackageName(envKey string) string {
	name := strings.TrimPrefix(envKey, "LOG_LEVEL_")
	return strings.ToLower(strings.ReplaceAll(name, "_", "."))
}

// validateLogLevel checks if a level string is valid
func validateLogLevel(level string) error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}
	if !validLevels[strings.ToLower(level)] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error, fatal)", level)
	}
	return nil
}
