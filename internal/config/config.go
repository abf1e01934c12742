// Package config loads the riskgraph configuration file.
//
// Example:
//
//	schema_version: "1.0"
//	server:
//	  address: ":8080"
//	graph:
//	  backend: falkordb
//	  falkordb:
//	    host: falkordb
//	  cache:
//	    enabled: true
//	    ttl: 30s
//	risk:
//	  weights:
//	    criticality: 0.35
//	    redundancy: 0.10
//	logging:
//	  level: info
//	  packages:
//	    rootcause: debug
package config

import (
	"fmt"
	"time"

	"github.com/moolen/riskgraph/internal/blastradius"
	"github.com/moolen/riskgraph/internal/cost"
	"github.com/moolen/riskgraph/internal/dependency"
	"github.com/moolen/riskgraph/internal/engine"
	"github.com/moolen/riskgraph/internal/graph"
	"github.com/moolen/riskgraph/internal/risk"
	"github.com/moolen/riskgraph/internal/rootcause"
	"github.com/moolen/riskgraph/internal/spof"
	"github.com/moolen/riskgraph/internal/timing"
	"github.com/moolen/riskgraph/internal/tracing"
	"github.com/moolen/riskgraph/internal/trend"
)

// CurrentSchemaVersion is written by riskgraph and assumed when a file
// omits schema_version.
const CurrentSchemaVersion = "1.0"

// Graph backends.
const (
	BackendMemory   = "memory"
	BackendFalkorDB = "falkordb"
)

// Config is the whole configuration file.
type Config struct {
	SchemaVersion string `yaml:"schema_version"`

	Server ServerConfig `yaml:"server"`
	Graph  GraphConfig  `yaml:"graph"`

	Engine      engine.Config      `yaml:"engine"`
	Dependency  dependency.Config  `yaml:"dependency"`
	BlastRadius blastradius.Config `yaml:"blast_radius"`
	SPOF        spof.Config        `yaml:"spof"`
	Risk        risk.Config        `yaml:"risk"`
	Timing      timing.Config      `yaml:"timing"`
	Cost        cost.Config        `yaml:"cost"`
	Trend       trend.Config       `yaml:"trend"`
	RootCause   rootcause.Config   `yaml:"root_cause"`

	Tracing tracing.Config `yaml:"tracing"`
	Logging LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Address         string        `yaml:"address" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
	// MaxBodyBytes caps POST bodies.
	MaxBodyBytes int64 `yaml:"max_body_bytes" validate:"gte=1"`
	MCPEnabled   bool  `yaml:"mcp_enabled"`
	// WatchConfig reloads analysis settings when the config file changes.
	WatchConfig bool `yaml:"watch_config"`
	// RateLimitRPS limits /v1 requests per second across all clients. 0 disables it.
	RateLimitRPS   float64 `yaml:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst int     `yaml:"rate_limit_burst" validate:"gte=0"`
}

// GraphConfig selects and configures the graph store.
type GraphConfig struct {
	Backend string `yaml:"backend" validate:"oneof=memory falkordb"`
	// Snapshot is the YAML file loaded by the memory backend.
	Snapshot string             `yaml:"snapshot"`
	FalkorDB graph.FalkorConfig `yaml:"falkordb"`
	Cache    graph.CacheConfig  `yaml:"cache"`
}

// LoggingConfig sets the default level and per-package overrides.
type LoggingConfig struct {
	Level    string            `yaml:"level" validate:"oneof=debug info warn error fatal DEBUG INFO WARN ERROR FATAL"`
	Packages map[string]string `yaml:"packages"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	settings := engine.DefaultSettings()
	return &Config{
		SchemaVersion: CurrentSchemaVersion,
		Server: ServerConfig{
			Address:         ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    4 << 20,
			MCPEnabled:      true,
		},
		Graph: GraphConfig{
			Backend:  BackendMemory,
			FalkorDB: graph.DefaultFalkorConfig(),
			Cache:    graph.DefaultCacheConfig(),
		},
		Engine:      settings.Engine,
		Dependency:  settings.Dependency,
		BlastRadius: settings.BlastRadius,
		SPOF:        settings.SPOF,
		Risk:        settings.Risk,
		Timing:      settings.Timing,
		Cost:        settings.Cost,
		Trend:       settings.Trend,
		RootCause:   settings.RootCause,
		Logging:     LoggingConfig{Level: "info"},
	}
}

// EngineSettings returns the analysis sections.
func (c *Config) EngineSettings() engine.Settings {
	return engine.Settings{
		Engine:      c.Engine,
		Dependency:  c.Dependency,
		BlastRadius: c.BlastRadius,
		SPOF:        c.SPOF,
		Risk:        c.Risk,
		Timing:      c.Timing,
		Cost:        c.Cost,
		Trend:       c.Trend,
		RootCause:   c.RootCause,
	}
}

// Validate runs the struct tag rules and then the semantic checks of every
// section.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return NewConfigError(fmt.Sprintf("invalid configuration: %v", err))
	}
	if c.Graph.Backend == BackendFalkorDB && c.Graph.FalkorDB.Host == "" {
		return NewConfigError("graph.falkordb.host must be set for the falkordb backend")
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return NewConfigError("tracing.endpoint must be set when tracing is enabled")
	}
	if err := c.EngineSettings().Validate(); err != nil {
		return NewConfigError(err.Error())
	}
	return nil
}

// ConfigError is a configuration problem.
type ConfigError struct {
	message string
}

// NewConfigError creates a new configuration error.
func NewConfigError(message string) *ConfigError {
	return &ConfigError{message: message}
}

// Error returns the error message.
func (e *ConfigError) Error() string {
	return e.message
}
