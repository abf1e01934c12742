package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-version"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// SupportedSchemas is the range of schema_version values this build reads.
const SupportedSchemas = ">= 1.0, < 2.0"

var (
	validate          = validator.New()
	supportedVersions = version.MustConstraints(version.NewConstraint(SupportedSchemas))
)

// Load reads the YAML file at path over the defaults and validates the
// result. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	// logging.packages keys contain dots.
	k := koanf.New("/")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config from %q: %w", path, err)
	}
	if err := checkSchema(k.String("schema_version")); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("failed to parse config from %q: %w", path, err)
	}
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = CurrentSchemaVersion
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed for %q: %w", path, err)
	}
	return cfg, nil
}

func checkSchema(raw string) error {
	if raw == "" {
		return nil
	}
	v, err := version.NewVersion(raw)
	if err != nil {
		return NewConfigError(fmt.Sprintf("invalid schema_version %q: %v", raw, err))
	}
	if !supportedVersions.Check(v) {
		return NewConfigError(fmt.Sprintf("unsupported schema_version %q (supported: %s)", raw, SupportedSchemas))
	}
	return nil
}
