package config

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "SCOUT_"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if SCOUT_CONFIG is set
//  3. env (prefix SCOUT_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// SCOUT_SCAN_SAMPLE_SIZE -> scan_sample_size; underscores are kept so keys
	// match the flat koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.ArtifactsDir == "":
		return fmt.Errorf("%w: artifacts_dir must not be empty", ErrInvalidConfig)
	case math.IsNaN(c.Tolerance) || c.Tolerance < 0 || c.Tolerance > 1:
		return fmt.Errorf("%w: tolerance must be within [0,1], got %v", ErrInvalidConfig, c.Tolerance)
	case c.ScanSampleSize < 0:
		return fmt.Errorf("%w: scan_sample_size must not be negative", ErrInvalidConfig)
	case c.ScanChunkSize <= 0:
		return fmt.Errorf("%w: scan_chunk_size must be positive", ErrInvalidConfig)
	case c.ScanWorkers <= 0:
		return fmt.Errorf("%w: scan_workers must be positive", ErrInvalidConfig)
	case c.MaxTopN <= 0 || c.DefaultTopN <= 0 || c.DefaultTopN > c.MaxTopN:
		return fmt.Errorf("%w: need 0 < default_top_n <= max_top_n", ErrInvalidConfig)
	case c.MinActualValue < 0:
		return fmt.Errorf("%w: min_actual_value must not be negative", ErrInvalidConfig)
	}
	return nil
}
