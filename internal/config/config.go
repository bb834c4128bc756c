// Package config defines service configuration structures and loading hooks.
package config

import (
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// ArtifactsDir holds model.json, encoder.json, club_encoding.json and schema.yaml.
	ArtifactsDir string `koanf:"artifacts_dir"`

	// DatasetPath is the reference CSV used by the undervalued/overvalued scans.
	DatasetPath string `koanf:"dataset_path"`

	// Tolerance is the relative band inside which a valuation is FAIR.
	Tolerance float64 `koanf:"tolerance"`

	// ScanSampleSize bounds interactive scans; 0 scans the full table.
	ScanSampleSize int `koanf:"scan_sample_size"`

	// ScanSeed seeds the deterministic sample.
	ScanSeed int64 `koanf:"scan_seed"`

	// ScanChunkSize is the number of rows scored per model call.
	ScanChunkSize int `koanf:"scan_chunk_size"`

	// ScanWorkers caps concurrently scored chunks.
	ScanWorkers int `koanf:"scan_workers"`

	// DefaultTopN and MaxTopN bound the ranking endpoints' ?top parameter.
	DefaultTopN int `koanf:"default_top_n"`
	MaxTopN     int `koanf:"max_top_n"`

	// MinActualValue excludes cheap players from rankings, in EUR.
	MinActualValue float64 `koanf:"min_actual_value"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "text",
		Addr:           ":9080",
		ArtifactsDir:   "./artifacts",
		DatasetPath:    "./data/players.csv",
		Tolerance:      0.08,
		ScanSampleSize: 2000,
		ScanSeed:       42,
		ScanChunkSize:  512,
		ScanWorkers:    runtime.NumCPU(),
		DefaultTopN:    20,
		MaxTopN:        100,
		MinActualValue: 500_000,
	}
}
