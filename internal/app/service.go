// Package service provides the inference context that implements the
// dependencies required by the HTTP API and the CLI.
package service

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/okian/scout/internal/adapters/artifacts"
	"github.com/okian/scout/internal/domain/classify"
	"github.com/okian/scout/internal/domain/features"
	"github.com/okian/scout/internal/domain/player"
	"github.com/okian/scout/internal/domain/scan"
	"github.com/okian/scout/pkg/logger"
	"github.com/okian/scout/pkg/metrics"
)

// inference is everything derived from one loaded artifact bundle.
type inference struct {
	bundle  *artifacts.Bundle
	aligner *features.Aligner
	engine  *scan.Engine
}

// reference is the cached reference dataset used by the ranking scans.
type reference struct {
	records    []player.Record
	errs       []error
	duplicates int
}

// Service owns the loaded artifacts. Nothing in it changes after Initialize
// except the reference dataset cache and counters.
type Service struct {
	mu  sync.RWMutex
	inf *inference

	registry     *artifacts.Registry
	artifactsDir string

	refMu   sync.Mutex
	ref     *reference
	refPath string

	// Configuration
	tolerance      float64
	sampleSize     int
	seed           int64
	chunkSize      int
	workers        int
	minActualValue float64

	predictions atomic.Int64
	scans       atomic.Int64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithArtifactsDir sets where model and schema artifacts are read from.
func WithArtifactsDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.artifactsDir = dir
		}
	}
}

// WithRegistry injects a prepared artifact registry.
func WithRegistry(r *artifacts.Registry) Option {
	return func(s *Service) {
		if r != nil {
			s.registry = r
		}
	}
}

// WithDatasetPath sets the reference dataset scanned for rankings.
func WithDatasetPath(path string) Option {
	return func(s *Service) {
		s.refPath = path
	}
}

// WithTolerance sets the default FAIR band.
func WithTolerance(tol float64) Option {
	return func(s *Service) {
		s.tolerance = classify.NormalizeTolerance(tol)
	}
}

// WithScanSample sets the interactive sample size and its seed.
func WithScanSample(size int, seed int64) Option {
	return func(s *Service) {
		if size >= 0 {
			s.sampleSize = size
		}
		s.seed = seed
	}
}

// WithScanChunks sets rows per model call and concurrently scored chunks.
func WithScanChunks(chunkSize, workers int) Option {
	return func(s *Service) {
		if chunkSize > 0 {
			s.chunkSize = chunkSize
		}
		if workers > 0 {
			s.workers = workers
		}
	}
}

// WithMinActualValue sets the default ranking floor in euros.
func WithMinActualValue(v float64) Option {
	return func(s *Service) {
		if v >= 0 {
			s.minActualValue = v
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Artifacts are not read until Initialize or the
// first call that needs them.
func New(opts ...Option) *Service {
	s := &Service{
		artifactsDir:   "./artifacts",
		tolerance:      classify.DefaultTolerance,
		sampleSize:     2000,
		seed:           42,
		chunkSize:      512,
		workers:        runtime.NumCPU(),
		minActualValue: 500_000,
		logger:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = artifacts.NewRegistry(s.artifactsDir, artifacts.WithLogger(s.logger.Named("artifacts")))
	}
	return s
}

// Initialize loads the artifacts once. Later calls are no-ops; a failed call
// may be retried.
func (s *Service) Initialize(ctx context.Context) error {
	_, err := s.context(ctx)
	return err
}

// Ready reports whether artifacts are loaded.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inf != nil
}

// Tolerance returns the configured default tolerance.
func (s *Service) Tolerance() float64 { return s.tolerance }

func (s *Service) context(ctx context.Context) (*inference, error) {
	s.mu.RLock()
	inf := s.inf
	s.mu.RUnlock()
	if inf != nil {
		return inf, nil
	}

	b, err := s.registry.Load(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inf != nil {
		return s.inf, nil
	}
	aligner, err := features.NewAligner(b.Schema, features.WithObserver(&alignObserver{log: s.logger}))
	if err != nil {
		return nil, err
	}
	s.inf = &inference{
		bundle:  b,
		aligner: aligner,
		engine: scan.NewEngine(aligner, b.Predictor,
			scan.WithChunkSize(s.chunkSize),
			scan.WithWorkers(s.workers),
			scan.WithLogger(s.logger.Named("scan")),
		),
	}
	s.logger.Info(ctx, "inference context ready",
		logger.Int("columns", b.Schema.Width()),
		logger.Float64("tolerance", s.tolerance),
	)
	return s.inf, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	inf := s.inf
	s.mu.RUnlock()

	stats := map[string]any{
		"ready":            inf != nil,
		"artifacts_dir":    s.registry.Dir(),
		"tolerance":        s.tolerance,
		"scan_sample_size": s.sampleSize,
		"predictions":      s.predictions.Load(),
		"scans":            s.scans.Load(),
	}
	if inf != nil {
		stats["feature_count"] = inf.bundle.Schema.Width()
		stats["target_transform"] = inf.bundle.Predictor.Transform()
		stats["loaded_at"] = inf.bundle.LoadedAt
	}

	s.refMu.Lock()
	if s.ref != nil {
		stats["dataset_rows"] = len(s.ref.records)
	}
	s.refMu.Unlock()
	return stats
}

// alignObserver turns alignment warnings into metrics and logs.
type alignObserver struct {
	log logger.Logger
}

func (o *alignObserver) UnknownCategory(u features.UnknownCategory) {
	metrics.RecordUnknownCategory(u.Column)
	o.log.Warn(context.Background(), "unknown category encoded as zeros",
		logger.String("column", u.Column),
		logger.String("value", u.Value),
	)
}

func (o *alignObserver) Imputed(n int) { metrics.RecordImputed(n) }

func (o *alignObserver) ClubFallback() { metrics.RecordClubFallback() }
