// Package artifacts loads and saves the persisted model, encoder, club table
// and schema layout as one all-or-nothing bundle.
package artifacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/okian/scout/internal/domain/schema"
	"github.com/okian/scout/internal/domain/valuation"
	"github.com/okian/scout/pkg/logger"
	"github.com/okian/scout/pkg/metrics"
)

// Artifact file names inside the artifacts directory.
const (
	ModelFile   = "model.json"
	EncoderFile = "encoder.json"
	ClubFile    = "club_encoding.json"
	SchemaFile  = "schema.yaml"
)

// Bundle is a fully loaded, mutually consistent artifact set. It is never
// modified after Load returns it.
type Bundle struct {
	Schema    *schema.Schema
	Model     valuation.Regressor
	Predictor *valuation.Predictor
	Dir       string
	LoadedAt  time.Time
}

// Registry loads the bundle on first use and serves it from memory afterwards.
type Registry struct {
	dir    string
	log    logger.Logger
	flight singleflight.Group

	mu     sync.RWMutex
	bundle *Bundle
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRegistry creates a registry reading from dir.
func NewRegistry(dir string, opts ...Option) *Registry {
	r := &Registry{dir: dir, log: logger.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dir returns the artifacts directory.
func (r *Registry) Dir() string { return r.dir }

// Ready reports whether a bundle is loaded.
func (r *Registry) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bundle != nil
}

// Load returns the cached bundle, loading it on first call. Concurrent first
// calls share one load. A failed load caches nothing, so the next call retries.
func (r *Registry) Load(ctx context.Context) (*Bundle, error) {
	r.mu.RLock()
	b := r.bundle
	r.mu.RUnlock()
	if b != nil {
		return b, nil
	}

	res, err, _ := r.flight.Do(r.dir, func() (any, error) {
		r.mu.RLock()
		cached := r.bundle
		r.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		start := time.Now()
		b, err := ReadBundle(r.dir)
		if err != nil {
			metrics.RecordArtifactFailure(failureReason(err))
			r.log.Error(ctx, "artifact load failed", logger.String("dir", r.dir), logger.Error(err))
			return nil, err
		}

		r.mu.Lock()
		r.bundle = b
		r.mu.Unlock()

		metrics.RecordArtifactLoad()
		r.log.Info(ctx, "artifacts loaded",
			logger.String("dir", r.dir),
			logger.Int("width", b.Schema.Width()),
			logger.String("transform", b.Predictor.Transform()),
			logger.Duration("elapsed", time.Since(start)),
		)
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*Bundle), nil
}

func failureReason(err error) string {
	var mm *valuation.FeatureMismatchError
	switch {
	case errors.Is(err, ErrArtifactNotFound):
		return "not_found"
	case errors.As(err, &mm):
		return "feature_mismatch"
	default:
		return "corrupt"
	}
}

// ReadBundle reads and cross-checks every artifact in dir.
func ReadBundle(dir string) (*Bundle, error) {
	var layout schema.Layout
	if err := readFile(dir, SchemaFile, func(b []byte) error { return yaml.Unmarshal(b, &layout) }); err != nil {
		return nil, err
	}
	var enc schema.Encoder
	if err := readFile(dir, EncoderFile, func(b []byte) error { return json.Unmarshal(b, &enc) }); err != nil {
		return nil, err
	}
	var club schema.ClubEncoding
	if err := readFile(dir, ClubFile, func(b []byte) error { return json.Unmarshal(b, &club) }); err != nil {
		return nil, err
	}
	var doc valuation.Document
	if err := readFile(dir, ModelFile, func(b []byte) error { return json.Unmarshal(b, &doc) }); err != nil {
		return nil, err
	}

	s, err := schema.New(layout, &enc, &club)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArtifactCorrupt, err)
	}
	model, err := valuation.Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrArtifactCorrupt, ModelFile, err)
	}
	if err := checkColumns(s.Columns(), doc.FeatureNames); err != nil {
		return nil, err
	}
	pred, err := valuation.NewPredictor(model, s.Width(), doc.TargetTransform)
	switch {
	case errors.Is(err, valuation.ErrFeatureMismatch):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("%w: %s: %w", ErrArtifactCorrupt, ModelFile, err)
	}
	return &Bundle{Schema: s, Model: model, Predictor: pred, Dir: dir, LoadedAt: time.Now()}, nil
}

// checkColumns requires the model's recorded feature names, when present, to
// match the schema columns one for one.
func checkColumns(want, got []string) error {
	if len(got) == 0 {
		return nil
	}
	if len(got) != len(want) {
		return &valuation.FeatureMismatchError{Expected: len(want), Got: len(got), Row: -1}
	}
	for i := range want {
		if want[i] != got[i] {
			return &valuation.FeatureMismatchError{
				Expected: len(want), Got: len(got), Row: -1,
				Index: i, Column: want[i], Found: got[i],
			}
		}
	}
	return nil
}

func readFile(dir, name string, decode func([]byte) error) error {
	path := filepath.Join(dir, name)
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &NotFoundError{Artifact: name, Path: path}
		}
		return fmt.Errorf("%w: %s: %w", ErrArtifactCorrupt, name, err)
	}
	if err := decode(raw); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrArtifactCorrupt, name, err)
	}
	return nil
}
