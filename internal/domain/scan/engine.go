// Package scan applies alignment, prediction and classification over whole
// tables and ranks the results.
package scan

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/okian/scout/internal/domain/features"
	"github.com/okian/scout/internal/domain/player"
	"github.com/okian/scout/internal/domain/valuation"
	"github.com/okian/scout/pkg/logger"
	"github.com/okian/scout/pkg/metrics"
)

const (
	defaultChunkSize = 512
)

// Scored is the prediction for one input row. Err is set when the row could
// not be scored even on its own.
type Scored struct {
	Predicted float64
	Err       error
}

// Stats describes one ScoreAll run.
type Stats struct {
	Rows           int
	Failed         int
	FallbackChunks int
	FallbackRows   int
}

// Engine scores tables in chunks. It holds no per-run state.
type Engine struct {
	aligner   *features.Aligner
	predictor *valuation.Predictor
	chunkSize int
	workers   int
	log       logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithChunkSize sets rows per model call.
func WithChunkSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.chunkSize = n
		}
	}
}

// WithWorkers caps concurrently scored chunks.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEngine creates an Engine.
func NewEngine(a *features.Aligner, p *valuation.Predictor, opts ...Option) *Engine {
	e := &Engine{
		aligner:   a,
		predictor: p,
		chunkSize: defaultChunkSize,
		workers:   runtime.NumCPU(),
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ScoreAll predicts every row. Each chunk is aligned and predicted in one
// call; a chunk that fails is re-scored row by row so one bad row only costs
// itself. The returned slice is index-aligned with rows.
func (e *Engine) ScoreAll(ctx context.Context, rows []player.Record) ([]Scored, Stats, error) {
	out := make([]Scored, len(rows))
	type chunkStat struct{ fallback, failed int }
	nChunks := (len(rows) + e.chunkSize - 1) / e.chunkSize
	stats := make([]chunkStat, nChunks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for c := 0; c < nChunks; c++ {
		lo := c * e.chunkSize
		hi := min(lo+e.chunkSize, len(rows))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if e.scoreChunk(rows[lo:hi], out[lo:hi]) {
				return nil
			}
			stats[c].fallback = hi - lo
			stats[c].failed = e.scoreRows(gctx, rows[lo:hi], out[lo:hi])
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{}, err
	}

	st := Stats{Rows: len(rows)}
	for _, s := range stats {
		if s.fallback > 0 {
			st.FallbackChunks++
			st.FallbackRows += s.fallback
			st.Failed += s.failed
			metrics.RecordScanFallback(s.fallback)
		}
	}
	if st.FallbackChunks > 0 {
		e.log.Warn(ctx, "scan fell back to row-by-row scoring",
			logger.Int("chunks", st.FallbackChunks),
			logger.Int("rows", st.FallbackRows),
			logger.Int("failed", st.Failed),
		)
	}
	return out, st, nil
}

// scoreChunk reports alignment warnings only when the whole chunk scores;
// otherwise scoreRows reports them once per row.
func (e *Engine) scoreChunk(rows []player.Record, out []Scored) bool {
	vecs, _, report, err := e.aligner.AlignBatchDeferred(rows)
	if err != nil {
		return false
	}
	preds, err := e.predictor.PredictBatch(features.Matrix(vecs))
	if err != nil {
		return false
	}
	report()
	for i, p := range preds {
		out[i] = Scored{Predicted: p}
	}
	return true
}

func (e *Engine) scoreRows(ctx context.Context, rows []player.Record, out []Scored) int {
	failed := 0
	for i := range rows {
		if ctx.Err() != nil {
			return failed
		}
		v, _, err := e.aligner.Align(rows[i])
		if err == nil {
			var p float64
			if p, err = e.predictor.Predict(v); err == nil {
				out[i] = Scored{Predicted: p}
				continue
			}
		}
		out[i] = Scored{Err: err}
		failed++
	}
	return failed
}
