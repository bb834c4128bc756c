package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/scout/internal/adapters/dataset"
	"github.com/okian/scout/internal/domain/dedupe"
	"github.com/okian/scout/internal/domain/player"
	"github.com/okian/scout/internal/domain/scan"
	"github.com/okian/scout/pkg/logger"
)

// RankingQuery is a request for the most under- or overvalued players. Nil
// and zero fields fall back to the service defaults.
type RankingQuery struct {
	TopN           int
	MinActualValue *float64
	Tolerance      *float64
	// MinPercent drops gaps below this percentage of the prediction.
	MinPercent float64
	Filters    scan.Filters
}

// RegenerateReport describes one dataset regeneration run.
type RegenerateReport struct {
	RunID     string         `json:"run_id"`
	Path      string         `json:"path"`
	Backup    string         `json:"backup"`
	Rows      int            `json:"rows"`
	Failed    int            `json:"failed"`
	Fallback  int            `json:"fallback_rows"`
	Labels    map[string]int `json:"labels"`
	Tolerance float64        `json:"tolerance"`
	Elapsed   time.Duration  `json:"elapsed"`
}

// TopUndervalued ranks players whose prediction exceeds their market value.
func (s *Service) TopUndervalued(ctx context.Context, q RankingQuery) (*scan.Ranking, error) {
	return s.top(ctx, scan.MostUndervalued, q)
}

// TopOvervalued ranks players whose market value exceeds their prediction.
func (s *Service) TopOvervalued(ctx context.Context, q RankingQuery) (*scan.Ranking, error) {
	return s.top(ctx, scan.MostOvervalued, q)
}

func (s *Service) top(ctx context.Context, dir scan.Direction, q RankingQuery) (*scan.Ranking, error) {
	if q.TopN < 0 {
		return nil, fmt.Errorf("%w: top must be positive", ErrInvalidInput)
	}
	if math.IsNaN(q.MinPercent) || q.MinPercent < 0 || q.MinPercent > 100 {
		return nil, fmt.Errorf("%w: min_pct must be within 0 and 100", ErrInvalidInput)
	}
	minActual := s.minActualValue
	if q.MinActualValue != nil {
		if *q.MinActualValue < 0 || math.IsNaN(*q.MinActualValue) {
			return nil, fmt.Errorf("%w: min_value must not be negative", ErrInvalidInput)
		}
		minActual = *q.MinActualValue
	}

	inf, err := s.context(ctx)
	if err != nil {
		return nil, err
	}
	ref, err := s.reference(ctx)
	if err != nil {
		return nil, err
	}

	opts := scan.Options{
		Direction:      dir,
		TopN:           q.TopN,
		MinActualValue: minActual,
		MinRelative:    q.MinPercent / 100,
		Tolerance:      s.toleranceOr(q.Tolerance),
		Filters:        q.Filters,
		SampleSize:     s.sampleSize,
		Seed:           s.seed,
	}
	if opts.TopN == 0 {
		opts.TopN = 20
	}

	s.scans.Add(1)
	rank, err := inf.engine.Top(ctx, ref.records, opts)
	if err != nil {
		return nil, err
	}
	// Rows with unparseable cells never reached the engine.
	for _, e := range ref.errs {
		if e != nil {
			rank.Excluded[scan.ExclusionFailed]++
		}
	}
	if ref.duplicates > 0 {
		rank.Excluded[scan.ExclusionDuplicate] += ref.duplicates
	}
	return rank, nil
}

// Regenerate scores every row of the CSV at path and writes the annotation
// columns back, keeping a timestamped backup of the previous file.
func (s *Service) Regenerate(ctx context.Context, path string, tolerance *float64) (*RegenerateReport, error) {
	if path == "" {
		path = s.refPath
	}
	if path == "" {
		return nil, ErrNoDataset
	}
	inf, err := s.context(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	runID := uuid.NewString()
	log := s.logger.With(logger.String("run_id", runID), logger.String("path", path))
	log.Info(ctx, "regenerating dataset")

	tbl, err := dataset.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	recs, parseErrs := tbl.Records()
	tol := s.toleranceOr(tolerance)

	anns, sum, err := inf.engine.Annotate(ctx, recs, tol)
	if err != nil {
		return nil, err
	}

	cols := make(map[string][]string, 4)
	for _, c := range scan.AnnotationColumns() {
		cols[c] = make([]string, len(anns))
	}
	failed := 0
	labels := make(map[string]int, len(sum.Labels))
	for i, a := range anns {
		tolCell := strconv.FormatFloat(a.Tolerance, 'f', -1, 64)
		if parseErrs[i] != nil || a.Err != nil || a.Predicted == nil {
			failed++
			cols[scan.ColumnTolerance][i] = tolCell
			continue
		}
		cols[scan.ColumnPredicted][i] = money(*a.Predicted)
		if a.Difference != nil {
			cols[scan.ColumnDifference][i] = money(*a.Difference)
		}
		cols[scan.ColumnClassification][i] = string(a.Label)
		cols[scan.ColumnTolerance][i] = tolCell
		labels[string(a.Label)]++
	}
	for _, c := range scan.AnnotationColumns() {
		if err := tbl.SetColumn(c, cols[c]); err != nil {
			return nil, err
		}
	}

	backup, err := dataset.Rewrite(path, tbl, start)
	if err != nil {
		return nil, fmt.Errorf("rewrite dataset: %w", err)
	}
	if path == s.refPath {
		s.invalidateReference()
	}

	rep := &RegenerateReport{
		RunID:     runID,
		Path:      path,
		Backup:    backup,
		Rows:      len(recs),
		Failed:    failed,
		Fallback:  sum.Fallback,
		Labels:    labels,
		Tolerance: tol,
		Elapsed:   time.Since(start),
	}
	log.Info(ctx, "dataset regenerated",
		logger.String("backup", backup),
		logger.Int("rows", rep.Rows),
		logger.Int("failed", rep.Failed),
		logger.Duration("elapsed", rep.Elapsed),
	)
	return rep, nil
}

func money(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', 2, 64)
}

// reference reads the dataset once and keeps it for later scans.
func (s *Service) reference(ctx context.Context) (*reference, error) {
	s.refMu.Lock()
	defer s.refMu.Unlock()
	if s.ref != nil {
		return s.ref, nil
	}
	if s.refPath == "" {
		return nil, ErrNoDataset
	}
	tbl, err := dataset.Read(s.refPath)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	recs, errs := tbl.Records()
	kept, dup := dedupe.Filter(usable(recs, errs), seasonKey)
	s.ref = &reference{records: kept, errs: errs, duplicates: dup}
	s.logger.Info(ctx, "reference dataset loaded",
		logger.String("path", s.refPath),
		logger.Int("rows", len(recs)),
		logger.Int("duplicates", dup),
	)
	return s.ref, nil
}

func (s *Service) invalidateReference() {
	s.refMu.Lock()
	s.ref = nil
	s.refMu.Unlock()
}

// usable drops rows with unparseable cells.
func usable(recs []player.Record, errs []error) []player.Record {
	out := make([]player.Record, 0, len(recs))
	for i := range recs {
		if errs[i] == nil {
			out = append(out, recs[i])
		}
	}
	return out
}

// seasonKey identifies a player in one data year; the first row wins.
func seasonKey(r player.Record) string {
	year := ""
	if r.DataYear != nil {
		year = strconv.FormatFloat(*r.DataYear, 'f', -1, 64)
	}
	return dedupe.Key(r.ID, year)
}
