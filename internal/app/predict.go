package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/okian/scout/internal/domain/classify"
	"github.com/okian/scout/internal/domain/features"
	"github.com/okian/scout/internal/domain/player"
	"github.com/okian/scout/internal/domain/types"
	"github.com/okian/scout/internal/domain/valuation"
	"github.com/okian/scout/pkg/logger"
	"github.com/okian/scout/pkg/metrics"
)

// keyFields is the number of inputs a fully described request carries.
const keyFields = 20

// Confidence grades how much of a request was supplied rather than imputed.
const (
	ConfidenceHigh   = "High"
	ConfidenceMedium = "Medium"
	ConfidenceLow    = "Low"
)

// Value categories of a predicted amount.
const (
	CategoryVeryHigh = "Very High (Top 1%)"
	CategoryHigh     = "High (Top 10%)"
	CategoryMedium   = "Medium (Top 50%)"
	CategoryLow      = "Low"
)

// Compare orders.
const (
	OrderGapDesc  = "gap_desc"
	OrderPredDesc = "pred_desc"
)

// PredictionOutcome is one scored request.
type PredictionOutcome struct {
	Value         float64  `json:"predicted_value_eur"`
	Formatted     string   `json:"predicted_value_formatted"`
	Confidence    string   `json:"confidence"`
	Percentile    *int     `json:"percentile,omitempty"`
	ValueCategory string   `json:"value_category"`
	FieldsUsed    int      `json:"features_supplied"`
	FieldsImputed int      `json:"features_imputed"`
	TotalFields   int      `json:"features_total"`
	Unknown       []string `json:"unknown_categories,omitempty"`
	ClubFallback  bool     `json:"club_fallback"`
}

// Evaluation is a prediction classified against an observed value.
type Evaluation struct {
	types.Prediction
	Formatted           string `json:"predicted_value_formatted"`
	DifferenceFormatted string `json:"difference_formatted,omitempty"`
	Confidence          string `json:"confidence"`
	ValueCategory       string `json:"value_category"`
	Percentile          *int   `json:"percentile,omitempty"`
}

// CompareItem is one player of a comparison.
type CompareItem struct {
	Record player.Record
	Actual *float64
}

// ComparedPlayer is a player's result inside a comparison.
type ComparedPlayer struct {
	Rank  int    `json:"rank,omitempty"`
	Index int    `json:"index"`
	Name  string `json:"name"`
	types.Prediction
}

// Comparison lists every player in input order and ranks those with an
// observed value.
type Comparison struct {
	Order   string           `json:"order"`
	Players []ComparedPlayer `json:"players"`
	Ranking []ComparedPlayer `json:"ranking"`
}

// ValueSummary is the two-way verdict with display strings.
type ValueSummary struct {
	classify.SummaryResult
	PredictedFormatted  string `json:"predicted_formatted"`
	ActualFormatted     string `json:"actual_formatted"`
	DifferenceFormatted string `json:"difference_formatted"`
}

// ConfidenceOf grades supplied out of keyFields.
func ConfidenceOf(supplied int) string {
	pct := float64(supplied) / keyFields
	switch {
	case pct >= 0.8:
		return ConfidenceHigh
	case pct >= 0.5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// ValueCategoryOf buckets a predicted value in euros.
func ValueCategoryOf(v float64) string {
	switch {
	case v >= 50_000_000:
		return CategoryVeryHigh
	case v >= 10_000_000:
		return CategoryHigh
	case v >= 1_000_000:
		return CategoryMedium
	default:
		return CategoryLow
	}
}

// Predict scores one record.
func (s *Service) Predict(ctx context.Context, rec player.Record) (*PredictionOutcome, error) {
	out, err := s.PredictBatch(ctx, []player.Record{rec})
	if err != nil {
		var rowErr *features.RowError
		if errors.As(err, &rowErr) {
			return nil, rowErr.Err
		}
		return nil, err
	}
	return &out[0], nil
}

// PredictBatch scores records with a single model call. Any invalid record
// fails the whole batch with a *features.RowError naming it.
func (s *Service) PredictBatch(ctx context.Context, recs []player.Record) ([]PredictionOutcome, error) {
	inf, err := s.context(ctx)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: no players", ErrInvalidInput)
	}
	start := time.Now()
	vecs, provs, err := inf.aligner.AlignBatch(recs)
	if err != nil {
		return nil, err
	}
	preds, err := inf.bundle.Predictor.PredictBatch(features.Matrix(vecs))
	if err != nil {
		var mismatch *valuation.FeatureMismatchError
		if errors.As(err, &mismatch) {
			metrics.RecordFeatureMismatch()
			s.logger.Error(ctx, "feature vector width does not match model", logger.Error(err))
		}
		return nil, err
	}

	total := len(inf.bundle.Schema.Numeric()) + len(inf.bundle.Schema.Categorical())
	out := make([]PredictionOutcome, len(recs))
	for i, v := range preds {
		out[i] = s.outcome(inf, &recs[i], v, provs[i], total)
	}

	mode := "single"
	if len(recs) > 1 {
		mode = "batch"
	}
	elapsed := time.Since(start)
	s.predictions.Add(int64(len(recs)))
	metrics.RecordPrediction(mode, len(recs), float64(elapsed.Microseconds())/1000)
	s.logger.Debug(ctx, "prediction served",
		logger.String("mode", mode),
		logger.Int("rows", len(recs)),
		logger.Duration("elapsed", elapsed),
	)
	return out, nil
}

func (s *Service) outcome(inf *inference, rec *player.Record, v float64, prov features.Provenance, total int) PredictionOutcome {
	supplied := len(prov.Supplied)
	if _, ok := player.ClubField().Get(rec); ok {
		supplied++
	}
	o := PredictionOutcome{
		Value:         v,
		Formatted:     types.FormatEUR(v),
		Confidence:    ConfidenceOf(supplied),
		ValueCategory: ValueCategoryOf(v),
		FieldsUsed:    supplied,
		FieldsImputed: len(prov.Imputed),
		TotalFields:   total,
		Unknown:       prov.Unknown,
		ClubFallback:  prov.ClubFallback,
	}
	if p, ok := inf.bundle.Schema.Percentile(v); ok {
		pct := int(math.Floor(p))
		o.Percentile = &pct
	}
	return o
}

// Evaluate scores rec and classifies it against actual. A nil actual falls
// back to the record's own market value; a nil tolerance uses the default.
func (s *Service) Evaluate(ctx context.Context, rec player.Record, actual, tolerance *float64) (*Evaluation, error) {
	o, err := s.Predict(ctx, rec)
	if err != nil {
		return nil, err
	}
	if actual == nil {
		if v, ok := player.MarketValueField().Get(&rec); ok {
			actual = &v
		}
	}
	if actual != nil && *actual <= 0 {
		actual = nil
	}
	res := classify.Classify(o.Value, actual, s.toleranceOr(tolerance))
	metrics.RecordClassification(string(res.Label))

	ev := &Evaluation{
		Prediction:    prediction(o.Value, actual, res),
		Formatted:     o.Formatted,
		Confidence:    o.Confidence,
		ValueCategory: o.ValueCategory,
		Percentile:    o.Percentile,
	}
	if res.Difference != nil {
		ev.DifferenceFormatted = types.FormatSignedEUR(*res.Difference)
	}
	return ev, nil
}

// Compare scores two to five players in one model call. Players without an
// observed value are listed but not ranked.
func (s *Service) Compare(ctx context.Context, items []CompareItem, order string, tolerance *float64) (*Comparison, error) {
	if len(items) < 2 || len(items) > 5 {
		return nil, fmt.Errorf("%w: compare takes 2 to 5 players, got %d", ErrInvalidInput, len(items))
	}
	if order == "" {
		order = OrderGapDesc
	}
	if order != OrderGapDesc && order != OrderPredDesc {
		return nil, fmt.Errorf("%w: unknown order %q", ErrInvalidInput, order)
	}

	recs := make([]player.Record, len(items))
	for i := range items {
		recs[i] = items[i].Record
	}
	outs, err := s.PredictBatch(ctx, recs)
	if err != nil {
		return nil, err
	}

	tol := s.toleranceOr(tolerance)
	cmp := &Comparison{Order: order, Players: make([]ComparedPlayer, len(items))}
	for i, it := range items {
		actual := it.Actual
		if actual == nil {
			if v, ok := player.MarketValueField().Get(&recs[i]); ok {
				actual = &v
			}
		}
		if actual != nil && *actual <= 0 {
			actual = nil
		}
		res := classify.Classify(outs[i].Value, actual, tol)
		cmp.Players[i] = ComparedPlayer{
			Index:      i,
			Name:       recs[i].Label(),
			Prediction: prediction(outs[i].Value, actual, res),
		}
		if actual != nil {
			cmp.Ranking = append(cmp.Ranking, cmp.Players[i])
		}
	}

	sort.SliceStable(cmp.Ranking, func(i, j int) bool {
		a, b := cmp.Ranking[i], cmp.Ranking[j]
		if order == OrderPredDesc {
			return a.PredictedValue > b.PredictedValue
		}
		return *a.Difference > *b.Difference
	})
	for i := range cmp.Ranking {
		cmp.Ranking[i].Rank = i + 1
	}
	if cmp.Ranking == nil {
		cmp.Ranking = []ComparedPlayer{}
	}
	return cmp, nil
}

// Summarize scores rec and states whether actual is an opportunity.
func (s *Service) Summarize(ctx context.Context, rec player.Record, actual float64) (*ValueSummary, error) {
	if math.IsNaN(actual) || math.IsInf(actual, 0) || actual < 0 {
		return nil, fmt.Errorf("%w: actual value must be a non-negative number", ErrInvalidInput)
	}
	o, err := s.Predict(ctx, rec)
	if err != nil {
		return nil, err
	}
	sum := classify.Summary(o.Value, actual)
	return &ValueSummary{
		SummaryResult:       sum,
		PredictedFormatted:  types.FormatEUR(sum.PredictedValueEUR),
		ActualFormatted:     types.FormatEUR(sum.ActualValueEUR),
		DifferenceFormatted: types.FormatSignedEUR(sum.Difference),
	}, nil
}

func (s *Service) toleranceOr(t *float64) float64 {
	if t == nil {
		return s.tolerance
	}
	return classify.NormalizeTolerance(*t)
}

func prediction(pred float64, actual *float64, res classify.Result) types.Prediction {
	return types.Prediction{
		PredictedValue:     pred,
		ActualValue:        actual,
		Classification:     string(res.Label),
		Difference:         res.Difference,
		RelativeDifference: res.Relative,
		Tolerance:          res.Tolerance,
	}
}
