package scan

import (
	"context"
	"time"

	"github.com/okian/scout/internal/domain/classify"
	"github.com/okian/scout/internal/domain/player"
	"github.com/okian/scout/pkg/metrics"
)

// Annotation columns written back to datasets. They are appended after the
// source columns and overwritten in place on re-runs.
const (
	ColumnPredicted      = "predicted_value_eur"
	ColumnDifference     = "difference_eur"
	ColumnClassification = "ml_classification"
	ColumnTolerance      = "tolerance_used"
)

// AnnotationColumns lists the annotation columns in write order.
func AnnotationColumns() []string {
	return []string{ColumnPredicted, ColumnDifference, ColumnClassification, ColumnTolerance}
}

// Annotation is the scored state of one row. Predicted is nil when the row
// could not be scored; Difference is nil without a positive actual value.
type Annotation struct {
	Predicted  *float64
	Difference *float64
	Label      classify.Label
	Tolerance  float64
	Err        error
}

// AnnotateSummary counts outcomes of Annotate.
type AnnotateSummary struct {
	Rows     int
	Failed   int
	Fallback int
	Labels   map[classify.Label]int
}

// Annotate scores and classifies every row. Rows without a positive actual
// value are NO_COMPARISON so no division by zero reaches the output.
func (e *Engine) Annotate(ctx context.Context, rows []player.Record, tolerance float64) ([]Annotation, AnnotateSummary, error) {
	start := time.Now()
	tol := classify.NormalizeTolerance(tolerance)
	scored, st, err := e.ScoreAll(ctx, rows)
	if err != nil {
		return nil, AnnotateSummary{}, err
	}

	sum := AnnotateSummary{Rows: len(rows), Failed: st.Failed, Fallback: st.FallbackRows, Labels: map[classify.Label]int{}}
	out := make([]Annotation, len(rows))
	for i := range rows {
		if scored[i].Err != nil {
			out[i] = Annotation{Label: classify.NoComparison, Tolerance: tol, Err: scored[i].Err}
			continue
		}
		pred := scored[i].Predicted
		var actual *float64
		if v, ok := player.MarketValueField().Get(&rows[i]); ok && v > 0 {
			actual = &v
		}
		res := classify.Classify(pred, actual, tol)
		out[i] = Annotation{Predicted: &pred, Difference: res.Difference, Label: res.Label, Tolerance: tol}
		sum.Labels[res.Label]++
	}
	metrics.RecordScan("annotate", len(rows), float64(time.Since(start).Microseconds())/1000)
	return out, sum, nil
}
