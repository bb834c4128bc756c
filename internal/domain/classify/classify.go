// Package classify compares a predicted market value with the observed one.
package classify

import (
	"math"
)

// Label is a valuation verdict.
type Label string

const (
	Undervalued  Label = "UNDERVALUED"
	Overvalued   Label = "OVERVALUED"
	Fair         Label = "FAIR"
	NoComparison Label = "NO_COMPARISON"
)

// DefaultTolerance is the relative band inside which a valuation is FAIR.
const DefaultTolerance = 0.08

// Result is the outcome of one comparison. Difference and Relative are nil
// when there was nothing to compare against.
type Result struct {
	Label      Label    `json:"classification"`
	Difference *float64 `json:"difference_eur,omitempty"`
	Relative   *float64 `json:"relative_difference,omitempty"`
	Tolerance  float64  `json:"tolerance"`
}

// NormalizeTolerance clamps negative and NaN tolerances to 0.
func NormalizeTolerance(tol float64) float64 {
	if math.IsNaN(tol) || tol < 0 {
		return 0
	}
	return tol
}

// Classify labels predicted against actual.
//
//	gap      = predicted - actual
//	relative = |gap| / max(|predicted|, 1)
//
// relative <= tolerance is FAIR, so equal values are always FAIR. Otherwise a
// positive gap is UNDERVALUED and a negative one OVERVALUED.
func Classify(predicted float64, actual *float64, tolerance float64) Result {
	tol := NormalizeTolerance(tolerance)
	if actual == nil {
		return Result{Label: NoComparison, Tolerance: tol}
	}
	gap := predicted - *actual
	rel := math.Abs(gap) / math.Max(math.Abs(predicted), 1)
	res := Result{Difference: &gap, Relative: &rel, Tolerance: tol}
	switch {
	case rel <= tol:
		res.Label = Fair
	case gap > 0:
		res.Label = Undervalued
	default:
		res.Label = Overvalued
	}
	return res
}

// Verdict is the two-way label used by the value summary.
type Verdict string

const (
	Opportunity Verdict = "OPPORTUNITY"
	Overpriced  Verdict = "OVERPRICED"
)

// SummaryResult describes how far the prediction sits from the asking price.
type SummaryResult struct {
	Verdict           Verdict `json:"verdict"`
	Difference        float64 `json:"difference_eur"`
	AbsDifference     float64 `json:"abs_difference_eur"`
	PercentOfActual   float64 `json:"percent_of_actual"`
	PredictedValueEUR float64 `json:"predicted_value_eur"`
	ActualValueEUR    float64 `json:"actual_value_eur"`
}

// Summary is OPPORTUNITY when predicted exceeds actual, otherwise OVERPRICED.
// The percentage is 0 when actual is not positive.
func Summary(predicted, actual float64) SummaryResult {
	gap := predicted - actual
	s := SummaryResult{
		Verdict:           Overpriced,
		Difference:        gap,
		AbsDifference:     math.Abs(gap),
		PredictedValueEUR: predicted,
		ActualValueEUR:    actual,
	}
	if gap > 0 {
		s.Verdict = Opportunity
	}
	if actual > 0 {
		s.PercentOfActual = math.Abs(gap) / actual * 100
	}
	return s
}
