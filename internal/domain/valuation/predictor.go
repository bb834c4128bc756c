package valuation

import (
	"fmt"
	"math"
)

// Forward maps euros into the log target space the model was trained on.
func Forward(v float64) float64 { return math.Log1p(v) }

// Inverse maps model output back to euros.
func Inverse(v float64) float64 { return math.Expm1(v) }

// Predictor checks widths, runs the model and undoes the target transform.
// It is safe for concurrent use when the Regressor is.
type Predictor struct {
	model     Regressor
	width     int
	transform string
}

// NewPredictor binds a model to the schema width it must accept.
func NewPredictor(model Regressor, width int, transform string) (*Predictor, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: nil model", ErrInvalidModel)
	}
	if model.NumFeatures() != width {
		return nil, &FeatureMismatchError{Expected: width, Got: model.NumFeatures(), Row: -1}
	}
	switch transform {
	case "":
		transform = TransformLog1p
	case TransformLog1p, TransformNone:
	default:
		return nil, fmt.Errorf("%w: unknown target transform %q", ErrInvalidModel, transform)
	}
	return &Predictor{model: model, width: width, transform: transform}, nil
}

// Width is the number of features every vector must carry.
func (p *Predictor) Width() int { return p.width }

// Transform reports the configured target transform.
func (p *Predictor) Transform() string { return p.transform }

// Predict returns the predicted value in euros for one vector.
func (p *Predictor) Predict(vec []float64) (float64, error) {
	out, err := p.PredictBatch([][]float64{vec})
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

// PredictBatch scores all vectors with one model call.
func (p *Predictor) PredictBatch(vecs [][]float64) ([]float64, error) {
	for i, v := range vecs {
		if len(v) != p.width {
			return nil, &FeatureMismatchError{Expected: p.width, Got: len(v), Row: i}
		}
	}
	if len(vecs) == 0 {
		return []float64{}, nil
	}
	raw, err := p.model.Predict(vecs)
	if err != nil {
		return nil, err
	}
	if len(raw) != len(vecs) {
		return nil, fmt.Errorf("%w: %d outputs for %d rows", ErrInvalidModel, len(raw), len(vecs))
	}
	out := make([]float64, len(raw))
	for i, y := range raw {
		if p.transform == TransformLog1p {
			y = Inverse(y)
		}
		if math.IsNaN(y) || math.IsInf(y, 0) {
			return nil, fmt.Errorf("%w: row %d", ErrNonFinite, i)
		}
		out[i] = y
	}
	return out, nil
}
