// Package valuation runs the trained regression model over aligned vectors
// and maps its output back to euros.
package valuation

import (
	"encoding/json"
	"fmt"
	"math"
)

// Regressor predicts on already aligned rows, in the model's target space.
type Regressor interface {
	Predict(rows [][]float64) ([]float64, error)
	NumFeatures() int
}

// Model kinds understood by Decode.
const (
	KindForest = "forest"
	KindLinear = "linear"
)

// Target transforms.
const (
	TransformLog1p = "log1p"
	TransformNone  = "none"
)

// Document is the on-disk model.json layout.
type Document struct {
	Kind            string          `json:"kind"`
	NumFeatures     int             `json:"n_features"`
	FeatureNames    []string        `json:"feature_names,omitempty"`
	TargetTransform string          `json:"target_transform,omitempty"`
	Trees           []Tree          `json:"trees,omitempty"`
	Intercept       float64         `json:"intercept,omitempty"`
	Coefficients    []float64       `json:"coefficients,omitempty"`
	Meta            json.RawMessage `json:"meta,omitempty"`
}

// Tree is a regression tree in flattened form. Node i is a leaf when
// Left[i] < 0; otherwise rows with x[Feature[i]] <= Threshold[i] go Left.
type Tree struct {
	Feature   []int     `json:"feature"`
	Threshold []float64 `json:"threshold"`
	Left      []int     `json:"left"`
	Right     []int     `json:"right"`
	Value     []float64 `json:"value"`
}

func (t *Tree) validate(nFeatures int) error {
	n := len(t.Value)
	if n == 0 || len(t.Feature) != n || len(t.Threshold) != n || len(t.Left) != n || len(t.Right) != n {
		return fmt.Errorf("%w: tree arrays must be non-empty and equally long", ErrInvalidModel)
	}
	for i := 0; i < n; i++ {
		if t.Left[i] < 0 {
			continue
		}
		if t.Left[i] >= n || t.Right[i] < 0 || t.Right[i] >= n || t.Left[i] <= i || t.Right[i] <= i {
			return fmt.Errorf("%w: node %d has invalid children", ErrInvalidModel, i)
		}
		if t.Feature[i] < 0 || t.Feature[i] >= nFeatures {
			return fmt.Errorf("%w: node %d splits on feature %d of %d", ErrInvalidModel, i, t.Feature[i], nFeatures)
		}
	}
	return nil
}

func (t *Tree) predict(x []float64) float64 {
	i := 0
	for t.Left[i] >= 0 {
		if x[t.Feature[i]] <= t.Threshold[i] {
			i = t.Left[i]
		} else {
			i = t.Right[i]
		}
	}
	return t.Value[i]
}

// Forest averages its trees.
type Forest struct {
	trees     []Tree
	nFeatures int
}

func (f *Forest) NumFeatures() int { return f.nFeatures }

func (f *Forest) Predict(rows [][]float64) ([]float64, error) {
	out := make([]float64, len(rows))
	for r, x := range rows {
		if len(x) != f.nFeatures {
			return nil, &FeatureMismatchError{Expected: f.nFeatures, Got: len(x), Row: r}
		}
		var sum float64
		for i := range f.trees {
			sum += f.trees[i].predict(x)
		}
		out[r] = sum / float64(len(f.trees))
	}
	return out, nil
}

// Linear is intercept + coefficients·x.
type Linear struct {
	intercept float64
	coef      []float64
}

func (l *Linear) NumFeatures() int { return len(l.coef) }

func (l *Linear) Predict(rows [][]float64) ([]float64, error) {
	out := make([]float64, len(rows))
	for r, x := range rows {
		if len(x) != len(l.coef) {
			return nil, &FeatureMismatchError{Expected: len(l.coef), Got: len(x), Row: r}
		}
		v := l.intercept
		for i, c := range l.coef {
			v += c * x[i]
		}
		out[r] = v
	}
	return out, nil
}

// Decode builds the regressor described by doc.
func Decode(doc *Document) (Regressor, error) {
	switch doc.Kind {
	case KindForest:
		if doc.NumFeatures <= 0 || len(doc.Trees) == 0 {
			return nil, fmt.Errorf("%w: forest needs n_features and at least one tree", ErrInvalidModel)
		}
		for i := range doc.Trees {
			if err := doc.Trees[i].validate(doc.NumFeatures); err != nil {
				return nil, fmt.Errorf("tree %d: %w", i, err)
			}
		}
		return &Forest{trees: doc.Trees, nFeatures: doc.NumFeatures}, nil
	case KindLinear:
		if len(doc.Coefficients) == 0 {
			return nil, fmt.Errorf("%w: linear model has no coefficients", ErrInvalidModel)
		}
		if doc.NumFeatures != 0 && doc.NumFeatures != len(doc.Coefficients) {
			return nil, fmt.Errorf("%w: n_features %d but %d coefficients", ErrInvalidModel, doc.NumFeatures, len(doc.Coefficients))
		}
		for _, c := range doc.Coefficients {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				return nil, fmt.Errorf("%w: non-finite coefficient", ErrInvalidModel)
			}
		}
		return &Linear{intercept: doc.Intercept, coef: doc.Coefficients}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidModel, doc.Kind)
	}
}

// NewLinear is a convenience constructor, mostly for tests and tooling.
func NewLinear(intercept float64, coef []float64) *Linear {
	return &Linear{intercept: intercept, coef: coef}
}
