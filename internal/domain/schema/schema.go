// Package schema holds the feature layout the valuation model was trained
// with: column order, the fitted categorical encoder, the club target
// encoding and the single default table used for imputation.
package schema

import (
	"fmt"
	"slices"
	"sort"
)

// ClubColumn is the name of the target-encoded club feature.
const ClubColumn = "club_value_mean"

// Fallbacks used when no mode was recorded for a categorical column.
var categoricalFallbacks = map[string]string{
	"position_category":   "Midfielder",
	"age_category":        "Prime",
	"preferred_foot":      "Right",
	"reputation_category": "Regional",
	"league":              "English Premier League",
}

// Defaults is the declarative imputation table.
type Defaults struct {
	Numeric     map[string]float64 `yaml:"numeric" json:"numeric"`
	Categorical map[string]string  `yaml:"categorical" json:"categorical"`
}

// Layout is the serialized part of a schema (schema.yaml).
type Layout struct {
	Version        int       `yaml:"version"`
	Numeric        []string  `yaml:"numeric"`
	Categorical    []string  `yaml:"categorical"`
	ClubColumn     string    `yaml:"club_column"`
	Defaults       Defaults  `yaml:"defaults"`
	ValueQuantiles []float64 `yaml:"value_quantiles,omitempty"`
}

// Schema is immutable once built and safe for concurrent use.
type Schema struct {
	layout  Layout
	encoder *Encoder
	club    *ClubEncoding
	columns []string
}

// New validates the three parts against each other and builds a Schema.
func New(layout Layout, enc *Encoder, club *ClubEncoding) (*Schema, error) {
	if enc == nil || club == nil {
		return nil, fmt.Errorf("%w: encoder and club encoding are required", ErrInvalidSchema)
	}
	if len(layout.Numeric) == 0 {
		return nil, fmt.Errorf("%w: no numeric columns", ErrInvalidSchema)
	}
	if layout.ClubColumn == "" {
		layout.ClubColumn = ClubColumn
	}
	if !slices.Equal(layout.Categorical, enc.Features) {
		return nil, fmt.Errorf("%w: encoder features %v do not match categorical columns %v",
			ErrInvalidSchema, enc.Features, layout.Categorical)
	}
	if err := enc.compile(); err != nil {
		return nil, err
	}
	if !sort.Float64sAreSorted(layout.ValueQuantiles) {
		return nil, fmt.Errorf("%w: value quantiles must be ascending", ErrInvalidSchema)
	}

	cols := make([]string, 0, len(layout.Numeric)+1+enc.Width())
	cols = append(cols, layout.Numeric...)
	cols = append(cols, layout.ClubColumn)
	cols = append(cols, enc.OutputColumns()...)

	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		if _, dup := seen[c]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrInvalidSchema, c)
		}
		seen[c] = struct{}{}
	}

	return &Schema{layout: layout, encoder: enc, club: club, columns: cols}, nil
}

// Numeric returns the numeric columns in order.
func (s *Schema) Numeric() []string { return slices.Clone(s.layout.Numeric) }

// Categorical returns the one-hot encoded columns in order.
func (s *Schema) Categorical() []string { return slices.Clone(s.layout.Categorical) }

// Columns returns the full ordered column list of an aligned vector.
func (s *Schema) Columns() []string { return slices.Clone(s.columns) }

// Width is len(Columns()).
func (s *Schema) Width() int { return len(s.columns) }

func (s *Schema) Encoder() *Encoder   { return s.encoder }
func (s *Schema) Club() *ClubEncoding { return s.club }
func (s *Schema) Layout() Layout      { return s.layout }

// NumericDefault returns the recorded median or 0.
func (s *Schema) NumericDefault(column string) float64 {
	return s.layout.Defaults.Numeric[column]
}

// CategoricalDefault returns the recorded mode, or the column fallback.
func (s *Schema) CategoricalDefault(column string) string {
	if v, ok := s.layout.Defaults.Categorical[column]; ok && v != "" {
		return v
	}
	return categoricalFallbacks[column]
}

// Percentile places value among the reference market values, 0 to 100.
// It reports false when no reference distribution was recorded.
func (s *Schema) Percentile(value float64) (float64, bool) {
	q := s.layout.ValueQuantiles
	if len(q) < 2 {
		return 0, false
	}
	step := 100 / float64(len(q)-1)
	switch {
	case value <= q[0]:
		return 0, true
	case value >= q[len(q)-1]:
		return 100, true
	}
	i := sort.SearchFloat64s(q, value)
	// q[i-1] < value <= q[i]
	lo, hi := q[i-1], q[i]
	frac := 1.0
	if hi > lo {
		frac = (value - lo) / (hi - lo)
	}
	return (float64(i-1) + frac) * step, true
}
