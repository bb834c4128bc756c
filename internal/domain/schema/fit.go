package schema

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/okian/scout/internal/domain/player"
)

// FitOption configures Fit.
type FitOption func(*fitConfig)

type fitConfig struct {
	minClubCount int
	quantiles    int
}

// WithMinClubCount drops clubs with fewer priced players from the club table;
// those clubs encode with the global mean.
func WithMinClubCount(n int) FitOption {
	return func(c *fitConfig) {
		if n > 0 {
			c.minClubCount = n
		}
	}
}

// WithQuantiles sets how many reference quantiles are stored (inclusive of
// both ends). Zero disables the percentile table.
func WithQuantiles(n int) FitOption {
	return func(c *fitConfig) {
		if n == 0 || n >= 2 {
			c.quantiles = n
		}
	}
}

// Fit learns encoder categories, club means, imputation defaults and the
// reference value distribution from a cleaned dataset. Records are derived
// before fitting; records that fail validation are skipped.
func Fit(records []player.Record, opts ...FitOption) (*Schema, error) {
	cfg := fitConfig{minClubCount: 1, quantiles: 101}
	for _, opt := range opts {
		opt(&cfg)
	}

	numFields := player.NumericFields()
	catFields := player.CategoricalFields()
	club := player.ClubField()
	value := player.MarketValueField()

	numeric := make(map[string][]float64, len(numFields))
	counts := make(map[string]map[string]int, len(catFields))
	for _, f := range catFields {
		counts[f.Name] = map[string]int{}
	}
	clubSums := map[string]float64{}
	clubCounts := map[string]int{}
	var values []float64

	used := 0
	for i := range records {
		if err := records[i].Validate(); err != nil {
			continue
		}
		r, _ := player.Derive(records[i])
		used++
		for _, f := range numFields {
			if v, ok := f.Get(&r); ok {
				numeric[f.Name] = append(numeric[f.Name], v)
			}
		}
		for _, f := range catFields {
			if v, ok := f.Get(&r); ok {
				counts[f.Name][v]++
			}
		}
		mv, ok := value.Get(&r)
		if !ok {
			continue
		}
		values = append(values, mv)
		if c, ok := club.Get(&r); ok {
			clubSums[c] += mv
			clubCounts[c]++
		}
	}
	if used == 0 || len(values) == 0 {
		return nil, ErrEmptyDataset
	}

	layout := Layout{
		Version:     1,
		ClubColumn:  ClubColumn,
		Defaults:    Defaults{Numeric: map[string]float64{}, Categorical: map[string]string{}},
		Numeric:     make([]string, 0, len(numFields)),
		Categorical: make([]string, 0, len(catFields)),
	}
	for _, f := range numFields {
		layout.Numeric = append(layout.Numeric, f.Name)
		if vs := numeric[f.Name]; len(vs) > 0 {
			layout.Defaults.Numeric[f.Name] = Median(vs)
		}
	}

	categories := make(map[string][]string, len(catFields))
	for _, f := range catFields {
		layout.Categorical = append(layout.Categorical, f.Name)
		cats := make([]string, 0, len(counts[f.Name]))
		for c := range counts[f.Name] {
			cats = append(cats, c)
		}
		sort.Strings(cats)
		categories[f.Name] = cats
		if m, ok := mode(counts[f.Name]); ok {
			layout.Defaults.Categorical[f.Name] = m
		}
	}

	global := mean(values)
	means := make(map[string]float64, len(clubSums))
	for c, sum := range clubSums {
		if clubCounts[c] >= cfg.minClubCount {
			means[c] = sum / float64(clubCounts[c])
		}
	}

	if cfg.quantiles > 0 {
		layout.ValueQuantiles = Quantiles(values, cfg.quantiles)
	}

	enc, err := NewEncoder(layout.Categorical, categories)
	if err != nil {
		return nil, fmt.Errorf("fit encoder: %w", err)
	}
	return New(layout, enc, &ClubEncoding{Means: means, GlobalMean: global})
}

// Median of vs; vs is not modified.
func Median(vs []float64) float64 {
	s := slices.Clone(vs)
	sort.Float64s(s)
	n := len(s)
	if n == 0 {
		return math.NaN()
	}
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// Quantiles returns n evenly spaced quantiles from min to max using linear
// interpolation between order statistics.
func Quantiles(vs []float64, n int) []float64 {
	s := slices.Clone(vs)
	sort.Float64s(s)
	out := make([]float64, n)
	last := float64(len(s) - 1)
	for i := range out {
		pos := last * float64(i) / float64(n-1)
		lo := int(math.Floor(pos))
		hi := int(math.Ceil(pos))
		out[i] = s[lo] + (s[hi]-s[lo])*(pos-float64(lo))
	}
	return out
}

func mean(vs []float64) float64 {
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

// mode picks the most frequent value; ties go to the lexicographically smallest.
func mode(counts map[string]int) (string, bool) {
	best, bestN := "", 0
	for v, n := range counts {
		if n > bestN || (n == bestN && v < best) {
			best, bestN = v, n
		}
	}
	return best, bestN > 0
}
