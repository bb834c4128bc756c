package schema

import (
	"fmt"
)

// Encoder is a fitted one-hot encoder. Each feature owns a block of
// len(categories) columns; a value outside the known categories encodes as
// an all-zero block.
type Encoder struct {
	Features   []string            `json:"features"`
	Categories map[string][]string `json:"categories"`

	index map[string]map[string]int
}

// NewEncoder builds an encoder and its lookup index.
func NewEncoder(features []string, categories map[string][]string) (*Encoder, error) {
	e := &Encoder{Features: features, Categories: categories}
	if err := e.compile(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Encoder) compile() error {
	e.index = make(map[string]map[string]int, len(e.Features))
	for _, f := range e.Features {
		cats, ok := e.Categories[f]
		if !ok {
			return fmt.Errorf("%w: encoder has no categories for %q", ErrInvalidSchema, f)
		}
		m := make(map[string]int, len(cats))
		for i, c := range cats {
			if _, dup := m[c]; dup {
				return fmt.Errorf("%w: duplicate category %q in %q", ErrInvalidSchema, c, f)
			}
			m[c] = i
		}
		e.index[f] = m
	}
	return nil
}

// Index returns the position of value inside feature's block.
func (e *Encoder) Index(feature, value string) (int, bool) {
	i, ok := e.index[feature][value]
	return i, ok
}

// BlockSize is the number of columns of one feature.
func (e *Encoder) BlockSize(feature string) int {
	return len(e.Categories[feature])
}

// OutputColumns returns "<feature>_<category>" for every encoded column.
func (e *Encoder) OutputColumns() []string {
	var out []string
	for _, f := range e.Features {
		for _, c := range e.Categories[f] {
			out = append(out, f+"_"+c)
		}
	}
	return out
}

// Width is the total number of one-hot columns.
func (e *Encoder) Width() int {
	n := 0
	for _, f := range e.Features {
		n += len(e.Categories[f])
	}
	return n
}

// ClubEncoding maps a club to the mean market value of its players.
type ClubEncoding struct {
	Means      map[string]float64 `json:"means"`
	GlobalMean float64            `json:"global_mean"`
}

// Lookup returns the club mean, or the global mean for absent or unknown clubs.
func (c *ClubEncoding) Lookup(club string) (float64, bool) {
	if club != "" {
		if v, ok := c.Means[club]; ok {
			return v, true
		}
	}
	return c.GlobalMean, false
}
