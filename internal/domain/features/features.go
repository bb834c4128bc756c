// Package features turns player records into model-ready vectors that match
// the training column layout exactly.
package features

import (
	"fmt"

	"github.com/okian/scout/internal/domain/player"
	"github.com/okian/scout/internal/domain/schema"
)

// Vector is one aligned row, ordered as schema.Columns().
type Vector []float64

// Provenance records how each schema input got its value.
type Provenance struct {
	Supplied     []string `json:"supplied"`
	Derived      []string `json:"derived,omitempty"`
	Imputed      []string `json:"imputed,omitempty"`
	Unknown      []string `json:"unknown_categories,omitempty"`
	ClubFallback bool     `json:"club_fallback"`
}

// UnknownCategory describes a categorical value unseen at training time.
type UnknownCategory struct {
	Column string
	Value  string
}

// Observer receives alignment warnings. It must be safe for concurrent use.
type Observer interface {
	UnknownCategory(UnknownCategory)
	Imputed(n int)
	ClubFallback()
}

type nopObserver struct{}

func (nopObserver) UnknownCategory(UnknownCategory) {}
func (nopObserver) Imputed(int)                     {}
func (nopObserver) ClubFallback()                   {}

// Option configures an Aligner.
type Option func(*Aligner)

// WithObserver installs an observer for warnings.
func WithObserver(o Observer) Option {
	return func(a *Aligner) {
		if o != nil {
			a.observer = o
		}
	}
}

// Aligner is stateless after construction and safe for concurrent use.
type Aligner struct {
	schema   *schema.Schema
	numeric  []player.NumericField
	cats     []player.CategoricalField
	club     player.CategoricalField
	observer Observer
}

// NewAligner binds the schema columns to record fields. Every schema column
// must name a known record attribute.
func NewAligner(s *schema.Schema, opts ...Option) (*Aligner, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil schema", ErrUnboundColumn)
	}
	a := &Aligner{schema: s, club: player.ClubField(), observer: nopObserver{}}

	byName := make(map[string]player.NumericField)
	for _, f := range player.NumericFields() {
		byName[f.Name] = f
	}
	for _, col := range s.Numeric() {
		f, ok := byName[col]
		if !ok {
			return nil, fmt.Errorf("%w: numeric column %q", ErrUnboundColumn, col)
		}
		a.numeric = append(a.numeric, f)
	}

	catByName := make(map[string]player.CategoricalField)
	for _, f := range player.CategoricalFields() {
		catByName[f.Name] = f
	}
	for _, col := range s.Categorical() {
		f, ok := catByName[col]
		if !ok {
			return nil, fmt.Errorf("%w: categorical column %q", ErrUnboundColumn, col)
		}
		a.cats = append(a.cats, f)
	}

	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Schema returns the schema the aligner was built with.
func (a *Aligner) Schema() *schema.Schema { return a.schema }

// Align validates, derives, imputes and encodes one record. The input is not
// modified. Absent fields never fail; invalid supplied values do. Observer
// callbacks fire only for records that align.
func (a *Aligner) Align(rec player.Record) (Vector, Provenance, error) {
	v, prov, unknown, err := a.align(rec)
	if err != nil {
		return nil, prov, err
	}
	a.report(prov, unknown)
	return v, prov, nil
}

// AlignBatch aligns every record with the same path as Align, so row i of
// the result equals Align(recs[i]). The first invalid record aborts the batch
// with a *RowError.
func (a *Aligner) AlignBatch(recs []player.Record) ([]Vector, []Provenance, error) {
	vecs, provs, report, err := a.AlignBatchDeferred(recs)
	if err != nil {
		return nil, nil, err
	}
	report()
	return vecs, provs, nil
}

// AlignBatchDeferred is AlignBatch with the observer callbacks held back
// until report is called. A caller whose next step fails can drop them and
// retry the rows one by one without counting any warning twice.
func (a *Aligner) AlignBatchDeferred(recs []player.Record) ([]Vector, []Provenance, func(), error) {
	vecs := make([]Vector, len(recs))
	provs := make([]Provenance, len(recs))
	unknown := make([][]UnknownCategory, len(recs))
	for i := range recs {
		v, p, u, err := a.align(recs[i])
		if err != nil {
			return nil, nil, func() {}, &RowError{Index: i, Err: err}
		}
		vecs[i], provs[i], unknown[i] = v, p, u
	}
	report := func() {
		for i := range provs {
			a.report(provs[i], unknown[i])
		}
	}
	return vecs, provs, report, nil
}

func (a *Aligner) report(prov Provenance, unknown []UnknownCategory) {
	if prov.ClubFallback {
		a.observer.ClubFallback()
	}
	for _, u := range unknown {
		a.observer.UnknownCategory(u)
	}
	a.observer.Imputed(len(prov.Imputed))
}

func (a *Aligner) align(rec player.Record) (Vector, Provenance, []UnknownCategory, error) {
	var prov Provenance
	if err := rec.Validate(); err != nil {
		return nil, prov, nil, err
	}

	for _, f := range a.numeric {
		if _, ok := f.Get(&rec); ok {
			prov.Supplied = append(prov.Supplied, f.Name)
		}
	}
	for _, f := range a.cats {
		if _, ok := f.Get(&rec); ok {
			prov.Supplied = append(prov.Supplied, f.Name)
		}
	}

	r, derived := player.Derive(rec)
	prov.Derived = derived

	enc := a.schema.Encoder()
	out := make(Vector, 0, a.schema.Width())

	for _, f := range a.numeric {
		v, ok := f.Get(&r)
		if !ok {
			v = a.schema.NumericDefault(f.Name)
			prov.Imputed = append(prov.Imputed, f.Name)
		}
		out = append(out, v)
	}

	club, _ := a.club.Get(&r)
	clubValue, known := a.schema.Club().Lookup(club)
	prov.ClubFallback = !known
	out = append(out, clubValue)

	var unknown []UnknownCategory
	for _, f := range a.cats {
		v, ok := f.Get(&r)
		if !ok {
			v = a.schema.CategoricalDefault(f.Name)
			prov.Imputed = append(prov.Imputed, f.Name)
		}
		block := make([]float64, enc.BlockSize(f.Name))
		if i, ok := enc.Index(f.Name, v); ok {
			block[i] = 1
		} else {
			prov.Unknown = append(prov.Unknown, f.Name)
			unknown = append(unknown, UnknownCategory{Column: f.Name, Value: v})
		}
		out = append(out, block...)
	}

	if len(out) != a.schema.Width() {
		return nil, prov, nil, fmt.Errorf("%w: built %d columns, schema has %d", ErrWidth, len(out), a.schema.Width())
	}
	return out, prov, unknown, nil
}

// Matrix views vectors as model input rows.
func Matrix(vecs []Vector) [][]float64 {
	rows := make([][]float64, len(vecs))
	for i, v := range vecs {
		rows[i] = v
	}
	return rows
}
