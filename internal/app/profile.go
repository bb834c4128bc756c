package service

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/okian/scout/internal/domain/player"
)

// Profile is one reference player with the model's verdict on its own
// market value.
type Profile struct {
	Player     player.Record `json:"player"`
	Evaluation *Evaluation   `json:"prediction"`
	Seasons    int           `json:"seasons"`
}

// Range is the observed span of a numeric column.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FilterOptions lists the distinct values the ranking filters can take over
// the reference dataset. A range is omitted when no row carries the column.
type FilterOptions struct {
	Leagues            []string `json:"leagues"`
	Clubs              []string `json:"clubs"`
	Nationalities      []string `json:"nationalities"`
	Positions          []string `json:"positions"`
	PositionCategories []string `json:"position_categories"`
	Years              []int    `json:"years"`
	Age                *Range   `json:"age,omitempty"`
	Overall            *Range   `json:"overall,omitempty"`
	Potential          *Range   `json:"potential,omitempty"`
	MarketValue        *Range   `json:"market_value_eur,omitempty"`
	Players            int      `json:"players"`
}

// Profile looks up id in the reference dataset and evaluates it against its
// own market value. When the player has several seasons the latest one is
// used.
func (s *Service) Profile(ctx context.Context, id string, tolerance *float64) (*Profile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: player id must not be empty", ErrInvalidInput)
	}
	ref, err := s.reference(ctx)
	if err != nil {
		return nil, err
	}

	var (
		found   *player.Record
		seasons int
	)
	for i := range ref.records {
		r := &ref.records[i]
		if r.ID != id {
			continue
		}
		seasons++
		if found == nil || later(r, found) {
			found = r
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
	}

	ev, err := s.Evaluate(ctx, *found, nil, tolerance)
	if err != nil {
		return nil, err
	}
	return &Profile{Player: *found, Evaluation: ev, Seasons: seasons}, nil
}

func later(a, b *player.Record) bool {
	return a.DataYear != nil && (b.DataYear == nil || *a.DataYear > *b.DataYear)
}

// FilterOptions collects the distinct filter values of the reference dataset.
func (s *Service) FilterOptions(ctx context.Context) (*FilterOptions, error) {
	ref, err := s.reference(ctx)
	if err != nil {
		return nil, err
	}

	leagues := map[string]struct{}{}
	clubs := map[string]struct{}{}
	nations := map[string]struct{}{}
	codes := map[string]struct{}{}
	cats := map[string]struct{}{}
	years := map[int]struct{}{}
	opts := &FilterOptions{Players: len(ref.records)}

	for i := range ref.records {
		r := &ref.records[i]
		add(leagues, r.League)
		add(clubs, r.Club)
		add(nations, &r.Nationality)
		for _, p := range strings.Split(r.Positions, ",") {
			add(codes, &p)
		}
		switch {
		case r.PositionCategory != nil:
			add(cats, r.PositionCategory)
		case r.Positions != "":
			c := player.PositionCategoryOf(r.Positions)
			add(cats, &c)
		}
		if r.DataYear != nil {
			years[int(*r.DataYear)] = struct{}{}
		}
		opts.Age = widen(opts.Age, r.Age)
		opts.Overall = widen(opts.Overall, r.Overall)
		opts.Potential = widen(opts.Potential, r.Potential)
		opts.MarketValue = widen(opts.MarketValue, r.MarketValueEUR)
	}

	opts.Leagues = sortedKeys(leagues)
	opts.Clubs = sortedKeys(clubs)
	opts.Nationalities = sortedKeys(nations)
	opts.Positions = sortedKeys(codes)
	opts.PositionCategories = sortedKeys(cats)
	opts.Years = sortedKeys(years)
	return opts, nil
}

func add(set map[string]struct{}, v *string) {
	if v == nil {
		return
	}
	if t := strings.TrimSpace(*v); t != "" {
		set[t] = struct{}{}
	}
}

func widen(r *Range, v *float64) *Range {
	if v == nil || math.IsNaN(*v) {
		return r
	}
	if r == nil {
		return &Range{Min: *v, Max: *v}
	}
	r.Min = math.Min(r.Min, *v)
	r.Max = math.Max(r.Max, *v)
	return r
}

func sortedKeys[K string | int](set map[K]struct{}) []K {
	out := make([]K, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
