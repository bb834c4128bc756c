package scan

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/okian/scout/internal/domain/classify"
	"github.com/okian/scout/internal/domain/player"
	"github.com/okian/scout/internal/domain/types"
	"github.com/okian/scout/pkg/logger"
	"github.com/okian/scout/pkg/metrics"
)

// Direction selects which side of the market a ranking looks at.
type Direction string

const (
	MostUndervalued Direction = "undervalued"
	MostOvervalued  Direction = "overvalued"
)

// Exclusion reasons reported in Ranking.Excluded.
const (
	ExclusionFiltered     = "filtered"
	ExclusionZeroActual   = "zero_actual"
	ExclusionBelowMinimum = "below_minimum"
	ExclusionFailed       = "failed"
	ExclusionWrongSide    = "wrong_side"
	ExclusionSmallGap     = "small_gap"
	ExclusionDuplicate    = "duplicate"
)

// Filters narrow the table before scoring. Zero values disable a filter.
type Filters struct {
	MaxAge    float64
	Positions []string
	League    string
	Year      int
}

// Options configure Top.
type Options struct {
	Direction      Direction
	TopN           int
	MinActualValue float64
	// MinRelative drops gaps smaller than this fraction of the prediction.
	MinRelative float64
	Tolerance   float64
	Filters     Filters
	// SampleSize > 0 scores a deterministic sample of at most that many rows.
	SampleSize int
	Seed       int64
}

// Ranking is the output of Top.
type Ranking struct {
	Entries    []types.Entry  `json:"players"`
	Candidates int            `json:"candidates"`
	Scored     int            `json:"scored"`
	Excluded   map[string]int `json:"excluded"`
	Sampled    bool           `json:"sampled"`
}

type candidate struct {
	rec    *player.Record
	index  int
	actual float64
}

// Top ranks the rows whose predicted minus actual value has the sign asked
// for, largest gap first. Rows without a positive actual value are never
// ranked.
func (e *Engine) Top(ctx context.Context, rows []player.Record, opts Options) (*Ranking, error) {
	switch opts.Direction {
	case MostUndervalued, MostOvervalued:
	default:
		return nil, fmt.Errorf("%w: %q", ErrDirection, opts.Direction)
	}
	if opts.TopN <= 0 {
		return nil, fmt.Errorf("%w: top_n must be positive", ErrOptions)
	}
	start := time.Now()
	rank := &Ranking{Excluded: map[string]int{}}

	idx := make([]int, 0, len(rows))
	for i := range rows {
		if opts.Filters.match(&rows[i]) {
			idx = append(idx, i)
		} else {
			rank.Excluded[ExclusionFiltered]++
		}
	}
	if opts.SampleSize > 0 && len(idx) > opts.SampleSize {
		idx = Sample(idx, opts.SampleSize, opts.Seed)
		rank.Sampled = true
	}

	var cands []candidate
	for _, i := range idx {
		actual, ok := player.MarketValueField().Get(&rows[i])
		switch {
		case !ok || actual <= 0:
			rank.Excluded[ExclusionZeroActual]++
		case actual < opts.MinActualValue:
			rank.Excluded[ExclusionBelowMinimum]++
		default:
			cands = append(cands, candidate{rec: &rows[i], index: i, actual: actual})
		}
	}

	batch := make([]player.Record, len(cands))
	for i, c := range cands {
		batch[i] = *c.rec
	}
	scored, _, err := e.ScoreAll(ctx, batch)
	if err != nil {
		return nil, err
	}
	rank.Scored = len(batch)

	entries := make([]types.Entry, 0, len(cands))
	for i, c := range cands {
		if scored[i].Err != nil {
			rank.Excluded[ExclusionFailed]++
			continue
		}
		pred := scored[i].Predicted
		res := classify.Classify(pred, &c.actual, opts.Tolerance)
		gap := *res.Difference
		if (opts.Direction == MostUndervalued && gap <= 0) || (opts.Direction == MostOvervalued && gap >= 0) {
			rank.Excluded[ExclusionWrongSide]++
			continue
		}
		if *res.Relative < opts.MinRelative {
			rank.Excluded[ExclusionSmallGap]++
			continue
		}
		entries = append(entries, entryFor(c.rec, pred, c.actual, res))
	}
	rank.Candidates = len(entries)

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Difference != b.Difference {
			if opts.Direction == MostUndervalued {
				return a.Difference > b.Difference
			}
			return a.Difference < b.Difference
		}
		return a.PlayerID < b.PlayerID
	})
	if len(entries) > opts.TopN {
		entries = entries[:opts.TopN]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	rank.Entries = entries

	for reason, n := range rank.Excluded {
		metrics.RecordScanExcluded(reason, n)
	}
	elapsed := time.Since(start)
	metrics.RecordScan(string(opts.Direction), rank.Scored, float64(elapsed.Microseconds())/1000)
	e.log.Debug(ctx, "ranking computed",
		logger.String("direction", string(opts.Direction)),
		logger.Int("scored", rank.Scored),
		logger.Int("candidates", rank.Candidates),
		logger.Bool("sampled", rank.Sampled),
		logger.Duration("elapsed", elapsed),
	)
	return rank, nil
}

func entryFor(r *player.Record, pred, actual float64, res classify.Result) types.Entry {
	pos := r.Positions
	if pos == "" && r.PositionCategory != nil {
		pos = *r.PositionCategory
	}
	e := types.Entry{
		PlayerID:           r.ID,
		Name:               r.Label(),
		Position:           pos,
		Nationality:        r.Nationality,
		Age:                r.Age,
		PredictedValue:     pred,
		ActualValue:        actual,
		Difference:         *res.Difference,
		RelativeDifference: *res.Relative,
		Classification:     string(res.Label),
	}
	if r.Club != nil {
		e.Club = *r.Club
	}
	if r.League != nil {
		e.League = *r.League
	}
	return e
}

func (f Filters) match(r *player.Record) bool {
	if f.MaxAge > 0 && (r.Age == nil || *r.Age > f.MaxAge) {
		return false
	}
	if f.League != "" && (r.League == nil || !strings.EqualFold(strings.TrimSpace(*r.League), f.League)) {
		return false
	}
	if f.Year != 0 && (r.DataYear == nil || int(*r.DataYear) != f.Year) {
		return false
	}
	if len(f.Positions) > 0 && !matchPosition(r, f.Positions) {
		return false
	}
	return true
}

// matchPosition accepts either a position category ("Forward") or a position
// code ("ST") that appears in the player's position list.
func matchPosition(r *player.Record, wanted []string) bool {
	category := ""
	if r.PositionCategory != nil {
		category = *r.PositionCategory
	} else if r.Positions != "" {
		category = player.PositionCategoryOf(r.Positions)
	}
	codes := strings.FieldsFunc(strings.ToUpper(r.Positions), func(c rune) bool { return c == ',' || c == ' ' })
	for _, w := range wanted {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if strings.EqualFold(w, category) {
			return true
		}
		for _, c := range codes {
			if strings.EqualFold(w, c) {
				return true
			}
		}
	}
	return false
}

// Sample picks k of idx with a seeded partial Fisher-Yates shuffle and
// returns them in their original order. The same seed gives the same sample.
func Sample(idx []int, k int, seed int64) []int {
	if k >= len(idx) {
		return append([]int(nil), idx...)
	}
	pool := append([]int(nil), idx...)
	rng := rand.New(rand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15))
	for i := 0; i < k; i++ {
		j := i + rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	out := pool[:k]
	sort.Ints(out)
	return out
}
