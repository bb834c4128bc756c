package player

import (
	"fmt"
	"strconv"
	"strings"
)

// NumericField addresses one numeric attribute of a Record by name.
type NumericField struct {
	Name string
	ref  func(*Record) **float64
}

// Get returns the value and whether it was supplied.
func (f NumericField) Get(r *Record) (float64, bool) {
	p := *f.ref(r)
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Set stores v. The previous pointer is replaced, never written through.
func (f NumericField) Set(r *Record, v float64) {
	*f.ref(r) = &v
}

// CategoricalField addresses one string attribute of a Record by name.
type CategoricalField struct {
	Name string
	ref  func(*Record) **string
}

// Get returns the trimmed value and whether a non-empty value was supplied.
func (f CategoricalField) Get(r *Record) (string, bool) {
	p := *f.ref(r)
	if p == nil {
		return "", false
	}
	s := strings.TrimSpace(*p)
	return s, s != ""
}

// Set stores s.
func (f CategoricalField) Set(r *Record, s string) {
	*f.ref(r) = &s
}

func num(name string, ref func(*Record) **float64) NumericField {
	return NumericField{Name: name, ref: ref}
}

func cat(name string, ref func(*Record) **string) CategoricalField {
	return CategoricalField{Name: name, ref: ref}
}

// Model inputs in schema order.
var numericInputs = []NumericField{
	num("international_reputation", func(r *Record) **float64 { return &r.InternationalReputation }),
	num("overall", func(r *Record) **float64 { return &r.Overall }),
	num("potential", func(r *Record) **float64 { return &r.Potential }),
	num("reactions", func(r *Record) **float64 { return &r.Reactions }),
	num("average_quality", func(r *Record) **float64 { return &r.AverageQuality }),
	num("passing", func(r *Record) **float64 { return &r.Passing }),
	num("composure", func(r *Record) **float64 { return &r.Composure }),
	num("dribbling", func(r *Record) **float64 { return &r.Dribbling }),
	num("vision", func(r *Record) **float64 { return &r.Vision }),
	num("shooting", func(r *Record) **float64 { return &r.Shooting }),
	num("short_passing", func(r *Record) **float64 { return &r.ShortPassing }),
	num("finishing", func(r *Record) **float64 { return &r.Finishing }),
	num("heading_accuracy", func(r *Record) **float64 { return &r.HeadingAccuracy }),
	num("crossing", func(r *Record) **float64 { return &r.Crossing }),
	num("volleys", func(r *Record) **float64 { return &r.Volleys }),
	num("sprint_speed", func(r *Record) **float64 { return &r.SprintSpeed }),
	num("acceleration", func(r *Record) **float64 { return &r.Acceleration }),
	num("agility", func(r *Record) **float64 { return &r.Agility }),
	num("balance", func(r *Record) **float64 { return &r.Balance }),
	num("physic", func(r *Record) **float64 { return &r.Physic }),
	num("defending", func(r *Record) **float64 { return &r.Defending }),
	num("standing_tackle", func(r *Record) **float64 { return &r.StandingTackle }),
	num("sliding_tackle", func(r *Record) **float64 { return &r.SlidingTackle }),
	num("marking", func(r *Record) **float64 { return &r.Marking }),
	num("aggression", func(r *Record) **float64 { return &r.Aggression }),
	num("interceptions", func(r *Record) **float64 { return &r.Interceptions }),
	num("positioning", func(r *Record) **float64 { return &r.Positioning }),
	num("penalties", func(r *Record) **float64 { return &r.Penalties }),
	num("weak_foot", func(r *Record) **float64 { return &r.WeakFoot }),
	num("skill_moves", func(r *Record) **float64 { return &r.SkillMoves }),
	num("skill_dribbling", func(r *Record) **float64 { return &r.SkillDribbling }),
	num("ball_control", func(r *Record) **float64 { return &r.BallControl }),
	num("curve", func(r *Record) **float64 { return &r.Curve }),
	num("long_passing", func(r *Record) **float64 { return &r.LongPassing }),
	num("fk_accuracy", func(r *Record) **float64 { return &r.FKAccuracy }),
	num("potential_gap", func(r *Record) **float64 { return &r.PotentialGap }),
	num("value_wage_ratio", func(r *Record) **float64 { return &r.ValueWageRatio }),
	num("contract_years_left", func(r *Record) **float64 { return &r.ContractYearsLeft }),
	num("age", func(r *Record) **float64 { return &r.Age }),
}

var auxiliaryInputs = []NumericField{
	num("pace", func(r *Record) **float64 { return &r.Pace }),
	num("wage_eur", func(r *Record) **float64 { return &r.WageEUR }),
	num("contract_valid_until", func(r *Record) **float64 { return &r.ContractValidUntil }),
	num("data_year", func(r *Record) **float64 { return &r.DataYear }),
	num("height_cm", func(r *Record) **float64 { return &r.HeightCM }),
	num("weight_kg", func(r *Record) **float64 { return &r.WeightKG }),
}

var marketValue = num("market_value_eur", func(r *Record) **float64 { return &r.MarketValueEUR })

var categoricalInputs = []CategoricalField{
	cat("position_category", func(r *Record) **string { return &r.PositionCategory }),
	cat("age_category", func(r *Record) **string { return &r.AgeCategory }),
	cat("preferred_foot", func(r *Record) **string { return &r.PreferredFoot }),
	cat("reputation_category", func(r *Record) **string { return &r.ReputationCategory }),
	cat("league", func(r *Record) **string { return &r.League }),
}

var clubField = cat("club", func(r *Record) **string { return &r.Club })

var allNumeric = func() []NumericField {
	out := make([]NumericField, 0, len(numericInputs)+len(auxiliaryInputs)+1)
	out = append(out, numericInputs...)
	out = append(out, auxiliaryInputs...)
	return append(out, marketValue)
}()

var displayColumns = map[string]func(*Record) *string{
	"id":          func(r *Record) *string { return &r.ID },
	"short_name":  func(r *Record) *string { return &r.ShortName },
	"long_name":   func(r *Record) *string { return &r.LongName },
	"nationality": func(r *Record) *string { return &r.Nationality },
	"positions":   func(r *Record) *string { return &r.Positions },
}

// Common FIFA export headers mapped onto canonical column names.
var aliases = map[string]string{
	"sofifa_id":            "id",
	"player_id":            "id",
	"player_positions":     "positions",
	"value_eur":            "market_value_eur",
	"club_name":            "club",
	"league_name":          "league",
	"nationality_name":     "nationality",
	"skill_ball_control":   "ball_control",
	"skill_curve":          "curve",
	"skill_long_passing":   "long_passing",
	"skill_fk_accuracy":    "fk_accuracy",
	"attacking_crossing":   "crossing",
	"attacking_finishing":  "finishing",
	"attacking_volleys":    "volleys",
	"movement_reactions":   "reactions",
	"mentality_composure":  "composure",
	"mentality_vision":     "vision",
	"mentality_penalties":  "penalties",

	"club_contract_valid_until": "contract_valid_until",
}

// NumericFields lists the numeric model inputs in schema order.
func NumericFields() []NumericField { return append([]NumericField(nil), numericInputs...) }

// AuxiliaryFields lists the numeric inputs used only for derivation.
func AuxiliaryFields() []NumericField { return append([]NumericField(nil), auxiliaryInputs...) }

// CategoricalFields lists the one-hot encoded inputs in schema order.
func CategoricalFields() []CategoricalField {
	return append([]CategoricalField(nil), categoricalInputs...)
}

// ClubField addresses the target-encoded club attribute.
func ClubField() CategoricalField { return clubField }

// MarketValueField addresses the observed market value.
func MarketValueField() NumericField { return marketValue }

// Canonical resolves a header name to the canonical column name.
func Canonical(column string) string {
	c := strings.ToLower(strings.TrimSpace(column))
	if a, ok := aliases[c]; ok {
		return a
	}
	return c
}

// SetColumn parses raw into the attribute named column. An empty cell leaves
// the attribute absent. It reports false for columns the record does not know.
func (r *Record) SetColumn(column, raw string) (bool, error) {
	name := Canonical(column)
	raw = strings.TrimSpace(raw)
	if ref, ok := displayColumns[name]; ok {
		*ref(r) = raw
		return true, nil
	}
	for _, f := range allNumeric {
		if f.Name != name {
			continue
		}
		if raw == "" || strings.EqualFold(raw, "nan") {
			return true, nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return true, &ValidationError{Field: name, Reason: fmt.Sprintf("not a number: %q", raw)}
		}
		f.Set(r, v)
		return true, nil
	}
	for _, f := range append(CategoricalFields(), clubField) {
		if f.Name != name {
			continue
		}
		if raw != "" {
			f.Set(r, raw)
		}
		return true, nil
	}
	return false, nil
}
