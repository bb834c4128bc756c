// Package player defines the typed player record scored by the valuation
// pipeline, its field tables and the derived attributes computed from it.
package player

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Record is one player. A nil pointer means the attribute was not supplied.
type Record struct {
	// Identity and display
	ID          string `json:"id,omitempty"`
	ShortName   string `json:"short_name,omitempty"`
	LongName    string `json:"long_name,omitempty"`
	Nationality string `json:"nationality,omitempty"`
	Positions   string `json:"positions,omitempty"`

	// Numeric model inputs
	InternationalReputation *float64 `json:"international_reputation,omitempty" validate:"omitempty,gte=1,lte=5"`
	Overall                 *float64 `json:"overall,omitempty" validate:"omitempty,gte=1,lte=99"`
	Potential               *float64 `json:"potential,omitempty" validate:"omitempty,gte=1,lte=99"`
	Reactions               *float64 `json:"reactions,omitempty" validate:"omitempty,gte=0,lte=99"`
	AverageQuality          *float64 `json:"average_quality,omitempty" validate:"omitempty,gte=0,lte=99"`
	Passing                 *float64 `json:"passing,omitempty" validate:"omitempty,gte=0,lte=99"`
	Composure               *float64 `json:"composure,omitempty" validate:"omitempty,gte=0,lte=99"`
	Dribbling               *float64 `json:"dribbling,omitempty" validate:"omitempty,gte=0,lte=99"`
	Vision                  *float64 `json:"vision,omitempty" validate:"omitempty,gte=0,lte=99"`
	Shooting                *float64 `json:"shooting,omitempty" validate:"omitempty,gte=0,lte=99"`
	ShortPassing            *float64 `json:"short_passing,omitempty" validate:"omitempty,gte=0,lte=99"`
	Finishing               *float64 `json:"finishing,omitempty" validate:"omitempty,gte=0,lte=99"`
	HeadingAccuracy         *float64 `json:"heading_accuracy,omitempty" validate:"omitempty,gte=0,lte=99"`
	Crossing                *float64 `json:"crossing,omitempty" validate:"omitempty,gte=0,lte=99"`
	Volleys                 *float64 `json:"volleys,omitempty" validate:"omitempty,gte=0,lte=99"`
	SprintSpeed             *float64 `json:"sprint_speed,omitempty" validate:"omitempty,gte=0,lte=99"`
	Acceleration            *float64 `json:"acceleration,omitempty" validate:"omitempty,gte=0,lte=99"`
	Agility                 *float64 `json:"agility,omitempty" validate:"omitempty,gte=0,lte=99"`
	Balance                 *float64 `json:"balance,omitempty" validate:"omitempty,gte=0,lte=99"`
	Physic                  *float64 `json:"physic,omitempty" validate:"omitempty,gte=0,lte=99"`
	Defending               *float64 `json:"defending,omitempty" validate:"omitempty,gte=0,lte=99"`
	StandingTackle          *float64 `json:"standing_tackle,omitempty" validate:"omitempty,gte=0,lte=99"`
	SlidingTackle           *float64 `json:"sliding_tackle,omitempty" validate:"omitempty,gte=0,lte=99"`
	Marking                 *float64 `json:"marking,omitempty" validate:"omitempty,gte=0,lte=99"`
	Aggression              *float64 `json:"aggression,omitempty" validate:"omitempty,gte=0,lte=99"`
	Interceptions           *float64 `json:"interceptions,omitempty" validate:"omitempty,gte=0,lte=99"`
	Positioning             *float64 `json:"positioning,omitempty" validate:"omitempty,gte=0,lte=99"`
	Penalties               *float64 `json:"penalties,omitempty" validate:"omitempty,gte=0,lte=99"`
	WeakFoot                *float64 `json:"weak_foot,omitempty" validate:"omitempty,gte=1,lte=5"`
	SkillMoves              *float64 `json:"skill_moves,omitempty" validate:"omitempty,gte=1,lte=5"`
	SkillDribbling          *float64 `json:"skill_dribbling,omitempty" validate:"omitempty,gte=0,lte=99"`
	BallControl             *float64 `json:"ball_control,omitempty" validate:"omitempty,gte=0,lte=99"`
	Curve                   *float64 `json:"curve,omitempty" validate:"omitempty,gte=0,lte=99"`
	LongPassing             *float64 `json:"long_passing,omitempty" validate:"omitempty,gte=0,lte=99"`
	FKAccuracy              *float64 `json:"fk_accuracy,omitempty" validate:"omitempty,gte=0,lte=99"`
	PotentialGap            *float64 `json:"potential_gap,omitempty" validate:"omitempty,gte=0,lte=98"`
	ValueWageRatio          *float64 `json:"value_wage_ratio,omitempty" validate:"omitempty,gte=0"`
	ContractYearsLeft       *float64 `json:"contract_years_left,omitempty" validate:"omitempty,gte=0"`
	Age                     *float64 `json:"age,omitempty" validate:"omitempty,gte=14,lte=50"`

	// Auxiliary inputs, only used to derive model inputs
	Pace               *float64 `json:"pace,omitempty" validate:"omitempty,gte=0,lte=99"`
	WageEUR            *float64 `json:"wage_eur,omitempty" validate:"omitempty,gte=0"`
	ContractValidUntil *float64 `json:"contract_valid_until,omitempty" validate:"omitempty,gte=1900,lte=2100"`
	DataYear           *float64 `json:"data_year,omitempty" validate:"omitempty,gte=1900,lte=2100"`
	HeightCM           *float64 `json:"height_cm,omitempty" validate:"omitempty,gt=0"`
	WeightKG           *float64 `json:"weight_kg,omitempty" validate:"omitempty,gt=0"`

	// Categorical model inputs
	PositionCategory   *string `json:"position_category,omitempty"`
	AgeCategory        *string `json:"age_category,omitempty"`
	PreferredFoot      *string `json:"preferred_foot,omitempty"`
	ReputationCategory *string `json:"reputation_category,omitempty"`
	League             *string `json:"league,omitempty"`

	// Club is target encoded, not one-hot encoded.
	Club *string `json:"club,omitempty"`

	// MarketValueEUR is the observed value the classifier compares against.
	MarketValueEUR *float64 `json:"market_value_eur,omitempty" validate:"omitempty,gte=0"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate checks the supplied attributes. Absent attributes are never an error.
func (r *Record) Validate() error {
	for _, f := range allNumeric {
		if v, ok := f.Get(r); ok && (math.IsNaN(v) || math.IsInf(v, 0)) {
			return &ValidationError{Field: f.Name, Reason: "must be a finite number"}
		}
	}
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &ValidationError{Field: fe.Field(), Reason: describe(fe)}
		}
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	if r.Overall != nil && r.Potential != nil && *r.Potential < *r.Overall {
		return &ValidationError{Field: "potential", Reason: "must be greater than or equal to overall"}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "gt":
		return "must be > " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}

// Label returns the best display name available.
func (r *Record) Label() string {
	switch {
	case r.ShortName != "":
		return r.ShortName
	case r.LongName != "":
		return r.LongName
	default:
		return r.ID
	}
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Text returns a pointer to s.
func Text(s string) *string { return &s }
