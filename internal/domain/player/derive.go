package player

import (
	"math"
	"strings"
)

// Category values produced by derivation.
const (
	PositionGoalkeeper = "Goalkeeper"
	PositionDefender   = "Defender"
	PositionMidfielder = "Midfielder"
	PositionForward    = "Forward"
	PositionOther      = "Other"

	AgeYoung   = "Young"
	AgePrime   = "Prime"
	AgeVeteran = "Veteran"
)

var reputationNames = map[int]string{
	1: "Local",
	2: "Regional",
	3: "National",
	4: "Continental",
	5: "Worldwide",
}

// Derive fills derived model inputs that are absent and whose inputs are all
// present. It returns a new record and the names of the fields it set.
func Derive(in Record) (Record, []string) {
	r := in
	var derived []string

	setNum := func(ptr **float64, name string, v float64) {
		if *ptr == nil {
			*ptr = Float(v)
			derived = append(derived, name)
		}
	}
	setCat := func(ptr **string, name, v string) {
		if *ptr == nil || strings.TrimSpace(**ptr) == "" {
			*ptr = Text(v)
			derived = append(derived, name)
		}
	}

	if r.Potential != nil && r.Overall != nil {
		setNum(&r.PotentialGap, "potential_gap", *r.Potential-*r.Overall)
	}

	if q, ok := averageQuality(&r); ok {
		setNum(&r.AverageQuality, "average_quality", q)
	}

	if r.Age != nil {
		setCat(&r.AgeCategory, "age_category", AgeCategoryOf(*r.Age))
	}

	if r.InternationalReputation != nil {
		if name, ok := reputationNames[int(math.Round(*r.InternationalReputation))]; ok {
			setCat(&r.ReputationCategory, "reputation_category", name)
		}
	}

	if strings.TrimSpace(r.Positions) != "" {
		setCat(&r.PositionCategory, "position_category", PositionCategoryOf(r.Positions))
	}

	if r.MarketValueEUR != nil && r.WageEUR != nil {
		ratio := 0.0
		if *r.WageEUR > 0 {
			ratio = *r.MarketValueEUR / (*r.WageEUR * 52)
		}
		setNum(&r.ValueWageRatio, "value_wage_ratio", ratio)
	}

	if r.ContractValidUntil != nil && r.DataYear != nil {
		setNum(&r.ContractYearsLeft, "contract_years_left", math.Max(0, *r.ContractValidUntil-*r.DataYear))
	}

	return r, derived
}

func averageQuality(r *Record) (float64, bool) {
	var sum float64
	var n int
	for _, p := range []*float64{r.Pace, r.Shooting, r.Passing, r.Dribbling, r.Defending, r.Physic} {
		if p != nil {
			sum += *p
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// AgeCategoryOf buckets an age.
func AgeCategoryOf(age float64) string {
	switch {
	case age <= 23:
		return AgeYoung
	case age <= 30:
		return AgePrime
	default:
		return AgeVeteran
	}
}

// PositionCategoryOf maps a comma separated position list such as "RW, ST".
// The first matching group wins in goalkeeper, defender, midfielder, forward order.
func PositionCategoryOf(positions string) string {
	p := strings.ToUpper(positions)
	has := func(codes ...string) bool {
		for _, c := range codes {
			if strings.Contains(p, c) {
				return true
			}
		}
		return false
	}
	switch {
	case has("GK"):
		return PositionGoalkeeper
	case has("CB", "LB", "RB", "LWB", "RWB"):
		return PositionDefender
	case has("CM", "CDM", "CAM", "LM", "RM"):
		return PositionMidfielder
	case has("ST", "CF", "LW", "RW"):
		return PositionForward
	default:
		return PositionOther
	}
}
