// Package types contains common types used across the application
package types

import (
	"fmt"
	"math"
	"strconv"
)

// Prediction is the result of scoring one player.
type Prediction struct {
	PredictedValue     float64  `json:"predicted_value_eur"`
	ActualValue        *float64 `json:"actual_value_eur,omitempty"`
	Classification     string   `json:"classification"`
	Difference         *float64 `json:"difference_eur,omitempty"`
	RelativeDifference *float64 `json:"relative_difference,omitempty"`
	Tolerance          float64  `json:"tolerance"`
}

// Entry represents one row of a valuation ranking
type Entry struct {
	Rank               int      `json:"rank"`
	PlayerID           string   `json:"player_id,omitempty"`
	Name               string   `json:"name"`
	Club               string   `json:"club,omitempty"`
	League             string   `json:"league,omitempty"`
	Position           string   `json:"position,omitempty"`
	Nationality        string   `json:"nationality,omitempty"`
	Age                *float64 `json:"age,omitempty"`
	PredictedValue     float64  `json:"predicted_value_eur"`
	ActualValue        float64  `json:"actual_value_eur"`
	Difference         float64  `json:"difference_eur"`
	RelativeDifference float64  `json:"relative_difference"`
	Classification     string   `json:"classification"`
}

// FormatEUR renders amounts of a million or more as "€5.20M" and smaller
// ones with thousands separators, "€850,000".
func FormatEUR(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + formatAbs(v)
}

// FormatSignedEUR is FormatEUR with an explicit "+" for positive amounts.
func FormatSignedEUR(v float64) string {
	if v > 0 {
		return "+" + formatAbs(v)
	}
	return FormatEUR(v)
}

func formatAbs(v float64) string {
	if v >= 1_000_000 {
		return fmt.Sprintf("€%.2fM", v/1_000_000)
	}
	return "€" + groupThousands(int64(math.Round(v)))
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	out := make([]byte, 0, len(s)+len(s)/3)
	pre := len(s) % 3
	if pre > 0 {
		out = append(out, s[:pre]...)
	}
	for i := pre; i < len(s); i += 3 {
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}
