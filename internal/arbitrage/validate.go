package arbitrage

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/alanyoungcy/surebet/internal/domain"
)

// Validation is the verdict on a bet spread.
type Validation struct {
	IsValid        bool
	Message        string
	Metrics        domain.Metrics
	OutcomeProfits []float64
}

// MarshalJSON encodes non-finite outcome profits as null.
func (v Validation) MarshalJSON() ([]byte, error) {
	profits := make([]*float64, len(v.OutcomeProfits))
	for i, p := range v.OutcomeProfits {
		if !math.IsNaN(p) && !math.IsInf(p, 0) {
			profits[i] = &p
		}
	}
	return json.Marshal(struct {
		IsValid        bool           `json:"isValid"`
		Message        string         `json:"message"`
		Metrics        domain.Metrics `json:"metrics"`
		OutcomeProfits []*float64     `json:"outcomeProfits"`
	}{v.IsValid, v.Message, v.Metrics, profits})
}

// ValidateAndCalculateArbitrage coerces the raw legs and validates them.
func ValidateAndCalculateArbitrage(in []BookmakerInput) Validation {
	return Validate(CoerceNumeric(in))
}

// Validate recomputes metrics and accepts the spread only when every outcome
// profit is strictly positive. An invalid verdict lists each outcome profit.
func Validate(bms []domain.Bookmaker) Validation {
	v := Validation{
		Metrics:        ComputeMetrics(bms),
		OutcomeProfits: OutcomeProfits(bms),
	}

	total := v.Metrics.TotalStake
	switch {
	case len(bms) == 0:
		v.Message = "not a valid arbitrage: no bookmakers"
		return v
	case math.IsNaN(total) || math.IsInf(total, 0):
		v.Message = "not a valid arbitrage: total stake is not a number; " + describe(bms, v.OutcomeProfits)
		return v
	case total <= 0:
		v.Message = fmt.Sprintf("not a valid arbitrage: total stake must be positive, got %.2f; ", total) +
			describe(bms, v.OutcomeProfits)
		return v
	case len(bms) < 2:
		v.Message = "not a valid arbitrage: a spread needs at least two bookmakers; " +
			describe(bms, v.OutcomeProfits)
		return v
	}

	for _, p := range v.OutcomeProfits {
		// NaN fails this comparison too.
		if !(p > 0) {
			v.Message = "not a valid arbitrage: " + describe(bms, v.OutcomeProfits)
			return v
		}
	}

	v.IsValid = true
	v.Message = fmt.Sprintf("valid arbitrage: guaranteed profit %.2f (%.2f%%) on %.2f staked",
		v.Metrics.TotalProfit, v.Metrics.ProfitPercentage, total)
	return v
}

func describe(bms []domain.Bookmaker, profits []float64) string {
	parts := make([]string, len(profits))
	for i, p := range profits {
		name := bms[i].Name
		if name == "" {
			name = fmt.Sprintf("#%d", i+1)
		}
		parts[i] = fmt.Sprintf("%s %.2f", name, p)
	}
	return "outcome profits " + strings.Join(parts, ", ")
}
