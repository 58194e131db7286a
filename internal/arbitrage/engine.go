// Package arbitrage is the calculation engine for bet spreads: it coerces
// bookmaker legs into numbers, derives profit metrics and decides whether a
// spread is a guaranteed-profit arbitrage. Every function is pure.
package arbitrage

import (
	"math"

	"github.com/alanyoungcy/surebet/internal/domain"
	"github.com/alanyoungcy/surebet/internal/numeric"
)

// BookmakerInput is a leg as it arrives from an edit form or an extraction
// collaborator, with numeric fields that may still be strings.
type BookmakerInput struct {
	Name    string        `json:"name"`
	Odds    numeric.Value `json:"odds"`
	BetType string        `json:"betType"`
	Stake   numeric.Value `json:"stake"`
	Profit  numeric.Value `json:"profit"`
}

// CoerceNumeric parses odds, stake and profit of every leg. Fields that do not
// parse become NaN. A missing or unparseable profit is derived as stake*odds.
func CoerceNumeric(in []BookmakerInput) []domain.Bookmaker {
	out := make([]domain.Bookmaker, len(in))
	for i, b := range in {
		odds := b.Odds.Float()
		stake := b.Stake.Float()
		profit := b.Profit.Float()
		if math.IsNaN(profit) {
			profit = stake * odds
		}
		out[i] = domain.Bookmaker{
			Name:    b.Name,
			Odds:    odds,
			BetType: b.BetType,
			Stake:   stake,
			Profit:  profit,
		}
	}
	return out
}

// TotalStake sums the stakes of all legs.
func TotalStake(bms []domain.Bookmaker) float64 {
	var total float64
	for _, b := range bms {
		total += b.Stake
	}
	return total
}

// OutcomeProfits returns, per leg, the net profit if that leg's outcome
// occurs: stake*odds - totalStake.
func OutcomeProfits(bms []domain.Bookmaker) []float64 {
	total := TotalStake(bms)
	profits := make([]float64, len(bms))
	for i, b := range bms {
		profits[i] = b.Stake*b.Odds - total
	}
	return profits
}

// ImpliedProbabilitySum returns Σ 1/odds. Odds that are not positive have no
// implied probability and turn the sum into NaN.
func ImpliedProbabilitySum(bms []domain.Bookmaker) float64 {
	var sum float64
	for _, b := range bms {
		if !(b.Odds > 0) {
			return math.NaN()
		}
		sum += 1 / b.Odds
	}
	return sum
}

// ComputeMetrics derives the spread metrics. Only one outcome pays out, so the
// guaranteed profit is the minimum over outcomes. A zero total stake yields
// zero percentages rather than infinities; NaN inputs stay NaN.
func ComputeMetrics(bms []domain.Bookmaker) domain.Metrics {
	if len(bms) == 0 {
		return domain.Metrics{}
	}

	total := TotalStake(bms)
	profits := OutcomeProfits(bms)
	worst := profits[0]
	for _, p := range profits[1:] {
		worst = math.Min(worst, p)
	}

	m := domain.Metrics{
		TotalStake:  total,
		TotalProfit: worst,
	}
	switch {
	case math.IsNaN(total) || math.IsNaN(worst):
		m.ProfitPercentage = math.NaN()
	case total != 0:
		m.ProfitPercentage = worst / total * 100
	}
	// roi and profitPercentage are the same figure; both are kept for
	// consumers that read either field.
	m.ROI = m.ProfitPercentage

	sum := ImpliedProbabilitySum(bms)
	switch {
	case math.IsNaN(sum):
		m.ArbitragePercentage = math.NaN()
	case sum != 0:
		m.ArbitragePercentage = 100 / sum
	}
	return m
}

// IsValidArbitrage reports whether the implied probabilities of the legs sum
// strictly below 1, which is necessary for any stake split to profit. A
// single leg is never an arbitrage.
func IsValidArbitrage(bms []domain.Bookmaker) bool {
	if len(bms) < 2 {
		return false
	}
	return ImpliedProbabilitySum(bms) < 1
}
