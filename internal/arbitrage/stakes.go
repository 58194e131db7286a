package arbitrage

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/surebet/internal/domain"
)

var (
	// ErrNotArbitrage marks a business-rule rejection: the odds cannot yield
	// a guaranteed profit at any stake split.
	ErrNotArbitrage = errors.New("arbitrage: odds do not form an arbitrage")
	ErrNoBookmakers = errors.New("arbitrage: no bookmakers")
	ErrInvalidInput = errors.New("arbitrage: invalid input")
)

// RejectionError carries the implied probability sum of a rejected spread.
// It unwraps to ErrNotArbitrage.
type RejectionError struct {
	ImpliedSum float64
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("arbitrage: not profitable: implied probabilities sum to %.4f, must be below 1", e.ImpliedSum)
}

func (e *RejectionError) Unwrap() error { return ErrNotArbitrage }

// CalculateOptimalStakes splits totalInvestment across the legs in proportion
// to their implied probabilities, which equalizes stake*odds over all
// outcomes. Names and bet types are preserved; profit is set to the payout.
func CalculateOptimalStakes(bms []domain.Bookmaker, totalInvestment float64) ([]domain.Bookmaker, error) {
	sum, err := checkSpread(bms)
	if err != nil {
		return nil, err
	}
	if !(totalInvestment > 0) || math.IsInf(totalInvestment, 0) {
		return nil, fmt.Errorf("%w: total investment must be positive, got %v", ErrInvalidInput, totalInvestment)
	}
	return split(bms, totalInvestment, sum), nil
}

// CalculateOptimalStakesForProfit sizes the proportional split so that the
// guaranteed profit equals targetProfit: T = target / (1 - Σ 1/odds).
func CalculateOptimalStakesForProfit(bms []domain.Bookmaker, targetProfit float64) ([]domain.Bookmaker, error) {
	sum, err := checkSpread(bms)
	if err != nil {
		return nil, err
	}
	if !(targetProfit > 0) || math.IsInf(targetProfit, 0) {
		return nil, fmt.Errorf("%w: target profit must be positive, got %v", ErrInvalidInput, targetProfit)
	}
	return split(bms, targetProfit/(1-sum), sum), nil
}

// RoundStakes rounds every stake to the nearest multiple of step and
// recomputes the payout. Bookmakers rarely accept cents-precise stakes, so
// this is applied after an optimal split. A non-positive step returns a copy.
func RoundStakes(bms []domain.Bookmaker, step float64) []domain.Bookmaker {
	out := make([]domain.Bookmaker, len(bms))
	copy(out, bms)
	if !(step > 0) {
		return out
	}
	s := decimal.NewFromFloat(step)
	for i := range out {
		if math.IsNaN(out[i].Stake) || math.IsInf(out[i].Stake, 0) {
			continue
		}
		stake := decimal.NewFromFloat(out[i].Stake).Div(s).Round(0).Mul(s)
		out[i].Stake = stake.InexactFloat64()
		out[i].Profit = stake.Mul(decimal.NewFromFloat(out[i].Odds)).InexactFloat64()
	}
	return out
}

func checkSpread(bms []domain.Bookmaker) (float64, error) {
	switch len(bms) {
	case 0:
		return 0, ErrNoBookmakers
	case 1:
		return 0, fmt.Errorf("%w: a spread needs at least two bookmakers", ErrInvalidInput)
	}
	for i, b := range bms {
		if !(b.Odds > 0) || math.IsInf(b.Odds, 0) {
			return 0, fmt.Errorf("%w: bookmaker %d has odds %v", ErrInvalidInput, i+1, b.Odds)
		}
	}
	sum := ImpliedProbabilitySum(bms)
	if sum >= 1 {
		return 0, &RejectionError{ImpliedSum: sum}
	}
	return sum, nil
}

func split(bms []domain.Bookmaker, total, sum float64) []domain.Bookmaker {
	out := make([]domain.Bookmaker, len(bms))
	for i, b := range bms {
		stake := total * (1 / b.Odds) / sum
		out[i] = domain.Bookmaker{
			Name:    b.Name,
			Odds:    b.Odds,
			BetType: b.BetType,
			Stake:   stake,
			Profit:  stake * b.Odds,
		}
	}
	return out
}
