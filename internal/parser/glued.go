package parser

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/surebet/internal/numeric"
)

// MaxRows bounds the exhaustive stake search. Larger inputs fall back to the
// first candidate of every row.
const MaxRows = 8

// Candidates returns the plausible readings of a stake field. A bare digit
// run of five or more characters lost its decimal separator to OCR, so every
// placement k digits from the end, k in [2, min(4, len-1)], is a candidate,
// in increasing k. Anything else has exactly one reading. Text that does not
// parse has none.
func Candidates(stake string) []decimal.Decimal {
	s := strings.TrimSpace(stake)
	if numeric.IsGluedDigits(s) {
		hi := min(4, len(s)-1)
		out := make([]decimal.Decimal, 0, hi-1)
		for k := 2; k <= hi; k++ {
			d, err := numeric.InsertDecimal(s, k)
			if err != nil {
				continue
			}
			out = append(out, d)
		}
		return out
	}

	f, err := numeric.ParseAmount(s)
	if err != nil {
		return nil
	}
	return []decimal.Decimal{decimal.NewFromFloat(f)}
}

// Disambiguate picks one reading per stake so that the stakes sum as close
// as possible to total. The search is exhaustive over the Cartesian product
// of candidates; on ties the first combination in enumeration order wins.
// Without a total, or past MaxRows, the first candidate of each row is used.
// Stakes with no reading come back as NaN and do not take part in the sum.
func Disambiguate(stakes []string, total *float64) ([]float64, []string) {
	cands := make([][]decimal.Decimal, len(stakes))
	for i, s := range stakes {
		cands[i] = Candidates(s)
	}

	var warnings []string
	choice := make([]int, len(stakes))
	switch {
	case total == nil || math.IsNaN(*total):
	case len(stakes) > MaxRows:
		warnings = append(warnings, fmt.Sprintf("%d bet rows exceed the limit of %d, glued stakes were not disambiguated", len(stakes), MaxRows))
	default:
		choice = search(cands, decimal.NewFromFloat(*total))
	}

	out := make([]float64, len(stakes))
	for i, c := range cands {
		if len(c) == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = c[choice[i]].InexactFloat64()
	}
	return out, warnings
}

// search walks every combination like an odometer, last row fastest.
func search(cands [][]decimal.Decimal, target decimal.Decimal) []int {
	idx := make([]int, len(cands))
	best := make([]int, len(cands))
	var bestDiff decimal.Decimal
	first := true

	for {
		sum := decimal.Zero
		for i, c := range cands {
			if len(c) > 0 {
				sum = sum.Add(c[idx[i]])
			}
		}
		diff := sum.Sub(target).Abs()
		if first || diff.LessThan(bestDiff) {
			bestDiff = diff
			copy(best, idx)
			first = false
		}

		i := len(cands) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(cands[i]) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return best
		}
	}
}
