// Package numeric holds the number parsing and formatting helpers shared by the
// parser, the calculation engine and the notification layer. Raw text follows
// Brazilian conventions (comma as decimal separator) and is normalized to
// float64 here, in one place.
package numeric

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ErrNotNumber is returned by ParseLocale for text that carries no number.
var ErrNotNumber = errors.New("numeric: not a number")

var ptBR = message.NewPrinter(language.BrazilianPortuguese)

// ParseLocale parses a number written with either pt-BR ("1.758,48") or
// en ("1,758.48") separators. Currency symbols and whitespace are ignored.
// When both separators appear the last one is the decimal separator; a
// single separator of either kind is a decimal separator; a separator that
// repeats is a thousands separator.
func ParseLocale(s string) (float64, error) {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-', r == '+':
			return r
		case r == ' ', r == '\u00a0', r == '\t', r == 'R', r == '$', r == '€':
			return -1
		}
		return 'x'
	}, strings.TrimSpace(s))
	if clean == "" || strings.ContainsRune(clean, 'x') {
		return math.NaN(), fmt.Errorf("%w: %q", ErrNotNumber, s)
	}

	lastDot := strings.LastIndex(clean, ".")
	lastComma := strings.LastIndex(clean, ",")
	dots := strings.Count(clean, ".")
	commas := strings.Count(clean, ",")

	switch {
	case dots > 0 && commas > 0:
		if lastComma > lastDot {
			clean = strings.ReplaceAll(clean, ".", "")
			clean = strings.Replace(clean, ",", ".", 1)
		} else {
			clean = strings.ReplaceAll(clean, ",", "")
		}
	case commas == 1:
		clean = strings.Replace(clean, ",", ".", 1)
	case commas > 1:
		clean = strings.ReplaceAll(clean, ",", "")
	case dots > 1:
		clean = strings.ReplaceAll(clean, ".", "")
	}

	f, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return math.NaN(), fmt.Errorf("%w: %q", ErrNotNumber, s)
	}
	return f, nil
}

// ParseAmount parses a monetary amount. It differs from ParseLocale only for
// a lone dot followed by exactly three digits ("1.500"), which reads as a
// thousands separator: stakes and totals carry two decimals, never three.
func ParseAmount(s string) (float64, error) {
	t := strings.TrimSpace(s)
	if strings.Count(t, ".") == 1 && !strings.Contains(t, ",") {
		dot := strings.Index(t, ".")
		frac := t[dot+1:]
		if len(frac) == 3 && isDigits(frac) {
			return ParseLocale(t[:dot] + frac)
		}
	}
	return ParseLocale(s)
}

// isDigits reports whether s is a non-empty run of ASCII digits.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// IsGluedDigits reports whether s is a bare digit run of five or more
// characters, i.e. an amount whose decimal separator was lost by OCR.
func IsGluedDigits(s string) bool {
	return len(s) >= 5 && isDigits(s)
}

// InsertDecimal places a decimal point k digits from the end of digits.
// k must be in [1, len(digits)-1].
func InsertDecimal(digits string, k int) (decimal.Decimal, error) {
	if k < 1 || k >= len(digits) {
		return decimal.Zero, fmt.Errorf("numeric: cannot place decimal %d digits from the end of %q", k, digits)
	}
	return decimal.NewFromString(digits[:len(digits)-k] + "." + digits[len(digits)-k:])
}

// FormatCurrency renders v as Brazilian reais, e.g. "R$ 1.758,48".
func FormatCurrency(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "NaN"
	}
	return "R$ " + ptBR.Sprintf("%.2f", v)
}

// FormatPercent renders v (already multiplied by 100) as "3,04%".
func FormatPercent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "NaN"
	}
	return ptBR.Sprintf("%.2f", v) + "%"
}
