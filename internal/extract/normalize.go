package extract

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/alanyoungcy/surebet/internal/arbitrage"
	"github.com/alanyoungcy/surebet/internal/domain"
	"github.com/alanyoungcy/surebet/internal/numeric"
	"github.com/alanyoungcy/surebet/internal/parser"
)

// Candidate is the collaborator's answer before anything in it is trusted.
type Candidate struct {
	Match      domain.Match               `json:"match"`
	Bookmakers []arbitrage.BookmakerInput `json:"bookmakers"`
}

var (
	fenceRE = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	// 2.891 rendered as 1.2891
	oddsPrefixRE = regexp.MustCompile(`^1[.,](\d)(\d{3})$`)
)

// DecodeResponse pulls the JSON object out of the model's content, tolerating
// code fences and prose around it.
func DecodeResponse(content string) (Candidate, error) {
	s := strings.TrimSpace(content)
	if m := fenceRE.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return Candidate{}, fmt.Errorf("%w: no JSON object in content", ErrMalformedResponse)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s[start:end+1]), &probe); err != nil {
		return Candidate{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if _, ok := probe["bookmakers"]; !ok {
		return Candidate{}, fmt.Errorf("%w: missing bookmakers", ErrMalformedResponse)
	}

	var c Candidate
	if err := json.Unmarshal([]byte(s[start:end+1]), &c); err != nil {
		return Candidate{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return c, nil
}

// FixOdds undoes the "1." prefix some models put in front of odds with three
// fraction digits.
func FixOdds(v numeric.Value) float64 {
	raw := strings.TrimSpace(v.Raw())
	if m := oddsPrefixRE.FindStringSubmatch(raw); m != nil {
		if f, err := strconv.ParseFloat(m[1]+"."+m[2], 64); err == nil && f > 1 {
			return f
		}
	}
	return v.Float()
}

// stakeText returns the text to disambiguate for a stake: bare digit runs as
// they are, integral amounts above MaxStake as their digits. Other numbers are
// rendered plainly and strings are left for the locale parser.
func stakeText(v numeric.Value) string {
	raw := strings.TrimSpace(v.Raw())
	if numeric.IsGluedDigits(raw) {
		return raw
	}
	f := v.Float()
	if f > MaxStake && f == math.Trunc(f) && f < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	if !v.IsText() && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return raw
}

// Normalize turns a candidate into an Extraction: odds are repaired, stakes
// are re-disambiguated against total (usually anchored by the local parser)
// and missing profits are derived as stake*odds.
func Normalize(c Candidate, total *float64) domain.Extraction {
	ext := domain.Extraction{
		Match: domain.Match{
			Team1:       strings.TrimSpace(c.Match.Team1),
			Team2:       strings.TrimSpace(c.Match.Team2),
			Sport:       strings.TrimSpace(c.Match.Sport),
			Competition: strings.TrimSpace(c.Match.Competition),
		},
		TotalStake: total,
	}

	stakes := make([]string, len(c.Bookmakers))
	for i, b := range c.Bookmakers {
		stakes[i] = stakeText(b.Stake)
	}
	chosen, warnings := parser.Disambiguate(stakes, total)
	ext.Warnings = append(ext.Warnings, warnings...)

	ext.Bookmakers = make([]domain.Bookmaker, len(c.Bookmakers))
	for i, b := range c.Bookmakers {
		odds := FixOdds(b.Odds)
		if odds > MaxOdds {
			ext.Warnings = append(ext.Warnings, fmt.Sprintf("odds %v for %q exceed %v", odds, b.Name, MaxOdds))
		}
		if chosen[i] > MaxStake {
			ext.Warnings = append(ext.Warnings, fmt.Sprintf("stake %v for %q exceeds %v", chosen[i], b.Name, MaxStake))
		}
		profit := b.Profit.Float()
		if math.IsNaN(profit) {
			profit = chosen[i] * odds
		}
		ext.Bookmakers[i] = domain.Bookmaker{
			Name:    strings.TrimSpace(b.Name),
			Odds:    odds,
			BetType: strings.TrimSpace(b.BetType),
			Stake:   chosen[i],
			Profit:  profit,
		}
	}
	return ext
}
