// Package parser recovers a bet spread from OCR text of a surebet screenshot.
// It never fails: whatever cannot be recognized is left empty and the caller
// decides whether the result needs a manual edit.
package parser

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/alanyoungcy/surebet/internal/domain"
	"github.com/alanyoungcy/surebet/internal/numeric"
)

var (
	lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

	// name, odds, optional bet type, stake, profit
	rowRE = regexp.MustCompile(`^[^A-Za-z0-9]*` +
		`([A-Za-z0-9][A-Za-z0-9 .()'&+\-]*?)\s+` +
		`(\d{1,3}[.,]\d{2,3})\s+` +
		`(?:(\S+(?:\s+\S+)*?)\s+)?` +
		`(?:R\$\s*)?(\d{1,3}(?:\.\d{3})+,\d{1,2}|\d{1,3}(?:,\d{3})+\.\d{1,2}|\d+[.,]\d{1,2}|\d{5,})\s+` +
		`(?:R\$\s*)?(-?\d{1,3}(?:\.\d{3})+,\d{2}|-?\d{1,3}(?:,\d{3})+\.\d{2}|-?\d+[.,]\d{2})` +
		`\D*$`)

	spacedSepRE = regexp.MustCompile(`\s+[-–—]\s+|\s*[–—]\s*`)
	bareSepRE   = regexp.MustCompile(`-`)
	percentRE   = regexp.MustCompile(`\s*[-+]?\d+(?:[.,]\d+)?\s*%.*$`)
	sportRE     = regexp.MustCompile(`(?i)\b(futebol|football|soccer|basquete|basketball|basquetebol|t[eê]nis|tennis|v[oô]lei|volleyball|voleibol|league of legends|lol|e-?sports?|h[oó]quei|hockey|handebol|handball)\b`)
	totalRE     = regexp.MustCompile(`(?i)(aposta\s+total|total\s+apostado|total\s+stake|investimento\s+total)`)
	amountRE    = regexp.MustCompile(`\d[\d.,]*\d|\d`)
)

// Row is a bet row as captured from text, before any number is trusted.
type Row struct {
	Name    string
	Odds    string
	BetType string
	Stake   string
	Profit  string
}

// SplitLines splits on any newline variant, trims and drops empty lines.
func SplitLines(text string) []string {
	raw := strings.Split(lineBreaks.Replace(text), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// Parse extracts the match header, total stake and bookmaker rows from text
// and resolves glued stakes against the total.
func Parse(text string) domain.Extraction {
	lines := SplitLines(text)

	var ext domain.Extraction
	var rows []Row
	for i, line := range lines {
		if row, ok := ParseRow(line); ok {
			rows = append(rows, row)
			continue
		}

		if ext.TotalStake == nil && totalRE.MatchString(line) {
			if v, ok := totalAmount(line, lines, i); ok {
				ext.TotalStake = &v
			}
			continue
		}

		// A club name may contain a sport word ("Futebol Clube do Porto"), so
		// a line with a team separator and no "/" is a fixture.
		t1, t2, isTeams := splitTeams(line)
		if ext.Match.Sport == "" && sportRE.MatchString(line) &&
			(strings.Contains(line, "/") || !isTeams) {
			ext.Match.Sport, ext.Match.Competition = splitSport(line)
			continue
		}

		if isTeams && ext.Match.Team1 == "" && ext.Match.Team2 == "" {
			ext.Match.Team1, ext.Match.Team2 = t1, t2
		}
	}

	stakes := make([]string, len(rows))
	for i, r := range rows {
		stakes[i] = r.Stake
	}
	chosen, warnings := Disambiguate(stakes, ext.TotalStake)
	ext.Warnings = append(ext.Warnings, warnings...)

	ext.Bookmakers = make([]domain.Bookmaker, len(rows))
	for i, r := range rows {
		odds, _ := numeric.ParseLocale(r.Odds)
		profit, _ := numeric.ParseAmount(r.Profit)
		ext.Bookmakers[i] = domain.Bookmaker{
			Name:    r.Name,
			Odds:    odds,
			BetType: r.BetType,
			Stake:   chosen[i],
			Profit:  profit,
		}
	}
	return ext
}

// ParseRow matches a single bet row.
func ParseRow(line string) (Row, bool) {
	m := rowRE.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return Row{}, false
	}
	return Row{
		Name:    strings.TrimSpace(m[1]),
		Odds:    m[2],
		BetType: strings.TrimSpace(m[3]),
		Stake:   m[4],
		Profit:  m[5],
	}, true
}

func splitTeams(line string) (string, string, bool) {
	parts := spacedSepRE.Split(line, 2)
	if len(parts) != 2 {
		parts = bareSepRE.Split(line, 2)
	}
	if len(parts) != 2 {
		return "", "", false
	}
	t1 := strings.TrimSpace(parts[0])
	t2 := strings.TrimSpace(percentRE.ReplaceAllString(parts[1], ""))
	if !hasLetter(t1) || !hasLetter(t2) {
		return "", "", false
	}
	return t1, t2, true
}

func hasLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}

func splitSport(line string) (sport, competition string) {
	before, after, found := strings.Cut(line, "/")
	sport = strings.TrimSpace(percentRE.ReplaceAllString(before, ""))
	if found {
		competition = strings.TrimSpace(percentRE.ReplaceAllString(after, ""))
	}
	return sport, competition
}

// totalAmount reads the amount after a total label, looking at the next line
// when the label stands alone.
func totalAmount(line string, lines []string, i int) (float64, bool) {
	loc := totalRE.FindStringIndex(line)
	if v, ok := amount(line[loc[1]:]); ok {
		return v, true
	}
	if i+1 < len(lines) {
		return amount(lines[i+1])
	}
	return 0, false
}

func amount(s string) (float64, bool) {
	raw := amountRE.FindString(s)
	if raw == "" {
		return 0, false
	}
	if numeric.IsGluedDigits(raw) {
		d, err := numeric.InsertDecimal(raw, 2)
		if err != nil {
			return 0, false
		}
		return d.InexactFloat64(), true
	}
	v, err := numeric.ParseAmount(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
