package parser

import (
	"math"
	"strings"
	"testing"
)

const screenshot = `Surebet 3,04%
Flamengo – Palmeiras 3.04%
Futebol / Brasil - Série A
Bet365 1,85 1 175848 3.253,19
Pinnacle 3,80 X 84542 3.212,60
Betano 5,40 2 59610 3.218,94
Aposta total R$ 3.200,00`

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestSplitLines(t *testing.T) {
	got := SplitLines("  a \r\n\r\nb\rc\n\n  \nd  ")
	want := []string{"a", "b", "c", "d"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("SplitLines = %q, want %q", got, want)
	}
}

func TestParseScreenshot(t *testing.T) {
	ext := Parse(screenshot)

	if ext.Match.Team1 != "Flamengo" || ext.Match.Team2 != "Palmeiras" {
		t.Errorf("teams = %q / %q", ext.Match.Team1, ext.Match.Team2)
	}
	if ext.Match.Sport != "Futebol" || ext.Match.Competition != "Brasil - Série A" {
		t.Errorf("sport = %q, competition = %q", ext.Match.Sport, ext.Match.Competition)
	}
	if ext.TotalStake == nil || !approx(*ext.TotalStake, 3200) {
		t.Fatalf("TotalStake = %v", ext.TotalStake)
	}
	if ext.NeedsReview() {
		t.Error("complete screenshot should not need review")
	}

	want := []struct {
		name, betType       string
		odds, stake, profit float64
	}{
		{"Bet365", "1", 1.85, 1758.48, 3253.19},
		{"Pinnacle", "X", 3.80, 845.42, 3212.60},
		{"Betano", "2", 5.40, 596.10, 3218.94},
	}
	if len(ext.Bookmakers) != len(want) {
		t.Fatalf("got %d bookmakers, want %d: %+v", len(ext.Bookmakers), len(want), ext.Bookmakers)
	}
	for i, w := range want {
		b := ext.Bookmakers[i]
		if b.Name != w.name || b.BetType != w.betType {
			t.Errorf("row %d labels = %q/%q, want %q/%q", i, b.Name, b.BetType, w.name, w.betType)
		}
		if !approx(b.Odds, w.odds) || !approx(b.Stake, w.stake) || !approx(b.Profit, w.profit) {
			t.Errorf("row %d = %+v, want odds %v stake %v profit %v", i, b, w.odds, w.stake, w.profit)
		}
	}
}

func TestParseTotalOnNextLine(t *testing.T) {
	ext := Parse("Aposta total\nR$ 3.200,00\nBet365 1,85 175848 3.253,19")
	if ext.TotalStake == nil || !approx(*ext.TotalStake, 3200) {
		t.Fatalf("TotalStake = %v", ext.TotalStake)
	}
	if len(ext.Bookmakers) != 1 || ext.Bookmakers[0].BetType != "" {
		t.Fatalf("bookmakers = %+v", ext.Bookmakers)
	}
}

func TestParseGluedTotal(t *testing.T) {
	ext := Parse("Total apostado 320000")
	if ext.TotalStake == nil || !approx(*ext.TotalStake, 3200) {
		t.Fatalf("TotalStake = %v", ext.TotalStake)
	}
}

func TestParseMalformed(t *testing.T) {
	for _, text := range []string{"", "   \n\n", "garbage ??? 12", "Data 12-10-2024"} {
		ext := Parse(text)
		if !ext.NeedsReview() {
			t.Errorf("Parse(%q) should need review: %+v", text, ext)
		}
		if len(ext.Bookmakers) != 0 {
			t.Errorf("Parse(%q) found bookmakers %+v", text, ext.Bookmakers)
		}
	}
}

func TestParseRow(t *testing.T) {
	tests := []struct {
		line string
		ok   bool
		want Row
	}{
		{"Bet365 1.85 1,758.48 3,253.19", true, Row{Name: "Bet365", Odds: "1.85", Stake: "1,758.48", Profit: "3,253.19"}},
		{"Pinnacle 2,10 X2 R$ 845,42 R$ 1.775,38", true, Row{Name: "Pinnacle", Odds: "2,10", BetType: "X2", Stake: "845,42", Profit: "1.775,38"}},
		{"• 1xBet 2,891 Over 2.5 59610 1.723,33", true, Row{Name: "1xBet", Odds: "2,891", BetType: "Over 2.5", Stake: "59610", Profit: "1.723,33"}},
		{"Flamengo - Palmeiras 3.04%", false, Row{}},
		{"Aposta total R$ 3.200,00", false, Row{}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := ParseRow(tt.line)
			if ok != tt.ok {
				t.Fatalf("ParseRow ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("ParseRow = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSplitSportWithoutCompetition(t *testing.T) {
	ext := Parse("Tênis 2,5%\nSinner - Alcaraz")
	if ext.Match.Sport != "Tênis" || ext.Match.Competition != "" {
		t.Errorf("sport = %q, competition = %q", ext.Match.Sport, ext.Match.Competition)
	}
	if ext.Match.Team1 != "Sinner" || ext.Match.Team2 != "Alcaraz" {
		t.Errorf("teams = %q / %q", ext.Match.Team1, ext.Match.Team2)
	}
}

func TestParseThousandsTotal(t *testing.T) {
	ext := Parse("Bet365 2,10 75000 1.575,00\nPinnacle 2,20 75000 1.650,00\nAposta total R$ 1.500")
	if ext.TotalStake == nil || !approx(*ext.TotalStake, 1500) {
		t.Fatalf("TotalStake = %v", ext.TotalStake)
	}
	if len(ext.Bookmakers) != 2 {
		t.Fatalf("bookmakers = %+v", ext.Bookmakers)
	}
	for i, want := range []float64{750, 750} {
		if b := ext.Bookmakers[i]; !approx(b.Stake, want) {
			t.Errorf("row %d stake = %v, want %v", i, b.Stake, want)
		}
	}
	if !approx(ext.Bookmakers[1].Profit, 1650) {
		t.Errorf("profit = %v", ext.Bookmakers[1].Profit)
	}
}

func TestParseClubNameWithSportWord(t *testing.T) {
	ext := Parse("Futebol Clube do Porto - Benfica\nFutebol / Liga Portugal")
	if ext.Match.Team1 != "Futebol Clube do Porto" || ext.Match.Team2 != "Benfica" {
		t.Errorf("teams = %q / %q", ext.Match.Team1, ext.Match.Team2)
	}
	if ext.Match.Sport != "Futebol" || ext.Match.Competition != "Liga Portugal" {
		t.Errorf("sport = %q, competition = %q", ext.Match.Sport, ext.Match.Competition)
	}
}
