package domain

import (
	"encoding/json"
	"math"
	"time"
)

// Bookmaker is one leg of a bet spread.
type Bookmaker struct {
	Name    string
	Odds    float64
	BetType string
	Stake   float64
	// Profit is the payout stake*odds before the cross-bookmaker adjustment.
	Profit float64
}

// Match describes the event a spread is placed on. Any field may be empty
// when extraction failed.
type Match struct {
	Team1       string `json:"team1"`
	Team2       string `json:"team2"`
	Sport       string `json:"sport"`
	Competition string `json:"competition"`
}

// Metrics is always derived from a bookmaker list, never authored.
type Metrics struct {
	TotalProfit         float64
	ProfitPercentage    float64
	ROI                 float64
	TotalStake          float64
	ArbitragePercentage float64
}

// RecordStatus is the lifecycle state of an ArbitrageRecord.
type RecordStatus string

const (
	RecordProcessed RecordStatus = "processed"
	RecordPending   RecordStatus = "pending"
	RecordError     RecordStatus = "error"
)

// Valid reports whether s is one of the known statuses.
func (s RecordStatus) Valid() bool {
	switch s {
	case RecordProcessed, RecordPending, RecordError:
		return true
	}
	return false
}

// ArbitrageRecord is a confirmed bet spread as shown on the dashboard.
type ArbitrageRecord struct {
	ID         string       `json:"id"`
	Timestamp  time.Time    `json:"timestamp"`
	Match      Match        `json:"match"`
	Bookmakers []Bookmaker  `json:"bookmakers"`
	Metrics    Metrics      `json:"metrics"`
	Status     RecordStatus `json:"status"`
	RawText    string       `json:"rawText,omitempty"`
	ImagePath  string       `json:"imagePath,omitempty"`
}

// Extraction is the best-effort structure recovered from OCR text, either by
// the local parser or by the structured-extraction collaborator.
type Extraction struct {
	Match      Match       `json:"match"`
	Bookmakers []Bookmaker `json:"bookmakers"`
	// TotalStake is the total found in the text, nil when none was found.
	TotalStake *float64 `json:"totalStake,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// NeedsReview reports whether the caller should prompt for a manual edit.
func (e Extraction) NeedsReview() bool {
	return e.Match.Team1 == "" || e.Match.Team2 == "" || len(e.Bookmakers) == 0
}

// finite maps NaN and ±Inf to nil so they encode as JSON null instead of
// failing the whole document.
func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

type bookmakerJSON struct {
	Name    string   `json:"name"`
	Odds    *float64 `json:"odds"`
	BetType string   `json:"betType"`
	Stake   *float64 `json:"stake"`
	Profit  *float64 `json:"profit"`
}

// MarshalJSON implements json.Marshaler.
func (b Bookmaker) MarshalJSON() ([]byte, error) {
	return json.Marshal(bookmakerJSON{
		Name:    b.Name,
		Odds:    finite(b.Odds),
		BetType: b.BetType,
		Stake:   finite(b.Stake),
		Profit:  finite(b.Profit),
	})
}

// UnmarshalJSON implements json.Unmarshaler. Null numbers decode as NaN.
func (b *Bookmaker) UnmarshalJSON(data []byte) error {
	var v bookmakerJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*b = Bookmaker{
		Name:    v.Name,
		Odds:    orNaN(v.Odds),
		BetType: v.BetType,
		Stake:   orNaN(v.Stake),
		Profit:  orNaN(v.Profit),
	}
	return nil
}

type metricsJSON struct {
	TotalProfit         *float64 `json:"totalProfit"`
	ProfitPercentage    *float64 `json:"profitPercentage"`
	ROI                 *float64 `json:"roi"`
	TotalStake          *float64 `json:"totalStake"`
	ArbitragePercentage *float64 `json:"arbitragePercentage"`
}

// MarshalJSON implements json.Marshaler.
func (m Metrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(metricsJSON{
		TotalProfit:         finite(m.TotalProfit),
		ProfitPercentage:    finite(m.ProfitPercentage),
		ROI:                 finite(m.ROI),
		TotalStake:          finite(m.TotalStake),
		ArbitragePercentage: finite(m.ArbitragePercentage),
	})
}

// UnmarshalJSON implements json.Unmarshaler. Null numbers decode as NaN.
func (m *Metrics) UnmarshalJSON(data []byte) error {
	var v metricsJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Metrics{
		TotalProfit:         orNaN(v.TotalProfit),
		ProfitPercentage:    orNaN(v.ProfitPercentage),
		ROI:                 orNaN(v.ROI),
		TotalStake:          orNaN(v.TotalStake),
		ArbitragePercentage: orNaN(v.ArbitragePercentage),
	}
	return nil
}

func orNaN(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}
