package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/surebet/internal/arbitrage"
	"github.com/alanyoungcy/surebet/internal/domain"
)

// CalculateHandler exposes the arbitrage engine directly. It is stateless.
type CalculateHandler struct {
	stakeStep float64
	logger    *slog.Logger
}

// NewCalculateHandler creates a CalculateHandler. stakeStep is the rounding
// applied to optimal stakes; zero leaves them unrounded.
func NewCalculateHandler(stakeStep float64, logger *slog.Logger) *CalculateHandler {
	return &CalculateHandler{stakeStep: stakeStep, logger: logger}
}

type validateRequest struct {
	Bookmakers []arbitrage.BookmakerInput `json:"bookmakers"`
}

// Validate recomputes metrics for the submitted legs and returns the verdict.
// POST /api/calculate/validate {"bookmakers": [...]}
func (h *CalculateHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, arbitrage.ValidateAndCalculateArbitrage(req.Bookmakers))
}

type stakesRequest struct {
	Bookmakers      []arbitrage.BookmakerInput `json:"bookmakers"`
	TotalInvestment *float64                   `json:"totalInvestment,omitempty"`
	TargetProfit    *float64                   `json:"targetProfit,omitempty"`
}

type stakesResponse struct {
	Bookmakers []domain.Bookmaker   `json:"bookmakers"`
	Validation arbitrage.Validation `json:"validation"`
}

// Stakes splits an investment (or sizes one for a target profit) across the
// legs so every outcome pays the same.
// POST /api/calculate/stakes {"bookmakers": [...], "totalInvestment": 1000}
func (h *CalculateHandler) Stakes(w http.ResponseWriter, r *http.Request) {
	var req stakesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if (req.TotalInvestment == nil) == (req.TargetProfit == nil) {
		writeError(w, http.StatusBadRequest, "exactly one of totalInvestment or targetProfit is required")
		return
	}

	bms := arbitrage.CoerceNumeric(req.Bookmakers)
	var (
		stakes []domain.Bookmaker
		err    error
	)
	if req.TotalInvestment != nil {
		stakes, err = arbitrage.CalculateOptimalStakes(bms, *req.TotalInvestment)
	} else {
		stakes, err = arbitrage.CalculateOptimalStakesForProfit(bms, *req.TargetProfit)
	}
	if err != nil {
		writeServiceError(w, r, h.logger, "calculate stakes", fmt.Errorf("calculate stakes: %w", err))
		return
	}

	stakes = arbitrage.RoundStakes(stakes, h.stakeStep)
	writeJSON(w, http.StatusOK, stakesResponse{
		Bookmakers: stakes,
		Validation: arbitrage.Validate(stakes),
	})
}
