package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/surebet/internal/domain"
	"github.com/alanyoungcy/surebet/internal/service"
)

// RecordService defines the methods the record handlers need.
type RecordService interface {
	Create(ctx context.Context, in service.RecordInput) (domain.ArbitrageRecord, error)
	Update(ctx context.Context, id string, in service.RecordInput) (domain.ArbitrageRecord, error)
	Get(ctx context.Context, id string) (domain.ArbitrageRecord, error)
	List(ctx context.Context, opts domain.ListOpts) ([]domain.ArbitrageRecord, error)
	Delete(ctx context.Context, id string) error
	Summary(ctx context.Context, opts domain.ListOpts) (service.Summary, error)
}

// RecordHandler serves CRUD over saved arbitrage records.
type RecordHandler struct {
	svc    RecordService
	logger *slog.Logger
}

// NewRecordHandler creates a RecordHandler.
func NewRecordHandler(svc RecordService, logger *slog.Logger) *RecordHandler {
	return &RecordHandler{svc: svc, logger: logger}
}

type recordListResponse struct {
	Records []domain.ArbitrageRecord `json:"records"`
	Count   int                      `json:"count"`
	Limit   int                      `json:"limit"`
	Offset  int                      `json:"offset"`
}

// List returns records newest first.
// GET /api/records?limit=50&offset=0&status=processed&since=...&until=...
func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOpts(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	recs, err := h.svc.List(r.Context(), opts)
	if err != nil {
		writeServiceError(w, r, h.logger, "list records", err)
		return
	}
	if recs == nil {
		recs = []domain.ArbitrageRecord{}
	}
	writeJSON(w, http.StatusOK, recordListResponse{
		Records: recs,
		Count:   len(recs),
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}

// Create saves a new record with freshly computed metrics.
// POST /api/records
func (h *RecordHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.RecordInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := h.svc.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, h.logger, "create record", err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// Get returns one record.
// GET /api/records/{id}
func (h *RecordHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, h.logger, "get record", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Update replaces the editable fields of a record.
// PUT /api/records/{id}
func (h *RecordHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in service.RecordInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := h.svc.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeServiceError(w, r, h.logger, "update record", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Delete removes a record.
// DELETE /api/records/{id}
func (h *RecordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, h.logger, "delete record", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Summary aggregates the records matching the same filters as List.
// GET /api/records/summary
func (h *RecordHandler) Summary(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOpts(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sum, err := h.svc.Summary(r.Context(), opts)
	if err != nil {
		writeServiceError(w, r, h.logger, "record summary", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
