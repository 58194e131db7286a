package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/surebet/internal/domain"
	"github.com/alanyoungcy/surebet/internal/service"
)

// ExportService defines the methods the export handlers need.
type ExportService interface {
	Export(ctx context.Context) (service.ExportResult, error)
	Exports(ctx context.Context) ([]domain.BlobInfo, error)
}

// ExportHandler triggers and lists JSONL exports of the record store.
type ExportHandler struct {
	svc    ExportService
	logger *slog.Logger
}

// NewExportHandler creates an ExportHandler.
func NewExportHandler(svc ExportService, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{svc: svc, logger: logger}
}

// Create writes a new export. A concurrent export answers 409.
// POST /api/exports
func (h *ExportHandler) Create(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Export(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "export records", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// List returns previous exports, newest first.
// GET /api/exports
func (h *ExportHandler) List(w http.ResponseWriter, r *http.Request) {
	infos, err := h.svc.Exports(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "list exports", err)
		return
	}
	if infos == nil {
		infos = []domain.BlobInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"exports": infos})
}
