package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alanyoungcy/surebet/internal/domain"
	"github.com/alanyoungcy/surebet/internal/service"
)

// AnalysisService defines the methods the analyze handlers need.
type AnalysisService interface {
	AnalyzeText(ctx context.Context, text string) (service.Analysis, error)
	AnalyzeImage(ctx context.Context, image []byte, filename string) (service.Analysis, error)
}

// AnalyzeHandler serves screenshot and text analysis.
type AnalyzeHandler struct {
	svc       AnalysisService
	maxUpload int64
	logger    *slog.Logger
}

// NewAnalyzeHandler creates an AnalyzeHandler. maxUploadMB bounds image
// uploads; zero means 10 MB.
func NewAnalyzeHandler(svc AnalysisService, maxUploadMB int, logger *slog.Logger) *AnalyzeHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	return &AnalyzeHandler{svc: svc, maxUpload: int64(maxUploadMB) << 20, logger: logger}
}

type analyzeTextRequest struct {
	Text string `json:"text"`
}

// AnalyzeText runs extraction and validation over pasted text.
// POST /api/analyze/text {"text": "..."}
func (h *AnalyzeHandler) AnalyzeText(w http.ResponseWriter, r *http.Request) {
	var req analyzeTextRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	a, err := h.svc.AnalyzeText(r.Context(), req.Text)
	if err != nil {
		writeServiceError(w, r, h.logger, "analyze text", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// AnalyzeImage runs OCR, extraction and validation over an uploaded
// screenshot.
// POST /api/analyze/image (multipart, field "image")
func (h *AnalyzeHandler) AnalyzeImage(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxUpload+(1<<20) {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d MB", h.maxUpload>>20))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+(1<<20))
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d MB", h.maxUpload>>20))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, `multipart field "image" is required`)
		return
	}
	defer file.Close()

	if header.Size > h.maxUpload {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d MB", h.maxUpload>>20))
		return
	}
	image, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}
	if len(image) == 0 {
		writeServiceError(w, r, h.logger, "analyze image", fmt.Errorf("empty upload: %w", domain.ErrInvalidRecord))
		return
	}

	a, err := h.svc.AnalyzeImage(r.Context(), image, header.Filename)
	if err != nil {
		writeServiceError(w, r, h.logger, "analyze image", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
