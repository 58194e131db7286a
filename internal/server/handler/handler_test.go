package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alanyoungcy/surebet/internal/arbitrage"
	"github.com/alanyoungcy/surebet/internal/domain"
	"github.com/alanyoungcy/surebet/internal/extract"
	"github.com/alanyoungcy/surebet/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("wrap: %w", domain.ErrInvalidRecord), http.StatusBadRequest},
		{arbitrage.ErrInvalidInput, http.StatusBadRequest},
		{arbitrage.ErrNoBookmakers, http.StatusBadRequest},
		{&arbitrage.RejectionError{ImpliedSum: 1.02}, http.StatusUnprocessableEntity},
		{domain.ErrLockHeld, http.StatusConflict},
		{domain.ErrOCRUnavailable, http.StatusBadGateway},
		{extract.ErrUnavailable, http.StatusBadGateway},
		{domain.ErrNotConfigured, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestParseListOpts(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet,
		"/api/records?limit=900&offset=20&status=processed&since=2024-01-01T00:00:00Z", nil)
	opts, err := parseListOpts(r)
	if err != nil {
		t.Fatalf("parseListOpts: %v", err)
	}
	if opts.Limit != 500 || opts.Offset != 20 || opts.Status != domain.RecordProcessed {
		t.Errorf("opts = %+v", opts)
	}
	if opts.Since == nil || opts.Since.Year() != 2024 || opts.Until != nil {
		t.Errorf("since/until = %v/%v", opts.Since, opts.Until)
	}

	r = httptest.NewRequest(http.MethodGet, "/api/records?until=yesterday", nil)
	if _, err := parseListOpts(r); !errors.Is(err, domain.ErrInvalidRecord) {
		t.Errorf("bad until: err = %v", err)
	}

	r = httptest.NewRequest(http.MethodGet, "/api/records?limit=-3", nil)
	opts, _ = parseListOpts(r)
	if opts.Limit != 50 {
		t.Errorf("default limit = %d", opts.Limit)
	}
}

func TestWriteServiceErrorHidesInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	writeServiceError(rec, r, discardLogger(), "op", errors.New("pq: password authentication failed"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Errorf("internal error leaked: %s", rec.Body.String())
	}
}

func post(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	return rec
}

func TestCalculateValidate(t *testing.T) {
	h := NewCalculateHandler(0.01, discardLogger())

	rec := post(t, h.Validate, `{"bookmakers":[
		{"name":"Bet365","odds":"2,10","stake":"100"},
		{"name":"WillHill","odds":2.3,"stake":95}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var v struct {
		IsValid bool `json:"isValid"`
		Metrics struct {
			TotalStake float64 `json:"totalStake"`
		} `json:"metrics"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatal(err)
	}
	if !v.IsValid || v.Metrics.TotalStake != 195 {
		t.Errorf("verdict = %+v", v)
	}

	if rec := post(t, h.Validate, `{"bookmakers":`); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d", rec.Code)
	}
}

func TestCalculateStakes(t *testing.T) {
	h := NewCalculateHandler(0.01, discardLogger())

	tests := []struct {
		name string
		body string
		want int
	}{
		{"investment", `{"bookmakers":[{"odds":2.1},{"odds":2.3}],"totalInvestment":1000}`, http.StatusOK},
		{"target profit", `{"bookmakers":[{"odds":2.1},{"odds":2.3}],"targetProfit":50}`, http.StatusOK},
		{"no arbitrage", `{"bookmakers":[{"odds":1.85},{"odds":2.1}],"totalInvestment":1000}`, http.StatusUnprocessableEntity},
		{"single leg", `{"bookmakers":[{"odds":2.1}],"totalInvestment":1000}`, http.StatusBadRequest},
		{"no target", `{"bookmakers":[{"odds":2.1},{"odds":2.3}]}`, http.StatusBadRequest},
		{"both targets", `{"bookmakers":[{"odds":2.1},{"odds":2.3}],"totalInvestment":1,"targetProfit":1}`, http.StatusBadRequest},
		{"negative investment", `{"bookmakers":[{"odds":2.1},{"odds":2.3}],"totalInvestment":-5}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, h.Stakes, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
		})
	}

	rec := post(t, h.Stakes, `{"bookmakers":[{"name":"A","odds":2.1},{"name":"B","odds":2.3}],"totalInvestment":1000}`)
	var resp struct {
		Bookmakers []domain.Bookmaker `json:"bookmakers"`
		Validation struct {
			IsValid bool `json:"isValid"`
		} `json:"validation"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Bookmakers) != 2 || !resp.Validation.IsValid {
		t.Fatalf("resp = %+v", resp)
	}
	total := resp.Bookmakers[0].Stake + resp.Bookmakers[1].Stake
	if math.Abs(total-1000) > 0.02 {
		t.Errorf("stakes sum to %v", total)
	}
	if resp.Bookmakers[0].Name != "A" {
		t.Errorf("names not preserved: %+v", resp.Bookmakers)
	}
}

type stubAnalysis struct {
	gotImage    []byte
	gotFilename string
	err         error
}

func (s *stubAnalysis) AnalyzeText(_ context.Context, text string) (service.Analysis, error) {
	return service.Analysis{RawText: text}, s.err
}

func (s *stubAnalysis) AnalyzeImage(_ context.Context, image []byte, filename string) (service.Analysis, error) {
	s.gotImage, s.gotFilename = image, filename
	return service.Analysis{RawText: "ocr", ImagePath: "uploads/x"}, s.err
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestAnalyzeText(t *testing.T) {
	svc := &stubAnalysis{}
	h := NewAnalyzeHandler(svc, 1, discardLogger())

	if rec := post(t, h.AnalyzeText, `{"text":"Bet365 2,10"}`); rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if rec := post(t, h.AnalyzeText, `{"text":"   "}`); rec.Code != http.StatusBadRequest {
		t.Errorf("blank text: status = %d", rec.Code)
	}

	svc.err = fmt.Errorf("extract: %w", domain.ErrExtractionFailed)
	if rec := post(t, h.AnalyzeText, `{"text":"x"}`); rec.Code != http.StatusBadGateway {
		t.Errorf("extraction failure: status = %d", rec.Code)
	}
}

func TestAnalyzeImage(t *testing.T) {
	svc := &stubAnalysis{}
	h := NewAnalyzeHandler(svc, 1, discardLogger())

	body, ct := multipartBody(t, "image", "shot.png", []byte("\x89PNG fake"))
	r := httptest.NewRequest(http.MethodPost, "/api/analyze/image", body)
	r.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.AnalyzeImage(rec, r)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if svc.gotFilename != "shot.png" || string(svc.gotImage) != "\x89PNG fake" {
		t.Errorf("service got %q %q", svc.gotFilename, svc.gotImage)
	}

	body, ct = multipartBody(t, "file", "shot.png", []byte("x"))
	r = httptest.NewRequest(http.MethodPost, "/api/analyze/image", body)
	r.Header.Set("Content-Type", ct)
	rec = httptest.NewRecorder()
	h.AnalyzeImage(rec, r)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("wrong field: status = %d", rec.Code)
	}

	body, ct = multipartBody(t, "image", "big.png", bytes.Repeat([]byte{1}, 3<<20))
	r = httptest.NewRequest(http.MethodPost, "/api/analyze/image", body)
	r.Header.Set("Content-Type", ct)
	rec = httptest.NewRecorder()
	h.AnalyzeImage(rec, r)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized: status = %d", rec.Code)
	}

	svc.err = domain.ErrOCRUnavailable
	body, ct = multipartBody(t, "image", "shot.png", []byte("x"))
	r = httptest.NewRequest(http.MethodPost, "/api/analyze/image", body)
	r.Header.Set("Content-Type", ct)
	rec = httptest.NewRecorder()
	h.AnalyzeImage(rec, r)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("ocr down: status = %d", rec.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	h := NewHealthHandler(map[string]Pinger{
		"store": PingFunc(func(context.Context) error { return nil }),
	}, "server", discardLogger())
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("healthy: %d %s", rec.Code, rec.Body)
	}

	h = NewHealthHandler(map[string]Pinger{
		"redis": PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	}, "server", discardLogger())
	rec = httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "degraded") {
		t.Errorf("degraded: %d %s", rec.Code, rec.Body)
	}
}
