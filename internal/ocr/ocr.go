// Package ocr wraps the text-recognition service. The engine itself is a
// black box; this package only ships image bytes and returns plain text.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/alanyoungcy/surebet/internal/domain"
)

// Engine extracts text from an image.
type Engine interface {
	ExtractText(ctx context.Context, image []byte, filename string) (string, error)
}

// DefaultSpaceURL is the public OCR.space parse endpoint.
const DefaultSpaceURL = "https://api.ocr.space/parse/image"

// SpaceConfig configures a SpaceClient.
type SpaceConfig struct {
	URL      string
	APIKey   string
	Language string
	// Engine selects the provider's recognition engine ("1" or "2").
	Engine            string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// SpaceClient talks to an OCR.space compatible API.
type SpaceClient struct {
	cfg        SpaceConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ Engine = (*SpaceClient)(nil)

// NewSpaceClient creates a client. Unset fields take the provider defaults.
func NewSpaceClient(cfg SpaceConfig) *SpaceClient {
	if cfg.URL == "" {
		cfg.URL = DefaultSpaceURL
	}
	if cfg.Language == "" {
		cfg.Language = "por"
	}
	if cfg.Engine == "" {
		cfg.Engine = "2"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &SpaceClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
	}
}

type spaceResponse struct {
	ParsedResults []struct {
		ParsedText   string `json:"ParsedText"`
		ErrorMessage string `json:"ErrorMessage"`
	} `json:"ParsedResults"`
	OCRExitCode           int             `json:"OCRExitCode"`
	IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage `json:"ErrorMessage"`
}

// errorText flattens ErrorMessage, which the provider sends either as a
// string or as a list of strings.
func (r spaceResponse) errorText() string {
	if len(r.ErrorMessage) == 0 {
		return ""
	}
	var list []string
	if err := json.Unmarshal(r.ErrorMessage, &list); err == nil {
		return strings.Join(list, "; ")
	}
	var s string
	if err := json.Unmarshal(r.ErrorMessage, &s); err == nil {
		return s
	}
	return string(r.ErrorMessage)
}

// ExtractText uploads image as multipart form data and joins the parsed text
// of every result page.
func (c *SpaceClient) ExtractText(ctx context.Context, image []byte, filename string) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("ocr: empty image")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("ocr: rate limiter: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range map[string]string{
		"language":          c.cfg.Language,
		"OCREngine":         c.cfg.Engine,
		"isTable":           "true",
		"scale":             "true",
		"isOverlayRequired": "false",
	} {
		if err := mw.WriteField(k, v); err != nil {
			return "", fmt.Errorf("ocr: write field %s: %w", k, err)
		}
	}
	if filename == "" {
		filename = "upload.png"
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("ocr: create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return "", fmt.Errorf("ocr: write image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("ocr: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, &body)
	if err != nil {
		return "", fmt.Errorf("ocr: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("apikey", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrOCRUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: status %d: %s", domain.ErrOCRUnavailable, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out spaceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", domain.ErrOCRUnavailable, err)
	}
	if out.IsErroredOnProcessing {
		return "", fmt.Errorf("%w: %s", domain.ErrOCRUnavailable, out.errorText())
	}

	pages := make([]string, 0, len(out.ParsedResults))
	for _, r := range out.ParsedResults {
		if t := strings.TrimSpace(r.ParsedText); t != "" {
			pages = append(pages, t)
		}
	}
	return strings.Join(pages, "\n"), nil
}

// StaticEngine returns fixed text. It stands in for a real engine in the
// parse mode when the input is already text, and in tests.
type StaticEngine struct {
	Text string
	Err  error
}

// ExtractText implements Engine.
func (s StaticEngine) ExtractText(context.Context, []byte, string) (string, error) {
	return s.Text, s.Err
}
