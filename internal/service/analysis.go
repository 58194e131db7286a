package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/surebet/internal/arbitrage"
	"github.com/alanyoungcy/surebet/internal/domain"
	"github.com/alanyoungcy/surebet/internal/extract"
	"github.com/alanyoungcy/surebet/internal/metrics"
	"github.com/alanyoungcy/surebet/internal/ocr"
)

// Analysis is the full verdict on one screenshot or pasted text.
type Analysis struct {
	Source      extract.Source       `json:"source"`
	RawText     string               `json:"rawText"`
	Extraction  domain.Extraction    `json:"extraction"`
	Validation  arbitrage.Validation `json:"validation"`
	NeedsReview bool                 `json:"needsReview"`
	ImagePath   string               `json:"imagePath,omitempty"`
	Cached      bool                 `json:"cached,omitempty"`
}

// AnalysisConfig tunes the AnalysisService.
type AnalysisConfig struct {
	// MemoTTL is how long an extraction is reused for identical text. Zero
	// disables the memo.
	MemoTTL time.Duration
}

// memoEntry is what the AnalysisCache stores. Validation is recomputed on
// every hit since it is cheap and depends only on the extraction.
type memoEntry struct {
	Source     extract.Source    `json:"source"`
	Extraction domain.Extraction `json:"extraction"`
}

// AnalysisService turns OCR text or images into extractions and verdicts.
type AnalysisService struct {
	extractor *extract.Extractor
	ocr       ocr.Engine
	cache     domain.AnalysisCache
	archiver  domain.Archiver
	metrics   *metrics.Metrics
	cfg       AnalysisConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewAnalysisService creates an AnalysisService. engine, cache, archiver and
// m may be nil; the matching feature is then skipped.
func NewAnalysisService(
	extractor *extract.Extractor,
	engine ocr.Engine,
	cache domain.AnalysisCache,
	archiver domain.Archiver,
	m *metrics.Metrics,
	cfg AnalysisConfig,
	logger *slog.Logger,
) *AnalysisService {
	return &AnalysisService{
		extractor: extractor,
		ocr:       engine,
		cache:     cache,
		archiver:  archiver,
		metrics:   m,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "analysis_service")),
		now:       time.Now,
	}
}

// AnalyzeText extracts and validates text.
func (s *AnalysisService) AnalyzeText(ctx context.Context, text string) (Analysis, error) {
	start := s.now()
	if strings.TrimSpace(text) == "" {
		return Analysis{}, fmt.Errorf("analysis: empty text: %w", domain.ErrInvalidRecord)
	}

	a, err := s.analyze(ctx, text)
	if err != nil {
		return Analysis{}, err
	}
	s.observe("text", a, start)
	return a, nil
}

// AnalyzeImage runs OCR on image, archives the upload when object storage is
// configured, then analyzes the text. Archive failures are logged, not
// returned.
func (s *AnalysisService) AnalyzeImage(ctx context.Context, image []byte, filename string) (Analysis, error) {
	start := s.now()
	if s.ocr == nil {
		return Analysis{}, fmt.Errorf("analysis: no ocr engine configured: %w", domain.ErrOCRUnavailable)
	}
	if len(image) == 0 {
		return Analysis{}, fmt.Errorf("analysis: empty image: %w", domain.ErrInvalidRecord)
	}

	text, err := s.ocr.ExtractText(ctx, image, filename)
	s.metrics.RecordOCR(err)
	if err != nil {
		return Analysis{}, fmt.Errorf("analysis: ocr: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return Analysis{}, fmt.Errorf("analysis: ocr returned no text: %w", domain.ErrOCRUnavailable)
	}

	a, err := s.analyze(ctx, text)
	if err != nil {
		return Analysis{}, err
	}

	if s.archiver != nil {
		p, err := s.archiver.ArchiveUpload(ctx, image, filename, text)
		if err != nil {
			s.logger.WarnContext(ctx, "archive upload failed",
				slog.String("filename", filename),
				slog.String("error", err.Error()),
			)
		}
		a.ImagePath = p
	}

	s.observe("image", a, start)
	return a, nil
}

func (s *AnalysisService) analyze(ctx context.Context, text string) (Analysis, error) {
	key := digest(text)

	if entry, ok := s.memoGet(ctx, key); ok {
		return assemble(text, entry, true), nil
	}

	ext, src, err := s.extractor.Extract(ctx, text)
	if err != nil {
		return Analysis{}, fmt.Errorf("analysis: extract: %w", err)
	}
	if s.extractor.Collaborating() && src == extract.SourceParser {
		s.metrics.RecordFallback()
	}

	entry := memoEntry{Source: src, Extraction: ext}
	s.memoSet(ctx, key, entry)
	return assemble(text, entry, false), nil
}

func assemble(text string, e memoEntry, cached bool) Analysis {
	return Analysis{
		Source:      e.Source,
		RawText:     text,
		Extraction:  e.Extraction,
		Validation:  arbitrage.Validate(e.Extraction.Bookmakers),
		NeedsReview: e.Extraction.NeedsReview(),
		Cached:      cached,
	}
}

func (s *AnalysisService) memoGet(ctx context.Context, key string) (memoEntry, bool) {
	if s.cache == nil || s.cfg.MemoTTL <= 0 {
		return memoEntry{}, false
	}
	data, err := s.cache.GetAnalysis(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "analysis memo read failed", slog.String("error", err.Error()))
		}
		return memoEntry{}, false
	}
	var e memoEntry
	if err := json.Unmarshal(data, &e); err != nil {
		s.logger.WarnContext(ctx, "analysis memo corrupt", slog.String("error", err.Error()))
		return memoEntry{}, false
	}
	return e, true
}

func (s *AnalysisService) memoSet(ctx context.Context, key string, e memoEntry) {
	if s.cache == nil || s.cfg.MemoTTL <= 0 {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := s.cache.SetAnalysis(ctx, key, data, s.cfg.MemoTTL); err != nil {
		s.logger.WarnContext(ctx, "analysis memo write failed", slog.String("error", err.Error()))
	}
}

func (s *AnalysisService) observe(kind string, a Analysis, start time.Time) {
	s.metrics.RecordAnalysis(kind, string(a.Source), a.Validation.IsValid,
		a.Validation.Metrics.ProfitPercentage, s.now().Sub(start))
	s.logger.Info("analysis done",
		slog.String("kind", kind),
		slog.String("source", string(a.Source)),
		slog.Int("bookmakers", len(a.Extraction.Bookmakers)),
		slog.Bool("valid", a.Validation.IsValid),
		slog.Bool("cached", a.Cached),
	)
}

func digest(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
