package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/surebet/internal/arbitrage"
	"github.com/alanyoungcy/surebet/internal/domain"
	"github.com/alanyoungcy/surebet/internal/metrics"
	"github.com/alanyoungcy/surebet/internal/notify"
)

// Notifier announces events. *notify.Notifier implements it.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// RecordInput is a record as submitted by the dashboard edit form. Metrics
// are never accepted from the caller.
type RecordInput struct {
	Match      domain.Match               `json:"match"`
	Bookmakers []arbitrage.BookmakerInput `json:"bookmakers"`
	Status     domain.RecordStatus        `json:"status,omitempty"`
	RawText    string                     `json:"rawText,omitempty"`
	ImagePath  string                     `json:"imagePath,omitempty"`
	Timestamp  *time.Time                 `json:"timestamp,omitempty"`
}

// Summary aggregates the stored records for the dashboard header.
type Summary struct {
	Count       int     `json:"count"`
	ValidCount  int     `json:"validCount"`
	TotalStake  float64 `json:"totalStake"`
	TotalProfit float64 `json:"totalProfit"`
	AverageROI  float64 `json:"averageRoi"`
}

// summaryPage is the page size used when Summary and Export walk the store.
const summaryPage = 500

// RecordService owns the record lifecycle. Every write recomputes metrics
// through the arbitrage engine.
type RecordService struct {
	store    domain.RecordStore
	cache    domain.RecordCache
	audit    domain.AuditStore
	bus      domain.SignalBus
	archiver domain.Archiver
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewRecordService creates a RecordService. Everything but store, audit and
// logger may be nil.
func NewRecordService(
	store domain.RecordStore,
	cache domain.RecordCache,
	audit domain.AuditStore,
	bus domain.SignalBus,
	archiver domain.Archiver,
	notifier Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
) *RecordService {
	return &RecordService{
		store:    store,
		cache:    cache,
		audit:    audit,
		bus:      bus,
		archiver: archiver,
		notifier: notifier,
		metrics:  m,
		logger:   logger.With(slog.String("component", "record_service")),
		now:      time.Now,
	}
}

// DeriveStatus picks the status for bms. An explicit valid status wins.
func DeriveStatus(explicit domain.RecordStatus, match domain.Match, bms []domain.Bookmaker, m domain.Metrics) domain.RecordStatus {
	if explicit != "" {
		return explicit
	}
	if !finiteMetrics(m) {
		return domain.RecordError
	}
	if match.Team1 == "" || match.Team2 == "" || !arbitrage.Validate(bms).IsValid {
		return domain.RecordPending
	}
	return domain.RecordProcessed
}

func finiteMetrics(m domain.Metrics) bool {
	for _, f := range []float64{m.TotalProfit, m.ProfitPercentage, m.ROI, m.TotalStake, m.ArbitragePercentage} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// build turns an input into a record with derived metrics and status.
func build(in RecordInput) (domain.ArbitrageRecord, error) {
	if in.Status != "" && !in.Status.Valid() {
		return domain.ArbitrageRecord{}, fmt.Errorf("unknown status %q: %w", in.Status, domain.ErrInvalidRecord)
	}
	if len(in.Bookmakers) == 0 {
		return domain.ArbitrageRecord{}, fmt.Errorf("at least one bookmaker is required: %w", domain.ErrInvalidRecord)
	}

	bms := arbitrage.CoerceNumeric(in.Bookmakers)
	m := arbitrage.ComputeMetrics(bms)
	return domain.ArbitrageRecord{
		Match:      in.Match,
		Bookmakers: bms,
		Metrics:    m,
		Status:     DeriveStatus(in.Status, in.Match, bms, m),
		RawText:    in.RawText,
		ImagePath:  in.ImagePath,
	}, nil
}

// Create stores a new record.
func (s *RecordService) Create(ctx context.Context, in RecordInput) (domain.ArbitrageRecord, error) {
	rec, err := build(in)
	if err != nil {
		return domain.ArbitrageRecord{}, fmt.Errorf("records: create: %w", err)
	}
	rec.ID = uuid.NewString()
	rec.Timestamp = s.now().UTC()
	if in.Timestamp != nil {
		rec.Timestamp = in.Timestamp.UTC()
	}

	if err := s.store.Save(ctx, rec); err != nil {
		return domain.ArbitrageRecord{}, fmt.Errorf("records: create: %w", err)
	}
	s.cacheSet(ctx, rec)
	s.metrics.RecordOp("create")
	s.auditLog(ctx, "record.created", rec)
	s.publish(ctx, "record_saved", rec.ID, &rec)
	if rec.Status == domain.RecordProcessed {
		s.announce(ctx, rec)
	}

	s.logger.InfoContext(ctx, "record created",
		slog.String("id", rec.ID),
		slog.String("status", string(rec.Status)),
	)
	return rec, nil
}

// Update replaces the editable fields of an existing record and recomputes
// its metrics. The ID and, unless given, the timestamp are preserved.
func (s *RecordService) Update(ctx context.Context, id string, in RecordInput) (domain.ArbitrageRecord, error) {
	prev, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.ArbitrageRecord{}, fmt.Errorf("records: update %s: %w", id, err)
	}

	rec, err := build(in)
	if err != nil {
		return domain.ArbitrageRecord{}, fmt.Errorf("records: update %s: %w", id, err)
	}
	rec.ID = prev.ID
	rec.Timestamp = prev.Timestamp
	if in.Timestamp != nil {
		rec.Timestamp = in.Timestamp.UTC()
	}
	if rec.RawText == "" {
		rec.RawText = prev.RawText
	}
	if rec.ImagePath == "" {
		rec.ImagePath = prev.ImagePath
	}

	if err := s.store.Save(ctx, rec); err != nil {
		return domain.ArbitrageRecord{}, fmt.Errorf("records: update %s: %w", id, err)
	}
	s.cacheSet(ctx, rec)
	s.metrics.RecordOp("update")
	s.auditLog(ctx, "record.updated", rec)
	s.publish(ctx, "record_updated", rec.ID, &rec)
	if rec.Status == domain.RecordProcessed && prev.Status != domain.RecordProcessed {
		s.announce(ctx, rec)
	}
	return rec, nil
}

// Get returns a record, reading through the cache.
func (s *RecordService) Get(ctx context.Context, id string) (domain.ArbitrageRecord, error) {
	if s.cache != nil {
		rec, err := s.cache.Get(ctx, id)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "record cache read failed", slog.String("error", err.Error()))
		}
	}

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.ArbitrageRecord{}, fmt.Errorf("records: get %s: %w", id, err)
	}
	s.cacheSet(ctx, rec)
	return rec, nil
}

// List returns records newest first.
func (s *RecordService) List(ctx context.Context, opts domain.ListOpts) ([]domain.ArbitrageRecord, error) {
	if opts.Status != "" && !opts.Status.Valid() {
		return nil, fmt.Errorf("records: list: unknown status %q: %w", opts.Status, domain.ErrInvalidRecord)
	}
	recs, err := s.store.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("records: list: %w", err)
	}
	return recs, nil
}

// Delete removes a record and its archived screenshot.
func (s *RecordService) Delete(ctx context.Context, id string) error {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("records: delete %s: %w", id, err)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("records: delete %s: %w", id, err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, id); err != nil {
			s.logger.WarnContext(ctx, "record cache invalidate failed", slog.String("error", err.Error()))
		}
	}
	if s.archiver != nil && rec.ImagePath != "" {
		if err := s.archiver.Remove(ctx, rec.ImagePath); err != nil {
			s.logger.WarnContext(ctx, "archived image not removed",
				slog.String("path", rec.ImagePath),
				slog.String("error", err.Error()),
			)
		}
	}
	s.metrics.RecordOp("delete")
	s.auditLog(ctx, "record.deleted", rec)
	s.publish(ctx, "record_deleted", id, nil)
	return nil
}

// Summary aggregates every record matching opts' time window and status.
// Records with non-finite metrics count towards Count only.
func (s *RecordService) Summary(ctx context.Context, opts domain.ListOpts) (Summary, error) {
	var sum Summary
	var roiTotal float64
	var roiCount int

	err := s.each(ctx, opts, func(rec domain.ArbitrageRecord) {
		sum.Count++
		if rec.Status == domain.RecordProcessed {
			sum.ValidCount++
		}
		if !finiteMetrics(rec.Metrics) {
			return
		}
		sum.TotalStake += rec.Metrics.TotalStake
		sum.TotalProfit += rec.Metrics.TotalProfit
		roiTotal += rec.Metrics.ROI
		roiCount++
	})
	if err != nil {
		return Summary{}, fmt.Errorf("records: summary: %w", err)
	}
	if roiCount > 0 {
		sum.AverageROI = roiTotal / float64(roiCount)
	}
	return sum, nil
}

// each walks the store page by page.
func (s *RecordService) each(ctx context.Context, opts domain.ListOpts, fn func(domain.ArbitrageRecord)) error {
	opts.Limit = summaryPage
	opts.Offset = 0
	for {
		recs, err := s.store.List(ctx, opts)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			fn(rec)
		}
		if len(recs) < summaryPage {
			return nil
		}
		opts.Offset += len(recs)
	}
}

func (s *RecordService) cacheSet(ctx context.Context, rec domain.ArbitrageRecord) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, rec); err != nil {
		s.logger.WarnContext(ctx, "record cache write failed",
			slog.String("id", rec.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *RecordService) auditLog(ctx context.Context, event string, rec domain.ArbitrageRecord) {
	err := s.audit.Log(ctx, event, map[string]any{
		"id":     rec.ID,
		"status": string(rec.Status),
		"match":  rec.Match.Team1 + " x " + rec.Match.Team2,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func (s *RecordService) publish(ctx context.Context, kind, id string, rec *domain.ArbitrageRecord) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(domain.RecordEvent{Type: kind, ID: id, Record: rec, At: s.now().UTC()})
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, domain.ChannelRecords, payload); err != nil {
		s.logger.WarnContext(ctx, "record event not published",
			slog.String("type", kind),
			slog.String("error", err.Error()),
		)
	}
}

func (s *RecordService) announce(ctx context.Context, rec domain.ArbitrageRecord) {
	if s.notifier == nil {
		return
	}
	title, msg := notify.RecordMessage(rec)
	if err := s.notifier.Notify(ctx, notify.EventArbitrageSaved, title, msg); err != nil {
		s.logger.WarnContext(ctx, "arbitrage notification failed", slog.String("error", err.Error()))
	}
}
