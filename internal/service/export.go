package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/surebet/internal/domain"
	"github.com/alanyoungcy/surebet/internal/metrics"
	"github.com/alanyoungcy/surebet/internal/notify"
)

// exportLockTTL bounds how long a crashed exporter can block the next one.
const exportLockTTL = 5 * time.Minute

// ExportResult describes a finished export.
type ExportResult struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

// ExportService writes every record to object storage as JSONL.
type ExportService struct {
	records  *RecordService
	archiver domain.Archiver
	locks    domain.LockManager
	audit    domain.AuditStore
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewExportService creates an ExportService. archiver nil makes Export fail
// with domain.ErrNotConfigured; locks and notifier may be nil.
func NewExportService(
	records *RecordService,
	archiver domain.Archiver,
	locks domain.LockManager,
	audit domain.AuditStore,
	notifier Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
) *ExportService {
	return &ExportService{
		records:  records,
		archiver: archiver,
		locks:    locks,
		audit:    audit,
		notifier: notifier,
		metrics:  m,
		logger:   logger.With(slog.String("component", "export_service")),
		now:      time.Now,
	}
}

// Export snapshots all records into one object. Concurrent exports across
// replicas are refused with domain.ErrLockHeld.
func (s *ExportService) Export(ctx context.Context) (ExportResult, error) {
	if s.archiver == nil {
		return ExportResult{}, fmt.Errorf("export: object storage: %w", domain.ErrNotConfigured)
	}
	if s.locks != nil {
		unlock, err := s.locks.Acquire(ctx, "export", exportLockTTL)
		if err != nil {
			return ExportResult{}, fmt.Errorf("export: %w", err)
		}
		defer unlock()
	}

	var recs []domain.ArbitrageRecord
	err := s.records.each(ctx, domain.ListOpts{}, func(rec domain.ArbitrageRecord) {
		recs = append(recs, rec)
	})
	if err != nil {
		return ExportResult{}, fmt.Errorf("export: read records: %w", err)
	}

	path, err := s.archiver.ExportRecords(ctx, recs, s.now())
	if err != nil {
		return ExportResult{}, fmt.Errorf("export: %w", err)
	}
	res := ExportResult{Path: path, Count: len(recs)}

	s.metrics.RecordOp("export")
	if err := s.audit.Log(ctx, "records.exported", map[string]any{"path": path, "count": res.Count}); err != nil {
		s.logger.ErrorContext(ctx, "audit log failed", slog.String("error", err.Error()))
	}
	if s.notifier != nil {
		msg := fmt.Sprintf("%d records written to %s", res.Count, path)
		if err := s.notifier.Notify(ctx, notify.EventExportDone, "Export finished", msg); err != nil {
			s.logger.WarnContext(ctx, "export notification failed", slog.String("error", err.Error()))
		}
	}
	s.logger.InfoContext(ctx, "records exported", slog.String("path", path), slog.Int("count", res.Count))
	return res, nil
}

// Exports lists previous exports, newest first.
func (s *ExportService) Exports(ctx context.Context) ([]domain.BlobInfo, error) {
	if s.archiver == nil {
		return nil, fmt.Errorf("export: object storage: %w", domain.ErrNotConfigured)
	}
	infos, err := s.archiver.Exports(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: list: %w", err)
	}
	return infos, nil
}
