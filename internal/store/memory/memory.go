// Package memory keeps records in process memory. It backs tests, the
// one-shot parse mode and deployments that do not need durability.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/surebet/internal/domain"
)

// RecordStore implements domain.RecordStore over a map.
type RecordStore struct {
	mu      sync.RWMutex
	records map[string]domain.ArbitrageRecord
}

var _ domain.RecordStore = (*RecordStore)(nil)

// NewRecordStore creates an empty store.
func NewRecordStore() *RecordStore {
	return &RecordStore{records: make(map[string]domain.ArbitrageRecord)}
}

func clone(rec domain.ArbitrageRecord) domain.ArbitrageRecord {
	rec.Bookmakers = slices.Clone(rec.Bookmakers)
	return rec
}

// Save inserts or replaces a record.
func (s *RecordStore) Save(_ context.Context, rec domain.ArbitrageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = clone(rec)
	return nil
}

// Get returns a copy of the record with the given ID.
func (s *RecordStore) Get(_ context.Context, id string) (domain.ArbitrageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return domain.ArbitrageRecord{}, fmt.Errorf("memory: record %s: %w", id, domain.ErrNotFound)
	}
	return clone(rec), nil
}

// List returns records newest first.
func (s *RecordStore) List(_ context.Context, opts domain.ListOpts) ([]domain.ArbitrageRecord, error) {
	s.mu.RLock()
	out := make([]domain.ArbitrageRecord, 0, len(s.records))
	for _, rec := range s.records {
		if !inWindow(rec.Timestamp, opts) {
			continue
		}
		if opts.Status != "" && rec.Status != opts.Status {
			continue
		}
		out = append(out, clone(rec))
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.ArbitrageRecord) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return page(out, opts), nil
}

// Delete removes the record with the given ID.
func (s *RecordStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("memory: record %s: %w", id, domain.ErrNotFound)
	}
	delete(s.records, id)
	return nil
}

// AuditStore implements domain.AuditStore over a slice.
type AuditStore struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
	now     func() time.Time
}

var _ domain.AuditStore = (*AuditStore)(nil)

// NewAuditStore creates an empty audit log.
func NewAuditStore() *AuditStore {
	return &AuditStore{now: time.Now}
}

// Log appends an entry.
func (s *AuditStore) Log(_ context.Context, event string, detail map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, domain.AuditEntry{
		ID:        int64(len(s.entries) + 1),
		Event:     event,
		Detail:    detail,
		CreatedAt: s.now(),
	})
	return nil
}

// List returns entries newest first.
func (s *AuditStore) List(_ context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	s.mu.Lock()
	out := make([]domain.AuditEntry, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		if inWindow(s.entries[i].CreatedAt, opts) {
			out = append(out, s.entries[i])
		}
	}
	s.mu.Unlock()
	return page(out, opts), nil
}

func inWindow(t time.Time, opts domain.ListOpts) bool {
	if opts.Since != nil && t.Before(*opts.Since) {
		return false
	}
	if opts.Until != nil && t.After(*opts.Until) {
		return false
	}
	return true
}

func page[T any](items []T, opts domain.ListOpts) []T {
	if opts.Offset > 0 {
		if opts.Offset >= len(items) {
			return items[:0]
		}
		items = items[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(items) {
		items = items[:opts.Limit]
	}
	return items
}
