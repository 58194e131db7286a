package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
	Status RecordStatus
}

// RecordStore persists arbitrage records. The core never depends on a
// particular implementation.
type RecordStore interface {
	Save(ctx context.Context, rec ArbitrageRecord) error
	Get(ctx context.Context, id string) (ArbitrageRecord, error)
	List(ctx context.Context, opts ListOpts) ([]ArbitrageRecord, error)
	Delete(ctx context.Context, id string) error
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
