package domain

import (
	"context"
	"time"
)

// RecordCache provides fast record lookups in front of the RecordStore.
type RecordCache interface {
	Set(ctx context.Context, rec ArbitrageRecord) error
	Get(ctx context.Context, id string) (ArbitrageRecord, error)
	Invalidate(ctx context.Context, id string) error
}

// AnalysisCache memoizes analysis results keyed by a digest of the OCR text,
// so repeated uploads of the same screenshot skip the extraction collaborator.
type AnalysisCache interface {
	SetAnalysis(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	GetAnalysis(ctx context.Context, key string) ([]byte, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides short-lived distributed locks. The returned func
// releases the lock and is safe to call more than once.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// SignalBus provides pub/sub between the services and the WebSocket hub.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// ChannelRecords carries record lifecycle events to dashboard clients.
const ChannelRecords = "ch:records"

// RecordEvent is the payload published on ChannelRecords.
type RecordEvent struct {
	Type   string           `json:"type"` // "record_saved", "record_updated", "record_deleted"
	ID     string           `json:"id"`
	Record *ArbitrageRecord `json:"record,omitempty"`
	At     time.Time        `json:"at"`
}
