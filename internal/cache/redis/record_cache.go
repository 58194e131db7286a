package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/surebet/internal/domain"
)

// DefaultRecordTTL bounds how long a record stays cached after its last write.
const DefaultRecordTTL = 10 * time.Minute

// RecordCache implements domain.RecordCache with one hash per record.
//
// Key schema:
//
//	record:{id} - hash with field "data" containing the record JSON
type RecordCache struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ domain.RecordCache = (*RecordCache)(nil)

// NewRecordCache creates a RecordCache. A non-positive ttl uses
// DefaultRecordTTL.
func NewRecordCache(c *Client, ttl time.Duration) *RecordCache {
	if ttl <= 0 {
		ttl = DefaultRecordTTL
	}
	return &RecordCache{rdb: c.Underlying(), ttl: ttl}
}

func recordKey(id string) string { return "record:" + id }

// Set caches rec and refreshes its TTL.
func (rc *RecordCache) Set(ctx context.Context, rec domain.ArbitrageRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis: marshal record %s: %w", rec.ID, err)
	}

	key := recordKey(rec.ID)
	pipe := rc.rdb.TxPipeline()
	pipe.HSet(ctx, key, "data", data)
	pipe.Expire(ctx, key, rc.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set record %s: %w", rec.ID, err)
	}
	return nil
}

// Get returns the cached record or domain.ErrNotFound.
func (rc *RecordCache) Get(ctx context.Context, id string) (domain.ArbitrageRecord, error) {
	data, err := rc.rdb.HGet(ctx, recordKey(id), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ArbitrageRecord{}, domain.ErrNotFound
		}
		return domain.ArbitrageRecord{}, fmt.Errorf("redis: get record %s: %w", id, err)
	}

	var rec domain.ArbitrageRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.ArbitrageRecord{}, fmt.Errorf("redis: unmarshal record %s: %w", id, err)
	}
	return rec, nil
}

// Invalidate drops the cached copy.
func (rc *RecordCache) Invalidate(ctx context.Context, id string) error {
	if err := rc.rdb.Del(ctx, recordKey(id)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate record %s: %w", id, err)
	}
	return nil
}
