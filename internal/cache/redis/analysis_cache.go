package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/surebet/internal/domain"
)

// AnalysisCache implements domain.AnalysisCache with plain string keys.
//
// Key schema:
//
//	analysis:{digest} - analysis JSON
type AnalysisCache struct {
	rdb *redis.Client
}

var _ domain.AnalysisCache = (*AnalysisCache)(nil)

// NewAnalysisCache creates an AnalysisCache backed by the given Client.
func NewAnalysisCache(c *Client) *AnalysisCache {
	return &AnalysisCache{rdb: c.Underlying()}
}

func analysisKey(digest string) string { return "analysis:" + digest }

// SetAnalysis stores payload under key for ttl.
func (ac *AnalysisCache) SetAnalysis(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if err := ac.rdb.Set(ctx, analysisKey(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set analysis %s: %w", key, err)
	}
	return nil
}

// GetAnalysis returns the stored payload or domain.ErrNotFound.
func (ac *AnalysisCache) GetAnalysis(ctx context.Context, key string) ([]byte, error) {
	data, err := ac.rdb.Get(ctx, analysisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get analysis %s: %w", key, err)
	}
	return data, nil
}
