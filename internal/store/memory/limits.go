package memory

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/alanyoungcy/surebet/internal/domain"
)

// RateLimiter implements domain.RateLimiter with one token bucket per key.
// A bucket refills limit tokens per window and holds at most limit tokens.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	lim    *rate.Limiter
	limit  int
	window time.Duration
}

var _ domain.RateLimiter = (*RateLimiter)(nil)

// NewRateLimiter creates an empty RateLimiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{buckets: make(map[string]*bucket)}
}

// Allow takes one token from key's bucket.
func (rl *RateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 || window <= 0 {
		return true, nil
	}
	rl.mu.Lock()
	b, ok := rl.buckets[key]
	if !ok || b.limit != limit || b.window != window {
		b = &bucket{
			lim:    rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit),
			limit:  limit,
			window: window,
		}
		rl.buckets[key] = b
	}
	rl.mu.Unlock()
	return b.lim.Allow(), nil
}

// LockManager implements domain.LockManager for a single process. Locks
// expire after their TTL even if never released.
type LockManager struct {
	mu    sync.Mutex
	held  map[string]uint64
	seq   uint64
	timer func(time.Duration, func()) *time.Timer
}

var _ domain.LockManager = (*LockManager)(nil)

// NewLockManager creates an empty LockManager.
func NewLockManager() *LockManager {
	return &LockManager{held: make(map[string]uint64), timer: time.AfterFunc}
}

// Acquire takes key or fails with domain.ErrLockHeld.
func (lm *LockManager) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	lm.mu.Lock()
	if _, ok := lm.held[key]; ok {
		lm.mu.Unlock()
		return nil, domain.ErrLockHeld
	}
	lm.seq++
	token := lm.seq
	lm.held[key] = token
	lm.mu.Unlock()

	release := func() {
		lm.mu.Lock()
		defer lm.mu.Unlock()
		if lm.held[key] == token {
			delete(lm.held, key)
		}
	}
	t := lm.timer(ttl, release)

	var once sync.Once
	return func() {
		once.Do(func() {
			t.Stop()
			release()
		})
	}, nil
}
