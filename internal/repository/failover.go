package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"taxbook/internal/domain"

	"github.com/rs/zerolog"
)

const failoverRetryAfter = time.Minute

// FailoverQueryCache prefers primary and switches to fallback once primary
// errors. Primary is retried after failoverRetryAfter.
type FailoverQueryCache struct {
	primary  domain.QueryCache
	fallback domain.QueryCache
	logger   *zerolog.Logger
	isDown   atomic.Bool

	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverQueryCache(primary, fallback domain.QueryCache, logger *zerolog.Logger) *FailoverQueryCache {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &FailoverQueryCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// usePrimary reports whether the next call should go to primary.
func (r *FailoverQueryCache) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return time.Since(r.lastCheck) > failoverRetryAfter
}

func (r *FailoverQueryCache) markDown(op string, err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Str("op", op).Msg("Primary query cache failed, falling back to memory")
	}
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}

func (r *FailoverQueryCache) markUp() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Primary query cache recovered")
	}
}

func (r *FailoverQueryCache) Get(ctx context.Context, key string, out any) (bool, error) {
	if r.usePrimary() {
		ok, err := r.primary.Get(ctx, key, out)
		if err == nil {
			r.markUp()
			return ok, nil
		}
		r.markDown("get", err)
	}
	return r.fallback.Get(ctx, key, out)
}

func (r *FailoverQueryCache) Set(ctx context.Context, key string, val any, ttl time.Duration) error {
	if r.usePrimary() {
		err := r.primary.Set(ctx, key, val, ttl)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown("set", err)
	}
	return r.fallback.Set(ctx, key, val, ttl)
}

// Invalidate always clears the fallback as well.
func (r *FailoverQueryCache) Invalidate(ctx context.Context, prefix string) error {
	fallbackErr := r.fallback.Invalidate(ctx, prefix)
	if r.usePrimary() {
		err := r.primary.Invalidate(ctx, prefix)
		if err == nil {
			r.markUp()
			return fallbackErr
		}
		r.markDown("invalidate", err)
	}
	return fallbackErr
}

func (r *FailoverQueryCache) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, userID, limit, window)
		if err == nil {
			r.markUp()
			return allowed, nil
		}
		r.markDown("rate_limit", err)
	}
	return r.fallback.CheckRateLimit(ctx, userID, limit, window)
}
