package repository

import (
	"context"
	"sync/atomic"
	"time"

	"prokat/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverCounterStore prefers the shared store and falls back to the
// in-memory one when the primary errors, retrying the primary after a
// cool-down.
type FailoverCounterStore struct {
	primary   domain.CounterStore
	fallback  domain.CounterStore
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

const recoveryInterval = time.Minute

func NewFailoverCounterStore(primary, fallback domain.CounterStore, logger *zerolog.Logger) *FailoverCounterStore {
	return &FailoverCounterStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (f *FailoverCounterStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if !f.isDown.Load() {
		allowed, err := f.primary.Allow(ctx, key, limit, window)
		if err == nil {
			return allowed, nil
		}
		f.logger.Error().Err(err).Msg("primary counter store failed, falling back to memory")
		f.isDown.Store(true)
		f.lastCheck.Store(time.Now().UnixNano())
	}

	if f.isDown.Load() && time.Since(time.Unix(0, f.lastCheck.Load())) > recoveryInterval {
		allowed, err := f.primary.Allow(ctx, key, limit, window)
		if err == nil {
			f.isDown.Store(false)
			return allowed, nil
		}
		f.lastCheck.Store(time.Now().UnixNano())
	}

	return f.fallback.Allow(ctx, key, limit, window)
}
