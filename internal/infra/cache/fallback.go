package cache

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"component-catalog-service/internal/domain"
)

// Fallback wraps a durable cache with an in-memory one. While the durable
// store is healthy all traffic goes to it; the first store failure flips the
// wrapper to memory-only for the rest of the process lifetime, so cache
// persistence problems degrade silently instead of failing catalog loads.
// All cached data is derivable, so losing the durable copy only costs a
// refetch.
type Fallback struct {
	durable  domain.Cache
	memory   domain.Cache
	logger   *zap.Logger
	degraded atomic.Bool
}

// NewFallback creates the wrapper. durable may be nil, in which case the
// cache starts degraded (memory-only).
func NewFallback(durable, memory domain.Cache, logger *zap.Logger) *Fallback {
	f := &Fallback{
		durable: durable,
		memory:  memory,
		logger:  logger,
	}
	if durable == nil {
		f.degraded.Store(true)
	}

	return f
}

// Degraded reports whether the wrapper has fallen back to memory-only.
func (f *Fallback) Degraded() bool {
	return f.degraded.Load()
}

func (f *Fallback) active() domain.Cache {
	if f.degraded.Load() {
		return f.memory
	}

	return f.durable
}

// degrade flips to memory-only. Logged once; subsequent failures are moot.
func (f *Fallback) degrade(err error) {
	if f.degraded.CompareAndSwap(false, true) {
		f.logger.Warn("durable cache unavailable, continuing in-memory only",
			zap.Error(err),
		)
	}
}

func (f *Fallback) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := f.active().Get(ctx, key)
	if err != nil && !f.degraded.Load() {
		f.degrade(err)

		return f.memory.Get(ctx, key)
	}
	if err != nil {
		return nil, nil
	}

	return data, nil
}

func (f *Fallback) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := f.active().Set(ctx, key, value, ttl); err != nil && !f.degraded.Load() {
		f.degrade(err)

		return f.memory.Set(ctx, key, value, ttl)
	}

	return nil
}

func (f *Fallback) Delete(ctx context.Context, key string) error {
	// Invalidation goes to both stores so a later recovery cannot resurrect
	// deleted entries.
	if !f.degraded.Load() {
		if err := f.durable.Delete(ctx, key); err != nil {
			f.degrade(err)
		}
	}

	return f.memory.Delete(ctx, key)
}

func (f *Fallback) DeletePrefix(ctx context.Context, prefix string) error {
	if !f.degraded.Load() {
		if err := f.durable.DeletePrefix(ctx, prefix); err != nil {
			f.degrade(err)
		}
	}

	return f.memory.DeletePrefix(ctx, prefix)
}

func (f *Fallback) Clear(ctx context.Context) error {
	if !f.degraded.Load() {
		if err := f.durable.Clear(ctx); err != nil {
			f.degrade(err)
		}
	}

	return f.memory.Clear(ctx)
}
