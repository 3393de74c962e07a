// Package job provides background job schedulers.
package job

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"component-catalog-service/internal/app/service"
	"component-catalog-service/pkg/locker"
)

// RefreshScheduler periodically refreshes every active source's cached
// listing and taxonomy, with distributed locking so only one instance does
// the fetching.
type RefreshScheduler struct {
	catalog  *service.CatalogService
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	locker   locker.DistributedLocker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// RefreshConfig holds refresh scheduler configuration.
type RefreshConfig struct {
	Interval  time.Duration
	Timeout   time.Duration
	OnStartup bool
}

// NewRefreshScheduler creates a new RefreshScheduler with distributed
// locking support.
func NewRefreshScheduler(
	catalog *service.CatalogService,
	cfg RefreshConfig,
	logger *zap.Logger,
	locker locker.DistributedLocker,
) *RefreshScheduler {
	return &RefreshScheduler{
		catalog:  catalog,
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
		logger:   logger,
		locker:   locker,
	}
}

// Start begins the background refresh job.
func (s *RefreshScheduler) Start(runOnStartup bool) {
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.logger.Info("starting refresh scheduler",
		zap.Duration("interval", s.interval),
		zap.Bool("run_on_startup", runOnStartup),
	)

	s.wg.Add(1)
	go s.run(runOnStartup)
}

// Stop gracefully stops the scheduler.
func (s *RefreshScheduler) Stop() {
	s.logger.Info("stopping refresh scheduler")
	s.cancel()
	s.wg.Wait()
	s.logger.Info("refresh scheduler stopped")
}

func (s *RefreshScheduler) run(runOnStartup bool) {
	defer s.wg.Done()

	if runOnStartup {
		s.executeRefresh()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.executeRefresh()
		}
	}
}

// executeRefresh refreshes all sources under the distributed lock.
//
// Locking behavior:
//   - Lock TTL = interval duration (cooldown model, not timeout)
//   - Success: lock held for the full interval so other instances skip
//   - Failure: lock released immediately to allow retry by another instance
func (s *RefreshScheduler) executeRefresh() {
	const lockKey = "catalog:refresh:lock"

	acquired, err := s.locker.Acquire(s.ctx, lockKey, s.interval)
	if err != nil {
		s.logger.Error("failed to acquire distributed lock", zap.Error(err))

		return
	}
	if !acquired {
		s.logger.Debug("another instance is refreshing, skipping execution")

		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	results := s.catalog.RefreshAll(ctx)

	refreshed := 0
	failures := 0
	for _, r := range results {
		if r.Err != nil {
			failures++
			s.logger.Warn("source refresh failed",
				zap.String("source", r.Name),
				zap.Error(r.Err),
			)
		} else {
			refreshed += r.Count
		}
	}

	if failures > 0 {
		// Release the lock so another instance can retry before the cooldown
		if err := s.locker.Release(s.ctx, lockKey); err != nil {
			s.logger.Error("failed to release lock after refresh error", zap.Error(err))
		}
		s.logger.Info("refresh completed with errors, lock released for retry",
			zap.Int("components", refreshed),
			zap.Int("sources_failed", failures),
		)
	} else {
		s.logger.Info("refresh completed, lock held for cooldown",
			zap.Int("components", refreshed),
			zap.Duration("cooldown", s.interval),
		)
	}
}
