// Package breaker manages per-source circuit breakers. Sources come and go at
// runtime, so breakers are created on demand and dropped when a source is
// edited or removed. The registry is an explicit dependency, not process-wide
// state, so tests can run independent instances.
package breaker

import (
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Config holds circuit breaker thresholds, shared by every source.
type Config struct {
	// ConsecutiveFailures trips the breaker open.
	ConsecutiveFailures uint32
	// Cooldown is how long the breaker stays open before permitting trials.
	Cooldown time.Duration
	// HalfOpenSuccesses is the number of consecutive half-open successes
	// required to close again. It also bounds concurrent half-open trials,
	// a gobreaker constraint.
	HalfOpenSuccesses uint32
}

func (c Config) withDefaults() Config {
	if c.ConsecutiveFailures == 0 {
		c.ConsecutiveFailures = 5
	}
	if c.Cooldown == 0 {
		c.Cooldown = 60 * time.Second
	}
	if c.HalfOpenSuccesses == 0 {
		c.HalfOpenSuccesses = 2
	}

	return c
}

// Registry holds one circuit breaker per source id.
type Registry[T any] struct {
	cfg    Config
	logger *zap.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[T]
	openedAt map[string]time.Time

	now func() time.Time
}

// NewRegistry creates an empty registry with the given thresholds.
func NewRegistry[T any](cfg Config, logger *zap.Logger) *Registry[T] {
	return &Registry[T]{
		cfg:      cfg.withDefaults(),
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker[T]),
		openedAt: make(map[string]time.Time),
		now:      time.Now,
	}
}

// For returns the breaker for a source, creating it on first use.
func (r *Registry[T]) For(sourceID string) *gobreaker.CircuitBreaker[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[sourceID]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        sourceID,
		MaxRequests: r.cfg.HalfOpenSuccesses,
		Timeout:     r.cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= r.cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.recordTransition(name, from, to)
		},
	})
	r.breakers[sourceID] = cb

	return cb
}

// Drop removes a source's breaker, resetting its failure history. Called when
// the source is edited or deleted.
func (r *Registry[T]) Drop(sourceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.breakers, sourceID)
	delete(r.openedAt, sourceID)
}

// State returns the breaker state for a source; unknown sources report closed.
func (r *Registry[T]) State(sourceID string) gobreaker.State {
	r.mu.Lock()
	cb, ok := r.breakers[sourceID]
	r.mu.Unlock()

	if !ok {
		return gobreaker.StateClosed
	}

	return cb.State()
}

// CooldownRemaining returns how long until an open breaker permits a trial
// request, and zero when the breaker is not open.
func (r *Registry[T]) CooldownRemaining(sourceID string) time.Duration {
	if r.State(sourceID) != gobreaker.StateOpen {
		return 0
	}

	r.mu.Lock()
	opened, ok := r.openedAt[sourceID]
	r.mu.Unlock()

	if !ok {
		return r.cfg.Cooldown
	}

	remaining := r.cfg.Cooldown - r.now().Sub(opened)
	if remaining < 0 {
		return 0
	}

	return remaining
}

func (r *Registry[T]) recordTransition(sourceID string, from, to gobreaker.State) {
	r.mu.Lock()
	if to == gobreaker.StateOpen {
		r.openedAt[sourceID] = r.now()
	} else {
		delete(r.openedAt, sourceID)
	}
	r.mu.Unlock()

	if r.logger != nil {
		r.logger.Warn("circuit state changed",
			zap.String("source_id", sourceID),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}
}
