package service

import (
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"component-catalog-service/internal/domain"
)

// ConnState is the connection state of one source.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected" // no attempt yet
	StateConnecting   ConnState = "connecting"   // request in flight
	StateConnected    ConnState = "connected"    // last attempt succeeded
	StateError        ConnState = "error"        // last attempt failed
)

// maxAutoRetries caps consecutive failed attempts per source. Once reached,
// the source stays in error until a manual retry or a half-open circuit
// trial.
const maxAutoRetries = 3

// CircuitInspector is the read side of the breaker registry.
type CircuitInspector interface {
	State(sourceID string) gobreaker.State
	CooldownRemaining(sourceID string) time.Duration
}

// SourceStatus is a point-in-time snapshot of one source's connection and
// circuit state, for the status endpoint and dashboard.
type SourceStatus struct {
	SourceID  string             `json:"source_id"`
	State     ConnState          `json:"state"`
	Failures  int                `json:"failures"`
	LastError string             `json:"last_error,omitempty"`
	ErrorKind domain.FailureKind `json:"error_kind,omitempty"`
	Circuit   string             `json:"circuit"`
	Cooldown  time.Duration      `json:"cooldown,omitempty"`
	ChangedAt time.Time          `json:"changed_at"`
}

type sourceConn struct {
	state     ConnState
	lastError *domain.SourceError
	failures  int // consecutive, reset on success or manual retry
	changedAt time.Time
}

// ConnectionTracker tracks per-source connection state transitions:
// disconnected -> connecting -> connected | error. It is the bookkeeping
// side of the sync controller; the breaker registry is the enforcement side.
type ConnectionTracker struct {
	mu       sync.Mutex
	conns    map[string]*sourceConn
	circuits CircuitInspector
	logger   *zap.Logger
	now      func() time.Time
}

// NewConnectionTracker creates a tracker. circuits may be nil when no breaker
// registry is wired (tests).
func NewConnectionTracker(circuits CircuitInspector, logger *zap.Logger) *ConnectionTracker {
	return &ConnectionTracker{
		conns:    make(map[string]*sourceConn),
		circuits: circuits,
		logger:   logger,
		now:      time.Now,
	}
}

// conn returns the entry for a source, creating it disconnected. Caller must
// hold t.mu.
func (t *ConnectionTracker) conn(sourceID string) *sourceConn {
	c, ok := t.conns[sourceID]
	if !ok {
		c = &sourceConn{state: StateDisconnected, changedAt: t.now()}
		t.conns[sourceID] = c
	}

	return c
}

// ShouldAttempt reports whether an automatic fetch may proceed. After
// maxAutoRetries consecutive failures only a half-open circuit trial passes;
// everything else waits for a manual retry.
func (t *ConnectionTracker) ShouldAttempt(sourceID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	c := t.conn(sourceID)
	if c.failures < maxAutoRetries {
		return true
	}
	if t.circuits != nil && t.circuits.State(sourceID) == gobreaker.StateHalfOpen {
		return true
	}

	return false
}

// BeginAttempt marks a source as connecting.
func (t *ConnectionTracker) BeginAttempt(sourceID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c := t.conn(sourceID)
	c.state = StateConnecting
	c.changedAt = t.now()
}

// RecordSuccess marks a source as connected and resets its failure streak.
func (t *ConnectionTracker) RecordSuccess(sourceID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c := t.conn(sourceID)
	c.state = StateConnected
	c.failures = 0
	c.lastError = nil
	c.changedAt = t.now()
}

// RecordFailure marks a source as errored and advances its failure streak.
func (t *ConnectionTracker) RecordFailure(sourceID string, srcErr *domain.SourceError) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c := t.conn(sourceID)
	c.state = StateError
	c.failures++
	c.lastError = srcErr
	c.changedAt = t.now()

	if c.failures == maxAutoRetries {
		t.logger.Warn("source exhausted automatic retries",
			zap.String("source_id", sourceID),
			zap.String("kind", string(domain.KindOf(srcErr))),
		)
	}
}

// Retry is the manual reset: the failure streak clears and the source goes
// back to disconnected so the next load attempts it again.
func (t *ConnectionTracker) Retry(sourceID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c := t.conn(sourceID)
	c.state = StateDisconnected
	c.failures = 0
	c.lastError = nil
	c.changedAt = t.now()

	t.logger.Info("manual retry requested", zap.String("source_id", sourceID))
}

// Forget drops all tracked state for a source, used when the source is
// deleted or reconfigured.
func (t *ConnectionTracker) Forget(sourceID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.conns, sourceID)
}

// LastError returns the most recent classified failure, or nil after a
// success or manual retry.
func (t *ConnectionTracker) LastError(sourceID string) *domain.SourceError {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.conns[sourceID]
	if !ok {
		return nil
	}

	return c.lastError
}

// StatusFor returns the snapshot for one source, disconnected if untracked.
func (t *ConnectionTracker) StatusFor(sourceID string) SourceStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.snapshot(sourceID, t.conn(sourceID))
}

// Statuses returns snapshots for every tracked source, sorted by source id.
func (t *ConnectionTracker) Statuses() []SourceStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	statuses := make([]SourceStatus, 0, len(t.conns))
	for id, c := range t.conns {
		statuses = append(statuses, t.snapshot(id, c))
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].SourceID < statuses[j].SourceID })

	return statuses
}

// snapshot builds one status entry. Caller must hold t.mu.
func (t *ConnectionTracker) snapshot(sourceID string, c *sourceConn) SourceStatus {
	s := SourceStatus{
		SourceID:  sourceID,
		State:     c.state,
		Failures:  c.failures,
		Circuit:   gobreaker.StateClosed.String(),
		ChangedAt: c.changedAt,
	}
	if c.lastError != nil {
		s.LastError = c.lastError.Error()
		s.ErrorKind = c.lastError.Kind
	}
	if t.circuits != nil {
		s.Circuit = t.circuits.State(sourceID).String()
		s.Cooldown = t.circuits.CooldownRemaining(sourceID)
	}

	return s
}
