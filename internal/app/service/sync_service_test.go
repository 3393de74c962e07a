package service

import (
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"component-catalog-service/internal/domain"
)

type stubCircuits struct {
	state    gobreaker.State
	cooldown time.Duration
}

func (s *stubCircuits) State(string) gobreaker.State           { return s.state }
func (s *stubCircuits) CooldownRemaining(string) time.Duration { return s.cooldown }

func TestConnectionTracker_StateTransitions(t *testing.T) {
	tr := NewConnectionTracker(nil, zap.NewNop())

	assert.Equal(t, StateDisconnected, tr.StatusFor("s1").State)

	tr.BeginAttempt("s1")
	assert.Equal(t, StateConnecting, tr.StatusFor("s1").State)

	tr.RecordSuccess("s1")
	assert.Equal(t, StateConnected, tr.StatusFor("s1").State)

	tr.BeginAttempt("s1")
	tr.RecordFailure("s1", domain.NewRejected("s1", 500))
	status := tr.StatusFor("s1")
	assert.Equal(t, StateError, status.State)
	assert.Equal(t, 1, status.Failures)
	assert.Equal(t, domain.FailureRejected, status.ErrorKind)
}

func TestConnectionTracker_SuccessResetsFailureStreak(t *testing.T) {
	tr := NewConnectionTracker(nil, zap.NewNop())

	tr.RecordFailure("s1", domain.NewRejected("s1", 500))
	tr.RecordFailure("s1", domain.NewRejected("s1", 500))
	tr.RecordSuccess("s1")

	status := tr.StatusFor("s1")
	assert.Zero(t, status.Failures)
	assert.Empty(t, status.LastError)
	assert.True(t, tr.ShouldAttempt("s1"))
}

func TestConnectionTracker_AutoRetriesExhaust(t *testing.T) {
	tr := NewConnectionTracker(nil, zap.NewNop())

	for i := 0; i < maxAutoRetries; i++ {
		require.True(t, tr.ShouldAttempt("s1"), "attempt %d should be allowed", i+1)
		tr.BeginAttempt("s1")
		tr.RecordFailure("s1", domain.NewUnreachable("s1", assert.AnError))
	}

	assert.False(t, tr.ShouldAttempt("s1"))
	require.NotNil(t, tr.LastError("s1"))
	assert.Equal(t, domain.FailureUnreachable, tr.LastError("s1").Kind)
}

func TestConnectionTracker_HalfOpenCircuitAllowsTrial(t *testing.T) {
	circuits := &stubCircuits{state: gobreaker.StateOpen}
	tr := NewConnectionTracker(circuits, zap.NewNop())

	for i := 0; i < maxAutoRetries; i++ {
		tr.RecordFailure("s1", domain.NewUnreachable("s1", assert.AnError))
	}
	assert.False(t, tr.ShouldAttempt("s1"))

	// Cooldown elapsed, breaker moves to half-open: one trial may pass
	circuits.state = gobreaker.StateHalfOpen
	assert.True(t, tr.ShouldAttempt("s1"))
}

func TestConnectionTracker_ManualRetryResets(t *testing.T) {
	tr := NewConnectionTracker(nil, zap.NewNop())

	for i := 0; i < maxAutoRetries; i++ {
		tr.RecordFailure("s1", domain.NewRejected("s1", 503))
	}
	require.False(t, tr.ShouldAttempt("s1"))

	tr.Retry("s1")

	status := tr.StatusFor("s1")
	assert.Equal(t, StateDisconnected, status.State)
	assert.Zero(t, status.Failures)
	assert.Nil(t, tr.LastError("s1"))
	assert.True(t, tr.ShouldAttempt("s1"))
}

func TestConnectionTracker_Forget(t *testing.T) {
	tr := NewConnectionTracker(nil, zap.NewNop())

	tr.RecordFailure("s1", domain.NewRejected("s1", 500))
	tr.Forget("s1")

	assert.Nil(t, tr.LastError("s1"))
	assert.Equal(t, StateDisconnected, tr.StatusFor("s1").State)
}

func TestConnectionTracker_StatusesSortedAndCircuitAware(t *testing.T) {
	circuits := &stubCircuits{state: gobreaker.StateOpen, cooldown: 42 * time.Second}
	tr := NewConnectionTracker(circuits, zap.NewNop())

	tr.RecordSuccess("s2")
	tr.RecordFailure("s1", domain.NewTimeout("s1", assert.AnError))

	statuses := tr.Statuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, "s1", statuses[0].SourceID)
	assert.Equal(t, "s2", statuses[1].SourceID)
	assert.Equal(t, gobreaker.StateOpen.String(), statuses[0].Circuit)
	assert.Equal(t, 42*time.Second, statuses[0].Cooldown)
}
