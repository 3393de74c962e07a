package domain

import (
	"errors"
	"fmt"
	"time"
)

// FailureKind classifies why a source request failed. Per-source failures are
// surfaced as data, never thrown past the aggregator.
type FailureKind string

const (
	FailureUnreachable FailureKind = "unreachable"  // network/DNS level
	FailureRejected    FailureKind = "rejected"     // non-2xx HTTP status
	FailureTimeout     FailureKind = "timeout"      // request deadline exceeded
	FailureCircuitOpen FailureKind = "circuit_open" // short-circuited, no network attempt
	FailureBadPayload  FailureKind = "bad_payload"  // 2xx but structurally invalid body
)

// SourceError is a classified failure from one source.
type SourceError struct {
	SourceID   string
	Kind       FailureKind
	Status     int           // HTTP status, set for FailureRejected
	RetryAfter time.Duration // remaining cooldown, set for FailureCircuitOpen
	cause      error
}

func (e *SourceError) Error() string {
	switch e.Kind {
	case FailureRejected:
		return fmt.Sprintf("source %s rejected request with status %d", e.SourceID, e.Status)
	case FailureCircuitOpen:
		return fmt.Sprintf("source %s temporarily unavailable, retry in %s", e.SourceID, e.RetryAfter.Round(time.Second))
	default:
		if e.cause != nil {
			return fmt.Sprintf("source %s %s: %v", e.SourceID, e.Kind, e.cause)
		}

		return fmt.Sprintf("source %s %s", e.SourceID, e.Kind)
	}
}

func (e *SourceError) Unwrap() error {
	return e.cause
}

// NewUnreachable wraps a network-level failure.
func NewUnreachable(sourceID string, cause error) *SourceError {
	return &SourceError{SourceID: sourceID, Kind: FailureUnreachable, cause: cause}
}

// NewRejected wraps a non-2xx response.
func NewRejected(sourceID string, status int) *SourceError {
	return &SourceError{SourceID: sourceID, Kind: FailureRejected, Status: status}
}

// NewTimeout wraps a deadline failure. Kept distinct from unreachable so the
// circuit breaker counts it.
func NewTimeout(sourceID string, cause error) *SourceError {
	return &SourceError{SourceID: sourceID, Kind: FailureTimeout, cause: cause}
}

// NewCircuitOpen is the synthetic error returned while a source's breaker is
// open; no network call was made.
func NewCircuitOpen(sourceID string, retryAfter time.Duration) *SourceError {
	return &SourceError{SourceID: sourceID, Kind: FailureCircuitOpen, RetryAfter: retryAfter}
}

// NewBadPayload wraps a 2xx response whose body failed structural validation.
// Treated the same as any other source-level failure, never a crash.
func NewBadPayload(sourceID string, cause error) *SourceError {
	return &SourceError{SourceID: sourceID, Kind: FailureBadPayload, cause: cause}
}

// KindOf extracts the failure kind from an error chain, or "" when the error
// is not a classified source failure.
func KindOf(err error) FailureKind {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Kind
	}

	return ""
}

// Aggregation-level errors. Individual source failures degrade the result
// set; only these escalate to the caller.
var (
	// ErrNoSources means zero sources are configured or visible for the role.
	ErrNoSources = errors.New("no eligible sources")

	// ErrAllSourcesFailed means every eligible source failed and nothing
	// could be served from cache.
	ErrAllSourcesFailed = errors.New("all sources failed")

	// ErrSourceNotFound means the requested source id is unknown.
	ErrSourceNotFound = errors.New("source not found")
)
