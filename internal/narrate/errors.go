package narrate

import (
	"errors"
	"fmt"
	"time"
)

// Common narration errors
var (
	// ErrRateLimited indicates the synthesis backend reported a rate
	// limit. It is global and transient: all requests back off until the
	// cooldown elapses.
	ErrRateLimited = errors.New("synthesis rate limited")

	// ErrSynthesisFailed indicates synthesis failed for one item. It is
	// terminal for that item within the session.
	ErrSynthesisFailed = errors.New("synthesis failed")

	// ErrNotNarratable indicates an item has no speakable text. This is
	// a skip, not a failure.
	ErrNotNarratable = errors.New("item is not narratable")

	// ErrStale indicates an async result arrived after its batch epoch
	// was superseded. Stale results are discarded, never surfaced.
	ErrStale = errors.New("stale continuation")
)

// RateLimitedError carries the provider's retry hint when one was given.
// It unwraps to ErrRateLimited so callers can branch with errors.Is.
type RateLimitedError struct {
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("synthesis rate limited, retry after %s", e.RetryAfter)
	}
	return ErrRateLimited.Error()
}

// Unwrap makes errors.Is(err, ErrRateLimited) hold.
func (e *RateLimitedError) Unwrap() error { return ErrRateLimited }
