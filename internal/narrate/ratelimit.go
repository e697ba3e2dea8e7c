package narrate

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter gates outbound synthesis requests for the whole process.
// It combines a cooldown window, tripped when the backend reports a rate
// limit, with a minimum spacing between any two requests. One instance is
// shared by every caller of the asset cache; duplicating it would let the
// slide and announcement paths issue requests past each other's cooldown.
type RateLimiter struct {
	mu            sync.Mutex
	spacing       *rate.Limiter
	backoff       time.Duration
	cooldownUntil time.Time

	// now is replaceable for tests.
	now func() time.Time
}

// NewRateLimiter creates a limiter enforcing minSpacing between requests
// and a cooldown of backoff after each rate-limit signal.
func NewRateLimiter(minSpacing, backoff time.Duration) *RateLimiter {
	limit := rate.Inf
	if minSpacing > 0 {
		limit = rate.Every(minSpacing)
	}
	return &RateLimiter{
		spacing: rate.NewLimiter(limit, 1),
		backoff: backoff,
		now:     time.Now,
	}
}

// Allow reports whether a request may be issued now. A true result
// consumes the spacing token, so the caller must actually issue the
// request. Allow never blocks; a false result is backpressure, not an
// error.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.now()
	if t.Before(r.cooldownUntil) {
		return false
	}
	return r.spacing.AllowN(t, 1)
}

// TripCooldown starts a cooldown window after a rate-limit signal.
// A non-positive retryAfter uses the configured backoff.
func (r *RateLimiter) TripCooldown(retryAfter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wait := r.backoff
	if retryAfter > 0 {
		wait = retryAfter
	}
	until := r.now().Add(wait)
	if until.After(r.cooldownUntil) {
		r.cooldownUntil = until
	}
}

// CoolingDown reports whether the cooldown window is active.
func (r *RateLimiter) CoolingDown() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.now().Before(r.cooldownUntil)
}

// Reset clears the cooldown window.
func (r *RateLimiter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cooldownUntil = time.Time{}
}
