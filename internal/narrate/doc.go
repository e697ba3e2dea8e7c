// Package narrate provides the speech-asset substrate for narrated
// playback: a memoizing audio asset cache with in-flight deduplication,
// a shared rate limiter with cooldown and minimum spacing, and an
// epoch-cancelled prefetch pump that warms upcoming items.
package narrate
