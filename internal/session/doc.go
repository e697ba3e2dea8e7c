// Package session owns one presentation's playback pipeline: the shared
// rate limiter, asset cache, prefetcher, navigator, and announcement
// queue, with explicit construction and teardown.
package session
