// Package announce plays short spoken system messages sequentially,
// independent of slide narration but on the same cache and rate-limit
// substrate. High-priority messages jump the queue; the next item's
// audio is prefetched while the current one plays.
package announce
