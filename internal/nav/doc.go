// Package nav drives the two-dimensional slide navigation machine:
// parent and child position, play/pause, timed auto-advance synchronized
// with narration durations, and the idempotent presentation-finished
// signal.
package nav
