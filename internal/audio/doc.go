// Package audio defines the playback-element boundary for narration.
// Actual audio output lives outside the pipeline; this package carries
// the Player contract, a timer-driven player for headless runs, and a
// mock player for tests.
package audio
