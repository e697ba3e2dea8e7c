package audio

import (
	"sync"
	"time"
)

// MockPlayer implements Player for tests. Playback never ends on its
// own: tests call Finish to fire the pending onEnded, which makes
// ended-event ordering deterministic.
type MockPlayer struct {
	mu      sync.Mutex
	playing bool
	onEnded func()

	// Recorded activity for assertions.
	Plays []string
	Stops int
}

// NewMockPlayer creates a stopped mock player.
func NewMockPlayer() *MockPlayer {
	return &MockPlayer{}
}

// Play records the url and holds onEnded until Finish is called.
func (p *MockPlayer) Play(url string, duration time.Duration, onEnded func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = true
	p.onEnded = onEnded
	p.Plays = append(p.Plays, url)
	return nil
}

// Finish simulates natural end of the current playback.
func (p *MockPlayer) Finish() {
	p.mu.Lock()
	end := p.onEnded
	p.playing = false
	p.onEnded = nil
	p.mu.Unlock()
	if end != nil {
		end()
	}
}

// Stop halts playback; the held onEnded is discarded.
func (p *MockPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		p.Stops++
	}
	p.playing = false
	p.onEnded = nil
}

// Playing reports whether a Play is outstanding.
func (p *MockPlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// PlayedURLs returns a copy of every url passed to Play, in order.
func (p *MockPlayer) PlayedURLs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.Plays))
	copy(out, p.Plays)
	return out
}

// StopCount returns how many times an active playback was stopped.
func (p *MockPlayer) StopCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Stops
}

// Position always reports zero.
func (p *MockPlayer) Position() time.Duration { return 0 }

// Close stops playback.
func (p *MockPlayer) Close() error {
	p.Stop()
	return nil
}
