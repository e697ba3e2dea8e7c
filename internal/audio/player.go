package audio

import (
	"errors"
	"sync"
	"time"
)

// ErrPlayerClosed is returned when Play is called on a closed player.
var ErrPlayerClosed = errors.New("player is closed")

// Player is the audio-output primitive consumed by the playback
// pipeline. Play starts the asset at url and invokes onEnded exactly
// once when playback ends naturally; a stopped playback never invokes
// it. duration is the known narration length, for implementations that
// cannot observe the asset itself.
type Player interface {
	Play(url string, duration time.Duration, onEnded func()) error
	Stop()
	Playing() bool
	Position() time.Duration
	Close() error
}

// TimerPlayer simulates playback by letting the known duration elapse.
// It is used for headless runs where the real audio element lives in the
// surrounding application.
type TimerPlayer struct {
	mu      sync.Mutex
	gen     uint64
	playing bool
	started time.Time
	length  time.Duration
	timer   *time.Timer
	closed  bool
}

// NewTimerPlayer creates a stopped timer player.
func NewTimerPlayer() *TimerPlayer {
	return &TimerPlayer{}
}

// Play begins simulated playback. Any current playback is stopped first
// without firing its onEnded.
func (p *TimerPlayer) Play(url string, duration time.Duration, onEnded func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPlayerClosed
	}

	p.stopLocked()
	p.gen++
	gen := p.gen
	p.playing = true
	p.started = time.Now()
	p.length = duration

	p.timer = time.AfterFunc(duration, func() {
		p.mu.Lock()
		if gen != p.gen || !p.playing {
			p.mu.Unlock()
			return
		}
		p.playing = false
		p.mu.Unlock()
		if onEnded != nil {
			onEnded()
		}
	})
	return nil
}

// Stop halts playback without firing onEnded.
func (p *TimerPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *TimerPlayer) stopLocked() {
	p.gen++
	p.playing = false
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// Playing reports whether simulated playback is active.
func (p *TimerPlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Position returns the elapsed playback position, clamped to the length.
func (p *TimerPlayer) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return 0
	}
	pos := time.Since(p.started)
	if pos > p.length {
		pos = p.length
	}
	return pos
}

// Close stops playback and rejects further Play calls.
func (p *TimerPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.closed = true
	return nil
}
