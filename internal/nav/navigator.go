package nav

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/voxdeck/voxdeck/internal/narrate"
	"github.com/voxdeck/voxdeck/internal/slide"
)

// Navigator owns the navigation state for one presentation: the current
// parent index, the current child index (-1 when no child is shown), the
// play/pause flag, and the timers that drive auto-advance. All timers
// carry a generation token; any manual move bumps the generation so a
// stale timer callback becomes a no-op instead of advancing past the
// user's position.
type Navigator struct {
	mu   sync.Mutex
	deck slide.Deck
	cfg  Config

	index      int
	childIndex int
	playing    bool
	manualNav  bool
	pauseAfter bool
	finished   bool
	speechHold bool

	timerGen     uint64
	advanceTimer *time.Timer
	graceTimer   *time.Timer

	// audioWaitSince marks when the displayed slide started waiting for
	// its narration asset, bounding the poll loop.
	audioWaitSince time.Time

	cache  *narrate.AssetCache
	logger *log.Logger
	now    func() time.Time

	onFinished func()
	onChange   func()
}

// New creates a navigator over deck, consulting cache for narration
// durations.
func New(deck slide.Deck, cache *narrate.AssetCache, cfg Config) *Navigator {
	return &Navigator{
		deck:       deck,
		cfg:        cfg,
		childIndex: -1,
		cache:      cache,
		logger:     log.Default().With("component", "nav"),
		now:        time.Now,
	}
}

// SetOnFinished registers the presentation-finished callback. It fires
// exactly once per presentation. Set before Start.
func (n *Navigator) SetOnFinished(fn func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onFinished = fn
}

// SetOnChange registers a callback fired after every position or play
// state change. Set before Start.
func (n *Navigator) SetOnChange(fn func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onChange = fn
}

// Start begins playback and schedules the first auto-advance.
func (n *Navigator) Start() {
	n.mu.Lock()
	if n.finished || n.deck.Len() == 0 {
		n.mu.Unlock()
		return
	}
	n.cancelTimersLocked()
	n.playing = true
	n.audioWaitSince = n.now()
	n.scheduleLocked()
	n.mu.Unlock()
	n.notifyChange()
}

// Stop halts playback and all pending timers.
func (n *Navigator) Stop() {
	n.mu.Lock()
	n.cancelTimersLocked()
	n.playing = false
	n.mu.Unlock()
	n.notifyChange()
}

// Next moves to the next top-level slide. A no-op at the last index.
func (n *Navigator) Next() {
	n.manual(func() bool {
		if n.index < n.deck.Len()-1 {
			n.index++
			n.childIndex = -1
		}
		return true
	})
}

// Prev moves to the previous top-level slide. A no-op at index 0.
func (n *Navigator) Prev() {
	n.manual(func() bool {
		if n.index > 0 {
			n.index--
			n.childIndex = -1
		}
		return true
	})
}

// GoTo jumps to an absolute top-level index, clamped to the deck.
func (n *Navigator) GoTo(i int) {
	n.manual(func() bool {
		if i < 0 {
			i = 0
		}
		if max := n.deck.Len() - 1; i > max {
			i = max
		}
		if i != n.index {
			n.childIndex = -1
		}
		n.index = i
		return true
	})
}

// ChildNext enters the first child, or moves to the next one. A no-op
// when the current parent has no children.
func (n *Navigator) ChildNext() {
	n.manual(func() bool {
		if n.index >= n.deck.Len() {
			return false
		}
		children := n.deck.Children(n.index)
		if len(children) == 0 {
			return false
		}
		if n.childIndex < len(children)-1 {
			n.childIndex++
		}
		return true
	})
}

// ChildPrev moves back one child; from child 0 it exits to the parent.
// A no-op when no child is shown.
func (n *Navigator) ChildPrev() {
	n.manual(func() bool {
		if n.index >= n.deck.Len() || len(n.deck.Children(n.index)) == 0 {
			return false
		}
		if n.childIndex >= 0 {
			n.childIndex--
		}
		return true
	})
}

// TogglePlayPause flips the playing flag. Pausing on the terminal
// position arms the finish grace timer.
func (n *Navigator) TogglePlayPause() {
	n.mu.Lock()
	n.cancelTimersLocked()
	n.playing = !n.playing
	if n.playing {
		n.audioWaitSince = n.now()
		n.scheduleLocked()
	} else if n.atTerminalLocked() && !n.finished {
		n.startGraceLocked()
	}
	n.mu.Unlock()
	n.notifyChange()
}

// SetSpeechActive pauses auto-advance while higher-priority speech is
// playing and resumes it once the speech channel goes quiet. The
// displayed slide's timer restarts from the release point, so an
// announcement never eats into a slide's narration time.
func (n *Navigator) SetSpeechActive(active bool) {
	n.mu.Lock()
	if n.speechHold == active {
		n.mu.Unlock()
		return
	}
	n.speechHold = active
	n.cancelTimersLocked()
	if !active && !n.finished {
		n.audioWaitSince = n.now()
		if n.playing {
			n.scheduleLocked()
		} else if n.atTerminalLocked() {
			n.startGraceLocked()
		}
	}
	n.mu.Unlock()
}

// SetPauseAfterCurrent defers a pause request to the end of the current
// slide's narration.
func (n *Navigator) SetPauseAfterCurrent(v bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pauseAfter = v
}

// NarrationEnded tells the navigator the playback element finished the
// narration for slide id. If that slide is still displayed and playback
// is active, the remaining timer wait is skipped and the transition
// pause starts immediately.
func (n *Navigator) NarrationEnded(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	cur, ok := n.deck.At(n.index, n.childIndex)
	if !ok || cur.ID != id || !n.playing || n.finished || n.speechHold {
		return
	}
	n.cancelTimersLocked()
	gen := n.timerGen
	n.advanceTimer = time.AfterFunc(n.cfg.TransitionPause, func() {
		n.advanceTimerFired(gen)
	})
}

// Current returns the displayed slide.
func (n *Navigator) Current() (slide.Slide, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.deck.At(n.index, n.childIndex)
}

// Position returns the parent index and child index (-1 for none).
func (n *Navigator) Position() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.index, n.childIndex
}

// Playing reports the play/pause flag.
func (n *Navigator) Playing() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.playing
}

// Finished reports whether the presentation has run to completion.
func (n *Navigator) Finished() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.finished
}

// WasManualNav reports whether the last move was user-initiated.
func (n *Navigator) WasManualNav() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.manualNav
}

// manual wraps a user-initiated mutation: apply, cancel pending timers,
// mark manual nav, and reschedule when playing. mutate runs under the
// same lock acquisition as its bound checks, so a concurrent timer
// cannot move the position between the check and the move; returning
// false makes the whole call a no-op.
func (n *Navigator) manual(mutate func() bool) {
	n.mu.Lock()
	if !mutate() {
		n.mu.Unlock()
		return
	}
	n.cancelTimersLocked()
	n.manualNav = true
	n.audioWaitSince = n.now()
	if n.playing && !n.finished {
		n.scheduleLocked()
	}
	n.mu.Unlock()
	n.notifyChange()
}

// cancelTimersLocked invalidates all outstanding timer callbacks.
func (n *Navigator) cancelTimersLocked() {
	n.timerGen++
	if n.advanceTimer != nil {
		n.advanceTimer.Stop()
		n.advanceTimer = nil
	}
	if n.graceTimer != nil {
		n.graceTimer.Stop()
		n.graceTimer = nil
	}
}

// scheduleLocked plans the next auto-advance for the displayed slide.
// Narratable slides wait for their cached narration duration, polling
// until the asset is ready; after AudioWaitMax, on permanent failure,
// or when the cached entry carries no usable duration, the nominal
// duration is used so a missing asset can never stall the presentation.
// Nothing is scheduled while higher-priority speech holds the machine.
func (n *Navigator) scheduleLocked() {
	if !n.playing || n.finished || n.speechHold || n.deck.Len() == 0 {
		return
	}
	cur, ok := n.deck.At(n.index, n.childIndex)
	if !ok {
		return
	}

	n.timerGen++
	gen := n.timerGen

	var d time.Duration
	if !cur.Narratable() {
		d = n.cfg.HeaderDuration
	} else if e, cached := n.cache.Get(cur.ID); cached && e.Duration > 0 {
		d = e.Duration + n.cfg.TransitionPause
	} else if cached || n.cache.Failed(cur.ID) || n.now().Sub(n.audioWaitSince) >= n.cfg.AudioWaitMax {
		d = n.fallbackFor(cur) + n.cfg.TransitionPause
	} else {
		n.advanceTimer = time.AfterFunc(n.cfg.AudioPollInterval, func() {
			n.mu.Lock()
			if gen == n.timerGen {
				n.scheduleLocked()
			}
			n.mu.Unlock()
		})
		return
	}

	n.advanceTimer = time.AfterFunc(d, func() {
		n.advanceTimerFired(gen)
	})
}

func (n *Navigator) fallbackFor(s slide.Slide) time.Duration {
	if d := s.FallbackDuration(); d > 0 {
		return d
	}
	return n.cfg.FallbackDuration
}

// advanceTimerFired runs the auto-advance transition, unless the timer
// was superseded while it waited.
func (n *Navigator) advanceTimerFired(gen uint64) {
	n.mu.Lock()
	if gen != n.timerGen || !n.playing || n.finished || n.speechHold {
		n.mu.Unlock()
		return
	}
	fireFinished := n.advanceLocked()
	n.mu.Unlock()

	n.notifyChange()
	if fireFinished && n.onFinished != nil {
		n.onFinished()
	}
}

// advanceLocked performs one auto-advance step. Returns true when the
// presentation-finished signal should fire.
func (n *Navigator) advanceLocked() bool {
	if n.pauseAfter {
		n.pauseAfter = false
		n.playing = false
		n.cancelTimersLocked()
		if n.atTerminalLocked() && !n.finished {
			n.startGraceLocked()
		}
		return false
	}

	children := n.deck.Children(n.index)
	switch {
	case n.childIndex < len(children)-1:
		n.childIndex++
	case n.index < n.deck.Len()-1:
		n.index++
		n.childIndex = -1
	default:
		n.playing = false
		n.cancelTimersLocked()
		return n.finishLocked()
	}

	n.manualNav = false
	n.audioWaitSince = n.now()
	n.scheduleLocked()
	return false
}

// atTerminalLocked reports whether the position is the last slide, or
// the last child of the last slide when it has children.
func (n *Navigator) atTerminalLocked() bool {
	if n.deck.Len() == 0 || n.index != n.deck.Len()-1 {
		return false
	}
	children := n.deck.Children(n.index)
	return len(children) == 0 || n.childIndex == len(children)-1
}

// startGraceLocked arms the manual-pause finish timer. It is restarted
// by any later activity via the generation bump in cancelTimersLocked.
func (n *Navigator) startGraceLocked() {
	gen := n.timerGen
	n.graceTimer = time.AfterFunc(n.cfg.PauseFinishGrace, func() {
		n.mu.Lock()
		if gen != n.timerGen || n.playing || n.finished || !n.atTerminalLocked() {
			n.mu.Unlock()
			return
		}
		fired := n.finishLocked()
		n.mu.Unlock()
		if fired && n.onFinished != nil {
			n.onFinished()
		}
	})
}

// finishLocked marks the presentation finished. The flag guards repeat
// signaling, so the callback fires at most once.
func (n *Navigator) finishLocked() bool {
	if n.finished {
		return false
	}
	n.finished = true
	n.logger.Info("presentation finished", "slides", n.deck.Len())
	return true
}

func (n *Navigator) notifyChange() {
	n.mu.Lock()
	fn := n.onChange
	n.mu.Unlock()
	if fn != nil {
		fn()
	}
}
