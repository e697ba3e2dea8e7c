package announce

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/voxdeck/voxdeck/internal/audio"
	"github.com/voxdeck/voxdeck/internal/narrate"
)

// Priority orders announcements. High-priority items are played before
// any queued normal items; within a class, strict FIFO.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityHigh
)

// Item is one queued announcement. It is created on enqueue and
// discarded after playback.
type Item struct {
	// ID keys the audio cache entry. Generated when empty.
	ID string

	// Text to speak.
	Text string

	Priority Priority

	// AudioURL, when set, skips synthesis entirely.
	AudioURL string

	// WaitForAudio requires a resolved asset before the item counts as
	// played; without it the item completes immediately when no audio
	// is available.
	WaitForAudio bool

	// CompleteOnError invokes OnComplete even when the audio could not
	// be resolved.
	CompleteOnError bool

	// OnComplete fires after natural playback end (or per the two flags
	// above). Never fired for items cleared by Interrupt.
	OnComplete func()

	// FallbackDuration stands in when the provider reports none.
	FallbackDuration time.Duration
}

// Queue sequences announcement playback. It never plays two items
// concurrently and guarantees high-before-normal, FIFO-within-class
// ordering.
type Queue struct {
	mu      sync.Mutex
	items   []Item
	playing bool
	gen     uint64
	seq     int64
	closed  bool

	// active is the last state reported through onActive. It spans the
	// whole busy period, including the gaps between consecutive items.
	active   bool
	onActive func(bool)

	cache  *narrate.AssetCache
	player audio.Player
	logger *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewQueue creates an announcement queue over the shared asset cache and
// the given playback element.
func NewQueue(cache *narrate.AssetCache, player audio.Player) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		cache:  cache,
		player: player,
		logger: log.Default().With("component", "announce"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetOnActive registers a callback fired when the queue transitions
// between idle and busy. Busy covers the whole run of queued items, not
// each item individually. Set before the first Enqueue.
func (q *Queue) SetOnActive(fn func(bool)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onActive = fn
}

// Enqueue adds an announcement and starts playback if the queue was
// idle. High-priority items are inserted ahead of all normal items but
// behind earlier high-priority ones.
func (q *Queue) Enqueue(item Item) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	if item.ID == "" {
		q.seq++
		item.ID = fmt.Sprintf("announce-%d", q.seq)
	}

	if item.Priority == PriorityHigh {
		pos := 0
		for pos < len(q.items) && q.items[pos].Priority == PriorityHigh {
			pos++
		}
		q.items = append(q.items, Item{})
		copy(q.items[pos+1:], q.items[pos:])
		q.items[pos] = item
	} else {
		q.items = append(q.items, item)
	}
	idle := !q.playing
	q.mu.Unlock()

	q.logger.Debug("enqueued", "id", item.ID, "priority", item.Priority)
	if idle {
		go q.playNext()
	}
}

// Say is shorthand for a normal-priority spoken message.
func (q *Queue) Say(text string) {
	q.Enqueue(Item{Text: text, WaitForAudio: true, CompleteOnError: true})
}

// Interrupt stops current playback, clears the queue, and releases the
// speech channel. An in-flight synthesis call is left to complete; its
// result lands in the cache and is simply not played.
func (q *Queue) Interrupt() {
	q.mu.Lock()
	q.gen++
	q.items = nil
	q.playing = false
	var fn func(bool)
	if q.active {
		q.active = false
		fn = q.onActive
	}
	q.mu.Unlock()
	q.player.Stop()
	if fn != nil {
		fn(false)
	}
}

// Len returns the number of queued (not yet playing) items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Playing reports whether an announcement is currently playing.
func (q *Queue) Playing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.playing
}

// Close interrupts playback and rejects further enqueues.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.Interrupt()
	q.cancel()
}

// playNext dequeues and plays the head item, then repeats until the
// queue drains. Items that cannot resolve audio are completed or dropped
// per their flags rather than blocking the queue.
func (q *Queue) playNext() {
	for {
		q.mu.Lock()
		if q.playing || q.closed || len(q.items) == 0 {
			var fn func(bool)
			if !q.playing && !q.closed && len(q.items) == 0 && q.active {
				q.active = false
				fn = q.onActive
			}
			q.mu.Unlock()
			if fn != nil {
				fn(false)
			}
			return
		}
		item := q.items[0]
		q.items = q.items[1:]
		q.playing = true
		gen := q.gen
		var fn func(bool)
		if !q.active {
			q.active = true
			fn = q.onActive
		}
		var next *Item
		if len(q.items) > 0 {
			n := q.items[0]
			next = &n
		}
		q.mu.Unlock()
		if fn != nil {
			fn(true)
		}

		entry, ok := q.cache.Request(q.ctx, narrateItem(item))
		if !ok {
			// Interrupted while resolving: the item was already cleared.
			if !q.settle(gen) {
				return
			}
			if !item.WaitForAudio || item.CompleteOnError {
				q.complete(item)
			} else {
				q.logger.Warn("announcement dropped, audio unavailable", "id", item.ID)
			}
			continue
		}

		q.mu.Lock()
		stale := gen != q.gen
		q.mu.Unlock()
		if stale {
			return
		}

		// Warm the next item while this one plays.
		if next != nil {
			go q.cache.Request(q.ctx, narrateItem(*next))
		}

		err := q.player.Play(entry.AudioURL, entry.Duration, func() {
			q.onEnded(gen, item)
		})
		if err != nil {
			q.logger.Error("announcement playback failed", "id", item.ID, "error", err)
			if !q.settle(gen) {
				return
			}
			if item.CompleteOnError {
				q.complete(item)
			}
			continue
		}
		return
	}
}

// onEnded resumes the loop after natural playback end. A stale
// generation means Interrupt cleared this item mid-play.
func (q *Queue) onEnded(gen uint64, item Item) {
	if !q.settle(gen) {
		return
	}
	q.complete(item)
	q.playNext()
}

// settle releases the speech channel. Returns false when gen is stale.
func (q *Queue) settle(gen uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if gen != q.gen {
		return false
	}
	q.playing = false
	return true
}

func (q *Queue) complete(item Item) {
	if item.OnComplete != nil {
		item.OnComplete()
	}
}

func narrateItem(item Item) narrate.Item {
	return narrate.Item{
		ID:         item.ID,
		Text:       item.Text,
		AudioURL:   item.AudioURL,
		Fallback:   item.FallbackDuration,
		Narratable: item.Text != "" || item.AudioURL != "",
	}
}
