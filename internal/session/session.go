package session

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/voxdeck/voxdeck/internal/announce"
	"github.com/voxdeck/voxdeck/internal/audio"
	"github.com/voxdeck/voxdeck/internal/narrate"
	"github.com/voxdeck/voxdeck/internal/nav"
	"github.com/voxdeck/voxdeck/internal/slide"
)

// Session is the long-lived controller for one presentation. It owns the
// whole playback pipeline and keeps the prefetch horizon warm as the
// position moves. Construct with New, run with Start, release with Stop.
type Session struct {
	cfg    Config
	deck   slide.Deck
	logger *log.Logger

	limiter    *narrate.RateLimiter
	cache      *narrate.AssetCache
	prefetcher *narrate.Prefetcher
	nav        *nav.Navigator
	announcer  *announce.Queue
	player     audio.Player

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	started    bool
	onFinished func()
	onChange   func()
}

// New assembles a session over deck. The synthesizer and player are the
// two external collaborators; everything between them is owned here.
// One rate limiter instance is shared by slide narration and
// announcements so neither can request past the other's cooldown.
func New(cfg Config, deck slide.Deck, synth narrate.Synthesizer, player audio.Player) *Session {
	limiter := narrate.NewRateLimiter(cfg.MinRequestSpacing, cfg.Backoff)
	cache := narrate.NewAssetCache(synth, limiter)

	s := &Session{
		cfg:        cfg,
		deck:       deck,
		logger:     log.Default().With("component", "session"),
		limiter:    limiter,
		cache:      cache,
		prefetcher: narrate.NewPrefetcher(cache, cfg.Concurrency, cfg.PrefetchDelay),
		nav:        nav.New(deck, cache, cfg.Nav),
		announcer:  announce.NewQueue(cache, player),
		player:     player,
	}
	s.nav.SetOnChange(s.handleChange)
	s.nav.SetOnFinished(s.handleFinished)
	// Announcements are higher-priority speech: slide auto-advance holds
	// while one is playing and resumes when the queue drains.
	s.announcer.SetOnActive(s.nav.SetSpeechActive)
	return s
}

// SetOnFinished registers the application's presentation-finished
// callback. Set before Start.
func (s *Session) SetOnFinished(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFinished = fn
}

// SetOnChange registers a callback fired after every position or play
// state change. Set before Start.
func (s *Session) SetOnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Start warms the initial prefetch horizon and, when configured, begins
// auto-playing.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.syncPrefetch()
	if s.cfg.AutoPlay {
		s.nav.Start()
	}
}

// Stop tears the pipeline down: prefetch batches are cancelled, timers
// stopped, queued announcements cleared.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	s.prefetcher.Cancel()
	s.nav.Stop()
	s.announcer.Close()
	s.player.Stop()
	if cancel != nil {
		cancel()
	}
	s.logStats()
}

// Navigation passthroughs. Keyboard and direct inputs map 1:1 onto
// these; they never bypass the navigator's invariants.

func (s *Session) Next()            { s.nav.Next() }
func (s *Session) Prev()            { s.nav.Prev() }
func (s *Session) ChildNext()       { s.nav.ChildNext() }
func (s *Session) ChildPrev()       { s.nav.ChildPrev() }
func (s *Session) GoTo(i int)       { s.nav.GoTo(i) }
func (s *Session) TogglePlayPause() { s.nav.TogglePlayPause() }

// Current returns the displayed slide.
func (s *Session) Current() (slide.Slide, bool) { return s.nav.Current() }

// Position returns the parent and child indexes.
func (s *Session) Position() (int, int) { return s.nav.Position() }

// Playing reports the play/pause flag.
func (s *Session) Playing() bool { return s.nav.Playing() }

// Finished reports whether the presentation ran to completion.
func (s *Session) Finished() bool { return s.nav.Finished() }

// Deck returns the presented deck.
func (s *Session) Deck() slide.Deck { return s.deck }

// Cache exposes the asset cache for duration lookups.
func (s *Session) Cache() *narrate.AssetCache { return s.cache }

// Announce queues a spoken system message.
func (s *Session) Announce(item announce.Item) { s.announcer.Enqueue(item) }

// InterruptAnnouncements clears queued system speech, for when the user
// issues a new request that takes priority.
func (s *Session) InterruptAnnouncements() { s.announcer.Interrupt() }

// NarrationEnded forwards the playback element's ended notification for
// the displayed slide.
func (s *Session) NarrationEnded(id string) { s.nav.NarrationEnded(id) }

// handleChange re-warms the prefetch horizon after every move.
func (s *Session) handleChange() {
	s.mu.Lock()
	started := s.started
	fn := s.onChange
	s.mu.Unlock()

	if started {
		s.syncPrefetch()
	}
	if fn != nil {
		fn()
	}
}

// handleFinished announces the closing message and fans the signal out
// to the application. The navigator guarantees this runs once.
func (s *Session) handleFinished() {
	if s.cfg.ClosingMessage != "" {
		s.announcer.Enqueue(announce.Item{
			ID:              "closing-message",
			Text:            s.cfg.ClosingMessage,
			Priority:        announce.PriorityHigh,
			WaitForAudio:    true,
			CompleteOnError: true,
		})
	}

	s.mu.Lock()
	fn := s.onFinished
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// syncPrefetch rebuilds the upcoming-item batch: the remaining children
// of the current parent, then subsequent parents and their children, up
// to the configured horizon.
func (s *Session) syncPrefetch() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		return
	}

	index, childIndex := s.nav.Position()
	horizon := s.cfg.PrefetchHorizon
	if horizon <= 0 {
		horizon = 1
	}

	items := make([]narrate.Item, 0, horizon+1)
	add := func(sl slide.Slide) bool {
		items = append(items, narrate.SlideItem(sl))
		return len(items) >= horizon+1
	}

	// The displayed slide always leads the batch.
	if cur, ok := s.deck.At(index, childIndex); ok {
		add(cur)
	}

	full := false
	for i := index; i < s.deck.Len() && !full; i++ {
		from := 0
		if i == index {
			from = childIndex + 1
		} else {
			full = add(s.deck.Parent(i))
		}
		children := s.deck.Children(i)
		for c := from; c < len(children) && !full; c++ {
			full = add(children[c])
		}
	}

	s.prefetcher.Batch(ctx, items)
}

// logStats emits the session counters at debug level.
func (s *Session) logStats() {
	cs := s.cache.Stats()
	ps := s.prefetcher.Stats()
	s.logger.Debug("session stats",
		"entries", humanize.Comma(int64(s.cache.Len())),
		"hits", humanize.Comma(cs.Hits),
		"misses", humanize.Comma(cs.Misses),
		"synthesized", humanize.Comma(cs.Synthesized),
		"failures", humanize.Comma(cs.Failures),
		"rateLimitSkips", humanize.Comma(cs.RateLimitSkips),
		"prefetchBatches", humanize.Comma(ps.Batches),
		"prefetched", humanize.Comma(ps.Fetched),
		"staleDrops", humanize.Comma(ps.StaleDrops),
	)
}
