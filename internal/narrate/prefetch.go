package narrate

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// PrefetchStats tracks prefetcher counters.
type PrefetchStats struct {
	Batches    int64
	Fetched    int64
	StaleDrops int64
}

// Prefetcher warms the asset cache for a bounded horizon of upcoming
// items without overwhelming the synthesis backend. Batches are
// cancelled cooperatively: replacing or cancelling a batch bumps the
// epoch, and any continuation that observes a stale epoch stops without
// touching the queue. In-flight network calls are never aborted, only
// ignored.
type Prefetcher struct {
	mu       sync.Mutex
	epoch    uint64
	queue    []Item
	cursor   int
	inFlight int
	stats    PrefetchStats
	batchCtx context.Context

	cache       *AssetCache
	concurrency int
	delay       time.Duration
	logger      *log.Logger
}

// NewPrefetcher creates a prefetcher pumping at most concurrency fetches
// at once, waiting delay between completions. Concurrency below 1 is
// treated as 1.
func NewPrefetcher(cache *AssetCache, concurrency int, delay time.Duration) *Prefetcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Prefetcher{
		cache:       cache,
		concurrency: concurrency,
		delay:       delay,
		logger:      log.Default().With("component", "prefetcher"),
	}
}

// One fires a single best-effort fetch, skipped entirely when the item
// is already cached, already failed, or already in flight.
func (p *Prefetcher) One(ctx context.Context, item Item) {
	if !item.Narratable {
		return
	}
	if _, ok := p.cache.Get(item.ID); ok {
		return
	}
	if p.cache.Failed(item.ID) || p.cache.InFlight(item.ID) {
		return
	}
	go p.cache.Request(ctx, item)
}

// Batch replaces the current batch with the given items. Narratable
// items not yet cached or failed are queued in order; the previous
// batch's continuations become no-ops.
func (p *Prefetcher) Batch(ctx context.Context, items []Item) {
	queue := make([]Item, 0, len(items))
	for _, it := range items {
		if !it.Narratable {
			continue
		}
		if _, ok := p.cache.Get(it.ID); ok {
			continue
		}
		if p.cache.Failed(it.ID) {
			continue
		}
		queue = append(queue, it)
	}

	p.mu.Lock()
	p.epoch++
	epoch := p.epoch
	p.queue = queue
	p.cursor = 0
	p.batchCtx = ctx
	p.stats.Batches++
	p.mu.Unlock()

	p.logger.Debug("prefetch batch", "epoch", epoch, "items", len(queue))
	p.pump(ctx, epoch)
}

// Cancel invalidates the current batch. Outstanding fetch results still
// land in the cache but no further pumping occurs.
func (p *Prefetcher) Cancel() {
	p.mu.Lock()
	p.epoch++
	p.queue = nil
	p.cursor = 0
	p.mu.Unlock()
}

// Epoch returns the current batch epoch.
func (p *Prefetcher) Epoch() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.epoch
}

// Stats returns a snapshot of prefetcher counters.
func (p *Prefetcher) Stats() PrefetchStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// pump starts fetches while capacity remains and the epoch is current.
func (p *Prefetcher) pump(ctx context.Context, epoch uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.epoch == epoch && p.inFlight < p.concurrency && p.cursor < len(p.queue) {
		item := p.queue[p.cursor]
		p.cursor++
		p.inFlight++
		go p.fetch(ctx, epoch, item)
	}
}

// fetch performs one cache request, then re-validates the epoch before
// continuing the pump after the inter-request delay.
func (p *Prefetcher) fetch(ctx context.Context, epoch uint64, item Item) {
	p.cache.Request(ctx, item)

	p.mu.Lock()
	p.inFlight--
	stale := p.epoch != epoch
	curEpoch := p.epoch
	curCtx := p.batchCtx
	if stale {
		p.stats.StaleDrops++
	} else {
		p.stats.Fetched++
	}
	p.mu.Unlock()

	if stale {
		// A replacing batch may have been blocked on this slot.
		if curCtx != nil && curCtx.Err() == nil {
			p.pump(curCtx, curEpoch)
		}
		return
	}
	if ctx.Err() != nil {
		return
	}

	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return
		}
	}

	p.pump(ctx, epoch)
}
