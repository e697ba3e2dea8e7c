package narrate

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeSynth is a scriptable Synthesizer that counts calls and tracks
// concurrent use.
type fakeSynth struct {
	mu          sync.Mutex
	calls       int
	inFlight    int
	maxInFlight int

	result Result
	err    error

	// gate, when set, blocks every call until released.
	gate chan struct{}
}

func (f *fakeSynth) Synthesize(_ context.Context, text string) (Result, error) {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	gate := f.gate
	res, err := f.result, f.err
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if res.AudioURL == "" && err == nil {
		res.AudioURL = "audio://" + text
	}
	return res, err
}

func (f *fakeSynth) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func openLimiter() *RateLimiter {
	return NewRateLimiter(0, 10*time.Second)
}

func contentItem(id, text string) Item {
	return Item{ID: id, Text: text, Fallback: 4 * time.Second, Narratable: true}
}

func TestRequestCacheHit(t *testing.T) {
	synth := &fakeSynth{result: Result{AudioURL: "a", Duration: 4 * time.Second}}
	cache := NewAssetCache(synth, openLimiter())
	item := contentItem("s1", "hello")

	first, ok := cache.Request(context.Background(), item)
	if !ok {
		t.Fatal("first request should succeed")
	}
	if first.AudioURL != "a" || first.Duration != 4*time.Second {
		t.Fatalf("unexpected entry: %+v", first)
	}

	second, ok := cache.Request(context.Background(), item)
	if !ok {
		t.Fatal("second request should hit the cache")
	}
	if second != first {
		t.Errorf("cache hit returned different entry: %+v", second)
	}
	if synth.callCount() != 1 {
		t.Errorf("synthesizer called %d times, want 1", synth.callCount())
	}
}

func TestRequestIdempotence(t *testing.T) {
	synth := &fakeSynth{result: Result{AudioURL: "a", Duration: time.Second}}
	cache := NewAssetCache(synth, openLimiter())
	item := contentItem("s1", "hello")

	if _, ok := cache.Request(context.Background(), item); !ok {
		t.Fatal("seed request failed")
	}
	for i := 0; i < 1000; i++ {
		if _, ok := cache.Request(context.Background(), item); !ok {
			t.Fatalf("request %d missed the cache", i)
		}
	}
	if synth.callCount() != 1 {
		t.Errorf("synthesizer called %d times, want 1", synth.callCount())
	}
}

func TestRequestSkipsNonNarratable(t *testing.T) {
	synth := &fakeSynth{}
	cache := NewAssetCache(synth, openLimiter())

	if _, ok := cache.Request(context.Background(), Item{ID: "h1", Text: "title", Narratable: false}); ok {
		t.Error("non-narratable item should be skipped")
	}
	if _, ok := cache.Request(context.Background(), Item{ID: "c1", Narratable: true}); ok {
		t.Error("item without text or audio should be skipped")
	}
	if synth.callCount() != 0 {
		t.Errorf("synthesizer called %d times, want 0", synth.callCount())
	}
}

func TestRequestPreSuppliedAudio(t *testing.T) {
	synth := &fakeSynth{}
	cache := NewAssetCache(synth, openLimiter())

	item := Item{ID: "s1", AudioURL: "persisted://s1", Fallback: 3 * time.Second, Narratable: true}
	e, ok := cache.Request(context.Background(), item)
	if !ok {
		t.Fatal("pre-supplied audio should produce an entry")
	}
	if e.AudioURL != "persisted://s1" || e.Duration != 3*time.Second {
		t.Errorf("unexpected entry: %+v", e)
	}
	if synth.callCount() != 0 {
		t.Errorf("synthesizer called %d times, want 0", synth.callCount())
	}
}

func TestRequestAtMostOneInFlight(t *testing.T) {
	gate := make(chan struct{})
	synth := &fakeSynth{result: Result{Duration: time.Second}, gate: gate}
	cache := NewAssetCache(synth, openLimiter())
	item := contentItem("s1", "hello")

	type outcome struct {
		entry Entry
		ok    bool
	}
	results := make(chan outcome, 2)
	for i := 0; i < 2; i++ {
		go func() {
			e, ok := cache.Request(context.Background(), item)
			results <- outcome{e, ok}
		}()
	}

	// Wait until at least one caller reached the synthesizer.
	waitFor(t, func() bool { return synth.callCount() >= 1 })
	// Give the second caller time to join the in-flight fetch.
	waitFor(t, func() bool {
		return cache.InFlight("s1") && cache.Stats().InFlightJoins >= 1
	})
	close(gate)

	a := <-results
	b := <-results
	if !a.ok || !b.ok {
		t.Fatalf("both callers should succeed: %v, %v", a.ok, b.ok)
	}
	if a.entry != b.entry {
		t.Errorf("callers observed different entries: %+v vs %+v", a.entry, b.entry)
	}
	if synth.callCount() != 1 {
		t.Errorf("synthesizer called %d times, want 1", synth.callCount())
	}
}

func TestRequestBackoffEnforcement(t *testing.T) {
	clock := newFakeClock()
	limiter := NewRateLimiter(0, 10*time.Second)
	limiter.now = clock.now

	synth := &fakeSynth{err: &RateLimitedError{}}
	cache := NewAssetCache(synth, limiter)

	if _, ok := cache.Request(context.Background(), contentItem("s1", "one")); ok {
		t.Fatal("rate-limited request should return none")
	}
	if synth.callCount() != 1 {
		t.Fatalf("synthesizer called %d times, want 1", synth.callCount())
	}
	if cache.Failed("s1") {
		t.Error("rate limit must not mark the item as permanently failed")
	}

	// Any item, not just s1, is refused during cooldown with no call.
	clock.advance(5 * time.Second)
	if _, ok := cache.Request(context.Background(), contentItem("s2", "two")); ok {
		t.Error("request during cooldown should return none")
	}
	if synth.callCount() != 1 {
		t.Errorf("synthesizer called %d times during cooldown, want 1", synth.callCount())
	}

	// After the backoff a real request goes out.
	synth.mu.Lock()
	synth.err = nil
	synth.mu.Unlock()
	clock.advance(5*time.Second + time.Millisecond)
	if _, ok := cache.Request(context.Background(), contentItem("s2", "two")); !ok {
		t.Error("request after backoff should succeed")
	}
	if synth.callCount() != 2 {
		t.Errorf("synthesizer called %d times, want 2", synth.callCount())
	}
}

func TestRequestPermanentFailureIsolation(t *testing.T) {
	synth := &fakeSynth{err: fmt.Errorf("%w: boom", ErrSynthesisFailed)}
	cache := NewAssetCache(synth, openLimiter())

	if _, ok := cache.Request(context.Background(), contentItem("a", "one")); ok {
		t.Fatal("failed synthesis should return none")
	}
	if !cache.Failed("a") {
		t.Fatal("item a should be marked failed")
	}

	// a is not retried.
	if _, ok := cache.Request(context.Background(), contentItem("a", "one")); ok {
		t.Error("failed item should not be retried")
	}
	if synth.callCount() != 1 {
		t.Errorf("synthesizer called %d times, want 1", synth.callCount())
	}

	// b is unaffected.
	synth.mu.Lock()
	synth.err = nil
	synth.mu.Unlock()
	if _, ok := cache.Request(context.Background(), contentItem("b", "two")); !ok {
		t.Error("request for unrelated item should succeed")
	}
}

func TestRequestFallbackDuration(t *testing.T) {
	synth := &fakeSynth{result: Result{AudioURL: "a"}} // no provider duration
	cache := NewAssetCache(synth, openLimiter())

	e, ok := cache.Request(context.Background(), contentItem("s1", "hello"))
	if !ok {
		t.Fatal("request should succeed")
	}
	if e.Duration != 4*time.Second {
		t.Errorf("Duration = %v, want item fallback 4s", e.Duration)
	}
}

func TestReset(t *testing.T) {
	synth := &fakeSynth{err: fmt.Errorf("%w: boom", ErrSynthesisFailed)}
	cache := NewAssetCache(synth, openLimiter())

	cache.Request(context.Background(), contentItem("a", "one"))
	synth.mu.Lock()
	synth.err = nil
	synth.mu.Unlock()
	cache.Request(context.Background(), contentItem("b", "two"))

	cache.Reset()
	if cache.Failed("a") {
		t.Error("failure markers should clear on reset")
	}
	if cache.Len() != 0 {
		t.Errorf("Len() = %d after reset, want 0", cache.Len())
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
