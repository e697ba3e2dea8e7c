package announce

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/voxdeck/voxdeck/internal/audio"
	"github.com/voxdeck/voxdeck/internal/narrate"
)

// speakSynth resolves every request to a predictable url.
type speakSynth struct{}

func (speakSynth) Synthesize(_ context.Context, text string) (narrate.Result, error) {
	return narrate.Result{AudioURL: "audio://" + text, Duration: 10 * time.Millisecond}, nil
}

// muteSynth never produces audio.
type muteSynth struct{}

func (muteSynth) Synthesize(context.Context, string) (narrate.Result, error) {
	return narrate.Result{}, narrate.ErrSynthesisFailed
}

func newTestQueue(synth narrate.Synthesizer) (*Queue, *audio.MockPlayer, *narrate.AssetCache) {
	cache := narrate.NewAssetCache(synth, narrate.NewRateLimiter(0, time.Second))
	player := audio.NewMockPlayer()
	return NewQueue(cache, player), player, cache
}

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

func TestPlaysInPriorityOrder(t *testing.T) {
	q, player, _ := newTestQueue(speakSynth{})
	defer q.Close()

	q.Enqueue(Item{Text: "first"})
	waitFor(t, func() bool { return len(player.PlayedURLs()) == 1 })

	// Queued behind the playing item: two normals, then two highs. The
	// highs jump the normals but keep their own order.
	q.Enqueue(Item{Text: "normal-a"})
	q.Enqueue(Item{Text: "normal-b"})
	q.Enqueue(Item{Text: "urgent-a", Priority: PriorityHigh})
	q.Enqueue(Item{Text: "urgent-b", Priority: PriorityHigh})

	for i := 0; i < 4; i++ {
		player.Finish()
		waitFor(t, func() bool { return len(player.PlayedURLs()) == i+2 })
	}
	player.Finish()

	want := []string{
		"audio://first",
		"audio://urgent-a",
		"audio://urgent-b",
		"audio://normal-a",
		"audio://normal-b",
	}
	got := player.PlayedURLs()
	if len(got) != len(want) {
		t.Fatalf("played %d items, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("play %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestOneAtATime(t *testing.T) {
	q, player, _ := newTestQueue(speakSynth{})
	defer q.Close()

	q.Enqueue(Item{Text: "one"})
	q.Enqueue(Item{Text: "two"})

	waitFor(t, func() bool { return len(player.PlayedURLs()) == 1 })

	// The second item must not start until the first has ended.
	time.Sleep(30 * time.Millisecond)
	if got := len(player.PlayedURLs()); got != 1 {
		t.Fatalf("started %d items while the first was still playing", got)
	}
	if q.Len() != 1 {
		t.Errorf("queue length = %d, want 1", q.Len())
	}

	player.Finish()
	waitFor(t, func() bool { return len(player.PlayedURLs()) == 2 })
}

func TestOnCompleteFiresAfterPlayback(t *testing.T) {
	q, player, _ := newTestQueue(speakSynth{})
	defer q.Close()

	var done atomic.Int32
	q.Enqueue(Item{Text: "hello", OnComplete: func() { done.Add(1) }})

	waitFor(t, func() bool { return q.Playing() })
	if done.Load() != 0 {
		t.Fatal("OnComplete fired before playback ended")
	}
	player.Finish()
	waitFor(t, func() bool { return done.Load() == 1 })
}

func TestUnresolvableAudioHonorsFlags(t *testing.T) {
	q, player, _ := newTestQueue(muteSynth{})
	defer q.Close()

	var dropped, completed, immediate atomic.Int32

	// WaitForAudio without CompleteOnError: dropped silently.
	q.Enqueue(Item{ID: "a", Text: "x", WaitForAudio: true,
		OnComplete: func() { dropped.Add(1) }})
	// WaitForAudio with CompleteOnError: completes despite the failure.
	q.Enqueue(Item{ID: "b", Text: "x", WaitForAudio: true, CompleteOnError: true,
		OnComplete: func() { completed.Add(1) }})
	// No WaitForAudio: completes immediately when audio is unavailable.
	q.Enqueue(Item{ID: "c", Text: "x",
		OnComplete: func() { immediate.Add(1) }})

	waitFor(t, func() bool { return completed.Load() == 1 && immediate.Load() == 1 })
	waitFor(t, func() bool { return q.Len() == 0 && !q.Playing() })

	if dropped.Load() != 0 {
		t.Error("a dropped item must not complete")
	}
	if len(player.PlayedURLs()) != 0 {
		t.Errorf("player received %v with no resolvable audio", player.PlayedURLs())
	}
}

func TestInterruptClearsEverything(t *testing.T) {
	q, player, _ := newTestQueue(speakSynth{})
	defer q.Close()

	var completions atomic.Int32
	done := func() { completions.Add(1) }

	q.Enqueue(Item{Text: "playing", OnComplete: done})
	waitFor(t, func() bool { return q.Playing() })
	q.Enqueue(Item{Text: "queued", OnComplete: done})

	q.Interrupt()

	if q.Len() != 0 {
		t.Errorf("queue length after interrupt = %d, want 0", q.Len())
	}
	if q.Playing() {
		t.Error("still playing after interrupt")
	}
	if player.StopCount() != 1 {
		t.Errorf("player stopped %d times, want 1", player.StopCount())
	}
	if completions.Load() != 0 {
		t.Error("interrupted items must not complete")
	}

	// The channel is free for new work.
	q.Enqueue(Item{Text: "after"})
	waitFor(t, func() bool {
		urls := player.PlayedURLs()
		return len(urls) == 2 && urls[1] == "audio://after"
	})
}

func TestNextItemWarmedDuringPlayback(t *testing.T) {
	q, player, cache := newTestQueue(speakSynth{})
	defer q.Close()

	q.Enqueue(Item{ID: "one", Text: "one"})
	q.Enqueue(Item{ID: "two", Text: "two"})

	waitFor(t, func() bool { return len(player.PlayedURLs()) == 1 })

	// While "one" plays, "two" is resolved ahead of need.
	waitFor(t, func() bool { _, ok := cache.Get("two"); return ok })
	if got := len(player.PlayedURLs()); got != 1 {
		t.Fatalf("warming must not start playback, played %d", got)
	}
}

func TestPreSuppliedAudioSkipsSynthesis(t *testing.T) {
	q, player, _ := newTestQueue(muteSynth{})
	defer q.Close()

	q.Enqueue(Item{ID: "chime", AudioURL: "audio://chime"})
	waitFor(t, func() bool {
		urls := player.PlayedURLs()
		return len(urls) == 1 && urls[0] == "audio://chime"
	})
}

func TestSay(t *testing.T) {
	q, player, _ := newTestQueue(speakSynth{})
	defer q.Close()

	q.Say("time for a break")
	waitFor(t, func() bool { return len(player.PlayedURLs()) == 1 })
	if !strings.HasSuffix(player.PlayedURLs()[0], "time for a break") {
		t.Errorf("played %q", player.PlayedURLs()[0])
	}
}

func TestCloseRejectsEnqueue(t *testing.T) {
	q, player, _ := newTestQueue(speakSynth{})
	q.Close()

	q.Enqueue(Item{Text: "too late"})
	time.Sleep(20 * time.Millisecond)
	if len(player.PlayedURLs()) != 0 {
		t.Errorf("closed queue played %v", player.PlayedURLs())
	}
}

func TestActiveSpansQueuedRun(t *testing.T) {
	q, player, _ := newTestQueue(speakSynth{})
	defer q.Close()

	var mu sync.Mutex
	var states []bool
	q.SetOnActive(func(v bool) {
		mu.Lock()
		states = append(states, v)
		mu.Unlock()
	})
	snapshot := func() []bool {
		mu.Lock()
		defer mu.Unlock()
		out := make([]bool, len(states))
		copy(out, states)
		return out
	}

	q.Enqueue(Item{Text: "one"})
	q.Enqueue(Item{Text: "two"})

	waitFor(t, func() bool { return len(player.PlayedURLs()) == 1 })
	player.Finish()
	waitFor(t, func() bool { return len(player.PlayedURLs()) == 2 })
	player.Finish()

	// One busy transition covering both items, then one idle.
	waitFor(t, func() bool {
		s := snapshot()
		return len(s) == 2 && s[0] && !s[1]
	})
}

func TestInterruptReportsIdle(t *testing.T) {
	q, player, _ := newTestQueue(speakSynth{})
	defer q.Close()

	var mu sync.Mutex
	var states []bool
	q.SetOnActive(func(v bool) {
		mu.Lock()
		states = append(states, v)
		mu.Unlock()
	})

	q.Enqueue(Item{Text: "one"})
	waitFor(t, func() bool { return len(player.PlayedURLs()) == 1 })

	q.Interrupt()

	mu.Lock()
	got := make([]bool, len(states))
	copy(got, states)
	mu.Unlock()
	if len(got) != 2 || !got[0] || got[1] {
		t.Errorf("active transitions = %v, want [true false]", got)
	}
}

func TestEmptyItemCompletesWithoutAudio(t *testing.T) {
	q, player, _ := newTestQueue(speakSynth{})
	defer q.Close()

	var done atomic.Int32
	q.Enqueue(Item{OnComplete: func() { done.Add(1) }})
	waitFor(t, func() bool { return done.Load() == 1 })
	if len(player.PlayedURLs()) != 0 {
		t.Errorf("empty item reached the player: %v", player.PlayedURLs())
	}
}
