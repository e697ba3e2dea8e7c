package narrate

import (
	"time"

	"github.com/voxdeck/voxdeck/internal/slide"
)

// Item is one narratable unit as seen by the cache and prefetcher.
// Slides and announcement messages both reduce to this shape.
type Item struct {
	// ID keys the cache entry and failure marker.
	ID string

	// Text to synthesize when no AudioURL is pre-supplied.
	Text string

	// AudioURL, when set, is an already-persisted asset; the cache
	// stores it directly without a synthesis call.
	AudioURL string

	// Fallback is the nominal duration used when the provider reports
	// none, and the entry duration for pre-supplied assets.
	Fallback time.Duration

	// Narratable gates all network activity. Non-narratable items are
	// skipped silently.
	Narratable bool
}

// SlideItem converts a slide into its narration item.
func SlideItem(s slide.Slide) Item {
	return Item{
		ID:         s.ID,
		Text:       s.Subtitle,
		AudioURL:   s.AudioURL,
		Fallback:   s.FallbackDuration(),
		Narratable: s.Narratable(),
	}
}
