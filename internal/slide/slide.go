package slide

import (
	"strings"
	"time"
)

// Kind identifies what a slide is for. Header and suggestions slides are
// purely visual and are never narrated.
type Kind string

const (
	// KindHeader is a title card shown between topics.
	KindHeader Kind = "header"
	// KindSection is a section divider with narrated text.
	KindSection Kind = "section"
	// KindSuggestions lists follow-up prompts and is never narrated.
	KindSuggestions Kind = "suggestions"
	// KindContent is a regular narrated content slide.
	KindContent Kind = "content"
)

// Valid reports whether k is one of the known slide kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindHeader, KindSection, KindSuggestions, KindContent:
		return true
	}
	return false
}

// Slide is one unit of presented content as delivered by the content
// provider. Slides referencing a ParentID are follow-up children of that
// parent and are navigated on a second axis.
type Slide struct {
	ID         string `json:"id"`
	Kind       Kind   `json:"kind"`
	Subtitle   string `json:"subtitle,omitempty"`
	DurationMs int    `json:"durationMs,omitempty"`
	AudioURL   string `json:"audioUrl,omitempty"`
	ParentID   string `json:"parentId,omitempty"`
}

// Narratable reports whether the slide has speakable text. Header and
// suggestions slides are excluded regardless of text.
func (s Slide) Narratable() bool {
	if s.Kind == KindHeader || s.Kind == KindSuggestions {
		return false
	}
	return strings.TrimSpace(s.Subtitle) != ""
}

// FallbackDuration returns the slide's nominal display duration, used
// when no narration duration is known. Zero when the record carries none.
func (s Slide) FallbackDuration() time.Duration {
	if s.DurationMs <= 0 {
		return 0
	}
	return time.Duration(s.DurationMs) * time.Millisecond
}
