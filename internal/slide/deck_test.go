package slide

import (
	"strings"
	"testing"
	"time"
)

func TestNarratable(t *testing.T) {
	tests := []struct {
		name string
		s    Slide
		want bool
	}{
		{"content with text", Slide{Kind: KindContent, Subtitle: "hello"}, true},
		{"section with text", Slide{Kind: KindSection, Subtitle: "part two"}, true},
		{"content without text", Slide{Kind: KindContent}, false},
		{"content with whitespace text", Slide{Kind: KindContent, Subtitle: "   "}, false},
		{"header with text", Slide{Kind: KindHeader, Subtitle: "never spoken"}, false},
		{"suggestions with text", Slide{Kind: KindSuggestions, Subtitle: "never spoken"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.Narratable(); got != tt.want {
				t.Errorf("Narratable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFallbackDuration(t *testing.T) {
	s := Slide{DurationMs: 4000}
	if got := s.FallbackDuration(); got != 4*time.Second {
		t.Errorf("FallbackDuration() = %v, want 4s", got)
	}

	s = Slide{}
	if got := s.FallbackDuration(); got != 0 {
		t.Errorf("FallbackDuration() = %v, want 0", got)
	}

	s = Slide{DurationMs: -100}
	if got := s.FallbackDuration(); got != 0 {
		t.Errorf("FallbackDuration() = %v, want 0 for negative input", got)
	}
}

func TestBuildDeck(t *testing.T) {
	records := []Slide{
		{ID: "s1", Kind: KindHeader},
		{ID: "s2", Kind: KindContent, Subtitle: "two"},
		{ID: "s2a", Kind: KindContent, Subtitle: "two-a", ParentID: "s2"},
		{ID: "s3", Kind: KindContent, Subtitle: "three"},
		{ID: "s2b", Kind: KindContent, Subtitle: "two-b", ParentID: "s2"},
	}

	deck, err := BuildDeck(records)
	if err != nil {
		t.Fatalf("BuildDeck failed: %v", err)
	}

	if deck.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", deck.Len())
	}
	if got := deck.Parent(1).ID; got != "s2" {
		t.Errorf("Parent(1).ID = %s, want s2", got)
	}

	children := deck.Children(1)
	if len(children) != 2 {
		t.Fatalf("Children(1) = %d items, want 2", len(children))
	}
	if children[0].ID != "s2a" || children[1].ID != "s2b" {
		t.Errorf("children out of order: %s, %s", children[0].ID, children[1].ID)
	}

	if got := len(deck.Children(0)); got != 0 {
		t.Errorf("Children(0) = %d items, want 0", got)
	}
}

func TestBuildDeckErrors(t *testing.T) {
	tests := []struct {
		name    string
		records []Slide
		wantErr string
	}{
		{
			"missing id",
			[]Slide{{Kind: KindContent}},
			"without id",
		},
		{
			"unknown kind",
			[]Slide{{ID: "s1", Kind: "banner"}},
			"unknown kind",
		},
		{
			"unknown parent",
			[]Slide{{ID: "s1", Kind: KindContent, ParentID: "nope"}},
			"unknown parent",
		},
		{
			"duplicate id",
			[]Slide{{ID: "s1", Kind: KindContent}, {ID: "s1", Kind: KindContent}},
			"duplicate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildDeck(tt.records)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestDeckAt(t *testing.T) {
	deck, err := BuildDeck([]Slide{
		{ID: "s1", Kind: KindContent, Subtitle: "one"},
		{ID: "s1a", Kind: KindContent, Subtitle: "one-a", ParentID: "s1"},
	})
	if err != nil {
		t.Fatalf("BuildDeck failed: %v", err)
	}

	if s, ok := deck.At(0, -1); !ok || s.ID != "s1" {
		t.Errorf("At(0,-1) = %v, %v; want s1", s.ID, ok)
	}
	if s, ok := deck.At(0, 0); !ok || s.ID != "s1a" {
		t.Errorf("At(0,0) = %v, %v; want s1a", s.ID, ok)
	}
	if _, ok := deck.At(0, 1); ok {
		t.Error("At(0,1) should be out of range")
	}
	if _, ok := deck.At(1, -1); ok {
		t.Error("At(1,-1) should be out of range")
	}
	if _, ok := deck.At(-1, -1); ok {
		t.Error("At(-1,-1) should be out of range")
	}
}

func TestLoadDeck(t *testing.T) {
	input := `[
		{"id": "s1", "kind": "header"},
		{"id": "s2", "kind": "content", "subtitle": "hello", "durationMs": 4000},
		{"id": "s2a", "kind": "content", "subtitle": "child", "parentId": "s2"}
	]`

	deck, err := LoadDeck(strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadDeck failed: %v", err)
	}
	if deck.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", deck.Len())
	}
	if got := len(deck.Children(1)); got != 1 {
		t.Errorf("Children(1) = %d, want 1", got)
	}

	if _, err := LoadDeck(strings.NewReader("{not json")); err == nil {
		t.Error("expected decode error")
	}
}
