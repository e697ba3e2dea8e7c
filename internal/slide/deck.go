package slide

import (
	"encoding/json"
	"fmt"
	"io"
)

// Parent is a top-level slide together with its follow-up children, in
// the order the provider delivered them.
type Parent struct {
	Slide
	Children []Slide
}

// Deck is an ordered set of top-level slides, each optionally carrying
// child slides. It is immutable once built.
type Deck struct {
	parents []Parent
}

// BuildDeck groups a flat slide list into a deck. Top-level order and
// child order both follow record order. A child whose ParentID does not
// name an earlier top-level slide is an error, as is an unknown kind.
func BuildDeck(records []Slide) (Deck, error) {
	parents := make([]Parent, 0, len(records))
	byID := make(map[string]int, len(records))

	for _, r := range records {
		if r.ID == "" {
			return Deck{}, fmt.Errorf("slide without id")
		}
		if !r.Kind.Valid() {
			return Deck{}, fmt.Errorf("slide %s: unknown kind %q", r.ID, r.Kind)
		}
		if r.ParentID == "" {
			if _, dup := byID[r.ID]; dup {
				return Deck{}, fmt.Errorf("duplicate slide id %s", r.ID)
			}
			byID[r.ID] = len(parents)
			parents = append(parents, Parent{Slide: r})
			continue
		}
		idx, ok := byID[r.ParentID]
		if !ok {
			return Deck{}, fmt.Errorf("slide %s: unknown parent %s", r.ID, r.ParentID)
		}
		parents[idx].Children = append(parents[idx].Children, r)
	}

	return Deck{parents: parents}, nil
}

// LoadDeck reads a JSON array of slide records and builds a deck.
func LoadDeck(r io.Reader) (Deck, error) {
	var records []Slide
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return Deck{}, fmt.Errorf("decode deck: %w", err)
	}
	return BuildDeck(records)
}

// Len returns the number of top-level slides.
func (d Deck) Len() int { return len(d.parents) }

// Parent returns the top-level slide at index i.
func (d Deck) Parent(i int) Slide {
	return d.parents[i].Slide
}

// Children returns the child slides of the top-level slide at index i.
func (d Deck) Children(i int) []Slide {
	return d.parents[i].Children
}

// At returns the displayed slide for a position: the child at childIndex
// under parent i, or the parent itself when childIndex is negative.
// ok is false when the position is out of range.
func (d Deck) At(i, childIndex int) (Slide, bool) {
	if i < 0 || i >= len(d.parents) {
		return Slide{}, false
	}
	if childIndex < 0 {
		return d.parents[i].Slide, true
	}
	children := d.parents[i].Children
	if childIndex >= len(children) {
		return Slide{}, false
	}
	return children[childIndex], true
}
