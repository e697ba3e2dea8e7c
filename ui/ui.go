// Package ui renders the narrated slideshow in the terminal and maps
// keyboard input onto the playback session's navigation operations.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/wordwrap"

	"github.com/voxdeck/voxdeck/internal/session"
	"github.com/voxdeck/voxdeck/internal/slide"
)

// refreshMsg asks the model to re-read session state. The session pushes
// one on every position or play state change.
type refreshMsg struct{}

// finishedMsg arrives once when the presentation completes.
type finishedMsg struct{}

type model struct {
	session  *session.Session
	keys     keyMap
	width    int
	height   int
	finished bool
	renderer *glamour.TermRenderer
}

// NewProgram builds the bubbletea program around a session and wires the
// session's change and finished events into the event loop.
func NewProgram(ctx context.Context, s *session.Session) *tea.Program {
	m := model{
		session: s,
		keys:    defaultKeyMap(),
		width:   80,
	}
	m.renderer = m.newRenderer()
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	s.SetOnChange(func() { p.Send(refreshMsg{}) })
	s.SetOnFinished(func() { p.Send(finishedMsg{}) })
	return p
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.renderer = m.newRenderer()

	case refreshMsg:
		// State lives in the session; re-render.

	case finishedMsg:
		m.finished = true

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.session.Stop()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Next):
			m.session.Next()
		case key.Matches(msg, m.keys.Prev):
			m.session.Prev()
		case key.Matches(msg, m.keys.ChildNext):
			m.session.ChildNext()
		case key.Matches(msg, m.keys.ChildPrev):
			m.session.ChildPrev()
		case key.Matches(msg, m.keys.PlayPause):
			m.session.TogglePlayPause()
		case key.Matches(msg, m.keys.First):
			m.session.GoTo(0)
		case key.Matches(msg, m.keys.Last):
			m.session.GoTo(m.session.Deck().Len() - 1)
		}
	}
	return m, nil
}

func (m model) View() string {
	cur, ok := m.session.Current()
	if !ok {
		return frameStyle.Render("no slides")
	}

	var b strings.Builder

	index, childIndex := m.session.Position()
	if childIndex >= 0 {
		b.WriteString(childBadgeStyle.Render(fmt.Sprintf("follow-up %d", childIndex+1)))
		b.WriteString("\n\n")
	} else if cur.Kind == slide.KindHeader || cur.Kind == slide.KindSection {
		b.WriteString(headerStyle.Render(strings.ToUpper(string(cur.Kind))))
		b.WriteString("\n")
	}

	b.WriteString(m.renderBody(cur))
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(m.statusLine(index, cur)))

	if m.finished {
		b.WriteString("\n")
		b.WriteString(finishedStyle.Render("presentation finished"))
	}

	return frameStyle.Render(b.String())
}

// newRenderer builds a markdown renderer for the current width. The
// renderer is rebuilt only on resize, not per frame.
func (m model) newRenderer() *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(m.contentWidth()),
	)
	if err != nil {
		return nil
	}
	return r
}

// renderBody renders the slide text as markdown, falling back to wrapped
// plain text when rendering fails.
func (m model) renderBody(cur slide.Slide) string {
	text := cur.Subtitle
	if text == "" {
		text = "(no text)"
	}

	if m.renderer != nil {
		if out, err := m.renderer.Render(text); err == nil {
			return strings.TrimRight(out, "\n")
		}
	}
	return wordwrap.String(text, m.contentWidth())
}

func (m model) statusLine(index int, cur slide.Slide) string {
	state := "paused"
	if m.session.Playing() {
		state = "playing"
	}

	narration := ""
	if cur.Narratable() {
		if _, ready := m.session.Cache().Get(cur.ID); ready {
			narration = " · narration ready"
		} else if m.session.Cache().Failed(cur.ID) {
			narration = " · narration unavailable"
		} else {
			narration = " · loading narration"
		}
	}

	line := fmt.Sprintf("%s slide of %d · %s%s",
		humanize.Ordinal(index+1), m.session.Deck().Len(), state, narration)
	return wordwrap.String(line, m.contentWidth())
}

func (m model) contentWidth() int {
	w := m.width - 8
	if w < 20 {
		w = 20
	}
	return w
}
