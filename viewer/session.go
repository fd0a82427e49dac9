package viewer

import (
	"slices"

	"pview/book"
)

// PageState is per document navigation state.
type PageState struct {
	ScrollOffset float64
	// PendingAnchor is element id honored (and cleared) by the next layout.
	PendingAnchor string
}

// Session is navigation state of a single viewer.
type Session struct {
	CurrentIndex int
	ScrollStep   float64
	MidpointX    float64
	Pages        []PageState
}

func newSession(pos book.Position) Session {
	s := Session{
		CurrentIndex: pos.CurrentIndex,
		Pages:        make([]PageState, len(pos.ScrollOffsets)),
	}
	for i, o := range pos.ScrollOffsets {
		s.Pages[i].ScrollOffset = o
	}
	return s
}

func (s Session) clone() Session {
	s.Pages = slices.Clone(s.Pages)
	return s
}

// Position returns persistable part of the session.
func (s Session) Position() book.Position {
	pos := book.Position{
		CurrentIndex:  s.CurrentIndex,
		ScrollOffsets: make([]float64, len(s.Pages)),
	}
	for i, p := range s.Pages {
		pos.ScrollOffsets[i] = p.ScrollOffset
	}
	return pos
}

// direction of a click at x.
func (s Session) direction(x float64) int {
	if x > s.MidpointX {
		return 1
	}
	return -1
}
