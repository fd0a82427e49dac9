package book

// Position is the reading state persisted by the host between sessions: the
// current document and scroll offsets for every document in book order.
type Position struct {
	CurrentIndex  int       `json:"currentIndex"`
	ScrollOffsets []float64 `json:"scrollOffsets"`
}

// NewPosition returns zero filled position for a book of n documents.
func NewPosition(n int) Position {
	return Position{ScrollOffsets: make([]float64, max(n, 0))}
}

// Normalize fits position to a book of n documents: index is clamped into
// range and offsets are padded with zeros or truncated. Receiver is not
// modified.
func (p Position) Normalize(n int) Position {
	if n <= 0 {
		return Position{ScrollOffsets: []float64{}}
	}
	out := Position{
		CurrentIndex:  min(max(p.CurrentIndex, 0), n-1),
		ScrollOffsets: make([]float64, n),
	}
	copy(out.ScrollOffsets, p.ScrollOffsets)
	return out
}
