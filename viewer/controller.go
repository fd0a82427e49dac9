package viewer

import (
	"context"

	"go.uber.org/zap"
)

// Click pages current document according to horizontal click position: right
// of midpoint moves forward, otherwise backward. Leaving document at its edge
// renders neighbour document subject to boundary policy. Clicks before current
// document is laid out are ignored.
func (v *Viewer) Click(ctx context.Context, x float64) error {
	v.mu.Lock()
	gen := v.gen
	v.mu.Unlock()
	return v.click(ctx, gen, x)
}

func (v *Viewer) click(ctx context.Context, gen uint64, x float64) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	if gen != v.gen || !v.ready || v.frame == nil {
		v.mu.Unlock()
		v.log.Debug("Click ignored, document is not ready")
		return nil
	}

	s := &v.session
	idx, dir := s.CurrentIndex, s.direction(x)
	page := &s.Pages[idx]
	next := page.ScrollOffset + float64(dir)*s.ScrollStep
	offset := v.clamp(next)

	if next >= 0 && next < v.height {
		page.ScrollOffset, page.PendingAnchor = offset, ""
		v.frame.ScrollTo(offset, true)
		v.adjust()
		pos := s.Position()
		v.mu.Unlock()

		v.notify(pos)
		return nil
	}

	to, ok := v.boundary.Step(idx, dir, v.book.Len())
	if !ok {
		v.mu.Unlock()
		v.log.Debug("Click ignored at book edge", zap.Int("index", idx), zap.Int("direction", dir), zap.Stringer("boundary", v.boundary))
		return nil
	}

	page.ScrollOffset, page.PendingAnchor = offset, ""
	v.frame.ScrollTo(offset, true)
	if dir > 0 {
		s.Pages[to].ScrollOffset = v.initial[to]
	}
	v.enterAtEnd = dir < 0
	s.CurrentIndex = to
	// frame still belongs to the document being left
	v.ready = false
	pos := s.Position()
	v.mu.Unlock()

	v.log.Debug("Leaving document", zap.Int("from", idx), zap.Int("to", to))
	v.notify(pos)
	return v.Render(ctx, "")
}
