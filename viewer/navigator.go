package viewer

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// JumpToSection moves to "path#anchor" reference: document with exactly
// matching path is rendered positioned at the anchor element. Unknown path
// leaves everything unchanged and is not an error.
func (v *Viewer) JumpToSection(ctx context.Context, ref string) error {
	path, anchor, _ := strings.Cut(ref, "#")

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	idx := v.book.Index(path)
	if idx < 0 {
		v.mu.Unlock()
		v.log.Debug("Section not found, ignoring", zap.String("ref", ref))
		return nil
	}
	page := &v.session.Pages[idx]
	page.ScrollOffset, page.PendingAnchor = 0, anchor
	v.session.CurrentIndex = idx
	v.enterAtEnd = false
	v.mu.Unlock()

	return v.Render(ctx, "")
}
