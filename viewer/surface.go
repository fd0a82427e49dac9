package viewer

import (
	"context"

	"pview/preprocess"
)

// Box is vertical extent of an element in document coordinates, as laid out
// by the host.
type Box struct {
	Top    float64
	Bottom float64
}

// Height of the box.
func (b Box) Height() float64 {
	return b.Bottom - b.Top
}

// Surface is host container in which documents are mounted. Mounting a new
// frame or clearing the surface detaches previously mounted frame together
// with its listeners.
type Surface interface {
	// Size returns viewport dimensions.
	Size() (width, height float64)
	// Clear detaches mounted frame if any.
	Clear()
	// Mount embeds markup into new isolated frame sized to its content.
	// onClick is invoked with horizontal position of every pointer click.
	Mount(markup string, onClick func(x float64)) (Frame, error)
}

// Frame is a mounted document. Geometry is only valid after Wait returns
// without error.
type Frame interface {
	// Wait blocks until host signals layout is complete. Detached frame
	// returns ErrDetached.
	Wait(ctx context.Context) error
	// ScrollHeight is natural height of laid out content.
	ScrollHeight() float64
	// ElementTop returns vertical position of element with id.
	ElementTop(id string) (float64, bool)
	// Images lists image elements of both conventions in document order.
	Images() []Image
	// ScrollTo moves viewport to offset.
	ScrollTo(offset float64, smooth bool)
}

// Image is a laid out image element.
type Image interface {
	// Box returns current extent, reflecting any resizing.
	Box() Box
	// Wrapper returns kind of immediate parent element.
	Wrapper() preprocess.Kind
	// Resize sets rendered height keeping aspect ratio, applying it to the
	// parent element when wrapper is true.
	Resize(height float64, wrapper bool)
	// Restore returns element (and its parent) to natural size.
	Restore()
}
