// Package viewer presents a book as a single paginated reading surface.
// Documents are mounted one at a time into host provided surface and paged
// through by clicks, moving between documents at their edges.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"pview/book"
	"pview/common"
	"pview/fetch"
	"pview/preprocess"
)

// DefaultPad is subtracted from viewport height to get scroll step.
const DefaultPad = 10

// lowerBound is the smallest committed offset: moving above it means leaving
// document backwards. It never goes below -pad.
const lowerBound = -1

// Viewer owns navigation state of one reading session. All state changes are
// serialized, fetch and layout results of superseded renders are discarded.
type Viewer struct {
	book    *book.Book
	initial []float64
	surface Surface
	loader  fetch.Loader
	root    book.StaticRoot
	pre     *preprocess.Preprocessor

	pad        float64
	boundary   common.BoundaryPolicy
	onNavigate func(book.Position)
	onError    func(error)
	log        *zap.Logger

	mu         sync.Mutex
	session    Session
	gen        uint64
	frame      Frame
	height     float64
	ready      bool
	enterAtEnd bool
	resized    Image
	closed     bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures Viewer.
type Option func(*Viewer)

// WithPad sets fixed padding subtracted from viewport height.
func WithPad(pad float64) Option {
	return func(v *Viewer) {
		v.pad = max(pad, 0)
	}
}

// WithBoundary sets policy for moving past first or last document.
func WithBoundary(policy common.BoundaryPolicy) Option {
	return func(v *Viewer) {
		v.boundary = policy
	}
}

// WithPreprocessor replaces default preprocessor.
func WithPreprocessor(p *preprocess.Preprocessor) Option {
	return func(v *Viewer) {
		if p != nil {
			v.pre = p
		}
	}
}

// WithOnNavigate registers callback receiving every committed position, so
// host could persist it.
func WithOnNavigate(fn func(book.Position)) Option {
	return func(v *Viewer) {
		v.onNavigate = fn
	}
}

// WithOnError registers callback receiving errors of renders started by
// clicks, which have no caller to return them to.
func WithOnError(fn func(error)) Option {
	return func(v *Viewer) {
		v.onError = fn
	}
}

// WithLogger sets logger.
func WithLogger(log *zap.Logger) Option {
	return func(v *Viewer) {
		if log != nil {
			v.log = log
		}
	}
}

// New creates viewer for book starting at position. Position is fitted to the
// book, its offsets become initial offsets documents are reset to when
// entered forward. Nothing is mounted until Render is called.
func New(b *book.Book, pos book.Position, root book.StaticRoot, surface Surface, loader fetch.Loader, opts ...Option) (*Viewer, error) {
	if b == nil || b.Len() == 0 {
		return nil, errors.New("book has no documents")
	}
	if surface == nil || loader == nil {
		return nil, errors.New("surface and loader are required")
	}

	pos = pos.Normalize(b.Len())
	v := &Viewer{
		book:     b,
		initial:  slices.Clone(pos.ScrollOffsets),
		surface:  surface,
		loader:   loader,
		root:     root,
		pad:      DefaultPad,
		boundary: common.BoundaryPolicyClamp,
		log:      zap.NewNop(),
		session:  newSession(pos),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.pre == nil {
		v.pre = preprocess.New(root, preprocess.WithLogger(v.log))
	}
	v.log = v.log.Named("viewer").With(zap.String("book", b.ID))
	v.ctx, v.cancel = context.WithCancel(context.Background())
	v.measure()
	return v, nil
}

// measure derives scroll step and midpoint from viewport.
func (v *Viewer) measure() {
	w, h := v.surface.Size()
	v.session.ScrollStep = max(h-v.pad, 1)
	v.session.MidpointX = w / 2
}

// Position returns current persistable position.
func (v *Viewer) Position() book.Position {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.session.Position()
}

// Session returns copy of navigation state.
func (v *Viewer) Session() Session {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.session.clone()
}

// Render mounts current document. Non empty anchor becomes document's
// pending anchor. Stale renders (superseded by later render or navigation)
// return without effect.
func (v *Viewer) Render(ctx context.Context, anchor string) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	idx := v.session.CurrentIndex
	if anchor != "" {
		v.session.Pages[idx].PendingAnchor = anchor
	}
	gen := v.begin()
	ref := v.book.Documents[idx]
	v.mu.Unlock()

	log := v.log.With(zap.Int("index", idx), zap.String("document", ref.Path), zap.Uint64("generation", gen))
	log.Debug("Rendering document")

	markup, err := v.loader.FetchMarkup(ctx, v.root.Resolve(ref.Path))
	if !v.current(gen, idx) {
		log.Debug("Fetched markup is stale, discarding")
		return v.stale()
	}
	if err != nil {
		return &LoadError{Index: idx, Path: ref.Path, Err: err}
	}

	out, err := v.pre.Process(markup, ref).Markup()
	if err != nil {
		return &LoadError{Index: idx, Path: ref.Path, Err: err}
	}

	v.mu.Lock()
	if !v.currentLocked(gen, idx) {
		v.mu.Unlock()
		log.Debug("Preprocessed document is stale, discarding")
		return v.stale()
	}
	frame, err := v.surface.Mount(out, v.clickHandler(gen))
	if err != nil {
		v.mu.Unlock()
		return &LoadError{Index: idx, Path: ref.Path, Err: fmt.Errorf("unable to mount document: %w", err)}
	}
	v.frame = frame
	v.mu.Unlock()

	if err := frame.Wait(ctx); err != nil {
		if errors.Is(err, ErrDetached) || !v.current(gen, idx) {
			log.Debug("Frame detached before layout", zap.Error(err))
			return v.stale()
		}
		return fmt.Errorf("layout of document %d (%s) did not complete: %w", idx, ref.Path, err)
	}

	v.mu.Lock()
	if !v.currentLocked(gen, idx) {
		v.mu.Unlock()
		return v.stale()
	}
	v.layout(log)
	pos := v.session.Position()
	v.mu.Unlock()

	v.notify(pos)
	return nil
}

// begin starts new render generation, tearing down mounted frame. Must be
// called with lock held.
func (v *Viewer) begin() uint64 {
	v.gen++
	v.surface.Clear()
	v.frame, v.ready, v.resized, v.height = nil, false, nil, 0
	v.measure()
	return v.gen
}

func (v *Viewer) current(gen uint64, idx int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.currentLocked(gen, idx)
}

func (v *Viewer) currentLocked(gen uint64, idx int) bool {
	return !v.closed && v.gen == gen && v.session.CurrentIndex == idx
}

// stale is result of superseded render.
func (v *Viewer) stale() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	return nil
}

// layout commits offset of freshly laid out document. Must be called with
// lock held.
func (v *Viewer) layout(log *zap.Logger) {
	idx := v.session.CurrentIndex
	page := &v.session.Pages[idx]
	v.height = max(v.frame.ScrollHeight()-v.pad, 0)

	switch {
	case page.PendingAnchor != "":
		if top, ok := v.frame.ElementTop(page.PendingAnchor); ok {
			page.ScrollOffset = top
		} else {
			log.Debug("Section anchor not found, keeping offset", zap.String("anchor", page.PendingAnchor))
		}
		page.PendingAnchor = ""
	case v.enterAtEnd:
		page.ScrollOffset = max(v.height-v.session.ScrollStep, 0)
	}
	v.enterAtEnd = false

	page.ScrollOffset = v.clamp(page.ScrollOffset)
	v.frame.ScrollTo(page.ScrollOffset, false)
	v.adjust()
	v.ready = true

	log.Debug("Document laid out", zap.Float64("height", v.height), zap.Float64("offset", page.ScrollOffset))
}

func (v *Viewer) clamp(o float64) float64 {
	return max(lowerBound, -v.pad, min(o, v.height))
}

func (v *Viewer) notify(pos book.Position) {
	if v.onNavigate != nil {
		v.onNavigate(pos)
	}
}

func (v *Viewer) report(err error) {
	if err == nil || errors.Is(err, ErrClosed) {
		return
	}
	v.log.Warn("Render failed", zap.Error(err))
	if v.onError != nil {
		v.onError(err)
	}
}

// clickHandler returns surface callback bound to render generation. Clicks
// are handled on tracked goroutines so host callback never blocks.
func (v *Viewer) clickHandler(gen uint64) func(x float64) {
	return func(x float64) {
		v.mu.Lock()
		defer v.mu.Unlock()
		if v.closed || v.gen != gen {
			return
		}
		v.wg.Go(func() {
			v.report(v.click(v.ctx, gen, x))
		})
	}
}

// Close tears down mounted frame and waits for outstanding click handling.
// Viewer could not be used afterwards.
func (v *Viewer) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.closed = true
	v.gen++
	v.cancel()
	v.surface.Clear()
	v.frame, v.ready, v.resized = nil, false, nil
	v.mu.Unlock()

	v.wg.Wait()
	v.log.Debug("Viewer closed")
	return nil
}
