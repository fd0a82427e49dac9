package viewer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"go.uber.org/zap/zaptest"

	"pview/book"
	"pview/fetch"
	"pview/preprocess"
)

const testRoot = "http://localhost:8080/static/"

// geometry is what fake host lays out for a document.
type geometry struct {
	scrollHeight float64
	anchors      map[string]float64
	images       []imageSpec
}

type imageSpec struct {
	top, height float64
	wrapper     preprocess.Kind
}

// marker identifies document inside mounted markup.
func marker(path string) string {
	return "[" + path + "]"
}

type fakeSurface struct {
	mu      sync.Mutex
	width   float64
	height  float64
	docs    map[string]geometry
	hold    map[string]bool
	mounted []*fakeFrame
	active  *fakeFrame
	onMount chan string
}

func newFakeSurface(docs map[string]geometry) *fakeSurface {
	return &fakeSurface{
		width:   800,
		height:  600,
		docs:    docs,
		hold:    map[string]bool{},
		onMount: make(chan string, 64),
	}
}

func (s *fakeSurface) Size() (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

func (s *fakeSurface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		s.active.detach()
		s.active = nil
	}
}

func (s *fakeSurface) Mount(markup string, onClick func(float64)) (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for path, geo := range s.docs {
		if !strings.Contains(markup, marker(path)) {
			continue
		}
		if s.active != nil {
			s.active.detach()
		}
		f := &fakeFrame{
			path:     path,
			markup:   markup,
			geo:      geo,
			onClick:  onClick,
			loaded:   make(chan struct{}),
			detached: make(chan struct{}),
		}
		for _, spec := range geo.images {
			f.images = append(f.images, &fakeImage{top: spec.top, natural: spec.height, height: spec.height, wrapper: spec.wrapper})
		}
		if !s.hold[path] {
			close(f.loaded)
		}
		s.mounted = append(s.mounted, f)
		s.active = f
		select {
		case s.onMount <- path:
		default:
		}
		return f, nil
	}
	return nil, errors.New("unknown document")
}

func (s *fakeSurface) current() *fakeFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *fakeSurface) mounts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.mounted)
}

func (s *fakeSurface) attached() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, f := range s.mounted {
		select {
		case <-f.detached:
		default:
			n++
		}
	}
	return n
}

type fakeFrame struct {
	path     string
	markup   string
	geo      geometry
	images   []*fakeImage
	onClick  func(float64)
	loaded   chan struct{}
	detached chan struct{}

	mu     sync.Mutex
	offset float64
	once   sync.Once
}

func (f *fakeFrame) detach() {
	f.once.Do(func() { close(f.detached) })
}

func (f *fakeFrame) Wait(ctx context.Context) error {
	select {
	case <-f.detached:
		return ErrDetached
	default:
	}
	select {
	case <-f.loaded:
		return nil
	case <-f.detached:
		return ErrDetached
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeFrame) ScrollHeight() float64 { return f.geo.scrollHeight }

func (f *fakeFrame) ElementTop(id string) (float64, bool) {
	top, ok := f.geo.anchors[id]
	return top, ok
}

func (f *fakeFrame) Images() []Image {
	out := make([]Image, 0, len(f.images))
	for _, img := range f.images {
		out = append(out, img)
	}
	return out
}

func (f *fakeFrame) ScrollTo(offset float64, _ bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offset = offset
}

func (f *fakeFrame) scrolled() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.offset
}

func (f *fakeFrame) click(x float64) {
	f.onClick(x)
}

type fakeImage struct {
	mu      sync.Mutex
	top     float64
	natural float64
	height  float64
	wrapper preprocess.Kind
	parent  bool
}

func (i *fakeImage) Box() Box {
	i.mu.Lock()
	defer i.mu.Unlock()
	return Box{Top: i.top, Bottom: i.top + i.height}
}

func (i *fakeImage) Wrapper() preprocess.Kind { return i.wrapper }

func (i *fakeImage) Resize(height float64, wrapper bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.height, i.parent = height, wrapper
}

func (i *fakeImage) Restore() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.height, i.parent = i.natural, false
}

func (i *fakeImage) state() (float64, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.height, i.parent
}

// gatedLoader blocks fetches of gated documents until gate is closed.
type gatedLoader struct {
	fetch.Loader
	gates   map[string]chan struct{}
	started chan string
}

func (l *gatedLoader) FetchMarkup(ctx context.Context, url string) ([]byte, error) {
	for path, gate := range l.gates {
		if strings.HasSuffix(url, "/"+path) {
			l.started <- path
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return l.Loader.FetchMarkup(ctx, url)
}

type fixture struct {
	v       *Viewer
	surface *fakeSurface
	loader  fetch.Loader
	book    *book.Book
}

// newFixture creates viewer over book of paths. Only documents present in docs
// are stored and could be laid out.
func newFixture(t *testing.T, paths []string, docs map[string]geometry, pos book.Position, wrap func(fetch.Loader) fetch.Loader, opts ...Option) *fixture {
	t.Helper()

	fsys := fstest.MapFS{}
	for path := range docs {
		fsys[path] = &fstest.MapFile{Data: fmt.Appendf(nil, `<html xmlns="http://www.w3.org/1999/xhtml"><head><title>t</title></head><body><p>%s</p></body></html>`, marker(path))}
	}
	root := book.MustParseStaticRoot(testRoot)
	var loader fetch.Loader = fetch.NewFSLoader(fsys, root)
	if wrap != nil {
		loader = wrap(loader)
	}

	b := book.FromPaths("test", paths)
	surface := newFakeSurface(docs)
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	v, err := New(b, pos, root, surface, loader, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { v.Close() })
	return &fixture{v: v, surface: surface, loader: loader, book: b}
}

func (fx *fixture) render(t *testing.T) {
	t.Helper()
	if err := fx.v.Render(context.Background(), ""); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
}

func (fx *fixture) click(t *testing.T, x float64) {
	t.Helper()
	if err := fx.v.Click(context.Background(), x); err != nil {
		t.Fatalf("Click(%v) error = %v", x, err)
	}
}
