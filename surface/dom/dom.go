//go:build js && wasm

// Package dom implements viewer rendering surface on top of browser DOM.
// Every document is mounted into its own iframe through srcdoc so book
// markup and styles never leak into the hosting page.
package dom

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"syscall/js"

	"pview/preprocess"
	"pview/viewer"
)

// Surface is a container element of the hosting page.
type Surface struct {
	doc       js.Value
	container js.Value

	mu    sync.Mutex
	frame *Frame
}

// New creates surface filling container element.
func New(container js.Value) *Surface {
	return &Surface{
		doc:       js.Global().Get("document"),
		container: container,
	}
}

// Size returns dimensions of container element.
func (s *Surface) Size() (float64, float64) {
	return s.container.Get("clientWidth").Float(), s.container.Get("clientHeight").Float()
}

// Clear detaches mounted frame if any.
func (s *Surface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frame != nil {
		s.frame.detach()
		s.frame = nil
	}
}

// Mount creates iframe for markup replacing previously mounted one.
func (s *Surface) Mount(markup string, onClick func(x float64)) (viewer.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frame != nil {
		s.frame.detach()
		s.frame = nil
	}

	el := s.doc.Call("createElement", "iframe")
	// same origin is required to reach content document, scripts stay disabled
	el.Call("setAttribute", "sandbox", "allow-same-origin")
	style := el.Get("style")
	style.Set("border", "0")
	style.Set("width", "100%")
	style.Set("height", "100%")
	style.Set("display", "block")

	f := &Frame{
		el:       el,
		loaded:   make(chan struct{}),
		detached: make(chan struct{}),
	}
	f.onClick = js.FuncOf(func(_ js.Value, args []js.Value) any {
		if len(args) > 0 {
			x := args[0].Get("clientX").Float()
			// callbacks must not block event loop
			go onClick(x)
		}
		return nil
	})
	f.onLoad = js.FuncOf(func(js.Value, []js.Value) any {
		f.loadOnce.Do(func() {
			if doc := f.document(); doc.Truthy() {
				doc.Call("addEventListener", "click", f.onClick)
			}
			close(f.loaded)
		})
		return nil
	})
	el.Call("addEventListener", "load", f.onLoad)
	el.Set("srcdoc", markup)
	s.container.Call("appendChild", el)

	s.frame = f
	return f, nil
}

// Frame is mounted iframe.
type Frame struct {
	el       js.Value
	onLoad   js.Func
	onClick  js.Func
	loaded   chan struct{}
	detached chan struct{}

	loadOnce   sync.Once
	detachOnce sync.Once
}

func (f *Frame) detach() {
	f.detachOnce.Do(func() {
		f.el.Call("removeEventListener", "load", f.onLoad)
		if doc := f.document(); doc.Truthy() {
			doc.Call("removeEventListener", "click", f.onClick)
		}
		f.el.Call("remove")
		f.onLoad.Release()
		f.onClick.Release()
		close(f.detached)
	})
}

func (f *Frame) window() js.Value {
	return f.el.Get("contentWindow")
}

func (f *Frame) document() js.Value {
	return f.el.Get("contentDocument")
}

func (f *Frame) scrollY() float64 {
	if w := f.window(); w.Truthy() {
		return w.Get("scrollY").Float()
	}
	return 0
}

// Wait blocks until iframe load event.
func (f *Frame) Wait(ctx context.Context) error {
	select {
	case <-f.detached:
		return viewer.ErrDetached
	default:
	}
	select {
	case <-f.loaded:
		return nil
	case <-f.detached:
		return viewer.ErrDetached
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Frame) ScrollHeight() float64 {
	doc := f.document()
	if !doc.Truthy() {
		return 0
	}
	return doc.Get("documentElement").Get("scrollHeight").Float()
}

func (f *Frame) ElementTop(id string) (float64, bool) {
	doc := f.document()
	if !doc.Truthy() {
		return 0, false
	}
	el := doc.Call("getElementById", id)
	if !el.Truthy() {
		return 0, false
	}
	return el.Call("getBoundingClientRect").Get("top").Float() + f.scrollY(), true
}

func (f *Frame) Images() []viewer.Image {
	doc := f.document()
	if !doc.Truthy() {
		return nil
	}
	list := doc.Call("querySelectorAll", "img, image")
	n := list.Get("length").Int()
	images := make([]viewer.Image, 0, n)
	for i := range n {
		images = append(images, &image{frame: f, el: list.Call("item", i)})
	}
	return images
}

func (f *Frame) ScrollTo(offset float64, smooth bool) {
	w := f.window()
	if !w.Truthy() {
		return
	}
	behavior := "instant"
	if smooth {
		behavior = "smooth"
	}
	opts := js.Global().Get("Object").New()
	opts.Set("top", offset)
	opts.Set("behavior", behavior)
	w.Call("scrollTo", opts)
}

type image struct {
	frame *Frame
	el    js.Value
	// resized is the element carrying explicit size, image or its wrapper
	resized js.Value
}

func (i *image) Box() viewer.Box {
	rect := i.el.Call("getBoundingClientRect")
	y := i.frame.scrollY()
	return viewer.Box{Top: rect.Get("top").Float() + y, Bottom: rect.Get("bottom").Float() + y}
}

func (i *image) parent() js.Value {
	return i.el.Get("parentElement")
}

func (i *image) Wrapper() preprocess.Kind {
	p := i.parent()
	if !p.Truthy() {
		return preprocess.KindOther
	}
	return preprocess.KindOf(strings.ToLower(p.Get("nodeName").String()))
}

func (i *image) Resize(height float64, wrapper bool) {
	i.Restore()
	target := i.el
	if wrapper {
		if p := i.parent(); p.Truthy() {
			target = p
		}
	}
	setSize(target, strconv.FormatFloat(height, 'f', 2, 64)+"px")
	i.resized = target
}

func (i *image) Restore() {
	if i.resized.Truthy() {
		clearSize(i.resized)
	}
	i.resized = js.Undefined()
}

func setSize(el js.Value, height string) {
	style := el.Get("style")
	style.Call("setProperty", "height", height)
	style.Call("setProperty", "width", "auto")
}

func clearSize(el js.Value) {
	style := el.Get("style")
	style.Call("removeProperty", "height")
	style.Call("removeProperty", "width")
}
