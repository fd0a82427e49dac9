package viewer

// adjust shrinks the last image starting inside visible window so it does not
// continue past the window bottom. Previous adjustment is undone first, so
// every pass measures natural geometry. Must be called with lock held after
// layout.
func (v *Viewer) adjust() {
	if v.resized != nil {
		v.resized.Restore()
		v.resized = nil
	}
	if v.frame == nil {
		return
	}

	offset := v.session.Pages[v.session.CurrentIndex].ScrollOffset
	end := min(offset+v.session.ScrollStep, v.height)

	var last Image
	for _, img := range v.frame.Images() {
		if img.Box().Top < end {
			last = img
		}
	}
	if last == nil {
		return
	}

	box := last.Box()
	overflow := max(0, box.Bottom-end)
	if overflow == 0 {
		return
	}
	last.Resize(box.Height()-overflow, last.Wrapper().IsImageWrapper())
	v.resized = last
}
