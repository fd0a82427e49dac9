// The only reason this package exists is because enums are needed by config,
// book and viewer alike, and the viewer is also compiled for the browser host
// where configuration machinery is not available. So enums live separately.
package common

// Markup flavor of a book document.
// ENUM(html, xhtml)
type ContentType int

// MIME returns the media type used when the document is interpreted.
func (c ContentType) MIME() string {
	if c == ContentTypeHtml {
		return "text/html"
	}
	return "application/xhtml+xml"
}

// What happens when navigation would move before the first or past the last
// document.
// ENUM(clamp, wrap)
type BoundaryPolicy int

// Step returns the document index reached from idx moving by dir (+1 or -1)
// in a book of n documents. ok is false when the move is not possible under
// the policy.
func (b BoundaryPolicy) Step(idx, dir, n int) (next int, ok bool) {
	if n <= 0 {
		return 0, false
	}
	next = idx + dir
	if next >= 0 && next < n {
		return next, true
	}
	if b != BoundaryPolicyWrap {
		return idx, false
	}
	return (next%n + n) % n, true
}
