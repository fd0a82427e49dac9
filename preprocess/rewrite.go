package preprocess

import (
	"pview/book"
)

// imageRefAttrs lists attributes carrying image address for each image kind,
// in order of preference.
var imageRefAttrs = map[Kind][]string{
	KindImg:   {"src"},
	KindImage: {"xlink:href", "href"},
}

var linkAttrs = []string{"href", "xlink:href"}

// RewriteResourceReferences resolves image references relative to document
// at docPath into absolute addresses under static root. It returns number of
// rewritten references.
func RewriteResourceReferences(d *Document, docPath string, root book.StaticRoot) int {
	var count int
	d.walk(func(el element) {
		attrs, ok := imageRefAttrs[el.kind()]
		if !ok {
			return
		}
		for _, key := range attrs {
			ref, ok := el.attr(key)
			if !ok {
				continue
			}
			if abs, ok := root.ResolveFrom(docPath, ref); ok {
				el.setAttr(key, abs)
				count++
			}
			break
		}
	})
	return count
}

// DisableNavigationLinks removes navigable targets from every hyperlink so
// in-document links could not move reader off the paginated surface. Anchor
// elements themselves are kept since they may serve as section targets. It
// returns number of disabled links.
func DisableNavigationLinks(d *Document) int {
	var count int
	d.walk(func(el element) {
		if el.kind() != KindAnchor {
			return
		}
		disabled := false
		for _, key := range linkAttrs {
			if _, ok := el.attr(key); ok {
				el.removeAttr(key)
				disabled = true
			}
		}
		if disabled {
			count++
		}
	})
	return count
}
