// Package book describes the reading sequence of an e-book: its documents,
// where they are served from and the reader's position in them.
package book

import (
	"path"
	"strings"

	"pview/common"
)

// DocumentRef identifies one markup document of the reading sequence.
type DocumentRef struct {
	Path        string             `json:"path"`
	ContentType common.ContentType `json:"contentType"`
}

// Book is an ordered sequence of documents. It is not modified after
// construction.
type Book struct {
	ID        string        `json:"id"`
	Documents []DocumentRef `json:"documents"`
}

// New creates a book from the ordered list of documents.
func New(id string, docs []DocumentRef) *Book {
	return &Book{ID: id, Documents: append([]DocumentRef(nil), docs...)}
}

// FromPaths creates a book from document paths deriving content types from
// file extensions. Paths which are not markup documents are skipped.
func FromPaths(id string, paths []string) *Book {
	b := &Book{ID: id}
	for _, p := range paths {
		if ct, ok := ContentTypeOf(p); ok {
			b.Documents = append(b.Documents, DocumentRef{Path: p, ContentType: ct})
		}
	}
	return b
}

// Len returns the number of documents.
func (b *Book) Len() int {
	return len(b.Documents)
}

// Index returns position of the document with exactly matching path or -1.
func (b *Book) Index(p string) int {
	for i, d := range b.Documents {
		if d.Path == p {
			return i
		}
	}
	return -1
}

// ContentTypeOf derives markup flavor from file extension.
func ContentTypeOf(p string) (common.ContentType, bool) {
	switch strings.ToLower(path.Ext(p)) {
	case ".html", ".htm":
		return common.ContentTypeHtml, true
	case ".xhtml", ".xht", ".xml":
		return common.ContentTypeXhtml, true
	}
	return common.ContentTypeHtml, false
}
