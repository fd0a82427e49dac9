// Package archive opens zip based book containers (epub, zip) and exposes
// them as fs.FS so documents and their resources can be served directly.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/h2non/filetype"
	"golang.org/x/text/encoding"
)

// WalkFunc is the type of the function called for each file in archive
// visited by Walk. If an error is returned, processing stops.
type WalkFunc func(file *zip.File) error

// Archive is an opened zip container. Embedded reader implements fs.FS.
type Archive struct {
	*zip.ReadCloser
	name string
}

// IsArchive checks file signature to see if it is zip or epub container.
func IsArchive(name string) (bool, error) {
	f, err := os.Open(name)
	if err != nil {
		return false, err
	}
	defer f.Close()

	// enough for any signature filetype knows
	head := make([]byte, 262)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, err
	}
	head = head[:n]
	return filetype.Is(head, "zip") || filetype.Is(head, "epub"), nil
}

// Open opens archive refusing containers with entries which could escape
// extraction directory (Zip Slip). Since zip does not define file name
// encoding, names not flagged as UTF-8 are decoded with code page cp when
// it is not nil.
func Open(name string, cp encoding.Encoding) (*Archive, error) {
	r, err := zip.OpenReader(name)
	if err != nil {
		return nil, err
	}
	for _, f := range r.File {
		if cp != nil && f.NonUTF8 {
			if n, err := cp.NewDecoder().String(f.Name); err == nil {
				f.Name = n
			}
		}
		if !isSafePath(f.Name) {
			r.Close()
			return nil, fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", f.Name)
		}
	}
	return &Archive{ReadCloser: r, name: name}, nil
}

// Name returns path to archive file.
func (a *Archive) Name() string {
	return a.name
}

// Walk calls walkFn for every file (not directory) in the archive which
// name starts with prefix, in archive order.
func (a *Archive) Walk(prefix string, walkFn WalkFunc) error {
	for _, f := range a.File {
		if !f.FileInfo().IsDir() && strings.HasPrefix(f.Name, prefix) {
			if err := walkFn(f); err != nil {
				return err
			}
		}
	}
	return nil
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
