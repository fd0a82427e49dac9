package book

import (
	"archive/zip"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gosimple/slug"
	"github.com/maruel/natural"
	"golang.org/x/text/encoding"

	"pview/archive"
)

// Source is a book on local storage - either a directory or a zip based
// container. Its file system serves documents and resources.
type Source struct {
	ID string
	FS fs.FS

	arc *archive.Archive
}

// Open opens book source at path. Code page cp, when not nil, is used for
// archive member names not marked as UTF-8.
func Open(name string, cp encoding.Encoding) (*Source, error) {
	fi, err := os.Stat(name)
	if err != nil {
		return nil, fmt.Errorf("unable to access book source: %w", err)
	}

	id := slug.Make(strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)))
	if fi.IsDir() {
		return &Source{ID: id, FS: os.DirFS(name)}, nil
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("unexpected path mode for book source (%s)", name)
	}

	ok, err := archive.IsArchive(name)
	if err != nil {
		return nil, fmt.Errorf("unable to check archive type: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("book source is neither directory nor archive (%s)", name)
	}
	arc, err := archive.Open(name, cp)
	if err != nil {
		return nil, fmt.Errorf("unable to open archive: %w", err)
	}
	return &Source{ID: id, FS: arc, arc: arc}, nil
}

// Book lists markup documents of the source in natural order of their paths.
// Package manifests are not interpreted, paths are the only ordering hint.
func (s *Source) Book() (*Book, error) {
	var paths []string

	collect := func(p string) {
		if hidden(p) {
			return
		}
		if _, ok := ContentTypeOf(p); ok {
			paths = append(paths, p)
		}
	}

	if s.arc != nil {
		if err := s.arc.Walk("", func(f *zip.File) error {
			collect(f.Name)
			return nil
		}); err != nil {
			return nil, err
		}
	} else {
		if err := fs.WalkDir(s.FS, ".", func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if p != "." && hidden(p) {
					return fs.SkipDir
				}
				return nil
			}
			collect(p)
			return nil
		}); err != nil {
			return nil, fmt.Errorf("unable to list book documents: %w", err)
		}
	}

	sort.Sort(natural.StringSlice(paths))
	return FromPaths(s.ID, paths), nil
}

// Close releases underlying archive if any.
func (s *Source) Close() error {
	if s.arc == nil {
		return nil
	}
	return s.arc.Close()
}

func hidden(p string) bool {
	for _, part := range strings.Split(p, "/") {
		if strings.HasPrefix(part, ".") && part != "." {
			return true
		}
	}
	return false
}
