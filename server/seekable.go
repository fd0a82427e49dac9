package server

import (
	"bytes"
	"io"
	"io/fs"
)

// seekableFS makes regular files of underlying file system seekable, as
// required for serving content. Archive members are not, so they are read into
// memory on open.
type seekableFS struct {
	fs.FS
}

func (s seekableFS) Open(name string) (fs.File, error) {
	f, err := s.FS.Open(name)
	if err != nil {
		return nil, err
	}
	if _, ok := f.(io.Seeker); ok {
		return f, nil
	}

	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return s.FS.Open(name)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &memFile{Reader: bytes.NewReader(data), fi: fi}, nil
}

type memFile struct {
	*bytes.Reader
	fi fs.FileInfo
}

func (f *memFile) Stat() (fs.FileInfo, error) { return f.fi, nil }
func (f *memFile) Close() error               { return nil }
