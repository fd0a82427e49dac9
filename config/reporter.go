package config

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pview/misc"
)

type ReporterConfig struct {
	Destination string `yaml:"destination" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
}

// Prepare creates empty report. When destination could not be created report
// goes to temporary directory.
func (conf *ReporterConfig) Prepare() (*Report, error) {
	f, err := os.Create(conf.Destination)
	if err != nil {
		if f, err = os.CreateTemp("", misc.GetAppName()+"-report.*.zip"); err != nil {
			return nil, fmt.Errorf("unable to create report: %w", err)
		}
	}
	return &Report{file: f, seen: make(map[string]int)}, nil
}

// item is either a file on disk collected when report is closed or data
// captured at the time it was stored.
type item struct {
	name  string
	path  string
	data  []byte
	stamp time.Time
}

// Report accumulates debugging material and writes it as zip archive on
// Close. Safe for concurrent use: server handlers add document outlines while
// serving requests. Nil report silently ignores everything.
type Report struct {
	mu    sync.Mutex
	items []item
	seen  map[string]int
	file  *os.File
}

// unique returns name not used in the report yet, repeated names get numeric
// suffix. Must be called with lock held.
func (r *Report) unique(name string) string {
	n := r.seen[name]
	r.seen[name] = n + 1
	if n == 0 {
		return name
	}
	return fmt.Sprintf("%s.%d", name, n+1)
}

// Store records file at path to be put in the report under name. File is read
// when report is closed, so it may still be written to.
func (r *Report) Store(name, path string) {
	if r == nil {
		return
	}
	if p, err := filepath.Abs(path); err == nil {
		path = p
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, item{name: r.unique(name), path: path})
}

// StoreData puts copy of data in the report under name.
func (r *Report) StoreData(name string, data []byte) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, item{name: r.unique(name), data: bytes.Clone(data), stamp: time.Now()})
}

// Name returns absolute name of the report archive.
func (r *Report) Name() string {
	if r == nil || r.file == nil {
		return ""
	}
	if n, err := filepath.Abs(r.file.Name()); err == nil {
		return n
	}
	return r.file.Name()
}

// Close writes the report archive.
func (r *Report) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	f := r.file
	r.file = nil

	if err := r.write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (r *Report) write(f *os.File) error {
	arc := zip.NewWriter(f)

	var manifest strings.Builder
	for _, it := range r.items {
		if it.path == "" {
			if err := addFile(arc, it.name, it.stamp, bytes.NewReader(it.data)); err != nil {
				return err
			}
			fmt.Fprintf(&manifest, "%s\t%s\t%d bytes\n", it.stamp.UTC().Format(time.RFC3339), it.name, len(it.data))
			continue
		}

		in, err := os.Open(it.path)
		if err != nil {
			// file was never created, note it and move on
			fmt.Fprintf(&manifest, "-\t%s\t%s: %v\n", it.name, it.path, err)
			continue
		}
		fi, err := in.Stat()
		if err != nil || !fi.Mode().IsRegular() {
			in.Close()
			fmt.Fprintf(&manifest, "-\t%s\t%s: not a regular file\n", it.name, it.path)
			continue
		}
		err = addFile(arc, it.name, fi.ModTime(), in)
		in.Close()
		if err != nil {
			return err
		}
		fmt.Fprintf(&manifest, "%s\t%s\t%s\n", fi.ModTime().UTC().Format(time.RFC3339), it.name, it.path)
	}

	if err := addFile(arc, "MANIFEST", time.Now(), strings.NewReader(manifest.String())); err != nil {
		return err
	}
	return arc.Close()
}

func addFile(arc *zip.Writer, name string, t time.Time, src io.Reader) error {
	w, err := arc.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: t})
	if err != nil {
		return fmt.Errorf("unable to add %s to report: %w", name, err)
	}
	if _, err = io.Copy(w, src); err != nil {
		return fmt.Errorf("unable to add %s to report: %w", name, err)
	}
	return nil
}
