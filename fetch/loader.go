// Package fetch provides loaders retrieving raw document markup. Loaders do
// not retry, callers decide what to do with failures.
package fetch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"time"

	"go.uber.org/zap"

	"pview/book"
)

// Loader retrieves raw markup addressed by url.
type Loader interface {
	FetchMarkup(ctx context.Context, url string) ([]byte, error)
}

// maxMarkupSize limits size of a single document.
const maxMarkupSize = 64 << 20

// StatusError is returned when server answered with non success status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d (%s) for %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// HTTPLoader fetches markup over HTTP.
type HTTPLoader struct {
	client *http.Client
	log    *zap.Logger
}

// NewHTTPLoader creates loader using client, nil client means a client with
// reasonable timeout.
func NewHTTPLoader(client *http.Client, log *zap.Logger) *HTTPLoader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPLoader{client: client, log: log.Named("fetch")}
}

// FetchMarkup implements Loader.
func (l *HTTPLoader) FetchMarkup(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create request: %w", err)
	}

	start := time.Now()
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch markup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMarkupSize))
	if err != nil {
		return nil, fmt.Errorf("unable to read markup: %w", err)
	}

	l.log.Debug("Markup fetched", zap.String("url", url), zap.Int("bytes", len(data)), zap.Duration("elapsed", time.Since(start)))
	return data, nil
}

// FSLoader reads markup from a file system. Addresses are mapped back to book
// relative paths through static root.
type FSLoader struct {
	fsys fs.FS
	root book.StaticRoot
}

// NewFSLoader creates loader serving addresses under root from fsys.
func NewFSLoader(fsys fs.FS, root book.StaticRoot) *FSLoader {
	return &FSLoader{fsys: fsys, root: root}
}

// FetchMarkup implements Loader.
func (l *FSLoader) FetchMarkup(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, ok := l.root.Relative(url)
	if !ok || !fs.ValidPath(name) {
		return nil, fmt.Errorf("address %s is outside of book", url)
	}
	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("unable to read markup: %w", err)
	}
	return data, nil
}
