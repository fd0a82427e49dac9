package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"pview/book"
	"pview/common"
	"pview/preprocess"
)

// Settings are viewer settings handed to browser host.
type Settings struct {
	Pad          float64               `json:"pad"`
	Boundary     common.BoundaryPolicy `json:"boundary"`
	DisableLinks bool                  `json:"disableLinks"`
	StaticRoot   string                `json:"staticRoot"`
	Stylesheet   string                `json:"stylesheet,omitempty"`
}

// Preprocessor creates document preprocessor matching settings. Empty
// stylesheet keeps default one.
func (s Settings) Preprocessor(root book.StaticRoot, log *zap.Logger) *preprocess.Preprocessor {
	opts := []preprocess.Option{
		preprocess.WithLinks(!s.DisableLinks),
		preprocess.WithLogger(log),
	}
	if s.Stylesheet != "" {
		opts = append(opts, preprocess.WithStylesheet(s.Stylesheet))
	}
	return preprocess.New(root, opts...)
}

// Manifest is everything browser host needs to start viewer.
type Manifest struct {
	Book     *book.Book    `json:"book"`
	Position book.Position `json:"position"`
	Settings Settings      `json:"settings"`
}

// FetchManifest retrieves book manifest. Position is normalized to the book.
func (l *HTTPLoader) FetchManifest(ctx context.Context, url string) (*Manifest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	var m Manifest
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("unable to decode manifest: %w", err)
	}
	if m.Book == nil || m.Book.Len() == 0 {
		return nil, fmt.Errorf("manifest at %s has no documents", url)
	}
	m.Position = m.Position.Normalize(m.Book.Len())
	return &m, nil
}

// SavePosition stores reading position.
func (l *HTTPLoader) SavePosition(ctx context.Context, url string, pos book.Position) error {
	data, err := json.Marshal(pos)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("unable to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("unable to save position: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return nil
}
