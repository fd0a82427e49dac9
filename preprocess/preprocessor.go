// Package preprocess turns raw document markup into a document ready to be
// embedded into rendering surface: default stylesheet is injected, image
// references are made absolute and navigation links are optionally disabled.
package preprocess

import (
	"go.uber.org/zap"

	"pview/book"
)

// Preprocessor runs preprocessing pipeline for documents of a single book.
type Preprocessor struct {
	root         book.StaticRoot
	stylesheet   string
	disableLinks bool
	log          *zap.Logger
}

// Option configures Preprocessor.
type Option func(*Preprocessor)

// WithStylesheet replaces default stylesheet.
func WithStylesheet(stylesheet string) Option {
	return func(p *Preprocessor) {
		p.stylesheet = stylesheet
	}
}

// WithLinks controls whether hyperlinks are kept navigable.
func WithLinks(keep bool) Option {
	return func(p *Preprocessor) {
		p.disableLinks = !keep
	}
}

// WithLogger sets logger.
func WithLogger(log *zap.Logger) Option {
	return func(p *Preprocessor) {
		if log != nil {
			p.log = log
		}
	}
}

// New creates preprocessor resolving references under static root. By default
// links are disabled and default stylesheet is used.
func New(root book.StaticRoot, opts ...Option) *Preprocessor {
	p := &Preprocessor{
		root:         root,
		stylesheet:   defaultStylesheet,
		disableLinks: true,
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.Named("preprocess")
	return p
}

// Stylesheet returns stylesheet injected into every document.
func (p *Preprocessor) Stylesheet() string { return p.stylesheet }

// Process parses markup of referenced document and transforms it. Malformed
// markup is never an error.
func (p *Preprocessor) Process(markup []byte, ref book.DocumentRef) *Document {
	log := p.log.With(zap.String("document", ref.Path))

	doc := Parse(markup, ref.ContentType, log)
	if doc.Degraded() {
		log.Debug("Document structure recovered by lenient parser")
	}

	InjectDefaultStyle(doc, p.stylesheet)
	images := RewriteResourceReferences(doc, ref.Path, p.root)
	var links int
	if p.disableLinks {
		links = DisableNavigationLinks(doc)
	}

	log.Debug("Document preprocessed",
		zap.Stringer("type", ref.ContentType),
		zap.Int("images", images),
		zap.Int("links_disabled", links))
	return doc
}
