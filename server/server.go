// Package server hosts a single book for browser based viewer: book files
// under static root, book manifest, reading positions and preprocessed
// documents.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pview/book"
	"pview/config"
	"pview/fetch"
	"pview/preprocess"
	"pview/store"
)

// maxPositionSize limits size of position update body.
const maxPositionSize = 1 << 20

// cookieAge is lifetime of reader identity cookie.
const cookieAge = 365 * 24 * time.Hour

// Server serves one book.
type Server struct {
	src   *book.Source
	book  *book.Book
	store *store.Store
	pre   *preprocess.Preprocessor
	cfg   *config.Config
	rpt   *config.Report
	log   *zap.Logger

	mux *http.ServeMux
}

// New creates server for book from source. Outlines of served documents are
// kept in debug report when rpt is not nil.
func New(src *book.Source, b *book.Book, st *store.Store, pre *preprocess.Preprocessor, cfg *config.Config, rpt *config.Report, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		src:   src,
		book:  b,
		store: st,
		pre:   pre,
		cfg:   cfg,
		rpt:   rpt,
		log:   log.Named("server"),
		mux:   http.NewServeMux(),
	}

	static := http.StripPrefix("/static/", withDocumentType(http.FileServerFS(seekableFS{src.FS})))
	s.mux.Handle("GET /static/", withCORS(static))
	s.mux.Handle("OPTIONS /static/", withCORS(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))
	s.mux.HandleFunc("GET /api/book", s.handleManifest)
	s.mux.HandleFunc("GET /api/position", s.handleGetPosition)
	s.mux.HandleFunc("PUT /api/position", s.handlePutPosition)
	s.mux.HandleFunc("GET /api/document/{index}", s.handleDocument)
	if cfg.Server.AssetsDir != "" {
		s.mux.Handle("GET /", http.FileServer(http.Dir(cfg.Server.AssetsDir)))
	}
	return s
}

// Handler returns request router with access logging.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		s.mux.ServeHTTP(rw, r)
		s.log.Debug("Request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rw.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}

// Run serves requests until context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("unable to listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is like Run but uses provided listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(s.log),
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()
	s.log.Info("Serving book", zap.String("book", s.book.ID), zap.Stringer("address", ln.Addr()), zap.Int("documents", s.book.Len()))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("unable to shutdown server: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	reader := s.reader(w, r)
	pos, _, err := s.store.Load(reader, s.book.ID, s.book.Len())
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.reply(w, fetch.Manifest{
		Book:     s.book,
		Position: pos,
		Settings: fetch.Settings{
			Pad:          s.cfg.Viewer.Pad,
			Boundary:     s.cfg.Viewer.Boundary,
			DisableLinks: s.cfg.Viewer.DisableLinks,
			StaticRoot:   s.cfg.Viewer.StaticRoot,
			Stylesheet:   s.pre.Stylesheet(),
		},
	})
}

func (s *Server) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	pos, _, err := s.store.Load(s.reader(w, r), s.book.ID, s.book.Len())
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.reply(w, pos)
}

func (s *Server) handlePutPosition(w http.ResponseWriter, r *http.Request) {
	var pos book.Position
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPositionSize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&pos); err != nil {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("unable to decode position: %w", err))
		return
	}
	if err := s.store.Save(s.reader(w, r), s.book.ID, pos.Normalize(s.book.Len())); err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || idx < 0 || idx >= s.book.Len() {
		s.fail(w, http.StatusNotFound, fmt.Errorf("no document %q", r.PathValue("index")))
		return
	}
	ref := s.book.Documents[idx]

	f, err := s.src.FS.Open(ref.Path)
	if err != nil {
		s.fail(w, http.StatusNotFound, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}

	doc := s.pre.Process(data, ref)
	out, err := doc.Markup()
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.rpt.StoreData(path.Join("documents", ref.Path+".outline.txt"), []byte(doc.Outline()))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(out))
}

// reader returns reader identity from cookie, issuing new one when missing.
func (s *Server) reader(w http.ResponseWriter, r *http.Request) string {
	name := s.cfg.Server.ReaderCookie
	if c, err := r.Cookie(name); err == nil && c.Value != "" {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    id.String(),
		Path:     "/",
		MaxAge:   int(cookieAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.log.Debug("New reader", zap.String("reader", id.String()))
	return id.String()
}

func (s *Server) reply(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("Unable to write response", zap.Error(err))
	}
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.log.Error("Request failed", zap.Error(err))
	} else {
		s.log.Debug("Request rejected", zap.Int("status", status), zap.Error(err))
	}
	http.Error(w, http.StatusText(status), status)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "*")
		next.ServeHTTP(w, r)
	})
}

// withDocumentType sets content type of markup documents which extensions are
// not universally known.
func withDocumentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct, ok := book.ContentTypeOf(r.URL.Path); ok {
			w.Header().Set("Content-Type", ct.MIME())
		}
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
