package server

import (
	"archive/zip"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"pview/book"
	"pview/common"
	"pview/config"
	"pview/fetch"
	"pview/preprocess"
	"pview/store"
)

const chapter = `<html xmlns="http://www.w3.org/1999/xhtml"><head><title>1</title></head>` +
	`<body><p><img src="../Images/a.png"/></p></body></html>`

type fixture struct {
	srv *Server
	h   http.Handler
}

func newServer(t *testing.T, src *book.Source, assets string, opts ...preprocess.Option) *fixture {
	t.Helper()

	b, err := src.Book()
	if err != nil {
		t.Fatalf("Book() error = %v", err)
	}
	st, err := store.Open(filepath.Join(t.TempDir(), "positions.db"), nil)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := &config.Config{
		Version: 1,
		Viewer: config.ViewerConfig{
			Pad:          10,
			Boundary:     common.BoundaryPolicyWrap,
			DisableLinks: true,
			StaticRoot:   "http://localhost:8080/static/",
		},
		Server: config.ServerConfig{Listen: "127.0.0.1:0", AssetsDir: assets, ReaderCookie: "pviewReader"},
	}
	root := book.MustParseStaticRoot(cfg.Viewer.StaticRoot)
	srv := New(src, b, st, preprocess.New(root, opts...), cfg, nil, zaptest.NewLogger(t))
	return &fixture{srv: srv, h: srv.Handler()}
}

func dirSource(t *testing.T) *book.Source {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "book")
	for name, data := range map[string]string{
		"Text/ch1.xhtml": chapter,
		"Text/ch2.xhtml": chapter,
		"Images/a.png":   "png",
	} {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
	}
	src, err := book.Open(dir, nil)
	if err != nil {
		t.Fatalf("book.Open() error = %v", err)
	}
	t.Cleanup(func() { src.Close() })
	return src
}

func (fx *fixture) do(t *testing.T, method, target, body string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	fx.h.ServeHTTP(rec, req)
	return rec.Result()
}

func readerCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == "pviewReader" {
			return c
		}
	}
	t.Fatal("reader cookie not issued")
	return nil
}

func TestStatic(t *testing.T) {
	fx := newServer(t, dirSource(t), "")

	resp := fx.do(t, http.MethodGet, "/static/Text/ch1.xhtml", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS header = %q", got)
	}
	if got := resp.Header.Get("Content-Type"); got != "application/xhtml+xml" {
		t.Errorf("Content-Type = %q", got)
	}

	if resp := fx.do(t, http.MethodOptions, "/static/Text/ch1.xhtml", ""); resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d", resp.StatusCode)
	}
	if resp := fx.do(t, http.MethodGet, "/static/Text/missing.xhtml", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing file status = %d", resp.StatusCode)
	}
}

func TestStatic_Archive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "novel.epub")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(f)
	fw, _ := w.Create("OEBPS/ch1.xhtml")
	fw.Write([]byte(chapter))
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	src, err := book.Open(path, nil)
	if err != nil {
		t.Fatalf("book.Open() error = %v", err)
	}
	defer src.Close()
	fx := newServer(t, src, "")

	resp := fx.do(t, http.MethodGet, "/static/OEBPS/ch1.xhtml", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	data := make([]byte, len(chapter)+1)
	n, _ := resp.Body.Read(data)
	if string(data[:n]) != chapter {
		t.Errorf("body = %q", data[:n])
	}
}

func TestManifestAndPosition(t *testing.T) {
	fx := newServer(t, dirSource(t), "")

	resp := fx.do(t, http.MethodGet, "/api/book", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	cookie := readerCookie(t, resp)

	var m fetch.Manifest
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if m.Book.ID != "book" || m.Book.Len() != 2 || m.Book.Documents[1].Path != "Text/ch2.xhtml" {
		t.Errorf("manifest book = %+v", m.Book)
	}
	if m.Book.Documents[0].ContentType != common.ContentTypeXhtml {
		t.Errorf("content type = %v", m.Book.Documents[0].ContentType)
	}
	if m.Settings.Boundary != common.BoundaryPolicyWrap || m.Settings.Pad != 10 || !m.Settings.DisableLinks {
		t.Errorf("manifest settings = %+v", m.Settings)
	}
	if m.Position.CurrentIndex != 0 || !slices.Equal(m.Position.ScrollOffsets, []float64{0, 0}) {
		t.Errorf("manifest position = %+v", m.Position)
	}
	if m.Settings.Stylesheet != preprocess.DefaultStylesheet() {
		t.Errorf("manifest stylesheet = %q, want default", m.Settings.Stylesheet)
	}

	if resp := fx.do(t, http.MethodPut, "/api/position", `{"currentIndex":5,"scrollOffsets":[590]}`, cookie); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("PUT status = %d", resp.StatusCode)
	}
	if resp := fx.do(t, http.MethodPut, "/api/position", `{"page":1}`, cookie); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("PUT unknown field status = %d", resp.StatusCode)
	}

	resp = fx.do(t, http.MethodGet, "/api/position", "", cookie)
	var pos book.Position
	if err := json.NewDecoder(resp.Body).Decode(&pos); err != nil {
		t.Fatalf("decode position: %v", err)
	}
	if pos.CurrentIndex != 1 || !slices.Equal(pos.ScrollOffsets, []float64{590, 0}) {
		t.Errorf("position = %+v", pos)
	}

	// other readers are not affected
	resp = fx.do(t, http.MethodGet, "/api/position", "")
	if err := json.NewDecoder(resp.Body).Decode(&pos); err != nil {
		t.Fatalf("decode position: %v", err)
	}
	if pos.CurrentIndex != 0 || readerCookie(t, resp).Value == cookie.Value {
		t.Errorf("new reader got position %+v", pos)
	}
}

func TestManifest_Stylesheet(t *testing.T) {
	const css = "p { text-indent: 3em; }"
	fx := newServer(t, dirSource(t), "", preprocess.WithStylesheet(css))

	ts := httptest.NewServer(fx.h)
	defer ts.Close()

	log := zaptest.NewLogger(t)
	m, err := fetch.NewHTTPLoader(ts.Client(), log).FetchManifest(context.Background(), ts.URL+"/api/book")
	if err != nil {
		t.Fatalf("FetchManifest() error = %v", err)
	}
	if m.Settings.Stylesheet != css {
		t.Fatalf("manifest stylesheet = %q, want %q", m.Settings.Stylesheet, css)
	}

	// browser host preprocesses documents with the same stylesheet
	root := book.MustParseStaticRoot(m.Settings.StaticRoot)
	doc := m.Settings.Preprocessor(root, log).Process([]byte(chapter), m.Book.Documents[0])
	markup, err := doc.Markup()
	if err != nil {
		t.Fatalf("Markup() error = %v", err)
	}
	if !strings.Contains(markup, css) || strings.Contains(markup, preprocess.DefaultStylesheet()) {
		t.Errorf("markup does not carry configured stylesheet:\n%s", markup)
	}

	// server side preprocessing agrees
	resp := fx.do(t, http.MethodGet, "/api/document/0", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("document status = %d", resp.StatusCode)
	}
	var sb strings.Builder
	if _, err := io.Copy(&sb, resp.Body); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sb.String(), css) {
		t.Errorf("served document does not carry configured stylesheet:\n%s", sb.String())
	}
}

func TestDocument(t *testing.T) {
	fx := newServer(t, dirSource(t), "")

	resp := fx.do(t, http.MethodGet, "/api/document/1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var sb strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		sb.Write(buf[:n])
		if err != nil {
			break
		}
	}
	out := sb.String()
	if !strings.Contains(out, `src="http://localhost:8080/static/Images/a.png"`) || !strings.Contains(out, "<style") {
		t.Errorf("document not preprocessed:\n%s", out)
	}

	for _, target := range []string{"/api/document/2", "/api/document/-1", "/api/document/x"} {
		if resp := fx.do(t, http.MethodGet, target, ""); resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s status = %d", target, resp.StatusCode)
		}
	}
}

func TestAssets(t *testing.T) {
	assets := t.TempDir()
	if err := os.WriteFile(filepath.Join(assets, "index.html"), []byte("<html>viewer</html>"), 0644); err != nil {
		t.Fatal(err)
	}
	fx := newServer(t, dirSource(t), assets)

	if resp := fx.do(t, http.MethodGet, "/", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("assets status = %d", resp.StatusCode)
	}

	fx = newServer(t, dirSource(t), "")
	if resp := fx.do(t, http.MethodGet, "/", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("no assets status = %d", resp.StatusCode)
	}
}

func TestServe_Shutdown(t *testing.T) {
	fx := newServer(t, dirSource(t), "")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- fx.srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/book")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
