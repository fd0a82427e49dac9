package prepare

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"pview/book"
	"pview/config"
	"pview/preprocess"
	"pview/state"
)

const chapter = `<?xml version="1.0" encoding="utf-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>One</title></head>
<body><p><a href="ch2.xhtml">next</a></p><img src="../Images/a.png" alt=""/></body>
</html>`

var png = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 1, 2, 3}

// setupTestEnv creates a test environment with proper context and logger
func setupTestEnv(t *testing.T) (context.Context, *state.LocalEnv) {
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	env.Log = logger
	env.Cfg = cfg
	return ctx, env
}

func preprocessor(t *testing.T, env *state.LocalEnv) *preprocess.Preprocessor {
	t.Helper()
	root, err := env.StaticRoot()
	if err != nil {
		t.Fatalf("StaticRoot() error = %v", err)
	}
	return env.Preprocessor(root)
}

func writeTree(t *testing.T, dir string, files map[string][]byte) {
	t.Helper()
	for p, data := range files {
		full := filepath.Join(dir, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, data, 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func readManifest(t *testing.T, out string) *book.Book {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(out, ManifestName))
	if err != nil {
		t.Fatalf("manifest: %v", err)
	}
	var b book.Book
	if err := json.Unmarshal(data, &b); err != nil {
		t.Fatalf("manifest: %v", err)
	}
	return &b
}

func TestProcess_Directory(t *testing.T) {
	ctx, env := setupTestEnv(t)
	pre := preprocessor(t, env)

	src := filepath.Join(t.TempDir(), "Short Stories")
	writeTree(t, src, map[string][]byte{
		"Text/ch1.xhtml": []byte(chapter),
		"Text/ch2.xhtml": []byte(chapter),
		"Images/a.png":   png,
	})
	dst := t.TempDir()

	if err := process(ctx, src, dst, pre, nil, options{}, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}

	out := filepath.Join(dst, "short-stories")
	data, err := os.ReadFile(filepath.Join(out, "Text", "ch1.xhtml"))
	if err != nil {
		t.Fatalf("prepared document: %v", err)
	}
	markup := string(data)
	if !strings.Contains(markup, `src="http://localhost:8080/static/Images/a.png"`) {
		t.Errorf("image reference not resolved:\n%s", markup)
	}
	if strings.Contains(markup, "href=") {
		t.Errorf("links not disabled:\n%s", markup)
	}
	if !strings.Contains(markup, "<style") {
		t.Errorf("stylesheet not injected:\n%s", markup)
	}

	res, err := os.ReadFile(filepath.Join(out, "Images", "a.png"))
	if err != nil {
		t.Fatalf("resource: %v", err)
	}
	if !bytes.Equal(res, png) {
		t.Error("resource must be copied unchanged")
	}

	b := readManifest(t, out)
	if b.ID != "short-stories" || b.Len() != 2 || b.Documents[1].Path != "Text/ch2.xhtml" {
		t.Errorf("manifest = %+v", b)
	}
}

func TestProcess_Overwrite(t *testing.T) {
	ctx, env := setupTestEnv(t)
	pre := preprocessor(t, env)

	src := filepath.Join(t.TempDir(), "book")
	writeTree(t, src, map[string][]byte{"ch1.html": []byte("<p>one</p>")})
	dst := t.TempDir()

	if err := process(ctx, src, dst, pre, nil, options{}, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	stale := filepath.Join(dst, "book", "stale.txt")
	writeTree(t, filepath.Join(dst, "book"), map[string][]byte{"stale.txt": []byte("x")})

	if err := process(ctx, src, dst, pre, nil, options{}, env.Log); err == nil {
		t.Fatal("process() must refuse existing output")
	}
	if err := process(ctx, src, dst, pre, nil, options{overwrite: true}, env.Log); err != nil {
		t.Fatalf("process() with overwrite error = %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("output directory was not replaced, stat error = %v", err)
	}
}

func TestProcess_Archive(t *testing.T) {
	ctx, env := setupTestEnv(t)
	pre := preprocessor(t, env)

	name := filepath.Join(t.TempDir(), "Novel.epub")
	f, err := os.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(f)
	for p, data := range map[string][]byte{
		"mimetype":             []byte("application/epub+zip"),
		"OEBPS/Text/ch1.xhtml": []byte(chapter),
		"OEBPS/Images/a.png":   png,
	} {
		fw, err := w.Create(p)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(data)
	}
	w.Close()
	f.Close()

	dst := t.TempDir()
	if err := process(ctx, name, dst, pre, nil, options{}, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}

	out := filepath.Join(dst, "novel")
	data, err := os.ReadFile(filepath.Join(out, "OEBPS", "Text", "ch1.xhtml"))
	if err != nil {
		t.Fatalf("prepared document: %v", err)
	}
	if !strings.Contains(string(data), `src="http://localhost:8080/static/OEBPS/Images/a.png"`) {
		t.Errorf("image reference not resolved:\n%s", data)
	}
	if _, err := os.Stat(filepath.Join(out, "mimetype")); err != nil {
		t.Errorf("resource not copied: %v", err)
	}
	if b := readManifest(t, out); b.ID != "novel" || b.Len() != 1 {
		t.Errorf("manifest = %+v", b)
	}
}

func TestProcess_NoDocuments(t *testing.T) {
	ctx, env := setupTestEnv(t)

	src := filepath.Join(t.TempDir(), "empty")
	writeTree(t, src, map[string][]byte{"cover.png": png})

	if err := process(ctx, src, t.TempDir(), preprocessor(t, env), nil, options{}, env.Log); err == nil {
		t.Fatal("process() must fail for source without documents")
	}
}

func TestProcess_Canceled(t *testing.T) {
	_, env := setupTestEnv(t)

	src := filepath.Join(t.TempDir(), "book")
	writeTree(t, src, map[string][]byte{"ch1.html": []byte("<p>one</p>")})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := process(ctx, src, t.TempDir(), preprocessor(t, env), nil, options{}, env.Log); err == nil {
		t.Fatal("process() must fail when context is canceled")
	}
}

func TestCodePage(t *testing.T) {
	log := zaptest.NewLogger(t)

	if cp := CodePage("", log); cp != nil {
		t.Error("empty name must give no code page")
	}
	if cp := CodePage("IBM866", log); cp == nil {
		t.Error("IBM866 must be known")
	}
	if cp := CodePage("no-such-charset", log); cp != nil {
		t.Error("unknown name must be ignored")
	}
}

func TestOutputName(t *testing.T) {
	b := book.FromPaths("war-and-peace", []string{"ch1.html", "ch2.html"})

	tests := []struct {
		name string
		tmpl string
		want string
	}{
		{name: "empty", tmpl: "", want: "war-and-peace"},
		{name: "book id", tmpl: "{{ .BookID }}", want: "war-and-peace"},
		{name: "sprig", tmpl: `{{ .SourceFile | upper }}-{{ .Documents }}`, want: "war-and-peace-2"},
		{name: "sub-directories", tmpl: "library/{{ .BookID }}", want: filepath.Join("library", "war-and-peace")},
		{name: "escape attempt", tmpl: "../../{{ .BookID }}", want: "war-and-peace"},
		{name: "blank result", tmpl: "{{ if false }}x{{ end }}", want: "war-and-peace"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := outputName(tt.tmpl, b, "/books/War and Peace.epub")
			if err != nil {
				t.Fatalf("outputName() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("outputName() = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := outputName("{{ .Missing", b, "x"); err == nil {
		t.Error("outputName() must fail on broken template")
	}
}
