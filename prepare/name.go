package prepare

import (
	"bytes"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/gosimple/slug"

	"pview/book"
	"pview/config"
)

// nameValues are available to output name template.
type nameValues struct {
	BookID     string
	SourceFile string
	Documents  int
}

// outputName expands output name template for book b prepared from src.
// Every path segment of the result is slugified so it is safe as a directory
// name. Empty template or empty result gives book id.
func outputName(tmpl string, b *book.Book, src string) (string, error) {
	if strings.TrimSpace(tmpl) == "" {
		return b.ID, nil
	}

	t, err := template.New(config.OutputNameTemplateFieldName).Funcs(sprig.FuncMap()).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", config.OutputNameTemplateFieldName, err)
	}
	values := nameValues{
		BookID:     b.ID,
		SourceFile: strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)),
		Documents:  b.Len(),
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, values); err != nil {
		return "", fmt.Errorf("unable to expand template field %s: %w", config.OutputNameTemplateFieldName, err)
	}

	var segments []string
	for _, s := range strings.Split(filepath.ToSlash(buf.String()), "/") {
		if s = slug.Make(s); s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) == 0 {
		return b.ID, nil
	}
	return filepath.FromSlash(path.Join(segments...)), nil
}
