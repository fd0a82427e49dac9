package book

import (
	"fmt"
	"net/url"
	"strings"
)

// StaticRoot maps book relative paths to absolute addresses under the
// book's static asset root.
type StaticRoot struct {
	base *url.URL
}

// ParseStaticRoot parses absolute address of the asset root. Trailing slash
// is added when missing so relative references resolve under it.
func ParseStaticRoot(raw string) (StaticRoot, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return StaticRoot{}, fmt.Errorf("unable to parse static root %q: %w", raw, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return StaticRoot{}, fmt.Errorf("static root %q must be absolute", raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	u.RawQuery, u.Fragment = "", ""
	return StaticRoot{base: u}, nil
}

// MustParseStaticRoot is like ParseStaticRoot but panics on error.
func MustParseStaticRoot(raw string) StaticRoot {
	r, err := ParseStaticRoot(raw)
	if err != nil {
		panic(err)
	}
	return r
}

func (r StaticRoot) String() string {
	if r.base == nil {
		return ""
	}
	return r.base.String()
}

func (r StaticRoot) locate(rel string) *url.URL {
	return r.base.ResolveReference(&url.URL{Path: strings.TrimLeft(rel, "/")})
}

// Resolve returns absolute address of the book relative path.
func (r StaticRoot) Resolve(rel string) string {
	return r.locate(rel).String()
}

// ResolveFrom resolves resource reference found in document docPath. The
// document's directory is the base for relative references, root relative
// references are taken from the asset root. References which are already
// absolute (including data URIs), empty or fragment only are not resolved and
// ok is false.
func (r StaticRoot) ResolveFrom(docPath, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return "", false
	}
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "", false
	}
	if strings.HasPrefix(u.Path, "/") {
		u.Path = strings.TrimLeft(u.Path, "/")
		return r.base.ResolveReference(u).String(), true
	}
	return r.locate(docPath).ResolveReference(u).String(), true
}

// Relative is the reverse of Resolve: it returns book relative path of an
// absolute address under the asset root.
func (r StaticRoot) Relative(abs string) (string, bool) {
	u, err := url.Parse(abs)
	if err != nil || r.base == nil {
		return "", false
	}
	if u.Scheme != r.base.Scheme || u.Host != r.base.Host || !strings.HasPrefix(u.Path, r.base.Path) {
		return "", false
	}
	rel := strings.TrimPrefix(u.Path, r.base.Path)
	if rel == "" {
		return "", false
	}
	return rel, true
}
