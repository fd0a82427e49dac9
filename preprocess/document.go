package preprocess

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"

	"pview/common"
	"pview/utils/debug"
)

// Document is a parsed markup document. Exactly one of the trees is present:
// XHTML documents which XML reader accepted keep their etree, everything else
// (including XHTML the XML reader refused) is held as HTML tree.
type Document struct {
	Type     common.ContentType
	degraded bool

	html *html.Node
	xml  *etree.Document
}

// Parse interprets markup according to content type. It never fails: broken
// markup produces whatever structure lenient parsers could recover.
func Parse(markup []byte, ct common.ContentType, log *zap.Logger) *Document {
	if log == nil {
		log = zap.NewNop()
	}

	d := &Document{Type: ct}
	if ct == common.ContentTypeXhtml {
		doc := etree.NewDocument()
		doc.ReadSettings = etree.ReadSettings{
			CharsetReader: charset.NewReaderLabel,
			Permissive:    true,
			Entity:        xml.HTMLEntity,
		}
		err := doc.ReadFromBytes(markup)
		if err == nil && doc.Root() != nil {
			d.xml = doc
			return d
		}
		log.Debug("XHTML markup is malformed, falling back to HTML parser", zap.Error(err))
		d.degraded = true
	}

	var root *html.Node
	r, err := charset.NewReader(bytes.NewReader(markup), "text/html")
	if err == nil {
		root, err = html.Parse(r)
	}
	if err != nil {
		// html.Parse only fails on reader errors, start from an empty tree
		log.Debug("Unable to read markup, using empty document", zap.Error(err))
		root, _ = html.Parse(strings.NewReader(""))
		d.degraded = true
	}
	d.html = root
	return d
}

// Degraded reports whether lenient fallback was used.
func (d *Document) Degraded() bool {
	return d.degraded
}

// element is the small common view over both trees.
type element interface {
	kind() Kind
	name() string
	attr(key string) (string, bool)
	setAttr(key, value string)
	removeAttr(key string)
}

// walk visits every element in document order.
func (d *Document) walk(visit func(el element)) {
	if d.xml != nil {
		var rec func(e *etree.Element)
		rec = func(e *etree.Element) {
			visit(xmlElement{e})
			for _, c := range e.ChildElements() {
				rec(c)
			}
		}
		if root := d.xml.Root(); root != nil {
			rec(root)
		}
		return
	}

	var rec func(n *html.Node)
	rec = func(n *html.Node) {
		if n.Type == html.ElementNode {
			visit(htmlElement{n})
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	if d.html != nil {
		rec(d.html)
	}
}

// Markup serializes document for embedding into a rendering surface. Output is
// always HTML serialization (no XML prolog, explicit end tags) since the surface
// interprets embedded markup as HTML.
func (d *Document) Markup() (string, error) {
	root := d.html
	if d.xml != nil {
		root = &html.Node{Type: html.DocumentNode}
		root.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
		if n := xmlToHTML(d.xml.Root(), ""); n != nil {
			root.AppendChild(n)
		}
	}
	if root == nil {
		return "", nil
	}

	var buf strings.Builder
	if err := html.Render(&buf, root); err != nil {
		return "", fmt.Errorf("unable to serialize document: %w", err)
	}
	return buf.String(), nil
}

// Outline produces indented tree of recognized elements for debugging.
func (d *Document) Outline() string {
	tw := debug.NewTreeWriter()
	tw.Line(0, "document type=%s degraded=%t", d.Type, d.degraded)

	var line func(depth int, el element)
	line = func(depth int, el element) {
		k := el.kind()
		switch k {
		case KindImg:
			src, _ := el.attr("src")
			tw.Node(depth, k.String(), debug.Attr{Key: "src", Value: src})
		case KindImage:
			href, _ := el.attr("xlink:href")
			tw.Node(depth, k.String(), debug.Attr{Key: "href", Value: href})
		case KindAnchor:
			href, ok := el.attr("href")
			tw.Node(depth, k.String(), debug.Attr{Key: "href", Value: href}, debug.Attr{Key: "linked", Value: ok})
		case KindOther:
			tw.Node(depth, "<"+el.name()+">")
		default:
			tw.Node(depth, k.String())
		}
	}

	if d.xml != nil {
		var rec func(depth int, e *etree.Element)
		rec = func(depth int, e *etree.Element) {
			line(depth, xmlElement{e})
			for _, c := range e.ChildElements() {
				rec(depth+1, c)
			}
		}
		if root := d.xml.Root(); root != nil {
			rec(1, root)
		}
		return tw.String()
	}

	var rec func(depth int, n *html.Node)
	rec = func(depth int, n *html.Node) {
		next := depth
		if n.Type == html.ElementNode {
			line(depth, htmlElement{n})
			next++
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(next, c)
		}
	}
	if d.html != nil {
		rec(1, d.html)
	}
	return tw.String()
}

// HTML tree

type htmlElement struct {
	n *html.Node
}

func (e htmlElement) kind() Kind   { return KindOf(e.n.Data) }
func (e htmlElement) name() string { return e.n.Data }

func (e htmlElement) matches(a html.Attribute, key string) bool {
	if space, local, ok := strings.Cut(key, ":"); ok {
		return (a.Namespace == space && a.Key == local) || (a.Namespace == "" && a.Key == key)
	}
	return a.Namespace == "" && a.Key == key
}

func (e htmlElement) attr(key string) (string, bool) {
	for _, a := range e.n.Attr {
		if e.matches(a, key) {
			return a.Val, true
		}
	}
	return "", false
}

func (e htmlElement) setAttr(key, value string) {
	for i, a := range e.n.Attr {
		if e.matches(a, key) {
			e.n.Attr[i].Val = value
			return
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: key, Val: value})
}

func (e htmlElement) removeAttr(key string) {
	attrs := e.n.Attr[:0]
	for _, a := range e.n.Attr {
		if !e.matches(a, key) {
			attrs = append(attrs, a)
		}
	}
	e.n.Attr = attrs
}

// XML tree

type xmlElement struct {
	e *etree.Element
}

func (e xmlElement) kind() Kind   { return KindOf(e.e.Tag) }
func (e xmlElement) name() string { return e.e.Tag }

func (e xmlElement) attr(key string) (string, bool) {
	if a := e.e.SelectAttr(key); a != nil {
		return a.Value, true
	}
	return "", false
}

func (e xmlElement) setAttr(key, value string) {
	e.e.CreateAttr(key, value)
}

func (e xmlElement) removeAttr(key string) {
	e.e.RemoveAttr(key)
}

// xmlToHTML converts etree element into HTML node so it could be serialized
// with HTML rules. Namespace is inherited into foreign content.
func xmlToHTML(e *etree.Element, ns string) *html.Node {
	if e == nil {
		return nil
	}
	tag := strings.ToLower(e.Tag)
	switch tag {
	case "svg", "math":
		ns = tag
	}

	n := &html.Node{Type: html.ElementNode, Data: e.Tag, Namespace: ns}
	if ns == "" {
		n.Data, n.DataAtom = tag, atom.Lookup([]byte(tag))
	}
	for _, a := range e.Attr {
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			// namespace declarations have no meaning in HTML serialization
			continue
		}
		n.Attr = append(n.Attr, html.Attribute{Namespace: a.Space, Key: a.Key, Val: a.Value})
	}
	if ns == "" && voidElements[tag] {
		return n
	}

	for _, t := range e.Child {
		switch t := t.(type) {
		case *etree.Element:
			n.AppendChild(xmlToHTML(t, ns))
		case *etree.CharData:
			n.AppendChild(&html.Node{Type: html.TextNode, Data: t.Data})
		case *etree.Comment:
			n.AppendChild(&html.Node{Type: html.CommentNode, Data: t.Data})
		}
	}
	return n
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "keygen": true, "link": true,
	"meta": true, "param": true, "source": true, "track": true, "wbr": true,
}
