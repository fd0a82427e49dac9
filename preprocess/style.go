package preprocess

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

//go:embed default.css
var defaultStylesheet string

// DefaultStylesheet returns stylesheet injected when none is configured.
func DefaultStylesheet() string {
	return defaultStylesheet
}

// maxProblems limits number of reported grammar problems, parser keeps
// reporting persistent lexer errors otherwise.
const maxProblems = 32

// ValidateStylesheet checks stylesheet grammar and returns list of problems
// found. Stylesheet with problems is still usable, browsers skip bad rules.
func ValidateStylesheet(data []byte) []string {
	var problems []string

	p := css.NewParser(parse.NewInput(bytes.NewReader(data)), false)
	for len(problems) < maxProblems {
		gt, _, _ := p.Next()
		if gt != css.ErrorGrammar {
			continue
		}
		err := p.Err()
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		problems = append(problems, err.Error())
	}
	return problems
}

// InjectDefaultStyle appends single style block with stylesheet to the
// document head, creating head when document has none.
func InjectDefaultStyle(d *Document, stylesheet string) {
	if d.xml != nil {
		injectXML(d.xml, stylesheet)
		return
	}
	if d.html != nil {
		injectHTML(d.html, stylesheet)
	}
}

func injectXML(doc *etree.Document, stylesheet string) {
	root := doc.Root()
	if root == nil {
		return
	}

	var head *etree.Element
	for _, c := range root.ChildElements() {
		if KindOf(c.Tag) == KindHead {
			head = c
			break
		}
	}
	if head == nil {
		head = etree.NewElement("head")
		root.InsertChildAt(0, head)
	}
	style := head.CreateElement("style")
	style.CreateAttr("type", "text/css")
	style.SetText(stylesheet)
}

func injectHTML(root *html.Node, stylesheet string) {
	head := findHTML(root, atom.Head)
	if head == nil {
		head = &html.Node{Type: html.ElementNode, Data: "head", DataAtom: atom.Head}
		parent := findHTML(root, atom.Html)
		if parent == nil {
			parent = root
		}
		parent.InsertBefore(head, parent.FirstChild)
	}
	style := &html.Node{
		Type:     html.ElementNode,
		Data:     "style",
		DataAtom: atom.Style,
		Attr:     []html.Attribute{{Key: "type", Val: "text/css"}},
	}
	style.AppendChild(&html.Node{Type: html.TextNode, Data: stylesheet})
	head.AppendChild(style)
}

func findHTML(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a && n.Namespace == "" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findHTML(c, a); found != nil {
			return found
		}
	}
	return nil
}

// StylesheetError describes configured stylesheet with grammar problems.
type StylesheetError struct {
	Source   string
	Problems []string
}

func (e *StylesheetError) Error() string {
	return fmt.Sprintf("stylesheet %s has %d problem(s): %s", e.Source, len(e.Problems), strings.Join(e.Problems, "; "))
}
