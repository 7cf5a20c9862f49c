package rewrite

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseError reports a page body that could not be parsed.
// The body is exported verbatim in that case.
type ParseError struct {
	Err error
}

// Error implements error.
func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse HTML content: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Document is a parsed page body.
type Document struct {
	root *html.Node
	doc  *goquery.Document
}

// Parse parses a page body as an HTML fragment in <body> context.
// An empty body yields a nil Document and no error.
func Parse(body string) (*Document, error) {
	if body == "" {
		return nil, nil
	}

	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(body), context)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return &Document{root: root, doc: goquery.NewDocumentFromNode(root)}, nil
}

// Find returns the elements matching a CSS selector.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// TempAttachmentURLs returns the sources of inline images served from the
// server's temporary download area, in document order.
func (d *Document) TempAttachmentURLs() []string {
	if d == nil {
		return nil
	}
	var urls []string
	d.doc.Find(`img[src*="/download/temp/"]`).Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			urls = append(urls, src)
		}
	})
	return urls
}

// HTML renders the document back to an HTML fragment.
func (d *Document) HTML() (string, error) {
	var buf bytes.Buffer
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("failed to render HTML: %w", err)
		}
	}
	return buf.String(), nil
}
