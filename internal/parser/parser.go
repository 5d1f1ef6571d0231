package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/wikiscraper/internal/types"
)

// Supported parser engines.
const (
	EngineGoquery   = "goquery"
	EngineHTMLQuery = "htmlquery"
)

// Engines lists the engine names accepted by Parse.
var Engines = []string{EngineGoquery, EngineHTMLQuery}

// Document is a parsed HTML page. It can be queried with CSS selectors
// through Selection and with XPath through XPath.
type Document struct {
	// URL is the page the document was fetched from.
	URL string

	// Engine is the parser engine that built the tree.
	Engine string

	root *html.Node
	doc  *goquery.Document
}

// Parse builds a Document from body using the named engine.
// An unknown engine fails with a KindParse error wrapping ErrParserUnavailable.
func Parse(engine string, body []byte, pageURL string) (*Document, error) {
	var (
		root *html.Node
		doc  *goquery.Document
		err  error
	)

	switch strings.ToLower(engine) {
	case EngineGoquery, "":
		doc, err = goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err == nil {
			root = doc.Nodes[0]
		}
		engine = EngineGoquery
	case EngineHTMLQuery:
		root, err = htmlquery.Parse(bytes.NewReader(body))
		if err == nil {
			doc = goquery.NewDocumentFromNode(root)
		}
	default:
		return nil, &types.Error{
			Kind:   types.KindParse,
			Op:     "parse",
			Target: pageURL,
			Err: fmt.Errorf("%w: %q (available: %s)", types.ErrParserUnavailable,
				engine, strings.Join(Engines, ", ")),
		}
	}
	if err != nil {
		return nil, types.NewError(types.KindParse, "parse", pageURL, err)
	}

	return &Document{
		URL:    pageURL,
		Engine: strings.ToLower(engine),
		root:   root,
		doc:    doc,
	}, nil
}

// Selection returns the whole document as a goquery selection.
func (d *Document) Selection() *goquery.Selection {
	return d.doc.Selection
}

// Find returns the elements matching a CSS selector.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// Title returns the text of the <title> element.
func (d *Document) Title() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

// Text returns the visible text of the document body.
func (d *Document) Text() string {
	return strings.TrimSpace(d.doc.Find("body").Text())
}

// HTML renders the document back to markup.
func (d *Document) HTML() (string, error) {
	return goquery.OuterHtml(d.doc.Selection)
}
