package parser

import (
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// XPath returns the nodes matching expr.
func (d *Document) XPath(expr string) ([]*html.Node, error) {
	nodes, err := htmlquery.QueryAll(d.root, expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath %q: %w", expr, err)
	}
	return nodes, nil
}

// XPathValues applies expr and returns one value per matched node.
// attr selects what is read from each node: "" or "text" for the inner text,
// "html" or "innerHTML" for the inner markup, "outerHTML" for the node itself,
// anything else for that attribute. Empty values are skipped.
func (d *Document) XPathValues(expr, attr string) ([]string, error) {
	nodes, err := d.XPath(expr)
	if err != nil {
		return nil, err
	}

	var values []string
	for _, node := range nodes {
		var val string

		switch attr {
		case "", "text":
			val = strings.TrimSpace(htmlquery.InnerText(node))
		case "html", "innerHTML":
			val = htmlquery.OutputHTML(node, false)
		case "outerHTML":
			val = htmlquery.OutputHTML(node, true)
		default:
			val = htmlquery.SelectAttr(node, attr)
		}

		if val != "" {
			values = append(values, val)
		}
	}

	return values, nil
}

// XPathFirst returns the first value matched by expr, or "" if nothing matched.
func (d *Document) XPathFirst(expr, attr string) (string, error) {
	values, err := d.XPathValues(expr, attr)
	if err != nil || len(values) == 0 {
		return "", err
	}
	return values[0], nil
}
