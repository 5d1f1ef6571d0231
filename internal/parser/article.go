package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// maxSummaryLen caps Article.Summary, in runes.
const maxSummaryLen = 500

// Article is the structured content of a Wikipedia article page.
type Article struct {
	Title         string            `json:"title"`
	Summary       string            `json:"summary"`
	Sections      []string          `json:"sections,omitempty"`
	Infobox       map[string]string `json:"infobox,omitempty"`
	Categories    []string          `json:"categories,omitempty"`
	References    int               `json:"references"`
	ExternalLinks []string          `json:"external_links,omitempty"`
}

// ExtractArticle pulls the article fields out of a rendered Wikipedia page.
// Missing parts are left empty; it never fails.
func ExtractArticle(d *Document) *Article {
	a := &Article{
		Title: cleanText(d.doc.Find("#firstHeading").Text()),
	}
	if a.Title == "" {
		a.Title = strings.TrimSuffix(d.Title(), " - Wikipedia")
	}

	content := d.doc.Find("#mw-content-text .mw-parser-output")
	if content.Length() == 0 {
		content = d.doc.Find("body")
	}

	content.ChildrenFiltered("p").EachWithBreak(func(i int, p *goquery.Selection) bool {
		text := cleanText(p.Text())
		if text == "" {
			return true
		}
		a.Summary = truncate(text, maxSummaryLen)
		return false
	})

	content.Find("h2, h3").Each(func(i int, h *goquery.Selection) {
		heading := h.Find(".mw-headline").First().Text()
		if heading == "" {
			clone := h.Clone()
			clone.Find(".mw-editsection").Remove()
			heading = clone.Text()
		}
		if heading = cleanText(heading); heading != "" {
			a.Sections = append(a.Sections, heading)
		}
	})

	a.Infobox = d.ExtractInfobox()
	a.Categories = d.ExtractList("#mw-normal-catlinks ul")
	a.References = d.doc.Find(".reflist li, ol.references li").Length()

	seen := make(map[string]bool)
	d.doc.Find("a.external").Each(func(i int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" || seen[href] {
			return
		}
		seen[href] = true
		a.ExternalLinks = append(a.ExternalLinks, href)
	})

	return a
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
