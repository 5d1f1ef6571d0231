package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractTable parses the first table matching tableSelector into rows of cell text.
func (d *Document) ExtractTable(tableSelector string) [][]string {
	var table [][]string

	d.doc.Find(tableSelector).First().Find("tr").Each(func(i int, row *goquery.Selection) {
		var cells []string
		row.Find("td, th").Each(func(j int, cell *goquery.Selection) {
			cells = append(cells, cleanText(cell.Text()))
		})
		if len(cells) > 0 {
			table = append(table, cells)
		}
	})

	return table
}

// ExtractList extracts list item (li) text from the lists matching listSelector.
func (d *Document) ExtractList(listSelector string) []string {
	var items []string
	d.doc.Find(listSelector).Find("li").Each(func(i int, sel *goquery.Selection) {
		if text := cleanText(sel.Text()); text != "" {
			items = append(items, text)
		}
	})
	return items
}

// ExtractInfobox reads the label/value rows of the first infobox table.
// Rows without both a header and a data cell are skipped.
func (d *Document) ExtractInfobox() map[string]string {
	box := d.doc.Find("table.infobox").First()
	if box.Length() == 0 {
		return nil
	}

	fields := make(map[string]string)
	box.Find("tr").Each(func(i int, row *goquery.Selection) {
		label := cleanText(row.Find("th").First().Text())
		value := cleanText(row.Find("td").First().Text())
		if label == "" || value == "" {
			return
		}
		if _, dup := fields[label]; !dup {
			fields[label] = value
		}
	})
	return fields
}

// cleanText collapses runs of whitespace into single spaces.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
