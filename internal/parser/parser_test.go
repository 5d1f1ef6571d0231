package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/wikiscraper/internal/types"
)

const testHTML = `<!DOCTYPE html>
<html>
<head><title>Go (lenguaje de programación) - Wikipedia</title></head>
<body>
  <h1 id="firstHeading">Go (lenguaje de programación)</h1>
  <div id="mw-content-text">
    <div class="mw-parser-output">
      <table class="infobox">
        <tr><th colspan="2">Go</th></tr>
        <tr><th>Desarrollador</th><td>Google</td></tr>
        <tr><th>Apareció en</th><td>  2009 </td></tr>
      </table>
      <p>   </p>
      <p><b>Go</b> es un lenguaje de programación
         concurrente y compilado.</p>
      <p>Second paragraph.</p>
      <div class="mw-heading mw-heading2"><h2 id="Historia">Historia</h2><span class="mw-editsection">[<a href="#">editar</a>]</span></div>
      <h2><span class="mw-headline">Características</span><span class="mw-editsection">[editar]</span></h2>
      <h3>Concurrencia<span class="mw-editsection">[editar]</span></h3>
      <a class="external text" href="https://go.dev">go.dev</a>
      <a class="external text" href="https://go.dev">go.dev again</a>
      <a class="external free" href="https://github.com/golang/go">repo</a>
      <ol class="references"><li>ref one</li><li>ref two</li><li>ref three</li></ol>
      <table id="data">
        <tr><th>Name</th><th>Value</th></tr>
        <tr><td>Alpha</td><td>100</td></tr>
      </table>
    </div>
  </div>
  <div id="mw-normal-catlinks"><ul><li>Lenguajes de programación</li><li>Software de Google</li></ul></div>
</body>
</html>`

func TestParseEngines(t *testing.T) {
	for _, engine := range Engines {
		t.Run(engine, func(t *testing.T) {
			doc, err := Parse(engine, []byte(testHTML), "https://es.wikipedia.org/wiki/Go")
			require.NoError(t, err)
			assert.Equal(t, engine, doc.Engine)
			assert.Equal(t, "Go (lenguaje de programación) - Wikipedia", doc.Title())
			assert.Equal(t, 1, doc.Find("#firstHeading").Length())

			heading, err := doc.XPathFirst(`//h1[@id="firstHeading"]`, "")
			require.NoError(t, err)
			assert.Equal(t, "Go (lenguaje de programación)", heading)
		})
	}
}

func TestParseUnknownEngine(t *testing.T) {
	_, err := Parse("lxml", []byte(testHTML), "https://es.wikipedia.org/wiki/Go")
	require.Error(t, err)
	assert.Equal(t, types.KindParse, types.KindOf(err))
	assert.ErrorIs(t, err, types.ErrParserUnavailable)
}

func TestParseEmptyEngineDefaultsToGoquery(t *testing.T) {
	doc, err := Parse("", []byte("<p>x</p>"), "")
	require.NoError(t, err)
	assert.Equal(t, EngineGoquery, doc.Engine)
}

func TestXPathValues(t *testing.T) {
	doc, err := Parse(EngineHTMLQuery, []byte(testHTML), "")
	require.NoError(t, err)

	hrefs, err := doc.XPathValues(`//a[contains(@class,"external")]`, "href")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://go.dev", "https://go.dev", "https://github.com/golang/go"}, hrefs)

	_, err = doc.XPath("//a[")
	assert.Error(t, err)
}

func TestExtractTable(t *testing.T) {
	doc, err := Parse(EngineGoquery, []byte(testHTML), "")
	require.NoError(t, err)

	table := doc.ExtractTable("#data")
	require.Len(t, table, 2)
	assert.Equal(t, []string{"Name", "Value"}, table[0])
	assert.Equal(t, []string{"Alpha", "100"}, table[1])
}

func TestExtractArticle(t *testing.T) {
	doc, err := Parse(EngineGoquery, []byte(testHTML), "")
	require.NoError(t, err)

	a := ExtractArticle(doc)
	assert.Equal(t, "Go (lenguaje de programación)", a.Title)
	assert.Equal(t, "Go es un lenguaje de programación concurrente y compilado.", a.Summary)
	assert.Equal(t, []string{"Historia", "Características", "Concurrencia"}, a.Sections)
	assert.Equal(t, map[string]string{"Desarrollador": "Google", "Apareció en": "2009"}, a.Infobox)
	assert.Equal(t, []string{"Lenguajes de programación", "Software de Google"}, a.Categories)
	assert.Equal(t, 3, a.References)
	assert.Equal(t, []string{"https://go.dev", "https://github.com/golang/go"}, a.ExternalLinks)
}

func TestExtractArticleSparsePage(t *testing.T) {
	doc, err := Parse(EngineGoquery, []byte(`<html><head><title>Stub - Wikipedia</title></head><body><p>Short.</p></body></html>`), "")
	require.NoError(t, err)

	a := ExtractArticle(doc)
	assert.Equal(t, "Stub", a.Title)
	assert.Equal(t, "Short.", a.Summary)
	assert.Nil(t, a.Infobox)
	assert.Empty(t, a.Sections)
	assert.Zero(t, a.References)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ñá...", truncate("ñáé", 2))
}
