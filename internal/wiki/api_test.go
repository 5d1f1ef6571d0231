package wiki

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/wikiscraper/internal/types"
)

// threePageLinks serves internal links for "Go" over three continuation rounds.
func threePageLinks(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/w/api.php", r.URL.Path)
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "query", q.Get("action"))
		assert.Equal(t, "links", q.Get("prop"))

		switch q.Get("plcontinue") {
		case "":
			writeJSON(w, `{"continue":{"plcontinue":"1|0|B","continue":"||"},
				"query":{"pages":{"1":{"pageid":1,"ns":0,"title":"Go",
				"links":[{"ns":0,"title":"A"},{"ns":0,"title":"B"}]}}}}`)
		case "1|0|B":
			assert.Equal(t, "||", q.Get("continue"))
			writeJSON(w, `{"continue":{"plcontinue":"1|0|C","continue":"||"},
				"query":{"pages":{"1":{"pageid":1,"ns":0,"title":"Go",
				"links":[{"ns":0,"title":"C"}]}}}}`)
		case "1|0|C":
			writeJSON(w, `{"batchcomplete":"",
				"query":{"pages":{"1":{"pageid":1,"ns":0,"title":"Go",
				"links":[{"ns":0,"title":"D"},{"ns":0,"title":"E"}]}}}}`)
		default:
			t.Errorf("unexpected continuation %q", q.Get("plcontinue"))
		}
	}
}

func TestLinksPaginatesAllPages(t *testing.T) {
	s, hits := newTestScraper(t, threePageLinks(t))

	list, err := s.Links(context.Background(), "Go", LinkInternal, LinkOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, list.Items)
	assert.Equal(t, "Go", list.Title)
	assert.Equal(t, "internal", list.Type)
	assert.Equal(t, int32(3), hits.Load(), "no fourth request after the last page")
}

func TestLinksLimitTruncatesMidPage(t *testing.T) {
	s, hits := newTestScraper(t, threePageLinks(t))

	list, err := s.Links(context.Background(), "Go", LinkInternal, LinkOptions{Limit: 4})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D"}, list.Items)
	assert.Equal(t, int32(3), hits.Load())

	list, err = s.Links(context.Background(), "Go", LinkInternal, LinkOptions{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, list.Items)
	assert.Equal(t, int32(4), hits.Load())
}

func TestLinksLimitAndNamespaceParams(t *testing.T) {
	var got url.Values
	s, _ := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		writeJSON(w, `{"query":{"pages":{"7":{"pageid":7,"ns":0,"title":"Go","linkshere":[{"ns":0,"title":"Rob Pike"}]}}}}`)
	})

	list, err := s.Links(context.Background(), "Go", LinkLinksHere, LinkOptions{Limit: 900, Namespace: Namespace(0)})
	require.NoError(t, err)
	assert.Equal(t, []string{"Rob Pike"}, list.Items)
	assert.Equal(t, "500", got.Get("lhlimit"))
	assert.Equal(t, "0", got.Get("lhnamespace"))
	assert.Equal(t, "linkshere", got.Get("prop"))
}

func TestLinksExternalAndInterwiki(t *testing.T) {
	s, _ := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("prop") {
		case "extlinks":
			writeJSON(w, `{"query":{"pages":{"1":{"pageid":1,"title":"Go","extlinks":[{"*":"https://go.dev"},{"*":"https://pkg.go.dev"}]}}}}`)
		case "iwlinks":
			writeJSON(w, `{"query":{"pages":{"1":{"pageid":1,"title":"Go","iwlinks":[{"prefix":"en","*":"Go (programming language)"}]}}}}`)
		}
	})

	ext, err := s.Links(context.Background(), "Go", LinkExternal, LinkOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://go.dev", "https://pkg.go.dev"}, ext.Items)

	iw, err := s.Links(context.Background(), "Go", LinkInterwiki, LinkOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"en:Go (programming language)"}, iw.Items)
}

func TestLinksNormalizedTitle(t *testing.T) {
	s, _ := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"query":{"normalized":[{"from":"go","to":"Go"}],
			"pages":{"1":{"pageid":1,"ns":0,"title":"Go","links":[{"ns":0,"title":"C"}]}}}}`)
	})

	list, err := s.Links(context.Background(), "go", LinkInternal, LinkOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Go", list.Title)
}

func TestLinksEmptyResults(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"page without links", `{"batchcomplete":"","query":{"pages":{"1":{"pageid":1,"ns":0,"title":"Go"}}}}`},
		{"missing page", `{"query":{"pages":{"-1":{"ns":0,"title":"Nope","missing":""}}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.body)
			})
			list, err := s.Links(context.Background(), "Go", LinkExternal, LinkOptions{})
			require.NoError(t, err)
			assert.NotNil(t, list.Items)
			assert.Empty(t, list.Items)
		})
	}
}

func TestLinksMissingPagesContainer(t *testing.T) {
	s, _ := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"batchcomplete":""}`)
	})

	_, err := s.Links(context.Background(), "Go", LinkInternal, LinkOptions{})
	require.Error(t, err)
	assert.Equal(t, types.KindNoResults, types.KindOf(err))
}

func TestLinksValidation(t *testing.T) {
	s, hits := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {})
	ctx := context.Background()

	_, err := s.Links(ctx, "Go", LinkType(42), LinkOptions{})
	assert.Equal(t, types.KindValidation, types.KindOf(err))

	_, err = s.Links(ctx, "  ", LinkInternal, LinkOptions{})
	assert.Equal(t, types.KindValidation, types.KindOf(err))

	_, err = s.Links(ctx, "Go", LinkInternal, LinkOptions{Namespace: Namespace(-3)})
	assert.Equal(t, types.KindValidation, types.KindOf(err))

	_, err = s.Links(ctx, "Go", LinkExternal, LinkOptions{Namespace: Namespace(0)})
	assert.Equal(t, types.KindValidation, types.KindOf(err))

	_, err = s.Links(ctx, "Go", LinkInternal, LinkOptions{Limit: -1})
	assert.Equal(t, types.KindValidation, types.KindOf(err))

	assert.Zero(t, hits.Load())
}

func TestParseLinkType(t *testing.T) {
	for i, name := range LinkTypeNames {
		lt, err := ParseLinkType(name)
		require.NoError(t, err)
		assert.Equal(t, LinkType(i), lt)
		assert.Equal(t, name, lt.String())
	}

	lt, err := ParseLinkType(" LinksHere ")
	require.NoError(t, err)
	assert.Equal(t, LinkLinksHere, lt)

	_, err = ParseLinkType("backlinks")
	require.Error(t, err)
	assert.Equal(t, types.KindValidation, types.KindOf(err))
}

func TestQueryAPIError(t *testing.T) {
	s, hits := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"error":{"code":"badvalue","info":"Unrecognized value for parameter \"list\": bogus."}}`)
	})

	_, err := s.Query(context.Background(), url.Values{"list": {"bogus"}})
	require.Error(t, err)

	var apiErr *types.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, types.KindAPI, apiErr.Kind)
	assert.Equal(t, "badvalue", apiErr.Code)
	assert.Contains(t, apiErr.Info, "Unrecognized value")
	assert.Equal(t, int32(1), hits.Load(), "api errors are not retried")
}

func TestQueryMalformedJSON(t *testing.T) {
	s, _ := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"query":`)
	})

	_, err := s.Query(context.Background(), url.Values{})
	require.Error(t, err)
	assert.Equal(t, types.KindParse, types.KindOf(err))
}

func TestPaginateNumericContinuation(t *testing.T) {
	s, hits := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("sroffset") {
		case "":
			writeJSON(w, `{"continue":{"sroffset":2,"continue":"-||"},"query":{"search":[{"title":"A"},{"title":"B"}]}}`)
		case "2":
			writeJSON(w, `{"query":{"search":[{"title":"C"}]}}`)
		}
	})

	params := url.Values{"list": {"search"}, "srsearch": {"x"}}
	titles, err := Paginate(context.Background(), s, params, 0, func(resp *APIResponse) ([]string, error) {
		var q searchQuery
		if err := decodeQuery(resp, &q); err != nil {
			return nil, err
		}
		var out []string
		for _, hit := range *q.Search {
			out = append(out, hit.Title)
		}
		return out, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, titles)
	assert.Equal(t, int32(2), hits.Load())
}

func TestPaginateStuckContinuation(t *testing.T) {
	s, hits := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"continue":{"plcontinue":"same"},"query":{"pages":{}}}`)
	})

	_, err := Paginate(context.Background(), s, url.Values{}, 0, func(resp *APIResponse) ([]string, error) {
		return nil, nil
	})
	require.Error(t, err)
	assert.Equal(t, types.KindAPI, types.KindOf(err))
	assert.Equal(t, int32(2), hits.Load())
}

func TestSearch(t *testing.T) {
	s, _ := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "search", q.Get("list"))
		assert.Equal(t, "golang", q.Get("srsearch"))
		assert.Equal(t, "3", q.Get("srlimit"))
		writeJSON(w, `{"continue":{"sroffset":3,"continue":"-||"},"query":{"searchinfo":{"totalhits":50},
			"search":[{"ns":0,"title":"Go"},{"ns":0,"title":"Gopher"},{"ns":0,"title":"Golang"}]}}`)
	})

	titles, err := s.Search(context.Background(), "  golang ", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "Gopher", "Golang"}, titles)
}

func TestSearchNoResults(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty hits", `{"batchcomplete":"","query":{"searchinfo":{"totalhits":0},"search":[]}}`},
		{"missing container", `{"batchcomplete":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.body)
			})
			_, err := s.Search(context.Background(), "zxqv", 5)
			require.Error(t, err)
			assert.Equal(t, types.KindNoResults, types.KindOf(err))
			assert.ErrorIs(t, err, types.ErrEmptyResult)
		})
	}
}

func TestSearchValidation(t *testing.T) {
	s, hits := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := s.Search(context.Background(), " \t", 5)
	assert.Equal(t, types.KindValidation, types.KindOf(err))

	_, err = s.Search(context.Background(), "go", 0)
	assert.Equal(t, types.KindValidation, types.KindOf(err))

	assert.Zero(t, hits.Load())
}

func TestRawText(t *testing.T) {
	s, _ := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "extracts", q.Get("prop"))
		assert.Equal(t, "1", q.Get("explaintext"))
		assert.Equal(t, "Go", q.Get("titles"))
		writeJSON(w, `{"query":{"pages":{"25039021":{"pageid":25039021,"ns":0,"title":"Go","extract":"Go is a language."}}}}`)
	})

	text, err := s.RawText(context.Background(), " Go ")
	require.NoError(t, err)
	assert.Equal(t, "Go is a language.", text)
}

func TestRawTextNoResults(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no pages", `{"batchcomplete":""}`},
		{"missing page", `{"query":{"pages":{"-1":{"ns":0,"title":"Nope","missing":""}}}}`},
		{"empty extract", `{"query":{"pages":{"5":{"pageid":5,"ns":0,"title":"Stub","extract":""}}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.body)
			})
			_, err := s.RawText(context.Background(), "Nope")
			require.Error(t, err)
			assert.Equal(t, types.KindNoResults, types.KindOf(err))
		})
	}
}

func TestCategories(t *testing.T) {
	s, hits := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "!hidden", q.Get("clshow"))
		assert.Equal(t, "14", q.Get("clnamespace"))
		if q.Get("clcontinue") == "" {
			writeJSON(w, `{"continue":{"clcontinue":"1|Software","continue":"||"},
				"query":{"pages":{"1":{"pageid":1,"title":"Go","categories":[{"ns":14,"title":"Categoría:Lenguajes de programación"}]}}}}`)
			return
		}
		writeJSON(w, `{"query":{"pages":{"1":{"pageid":1,"title":"Go","categories":[{"ns":14,"title":"Categoría:Software de Google"}]}}}}`)
	})

	cats, err := s.Categories(context.Background(), "Go")
	require.NoError(t, err)
	assert.Equal(t, []string{"Lenguajes de programación", "Software de Google"}, cats)
	assert.Equal(t, int32(2), hits.Load())
}

func TestCategoriesMissingPage(t *testing.T) {
	s, _ := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"query":{"pages":{"-1":{"ns":0,"title":"Nope","missing":""}}}}`)
	})

	_, err := s.Categories(context.Background(), "Nope")
	require.Error(t, err)
	assert.Equal(t, types.KindNoResults, types.KindOf(err))
}

func TestDecodeAPIResponse(t *testing.T) {
	resp, err := decodeAPIResponse([]byte(`{"continue":{"sroffset":10,"continue":"-||"},"query":null}`))
	require.NoError(t, err)
	assert.Nil(t, resp.Query)
	assert.Equal(t, "10", resp.Continue.Get("sroffset"))
	assert.Equal(t, "-||", resp.Continue.Get("continue"))
}
