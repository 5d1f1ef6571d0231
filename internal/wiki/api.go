package wiki

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/IshaanNene/wikiscraper/internal/types"
)

// maxAPILimit is the largest per-request list size the API grants to anonymous clients.
const maxAPILimit = 500

// APIError is the "error" object of a MediaWiki API response.
type APIError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

// APIResponse is a decoded MediaWiki API envelope.
type APIResponse struct {
	Error *APIError

	// Query is the raw "query" object. Nil when the response has none.
	Query json.RawMessage

	// Continue holds the parameters to send for the next page. Empty on the last page.
	Continue url.Values

	Warnings json.RawMessage
}

type rawAPIResponse struct {
	Error    *APIError                  `json:"error"`
	Query    json.RawMessage            `json:"query"`
	Continue map[string]json.RawMessage `json:"continue"`
	Warnings json.RawMessage            `json:"warnings"`
}

// decodeAPIResponse decodes an API body. Continuation values may be strings
// or numbers and are normalized to strings.
func decodeAPIResponse(body []byte) (*APIResponse, error) {
	var raw rawAPIResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	resp := &APIResponse{Error: raw.Error, Warnings: raw.Warnings}
	if len(raw.Query) > 0 && !bytes.Equal(raw.Query, []byte("null")) {
		resp.Query = raw.Query
	}
	if len(raw.Continue) > 0 {
		resp.Continue = make(url.Values, len(raw.Continue))
		for k, v := range raw.Continue {
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				s = strings.TrimSpace(string(v))
			}
			resp.Continue.Set(k, s)
		}
	}
	return resp, nil
}

// Query performs one action API call. The "format" parameter is always json
// and "action" defaults to "query".
func (s *Scraper) Query(ctx context.Context, params url.Values) (*APIResponse, error) {
	p := cloneValues(params)
	p.Set("format", "json")
	if p.Get("action") == "" {
		p.Set("action", "query")
	}
	apiURL := s.baseURL + "w/api.php"

	s.logger.Debug("api request", "url", apiURL, "params", p.Encode())

	resp, err := s.fetcher.Fetch(ctx, types.NewRequest(apiURL, p))
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.APIQueries.Add(1)
	}

	out, err := decodeAPIResponse(resp.Body)
	if err != nil {
		return nil, &types.Error{
			Kind:       types.KindParse,
			Op:         "query",
			Target:     apiURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("decode api response: %w", err),
		}
	}

	if out.Error != nil {
		s.logger.Error("api error", "code", out.Error.Code, "info", out.Error.Info)
		return nil, &types.Error{
			Kind:   types.KindAPI,
			Op:     "query",
			Target: apiURL,
			Code:   out.Error.Code,
			Info:   out.Error.Info,
		}
	}
	if len(out.Warnings) > 0 {
		s.logger.Warn("api warnings", "warnings", string(out.Warnings))
	}

	s.logger.Debug("api response", "bytes", len(resp.Body), "continue", len(out.Continue) > 0)
	return out, nil
}

// Paginate runs a query and follows continuation until the API stops
// returning a "continue" object or limit items have been collected.
// extract pulls the items of one result page. limit <= 0 collects
// everything; otherwise the result is truncated mid-page at limit.
func Paginate[T any](ctx context.Context, s *Scraper, params url.Values, limit int, extract func(resp *APIResponse) ([]T, error)) ([]T, error) {
	var (
		items []T
		cont  url.Values
	)
	for round := 1; ; round++ {
		p := cloneValues(params)
		for k, vs := range cont {
			p[k] = vs
		}

		resp, err := s.Query(ctx, p)
		if err != nil {
			return nil, err
		}

		batch, err := extract(resp)
		if err != nil {
			return nil, err
		}
		for _, item := range batch {
			items = append(items, item)
			if limit > 0 && len(items) >= limit {
				s.logger.Debug("pagination limit reached", "round", round, "items", len(items))
				return items, nil
			}
		}

		if len(resp.Continue) == 0 {
			s.logger.Debug("pagination complete", "rounds", round, "items", len(items))
			return items, nil
		}
		if sameValues(resp.Continue, cont) {
			return nil, types.NewError(types.KindAPI, "paginate", p.Get("action"),
				errors.New("continuation token did not advance"))
		}
		cont = resp.Continue
		s.logger.Debug("continuing pagination", "round", round, "continue", cont.Encode())
	}
}

type searchQuery struct {
	Search *[]struct {
		Title string `json:"title"`
	} `json:"search"`
}

// Search returns up to limit page titles matching query, in relevance order.
// A response with no search container or no hits fails with KindNoResults.
func (s *Scraper) Search(ctx context.Context, query string, limit int) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, types.NewError(types.KindValidation, "search", query, errors.New("search query must not be empty"))
	}
	if limit < 1 {
		return nil, types.NewError(types.KindValidation, "search", query, fmt.Errorf("limit must be >= 1, got %d", limit))
	}

	params := url.Values{}
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", strconv.Itoa(min(limit, maxAPILimit)))
	params.Set("srprop", "")

	s.logger.Info("searching", "query", query, "limit", limit)

	titles, err := Paginate(ctx, s, params, limit, func(resp *APIResponse) ([]string, error) {
		var q searchQuery
		if err := decodeQuery(resp, &q); err != nil {
			return nil, err
		}
		if q.Search == nil {
			return nil, types.NewError(types.KindNoResults, "search", query, types.ErrEmptyResult)
		}
		out := make([]string, 0, len(*q.Search))
		for _, hit := range *q.Search {
			out = append(out, hit.Title)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	if len(titles) == 0 {
		s.logger.Warn("search returned no results", "query", query)
		return nil, types.NewError(types.KindNoResults, "search", query, types.ErrEmptyResult)
	}

	s.logger.Info("search complete", "query", query, "results", len(titles))
	return titles, nil
}

// apiPage is one entry of query.pages. Item lists are kept raw and decoded by key.
type apiPage struct {
	PageID  int             `json:"pageid"`
	NS      int             `json:"ns"`
	Title   string          `json:"title"`
	Missing json.RawMessage `json:"missing"`
	Invalid json.RawMessage `json:"invalid"`
	Extract *string         `json:"extract"`

	fields map[string]json.RawMessage
}

func (p *apiPage) UnmarshalJSON(data []byte) error {
	type plain apiPage
	if err := json.Unmarshal(data, (*plain)(p)); err != nil {
		return err
	}
	return json.Unmarshal(data, &p.fields)
}

func (p *apiPage) missing() bool {
	return len(p.Missing) > 0 || len(p.Invalid) > 0
}

type pagesQuery struct {
	Normalized []struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"normalized"`
	Redirects []struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"redirects"`
	Pages map[string]*apiPage `json:"pages"`
}

// sortedPages returns the pages ordered by key so multi-page results are stable.
func (q *pagesQuery) sortedPages() []*apiPage {
	keys := make([]string, 0, len(q.Pages))
	for k := range q.Pages {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*apiPage, 0, len(keys))
	for _, k := range keys {
		out = append(out, q.Pages[k])
	}
	return out
}

// normalize maps title through the normalization and redirect tables.
func (q *pagesQuery) normalize(title string) string {
	for _, n := range q.Normalized {
		if n.From == title {
			title = n.To
		}
	}
	for _, r := range q.Redirects {
		if r.From == title {
			title = r.To
		}
	}
	return title
}

// RawText returns the plain-text extract of the article called title.
func (s *Scraper) RawText(ctx context.Context, title string) (string, error) {
	cleaned, err := cleanTitle("raw_text", title)
	if err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("titles", cleaned)
	params.Set("prop", "extracts")
	params.Set("explaintext", "1")
	params.Set("exlimit", "1")

	s.logger.Info("fetching plain text", "title", cleaned)

	resp, err := s.Query(ctx, params)
	if err != nil {
		return "", err
	}

	var q pagesQuery
	if err := decodeQuery(resp, &q); err != nil {
		return "", err
	}
	if len(q.Pages) == 0 {
		return "", types.NewError(types.KindNoResults, "raw_text", cleaned, fmt.Errorf("page not found: %w", types.ErrEmptyResult))
	}

	for _, page := range q.sortedPages() {
		if page.missing() {
			s.logger.Warn("page missing", "title", cleaned)
			return "", types.NewError(types.KindNoResults, "raw_text", cleaned, fmt.Errorf("page does not exist: %w", types.ErrEmptyResult))
		}
		if page.Extract != nil && *page.Extract != "" {
			s.logger.Info("plain text fetched", "title", page.Title, "chars", len(*page.Extract))
			return *page.Extract, nil
		}
	}

	return "", types.NewError(types.KindNoResults, "raw_text", cleaned, fmt.Errorf("no extract available: %w", types.ErrEmptyResult))
}

// LinkOptions tunes Links.
type LinkOptions struct {
	// Limit caps the total number of links, 0 = all.
	Limit int
	// Namespace restricts results to one namespace; nil = any.
	// Only internal and linkshere links accept a namespace.
	Namespace *int
}

// Namespace returns a pointer for LinkOptions.Namespace.
func Namespace(ns int) *int {
	return &ns
}

// LinkList is the result of Links.
type LinkList struct {
	// Title is the page title as normalized by the API.
	Title string   `json:"title"`
	Type  string   `json:"type"`
	Items []string `json:"items"`
}

type linkItem struct {
	NS     int    `json:"ns"`
	Title  string `json:"title"`
	Star   string `json:"*"`
	URL    string `json:"url"`
	Prefix string `json:"prefix"`
}

func (it linkItem) value(t LinkType) string {
	switch t {
	case LinkExternal:
		if it.Star != "" {
			return it.Star
		}
		return it.URL
	case LinkInterwiki:
		name := it.Star
		if name == "" {
			name = it.Title
		}
		return it.Prefix + ":" + name
	default:
		return it.Title
	}
}

// Links returns the links of the given type for title, following continuation.
// A missing query.pages container fails with KindNoResults; a page with no
// links, or a page that does not exist, yields an empty list.
func (s *Scraper) Links(ctx context.Context, title string, lt LinkType, opts LinkOptions) (*LinkList, error) {
	spec, err := lt.spec()
	if err != nil {
		return nil, err
	}
	cleaned, err := cleanTitle("links", title)
	if err != nil {
		return nil, err
	}
	if opts.Limit < 0 {
		return nil, types.NewError(types.KindValidation, "links", cleaned, fmt.Errorf("limit must be >= 0, got %d", opts.Limit))
	}

	params := url.Values{}
	params.Set("titles", cleaned)
	params.Set("prop", spec.module)
	if opts.Limit > 0 {
		params.Set(spec.prefix+"limit", strconv.Itoa(min(opts.Limit, maxAPILimit)))
	} else {
		params.Set(spec.prefix+"limit", "max")
	}
	if opts.Namespace != nil {
		if *opts.Namespace < 0 {
			return nil, types.NewError(types.KindValidation, "links", cleaned, fmt.Errorf("namespace must be >= 0, got %d", *opts.Namespace))
		}
		if !spec.namespaced {
			return nil, types.NewError(types.KindValidation, "links", cleaned, fmt.Errorf("%s links cannot be filtered by namespace", spec.name))
		}
		params.Set(spec.prefix+"namespace", strconv.Itoa(*opts.Namespace))
	}

	s.logger.Info("retrieving links", "title", cleaned, "type", spec.name, "limit", opts.Limit)

	result := &LinkList{Title: cleaned, Type: spec.name, Items: []string{}}
	items, err := Paginate(ctx, s, params, opts.Limit, func(resp *APIResponse) ([]string, error) {
		var q pagesQuery
		if err := decodeQuery(resp, &q); err != nil {
			return nil, err
		}
		if q.Pages == nil {
			return nil, types.NewError(types.KindNoResults, "links", cleaned, fmt.Errorf("no pages in response: %w", types.ErrEmptyResult))
		}
		result.Title = q.normalize(cleaned)

		var out []string
		for _, page := range q.sortedPages() {
			if page.missing() {
				s.logger.Warn("page missing, no links", "title", result.Title)
				continue
			}
			if page.Title != "" {
				result.Title = page.Title
			}
			raw, ok := page.fields[spec.resultKey]
			if !ok {
				continue
			}
			var list []linkItem
			if err := json.Unmarshal(raw, &list); err != nil {
				return nil, types.NewError(types.KindParse, "links", cleaned, fmt.Errorf("decode %s: %w", spec.resultKey, err))
			}
			for _, it := range list {
				out = append(out, it.value(lt))
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	result.Items = append(result.Items, items...)

	s.logger.Info("links retrieved", "title", result.Title, "type", spec.name, "count", len(result.Items))
	return result, nil
}

// categoryNamespace is the MediaWiki Category: namespace.
const categoryNamespace = 14

// Categories returns the visible categories of title without the namespace prefix.
// A page that does not exist fails with KindNoResults.
func (s *Scraper) Categories(ctx context.Context, title string) ([]string, error) {
	cleaned, err := cleanTitle("categories", title)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("titles", cleaned)
	params.Set("prop", "categories")
	params.Set("cllimit", "max")
	params.Set("clshow", "!hidden")
	params.Set("clnamespace", strconv.Itoa(categoryNamespace))

	s.logger.Info("retrieving categories", "title", cleaned)

	categories, err := Paginate(ctx, s, params, 0, func(resp *APIResponse) ([]string, error) {
		var q pagesQuery
		if err := decodeQuery(resp, &q); err != nil {
			return nil, err
		}
		if len(q.Pages) == 0 {
			return nil, types.NewError(types.KindNoResults, "categories", cleaned, fmt.Errorf("page does not exist: %w", types.ErrEmptyResult))
		}

		var out []string
		for _, page := range q.sortedPages() {
			if page.missing() {
				s.logger.Warn("page not found", "title", cleaned)
				return nil, types.NewError(types.KindNoResults, "categories", cleaned, fmt.Errorf("page does not exist: %w", types.ErrEmptyResult))
			}
			raw, ok := page.fields["categories"]
			if !ok {
				continue
			}
			var list []linkItem
			if err := json.Unmarshal(raw, &list); err != nil {
				return nil, types.NewError(types.KindParse, "categories", cleaned, fmt.Errorf("decode categories: %w", err))
			}
			for _, c := range list {
				if name := stripNamespace(c.Title); name != "" {
					out = append(out, name)
				}
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("categories retrieved", "title", cleaned, "count", len(categories))
	return categories, nil
}

// decodeQuery unmarshals resp.Query into v. A response without a query
// object leaves v untouched.
func decodeQuery(resp *APIResponse, v any) error {
	if resp.Query == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Query, v); err != nil {
		return types.NewError(types.KindParse, "query", "", fmt.Errorf("decode query: %w", err))
	}
	return nil
}

func stripNamespace(title string) string {
	if _, name, ok := strings.Cut(title, ":"); ok {
		return name
	}
	return title
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

func sameValues(a, b url.Values) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	return a.Encode() == b.Encode()
}
