package types

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Request describes one logical HTTP call. Retries reuse the same Request.
type Request struct {
	// Method is the HTTP method. Defaults to GET.
	Method string

	// URL is the target URL without the query parameters in Params.
	URL string

	// Params are encoded into the query string.
	Params url.Values

	// Headers are sent in addition to the client defaults.
	Headers http.Header

	// Timeout overrides the client timeout for each attempt of this request.
	Timeout time.Duration
}

// NewRequest creates a GET request for rawURL.
func NewRequest(rawURL string, params url.Values) *Request {
	return &Request{
		Method:  http.MethodGet,
		URL:     rawURL,
		Params:  params,
		Headers: make(http.Header),
	}
}

// FullURL returns the URL with Params merged into its query string.
func (r *Request) FullURL() (string, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", r.URL, err)
	}
	if len(r.Params) > 0 {
		q := u.Query()
		for k, vs := range r.Params {
			q.Del(k)
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Idempotent reports whether the request may be retried safely.
func (r *Request) Idempotent() bool {
	switch r.Method {
	case "", http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
