package types

import (
	"net/http"
	"strings"
	"time"
)

// Response is a fully read HTTP response.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Headers are the response HTTP headers.
	Headers http.Header

	// Body is the decoded response body.
	Body []byte

	// ContentType is the raw Content-Type header.
	ContentType string

	// FinalURL is the URL after any redirects.
	FinalURL string

	// Redirects is the number of redirect hops followed.
	Redirects int

	// Attempts is how many tries it took to get this response.
	Attempts int

	// FetchDuration covers the successful attempt only.
	FetchDuration time.Duration

	FetchedAt time.Time
}

// NewResponse creates a Response from an http.Response and its already-read body.
func NewResponse(httpResp *http.Response, body []byte, duration time.Duration) *Response {
	resp := &Response{
		StatusCode:    httpResp.StatusCode,
		Headers:       httpResp.Header,
		Body:          body,
		ContentType:   httpResp.Header.Get("Content-Type"),
		FetchDuration: duration,
		FetchedAt:     time.Now(),
	}
	if httpResp.Request != nil && httpResp.Request.URL != nil {
		resp.FinalURL = httpResp.Request.URL.String()
		resp.Redirects = countRedirects(httpResp.Request)
	}
	return resp
}

// IsHTML reports whether the response declares an HTML body.
func (r *Response) IsHTML() bool {
	return strings.Contains(strings.ToLower(r.ContentType), "text/html")
}

// IsSuccess returns true if the response status is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// countRedirects walks back through the redirect responses that produced req.
func countRedirects(req *http.Request) int {
	hops := 0
	for r := req; r != nil && r.Response != nil; r = r.Response.Request {
		hops++
	}
	return hops
}
