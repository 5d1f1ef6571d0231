package types

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure so callers can switch on it instead of on error types.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConfig covers bad language, encoding or missing identifying header. Never retried.
	KindConfig
	// KindValidation covers bad caller input (empty title, unknown link type, bad namespace).
	// No network call is made.
	KindValidation
	// KindTransient is a network failure or retryable status that outlived the retry budget.
	KindTransient
	// KindHTTPStatus is a non-2xx status outside the retry list.
	KindHTTPStatus
	// KindRedirectLimit means the redirect chain exceeded the configured ceiling.
	KindRedirectLimit
	// KindNonHTML means a page response did not declare text/html.
	KindNonHTML
	// KindParse wraps HTML or JSON decoding failures and unavailable parser engines.
	KindParse
	// KindAPI is an explicit "error" object returned by the MediaWiki API.
	KindAPI
	// KindNoResults means the expected result container was absent or empty.
	KindNoResults
	// KindStorage covers directory creation and file write failures.
	KindStorage
)

var kindNames = map[Kind]string{
	KindUnknown:       "unknown",
	KindConfig:        "config",
	KindValidation:    "validation",
	KindTransient:     "transient",
	KindHTTPStatus:    "http_status",
	KindRedirectLimit: "redirect_limit",
	KindNonHTML:       "non_html",
	KindParse:         "parse",
	KindAPI:           "api",
	KindNoResults:     "no_results",
	KindStorage:       "storage",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinel errors for common failure modes.
var (
	ErrInvalidTitle      = errors.New("page title must be a non-empty string")
	ErrUnsupportedLang   = errors.New("language not supported")
	ErrTooManyRedirects  = errors.New("too many redirects")
	ErrParserUnavailable = errors.New("parser engine unavailable")
	ErrNotHTML           = errors.New("response is not HTML")
	ErrEmptyResult       = errors.New("no results")
	ErrBodyTooLarge      = errors.New("response body exceeds size limit")
)

// Error is the single failure type surfaced by the scraper core.
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "fetch_page" or "links".
	Op string
	// Target is the URL, title or path the operation was acting on.
	Target     string
	StatusCode int
	// Code and Info are copied from a MediaWiki API error object.
	Code string
	Info string
	// Attempts is the number of HTTP attempts made before giving up.
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(" error")
	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}
	if e.Target != "" {
		fmt.Fprintf(&b, " for %s", e.Target)
	}
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, " [%s] %s", e.Code, e.Info)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the HTTP layer may try the request again.
func (e *Error) Retryable() bool { return e.Kind == KindTransient }

// NewError builds an *Error of the given kind.
func NewError(kind Kind, op, target string, err error) *Error {
	return &Error{Kind: kind, Op: op, Target: target, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
