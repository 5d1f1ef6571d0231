package wiki

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/IshaanNene/wikiscraper/internal/config"
	"github.com/IshaanNene/wikiscraper/internal/fetcher"
	"github.com/IshaanNene/wikiscraper/internal/observability"
	"github.com/IshaanNene/wikiscraper/internal/parser"
	"github.com/IshaanNene/wikiscraper/internal/types"
)

// Scraper reads pages and API results from one Wikipedia edition.
// It owns a single HTTP session and is not safe for concurrent use.
type Scraper struct {
	cfg     config.ScraperConfig
	baseURL string
	fetcher fetcher.Fetcher
	metrics *observability.Metrics
	logger  *slog.Logger
}

// Option customizes a Scraper.
type Option func(*Scraper)

// WithBaseURL points the scraper at another MediaWiki host, e.g. a test server.
func WithBaseURL(base string) Option {
	return func(s *Scraper) {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		s.baseURL = base
	}
}

// WithFetcher replaces the HTTP client.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(s *Scraper) { s.fetcher = f }
}

// WithMetrics records counters into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Scraper) { s.metrics = m }
}

// New validates cfg and opens a scraper session. Configuration errors are
// reported before any session is created.
func New(cfg config.ScraperConfig, logger *slog.Logger, opts ...Option) (*Scraper, error) {
	if err := config.ValidateScraper(&cfg); err != nil {
		return nil, err
	}

	s := &Scraper{
		cfg:     cfg,
		baseURL: fmt.Sprintf("https://%s.wikipedia.org/", cfg.Language),
		logger:  logger.With("component", "scraper"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.fetcher == nil {
		client, err := fetcher.NewHTTPClient(cfg, s.metrics, logger)
		if err != nil {
			return nil, err
		}
		s.fetcher = client
	}

	s.logger.Info("scraper ready",
		"language", cfg.Language,
		"base_url", s.baseURL,
		"parser", cfg.Parser,
		"timeout", cfg.Timeout,
		"max_retries", cfg.MaxRetries,
		"max_redirects", cfg.MaxRedirects,
	)
	return s, nil
}

// Use opens a scraper, runs fn and closes the scraper on every exit path.
func Use(cfg config.ScraperConfig, logger *slog.Logger, fn func(*Scraper) error, opts ...Option) (err error) {
	s, err := New(cfg, logger, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	return fn(s)
}

// Close releases the HTTP session.
func (s *Scraper) Close() error {
	s.logger.Debug("closing scraper session")
	return s.fetcher.Close()
}

// BaseURL returns the edition root, always ending in "/".
func (s *Scraper) BaseURL() string {
	return s.baseURL
}

// Config returns a copy of the scraper configuration.
func (s *Scraper) Config() config.ScraperConfig {
	return s.cfg
}

// PageURL builds the canonical article URL for title.
func (s *Scraper) PageURL(title string) (string, error) {
	cleaned, err := cleanTitle("page_url", title)
	if err != nil {
		return "", err
	}
	return s.baseURL + "wiki/" + url.PathEscape(strings.ReplaceAll(cleaned, " ", "_")), nil
}

// FetchPage downloads and parses the article called title.
func (s *Scraper) FetchPage(ctx context.Context, title string) (*parser.Document, error) {
	pageURL, err := s.PageURL(title)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := s.fetcher.Fetch(ctx, types.NewRequest(pageURL, nil))
	if err != nil {
		return nil, err
	}

	if !resp.IsHTML() {
		s.logger.Warn("unexpected content type", "url", pageURL, "content_type", resp.ContentType)
		return nil, &types.Error{
			Kind:       types.KindNonHTML,
			Op:         "fetch_page",
			Target:     pageURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: got %q", types.ErrNotHTML, resp.ContentType),
		}
	}

	doc, err := parser.Parse(s.cfg.Parser, resp.Body, resp.FinalURL)
	if err != nil {
		s.logger.Error("parse failed", "url", pageURL, "parser", s.cfg.Parser, "error", err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.PagesFetched.Add(1)
	}
	s.logger.Info("page fetched",
		"title", strings.TrimSpace(title),
		"status", resp.StatusCode,
		"elapsed", time.Since(start),
		"bytes", len(resp.Body),
		"attempts", resp.Attempts,
	)
	return doc, nil
}

// FetchPageWithSearch searches for query and fetches the best match.
func (s *Scraper) FetchPageWithSearch(ctx context.Context, query string) (*parser.Document, error) {
	titles, err := s.Search(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("search resolved page", "query", query, "title", titles[0])
	return s.FetchPage(ctx, titles[0])
}

func cleanTitle(op, title string) (string, error) {
	cleaned := strings.TrimSpace(title)
	if cleaned == "" {
		return "", types.NewError(types.KindValidation, op, title, types.ErrInvalidTitle)
	}
	return cleaned, nil
}
