// Package wikiscraper provides a public SDK for embedding wikiscraper as a library.
//
// Example usage:
//
//	client, err := wikiscraper.NewClient(
//	    wikiscraper.WithLanguage("en"),
//	    wikiscraper.WithTimeout(10*time.Second),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	tree, err := client.Map(ctx, "Go (programming language)", 2)
//	fmt.Print(tree.Render())
package wikiscraper

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/IshaanNene/wikiscraper/internal/config"
	"github.com/IshaanNene/wikiscraper/internal/mapper"
	"github.com/IshaanNene/wikiscraper/internal/observability"
	"github.com/IshaanNene/wikiscraper/internal/parser"
	"github.com/IshaanNene/wikiscraper/internal/service"
	"github.com/IshaanNene/wikiscraper/internal/storage"
	"github.com/IshaanNene/wikiscraper/internal/types"
	"github.com/IshaanNene/wikiscraper/internal/wiki"
)

// Re-exported result types.
type (
	Article     = parser.Article
	TextArticle = service.Article
	LinkNode    = types.LinkNode
	Graph       = types.Graph
	LinkList    = wiki.LinkList
	LinkType    = wiki.LinkType
	Error       = types.Error
	Kind        = types.Kind
)

// Link types accepted by Links.
const (
	LinkInternal  = wiki.LinkInternal
	LinkExternal  = wiki.LinkExternal
	LinkLinksHere = wiki.LinkLinksHere
	LinkInterwiki = wiki.LinkInterwiki
)

// KindOf returns the failure kind carried by err.
func KindOf(err error) Kind { return types.KindOf(err) }

// Client is the high-level API for using wikiscraper as a library.
// It is not safe for concurrent use.
type Client struct {
	cfg     *config.Config
	scraper *wiki.Scraper
	service *service.WikiService
	saver   storage.Saver
	metrics *observability.Metrics
	logger  *slog.Logger
}

type settings struct {
	cfg      *config.Config
	logger   *slog.Logger
	baseURL  string
	saveable bool
}

// Option configures a Client.
type Option func(*settings)

// WithLanguage selects the Wikipedia edition, e.g. "en" or "es".
func WithLanguage(lang string) Option {
	return func(s *settings) { s.cfg.Scraper.Language = lang }
}

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.cfg.Scraper.Timeout = d }
}

// WithMaxRetries sets how many times a transient failure is retried.
func WithMaxRetries(n int) Option {
	return func(s *settings) { s.cfg.Scraper.MaxRetries = n }
}

// WithUserAgent sets the identifying User-Agent.
func WithUserAgent(ua string) Option {
	return func(s *settings) { s.cfg.Scraper.UserAgent = ua }
}

// WithRateLimit caps requests per second.
func WithRateLimit(rps float64) Option {
	return func(s *settings) { s.cfg.Scraper.RateLimit = rps }
}

// WithParser selects the HTML parser engine.
func WithParser(engine string) Option {
	return func(s *settings) { s.cfg.Scraper.Parser = engine }
}

// WithLinkLimit caps the links followed per page when mapping.
func WithLinkLimit(n int) Option {
	return func(s *settings) { s.cfg.Mapper.LinkLimit = n }
}

// WithOutput enables SaveText and writes files to dir in the given encoding.
func WithOutput(dir, encoding string) Option {
	return func(s *settings) {
		s.cfg.Storage.Type = "file"
		s.cfg.Storage.OutputDir = dir
		s.cfg.Storage.Encoding = encoding
		s.saveable = true
	}
}

// WithMongo enables SaveText with MongoDB storage.
func WithMongo(uri, database, collection string) Option {
	return func(s *settings) {
		s.cfg.Storage.Type = "mongodb"
		s.cfg.Storage.MongoURI = uri
		s.cfg.Storage.MongoDatabase = database
		s.cfg.Storage.MongoCollection = collection
		s.saveable = true
	}
}

// WithLogger replaces the default stderr logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithVerbose enables debug-level logging on the default logger.
func WithVerbose() Option {
	return func(s *settings) { s.cfg.Logging.Level = "debug" }
}

// WithBaseURL points the client at another MediaWiki installation.
func WithBaseURL(base string) Option {
	return func(s *settings) { s.baseURL = base }
}

// NewClient creates a client with the given options.
func NewClient(opts ...Option) (*Client, error) {
	s := &settings{cfg: config.DefaultConfig()}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		level := slog.LevelInfo
		if s.cfg.Logging.Level == "debug" {
			level = slog.LevelDebug
		}
		s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}

	if err := config.Validate(s.cfg); err != nil {
		return nil, err
	}

	metrics := observability.NewMetrics(s.logger)
	wopts := []wiki.Option{wiki.WithMetrics(metrics)}
	if s.baseURL != "" {
		wopts = append(wopts, wiki.WithBaseURL(s.baseURL))
	}
	scraper, err := wiki.New(s.cfg.Scraper, s.logger, wopts...)
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:     s.cfg,
		scraper: scraper,
		metrics: metrics,
		logger:  s.logger,
	}
	if s.saveable {
		c.saver, err = storage.New(context.Background(), s.cfg.Storage, s.logger)
		if err != nil {
			scraper.Close()
			return nil, fmt.Errorf("create storage: %w", err)
		}
	}

	m := mapper.New(scraper, s.cfg.Mapper, metrics, s.logger)
	c.service = service.New(scraper, m, c.saver, metrics, s.logger)
	return c, nil
}

// Search returns up to limit matching titles. No match is an empty slice.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]string, error) {
	return c.service.SearchArticles(ctx, query, limit)
}

// Text returns the plain text of the best match for query.
func (c *Client) Text(ctx context.Context, query string) (*TextArticle, error) {
	return c.service.ArticleContent(ctx, query)
}

// SaveText stores the plain text of the best match for query and returns
// its location. It requires WithOutput or WithMongo.
func (c *Client) SaveText(ctx context.Context, query string) (string, error) {
	_, location, err := c.service.SaveArticle(ctx, query)
	return location, err
}

// Page fetches the HTML page for title and extracts its structure.
func (c *Client) Page(ctx context.Context, title string) (*Article, error) {
	doc, err := c.scraper.FetchPage(ctx, title)
	if err != nil {
		return nil, err
	}
	return parser.ExtractArticle(doc), nil
}

// Links returns up to limit links of the given type, 0 = all.
func (c *Client) Links(ctx context.Context, title string, lt LinkType, limit int) (*LinkList, error) {
	return c.scraper.Links(ctx, title, lt, wiki.LinkOptions{Limit: limit})
}

// Categories returns the visible categories of title.
func (c *Client) Categories(ctx context.Context, title string) ([]string, error) {
	return c.scraper.Categories(ctx, title)
}

// Map returns the internal link tree of root down to depth.
func (c *Client) Map(ctx context.Context, root string, depth int) (*LinkNode, error) {
	return c.service.MapTree(ctx, root, depth)
}

// MapGraph returns the deduplicated link graph of root down to depth.
func (c *Client) MapGraph(ctx context.Context, root string, depth int) (*Graph, error) {
	return c.service.MapGraph(ctx, root, depth)
}

// Stats returns request and page counters.
func (c *Client) Stats() map[string]int64 {
	return c.metrics.Snapshot()
}

// Close releases the HTTP session and storage.
func (c *Client) Close() error {
	err := c.scraper.Close()
	if c.saver != nil {
		if serr := c.saver.Close(); err == nil {
			err = serr
		}
	}
	return err
}
