package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/wikiscraper/internal/mapper"
	"github.com/IshaanNene/wikiscraper/internal/observability"
	"github.com/IshaanNene/wikiscraper/internal/storage"
	"github.com/IshaanNene/wikiscraper/internal/types"
)

// Wiki is the part of *wiki.Scraper the service uses.
type Wiki interface {
	mapper.LinkSource
	Search(ctx context.Context, query string, limit int) ([]string, error)
	RawText(ctx context.Context, title string) (string, error)
}

// Article is the plain-text content of the best match for a query.
// Both fields are empty when nothing matched.
type Article struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Found reports whether the article has content.
func (a *Article) Found() bool { return a.Content != "" }

// WikiService combines search, content retrieval, link mapping and storage.
type WikiService struct {
	wiki    Wiki
	mapper  *mapper.Mapper
	saver   storage.Saver
	metrics *observability.Metrics
	logger  *slog.Logger
}

// New creates a service. saver and metrics may be nil.
func New(w Wiki, m *mapper.Mapper, saver storage.Saver, metrics *observability.Metrics, logger *slog.Logger) *WikiService {
	return &WikiService{
		wiki:    w,
		mapper:  m,
		saver:   saver,
		metrics: metrics,
		logger:  logger.With("component", "wiki_service"),
	}
}

// SearchArticles returns matching titles. No results is an empty list, not an error.
func (s *WikiService) SearchArticles(ctx context.Context, query string, limit int) ([]string, error) {
	titles, err := s.wiki.Search(ctx, query, limit)
	if types.IsKind(err, types.KindNoResults) {
		s.logger.Warn("no articles found", "query", query)
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("search articles %q: %w", query, err)
	}
	s.logger.Debug("search finished", "query", query, "results", len(titles))
	return titles, nil
}

// ArticleContent searches for query and returns the plain text of the first hit.
// A query without hits, or a hit without text, yields an Article with empty Content.
func (s *WikiService) ArticleContent(ctx context.Context, query string) (*Article, error) {
	titles, err := s.wiki.Search(ctx, query, 1)
	if types.IsKind(err, types.KindNoResults) {
		s.logger.Warn("no articles found", "query", query)
		return &Article{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("article content %q: %w", query, err)
	}

	title := titles[0]
	s.logger.Info("first search result", "query", query, "title", title)

	text, err := s.wiki.RawText(ctx, title)
	if types.IsKind(err, types.KindNoResults) {
		s.logger.Warn("article has no text", "title", title)
		return &Article{Title: title}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("article content %q: %w", title, err)
	}
	return &Article{Title: title, Content: text}, nil
}

// ErrNoSaver is returned by SaveArticle when the service has no storage.
var ErrNoSaver = errors.New("no storage configured")

// SaveArticle fetches the content for query and stores it. The returned
// location is empty when nothing was found and nothing was saved.
func (s *WikiService) SaveArticle(ctx context.Context, query string) (*Article, string, error) {
	if s.saver == nil {
		return nil, "", types.NewError(types.KindConfig, "save_article", query, ErrNoSaver)
	}

	article, err := s.ArticleContent(ctx, query)
	if err != nil {
		return nil, "", err
	}
	if !article.Found() {
		return article, "", nil
	}

	location, err := s.saver.Save(ctx, article.Content, article.Title)
	if err != nil {
		return article, "", err
	}
	if s.metrics != nil {
		s.metrics.PagesSaved.Add(1)
	}
	s.logger.Info("article saved", "title", article.Title, "location", location, "backend", s.saver.Name())
	return article, location, nil
}

// MapTree maps the internal links of root down to depth.
func (s *WikiService) MapTree(ctx context.Context, root string, depth int) (*types.LinkNode, error) {
	tree, err := s.mapper.Map(ctx, root, depth)
	if err != nil {
		return nil, fmt.Errorf("map links of %q: %w", root, err)
	}
	return tree, nil
}

// MapGraph maps root like MapTree and returns the deduplicated graph view.
func (s *WikiService) MapGraph(ctx context.Context, root string, depth int) (*types.Graph, error) {
	tree, err := s.MapTree(ctx, root, depth)
	if err != nil {
		return nil, err
	}
	g := types.NewGraphFromTree(tree)
	s.logger.Info("graph built",
		"root", g.RootTitle,
		"nodes", len(g.Nodes),
		"edges", len(g.Edges),
		"max_depth_explored", g.MaxDepthExplored,
	)
	return g, nil
}
