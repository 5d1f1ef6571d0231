package mapper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/wikiscraper/internal/config"
	"github.com/IshaanNene/wikiscraper/internal/observability"
	"github.com/IshaanNene/wikiscraper/internal/types"
	"github.com/IshaanNene/wikiscraper/internal/wiki"
)

// LinkSource returns the links of one page. *wiki.Scraper implements it.
type LinkSource interface {
	Links(ctx context.Context, title string, lt wiki.LinkType, opts wiki.LinkOptions) (*wiki.LinkList, error)
}

// Visited is the set of titles already expanded during one Map call.
// It is shared by every branch of the traversal.
type Visited struct {
	titles map[string]struct{}
}

// NewVisited creates an empty set.
func NewVisited() *Visited {
	return &Visited{titles: make(map[string]struct{})}
}

// Has reports whether title was visited.
func (v *Visited) Has(title string) bool {
	_, ok := v.titles[title]
	return ok
}

// Add marks title as visited.
func (v *Visited) Add(title string) {
	v.titles[title] = struct{}{}
}

// Len returns the number of visited titles.
func (v *Visited) Len() int {
	return len(v.titles)
}

// Mapper builds link trees by depth-first expansion of internal links.
// It performs one request at a time and is not safe for concurrent use.
type Mapper struct {
	source  LinkSource
	opts    wiki.LinkOptions
	metrics *observability.Metrics
	logger  *slog.Logger
}

// New creates a Mapper reading links from source. metrics may be nil.
func New(source LinkSource, cfg config.MapperConfig, metrics *observability.Metrics, logger *slog.Logger) *Mapper {
	opts := wiki.LinkOptions{Limit: cfg.LinkLimit}
	if cfg.Namespace >= 0 {
		opts.Namespace = wiki.Namespace(cfg.Namespace)
	}
	return &Mapper{
		source:  source,
		opts:    opts,
		metrics: metrics,
		logger:  logger.With("component", "mapper"),
	}
}

// Map returns the link tree rooted at root. The root is at depth 1 and pages
// at depth maxDepth are expanded; deeper pages appear as leaves. A title is
// expanded at most once per call, so a page seen earlier in the traversal
// shows up again only as a leaf. Any error aborts the whole traversal.
func (m *Mapper) Map(ctx context.Context, root string, maxDepth int) (*types.LinkNode, error) {
	if maxDepth < 1 {
		return nil, types.NewError(types.KindValidation, "map", root, fmt.Errorf("max depth must be >= 1, got %d", maxDepth))
	}
	title := strings.TrimSpace(root)
	if title == "" {
		return nil, types.NewError(types.KindValidation, "map", root, types.ErrInvalidTitle)
	}

	log := m.logger.With("trace_id", uuid.NewString(), "root", title, "max_depth", maxDepth)
	log.Info("mapping links")

	start := time.Now()
	visited := NewVisited()
	tree, err := m.expand(ctx, log, title, 1, maxDepth, visited)
	if err != nil {
		log.Error("mapping aborted", "expanded", visited.Len(), "error", err)
		return nil, err
	}

	log.Info("mapping complete",
		"nodes", tree.Count(),
		"expanded", visited.Len(),
		"elapsed", time.Since(start),
	)
	return tree, nil
}

func (m *Mapper) expand(ctx context.Context, log *slog.Logger, title string, depth, maxDepth int, visited *Visited) (*types.LinkNode, error) {
	node := types.NewLinkNode(title)
	if depth > maxDepth || visited.Has(title) {
		return node, nil
	}
	visited.Add(title)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	list, err := m.source.Links(ctx, title, wiki.LinkInternal, m.opts)
	if err != nil {
		return nil, err
	}
	if list.Title != "" && list.Title != title {
		visited.Add(list.Title)
		node.Title = list.Title
	}
	node.Expanded = true
	if m.metrics != nil {
		m.metrics.PagesExpanded.Add(1)
	}
	log.Debug("page expanded", "title", node.Title, "depth", depth, "links", len(list.Items))

	for _, link := range list.Items {
		child, err := m.expand(ctx, log, link, depth+1, maxDepth, visited)
		if err != nil {
			return nil, err
		}
		node.AddChild(child)
	}
	return node, nil
}
