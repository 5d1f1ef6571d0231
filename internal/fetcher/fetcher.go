package fetcher

import (
	"context"

	"github.com/IshaanNene/wikiscraper/internal/types"
)

// Fetcher is the interface the wiki layer uses to perform HTTP requests.
type Fetcher interface {
	// Fetch performs req, retrying as configured, and returns the fully read response.
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}
