package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/wikiscraper/internal/config"
	"github.com/IshaanNene/wikiscraper/internal/types"
)

// Saver persists page content and returns where it went.
type Saver interface {
	// Save stores content under title and returns its location: a file path
	// or a mongodb:// reference. title may be empty.
	Save(ctx context.Context, content, title string) (string, error)

	// Close releases resources held by the saver.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// New creates the saver selected by cfg.Type.
func New(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Saver, error) {
	switch cfg.Type {
	case "", "file":
		return NewFileSaver(cfg, logger)
	case "mongodb":
		return NewMongoSaver(ctx, cfg, logger)
	default:
		return nil, types.NewError(types.KindConfig, "new_storage", cfg.Type,
			fmt.Errorf("unknown storage type %q (valid: file, mongodb)", cfg.Type))
	}
}
