package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/wikiscraper/internal/config"
	"github.com/IshaanNene/wikiscraper/internal/types"
)

// pageDocument is the MongoDB representation of a saved page.
type pageDocument struct {
	ID      string    `bson:"_id"`
	Title   string    `bson:"title"`
	Content string    `bson:"content"`
	Bytes   int       `bson:"bytes"`
	SavedAt time.Time `bson:"saved_at"`
}

func newPageDocument(content, title string, now time.Time) pageDocument {
	return pageDocument{
		ID:      uuid.NewString(),
		Title:   strings.TrimSpace(title),
		Content: content,
		Bytes:   len(content),
		SavedAt: now.UTC(),
	}
}

// MongoSaver stores pages as documents in a MongoDB collection.
type MongoSaver struct {
	client     *mongo.Client
	collection *mongo.Collection
	database   string
	count      int
	logger     *slog.Logger
}

// NewMongoSaver connects to MongoDB and verifies the connection.
func NewMongoSaver(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*MongoSaver, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, types.NewError(types.KindStorage, "mongodb_connect", cfg.MongoURI, err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, types.NewError(types.KindStorage, "mongodb_ping", cfg.MongoURI, err)
	}

	s := &MongoSaver{
		client:     client,
		collection: client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection),
		database:   cfg.MongoDatabase,
		logger:     logger.With("component", "mongo_saver"),
	}
	s.logger.Info("mongodb storage ready", "database", cfg.MongoDatabase, "collection", cfg.MongoCollection)
	return s, nil
}

func (s *MongoSaver) Name() string { return "mongodb" }

// Save inserts one document and returns mongodb://<db>/<collection>/<id>.
func (s *MongoSaver) Save(ctx context.Context, content, title string) (string, error) {
	doc := newPageDocument(content, title, time.Now())
	location := documentLocation(s.database, s.collection.Name(), doc.ID)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		s.logger.Error("mongodb insert failed", "title", doc.Title, "error", err)
		return "", types.NewError(types.KindStorage, "save", location, fmt.Errorf("mongodb insert: %w", err))
	}

	s.count++
	s.logger.Info("page stored in mongodb", "id", doc.ID, "title", doc.Title, "bytes", doc.Bytes, "total", s.count)
	return location, nil
}

func (s *MongoSaver) Close() error {
	s.logger.Info("mongodb storage closing", "total_pages", s.count)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func documentLocation(database, collection, id string) string {
	return fmt.Sprintf("mongodb://%s/%s/%s", database, collection, id)
}
