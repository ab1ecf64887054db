package export

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/staywatch/staywatch/internal/types"
)

// MongoExporter mirrors export rows into a MongoDB collection for
// cross-run archival. It is always a mirror backend, never the primary.
type MongoExporter struct {
	client     *mongo.Client
	collection *mongo.Collection
	mu         sync.Mutex
	count      int
	logger     *slog.Logger
}

// NewMongoExporter connects to the archive collection.
func NewMongoExporter(uri, database, collection string, logger *slog.Logger) (*MongoExporter, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	return &MongoExporter{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.With("component", "mongo_exporter"),
	}, nil
}

func (e *MongoExporter) Name() string { return "mongodb" }

func (e *MongoExporter) Export(ctx context.Context, sheet Sheet, filename string) (string, error) {
	if err := sheet.Validate(); err != nil {
		return "", err
	}
	if len(sheet.Rows) == 0 {
		return e.collection.Name(), nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	docs := make([]any, len(sheet.Rows))
	for i, row := range sheet.Rows {
		doc := make(map[string]any, len(row)+4)
		doc["_sheet"] = sheet.Name
		doc["_file"] = filename
		doc["_listing_id"] = sheet.ListingID
		doc["_exported_at"] = now
		for k, v := range row {
			doc[k] = v
		}
		docs[i] = doc
	}

	insertCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := e.collection.InsertMany(insertCtx, docs); err != nil {
		return "", &types.ExportError{Backend: e.Name(), Err: fmt.Errorf("insert: %w", err)}
	}

	e.count += len(docs)
	e.logger.Debug("rows archived", "sheet", sheet.Name, "rows", len(docs), "total", e.count)
	return e.collection.Name(), nil
}

func (e *MongoExporter) Close() error {
	e.logger.Info("mongo exporter closing", "total_rows", e.count)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return e.client.Disconnect(ctx)
}
