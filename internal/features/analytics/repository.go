package analytics

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/xyz-asif/lostfound/internal/features/items"
)

// Repository runs read-only aggregations over the items collection.
type Repository struct {
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database) *Repository {
	return &Repository{collection: db.Collection(items.CollectionName)}
}

// Aggregate runs pipeline and decodes every result into out, a pointer to a slice.
func (r *Repository) Aggregate(ctx context.Context, pipeline mongo.Pipeline, out interface{}) error {
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("aggregate items: %w", err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("decode aggregation: %w", err)
	}
	return nil
}

func (r *Repository) Count(ctx context.Context, filter bson.M) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return n, nil
}
