package items

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xyz-asif/lostfound/internal/pkg/metrics"
	apperrors "github.com/xyz-asif/lostfound/pkg/errors"
)

const (
	CollectionName    = "items"
	maxMutateAttempts = 3
)

var (
	ErrItemNotFound     = apperrors.NotFound("ITEM_NOT_FOUND", "Item not found")
	ErrConcurrentUpdate = apperrors.Conflict("CONCURRENT_UPDATE", "The item was modified concurrently, please retry")
	errInvalidItemID    = apperrors.Validation("INVALID_ITEM_ID", "Invalid item ID")
	errInvalidClaimID   = apperrors.Validation("INVALID_CLAIM_ID", "Invalid claim ID")
)

// Repository handles database interactions for items and their claims
type Repository struct {
	collection *mongo.Collection
}

// NewRepository initializes the repository and creates necessary indexes
func NewRepository(ctx context.Context, db *mongo.Database) (*Repository, error) {
	collection := db.Collection(CollectionName)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "reportedBy", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "claims.claimant", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{
			// Expiry sweep
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "expiryDate", Value: 1}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create item indexes: %w", err)
	}

	return &Repository{collection: collection}, nil
}

// ParseID converts a path parameter into an item id.
func ParseID(raw string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, errInvalidItemID
	}
	return oid, nil
}

// ParseClaimID converts a path parameter into a claim id.
func ParseClaimID(raw string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, errInvalidClaimID
	}
	return oid, nil
}

// Create inserts a new item at version zero
func (r *Repository) Create(ctx context.Context, item *Item) error {
	now := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	item.Version = 0
	if item.Claims == nil {
		item.Claims = []Claim{}
	}
	if item.Images == nil {
		item.Images = []Image{}
	}

	result, err := r.collection.InsertOne(ctx, item)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		item.ID = oid
	}
	return nil
}

// GetByID finds an item by id
func (r *Repository) GetByID(ctx context.Context, id primitive.ObjectID) (*Item, error) {
	var item Item
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&item); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("find item: %w", err)
	}
	return &item, nil
}

// List returns a page of items matching f together with the total count.
func (r *Repository) List(ctx context.Context, f Filter, sort bson.D, skip, limit int64) ([]Item, int64, error) {
	filter := f.BSON()

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count items: %w", err)
	}

	opts := options.Find().SetSort(sort).SetSkip(skip).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find items: %w", err)
	}
	defer cursor.Close(ctx)

	items := []Item{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("decode items: %w", err)
	}
	return items, total, nil
}

// Delete removes an item and its embedded claims
func (r *Repository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrItemNotFound
	}
	return nil
}

// Mutate applies fn to the current item and writes the whole document back,
// guarded by its version. On a version mismatch the item is re-read and fn
// re-applied, up to maxMutateAttempts times. fn must be free of side effects
// outside the item since it may run more than once.
func (r *Repository) Mutate(ctx context.Context, id primitive.ObjectID, fn func(*Item) error) (*Item, error) {
	for attempt := 0; attempt < maxMutateAttempts; attempt++ {
		item, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := fn(item); err != nil {
			return nil, err
		}

		expected := item.Version
		item.Version = expected + 1

		result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": id, "version": expected}, item)
		if err != nil {
			return nil, fmt.Errorf("replace item: %w", err)
		}
		if result.MatchedCount == 1 {
			return item, nil
		}
		metrics.ConcurrentUpdateRetries.Inc()
	}
	return nil, ErrConcurrentUpdate
}

// ExpireOverdue flips active items whose expiry date has passed.
func (r *Repository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.collection.UpdateMany(ctx,
		bson.M{"status": StatusActive, "expiryDate": bson.M{"$lte": now}},
		bson.M{
			"$set": bson.M{"status": StatusExpired, "updatedAt": now},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return 0, fmt.Errorf("expire items: %w", err)
	}
	return result.ModifiedCount, nil
}

// ItemTitles returns titles keyed by id for notification display.
func (r *Repository) ItemTitles(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	titles := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return titles, nil
	}

	opts := options.Find().SetProjection(bson.M{"title": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find item titles: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID    primitive.ObjectID `bson:"_id"`
		Title string             `bson:"title"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode item titles: %w", err)
	}
	for _, row := range rows {
		titles[row.ID] = row.Title
	}
	return titles, nil
}
