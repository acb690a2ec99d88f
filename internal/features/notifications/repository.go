package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperrors "github.com/xyz-asif/lostfound/pkg/errors"
)

const CollectionName = "notifications"

var ErrNotificationNotFound = apperrors.NotFound("NOTIFICATION_NOT_FOUND", "Notification not found")

type Repository struct {
	collection *mongo.Collection
}

func NewRepository(ctx context.Context, db *mongo.Database) (*Repository, error) {
	collection := db.Collection(CollectionName)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "recipient", Value: 1},
				{Key: "isRead", Value: 1},
				{Key: "createdAt", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "createdAt", Value: 1}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create notification indexes: %w", err)
	}

	return &Repository{collection: collection}, nil
}

// CreateMany inserts one record per notification
func (r *Repository) CreateMany(ctx context.Context, notifications []Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	docs := make([]interface{}, len(notifications))
	for i := range notifications {
		if notifications[i].ID.IsZero() {
			notifications[i].ID = primitive.NewObjectID()
		}
		if notifications[i].CreatedAt.IsZero() {
			notifications[i].CreatedAt = time.Now()
		}
		docs[i] = notifications[i]
	}

	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert notifications: %w", err)
	}
	return nil
}

// List retrieves notifications for a recipient, unread first then newest
func (r *Repository) List(ctx context.Context, recipient primitive.ObjectID, unreadOnly bool, skip, limit int64) ([]Notification, int64, error) {
	filter := bson.M{"recipient": recipient}
	if unreadOnly {
		filter["isRead"] = false
	}

	opts := options.Find().
		SetSort(bson.D{
			{Key: "isRead", Value: 1},
			{Key: "createdAt", Value: -1},
		}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find notifications: %w", err)
	}
	defer cursor.Close(ctx)

	notifications := []Notification{}
	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, 0, fmt.Errorf("decode notifications: %w", err)
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	return notifications, total, nil
}

// CountUnread counts unread notifications for a recipient
func (r *Repository) CountUnread(ctx context.Context, recipient primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{
		"recipient": recipient,
		"isRead":    false,
	})
}

// MarkAsRead flips one notification owned by recipient to read
func (r *Repository) MarkAsRead(ctx context.Context, id, recipient primitive.ObjectID) (*Notification, error) {
	now := time.Now()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var notification Notification
	err := r.collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id, "recipient": recipient},
		bson.M{"$set": bson.M{"isRead": true, "readAt": now}},
		opts,
	).Decode(&notification)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	return &notification, nil
}

// MarkAllAsRead marks all unread notifications of a recipient as read
func (r *Repository) MarkAllAsRead(ctx context.Context, recipient primitive.ObjectID) (int64, error) {
	result, err := r.collection.UpdateMany(
		ctx,
		bson.M{"recipient": recipient, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true, "readAt": time.Now()}},
	)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return result.ModifiedCount, nil
}

// Delete removes a notification owned by recipient
func (r *Repository) Delete(ctx context.Context, id, recipient primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "recipient": recipient})
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
