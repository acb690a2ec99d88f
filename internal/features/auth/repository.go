package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xyz-asif/lostfound/internal/pkg/access"
	apperrors "github.com/xyz-asif/lostfound/pkg/errors"
)

const CollectionName = "users"

var (
	ErrUserNotFound = apperrors.NotFound("USER_NOT_FOUND", "User not found")
	ErrEmailTaken   = apperrors.Validation("EMAIL_TAKEN", "Email already registered")
)

// Repository handles database interactions for users
type Repository struct {
	collection *mongo.Collection
}

// NewRepository initializes the repository and creates necessary indexes
func NewRepository(ctx context.Context, db *mongo.Database) (*Repository, error) {
	collection := db.Collection(CollectionName)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "googleId", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "isActive", Value: 1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("create user indexes: %w", err)
	}

	return &Repository{collection: collection}, nil
}

// Create inserts a new user
func (r *Repository) Create(ctx context.Context, user *User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		user.ID = oid
	}
	return nil
}

// GetUserByID finds a user by hex id
func (r *Repository) GetUserByID(ctx context.Context, userID string) (*User, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// GetUserByEmail returns nil, nil when no user has the address.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	user, err := r.findOne(ctx, bson.M{"email": NormalizeEmail(email)})
	if errors.Is(err, ErrUserNotFound) {
		return nil, nil
	}
	return user, err
}

// GetUserByGoogleID returns nil, nil when no user is linked to the id.
func (r *Repository) GetUserByGoogleID(ctx context.Context, googleID string) (*User, error) {
	user, err := r.findOne(ctx, bson.M{"googleId": googleID})
	if errors.Is(err, ErrUserNotFound) {
		return nil, nil
	}
	return user, err
}

func (r *Repository) findOne(ctx context.Context, filter bson.M) (*User, error) {
	var user User
	if err := r.collection.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// GetUsersByIDs loads users keyed by id. Missing ids are simply absent.
func (r *Repository) GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*User, error) {
	result := make(map[primitive.ObjectID]*User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	opts := options.Find().SetProjection(bson.M{"password": 0, "fcmTokens": 0})
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	for i := range users {
		result[users[i].ID] = &users[i]
	}
	return result, nil
}

// ActiveStaffIDs returns the ids of every active staff member and admin.
func (r *Repository) ActiveStaffIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	filter := bson.M{
		"role":     bson.M{"$in": []access.Role{access.RoleStaff, access.RoleAdmin}},
		"isActive": true,
	}
	opts := options.Find().SetProjection(bson.M{"_id": 1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find staff: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode staff: %w", err)
	}

	ids := make([]primitive.ObjectID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return ids, nil
}

// DeviceTokens returns the push tokens registered by the given users.
func (r *Repository) DeviceTokens(ctx context.Context, ids []primitive.ObjectID) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	filter := bson.M{"_id": bson.M{"$in": ids}, "isActive": true, "fcmTokens.0": bson.M{"$exists": true}}
	opts := options.Find().SetProjection(bson.M{"fcmTokens": 1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find device tokens: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		FCMTokens []string `bson:"fcmTokens"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode device tokens: %w", err)
	}

	var tokens []string
	for _, row := range rows {
		tokens = append(tokens, row.FCMTokens...)
	}
	return tokens, nil
}

// AddDeviceToken registers a push token for the user, ignoring duplicates.
func (r *Repository) AddDeviceToken(ctx context.Context, userID primitive.ObjectID, token string) error {
	update := bson.M{
		"$addToSet": bson.M{"fcmTokens": token},
		"$set":      bson.M{"updatedAt": time.Now()},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("add device token: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

// RemoveDeviceTokens drops tokens the push provider reported as invalid.
func (r *Repository) RemoveDeviceTokens(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	_, err := r.collection.UpdateMany(ctx,
		bson.M{"fcmTokens": bson.M{"$in": tokens}},
		bson.M{"$pull": bson.M{"fcmTokens": bson.M{"$in": tokens}}},
	)
	if err != nil {
		return fmt.Errorf("remove device tokens: %w", err)
	}
	return nil
}

// UpdateUser sets the given fields on a user
func (r *Repository) UpdateUser(ctx context.Context, userID primitive.ObjectID, updates bson.M) error {
	set := bson.M{"updatedAt": time.Now()}
	for k, v := range updates {
		set[k] = v
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("update user: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

// TouchLogin records a successful sign-in.
func (r *Repository) TouchLogin(ctx context.Context, userID primitive.ObjectID, at time.Time) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{"lastLoginAt": at}})
	if err != nil {
		return fmt.Errorf("touch login: %w", err)
	}
	return nil
}

// ListFilter narrows the admin user listing
type ListFilter struct {
	Role   access.Role
	Active *bool
	Search string
}

func (f ListFilter) bson() bson.M {
	filter := bson.M{}
	if f.Role != "" {
		filter["role"] = f.Role
	}
	if f.Active != nil {
		filter["isActive"] = *f.Active
	}
	if f.Search != "" {
		re := access.ContainsFold(f.Search)
		filter["$or"] = []bson.M{{"name": re}, {"email": re}}
	}
	return filter
}

// List returns a page of users, newest first, with the total match count.
func (r *Repository) List(ctx context.Context, f ListFilter, skip, limit int64) ([]User, int64, error) {
	filter := f.bson()

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit).
		SetProjection(bson.M{"password": 0, "fcmTokens": 0})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find users: %w", err)
	}
	defer cursor.Close(ctx)

	users := []User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, 0, fmt.Errorf("decode users: %w", err)
	}
	return users, total, nil
}

// CountByRole returns the number of users per role.
func (r *Repository) CountByRole(ctx context.Context) (map[access.Role]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$role", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate roles: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Role  access.Role `bson:"_id"`
		Count int64       `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode roles: %w", err)
	}

	counts := make(map[access.Role]int64, len(rows))
	for _, row := range rows {
		counts[row.Role] = row.Count
	}
	return counts, nil
}
