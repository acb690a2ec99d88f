package analytics

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/xyz-asif/lostfound/internal/features/items"
)

const dayMillis = 24 * 60 * 60 * 1000

// GroupCount counts documents per value of field.
func GroupCount(match bson.M, field string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + field},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
}

// DailyTrend buckets items created since since by UTC day, split by type.
func DailyTrend(match bson.M, since time.Time) mongo.Pipeline {
	windowed := bson.M{"$and": []bson.M{match, {"createdAt": bson.M{"$gte": since}}}}
	countType := func(t items.ItemType) bson.D {
		return bson.D{{Key: "$sum", Value: bson.D{{Key: "$cond", Value: bson.A{
			bson.D{{Key: "$eq", Value: bson.A{"$type", t}}}, 1, 0,
		}}}}}
	}
	return mongo.Pipeline{
		{{Key: "$match", Value: windowed}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$dateToString", Value: bson.D{
				{Key: "format", Value: "%Y-%m-%d"},
				{Key: "date", Value: "$createdAt"},
			}}}},
			{Key: "lost", Value: countType(items.TypeLost)},
			{Key: "found", Value: countType(items.TypeFound)},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
}

// AverageResponse averages the days between an item's creation and its
// earliest claim, over items that have at least one claim.
func AverageResponse(match bson.M) mongo.Pipeline {
	withClaims := bson.M{"$and": []bson.M{match, {"claims.0": bson.M{"$exists": true}}}}
	return mongo.Pipeline{
		{{Key: "$match", Value: withClaims}},
		{{Key: "$project", Value: bson.D{
			{Key: "responseDays", Value: bson.D{{Key: "$divide", Value: bson.A{
				bson.D{{Key: "$subtract", Value: bson.A{
					bson.D{{Key: "$min", Value: "$claims.createdAt"}},
					"$createdAt",
				}}},
				dayMillis,
			}}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "avg", Value: bson.D{{Key: "$avg", Value: "$responseDays"}}},
		}}},
	}
}

// ClaimStatus counts embedded claims per status. claimMatch, when non-nil,
// filters the unwound claims.
func ClaimStatus(match, claimMatch bson.M) mongo.Pipeline {
	p := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$unwind", Value: "$claims"}},
	}
	if claimMatch != nil {
		p = append(p, bson.D{{Key: "$match", Value: claimMatch}})
	}
	return append(p,
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$claims.status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	)
}

// BuildTotals folds breakdowns into headline numbers.
func BuildTotals(status, types, claims []Bucket) Totals {
	var t Totals
	for _, b := range status {
		t.Items += b.Count
		switch items.Status(b.Key) {
		case items.StatusActive:
			t.Active = b.Count
		case items.StatusClaimed:
			t.Claimed = b.Count
		case items.StatusReturned:
			t.Returned = b.Count
		case items.StatusExpired:
			t.Expired = b.Count
		}
	}
	for _, b := range types {
		switch items.ItemType(b.Key) {
		case items.TypeLost:
			t.Lost = b.Count
		case items.TypeFound:
			t.Found = b.Count
		}
	}
	for _, b := range claims {
		t.Claims += b.Count
		switch items.ClaimStatus(b.Key) {
		case items.ClaimPending:
			t.PendingClaims = b.Count
		case items.ClaimApproved:
			t.ApprovedClaims = b.Count
		case items.ClaimRejected:
			t.RejectedClaims = b.Count
		}
	}
	return t
}
