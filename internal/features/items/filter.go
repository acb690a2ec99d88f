package items

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xyz-asif/lostfound/internal/pkg/access"
	"github.com/xyz-asif/lostfound/internal/pkg/pagination"
)

// Filter is the typed form of every item query the API issues.
type Filter struct {
	Category   Category
	Type       ItemType
	Statuses   []Status
	Location   string
	District   string
	Search     string
	ReportedBy *primitive.ObjectID
	ClaimedBy  *primitive.ObjectID
	ClaimState ClaimStatus
	From       *time.Time
	To         *time.Time
	// OpenAt keeps only items whose expiry date is still ahead of it.
	OpenAt     *time.Time
	Scope      access.Scope
}

// BSON renders the filter. Location, search and scope clauses are combined
// under $and so none of them overwrites another.
func (f Filter) BSON() bson.M {
	filter := bson.M{}
	var and []bson.M

	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	switch len(f.Statuses) {
	case 0:
	case 1:
		filter["status"] = f.Statuses[0]
	default:
		filter["status"] = bson.M{"$in": f.Statuses}
	}
	if f.District != "" {
		filter["district"] = access.ContainsFold(f.District)
	}
	if f.ReportedBy != nil {
		filter["reportedBy"] = *f.ReportedBy
	}

	switch {
	case f.ClaimedBy != nil && f.ClaimState != "":
		filter["claims"] = bson.M{"$elemMatch": bson.M{"claimant": *f.ClaimedBy, "status": f.ClaimState}}
	case f.ClaimedBy != nil:
		filter["claims.claimant"] = *f.ClaimedBy
	case f.ClaimState != "":
		filter["claims.status"] = f.ClaimState
	}

	if f.From != nil || f.To != nil {
		date := bson.M{}
		if f.From != nil {
			date["$gte"] = *f.From
		}
		if f.To != nil {
			date["$lte"] = *f.To
		}
		filter["date"] = date
	}
	if f.OpenAt != nil {
		filter["expiryDate"] = bson.M{"$gt": *f.OpenAt}
	}

	if f.Location != "" {
		and = append(and, bson.M{"location": access.ContainsFold(f.Location)})
	}
	if f.Search != "" {
		re := access.ContainsFold(f.Search)
		and = append(and, bson.M{"$or": []bson.M{{"title": re}, {"description": re}, {"location": re}}})
	}
	if loc := f.Scope.LocationFilter(); loc != nil {
		and = append(and, loc)
	}

	if len(and) > 0 {
		filter["$and"] = and
	}
	return filter
}

// ListQuery binds the query string of list endpoints.
type ListQuery struct {
	pagination.Query
	Category string `form:"category" binding:"omitempty,oneof=electronics documents jewelry clothing accessories bags keys wallets pets other"`
	Type     string `form:"type" binding:"omitempty,oneof=lost found"`
	Status   string `form:"status" binding:"omitempty,oneof=active claimed returned expired all"`
	Location string `form:"location" binding:"max=200"`
	District string `form:"district" binding:"max=100"`
	Search   string `form:"search" binding:"max=100"`
	Branch   string `form:"branch" binding:"max=200"`
	Sort     string `form:"sort" binding:"omitempty,oneof=newest oldest date"`
}

// Filter converts the query. An empty status means active items only and
// "all" lifts the status restriction.
func (q ListQuery) Filter(defaultStatus Status) Filter {
	f := Filter{
		Category: Category(q.Category),
		Type:     ItemType(q.Type),
		Location: strings.TrimSpace(q.Location),
		District: strings.TrimSpace(q.District),
		Search:   strings.TrimSpace(q.Search),
	}
	switch q.Status {
	case "all":
	case "":
		if defaultStatus != "" {
			f.Statuses = []Status{defaultStatus}
		}
	default:
		f.Statuses = []Status{Status(q.Status)}
	}
	return f
}

// SortOrder maps the sort parameter onto a Mongo sort document.
func SortOrder(sort string) bson.D {
	switch sort {
	case "oldest":
		return bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}
	case "date":
		return bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}}
	default:
		return bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
	}
}
