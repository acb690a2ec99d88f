package analytics

import (
	"github.com/xyz-asif/lostfound/internal/features/items"
	"github.com/xyz-asif/lostfound/internal/pkg/pagination"
)

const (
	DefaultTrendDays = 30
	MaxTrendDays     = 365
)

// Bucket is one group of a breakdown.
type Bucket struct {
	Key   string `bson:"_id" json:"key"`
	Count int64  `bson:"count" json:"count"`
}

// DailyPoint counts items created on one UTC day.
type DailyPoint struct {
	Date  string `bson:"_id" json:"date"`
	Lost  int64  `bson:"lost" json:"lost"`
	Found int64  `bson:"found" json:"found"`
	Total int64  `bson:"total" json:"total"`
}

type Totals struct {
	Items    int64 `json:"totalItems"`
	Active   int64 `json:"activeItems"`
	Claimed  int64 `json:"claimedItems"`
	Returned int64 `json:"returnedItems"`
	Expired  int64 `json:"expiredItems"`
	Lost     int64 `json:"lostItems"`
	Found    int64 `json:"foundItems"`

	Claims         int64 `json:"totalClaims"`
	PendingClaims  int64 `json:"pendingClaims"`
	ApprovedClaims int64 `json:"approvedClaims"`
	RejectedClaims int64 `json:"rejectedClaims"`
}

// Overview is the full analytics report for one scope.
type Overview struct {
	Branch              string       `json:"branch,omitempty"`
	Days                int          `json:"days"`
	Totals              Totals       `json:"totals"`
	StatusBreakdown     []Bucket     `json:"statusBreakdown"`
	CategoryBreakdown   []Bucket     `json:"categoryBreakdown"`
	TypeBreakdown       []Bucket     `json:"typeBreakdown"`
	ClaimStatus         []Bucket     `json:"claimStatusBreakdown"`
	DailyTrend          []DailyPoint `json:"dailyTrend"`
	AverageResponseDays float64      `json:"averageResponseDays"`
}

// UserStats is the personal dashboard of a plain user.
type UserStats struct {
	ItemsReported   int64 `json:"itemsReported"`
	ActiveItems     int64 `json:"activeItems"`
	ClaimedItems    int64 `json:"claimedItems"`
	ReturnedItems   int64 `json:"returnedItems"`
	ExpiredItems    int64 `json:"expiredItems"`
	ClaimsSubmitted int64 `json:"claimsSubmitted"`
	PendingClaims   int64 `json:"pendingClaims"`
	ApprovedClaims  int64 `json:"approvedClaims"`
	RejectedClaims  int64 `json:"rejectedClaims"`
}

// BranchStats is the staff dashboard header.
type BranchStats struct {
	Branch        string `json:"branch,omitempty"`
	Totals        Totals `json:"totals"`
	ReportedToday int64  `json:"reportedToday"`
}

// AnalyticsQuery binds GET /analytics.
type AnalyticsQuery struct {
	Days   int    `form:"days" binding:"omitempty,min=1,max=365"`
	Branch string `form:"branch" binding:"max=200"`
}

// RecentQuery binds GET /dashboard/recent-items.
type RecentQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=20"`
}

// StaffItemsQuery binds the branch scoped item listings.
type StaffItemsQuery struct {
	items.ListQuery
}

type PendingClaimsQuery struct {
	pagination.Query
	Branch string `form:"branch" binding:"max=200"`
}
