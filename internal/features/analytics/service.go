package analytics

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/xyz-asif/lostfound/internal/pkg/access"
	"github.com/xyz-asif/lostfound/internal/pkg/metrics"
	"github.com/xyz-asif/lostfound/internal/pkg/telemetry"
)

const queryTimeout = 10 * time.Second

// Store is the aggregation surface of the items collection.
type Store interface {
	Aggregate(ctx context.Context, pipeline mongo.Pipeline, out interface{}) error
	Count(ctx context.Context, filter bson.M) (int64, error)
}

// Service computes role scoped reports. Independent pipelines of a report
// run concurrently and the first failure cancels the rest.
type Service struct {
	store  Store
	tracer trace.Tracer
	now    func() time.Time
}

func NewService(store Store) *Service {
	return &Service{
		store:  store,
		tracer: telemetry.Tracer("analytics"),
		now:    time.Now,
	}
}

// Overview reports on every item inside scope. days bounds the daily trend.
func (s *Service) Overview(ctx context.Context, scope access.Scope, days int) (*Overview, error) {
	start := time.Now()
	defer metrics.ObserveAnalytics(start)

	if days <= 0 {
		days = DefaultTrendDays
	}
	days = min(days, MaxTrendDays)

	ctx, span := s.tracer.Start(ctx, "analytics.Overview", trace.WithAttributes(
		attribute.String("branch", scope.Branch),
		attribute.Int("days", days),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	match := scope.Apply(bson.M{})
	since := startOfDay(s.now()).AddDate(0, 0, -(days - 1))

	out := &Overview{Branch: scope.Branch, Days: days}
	var avg []struct {
		Avg float64 `bson:"avg"`
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.store.Aggregate(ctx, GroupCount(match, "status"), &out.StatusBreakdown) })
	g.Go(func() error { return s.store.Aggregate(ctx, GroupCount(match, "category"), &out.CategoryBreakdown) })
	g.Go(func() error { return s.store.Aggregate(ctx, GroupCount(match, "type"), &out.TypeBreakdown) })
	g.Go(func() error { return s.store.Aggregate(ctx, ClaimStatus(match, nil), &out.ClaimStatus) })
	g.Go(func() error { return s.store.Aggregate(ctx, DailyTrend(match, since), &out.DailyTrend) })
	g.Go(func() error { return s.store.Aggregate(ctx, AverageResponse(match), &avg) })
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("analytics overview: %w", err)
	}

	if len(avg) > 0 {
		out.AverageResponseDays = avg[0].Avg
	}
	out.Totals = BuildTotals(out.StatusBreakdown, out.TypeBreakdown, out.ClaimStatus)
	out.ensureSlices()
	return out, nil
}

// BranchStats is the staff dashboard summary for scope.
func (s *Service) BranchStats(ctx context.Context, scope access.Scope) (*BranchStats, error) {
	start := time.Now()
	defer metrics.ObserveAnalytics(start)

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	match := scope.Apply(bson.M{})
	today := scope.Apply(bson.M{"createdAt": bson.M{"$gte": startOfDay(s.now())}})

	var status, types, claims []Bucket
	var reportedToday int64

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.store.Aggregate(ctx, GroupCount(match, "status"), &status) })
	g.Go(func() error { return s.store.Aggregate(ctx, GroupCount(match, "type"), &types) })
	g.Go(func() error { return s.store.Aggregate(ctx, ClaimStatus(match, nil), &claims) })
	g.Go(func() error {
		n, err := s.store.Count(ctx, today)
		reportedToday = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("branch stats: %w", err)
	}

	return &BranchStats{
		Branch:        scope.Branch,
		Totals:        BuildTotals(status, types, claims),
		ReportedToday: reportedToday,
	}, nil
}

// UserStats counts what user reported and claimed.
func (s *Service) UserStats(ctx context.Context, user primitive.ObjectID) (*UserStats, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var reported, claimed []Bucket

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.store.Aggregate(ctx, GroupCount(bson.M{"reportedBy": user}, "status"), &reported)
	})
	g.Go(func() error {
		return s.store.Aggregate(ctx, ClaimStatus(bson.M{"claims.claimant": user}, bson.M{"claims.claimant": user}), &claimed)
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}

	t := BuildTotals(reported, nil, claimed)
	return &UserStats{
		ItemsReported:   t.Items,
		ActiveItems:     t.Active,
		ClaimedItems:    t.Claimed,
		ReturnedItems:   t.Returned,
		ExpiredItems:    t.Expired,
		ClaimsSubmitted: t.Claims,
		PendingClaims:   t.PendingClaims,
		ApprovedClaims:  t.ApprovedClaims,
		RejectedClaims:  t.RejectedClaims,
	}, nil
}

func (o *Overview) ensureSlices() {
	if o.StatusBreakdown == nil {
		o.StatusBreakdown = []Bucket{}
	}
	if o.CategoryBreakdown == nil {
		o.CategoryBreakdown = []Bucket{}
	}
	if o.TypeBreakdown == nil {
		o.TypeBreakdown = []Bucket{}
	}
	if o.ClaimStatus == nil {
		o.ClaimStatus = []Bucket{}
	}
	if o.DailyTrend == nil {
		o.DailyTrend = []DailyPoint{}
	}
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
