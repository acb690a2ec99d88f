package analytics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/xyz-asif/lostfound/internal/pkg/access"
)

// cannedStore answers each pipeline by its $group _id expression.
type cannedStore struct {
	mu        sync.Mutex
	results   map[string][]bson.M
	pipelines []mongo.Pipeline
	count     int64
	err       error
}

func groupKey(p mongo.Pipeline) string {
	for _, st := range p {
		if st[0].Key == "$group" {
			return fmt.Sprint(st[0].Value.(bson.D)[0].Value)
		}
	}
	return ""
}

func (s *cannedStore) Aggregate(_ context.Context, p mongo.Pipeline, out interface{}) error {
	s.mu.Lock()
	s.pipelines = append(s.pipelines, p)
	docs := s.results[groupKey(p)]
	s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	if docs == nil {
		docs = []bson.M{}
	}
	raw, err := bson.Marshal(bson.M{"v": docs})
	if err != nil {
		return err
	}
	return bson.Raw(raw).Lookup("v").Unmarshal(out)
}

func (s *cannedStore) Count(context.Context, bson.M) (int64, error) {
	return s.count, s.err
}

func TestOverview(t *testing.T) {
	store := &cannedStore{results: map[string][]bson.M{
		"$status":        {{"_id": "active", "count": 3}, {"_id": "returned", "count": 1}},
		"$type":          {{"_id": "lost", "count": 4}},
		"$category":      {{"_id": "wallets", "count": 4}},
		"$claims.status": {{"_id": "pending", "count": 2}},
		"<nil>":          {{"_id": nil, "avg": 1.5}},
	}}
	svc := NewService(store)
	svc.now = func() time.Time { return time.Date(2026, 6, 15, 18, 0, 0, 0, time.UTC) }

	out, err := svc.Overview(context.Background(), access.Scope{Branch: "Central"}, 0)
	require.NoError(t, err)
	require.Equal(t, DefaultTrendDays, out.Days)
	require.Equal(t, "Central", out.Branch)
	require.Equal(t, int64(4), out.Totals.Items)
	require.Equal(t, int64(3), out.Totals.Active)
	require.Equal(t, int64(2), out.Totals.PendingClaims)
	require.Equal(t, int64(4), out.Totals.Lost)
	require.Equal(t, 1.5, out.AverageResponseDays)
	require.Equal(t, []Bucket{{Key: "wallets", Count: 4}}, out.CategoryBreakdown)
	require.NotNil(t, out.DailyTrend)
	require.Len(t, store.pipelines, 6)
}

func TestOverview_ClampsDays(t *testing.T) {
	svc := NewService(&cannedStore{})
	out, err := svc.Overview(context.Background(), access.Scope{}, 5000)
	require.NoError(t, err)
	require.Equal(t, MaxTrendDays, out.Days)
}

func TestOverview_PropagatesFailure(t *testing.T) {
	svc := NewService(&cannedStore{err: errors.New("aggregate failed")})
	_, err := svc.Overview(context.Background(), access.Scope{}, 7)
	require.ErrorContains(t, err, "aggregate failed")
}

func TestBranchStats(t *testing.T) {
	store := &cannedStore{
		results: map[string][]bson.M{"$status": {{"_id": "claimed", "count": 2}}},
		count:   3,
	}
	stats, err := NewService(store).BranchStats(context.Background(), access.Scope{Branch: "North Branch"})
	require.NoError(t, err)
	require.Equal(t, int64(3), stats.ReportedToday)
	require.Equal(t, int64(2), stats.Totals.Claimed)
	require.Equal(t, "North Branch", stats.Branch)
}
