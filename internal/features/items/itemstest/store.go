// Package itemstest provides an in-memory items.Store for handler and
// service tests.
package itemstest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xyz-asif/lostfound/internal/features/items"
)

// Store keeps items in a map and mimics the versioned replace of the Mongo
// repository. Conflicts, when set, makes that many Mutate commits lose the
// version race before succeeding.
type Store struct {
	mu        sync.Mutex
	items     map[primitive.ObjectID]*items.Item
	Conflicts int
	Attempts  int
}

func New(seed ...*items.Item) *Store {
	s := &Store{items: map[primitive.ObjectID]*items.Item{}}
	for _, item := range seed {
		if item.ID.IsZero() {
			item.ID = primitive.NewObjectID()
		}
		s.items[item.ID] = clone(item)
	}
	return s
}

func (s *Store) Create(_ context.Context, item *items.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID.IsZero() {
		item.ID = primitive.NewObjectID()
	}
	if item.Claims == nil {
		item.Claims = []items.Claim{}
	}
	s.items[item.ID] = clone(item)
	return nil
}

func (s *Store) GetByID(_ context.Context, id primitive.ObjectID) (*items.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, items.ErrItemNotFound
	}
	return clone(item), nil
}

// List supports the subset of Filter used by handlers: statuses, reporter,
// claimant and branch scope.
func (s *Store) List(_ context.Context, f items.Filter, _ bson.D, skip, limit int64) ([]items.Item, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []items.Item
	for _, item := range s.items {
		if matches(f, item) {
			matched = append(matched, *clone(item))
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	if skip >= total {
		return []items.Item{}, total, nil
	}
	return matched[skip:min(skip+limit, total)], total, nil
}

func (s *Store) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return items.ErrItemNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *Store) Mutate(ctx context.Context, id primitive.ObjectID, fn func(*items.Item) error) (*items.Item, error) {
	for attempt := 0; attempt < 3; attempt++ {
		item, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := fn(item); err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.Attempts++
		if s.Conflicts > 0 {
			s.Conflicts--
			s.mu.Unlock()
			continue
		}
		item.Version++
		s.items[id] = clone(item)
		s.mu.Unlock()
		return item, nil
	}
	return nil, items.ErrConcurrentUpdate
}

// Get returns the stored copy, for assertions.
func (s *Store) Get(id primitive.ObjectID) *items.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.items[id]; ok {
		return clone(item)
	}
	return nil
}

func matches(f items.Filter, item *items.Item) bool {
	if len(f.Statuses) > 0 {
		ok := false
		for _, st := range f.Statuses {
			ok = ok || item.Status == st
		}
		if !ok {
			return false
		}
	}
	if f.ReportedBy != nil && item.ReportedBy != *f.ReportedBy {
		return false
	}
	if f.ClaimedBy != nil {
		claim := item.ClaimBy(*f.ClaimedBy)
		if claim == nil || (f.ClaimState != "" && claim.Status != f.ClaimState) {
			return false
		}
	} else if f.ClaimState != "" {
		ok := false
		for _, c := range item.Claims {
			ok = ok || c.Status == f.ClaimState
		}
		if !ok {
			return false
		}
	}
	if f.OpenAt != nil && !item.ExpiryDate.After(*f.OpenAt) {
		return false
	}
	if f.Location != "" && !strings.Contains(strings.ToLower(item.Location), strings.ToLower(f.Location)) {
		return false
	}
	return f.Scope.Matches(item.Location)
}

func clone(item *items.Item) *items.Item {
	c := *item
	c.Claims = append([]items.Claim(nil), item.Claims...)
	c.Images = append([]items.Image(nil), item.Images...)
	if c.Claims == nil {
		c.Claims = []items.Claim{}
	}
	return &c
}
