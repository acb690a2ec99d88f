package claims

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xyz-asif/lostfound/internal/features/items"
	"github.com/xyz-asif/lostfound/internal/features/notifications"
	"github.com/xyz-asif/lostfound/internal/pkg/access"
	"github.com/xyz-asif/lostfound/internal/pkg/logger"
	"github.com/xyz-asif/lostfound/internal/pkg/metrics"
	"github.com/xyz-asif/lostfound/internal/pkg/telemetry"
)

// ItemStore is the slice of the item repository the claim service needs.
type ItemStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*items.Item, error)
	List(ctx context.Context, f items.Filter, sort bson.D, skip, limit int64) ([]items.Item, int64, error)
	Mutate(ctx context.Context, id primitive.ObjectID, fn func(*items.Item) error) (*items.Item, error)
}

// StaffDirectory lists the users notified about every new claim.
type StaffDirectory interface {
	ActiveStaffIDs(ctx context.Context) ([]primitive.ObjectID, error)
}

// Service runs claim transitions against the item store and fans out
// notifications once the item document is committed.
type Service struct {
	items    ItemStore
	notifier notifications.Notifier
	staff    StaffDirectory
	log      logger.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

func NewService(store ItemStore, notifier notifications.Notifier, staff StaffDirectory, log logger.Logger) *Service {
	return &Service{
		items:    store,
		notifier: notifier,
		staff:    staff,
		log:      log.With("component", "claims"),
		tracer:   telemetry.Tracer("claims"),
		now:      time.Now,
	}
}

// Submit appends a pending claim by p to the item.
func (s *Service) Submit(ctx context.Context, p access.Principal, itemID primitive.ObjectID, docs []items.Document, notes string) (claim *items.Claim, err error) {
	ctx, op := s.begin(ctx, "submit", itemID)
	defer func() { op.end(err) }()

	var submitted items.Claim
	item, err := s.items.Mutate(ctx, itemID, func(item *items.Item) error {
		c, err := item.SubmitClaim(p.UserID, docs, notes, s.now())
		if err != nil {
			return err
		}
		submitted = *c
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ClaimsSubmitted.Inc()
	s.log.InfoContext(ctx, "claim submitted", "item_id", itemID.Hex(), "claim_id", submitted.ID.Hex(), "claimant", p.UserID.Hex())

	s.notifySubmitted(ctx, item, submitted)
	return &submitted, nil
}

// UpdateStatus reviews a claim. Only staff covering the item's branch and
// admins may review.
func (s *Service) UpdateStatus(ctx context.Context, p access.Principal, itemID, claimID primitive.ObjectID, status items.ClaimStatus, notes string) (item *items.Item, err error) {
	ctx, op := s.begin(ctx, "update_status", itemID)
	op.span.SetAttributes(attribute.String("claim.id", claimID.Hex()), attribute.String("claim.status", string(status)))
	defer func() { op.end(err) }()

	var tr *items.Transition
	item, err = s.items.Mutate(ctx, itemID, func(item *items.Item) error {
		if err := p.Require(access.ReviewClaims, item.Resource()); err != nil {
			return err
		}
		t, err := item.UpdateClaimStatus(claimID, status, notes, p.UserID, s.now())
		if err != nil {
			return err
		}
		tr = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	if tr.Changed() {
		metrics.ClaimTransitions.WithLabelValues(string(tr.Claim.Status)).Inc()
	}
	if n := len(tr.AutoRejected); n > 0 {
		metrics.ClaimTransitions.WithLabelValues(string(items.ClaimRejected)).Add(float64(n))
	}
	s.log.InfoContext(ctx, "claim reviewed",
		"item_id", itemID.Hex(),
		"claim_id", claimID.Hex(),
		"from", tr.Previous,
		"to", tr.Claim.Status,
		"auto_rejected", len(tr.AutoRejected),
	)

	s.notifyReviewed(ctx, item, tr, p.UserID)
	return item, nil
}

// MarkReturned closes a claimed item. claimID is optional.
func (s *Service) MarkReturned(ctx context.Context, p access.Principal, itemID primitive.ObjectID, claimID *primitive.ObjectID) (item *items.Item, err error) {
	ctx, op := s.begin(ctx, "mark_returned", itemID)
	defer func() { op.end(err) }()

	item, err = s.items.Mutate(ctx, itemID, func(item *items.Item) error {
		if err := p.Require(access.MarkReturned, item.Resource()); err != nil {
			return err
		}
		_, err := item.MarkReturned(claimID, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.ItemsReturned.Inc()
	s.log.InfoContext(ctx, "item returned", "item_id", itemID.Hex(), "by", p.UserID.Hex())

	msg := notifications.Message{
		Type:        notifications.TypeItemReturned,
		Title:       "Item returned",
		Message:     fmt.Sprintf("Your item %q has been marked as returned.", item.Title),
		RelatedItem: &item.ID,
		RelatedUser: item.ReturnedTo,
	}
	s.notifier.Notify(ctx, item.ReportedBy, msg)
	return item, nil
}

// MyClaims lists the items user has claimed, each trimmed to the caller's
// own claim. status narrows to claims in that state when set.
func (s *Service) MyClaims(ctx context.Context, user primitive.ObjectID, status items.ClaimStatus, skip, limit int64) ([]items.Item, int64, error) {
	f := items.Filter{ClaimedBy: &user, ClaimState: status}
	list, total, err := s.items.List(ctx, f, items.SortOrder("newest"), skip, limit)
	if err != nil {
		return nil, 0, err
	}
	for i := range list {
		list[i].ClaimCount = len(list[i].Claims)
		own := []items.Claim{}
		if c := list[i].ClaimBy(user); c != nil {
			own = append(own, *c)
		}
		list[i].Claims = own
	}
	return list, total, nil
}

func (s *Service) notifySubmitted(ctx context.Context, item *items.Item, claim items.Claim) {
	s.notifier.Notify(ctx, item.ReportedBy, notifications.Message{
		Type:        notifications.TypeClaimReceived,
		Title:       "New claim on your item",
		Message:     fmt.Sprintf("Someone has claimed your item %q.", item.Title),
		RelatedItem: &item.ID,
		RelatedUser: &claim.Claimant,
		Data:        map[string]interface{}{"claimId": claim.ID.Hex()},
	})

	staff, err := s.staff.ActiveStaffIDs(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "load staff for claim notification", "error", err)
		return
	}
	recipients := make([]primitive.ObjectID, 0, len(staff))
	for _, id := range staff {
		if id != item.ReportedBy && id != claim.Claimant {
			recipients = append(recipients, id)
		}
	}
	s.notifier.NotifyMany(ctx, recipients, notifications.Message{
		Type:        notifications.TypeClaimSubmitted,
		Title:       "Claim awaiting review",
		Message:     fmt.Sprintf("A new claim was submitted for %q at %s.", item.Title, item.Location),
		RelatedItem: &item.ID,
		RelatedUser: &claim.Claimant,
		Data:        map[string]interface{}{"claimId": claim.ID.Hex()},
	})
}

func (s *Service) notifyReviewed(ctx context.Context, item *items.Item, tr *items.Transition, reviewer primitive.ObjectID) {
	if !tr.Changed() {
		return
	}

	claim := tr.Claim
	switch claim.Status {
	case items.ClaimApproved:
		s.notifier.Notify(ctx, claim.Claimant, notifications.Message{
			Type:        notifications.TypeClaimApproved,
			Title:       "Claim approved",
			Message:     fmt.Sprintf("Your claim for %q has been approved.", item.Title),
			RelatedItem: &item.ID,
			RelatedUser: &reviewer,
			Data:        map[string]interface{}{"claimId": claim.ID.Hex()},
		})
		s.notifier.Notify(ctx, item.ReportedBy, notifications.Message{
			Type:        notifications.TypeItemClaimed,
			Title:       "Item claimed",
			Message:     fmt.Sprintf("A claim for your item %q has been approved.", item.Title),
			RelatedItem: &item.ID,
			RelatedUser: &claim.Claimant,
			Data:        map[string]interface{}{"claimId": claim.ID.Hex()},
		})
	case items.ClaimRejected:
		s.notifyRejected(ctx, item, claim, reviewer)
	}

	for _, other := range tr.AutoRejected {
		s.notifyRejected(ctx, item, other, reviewer)
	}
}

func (s *Service) notifyRejected(ctx context.Context, item *items.Item, claim items.Claim, reviewer primitive.ObjectID) {
	msg := fmt.Sprintf("Your claim for %q has been rejected.", item.Title)
	if claim.ReviewNotes != "" {
		msg += " " + claim.ReviewNotes
	}
	s.notifier.Notify(ctx, claim.Claimant, notifications.Message{
		Type:        notifications.TypeClaimRejected,
		Title:       "Claim rejected",
		Message:     msg,
		RelatedItem: &item.ID,
		RelatedUser: &reviewer,
		Data:        map[string]interface{}{"claimId": claim.ID.Hex()},
	})
}

// operation wraps one lifecycle call in a span and a duration sample.
type operation struct {
	name  string
	span  trace.Span
	began time.Time
}

func (s *Service) begin(ctx context.Context, name string, itemID primitive.ObjectID) (context.Context, *operation) {
	ctx, span := s.tracer.Start(ctx, "claims."+name, trace.WithAttributes(attribute.String("item.id", itemID.Hex())))
	return ctx, &operation{name: name, span: span, began: time.Now()}
}

func (o *operation) end(err error) {
	if err != nil {
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, err.Error())
	}
	o.span.End()
	metrics.ObserveLifecycle(o.name, o.began)
}
