package claims

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xyz-asif/lostfound/internal/features/items"
	"github.com/xyz-asif/lostfound/internal/features/items/itemstest"
	"github.com/xyz-asif/lostfound/internal/features/notifications"
	"github.com/xyz-asif/lostfound/internal/pkg/access"
	"github.com/xyz-asif/lostfound/internal/pkg/logger"
	apperrors "github.com/xyz-asif/lostfound/pkg/errors"
)

var now = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

type delivery struct {
	recipient primitive.ObjectID
	msg       notifications.Message
}

type recordingNotifier struct {
	mu         sync.Mutex
	deliveries []delivery
}

func (n *recordingNotifier) Notify(_ context.Context, recipient primitive.ObjectID, msg notifications.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deliveries = append(n.deliveries, delivery{recipient, msg})
}

func (n *recordingNotifier) NotifyMany(ctx context.Context, recipients []primitive.ObjectID, msg notifications.Message) {
	for _, r := range recipients {
		n.Notify(ctx, r, msg)
	}
}

func (n *recordingNotifier) of(t notifications.Type) []primitive.ObjectID {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []primitive.ObjectID
	for _, d := range n.deliveries {
		if d.msg.Type == t {
			out = append(out, d.recipient)
		}
	}
	return out
}

func (n *recordingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deliveries = nil
}

type staffList struct {
	ids []primitive.ObjectID
	err error
}

func (s staffList) ActiveStaffIDs(context.Context) ([]primitive.ObjectID, error) {
	return s.ids, s.err
}

type env struct {
	store    *itemstest.Store
	notifier *recordingNotifier
	svc      *Service
	item     *items.Item
	reporter access.Principal
	staff    access.Principal
	admin    access.Principal
}

func setup(t *testing.T) *env {
	t.Helper()
	e := &env{
		reporter: access.Principal{UserID: primitive.NewObjectID(), Role: access.RoleUser},
		staff:    access.Principal{UserID: primitive.NewObjectID(), Role: access.RoleStaff, Branch: "Central"},
		admin:    access.Principal{UserID: primitive.NewObjectID(), Role: access.RoleAdmin},
		notifier: &recordingNotifier{},
	}
	e.item = &items.Item{
		ID:         primitive.NewObjectID(),
		Title:      "Silver watch",
		Status:     items.StatusActive,
		Location:   "Central Library",
		ReportedBy: e.reporter.UserID,
		ExpiryDate: now.Add(30 * 24 * time.Hour),
		CreatedAt:  now.Add(-time.Hour),
	}
	e.store = itemstest.New(e.item)
	e.svc = NewService(e.store, e.notifier, staffList{ids: []primitive.ObjectID{e.staff.UserID, e.admin.UserID}}, logger.Nop())
	e.svc.now = func() time.Time { return now }
	return e
}

func claimant() access.Principal {
	return access.Principal{UserID: primitive.NewObjectID(), Role: access.RoleUser}
}

func TestSubmit_NotifiesReporterAndStaff(t *testing.T) {
	e := setup(t)
	c1 := claimant()

	claim, err := e.svc.Submit(context.Background(), c1, e.item.ID, nil, "Engraved on the back")
	require.NoError(t, err)
	require.Equal(t, items.ClaimPending, claim.Status)

	stored := e.store.Get(e.item.ID)
	require.Len(t, stored.Claims, 1)
	require.Equal(t, int64(1), stored.Version)

	require.Equal(t, []primitive.ObjectID{e.reporter.UserID}, e.notifier.of(notifications.TypeClaimReceived))
	require.ElementsMatch(t, []primitive.ObjectID{e.staff.UserID, e.admin.UserID}, e.notifier.of(notifications.TypeClaimSubmitted))
}

func TestSubmit_StaffLookupFailureStillNotifiesReporter(t *testing.T) {
	e := setup(t)
	e.svc.staff = staffList{err: errors.New("mongo unavailable")}

	_, err := e.svc.Submit(context.Background(), claimant(), e.item.ID, nil, "")
	require.NoError(t, err)
	require.Len(t, e.notifier.of(notifications.TypeClaimReceived), 1)
	require.Empty(t, e.notifier.of(notifications.TypeClaimSubmitted))
}

func TestSubmit_Rejections(t *testing.T) {
	e := setup(t)
	c1 := claimant()

	_, err := e.svc.Submit(context.Background(), c1, e.item.ID, nil, "")
	require.NoError(t, err)

	_, err = e.svc.Submit(context.Background(), c1, e.item.ID, nil, "")
	require.ErrorIs(t, err, items.ErrDuplicateClaim)

	_, err = e.svc.Submit(context.Background(), e.reporter, e.item.ID, nil, "")
	require.ErrorIs(t, err, items.ErrOwnItem)

	_, err = e.svc.Submit(context.Background(), claimant(), primitive.NewObjectID(), nil, "")
	require.ErrorIs(t, err, items.ErrItemNotFound)
}

func TestSubmit_AfterExpiryDateEvenIfStillActive(t *testing.T) {
	e := setup(t)
	e.svc.now = func() time.Time { return now.Add(31 * 24 * time.Hour) }

	_, err := e.svc.Submit(context.Background(), claimant(), e.item.ID, nil, "")
	require.ErrorIs(t, err, items.ErrClaimWindowClosed)
	require.Equal(t, items.StatusActive, e.store.Get(e.item.ID).Status)
	require.Empty(t, e.notifier.deliveries)
}

// Two claimants, the second is approved: the first is auto-rejected and
// every party hears about it.
func TestApprove_AutoRejectsAndFansOut(t *testing.T) {
	e := setup(t)
	c1, c2 := claimant(), claimant()
	ctx := context.Background()

	_, err := e.svc.Submit(ctx, c1, e.item.ID, nil, "")
	require.NoError(t, err)
	claim2, err := e.svc.Submit(ctx, c2, e.item.ID, nil, "")
	require.NoError(t, err)
	e.notifier.reset()

	item, err := e.svc.UpdateStatus(ctx, e.staff, e.item.ID, claim2.ID, items.ClaimApproved, "Serial number matches")
	require.NoError(t, err)
	require.Equal(t, items.StatusClaimed, item.Status)

	stored := e.store.Get(e.item.ID)
	require.Equal(t, items.ClaimRejected, stored.ClaimBy(c1.UserID).Status)
	require.Equal(t, items.AutoRejectNote, stored.ClaimBy(c1.UserID).ReviewNotes)
	require.Equal(t, items.ClaimApproved, stored.ClaimBy(c2.UserID).Status)

	require.Equal(t, []primitive.ObjectID{c2.UserID}, e.notifier.of(notifications.TypeClaimApproved))
	require.Equal(t, []primitive.ObjectID{e.reporter.UserID}, e.notifier.of(notifications.TypeItemClaimed))
	require.Equal(t, []primitive.ObjectID{c1.UserID}, e.notifier.of(notifications.TypeClaimRejected))
}

func TestUpdateStatus_Access(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	claim, err := e.svc.Submit(ctx, claimant(), e.item.ID, nil, "")
	require.NoError(t, err)

	otherBranch := access.Principal{UserID: primitive.NewObjectID(), Role: access.RoleStaff, Branch: "North Branch"}
	_, err = e.svc.UpdateStatus(ctx, otherBranch, e.item.ID, claim.ID, items.ClaimApproved, "")
	require.ErrorIs(t, err, access.ErrForbidden)

	_, err = e.svc.UpdateStatus(ctx, e.reporter, e.item.ID, claim.ID, items.ClaimApproved, "")
	require.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))

	_, err = e.svc.UpdateStatus(ctx, e.admin, e.item.ID, claim.ID, items.ClaimStatus("bogus"), "")
	require.ErrorIs(t, err, items.ErrInvalidClaimStatus)

	require.Equal(t, items.ClaimPending, e.store.Get(e.item.ID).Claims[0].Status)
}

func TestUpdateStatus_RetriesVersionConflicts(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	claim, err := e.svc.Submit(ctx, claimant(), e.item.ID, nil, "")
	require.NoError(t, err)

	e.store.Conflicts = 2
	_, err = e.svc.UpdateStatus(ctx, e.staff, e.item.ID, claim.ID, items.ClaimRejected, "")
	require.NoError(t, err)

	e.store.Conflicts = 3
	_, err = e.svc.UpdateStatus(ctx, e.staff, e.item.ID, claim.ID, items.ClaimApproved, "")
	require.ErrorIs(t, err, items.ErrConcurrentUpdate)
	require.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
}

func TestUpdateStatus_NoChangeSendsNothing(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	claim, err := e.svc.Submit(ctx, claimant(), e.item.ID, nil, "")
	require.NoError(t, err)
	e.notifier.reset()

	_, err = e.svc.UpdateStatus(ctx, e.staff, e.item.ID, claim.ID, items.ClaimPending, "")
	require.NoError(t, err)
	require.Empty(t, e.notifier.deliveries)
}

func TestUpdateStatus_RevertApprovalHasNoSideEffects(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	c1, c2 := claimant(), claimant()
	claim1, err := e.svc.Submit(ctx, c1, e.item.ID, nil, "")
	require.NoError(t, err)
	_, err = e.svc.Submit(ctx, c2, e.item.ID, nil, "")
	require.NoError(t, err)

	_, err = e.svc.UpdateStatus(ctx, e.staff, e.item.ID, claim1.ID, items.ClaimApproved, "")
	require.NoError(t, err)
	e.notifier.reset()

	item, err := e.svc.UpdateStatus(ctx, e.staff, e.item.ID, claim1.ID, items.ClaimPending, "Reopened")
	require.NoError(t, err)
	require.Equal(t, items.StatusClaimed, item.Status)

	stored := e.store.Get(e.item.ID)
	require.Equal(t, items.ClaimPending, stored.ClaimBy(c1.UserID).Status)
	require.Equal(t, items.ClaimRejected, stored.ClaimBy(c2.UserID).Status)
	require.Equal(t, items.AutoRejectNote, stored.ClaimBy(c2.UserID).ReviewNotes)
	require.Empty(t, e.notifier.deliveries)
}

func TestMarkReturned_ClaimMustBeApproved(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	c1, c2 := claimant(), claimant()
	claim1, err := e.svc.Submit(ctx, c1, e.item.ID, nil, "")
	require.NoError(t, err)
	claim2, err := e.svc.Submit(ctx, c2, e.item.ID, nil, "")
	require.NoError(t, err)

	_, err = e.svc.UpdateStatus(ctx, e.staff, e.item.ID, claim1.ID, items.ClaimApproved, "")
	require.NoError(t, err)
	e.notifier.reset()

	_, err = e.svc.MarkReturned(ctx, e.staff, e.item.ID, &claim2.ID)
	require.ErrorIs(t, err, items.ErrClaimNotApproved)
	require.Equal(t, items.StatusClaimed, e.store.Get(e.item.ID).Status)
	require.Empty(t, e.notifier.deliveries)
}

func TestMarkReturned(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	c1 := claimant()
	claim, err := e.svc.Submit(ctx, c1, e.item.ID, nil, "")
	require.NoError(t, err)

	_, err = e.svc.MarkReturned(ctx, e.reporter, e.item.ID, nil)
	require.ErrorIs(t, err, items.ErrItemNotClaimed)

	_, err = e.svc.UpdateStatus(ctx, e.staff, e.item.ID, claim.ID, items.ClaimApproved, "")
	require.NoError(t, err)
	e.notifier.reset()

	_, err = e.svc.MarkReturned(ctx, c1, e.item.ID, nil)
	require.ErrorIs(t, err, access.ErrForbidden)

	item, err := e.svc.MarkReturned(ctx, e.staff, e.item.ID, &claim.ID)
	require.NoError(t, err)
	require.Equal(t, items.StatusReturned, item.Status)
	require.Equal(t, c1.UserID, *item.ReturnedTo)
	require.Equal(t, []primitive.ObjectID{e.reporter.UserID}, e.notifier.of(notifications.TypeItemReturned))

	_, err = e.svc.UpdateStatus(ctx, e.staff, e.item.ID, claim.ID, items.ClaimRejected, "")
	require.ErrorIs(t, err, items.ErrItemReturned)
}

func TestMyClaims_OnlyOwnClaim(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	c1, c2 := claimant(), claimant()
	_, err := e.svc.Submit(ctx, c1, e.item.ID, nil, "mine")
	require.NoError(t, err)
	_, err = e.svc.Submit(ctx, c2, e.item.ID, nil, "theirs")
	require.NoError(t, err)

	list, total, err := e.svc.MyClaims(ctx, c1.UserID, "", 0, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, list[0].Claims, 1)
	require.Equal(t, "mine", list[0].Claims[0].Notes)
	require.Equal(t, 2, list[0].ClaimCount)

	_, total, err = e.svc.MyClaims(ctx, c1.UserID, items.ClaimApproved, 0, 10)
	require.NoError(t, err)
	require.Zero(t, total)
}
