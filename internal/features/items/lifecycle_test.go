package items

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xyz-asif/lostfound/internal/pkg/access"
	apperrors "github.com/xyz-asif/lostfound/pkg/errors"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newActiveItem() *Item {
	return &Item{
		ID:         primitive.NewObjectID(),
		Title:      "Black wallet",
		Status:     StatusActive,
		Location:   "Central Station",
		ReportedBy: primitive.NewObjectID(),
		ExpiryDate: testNow.Add(30 * 24 * time.Hour),
		Claims:     []Claim{},
	}
}

func TestSubmitClaim(t *testing.T) {
	item := newActiveItem()
	claimant := primitive.NewObjectID()

	claim, err := item.SubmitClaim(claimant, nil, "Has my initials inside", testNow)
	require.NoError(t, err)
	require.Equal(t, ClaimPending, claim.Status)
	require.Equal(t, claimant, claim.Claimant)
	require.NotNil(t, claim.VerificationDocuments)
	require.Len(t, item.Claims, 1)

	_, err = item.SubmitClaim(claimant, nil, "again", testNow)
	require.ErrorIs(t, err, ErrDuplicateClaim)
}

func TestSubmitClaim_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Item) primitive.ObjectID
		notes   string
		docs    int
		wantErr error
	}{
		{
			name:    "own item",
			mutate:  func(i *Item) primitive.ObjectID { return i.ReportedBy },
			wantErr: ErrOwnItem,
		},
		{
			name: "item already claimed",
			mutate: func(i *Item) primitive.ObjectID {
				i.Status = StatusClaimed
				return primitive.NewObjectID()
			},
			wantErr: ErrItemNotActive,
		},
		{
			name: "expired but not yet swept",
			mutate: func(i *Item) primitive.ObjectID {
				i.ExpiryDate = testNow.Add(-time.Minute)
				return primitive.NewObjectID()
			},
			wantErr: ErrClaimWindowClosed,
		},
		{
			name:    "notes too long",
			mutate:  func(*Item) primitive.ObjectID { return primitive.NewObjectID() },
			notes:   string(make([]rune, MaxClaimNotes+1)),
			wantErr: ErrNotesTooLong,
		},
		{
			name:    "too many documents",
			mutate:  func(*Item) primitive.ObjectID { return primitive.NewObjectID() },
			docs:    MaxDocuments + 1,
			wantErr: ErrTooManyDocuments,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := newActiveItem()
			claimant := tt.mutate(item)
			docs := make([]Document, tt.docs)

			_, err := item.SubmitClaim(claimant, docs, tt.notes, testNow)
			require.ErrorIs(t, err, tt.wantErr)
			require.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
			require.Empty(t, item.Claims)
		})
	}
}

func TestApproveRejectsOtherPendingClaims(t *testing.T) {
	item := newActiveItem()
	first, err := item.SubmitClaim(primitive.NewObjectID(), nil, "", testNow)
	require.NoError(t, err)
	firstID := first.ID
	second, err := item.SubmitClaim(primitive.NewObjectID(), nil, "", testNow)
	require.NoError(t, err)
	secondID := second.ID

	reviewer := primitive.NewObjectID()
	tr, err := item.UpdateClaimStatus(secondID, ClaimApproved, "matches description", reviewer, testNow)
	require.NoError(t, err)
	require.True(t, tr.Changed())
	require.Equal(t, ClaimPending, tr.Previous)
	require.Equal(t, ClaimApproved, tr.Claim.Status)

	require.Equal(t, StatusClaimed, item.Status)
	require.Len(t, tr.AutoRejected, 1)
	require.Equal(t, firstID, tr.AutoRejected[0].ID)

	rejected := item.FindClaim(firstID)
	require.Equal(t, ClaimRejected, rejected.Status)
	require.Equal(t, AutoRejectNote, rejected.ReviewNotes)
	require.Equal(t, reviewer, *rejected.ReviewedBy)

	// Re-approving the auto-rejected claim is refused while another stands.
	_, err = item.UpdateClaimStatus(firstID, ClaimApproved, "", reviewer, testNow)
	require.ErrorIs(t, err, ErrAnotherClaimApproved)
}

func TestUpdateClaimStatus_Errors(t *testing.T) {
	item := newActiveItem()
	claim, err := item.SubmitClaim(primitive.NewObjectID(), nil, "", testNow)
	require.NoError(t, err)
	reviewer := primitive.NewObjectID()

	_, err = item.UpdateClaimStatus(claim.ID, ClaimStatus("maybe"), "", reviewer, testNow)
	require.ErrorIs(t, err, ErrInvalidClaimStatus)

	_, err = item.UpdateClaimStatus(primitive.NewObjectID(), ClaimRejected, "", reviewer, testNow)
	require.ErrorIs(t, err, ErrClaimNotFound)
	require.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	item.Status = StatusReturned
	_, err = item.UpdateClaimStatus(claim.ID, ClaimRejected, "", reviewer, testNow)
	require.ErrorIs(t, err, ErrItemReturned)
}

func TestRejectLeavesItemActive(t *testing.T) {
	item := newActiveItem()
	claim, err := item.SubmitClaim(primitive.NewObjectID(), nil, "", testNow)
	require.NoError(t, err)

	tr, err := item.UpdateClaimStatus(claim.ID, ClaimRejected, "no proof", primitive.NewObjectID(), testNow)
	require.NoError(t, err)
	require.Empty(t, tr.AutoRejected)
	require.Equal(t, StatusActive, item.Status)
	require.Equal(t, "no proof", tr.Claim.ReviewNotes)
}

func TestMarkReturned(t *testing.T) {
	item := newActiveItem()
	claimant := primitive.NewObjectID()
	claim, err := item.SubmitClaim(claimant, nil, "", testNow)
	require.NoError(t, err)
	claimID := claim.ID
	sibling, err := item.SubmitClaim(primitive.NewObjectID(), nil, "", testNow)
	require.NoError(t, err)
	siblingID := sibling.ID

	_, err = item.MarkReturned(nil, testNow)
	require.ErrorIs(t, err, ErrItemNotClaimed)

	_, err = item.UpdateClaimStatus(claimID, ClaimApproved, "", primitive.NewObjectID(), testNow)
	require.NoError(t, err)

	bogus := primitive.NewObjectID()
	_, err = item.MarkReturned(&bogus, testNow)
	require.ErrorIs(t, err, ErrClaimNotFound)

	_, err = item.MarkReturned(&siblingID, testNow)
	require.ErrorIs(t, err, ErrClaimNotApproved)

	late := Claim{ID: primitive.NewObjectID(), Claimant: primitive.NewObjectID(), Status: ClaimPending}
	item.Claims = append(item.Claims, late)
	_, err = item.MarkReturned(&late.ID, testNow)
	require.ErrorIs(t, err, ErrClaimNotApproved)
	require.Equal(t, StatusClaimed, item.Status)
	require.Nil(t, item.ReturnedAt)

	returned, err := item.MarkReturned(&claimID, testNow)
	require.NoError(t, err)
	require.Equal(t, claimID, returned.ID)
	require.Equal(t, StatusReturned, item.Status)
	require.Equal(t, claimant, *item.ReturnedTo)
	require.Equal(t, testNow, *item.ReturnedAt)
}

func TestRevertApprovalToPending(t *testing.T) {
	item := newActiveItem()
	reviewer := primitive.NewObjectID()
	approved, err := item.SubmitClaim(primitive.NewObjectID(), nil, "", testNow)
	require.NoError(t, err)
	approvedID := approved.ID
	sibling, err := item.SubmitClaim(primitive.NewObjectID(), nil, "", testNow)
	require.NoError(t, err)
	siblingID := sibling.ID

	_, err = item.UpdateClaimStatus(approvedID, ClaimApproved, "", reviewer, testNow)
	require.NoError(t, err)

	later := testNow.Add(time.Hour)
	tr, err := item.UpdateClaimStatus(approvedID, ClaimPending, "needs another look", reviewer, later)
	require.NoError(t, err)
	require.True(t, tr.Changed())
	require.Equal(t, ClaimApproved, tr.Previous)
	require.Empty(t, tr.AutoRejected)

	require.Equal(t, StatusClaimed, item.Status)
	require.Equal(t, ClaimPending, item.FindClaim(approvedID).Status)
	other := item.FindClaim(siblingID)
	require.Equal(t, ClaimRejected, other.Status)
	require.Equal(t, AutoRejectNote, other.ReviewNotes)
	require.Equal(t, testNow, *other.ReviewedAt)
}

func TestHandover(t *testing.T) {
	item := newActiveItem()
	require.NoError(t, item.Handover("PR-2026-001", testNow))
	require.True(t, item.HandedOverToPolice)
	require.Equal(t, "PR-2026-001", item.PoliceReportNumber)

	item.Status = StatusReturned
	require.ErrorIs(t, item.Handover("PR-2", testNow), ErrItemReturned)
}

func TestOverrideStatus(t *testing.T) {
	item := newActiveItem()
	require.NoError(t, item.OverrideStatus(StatusExpired, testNow))
	require.Equal(t, StatusExpired, item.Status)
	require.ErrorIs(t, item.OverrideStatus(Status("lost"), testNow), ErrInvalidItemStatus)
}

func TestRedactFor(t *testing.T) {
	item := newActiveItem()
	mine := primitive.NewObjectID()
	_, err := item.SubmitClaim(mine, nil, "", testNow)
	require.NoError(t, err)
	_, err = item.SubmitClaim(primitive.NewObjectID(), nil, "", testNow)
	require.NoError(t, err)

	clone := func() *Item {
		c := *item
		c.Claims = append([]Claim(nil), item.Claims...)
		return &c
	}

	t.Run("anonymous sees none", func(t *testing.T) {
		c := clone()
		c.RedactFor(nil)
		require.Empty(t, c.Claims)
		require.Equal(t, 2, c.ClaimCount)
	})

	t.Run("claimant sees own", func(t *testing.T) {
		c := clone()
		c.RedactFor(&access.Principal{UserID: mine, Role: access.RoleUser})
		require.Len(t, c.Claims, 1)
		require.Equal(t, mine, c.Claims[0].Claimant)
	})

	t.Run("reporter sees all", func(t *testing.T) {
		c := clone()
		c.RedactFor(&access.Principal{UserID: item.ReportedBy, Role: access.RoleUser})
		require.Len(t, c.Claims, 2)
	})

	t.Run("staff of another branch sees none", func(t *testing.T) {
		c := clone()
		c.RedactFor(&access.Principal{UserID: primitive.NewObjectID(), Role: access.RoleStaff, Branch: "North Branch"})
		require.Empty(t, c.Claims)
	})

	t.Run("staff of covering branch sees all", func(t *testing.T) {
		c := clone()
		c.RedactFor(&access.Principal{UserID: primitive.NewObjectID(), Role: access.RoleStaff, Branch: "central"})
		require.Len(t, c.Claims, 2)
	})
}
