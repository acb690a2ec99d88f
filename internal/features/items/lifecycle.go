package items

import (
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "github.com/xyz-asif/lostfound/pkg/errors"
)

var (
	ErrItemNotActive        = apperrors.Validation("ITEM_NOT_ACTIVE", "Item is not accepting claims")
	ErrClaimWindowClosed    = apperrors.Validation("CLAIM_WINDOW_CLOSED", "The claim period for this item has expired")
	ErrOwnItem              = apperrors.Validation("OWN_ITEM", "You cannot claim an item you reported")
	ErrDuplicateClaim       = apperrors.Validation("DUPLICATE_CLAIM", "You have already submitted a claim for this item")
	ErrNotesTooLong         = apperrors.Validation("NOTES_TOO_LONG", "Notes cannot exceed 500 characters")
	ErrTooManyDocuments     = apperrors.Validation("TOO_MANY_DOCUMENTS", "At most 5 verification documents are allowed")
	ErrInvalidClaimStatus   = apperrors.Validation("INVALID_CLAIM_STATUS", "Status must be one of pending, approved, rejected")
	ErrClaimNotFound        = apperrors.NotFound("CLAIM_NOT_FOUND", "Claim not found")
	ErrItemReturned         = apperrors.Validation("ITEM_RETURNED", "Item has already been returned")
	ErrAnotherClaimApproved = apperrors.Validation("CLAIM_ALREADY_APPROVED", "Another claim has already been approved for this item")
	ErrItemNotClaimed       = apperrors.Validation("ITEM_NOT_CLAIMED", "Only claimed items can be marked as returned")
	ErrClaimNotApproved     = apperrors.Validation("CLAIM_NOT_APPROVED", "The referenced claim is not approved")
	ErrInvalidItemStatus    = apperrors.Validation("INVALID_ITEM_STATUS", "Status must be one of active, claimed, returned, expired")
)

// CanAcceptClaims reports whether the item is open for new claims at now.
// The expiry date is checked directly so an overdue item is closed even if
// the sweeper has not flipped its status yet.
func (i *Item) CanAcceptClaims(now time.Time) bool {
	return i.Status == StatusActive && now.Before(i.ExpiryDate)
}

// FindClaim returns the claim with the given id, or nil.
func (i *Item) FindClaim(id primitive.ObjectID) *Claim {
	for k := range i.Claims {
		if i.Claims[k].ID == id {
			return &i.Claims[k]
		}
	}
	return nil
}

// ClaimBy returns the claim submitted by user, or nil.
func (i *Item) ClaimBy(user primitive.ObjectID) *Claim {
	for k := range i.Claims {
		if i.Claims[k].Claimant == user {
			return &i.Claims[k]
		}
	}
	return nil
}

// ApprovedClaim returns the single approved claim, or nil.
func (i *Item) ApprovedClaim() *Claim {
	for k := range i.Claims {
		if i.Claims[k].Status == ClaimApproved {
			return &i.Claims[k]
		}
	}
	return nil
}

// PendingClaims counts claims awaiting review.
func (i *Item) PendingClaims() int {
	n := 0
	for _, c := range i.Claims {
		if c.Status == ClaimPending {
			n++
		}
	}
	return n
}

// SubmitClaim appends a pending claim by claimant.
func (i *Item) SubmitClaim(claimant primitive.ObjectID, docs []Document, notes string, now time.Time) (*Claim, error) {
	if i.Status != StatusActive {
		return nil, ErrItemNotActive
	}
	if !now.Before(i.ExpiryDate) {
		return nil, ErrClaimWindowClosed
	}
	if i.ReportedBy == claimant {
		return nil, ErrOwnItem
	}
	if i.ClaimBy(claimant) != nil {
		return nil, ErrDuplicateClaim
	}
	if utf8.RuneCountInString(notes) > MaxClaimNotes {
		return nil, ErrNotesTooLong
	}
	if len(docs) > MaxDocuments {
		return nil, ErrTooManyDocuments
	}
	if docs == nil {
		docs = []Document{}
	}

	i.Claims = append(i.Claims, Claim{
		ID:                    primitive.NewObjectID(),
		Claimant:              claimant,
		VerificationDocuments: docs,
		Notes:                 notes,
		Status:                ClaimPending,
		CreatedAt:             now,
		UpdatedAt:             now,
	})
	i.UpdatedAt = now
	return &i.Claims[len(i.Claims)-1], nil
}

// Transition describes the outcome of a claim status change.
type Transition struct {
	Claim    Claim
	Previous ClaimStatus
	// AutoRejected holds the sibling claims rejected by an approval.
	AutoRejected []Claim
}

func (t *Transition) Changed() bool {
	return t.Previous != t.Claim.Status
}

// UpdateClaimStatus moves a claim to status. Approving marks the item
// claimed and rejects every other pending claim in the same document write.
func (i *Item) UpdateClaimStatus(claimID primitive.ObjectID, status ClaimStatus, notes string, reviewer primitive.ObjectID, now time.Time) (*Transition, error) {
	if !status.Valid() {
		return nil, ErrInvalidClaimStatus
	}
	if utf8.RuneCountInString(notes) > MaxClaimNotes {
		return nil, ErrNotesTooLong
	}
	claim := i.FindClaim(claimID)
	if claim == nil {
		return nil, ErrClaimNotFound
	}
	if i.Status == StatusReturned {
		return nil, ErrItemReturned
	}
	if status == ClaimApproved {
		if approved := i.ApprovedClaim(); approved != nil && approved.ID != claimID {
			return nil, ErrAnotherClaimApproved
		}
	}

	t := &Transition{Previous: claim.Status}
	claim.Status = status
	claim.ReviewNotes = notes
	claim.ReviewedBy = &reviewer
	claim.ReviewedAt = &now
	claim.UpdatedAt = now

	if status == ClaimApproved {
		i.Status = StatusClaimed
		for k := range i.Claims {
			other := &i.Claims[k]
			if other.ID == claimID || other.Status != ClaimPending {
				continue
			}
			other.Status = ClaimRejected
			other.ReviewNotes = AutoRejectNote
			other.ReviewedBy = &reviewer
			other.ReviewedAt = &now
			other.UpdatedAt = now
			t.AutoRejected = append(t.AutoRejected, *other)
		}
	}

	i.UpdatedAt = now
	t.Claim = *claim
	return t, nil
}

// MarkReturned closes a claimed item. claimID, when given, must reference
// the approved claim; otherwise the approved claim, if any, is recorded.
func (i *Item) MarkReturned(claimID *primitive.ObjectID, now time.Time) (*Claim, error) {
	if i.Status != StatusClaimed {
		return nil, ErrItemNotClaimed
	}

	var claim *Claim
	if claimID != nil {
		claim = i.FindClaim(*claimID)
		if claim == nil {
			return nil, ErrClaimNotFound
		}
		if claim.Status != ClaimApproved {
			return nil, ErrClaimNotApproved
		}
	} else {
		claim = i.ApprovedClaim()
	}

	i.Status = StatusReturned
	i.ReturnedAt = &now
	if claim != nil {
		to := claim.Claimant
		i.ReturnedTo = &to
	}
	i.UpdatedAt = now
	return claim, nil
}

// Handover records that the item was handed to the police.
func (i *Item) Handover(reportNumber string, now time.Time) error {
	if i.Status == StatusReturned {
		return ErrItemReturned
	}
	i.HandedOverToPolice = true
	i.PoliceReportNumber = reportNumber
	i.HandedOverAt = &now
	i.UpdatedAt = now
	return nil
}

// OverrideStatus sets any status. Reserved for corrective admin action.
func (i *Item) OverrideStatus(status Status, now time.Time) error {
	if !status.Valid() {
		return ErrInvalidItemStatus
	}
	i.Status = status
	i.UpdatedAt = now
	return nil
}
