package items

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xyz-asif/lostfound/internal/features/auth"
	"github.com/xyz-asif/lostfound/internal/pkg/access"
	"github.com/xyz-asif/lostfound/internal/pkg/logger"
)

// UserDirectory resolves referenced users for population.
type UserDirectory interface {
	GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*auth.User, error)
}

// Populate fills reporter and claimant summaries in place. ClaimCount is
// left to RedactFor and Summarize. A lookup failure
// is logged and leaves the references unpopulated.
func Populate(ctx context.Context, users UserDirectory, log logger.Logger, items ...*Item) {
	var ids []primitive.ObjectID
	seen := map[primitive.ObjectID]bool{}
	add := func(id primitive.ObjectID) {
		if !id.IsZero() && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, item := range items {
		add(item.ReportedBy)
		for _, c := range item.Claims {
			add(c.Claimant)
		}
	}

	var found map[primitive.ObjectID]*auth.User
	if len(ids) > 0 && users != nil {
		var err error
		found, err = users.GetUsersByIDs(ctx, ids)
		if err != nil {
			log.WarnContext(ctx, "populate item users", "error", err)
		}
	}

	for _, item := range items {
		if u, ok := found[item.ReportedBy]; ok {
			item.Reporter = u.Summary()
		}
		for k := range item.Claims {
			if u, ok := found[item.Claims[k].Claimant]; ok {
				item.Claims[k].ClaimantInfo = u.Summary()
			}
		}
	}
}

// RedactFor trims the claim list to what p may see. Reporters and covering
// staff see every claim, a claimant sees only their own, anyone else none.
// ClaimCount keeps the full count.
func (i *Item) RedactFor(p *access.Principal) {
	i.ClaimCount = len(i.Claims)
	if p != nil && p.Can(access.ViewItemClaims, i.Resource()) {
		return
	}

	visible := []Claim{}
	if p != nil {
		if own := i.ClaimBy(p.UserID); own != nil {
			visible = append(visible, *own)
		}
	}
	i.Claims = visible
}

// Summarize drops the claim list entirely, for list endpoints.
func (i *Item) Summarize() {
	i.ClaimCount = len(i.Claims)
	i.Claims = []Claim{}
}
