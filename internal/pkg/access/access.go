// Package access holds role based authorization: which principal may exercise
// which capability on which item, and the branch scope applied to staff reads.
package access

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "github.com/xyz-asif/lostfound/pkg/errors"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleStaff Role = "staff"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

type Capability int

const (
	UpdateItem Capability = iota + 1
	DeleteItem
	ViewItemClaims
	MarkReturned
	HandOver
	ReviewClaims
	ViewBranchDashboard
	ManageUsers
	OverrideItemStatus
)

var capabilityNames = map[Capability]string{
	UpdateItem:          "update_item",
	DeleteItem:          "delete_item",
	ViewItemClaims:      "view_item_claims",
	MarkReturned:        "mark_returned",
	HandOver:            "hand_over",
	ReviewClaims:        "review_claims",
	ViewBranchDashboard: "view_branch_dashboard",
	ManageUsers:         "manage_users",
	OverrideItemStatus:  "override_item_status",
}

func (c Capability) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return "unknown"
}

var (
	ErrForbidden = apperrors.Forbidden("FORBIDDEN", "You do not have permission to perform this action")
	ErrNoBranch  = apperrors.Forbidden("STAFF_BRANCH_REQUIRED", "Staff account has no branch assigned")
)

// Principal is the authenticated caller.
type Principal struct {
	UserID primitive.ObjectID
	Role   Role
	Branch string
}

// Resource describes the item a capability is exercised on.
type Resource struct {
	Owner    primitive.ObjectID
	Location string
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

func (p Principal) IsStaff() bool { return p.Role == RoleStaff || p.Role == RoleAdmin }

func (p Principal) Owns(r Resource) bool {
	return !p.UserID.IsZero() && p.UserID == r.Owner
}

// Can reports whether p may exercise c on r. Owner capabilities are granted
// to the reporter and to staff whose branch covers the item. Staff-only
// capabilities ignore ownership.
func (p Principal) Can(c Capability, r Resource) bool {
	switch c {
	case UpdateItem, DeleteItem, ViewItemClaims, MarkReturned, HandOver:
		return p.Owns(r) || p.coversBranch(r)
	case ReviewClaims:
		return p.coversBranch(r)
	case ViewBranchDashboard:
		return p.IsAdmin() || (p.Role == RoleStaff && p.branch() != "")
	case ManageUsers, OverrideItemStatus:
		return p.IsAdmin()
	}
	return false
}

// Require is Can returning ErrForbidden on denial.
func (p Principal) Require(c Capability, r Resource) error {
	if !p.Can(c, r) {
		return ErrForbidden
	}
	return nil
}

func (p Principal) coversBranch(r Resource) bool {
	switch p.Role {
	case RoleAdmin:
		return true
	case RoleStaff:
		branch := p.branch()
		if branch == "" {
			return false
		}
		return Scope{Branch: branch}.Matches(r.Location)
	}
	return false
}

// branch is the staff branch as used for matching, without stray spaces.
func (p Principal) branch() string {
	return strings.TrimSpace(p.Branch)
}

// Scope restricts reads to one branch. The zero Scope is unrestricted and is
// only handed out to admins.
type Scope struct {
	Branch string
}

// ScopeFor resolves the branch scope for p. Staff are pinned to their own
// branch regardless of what they ask for; admins may narrow to any branch.
func ScopeFor(p Principal, requestedBranch string) (Scope, error) {
	switch p.Role {
	case RoleAdmin:
		return Scope{Branch: strings.TrimSpace(requestedBranch)}, nil
	case RoleStaff:
		if p.branch() == "" {
			return Scope{}, ErrNoBranch
		}
		return Scope{Branch: p.branch()}, nil
	default:
		return Scope{}, ErrForbidden
	}
}

func (s Scope) Restricted() bool { return s.Branch != "" }

// LocationFilter returns the case-insensitive substring match on location,
// or nil when unrestricted.
func (s Scope) LocationFilter() bson.M {
	if !s.Restricted() {
		return nil
	}
	return bson.M{"location": ContainsFold(s.Branch)}
}

// Apply merges the scope into an existing filter.
func (s Scope) Apply(filter bson.M) bson.M {
	loc := s.LocationFilter()
	if loc == nil {
		return filter
	}
	if len(filter) == 0 {
		return loc
	}
	return bson.M{"$and": []bson.M{filter, loc}}
}

// Matches applies the same rule as LocationFilter to a single value.
func (s Scope) Matches(location string) bool {
	if !s.Restricted() {
		return true
	}
	return strings.Contains(strings.ToLower(location), strings.ToLower(s.Branch))
}

// ContainsFold builds a case-insensitive substring regex with the input
// quoted so user text never becomes a pattern.
func ContainsFold(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}
