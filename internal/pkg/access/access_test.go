package access

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCan_OwnerCapabilities(t *testing.T) {
	owner := primitive.NewObjectID()
	item := Resource{Owner: owner, Location: "Central Station"}

	reporter := Principal{UserID: owner, Role: RoleUser}
	stranger := Principal{UserID: primitive.NewObjectID(), Role: RoleUser}
	centralStaff := Principal{UserID: primitive.NewObjectID(), Role: RoleStaff, Branch: "central"}
	northStaff := Principal{UserID: primitive.NewObjectID(), Role: RoleStaff, Branch: "North"}
	admin := Principal{UserID: primitive.NewObjectID(), Role: RoleAdmin}

	for _, c := range []Capability{UpdateItem, DeleteItem, ViewItemClaims, MarkReturned, HandOver} {
		require.True(t, reporter.Can(c, item), c.String())
		require.True(t, centralStaff.Can(c, item), c.String())
		require.True(t, admin.Can(c, item), c.String())
		require.False(t, stranger.Can(c, item), c.String())
		require.False(t, northStaff.Can(c, item), c.String())
	}
}

func TestCan_ReviewClaimsRequiresStaff(t *testing.T) {
	owner := primitive.NewObjectID()
	item := Resource{Owner: owner, Location: "Central Station"}

	require.False(t, Principal{UserID: owner, Role: RoleUser}.Can(ReviewClaims, item))
	require.True(t, Principal{Role: RoleStaff, Branch: "Central"}.Can(ReviewClaims, item))
	require.False(t, Principal{Role: RoleStaff}.Can(ReviewClaims, item))
	require.True(t, Principal{Role: RoleAdmin}.Can(ReviewClaims, item))
}

func TestCan_PaddedBranchMatchesLikeScope(t *testing.T) {
	staff := Principal{UserID: primitive.NewObjectID(), Role: RoleStaff, Branch: " Central "}
	item := Resource{Owner: primitive.NewObjectID(), Location: "Central Station"}

	scope, err := ScopeFor(staff, "")
	require.NoError(t, err)
	require.True(t, scope.Matches(item.Location))
	require.True(t, staff.Can(ReviewClaims, item))
	require.True(t, staff.Can(ViewBranchDashboard, Resource{}))

	blank := Principal{Role: RoleStaff, Branch: "   "}
	require.False(t, blank.Can(ReviewClaims, item))
	require.False(t, blank.Can(ViewBranchDashboard, Resource{}))
	_, err = ScopeFor(blank, "")
	require.ErrorIs(t, err, ErrNoBranch)
}

func TestCan_AdminOnly(t *testing.T) {
	for _, c := range []Capability{ManageUsers, OverrideItemStatus} {
		require.True(t, Principal{Role: RoleAdmin}.Can(c, Resource{}))
		require.False(t, Principal{Role: RoleStaff, Branch: "Central"}.Can(c, Resource{}))
		require.False(t, Principal{Role: RoleUser}.Can(c, Resource{}))
	}
	require.ErrorIs(t, Principal{Role: RoleUser}.Require(ManageUsers, Resource{}), ErrForbidden)
}

func TestScopeFor(t *testing.T) {
	scope, err := ScopeFor(Principal{Role: RoleStaff, Branch: "Central"}, "North")
	require.NoError(t, err)
	require.Equal(t, "Central", scope.Branch)

	scope, err = ScopeFor(Principal{Role: RoleAdmin}, "")
	require.NoError(t, err)
	require.False(t, scope.Restricted())
	require.Nil(t, scope.LocationFilter())

	scope, err = ScopeFor(Principal{Role: RoleAdmin}, " North ")
	require.NoError(t, err)
	require.Equal(t, "North", scope.Branch)

	_, err = ScopeFor(Principal{Role: RoleStaff}, "")
	require.ErrorIs(t, err, ErrNoBranch)

	_, err = ScopeFor(Principal{Role: RoleUser}, "Central")
	require.ErrorIs(t, err, ErrForbidden)
}

func TestScope_CentralExcludesNorthBranch(t *testing.T) {
	scope, err := ScopeFor(Principal{Role: RoleStaff, Branch: "Central"}, "")
	require.NoError(t, err)

	require.True(t, scope.Matches("central library, level 2"))
	require.True(t, scope.Matches("CENTRAL"))
	require.False(t, scope.Matches("North Branch"))

	filter := scope.LocationFilter()
	re := filter["location"].(primitive.Regex)
	require.Equal(t, "i", re.Options)

	compiled := regexp.MustCompile("(?i)" + re.Pattern)
	require.True(t, compiled.MatchString("Central Station"))
	require.False(t, compiled.MatchString("North Branch"))
}

func TestContainsFold_QuotesInput(t *testing.T) {
	re := ContainsFold("Main St. (East)")
	require.Equal(t, `Main St\. \(East\)`, re.Pattern)
}

func TestScope_Apply(t *testing.T) {
	require.Equal(t, bson.M{"status": "active"}, Scope{}.Apply(bson.M{"status": "active"}))

	scoped := Scope{Branch: "Central"}.Apply(bson.M{"status": "active"})
	and := scoped["$and"].([]bson.M)
	require.Len(t, and, 2)
	require.Equal(t, bson.M{"status": "active"}, and[0])

	only := Scope{Branch: "Central"}.Apply(bson.M{})
	require.Contains(t, only, "location")
}
