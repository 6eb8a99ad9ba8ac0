package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Per spec.md §8 invariant 8: effective = dedup(sort(role ∪ user)).
func TestEffectiveSetDedupsAndSorts(t *testing.T) {
	effective := EffectiveSet(
		[]string{"containers.view_all", "daemons.view"},
		[]string{"daemons.view", "flakes.create"},
	)
	assert.Equal(t, []string{"containers.view_all", "daemons.view", "flakes.create"}, effective)
}

func TestEffectiveSetEmptyInputsYieldEmptySet(t *testing.T) {
	assert.Empty(t, EffectiveSet(nil, nil))
}

func TestHasHonorsWildcard(t *testing.T) {
	assert.True(t, Has([]string{Wildcard}, "daemons.delete"))
	assert.False(t, Has([]string{"daemons.view"}, "daemons.delete"))
}

func TestHasAnyMatchesFirstGrantedPermission(t *testing.T) {
	effective := []string{"containers.manage_own"}
	assert.True(t, HasAny(effective, "containers.manage", "containers.manage_own"))
	assert.False(t, HasAny(effective, "containers.manage", "containers.view_all"))
}

func TestRoleDefaultsCoverTheThreeBuiltins(t *testing.T) {
	for _, name := range []string{RoleAdmin, RoleManager, RoleUser} {
		assert.NotEmpty(t, RoleDefaults[name], "role %s should have default permissions", name)
	}
	assert.Equal(t, []string{Wildcard}, RoleDefaults[RoleAdmin])
}

func TestBuiltinRoleIDsAreDistinct(t *testing.T) {
	ids := map[string]bool{
		AdminRoleID.String():   true,
		ManagerRoleID.String(): true,
		UserRoleID.String():    true,
	}
	assert.Len(t, ids, 3)
}
