// Package rbac computes effective permission sets and carries the built-in
// role/permission seed data named verbatim in spec.md §6. The built-in
// role/permission seeder is listed as an out-of-scope collaborator in
// spec.md §1 ("values listed verbatim in §6") — this package is that list,
// not a migration runner.
package rbac

import (
	"sort"

	"github.com/google/uuid"
)

// Wildcard grants every permission, per spec.md §3.
const Wildcard = "*"

// Built-in role IDs are fixed so seeding is idempotent and foreign keys
// (e.g. a newly registered user's RoleID) never dangle across reseeds.
var (
	AdminRoleID   = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	ManagerRoleID = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	UserRoleID    = uuid.MustParse("00000000-0000-0000-0000-000000000003")
)

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleUser    = "user"
)

// Permissions is the closed enum from spec.md §6.
var Permissions = []string{
	Wildcard,
	"admin.access",
	"users.view", "users.create", "users.update", "users.delete",
	"roles.view", "roles.create", "roles.update", "roles.delete",
	"daemons.view", "daemons.create", "daemons.update", "daemons.delete",
	"allocations.view", "allocations.create", "allocations.update", "allocations.delete",
	"flakes.view", "flakes.create", "flakes.update", "flakes.delete",
	"containers.view_own", "containers.view_all", "containers.create",
	"containers.update", "containers.delete", "containers.manage", "containers.manage_own",
}

// RoleDefaults maps each built-in role name to its default permission set,
// per spec.md §6 "Role-to-permission defaults".
var RoleDefaults = map[string][]string{
	RoleAdmin: {Wildcard},
	RoleManager: {
		"admin.access",
		"users.view", "users.create", "users.update",
		"daemons.view",
		"containers.view_all", "containers.create", "containers.update", "containers.delete", "containers.manage",
		"allocations.view", "allocations.create",
		"flakes.view", "flakes.create", "flakes.update", "flakes.delete",
	},
	RoleUser: {
		"containers.view_own", "containers.manage_own",
	},
}

// EffectiveSet implements spec.md §8 invariant 8: the effective permission
// set for a user equals dedup(sort(role_permissions ∪ user_permissions)).
func EffectiveSet(rolePermissions, userPermissions []string) []string {
	seen := make(map[string]struct{}, len(rolePermissions)+len(userPermissions))
	for _, p := range rolePermissions {
		seen[p] = struct{}{}
	}
	for _, p := range userPermissions {
		seen[p] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Has reports whether an effective permission set grants the requested
// permission, honoring the wildcard.
func Has(effective []string, permission string) bool {
	for _, p := range effective {
		if p == Wildcard || p == permission {
			return true
		}
	}
	return false
}

// HasAny reports whether the effective set grants any of the requested
// permissions, used by middleware that accepts "this permission OR manager
// role membership".
func HasAny(effective []string, permissions ...string) bool {
	for _, p := range permissions {
		if Has(effective, p) {
			return true
		}
	}
	return false
}
