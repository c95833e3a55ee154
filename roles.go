package authcore

import "sort"

// RoleType is a coarse role tag attached to a user. Roles accumulate over
// an account's life (a patient onboarded as a doctor keeps PATIENT) and
// are never silently removed by this core.
type RoleType string

const (
	// RolePatient is the default role granted on every signup.
	RolePatient RoleType = "PATIENT"
	// RoleDoctor is granted by the onboarding flow via [Engine.GrantRole].
	RoleDoctor RoleType = "DOCTOR"
	// RoleAdmin is an exported constant for administrative accounts.
	RoleAdmin RoleType = "ADMIN"
)

// Valid reports whether the tag is one of the known roles.
func (r RoleType) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

// RoleSet is a set of role tags.
type RoleSet map[RoleType]struct{}

// NewRoleSet builds a set from the given tags.
func NewRoleSet(roles ...RoleType) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s RoleSet) Has(role RoleType) bool {
	_, ok := s[role]
	return ok
}

// Add inserts a role; adding an existing role is a no-op.
func (s RoleSet) Add(role RoleType) {
	s[role] = struct{}{}
}

// Clone returns an independent copy.
func (s RoleSet) Clone() RoleSet {
	out := make(RoleSet, len(s))
	for r := range s {
		out[r] = struct{}{}
	}
	return out
}

// Slice returns the members in sorted order.
func (s RoleSet) Slice() []RoleType {
	out := make([]RoleType, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// rolePermissions is the static role→permission table. Permission strings
// use the resource:action form consumed by route-level authorization.
var rolePermissions = map[RoleType][]string{
	RolePatient: {
		"patient:read",
		"appointment:read",
		"appointment:write",
	},
	RoleDoctor: {
		"patient:read",
		"patient:write",
		"appointment:read",
		"appointment:write",
		"report:view",
	},
	RoleAdmin: {
		"patient:read",
		"patient:write",
		"appointment:read",
		"appointment:write",
		"appointment:delete",
		"user:manage",
		"report:view",
	},
}

const rolePrefix = "ROLE_"

// authoritiesFor expands a role set into its authority strings: the
// prefixed role names plus the union of the mapped permissions.
func authoritiesFor(roles RoleSet) []string {
	seen := make(map[string]struct{}, len(roles)*4)
	for role := range roles {
		seen[rolePrefix+string(role)] = struct{}{}
		for _, p := range rolePermissions[role] {
			seen[p] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for a := range seen {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
