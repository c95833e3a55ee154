package authcore

import (
	"context"
)

// ProviderType classifies how an account was first established. It is set
// at creation and never changes afterwards.
type ProviderType string

const (
	// ProviderEmail marks a local password account.
	ProviderEmail ProviderType = "EMAIL"
	// ProviderGoogle is an exported constant for Google federated accounts.
	ProviderGoogle ProviderType = "GOOGLE"
	// ProviderGithub is an exported constant for GitHub federated accounts.
	ProviderGithub ProviderType = "GITHUB"
)

// User is one authenticated principal. Exactly one of PasswordHash
// (ProviderType EMAIL) or ProviderID (any other ProviderType) describes
// how its credentials are verified. Username is globally unique, as is a
// (ProviderID, ProviderType) pair when present.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	ProviderType ProviderType
	ProviderID   string
	Roles        RoleSet
}

// HasRole reports whether the user carries the given role tag.
func (u *User) HasRole(role RoleType) bool {
	return u.Roles.Has(role)
}

// Authorities returns the authorization view of the user: one
// "ROLE_<name>" entry per role plus the union of each role's permission
// strings, sorted and de-duplicated.
func (u *User) Authorities() []string {
	return authoritiesFor(u.Roles)
}

// IdentityStore is the user-record collaborator. Implementations must
// enforce username uniqueness and (ProviderID, ProviderType) uniqueness;
// reference adapters live under stores/.
type IdentityStore interface {
	// FindByUsername returns (nil, nil) when no user carries the name.
	FindByUsername(ctx context.Context, username string) (*User, error)
	// FindByProviderIdentity returns (nil, nil) when no user matches the pair.
	FindByProviderIdentity(ctx context.Context, providerID string, providerType ProviderType) (*User, error)
	// FindByID returns (nil, nil) when the id is unknown.
	FindByID(ctx context.Context, id int64) (*User, error)
	// Save persists the user, assigning ID on first save, and returns the
	// stored state.
	Save(ctx context.Context, user *User) (*User, error)
}

// ProfileStore creates the companion patient profile linked 1:1 to a newly
// signed-up user. The user is already persisted when this is called, so
// user.ID carries the assigned id. Profile persistence itself is outside
// this core.
type ProfileStore interface {
	CreatePatientProfile(ctx context.Context, user *User, name string) error
}

// PasswordHasher is the one-way credential function. The engine only ever
// calls Hash on signup and Verify on login; the scheme is the caller's
// choice. [password.Argon2] is the shipped default.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// FederatedClaims is the provider-asserted claim map from a completed
// OAuth2 exchange, as delivered by the transport layer. Key layout varies
// per provider; extraction is handled by the per-provider strategy table.
type FederatedClaims map[string]any

// SignupRequest carries the inputs of a local signup.
type SignupRequest struct {
	Username string
	Password string
	Name     string
}

// LoginResult is returned by Login and FederatedLogin.
type LoginResult struct {
	Token  string
	UserID int64
}

// SignupResult is returned by Signup.
type SignupResult struct {
	UserID   int64
	Username string
}

// AuthResult is the per-request identity produced by [Engine.Authenticate]
// and attached to the request context by the middleware package.
type AuthResult struct {
	User        *User
	Authorities []string
}

// QuotaStatus reports the live admission state of one (purpose,
// identifier) window.
type QuotaStatus struct {
	Allowed    bool
	Remaining  int
	ResetAfter int64 // seconds until the window lapses; 0 when no window is open
}
