package authcore

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrBadCredentials is returned for any local login failure. Absent
	// user and password mismatch surface identically so the response
	// cannot be used to probe which accounts exist.
	ErrBadCredentials = errors.New("invalid username or password")
	// ErrAccountExists is returned by Signup when the username is taken.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidToken is returned when a bearer token is malformed,
	// carries a bad signature, or has expired.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUserVanished is returned when a token verifies but its subject
	// no longer resolves to a user record. Clients should treat it as
	// ErrInvalidToken; the distinction matters only for diagnostics.
	ErrUserVanished = errors.New("token subject no longer exists")
	// ErrLimiterUnavailable is returned when the counter store cannot be
	// reached. Admission fails closed rather than silently disabling
	// brute-force protection.
	ErrLimiterUnavailable = errors.New("rate limiter backend unavailable")
	// ErrInvalidSignup is returned for a signup request missing its
	// username or password.
	ErrInvalidSignup = errors.New("invalid signup request")
	// ErrUnknownUser is returned by role-grant operations for an absent id.
	ErrUnknownUser = errors.New("user not found")
	// ErrUnknownRole is returned when a role tag is not recognized.
	ErrUnknownRole = errors.New("unknown role")
	// ErrUnknownProvider is returned for a federated login with a provider
	// this engine has no strategy for.
	ErrUnknownProvider = errors.New("unsupported federated provider")
	// ErrMissingProviderID is returned when federated claims carry no
	// usable provider-side subject identifier.
	ErrMissingProviderID = errors.New("unable to determine provider id from claims")
	// ErrEngineNotReady is returned when an Engine method is called on a
	// zero or partially constructed engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// RateLimitError reports a rejected login or signup admission. RetryAfter
// is the remaining window TTL; Remaining is the unused attempt quota
// (zero once exhausted).
type RateLimitError struct {
	Purpose    string
	RetryAfter time.Duration
	Remaining  int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many %s attempts, retry after %ds", e.Purpose, int(e.RetryAfter.Seconds()))
}

// ProviderConflictError reports a federated login whose claimed email is
// already owned by an account provisioned through a different provider.
// Resolution requires out-of-band account linking.
type ProviderConflictError struct {
	OwningProvider ProviderType
}

func (e *ProviderConflictError) Error() string {
	return fmt.Sprintf("email already registered with provider %s", e.OwningProvider)
}
