// Package rate implements the fixed-window admission counters guarding
// the login and signup surfaces. All key construction lives here; callers
// never see raw counter keys.
package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/medisync/authcore/counter"
)

// Purpose selects which admission window a key belongs to.
type Purpose string

const (
	// PurposeLogin is the login attempt window.
	PurposeLogin Purpose = "login"
	// PurposeSignup is the signup attempt window.
	PurposeSignup Purpose = "signup"
)

// Policy is the budget of one window: at most MaxAttempts recorded
// attempts per Window.
type Policy struct {
	MaxAttempts int
	Window      time.Duration
}

// Config holds the per-purpose policies.
type Config struct {
	Login  Policy
	Signup Policy
}

// Limiter enforces per-identifier (and optionally per-IP) fixed windows
// over a shared counter store. It keeps no in-process state; every
// operation is a store round-trip.
type Limiter struct {
	store  counter.Store
	config Config
}

// New creates a [Limiter] backed by the given counter store.
func New(store counter.Store, cfg Config) *Limiter {
	return &Limiter{store: store, config: cfg}
}

// Allowed reports whether the identifier still has attempt budget.
// A missing key counts as a fresh window.
func (l *Limiter) Allowed(ctx context.Context, purpose Purpose, identifier string) (bool, error) {
	return l.allowedKey(ctx, identifierKey(purpose, identifier), l.policy(purpose).MaxAttempts)
}

// AllowedIP is the per-IP variant of Allowed.
func (l *Limiter) AllowedIP(ctx context.Context, purpose Purpose, ip string) (bool, error) {
	return l.allowedKey(ctx, ipKey(purpose, ip), l.policy(purpose).MaxAttempts)
}

// Record counts one attempt against the identifier. The first attempt of
// a window creates the key and starts its TTL; the increment itself is
// atomic, so concurrent attempts never under-count.
func (l *Limiter) Record(ctx context.Context, purpose Purpose, identifier string) error {
	return l.recordKey(ctx, identifierKey(purpose, identifier), l.policy(purpose).Window)
}

// RecordIP is the per-IP variant of Record.
func (l *Limiter) RecordIP(ctx context.Context, purpose Purpose, ip string) error {
	return l.recordKey(ctx, ipKey(purpose, ip), l.policy(purpose).Window)
}

// Reset deletes the identifier's window outright. Called after a
// successful login so earlier failures stop counting.
func (l *Limiter) Reset(ctx context.Context, purpose Purpose, identifier string) error {
	if err := l.store.Delete(ctx, identifierKey(purpose, identifier)); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Remaining returns the unused attempt budget, treating a missing key as
// a full budget.
func (l *Limiter) Remaining(ctx context.Context, purpose Purpose, identifier string) (int, error) {
	return l.remainingKey(ctx, identifierKey(purpose, identifier), l.policy(purpose).MaxAttempts)
}

// TimeUntilReset returns the remaining window TTL, or 0 when no window
// is open.
func (l *Limiter) TimeUntilReset(ctx context.Context, purpose Purpose, identifier string) (time.Duration, error) {
	ttl, err := l.store.TTL(ctx, identifierKey(purpose, identifier))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return ttl, nil
}

// RemainingIP is the per-IP variant of Remaining.
func (l *Limiter) RemainingIP(ctx context.Context, purpose Purpose, ip string) (int, error) {
	return l.remainingKey(ctx, ipKey(purpose, ip), l.policy(purpose).MaxAttempts)
}

// TimeUntilResetIP is the per-IP variant of TimeUntilReset.
func (l *Limiter) TimeUntilResetIP(ctx context.Context, purpose Purpose, ip string) (time.Duration, error) {
	ttl, err := l.store.TTL(ctx, ipKey(purpose, ip))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return ttl, nil
}

func (l *Limiter) policy(purpose Purpose) Policy {
	if purpose == PurposeSignup {
		return l.config.Signup
	}
	return l.config.Login
}

func (l *Limiter) remainingKey(ctx context.Context, key string, maxAttempts int) (int, error) {
	count, ok, err := l.store.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !ok {
		return maxAttempts, nil
	}
	if remaining := maxAttempts - int(count); remaining > 0 {
		return remaining, nil
	}
	return 0, nil
}

func (l *Limiter) allowedKey(ctx context.Context, key string, maxAttempts int) (bool, error) {
	count, ok, err := l.store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !ok {
		return true, nil
	}
	return count < int64(maxAttempts), nil
}

func (l *Limiter) recordKey(ctx context.Context, key string, window time.Duration) error {
	count, err := l.store.Increment(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// Fixed-window semantics: only the first hit of a window arms the TTL.
	if count == 1 {
		if err := l.store.Expire(ctx, key, window); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	return nil
}

func identifierKey(purpose Purpose, identifier string) string {
	return "rate:" + string(purpose) + ":" + identifier
}

func ipKey(purpose Purpose, ip string) string {
	return "rate:ip:" + string(purpose) + ":" + ip
}
