package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/medisync/authcore/internal/rate"
	"github.com/medisync/authcore/token"
)

// Engine is the orchestration core: it runs the login, signup, and
// federated-login state machines over the injected stores and exposes
// request authentication for the middleware layer. An Engine is built
// once through [Builder.Build] and is safe for concurrent use.
type Engine struct {
	config   Config
	logger   zerolog.Logger
	limiter  *rate.Limiter
	tokens   *token.Manager
	resolver *identityResolver
	users    IdentityStore
	audit    *auditDispatcher
	metrics  *Metrics
}

// Close releases the audit dispatcher. Safe on a nil engine.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were shed under load.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.limiter != nil && e.tokens != nil && e.resolver != nil && e.users != nil
}

// Authenticate validates a bearer token and resolves its subject to a
// live user with derived authorities. A token that verifies but names a
// vanished subject fails with [ErrUserVanished].
func (e *Engine) Authenticate(ctx context.Context, tokenStr string) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.Validate(tokenStr)
	if err != nil {
		e.metricInc(MetricTokenRejected)
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	user, err := e.users.FindByUsername(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		e.metricInc(MetricTokenRejected)
		e.emitAudit(ctx, auditEventUserVanished, false, claims.UserID, ErrUserVanished, func() map[string]string {
			return map[string]string{"subject": claims.Subject}
		})
		return nil, ErrUserVanished
	}

	e.metricInc(MetricTokenValidated)
	return &AuthResult{
		User:        user,
		Authorities: user.Authorities(),
	}, nil
}

// GrantRole adds a role to the user's set, preserving everything already
// granted. Used by onboarding flows (a patient becoming a doctor keeps
// PATIENT).
func (e *Engine) GrantRole(ctx context.Context, userID int64, role RoleType) (*User, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}

	user, err := e.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUnknownUser
	}

	if user.Roles == nil {
		user.Roles = NewRoleSet()
	}
	user.Roles.Add(role)

	user, err = e.users.Save(ctx, user)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRoleGranted)
	e.emitAudit(ctx, auditEventRoleGranted, true, user.ID, nil, func() map[string]string {
		return map[string]string{"role": string(role)}
	})
	return user, nil
}

// LoginQuota reports the live login admission state for an identifier.
func (e *Engine) LoginQuota(ctx context.Context, username string) (*QuotaStatus, error) {
	return e.quota(ctx, rate.PurposeLogin, username)
}

// SignupQuota reports the live signup admission state for an identifier.
func (e *Engine) SignupQuota(ctx context.Context, identifier string) (*QuotaStatus, error) {
	return e.quota(ctx, rate.PurposeSignup, identifier)
}

func (e *Engine) quota(ctx context.Context, purpose rate.Purpose, identifier string) (*QuotaStatus, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	remaining, err := e.limiter.Remaining(ctx, purpose, identifier)
	if err != nil {
		return nil, e.limiterError(err)
	}
	ttl, err := e.limiter.TimeUntilReset(ctx, purpose, identifier)
	if err != nil {
		return nil, e.limiterError(err)
	}

	return &QuotaStatus{
		Allowed:    remaining > 0,
		Remaining:  remaining,
		ResetAfter: int64(ttl.Seconds()),
	}, nil
}

// limiterError translates the internal unavailable sentinel into the
// public one, keeping everything else intact.
func (e *Engine) limiterError(err error) error {
	if errors.Is(err, rate.ErrUnavailable) {
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	return err
}
