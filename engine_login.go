package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/medisync/authcore/internal/rate"
)

// Login runs the local login state machine: admission check, credential
// verification, token issue. A failed verification is what consumes
// attempt budget; a successful login clears the identifier's window so
// earlier failures stop counting against the account.
//
// Admission errors fail closed with [ErrLimiterUnavailable]: an
// unreachable counter store must not disable brute-force protection.
func (e *Engine) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	if err := e.admit(ctx, rate.PurposeLogin, username); err != nil {
		var rl *RateLimitError
		if errors.As(err, &rl) {
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventLoginRateLimited, false, 0, err, func() map[string]string {
				return map[string]string{"username": username}
			})
		}
		return nil, err
	}

	user, err := e.resolver.localLogin(ctx, username, password)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			e.recordFailure(ctx, rate.PurposeLogin, username)
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, 0, err, func() map[string]string {
				return map[string]string{"username": username}
			})
		}
		return nil, err
	}

	// Clearing the window is best effort; a stale counter only costs the
	// user attempts it would have regained at expiry anyway.
	if err := e.limiter.Reset(ctx, rate.PurposeLogin, username); err != nil {
		e.logger.Warn().Err(err).Str("username", username).Msg("failed to reset login window")
	}

	tokenStr, err := e.tokens.Issue(user.Username, user.ID)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, nil, nil)

	return &LoginResult{Token: tokenStr, UserID: user.ID}, nil
}

// admit checks the identifier window and, when IP throttling is enabled
// and the context carries a client IP, the IP window too. A rejection
// surfaces as *RateLimitError populated from the window that rejected.
func (e *Engine) admit(ctx context.Context, purpose rate.Purpose, identifier string) error {
	ok, err := e.limiter.Allowed(ctx, purpose, identifier)
	if err != nil {
		return e.limiterError(err)
	}
	if !ok {
		return e.rateLimitError(purpose, func() (time.Duration, error) {
			return e.limiter.TimeUntilReset(ctx, purpose, identifier)
		})
	}

	if e.config.RateLimit.EnableIPThrottle {
		if ip := clientIPFromContext(ctx); ip != "" {
			ok, err := e.limiter.AllowedIP(ctx, purpose, ip)
			if err != nil {
				return e.limiterError(err)
			}
			if !ok {
				return e.rateLimitError(purpose, func() (time.Duration, error) {
					return e.limiter.TimeUntilResetIP(ctx, purpose, ip)
				})
			}
		}
	}

	return nil
}

func (e *Engine) rateLimitError(purpose rate.Purpose, ttl func() (time.Duration, error)) error {
	retryAfter, err := ttl()
	if err != nil {
		e.logger.Warn().Err(err).Msg("failed to read window ttl for rejection")
	}
	return &RateLimitError{
		Purpose:    string(purpose),
		RetryAfter: retryAfter,
	}
}

// recordFailure counts one attempt against the identifier and, when IP
// throttling is on, the client IP. Recording errors are logged, not
// returned: the caller's failure is already decided.
func (e *Engine) recordFailure(ctx context.Context, purpose rate.Purpose, identifier string) {
	if err := e.limiter.Record(ctx, purpose, identifier); err != nil {
		e.logger.Warn().Err(err).Str("purpose", string(purpose)).Msg("failed to record attempt")
	}
	if e.config.RateLimit.EnableIPThrottle {
		if ip := clientIPFromContext(ctx); ip != "" {
			if err := e.limiter.RecordIP(ctx, purpose, ip); err != nil {
				e.logger.Warn().Err(err).Str("purpose", string(purpose)).Msg("failed to record ip attempt")
			}
		}
	}
}
