package authcore

import (
	"context"
	"errors"

	"github.com/medisync/authcore/internal/rate"
)

// Signup runs the local signup state machine. Unlike login, the attempt
// is recorded before account creation and never refunded: a duplicate
// username or a validation failure still consumes signup budget, which
// keeps the endpoint useless for enumerating taken names at volume.
func (e *Engine) Signup(ctx context.Context, req SignupRequest) (*SignupResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	if err := e.admit(ctx, rate.PurposeSignup, req.Username); err != nil {
		var rl *RateLimitError
		if errors.As(err, &rl) {
			e.metricInc(MetricSignupRateLimited)
			e.emitAudit(ctx, auditEventSignupRateLimited, false, 0, err, func() map[string]string {
				return map[string]string{"username": req.Username}
			})
		}
		return nil, err
	}

	// Unconditional: the attempt counts whether or not creation succeeds.
	// Recording failure fails closed for the same reason admission does.
	if err := e.limiter.Record(ctx, rate.PurposeSignup, req.Username); err != nil {
		return nil, e.limiterError(err)
	}
	if e.config.RateLimit.EnableIPThrottle {
		if ip := clientIPFromContext(ctx); ip != "" {
			if err := e.limiter.RecordIP(ctx, rate.PurposeSignup, ip); err != nil {
				return nil, e.limiterError(err)
			}
		}
	}

	if req.Username == "" || req.Password == "" {
		e.emitAudit(ctx, auditEventSignupFailure, false, 0, ErrInvalidSignup, nil)
		return nil, ErrInvalidSignup
	}

	user, err := e.resolver.localSignup(ctx, req, ProviderEmail, "")
	if err != nil {
		if errors.Is(err, ErrAccountExists) {
			e.metricInc(MetricSignupDuplicate)
		}
		e.emitAudit(ctx, auditEventSignupFailure, false, 0, err, func() map[string]string {
			return map[string]string{"username": req.Username}
		})
		return nil, err
	}

	e.metricInc(MetricSignupSuccess)
	e.emitAudit(ctx, auditEventSignupSuccess, true, user.ID, nil, nil)

	return &SignupResult{UserID: user.ID, Username: user.Username}, nil
}
