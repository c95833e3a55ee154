package authcore

import (
	"context"
	"time"
)

const (
	auditEventLoginSuccess      = "login_success"
	auditEventLoginFailure      = "login_failure"
	auditEventLoginRateLimited  = "login_rate_limited"
	auditEventSignupSuccess     = "signup_success"
	auditEventSignupFailure     = "signup_failure"
	auditEventSignupRateLimited = "signup_rate_limited"
	auditEventFederatedLogin    = "federated_login"
	auditEventFederatedSignup   = "federated_signup"
	auditEventFederatedConflict = "federated_conflict"
	auditEventUserVanished      = "token_subject_vanished"
	auditEventRoleGranted       = "role_granted"
)

// emitAudit hands one event to the dispatcher. The metadata closure is
// only invoked when auditing is enabled, keeping map allocations off the
// hot path otherwise.
func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, userID int64, err error, meta func() map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: eventType,
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
	}
	if err != nil {
		event.Error = err.Error()
	}
	if meta != nil {
		event.Metadata = meta()
	}

	e.audit.Emit(ctx, event)
}
