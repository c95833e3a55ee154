package authcore

import (
	"context"
	"errors"
)

// FederatedLogin resolves a provider-asserted identity, provisioning an
// account on first contact, and issues a token for it. Federated logins
// are not identifier-rate-limited: the provider has already verified the
// subject, so there is no credential to brute-force here.
func (e *Engine) FederatedLogin(ctx context.Context, provider ProviderType, claims FederatedClaims) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	user, created, err := e.resolver.federated(ctx, provider, claims)
	if err != nil {
		var conflict *ProviderConflictError
		if errors.As(err, &conflict) {
			e.metricInc(MetricFederatedConflict)
			e.emitAudit(ctx, auditEventFederatedConflict, false, 0, err, func() map[string]string {
				return map[string]string{
					"provider":        string(provider),
					"owning_provider": string(conflict.OwningProvider),
				}
			})
		}
		return nil, err
	}

	tokenStr, err := e.tokens.Issue(user.Username, user.ID)
	if err != nil {
		return nil, err
	}

	if created {
		e.metricInc(MetricFederatedSignup)
		e.emitAudit(ctx, auditEventFederatedSignup, true, user.ID, nil, func() map[string]string {
			return map[string]string{"provider": string(provider)}
		})
	} else {
		e.metricInc(MetricFederatedLogin)
		e.emitAudit(ctx, auditEventFederatedLogin, true, user.ID, nil, func() map[string]string {
			return map[string]string{"provider": string(provider)}
		})
	}

	return &LoginResult{Token: tokenStr, UserID: user.ID}, nil
}
