package authcore

import (
	"fmt"
	"strconv"
	"strings"
)

// providerStrategy extracts the two identity facts this engine needs from
// a provider's claim map: the provider-side subject id and a fallback
// username for accounts whose provider shares no email.
type providerStrategy struct {
	extractProviderID func(claims FederatedClaims) string
	fallbackUsername  func(claims FederatedClaims, providerID string) string
}

// One strategy per supported provider, selected by the ProviderType tag.
// Gating on the enum instead of string dispatch keeps unknown providers a
// hard error rather than a half-resolved identity.
var providerStrategies = map[ProviderType]providerStrategy{
	ProviderGoogle: {
		extractProviderID: func(claims FederatedClaims) string {
			return claimString(claims, "sub")
		},
		fallbackUsername: func(claims FederatedClaims, _ string) string {
			return claimString(claims, "sub")
		},
	},
	ProviderGithub: {
		extractProviderID: func(claims FederatedClaims) string {
			return claimString(claims, "id")
		},
		fallbackUsername: func(claims FederatedClaims, _ string) string {
			return claimString(claims, "login")
		},
	},
}

// extractFederatedIdentity resolves provider id and username for the
// given provider. The username preference order is claimed email, then
// the provider-specific fallback, then the raw provider id.
func extractFederatedIdentity(provider ProviderType, claims FederatedClaims) (providerID, username string, err error) {
	strategy, ok := providerStrategies[provider]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}

	providerID = strategy.extractProviderID(claims)
	if strings.TrimSpace(providerID) == "" {
		return "", "", ErrMissingProviderID
	}

	username = claimString(claims, "email")
	if username == "" {
		username = strategy.fallbackUsername(claims, providerID)
	}
	if username == "" {
		username = providerID
	}

	return providerID, username, nil
}

// claimString reads a claim as a string, rendering the numeric types
// providers are known to emit (GitHub ids arrive as numbers).
func claimString(claims FederatedClaims, key string) string {
	value, ok := claims[key]
	if !ok || value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
