package authcore

import (
	"context"
)

// identityResolver maps credentials or federated claims to exactly one
// User record. Getting this mapping wrong is account takeover, so the
// federated branch order below is deliberate and covered by tests.
type identityResolver struct {
	users    IdentityStore
	profiles ProfileStore
	hasher   PasswordHasher
}

// localSignup creates a user plus its companion patient profile. The
// providerType/providerID pair distinguishes local signups (EMAIL, "")
// from first federated logins, which reuse this path.
func (r *identityResolver) localSignup(ctx context.Context, req SignupRequest, providerType ProviderType, providerID string) (*User, error) {
	existing, err := r.users.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAccountExists
	}

	user := &User{
		Username:     req.Username,
		ProviderType: providerType,
		ProviderID:   providerID,
		Roles:        NewRoleSet(RolePatient),
	}

	if providerType == ProviderEmail {
		hash, err := r.hasher.Hash(req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	// Save first so the profile links to the assigned user ID.
	user, err = r.users.Save(ctx, user)
	if err != nil {
		return nil, err
	}

	if r.profiles != nil {
		if err := r.profiles.CreatePatientProfile(ctx, user, req.Name); err != nil {
			return nil, err
		}
	}

	return user, nil
}

// localLogin verifies a username/password pair. Absent user, federated
// account without a password, and hash mismatch all surface as the same
// ErrBadCredentials.
func (r *identityResolver) localLogin(ctx context.Context, username, password string) (*User, error) {
	if username == "" || password == "" {
		return nil, ErrBadCredentials
	}

	user, err := r.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil || user.PasswordHash == "" {
		return nil, ErrBadCredentials
	}

	ok, err := r.hasher.Verify(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, ErrBadCredentials
	}

	return user, nil
}

// federated resolves a provider-asserted identity to a user. created
// reports whether this call provisioned a new account.
//
// Branch order: a user matched by (providerID, providerType) is always a
// returning federated user, even when the claimed email collides with a
// username. Only unmatched provider identities whose email is owned by
// another account are conflicts.
func (r *identityResolver) federated(ctx context.Context, provider ProviderType, claims FederatedClaims) (user *User, created bool, err error) {
	providerID, username, err := extractFederatedIdentity(provider, claims)
	if err != nil {
		return nil, false, err
	}

	user, err = r.users.FindByProviderIdentity(ctx, providerID, provider)
	if err != nil {
		return nil, false, err
	}

	email := claimString(claims, "email")
	var emailUser *User
	if email != "" {
		emailUser, err = r.users.FindByUsername(ctx, email)
		if err != nil {
			return nil, false, err
		}
	}

	switch {
	case user == nil && emailUser == nil:
		// First login through this provider, email unclaimed: new account.
		displayName := claimString(claims, "name")
		user, err = r.localSignup(ctx, SignupRequest{Username: username, Name: displayName}, provider, providerID)
		if err != nil {
			return nil, false, err
		}
		return user, true, nil

	case user != nil:
		// Returning federated user. Adopt a newly observed email so the
		// account stays reachable by address.
		if email != "" && email != user.Username {
			user.Username = email
			user, err = r.users.Save(ctx, user)
			if err != nil {
				return nil, false, err
			}
		}
		return user, false, nil

	default:
		// Email already owned by a differently provisioned account.
		return nil, false, &ProviderConflictError{OwningProvider: emailUser.ProviderType}
	}
}
