package authcore

import (
	"context"
	"errors"
	"testing"
)

func googleClaims(sub, email, name string) FederatedClaims {
	claims := FederatedClaims{"sub": sub}
	if email != "" {
		claims["email"] = email
	}
	if name != "" {
		claims["name"] = name
	}
	return claims
}

func TestFederatedLoginCreatesAccount(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	users := newMockIdentityStore()
	profiles := &mockProfileStore{}
	engine := newTestEngine(t, testConfig(), rdb, users, profiles)

	res, err := engine.FederatedLogin(context.Background(), ProviderGoogle,
		googleClaims("g-123", "alice@example.com", "Alice"))
	if err != nil {
		t.Fatalf("FederatedLogin failed: %v", err)
	}
	if res.Token == "" {
		t.Fatal("expected a token")
	}

	stored, err := users.FindByProviderIdentity(context.Background(), "g-123", ProviderGoogle)
	if err != nil || stored == nil {
		t.Fatalf("expected provisioned user, got %v err=%v", stored, err)
	}
	if stored.Username != "alice@example.com" {
		t.Fatalf("expected email username, got %q", stored.Username)
	}
	if stored.PasswordHash != "" {
		t.Fatal("federated account must not carry a password hash")
	}
	if !stored.HasRole(RolePatient) {
		t.Fatal("expected PATIENT role on provisioned account")
	}
	if len(profiles.names) != 1 {
		t.Fatalf("expected one patient profile, got %v", profiles.names)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricFederatedSignup] != 1 {
		t.Fatalf("expected 1 federated signup, got %d", snap.Counters[MetricFederatedSignup])
	}
}

func TestFederatedLoginReturningUser(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	users := newMockIdentityStore()
	engine := newTestEngine(t, testConfig(), rdb, users, nil)

	first, err := engine.FederatedLogin(context.Background(), ProviderGoogle,
		googleClaims("g-123", "alice@example.com", "Alice"))
	if err != nil {
		t.Fatalf("first FederatedLogin failed: %v", err)
	}

	second, err := engine.FederatedLogin(context.Background(), ProviderGoogle,
		googleClaims("g-123", "alice@example.com", "Alice"))
	if err != nil {
		t.Fatalf("second FederatedLogin failed: %v", err)
	}
	if first.UserID != second.UserID {
		t.Fatalf("expected same account, got %d and %d", first.UserID, second.UserID)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricFederatedLogin] != 1 || snap.Counters[MetricFederatedSignup] != 1 {
		t.Fatalf("expected one signup then one login, got %+v", snap.Counters)
	}
}

func TestFederatedLoginAdoptsNewEmail(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	users := newMockIdentityStore()
	engine := newTestEngine(t, testConfig(), rdb, users, nil)

	first, err := engine.FederatedLogin(context.Background(), ProviderGoogle,
		googleClaims("g-123", "old@example.com", "Alice"))
	if err != nil {
		t.Fatalf("first FederatedLogin failed: %v", err)
	}

	if _, err := engine.FederatedLogin(context.Background(), ProviderGoogle,
		googleClaims("g-123", "new@example.com", "Alice")); err != nil {
		t.Fatalf("second FederatedLogin failed: %v", err)
	}

	stored, err := users.FindByID(context.Background(), first.UserID)
	if err != nil || stored == nil {
		t.Fatalf("expected user, got %v err=%v", stored, err)
	}
	if stored.Username != "new@example.com" {
		t.Fatalf("expected adopted email username, got %q", stored.Username)
	}
}

func TestFederatedLoginProviderConflict(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	users := newMockIdentityStore()
	engine := newTestEngine(t, testConfig(), rdb, users, nil)
	seedUser(t, engine, users, "alice@example.com", "correct-horse-battery")

	_, err := engine.FederatedLogin(context.Background(), ProviderGoogle,
		googleClaims("g-123", "alice@example.com", "Alice"))

	var conflict *ProviderConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected *ProviderConflictError, got %v", err)
	}
	if conflict.OwningProvider != ProviderEmail {
		t.Fatalf("expected EMAIL owner, got %s", conflict.OwningProvider)
	}
}

func TestFederatedReturningUserBeatsConflict(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	users := newMockIdentityStore()
	engine := newTestEngine(t, testConfig(), rdb, users, nil)

	// Provision the federated account, then claim its new email locally.
	first, err := engine.FederatedLogin(context.Background(), ProviderGoogle,
		googleClaims("g-123", "alice@example.com", "Alice"))
	if err != nil {
		t.Fatalf("FederatedLogin failed: %v", err)
	}

	res, err := engine.FederatedLogin(context.Background(), ProviderGoogle,
		googleClaims("g-123", "alice@example.com", "Alice"))
	if err != nil {
		t.Fatalf("returning federated user must win over email match: %v", err)
	}
	if res.UserID != first.UserID {
		t.Fatalf("expected same account, got %d and %d", first.UserID, res.UserID)
	}
}

func TestFederatedLoginGithubNumericID(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	users := newMockIdentityStore()
	engine := newTestEngine(t, testConfig(), rdb, users, nil)

	// GitHub delivers a numeric id and often no public email.
	_, err := engine.FederatedLogin(context.Background(), ProviderGithub, FederatedClaims{
		"id":    float64(987654),
		"login": "octocat",
	})
	if err != nil {
		t.Fatalf("FederatedLogin failed: %v", err)
	}

	stored, err := users.FindByProviderIdentity(context.Background(), "987654", ProviderGithub)
	if err != nil || stored == nil {
		t.Fatalf("expected provisioned user, got %v err=%v", stored, err)
	}
	if stored.Username != "octocat" {
		t.Fatalf("expected login fallback username, got %q", stored.Username)
	}
}

func TestFederatedLoginUnknownProvider(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine := newTestEngine(t, testConfig(), rdb, newMockIdentityStore(), nil)

	_, err := engine.FederatedLogin(context.Background(), ProviderType("GITLAB"), FederatedClaims{"sub": "x"})
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestFederatedLoginMissingProviderID(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine := newTestEngine(t, testConfig(), rdb, newMockIdentityStore(), nil)

	_, err := engine.FederatedLogin(context.Background(), ProviderGoogle, FederatedClaims{
		"email": "alice@example.com",
	})
	if !errors.Is(err, ErrMissingProviderID) {
		t.Fatalf("expected ErrMissingProviderID, got %v", err)
	}
}

func TestFederatedLoginNotRateLimited(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	users := newMockIdentityStore()
	engine := newTestEngine(t, testConfig(), rdb, users, nil)

	for i := 0; i < 10; i++ {
		if _, err := engine.FederatedLogin(context.Background(), ProviderGoogle,
			googleClaims("g-123", "alice@example.com", "Alice")); err != nil {
			t.Fatalf("federated login %d unexpectedly failed: %v", i, err)
		}
	}
}
