package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/medisync/authcore/counter"
)

func newTestLimiter(t *testing.T) (*miniredis.Miniredis, *Limiter) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := New(counter.NewRedisStore(client), Config{
		Login:  Policy{MaxAttempts: 3, Window: time.Minute},
		Signup: Policy{MaxAttempts: 2, Window: time.Hour},
	})

	return mr, limiter
}

func TestWindowExhaustion(t *testing.T) {
	mr, l := newTestLimiter(t)
	defer mr.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allowed(ctx, PurposeLogin, "alice")
		if err != nil {
			t.Fatalf("Allowed failed: %v", err)
		}
		if !ok {
			t.Fatalf("attempt %d unexpectedly rejected", i)
		}
		if err := l.Record(ctx, PurposeLogin, "alice"); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	ok, err := l.Allowed(ctx, PurposeLogin, "alice")
	if err != nil {
		t.Fatalf("Allowed failed: %v", err)
	}
	if ok {
		t.Fatal("expected rejection after exhausting the window")
	}
}

func TestWindowLapses(t *testing.T) {
	mr, l := newTestLimiter(t)
	defer mr.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = l.Record(ctx, PurposeLogin, "alice")
	}

	mr.FastForward(2 * time.Minute)

	ok, err := l.Allowed(ctx, PurposeLogin, "alice")
	if err != nil {
		t.Fatalf("Allowed failed: %v", err)
	}
	if !ok {
		t.Fatal("expected fresh window after TTL lapse")
	}
}

func TestRecordKeepsOriginalDeadline(t *testing.T) {
	mr, l := newTestLimiter(t)
	defer mr.Close()
	ctx := context.Background()

	if err := l.Record(ctx, PurposeLogin, "alice"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	mr.FastForward(30 * time.Second)

	// Later attempts must not extend the window.
	if err := l.Record(ctx, PurposeLogin, "alice"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	ttl, err := l.TimeUntilReset(ctx, PurposeLogin, "alice")
	if err != nil {
		t.Fatalf("TimeUntilReset failed: %v", err)
	}
	if ttl > 30*time.Second {
		t.Fatalf("expected ttl <= 30s, got %v", ttl)
	}
}

func TestResetClearsWindow(t *testing.T) {
	mr, l := newTestLimiter(t)
	defer mr.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = l.Record(ctx, PurposeLogin, "alice")
	}

	if err := l.Reset(ctx, PurposeLogin, "alice"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	remaining, err := l.Remaining(ctx, PurposeLogin, "alice")
	if err != nil {
		t.Fatalf("Remaining failed: %v", err)
	}
	if remaining != 3 {
		t.Fatalf("expected full budget after reset, got %d", remaining)
	}
}

func TestRemainingClampsAtZero(t *testing.T) {
	mr, l := newTestLimiter(t)
	defer mr.Close()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = l.Record(ctx, PurposeLogin, "alice")
	}

	remaining, err := l.Remaining(ctx, PurposeLogin, "alice")
	if err != nil {
		t.Fatalf("Remaining failed: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected 0 remaining, got %d", remaining)
	}
}

func TestPurposesAreIndependent(t *testing.T) {
	mr, l := newTestLimiter(t)
	defer mr.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = l.Record(ctx, PurposeLogin, "alice")
	}

	ok, err := l.Allowed(ctx, PurposeSignup, "alice")
	if err != nil {
		t.Fatalf("Allowed failed: %v", err)
	}
	if !ok {
		t.Fatal("signup window must be unaffected by login attempts")
	}
}

func TestIPWindowsAreScopedSeparately(t *testing.T) {
	mr, l := newTestLimiter(t)
	defer mr.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = l.RecordIP(ctx, PurposeLogin, "203.0.113.7")
	}

	// Identifier windows share nothing with IP windows, even for equal
	// key suffixes.
	ok, err := l.Allowed(ctx, PurposeLogin, "203.0.113.7")
	if err != nil {
		t.Fatalf("Allowed failed: %v", err)
	}
	if !ok {
		t.Fatal("identifier window must be unaffected by IP records")
	}

	ok, err = l.AllowedIP(ctx, PurposeLogin, "203.0.113.7")
	if err != nil {
		t.Fatalf("AllowedIP failed: %v", err)
	}
	if ok {
		t.Fatal("expected IP window exhausted")
	}
}

func TestStoreDownSurfacesUnavailable(t *testing.T) {
	mr, l := newTestLimiter(t)
	mr.Close()
	ctx := context.Background()

	if _, err := l.Allowed(ctx, PurposeLogin, "alice"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from Allowed, got %v", err)
	}
	if err := l.Record(ctx, PurposeLogin, "alice"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from Record, got %v", err)
	}
}
