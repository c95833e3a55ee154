package counter

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	return mr, NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestRedisGetAbsentKey(t *testing.T) {
	_, s := newTestRedisStore(t)

	_, ok, err := s.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Fatal("expected missing key")
	}
}

func TestRedisIncrementAndGet(t *testing.T) {
	_, s := newTestRedisStore(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := s.Increment(ctx, "k")
		if err != nil {
			t.Fatalf("Increment failed: %v", err)
		}
		if got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
	}

	value, ok, err := s.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if value != 3 {
		t.Fatalf("expected 3, got %d", value)
	}
}

func TestRedisExpireAndTTL(t *testing.T) {
	mr, s := newTestRedisStore(t)
	ctx := context.Background()

	if _, err := s.Increment(ctx, "k"); err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	if err := s.Expire(ctx, "k", time.Minute); err != nil {
		t.Fatalf("Expire failed: %v", err)
	}

	ttl, err := s.TTL(ctx, "k")
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected ttl in (0, 1m], got %v", ttl)
	}

	mr.FastForward(2 * time.Minute)

	_, ok, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Fatal("expected key expired")
	}
}

func TestRedisTTLAbsentKeyIsZero(t *testing.T) {
	_, s := newTestRedisStore(t)

	ttl, err := s.TTL(context.Background(), "missing")
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl != 0 {
		t.Fatalf("expected 0 ttl, got %v", ttl)
	}
}

func TestRedisDelete(t *testing.T) {
	_, s := newTestRedisStore(t)
	ctx := context.Background()

	if err := s.SetWithExpiry(ctx, "k", 5, time.Minute); err != nil {
		t.Fatalf("SetWithExpiry failed: %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	_, ok, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Fatal("expected key deleted")
	}
}
