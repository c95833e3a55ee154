package authcore

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func auditTestConfig() Config {
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 16
	cfg.Audit.DropIfFull = true
	return cfg
}

func waitForEvent(t *testing.T, events <-chan AuditEvent, eventType string) AuditEvent {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-events:
			if event.EventType == eventType {
				return event
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", eventType)
		}
	}
}

func TestAuditLoginEvents(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	sink := NewChannelSink(16)
	users := newMockIdentityStore()

	engine, err := New().
		WithConfig(auditTestConfig()).
		WithRedis(rdb).
		WithIdentityStore(users).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	user := seedUser(t, engine, users, "alice@example.com", "correct-horse-battery")

	_, _ = engine.Login(context.Background(), "alice@example.com", "wrong")
	failure := waitForEvent(t, sink.Events(), auditEventLoginFailure)
	if failure.Success {
		t.Fatal("failure event marked success")
	}

	if _, err := engine.Login(context.Background(), "alice@example.com", "correct-horse-battery"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	success := waitForEvent(t, sink.Events(), auditEventLoginSuccess)
	if !success.Success || success.UserID != user.ID {
		t.Fatalf("unexpected success event %+v", success)
	}
}

func TestAuditCarriesClientIP(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	sink := NewChannelSink(16)
	users := newMockIdentityStore()

	engine, err := New().
		WithConfig(auditTestConfig()).
		WithRedis(rdb).
		WithIdentityStore(users).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	ctx := WithClientIP(context.Background(), "203.0.113.7")
	_, _ = engine.Login(ctx, "nobody@example.com", "wrong")

	event := waitForEvent(t, sink.Events(), auditEventLoginFailure)
	if event.IP != "203.0.113.7" {
		t.Fatalf("expected client ip on event, got %q", event.IP)
	}
}

func TestAuditDisabledEmitsNothing(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	users := newMockIdentityStore()
	engine := newTestEngine(t, testConfig(), rdb, users, nil)
	seedUser(t, engine, users, "alice@example.com", "correct-horse-battery")

	if _, err := engine.Login(context.Background(), "alice@example.com", "correct-horse-battery"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if engine.AuditDropped() != 0 {
		t.Fatal("disabled audit must not count drops")
	}
}

type blockingSink struct {
	release chan struct{}
	once    sync.Once
}

func (s *blockingSink) Emit(_ context.Context, _ AuditEvent) {
	<-s.release
}

func (s *blockingSink) unblock() {
	s.once.Do(func() { close(s.release) })
}

func TestAuditDropsWhenSaturated(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	defer sink.unblock()

	d := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
	}, sink)
	defer d.Close()

	// One event occupies the worker, one fills the buffer; the rest shed.
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "x"})
	}

	if d.Dropped() == 0 {
		t.Fatal("expected dropped events under saturation")
	}

	sink.unblock()
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{
		Timestamp: time.Now(),
		EventType: "login_success",
		UserID:    7,
		Success:   true,
	})

	var decoded AuditEvent
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if decoded.EventType != "login_success" || decoded.UserID != 7 {
		t.Fatalf("unexpected event %+v", decoded)
	}
}
