package ratelimit

import (
	"testing"
	"time"
)

func TestLimiter_BurstThenReject(t *testing.T) {
	t.Parallel()

	l := New(Config{Requests: 3, Window: time.Minute})

	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed within burst", i+1)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Fatal("request beyond burst should be rejected")
	}
}

func TestLimiter_ClientsAreIndependent(t *testing.T) {
	t.Parallel()

	l := New(Config{Requests: 1, Window: time.Minute})

	if !l.Allow("10.0.0.1") {
		t.Fatal("first client should be allowed")
	}
	if l.Allow("10.0.0.1") {
		t.Fatal("first client should be exhausted")
	}
	if !l.Allow("10.0.0.2") {
		t.Fatal("second client should not be blocked by the first")
	}
}

func TestLimiter_DisabledWithoutWindow(t *testing.T) {
	t.Parallel()

	l := New(Config{Requests: 0, Window: 0})
	for i := 0; i < 100; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("request %d rejected by a disabled limiter", i+1)
		}
	}
}

func TestLimiter_PruneDropsIdleClients(t *testing.T) {
	t.Parallel()

	l := New(Config{Requests: 5, Window: time.Minute})

	current := time.Unix(1000, 0)
	l.now = func() time.Time { return current }

	l.Allow("10.0.0.1")
	l.Allow("10.0.0.2")

	current = current.Add(10 * time.Minute)
	l.Allow("10.0.0.2")

	if removed := l.Prune(5 * time.Minute); removed != 1 {
		t.Fatalf("expected 1 pruned client, got %d", removed)
	}
	if l.Len() != 1 {
		t.Fatalf("expected 1 tracked client after prune, got %d", l.Len())
	}

	// The surviving client keeps its bucket state.
	if !l.Allow("10.0.0.2") {
		t.Fatal("surviving client should still be allowed")
	}
}

func TestLimiter_PruneKeepsActiveClients(t *testing.T) {
	t.Parallel()

	l := New(Config{Requests: 5, Window: time.Minute})
	l.Allow("10.0.0.1")

	if removed := l.Prune(time.Hour); removed != 0 {
		t.Fatalf("expected no pruned clients, got %d", removed)
	}
	if l.Len() != 1 {
		t.Fatalf("expected 1 tracked client, got %d", l.Len())
	}
}
