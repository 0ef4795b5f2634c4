package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func newTestLockout(t *testing.T) (*LockoutRepository, *miniredis.Miniredis) {
	t.Helper()

	client, server := newTestRedis(t)
	repo := NewLockoutRepository(client, LockoutConfig{
		KeyPrefix: "lockout",
		Threshold: 3,
		Duration:  15 * time.Minute,
	})

	return repo, server
}

func TestLockoutRepository_ThresholdCrossedExactlyOnce(t *testing.T) {
	repo, _ := newTestLockout(t)
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		crossed, err := repo.RecordFailure(ctx, "alice@example.com")
		if err != nil {
			t.Fatalf("RecordFailure %d returned error: %v", i, err)
		}
		if crossed {
			t.Fatalf("failure %d must not cross the threshold", i)
		}
	}

	crossed, err := repo.RecordFailure(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("RecordFailure returned error: %v", err)
	}
	if !crossed {
		t.Fatalf("third failure must cross the threshold")
	}

	locked, err := repo.IsLocked(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("IsLocked returned error: %v", err)
	}
	if !locked {
		t.Fatalf("expected account to be locked")
	}

	// Failures past the threshold must not report the crossing again.
	crossed, err = repo.RecordFailure(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("RecordFailure returned error: %v", err)
	}
	if crossed {
		t.Fatalf("only the crossing failure may report true")
	}
}

func TestLockoutRepository_LockExpires(t *testing.T) {
	repo, server := newTestLockout(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := repo.RecordFailure(ctx, "alice@example.com"); err != nil {
			t.Fatalf("RecordFailure returned error: %v", err)
		}
	}

	remaining := server.TTL("lockout:lock:alice@example.com")
	if remaining <= 0 || remaining > 15*time.Minute {
		t.Fatalf("expected lock ttl within (0, 15m], got %v", remaining)
	}

	server.FastForward(16 * time.Minute)

	locked, err := repo.IsLocked(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("IsLocked returned error: %v", err)
	}
	if locked {
		t.Fatalf("lock must expire with its ttl")
	}
}

func TestLockoutRepository_ClearFailures(t *testing.T) {
	repo, _ := newTestLockout(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := repo.RecordFailure(ctx, "alice@example.com"); err != nil {
			t.Fatalf("RecordFailure returned error: %v", err)
		}
	}

	if err := repo.ClearFailures(ctx, "alice@example.com"); err != nil {
		t.Fatalf("ClearFailures returned error: %v", err)
	}

	locked, err := repo.IsLocked(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("IsLocked returned error: %v", err)
	}
	if locked {
		t.Fatalf("clearing must drop the lock")
	}

	// The counter restarts from zero after the clear.
	crossed, err := repo.RecordFailure(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("RecordFailure returned error: %v", err)
	}
	if crossed {
		t.Fatalf("first failure after a clear must not cross the threshold")
	}
}

func TestLockoutRepository_IdentifiersAreIsolated(t *testing.T) {
	repo, _ := newTestLockout(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := repo.RecordFailure(ctx, "alice@example.com"); err != nil {
			t.Fatalf("RecordFailure returned error: %v", err)
		}
	}

	locked, err := repo.IsLocked(ctx, "bob@example.com")
	if err != nil {
		t.Fatalf("IsLocked returned error: %v", err)
	}
	if locked {
		t.Fatalf("locking one identifier must not affect another")
	}
}
