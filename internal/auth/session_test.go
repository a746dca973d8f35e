package auth

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"go-useradmin/internal/config"
	redisdb "go-useradmin/internal/redis"
)

func exerciseStore(t *testing.T, store SessionStore) {
	t.Helper()
	ctx := context.Background()
	userId := uint(12345)
	token := "session_test_token"

	// Set session
	if err := store.Set(ctx, userId, token, 2*time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Get session
	gotToken, err := store.Get(ctx, userId)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if gotToken != token {
		t.Errorf("expected token %q, got %q", token, gotToken)
	}

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n < 1 {
		t.Errorf("expected at least one active session, got %d", n)
	}

	// Delete session
	if err := store.Delete(ctx, userId); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	// Get session after deletion
	if _, err := store.Get(ctx, userId); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession for deleted session, got %v", err)
	}
}

func TestMemorySessionStore(t *testing.T) {
	exerciseStore(t, NewMemorySessionStore())
}

func TestMemorySessionStore_Expiry(t *testing.T) {
	store := NewMemorySessionStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_ = store.Set(ctx, 1, "a", time.Minute)
	_ = store.Set(ctx, 2, "b", time.Hour)

	now = now.Add(2 * time.Minute)
	if _, err := store.Get(ctx, 1); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected expired session, got %v", err)
	}
	if n, _ := store.Count(ctx); n != 1 {
		t.Errorf("expected 1 live session, got %d", n)
	}
}

// Runs only against a real Redis, selected with TEST_REDIS_ADDR.
func TestRedisSessionStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run real Redis test")
	}
	cfg := &config.Config{}
	cfg.Redis.Addr = addr
	cfg.Redis.DB = 15
	exerciseStore(t, NewRedisSessionStore(redisdb.NewClient(cfg)))
}
