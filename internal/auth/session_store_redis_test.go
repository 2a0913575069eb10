package auth

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func newRedisTestStore(t *testing.T) *RedisSessionStore {
	t.Helper()
	addr := os.Getenv("MYPHOTOS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("MYPHOTOS_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	return NewRedisSessionStore(client)
}

func TestRedisSessionStoreIntegration(t *testing.T) {
	store := newRedisTestStore(t)
	ctx := context.Background()

	session := Session{
		RefreshToken: "redis-token-" + time.Now().Format("150405.000000"),
		UserID:       "user-1",
		Login:        "one@example.com",
		ExpiresAt:    time.Now().Add(time.Minute).UTC().Truncate(time.Second),
	}
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Find(ctx, session.RefreshToken)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.UserID != session.UserID || got.Login != session.Login || !got.ExpiresAt.Equal(session.ExpiresAt) {
		t.Fatalf("unexpected session %+v", got)
	}

	if err := store.Delete(ctx, session.RefreshToken); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Find(ctx, session.RefreshToken); err != ErrSessionNotFound {
		t.Fatalf("expected not found after delete got %v", err)
	}
	if err := store.Delete(ctx, session.RefreshToken); err != ErrSessionNotFound {
		t.Fatalf("expected not found on second delete got %v", err)
	}
}

func TestRedisSessionStoreRejectsExpired(t *testing.T) {
	store := NewRedisSessionStore(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}))
	err := store.Save(context.Background(), Session{RefreshToken: "t", ExpiresAt: time.Now().Add(-time.Second)})
	if err != ErrRefreshTokenExpired {
		t.Fatalf("expected expired session rejected got %v", err)
	}
}
