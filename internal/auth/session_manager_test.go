package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestManager(t *testing.T, accessTTL, refreshTTL time.Duration) (*Manager, *InMemorySessionStore) {
	t.Helper()
	store := NewInMemorySessionStore()
	manager := NewManager(ManagerConfig{
		Secret:     "test-secret",
		Issuer:     "myphotos-test",
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
	}, store)
	return manager, store
}

func TestManagerIssueAndRefresh(t *testing.T) {
	manager, store := newTestManager(t, time.Minute, time.Hour)
	identity := Identity{UserID: "user-1", Login: "one@example.com"}

	tokens, err := manager.Issue(context.Background(), identity)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("expected non-empty tokens: %+v", tokens)
	}

	got, err := manager.Verify(tokens.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != identity {
		t.Fatalf("expected identity %+v got %+v", identity, got)
	}

	refreshed, err := manager.Refresh(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken == tokens.RefreshToken {
		t.Fatal("expected new refresh token")
	}
	if store.Has(tokens.RefreshToken) {
		t.Fatal("old token should have been removed")
	}

	got, err = manager.Verify(refreshed.AccessToken)
	if err != nil {
		t.Fatalf("verify refreshed: %v", err)
	}
	if got.Login != identity.Login {
		t.Fatalf("expected login to survive refresh, got %+v", got)
	}
}

func TestManagerIssueValidation(t *testing.T) {
	manager, _ := newTestManager(t, time.Minute, time.Hour)
	if _, err := manager.Issue(context.Background(), Identity{}); err == nil {
		t.Fatal("expected error for empty user id")
	}
}

func TestManagerRefreshFailures(t *testing.T) {
	manager, _ := newTestManager(t, time.Minute, time.Minute)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	manager.now = func() time.Time { return now }

	if _, err := manager.Refresh(context.Background(), ""); err != ErrSessionNotFound {
		t.Fatalf("expected session not found got %v", err)
	}

	tokens, err := manager.Issue(context.Background(), Identity{UserID: "user-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	now = now.Add(2 * time.Minute)

	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); err != ErrRefreshTokenExpired {
		t.Fatalf("expected refresh expired got %v", err)
	}

	tokens, err = manager.Issue(context.Background(), Identity{UserID: "user-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	manager.Revoke(context.Background(), tokens.RefreshToken)
	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); err != ErrSessionNotFound {
		t.Fatalf("expected session not found after revoke got %v", err)
	}
}

func TestManagerVerifyRejects(t *testing.T) {
	manager, _ := newTestManager(t, time.Minute, time.Hour)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	manager.now = func() time.Time { return now }

	tokens, err := manager.Issue(context.Background(), Identity{UserID: "user-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	other, _ := newTestManager(t, time.Minute, time.Hour)
	other.secret = []byte("another-secret")
	other.now = manager.now
	if _, err := other.Verify(tokens.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected forged token rejected got %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user-1", Issuer: "myphotos-test"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := manager.Verify(unsigned); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected unsigned token rejected got %v", err)
	}

	if _, err := manager.Verify(strings.Repeat("x", 20)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected garbage rejected got %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := manager.Verify(tokens.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token rejected got %v", err)
	}
}

func TestIdentityContext(t *testing.T) {
	if _, ok := IdentityFromContext(context.Background()); ok {
		t.Fatal("expected no identity on empty context")
	}
	ctx := WithIdentity(context.Background(), Identity{UserID: "u1", Login: "u1@example.com"})
	identity, ok := IdentityFromContext(ctx)
	if !ok || identity.UserID != "u1" {
		t.Fatalf("unexpected identity %+v", identity)
	}
}
