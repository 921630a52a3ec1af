package memory

import (
	"context"
	"testing"
	"time"

	"globalquiz-service/internal/app"
	"globalquiz-service/internal/domain"
)

func TestTokenStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	store := NewTokenStoreWithClock(func() time.Time { return now })

	data := app.TokenData{SessionID: "s1", PIN: "482913", QuizID: "corleg-72", Nickname: "Mario"}
	if err := store.Issue(ctx, "tok-1", data, time.Hour); err != nil {
		t.Fatalf("issue: %v", err)
	}

	got, err := store.Resolve(ctx, "tok-1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != data {
		t.Fatalf("expected %+v, got %+v", data, got)
	}

	now = now.Add(2 * time.Hour)
	if _, err := store.Resolve(ctx, "tok-1"); err != domain.ErrUnauthorized {
		t.Fatalf("expected unauthorized after expiry, got %v", err)
	}
}

func TestTokenStoreRevoke(t *testing.T) {
	ctx := context.Background()
	store := NewTokenStore()

	if err := store.Issue(ctx, "tok-1", app.TokenData{SessionID: "s1"}, time.Hour); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := store.Revoke(ctx, "tok-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := store.Resolve(ctx, "tok-1"); err != domain.ErrUnauthorized {
		t.Fatalf("expected unauthorized after revoke, got %v", err)
	}
	if _, err := store.Resolve(ctx, "never-issued"); err != domain.ErrUnauthorized {
		t.Fatalf("expected unauthorized for unknown token, got %v", err)
	}
}
