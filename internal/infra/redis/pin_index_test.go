package redis

import (
	"context"
	"testing"
	"time"
)

func TestPINIndexReserveIsExclusive(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	index := NewPINIndex(client, time.Hour)

	ok, err := index.Reserve(ctx, "482913", "session-1")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if !ok {
		t.Fatalf("expected first reservation to succeed")
	}
	if !mr.Exists("live:pin:482913") {
		t.Fatalf("expected pin key in redis")
	}

	ok, err = index.Reserve(ctx, "482913", "session-2")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if ok {
		t.Fatalf("expected second reservation to be rejected")
	}
}

func TestPINIndexReleaseFreesThePIN(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)
	index := NewPINIndex(client, time.Hour)

	if _, err := index.Reserve(ctx, "482913", "session-1"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := index.Release(ctx, "482913"); err != nil {
		t.Fatalf("release: %v", err)
	}

	ok, err := index.Reserve(ctx, "482913", "session-2")
	if err != nil {
		t.Fatalf("reserve after release: %v", err)
	}
	if !ok {
		t.Fatalf("expected released pin to be reusable")
	}
}
