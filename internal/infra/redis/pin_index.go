package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// PINIndex reserves live PINs in Redis via SETNX:
// SET live:pin:{pin} {sessionID} NX EX ttl
// The key doubles as a session liveness marker; the TTL is a safety net for
// sessions that never complete.
type PINIndex struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPINIndex(client *redis.Client, ttl time.Duration) *PINIndex {
	return &PINIndex{client: client, ttl: ttl}
}

func (i *PINIndex) Reserve(ctx context.Context, pin, sessionID string) (bool, error) {
	return i.client.SetNX(ctx, i.key(pin), sessionID, i.ttl).Result()
}

func (i *PINIndex) Release(ctx context.Context, pin string) error {
	return i.client.Del(ctx, i.key(pin)).Err()
}

func (i *PINIndex) key(pin string) string {
	return "live:pin:" + pin
}
