package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"globalquiz-service/internal/app"
	"globalquiz-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

// TokenStore keeps join tokens in Redis with per-token TTL:
// SET live:token:{token} {json} EX ttl
type TokenStore struct {
	client *redis.Client
}

func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client}
}

func (s *TokenStore) Issue(ctx context.Context, token string, data app.TokenData, ttl time.Duration) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal token data: %w", err)
	}
	return s.client.Set(ctx, s.key(token), raw, ttl).Err()
}

func (s *TokenStore) Resolve(ctx context.Context, token string) (app.TokenData, error) {
	raw, err := s.client.Get(ctx, s.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return app.TokenData{}, domain.ErrUnauthorized
	}
	if err != nil {
		return app.TokenData{}, err
	}
	var data app.TokenData
	if err := json.Unmarshal(raw, &data); err != nil {
		return app.TokenData{}, fmt.Errorf("unmarshal token data: %w", err)
	}
	return data, nil
}

func (s *TokenStore) Revoke(ctx context.Context, token string) error {
	return s.client.Del(ctx, s.key(token)).Err()
}

func (s *TokenStore) key(token string) string {
	return "live:token:" + token
}
