package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"exam-practice-service/internal/app"
	"exam-practice-service/internal/domain"
)

// TokenStore keeps bearer tokens in Redis so logins survive process restarts
// and are shared across instances. Values are the JSON-encoded identity;
// expiry is delegated to the key TTL.
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewTokenStore(client *redis.Client, defaultTTL time.Duration) *TokenStore {
	return &TokenStore{client: client, ttl: defaultTTL}
}

func (s *TokenStore) Save(ctx context.Context, token string, identity app.Identity, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.ttl
	}
	payload, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	if err := s.client.Set(ctx, s.key(token), payload, ttl).Err(); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (s *TokenStore) Lookup(ctx context.Context, token string) (app.Identity, error) {
	raw, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err == redis.Nil {
		return app.Identity{}, domain.ErrTokenNotFound
	}
	if err != nil {
		return app.Identity{}, fmt.Errorf("lookup token: %w", err)
	}
	var identity app.Identity
	if err := json.Unmarshal(raw, &identity); err != nil {
		return app.Identity{}, fmt.Errorf("unmarshal identity: %w", err)
	}
	return identity, nil
}

func (s *TokenStore) Delete(ctx context.Context, token string) error {
	removed, err := s.client.Del(ctx, s.key(token)).Result()
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	if removed == 0 {
		return domain.ErrTokenNotFound
	}
	return nil
}

func (s *TokenStore) key(token string) string {
	return "auth:token:" + token
}
