package oidc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// StateTTL bounds how long a login attempt may take
const StateTTL = 10 * time.Minute

const stateKeyPrefix = "oidc:state:"

// ErrInvalidState is returned for unknown, expired or reused state values
var ErrInvalidState = errors.New("invalid or expired login state")

// StateStore remembers which provider issued a state value, exactly once
type StateStore interface {
	Save(ctx context.Context, state, provider string, ttl time.Duration) error
	Consume(ctx context.Context, state string) (string, error)
}

// RedisStateStore keeps login states in Redis
type RedisStateStore struct {
	client redis.Cmdable
}

// NewRedisStateStore creates a Redis-backed state store
func NewRedisStateStore(client redis.Cmdable) *RedisStateStore {
	return &RedisStateStore{client: client}
}

// Save stores state for ttl
func (s *RedisStateStore) Save(ctx context.Context, state, provider string, ttl time.Duration) error {
	if err := s.client.Set(ctx, stateKeyPrefix+state, provider, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save login state: %w", err)
	}
	return nil
}

// Consume deletes state and returns its provider
func (s *RedisStateStore) Consume(ctx context.Context, state string) (string, error) {
	provider, err := s.client.GetDel(ctx, stateKeyPrefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrInvalidState
	}
	if err != nil {
		return "", fmt.Errorf("failed to read login state: %w", err)
	}
	return provider, nil
}

func newState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
