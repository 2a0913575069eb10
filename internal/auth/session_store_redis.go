package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisSessionPrefix = "myphotos:session:"

// RedisSessionStore keeps refresh tokens in Redis with a TTL matching their expiry.
type RedisSessionStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRedisSessionStore constructs a session store over an existing Redis client.
func NewRedisSessionStore(client redis.UniversalClient) *RedisSessionStore {
	return &RedisSessionStore{client: client, now: time.Now}
}

func sessionKey(refreshToken string) string { return redisSessionPrefix + refreshToken }

// Save stores or replaces a session record.
func (s *RedisSessionStore) Save(ctx context.Context, session Session) error {
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return ErrRefreshTokenExpired
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := s.client.Set(ctx, sessionKey(session.RefreshToken), payload, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Find loads a session by its refresh token.
func (s *RedisSessionStore) Find(ctx context.Context, refreshToken string) (Session, error) {
	payload, err := s.client.Get(ctx, sessionKey(refreshToken)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	session.ExpiresAt = session.ExpiresAt.UTC()
	return session, nil
}

// Delete removes a session by its refresh token.
func (s *RedisSessionStore) Delete(ctx context.Context, refreshToken string) error {
	removed, err := s.client.Del(ctx, sessionKey(refreshToken)).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if removed == 0 {
		return ErrSessionNotFound
	}
	return nil
}
