// Package redis implements the session store on Redis. Each record is two
// keys: a forward key from account id to the live refresh token and a
// reverse key from token to account id. Both expire with the refresh TTL,
// so abandoned sessions clean themselves up.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Mathew-Seliverstov/projectAuthServer/internal/storage"
)

type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

func New(ctx context.Context, cfg Config, ttl time.Duration) (*SessionStore, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &SessionStore{client: client, ttl: ttl}, nil
}

func (s *SessionStore) Close() error {
	return s.client.Close()
}

func accountKey(accountID int64) string {
	return "session:account:" + strconv.FormatInt(accountID, 10)
}

func tokenKey(refreshToken string) string {
	return "session:token:" + refreshToken
}

// SaveSession upserts the single session record for the account, dropping
// the reverse key of any token it replaces.
func (s *SessionStore) SaveSession(ctx context.Context, accountID int64, refreshToken string) error {
	const op = "storage.redis.SaveSession"

	oldToken, err := s.client.Get(ctx, accountKey(accountID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%s: %w", op, err)
	}

	pipe := s.client.TxPipeline()
	if oldToken != "" && oldToken != refreshToken {
		pipe.Del(ctx, tokenKey(oldToken))
	}
	pipe.Set(ctx, accountKey(accountID), refreshToken, s.ttl)
	pipe.Set(ctx, tokenKey(refreshToken), strconv.FormatInt(accountID, 10), s.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *SessionStore) AccountIDByRefreshToken(ctx context.Context, refreshToken string) (int64, error) {
	const op = "storage.redis.AccountIDByRefreshToken"

	val, err := s.client.Get(ctx, tokenKey(refreshToken)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, fmt.Errorf("%s: %w", op, storage.ErrSessionNotFound)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	accountID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return accountID, nil
}

func (s *SessionStore) RemoveSession(ctx context.Context, refreshToken string) (int64, error) {
	const op = "storage.redis.RemoveSession"

	val, err := s.client.Get(ctx, tokenKey(refreshToken)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, tokenKey(refreshToken))
	pipe.Del(ctx, "session:account:"+val)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return 1, nil
}
