package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"chatroom-backend/internal/config"
)

// ErrNotFound reports that an entity or user is missing from the store,
// either never created or already swept.
var ErrNotFound = errors.New("not found")

// Store is the shared state backend every worker process talks to. All
// mutable state lives here; workers hold no authoritative state of their
// own.
type Store struct {
	client *redis.Client
}

func New(cfg *config.Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}

	return &Store{client: client}, nil
}

// NewWithClient wraps an existing client, mainly for tests.
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Client() *redis.Client {
	return s.client
}

func (s *Store) Close() error {
	return s.client.Close()
}

// AcquireKickVoteLock claims the one-active-vote-per-target slot. Returns
// false when an active vote already holds it. The TTL guards against a
// worker dying between initiating a vote and resolving it.
func (s *Store) AcquireKickVoteLock(ctx context.Context, targetUserID, voteID string) (bool, error) {
	key := fmt.Sprintf(KeyKickVoteLock, targetUserID)
	return s.client.SetNX(ctx, key, voteID, TTLKickVoteLock).Result()
}

func (s *Store) ReleaseKickVoteLock(ctx context.Context, targetUserID string) error {
	key := fmt.Sprintf(KeyKickVoteLock, targetUserID)
	return s.client.Del(ctx, key).Err()
}

// TryAcquireSweepLock elects this process as the sweeper for one tick.
func (s *Store) TryAcquireSweepLock(ctx context.Context, owner string) (bool, error) {
	return s.client.SetNX(ctx, KeySweepLock, owner, TTLSweepLock).Result()
}
