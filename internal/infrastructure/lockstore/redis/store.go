// Package redis backs advisory locks with a shared Redis instance so that API
// and worker processes serialize on the same keys.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	connectionTimeout = 5 * time.Second
	keyPrefix         = "intake:lock:"
)

// releaseScript deletes the key only while it still carries the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

var ErrEmptyAddress = errors.New("redis address is required")

type Config struct {
	Address  string
	Password string
	DB       int
}

// NewClient creates a client and verifies the connection.
func NewClient(cfg Config) (*redis.Client, error) {
	if cfg.Address == "" {
		return nil, ErrEmptyAddress
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Store writes a fresh owner token with every lock it takes and releases a key
// only while that token is still stored, so a holder whose lease expired cannot
// delete the next holder's lock.
type Store struct {
	client redis.Cmdable

	mu     sync.Mutex
	tokens map[string]string
}

func New(client redis.Cmdable) *Store {
	return &Store{client: client, tokens: make(map[string]string)}
}

// AddIfAbsent maps to SET NX PX, so creation and expiry are one atomic step.
func (s *Store) AddIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, keyPrefix+key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	if ok {
		s.mu.Lock()
		s.tokens[key] = token
		s.mu.Unlock()
	}
	return ok, nil
}

// Delete releases a lock this store acquired. Keys it does not own, including
// ones that expired and were taken by another holder, are left alone and
// reported as released.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	token, owned := s.tokens[key]
	s.mu.Unlock()
	if !owned {
		return nil
	}

	if err := releaseScript.Run(ctx, s.client, []string{keyPrefix + key}, token).Err(); err != nil {
		return fmt.Errorf("redis release %s: %w", key, err)
	}

	s.mu.Lock()
	if s.tokens[key] == token {
		delete(s.tokens, key)
	}
	s.mu.Unlock()
	return nil
}
