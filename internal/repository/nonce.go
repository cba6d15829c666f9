package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Compile-time interface checks
var (
	_ NonceStore = (*MemoryNonceStore)(nil)
	_ NonceStore = (*RedisNonceStore)(nil)
)

// MemoryNonceStore keeps redeemed nonces in a map and sweeps expired
// entries on a fixed interval.
type MemoryNonceStore struct {
	mu            sync.Mutex
	used          map[string]time.Time // nonce -> expiry
	now           func() time.Time
	cleanupCancel context.CancelFunc
	done          chan struct{}
}

// NewMemoryNonceStore starts a nonce store with a background sweeper
func NewMemoryNonceStore(cleanupInterval time.Duration) *MemoryNonceStore {
	ctx, cancel := context.WithCancel(context.Background())
	s := &MemoryNonceStore{
		used:          make(map[string]time.Time),
		now:           time.Now,
		cleanupCancel: cancel,
		done:          make(chan struct{}),
	}
	go s.cleanupLoop(ctx, cleanupInterval)
	return s
}

func (s *MemoryNonceStore) Consume(ctx context.Context, nonce string, ttl time.Duration) error {
	if nonce == "" {
		return fmt.Errorf("empty nonce")
	}
	if ttl <= 0 {
		ttl = time.Second
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expiry, ok := s.used[nonce]; ok && now.Before(expiry) {
		return ErrConsumed
	}
	s.used[nonce] = now.Add(ttl)
	return nil
}

func (s *MemoryNonceStore) Close() error {
	s.cleanupCancel()
	<-s.done
	return nil
}

func (s *MemoryNonceStore) cleanupLoop(ctx context.Context, interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *MemoryNonceStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for nonce, expiry := range s.used {
		if !now.Before(expiry) {
			delete(s.used, nonce)
		}
	}
}

// RedisNonceStore records redeemed nonces with SETNX so that concurrent
// kiosks racing on the same code see exactly one winner.
type RedisNonceStore struct {
	client *redis.Client
}

// NewRedisNonceStore connects to Redis and verifies the connection
func NewRedisNonceStore(options *redis.Options) (*RedisNonceStore, error) {
	client := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisNonceStore{client: client}, nil
}

func (r *RedisNonceStore) Consume(ctx context.Context, nonce string, ttl time.Duration) error {
	if nonce == "" {
		return fmt.Errorf("empty nonce")
	}
	if ttl <= 0 {
		ttl = time.Second
	}

	ok, err := r.client.SetNX(ctx, nonceKey(nonce), 1, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to record nonce: %w", err)
	}
	if !ok {
		return ErrConsumed
	}
	return nil
}

func (r *RedisNonceStore) Close() error {
	return r.client.Close()
}

func nonceKey(nonce string) string {
	return "share:nonce:" + nonce
}
