// Package sequence provides monotonically increasing counters backing receipt
// and certificate numbers. Values are never reused, even across retried
// issuance attempts.
package sequence

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Store hands out the next value of a named counter. Implementations must be
// safe for concurrent use; two callers never observe the same value.
type Store interface {
	Next(ctx context.Context, name string) (uint64, error)
}

// InMemory is a process-local sequence store, suitable for tests and
// single-instance deployments.
type InMemory struct {
	mu       sync.Mutex
	counters map[string]uint64
}

func NewInMemory() *InMemory {
	return &InMemory{counters: make(map[string]uint64)}
}

func (s *InMemory) Next(_ context.Context, name string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[name]++
	return s.counters[name], nil
}

// Redis backs sequences with Redis INCR so numbers stay unique across
// instances.
type Redis struct {
	client    redis.Cmdable
	keyPrefix string
}

func NewRedis(client redis.Cmdable) *Redis {
	return &Redis{client: client, keyPrefix: "seq:"}
}

func (s *Redis) Next(ctx context.Context, name string) (uint64, error) {
	value, err := s.client.Incr(ctx, s.keyPrefix+name).Result()
	if err != nil {
		return 0, err
	}
	return uint64(value), nil
}
