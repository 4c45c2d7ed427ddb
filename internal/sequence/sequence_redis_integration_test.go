//go:build integration

package sequence_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"ngoconnect/internal/sequence"
	"ngoconnect/pkg/testutil/containers"
)

type RedisSequenceSuite struct {
	suite.Suite
	ctx   context.Context
	redis *containers.RedisContainer
	store *sequence.Redis
}

func TestRedisSequenceSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisSequenceSuite))
}

func (s *RedisSequenceSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = sequence.NewRedis(s.redis.Client)
}

func (s *RedisSequenceSuite) SetupTest() {
	s.ctx = context.Background()
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisSequenceSuite) TestNextIsMonotonic() {
	for want := uint64(1); want <= 5; want++ {
		got, err := s.store.Next(s.ctx, "receipts")
		s.Require().NoError(err)
		s.Equal(want, got)
	}
}

func (s *RedisSequenceSuite) TestCountersAreIndependent() {
	_, err := s.store.Next(s.ctx, "receipts")
	s.Require().NoError(err)

	got, err := s.store.Next(s.ctx, "certificates")
	s.Require().NoError(err)
	s.Equal(uint64(1), got)
}

// TestConcurrentNextNeverRepeats hammers one counter from many goroutines;
// every value handed out must be distinct.
func (s *RedisSequenceSuite) TestConcurrentNextNeverRepeats() {
	const goroutines = 50

	var wg sync.WaitGroup
	values := make(chan uint64, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := s.store.Next(s.ctx, "receipts")
			s.Require().NoError(err)
			values <- v
		}()
	}
	wg.Wait()
	close(values)

	seen := make(map[uint64]bool, goroutines)
	for v := range values {
		s.False(seen[v], "value %d handed out twice", v)
		seen[v] = true
	}
	s.Len(seen, goroutines)
}
