package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/resilience"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
	gets atomic.Int32
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.gets.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, false, s.err
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.data[key] = value
	return nil
}

func testConfig() config.RedisConfig {
	cfg := config.Default().Redis
	cfg.FailureThreshold = 2
	cfg.BreakerCooldown = time.Hour
	return cfg
}

func TestBuildKey(t *testing.T) {
	a := BuildKey("0123456789abcdef", "cat")
	assert.True(t, strings.HasPrefix(a, "pagesearch:0123456789abcdef:"))
	assert.Equal(t, a, BuildKey("0123456789abcdef", "cat"))
	assert.NotEqual(t, a, BuildKey("0123456789abcdef", "dog"))
	assert.NotEqual(t, a, BuildKey("fedcba9876543210", "cat"), "a different index never shares entries")
	assert.NotContains(t, BuildKey("f", "with space\n"), " ")
}

func TestGetOrCompute_MissThenHit(t *testing.T) {
	store := newMemStore()
	c := New(store, testConfig(), metrics.New())
	var computed int
	compute := func() ([]byte, error) {
		computed++
		return []byte("[]\n"), nil
	}

	resp, hit, err := c.GetOrCompute(context.Background(), "fp", "cat", compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "[]\n", string(resp))

	resp, hit, err = c.GetOrCompute(context.Background(), "fp", "cat", compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "[]\n", string(resp))
	assert.Equal(t, 1, computed)
}

func TestGetOrCompute_ComputeErrorNotCached(t *testing.T) {
	store := newMemStore()
	c := New(store, testConfig(), metrics.New())
	boom := errors.New("boom")

	_, _, err := c.GetOrCompute(context.Background(), "fp", "cat", func() ([]byte, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, store.data)
}

func TestGetOrCompute_StoreFailureOpensBreaker(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection refused")
	c := New(store, testConfig(), metrics.New())
	compute := func() ([]byte, error) { return []byte("x"), nil }

	for i := 0; i < 3; i++ {
		resp, hit, err := c.GetOrCompute(context.Background(), "fp", "cat", compute)
		require.NoError(t, err, "cache failures never fail the query")
		assert.False(t, hit)
		assert.Equal(t, "x", string(resp))
	}
	assert.Equal(t, resilience.StateOpen, c.BreakerState())

	before := store.gets.Load()
	_, _, err := c.GetOrCompute(context.Background(), "fp", "cat", compute)
	require.NoError(t, err)
	assert.Equal(t, before, store.gets.Load(), "open breaker bypasses the store")
}

func TestLocal_MissThenHitAndEviction(t *testing.T) {
	c := NewLocal(2, metrics.New())
	var computed int
	compute := func(v string) func() ([]byte, error) {
		return func() ([]byte, error) {
			computed++
			return []byte(v), nil
		}
	}

	resp, hit, err := c.GetOrCompute(context.Background(), "fp", "cat", compute("c"))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "c", string(resp))

	resp, hit, _ = c.GetOrCompute(context.Background(), "fp", "cat", compute("other"))
	assert.True(t, hit)
	assert.Equal(t, "c", string(resp))

	c.GetOrCompute(context.Background(), "fp", "dog", compute("d"))
	c.GetOrCompute(context.Background(), "fp", "fox", compute("f"))
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 3, computed)

	_, hit, _ = c.GetOrCompute(context.Background(), "fp", "cat", compute("c2"))
	assert.False(t, hit, "least recently used entry was evicted")
}

func TestLocal_ErrorsNotCached(t *testing.T) {
	c := NewLocal(0, metrics.New())
	_, _, err := c.GetOrCompute(context.Background(), "fp", "cat", func() ([]byte, error) {
		return nil, errors.New("not ready")
	})
	assert.Error(t, err)
	assert.Zero(t, c.Len())
}
