// Package cache stores encoded query responses in Redis. Keys include the
// index fingerprint, so entries written by a process serving a different
// corpus are never returned.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/resilience"
)

const keyPrefix = "pagesearch:"

// Store is the subset of pkg/redis.Client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	timeout time.Duration
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(store Store, cfg config.RedisConfig, m *metrics.Metrics) *QueryCache {
	breaker := resilience.NewCircuitBreaker("redis", resilience.BreakerConfig{
		FailureThreshold: cfg.FailureThreshold,
		Cooldown:         cfg.BreakerCooldown,
		OnStateChange: func(name string, _, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	m.CircuitBreakerState.WithLabelValues(breaker.Name()).Set(float64(resilience.StateClosed))
	return &QueryCache{
		store:   store,
		ttl:     cfg.CacheTTL,
		timeout: cfg.OpTimeout,
		breaker: breaker,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// GetOrCompute returns the cached response for word under the given index
// fingerprint, or runs compute, stores its result and returns it. Concurrent
// misses for the same key share one compute call. Cache failures only cost
// the lookup: compute errors are the sole errors returned.
func (c *QueryCache) GetOrCompute(ctx context.Context, fingerprint, word string, compute func() ([]byte, error)) ([]byte, bool, error) {
	key := BuildKey(fingerprint, word)
	if resp, ok := c.get(ctx, key); ok {
		return resp, true, nil
	}
	val, err, _ := c.group.Do(key, func() (any, error) {
		resp, err := compute()
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, resp)
		return resp, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]byte), false, nil
}

func (c *QueryCache) get(ctx context.Context, key string) ([]byte, bool) {
	var (
		resp  []byte
		found bool
	)
	err := c.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, c.timeout, "cache get", func(ctx context.Context) error {
			var err error
			resp, found, err = c.store.Get(ctx, key)
			return err
		})
	})
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		c.logger.Debug("cache bypassed", "error", err)
	case err != nil:
		c.logger.Warn("cache get failed", "key", key, "error", err)
	}
	if err != nil || !found {
		c.metrics.CacheMissesTotal.Inc()
		return nil, false
	}
	c.metrics.CacheHitsTotal.Inc()
	return resp, true
}

func (c *QueryCache) set(ctx context.Context, key string, resp []byte) {
	err := c.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, c.timeout, "cache set", func(ctx context.Context) error {
			return c.store.Set(ctx, key, resp, c.ttl)
		})
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// BreakerState reports whether Redis is currently being bypassed.
func (c *QueryCache) BreakerState() resilience.State {
	return c.breaker.State()
}

// BuildKey hashes word so arbitrary client input never reaches Redis as a
// raw key.
func BuildKey(fingerprint, word string) string {
	sum := sha256.Sum256([]byte(word))
	return keyPrefix + fingerprint + ":" + hex.EncodeToString(sum[:16])
}
