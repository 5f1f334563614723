package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/metrics"
)

// DefaultLocalEntries bounds the in-process cache when no size is set.
const DefaultLocalEntries = 10000

// Local keeps encoded responses in an in-process LRU. It serves when Redis
// is disabled or unreachable at startup.
type Local struct {
	entries *lru.Cache[string, []byte]
	group   singleflight.Group
	metrics *metrics.Metrics
}

func NewLocal(size int, m *metrics.Metrics) *Local {
	if size <= 0 {
		size = DefaultLocalEntries
	}
	entries, _ := lru.New[string, []byte](size)
	return &Local{entries: entries, metrics: m}
}

// GetOrCompute has the same contract as QueryCache.GetOrCompute.
func (c *Local) GetOrCompute(_ context.Context, fingerprint, word string, compute func() ([]byte, error)) ([]byte, bool, error) {
	key := BuildKey(fingerprint, word)
	if resp, ok := c.entries.Get(key); ok {
		c.metrics.CacheHitsTotal.Inc()
		return resp, true, nil
	}
	c.metrics.CacheMissesTotal.Inc()
	val, err, _ := c.group.Do(key, func() (any, error) {
		resp, err := compute()
		if err != nil {
			return nil, err
		}
		c.entries.Add(key, resp)
		return resp, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]byte), false, nil
}

func (c *Local) Len() int {
	return c.entries.Len()
}
