// Package handler answers line-protocol queries from the query engine.
package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/pagesearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/lineproto"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/tracing"
)

// Searcher is satisfied by *searcher.Engine.
type Searcher interface {
	Search(word string) ([]index.LocationRecord, error)
	Fingerprint() string
}

// ResponseCache is satisfied by *cache.QueryCache.
type ResponseCache interface {
	GetOrCompute(ctx context.Context, fingerprint, word string, compute func() ([]byte, error)) ([]byte, bool, error)
}

// Tracker is satisfied by *analytics.Collector.
type Tracker interface {
	Track(event analytics.QueryEvent)
}

type Handler struct {
	searcher Searcher
	cache    ResponseCache
	tracker  Tracker
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New returns a Handler. cache and tracker may be nil.
func New(s Searcher, cache ResponseCache, tracker Tracker, m *metrics.Metrics) *Handler {
	return &Handler{
		searcher: s,
		cache:    cache,
		tracker:  tracker,
		metrics:  m,
		logger:   slog.Default().With("component", "search-handler"),
	}
}

// ServeQuery looks word up verbatim and returns the encoded records. The
// protocol layer answers any returned error with an empty result.
func (h *Handler) ServeQuery(ctx context.Context, word string) ([]byte, error) {
	start := time.Now()
	connID := logger.ConnID(ctx)
	ctx, span := tracing.StartSpan(ctx, "query", connID)
	log := logger.FromContext(ctx)
	defer func() {
		span.End()
		span.Log(log)
	}()
	span.SetAttr("word", word)

	fingerprint := h.searcher.Fingerprint()
	results := 0
	compute := func() ([]byte, error) {
		_, child := tracing.StartChildSpan(ctx, "index.lookup")
		defer child.End()
		records, err := h.searcher.Search(word)
		if err != nil {
			return nil, err
		}
		results = len(records)
		child.SetAttr("records", results)
		return lineproto.Encode(records)
	}

	var (
		resp     []byte
		cacheHit bool
		err      error
	)
	if h.cache != nil {
		resp, cacheHit, err = h.cache.GetOrCompute(ctx, fingerprint, word, compute)
		if err == nil {
			// compute may have run on another connection's goroutine.
			results = countRecords(resp)
		}
	} else {
		resp, err = compute()
	}
	elapsed := time.Since(start)
	h.metrics.SearchLatency.Observe(elapsed.Seconds())
	span.SetAttr("cache_hit", cacheHit)

	outcome := analytics.OutcomeHit
	switch {
	case err != nil:
		outcome = analytics.OutcomeError
		log.Error("search failed", "word", word, "error", err)
	case results == 0:
		outcome = analytics.OutcomeZeroResult
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(string(outcome)).Inc()
	if err == nil {
		h.metrics.SearchResultsCount.Observe(float64(results))
		log.Debug("search completed",
			"word", word,
			"results", results,
			"cache_hit", cacheHit,
			"latency", elapsed,
		)
	}
	if h.tracker != nil {
		h.tracker.Track(analytics.QueryEvent{
			Word:        word,
			Outcome:     outcome,
			Results:     results,
			CacheHit:    cacheHit,
			LatencyUs:   elapsed.Microseconds(),
			Fingerprint: fingerprint,
			ConnID:      connID,
			Timestamp:   time.Now().UTC(),
		})
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// countRecords recovers the result count of an encoded response.
func countRecords(resp []byte) int {
	records, err := lineproto.Decode[index.LocationRecord](resp)
	if err != nil {
		return 0
	}
	return len(records)
}
