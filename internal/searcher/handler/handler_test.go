package handler

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/pagesearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/internal/searcher"
	apperrors "github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/lineproto"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/metrics"
)

type trackRecorder struct {
	mu     sync.Mutex
	events []analytics.QueryEvent
}

func (r *trackRecorder) Track(e analytics.QueryEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

type mapCache struct {
	entries map[string][]byte
}

func (c *mapCache) GetOrCompute(_ context.Context, fingerprint, word string, compute func() ([]byte, error)) ([]byte, bool, error) {
	key := fingerprint + "/" + word
	if v, ok := c.entries[key]; ok {
		return v, true, nil
	}
	v, err := compute()
	if err != nil {
		return nil, false, err
	}
	c.entries[key] = v
	return v, false, nil
}

func readyEngine(t *testing.T) *searcher.Engine {
	t.Helper()
	b := index.NewBuilder()
	require.NoError(t, b.AddDocument("a.pdf", []index.PageCounts{{"cat": 2, "dog": 1}}))
	require.NoError(t, b.AddDocument("b.pdf", []index.PageCounts{{"cat": 1}}))
	return searcher.NewReady(b.Build())
}

func TestServeQuery_EncodesRecords(t *testing.T) {
	h := New(readyEngine(t), nil, nil, metrics.New())

	resp, err := h.ServeQuery(context.Background(), "cat")
	require.NoError(t, err)

	records, err := lineproto.Decode[index.LocationRecord](resp)
	require.NoError(t, err)
	assert.Equal(t, []index.LocationRecord{
		{DocumentName: "a.pdf", PageNumber: 1, OccurrenceCount: 2},
		{DocumentName: "b.pdf", PageNumber: 1, OccurrenceCount: 1},
	}, records)
	assert.Contains(t, string(resp), "\n  {\n    \"document_name\": \"a.pdf\",")
}

func TestServeQuery_AbsentWord(t *testing.T) {
	rec := &trackRecorder{}
	h := New(readyEngine(t), nil, rec, metrics.New())

	resp, err := h.ServeQuery(context.Background(), "bird")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(resp))
	require.Len(t, rec.events, 1)
	assert.Equal(t, analytics.OutcomeZeroResult, rec.events[0].Outcome)
}

func TestServeQuery_WordUsedVerbatim(t *testing.T) {
	h := New(readyEngine(t), nil, nil, metrics.New())

	resp, err := h.ServeQuery(context.Background(), "Cat")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(resp))
}

func TestServeQuery_NotReady(t *testing.T) {
	rec := &trackRecorder{}
	h := New(searcher.New(), nil, rec, metrics.New())

	_, err := h.ServeQuery(context.Background(), "cat")
	assert.ErrorIs(t, err, apperrors.ErrNotReady)
	require.Len(t, rec.events, 1)
	assert.Equal(t, analytics.OutcomeError, rec.events[0].Outcome)
}

func TestServeQuery_CachedResponse(t *testing.T) {
	engine := readyEngine(t)
	cache := &mapCache{entries: make(map[string][]byte)}
	rec := &trackRecorder{}
	h := New(engine, cache, rec, metrics.New())
	ctx := logger.WithConnID(context.Background(), "7")

	first, err := h.ServeQuery(ctx, "cat")
	require.NoError(t, err)
	second, err := h.ServeQuery(ctx, "cat")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, cache.entries, engine.Fingerprint()+"/cat")
	require.Len(t, rec.events, 2)
	assert.False(t, rec.events[0].CacheHit)
	assert.True(t, rec.events[1].CacheHit)
	assert.Equal(t, 2, rec.events[1].Results)
	assert.Equal(t, "7", rec.events[1].ConnID)
	assert.Equal(t, engine.Fingerprint(), rec.events[1].Fingerprint)
}
