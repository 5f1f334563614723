package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/metrics"
)

type recorder struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	err     error
}

func (r *recorder) PublishBatch(_ context.Context, events []kafka.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, append([]kafka.Event(nil), events...))
	return r.err
}

func (r *recorder) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, b := range r.batches {
		n += len(b)
	}
	return n
}

func TestCollector_FlushesOnClose(t *testing.T) {
	rec := &recorder{}
	c := NewCollector(rec, CollectorOptions{BatchSize: 10, FlushInterval: time.Hour}, metrics.New())
	c.Start(context.Background())

	for _, w := range []string{"cat", "dog", "fox"} {
		c.Track(QueryEvent{Word: w, Outcome: OutcomeHit})
	}
	c.Close()

	require.Equal(t, 3, rec.total())
	assert.Equal(t, "cat", rec.batches[0][0].Key)
	assert.Equal(t, QueryEvent{Word: "cat", Outcome: OutcomeHit}, rec.batches[0][0].Value)
}

func TestCollector_FlushesFullBatches(t *testing.T) {
	rec := &recorder{}
	c := NewCollector(rec, CollectorOptions{BatchSize: 2, FlushInterval: time.Hour}, metrics.New())
	c.Start(context.Background())
	for i := 0; i < 4; i++ {
		c.Track(QueryEvent{Word: "w"})
	}
	assert.Eventually(t, func() bool { return rec.total() == 4 }, time.Second, 5*time.Millisecond)
	c.Close()
}

func TestCollector_DropsWhenFull(t *testing.T) {
	rec := &recorder{}
	c := NewCollector(rec, CollectorOptions{BufferSize: 1}, metrics.New())

	c.Track(QueryEvent{Word: "kept"})
	c.Track(QueryEvent{Word: "dropped"})
	c.Start(context.Background())
	c.Close()

	assert.Equal(t, 1, rec.total())
}

func TestCollector_TrackAfterCloseIsNoop(t *testing.T) {
	rec := &recorder{err: errors.New("broker down")}
	c := NewCollector(rec, CollectorOptions{}, metrics.New())
	c.Close()
	c.Close()
	assert.NotPanics(t, func() { c.Track(QueryEvent{Word: "late"}) })
	assert.Zero(t, rec.total())
}
