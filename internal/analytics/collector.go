package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/metrics"
)

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

type CollectorOptions struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
}

// Collector buffers events in a bounded channel and publishes them in
// batches from a single goroutine. Track never blocks; events that do not
// fit are dropped and counted.
type Collector struct {
	publisher Publisher
	opts      CollectorOptions
	events    chan QueryEvent
	metrics   *metrics.Metrics
	logger    *slog.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	done    chan struct{}
}

func NewCollector(publisher Publisher, opts CollectorOptions, m *metrics.Metrics) *Collector {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 10000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = time.Second
	}
	return &Collector{
		publisher: publisher,
		opts:      opts,
		events:    make(chan QueryEvent, opts.BufferSize),
		metrics:   m,
		logger:    slog.Default().With("component", "analytics-collector"),
		done:      make(chan struct{}),
	}
}

// Start launches the publish loop. It runs until Close.
func (c *Collector) Start(ctx context.Context) {
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()
	go c.run(context.WithoutCancel(ctx))
	c.logger.Info("analytics collector started",
		"buffer_size", c.opts.BufferSize,
		"batch_size", c.opts.BatchSize,
	)
}

func (c *Collector) Track(event QueryEvent) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.events <- event:
	default:
		c.metrics.AnalyticsDroppedTotal.Inc()
		c.logger.Debug("analytics event dropped, buffer full")
	}
}

// Close stops accepting events, flushes what is buffered and waits for the
// publish loop to exit.
func (c *Collector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.events)
	started := c.started
	c.mu.Unlock()
	if started {
		<-c.done
	}
}

func (c *Collector) run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.opts.FlushInterval)
	defer ticker.Stop()

	batch := make([]kafka.Event, 0, c.opts.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := c.publisher.PublishBatch(ctx, batch); err != nil {
			c.metrics.AnalyticsDroppedTotal.Add(float64(len(batch)))
			c.logger.Warn("analytics batch lost", "count", len(batch), "error", err)
		}
		batch = batch[:0]
	}
	for {
		select {
		case event, ok := <-c.events:
			if !ok {
				flush()
				return
			}
			batch = append(batch, kafka.Event{Key: event.Word, Value: event})
			if len(batch) >= c.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
