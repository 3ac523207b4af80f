// Package analytics publishes search and click events to Kafka and keeps
// rolling in-process query statistics.
package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/click"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
)

// Publisher is implemented by *kafka.Producer.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector buffers events and publishes them in batches from a single
// goroutine. Tracking never blocks: events are dropped when the buffer is
// full.
type Collector struct {
	publisher  Publisher
	aggregator *Aggregator
	eventCh    chan kafka.Event
	batchSize  int
	logger     *slog.Logger
	done       chan struct{}
	now        func() time.Time

	// closeMu guards eventCh against sends after Close.
	closeMu sync.RWMutex
	closed  bool

	published atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// Pipeline counts what happened to tracked events after aggregation.
type Pipeline struct {
	Published int64 `json:"published"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
	Buffered  int   `json:"buffered"`
}

// NewCollector creates a Collector. publisher may be nil when only the
// aggregator is wanted.
func NewCollector(publisher Publisher, aggregator *Aggregator, bufferSize, batchSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Collector{
		publisher:  publisher,
		aggregator: aggregator,
		eventCh:    make(chan kafka.Event, bufferSize),
		batchSize:  batchSize,
		logger:     slog.Default().With("component", "analytics-collector"),
		done:       make(chan struct{}),
		now:        time.Now,
	}
}

// Start launches the publish loop. It drains the buffer and exits when ctx
// is cancelled or Close is called.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, c.batch(event))
			case <-ctx.Done():
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				c.drainRemaining(flushCtx)
				cancel()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

// batch collects first plus whatever else is already buffered, up to
// batchSize events.
func (c *Collector) batch(first kafka.Event) []kafka.Event {
	events := []kafka.Event{first}
	for len(events) < c.batchSize {
		select {
		case ev, ok := <-c.eventCh:
			if !ok {
				return events
			}
			events = append(events, ev)
		default:
			return events
		}
	}
	return events
}

func (c *Collector) publish(ctx context.Context, events []kafka.Event) {
	if c.publisher == nil || len(events) == 0 {
		return
	}
	if err := c.publisher.PublishBatch(ctx, events); err != nil {
		c.failed.Add(int64(len(events)))
		c.logger.Error("failed to publish analytics events", "count", len(events), "error", err)
		return
	}
	c.published.Add(int64(len(events)))
}

func (c *Collector) Pipeline() Pipeline {
	return Pipeline{
		Published: c.published.Load(),
		Failed:    c.failed.Load(),
		Dropped:   c.dropped.Load(),
		Buffered:  len(c.eventCh),
	}
}

func (c *Collector) drainRemaining(ctx context.Context) {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(ctx, c.batch(event))
		default:
			return
		}
	}
}

// Track queues an event for publishing.
func (c *Collector) Track(key string, event any) {
	if c.aggregator != nil {
		c.aggregator.Record(event)
	}
	c.closeMu.RLock()
	defer c.closeMu.RUnlock()
	if c.closed {
		c.dropped.Add(1)
		return
	}
	select {
	case c.eventCh <- kafka.Event{Key: key, Value: event}:
	default:
		c.dropped.Add(1)
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// TrackSearch records a completed search.
func (c *Collector) TrackSearch(ctx context.Context, query string, results int) {
	typ := EventSearch
	if results == 0 {
		typ = EventZeroResult
	}
	c.Track(query, SearchEvent{
		Type:      typ,
		Query:     query,
		Terms:     tokenizer.QueryTerms(query),
		Results:   results,
		Timestamp: c.now().UTC(),
		RequestID: logger.RequestID(ctx),
	})
}

// RecordClick records a click-through.
func (c *Collector) RecordClick(ctx context.Context, ev click.Event) {
	c.Track(ev.ID.String(), ClickEvent{
		Type:       EventClick,
		DocumentID: ev.ID,
		Query:      ev.Query,
		Timestamp:  ev.At.UTC(),
		RequestID:  logger.RequestID(ctx),
	})
}

// Close stops accepting events and waits for the publish loop to finish.
// Events tracked afterwards are counted as dropped.
func (c *Collector) Close() {
	c.closeMu.Lock()
	if !c.closed {
		c.closed = true
		close(c.eventCh)
	}
	c.closeMu.Unlock()
	<-c.done
}
