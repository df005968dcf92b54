// Package analytics turns redirects into per-link visit aggregates.
package analytics

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sjbitcode/url-shortener/internal/metrics"
	"github.com/sjbitcode/url-shortener/internal/models"
)

// RawVisit is what the redirect handler knows about a visit.
type RawVisit struct {
	Link      *models.Link
	At        time.Time
	IP        string
	UserAgent string
	Referer   string
}

// Recorder applies one visit to the aggregates.
type Recorder interface {
	RecordVisit(ctx context.Context, link *models.Link, v Visit) (Outcome, error)
}

type CollectorOptions struct {
	BufferSize int
	Workers    int
	// Timeout bounds the processing of a single visit.
	Timeout time.Duration
	// CountBots records the full audience of crawler and unfurler visits.
	// When false those visits only count toward the link total.
	CountBots bool
	Log       *zap.Logger
}

// Collector takes visits off the request path. Push never blocks; visits are
// handed to a fixed pool of workers that call the Recorder.
type Collector struct {
	ch        chan RawVisit
	stop      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	rec       Recorder
	timeout   time.Duration
	countBots bool
	log       *zap.Logger
}

func NewCollector(rec Recorder, opts CollectorOptions) *Collector {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}

	c := &Collector{
		ch:        make(chan RawVisit, opts.BufferSize),
		stop:      make(chan struct{}),
		rec:       rec,
		timeout:   opts.Timeout,
		countBots: opts.CountBots,
		log:       opts.Log,
	}
	for range opts.Workers {
		c.wg.Add(1)
		go c.run()
	}
	return c
}

// Push queues a visit without blocking. It reports false when the visit was
// dropped because the buffer is full or the collector is shut down.
func (c *Collector) Push(v RawVisit) bool {
	select {
	case <-c.stop:
		return false
	default:
	}

	select {
	case c.ch <- v:
		return true
	default:
		metrics.VisitsDropped.Inc()
		return false
	}
}

// Shutdown stops the workers after the buffered visits are processed.
func (c *Collector) Shutdown() {
	c.stopOnce.Do(func() { close(c.stop) })
	c.wg.Wait()
}

func (c *Collector) run() {
	defer c.wg.Done()
	for {
		select {
		case v := <-c.ch:
			c.process(v)
		case <-c.stop:
			c.drain()
			return
		}
	}
}

func (c *Collector) drain() {
	for {
		select {
		case v := <-c.ch:
			c.process(v)
		default:
			return
		}
	}
}

func (c *Collector) process(v RawVisit) {
	if v.Link == nil {
		return
	}
	bot := !c.countBots && IsBot(v.UserAgent)
	if bot {
		metrics.VisitsBot.Inc()
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	out, err := c.rec.RecordVisit(ctx, v.Link, Visit{IP: v.IP, Referer: v.Referer, At: v.At, Bot: bot})
	if err != nil {
		c.log.Error("record visit",
			zap.String("key", v.Link.Key),
			zap.Int64("link_id", v.Link.ID),
			zap.Error(err),
		)
		return
	}
	c.log.Debug("visit recorded",
		zap.String("key", v.Link.Key),
		zap.Bool("new_unique", out.NewUnique),
		zap.String("source", out.Source),
	)
}
