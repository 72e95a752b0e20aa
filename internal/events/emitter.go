package events

import (
	"context"
	"sync"
	"time"

	"github.com/phantomx-ai/phantomx/internal/logger"
)

// Sink consumes events.
type Sink interface {
	Name() string
	Deliver(context.Context, *Event) error
	Close(context.Context) error
}

// Metrics is a point-in-time copy of the delivery counters.
type Metrics struct {
	Enqueued    uint64
	Dropped     uint64
	SinkSuccess map[string]uint64
	SinkFailure map[string]uint64
}

// EmitterConfig controls worker and queue sizing.
type EmitterConfig struct {
	QueueSize       int
	Workers         int
	ShutdownTimeout time.Duration
}

// Emitter buffers events and delivers them to every sink from a fixed pool of
// workers. When the queue is full, events are dropped and counted.
type Emitter struct {
	queue           chan *Event
	sinks           []Sink
	shutdownTimeout time.Duration
	log             *logger.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	metricsMu sync.Mutex
	metrics   Metrics
}

// NewEmitter starts the delivery workers.
func NewEmitter(cfg EmitterConfig, sinks []Sink, log *logger.Logger) *Emitter {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 2 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}

	e := &Emitter{
		queue:           make(chan *Event, cfg.QueueSize),
		sinks:           sinks,
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             log.WithComponent("events"),
		metrics: Metrics{
			SinkSuccess: make(map[string]uint64, len(sinks)),
			SinkFailure: make(map[string]uint64, len(sinks)),
		},
	}
	for _, s := range sinks {
		e.metrics.SinkSuccess[s.Name()] = 0
		e.metrics.SinkFailure[s.Name()] = 0
	}

	for i := 0; i < cfg.Workers; i++ {
		e.wg.Add(1)
		go e.worker()
	}
	return e
}

// Emit enqueues ev without blocking. A nil emitter discards events.
func (e *Emitter) Emit(ev *Event) {
	if e == nil || ev == nil {
		return
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		e.count(func(m *Metrics) { m.Dropped++ })
		return
	}
	select {
	case e.queue <- ev:
		e.count(func(m *Metrics) { m.Enqueued++ })
	default:
		e.count(func(m *Metrics) { m.Dropped++ })
	}
}

// Close stops accepting events, waits up to the shutdown timeout for the
// queue to drain, then closes the sinks.
func (e *Emitter) Close(ctx context.Context) {
	if e == nil {
		return
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.queue)
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	waitCtx, cancel := context.WithTimeout(ctx, e.shutdownTimeout)
	defer cancel()

	select {
	case <-done:
	case <-waitCtx.Done():
		e.log.Warn("event queue not drained before shutdown", logger.Fields("pending", len(e.queue)))
	}

	for _, s := range e.sinks {
		if err := s.Close(waitCtx); err != nil {
			e.log.WithError(err).Warn("sink close failed", logger.Fields("sink", s.Name()))
		}
	}
}

// Snapshot returns a copy of the counters.
func (e *Emitter) Snapshot() Metrics {
	if e == nil {
		return Metrics{}
	}
	e.metricsMu.Lock()
	defer e.metricsMu.Unlock()
	out := Metrics{
		Enqueued:    e.metrics.Enqueued,
		Dropped:     e.metrics.Dropped,
		SinkSuccess: make(map[string]uint64, len(e.metrics.SinkSuccess)),
		SinkFailure: make(map[string]uint64, len(e.metrics.SinkFailure)),
	}
	for k, v := range e.metrics.SinkSuccess {
		out.SinkSuccess[k] = v
	}
	for k, v := range e.metrics.SinkFailure {
		out.SinkFailure[k] = v
	}
	return out
}

func (e *Emitter) count(fn func(*Metrics)) {
	e.metricsMu.Lock()
	fn(&e.metrics)
	e.metricsMu.Unlock()
}

func (e *Emitter) worker() {
	defer e.wg.Done()
	for ev := range e.queue {
		e.deliver(ev)
	}
}

func (e *Emitter) deliver(ev *Event) {
	for _, s := range e.sinks {
		name := s.Name()
		if err := s.Deliver(context.Background(), ev); err != nil {
			e.log.WithError(err).Warn("event delivery failed", logger.Fields("sink", name, "event_id", ev.ID))
			e.count(func(m *Metrics) { m.SinkFailure[name]++ })
			continue
		}
		e.count(func(m *Metrics) { m.SinkSuccess[name]++ })
	}
}
