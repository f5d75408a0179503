package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tphakala/mediscan/internal/errors"
	"github.com/tphakala/mediscan/internal/logger"
)

// Bus errors
var (
	ErrBufferFull = errors.NewStd("event buffer full")
	ErrBusClosed  = errors.NewStd("event bus closed")
)

// BusConfig holds bus sizing.
type BusConfig struct {
	BufferSize      int
	Workers         int
	PublishTimeout  time.Duration // per delivery
	ShutdownTimeout time.Duration
}

// DefaultBusConfig returns the default bus configuration.
func DefaultBusConfig() BusConfig {
	return BusConfig{
		BufferSize:      1000,
		Workers:         2,
		PublishTimeout:  10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// BusStats contains runtime counters.
type BusStats struct {
	Received  uint64
	Delivered uint64
	Dropped   uint64
	Failed    uint64
}

// Bus decouples callers from slow transports. Publish only enqueues; worker
// goroutines deliver to the target publisher.
type Bus struct {
	target Publisher
	cfg    BusConfig
	events chan DiagnosisEvent

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	received  atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64

	log logger.Logger
}

// NewBus starts a bus delivering to target.
func NewBus(target Publisher, cfg BusConfig) *Bus {
	def := DefaultBusConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = def.PublishTimeout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		target: target,
		cfg:    cfg,
		events: make(chan DiagnosisEvent, cfg.BufferSize),
		ctx:    ctx,
		cancel: cancel,
		log:    GetLogger().With(logger.String("component", "bus")),
	}

	for i := range cfg.Workers {
		b.wg.Add(1)
		go b.worker(i)
	}
	b.log.Debug("event bus started",
		logger.Int("buffer_size", cfg.BufferSize),
		logger.Int("workers", cfg.Workers))
	return b
}

// Publish enqueues event without blocking. It returns ErrBufferFull when
// the event was dropped and ErrBusClosed after Close.
func (b *Bus) Publish(_ context.Context, event DiagnosisEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBusClosed
	}
	select {
	case b.events <- event:
		b.received.Add(1)
		return nil
	default:
		b.dropped.Add(1)
		b.log.Warn("event dropped, buffer full", logger.String("event_id", event.ID))
		return ErrBufferFull
	}
}

func (b *Bus) worker(id int) {
	defer b.wg.Done()
	for event := range b.events {
		b.deliver(id, event)
	}
}

func (b *Bus) deliver(worker int, event DiagnosisEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.failed.Add(1)
			b.log.Error("publisher panicked",
				logger.Int("worker_id", worker),
				logger.String("event_id", event.ID),
				logger.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(b.ctx, b.cfg.PublishTimeout)
	defer cancel()

	if err := b.target.Publish(ctx, event); err != nil {
		b.failed.Add(1)
		b.log.Warn("event delivery failed",
			logger.Int("worker_id", worker),
			logger.String("event_id", event.ID),
			logger.Error(err))
		return
	}
	b.delivered.Add(1)
}

// Close stops accepting events, drains the buffer within the shutdown
// timeout and closes the target publisher.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.events)
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	var drainErr error
	select {
	case <-done:
	case <-time.After(b.cfg.ShutdownTimeout):
		// abort in-flight deliveries and let workers run out the buffer
		b.cancel()
		<-done
		drainErr = fmt.Errorf("event bus drain exceeded %v", b.cfg.ShutdownTimeout)
		b.log.Warn("event bus shutdown timeout exceeded")
	}
	b.cancel()

	stats := b.Stats()
	b.log.Info("event bus stopped",
		logger.Any("delivered", stats.Delivered),
		logger.Any("failed", stats.Failed),
		logger.Any("dropped", stats.Dropped))

	if err := b.target.Close(); err != nil {
		return errors.Join(drainErr, err)
	}
	return drainErr
}

// Stats returns current counters.
func (b *Bus) Stats() BusStats {
	return BusStats{
		Received:  b.received.Load(),
		Delivered: b.delivered.Load(),
		Dropped:   b.dropped.Load(),
		Failed:    b.failed.Load(),
	}
}
