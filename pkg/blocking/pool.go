package blocking

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/jzx17/offload/pkg/event"
	"github.com/jzx17/offload/pkg/types"
)

// Config contains configuration for the blocking pool
type Config struct {
	// Name labels logs and metrics
	Name string

	// MaxThreads is the maximum number of live worker threads
	MaxThreads int

	// IdleTimeout is how long a worker waits for work before retiring
	IdleTimeout time.Duration

	// Clock for time operations (optional, defaults to real clock)
	Clock types.Clock

	// Logger receives pool lifecycle logs (optional, defaults to a no-op logger)
	Logger *zap.Logger

	// Metrics receives pool events (optional)
	Metrics types.Metrics
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Name:        "blocking",
		MaxThreads:  128,
		IdleTimeout: 30 * time.Second,
		Clock:       types.NewRealClock(),
		Logger:      zap.NewNop(),
		Metrics:     types.NopMetrics{},
	}
}

// Validate checks the two core tunables
func (c *Config) Validate() error {
	if c.MaxThreads < 1 {
		return fmt.Errorf("%w: max threads must be >= 1, got %d", types.ErrInvalidConfig, c.MaxThreads)
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("%w: idle timeout must be positive, got %v", types.ErrInvalidConfig, c.IdleTimeout)
	}
	return nil
}

// Pool is an elastic pool of OS-thread-pinned workers for blocking calls.
//
// Workers are started on demand by Submit and retire on their own after IdleTimeout
// without work. Sizing decisions use two atomic counters and never take a lock:
// threads (live workers, capped at MaxThreads) and load, an approximation of queued
// items minus idle workers.
type Pool struct {
	config *Config
	logger *zap.Logger
	queue  *taskQueue

	threads atomic.Int64
	running atomic.Int64
	load    atomic.Int64
	state   atomic.Int32

	closeOnce sync.Once
	retiredCh chan struct{}

	nextWorkerID atomic.Uint64

	// statistics
	spawned   atomic.Int64
	retired   atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	cancelled atomic.Int64
}

// New creates a new blocking pool
func New(config *Config) (*Pool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	cfg := *config
	if cfg.Name == "" {
		cfg.Name = "blocking"
	}
	if cfg.Clock == nil {
		cfg.Clock = types.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = types.NopMetrics{}
	}

	return &Pool{
		config:    &cfg,
		logger:    cfg.Logger.Named("blocking").With(zap.String("pool", cfg.Name)),
		queue:     newTaskQueue(),
		retiredCh: make(chan struct{}, 1),
	}, nil
}

// Submit enqueues a work item. It never blocks and fails only with
// types.ErrQueueClosed once the pool has been closed.
func (p *Pool) Submit(item *WorkItem) error {
	if item == nil {
		return fmt.Errorf("work item cannot be nil")
	}

	if err := p.queue.push(item); err != nil {
		p.config.Metrics.RecordTaskRejected(p.config.Name, "closed")
		return err
	}

	load := p.load.Add(1)
	p.config.Metrics.RecordQueueDepth(p.config.Name, p.queue.len())

	if load > 0 || p.threads.Load() == 0 {
		p.grow()
	}
	return nil
}

// Spawn builds a work item for target and submits it, returning the handles the caller
// uses to abort it and to observe its completion.
func (p *Pool) Spawn(target types.Target, args []any, kwargs map[string]any) (*CancelHandle, *event.Event, *event.ResultHolder, error) {
	item, ctl, done, result := NewWorkItem(target, args, kwargs)
	if err := p.Submit(item); err != nil {
		return nil, nil, nil, err
	}
	return ctl, done, result, nil
}

// grow starts one more worker if a thread slot is free
func (p *Pool) grow() bool {
	if !p.reserve() {
		return false
	}

	id := p.nextWorkerID.Add(1)
	p.spawned.Add(1)
	p.config.Metrics.RecordThreads(p.config.Name, p.Threads())

	w := newWorker(id, p)
	go w.run()
	return true
}

// reserve claims a thread slot. The counter never exceeds MaxThreads, even while
// submitters race.
func (p *Pool) reserve() bool {
	limit := int64(p.config.MaxThreads)
	for {
		n := p.threads.Load()
		if n >= limit {
			return false
		}
		if p.threads.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// release gives a thread slot back when a worker retires
func (p *Pool) release() {
	p.threads.Add(-1)
	p.retired.Add(1)
	p.config.Metrics.RecordThreads(p.config.Name, p.Threads())

	select {
	case p.retiredCh <- struct{}{}:
	default:
	}
}

// Close stops accepting submissions. Items already queued are still run; idle workers
// retire once the queue is drained. Close is idempotent.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.state.Store(int32(types.StateClosed))
		p.queue.close()
		p.logger.Info("blocking pool closed",
			zap.Int("threads", p.Threads()),
			zap.Int("queued", p.queue.len()))
	})
}

// Shutdown closes the pool and waits until every queued item has been picked up and all
// workers have retired, or ctx is done.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.Close()
	for {
		if p.threads.Load() == 0 && p.queue.len() == 0 {
			return nil
		}
		select {
		case <-p.retiredCh:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Name returns the pool name
func (p *Pool) Name() string {
	return p.config.Name
}

// MaxThreads returns the configured thread bound
func (p *Pool) MaxThreads() int {
	return p.config.MaxThreads
}

// Threads returns the number of live worker threads
func (p *Pool) Threads() int {
	return int(p.threads.Load())
}

// Load returns the current growth signal. It is approximate by construction.
func (p *Pool) Load() int64 {
	return p.load.Load()
}

// IsClosed checks if the pool has been closed
func (p *Pool) IsClosed() bool {
	return types.PoolState(p.state.Load()) == types.StateClosed
}

// Stats returns pool statistics
func (p *Pool) Stats() types.PoolStats {
	return types.PoolStats{
		Threads:    p.Threads(),
		Running:    int(p.running.Load()),
		MaxThreads: p.config.MaxThreads,
		Queued:     p.queue.len(),
		Load:       p.load.Load(),
		Spawned:    p.spawned.Load(),
		Retired:    p.retired.Load(),
		Completed:  p.completed.Load(),
		Failed:     p.failed.Load(),
		Cancelled:  p.cancelled.Load(),
		State:      types.PoolState(p.state.Load()),
	}
}
