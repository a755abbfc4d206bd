package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"keyword-agent/pkg/logger"
)

var (
	ErrPoolNotStarted = errors.New("worker pool not started")
	ErrPoolClosed     = errors.New("worker pool is closed")
)

// Task represents a unit of work to be executed
type Task struct {
	ID      string
	Fn      func(ctx context.Context) error
	Timeout time.Duration
	// Done, when set, receives the outcome after Fn returns or panics.
	Done func(Result)
}

// Result represents the result of task execution
type Result struct {
	TaskID   string
	Error    error
	Duration time.Duration
}

// PoolConfig holds configuration for the worker pool
type PoolConfig struct {
	Workers   int `json:"workers"`
	QueueSize int `json:"queue_size"`
	// TaskTimeout bounds each task; 0 leaves only the caller's deadline.
	TaskTimeout time.Duration `json:"task_timeout"`
}

// DefaultPoolConfig runs tasks one at a time.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Workers:   1,
		QueueSize: 0,
	}
}

// Pool is a fixed set of goroutines draining a bounded queue. Submit blocks
// while the queue is full instead of rejecting work.
type Pool struct {
	config  PoolConfig
	queue   chan Task
	wg      sync.WaitGroup
	log     *logger.Logger
	metrics *PoolMetrics

	mu      sync.RWMutex
	started atomic.Bool
	closed  bool
}

func NewPool(config PoolConfig) *Pool {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.QueueSize < 0 {
		config.QueueSize = 0
	}
	return &Pool{
		config:  config,
		queue:   make(chan Task, config.QueueSize),
		log:     logger.GetLogger().WithField("component", "worker_pool"),
		metrics: NewPoolMetrics(),
	}
}

// Start launches the workers. Cancelling ctx makes workers skip queued tasks
// (their Done still fires with the context error).
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}

	p.log.WithField("workers", p.config.Workers).Debug("Starting worker pool")
	for i := 0; i < p.config.Workers; i++ {
		w := newWorker(i, p.queue, p.config.TaskTimeout, p.log)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			w.run(ctx, p.metrics)
		}()
	}
}

// Submit enqueues a task, blocking until a slot frees up or ctx is done.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	if !p.started.Load() {
		return ErrPoolNotStarted
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.queue <- task:
		p.metrics.TasksSubmitted.Add(1)
		return nil
	case <-ctx.Done():
		p.metrics.TasksRejected.Add(1)
		return ctx.Err()
	}
}

// Close stops accepting tasks and waits for queued ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	p.log.WithField("completed", p.metrics.TasksCompleted.Load()).Debug("Worker pool drained")
}

// Metrics returns a snapshot of the pool counters.
func (p *Pool) Metrics() MetricsSnapshot {
	return p.metrics.Snapshot()
}
