// Package pool provides the fixed-size worker pool shared by the whole
// process and the countdown latch used to await groups of scheduled tasks.
package pool

import (
	"log/slog"
	"sync"
	"time"
)

// Default sizing. One pool serves the entire process; algorithm and rescorer
// groups borrow it through the request context.
const (
	DefaultWorkers   = 512
	DefaultQueueSize = 4096
)

// Config configures a Pool.
type Config struct {
	// Workers is the number of worker goroutines (default 512).
	Workers int

	// QueueSize is the task queue capacity (default 4096). TryAdd fails
	// once the queue is full; Add blocks.
	QueueSize int

	// Logger receives recovered task panics (default slog.Default).
	Logger *slog.Logger
}

// Pool is a fixed-size executor. Tasks are fire-and-forget closures; callers
// that need completion signals pair tasks with a Latch.
type Pool struct {
	tasks   chan func()
	logger  *slog.Logger
	workers int

	mu       sync.Mutex
	inflight int
	idle     chan struct{} // closed whenever inflight == 0

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates and starts a pool.
func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	idle := make(chan struct{})
	close(idle)

	p := &Pool{
		tasks:   make(chan func(), queueSize),
		logger:  logger,
		workers: workers,
		idle:    idle,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Add enqueues a task, blocking if the queue is full. The in-flight counter
// covers the task from enqueue until its closure returns.
func (p *Pool) Add(f func()) {
	p.incInflight()
	p.tasks <- f
}

// TryAdd enqueues a task only if queue capacity is available and reports
// whether it was enqueued. The caller keeps responsibility for the task
// otherwise.
func (p *Pool) TryAdd(f func()) bool {
	p.incInflight()
	select {
	case p.tasks <- f:
		return true
	default:
		p.decInflight()
		return false
	}
}

// Wait blocks until the in-flight count reaches zero.
func (p *Pool) Wait() {
	<-p.idleChan()
}

// WaitTimeout blocks until the pool drains or the deadline passes, and
// reports whether the pool drained.
func (p *Pool) WaitTimeout(d time.Duration) bool {
	ch := p.idleChan()
	select {
	case <-ch:
		return true
	case <-time.After(d):
		return false
	}
}

// Close signals producers-finished. Workers drain the queue and exit; Close
// returns once all workers have stopped. Adding after Close panics.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.tasks)
	})
	p.wg.Wait()
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int { return p.workers }

// Inflight returns the current in-flight task count.
func (p *Pool) Inflight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inflight
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for f := range p.tasks {
		p.run(f)
	}
}

func (p *Pool) run(f func()) {
	defer p.decInflight()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker recovered from task panic", "panic", r)
		}
	}()
	f()
}

func (p *Pool) incInflight() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inflight == 0 {
		p.idle = make(chan struct{})
	}
	p.inflight++
}

func (p *Pool) decInflight() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inflight--
	if p.inflight == 0 {
		close(p.idle)
	}
}

func (p *Pool) idleChan() chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idle
}
