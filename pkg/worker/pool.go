// Package worker provides a bounded pool of goroutines that runs ingestion jobs
// off the caller's goroutine. Batch ingestion and the file watcher submit one
// job per document.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("worker pool closed")

// Job is a unit of work for the worker pool to execute.
type Job struct {
	// ID names the job in logs, typically a document ID or file path.
	ID string

	// Run does the work. A returned error is logged by the worker.
	Run func() error
}

// Config is the configuration options for the worker pool.
type Config struct {
	// NumWorkers is the number of background workers in the pool (defaults to 3).
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	Logger *slog.Logger
}

// Pool processes jobs asynchronously via a fixed set of workers.
type Pool struct {
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	// mu guards closed and sends on queue
	mu     sync.RWMutex
	closed bool
}

// NewPool creates a Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	wp := &Pool{
		queue:  make(chan Job, c.QueueSize),
		logger: logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job without blocking.
// Returns true if enqueued, false if the queue is full or the pool is closed,
// resulting in the job being dropped.
func (p *Pool) Enqueue(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Error("job not queued, pool closed", "job_id", job.ID)
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued", "job_id", job.ID)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped", "job_id", job.ID)
		return false
	}
}

// Submit queues a job, waiting for capacity until ctx is done.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued", "job_id", job.ID)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
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
}

// worker continuously pulls jobs off the queue until it is closed.
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		if err := job.Run(); err != nil {
			p.logger.Error("job failed", "worker_id", id, "job_id", job.ID, "err", err)
		}
	}

	p.logger.Debug("worker stopped", "worker_id", id)
}
