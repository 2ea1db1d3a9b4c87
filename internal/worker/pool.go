package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrStopped = errors.New("worker pool stopped")

// Job is process-scoped work: it runs under the pool's context, not the
// context of whoever submitted it.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Pool executes jobs that must outlive the surface that requested them.
// Only Stop, at application shutdown, ends it; queued jobs are drained first.
type Pool struct {
	logger *zap.Logger
	count  int
	jobs   chan Job
	wg     sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

func NewPool(logger *zap.Logger, count, queueSize int) *Pool {
	if count < 1 {
		count = 1
	}
	return &Pool{
		logger: logger,
		count:  count,
		jobs:   make(chan Job, queueSize),
	}
}

func (p *Pool) Start(ctx context.Context) {
	p.logger.Info("Starting worker pool", zap.Int("workers", p.count))

	for i := 0; i < p.count; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Submit queues job. ctx bounds only the wait for queue space.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrStopped
	}

	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) Stop() {
	p.logger.Info("Stopping worker pool...")

	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.jobs)
	}
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("Worker pool stopped")
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	for job := range p.jobs {
		p.process(ctx, id, job)
	}
}

func (p *Pool) process(ctx context.Context, workerID int, job Job) {
	start := time.Now()
	p.logger.Debug("Processing job",
		zap.Int("worker", workerID),
		zap.String("job", job.Name),
	)

	if err := job.Run(ctx); err != nil {
		p.logger.Error("job failed",
			zap.Int("worker", workerID),
			zap.String("job", job.Name),
			zap.Error(err),
		)
		return
	}

	p.logger.Info("Job completed",
		zap.Int("worker", workerID),
		zap.String("job", job.Name),
		zap.Duration("took", time.Since(start)),
	)
}
