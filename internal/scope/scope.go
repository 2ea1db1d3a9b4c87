// Package scope ties units of work to the lifetime of a presentation surface.
package scope

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrClosed is returned for work offered to a scope that is already over.
var ErrClosed = errors.New("scope: closed")

// Scope runs a surface's operations one after another, in launch order, on
// a single queue. Close cancels whatever is still running or queued. The
// first failing operation cancels the whole scope.
type Scope struct {
	name   string
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	mu     sync.Mutex
	queue  []func(context.Context) error
	closed bool
	wake   chan struct{}
}

func New(parent context.Context, name string, logger *zap.Logger) *Scope {
	ctx, cancel := context.WithCancel(parent)
	group, gctx := errgroup.WithContext(ctx)

	s := &Scope{
		name:   name,
		logger: logger,
		ctx:    gctx,
		cancel: cancel,
		group:  group,
		wake:   make(chan struct{}, 1),
	}
	group.Go(s.run)
	return s
}

func (s *Scope) Context() context.Context {
	return s.ctx
}

func (s *Scope) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Launch queues op. It reports false when the scope is already over.
func (s *Scope) Launch(op func(context.Context) error) bool {
	s.mu.Lock()
	if s.closed || s.ctx.Err() != nil {
		s.mu.Unlock()
		s.logger.Debug("operation dropped, scope is over", zap.String("scope", s.name))
		return false
	}
	s.queue = append(s.queue, op)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

// Go runs op concurrently with the queue, for long-lived work such as
// stream forwarding. A failure still cancels the scope.
func (s *Scope) Go(op func(context.Context) error) {
	s.group.Go(func() error {
		return s.finish(op(s.ctx))
	})
}

// Close cancels the scope, waits for its goroutines and returns the first
// failure, if any.
func (s *Scope) Close() error {
	s.mu.Lock()
	s.closed = true
	s.queue = nil
	s.mu.Unlock()

	s.cancel()
	return s.group.Wait()
}

// Wait blocks until every queued operation has run, without cancelling.
// It returns the scope's failure if one happened.
func (s *Scope) Wait(ctx context.Context) error {
	done := make(chan struct{})
	if !s.Launch(func(context.Context) error {
		close(done)
		return nil
	}) {
		return s.failure()
	}

	select {
	case <-done:
		return nil
	case <-s.ctx.Done():
		return s.failure()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scope) run() error {
	for {
		op, ok := s.next()
		if !ok {
			select {
			case <-s.wake:
				continue
			case <-s.ctx.Done():
				return nil
			}
		}
		if err := s.finish(op(s.ctx)); err != nil {
			return err
		}
	}
}

func (s *Scope) next() (func(context.Context) error, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil, false
	}
	op := s.queue[0]
	s.queue = s.queue[1:]
	return op, true
}

// finish drops errors caused by the scope's own cancellation.
func (s *Scope) finish(err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := s.ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return nil
	}
	s.logger.Error("surface operation failed", zap.String("scope", s.name), zap.Error(err))
	return err
}

func (s *Scope) failure() error {
	if s.ctx.Err() == nil {
		return nil
	}
	// the group only finishes once every goroutine saw the cancellation
	return s.group.Wait()
}
