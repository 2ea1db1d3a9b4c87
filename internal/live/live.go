// Package live provides the push-on-change read model shared by the stores:
// a broadcast change notifier and a cancellable value stream.
package live

import (
	"context"
	"errors"
	"sync"
)

// Notifier broadcasts change signals to any number of waiters.
type Notifier struct {
	mu sync.Mutex
	ch chan struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{})}
}

// Changed returns a channel that is closed by the next Notify.
// Callers must take it before reading the state they want to watch.
func (n *Notifier) Changed() <-chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ch
}

func (n *Notifier) Notify() {
	n.mu.Lock()
	close(n.ch)
	n.ch = make(chan struct{})
	n.mu.Unlock()
}

// Stream is a live sequence of values. C is closed when the stream ends;
// Err then reports why.
type Stream[T any] struct {
	C    <-chan T
	done chan struct{}
	err  error
}

// Err blocks until the stream has ended and returns its terminal error.
// Cancellation through the stream's context is not an error.
func (s *Stream[T]) Err() error {
	<-s.done
	return s.err
}

// Done is closed once the stream has ended.
func (s *Stream[T]) Done() <-chan struct{} {
	return s.done
}

// Emitter is the producer side of a Stream.
type Emitter[T any] struct {
	ch chan<- T
}

// Emit delivers v to the consumer. It gives up without error when
// superseded fires first; a nil superseded channel never fires.
func (e Emitter[T]) Emit(ctx context.Context, v T, superseded <-chan struct{}) (bool, error) {
	select {
	case e.ch <- v:
		return true, nil
	case <-superseded:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Send exposes the raw channel for producers that multiplex delivery with
// other events in a single select.
func (e Emitter[T]) Send() chan<- T {
	return e.ch
}

// Start runs produce in its own goroutine and exposes what it emits.
func Start[T any](ctx context.Context, produce func(context.Context, Emitter[T]) error) *Stream[T] {
	ch := make(chan T)
	s := &Stream[T]{C: ch, done: make(chan struct{})}

	go func() {
		defer close(s.done)

		err := produce(ctx, Emitter[T]{ch: ch})
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			err = nil
		}
		s.err = err
		close(ch)
	}()

	return s
}
