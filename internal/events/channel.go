// Package events carries one-shot instructions from a coordinator to the
// surface that presents it.
package events

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrBusy   = errors.New("events: another collector is attached")
	ErrClosed = errors.New("events: channel closed")
)

// Channel is a bounded FIFO of events with at most one collector at a time.
// Events sent while nobody collects wait in the buffer and are handed to the
// next collector in order. Each event is delivered exactly once.
type Channel[E any] struct {
	ch        chan E
	closed    chan struct{}
	closeOnce sync.Once

	mu         sync.Mutex
	collecting bool
}

func NewChannel[E any](capacity int) *Channel[E] {
	if capacity < 1 {
		capacity = 1
	}
	return &Channel[E]{
		ch:     make(chan E, capacity),
		closed: make(chan struct{}),
	}
}

// Send enqueues e, blocking while the buffer is full.
func (c *Channel[E]) Send(ctx context.Context, e E) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}

	select {
	case c.ch <- e:
		return nil
	case <-c.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscription is the single active collector of a Channel.
type Subscription[E any] struct {
	c    *Channel[E]
	once sync.Once
}

// Subscribe claims the collector slot, failing with ErrBusy while another
// subscription holds it.
func (c *Channel[E]) Subscribe() (*Subscription[E], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.collecting {
		return nil, ErrBusy
	}
	c.collecting = true
	return &Subscription[E]{c: c}, nil
}

// Next waits for the next event.
func (s *Subscription[E]) Next(ctx context.Context) (E, error) {
	var zero E
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-s.c.closed:
		return zero, ErrClosed
	case e := <-s.c.ch:
		return e, nil
	}
}

// Close releases the collector slot. Undelivered events stay buffered.
func (s *Subscription[E]) Close() {
	s.once.Do(func() {
		s.c.mu.Lock()
		s.c.collecting = false
		s.c.mu.Unlock()
	})
}

// Collect passes events to handle in order until ctx ends, the channel is
// closed or handle fails. Detaching through ctx is not an error.
func (c *Channel[E]) Collect(ctx context.Context, handle func(E) error) error {
	sub, err := c.Subscribe()
	if err != nil {
		return err
	}
	defer sub.Close()

	for {
		e, err := sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return nil
			}
			return err
		}
		if err := handle(e); err != nil {
			return err
		}
	}
}

// Receive waits for a single event.
func (c *Channel[E]) Receive(ctx context.Context) (E, error) {
	sub, err := c.Subscribe()
	if err != nil {
		var zero E
		return zero, err
	}
	defer sub.Close()
	return sub.Next(ctx)
}

// Pending reports how many events wait for a collector.
func (c *Channel[E]) Pending() int {
	return len(c.ch)
}

// Close drops undelivered events and stops every sender and collector.
func (c *Channel[E]) Close() {
	c.closeOnce.Do(func() { close(c.closed) })
}
