package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel_PreservesOrder(t *testing.T) {
	c := NewChannel[int](16)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		require.NoError(t, c.Send(ctx, i))
	}

	var got []int
	stop := errors.New("stop")
	err := c.Collect(ctx, func(e int) error {
		got = append(got, e)
		if len(got) == 10 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestChannel_BuffersWhileDetached(t *testing.T) {
	c := NewChannel[string](8)
	ctx := context.Background()

	require.NoError(t, c.Send(ctx, "first"))

	got, err := c.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	// Nobody collecting: events wait and come back in order.
	require.NoError(t, c.Send(ctx, "second"))
	require.NoError(t, c.Send(ctx, "third"))
	assert.Equal(t, 2, c.Pending())

	for _, want := range []string{"second", "third"} {
		got, err := c.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Zero(t, c.Pending())
}

func TestChannel_SingleCollector(t *testing.T) {
	c := NewChannel[int](1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- c.Collect(ctx, func(int) error { return nil }) }()

	require.Eventually(t, func() bool {
		probe, stop := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer stop()
		_, err := c.Receive(probe)
		return errors.Is(err, ErrBusy)
	}, time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	// Detached collector frees the slot.
	require.NoError(t, c.Send(context.Background(), 7))
	got, err := c.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestChannel_ExactlyOnceUnderConcurrentSenders(t *testing.T) {
	c := NewChannel[string](4)
	ctx := context.Background()

	var wg sync.WaitGroup
	for s := 0; s < 4; s++ {
		wg.Add(1)
		go func(s int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				assert.NoError(t, c.Send(ctx, fmt.Sprintf("%d-%d", s, i)))
			}
		}(s)
	}

	seen := make(map[string]int)
	stop := errors.New("stop")
	err := c.Collect(ctx, func(e string) error {
		seen[e]++
		if len(seen) == 100 {
			return stop
		}
		return nil
	})
	wg.Wait()

	require.ErrorIs(t, err, stop)
	for e, n := range seen {
		assert.Equal(t, 1, n, "event %s delivered %d times", e, n)
	}
}

func TestChannel_SendBlocksWhenFull(t *testing.T) {
	c := NewChannel[int](1)
	require.NoError(t, c.Send(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Send(ctx, 2), context.DeadlineExceeded)
}

func TestChannel_Close(t *testing.T) {
	c := NewChannel[int](2)
	require.NoError(t, c.Send(context.Background(), 1))
	c.Close()

	assert.ErrorIs(t, c.Send(context.Background(), 2), ErrClosed)
	err := c.Collect(context.Background(), func(int) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSubscription_HoldsAndReleasesSlot(t *testing.T) {
	c := NewChannel[int](4)
	sub, err := c.Subscribe()
	require.NoError(t, err)

	_, err = c.Subscribe()
	assert.ErrorIs(t, err, ErrBusy)

	require.NoError(t, c.Send(context.Background(), 1))
	got, err := sub.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	sub.Close()
	sub.Close()

	again, err := c.Subscribe()
	require.NoError(t, err)
	again.Close()
}
