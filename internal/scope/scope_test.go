package scope

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestScope_RunsInLaunchOrder(t *testing.T) {
	s := New(context.Background(), "test", zap.NewNop())

	var (
		mu  sync.Mutex
		got []int
	)
	for i := 0; i < 20; i++ {
		require.True(t, s.Launch(func(context.Context) error {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			return nil
		}))
	}

	require.NoError(t, s.Wait(context.Background()))
	require.NoError(t, s.Close())

	want := make([]int, 20)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, got)
}

func TestScope_CloseCancelsRunningWork(t *testing.T) {
	s := New(context.Background(), "test", zap.NewNop())

	started := make(chan struct{})
	cancelled := make(chan struct{})
	s.Launch(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	})

	<-started
	require.NoError(t, s.Close(), "cancellation is not a failure")

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("operation was not cancelled")
	}
	assert.False(t, s.Launch(func(context.Context) error { return nil }))
}

func TestScope_FailureCancelsTheScope(t *testing.T) {
	s := New(context.Background(), "test", zap.NewNop())
	boom := errors.New("write failed")

	ranAfter := false
	s.Launch(func(context.Context) error { return boom })
	s.Launch(func(context.Context) error {
		ranAfter = true
		return nil
	})

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("scope survived a failing operation")
	}

	assert.ErrorIs(t, s.Wait(context.Background()), boom)
	assert.ErrorIs(t, s.Close(), boom)
	assert.False(t, ranAfter)
}

func TestScope_ParentCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	s := New(parent, "test", zap.NewNop())

	cancel()
	<-s.Done()
	assert.NoError(t, s.Close())
}

func TestScope_GoRunsConcurrently(t *testing.T) {
	s := New(context.Background(), "test", zap.NewNop())

	blocked := make(chan struct{})
	s.Go(func(ctx context.Context) error {
		close(blocked)
		<-ctx.Done()
		return ctx.Err()
	})
	<-blocked

	// The queue is not held up by the long-running Go operation.
	require.NoError(t, s.Wait(context.Background()))
	assert.NoError(t, s.Close())
}
