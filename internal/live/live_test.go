package live

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_WakesAllWaiters(t *testing.T) {
	n := NewNotifier()
	first := n.Changed()
	second := n.Changed()

	n.Notify()

	for _, ch := range []<-chan struct{}{first, second} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("waiter was not woken")
		}
	}

	select {
	case <-n.Changed():
		t.Fatal("fresh wait channel must not be closed")
	default:
	}
}

func TestStream_DeliversThenEnds(t *testing.T) {
	s := Start(context.Background(), func(ctx context.Context, e Emitter[int]) error {
		for i := 1; i <= 3; i++ {
			if _, err := e.Emit(ctx, i, nil); err != nil {
				return err
			}
		}
		return nil
	})

	var got []int
	for v := range s.C {
		got = append(got, v)
	}
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.NoError(t, s.Err())
}

func TestStream_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	s := Start(context.Background(), func(ctx context.Context, e Emitter[int]) error {
		return boom
	})

	_, ok := <-s.C
	assert.False(t, ok)
	assert.ErrorIs(t, s.Err(), boom)
}

func TestStream_CancelIsNotAnError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := Start(ctx, func(ctx context.Context, e Emitter[int]) error {
		_, err := e.Emit(ctx, 1, nil)
		return err
	})

	cancel()
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("stream did not stop")
	}
	require.NoError(t, s.Err())
}

func TestEmitter_Superseded(t *testing.T) {
	superseded := make(chan struct{})
	close(superseded)

	s := Start(context.Background(), func(ctx context.Context, e Emitter[int]) error {
		sent, err := e.Emit(ctx, 1, superseded)
		if err != nil {
			return err
		}
		if sent {
			return errors.New("value should have been dropped")
		}
		return nil
	})

	assert.NoError(t, s.Err())
}
