package dispatcher

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/garyjia/travel-approval/internal/domain/event"
)

func noop(ctx context.Context, evt *event.Event) error { return nil }

func TestSubscribe(t *testing.T) {
	t.Run("calls every handler of the type in order", func(t *testing.T) {
		d := NewDispatcher()
		var order []string

		d.Subscribe(event.TypeWorkflowSubmitted, func(ctx context.Context, evt *event.Event) error {
			order = append(order, "first")
			return nil
		})
		d.Subscribe(event.TypeWorkflowSubmitted, func(ctx context.Context, evt *event.Event) error {
			order = append(order, "second")
			return nil
		})
		d.Subscribe(event.TypeWorkflowRejected, func(ctx context.Context, evt *event.Event) error {
			order = append(order, "other")
			return nil
		})

		evt := event.NewEvent(event.TypeWorkflowSubmitted, "wf-1", nil)
		require.NoError(t, d.Dispatch(context.Background(), evt))
		assert.Equal(t, []string{"first", "second"}, order)

		names := d.ListHandlers(event.TypeWorkflowSubmitted)
		require.Len(t, names, 2)
		assert.Equal(t, "handler-0", names[0].Name)
		assert.Equal(t, "handler-1", names[1].Name)
	})

	t.Run("subscribe all covers every type", func(t *testing.T) {
		d := NewDispatcher()
		var calls atomic.Int32
		d.SubscribeAll("counter", func(ctx context.Context, evt *event.Event) error {
			calls.Add(1)
			return nil
		})

		for _, typ := range event.AllTypes {
			require.NoError(t, d.Dispatch(context.Background(), event.NewEvent(typ, "wf", nil)))
		}
		assert.Equal(t, int32(len(event.AllTypes)), calls.Load())
	})
}

func TestUnsubscribe(t *testing.T) {
	d := NewDispatcher()
	called1, called2 := false, false

	d.SubscribeNamed(event.TypeWorkflowEscalated, "handler-1", func(ctx context.Context, evt *event.Event) error {
		called1 = true
		return nil
	})
	d.SubscribeNamed(event.TypeWorkflowEscalated, "handler-2", func(ctx context.Context, evt *event.Event) error {
		called2 = true
		return nil
	})

	d.Unsubscribe(event.TypeWorkflowEscalated, "handler-1")

	require.NoError(t, d.Dispatch(context.Background(), event.NewEvent(event.TypeWorkflowEscalated, "wf-1", nil)))
	assert.False(t, called1)
	assert.True(t, called2)
}

func TestDispatch_Errors(t *testing.T) {
	t.Run("stops at first error", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		d := NewDispatcher(WithLogger(zap.New(core)))
		boom := errors.New("boom")
		reached := false

		d.SubscribeNamed(event.TypeWorkflowCompleted, "failing", func(ctx context.Context, evt *event.Event) error {
			return boom
		})
		d.SubscribeNamed(event.TypeWorkflowCompleted, "after", func(ctx context.Context, evt *event.Event) error {
			reached = true
			return nil
		})

		err := d.Dispatch(context.Background(), event.NewEvent(event.TypeWorkflowCompleted, "wf-1", nil))
		assert.ErrorIs(t, err, boom)
		assert.False(t, reached)
		assert.Equal(t, 1, logs.FilterMessage("Handler error").Len())
	})

	t.Run("recovers from panics", func(t *testing.T) {
		d := NewDispatcher()
		d.Subscribe(event.TypeWorkflowRejected, func(ctx context.Context, evt *event.Event) error {
			panic("handler exploded")
		})

		err := d.Dispatch(context.Background(), event.NewEvent(event.TypeWorkflowRejected, "wf-1", nil))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "handler exploded")
	})
}

func TestDispatchAsync(t *testing.T) {
	d := NewDispatcher()
	var calls atomic.Int32

	for i := 0; i < 5; i++ {
		d.Subscribe(event.TypeSLABreached, func(ctx context.Context, evt *event.Event) error {
			calls.Add(1)
			return nil
		})
	}

	d.DispatchAsync(context.Background(), event.NewEvent(event.TypeSLABreached, "wf-1", nil))
	require.NoError(t, d.Close())
	assert.Equal(t, int32(5), calls.Load())
}

func TestClose(t *testing.T) {
	d := NewDispatcher()
	d.Subscribe(event.TypeWorkflowSubmitted, noop)

	require.NoError(t, d.Close())
	assert.Error(t, d.Close(), "second close should fail")
	assert.Error(t, d.Dispatch(context.Background(), event.NewEvent(event.TypeWorkflowSubmitted, "wf-1", nil)))

	// async dispatch after close is dropped
	d.DispatchAsync(context.Background(), event.NewEvent(event.TypeWorkflowSubmitted, "wf-1", nil))
}
