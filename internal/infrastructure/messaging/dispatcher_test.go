package messaging

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulearn-hub/enrollment-hub/internal/domain/shared"
)

type testEvent struct {
	eventType   shared.EventType
	aggregateID string
}

func (e testEvent) EventType() shared.EventType { return e.eventType }

func (e testEvent) OccurredAt() time.Time { return time.Now().UTC() }

func (e testEvent) AggregateID() string { return e.aggregateID }

func (e testEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"aggregate_id": e.aggregateID}
}

func testDispatcher() *Dispatcher {
	return NewDispatcher(DispatcherConfig{
		RetryConfig: RetryConfig{
			MaxRetries:        0,
			InitialBackoff:    time.Millisecond,
			MaxBackoff:        time.Millisecond,
			BackoffMultiplier: 1,
		},
		DeadLetterQueueSize: 10,
		Logger:              slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestDispatcher_SyncHandlerErrorPropagates(t *testing.T) {
	d := testDispatcher()

	require.NoError(t, d.RegisterSync(shared.EventOrderCompleted, "failing", func(event shared.Event) error {
		return assert.AnError
	}))

	err := d.Dispatch(testEvent{eventType: shared.EventOrderCompleted, aggregateID: "order-1"})

	require.Error(t, err)
	assert.Equal(t, 1, d.DeadLetterQueue().Size())
}

func TestDispatcher_AsyncHandlerErrorDoesNotPropagate(t *testing.T) {
	d := testDispatcher()

	require.NoError(t, d.Register(shared.EventCourseCompleted, "failing", func(event shared.Event) error {
		return assert.AnError
	}))

	err := d.Dispatch(testEvent{eventType: shared.EventCourseCompleted, aggregateID: "enr-1"})

	// Async failures go to the DLQ instead of the caller
	assert.NoError(t, err)
	assert.Equal(t, 1, d.DeadLetterQueue().Size())
}

func TestDispatcher_RoutesByEventType(t *testing.T) {
	d := testDispatcher()

	var mu sync.Mutex
	var seen []string

	handler := func(name string) shared.EventHandler {
		return func(event shared.Event) error {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, name)
			return nil
		}
	}

	require.NoError(t, d.RegisterSync(shared.EventOrderCompleted, "orders", handler("orders")))
	require.NoError(t, d.RegisterSync(shared.EventEnrollmentDropped, "drops", handler("drops")))

	require.NoError(t, d.Dispatch(testEvent{eventType: shared.EventOrderCompleted, aggregateID: "order-1"}))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"orders"}, seen)
}

func TestDispatcher_UnknownEventTypeIsNoop(t *testing.T) {
	d := testDispatcher()

	err := d.Dispatch(testEvent{eventType: shared.EventNotificationSent, aggregateID: "n-1"})

	assert.NoError(t, err)
	assert.Equal(t, 0, d.DeadLetterQueue().Size())
}

func TestRecoveryMiddleware_ConvertsPanicToError(t *testing.T) {
	d := testDispatcher()
	d.Use(RecoveryMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil))))

	require.NoError(t, d.RegisterSync(shared.EventOrderCompleted, "panicking", func(event shared.Event) error {
		panic("boom")
	}))

	err := d.Dispatch(testEvent{eventType: shared.EventOrderCompleted, aggregateID: "order-1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler panic")
}
