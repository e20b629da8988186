package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulearn-hub/enrollment-hub/internal/domain/shared"
)

type capturingDispatcher struct {
	events []shared.Event
	err    error
}

func (d *capturingDispatcher) Dispatch(event shared.Event) error {
	d.events = append(d.events, event)
	return d.err
}

func TestOrderEventWebhook_HandleOrderCompleted(t *testing.T) {
	dispatcher := &capturingDispatcher{}
	webhook := NewOrderEventWebhook(dispatcher)

	payload := []byte(`{
		"event_id": "evt-1",
		"order_id": "order-1",
		"user_id": "student-1",
		"amount": 49.99,
		"currency": "USD",
		"items": [
			{"course_id": "course-1", "price": 29.99},
			{"course_id": "course-2", "price": 20.00}
		]
	}`)

	err := webhook.HandleOrderCompleted(context.Background(), payload)
	require.NoError(t, err)
	require.Len(t, dispatcher.events, 1)

	event, ok := dispatcher.events[0].(shared.OrderCompletedEvent)
	require.True(t, ok)
	assert.Equal(t, "evt-1", event.EventID())
	assert.Equal(t, "order-1", event.OrderID)
	assert.Equal(t, "student-1", event.UserID)
	assert.Len(t, event.Items, 2)
	assert.Equal(t, "course-1", event.Items[0].CourseID)
}

func TestOrderEventWebhook_InvalidJSON(t *testing.T) {
	webhook := NewOrderEventWebhook(&capturingDispatcher{})

	err := webhook.HandleOrderCompleted(context.Background(), []byte("not json"))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestOrderEventWebhook_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"missing event_id", `{"order_id":"o1","user_id":"s1","items":[{"course_id":"c1"}]}`},
		{"missing order_id", `{"event_id":"e1","user_id":"s1","items":[{"course_id":"c1"}]}`},
		{"missing user_id", `{"event_id":"e1","order_id":"o1","items":[{"course_id":"c1"}]}`},
		{"no items", `{"event_id":"e1","order_id":"o1","user_id":"s1","items":[]}`},
		{"item without course", `{"event_id":"e1","order_id":"o1","user_id":"s1","items":[{"price":10}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dispatcher := &capturingDispatcher{}
			webhook := NewOrderEventWebhook(dispatcher)

			err := webhook.HandleOrderCompleted(context.Background(), []byte(tt.payload))
			assert.ErrorIs(t, err, ErrInvalidPayload)
			assert.Empty(t, dispatcher.events)
		})
	}
}

func TestOrderEventWebhook_DispatchErrorPropagates(t *testing.T) {
	dispatcher := &capturingDispatcher{err: assert.AnError}
	webhook := NewOrderEventWebhook(dispatcher)

	payload := []byte(`{"event_id":"e1","order_id":"o1","user_id":"s1","items":[{"course_id":"c1"}]}`)

	err := webhook.HandleOrderCompleted(context.Background(), payload)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidPayload)
}
