// Package handlers contains HTTP handler interfaces and implementations.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/edulearn-hub/enrollment-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ORDER WEBHOOK HANDLER
// Entry point for order.completed deliveries from the commerce system.
// Parses the wire payload into a domain event and hands it to the dispatcher;
// idempotency lives behind the dispatcher, not here.
// ══════════════════════════════════════════════════════════════════════════════

// ErrInvalidPayload reports a webhook body that cannot be turned into an
// order event. Redelivery will not help; the caller should answer 400.
var ErrInvalidPayload = errors.New("invalid webhook payload")

// OrderWebhookHandler defines the interface for handling commerce webhooks.
type OrderWebhookHandler interface {
	// HandleOrderCompleted processes one order.completed delivery.
	HandleOrderCompleted(ctx context.Context, payload []byte) error
}

// OrderItemPayload is one purchased course line item on the wire.
type OrderItemPayload struct {
	CourseID string  `json:"course_id"`
	Price    float64 `json:"price"`
}

// OrderCompletedPayload is the wire format the commerce system sends.
type OrderCompletedPayload struct {
	EventID  string             `json:"event_id"`
	OrderID  string             `json:"order_id"`
	UserID   string             `json:"user_id"`
	Amount   float64            `json:"amount"`
	Currency string             `json:"currency"`
	Items    []OrderItemPayload `json:"items"`
}

// Validate checks that the payload carries everything provisioning needs.
func (p *OrderCompletedPayload) Validate() error {
	if p.EventID == "" {
		return fmt.Errorf("%w: event_id is required", ErrInvalidPayload)
	}
	if p.OrderID == "" {
		return fmt.Errorf("%w: order_id is required", ErrInvalidPayload)
	}
	if p.UserID == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidPayload)
	}
	if len(p.Items) == 0 {
		return fmt.Errorf("%w: order has no items", ErrInvalidPayload)
	}
	for i, item := range p.Items {
		if item.CourseID == "" {
			return fmt.Errorf("%w: item %d has no course_id", ErrInvalidPayload, i)
		}
	}
	return nil
}

// EventDispatcher delivers a domain event to its registered handlers.
// Satisfied by the messaging dispatcher.
type EventDispatcher interface {
	Dispatch(event shared.Event) error
}

// OrderEventWebhook implements OrderWebhookHandler by translating webhook
// payloads into OrderCompletedEvent and dispatching them.
type OrderEventWebhook struct {
	dispatcher EventDispatcher
}

// NewOrderEventWebhook creates a new order webhook handler.
func NewOrderEventWebhook(dispatcher EventDispatcher) *OrderEventWebhook {
	return &OrderEventWebhook{dispatcher: dispatcher}
}

// HandleOrderCompleted processes one order.completed delivery.
func (h *OrderEventWebhook) HandleOrderCompleted(ctx context.Context, payload []byte) error {
	var p OrderCompletedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := p.Validate(); err != nil {
		return err
	}

	items := make([]shared.OrderItem, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, shared.OrderItem{
			CourseID: item.CourseID,
			Price:    item.Price,
		})
	}

	event := shared.NewOrderCompletedEvent(p.EventID, p.OrderID, p.UserID, p.Amount, p.Currency, items)

	if err := h.dispatcher.Dispatch(event); err != nil {
		return fmt.Errorf("dispatch order event %s: %w", p.EventID, err)
	}

	return nil
}

// NoopOrderWebhook discards all webhooks.
type NoopOrderWebhook struct{}

// NewNoopOrderWebhook creates a new noop webhook handler.
func NewNoopOrderWebhook() *NoopOrderWebhook {
	return &NoopOrderWebhook{}
}

// HandleOrderCompleted is a no-op.
func (n *NoopOrderWebhook) HandleOrderCompleted(ctx context.Context, payload []byte) error {
	return nil
}
