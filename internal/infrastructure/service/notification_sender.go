// Package service contains infrastructure-side implementations of the
// small service interfaces declared in the domain layer.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/edulearn-hub/enrollment-hub/internal/domain/notification"
	"github.com/edulearn-hub/enrollment-hub/internal/infrastructure/persistence/redis"
	"github.com/edulearn-hub/enrollment-hub/pkg/circuitbreaker"
	"github.com/edulearn-hub/enrollment-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// PUSH SENDER
// Delivers in-app notifications over Redis pub/sub. The websocket gateway
// subscribes to the per-recipient channel and pushes to connected clients.
// Delivery is best-effort: callers log failures and move on.
// ══════════════════════════════════════════════════════════════════════════════

// pushMessage is the wire format published to the gateway.
type pushMessage struct {
	ID          string `json:"id"`
	RecipientID string `json:"recipient_id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	CreatedAt   string `json:"created_at"`
}

// PushSender implements notification.Sender on top of Redis pub/sub.
type PushSender struct {
	cache   *redis.Cache
	logger  *slog.Logger
	retrier *retry.Retrier
	breaker *circuitbreaker.CircuitBreaker
}

// NewPushSender creates a new PushSender.
func NewPushSender(cache *redis.Cache, logger *slog.Logger) *PushSender {
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With("component", "push_sender")

	breaker := circuitbreaker.NotificationBreaker(func(name string, from, to circuitbreaker.State) {
		logger.Warn("circuit breaker state changed",
			"breaker", name,
			"from", from.String(),
			"to", to.String(),
		)
	})

	return &PushSender{
		cache:   cache,
		logger:  logger,
		retrier: retry.NotificationRetrier(),
		breaker: breaker,
	}
}

// Send publishes the notification to the recipient's channel.
func (s *PushSender) Send(ctx context.Context, n *notification.Notification) error {
	msg := pushMessage{
		ID:          n.ID.String(),
		RecipientID: n.RecipientID.String(),
		Type:        string(n.Type),
		Title:       n.Title,
		Body:        n.Body,
		CreatedAt:   n.CreatedAt.Format(time.RFC3339),
	}

	channel := redis.PubSubChannel("notifications:" + n.RecipientID.String())

	return s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.retrier.Do(ctx, func(ctx context.Context) error {
			if err := s.cache.Publish(ctx, channel, msg); err != nil {
				// Redis hiccups are transient, publish again
				return retry.Retryable(err)
			}
			return nil
		})
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// LOG SENDER
// ══════════════════════════════════════════════════════════════════════════════

// LogSender implements notification.Sender by logging the notification.
// Used when push delivery is disabled by configuration.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a new LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger.With("component", "log_sender")}
}

// Send logs the notification instead of delivering it.
func (s *LogSender) Send(_ context.Context, n *notification.Notification) error {
	s.logger.Info("notification",
		"recipient_id", n.RecipientID.String(),
		"type", string(n.Type),
		"title", n.Title,
	)
	return nil
}
