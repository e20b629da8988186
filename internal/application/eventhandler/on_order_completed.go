// Package eventhandler содержит обработчики доменных событий.
package eventhandler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/edulearn-hub/enrollment-hub/internal/application/command"
	"github.com/edulearn-hub/enrollment-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON ORDER COMPLETED HANDLER
// Обрабатывает событие завершённой покупки из коммерческой системы.
//
// Два уровня идемпотентности:
// 1. Уровень события: store обработанных событий отсекает повторную доставку
//    целого события до любой работы по позициям.
// 2. Уровень позиции: провижининг пропускает позиции, для которых зачисление
//    уже существует. Это защищает частично обработанные события - если из
//    трёх курсов создались два, повторная доставка досоздаст только третий.
// ═══════════════════════════════════════════════════════════════════════════

// OnOrderCompletedHandler обрабатывает событие завершённой покупки.
type OnOrderCompletedHandler struct {
	processedStore shared.ProcessedEventStore
	provisioner    *command.ProvisionEnrollmentHandler
	logger         *slog.Logger
}

// NewOnOrderCompletedHandler создаёт новый обработчик события покупки.
func NewOnOrderCompletedHandler(
	processedStore shared.ProcessedEventStore,
	provisioner *command.ProvisionEnrollmentHandler,
	logger *slog.Logger,
) *OnOrderCompletedHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &OnOrderCompletedHandler{
		processedStore: processedStore,
		provisioner:    provisioner,
		logger:         logger.With("handler", "on_order_completed"),
	}
}

// Handle обрабатывает событие завершённой покупки.
// Реализует интерфейс shared.EventHandler.
func (h *OnOrderCompletedHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	orderEvent, ok := event.(shared.OrderCompletedEvent)
	if !ok {
		h.logger.Warn("received non-OrderCompletedEvent",
			"event_type", event.EventType(),
		)
		return nil
	}

	eventID := orderEvent.EventID()

	// Идемпотентность уровня события: повторная доставка - no-op.
	processed, err := h.processedStore.IsProcessed(ctx, eventID)
	if err != nil {
		return fmt.Errorf("check processed event: %w", err)
	}
	if processed {
		h.logger.Info("event already processed, skipping",
			"event_id", eventID,
			"order_id", orderEvent.OrderID,
		)
		return nil
	}

	h.logger.Info("processing order completed event",
		"event_id", eventID,
		"order_id", orderEvent.OrderID,
		"user_id", orderEvent.UserID,
		"items", len(orderEvent.Items),
	)

	items := make([]command.ProvisionItem, 0, len(orderEvent.Items))
	for _, item := range orderEvent.Items {
		items = append(items, command.ProvisionItem{
			CourseID: item.CourseID,
			Price:    item.Price,
		})
	}

	result, err := h.provisioner.Handle(ctx, command.ProvisionEnrollmentCommand{
		OrderID:       orderEvent.OrderID,
		StudentID:     orderEvent.UserID,
		Items:         items,
		CorrelationID: eventID,
	})
	if err != nil {
		// Провал до обработки позиций (валидация и т.п.) - событие
		// не помечаем, брокер доставит повторно.
		return fmt.Errorf("provision order %s: %w", orderEvent.OrderID, err)
	}

	// Частичный провал не помечаем обработанным: ошибка уходит брокеру,
	// повторная доставка пропустит уже созданные позиции и доcоздаст
	// только упавшие.
	if result.Failed > 0 {
		return fmt.Errorf("provision order %s: %d of %d items failed",
			orderEvent.OrderID, result.Failed, len(orderEvent.Items))
	}

	if err := h.processedStore.MarkAsProcessed(ctx, eventID); err != nil {
		h.logger.Error("failed to mark event as processed",
			"event_id", eventID,
			"error", err,
		)
		// Не фейлим: зачисления созданы, повторная доставка будет no-op
		// на уровне позиций.
	}

	h.logger.Info("order completed event processed",
		"event_id", eventID,
		"order_id", orderEvent.OrderID,
		"provisioned", result.Provisioned,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)

	return nil
}

// EventType возвращает тип события, который обрабатывает этот handler.
func (h *OnOrderCompletedHandler) EventType() shared.EventType {
	return shared.EventOrderCompleted
}
