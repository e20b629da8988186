package eventhandler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/edulearn-hub/enrollment-hub/internal/domain/notification"
	"github.com/edulearn-hub/enrollment-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON UNIT COMPLETED HANDLER
// Маленькая победа: урок досмотрен или квиз пройден. Уведомление best-effort.
// ═══════════════════════════════════════════════════════════════════════════

// OnUnitCompletedHandler обрабатывает событие завершённой учебной единицы.
type OnUnitCompletedHandler struct {
	notificationRepo notification.Repository
	sender           notification.Sender
	logger           *slog.Logger
}

// NewOnUnitCompletedHandler создаёт новый обработчик.
func NewOnUnitCompletedHandler(
	notificationRepo notification.Repository,
	sender notification.Sender,
	logger *slog.Logger,
) *OnUnitCompletedHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &OnUnitCompletedHandler{
		notificationRepo: notificationRepo,
		sender:           sender,
		logger:           logger.With("handler", "on_unit_completed"),
	}
}

// Handle обрабатывает событие завершённой учебной единицы.
// Реализует интерфейс shared.EventHandler.
func (h *OnUnitCompletedHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	unit, ok := event.(shared.LearningUnitCompletedEvent)
	if !ok {
		h.logger.Warn("received non-LearningUnitCompletedEvent",
			"event_type", event.EventType(),
		)
		return nil
	}

	var (
		notifType notification.NotificationType
		title     string
		body      string
	)
	switch unit.UnitType {
	case "quiz":
		notifType = notification.NotificationTypeQuizPassed
		title = "Квиз пройден!"
		body = fmt.Sprintf("Квиз засчитан. Прогресс курса: %.0f%%", unit.ProgressPercent)
	default:
		notifType = notification.NotificationTypeLessonMilestone
		title = "Урок пройден!"
		body = fmt.Sprintf("Урок засчитан. Прогресс курса: %.0f%%", unit.ProgressPercent)
	}

	notif, err := notification.New(
		notification.NotificationID(uuid.NewString()),
		notification.RecipientID(unit.StudentID),
		notifType,
		title,
		body,
	)
	if err != nil {
		h.logger.Warn("failed to build milestone notification",
			"enrollment_id", unit.EnrollmentID,
			"error", err,
		)
		return nil
	}

	if h.notificationRepo != nil {
		if err := h.notificationRepo.Save(ctx, notif); err != nil {
			h.logger.Warn("failed to save milestone notification",
				"enrollment_id", unit.EnrollmentID,
				"error", err,
			)
		}
	}

	if h.sender != nil {
		if err := h.sender.Send(ctx, notif); err != nil {
			h.logger.Warn("failed to send milestone notification",
				"enrollment_id", unit.EnrollmentID,
				"error", err,
			)
		}
	}

	return nil
}

// EventType возвращает тип события, который обрабатывает этот handler.
func (h *OnUnitCompletedHandler) EventType() shared.EventType {
	return shared.EventLearningUnitCompleted
}
