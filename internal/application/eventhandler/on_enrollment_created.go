package eventhandler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/edulearn-hub/enrollment-hub/internal/domain/course"
	"github.com/edulearn-hub/enrollment-hub/internal/domain/notification"
	"github.com/edulearn-hub/enrollment-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON ENROLLMENT CREATED HANDLER
// Приветствует студента на курсе. Уведомление best-effort: его потеря
// не ломает провижининг и не требует повторной доставки события.
// ═══════════════════════════════════════════════════════════════════════════

// OnEnrollmentCreatedHandler обрабатывает событие созданного зачисления.
type OnEnrollmentCreatedHandler struct {
	courseRepo       course.Repository
	notificationRepo notification.Repository
	sender           notification.Sender
	logger           *slog.Logger
}

// NewOnEnrollmentCreatedHandler создаёт новый обработчик.
func NewOnEnrollmentCreatedHandler(
	courseRepo course.Repository,
	notificationRepo notification.Repository,
	sender notification.Sender,
	logger *slog.Logger,
) *OnEnrollmentCreatedHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &OnEnrollmentCreatedHandler{
		courseRepo:       courseRepo,
		notificationRepo: notificationRepo,
		sender:           sender,
		logger:           logger.With("handler", "on_enrollment_created"),
	}
}

// Handle обрабатывает событие созданного зачисления.
// Реализует интерфейс shared.EventHandler.
func (h *OnEnrollmentCreatedHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	created, ok := event.(shared.EnrollmentCreatedEvent)
	if !ok {
		h.logger.Warn("received non-EnrollmentCreatedEvent",
			"event_type", event.EventType(),
		)
		return nil
	}

	title := "Добро пожаловать на курс!"
	body := "Ты зачислен на курс. Вперёд к первому уроку!"

	// Название курса - приятный бонус, а не обязательное условие.
	if h.courseRepo != nil {
		if crs, err := h.courseRepo.FindByID(ctx, created.CourseID); err == nil {
			body = fmt.Sprintf("Ты зачислен на курс «%s». Вперёд к первому уроку!", crs.Title)
		}
	}

	notif, err := notification.New(
		notification.NotificationID(uuid.NewString()),
		notification.RecipientID(created.StudentID),
		notification.NotificationTypeEnrollment,
		title,
		body,
	)
	if err != nil {
		h.logger.Warn("failed to build enrollment notification",
			"enrollment_id", created.EnrollmentID,
			"error", err,
		)
		return nil
	}

	if h.notificationRepo != nil {
		if err := h.notificationRepo.Save(ctx, notif); err != nil {
			h.logger.Warn("failed to save enrollment notification",
				"enrollment_id", created.EnrollmentID,
				"error", err,
			)
		}
	}

	if h.sender != nil {
		if err := h.sender.Send(ctx, notif); err != nil {
			h.logger.Warn("failed to send enrollment notification",
				"enrollment_id", created.EnrollmentID,
				"error", err,
			)
		}
	}

	return nil
}

// EventType возвращает тип события, который обрабатывает этот handler.
func (h *OnEnrollmentCreatedHandler) EventType() shared.EventType {
	return shared.EventEnrollmentCreated
}
