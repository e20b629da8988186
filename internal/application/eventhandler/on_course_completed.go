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
// ON COURSE COMPLETED HANDLER
// Финал пути студента на курсе. Два следствия с разной критичностью:
// 1. Запрос сертификата - критичный: провал возвращается брокеру на retry.
// 2. Поздравительное уведомление - best-effort: провал логируется.
// ═══════════════════════════════════════════════════════════════════════════

// CertificateRequester запрашивает выпуск сертификата во внешнем сервисе.
type CertificateRequester interface {
	RequestCertificate(ctx context.Context, enrollmentID, studentID, courseID string) error
}

// OnCourseCompletedHandler обрабатывает событие завершённого курса.
type OnCourseCompletedHandler struct {
	certificates     CertificateRequester
	notificationRepo notification.Repository
	sender           notification.Sender
	logger           *slog.Logger
}

// NewOnCourseCompletedHandler создаёт новый обработчик.
func NewOnCourseCompletedHandler(
	certificates CertificateRequester,
	notificationRepo notification.Repository,
	sender notification.Sender,
	logger *slog.Logger,
) *OnCourseCompletedHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &OnCourseCompletedHandler{
		certificates:     certificates,
		notificationRepo: notificationRepo,
		sender:           sender,
		logger:           logger.With("handler", "on_course_completed"),
	}
}

// Handle обрабатывает событие завершённого курса.
// Реализует интерфейс shared.EventHandler.
func (h *OnCourseCompletedHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	completed, ok := event.(shared.CourseCompletedEvent)
	if !ok {
		h.logger.Warn("received non-CourseCompletedEvent",
			"event_type", event.EventType(),
		)
		return nil
	}

	h.logger.Info("processing course completed event",
		"enrollment_id", completed.EnrollmentID,
		"student_id", completed.StudentID,
		"course_id", completed.CourseID,
	)

	// Сертификат критичен: ошибка уходит брокеру, событие доставится повторно.
	if h.certificates != nil {
		err := h.certificates.RequestCertificate(ctx,
			completed.EnrollmentID, completed.StudentID, completed.CourseID)
		if err != nil {
			return fmt.Errorf("request certificate for enrollment %s: %w", completed.EnrollmentID, err)
		}
	}

	h.sendCongratulation(ctx, completed)

	return nil
}

// sendCongratulation отправляет поздравительное уведомление (best-effort).
func (h *OnCourseCompletedHandler) sendCongratulation(ctx context.Context, completed shared.CourseCompletedEvent) {
	notif, err := notification.New(
		notification.NotificationID(uuid.NewString()),
		notification.RecipientID(completed.StudentID),
		notification.NotificationTypeCourseCompleted,
		"Курс завершён!",
		"Поздравляем! Все уроки и квизы пройдены, сертификат уже готовится.",
	)
	if err != nil {
		h.logger.Warn("failed to build completion notification",
			"enrollment_id", completed.EnrollmentID,
			"error", err,
		)
		return
	}

	if h.notificationRepo != nil {
		if err := h.notificationRepo.Save(ctx, notif); err != nil {
			h.logger.Warn("failed to save completion notification",
				"enrollment_id", completed.EnrollmentID,
				"error", err,
			)
		}
	}

	if h.sender != nil {
		if err := h.sender.Send(ctx, notif); err != nil {
			h.logger.Warn("failed to send completion notification",
				"enrollment_id", completed.EnrollmentID,
				"error", err,
			)
		}
	}
}

// EventType возвращает тип события, который обрабатывает этот handler.
func (h *OnCourseCompletedHandler) EventType() shared.EventType {
	return shared.EventCourseCompleted
}
