// Package notification содержит доменную модель внутрисервисных (in-app)
// уведомлений EduLearn. Уведомления здесь best-effort: потеря одного
// уведомления допустима и никогда не ломает основной сценарий.
package notification

import (
	"context"
	"errors"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// NotificationID представляет уникальный идентификатор уведомления.
type NotificationID string

// IsValid проверяет, что ID не пустой.
func (id NotificationID) IsValid() bool {
	return len(id) > 0
}

// String возвращает строковое представление ID.
func (id NotificationID) String() string {
	return string(id)
}

// RecipientID представляет идентификатор получателя уведомления.
type RecipientID string

// IsValid проверяет, что ID получателя не пустой.
func (id RecipientID) IsValid() bool {
	return len(id) > 0
}

// String возвращает строковое представление ID получателя.
func (id RecipientID) String() string {
	return string(id)
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION TYPE
// ══════════════════════════════════════════════════════════════════════════════

// NotificationType определяет тип уведомления.
type NotificationType string

const (
	// NotificationTypeEnrollment - студент зачислен на курс.
	// "🎓 Ты зачислен на курс Go Fundamentals. Вперёд!"
	NotificationTypeEnrollment NotificationType = "enrollment"

	// NotificationTypeLessonMilestone - завершён урок.
	// "✅ Урок пройден! Прогресс курса: 45%"
	NotificationTypeLessonMilestone NotificationType = "lesson_milestone"

	// NotificationTypeQuizPassed - квиз пройден.
	// "🎯 Квиз пройден с результатом 85%"
	NotificationTypeQuizPassed NotificationType = "quiz_passed"

	// NotificationTypeQuizPerfect - квиз пройден на 100%.
	// "🏅 Идеальный результат! 100% с первой попытки"
	NotificationTypeQuizPerfect NotificationType = "quiz_perfect"

	// NotificationTypeCourseCompleted - курс завершён целиком.
	// "🏆 Поздравляем! Курс завершён, сертификат уже готовится"
	NotificationTypeCourseCompleted NotificationType = "course_completed"

	// NotificationTypeCertificateReady - сертификат готов к скачиванию.
	// "📜 Твой сертификат готов!"
	NotificationTypeCertificateReady NotificationType = "certificate_ready"
)

// IsValid проверяет, что тип уведомления корректен.
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationTypeEnrollment, NotificationTypeLessonMilestone,
		NotificationTypeQuizPassed, NotificationTypeQuizPerfect,
		NotificationTypeCourseCompleted, NotificationTypeCertificateReady:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: NOTIFICATION
// ══════════════════════════════════════════════════════════════════════════════

// Notification - одно in-app уведомление студенту.
type Notification struct {
	// ID - уникальный идентификатор.
	ID NotificationID

	// RecipientID - получатель.
	RecipientID RecipientID

	// Type - тип уведомления.
	Type NotificationType

	// Title - заголовок.
	Title string

	// Body - текст уведомления.
	Body string

	// Read - прочитано ли уведомление.
	Read bool

	// CreatedAt - время создания.
	CreatedAt time.Time
}

// Доменные ошибки.
var (
	// ErrInvalidNotification - не хватает обязательных полей.
	ErrInvalidNotification = errors.New("invalid notification: id, recipient and type are required")

	// ErrNotificationNotFound - уведомление не найдено.
	ErrNotificationNotFound = errors.New("notification not found")
)

// New создаёт новое непрочитанное уведомление.
func New(id NotificationID, recipient RecipientID, notifType NotificationType, title, body string) (*Notification, error) {
	if !id.IsValid() || !recipient.IsValid() || !notifType.IsValid() {
		return nil, ErrInvalidNotification
	}

	return &Notification{
		ID:          id,
		RecipientID: recipient,
		Type:        notifType,
		Title:       title,
		Body:        body,
		Read:        false,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// MarkRead помечает уведомление прочитанным.
func (n *Notification) MarkRead() {
	n.Read = true
}

// ══════════════════════════════════════════════════════════════════════════════
// INTERFACES
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет хранилище уведомлений.
type Repository interface {
	// Save сохраняет уведомление.
	Save(ctx context.Context, n *Notification) error

	// ListByRecipient возвращает уведомления получателя (новые первыми).
	ListByRecipient(ctx context.Context, recipient RecipientID, limit int) ([]*Notification, error)

	// MarkRead помечает уведомление прочитанным.
	MarkRead(ctx context.Context, id NotificationID) error
}

// Sender доставляет уведомление получателю. Доставка best-effort:
// ошибка логируется вызывающим кодом и не прерывает основной сценарий.
type Sender interface {
	Send(ctx context.Context, n *Notification) error
}
