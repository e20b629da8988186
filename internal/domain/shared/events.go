// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"context"
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Inbound commerce events
	EventOrderCompleted EventType = "order.completed"

	// Enrollment events
	EventEnrollmentCreated EventType = "enrollment.created"
	EventEnrollmentDropped EventType = "enrollment.dropped"
	EventEnrollmentDeleted EventType = "enrollment.deleted"
	EventCourseCompleted   EventType = "enrollment.course_completed"

	// Progress events
	EventLessonProgressUpdated EventType = "progress.lesson_updated"
	EventLearningUnitCompleted EventType = "progress.unit_completed"
	EventQuizAttemptRegistered EventType = "progress.quiz_attempt"

	// Notification events
	EventNotificationRequested EventType = "notification.requested"
	EventNotificationSent      EventType = "notification.sent"
	EventNotificationFailed    EventType = "notification.failed"

	// System events
	EventCertificateRequested EventType = "system.certificate_requested"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// EventID returns the unique identifier of this event occurrence.
// Used by the already-processed store to deduplicate redeliveries.
func (e BaseEvent) EventID() string {
	return e.ID
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventID string, eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		ID:          eventID,
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Inbound Commerce Events
// ═══════════════════════════════════════════════════════════════════════════

// OrderItem is one purchased course inside an order.
type OrderItem struct {
	CourseID string  `json:"course_id"`
	Price    float64 `json:"price"`
}

// OrderCompletedEvent arrives from the commerce system when a purchase succeeds.
// One order may contain several course line items for the same buyer.
type OrderCompletedEvent struct {
	BaseEvent
	OrderID  string      `json:"order_id"`
	UserID   string      `json:"user_id"`
	Amount   float64     `json:"amount"`
	Currency string      `json:"currency"`
	Items    []OrderItem `json:"items"`
}

// Payload implements Event interface.
func (e OrderCompletedEvent) Payload() map[string]interface{} {
	items := make([]map[string]interface{}, 0, len(e.Items))
	for _, item := range e.Items {
		items = append(items, map[string]interface{}{
			"course_id": item.CourseID,
			"price":     item.Price,
		})
	}
	return map[string]interface{}{
		"order_id": e.OrderID,
		"user_id":  e.UserID,
		"amount":   e.Amount,
		"currency": e.Currency,
		"items":    items,
	}
}

// NewOrderCompletedEvent creates a new OrderCompletedEvent.
func NewOrderCompletedEvent(eventID, orderID, userID string, amount float64, currency string, items []OrderItem) OrderCompletedEvent {
	return OrderCompletedEvent{
		BaseEvent: NewBaseEvent(eventID, EventOrderCompleted, orderID),
		OrderID:   orderID,
		UserID:    userID,
		Amount:    amount,
		Currency:  currency,
		Items:     items,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Enrollment Events
// ═══════════════════════════════════════════════════════════════════════════

// EnrollmentCreatedEvent is emitted once per successfully provisioned enrollment.
// Delivery of this event is critical: downstream services build their own
// read models from it.
type EnrollmentCreatedEvent struct {
	BaseEvent
	EnrollmentID string `json:"enrollment_id"`
	StudentID    string `json:"student_id"`
	CourseID     string `json:"course_id"`
	OrderID      string `json:"order_id"`
	InstructorID string `json:"instructor_id"`
	TotalUnits   int    `json:"total_units"`
}

// Payload implements Event interface.
func (e EnrollmentCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"enrollment_id": e.EnrollmentID,
		"student_id":    e.StudentID,
		"course_id":     e.CourseID,
		"order_id":      e.OrderID,
		"instructor_id": e.InstructorID,
		"total_units":   e.TotalUnits,
	}
}

// NewEnrollmentCreatedEvent creates a new EnrollmentCreatedEvent.
func NewEnrollmentCreatedEvent(eventID, enrollmentID, studentID, courseID, orderID, instructorID string, totalUnits int) EnrollmentCreatedEvent {
	return EnrollmentCreatedEvent{
		BaseEvent:    NewBaseEvent(eventID, EventEnrollmentCreated, enrollmentID),
		EnrollmentID: enrollmentID,
		StudentID:    studentID,
		CourseID:     courseID,
		OrderID:      orderID,
		InstructorID: instructorID,
		TotalUnits:   totalUnits,
	}
}

// EnrollmentDroppedEvent is emitted when a student drops an enrollment.
type EnrollmentDroppedEvent struct {
	BaseEvent
	EnrollmentID string `json:"enrollment_id"`
	StudentID    string `json:"student_id"`
	CourseID     string `json:"course_id"`
}

// Payload implements Event interface.
func (e EnrollmentDroppedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"enrollment_id": e.EnrollmentID,
		"student_id":    e.StudentID,
		"course_id":     e.CourseID,
	}
}

// NewEnrollmentDroppedEvent creates a new EnrollmentDroppedEvent.
func NewEnrollmentDroppedEvent(eventID, enrollmentID, studentID, courseID string) EnrollmentDroppedEvent {
	return EnrollmentDroppedEvent{
		BaseEvent:    NewBaseEvent(eventID, EventEnrollmentDropped, enrollmentID),
		EnrollmentID: enrollmentID,
		StudentID:    studentID,
		CourseID:     courseID,
	}
}

// CourseCompletedEvent is emitted exactly once when the roll-up reaches 100%.
type CourseCompletedEvent struct {
	BaseEvent
	EnrollmentID string    `json:"enrollment_id"`
	StudentID    string    `json:"student_id"`
	CourseID     string    `json:"course_id"`
	CompletedAt  time.Time `json:"completed_at"`
}

// Payload implements Event interface.
func (e CourseCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"enrollment_id": e.EnrollmentID,
		"student_id":    e.StudentID,
		"course_id":     e.CourseID,
		"completed_at":  e.CompletedAt.Format(time.RFC3339),
	}
}

// NewCourseCompletedEvent creates a new CourseCompletedEvent.
func NewCourseCompletedEvent(eventID, enrollmentID, studentID, courseID string, completedAt time.Time) CourseCompletedEvent {
	return CourseCompletedEvent{
		BaseEvent:    NewBaseEvent(eventID, EventCourseCompleted, enrollmentID),
		EnrollmentID: enrollmentID,
		StudentID:    studentID,
		CourseID:     courseID,
		CompletedAt:  completedAt,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// LearningUnitCompletedEvent is emitted when a single lesson or quiz is
// completed for the first time within an enrollment.
type LearningUnitCompletedEvent struct {
	BaseEvent
	EnrollmentID    string  `json:"enrollment_id"`
	StudentID       string  `json:"student_id"`
	UnitID          string  `json:"unit_id"`
	UnitType        string  `json:"unit_type"` // "lesson" or "quiz"
	ProgressPercent float64 `json:"progress_percent"`
}

// Payload implements Event interface.
func (e LearningUnitCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"enrollment_id":    e.EnrollmentID,
		"student_id":       e.StudentID,
		"unit_id":          e.UnitID,
		"unit_type":        e.UnitType,
		"progress_percent": e.ProgressPercent,
	}
}

// NewLearningUnitCompletedEvent creates a new LearningUnitCompletedEvent.
func NewLearningUnitCompletedEvent(eventID, enrollmentID, studentID, unitID, unitType string, percent float64) LearningUnitCompletedEvent {
	return LearningUnitCompletedEvent{
		BaseEvent:       NewBaseEvent(eventID, EventLearningUnitCompleted, enrollmentID),
		EnrollmentID:    enrollmentID,
		StudentID:       studentID,
		UnitID:          unitID,
		UnitType:        unitType,
		ProgressPercent: percent,
	}
}

// QuizAttemptRegisteredEvent is emitted after every graded quiz submission.
type QuizAttemptRegisteredEvent struct {
	BaseEvent
	EnrollmentID string `json:"enrollment_id"`
	StudentID    string `json:"student_id"`
	QuizID       string `json:"quiz_id"`
	Score        int    `json:"score"`
	Passed       bool   `json:"passed"`
	Attempt      int    `json:"attempt"`
}

// Payload implements Event interface.
func (e QuizAttemptRegisteredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"enrollment_id": e.EnrollmentID,
		"student_id":    e.StudentID,
		"quiz_id":       e.QuizID,
		"score":         e.Score,
		"passed":        e.Passed,
		"attempt":       e.Attempt,
	}
}

// NewQuizAttemptRegisteredEvent creates a new QuizAttemptRegisteredEvent.
func NewQuizAttemptRegisteredEvent(eventID, enrollmentID, studentID, quizID string, score int, passed bool, attempt int) QuizAttemptRegisteredEvent {
	return QuizAttemptRegisteredEvent{
		BaseEvent:    NewBaseEvent(eventID, EventQuizAttemptRegistered, enrollmentID),
		EnrollmentID: enrollmentID,
		StudentID:    studentID,
		QuizID:       quizID,
		Score:        score,
		Passed:       passed,
		Attempt:      attempt,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Notification Events
// ═══════════════════════════════════════════════════════════════════════════

// NotificationRequestedEvent asks the notification subsystem to deliver an
// in-app message. Delivery is best effort: losing one of these is acceptable.
type NotificationRequestedEvent struct {
	BaseEvent
	RecipientID string `json:"recipient_id"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	Kind        string `json:"kind"` // e.g., "enrollment", "completion", "milestone"
}

// Payload implements Event interface.
func (e NotificationRequestedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"recipient_id": e.RecipientID,
		"title":        e.Title,
		"body":         e.Body,
		"kind":         e.Kind,
	}
}

// NewNotificationRequestedEvent creates a new NotificationRequestedEvent.
func NewNotificationRequestedEvent(eventID, recipientID, title, body, kind string) NotificationRequestedEvent {
	return NotificationRequestedEvent{
		BaseEvent:   NewBaseEvent(eventID, EventNotificationRequested, recipientID),
		RecipientID: recipientID,
		Title:       title,
		Body:        body,
		Kind:        kind,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
// The envelope is the versioned wire record: {eventId, eventType, timestamp, payload}.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// ProcessedEventStore records which inbound events have already been handled.
// It is checked once per inbound event, before any per-item work runs, so that
// redelivery of a whole event is a no-op.
type ProcessedEventStore interface {
	// IsProcessed reports whether the event has been handled before.
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// MarkAsProcessed records the event as handled.
	MarkAsProcessed(ctx context.Context, eventID string) error
}
