// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/edulearn-hub/enrollment-hub/internal/domain/course"
	"github.com/edulearn-hub/enrollment-hub/internal/domain/enrollment"
	"github.com/edulearn-hub/enrollment-hub/internal/domain/shared"
	"github.com/edulearn-hub/enrollment-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROVISION ENROLLMENT COMMAND
// Turns a completed order into enrollments: one per purchased course, each
// seeded with a progress entry per learning unit. Items are processed
// sequentially; a failed item is logged and skipped, the rest of the order
// still provisions.
// ══════════════════════════════════════════════════════════════════════════════

// ProvisionItem is one purchased course to provision.
type ProvisionItem struct {
	// CourseID is the purchased course.
	CourseID string

	// Price is the line-item price, for audit logging only.
	Price float64
}

// ProvisionEnrollmentCommand contains the data of one completed order.
type ProvisionEnrollmentCommand struct {
	// OrderID is the commerce transaction that paid for the courses.
	OrderID string

	// StudentID is the buyer.
	StudentID string

	// Items are the purchased courses. One enrollment per item.
	Items []ProvisionItem

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c ProvisionEnrollmentCommand) Validate() error {
	if c.OrderID == "" {
		return errors.New("provision_enrollment: order_id is required")
	}
	if c.StudentID == "" {
		return errors.New("provision_enrollment: student_id is required")
	}
	if len(c.Items) == 0 {
		return errors.New("provision_enrollment: at least one item is required")
	}
	for i, item := range c.Items {
		if item.CourseID == "" {
			return fmt.Errorf("provision_enrollment: item %d: course_id is required", i)
		}
	}
	return nil
}

// ProvisionEnrollmentResult summarizes what happened to each item of the order.
type ProvisionEnrollmentResult struct {
	// OrderID is the processed order.
	OrderID string

	// Provisioned is the number of newly created enrollments.
	Provisioned int

	// Skipped is the number of items that already had an enrollment.
	Skipped int

	// Failed is the number of items that could not be provisioned.
	Failed int

	// EnrollmentIDs are the IDs of the newly created enrollments,
	// in item order.
	EnrollmentIDs []string

	// Errors maps course ID to the failure for that item.
	Errors map[string]error
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ProvisionEnrollmentHandler handles the ProvisionEnrollmentCommand.
type ProvisionEnrollmentHandler struct {
	enrollmentRepo enrollment.Repository
	courseRepo     course.Repository
	eventPublisher shared.EventPublisher
	log            *logger.Logger
}

// NewProvisionEnrollmentHandler creates a new ProvisionEnrollmentHandler.
func NewProvisionEnrollmentHandler(
	enrollmentRepo enrollment.Repository,
	courseRepo course.Repository,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *ProvisionEnrollmentHandler {
	if log == nil {
		log = logger.Default()
	}
	return &ProvisionEnrollmentHandler{
		enrollmentRepo: enrollmentRepo,
		courseRepo:     courseRepo,
		eventPublisher: eventPublisher,
		log:            log.With(logger.Component("provision_enrollment")),
	}
}

// Handle executes the provision enrollment command.
//
// Idempotency is per line item: an existing enrollment for the
// (student, course) pair means the item was provisioned by an earlier
// delivery and is skipped without touching anything.
func (h *ProvisionEnrollmentHandler) Handle(ctx context.Context, cmd ProvisionEnrollmentCommand) (*ProvisionEnrollmentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("provision_enrollment: validation failed: %w", err)
	}

	result := &ProvisionEnrollmentResult{
		OrderID:       cmd.OrderID,
		EnrollmentIDs: make([]string, 0, len(cmd.Items)),
		Errors:        make(map[string]error),
	}

	for _, item := range cmd.Items {
		enrollmentID, err := h.provisionItem(ctx, cmd, item)
		switch {
		case errors.Is(err, enrollment.ErrEnrollmentExists):
			result.Skipped++
			h.log.Info("enrollment already provisioned, skipping item",
				logger.OrderID(cmd.OrderID),
				logger.StudentID(cmd.StudentID),
				logger.CourseID(item.CourseID))
		case err != nil:
			result.Failed++
			result.Errors[item.CourseID] = err
			h.log.Error("failed to provision item",
				logger.OrderID(cmd.OrderID),
				logger.StudentID(cmd.StudentID),
				logger.CourseID(item.CourseID),
				logger.Err(err))
		default:
			result.Provisioned++
			result.EnrollmentIDs = append(result.EnrollmentIDs, enrollmentID)
		}
	}

	h.log.Info("order provisioned",
		logger.OrderID(cmd.OrderID),
		logger.Int("provisioned", result.Provisioned),
		logger.Int("skipped", result.Skipped),
		logger.Int("failed", result.Failed))

	return result, nil
}

// provisionItem provisions a single course of the order.
func (h *ProvisionEnrollmentHandler) provisionItem(ctx context.Context, cmd ProvisionEnrollmentCommand, item ProvisionItem) (string, error) {
	// Item-level idempotency: the (student, course) pair is unique.
	_, err := h.enrollmentRepo.GetByStudentAndCourse(ctx, cmd.StudentID, item.CourseID)
	if err == nil {
		return "", enrollment.ErrEnrollmentExists
	}
	if !errors.Is(err, enrollment.ErrEnrollmentNotFound) && !shared.IsNotFound(err) {
		return "", fmt.Errorf("lookup existing enrollment: %w", err)
	}

	crs, err := h.courseRepo.FindByID(ctx, item.CourseID)
	if err != nil {
		return "", fmt.Errorf("load course: %w", err)
	}

	enr, err := enrollment.NewEnrollment(enrollment.NewEnrollmentParams{
		ID:           uuid.NewString(),
		StudentID:    cmd.StudentID,
		CourseID:     item.CourseID,
		OrderID:      cmd.OrderID,
		InstructorID: crs.InstructorID,
	})
	if err != nil {
		return "", fmt.Errorf("create enrollment: %w", err)
	}

	if err := h.seedProgress(enr, crs); err != nil {
		return "", fmt.Errorf("seed progress entries: %w", err)
	}

	if err := h.enrollmentRepo.Upsert(ctx, enr); err != nil {
		// A concurrent delivery may have won the unique-constraint race.
		if errors.Is(err, enrollment.ErrEnrollmentExists) || shared.IsAlreadyExists(err) {
			return "", enrollment.ErrEnrollmentExists
		}
		return "", fmt.Errorf("save enrollment: %w", err)
	}

	// Counter bump is best effort: the enrollment is already durable.
	crs.IncrementEnrollmentCount()
	if err := h.courseRepo.Save(ctx, crs); err != nil {
		h.log.Warn("failed to bump course enrollment count",
			logger.CourseID(crs.ID),
			logger.Err(err))
	}

	event := shared.NewEnrollmentCreatedEvent(
		uuid.NewString(),
		enr.ID,
		enr.StudentID,
		enr.CourseID,
		enr.OrderID,
		enr.InstructorID,
		enr.TotalLearningUnits,
	)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	// Downstream provisioning (welcome notification, projections) hangs off
	// this event, so a publish failure fails the item and the order gets
	// redelivered.
	if err := h.eventPublisher.Publish(event); err != nil {
		return "", fmt.Errorf("publish enrollment.created: %w", err)
	}

	return enr.ID, nil
}

// seedProgress creates one fresh progress entry per learning unit of the
// course: one per lesson, one per section quiz.
func (h *ProvisionEnrollmentHandler) seedProgress(enr *enrollment.Enrollment, crs *course.Course) error {
	for _, lesson := range crs.Lessons {
		entry, err := enrollment.NewLessonProgress(uuid.NewString(), enr.ID, lesson.ID, lesson.DurationSeconds)
		if err != nil {
			return fmt.Errorf("lesson %s: %w", lesson.ID, err)
		}
		enr.UpdateProgressEntry(entry)
	}

	for _, section := range crs.Sections {
		if section.QuizID == "" {
			continue
		}
		entry, err := enrollment.NewQuizProgress(uuid.NewString(), enr.ID, section.QuizID)
		if err != nil {
			return fmt.Errorf("quiz %s: %w", section.QuizID, err)
		}
		enr.UpdateProgressEntry(entry)
	}

	return nil
}
