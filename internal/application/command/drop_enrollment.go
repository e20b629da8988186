package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/edulearn-hub/enrollment-hub/internal/domain/enrollment"
	"github.com/edulearn-hub/enrollment-hub/internal/domain/shared"
	"github.com/edulearn-hub/enrollment-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// DROP ENROLLMENT COMMAND
// Explicit student action: leave a course. Progress entries are kept so a
// later re-enrollment can resume where the student left off.
// ══════════════════════════════════════════════════════════════════════════════

// DropEnrollmentCommand contains the data to drop an enrollment.
type DropEnrollmentCommand struct {
	// EnrollmentID is the enrollment to drop.
	EnrollmentID string

	// StudentID is the student making the request. Must own the enrollment.
	StudentID string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c DropEnrollmentCommand) Validate() error {
	if c.EnrollmentID == "" {
		return errors.New("drop_enrollment: enrollment_id is required")
	}
	if c.StudentID == "" {
		return errors.New("drop_enrollment: student_id is required")
	}
	return nil
}

// DropEnrollmentResult contains the state after the drop.
type DropEnrollmentResult struct {
	// EnrollmentID is the dropped enrollment.
	EnrollmentID string

	// Status is the enrollment status after the drop.
	Status enrollment.Status
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// DropEnrollmentHandler handles the DropEnrollmentCommand.
type DropEnrollmentHandler struct {
	enrollmentRepo enrollment.Repository
	cache          enrollment.Cache
	eventPublisher shared.EventPublisher
	log            *logger.Logger
}

// NewDropEnrollmentHandler creates a new DropEnrollmentHandler.
func NewDropEnrollmentHandler(
	enrollmentRepo enrollment.Repository,
	cache enrollment.Cache,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *DropEnrollmentHandler {
	if log == nil {
		log = logger.Default()
	}
	return &DropEnrollmentHandler{
		enrollmentRepo: enrollmentRepo,
		cache:          cache,
		eventPublisher: eventPublisher,
		log:            log.With(logger.Component("drop_enrollment")),
	}
}

// Handle executes the drop enrollment command.
func (h *DropEnrollmentHandler) Handle(ctx context.Context, cmd DropEnrollmentCommand) (*DropEnrollmentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("drop_enrollment: validation failed: %w", err)
	}

	enr, err := h.enrollmentRepo.GetByID(ctx, cmd.EnrollmentID, enrollment.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("drop_enrollment: %w", err)
	}
	if enr.IsDeleted() {
		return nil, enrollment.ErrEnrollmentNotFound
	}
	if !enr.IsOwnedBy(cmd.StudentID) {
		return nil, shared.ErrEnrollmentNotOwned
	}

	if err := enr.Drop(); err != nil {
		return nil, fmt.Errorf("drop_enrollment: %w", err)
	}

	if err := h.enrollmentRepo.Upsert(ctx, enr); err != nil {
		return nil, fmt.Errorf("drop_enrollment: save enrollment: %w", err)
	}
	if h.cache != nil {
		if err := h.cache.Invalidate(ctx, enr.ID); err != nil {
			h.log.Warn("failed to invalidate enrollment cache",
				logger.EnrollmentID(enr.ID),
				logger.Err(err))
		}
	}

	event := shared.NewEnrollmentDroppedEvent(uuid.NewString(), enr.ID, enr.StudentID, enr.CourseID)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	if err := h.eventPublisher.Publish(event); err != nil {
		h.log.Error("failed to publish enrollment.dropped",
			logger.EnrollmentID(enr.ID),
			logger.Err(err))
	}

	return &DropEnrollmentResult{
		EnrollmentID: enr.ID,
		Status:       enr.Status,
	}, nil
}
