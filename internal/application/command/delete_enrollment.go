package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/edulearn-hub/enrollment-hub/internal/domain/enrollment"
	"github.com/edulearn-hub/enrollment-hub/internal/domain/shared"
	"github.com/edulearn-hub/enrollment-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// DELETE ENROLLMENT COMMAND
// Administrative soft delete. The row and its progress entries stay in the
// database with a deletion marker; reads filter them out.
// ══════════════════════════════════════════════════════════════════════════════

// DeleteEnrollmentCommand contains the data to soft-delete an enrollment.
type DeleteEnrollmentCommand struct {
	// EnrollmentID is the enrollment to delete.
	EnrollmentID string

	// RequestedBy is the administrator performing the deletion.
	RequestedBy string

	// Reason is kept in the audit log.
	Reason string
}

// Validate validates the command.
func (c DeleteEnrollmentCommand) Validate() error {
	if c.EnrollmentID == "" {
		return errors.New("delete_enrollment: enrollment_id is required")
	}
	if c.RequestedBy == "" {
		return errors.New("delete_enrollment: requested_by is required")
	}
	return nil
}

// DeleteEnrollmentHandler handles the DeleteEnrollmentCommand.
type DeleteEnrollmentHandler struct {
	enrollmentRepo enrollment.Repository
	cache          enrollment.Cache
	log            *logger.Logger
}

// NewDeleteEnrollmentHandler creates a new DeleteEnrollmentHandler.
func NewDeleteEnrollmentHandler(
	enrollmentRepo enrollment.Repository,
	cache enrollment.Cache,
	log *logger.Logger,
) *DeleteEnrollmentHandler {
	if log == nil {
		log = logger.Default()
	}
	return &DeleteEnrollmentHandler{
		enrollmentRepo: enrollmentRepo,
		cache:          cache,
		log:            log.With(logger.Component("delete_enrollment")),
	}
}

// Handle executes the delete enrollment command.
func (h *DeleteEnrollmentHandler) Handle(ctx context.Context, cmd DeleteEnrollmentCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("delete_enrollment: validation failed: %w", err)
	}

	if err := h.enrollmentRepo.Remove(ctx, cmd.EnrollmentID); err != nil {
		if errors.Is(err, enrollment.ErrEnrollmentNotFound) || shared.IsNotFound(err) {
			return enrollment.ErrEnrollmentNotFound
		}
		return fmt.Errorf("delete_enrollment: %w", err)
	}

	if h.cache != nil {
		if err := h.cache.Invalidate(ctx, cmd.EnrollmentID); err != nil {
			h.log.Warn("failed to invalidate enrollment cache",
				logger.EnrollmentID(cmd.EnrollmentID),
				logger.Err(err))
		}
	}

	h.log.Info("enrollment soft-deleted",
		logger.EnrollmentID(cmd.EnrollmentID),
		logger.String("requested_by", cmd.RequestedBy),
		logger.String("reason", cmd.Reason))

	return nil
}
