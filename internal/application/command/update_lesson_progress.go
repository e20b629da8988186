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
// UPDATE LESSON PROGRESS COMMAND
// Records video watch time reported by the player and rolls the change up
// into the owning enrollment.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateLessonProgressCommand contains one watch-time report from the player.
type UpdateLessonProgressCommand struct {
	// EnrollmentID is the enrollment being updated.
	EnrollmentID string

	// StudentID is the student making the request. Must own the enrollment.
	StudentID string

	// LessonID is the lesson being watched.
	LessonID string

	// CurrentTime is the player position in seconds.
	CurrentTime float64

	// Duration is the lesson duration in seconds. Zero keeps the stored value.
	Duration int

	// Absolute selects position semantics: true means CurrentTime is the
	// player position, false means it is a watched increment.
	Absolute bool

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c UpdateLessonProgressCommand) Validate() error {
	if c.EnrollmentID == "" {
		return errors.New("update_lesson_progress: enrollment_id is required")
	}
	if c.StudentID == "" {
		return errors.New("update_lesson_progress: student_id is required")
	}
	if c.LessonID == "" {
		return errors.New("update_lesson_progress: lesson_id is required")
	}
	if c.Duration < 0 {
		return errors.New("update_lesson_progress: duration must be non-negative")
	}
	return nil
}

// UpdateLessonProgressResult contains the state after the update.
type UpdateLessonProgressResult struct {
	// EnrollmentID is the updated enrollment.
	EnrollmentID string

	// WatchTime is the recorded watch time in seconds.
	WatchTime int

	// LessonCompleted reports whether the lesson is complete after the update.
	LessonCompleted bool

	// NewlyCompleted reports whether this update completed the lesson.
	NewlyCompleted bool

	// CourseCompleted reports whether this update completed the whole course.
	CourseCompleted bool

	// ProgressPercent is the enrollment roll-up after the update.
	ProgressPercent float64

	// AlreadyFinished reports that the enrollment no longer accepts progress
	// and the update was skipped. The rest of the result reflects stored state.
	AlreadyFinished bool
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// UpdateLessonProgressHandler handles the UpdateLessonProgressCommand.
type UpdateLessonProgressHandler struct {
	enrollmentRepo enrollment.Repository
	cache          enrollment.Cache
	eventPublisher shared.EventPublisher
	log            *logger.Logger
}

// NewUpdateLessonProgressHandler creates a new UpdateLessonProgressHandler.
func NewUpdateLessonProgressHandler(
	enrollmentRepo enrollment.Repository,
	cache enrollment.Cache,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *UpdateLessonProgressHandler {
	if log == nil {
		log = logger.Default()
	}
	return &UpdateLessonProgressHandler{
		enrollmentRepo: enrollmentRepo,
		cache:          cache,
		eventPublisher: eventPublisher,
		log:            log.With(logger.Component("update_lesson_progress")),
	}
}

// Handle executes the update lesson progress command.
//
// Reports against an enrollment that is no longer active are not an error:
// the player keeps sending position updates after the last lesson completes,
// so the handler answers with the stored state and changes nothing.
func (h *UpdateLessonProgressHandler) Handle(ctx context.Context, cmd UpdateLessonProgressCommand) (*UpdateLessonProgressResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("update_lesson_progress: validation failed: %w", err)
	}

	enr, err := h.enrollmentRepo.GetByID(ctx, cmd.EnrollmentID, enrollment.GetOptions{IncludeProgress: true})
	if err != nil {
		return nil, fmt.Errorf("update_lesson_progress: %w", err)
	}
	if enr.IsDeleted() {
		return nil, enrollment.ErrEnrollmentNotFound
	}
	if !enr.IsOwnedBy(cmd.StudentID) {
		return nil, shared.ErrEnrollmentNotOwned
	}

	entry, err := enr.FindLessonProgress(cmd.LessonID)
	if err != nil {
		return nil, fmt.Errorf("update_lesson_progress: %w", err)
	}

	if !enr.Status.AcceptsProgress() {
		return &UpdateLessonProgressResult{
			EnrollmentID:    enr.ID,
			WatchTime:       entry.WatchTime,
			LessonCompleted: entry.Completed,
			ProgressPercent: enr.ProgressPercent.Float64(),
			AlreadyFinished: true,
		}, nil
	}

	if err := entry.UpdateWatchProgress(cmd.CurrentTime, cmd.Duration, cmd.Absolute); err != nil {
		return nil, fmt.Errorf("update_lesson_progress: %w", err)
	}

	updated := enr.UpdateProgressEntry(entry)

	if err := h.enrollmentRepo.Upsert(ctx, enr); err != nil {
		return nil, fmt.Errorf("update_lesson_progress: save enrollment: %w", err)
	}
	h.invalidateCache(ctx, enr.ID)

	h.publishEvents(enr, entry, cmd, updated)

	return &UpdateLessonProgressResult{
		EnrollmentID:    enr.ID,
		WatchTime:       entry.WatchTime,
		LessonCompleted: entry.Completed,
		NewlyCompleted:  updated.UnitCompleted,
		CourseCompleted: updated.CourseCompleted,
		ProgressPercent: enr.ProgressPercent.Float64(),
	}, nil
}

func (h *UpdateLessonProgressHandler) invalidateCache(ctx context.Context, enrollmentID string) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(ctx, enrollmentID); err != nil {
		h.log.Warn("failed to invalidate enrollment cache",
			logger.EnrollmentID(enrollmentID),
			logger.Err(err))
	}
}

func (h *UpdateLessonProgressHandler) publishEvents(
	enr *enrollment.Enrollment,
	entry *enrollment.ProgressEntry,
	cmd UpdateLessonProgressCommand,
	updated enrollment.UpdateResult,
) {
	events := make([]shared.Event, 0, 2)

	if updated.UnitCompleted {
		event := shared.NewLearningUnitCompletedEvent(
			uuid.NewString(), enr.ID, enr.StudentID,
			entry.UnitID(), string(entry.UnitType),
			enr.ProgressPercent.Float64(),
		)
		if cmd.CorrelationID != "" {
			event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		events = append(events, event)
	}
	if updated.CourseCompleted {
		event := shared.NewCourseCompletedEvent(
			uuid.NewString(), enr.ID, enr.StudentID, enr.CourseID, *enr.CompletedAt,
		)
		if cmd.CorrelationID != "" {
			event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		events = append(events, event)
	}

	for _, event := range events {
		if err := h.eventPublisher.Publish(event); err != nil {
			h.log.Error("failed to publish progress event",
				logger.EnrollmentID(enr.ID),
				logger.String("event_type", string(event.EventType())),
				logger.Err(err))
		}
	}
}
