package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/edulearn-hub/enrollment-hub/internal/domain/enrollment"
	"github.com/edulearn-hub/enrollment-hub/internal/domain/quiz"
	"github.com/edulearn-hub/enrollment-hub/internal/domain/shared"
	"github.com/edulearn-hub/enrollment-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT QUIZ ATTEMPT COMMAND
// Grades one quiz submission and registers the attempt on the enrollment.
// Best attempt wins: a lower later score never replaces a higher earlier one.
// ══════════════════════════════════════════════════════════════════════════════

// SubmitQuizAttemptCommand contains one quiz submission.
type SubmitQuizAttemptCommand struct {
	// EnrollmentID is the enrollment the attempt belongs to.
	EnrollmentID string

	// StudentID is the student making the request. Must own the enrollment.
	StudentID string

	// QuizID is the quiz being attempted.
	QuizID string

	// Answers are the student's answers, keyed by question.
	Answers []quiz.Answer

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c SubmitQuizAttemptCommand) Validate() error {
	if c.EnrollmentID == "" {
		return errors.New("submit_quiz_attempt: enrollment_id is required")
	}
	if c.StudentID == "" {
		return errors.New("submit_quiz_attempt: student_id is required")
	}
	if c.QuizID == "" {
		return errors.New("submit_quiz_attempt: quiz_id is required")
	}
	return nil
}

// SubmitQuizAttemptResult contains the graded attempt and the roll-up after it.
type SubmitQuizAttemptResult struct {
	// EnrollmentID is the updated enrollment.
	EnrollmentID string

	// Score is this attempt's score (0-100).
	Score int

	// BestScore is the best score across all attempts.
	BestScore int

	// Passed reports whether this attempt reached the passing score.
	Passed bool

	// Perfect reports whether every question was answered correctly.
	Perfect bool

	// Attempt is the attempt number, starting at 1.
	Attempt int

	// CorrectCount is the number of correctly answered questions.
	CorrectCount int

	// TotalQuestions is the number of questions in the quiz.
	TotalQuestions int

	// NewlyCompleted reports whether this attempt completed the quiz unit.
	NewlyCompleted bool

	// CourseCompleted reports whether this attempt completed the whole course.
	CourseCompleted bool

	// ProgressPercent is the enrollment roll-up after the attempt.
	ProgressPercent float64
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// SubmitQuizAttemptHandler handles the SubmitQuizAttemptCommand.
type SubmitQuizAttemptHandler struct {
	enrollmentRepo enrollment.Repository
	quizRepo       quiz.Repository
	cache          enrollment.Cache
	eventPublisher shared.EventPublisher
	log            *logger.Logger
}

// NewSubmitQuizAttemptHandler creates a new SubmitQuizAttemptHandler.
func NewSubmitQuizAttemptHandler(
	enrollmentRepo enrollment.Repository,
	quizRepo quiz.Repository,
	cache enrollment.Cache,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *SubmitQuizAttemptHandler {
	if log == nil {
		log = logger.Default()
	}
	return &SubmitQuizAttemptHandler{
		enrollmentRepo: enrollmentRepo,
		quizRepo:       quizRepo,
		cache:          cache,
		eventPublisher: eventPublisher,
		log:            log.With(logger.Component("submit_quiz_attempt")),
	}
}

// Handle executes the submit quiz attempt command.
//
// Unlike watch-time reports, a submission against a non-active enrollment is
// rejected: a deliberate submission to a finished course is a client error,
// not background noise.
func (h *SubmitQuizAttemptHandler) Handle(ctx context.Context, cmd SubmitQuizAttemptCommand) (*SubmitQuizAttemptResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("submit_quiz_attempt: validation failed: %w", err)
	}

	enr, err := h.enrollmentRepo.GetByID(ctx, cmd.EnrollmentID, enrollment.GetOptions{IncludeProgress: true})
	if err != nil {
		return nil, fmt.Errorf("submit_quiz_attempt: %w", err)
	}
	if enr.IsDeleted() {
		return nil, enrollment.ErrEnrollmentNotFound
	}
	if !enr.IsOwnedBy(cmd.StudentID) {
		return nil, shared.ErrEnrollmentNotOwned
	}
	if !enr.Status.AcceptsProgress() {
		return nil, shared.ErrEnrollmentNotActive
	}

	entry, err := enr.FindQuizProgress(cmd.QuizID)
	if err != nil {
		return nil, fmt.Errorf("submit_quiz_attempt: %w", err)
	}

	q, err := h.quizRepo.FindByID(ctx, cmd.QuizID)
	if err != nil {
		return nil, fmt.Errorf("submit_quiz_attempt: load quiz: %w", err)
	}

	graded, err := quiz.Evaluate(q, cmd.Answers)
	if err != nil {
		if errors.Is(err, quiz.ErrUnsupportedQuestionType) {
			return nil, shared.ErrUnsupportedQuestionType
		}
		return nil, fmt.Errorf("submit_quiz_attempt: evaluate: %w", err)
	}

	if err := entry.RegisterQuizAttempt(graded.Score, graded.Passed); err != nil {
		return nil, fmt.Errorf("submit_quiz_attempt: %w", err)
	}

	updated := enr.UpdateProgressEntry(entry)

	if err := h.enrollmentRepo.Upsert(ctx, enr); err != nil {
		return nil, fmt.Errorf("submit_quiz_attempt: save enrollment: %w", err)
	}
	if h.cache != nil {
		if err := h.cache.Invalidate(ctx, enr.ID); err != nil {
			h.log.Warn("failed to invalidate enrollment cache",
				logger.EnrollmentID(enr.ID),
				logger.Err(err))
		}
	}

	h.publishEvents(enr, entry, cmd, graded, updated)

	return &SubmitQuizAttemptResult{
		EnrollmentID:    enr.ID,
		Score:           graded.Score,
		BestScore:       entry.Score,
		Passed:          graded.Passed,
		Perfect:         graded.Perfect,
		Attempt:         entry.Attempts,
		CorrectCount:    graded.CorrectCount,
		TotalQuestions:  graded.TotalQuestions,
		NewlyCompleted:  updated.UnitCompleted,
		CourseCompleted: updated.CourseCompleted,
		ProgressPercent: enr.ProgressPercent.Float64(),
	}, nil
}

func (h *SubmitQuizAttemptHandler) publishEvents(
	enr *enrollment.Enrollment,
	entry *enrollment.ProgressEntry,
	cmd SubmitQuizAttemptCommand,
	graded quiz.Result,
	updated enrollment.UpdateResult,
) {
	events := make([]shared.Event, 0, 3)

	attempt := shared.NewQuizAttemptRegisteredEvent(
		uuid.NewString(), enr.ID, enr.StudentID, cmd.QuizID,
		graded.Score, graded.Passed, entry.Attempts,
	)
	if cmd.CorrelationID != "" {
		attempt.BaseEvent = attempt.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	events = append(events, attempt)

	if updated.UnitCompleted {
		unit := shared.NewLearningUnitCompletedEvent(
			uuid.NewString(), enr.ID, enr.StudentID,
			entry.UnitID(), string(entry.UnitType),
			enr.ProgressPercent.Float64(),
		)
		if cmd.CorrelationID != "" {
			unit.BaseEvent = unit.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		events = append(events, unit)
	}
	if updated.CourseCompleted {
		completed := shared.NewCourseCompletedEvent(
			uuid.NewString(), enr.ID, enr.StudentID, enr.CourseID, *enr.CompletedAt,
		)
		if cmd.CorrelationID != "" {
			completed.BaseEvent = completed.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		events = append(events, completed)
	}

	for _, event := range events {
		if err := h.eventPublisher.Publish(event); err != nil {
			h.log.Error("failed to publish quiz event",
				logger.EnrollmentID(enr.ID),
				logger.String("event_type", string(event.EventType())),
				logger.Err(err))
		}
	}
}
