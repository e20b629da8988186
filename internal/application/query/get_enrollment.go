// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"time"

	"github.com/edulearn-hub/enrollment-hub/internal/domain/enrollment"
	"github.com/edulearn-hub/enrollment-hub/internal/domain/shared"
	"github.com/edulearn-hub/enrollment-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ENROLLMENT QUERY
// Возвращает одно зачисление с прогрессом. Читает через кеш (cache-aside):
// промах идёт в Postgres и прогревает кеш, ошибка кеша - это промах.
// ══════════════════════════════════════════════════════════════════════════════

// GetEnrollmentQuery содержит параметры запроса зачисления.
type GetEnrollmentQuery struct {
	// EnrollmentID - ID запрашиваемого зачисления.
	EnrollmentID string

	// StudentID - студент, делающий запрос. Чужие зачисления не выдаются.
	StudentID string

	// IncludeProgress - включить записи прогресса.
	IncludeProgress bool
}

// Validate проверяет корректность параметров.
func (q *GetEnrollmentQuery) Validate() error {
	if q.EnrollmentID == "" {
		return errors.New("get_enrollment: enrollment_id is required")
	}
	if q.StudentID == "" {
		return errors.New("get_enrollment: student_id is required")
	}
	return nil
}

// ProgressEntryDTO - одна запись прогресса в ответе.
type ProgressEntryDTO struct {
	ID          string     `json:"id"`
	UnitType    string     `json:"unit_type"`
	UnitID      string     `json:"unit_id"`
	WatchTime   int        `json:"watch_time,omitempty"`
	Duration    int        `json:"duration,omitempty"`
	Score       int        `json:"score,omitempty"`
	Attempts    int        `json:"attempts,omitempty"`
	Passed      bool       `json:"passed,omitempty"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// EnrollmentDTO - зачисление в ответе.
type EnrollmentDTO struct {
	ID                     string             `json:"id"`
	StudentID              string             `json:"student_id"`
	CourseID               string             `json:"course_id"`
	OrderID                string             `json:"order_id"`
	InstructorID           string             `json:"instructor_id,omitempty"`
	Status                 string             `json:"status"`
	ProgressPercent        float64            `json:"progress_percent"`
	TotalLearningUnits     int                `json:"total_learning_units"`
	CompletedLearningUnits int                `json:"completed_learning_units"`
	EnrolledAt             time.Time          `json:"enrolled_at"`
	CompletedAt            *time.Time         `json:"completed_at,omitempty"`
	Progress               []ProgressEntryDTO `json:"progress,omitempty"`
}

// NewEnrollmentDTO собирает DTO из агрегата.
func NewEnrollmentDTO(enr *enrollment.Enrollment, includeProgress bool) EnrollmentDTO {
	dto := EnrollmentDTO{
		ID:                     enr.ID,
		StudentID:              enr.StudentID,
		CourseID:               enr.CourseID,
		OrderID:                enr.OrderID,
		InstructorID:           enr.InstructorID,
		Status:                 string(enr.Status),
		ProgressPercent:        enr.ProgressPercent.Float64(),
		TotalLearningUnits:     enr.TotalLearningUnits,
		CompletedLearningUnits: enr.CompletedLearningUnits,
		EnrolledAt:             enr.EnrolledAt,
		CompletedAt:            enr.CompletedAt,
	}

	if includeProgress {
		entries := enr.ActiveProgress()
		dto.Progress = make([]ProgressEntryDTO, 0, len(entries))
		for _, entry := range entries {
			dto.Progress = append(dto.Progress, ProgressEntryDTO{
				ID:          entry.ID,
				UnitType:    string(entry.UnitType),
				UnitID:      entry.UnitID(),
				WatchTime:   entry.WatchTime,
				Duration:    entry.Duration,
				Score:       entry.Score,
				Attempts:    entry.Attempts,
				Passed:      entry.Passed,
				Completed:   entry.Completed,
				CompletedAt: entry.CompletedAt,
			})
		}
	}

	return dto
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// GetEnrollmentHandler обрабатывает GetEnrollmentQuery.
type GetEnrollmentHandler struct {
	enrollmentRepo enrollment.Repository
	cache          enrollment.Cache
	log            *logger.Logger
}

// NewGetEnrollmentHandler создаёт новый обработчик.
func NewGetEnrollmentHandler(
	enrollmentRepo enrollment.Repository,
	cache enrollment.Cache,
	log *logger.Logger,
) *GetEnrollmentHandler {
	if log == nil {
		log = logger.Default()
	}
	return &GetEnrollmentHandler{
		enrollmentRepo: enrollmentRepo,
		cache:          cache,
		log:            log.With(logger.Component("get_enrollment")),
	}
}

// Handle выполняет запрос.
func (h *GetEnrollmentHandler) Handle(ctx context.Context, q GetEnrollmentQuery) (*EnrollmentDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	enr, err := h.load(ctx, q)
	if err != nil {
		return nil, err
	}
	if enr.IsDeleted() {
		return nil, enrollment.ErrEnrollmentNotFound
	}
	if !enr.IsOwnedBy(q.StudentID) {
		return nil, shared.ErrEnrollmentNotOwned
	}

	dto := NewEnrollmentDTO(enr, q.IncludeProgress)
	return &dto, nil
}

// load читает зачисление через кеш, на промахе - из базы с прогревом.
func (h *GetEnrollmentHandler) load(ctx context.Context, q GetEnrollmentQuery) (*enrollment.Enrollment, error) {
	if h.cache != nil {
		if enr, err := h.cache.Get(ctx, q.EnrollmentID); err == nil {
			return enr, nil
		}
	}

	enr, err := h.enrollmentRepo.GetByID(ctx, q.EnrollmentID, enrollment.GetOptions{IncludeProgress: true})
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, enr); err != nil {
			h.log.Warn("failed to warm enrollment cache",
				logger.EnrollmentID(enr.ID),
				logger.Err(err))
		}
	}

	return enr, nil
}
