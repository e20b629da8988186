package query

import (
	"context"
	"errors"

	"github.com/edulearn-hub/enrollment-hub/internal/domain/enrollment"
	"github.com/edulearn-hub/enrollment-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST STUDENT ENROLLMENTS QUERY
// Возвращает страницу зачислений студента - экран "мои курсы".
// ══════════════════════════════════════════════════════════════════════════════

// ListStudentEnrollmentsQuery содержит параметры запроса списка зачислений.
type ListStudentEnrollmentsQuery struct {
	// StudentID - студент, чьи зачисления запрашиваются.
	StudentID string

	// Status - опциональный фильтр по статусу (пустой = все).
	Status string

	// Offset - смещение для пагинации.
	Offset int

	// Limit - размер страницы (по умолчанию 50, максимум 100).
	Limit int
}

// Validate проверяет корректность параметров.
func (q *ListStudentEnrollmentsQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("list_student_enrollments: student_id is required")
	}
	if q.Status != "" && !enrollment.Status(q.Status).IsValid() {
		return errors.New("list_student_enrollments: invalid status filter")
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}

// EnrollmentListDTO - страница зачислений.
type EnrollmentListDTO struct {
	Enrollments []EnrollmentDTO `json:"enrollments"`
	Offset      int             `json:"offset"`
	Limit       int             `json:"limit"`
	Count       int             `json:"count"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ListStudentEnrollmentsHandler обрабатывает ListStudentEnrollmentsQuery.
type ListStudentEnrollmentsHandler struct {
	enrollmentRepo enrollment.Repository
	log            *logger.Logger
}

// NewListStudentEnrollmentsHandler создаёт новый обработчик.
func NewListStudentEnrollmentsHandler(
	enrollmentRepo enrollment.Repository,
	log *logger.Logger,
) *ListStudentEnrollmentsHandler {
	if log == nil {
		log = logger.Default()
	}
	return &ListStudentEnrollmentsHandler{
		enrollmentRepo: enrollmentRepo,
		log:            log.With(logger.Component("list_student_enrollments")),
	}
}

// Handle выполняет запрос.
func (h *ListStudentEnrollmentsHandler) Handle(ctx context.Context, q ListStudentEnrollmentsQuery) (*EnrollmentListDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	enrollments, err := h.enrollmentRepo.ListByStudent(ctx, q.StudentID, enrollment.ListOptions{
		Offset: q.Offset,
		Limit:  q.Limit,
	})
	if err != nil {
		return nil, err
	}

	dtos := make([]EnrollmentDTO, 0, len(enrollments))
	for _, enr := range enrollments {
		if q.Status != "" && string(enr.Status) != q.Status {
			continue
		}
		dtos = append(dtos, NewEnrollmentDTO(enr, false))
	}

	return &EnrollmentListDTO{
		Enrollments: dtos,
		Offset:      q.Offset,
		Limit:       q.Limit,
		Count:       len(dtos),
	}, nil
}
