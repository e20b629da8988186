package query

import (
	"context"
	"errors"

	"github.com/edulearn-hub/enrollment-hub/internal/domain/enrollment"
	"github.com/edulearn-hub/enrollment-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET COURSE PROGRESS QUERY
// Сводка по курсу для преподавателя: сколько студентов, как далеко они
// продвинулись, сколько завершили. Строится по зачислениям курса.
// ══════════════════════════════════════════════════════════════════════════════

// GetCourseProgressQuery содержит параметры запроса сводки по курсу.
type GetCourseProgressQuery struct {
	// CourseID - курс, по которому запрашивается сводка.
	CourseID string

	// InstructorID - преподаватель, делающий запрос. Сводка выдаётся только
	// преподавателю курса.
	InstructorID string

	// Offset - смещение по зачислениям.
	Offset int

	// Limit - максимальное число зачислений в выборке.
	Limit int
}

// Validate проверяет корректность параметров.
func (q *GetCourseProgressQuery) Validate() error {
	if q.CourseID == "" {
		return errors.New("get_course_progress: course_id is required")
	}
	if q.InstructorID == "" {
		return errors.New("get_course_progress: instructor_id is required")
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Limit <= 0 {
		q.Limit = 100
	}
	if q.Limit > 500 {
		q.Limit = 500
	}
	return nil
}

// CourseProgressDTO - сводка прогресса по курсу.
type CourseProgressDTO struct {
	CourseID        string  `json:"course_id"`
	TotalStudents   int     `json:"total_students"`
	ActiveStudents  int     `json:"active_students"`
	Completed       int     `json:"completed"`
	Dropped         int     `json:"dropped"`
	AverageProgress float64 `json:"average_progress"`

	// Students - построчная сводка по зачислениям страницы.
	Students []StudentProgressDTO `json:"students"`
}

// StudentProgressDTO - прогресс одного студента на курсе.
type StudentProgressDTO struct {
	StudentID       string  `json:"student_id"`
	EnrollmentID    string  `json:"enrollment_id"`
	Status          string  `json:"status"`
	ProgressPercent float64 `json:"progress_percent"`
	CompletedUnits  int     `json:"completed_units"`
	TotalUnits      int     `json:"total_units"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// GetCourseProgressHandler обрабатывает GetCourseProgressQuery.
type GetCourseProgressHandler struct {
	enrollmentRepo enrollment.Repository
	log            *logger.Logger
}

// NewGetCourseProgressHandler создаёт новый обработчик.
func NewGetCourseProgressHandler(
	enrollmentRepo enrollment.Repository,
	log *logger.Logger,
) *GetCourseProgressHandler {
	if log == nil {
		log = logger.Default()
	}
	return &GetCourseProgressHandler{
		enrollmentRepo: enrollmentRepo,
		log:            log.With(logger.Component("get_course_progress")),
	}
}

// Handle выполняет запрос.
func (h *GetCourseProgressHandler) Handle(ctx context.Context, q GetCourseProgressQuery) (*CourseProgressDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	enrollments, err := h.enrollmentRepo.ListByCourse(ctx, q.CourseID, enrollment.ListOptions{
		Offset: q.Offset,
		Limit:  q.Limit,
	})
	if err != nil {
		return nil, err
	}

	dto := &CourseProgressDTO{
		CourseID: q.CourseID,
		Students: make([]StudentProgressDTO, 0, len(enrollments)),
	}

	var progressSum float64
	for _, enr := range enrollments {
		if enr.InstructorID != "" && enr.InstructorID != q.InstructorID {
			continue
		}

		dto.TotalStudents++
		switch enr.Status {
		case enrollment.StatusActive:
			dto.ActiveStudents++
		case enrollment.StatusCompleted:
			dto.Completed++
		case enrollment.StatusDropped:
			dto.Dropped++
		}
		progressSum += enr.ProgressPercent.Float64()

		dto.Students = append(dto.Students, StudentProgressDTO{
			StudentID:       enr.StudentID,
			EnrollmentID:    enr.ID,
			Status:          string(enr.Status),
			ProgressPercent: enr.ProgressPercent.Float64(),
			CompletedUnits:  enr.CompletedLearningUnits,
			TotalUnits:      enr.TotalLearningUnits,
		})
	}

	if dto.TotalStudents > 0 {
		dto.AverageProgress = progressSum / float64(dto.TotalStudents)
	}

	return dto, nil
}
