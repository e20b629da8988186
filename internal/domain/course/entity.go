// Package course содержит read-модель курса, с которой работает провижининг
// зачислений. Авторинг курсов (создание и редактирование уроков и секций) -
// вне зоны ответственности этого сервиса.
package course

import (
	"context"
	"errors"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// Lesson - один урок курса.
type Lesson struct {
	// ID - идентификатор урока.
	ID string

	// Title - название урока.
	Title string

	// DurationSeconds - длительность видео в секундах.
	DurationSeconds int

	// Order - порядковый номер внутри секции.
	Order int
}

// Section - секция курса. Может нести необязательный квиз.
type Section struct {
	// ID - идентификатор секции.
	ID string

	// Title - название секции.
	Title string

	// Order - порядковый номер внутри курса.
	Order int

	// QuizID - квиз секции, если есть.
	QuizID string
}

// Course - курс глазами сервиса зачислений: поставляет набор учебных единиц
// для посева записей прогресса и счётчик зачислений.
type Course struct {
	// ID - внутренний уникальный идентификатор.
	ID string

	// InstructorID - преподаватель курса.
	InstructorID string

	// Title - название курса.
	Title string

	// Lessons - уроки курса в порядке прохождения.
	Lessons []Lesson

	// Sections - секции курса в порядке прохождения.
	Sections []Section

	// EnrollmentCount - счётчик зачислений. Инкрементируется провижинингом.
	EnrollmentCount int

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// ErrCourseNotFound - курс не найден.
var ErrCourseNotFound = errors.New("course not found")

// LearningUnitCount возвращает количество учебных единиц для посева:
// по одной на урок плюс по одной на квиз секции.
func (c *Course) LearningUnitCount() int {
	count := len(c.Lessons)
	for _, section := range c.Sections {
		if section.QuizID != "" {
			count++
		}
	}
	return count
}

// IncrementEnrollmentCount увеличивает счётчик зачислений.
func (c *Course) IncrementEnrollmentCount() {
	c.EnrollmentCount++
	c.UpdatedAt = time.Now().UTC()
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет доступ к курсам.
type Repository interface {
	// FindByID возвращает курс с уроками и секциями.
	// Возвращает ErrCourseNotFound, если курса нет.
	FindByID(ctx context.Context, id string) (*Course, error)

	// Save сохраняет курс (используется для счётчика зачислений).
	Save(ctx context.Context, course *Course) error
}
