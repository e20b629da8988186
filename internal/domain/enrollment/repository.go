package enrollment

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем данных.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// GetOptions управляет загрузкой зачисления.
type GetOptions struct {
	// IncludeProgress - загружать ли записи прогресса вместе с агрегатом.
	IncludeProgress bool
}

// ListOptions содержит параметры для пагинации.
type ListOptions struct {
	// Offset - смещение (для пагинации).
	Offset int

	// Limit - максимальное количество записей.
	Limit int

	// IncludeDeleted - включать мягко удалённые зачисления.
	IncludeDeleted bool
}

// DefaultListOptions возвращает параметры по умолчанию.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Offset: 0,
		Limit:  50,
	}
}

// Repository определяет операции над агрегатом Enrollment.
type Repository interface {
	// Upsert сохраняет зачисление вместе с его записями прогресса.
	// Создаёт новое или заменяет существующее целиком.
	Upsert(ctx context.Context, enrollment *Enrollment) error

	// GetByID возвращает зачисление по внутреннему ID.
	// Возвращает ErrEnrollmentNotFound, если зачисления нет.
	GetByID(ctx context.Context, id string, opts GetOptions) (*Enrollment, error)

	// GetByStudentAndCourse возвращает зачисление по паре (студент, курс).
	// Ключевой запрос идемпотентности провижининга.
	// Возвращает ErrEnrollmentNotFound, если зачисления нет.
	GetByStudentAndCourse(ctx context.Context, studentID, courseID string) (*Enrollment, error)

	// ListByStudent возвращает зачисления студента.
	ListByStudent(ctx context.Context, studentID string, opts ListOptions) ([]*Enrollment, error)

	// ListByCourse возвращает зачисления на курс.
	ListByCourse(ctx context.Context, courseID string, opts ListOptions) ([]*Enrollment, error)

	// Remove мягко удаляет зачисление и его записи прогресса.
	// Возвращает ErrEnrollmentNotFound, если зачисления нет.
	Remove(ctx context.Context, id string) error
}

// ProgressRepository определяет операции над отдельными записями прогресса.
// Используется read-моделями; запись всегда идёт через Repository.Upsert.
type ProgressRepository interface {
	// Save сохраняет одну запись прогресса.
	Save(ctx context.Context, entry *ProgressEntry) error

	// FindByEnrollment возвращает все записи прогресса зачисления.
	FindByEnrollment(ctx context.Context, enrollmentID string) ([]*ProgressEntry, error)

	// FindByEnrollmentAndLesson возвращает запись прогресса урока.
	// Возвращает ErrProgressNotFound, если записи нет.
	FindByEnrollmentAndLesson(ctx context.Context, enrollmentID, lessonID string) (*ProgressEntry, error)

	// FindByEnrollmentAndQuiz возвращает запись прогресса квиза.
	// Возвращает ErrProgressNotFound, если записи нет.
	FindByEnrollmentAndQuiz(ctx context.Context, enrollmentID, quizID string) (*ProgressEntry, error)
}

// Cache определяет кеш зачислений (cache-aside, реализация в redis).
type Cache interface {
	// Get возвращает зачисление из кеша или ошибку промаха.
	Get(ctx context.Context, id string) (*Enrollment, error)

	// Set кладёт зачисление в кеш.
	Set(ctx context.Context, enrollment *Enrollment) error

	// Invalidate убирает зачисление из кеша (после записи).
	Invalidate(ctx context.Context, id string) error
}
