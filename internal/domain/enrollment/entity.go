// Package enrollment содержит доменную модель зачисления EduLearn.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package enrollment

import (
	"errors"
	"time"

	"github.com/edulearn-hub/enrollment-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Status определяет текущий статус зачисления.
type Status string

const (
	// StatusActive - студент учится на курсе.
	StatusActive Status = "active"
	// StatusCompleted - все учебные единицы завершены. Автоматический переход.
	StatusCompleted Status = "completed"
	// StatusDropped - студент покинул курс. Явное действие.
	StatusDropped Status = "dropped"
)

// IsValid проверяет, что статус корректен.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusDropped:
		return true
	default:
		return false
	}
}

// AcceptsProgress возвращает true, если зачисление ещё принимает
// обновления прогресса.
func (s Status) AcceptsProgress() bool {
	return s == StatusActive
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrInvalidEnrollment - не хватает обязательных полей зачисления.
	ErrInvalidEnrollment = errors.New("invalid enrollment: id, student, course and order are required")

	// ErrInvalidProgressEntry - не хватает обязательных полей записи прогресса.
	ErrInvalidProgressEntry = errors.New("invalid progress entry: id, enrollment and unit are required")

	// ErrInvalidDuration - отрицательная длительность урока.
	ErrInvalidDuration = errors.New("invalid duration: must be non-negative")

	// ErrInvalidScore - результат квиза вне диапазона 0-100.
	ErrInvalidScore = errors.New("invalid score: must be between 0 and 100")

	// ErrWrongUnitType - операция не соответствует типу учебной единицы.
	ErrWrongUnitType = errors.New("operation not valid for this unit type")

	// ErrEnrollmentNotFound - зачисление не найдено.
	ErrEnrollmentNotFound = errors.New("enrollment not found")

	// ErrEnrollmentExists - зачисление для пары (студент, курс) уже есть.
	ErrEnrollmentExists = errors.New("enrollment already exists for this student and course")

	// ErrProgressNotFound - запись прогресса не найдена.
	ErrProgressNotFound = errors.New("progress entry not found")

	// ErrNotActive - зачисление завершено или брошено.
	ErrNotActive = errors.New("enrollment is not active")

	// ErrAlreadyDropped - повторная попытка бросить курс.
	ErrAlreadyDropped = errors.New("enrollment is already dropped")

	// ErrCannotDrop - бросить можно только активное зачисление.
	ErrCannotDrop = errors.New("only active enrollments can be dropped")
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: ENROLLMENT (AGGREGATE ROOT)
// ══════════════════════════════════════════════════════════════════════════════

// Enrollment - агрегат, представляющий регистрацию одного студента на одном
// курсе. Владеет всеми записями прогресса этого курса: никто другой их
// напрямую не мутирует.
type Enrollment struct {
	// ID - внутренний уникальный идентификатор (UUID в строковом формате).
	ID string

	// StudentID - идентификатор студента.
	StudentID string

	// CourseID - идентификатор курса.
	CourseID string

	// OrderID - коммерческая транзакция, создавшая зачисление.
	OrderID string

	// InstructorID - преподаватель курса на момент зачисления.
	InstructorID string

	// Status - текущий статус зачисления.
	Status Status

	// ProgressPercent - агрегированный процент завершения (0-100, два знака).
	ProgressPercent shared.Percent

	// TotalLearningUnits - всего учебных единиц в зачислении.
	TotalLearningUnits int

	// CompletedLearningUnits - завершено учебных единиц.
	CompletedLearningUnits int

	// Progress - записи прогресса, по одной на учебную единицу.
	// Порядок соответствует порядку посева при провижининге.
	Progress []*ProgressEntry

	// EnrolledAt - момент зачисления.
	EnrolledAt time.Time

	// CompletedAt - момент завершения курса (ставится ровно один раз).
	CompletedAt *time.Time

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time

	// DeletedAt - маркер мягкого удаления. Физически записи не удаляются.
	DeletedAt *time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewEnrollmentParams содержит параметры для создания нового зачисления.
type NewEnrollmentParams struct {
	ID           string
	StudentID    string
	CourseID     string
	OrderID      string
	InstructorID string
}

// NewEnrollment создаёт новое активное зачисление без записей прогресса.
// Записи прогресса досеивает провижининг через UpdateProgressEntry.
func NewEnrollment(params NewEnrollmentParams) (*Enrollment, error) {
	if params.ID == "" || params.StudentID == "" || params.CourseID == "" || params.OrderID == "" {
		return nil, ErrInvalidEnrollment
	}

	now := time.Now().UTC()

	return &Enrollment{
		ID:                     params.ID,
		StudentID:              params.StudentID,
		CourseID:               params.CourseID,
		OrderID:                params.OrderID,
		InstructorID:           params.InstructorID,
		Status:                 StatusActive,
		ProgressPercent:        0,
		TotalLearningUnits:     0,
		CompletedLearningUnits: 0,
		Progress:               make([]*ProgressEntry, 0),
		EnrolledAt:             now,
		CreatedAt:              now,
		UpdatedAt:              now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS (Business Logic)
// ══════════════════════════════════════════════════════════════════════════════

// IsDeleted возвращает true, если зачисление мягко удалено.
func (e *Enrollment) IsDeleted() bool {
	return e.DeletedAt != nil
}

// IsOwnedBy проверяет, принадлежит ли зачисление студенту.
func (e *Enrollment) IsOwnedBy(studentID string) bool {
	return e.StudentID == studentID
}

// FindProgressEntry ищет запись прогресса по учебной единице.
// Возвращает ErrProgressNotFound, если записи нет.
func (e *Enrollment) FindProgressEntry(unitID string, unitType UnitType) (*ProgressEntry, error) {
	for _, entry := range e.Progress {
		if entry.UnitType == unitType && entry.UnitID() == unitID {
			return entry, nil
		}
	}
	return nil, ErrProgressNotFound
}

// FindLessonProgress ищет запись прогресса урока.
func (e *Enrollment) FindLessonProgress(lessonID string) (*ProgressEntry, error) {
	return e.FindProgressEntry(lessonID, UnitTypeLesson)
}

// FindQuizProgress ищет запись прогресса квиза.
func (e *Enrollment) FindQuizProgress(quizID string) (*ProgressEntry, error) {
	return e.FindProgressEntry(quizID, UnitTypeQuiz)
}

// UpdateResult описывает, что произошло при обновлении записи прогресса.
type UpdateResult struct {
	// UnitCompleted - единица завершилась именно этим обновлением (переход 0→1).
	UnitCompleted bool

	// CourseCompleted - это обновление довело зачисление до 100%
	// и перевело его в StatusCompleted.
	CourseCompleted bool
}

// UpdateProgressEntry встраивает обновлённую запись прогресса в агрегат и
// пересчитывает roll-up.
//
// Алгоритм:
//  1. Найти существующую запись той же единицы; если её нет - вставить и,
//     если запись не удалена, увеличить TotalLearningUnits.
//  2. Снять снимок завершённости до мутации (WasPreviouslyCompleted).
//  3. Переход 0→1 увеличивает CompletedLearningUnits, 1→0 уменьшает
//     (с нижней границей 0 - защитная симметрия, на практике завершение
//     записи необратимо).
//  4. Пересчитать ProgressPercent из новых счётчиков.
//  5. Если завершены все единицы и статус ещё не completed - перевести в
//     StatusCompleted и поставить CompletedAt. Переход срабатывает не более
//     одного раза: повторные обновления на 100% ничего не меняют.
func (e *Enrollment) UpdateProgressEntry(entry *ProgressEntry) UpdateResult {
	var result UpdateResult

	existing, err := e.FindProgressEntry(entry.UnitID(), entry.UnitType)
	wasCompleted := entry.WasPreviouslyCompleted()

	if err != nil {
		// Новая запись: вставляем и считаем единицу, если она не удалена.
		e.Progress = append(e.Progress, entry)
		if !entry.IsDeleted() {
			e.TotalLearningUnits++
		}
		wasCompleted = false
	} else if existing != entry {
		// Запись пришла извне (загружена отдельно) - заменяем нашу копию.
		for i, p := range e.Progress {
			if p == existing {
				e.Progress[i] = entry
				break
			}
		}
	}

	switch {
	case !wasCompleted && entry.Completed:
		e.CompletedLearningUnits++
		result.UnitCompleted = true
	case wasCompleted && !entry.Completed:
		if e.CompletedLearningUnits > 0 {
			e.CompletedLearningUnits--
		}
	}

	e.recalcProgress()

	if e.CompletedLearningUnits == e.TotalLearningUnits &&
		e.TotalLearningUnits > 0 &&
		e.Status == StatusActive {
		now := time.Now().UTC()
		e.Status = StatusCompleted
		e.CompletedAt = &now
		result.CourseCompleted = true
	}

	e.UpdatedAt = time.Now().UTC()
	return result
}

// recalcProgress пересчитывает процент завершения из счётчиков.
// Инвариант: ProgressPercent == round2(completed/total*100), либо 0 при total == 0.
func (e *Enrollment) recalcProgress() {
	if e.CompletedLearningUnits > e.TotalLearningUnits {
		e.CompletedLearningUnits = e.TotalLearningUnits
	}
	e.ProgressPercent = shared.Round2(e.CompletedLearningUnits, e.TotalLearningUnits)
}

// Drop переводит активное зачисление в StatusDropped.
// Из completed и dropped выхода нет (кроме мягкого удаления).
func (e *Enrollment) Drop() error {
	switch e.Status {
	case StatusDropped:
		return ErrAlreadyDropped
	case StatusCompleted:
		return ErrCannotDrop
	}

	e.Status = StatusDropped
	e.UpdatedAt = time.Now().UTC()
	return nil
}

// SoftDelete мягко удаляет зачисление вместе со всеми записями прогресса.
func (e *Enrollment) SoftDelete() {
	if e.DeletedAt != nil {
		return
	}

	now := time.Now().UTC()
	e.DeletedAt = &now
	e.UpdatedAt = now

	for _, entry := range e.Progress {
		entry.SoftDelete()
	}
}

// ActiveProgress возвращает неудалённые записи прогресса.
func (e *Enrollment) ActiveProgress() []*ProgressEntry {
	entries := make([]*ProgressEntry, 0, len(e.Progress))
	for _, entry := range e.Progress {
		if !entry.IsDeleted() {
			entries = append(entries, entry)
		}
	}
	return entries
}
