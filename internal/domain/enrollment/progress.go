package enrollment

import (
	"math"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS ENTRY
// Запись прогресса по одной учебной единице (урок или квиз) внутри зачисления.
// Записи создаются один раз при провижининге зачисления и дальше только
// мутируются. Владеет ими исключительно агрегат Enrollment.
// ══════════════════════════════════════════════════════════════════════════════

// UnitType определяет тип учебной единицы, которую отслеживает запись.
type UnitType string

const (
	// UnitTypeLesson - запись отслеживает просмотр урока.
	UnitTypeLesson UnitType = "lesson"
	// UnitTypeQuiz - запись отслеживает попытки прохождения квиза.
	UnitTypeQuiz UnitType = "quiz"
)

// IsValid проверяет, что тип единицы корректен.
func (u UnitType) IsValid() bool {
	return u == UnitTypeLesson || u == UnitTypeQuiz
}

// LessonCompletionThreshold - доля урока, которую нужно просмотреть,
// чтобы урок считался завершённым.
const LessonCompletionThreshold = 0.8

// ProgressEntry отслеживает завершение ровно одной учебной единицы.
//
// Это дискриминированный тип: поле UnitType определяет, какой набор полей
// используется. У урока заполнены WatchTime/Duration и LessonID, у квиза -
// Score/Attempts/Passed и QuizID. Мутация "не своего" режима - ошибка
// программирования, а не доменная ситуация.
type ProgressEntry struct {
	// ID - внутренний уникальный идентификатор записи.
	ID string

	// EnrollmentID - идентификатор зачисления-владельца.
	EnrollmentID string

	// UnitType - дискриминатор: урок или квиз.
	UnitType UnitType

	// LessonID - идентификатор урока (только для UnitTypeLesson).
	LessonID string

	// QuizID - идентификатор квиза (только для UnitTypeQuiz).
	QuizID string

	// WatchTime - сколько секунд урока просмотрено (монотонно не убывает).
	WatchTime int

	// Duration - длительность урока в секундах.
	Duration int

	// Score - лучший результат среди всех попыток (0-100).
	Score int

	// Attempts - количество попыток прохождения квиза.
	Attempts int

	// Passed - был ли квиз пройден хотя бы один раз.
	Passed bool

	// Completed - завершена ли учебная единица. Необратимо.
	Completed bool

	// CompletedAt - момент первого завершения.
	CompletedAt *time.Time

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time

	// DeletedAt - маркер мягкого удаления (вместе с зачислением).
	DeletedAt *time.Time

	// wasPreviouslyCompleted - снимок флага Completed на начало последней
	// мутации. Не персистится: нужен агрегату, чтобы распознать переход
	// 0→1 без пересчёта истории.
	wasPreviouslyCompleted bool
}

// NewLessonProgress создаёт запись прогресса для урока.
func NewLessonProgress(id, enrollmentID, lessonID string, durationSeconds int) (*ProgressEntry, error) {
	if id == "" || enrollmentID == "" || lessonID == "" {
		return nil, ErrInvalidProgressEntry
	}
	if durationSeconds < 0 {
		return nil, ErrInvalidDuration
	}

	now := time.Now().UTC()

	return &ProgressEntry{
		ID:           id,
		EnrollmentID: enrollmentID,
		UnitType:     UnitTypeLesson,
		LessonID:     lessonID,
		Duration:     durationSeconds,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NewQuizProgress создаёт запись прогресса для квиза.
func NewQuizProgress(id, enrollmentID, quizID string) (*ProgressEntry, error) {
	if id == "" || enrollmentID == "" || quizID == "" {
		return nil, ErrInvalidProgressEntry
	}

	now := time.Now().UTC()

	return &ProgressEntry{
		ID:           id,
		EnrollmentID: enrollmentID,
		UnitType:     UnitTypeQuiz,
		QuizID:       quizID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// UnitID возвращает идентификатор учебной единицы независимо от типа.
func (p *ProgressEntry) UnitID() string {
	if p.UnitType == UnitTypeQuiz {
		return p.QuizID
	}
	return p.LessonID
}

// IsDeleted возвращает true, если запись мягко удалена.
func (p *ProgressEntry) IsDeleted() bool {
	return p.DeletedAt != nil
}

// WasPreviouslyCompleted сообщает значение флага Completed, зафиксированное
// в начале последней мутации. Агрегат использует его для детекции перехода
// 0→1 ровно один раз на переход.
func (p *ProgressEntry) WasPreviouslyCompleted() bool {
	return p.wasPreviouslyCompleted
}

// UpdateWatchProgress обновляет время просмотра урока.
//
// currentTime - позиция плеера в секундах. Если absolute, новое время
// просмотра = max(старое, floor(currentTime)); иначе время прибавляется
// (с нижней границей 0). Ненулевой duration перезаписывает сохранённую
// длительность. Пересечение порога в 80% впервые делает запись завершённой
// и ставит CompletedAt; "раззавершить" урок нельзя.
func (p *ProgressEntry) UpdateWatchProgress(currentTime float64, durationSeconds int, absolute bool) error {
	if p.UnitType != UnitTypeLesson {
		return ErrWrongUnitType
	}

	p.wasPreviouslyCompleted = p.Completed

	watched := int(math.Floor(currentTime))
	if absolute {
		if watched > p.WatchTime {
			p.WatchTime = watched
		}
	} else {
		p.WatchTime += watched
		if p.WatchTime < 0 {
			p.WatchTime = 0
		}
	}

	if durationSeconds > 0 {
		p.Duration = durationSeconds
	}

	if !p.Completed && p.Duration > 0 {
		if float64(p.WatchTime) >= float64(p.Duration)*LessonCompletionThreshold {
			p.markCompleted()
		}
	}

	p.UpdatedAt = time.Now().UTC()
	return nil
}

// RegisterQuizAttempt регистрирует одну оценённую попытку прохождения квиза.
//
// Счётчик попыток растёт всегда; сохраняется лучший результат
// (best-attempt-wins, не последний). Успешная попытка впервые завершает
// запись; завершение необратимо.
func (p *ProgressEntry) RegisterQuizAttempt(rawScore int, passed bool) error {
	if p.UnitType != UnitTypeQuiz {
		return ErrWrongUnitType
	}
	if rawScore < 0 || rawScore > 100 {
		return ErrInvalidScore
	}

	p.wasPreviouslyCompleted = p.Completed

	p.Attempts++
	if rawScore > p.Score {
		p.Score = rawScore
	}
	if passed {
		p.Passed = true
		if !p.Completed {
			p.markCompleted()
		}
	}

	p.UpdatedAt = time.Now().UTC()
	return nil
}

// markCompleted помечает запись завершённой и ставит отметку времени.
func (p *ProgressEntry) markCompleted() {
	now := time.Now().UTC()
	p.Completed = true
	p.CompletedAt = &now
}

// SoftDelete мягко удаляет запись. Вызывается только владеющим агрегатом.
func (p *ProgressEntry) SoftDelete() {
	if p.DeletedAt != nil {
		return
	}
	now := time.Now().UTC()
	p.DeletedAt = &now
	p.UpdatedAt = now
}
