// Package quiz содержит доменную модель квиза EduLearn и чистую логику
// оценивания ответов. Здесь нет персистентности и внешних зависимостей.
package quiz

import (
	"context"
	"errors"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// QuestionType определяет тип вопроса.
type QuestionType string

const (
	// QuestionTypeMultipleChoice - вопрос с выбором вариантов.
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	// QuestionTypeTrueFalse - вопрос "верно/неверно". Оценивание пока не поддержано.
	QuestionTypeTrueFalse QuestionType = "true_false"
	// QuestionTypeShortAnswer - свободный короткий ответ. Оценивание пока не поддержано.
	QuestionTypeShortAnswer QuestionType = "short_answer"
)

// IsValid проверяет, что тип вопроса корректен.
func (q QuestionType) IsValid() bool {
	switch q {
	case QuestionTypeMultipleChoice, QuestionTypeTrueFalse, QuestionTypeShortAnswer:
		return true
	default:
		return false
	}
}

// Option - один вариант ответа на вопрос с выбором.
type Option struct {
	// Text - текст варианта.
	Text string

	// Correct - помечен ли вариант как правильный.
	Correct bool
}

// Question - один вопрос квиза.
type Question struct {
	// ID - идентификатор вопроса.
	ID string

	// Type - тип вопроса.
	Type QuestionType

	// Text - формулировка вопроса.
	Text string

	// Points - вес вопроса.
	Points int

	// Options - варианты ответа (для multiple_choice).
	Options []Option
}

// CorrectOptionIndexes возвращает множество индексов правильных вариантов.
func (q Question) CorrectOptionIndexes() map[int]struct{} {
	correct := make(map[int]struct{})
	for i, opt := range q.Options {
		if opt.Correct {
			correct[i] = struct{}{}
		}
	}
	return correct
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: QUIZ
// ══════════════════════════════════════════════════════════════════════════════

// Quiz - квиз секции курса. При оценивании квиз и его вопросы read-only.
type Quiz struct {
	// ID - внутренний уникальный идентификатор.
	ID string

	// CourseID - курс, которому принадлежит квиз.
	CourseID string

	// SectionID - секция курса, к которой привязан квиз.
	SectionID string

	// Title - название квиза.
	Title string

	// PassingScore - проходной балл в процентах (0-100).
	PassingScore int

	// Questions - упорядоченный список вопросов.
	Questions []Question
}

// Validate проверяет корректность квиза.
func (q *Quiz) Validate() error {
	if q.ID == "" {
		return errors.New("quiz id is required")
	}
	if q.PassingScore < 0 || q.PassingScore > 100 {
		return errors.New("passing score must be between 0 and 100")
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет чтение квизов. Квизы создаёт и редактирует
// авторинг курсов - вне зоны ответственности этого сервиса.
type Repository interface {
	// FindByID возвращает квиз с вопросами.
	// Возвращает ErrQuizNotFound, если квиза нет.
	FindByID(ctx context.Context, id string) (*Quiz, error)
}

// ErrQuizNotFound - квиз не найден.
var ErrQuizNotFound = errors.New("quiz not found")
