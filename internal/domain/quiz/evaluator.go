package quiz

import (
	"errors"
	"math"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATOR
// Чистая функция оценивания: квиз + ответы → балл. Без персистентности,
// без побочных эффектов.
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrUnsupportedQuestionType - в квизе есть вопрос неподдерживаемого типа.
	// Сейчас оценивается только multiple choice.
	ErrUnsupportedQuestionType = errors.New("unsupported question type: only multiple choice is evaluated")

	// ErrNoQuestions - у квиза нет вопросов, оценивать нечего.
	ErrNoQuestions = errors.New("quiz has no questions")
)

// Answer - ответ студента на один вопрос.
type Answer struct {
	// QuestionID - вопрос, на который дан ответ.
	QuestionID string

	// SelectedOptions - индексы выбранных вариантов.
	SelectedOptions []int
}

// Result - итог оценивания одной попытки.
type Result struct {
	// Score - балл в процентах (0-100), округлённый до целого.
	Score int

	// MaxScore - максимально возможный балл (всегда 100 для процентов).
	MaxScore int

	// CorrectCount - количество правильно отвеченных вопросов.
	CorrectCount int

	// TotalQuestions - всего вопросов в квизе.
	TotalQuestions int

	// Passed - достигнут ли проходной балл квиза.
	Passed bool

	// Perfect - все вопросы отвечены правильно.
	Perfect bool
}

// Evaluate оценивает ответы студента против определения квиза.
//
// Правила:
//   - поддерживается только multiple choice; любой другой тип вопроса в
//     квизе - ErrUnsupportedQuestionType;
//   - ответ правилен тогда и только тогда, когда множество выбранных
//     индексов совпадает с множеством правильных (порядок не важен,
//     частичного зачёта нет, лишние выборы не прощаются);
//   - вопрос без ответа считается неправильным, ошибкой не является;
//   - Score = round(correct/total*100); Passed = Score >= PassingScore.
func Evaluate(q *Quiz, answers []Answer) (Result, error) {
	if len(q.Questions) == 0 {
		return Result{}, ErrNoQuestions
	}

	for _, question := range q.Questions {
		if question.Type != QuestionTypeMultipleChoice {
			return Result{}, ErrUnsupportedQuestionType
		}
	}

	byQuestion := make(map[string]Answer, len(answers))
	for _, answer := range answers {
		byQuestion[answer.QuestionID] = answer
	}

	correctCount := 0
	for _, question := range q.Questions {
		answer, ok := byQuestion[question.ID]
		if !ok {
			continue // без ответа = неправильно
		}
		if isCorrect(question, answer) {
			correctCount++
		}
	}

	total := len(q.Questions)
	score := int(math.Round(float64(correctCount) / float64(total) * 100))

	return Result{
		Score:          score,
		MaxScore:       100,
		CorrectCount:   correctCount,
		TotalQuestions: total,
		Passed:         score >= q.PassingScore,
		Perfect:        correctCount == total,
	}, nil
}

// isCorrect сравнивает выбранные индексы с правильными как множества.
func isCorrect(question Question, answer Answer) bool {
	correct := question.CorrectOptionIndexes()
	if len(answer.SelectedOptions) != len(correct) {
		return false
	}

	seen := make(map[int]struct{}, len(answer.SelectedOptions))
	for _, idx := range answer.SelectedOptions {
		if _, dup := seen[idx]; dup {
			return false // дубликат индекса не считается вторым выбором
		}
		seen[idx] = struct{}{}
		if _, ok := correct[idx]; !ok {
			return false
		}
	}

	return true
}
