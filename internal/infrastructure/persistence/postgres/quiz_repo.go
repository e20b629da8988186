package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/edulearn-hub/enrollment-hub/internal/domain/quiz"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUIZ REPOSITORY IMPLEMENTATION
// Quizzes are a read model here. Questions are stored as JSONB because the
// evaluator always needs the whole quiz and never a single question.
// ══════════════════════════════════════════════════════════════════════════════

// QuizRepository implements quiz.Repository for PostgreSQL.
type QuizRepository struct {
	conn *Connection
}

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(conn *Connection) *QuizRepository {
	return &QuizRepository{conn: conn}
}

type questionRecord struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Text    string         `json:"text"`
	Points  int            `json:"points"`
	Options []optionRecord `json:"options,omitempty"`
}

type optionRecord struct {
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// FindByID returns a quiz with its questions.
func (r *QuizRepository) FindByID(ctx context.Context, id string) (*quiz.Quiz, error) {
	query := `
		SELECT id, course_id, section_id, title, passing_score, questions
		FROM quizzes
		WHERE id = $1
	`

	var q quiz.Quiz
	var sectionID *string
	var questionsJSON []byte

	err := r.conn.QueryRow(ctx, query, id).Scan(
		&q.ID,
		&q.CourseID,
		&sectionID,
		&q.Title,
		&q.PassingScore,
		&questionsJSON,
	)

	if IsNoRows(err) {
		return nil, quiz.ErrQuizNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan quiz: %w", err)
	}

	if sectionID != nil {
		q.SectionID = *sectionID
	}

	var questions []questionRecord
	if err := json.Unmarshal(questionsJSON, &questions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal questions: %w", err)
	}

	for _, rec := range questions {
		question := quiz.Question{
			ID:     rec.ID,
			Type:   quiz.QuestionType(rec.Type),
			Text:   rec.Text,
			Points: rec.Points,
		}
		for _, opt := range rec.Options {
			question.Options = append(question.Options, quiz.Option{
				Text:    opt.Text,
				Correct: opt.Correct,
			})
		}
		q.Questions = append(q.Questions, question)
	}

	return &q, nil
}

// Save persists a quiz snapshot. Used when the catalog read model is
// refreshed from the authoring service.
func (r *QuizRepository) Save(ctx context.Context, q *quiz.Quiz) error {
	questions := make([]questionRecord, 0, len(q.Questions))
	for _, question := range q.Questions {
		rec := questionRecord{
			ID:     question.ID,
			Type:   string(question.Type),
			Text:   question.Text,
			Points: question.Points,
		}
		for _, opt := range question.Options {
			rec.Options = append(rec.Options, optionRecord{
				Text:    opt.Text,
				Correct: opt.Correct,
			})
		}
		questions = append(questions, rec)
	}

	questionsJSON, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("failed to marshal questions: %w", err)
	}

	query := `
		INSERT INTO quizzes (id, course_id, section_id, title, passing_score, questions)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			course_id = EXCLUDED.course_id,
			section_id = EXCLUDED.section_id,
			title = EXCLUDED.title,
			passing_score = EXCLUDED.passing_score,
			questions = EXCLUDED.questions
	`

	var sectionID *string
	if q.SectionID != "" {
		sectionID = &q.SectionID
	}

	_, err = r.conn.Exec(ctx, query,
		q.ID,
		q.CourseID,
		sectionID,
		q.Title,
		q.PassingScore,
		questionsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save quiz: %w", err)
	}

	return nil
}
