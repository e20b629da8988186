package command

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulearn-hub/enrollment-hub/internal/domain/quiz"
	"github.com/edulearn-hub/enrollment-hub/internal/domain/shared"
)

type fakeQuizRepo struct {
	mu   sync.Mutex
	byID map[string]*quiz.Quiz
}

func newFakeQuizRepo(quizzes ...*quiz.Quiz) *fakeQuizRepo {
	r := &fakeQuizRepo{byID: make(map[string]*quiz.Quiz)}
	for _, q := range quizzes {
		r.byID[q.ID] = q
	}
	return r
}

func (r *fakeQuizRepo) FindByID(_ context.Context, id string) (*quiz.Quiz, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.byID[id]
	if !ok {
		return nil, quiz.ErrQuizNotFound
	}
	return q, nil
}

func testQuiz(id string, passingScore int, questions int) *quiz.Quiz {
	q := &quiz.Quiz{ID: id, CourseID: "course-1", PassingScore: passingScore}
	for i := 0; i < questions; i++ {
		q.Questions = append(q.Questions, quiz.Question{
			ID:   id + "-q" + string(rune('a'+i)),
			Type: quiz.QuestionTypeMultipleChoice,
			Options: []quiz.Option{
				{Text: "right", Correct: true},
				{Text: "wrong"},
			},
		})
	}
	return q
}

func allCorrect(q *quiz.Quiz) []quiz.Answer {
	answers := make([]quiz.Answer, 0, len(q.Questions))
	for _, question := range q.Questions {
		answers = append(answers, quiz.Answer{QuestionID: question.ID, SelectedOptions: []int{0}})
	}
	return answers
}

func TestSubmitQuizAttempt_PassCompletesUnit(t *testing.T) {
	repo := newFakeEnrollmentRepo()
	enr := provisionedEnrollment(t, repo, 1, 1)
	quizID := ""
	for _, entry := range enr.Progress {
		if entry.QuizID != "" {
			quizID = entry.QuizID
		}
	}
	require.NotEmpty(t, quizID)

	q := testQuiz(quizID, 70, 4)
	pub := &fakePublisher{}
	h := NewSubmitQuizAttemptHandler(repo, newFakeQuizRepo(q), &fakeCache{}, pub, nil)

	result, err := h.Handle(context.Background(), SubmitQuizAttemptCommand{
		EnrollmentID: enr.ID,
		StudentID:    "student-1",
		QuizID:       quizID,
		Answers:      allCorrect(q),
	})
	require.NoError(t, err)

	assert.Equal(t, 100, result.Score)
	assert.True(t, result.Passed)
	assert.True(t, result.Perfect)
	assert.Equal(t, 1, result.Attempt)
	assert.True(t, result.NewlyCompleted)
	assert.False(t, result.CourseCompleted) // the lesson is still open
	assert.Equal(t, 50.0, result.ProgressPercent)
	assert.Len(t, pub.byType(shared.EventQuizAttemptRegistered), 1)
	assert.Len(t, pub.byType(shared.EventLearningUnitCompleted), 1)
}

func TestSubmitQuizAttempt_BestScoreSurvivesWorseRetry(t *testing.T) {
	repo := newFakeEnrollmentRepo()
	enr := provisionedEnrollment(t, repo, 1, 1)
	var quizID string
	for _, entry := range enr.Progress {
		if entry.QuizID != "" {
			quizID = entry.QuizID
		}
	}

	// Passing score 90: 3 of 5 correct (60) fails, 2 of 5 (40) fails lower.
	q := testQuiz(quizID, 90, 5)
	h := NewSubmitQuizAttemptHandler(repo, newFakeQuizRepo(q), &fakeCache{}, &fakePublisher{}, nil)

	answers := allCorrect(q)
	answers[3].SelectedOptions = []int{1}
	answers[4].SelectedOptions = []int{1}
	first, err := h.Handle(context.Background(), SubmitQuizAttemptCommand{
		EnrollmentID: enr.ID, StudentID: "student-1", QuizID: quizID, Answers: answers,
	})
	require.NoError(t, err)
	assert.Equal(t, 60, first.Score)
	assert.Equal(t, 60, first.BestScore)
	assert.False(t, first.Passed)

	answers[2].SelectedOptions = []int{1}
	second, err := h.Handle(context.Background(), SubmitQuizAttemptCommand{
		EnrollmentID: enr.ID, StudentID: "student-1", QuizID: quizID, Answers: answers,
	})
	require.NoError(t, err)
	assert.Equal(t, 40, second.Score)
	assert.Equal(t, 60, second.BestScore) // best attempt wins
	assert.Equal(t, 2, second.Attempt)
	assert.False(t, second.NewlyCompleted)
}

func TestSubmitQuizAttempt_RejectsFinishedEnrollment(t *testing.T) {
	repo := newFakeEnrollmentRepo()
	enr := provisionedEnrollment(t, repo, 0, 1)
	var quizID string
	for _, entry := range enr.Progress {
		quizID = entry.QuizID
	}

	q := testQuiz(quizID, 50, 2)
	h := NewSubmitQuizAttemptHandler(repo, newFakeQuizRepo(q), &fakeCache{}, &fakePublisher{}, nil)

	first, err := h.Handle(context.Background(), SubmitQuizAttemptCommand{
		EnrollmentID: enr.ID, StudentID: "student-1", QuizID: quizID, Answers: allCorrect(q),
	})
	require.NoError(t, err)
	assert.True(t, first.CourseCompleted)

	// Unlike lesson reports, a deliberate submission is rejected.
	_, err = h.Handle(context.Background(), SubmitQuizAttemptCommand{
		EnrollmentID: enr.ID, StudentID: "student-1", QuizID: quizID, Answers: allCorrect(q),
	})
	assert.True(t, shared.IsBadRequest(err))
}

func TestSubmitQuizAttempt_UnsupportedQuestionType(t *testing.T) {
	repo := newFakeEnrollmentRepo()
	enr := provisionedEnrollment(t, repo, 1, 1)
	var quizID string
	for _, entry := range enr.Progress {
		if entry.QuizID != "" {
			quizID = entry.QuizID
		}
	}

	q := testQuiz(quizID, 70, 2)
	q.Questions = append(q.Questions, quiz.Question{ID: "tf", Type: quiz.QuestionTypeTrueFalse})
	h := NewSubmitQuizAttemptHandler(repo, newFakeQuizRepo(q), &fakeCache{}, &fakePublisher{}, nil)

	_, err := h.Handle(context.Background(), SubmitQuizAttemptCommand{
		EnrollmentID: enr.ID, StudentID: "student-1", QuizID: quizID, Answers: allCorrect(q),
	})
	assert.True(t, shared.IsUnsupported(err))

	// Nothing was registered on the entry.
	entry, findErr := enr.FindQuizProgress(quizID)
	require.NoError(t, findErr)
	assert.Equal(t, 0, entry.Attempts)
}

func TestSubmitQuizAttempt_RejectsForeignEnrollment(t *testing.T) {
	repo := newFakeEnrollmentRepo()
	enr := provisionedEnrollment(t, repo, 1, 1)
	var quizID string
	for _, entry := range enr.Progress {
		if entry.QuizID != "" {
			quizID = entry.QuizID
		}
	}

	q := testQuiz(quizID, 70, 2)
	h := NewSubmitQuizAttemptHandler(repo, newFakeQuizRepo(q), &fakeCache{}, &fakePublisher{}, nil)

	_, err := h.Handle(context.Background(), SubmitQuizAttemptCommand{
		EnrollmentID: enr.ID, StudentID: "intruder", QuizID: quizID, Answers: allCorrect(q),
	})
	assert.True(t, shared.IsNotAuthorized(err))
}
