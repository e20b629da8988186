package quiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mcQuestion(id string, correct ...int) Question {
	options := []Option{{Text: "a"}, {Text: "b"}, {Text: "c"}, {Text: "d"}}
	for _, idx := range correct {
		options[idx].Correct = true
	}
	return Question{ID: id, Type: QuestionTypeMultipleChoice, Text: "q", Points: 1, Options: options}
}

func TestEvaluate_ScoreAndPassing(t *testing.T) {
	q := &Quiz{
		ID:           "quiz-1",
		CourseID:     "course-1",
		PassingScore: 70,
		Questions: []Question{
			mcQuestion("q1", 0),
			mcQuestion("q2", 1),
			mcQuestion("q3", 2),
			mcQuestion("q4", 3),
		},
	}

	result, err := Evaluate(q, []Answer{
		{QuestionID: "q1", SelectedOptions: []int{0}},
		{QuestionID: "q2", SelectedOptions: []int{1}},
		{QuestionID: "q3", SelectedOptions: []int{2}},
		{QuestionID: "q4", SelectedOptions: []int{0}}, // wrong
	})
	require.NoError(t, err)

	assert.Equal(t, 75, result.Score)
	assert.Equal(t, 3, result.CorrectCount)
	assert.Equal(t, 4, result.TotalQuestions)
	assert.True(t, result.Passed)
	assert.False(t, result.Perfect)
}

func TestEvaluate_Perfect(t *testing.T) {
	q := &Quiz{ID: "quiz-1", PassingScore: 70, Questions: []Question{mcQuestion("q1", 0)}}

	result, err := Evaluate(q, []Answer{{QuestionID: "q1", SelectedOptions: []int{0}}})
	require.NoError(t, err)

	assert.Equal(t, 100, result.Score)
	assert.True(t, result.Passed)
	assert.True(t, result.Perfect)
}

func TestEvaluate_MultiSelectSetEquality(t *testing.T) {
	q := &Quiz{ID: "quiz-1", PassingScore: 100, Questions: []Question{mcQuestion("q1", 0, 2)}}

	cases := []struct {
		name     string
		selected []int
		correct  bool
	}{
		{"exact match", []int{0, 2}, true},
		{"order irrelevant", []int{2, 0}, true},
		{"partial selection", []int{0}, false},
		{"extra selection", []int{0, 1, 2}, false},
		{"duplicate index is not a second pick", []int{0, 0}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := Evaluate(q, []Answer{{QuestionID: "q1", SelectedOptions: tc.selected}})
			require.NoError(t, err)
			assert.Equal(t, tc.correct, result.Passed)
		})
	}
}

func TestEvaluate_UnansweredIsIncorrect(t *testing.T) {
	q := &Quiz{
		ID:           "quiz-1",
		PassingScore: 50,
		Questions:    []Question{mcQuestion("q1", 0), mcQuestion("q2", 1)},
	}

	result, err := Evaluate(q, []Answer{{QuestionID: "q1", SelectedOptions: []int{0}}})
	require.NoError(t, err)

	assert.Equal(t, 50, result.Score)
	assert.Equal(t, 1, result.CorrectCount)
	assert.True(t, result.Passed)
}

func TestEvaluate_ZeroScoreAndZeroPassingScore(t *testing.T) {
	q := &Quiz{ID: "quiz-1", PassingScore: 0, Questions: []Question{mcQuestion("q1", 0)}}

	result, err := Evaluate(q, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Score)
	// score >= passingScore holds even at zero.
	assert.True(t, result.Passed)
}

func TestEvaluate_UnsupportedQuestionType(t *testing.T) {
	q := &Quiz{
		ID:           "quiz-1",
		PassingScore: 70,
		Questions: []Question{
			mcQuestion("q1", 0),
			{ID: "q2", Type: QuestionTypeTrueFalse, Text: "tf"},
		},
	}

	_, err := Evaluate(q, []Answer{{QuestionID: "q1", SelectedOptions: []int{0}}})
	assert.ErrorIs(t, err, ErrUnsupportedQuestionType)
}

func TestEvaluate_NoQuestions(t *testing.T) {
	q := &Quiz{ID: "quiz-1", PassingScore: 70}

	_, err := Evaluate(q, nil)
	assert.ErrorIs(t, err, ErrNoQuestions)
}
