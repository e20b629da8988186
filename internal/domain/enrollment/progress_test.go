package enrollment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLessonEntry(t *testing.T, duration int) *ProgressEntry {
	t.Helper()
	entry, err := NewLessonProgress("pe-1", "enr-1", "lesson-1", duration)
	require.NoError(t, err)
	return entry
}

func newQuizEntry(t *testing.T) *ProgressEntry {
	t.Helper()
	entry, err := NewQuizProgress("pe-2", "enr-1", "quiz-1")
	require.NoError(t, err)
	return entry
}

func TestUpdateWatchProgress_AbsoluteIsMonotonic(t *testing.T) {
	entry := newLessonEntry(t, 600)

	err := entry.UpdateWatchProgress(120.7, 0, true)
	require.NoError(t, err)
	assert.Equal(t, 120, entry.WatchTime) // floor

	// Rewinding the player must not reduce watch time.
	err = entry.UpdateWatchProgress(30, 0, true)
	require.NoError(t, err)
	assert.Equal(t, 120, entry.WatchTime)
}

func TestUpdateWatchProgress_RelativeFlooredAtZero(t *testing.T) {
	entry := newLessonEntry(t, 600)

	err := entry.UpdateWatchProgress(50, 0, false)
	require.NoError(t, err)
	assert.Equal(t, 50, entry.WatchTime)

	err = entry.UpdateWatchProgress(-200, 0, false)
	require.NoError(t, err)
	assert.Equal(t, 0, entry.WatchTime)
}

func TestUpdateWatchProgress_DurationOverwrite(t *testing.T) {
	entry := newLessonEntry(t, 600)

	err := entry.UpdateWatchProgress(10, 300, true)
	require.NoError(t, err)
	assert.Equal(t, 300, entry.Duration)

	// Zero duration keeps the stored one.
	err = entry.UpdateWatchProgress(20, 0, true)
	require.NoError(t, err)
	assert.Equal(t, 300, entry.Duration)
}

func TestUpdateWatchProgress_CompletionAtThreshold(t *testing.T) {
	entry := newLessonEntry(t, 100)

	err := entry.UpdateWatchProgress(79, 0, true)
	require.NoError(t, err)
	assert.False(t, entry.Completed)
	assert.Nil(t, entry.CompletedAt)

	err = entry.UpdateWatchProgress(80, 0, true)
	require.NoError(t, err)
	assert.True(t, entry.Completed)
	require.NotNil(t, entry.CompletedAt)
	assert.False(t, entry.WasPreviouslyCompleted())

	completedAt := *entry.CompletedAt

	// Completion is irreversible and the timestamp never moves.
	err = entry.UpdateWatchProgress(100, 0, true)
	require.NoError(t, err)
	assert.True(t, entry.Completed)
	assert.Equal(t, completedAt, *entry.CompletedAt)
	assert.True(t, entry.WasPreviouslyCompleted())
}

func TestUpdateWatchProgress_RejectsQuizEntry(t *testing.T) {
	entry := newQuizEntry(t)

	err := entry.UpdateWatchProgress(10, 0, true)
	assert.ErrorIs(t, err, ErrWrongUnitType)
}

func TestRegisterQuizAttempt_BestScoreWins(t *testing.T) {
	entry := newQuizEntry(t)

	require.NoError(t, entry.RegisterQuizAttempt(60, false))
	require.NoError(t, entry.RegisterQuizAttempt(40, false))

	assert.Equal(t, 60, entry.Score)
	assert.Equal(t, 2, entry.Attempts)
	assert.False(t, entry.Passed)
	assert.False(t, entry.Completed)
}

func TestRegisterQuizAttempt_PassCompletesOnce(t *testing.T) {
	entry := newQuizEntry(t)

	require.NoError(t, entry.RegisterQuizAttempt(85, true))
	assert.True(t, entry.Passed)
	assert.True(t, entry.Completed)
	require.NotNil(t, entry.CompletedAt)
	assert.False(t, entry.WasPreviouslyCompleted())

	completedAt := *entry.CompletedAt

	// A later failing attempt never un-completes the entry.
	require.NoError(t, entry.RegisterQuizAttempt(20, false))
	assert.True(t, entry.Completed)
	assert.True(t, entry.Passed)
	assert.Equal(t, 85, entry.Score)
	assert.Equal(t, completedAt, *entry.CompletedAt)
	assert.True(t, entry.WasPreviouslyCompleted())
}

func TestRegisterQuizAttempt_RejectsLessonEntry(t *testing.T) {
	entry := newLessonEntry(t, 600)

	err := entry.RegisterQuizAttempt(80, true)
	assert.ErrorIs(t, err, ErrWrongUnitType)
}

func TestRegisterQuizAttempt_RejectsOutOfRangeScore(t *testing.T) {
	entry := newQuizEntry(t)

	assert.ErrorIs(t, entry.RegisterQuizAttempt(-1, false), ErrInvalidScore)
	assert.ErrorIs(t, entry.RegisterQuizAttempt(101, false), ErrInvalidScore)
	assert.Equal(t, 0, entry.Attempts)
}
