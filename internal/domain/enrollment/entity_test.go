package enrollment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulearn-hub/enrollment-hub/internal/domain/shared"
)

func newTestEnrollment(t *testing.T) *Enrollment {
	t.Helper()
	enr, err := NewEnrollment(NewEnrollmentParams{
		ID:           "enr-1",
		StudentID:    "student-1",
		CourseID:     "course-1",
		OrderID:      "order-1",
		InstructorID: "instructor-1",
	})
	require.NoError(t, err)
	return enr
}

func seedLesson(t *testing.T, enr *Enrollment, id, lessonID string, duration int) *ProgressEntry {
	t.Helper()
	entry, err := NewLessonProgress(id, enr.ID, lessonID, duration)
	require.NoError(t, err)
	enr.UpdateProgressEntry(entry)
	return entry
}

func seedQuiz(t *testing.T, enr *Enrollment, id, quizID string) *ProgressEntry {
	t.Helper()
	entry, err := NewQuizProgress(id, enr.ID, quizID)
	require.NoError(t, err)
	enr.UpdateProgressEntry(entry)
	return entry
}

func TestNewEnrollment(t *testing.T) {
	enr := newTestEnrollment(t)

	assert.Equal(t, StatusActive, enr.Status)
	assert.Equal(t, shared.Percent(0), enr.ProgressPercent)
	assert.Equal(t, 0, enr.TotalLearningUnits)
	assert.Empty(t, enr.Progress)
	assert.Nil(t, enr.CompletedAt)
	assert.False(t, enr.IsDeleted())
}

func TestNewEnrollment_RequiresFields(t *testing.T) {
	_, err := NewEnrollment(NewEnrollmentParams{ID: "enr-1", StudentID: "s", CourseID: "c"})
	assert.ErrorIs(t, err, ErrInvalidEnrollment)
}

func TestUpdateProgressEntry_SeedingCountsUnits(t *testing.T) {
	enr := newTestEnrollment(t)

	seedLesson(t, enr, "pe-1", "lesson-1", 600)
	seedLesson(t, enr, "pe-2", "lesson-2", 300)
	seedQuiz(t, enr, "pe-3", "quiz-1")

	assert.Equal(t, 3, enr.TotalLearningUnits)
	assert.Equal(t, 0, enr.CompletedLearningUnits)
	assert.Equal(t, shared.Percent(0), enr.ProgressPercent)
	assert.Len(t, enr.Progress, 3)
}

func TestUpdateProgressEntry_RollupConsistency(t *testing.T) {
	enr := newTestEnrollment(t)
	lesson1 := seedLesson(t, enr, "pe-1", "lesson-1", 100)
	seedLesson(t, enr, "pe-2", "lesson-2", 100)
	seedLesson(t, enr, "pe-3", "lesson-3", 100)

	require.NoError(t, lesson1.UpdateWatchProgress(90, 0, true))
	result := enr.UpdateProgressEntry(lesson1)

	assert.True(t, result.UnitCompleted)
	assert.False(t, result.CourseCompleted)
	assert.Equal(t, 1, enr.CompletedLearningUnits)
	assert.Equal(t, shared.Round2(1, 3), enr.ProgressPercent)
	assert.Equal(t, shared.Percent(33.33), enr.ProgressPercent)
	assert.Equal(t, StatusActive, enr.Status)
}

func TestUpdateProgressEntry_CompletionCountedOnce(t *testing.T) {
	enr := newTestEnrollment(t)
	lesson := seedLesson(t, enr, "pe-1", "lesson-1", 100)
	seedLesson(t, enr, "pe-2", "lesson-2", 100)

	require.NoError(t, lesson.UpdateWatchProgress(90, 0, true))
	result := enr.UpdateProgressEntry(lesson)
	assert.True(t, result.UnitCompleted)

	// Further watching of an already-complete lesson must not double-count.
	require.NoError(t, lesson.UpdateWatchProgress(100, 0, true))
	result = enr.UpdateProgressEntry(lesson)
	assert.False(t, result.UnitCompleted)
	assert.Equal(t, 1, enr.CompletedLearningUnits)
}

func TestUpdateProgressEntry_AutoCompletesCourseExactlyOnce(t *testing.T) {
	enr := newTestEnrollment(t)
	lesson := seedLesson(t, enr, "pe-1", "lesson-1", 100)
	quiz := seedQuiz(t, enr, "pe-2", "quiz-1")

	require.NoError(t, lesson.UpdateWatchProgress(100, 0, true))
	result := enr.UpdateProgressEntry(lesson)
	assert.False(t, result.CourseCompleted)

	require.NoError(t, quiz.RegisterQuizAttempt(90, true))
	result = enr.UpdateProgressEntry(quiz)
	assert.True(t, result.UnitCompleted)
	assert.True(t, result.CourseCompleted)
	assert.Equal(t, StatusCompleted, enr.Status)
	assert.Equal(t, shared.Percent(100), enr.ProgressPercent)
	require.NotNil(t, enr.CompletedAt)

	completedAt := *enr.CompletedAt

	// A further attempt on the completed course leaves the transition alone.
	require.NoError(t, quiz.RegisterQuizAttempt(100, true))
	result = enr.UpdateProgressEntry(quiz)
	assert.False(t, result.CourseCompleted)
	assert.Equal(t, StatusCompleted, enr.Status)
	assert.Equal(t, completedAt, *enr.CompletedAt)
}

func TestUpdateProgressEntry_ReplacesExternallyLoadedEntry(t *testing.T) {
	enr := newTestEnrollment(t)
	seedLesson(t, enr, "pe-1", "lesson-1", 100)

	// Same unit loaded through the progress repository as a separate value.
	reloaded, err := NewLessonProgress("pe-1", enr.ID, "lesson-1", 100)
	require.NoError(t, err)
	require.NoError(t, reloaded.UpdateWatchProgress(90, 0, true))

	result := enr.UpdateProgressEntry(reloaded)

	assert.True(t, result.UnitCompleted)
	assert.Equal(t, 1, enr.TotalLearningUnits)
	assert.Len(t, enr.Progress, 1)
	assert.Same(t, reloaded, enr.Progress[0])
}

func TestFindProgressEntry(t *testing.T) {
	enr := newTestEnrollment(t)
	lesson := seedLesson(t, enr, "pe-1", "lesson-1", 100)
	quiz := seedQuiz(t, enr, "pe-2", "quiz-1")

	found, err := enr.FindLessonProgress("lesson-1")
	require.NoError(t, err)
	assert.Same(t, lesson, found)

	found, err = enr.FindQuizProgress("quiz-1")
	require.NoError(t, err)
	assert.Same(t, quiz, found)

	// Quiz ID does not match via the lesson namespace.
	_, err = enr.FindLessonProgress("quiz-1")
	assert.ErrorIs(t, err, ErrProgressNotFound)
}

func TestDrop(t *testing.T) {
	enr := newTestEnrollment(t)

	require.NoError(t, enr.Drop())
	assert.Equal(t, StatusDropped, enr.Status)

	assert.ErrorIs(t, enr.Drop(), ErrAlreadyDropped)
}

func TestDrop_CompletedIsTerminal(t *testing.T) {
	enr := newTestEnrollment(t)
	lesson := seedLesson(t, enr, "pe-1", "lesson-1", 100)

	require.NoError(t, lesson.UpdateWatchProgress(100, 0, true))
	enr.UpdateProgressEntry(lesson)
	require.Equal(t, StatusCompleted, enr.Status)

	assert.ErrorIs(t, enr.Drop(), ErrCannotDrop)
}

func TestSoftDelete_Cascades(t *testing.T) {
	enr := newTestEnrollment(t)
	seedLesson(t, enr, "pe-1", "lesson-1", 100)
	seedQuiz(t, enr, "pe-2", "quiz-1")

	enr.SoftDelete()

	assert.True(t, enr.IsDeleted())
	for _, entry := range enr.Progress {
		assert.True(t, entry.IsDeleted())
	}
	assert.Empty(t, enr.ActiveProgress())

	// Idempotent: the marker never moves.
	deletedAt := *enr.DeletedAt
	enr.SoftDelete()
	assert.Equal(t, deletedAt, *enr.DeletedAt)
}

func TestIsOwnedBy(t *testing.T) {
	enr := newTestEnrollment(t)

	assert.True(t, enr.IsOwnedBy("student-1"))
	assert.False(t, enr.IsOwnedBy("student-2"))
}
