package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulearn-hub/enrollment-hub/internal/domain/enrollment"
	"github.com/edulearn-hub/enrollment-hub/internal/domain/shared"
)

func provisionedEnrollment(t *testing.T, repo *fakeEnrollmentRepo, lessons, quizzes int) *enrollment.Enrollment {
	t.Helper()
	courses := newFakeCourseRepo(testCourse("course-1", lessons, quizzes))
	h := NewProvisionEnrollmentHandler(repo, courses, &fakePublisher{}, nil)

	_, err := h.Handle(context.Background(), ProvisionEnrollmentCommand{
		OrderID:   "order-1",
		StudentID: "student-1",
		Items:     []ProvisionItem{{CourseID: "course-1"}},
	})
	require.NoError(t, err)

	enr, err := repo.GetByStudentAndCourse(context.Background(), "student-1", "course-1")
	require.NoError(t, err)
	return enr
}

func TestUpdateLessonProgress_ReportsNewCompletion(t *testing.T) {
	repo := newFakeEnrollmentRepo()
	enr := provisionedEnrollment(t, repo, 2, 0)
	lessonID := enr.Progress[0].LessonID
	cache := &fakeCache{}
	pub := &fakePublisher{}
	h := NewUpdateLessonProgressHandler(repo, cache, pub, nil)

	// 80% of a 600s lesson.
	result, err := h.Handle(context.Background(), UpdateLessonProgressCommand{
		EnrollmentID: enr.ID,
		StudentID:    "student-1",
		LessonID:     lessonID,
		CurrentTime:  480,
		Absolute:     true,
	})
	require.NoError(t, err)

	assert.True(t, result.LessonCompleted)
	assert.True(t, result.NewlyCompleted)
	assert.False(t, result.CourseCompleted)
	assert.Equal(t, 50.0, result.ProgressPercent)
	assert.Contains(t, cache.invalidated, enr.ID)
	assert.Len(t, pub.byType(shared.EventLearningUnitCompleted), 1)

	// Watching further is not a new completion.
	result, err = h.Handle(context.Background(), UpdateLessonProgressCommand{
		EnrollmentID: enr.ID,
		StudentID:    "student-1",
		LessonID:     lessonID,
		CurrentTime:  600,
		Absolute:     true,
	})
	require.NoError(t, err)
	assert.True(t, result.LessonCompleted)
	assert.False(t, result.NewlyCompleted)
	assert.Len(t, pub.byType(shared.EventLearningUnitCompleted), 1)
}

func TestUpdateLessonProgress_LastLessonCompletesCourse(t *testing.T) {
	repo := newFakeEnrollmentRepo()
	enr := provisionedEnrollment(t, repo, 1, 0)
	pub := &fakePublisher{}
	h := NewUpdateLessonProgressHandler(repo, &fakeCache{}, pub, nil)

	result, err := h.Handle(context.Background(), UpdateLessonProgressCommand{
		EnrollmentID: enr.ID,
		StudentID:    "student-1",
		LessonID:     enr.Progress[0].LessonID,
		CurrentTime:  600,
		Absolute:     true,
	})
	require.NoError(t, err)

	assert.True(t, result.CourseCompleted)
	assert.Equal(t, 100.0, result.ProgressPercent)
	assert.Len(t, pub.byType(shared.EventCourseCompleted), 1)

	stored, err := repo.GetByID(context.Background(), enr.ID, enrollment.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusCompleted, stored.Status)
}

func TestUpdateLessonProgress_FinishedEnrollmentShortCircuits(t *testing.T) {
	repo := newFakeEnrollmentRepo()
	enr := provisionedEnrollment(t, repo, 1, 0)
	pub := &fakePublisher{}
	h := NewUpdateLessonProgressHandler(repo, &fakeCache{}, pub, nil)

	lessonID := enr.Progress[0].LessonID
	_, err := h.Handle(context.Background(), UpdateLessonProgressCommand{
		EnrollmentID: enr.ID,
		StudentID:    "student-1",
		LessonID:     lessonID,
		CurrentTime:  600,
		Absolute:     true,
	})
	require.NoError(t, err)

	// The player keeps reporting; the stored state answers, nothing changes.
	result, err := h.Handle(context.Background(), UpdateLessonProgressCommand{
		EnrollmentID: enr.ID,
		StudentID:    "student-1",
		LessonID:     lessonID,
		CurrentTime:  601,
		Absolute:     true,
	})
	require.NoError(t, err)
	assert.True(t, result.AlreadyFinished)
	assert.True(t, result.LessonCompleted)
	assert.Equal(t, 600, result.WatchTime)
	assert.Len(t, pub.byType(shared.EventCourseCompleted), 1)
}

func TestUpdateLessonProgress_RejectsForeignEnrollment(t *testing.T) {
	repo := newFakeEnrollmentRepo()
	enr := provisionedEnrollment(t, repo, 1, 0)
	h := NewUpdateLessonProgressHandler(repo, &fakeCache{}, &fakePublisher{}, nil)

	_, err := h.Handle(context.Background(), UpdateLessonProgressCommand{
		EnrollmentID: enr.ID,
		StudentID:    "student-2",
		LessonID:     enr.Progress[0].LessonID,
		CurrentTime:  60,
		Absolute:     true,
	})
	assert.True(t, shared.IsNotAuthorized(err))
}

func TestUpdateLessonProgress_UnknownLesson(t *testing.T) {
	repo := newFakeEnrollmentRepo()
	enr := provisionedEnrollment(t, repo, 1, 0)
	h := NewUpdateLessonProgressHandler(repo, &fakeCache{}, &fakePublisher{}, nil)

	_, err := h.Handle(context.Background(), UpdateLessonProgressCommand{
		EnrollmentID: enr.ID,
		StudentID:    "student-1",
		LessonID:     "no-such-lesson",
		CurrentTime:  60,
		Absolute:     true,
	})
	assert.ErrorIs(t, err, enrollment.ErrProgressNotFound)
}

func TestDropEnrollment(t *testing.T) {
	repo := newFakeEnrollmentRepo()
	enr := provisionedEnrollment(t, repo, 2, 0)
	pub := &fakePublisher{}
	h := NewDropEnrollmentHandler(repo, &fakeCache{}, pub, nil)

	result, err := h.Handle(context.Background(), DropEnrollmentCommand{
		EnrollmentID: enr.ID,
		StudentID:    "student-1",
	})
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusDropped, result.Status)
	assert.Len(t, pub.byType(shared.EventEnrollmentDropped), 1)

	// Dropping twice is an error.
	_, err = h.Handle(context.Background(), DropEnrollmentCommand{
		EnrollmentID: enr.ID,
		StudentID:    "student-1",
	})
	assert.ErrorIs(t, err, enrollment.ErrAlreadyDropped)
}

func TestDeleteEnrollment(t *testing.T) {
	repo := newFakeEnrollmentRepo()
	enr := provisionedEnrollment(t, repo, 1, 0)
	cache := &fakeCache{}
	h := NewDeleteEnrollmentHandler(repo, cache, nil)

	err := h.Handle(context.Background(), DeleteEnrollmentCommand{
		EnrollmentID: enr.ID,
		RequestedBy:  "admin-1",
		Reason:       "chargeback",
	})
	require.NoError(t, err)
	assert.True(t, enr.IsDeleted())
	assert.Contains(t, cache.invalidated, enr.ID)

	err = h.Handle(context.Background(), DeleteEnrollmentCommand{
		EnrollmentID: "no-such-enrollment",
		RequestedBy:  "admin-1",
	})
	assert.ErrorIs(t, err, enrollment.ErrEnrollmentNotFound)
}
