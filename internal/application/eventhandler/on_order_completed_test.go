package eventhandler

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulearn-hub/enrollment-hub/internal/application/command"
	"github.com/edulearn-hub/enrollment-hub/internal/domain/course"
	"github.com/edulearn-hub/enrollment-hub/internal/domain/enrollment"
	"github.com/edulearn-hub/enrollment-hub/internal/domain/shared"
)

type memProcessedStore struct {
	mu        sync.Mutex
	processed map[string]bool
	marks     int
}

func newMemProcessedStore() *memProcessedStore {
	return &memProcessedStore{processed: make(map[string]bool)}
}

func (s *memProcessedStore) IsProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed[eventID], nil
}

func (s *memProcessedStore) MarkAsProcessed(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[eventID] = true
	s.marks++
	return nil
}

type memEnrollmentRepo struct {
	mu   sync.Mutex
	byID map[string]*enrollment.Enrollment
}

func newMemEnrollmentRepo() *memEnrollmentRepo {
	return &memEnrollmentRepo{byID: make(map[string]*enrollment.Enrollment)}
}

func (r *memEnrollmentRepo) Upsert(_ context.Context, enr *enrollment.Enrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[enr.ID] = enr
	return nil
}

func (r *memEnrollmentRepo) GetByID(_ context.Context, id string, _ enrollment.GetOptions) (*enrollment.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if enr, ok := r.byID[id]; ok {
		return enr, nil
	}
	return nil, enrollment.ErrEnrollmentNotFound
}

func (r *memEnrollmentRepo) GetByStudentAndCourse(_ context.Context, studentID, courseID string) (*enrollment.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, enr := range r.byID {
		if enr.StudentID == studentID && enr.CourseID == courseID {
			return enr, nil
		}
	}
	return nil, enrollment.ErrEnrollmentNotFound
}

func (r *memEnrollmentRepo) ListByStudent(_ context.Context, _ string, _ enrollment.ListOptions) ([]*enrollment.Enrollment, error) {
	return nil, nil
}

func (r *memEnrollmentRepo) ListByCourse(_ context.Context, _ string, _ enrollment.ListOptions) ([]*enrollment.Enrollment, error) {
	return nil, nil
}

func (r *memEnrollmentRepo) Remove(_ context.Context, _ string) error { return nil }

func (r *memEnrollmentRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

type memCourseRepo struct {
	byID map[string]*course.Course
}

func (r *memCourseRepo) FindByID(_ context.Context, id string) (*course.Course, error) {
	if crs, ok := r.byID[id]; ok {
		return crs, nil
	}
	return nil, course.ErrCourseNotFound
}

func (r *memCourseRepo) Save(_ context.Context, crs *course.Course) error {
	r.byID[crs.ID] = crs
	return nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(_ shared.Event) error { return nil }

func newHandlerUnderTest(t *testing.T) (*OnOrderCompletedHandler, *memProcessedStore, *memEnrollmentRepo) {
	t.Helper()
	store := newMemProcessedStore()
	repo := newMemEnrollmentRepo()
	courses := &memCourseRepo{byID: map[string]*course.Course{
		"course-1": {
			ID:           "course-1",
			InstructorID: "instructor-1",
			Lessons:      []course.Lesson{{ID: "lesson-1", DurationSeconds: 600}},
		},
	}}
	provisioner := command.NewProvisionEnrollmentHandler(repo, courses, nopPublisher{}, nil)
	return NewOnOrderCompletedHandler(store, provisioner, nil), store, repo
}

func TestOnOrderCompleted_ProvisionsAndMarks(t *testing.T) {
	h, store, repo := newHandlerUnderTest(t)

	event := shared.NewOrderCompletedEvent("evt-1", "order-1", "student-1", 49.99, "USD",
		[]shared.OrderItem{{CourseID: "course-1", Price: 49.99}})

	require.NoError(t, h.Handle(event))

	assert.Equal(t, 1, repo.count())
	processed, err := store.IsProcessed(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestOnOrderCompleted_RedeliveryIsNoOp(t *testing.T) {
	h, store, repo := newHandlerUnderTest(t)

	event := shared.NewOrderCompletedEvent("evt-1", "order-1", "student-1", 49.99, "USD",
		[]shared.OrderItem{{CourseID: "course-1", Price: 49.99}})

	require.NoError(t, h.Handle(event))
	require.NoError(t, h.Handle(event))

	assert.Equal(t, 1, repo.count())
	assert.Equal(t, 1, store.marks) // marked exactly once
}

func TestOnOrderCompleted_SameOrderNewEventIDStillSafe(t *testing.T) {
	// A broker that re-wraps the payload under a fresh event ID passes the
	// event-level check; item-level idempotency still prevents duplicates.
	h, _, repo := newHandlerUnderTest(t)

	items := []shared.OrderItem{{CourseID: "course-1", Price: 49.99}}
	require.NoError(t, h.Handle(shared.NewOrderCompletedEvent("evt-1", "order-1", "student-1", 49.99, "USD", items)))
	require.NoError(t, h.Handle(shared.NewOrderCompletedEvent("evt-2", "order-1", "student-1", 49.99, "USD", items)))

	assert.Equal(t, 1, repo.count())
}

func TestOnOrderCompleted_IgnoresForeignEvents(t *testing.T) {
	h, store, repo := newHandlerUnderTest(t)

	event := shared.NewEnrollmentDroppedEvent("evt-x", "enr-1", "student-1", "course-1")
	require.NoError(t, h.Handle(event))

	assert.Equal(t, 0, repo.count())
	assert.Equal(t, 0, store.marks)
}

func TestOnOrderCompleted_PartialFailureKeepsEventUnprocessed(t *testing.T) {
	store := newMemProcessedStore()
	repo := newMemEnrollmentRepo()
	courses := &memCourseRepo{byID: map[string]*course.Course{
		"course-1": {
			ID:           "course-1",
			InstructorID: "instructor-1",
			Lessons:      []course.Lesson{{ID: "lesson-1", DurationSeconds: 600}},
		},
	}}
	provisioner := command.NewProvisionEnrollmentHandler(repo, courses, nopPublisher{}, nil)
	h := NewOnOrderCompletedHandler(store, provisioner, nil)

	// course-2 is not in the catalog yet, so that item fails.
	event := shared.NewOrderCompletedEvent("evt-1", "order-1", "student-1", 99.98, "USD",
		[]shared.OrderItem{
			{CourseID: "course-1", Price: 49.99},
			{CourseID: "course-2", Price: 49.99},
		})

	require.Error(t, h.Handle(event))
	assert.Equal(t, 1, repo.count())
	assert.Equal(t, 0, store.marks) // broker keeps redelivering

	// After the catalog catches up, redelivery completes the order.
	courses.byID["course-2"] = &course.Course{
		ID:           "course-2",
		InstructorID: "instructor-1",
		Lessons:      []course.Lesson{{ID: "lesson-2", DurationSeconds: 300}},
	}
	require.NoError(t, h.Handle(event))
	assert.Equal(t, 2, repo.count())
	assert.Equal(t, 1, store.marks)
}
