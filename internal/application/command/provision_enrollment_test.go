package command

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulearn-hub/enrollment-hub/internal/domain/course"
	"github.com/edulearn-hub/enrollment-hub/internal/domain/enrollment"
	"github.com/edulearn-hub/enrollment-hub/internal/domain/shared"
)

// ──────────────────────────────────────────────────────────────────────────────
// In-memory fakes
// ──────────────────────────────────────────────────────────────────────────────

type fakeEnrollmentRepo struct {
	mu          sync.Mutex
	byID        map[string]*enrollment.Enrollment
	upsertErr   error
	upsertCalls int
}

func newFakeEnrollmentRepo() *fakeEnrollmentRepo {
	return &fakeEnrollmentRepo{byID: make(map[string]*enrollment.Enrollment)}
}

func (r *fakeEnrollmentRepo) Upsert(_ context.Context, enr *enrollment.Enrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upsertCalls++
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.byID[enr.ID] = enr
	return nil
}

func (r *fakeEnrollmentRepo) GetByID(_ context.Context, id string, _ enrollment.GetOptions) (*enrollment.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	enr, ok := r.byID[id]
	if !ok {
		return nil, enrollment.ErrEnrollmentNotFound
	}
	return enr, nil
}

func (r *fakeEnrollmentRepo) GetByStudentAndCourse(_ context.Context, studentID, courseID string) (*enrollment.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, enr := range r.byID {
		if enr.StudentID == studentID && enr.CourseID == courseID {
			return enr, nil
		}
	}
	return nil, enrollment.ErrEnrollmentNotFound
}

func (r *fakeEnrollmentRepo) ListByStudent(_ context.Context, studentID string, _ enrollment.ListOptions) ([]*enrollment.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*enrollment.Enrollment, 0)
	for _, enr := range r.byID {
		if enr.StudentID == studentID {
			out = append(out, enr)
		}
	}
	return out, nil
}

func (r *fakeEnrollmentRepo) ListByCourse(_ context.Context, courseID string, _ enrollment.ListOptions) ([]*enrollment.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*enrollment.Enrollment, 0)
	for _, enr := range r.byID {
		if enr.CourseID == courseID {
			out = append(out, enr)
		}
	}
	return out, nil
}

func (r *fakeEnrollmentRepo) Remove(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	enr, ok := r.byID[id]
	if !ok {
		return enrollment.ErrEnrollmentNotFound
	}
	enr.SoftDelete()
	return nil
}

type fakeCourseRepo struct {
	mu        sync.Mutex
	byID      map[string]*course.Course
	saveCalls map[string]int
}

func newFakeCourseRepo(courses ...*course.Course) *fakeCourseRepo {
	r := &fakeCourseRepo{byID: make(map[string]*course.Course), saveCalls: make(map[string]int)}
	for _, crs := range courses {
		r.byID[crs.ID] = crs
	}
	return r
}

func (r *fakeCourseRepo) FindByID(_ context.Context, id string) (*course.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	crs, ok := r.byID[id]
	if !ok {
		return nil, course.ErrCourseNotFound
	}
	return crs, nil
}

func (r *fakeCourseRepo) Save(_ context.Context, crs *course.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveCalls[crs.ID]++
	r.byID[crs.ID] = crs
	return nil
}

type fakePublisher struct {
	mu         sync.Mutex
	events     []shared.Event
	publishErr error
}

func (p *fakePublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.publishErr != nil {
		return p.publishErr
	}
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) byType(t shared.EventType) []shared.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]shared.Event, 0)
	for _, e := range p.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

type fakeCache struct {
	mu          sync.Mutex
	invalidated []string
}

func (c *fakeCache) Get(_ context.Context, _ string) (*enrollment.Enrollment, error) {
	return nil, shared.ErrNotFound
}

func (c *fakeCache) Set(_ context.Context, _ *enrollment.Enrollment) error { return nil }

func (c *fakeCache) Invalidate(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, id)
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Fixtures
// ──────────────────────────────────────────────────────────────────────────────

func testCourse(id string, lessons int, quizzes int) *course.Course {
	crs := &course.Course{ID: id, InstructorID: "instructor-1", Title: "Go Fundamentals"}
	for i := 0; i < lessons; i++ {
		crs.Lessons = append(crs.Lessons, course.Lesson{
			ID:              id + "-lesson-" + string(rune('a'+i)),
			DurationSeconds: 600,
			Order:           i,
		})
	}
	for i := 0; i < quizzes; i++ {
		crs.Sections = append(crs.Sections, course.Section{
			ID:     id + "-section-" + string(rune('a'+i)),
			QuizID: id + "-quiz-" + string(rune('a'+i)),
			Order:  i,
		})
	}
	return crs
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────────────────────────────────

func TestProvisionEnrollment_SeedsAllUnits(t *testing.T) {
	repo := newFakeEnrollmentRepo()
	courses := newFakeCourseRepo(testCourse("course-1", 3, 1))
	pub := &fakePublisher{}
	h := NewProvisionEnrollmentHandler(repo, courses, pub, nil)

	result, err := h.Handle(context.Background(), ProvisionEnrollmentCommand{
		OrderID:   "order-1",
		StudentID: "student-1",
		Items:     []ProvisionItem{{CourseID: "course-1", Price: 49.99}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Provisioned)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 0, result.Failed)
	require.Len(t, result.EnrollmentIDs, 1)

	enr, err := repo.GetByStudentAndCourse(context.Background(), "student-1", "course-1")
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusActive, enr.Status)
	assert.Equal(t, 4, enr.TotalLearningUnits) // 3 lessons + 1 section quiz
	assert.Len(t, enr.Progress, 4)
	assert.Equal(t, "order-1", enr.OrderID)
	assert.Equal(t, "instructor-1", enr.InstructorID)

	created := pub.byType(shared.EventEnrollmentCreated)
	assert.Len(t, created, 1)
}

func TestProvisionEnrollment_DoubleDeliveryIsIdempotent(t *testing.T) {
	repo := newFakeEnrollmentRepo()
	courses := newFakeCourseRepo(testCourse("course-1", 2, 0))
	pub := &fakePublisher{}
	h := NewProvisionEnrollmentHandler(repo, courses, pub, nil)

	cmd := ProvisionEnrollmentCommand{
		OrderID:   "order-1",
		StudentID: "student-1",
		Items:     []ProvisionItem{{CourseID: "course-1"}},
	}

	first, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Provisioned)

	second, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Provisioned)
	assert.Equal(t, 1, second.Skipped)

	// One enrollment, one counter bump, one created event.
	assert.Len(t, repo.byID, 1)
	assert.Equal(t, 1, courses.saveCalls["course-1"])
	assert.Len(t, pub.byType(shared.EventEnrollmentCreated), 1)
}

func TestProvisionEnrollment_FailedItemDoesNotBlockOthers(t *testing.T) {
	repo := newFakeEnrollmentRepo()
	// course-2 is missing from the catalog.
	courses := newFakeCourseRepo(testCourse("course-1", 1, 0), testCourse("course-3", 1, 0))
	pub := &fakePublisher{}
	h := NewProvisionEnrollmentHandler(repo, courses, pub, nil)

	result, err := h.Handle(context.Background(), ProvisionEnrollmentCommand{
		OrderID:   "order-1",
		StudentID: "student-1",
		Items: []ProvisionItem{
			{CourseID: "course-1"},
			{CourseID: "course-2"},
			{CourseID: "course-3"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Provisioned)
	assert.Equal(t, 1, result.Failed)
	require.Contains(t, result.Errors, "course-2")
	assert.ErrorIs(t, result.Errors["course-2"], course.ErrCourseNotFound)

	// Redelivery provisions only the fixed item.
	courses.byID["course-2"] = testCourse("course-2", 1, 0)
	retry, err := h.Handle(context.Background(), ProvisionEnrollmentCommand{
		OrderID:   "order-1",
		StudentID: "student-1",
		Items: []ProvisionItem{
			{CourseID: "course-1"},
			{CourseID: "course-2"},
			{CourseID: "course-3"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, retry.Provisioned)
	assert.Equal(t, 2, retry.Skipped)
	assert.Len(t, repo.byID, 3)
}

func TestProvisionEnrollment_ValidatesCommand(t *testing.T) {
	h := NewProvisionEnrollmentHandler(newFakeEnrollmentRepo(), newFakeCourseRepo(), &fakePublisher{}, nil)

	_, err := h.Handle(context.Background(), ProvisionEnrollmentCommand{OrderID: "order-1"})
	assert.Error(t, err)

	_, err = h.Handle(context.Background(), ProvisionEnrollmentCommand{
		OrderID:   "order-1",
		StudentID: "student-1",
		Items:     []ProvisionItem{{CourseID: ""}},
	})
	assert.Error(t, err)
}

func TestProvisionEnrollment_UpsertRaceMapsToSkip(t *testing.T) {
	repo := newFakeEnrollmentRepo()
	repo.upsertErr = enrollment.ErrEnrollmentExists
	courses := newFakeCourseRepo(testCourse("course-1", 1, 0))
	h := NewProvisionEnrollmentHandler(repo, courses, &fakePublisher{}, nil)

	result, err := h.Handle(context.Background(), ProvisionEnrollmentCommand{
		OrderID:   "order-1",
		StudentID: "student-1",
		Items:     []ProvisionItem{{CourseID: "course-1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Failed)
}

func TestProvisionEnrollment_FreshEntriesAreIncomplete(t *testing.T) {
	repo := newFakeEnrollmentRepo()
	courses := newFakeCourseRepo(testCourse("course-1", 2, 1))
	h := NewProvisionEnrollmentHandler(repo, courses, &fakePublisher{}, nil)

	_, err := h.Handle(context.Background(), ProvisionEnrollmentCommand{
		OrderID:   "order-1",
		StudentID: "student-1",
		Items:     []ProvisionItem{{CourseID: "course-1"}},
	})
	require.NoError(t, err)

	enr, err := repo.GetByStudentAndCourse(context.Background(), "student-1", "course-1")
	require.NoError(t, err)
	assert.Equal(t, 0, enr.CompletedLearningUnits)
	assert.Equal(t, 0.0, enr.ProgressPercent.Float64())
	for _, entry := range enr.Progress {
		assert.False(t, entry.Completed)
		assert.Equal(t, 0, entry.WatchTime)
		assert.Equal(t, 0, entry.Attempts)
	}
}

func TestProvisionEnrollment_PublishFailureIsItemFailure(t *testing.T) {
	repo := newFakeEnrollmentRepo()
	courses := newFakeCourseRepo(testCourse("course-1", 1, 0))
	pub := &fakePublisher{publishErr: errors.New("bus down")}
	h := NewProvisionEnrollmentHandler(repo, courses, pub, nil)

	cmd := ProvisionEnrollmentCommand{
		OrderID:   "order-1",
		StudentID: "student-1",
		Items:     []ProvisionItem{{CourseID: "course-1"}},
	}

	result, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Provisioned)
	assert.Equal(t, 1, result.Failed)
	require.Contains(t, result.Errors, "course-1")
	assert.ErrorIs(t, result.Errors["course-1"], pub.publishErr)

	// The enrollment row itself is durable by the time the publish runs, so
	// the redelivery skips the item and the created event stays lost. The
	// failure in the result is what surfaces that for operators.
	pub.publishErr = nil
	retry, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, 0, retry.Provisioned)
	assert.Equal(t, 1, retry.Skipped)
	assert.Empty(t, pub.byType(shared.EventEnrollmentCreated))
}

func TestProvisionEnrollment_StorageErrorIsItemFailure(t *testing.T) {
	repo := newFakeEnrollmentRepo()
	repo.upsertErr = errors.New("connection reset")
	courses := newFakeCourseRepo(testCourse("course-1", 1, 0))
	h := NewProvisionEnrollmentHandler(repo, courses, &fakePublisher{}, nil)

	result, err := h.Handle(context.Background(), ProvisionEnrollmentCommand{
		OrderID:   "order-1",
		StudentID: "student-1",
		Items:     []ProvisionItem{{CourseID: "course-1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Contains(t, result.Errors, "course-1")
}
