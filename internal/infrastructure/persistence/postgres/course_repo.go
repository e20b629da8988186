package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/edulearn-hub/enrollment-hub/internal/domain/course"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE REPOSITORY IMPLEMENTATION
// Lessons and sections live as JSONB on the course row: this service never
// edits them individually, it only seeds progress entries from the snapshot.
// ══════════════════════════════════════════════════════════════════════════════

// CourseRepository implements course.Repository for PostgreSQL.
type CourseRepository struct {
	conn *Connection
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(conn *Connection) *CourseRepository {
	return &CourseRepository{conn: conn}
}

type lessonRecord struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	DurationSeconds int    `json:"duration_seconds"`
	Order           int    `json:"order"`
}

type sectionRecord struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Order  int    `json:"order"`
	QuizID string `json:"quiz_id,omitempty"`
}

// FindByID returns a course with its lessons and sections.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*course.Course, error) {
	query := `
		SELECT id, instructor_id, title, lessons, sections, enrollment_count, created_at, updated_at
		FROM courses
		WHERE id = $1
	`

	var crs course.Course
	var instructorID *string
	var lessonsJSON, sectionsJSON []byte

	err := r.conn.QueryRow(ctx, query, id).Scan(
		&crs.ID,
		&instructorID,
		&crs.Title,
		&lessonsJSON,
		&sectionsJSON,
		&crs.EnrollmentCount,
		&crs.CreatedAt,
		&crs.UpdatedAt,
	)

	if IsNoRows(err) {
		return nil, course.ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan course: %w", err)
	}

	if instructorID != nil {
		crs.InstructorID = *instructorID
	}

	var lessons []lessonRecord
	if err := json.Unmarshal(lessonsJSON, &lessons); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lessons: %w", err)
	}
	for _, l := range lessons {
		crs.Lessons = append(crs.Lessons, course.Lesson{
			ID:              l.ID,
			Title:           l.Title,
			DurationSeconds: l.DurationSeconds,
			Order:           l.Order,
		})
	}

	var sections []sectionRecord
	if err := json.Unmarshal(sectionsJSON, &sections); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sections: %w", err)
	}
	for _, s := range sections {
		crs.Sections = append(crs.Sections, course.Section{
			ID:     s.ID,
			Title:  s.Title,
			Order:  s.Order,
			QuizID: s.QuizID,
		})
	}

	return &crs, nil
}

// Save persists a course snapshot, including the enrollment counter.
func (r *CourseRepository) Save(ctx context.Context, crs *course.Course) error {
	lessons := make([]lessonRecord, 0, len(crs.Lessons))
	for _, l := range crs.Lessons {
		lessons = append(lessons, lessonRecord{
			ID:              l.ID,
			Title:           l.Title,
			DurationSeconds: l.DurationSeconds,
			Order:           l.Order,
		})
	}
	lessonsJSON, err := json.Marshal(lessons)
	if err != nil {
		return fmt.Errorf("failed to marshal lessons: %w", err)
	}

	sections := make([]sectionRecord, 0, len(crs.Sections))
	for _, s := range crs.Sections {
		sections = append(sections, sectionRecord{
			ID:     s.ID,
			Title:  s.Title,
			Order:  s.Order,
			QuizID: s.QuizID,
		})
	}
	sectionsJSON, err := json.Marshal(sections)
	if err != nil {
		return fmt.Errorf("failed to marshal sections: %w", err)
	}

	query := `
		INSERT INTO courses (id, instructor_id, title, lessons, sections, enrollment_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			instructor_id = EXCLUDED.instructor_id,
			title = EXCLUDED.title,
			lessons = EXCLUDED.lessons,
			sections = EXCLUDED.sections,
			enrollment_count = EXCLUDED.enrollment_count,
			updated_at = EXCLUDED.updated_at
	`

	var instructorID *string
	if crs.InstructorID != "" {
		instructorID = &crs.InstructorID
	}

	_, err = r.conn.Exec(ctx, query,
		crs.ID,
		instructorID,
		crs.Title,
		lessonsJSON,
		sectionsJSON,
		crs.EnrollmentCount,
		crs.CreatedAt,
		crs.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save course: %w", err)
	}

	return nil
}

// ReconcileEnrollmentCounts recomputes enrollment_count for every course
// from the enrollments table. Dropped and soft-deleted enrollments do not
// count. Returns the number of corrected courses. Run by the scheduler.
func (r *CourseRepository) ReconcileEnrollmentCounts(ctx context.Context) (int64, error) {
	updated, err := r.conn.Exec(ctx, `
		UPDATE courses c
		SET enrollment_count = sub.cnt
		FROM (
			SELECT course_id, COUNT(*) AS cnt
			FROM enrollments
			WHERE deleted_at IS NULL AND status <> 'dropped'
			GROUP BY course_id
		) sub
		WHERE c.id = sub.course_id AND c.enrollment_count <> sub.cnt
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to reconcile enrollment counts: %w", err)
	}

	// Courses with no active enrollments fall out of the aggregate above
	zeroed, err := r.conn.Exec(ctx, `
		UPDATE courses
		SET enrollment_count = 0
		WHERE enrollment_count <> 0 AND id NOT IN (
			SELECT DISTINCT course_id
			FROM enrollments
			WHERE deleted_at IS NULL AND status <> 'dropped'
		)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to zero stale enrollment counts: %w", err)
	}

	return updated.RowsAffected() + zeroed.RowsAffected(), nil
}
