package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/edulearn-hub/enrollment-hub/internal/domain/enrollment"
	"github.com/edulearn-hub/enrollment-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentRepository implements enrollment.Repository for PostgreSQL.
// The aggregate and its progress entries are written in one transaction.
type EnrollmentRepository struct {
	conn *Connection
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(conn *Connection) *EnrollmentRepository {
	return &EnrollmentRepository{conn: conn}
}

const enrollmentColumns = `id, student_id, course_id, order_id, instructor_id, status,
	   progress_percent, total_units, completed_units,
	   enrolled_at, completed_at, created_at, updated_at, deleted_at`

const progressColumns = `id, enrollment_id, unit_type, lesson_id, quiz_id,
	   watch_time, duration, score, attempts, passed, completed,
	   completed_at, created_at, updated_at, deleted_at`

// ─────────────────────────────────────────────────────────────────────────────
// Writes
// ─────────────────────────────────────────────────────────────────────────────

// Upsert saves the enrollment together with all its progress entries.
// A concurrent insert for the same (student, course) pair loses the race on
// the unique index and surfaces as ErrEnrollmentExists.
func (r *EnrollmentRepository) Upsert(ctx context.Context, enr *enrollment.Enrollment) error {
	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		query := `
			INSERT INTO enrollments (
				id, student_id, course_id, order_id, instructor_id, status,
				progress_percent, total_units, completed_units,
				enrolled_at, completed_at, created_at, updated_at, deleted_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (id) DO UPDATE SET
				status = EXCLUDED.status,
				progress_percent = EXCLUDED.progress_percent,
				total_units = EXCLUDED.total_units,
				completed_units = EXCLUDED.completed_units,
				completed_at = EXCLUDED.completed_at,
				updated_at = EXCLUDED.updated_at,
				deleted_at = EXCLUDED.deleted_at
		`

		var instructorID *string
		if enr.InstructorID != "" {
			instructorID = &enr.InstructorID
		}

		_, err := tx.Exec(ctx, query,
			enr.ID,
			enr.StudentID,
			enr.CourseID,
			enr.OrderID,
			instructorID,
			string(enr.Status),
			enr.ProgressPercent.Float64(),
			enr.TotalLearningUnits,
			enr.CompletedLearningUnits,
			enr.EnrolledAt,
			enr.CompletedAt,
			enr.CreatedAt,
			enr.UpdatedAt,
			enr.DeletedAt,
		)
		if err != nil {
			return err
		}

		for _, entry := range enr.Progress {
			if err := upsertProgressEntry(ctx, tx, entry); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		if IsUniqueViolation(err) {
			return enrollment.ErrEnrollmentExists
		}
		return fmt.Errorf("failed to upsert enrollment: %w", err)
	}

	return nil
}

func upsertProgressEntry(ctx context.Context, q Querier, entry *enrollment.ProgressEntry) error {
	query := `
		INSERT INTO progress_entries (
			id, enrollment_id, unit_type, lesson_id, quiz_id,
			watch_time, duration, score, attempts, passed, completed,
			completed_at, created_at, updated_at, deleted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			watch_time = EXCLUDED.watch_time,
			duration = EXCLUDED.duration,
			score = EXCLUDED.score,
			attempts = EXCLUDED.attempts,
			passed = EXCLUDED.passed,
			completed = EXCLUDED.completed,
			completed_at = EXCLUDED.completed_at,
			updated_at = EXCLUDED.updated_at,
			deleted_at = EXCLUDED.deleted_at
	`

	var lessonID, quizID *string
	if entry.LessonID != "" {
		lessonID = &entry.LessonID
	}
	if entry.QuizID != "" {
		quizID = &entry.QuizID
	}

	_, err := q.Exec(ctx, query,
		entry.ID,
		entry.EnrollmentID,
		string(entry.UnitType),
		lessonID,
		quizID,
		entry.WatchTime,
		entry.Duration,
		entry.Score,
		entry.Attempts,
		entry.Passed,
		entry.Completed,
		entry.CompletedAt,
		entry.CreatedAt,
		entry.UpdatedAt,
		entry.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert progress entry %s: %w", entry.ID, err)
	}

	return nil
}

// Remove soft deletes an enrollment and all its progress entries.
func (r *EnrollmentRepository) Remove(ctx context.Context, id string) error {
	now := time.Now().UTC()

	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			UPDATE enrollments
			SET deleted_at = $1, updated_at = $1
			WHERE id = $2 AND deleted_at IS NULL
		`, now, id)
		if err != nil {
			return fmt.Errorf("failed to remove enrollment: %w", err)
		}
		if result.RowsAffected() == 0 {
			return enrollment.ErrEnrollmentNotFound
		}

		_, err = tx.Exec(ctx, `
			UPDATE progress_entries
			SET deleted_at = $1, updated_at = $1
			WHERE enrollment_id = $2 AND deleted_at IS NULL
		`, now, id)
		if err != nil {
			return fmt.Errorf("failed to remove progress entries: %w", err)
		}

		return nil
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Reads
// ─────────────────────────────────────────────────────────────────────────────

// GetByID returns an enrollment by internal ID. Soft-deleted rows are
// returned as-is: callers decide how to treat the deletion marker.
func (r *EnrollmentRepository) GetByID(ctx context.Context, id string, opts enrollment.GetOptions) (*enrollment.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE id = $1", enrollmentColumns)

	enr, err := scanEnrollment(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	if opts.IncludeProgress {
		if err := r.loadProgress(ctx, enr); err != nil {
			return nil, err
		}
	}

	return enr, nil
}

// GetByStudentAndCourse returns the enrollment for a (student, course) pair.
// This is the idempotency lookup for provisioning, so it sees soft-deleted
// rows too.
func (r *EnrollmentRepository) GetByStudentAndCourse(ctx context.Context, studentID, courseID string) (*enrollment.Enrollment, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM enrollments WHERE student_id = $1 AND course_id = $2",
		enrollmentColumns,
	)

	return scanEnrollment(r.conn.QueryRow(ctx, query, studentID, courseID))
}

// ListByStudent returns a student's enrollments, newest first.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string, opts enrollment.ListOptions) ([]*enrollment.Enrollment, error) {
	return r.list(ctx, "student_id", studentID, opts)
}

// ListByCourse returns all enrollments for a course, newest first.
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID string, opts enrollment.ListOptions) ([]*enrollment.Enrollment, error) {
	return r.list(ctx, "course_id", courseID, opts)
}

func (r *EnrollmentRepository) list(ctx context.Context, column, value string, opts enrollment.ListOptions) ([]*enrollment.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE %s = $1", enrollmentColumns, column)
	if !opts.IncludeDeleted {
		query += " AND deleted_at IS NULL"
	}
	query += " ORDER BY enrolled_at DESC LIMIT $2 OFFSET $3"

	rows, err := r.conn.Query(ctx, query, value, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	defer rows.Close()

	var enrollments []*enrollment.Enrollment
	for rows.Next() {
		enr, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		enrollments = append(enrollments, enr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return enrollments, nil
}

// loadProgress attaches all progress entries to the aggregate in seed order.
func (r *EnrollmentRepository) loadProgress(ctx context.Context, enr *enrollment.Enrollment) error {
	query := fmt.Sprintf(
		"SELECT %s FROM progress_entries WHERE enrollment_id = $1 ORDER BY created_at, id",
		progressColumns,
	)

	rows, err := r.conn.Query(ctx, query, enr.ID)
	if err != nil {
		return fmt.Errorf("failed to load progress entries: %w", err)
	}
	defer rows.Close()

	entries, err := scanProgressEntries(rows)
	if err != nil {
		return err
	}

	enr.Progress = entries
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements enrollment.ProgressRepository for PostgreSQL.
// Read models use it directly; writes normally go through the aggregate.
type ProgressRepository struct {
	conn *Connection
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{conn: conn}
}

// Save persists a single progress entry.
func (r *ProgressRepository) Save(ctx context.Context, entry *enrollment.ProgressEntry) error {
	return upsertProgressEntry(ctx, r.conn, entry)
}

// FindByEnrollment returns all progress entries of an enrollment.
func (r *ProgressRepository) FindByEnrollment(ctx context.Context, enrollmentID string) ([]*enrollment.ProgressEntry, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM progress_entries WHERE enrollment_id = $1 ORDER BY created_at, id",
		progressColumns,
	)

	rows, err := r.conn.Query(ctx, query, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress entries: %w", err)
	}
	defer rows.Close()

	return scanProgressEntries(rows)
}

// FindByEnrollmentAndLesson returns the lesson progress entry.
func (r *ProgressRepository) FindByEnrollmentAndLesson(ctx context.Context, enrollmentID, lessonID string) (*enrollment.ProgressEntry, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM progress_entries WHERE enrollment_id = $1 AND unit_type = 'lesson' AND lesson_id = $2",
		progressColumns,
	)

	return scanProgressEntry(r.conn.QueryRow(ctx, query, enrollmentID, lessonID))
}

// FindByEnrollmentAndQuiz returns the quiz progress entry.
func (r *ProgressRepository) FindByEnrollmentAndQuiz(ctx context.Context, enrollmentID, quizID string) (*enrollment.ProgressEntry, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM progress_entries WHERE enrollment_id = $1 AND unit_type = 'quiz' AND quiz_id = $2",
		progressColumns,
	)

	return scanProgressEntry(r.conn.QueryRow(ctx, query, enrollmentID, quizID))
}

// ══════════════════════════════════════════════════════════════════════════════
// SCAN HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func scanEnrollment(row pgx.Row) (*enrollment.Enrollment, error) {
	var enr enrollment.Enrollment
	var instructorID *string
	var status string
	var percent float64

	err := row.Scan(
		&enr.ID,
		&enr.StudentID,
		&enr.CourseID,
		&enr.OrderID,
		&instructorID,
		&status,
		&percent,
		&enr.TotalLearningUnits,
		&enr.CompletedLearningUnits,
		&enr.EnrolledAt,
		&enr.CompletedAt,
		&enr.CreatedAt,
		&enr.UpdatedAt,
		&enr.DeletedAt,
	)

	if IsNoRows(err) {
		return nil, enrollment.ErrEnrollmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan enrollment: %w", err)
	}

	if instructorID != nil {
		enr.InstructorID = *instructorID
	}
	enr.Status = enrollment.Status(status)
	enr.ProgressPercent = shared.Percent(percent)
	enr.Progress = make([]*enrollment.ProgressEntry, 0)

	return &enr, nil
}

func scanProgressEntry(row pgx.Row) (*enrollment.ProgressEntry, error) {
	var entry enrollment.ProgressEntry
	var unitType string
	var lessonID, quizID *string

	err := row.Scan(
		&entry.ID,
		&entry.EnrollmentID,
		&unitType,
		&lessonID,
		&quizID,
		&entry.WatchTime,
		&entry.Duration,
		&entry.Score,
		&entry.Attempts,
		&entry.Passed,
		&entry.Completed,
		&entry.CompletedAt,
		&entry.CreatedAt,
		&entry.UpdatedAt,
		&entry.DeletedAt,
	)

	if IsNoRows(err) {
		return nil, enrollment.ErrProgressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan progress entry: %w", err)
	}

	entry.UnitType = enrollment.UnitType(unitType)
	if lessonID != nil {
		entry.LessonID = *lessonID
	}
	if quizID != nil {
		entry.QuizID = *quizID
	}

	return &entry, nil
}

func scanProgressEntries(rows pgx.Rows) ([]*enrollment.ProgressEntry, error) {
	var entries []*enrollment.ProgressEntry
	for rows.Next() {
		entry, err := scanProgressEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return entries, nil
}
