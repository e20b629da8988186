// Package postgres implements the PostgreSQL persistence layer for EduLearn Hub.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE ENROLLMENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create enrollments and progress entries
-- Version: 001

-- Enrollment aggregate roots
CREATE TABLE IF NOT EXISTS enrollments (
    id UUID PRIMARY KEY,
    student_id UUID NOT NULL,
    course_id UUID NOT NULL,
    order_id VARCHAR(100) NOT NULL,
    instructor_id UUID,
    status VARCHAR(20) NOT NULL DEFAULT 'active',
    progress_percent DECIMAL(5,2) NOT NULL DEFAULT 0.00,
    total_units INTEGER NOT NULL DEFAULT 0,
    completed_units INTEGER NOT NULL DEFAULT 0,
    enrolled_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    completed_at TIMESTAMP WITH TIME ZONE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    deleted_at TIMESTAMP WITH TIME ZONE,

    CONSTRAINT valid_status CHECK (status IN ('active', 'completed', 'dropped')),
    CONSTRAINT valid_progress CHECK (progress_percent >= 0 AND progress_percent <= 100),
    CONSTRAINT valid_units CHECK (completed_units >= 0 AND completed_units <= total_units)
);

-- One enrollment per (student, course). The constraint spans soft-deleted
-- rows too, which keeps provisioning idempotent across the whole history.
CREATE UNIQUE INDEX IF NOT EXISTS uq_enrollments_student_course
    ON enrollments(student_id, course_id);

CREATE INDEX IF NOT EXISTS idx_enrollments_student_id ON enrollments(student_id);
CREATE INDEX IF NOT EXISTS idx_enrollments_course_id ON enrollments(course_id);
CREATE INDEX IF NOT EXISTS idx_enrollments_status ON enrollments(status) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_enrollments_order_id ON enrollments(order_id);

-- Progress entries, one per learning unit, owned by the enrollment
CREATE TABLE IF NOT EXISTS progress_entries (
    id UUID PRIMARY KEY,
    enrollment_id UUID NOT NULL REFERENCES enrollments(id) ON DELETE CASCADE,
    unit_type VARCHAR(10) NOT NULL,
    lesson_id UUID,
    quiz_id UUID,
    watch_time INTEGER NOT NULL DEFAULT 0,
    duration INTEGER NOT NULL DEFAULT 0,
    score INTEGER NOT NULL DEFAULT 0,
    attempts INTEGER NOT NULL DEFAULT 0,
    passed BOOLEAN NOT NULL DEFAULT FALSE,
    completed BOOLEAN NOT NULL DEFAULT FALSE,
    completed_at TIMESTAMP WITH TIME ZONE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    deleted_at TIMESTAMP WITH TIME ZONE,

    CONSTRAINT valid_unit_type CHECK (unit_type IN ('lesson', 'quiz')),
    CONSTRAINT valid_score CHECK (score >= 0 AND score <= 100),
    CONSTRAINT valid_watch_time CHECK (watch_time >= 0),
    CONSTRAINT unit_reference CHECK (
        (unit_type = 'lesson' AND lesson_id IS NOT NULL) OR
        (unit_type = 'quiz' AND quiz_id IS NOT NULL)
    )
);

CREATE INDEX IF NOT EXISTS idx_progress_enrollment_id ON progress_entries(enrollment_id);
CREATE UNIQUE INDEX IF NOT EXISTS uq_progress_lesson
    ON progress_entries(enrollment_id, lesson_id) WHERE unit_type = 'lesson';
CREATE UNIQUE INDEX IF NOT EXISTS uq_progress_quiz
    ON progress_entries(enrollment_id, quiz_id) WHERE unit_type = 'quiz';
`

const migration001Down = `
DROP TABLE IF EXISTS progress_entries;
DROP TABLE IF EXISTS enrollments;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE CATALOG READ MODELS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create course and quiz read models
-- Version: 002
-- Course authoring happens in another service; these tables are a local
-- read model plus the enrollment counter this service owns.

CREATE TABLE IF NOT EXISTS courses (
    id UUID PRIMARY KEY,
    instructor_id UUID,
    title VARCHAR(200) NOT NULL DEFAULT '',
    lessons JSONB NOT NULL DEFAULT '[]'::jsonb,
    sections JSONB NOT NULL DEFAULT '[]'::jsonb,
    enrollment_count INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_enrollment_count CHECK (enrollment_count >= 0)
);

CREATE INDEX IF NOT EXISTS idx_courses_instructor_id ON courses(instructor_id);

CREATE TABLE IF NOT EXISTS quizzes (
    id UUID PRIMARY KEY,
    course_id UUID NOT NULL,
    section_id UUID,
    title VARCHAR(200) NOT NULL DEFAULT '',
    passing_score INTEGER NOT NULL DEFAULT 0,
    questions JSONB NOT NULL DEFAULT '[]'::jsonb,

    CONSTRAINT valid_passing_score CHECK (passing_score >= 0 AND passing_score <= 100)
);

CREATE INDEX IF NOT EXISTS idx_quizzes_course_id ON quizzes(course_id);
`

const migration002Down = `
DROP TABLE IF EXISTS quizzes;
DROP TABLE IF EXISTS courses;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE PROCESSED EVENTS & NOTIFICATIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create processed-event ledger and notifications
-- Version: 003

-- Inbound event dedup ledger. Checked once per broker delivery.
CREATE TABLE IF NOT EXISTS processed_events (
    event_id VARCHAR(100) PRIMARY KEY,
    processed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_processed_events_processed_at ON processed_events(processed_at);

-- In-app notifications, best effort
CREATE TABLE IF NOT EXISTS notifications (
    id UUID PRIMARY KEY,
    recipient_id UUID NOT NULL,
    type VARCHAR(30) NOT NULL,
    title VARCHAR(200) NOT NULL DEFAULT '',
    body TEXT NOT NULL DEFAULT '',
    read BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_notifications_recipient
    ON notifications(recipient_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_notifications_unread
    ON notifications(recipient_id) WHERE read = FALSE;
`

const migration003Down = `
DROP TABLE IF EXISTS notifications;
DROP TABLE IF EXISTS processed_events;
`
