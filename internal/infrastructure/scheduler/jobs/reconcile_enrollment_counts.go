package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECONCILE ENROLLMENT COUNTS JOB
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentCountReconciler recomputes per-course enrollment counters from
// the enrollments table and returns how many courses were corrected.
type EnrollmentCountReconciler interface {
	ReconcileEnrollmentCounts(ctx context.Context) (int64, error)
}

// ReconcileEnrollmentCountsJob fixes drift in the denormalized
// courses.enrollment_count column. The counter is bumped on the hot path
// without a transaction spanning both tables, so it can drift after
// crashes; this job restores it from the source of truth.
type ReconcileEnrollmentCountsJob struct {
	reconciler EnrollmentCountReconciler
	logger     *slog.Logger
	config     ReconcileEnrollmentCountsConfig
}

// ReconcileEnrollmentCountsConfig contains configuration for the job.
type ReconcileEnrollmentCountsConfig struct {
	// Timeout is the maximum duration for one reconcile run.
	Timeout time.Duration
}

// DefaultReconcileEnrollmentCountsConfig returns sensible defaults.
func DefaultReconcileEnrollmentCountsConfig() ReconcileEnrollmentCountsConfig {
	return ReconcileEnrollmentCountsConfig{
		Timeout: 5 * time.Minute,
	}
}

// NewReconcileEnrollmentCountsJob creates a new reconcile job.
func NewReconcileEnrollmentCountsJob(
	reconciler EnrollmentCountReconciler,
	logger *slog.Logger,
	config ReconcileEnrollmentCountsConfig,
) *ReconcileEnrollmentCountsJob {
	if logger == nil {
		logger = slog.Default()
	}

	return &ReconcileEnrollmentCountsJob{
		reconciler: reconciler,
		logger:     logger,
		config:     config,
	}
}

// Name returns the job name.
func (j *ReconcileEnrollmentCountsJob) Name() string {
	return "reconcile_enrollment_counts"
}

// Description returns a human-readable description.
func (j *ReconcileEnrollmentCountsJob) Description() string {
	return "Recomputes per-course enrollment counters from the enrollments table"
}

// Run executes the reconciliation.
func (j *ReconcileEnrollmentCountsJob) Run(ctx context.Context) error {
	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	corrected, err := j.reconciler.ReconcileEnrollmentCounts(ctx)
	if err != nil {
		return fmt.Errorf("reconcile enrollment counts: %w", err)
	}

	if corrected > 0 {
		j.logger.Warn("enrollment counters had drifted",
			"corrected_courses", corrected,
		)
	} else {
		j.logger.Info("enrollment counters consistent")
	}

	return nil
}
