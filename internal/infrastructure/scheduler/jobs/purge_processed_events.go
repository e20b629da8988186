// Package jobs contains implementations of scheduled jobs for EduLearn Hub.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// PURGE PROCESSED EVENTS JOB
// ══════════════════════════════════════════════════════════════════════════════

// ProcessedEventPurger deletes processed-event ledger rows older than the
// retention window and reports how many were removed.
type ProcessedEventPurger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int64, error)
}

// PurgeProcessedEventsJob trims the processed-event ledger. The ledger only
// has to cover the broker's redelivery horizon; anything older can never be
// redelivered, so keeping it just slows the dedup lookup down.
type PurgeProcessedEventsJob struct {
	purger ProcessedEventPurger
	logger *slog.Logger
	config PurgeProcessedEventsConfig
}

// PurgeProcessedEventsConfig contains configuration for the purge job.
type PurgeProcessedEventsConfig struct {
	// Retention is how long processed-event rows are kept.
	Retention time.Duration

	// Timeout is the maximum duration for one purge run.
	Timeout time.Duration
}

// DefaultPurgeProcessedEventsConfig returns sensible defaults.
// Thirty days is far beyond any broker redelivery window.
func DefaultPurgeProcessedEventsConfig() PurgeProcessedEventsConfig {
	return PurgeProcessedEventsConfig{
		Retention: 30 * 24 * time.Hour,
		Timeout:   2 * time.Minute,
	}
}

// NewPurgeProcessedEventsJob creates a new purge job.
func NewPurgeProcessedEventsJob(
	purger ProcessedEventPurger,
	logger *slog.Logger,
	config PurgeProcessedEventsConfig,
) *PurgeProcessedEventsJob {
	if logger == nil {
		logger = slog.Default()
	}

	return &PurgeProcessedEventsJob{
		purger: purger,
		logger: logger,
		config: config,
	}
}

// Name returns the job name.
func (j *PurgeProcessedEventsJob) Name() string {
	return "purge_processed_events"
}

// Description returns a human-readable description.
func (j *PurgeProcessedEventsJob) Description() string {
	return "Deletes processed-event ledger rows older than the retention window"
}

// Run executes the purge.
func (j *PurgeProcessedEventsJob) Run(ctx context.Context) error {
	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	purged, err := j.purger.PurgeOlderThan(ctx, j.config.Retention)
	if err != nil {
		return fmt.Errorf("purge processed events: %w", err)
	}

	j.logger.Info("processed events purged",
		"purged", purged,
		"retention", j.config.Retention.String(),
	)

	return nil
}
