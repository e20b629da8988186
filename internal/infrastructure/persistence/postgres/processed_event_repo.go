package postgres

import (
	"context"
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROCESSED EVENT STORE IMPLEMENTATION
// One row per handled inbound event. The primary key makes MarkAsProcessed
// idempotent, so a crash between handling and marking at worst replays the
// event once, and per-item idempotency absorbs the replay.
// ══════════════════════════════════════════════════════════════════════════════

// ProcessedEventRepository implements shared.ProcessedEventStore for PostgreSQL.
type ProcessedEventRepository struct {
	conn *Connection
}

// NewProcessedEventRepository creates a new ProcessedEventRepository.
func NewProcessedEventRepository(conn *Connection) *ProcessedEventRepository {
	return &ProcessedEventRepository{conn: conn}
}

// IsProcessed reports whether the event has been handled before.
func (r *ProcessedEventRepository) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)",
		eventID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check processed event: %w", err)
	}
	return exists, nil
}

// MarkAsProcessed records the event as handled.
func (r *ProcessedEventRepository) MarkAsProcessed(ctx context.Context, eventID string) error {
	_, err := r.conn.Exec(ctx, `
		INSERT INTO processed_events (event_id, processed_at)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO NOTHING
	`, eventID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark event as processed: %w", err)
	}
	return nil
}

// PurgeOlderThan deletes ledger rows older than the retention window and
// returns how many were removed. Run periodically by the scheduler.
func (r *ProcessedEventRepository) PurgeOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)

	result, err := r.conn.Exec(ctx,
		"DELETE FROM processed_events WHERE processed_at < $1",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge processed events: %w", err)
	}

	return result.RowsAffected(), nil
}
