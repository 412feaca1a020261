package sqlstore

import (
	"context"
	"fmt"
	"time"
)

// ScheduledJobRow is one row of the scheduled_jobs table: a
// launcher's cron-like schedule plus the outcome ("fired" or "skipped") the
// scheduler recorded for its last evaluation, which vocab_consolidation
// reads as its hysteresis state.
type ScheduledJobRow struct {
	LauncherID string     `db:"launcher_id"`
	Schedule   string     `db:"schedule"`
	LastRunAt  *time.Time `db:"last_run_at"`
	LastState  string     `db:"last_state"`
}

// GetScheduledJobState fetches a launcher's persisted state, or nil, nil if
// it has never run.
func (d *DB) GetScheduledJobState(ctx context.Context, launcherID string) (*ScheduledJobRow, error) {
	var row ScheduledJobRow
	err := d.conn.GetContext(ctx, &row, `
		SELECT launcher_id, schedule, last_run_at, last_state
		FROM scheduled_jobs WHERE launcher_id = $1`, launcherID)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get scheduled job state %q: %w", launcherID, err)
	}
	return &row, nil
}

// RecordLauncherRun stamps last_run_at = now() and persists lastState (the
// vocab_consolidation hysteresis carry-forward), creating
// the row on first run.
func (d *DB) RecordLauncherRun(ctx context.Context, launcherID, schedule, lastState string) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO scheduled_jobs (launcher_id, schedule, last_run_at, last_state)
		VALUES ($1, $2, now(), $3)
		ON CONFLICT (launcher_id) DO UPDATE
		SET last_run_at = now(), last_state = $3`, launcherID, schedule, lastState)
	if err != nil {
		return fmt.Errorf("record launcher run %q: %w", launcherID, err)
	}
	return nil
}

// ArtifactRow is one row of the artifacts table: an operator-visible
// expiring byproduct (e.g. a stale export) whose presence past expires_at
// is what the artifact_cleanup launcher watches for.
type ArtifactRow struct {
	ID        string    `db:"id"`
	Ontology  string    `db:"ontology"`
	Kind      string    `db:"kind"`
	ExpiresAt time.Time `db:"expires_at"`
}

// CountExpiredArtifacts returns how many artifact rows have expires_at in
// the past — the artifact_cleanup launcher's check_conditions population.
func (d *DB) CountExpiredArtifacts(ctx context.Context) (int, error) {
	var count int
	err := d.conn.GetContext(ctx, &count, `
		SELECT count(*) FROM artifacts WHERE expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("count expired artifacts: %w", err)
	}
	return count, nil
}

// DeleteExpiredArtifacts removes every expired artifact row and returns how
// many were deleted — the artifact_cleanup worker's body.
func (d *DB) DeleteExpiredArtifacts(ctx context.Context) (int64, error) {
	result, err := d.conn.ExecContext(ctx, `DELETE FROM artifacts WHERE expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired artifacts: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
