package sqlstore

import (
	"context"
	"fmt"
	"time"
)

// MetricRow is one row of the graph_metrics table: a monotonic
// counter plus the watermark of its last "measured" read.
type MetricRow struct {
	Name                string     `db:"metric_name"`
	Counter             int64      `db:"counter"`
	LastMeasuredCounter int64      `db:"last_measured_counter"`
	LastMeasuredAt      *time.Time `db:"last_measured_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
}

// IncrementMetric increments a counter by 1, creating the row on first use.
func (d *DB) IncrementMetric(ctx context.Context, name string) error {
	return d.IncrementMetricBy(ctx, name, 1)
}

// IncrementMetricBy increments a counter by delta, creating the row on first
// use with a zero starting point.
func (d *DB) IncrementMetricBy(ctx context.Context, name string, delta int64) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO graph_metrics (metric_name, counter, last_measured_counter, updated_at)
		VALUES ($1, $2, 0, now())
		ON CONFLICT (metric_name) DO UPDATE
		SET counter = graph_metrics.counter + $2, updated_at = now()`, name, delta)
	if err != nil {
		return fmt.Errorf("increment metric %q: %w", name, err)
	}
	return nil
}

// MarkMetricMeasured sets last_measured_counter := counter and bumps
// last_measured_at.
func (d *DB) MarkMetricMeasured(ctx context.Context, name string) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO graph_metrics (metric_name, counter, last_measured_counter, last_measured_at, updated_at)
		VALUES ($1, 0, 0, now(), now())
		ON CONFLICT (metric_name) DO UPDATE
		SET last_measured_counter = graph_metrics.counter, last_measured_at = now()`, name)
	if err != nil {
		return fmt.Errorf("mark metric %q measured: %w", name, err)
	}
	return nil
}

// ResetMetric zeroes both the counter and its measured watermark.
// Operator-only.
func (d *DB) ResetMetric(ctx context.Context, name string) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO graph_metrics (metric_name, counter, last_measured_counter, updated_at)
		VALUES ($1, 0, 0, now())
		ON CONFLICT (metric_name) DO UPDATE
		SET counter = 0, last_measured_counter = 0, updated_at = now()`, name)
	if err != nil {
		return fmt.Errorf("reset metric %q: %w", name, err)
	}
	return nil
}

// GetMetric fetches one metric row, or nil, nil if it has never been
// incremented.
func (d *DB) GetMetric(ctx context.Context, name string) (*MetricRow, error) {
	var row MetricRow
	err := d.conn.GetContext(ctx, &row, `
		SELECT metric_name, counter, last_measured_counter, last_measured_at, updated_at
		FROM graph_metrics WHERE metric_name = $1`, name)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get metric %q: %w", name, err)
	}
	return &row, nil
}

// GetAllMetrics returns every metric row.
func (d *DB) GetAllMetrics(ctx context.Context) ([]MetricRow, error) {
	var rows []MetricRow
	err := d.conn.SelectContext(ctx, &rows, `
		SELECT metric_name, counter, last_measured_counter, last_measured_at, updated_at
		FROM graph_metrics ORDER BY metric_name`)
	if err != nil {
		return nil, fmt.Errorf("get all metrics: %w", err)
	}
	return rows, nil
}
