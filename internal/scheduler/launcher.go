// Package scheduler is the scheduler that periodically
// invokes a set of pluggable, side-effect-free launchers, each of which
// enqueues a job onto the queue when its own measured condition warrants
// work.
package scheduler

import (
	"context"
	"time"

	"kgraph-core/internal/jobqueue"
)

// Launcher is the launcher contract: CheckConditions must be
// side-effect-free (it may read, never write), and PrepareJobData must be
// deterministic given the same underlying state. Any error propagates to
// the scheduler, which logs it and continues — a launcher never fails
// beyond the current tick.
type Launcher interface {
	// ID names the launcher for scheduled_jobs bookkeeping and logs.
	ID() string
	// Interval is this launcher's cadence.
	Interval() time.Duration
	// JobType is the job type enqueued when CheckConditions returns true.
	JobType() jobqueue.JobType
	// CheckConditions reports whether this launcher's condition currently
	// holds. Implementations that carry hysteresis state (vocab_consolidation)
	// read the outcome the scheduler recorded for their ID on the previous
	// evaluation through their own state dependency; CheckConditions itself
	// writes nothing.
	CheckConditions(ctx context.Context) (bool, error)
	// PrepareJobData builds the data payload for the job CheckConditions
	// just approved. Called only immediately after a true CheckConditions in
	// the same tick, so Interval-scoped internal state (e.g. "which ontology
	// drifted") set during CheckConditions is safe to read here.
	PrepareJobData(ctx context.Context) (map[string]any, error)
}
