package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"kgraph-core/internal/jobqueue"
	"kgraph-core/internal/sqlstore"
)

// stateRepo is the narrow slice of *sqlstore.DB the scheduler depends on
// for the scheduled_jobs table's last-run bookkeeping.
type stateRepo interface {
	GetScheduledJobState(ctx context.Context, launcherID string) (*sqlstore.ScheduledJobRow, error)
	RecordLauncherRun(ctx context.Context, launcherID, schedule, lastState string) error
}

// enqueuer is the narrow slice of *jobqueue.Queue the scheduler depends on.
type enqueuer interface {
	Enqueue(ctx context.Context, p jobqueue.EnqueueParams) (string, error)
}

// Scheduler ticks on a fixed resolution and, for each registered
// Launcher that is due (per its own Interval against scheduled_jobs'
// last_run_at), evaluates CheckConditions and enqueues a job when it holds.
type Scheduler struct {
	db        stateRepo
	queue     enqueuer
	launchers []Launcher
	lock      TickLock
	logger    *zap.Logger
}

func New(db stateRepo, queue enqueuer, logger *zap.Logger) *Scheduler {
	return &Scheduler{db: db, queue: queue, logger: logger}
}

// Register adds a launcher to the set ticked by Run/Tick.
func (s *Scheduler) Register(l Launcher) {
	s.launchers = append(s.launchers, l)
}

// WithLock installs a cross-process TickLock (e.g. RedisTickLock). Without
// one, Tick assumes it is the only scheduler process running.
func (s *Scheduler) WithLock(lock TickLock) *Scheduler {
	s.lock = lock
	return s
}

// Run ticks every resolution until ctx is cancelled, calling Tick at each
// beat. resolution should be shorter than the shortest registered
// Launcher's Interval (e.g. one minute) since Tick itself gates on
// last-run time per launcher.
func (s *Scheduler) Run(ctx context.Context, resolution time.Duration) {
	ticker := time.NewTicker(resolution)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick evaluates every registered launcher once. A launcher whose Interval
// hasn't elapsed since its last run is skipped without being evaluated
// (CheckConditions is not even called, keeping the side-effect-free
// contract cheap to honor at high tick frequency).
func (s *Scheduler) Tick(ctx context.Context) {
	if s.lock != nil {
		acquired, err := s.lock.TryAcquire(ctx)
		if err != nil {
			s.logger.Error("scheduler: tick lock unavailable, skipping tick", zap.Error(err))
			return
		}
		if !acquired {
			return
		}
		defer s.lock.Release(ctx)
	}
	for _, l := range s.launchers {
		s.evaluate(ctx, l)
	}
}

func (s *Scheduler) evaluate(ctx context.Context, l Launcher) {
	due, lastState, err := s.isDue(ctx, l)
	if err != nil {
		s.logger.Error("scheduler: failed to read launcher state", zap.String("launcher_id", l.ID()), zap.Error(err))
		return
	}
	if !due {
		return
	}

	ok, err := l.CheckConditions(ctx)
	if err != nil {
		s.logger.Error("scheduler: launcher condition check failed", zap.String("launcher_id", l.ID()), zap.Error(err))
		return
	}

	nextState := lastState
	if ok {
		data, err := l.PrepareJobData(ctx)
		if err != nil {
			s.logger.Error("scheduler: launcher failed to prepare job data", zap.String("launcher_id", l.ID()), zap.Error(err))
			return
		}
		ontology, _ := data["ontology"].(string)
		if _, err := s.queue.Enqueue(ctx, jobqueue.EnqueueParams{Type: l.JobType(), Ontology: ontology, Data: data}); err != nil {
			s.logger.Error("scheduler: failed to enqueue launcher job", zap.String("launcher_id", l.ID()), zap.Error(err))
			return
		}
		s.logger.Info("scheduler: launcher fired", zap.String("launcher_id", l.ID()), zap.String("job_type", string(l.JobType())))
		nextState = "fired"
	} else {
		nextState = "skipped"
	}

	if err := s.db.RecordLauncherRun(ctx, l.ID(), l.Interval().String(), nextState); err != nil {
		s.logger.Error("scheduler: failed to record launcher run", zap.String("launcher_id", l.ID()), zap.Error(err))
	}
}

func (s *Scheduler) isDue(ctx context.Context, l Launcher) (due bool, lastState string, err error) {
	row, err := s.db.GetScheduledJobState(ctx, l.ID())
	if err != nil {
		return false, "", err
	}
	if row == nil || row.LastRunAt == nil {
		return true, "", nil
	}
	return time.Since(*row.LastRunAt) >= l.Interval(), row.LastState, nil
}
