package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/djekl/docker-github-backup/pkg/types"
)

// DefaultInterval is the wait between cycles when none is configured.
const DefaultInterval = 3600 * time.Second

// State is a scheduler lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateInvoking
	StateWaiting
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInvoking:
		return "invoking"
	case StateWaiting:
		return "waiting"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// InvokeFunc runs one backup cycle.
type InvokeFunc func(ctx context.Context) error

// Observer is notified after every invocation.
type Observer interface {
	CycleFinished(types.CycleReport)
}

// Scheduler runs Invoke every Interval until cancelled.
type Scheduler struct {
	Interval time.Duration
	Invoke   InvokeFunc

	// BeforeCycle, if set, runs on the worker before each invocation. A
	// returned error is logged and the invocation still happens.
	BeforeCycle func(ctx context.Context) error

	Observers []Observer
	Logger    *slog.Logger

	now   func() time.Time // injectable for deterministic tests
	state atomic.Int32
	seq   int
}

// New returns a Scheduler. A non-positive interval selects DefaultInterval.
func New(interval time.Duration, invoke InvokeFunc) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		Interval: interval,
		Invoke:   invoke,
		now:      time.Now,
	}
}

// State returns the current state. Safe for concurrent use.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Run loops until ctx is cancelled and returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	if s.Invoke == nil {
		return fmt.Errorf("scheduler: invoke function is required")
	}
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	log := s.logger()

	for {
		if ctx.Err() != nil {
			return s.cancelled(ctx)
		}

		s.setState(StateInvoking)
		s.cycle(ctx, log)

		if ctx.Err() != nil {
			return s.cancelled(ctx)
		}

		s.setState(StateWaiting)
		log.Info("scheduler: waiting",
			"interval", interval.String(),
			"interval_seconds", interval.Seconds(),
			"next_run", s.clock().Add(interval).UTC().Format(time.RFC3339),
		)
		if err := wait(ctx, interval); err != nil {
			return s.cancelled(ctx)
		}
	}
}

// cycle performs one invocation and reports it.
func (s *Scheduler) cycle(ctx context.Context, log *slog.Logger) {
	s.seq++
	id := uuid.NewString()
	log = log.With("cycle_id", id, "cycle", s.seq)

	// In-flight work is not interrupted by shutdown, see package doc.
	runCtx := context.WithoutCancel(ctx)

	if s.BeforeCycle != nil {
		if err := s.BeforeCycle(runCtx); err != nil {
			log.Error("scheduler: pre-cycle step failed, continuing with current config", "err", err)
		}
	}

	log.Info("scheduler: cycle started")
	started := s.clock()
	err := s.Invoke(runCtx)
	report := types.CycleReport{
		ID:         id,
		Seq:        s.seq,
		StartedAt:  started,
		FinishedAt: s.clock(),
		Result:     types.CycleSuccess,
		Err:        err,
	}
	if err != nil {
		report.Result = types.CycleFailure
		log.Error("scheduler: cycle failed",
			"duration", report.Duration().String(),
			"err", err,
		)
	} else {
		log.Info("scheduler: cycle finished",
			"duration", report.Duration().String(),
		)
	}

	for _, o := range s.Observers {
		o.CycleFinished(report)
	}
}

func (s *Scheduler) cancelled(ctx context.Context) error {
	s.setState(StateCancelled)
	s.logger().Info("scheduler: stopped", "cycles", s.seq)
	return ctx.Err()
}

// wait blocks for d or until ctx is done, whichever comes first.
func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Scheduler) setState(st State) {
	s.state.Store(int32(st))
}

func (s *Scheduler) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

func (s *Scheduler) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
