// Package monitor runs the periodic check cycle: snapshot the registry,
// check every domain not yet known to be blocked, mark the ones the
// authority now blocks and alert the operators once per transition.
package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/haukened/blockwatch/internal/watch/common/clock"
	"github.com/haukened/blockwatch/internal/watch/common/log"
	"github.com/haukened/blockwatch/internal/watch/domain"
	"github.com/haukened/blockwatch/internal/watch/infra/metrics"
)

const (
	DefaultInterval   = 3 * time.Minute
	DefaultFirstDelay = 10 * time.Second
	DefaultWorkers    = 4

	// notifyTimeout bounds alert delivery when the cycle context is already done.
	notifyTimeout = 10 * time.Second
)

// State is the scheduler's coarse lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateChecking
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChecking:
		return "checking"
	default:
		return "unknown"
	}
}

// Options configures a Scheduler.
type Options struct {
	Interval   time.Duration
	FirstDelay time.Duration
	Workers    int
	Logger     log.Logger
	Clock      clock.Clock
	Metrics    *metrics.Metrics
}

// Scheduler drives monitoring cycles. Cycles never overlap: RunCycle holds
// a mutex for its whole duration, so a tick or a manual trigger that lands
// mid-cycle waits for it to finish.
type Scheduler struct {
	checker  Checker
	registry Registry
	notifier Notifier

	interval   time.Duration
	firstDelay time.Duration
	workers    int

	logger  log.Logger
	clock   clock.Clock
	metrics *metrics.Metrics

	cycleMu   sync.Mutex
	state     atomic.Int32
	lastCycle atomic.Pointer[CycleReport]
}

// CycleReport describes the most recent completed cycle.
type CycleReport struct {
	StartedAt   time.Time         `json:"started_at"`
	Duration    time.Duration     `json:"duration"`
	Checked     int               `json:"checked"`
	Skipped     int               `json:"skipped"`
	Transitions domain.AlertBatch `json:"transitions"`
}

// New creates a Scheduler in the Idle state.
func New(checker Checker, registry Registry, notifier Notifier, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.FirstDelay < 0 {
		opts.FirstDelay = DefaultFirstDelay
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.Clock == nil {
		opts.Clock = &clock.RealClock{}
	}
	return &Scheduler{
		checker:    checker,
		registry:   registry,
		notifier:   notifier,
		interval:   opts.Interval,
		firstDelay: opts.FirstDelay,
		workers:    opts.Workers,
		logger:     opts.Logger,
		clock:      opts.Clock,
		metrics:    opts.Metrics,
	}
}

// State reports whether a cycle is in progress.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// LastCycle returns the report of the last finished cycle, or nil.
func (s *Scheduler) LastCycle() *CycleReport {
	return s.lastCycle.Load()
}

// Run waits FirstDelay, runs a cycle, then runs one on every Interval tick
// until ctx is done. A tick that fires during a cycle is held by the ticker
// and delivered once the cycle returns; further ticks in that window are
// dropped.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info(map[string]any{
		"interval":    s.interval.String(),
		"first_delay": s.firstDelay.String(),
		"workers":     s.workers,
	}, "monitor scheduler started")

	first := time.NewTimer(s.firstDelay)
	defer first.Stop()

	select {
	case <-ctx.Done():
		s.logger.Info(nil, "monitor scheduler stopped")
		return nil
	case <-first.C:
	}

	s.RunCycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(nil, "monitor scheduler stopped")
			return nil
		case <-ticker.C:
			if ctx.Err() != nil {
				continue
			}
			s.RunCycle(ctx)
		}
	}
}

// RunCycle performs one full monitoring cycle and returns the domains that
// transitioned to blocked. Concurrent callers are serialized.
func (s *Scheduler) RunCycle(ctx context.Context) domain.AlertBatch {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	s.state.Store(int32(StateChecking))
	defer s.state.Store(int32(StateIdle))

	started := s.clock.Now()

	snap := s.registry.Snapshot()
	candidates := snap.Candidates()
	pending := make([]domain.Domain, 0, len(candidates))
	for _, d := range candidates {
		if snap.IsBlocked(d) {
			continue
		}
		pending = append(pending, d)
	}

	s.logger.Debug(map[string]any{
		"candidates": len(candidates),
		"pending":    len(pending),
	}, "monitor cycle started")

	confirmed := make([]bool, len(pending))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, d := range pending {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			// intake may have marked d since the snapshot
			if s.registry.IsBlocked(d) {
				return nil
			}
			confirmed[i] = s.checker.Check(ctx, d).Blocked
			return nil
		})
	}
	_ = g.Wait()

	var batch domain.AlertBatch
	for i, d := range pending {
		if confirmed[i] && s.registry.MarkBlocked(d) {
			batch = append(batch, d)
		}
	}
	batch = batch.Sorted()

	if !batch.Empty() {
		nctx := ctx
		if ctx.Err() != nil {
			var cancel context.CancelFunc
			nctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
			defer cancel()
		}
		s.notifier.Notify(nctx, batch)
	}

	elapsed := s.clock.Now().Sub(started)
	s.metrics.SetCycleDuration(elapsed)
	s.metrics.AddTransitions(len(batch))
	switch {
	case ctx.Err() != nil:
		s.metrics.IncCycle("canceled")
	case batch.Empty():
		s.metrics.IncCycle("clean")
	default:
		s.metrics.IncCycle("alerted")
	}

	s.lastCycle.Store(&CycleReport{
		StartedAt:   started,
		Duration:    elapsed,
		Checked:     len(pending),
		Skipped:     len(candidates) - len(pending),
		Transitions: batch,
	})

	s.logger.Info(map[string]any{
		"checked":     len(pending),
		"skipped":     len(candidates) - len(pending),
		"transitions": len(batch),
		"duration":    elapsed.String(),
	}, "monitor cycle finished")

	return batch
}
