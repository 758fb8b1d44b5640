package healthshare

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// TaskScheduler runs a task periodically with a fixed delay between the end
// of one run and the start of the next. *Scheduler implements it.
type TaskScheduler interface {
	ScheduleWithFixedDelay(task func(ctx context.Context), initialDelay, delay time.Duration) error
}

var _ TaskScheduler = (*Scheduler)(nil)

// Refresher periodically publishes the local node health.
type Refresher struct {
	scheduler TaskScheduler
	provider  NodeHealthProvider
	state     *SharedHealthState
	logger    *slog.Logger
	metrics   *Metrics

	initialDelay time.Duration
	interval     time.Duration

	mu      sync.Mutex
	running bool

	// busy is held for the whole of a tick, so Stop can wait for an
	// in-flight tick instead of racing it.
	busy chan struct{}
}

// NewRefresher wires a refresher. It does nothing until Start is called.
func NewRefresher(scheduler TaskScheduler, provider NodeHealthProvider, state *SharedHealthState, opts ...Option) *Refresher {
	o := applyOptions(opts)
	return &Refresher{
		scheduler:    scheduler,
		provider:     provider,
		state:        state,
		logger:       o.logger.With("component", "health-refresher"),
		metrics:      o.metrics,
		initialDelay: o.initialDelay,
		interval:     o.refreshInterval,
		busy:         make(chan struct{}, 1),
	}
}

// Start schedules the refresh task.
func (r *Refresher) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return ErrAlreadyStarted
	}
	if err := r.scheduler.ScheduleWithFixedDelay(r.tick, r.initialDelay, r.interval); err != nil {
		return fmt.Errorf("schedule health refresh: %w", err)
	}
	r.running = true

	r.logger.Info("health refresher started", "initial_delay", r.initialDelay, "interval", r.interval)
	return nil
}

// Stop makes further ticks no-ops, waits for a tick that is already running
// and removes the local entry from the shared store. If ctx ends before the
// running tick does, the entry is left in place to go stale.
func (r *Refresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return ErrNotStarted
	}
	r.running = false
	r.mu.Unlock()

	select {
	case r.busy <- struct{}{}:
		defer func() { <-r.busy }()
	case <-ctx.Done():
		return fmt.Errorf("wait for running health refresh: %w", ctx.Err())
	}

	if err := r.state.ClearMine(ctx); err != nil {
		return fmt.Errorf("clear local node health: %w", err)
	}

	r.logger.Info("health refresher stopped")
	return nil
}

// Running returns true between Start and Stop.
func (r *Refresher) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// tick never lets a failure escape: the schedule must survive every run.
func (r *Refresher) tick(ctx context.Context) {
	r.busy <- struct{}{}
	defer func() { <-r.busy }()

	if !r.Running() {
		return
	}

	defer func() {
		if p := recover(); p != nil {
			r.metrics.ObserveRefresh(RefreshError)
			r.logger.Error("health refresh panicked", "panic", p)
		}
	}()

	err := r.refresh(ctx)
	switch {
	case err == nil:
		r.metrics.ObserveRefresh(RefreshSuccess)
	case IsTransient(err):
		r.metrics.ObserveRefresh(RefreshTransient)
		r.logger.Debug("cluster not reachable, skipped health refresh", "error", err)
	case ctx.Err() != nil:
		r.metrics.ObserveRefresh(RefreshTransient)
		r.logger.Debug("health refresh cancelled", "error", err)
	default:
		r.metrics.ObserveRefresh(RefreshError)
		r.logger.Error("health refresh failed", "error", err)
	}
}

func (r *Refresher) refresh(ctx context.Context) error {
	health, err := r.provider.Get(ctx)
	if err != nil {
		return fmt.Errorf("get local node health: %w", err)
	}
	return r.state.WriteMine(ctx, health)
}
