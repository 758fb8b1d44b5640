package healthshare

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Sharing owns the health sharing lifecycle of a process: it creates the
// refresh scheduler, publishes local health until stopped and then
// de-registers the node and shuts the scheduler down.
type Sharing struct {
	transport Transport
	provider  NodeHealthProvider
	opts      []Option
	logger    *slog.Logger

	shutdownTimeout time.Duration
	schedulerName   string

	mu        sync.Mutex
	state     State
	scheduler *Scheduler
	shared    *SharedHealthState
	refresher *Refresher
}

// NewSharing creates a Sharing for transport t, publishing what p reports.
func NewSharing(t Transport, p NodeHealthProvider, opts ...Option) (*Sharing, error) {
	if t == nil {
		return nil, errors.New("transport is required")
	}
	if p == nil {
		return nil, errors.New("node health provider is required")
	}

	o := applyOptions(opts)
	return &Sharing{
		transport:       t,
		provider:        p,
		opts:            opts,
		logger:          o.logger.With("component", "health-sharing", "member", t.LocalMember()),
		shutdownTimeout: o.shutdownTimeout,
		schedulerName:   o.schedulerName,
		state:           StateNotStarted,
		shared:          NewSharedHealthState(t, opts...),
	}, nil
}

// Start schedules periodic publication of the local node health.
func (s *Sharing) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateStarted:
		return ErrAlreadyStarted
	case StateStopped:
		return ErrStopped
	}

	scheduler := NewScheduler(s.schedulerName, s.logger)
	refresher := NewRefresher(scheduler, s.provider, s.shared, s.opts...)
	if err := refresher.Start(); err != nil {
		scheduler.ShutdownNow()
		return err
	}

	s.scheduler = scheduler
	s.refresher = refresher
	s.state = StateStarted

	s.logger.Info("health sharing started")
	return nil
}

// Stop de-registers the local node and shuts the scheduler down. Each stage
// waits at most the shutdown timeout: de-registration, graceful scheduler
// shutdown and shutdown after cancelling the running tick. Failures are
// logged, never returned. If ctx ends while waiting, Stop cancels the running
// tick and returns at once; ctx is left as is so the caller still observes
// the cancellation.
func (s *Sharing) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateStarted {
		s.logger.Debug("health sharing not running, nothing to stop", "state", s.state)
		return
	}
	s.state = StateStopped

	stopCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	err := s.refresher.Stop(stopCtx)
	cancel()
	if err != nil {
		s.logger.Warn("failed to de-register node health", "error", err)
	}

	s.shutdownScheduler(ctx)
	s.logger.Info("health sharing stopped")
}

func (s *Sharing) shutdownScheduler(ctx context.Context) {
	s.scheduler.Shutdown()

	terminated, err := s.scheduler.AwaitTermination(ctx, s.shutdownTimeout)
	if err != nil {
		s.interrupted(err)
		return
	}
	if terminated {
		return
	}

	s.scheduler.ShutdownNow()
	terminated, err = s.scheduler.AwaitTermination(ctx, s.shutdownTimeout)
	if err != nil {
		s.interrupted(err)
		return
	}
	if !terminated {
		s.logger.Warn("health refresh scheduler did not terminate", "scheduler", s.scheduler.Name(), "timeout", 2*s.shutdownTimeout)
	}
}

func (s *Sharing) interrupted(err error) {
	s.logger.Warn("interrupted while waiting for health refresh scheduler to terminate", "error", err)
	s.scheduler.ShutdownNow()
}

// State returns the lifecycle state.
func (s *Sharing) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SharedState returns the shared health state, usable in any lifecycle
// state to read the cluster view.
func (s *Sharing) SharedState() *SharedHealthState {
	return s.shared
}

// Scheduler returns the refresh scheduler, or nil before Start.
func (s *Sharing) Scheduler() *Scheduler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduler
}
