package healthshare

import (
	"context"
	"log/slog"
	"runtime/pprof"
	"sync"
	"time"
)

// Scheduler runs periodic tasks on a single worker: no two task runs ever
// overlap. Its goroutines carry the pprof label scheduler=<name> so they can
// be found in goroutine dumps.
type Scheduler struct {
	name   string
	logger *slog.Logger

	mu         sync.Mutex
	shutdown   bool
	stopCh     chan struct{}
	terminated chan struct{}
	wg         sync.WaitGroup

	// runMu makes the scheduler single-worker.
	runMu     sync.Mutex
	runCtx    context.Context
	cancelRun context.CancelFunc
}

// NewScheduler creates a scheduler. A nil logger means slog.Default().
func NewScheduler(name string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	runCtx, cancelRun := context.WithCancel(context.Background())
	return &Scheduler{
		name:       name,
		logger:     logger.With("component", "scheduler", "scheduler", name),
		stopCh:     make(chan struct{}),
		terminated: make(chan struct{}),
		runCtx:     runCtx,
		cancelRun:  cancelRun,
	}
}

// Name returns the scheduler name.
func (s *Scheduler) Name() string {
	return s.name
}

// ScheduleWithFixedDelay runs task after initialDelay, then again delay
// after each run completes, until the scheduler is shut down. The ctx
// passed to task is cancelled by ShutdownNow.
func (s *Scheduler) ScheduleWithFixedDelay(task func(ctx context.Context), initialDelay, delay time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shutdown {
		return ErrSchedulerShutdown
	}

	s.wg.Add(1)
	go pprof.Do(context.Background(), pprof.Labels("scheduler", s.name), func(context.Context) {
		s.loop(task, initialDelay, delay)
	})
	return nil
}

func (s *Scheduler) loop(task func(ctx context.Context), initialDelay, delay time.Duration) {
	defer s.wg.Done()

	timer := time.NewTimer(initialDelay)
	defer timer.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-timer.C:
		}

		if !s.run(task) {
			return
		}
		timer.Reset(delay)
	}
}

// run executes one task run under the worker lock. It returns false if the
// scheduler was shut down before the run could start.
func (s *Scheduler) run(task func(ctx context.Context)) bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	select {
	case <-s.stopCh:
		return false
	default:
	}

	task(s.runCtx)
	return true
}

// Shutdown stops accepting tasks and stops periodic tasks after their
// current run. It does not wait.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shutdown {
		return
	}
	s.shutdown = true
	close(s.stopCh)

	go func() {
		s.wg.Wait()
		s.cancelRun()
		close(s.terminated)
	}()
	s.logger.Debug("scheduler shutting down")
}

// ShutdownNow shuts down and cancels the context of a task that is
// currently running.
func (s *Scheduler) ShutdownNow() {
	s.Shutdown()
	s.cancelRun()
}

// AwaitTermination blocks until every task goroutine has exited after a
// shutdown, timeout elapses or ctx is done. It returns true on termination,
// false on timeout and ctx.Err() if ctx ended first.
func (s *Scheduler) AwaitTermination(ctx context.Context, timeout time.Duration) (bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.terminated:
		return true, nil
	case <-timer.C:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// IsShutdown returns true once Shutdown or ShutdownNow was called.
func (s *Scheduler) IsShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

// IsTerminated returns true once the scheduler is shut down and no task is
// running.
func (s *Scheduler) IsTerminated() bool {
	select {
	case <-s.terminated:
		return true
	default:
		return false
	}
}
