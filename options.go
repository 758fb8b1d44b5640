package healthshare

import (
	"log/slog"
	"time"
)

const (
	DefaultInitialDelay    = 1 * time.Second
	DefaultRefreshInterval = 10 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
	DefaultSchedulerName   = "health-state-refresher"
)

// Option configures the health sharing components.
type Option func(*options)

type options struct {
	logger          *slog.Logger
	metrics         *Metrics
	initialDelay    time.Duration
	refreshInterval time.Duration
	shutdownTimeout time.Duration
	schedulerName   string
}

func defaultOptions() *options {
	return &options{
		logger:          slog.Default(),
		initialDelay:    DefaultInitialDelay,
		refreshInterval: DefaultRefreshInterval,
		shutdownTimeout: DefaultShutdownTimeout,
		schedulerName:   DefaultSchedulerName,
	}
}

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the Prometheus metrics sink. Metrics are disabled by default.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithInitialDelay sets the delay before the first refresh tick.
func WithInitialDelay(d time.Duration) Option {
	return func(o *options) {
		o.initialDelay = d
	}
}

// WithRefreshInterval sets the delay between the end of one refresh tick
// and the start of the next.
func WithRefreshInterval(d time.Duration) Option {
	return func(o *options) {
		o.refreshInterval = d
	}
}

// WithShutdownTimeout sets how long Stop waits for the scheduler at each
// shutdown stage.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		o.shutdownTimeout = d
	}
}

// WithSchedulerName sets the profiler label of the refresh goroutine.
func WithSchedulerName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.schedulerName = name
		}
	}
}
