package probe

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	healthshare "github.com/ozanturksever/go-healthshare"
)

// DefaultCheckTimeout bounds a single check run.
const DefaultCheckTimeout = 5 * time.Second

// Result is the outcome of a single check. Cause is ignored for green
// results.
type Result struct {
	Status healthshare.Status
	Cause  string
}

// Green returns a passing result.
func Green() Result {
	return Result{Status: healthshare.StatusGreen}
}

// Yellow returns a degraded result.
func Yellow(format string, args ...any) Result {
	return Result{Status: healthshare.StatusYellow, Cause: fmt.Sprintf(format, args...)}
}

// Red returns a failing result.
func Red(format string, args ...any) Result {
	return Result{Status: healthshare.StatusRed, Cause: fmt.Sprintf(format, args...)}
}

// Check inspects one aspect of the local node.
type Check func(ctx context.Context) Result

// CheckOption configures a registered check.
type CheckOption func(*checkEntry)

// WithCheckTimeout sets the timeout for a check.
func WithCheckTimeout(d time.Duration) CheckOption {
	return func(e *checkEntry) {
		if d > 0 {
			e.timeout = d
		}
	}
}

type checkEntry struct {
	check   Check
	timeout time.Duration
}

// Provider computes local node health from registered checks.
type Provider struct {
	details healthshare.NodeDetails
	logger  *slog.Logger

	mu     sync.RWMutex
	checks map[string]*checkEntry
}

var _ healthshare.NodeHealthProvider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewProvider creates a Provider reporting on behalf of details. With no
// checks registered the node is GREEN.
func NewProvider(details healthshare.NodeDetails, opts ...Option) *Provider {
	p := &Provider{
		details: details,
		logger:  slog.Default(),
		checks:  make(map[string]*checkEntry),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "probe", "node", details.Name())
	return p
}

// Register adds or replaces a named check.
func (p *Provider) Register(name string, check Check, opts ...CheckOption) {
	entry := &checkEntry{
		check:   check,
		timeout: DefaultCheckTimeout,
	}
	for _, opt := range opts {
		opt(entry)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.checks[name] = entry
}

// Unregister removes a check.
func (p *Provider) Unregister(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.checks, name)
}

// Checks returns the registered check names in order.
func (p *Provider) Checks() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.checks))
	for name := range p.checks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Get implements healthshare.NodeHealthProvider. Checks run one after the
// other in name order.
func (p *Provider) Get(ctx context.Context) (healthshare.NodeHealth, error) {
	p.mu.RLock()
	checks := make(map[string]*checkEntry, len(p.checks))
	for name, entry := range p.checks {
		checks[name] = entry
	}
	p.mu.RUnlock()

	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	slices.Sort(names)

	status := healthshare.StatusGreen
	var causes []string
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return healthshare.NodeHealth{}, err
		}

		res := p.run(ctx, name, checks[name])
		status = status.Worse(res.Status)
		if res.Status != healthshare.StatusGreen {
			cause := res.Cause
			if cause == "" {
				cause = fmt.Sprintf("check %s is %s", name, res.Status)
			}
			causes = append(causes, cause)
		}
	}

	return healthshare.NewNodeHealth(status, p.details, causes...)
}

func (p *Provider) run(ctx context.Context, name string, entry *checkEntry) Result {
	checkCtx, cancel := context.WithTimeout(ctx, entry.timeout)
	defer cancel()

	start := time.Now()
	res := entry.check(checkCtx)
	latency := time.Since(start)

	if !res.Status.Valid() {
		p.logger.Warn("check returned unknown status", "check", name, "status", res.Status)
		return Red("check %s returned unknown status %q", name, res.Status)
	}
	if checkCtx.Err() != nil && ctx.Err() == nil && res.Status == healthshare.StatusGreen {
		return Red("check %s timed out after %s", name, entry.timeout)
	}

	p.logger.Debug("check completed", "check", name, "status", res.Status, "latency", latency)
	return res
}
