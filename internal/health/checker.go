// Package health provides periodic self-checks for a running peersearch
// daemon: the run ledger answers, and the overlay still satisfies its
// invariants with every cache entry pointing at a real holder.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/tutu-network/peersearch/internal/infra/sqlite"
	"github.com/tutu-network/peersearch/internal/overlay"
)

// Check defines a single named health check.
type Check struct {
	Name    string
	CheckFn func(ctx context.Context) error
}

// Status represents the result of a health check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Checker runs periodic health checks.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
	clock    clock.Clock
	logger   *zap.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithInterval sets how often the checks run.
func WithInterval(d time.Duration) Option {
	return func(c *Checker) { c.interval = d }
}

// WithClock sets the clock driving the check loop.
func WithClock(clk clock.Clock) Option {
	return func(c *Checker) { c.clock = clk }
}

// WithLogger sets the logger failed checks are reported to.
func WithLogger(l *zap.Logger) Option {
	return func(c *Checker) { c.logger = l.Named("health") }
}

// NewChecker creates a checker with the ledger and overlay checks.
// guard serializes the overlay audit with searches that write caches;
// it may be nil when nothing else touches net.
func NewChecker(net *overlay.Network, ledger *sqlite.DB, guard sync.Locker, opts ...Option) *Checker {
	c := &Checker{
		interval: 60 * time.Second,
		clock:    clock.New(),
		logger:   zap.NewNop(),
		checks: []Check{
			{
				Name: "ledger",
				CheckFn: func(ctx context.Context) error {
					return ledger.Ping()
				},
			},
			{
				Name: "overlay",
				CheckFn: func(ctx context.Context) error {
					if guard != nil {
						guard.Lock()
						defer guard.Unlock()
					}
					return net.Audit()
				},
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run starts the health check loop. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	// Run immediately on start
	c.runAll(ctx)

	ticker := c.clock.Ticker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runAll(ctx)
		}
	}
}

func (c *Checker) runAll(ctx context.Context) {
	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		s := Status{
			Name:      check.Name,
			CheckedAt: c.clock.Now(),
			Healthy:   true,
		}
		if err := check.CheckFn(ctx); err != nil {
			s.Healthy = false
			s.Error = err.Error()
			c.logger.Warn("check failed", zap.String("check", check.Name), zap.Error(err))
		}
		statuses[i] = s
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// Statuses returns the latest health check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy returns true if all checks pass.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}
