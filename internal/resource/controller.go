package resource

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when memory limit would be exceeded.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the hard limit for memory held by built indexes.
	// If 0, no hard limit is enforced (only tracking).
	MemoryLimitBytes int64

	// MaxConcurrentBuilds is the maximum number of index builds running at once.
	// If 0, defaults to 1.
	MaxConcurrentBuilds int64

	// MaxProbesPerSecond caps how often probe queries are dispatched.
	// If 0, unlimited.
	MaxProbesPerSecond float64

	// ProbeBurst is the token bucket size for MaxProbesPerSecond.
	// If 0, defaults to 1.
	ProbeBurst int
}

// Controller manages the resources of one spatial index controller.
type Controller struct {
	cfg Config

	// Memory
	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	// Builds
	buildSem *semaphore.Weighted

	// Queries: at most one in flight.
	querySem *semaphore.Weighted
	inFlight atomic.Bool

	// Probe rate
	probeLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxConcurrentBuilds <= 0 {
		cfg.MaxConcurrentBuilds = 1
	}
	if cfg.ProbeBurst <= 0 {
		cfg.ProbeBurst = 1
	}

	c := &Controller{
		cfg:      cfg,
		buildSem: semaphore.NewWeighted(cfg.MaxConcurrentBuilds),
		querySem: semaphore.NewWeighted(1),
	}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.MaxProbesPerSecond > 0 {
		c.probeLimiter = rate.NewLimiter(rate.Limit(cfg.MaxProbesPerSecond), cfg.ProbeBurst)
	}

	return c
}

// AcquireMemory attempts to reserve memory.
// Returns ErrMemoryLimitExceeded if limit would be exceeded.
// Non-blocking - callers control retry/backoff policy.
func (c *Controller) AcquireMemory(bytes int64) error {
	if c == nil {
		return nil
	}
	if bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if !c.memSem.TryAcquire(bytes) {
			return ErrMemoryLimitExceeded
		}
	}

	c.memUsed.Add(bytes)
	return nil
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil {
		return
	}
	if bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the current memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// MemoryLimit returns the configured memory limit in bytes (0 if unlimited).
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes
}

// AcquireBuild reserves a build slot, blocking while all slots are busy.
func (c *Controller) AcquireBuild(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.buildSem.Acquire(ctx, 1)
}

// ReleaseBuild releases a build slot.
func (c *Controller) ReleaseBuild() {
	if c == nil {
		return
	}
	c.buildSem.Release(1)
}

// TryAcquireQuery claims the single query slot. It never blocks; false means
// a query is already in flight and the caller should drop its request.
func (c *Controller) TryAcquireQuery() bool {
	if c == nil {
		return true
	}
	if !c.querySem.TryAcquire(1) {
		return false
	}
	c.inFlight.Store(true)
	return true
}

// ReleaseQuery frees the query slot.
func (c *Controller) ReleaseQuery() {
	if c == nil {
		return
	}
	c.inFlight.Store(false)
	c.querySem.Release(1)
}

// QueryInFlight reports whether the query slot is taken.
func (c *Controller) QueryInFlight() bool {
	if c == nil {
		return false
	}
	return c.inFlight.Load()
}

// AllowProbe reports whether the probe rate limit admits another probe now.
func (c *Controller) AllowProbe() bool {
	if c == nil || c.probeLimiter == nil {
		return true
	}
	return c.probeLimiter.AllowN(time.Now(), 1)
}
