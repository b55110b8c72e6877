package starprobe

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/geo/r3"

	"github.com/hupe1980/starprobe/internal/pool"
	"github.com/hupe1980/starprobe/internal/resource"
	"github.com/hupe1980/starprobe/model"
	"github.com/hupe1980/starprobe/octant"
)

// State is the lifecycle state of a Controller.
type State int32

const (
	// StateUnbuilt means no index is installed and none is being built.
	StateUnbuilt State = iota
	// StateBuilding means a build has been scheduled and not yet installed.
	StateBuilding
	// StateReady means an index is installed and probes are served.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUnbuilt:
		return "Unbuilt"
	case StateBuilding:
		return "Building"
	case StateReady:
		return "Ready"
	default:
		return fmt.Sprintf("Unknown(%d)", int32(s))
	}
}

// ProbeResult is the outcome of one probe query.
type ProbeResult struct {
	// Result is the matched point and its squared distance in native units.
	Result model.SearchResult
	// Target is the probe position in native coordinates.
	Target model.Vec3
	// Native is the matched point in native coordinates. Zero when not found.
	Native model.Vec3
	// Display is the matched point in display coordinates. Zero when not found.
	Display r3.Vector
	// Generation identifies the index build that answered the probe.
	Generation uint64
}

// Found reports whether the probe matched a point.
func (r ProbeResult) Found() bool { return r.Result.Found() }

func noProbeResult() ProbeResult {
	return ProbeResult{Result: model.NoResult()}
}

// snapshot is one installed index together with its coordinate mapping.
type snapshot struct {
	gen      uint64
	index    *octant.Index
	mapping  Mapping
	memBytes int64
}

func (s *snapshot) answer(target model.Vec3, res model.SearchResult) ProbeResult {
	pr := ProbeResult{Result: res, Target: target, Generation: s.gen}
	if res.Found() {
		pr.Native = s.index.Points().At(int(res.PointIndex))
		pr.Display = s.mapping.ToDisplay(pr.Native)
	}
	return pr
}

// readiness is resolved once per generation.
type readiness struct {
	gen  uint64
	done chan struct{}
	err  error
}

// Controller owns the active octant index of one dataset. It builds indexes
// in the background and answers probes without blocking the caller.
//
// All methods are safe for concurrent use.
type Controller struct {
	opts      options
	logger    *Logger
	metrics   MetricsCollector
	pool      *pool.WorkerPool
	resources *resource.Controller

	state   atomic.Int32
	gen     atomic.Uint64
	current atomic.Pointer[snapshot]
	nearest atomic.Pointer[ProbeResult]
	closed  atomic.Bool

	// mu orders Initialize against build installation and probe publication.
	mu      sync.Mutex
	pending *readiness
}

// New creates a Controller in StateUnbuilt.
func New(optFns ...Option) *Controller {
	o := applyOptions(optFns)

	c := &Controller{
		opts:    o,
		logger:  o.logger,
		metrics: o.metricsCollector,
		pool:    pool.NewWorkerPool(o.workers),
		resources: resource.NewController(resource.Config{
			MemoryLimitBytes:    o.memoryLimit,
			MaxConcurrentBuilds: o.maxConcurrentBuilds,
			MaxProbesPerSecond:  o.maxProbeRate,
			ProbeBurst:          o.probeBurst,
		}),
		pending: &readiness{done: make(chan struct{})},
	}
	c.state.Store(int32(StateUnbuilt))

	return c
}

// State returns the current lifecycle state.
func (c *Controller) State() State { return State(c.state.Load()) }

// Ready reports whether an index is installed.
func (c *Controller) Ready() bool { return c.current.Load() != nil }

// Generation returns the generation of the most recent Initialize.
func (c *Controller) Generation() uint64 { return c.gen.Load() }

// Initialize replaces the dataset and schedules a background build. It returns
// as soon as the build is scheduled. The previous index is dropped
// immediately, so probes return nothing until the new build is installed.
//
// points must not be modified afterwards.
func (c *Controller) Initialize(points model.PointSet, pivot model.Vec3) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if !finite(pivot) {
		return fmt.Errorf("%w: %v", ErrInvalidPivot, pivot)
	}
	if err := c.opts.displayBox.Validate(); err != nil {
		return fmt.Errorf("display box: %w", err)
	}

	c.mu.Lock()
	// Close may have run since the check above.
	if c.closed.Load() {
		c.mu.Unlock()
		return ErrClosed
	}
	gen := c.gen.Add(1)
	if old := c.current.Swap(nil); old != nil {
		c.resources.ReleaseMemory(old.memBytes)
	}
	c.nearest.Store(nil)
	c.state.Store(int32(StateBuilding))
	c.resolveLocked(errSuperseded)
	c.pending = &readiness{gen: gen, done: make(chan struct{})}
	c.mu.Unlock()

	task := func() { c.build(gen, points, pivot) }
	if err := c.pool.TrySubmit(task); err != nil {
		if !errors.Is(err, pool.ErrBusy) {
			err = translateError(err)
			c.mu.Lock()
			if c.gen.Load() == gen {
				c.state.Store(int32(StateUnbuilt))
				c.resolveLocked(err)
			}
			c.mu.Unlock()
			return err
		}
		// Queue full: hand off without blocking the caller.
		go func() {
			if err := c.pool.Submit(context.Background(), task); err != nil {
				c.fail(gen, points.Len(), translateError(err))
			}
		}()
	}
	return nil
}

func (c *Controller) build(gen uint64, points model.PointSet, pivot model.Vec3) {
	ctx := context.Background()
	log := c.logger.WithGeneration(gen)

	if err := c.resources.AcquireBuild(ctx); err != nil {
		c.fail(gen, points.Len(), err)
		return
	}
	defer c.resources.ReleaseBuild()

	if cur := c.gen.Load(); cur != gen {
		log.LogBuildSuperseded(ctx, gen, cur)
		return
	}

	start := time.Now()
	ix, err := octant.Build(ctx, points, pivot, func(o *octant.Options) {
		o.Strategy = c.opts.strategy
		o.Concurrency = c.opts.buildConcurrency
	})
	if err != nil {
		c.fail(gen, points.Len(), err)
		return
	}

	mapping, err := NewMapping(c.opts.displayBox, BoundsBox(points))
	if err != nil {
		c.fail(gen, points.Len(), err)
		return
	}

	memBytes := ix.MemoryBytes()
	if err := c.resources.AcquireMemory(memBytes); err != nil {
		err = fmt.Errorf("%w: index needs %d bytes, %d of %d in use",
			err, memBytes, c.resources.MemoryUsage(), c.resources.MemoryLimit())
		c.fail(gen, points.Len(), translateError(err))
		return
	}

	snap := &snapshot{gen: gen, index: ix, mapping: mapping, memBytes: memBytes}

	c.mu.Lock()
	if cur := c.gen.Load(); cur != gen || c.closed.Load() {
		c.mu.Unlock()
		c.resources.ReleaseMemory(memBytes)
		log.LogBuildSuperseded(ctx, gen, cur)
		return
	}
	c.current.Store(snap)
	c.state.Store(int32(StateReady))
	c.resolveLocked(nil)
	c.mu.Unlock()

	elapsed := time.Since(start)
	c.metrics.RecordBuild(points.Len(), elapsed, nil)
	log.LogBuild(ctx, gen, points.Len(), elapsed, nil)
}

// fail records a build failure. The controller falls back to StateUnbuilt
// unless a newer Initialize has taken over.
func (c *Controller) fail(gen uint64, points int, cause error) {
	err := &BuildError{Generation: gen, Points: points, cause: cause}

	c.metrics.RecordBuild(points, 0, err)
	c.logger.LogBuild(context.Background(), gen, points, 0, err)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen.Load() != gen {
		return
	}
	c.state.Store(int32(StateUnbuilt))
	c.resolveLocked(err)
}

func (c *Controller) resolveLocked(err error) {
	if c.pending == nil {
		return
	}
	select {
	case <-c.pending.done:
		return
	default:
	}
	c.pending.err = err
	close(c.pending.done)
}

// WaitReady blocks until the most recent Initialize has been installed, its
// build failed, the controller was closed, or ctx is done.
func (c *Controller) WaitReady(ctx context.Context) error {
	for {
		c.mu.Lock()
		p := c.pending
		c.mu.Unlock()

		select {
		case <-p.done:
			if errors.Is(p.err, errSuperseded) {
				continue
			}
			return p.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Probe dispatches a nearest-point query for target (native coordinates)
// without blocking. It returns false when no index is installed or when the
// probe was dropped because a previous one is still running. Otherwise the
// returned channel receives exactly one ProbeResult.
func (c *Controller) Probe(ctx context.Context, target model.Vec3) (<-chan ProbeResult, bool) {
	snap, ok := c.snapshotForProbe(ctx)
	if !ok {
		return nil, false
	}
	return c.probe(ctx, snap, target)
}

// ProbeDisplay remaps a display-space position into native coordinates and
// probes it.
func (c *Controller) ProbeDisplay(ctx context.Context, display r3.Vector) (<-chan ProbeResult, bool) {
	snap, ok := c.snapshotForProbe(ctx)
	if !ok {
		return nil, false
	}
	return c.probe(ctx, snap, snap.mapping.ToNative(display))
}

func (c *Controller) snapshotForProbe(ctx context.Context) (*snapshot, bool) {
	if c.closed.Load() {
		return nil, false
	}
	snap := c.current.Load()
	if snap == nil {
		c.drop(ctx, DropNotReady)
		return nil, false
	}
	return snap, true
}

func (c *Controller) probe(ctx context.Context, snap *snapshot, target model.Vec3) (<-chan ProbeResult, bool) {
	if !c.resources.TryAcquireQuery() {
		c.drop(ctx, DropInFlight)
		return nil, false
	}
	if !c.resources.AllowProbe() {
		c.resources.ReleaseQuery()
		c.drop(ctx, DropRateLimited)
		return nil, false
	}

	out := make(chan ProbeResult, 1)
	task := func() {
		defer c.resources.ReleaseQuery()

		start := time.Now()
		res := snap.index.FindNearest(target)
		elapsed := time.Since(start)

		pr := snap.answer(target, res)
		c.publish(pr)
		c.metrics.RecordProbe(elapsed, res.Found())
		c.logger.LogProbe(ctx, target, res, elapsed)

		out <- pr
		if c.opts.probeCallback != nil {
			c.opts.probeCallback(pr)
		}
	}
	if err := c.pool.TrySubmit(task); err != nil {
		c.resources.ReleaseQuery()
		c.drop(ctx, DropPoolBusy)
		return nil, false
	}
	return out, true
}

func (c *Controller) drop(ctx context.Context, reason DropReason) {
	c.metrics.RecordProbeDropped(reason)
	c.logger.LogProbeDropped(ctx, reason)
}

// publish makes pr the latest result unless a newer Initialize has run.
func (c *Controller) publish(pr ProbeResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pr.Generation != c.gen.Load() {
		return
	}
	c.nearest.Store(&pr)
}

// Nearest returns the latest completed probe result, or a result with
// model.NoResult() before the first probe of the current dataset.
func (c *Controller) Nearest() ProbeResult {
	if pr := c.nearest.Load(); pr != nil {
		return *pr
	}
	return noProbeResult()
}

// FindNearest synchronously searches the installed index. It returns
// model.NoResult() when no index is installed.
func (c *Controller) FindNearest(target model.Vec3) model.SearchResult {
	snap := c.current.Load()
	if snap == nil {
		return model.NoResult()
	}
	return snap.index.FindNearest(target)
}

// FindKNearest synchronously returns the k points nearest to target across
// all octants, nearest first. It returns an empty slice when no index is
// installed.
func (c *Controller) FindKNearest(target model.Vec3, k int) ([]model.SearchResult, error) {
	ctx := context.Background()
	log := c.logger.WithK(k)
	if k <= 0 {
		err := fmt.Errorf("%w: %d", ErrInvalidK, k)
		c.metrics.RecordKNN(k, 0, err)
		log.LogKNN(ctx, 0, err)
		return nil, err
	}

	snap := c.current.Load()
	if snap == nil {
		return []model.SearchResult{}, nil
	}

	start := time.Now()
	res, err := snap.index.FindKNearest(target, k)
	err = translateError(err)
	c.metrics.RecordKNN(k, time.Since(start), err)
	log.LogKNN(ctx, len(res), err)
	return res, err
}

// Stats returns the shape of the installed index. ok is false when no index
// is installed.
func (c *Controller) Stats() (s octant.Stats, ok bool) {
	snap := c.current.Load()
	if snap == nil {
		return octant.Stats{}, false
	}
	return snap.index.Stats(), true
}

// Mapping returns the display/native mapping of the installed index.
func (c *Controller) Mapping() (Mapping, bool) {
	snap := c.current.Load()
	if snap == nil {
		return Mapping{}, false
	}
	return snap.mapping, true
}

// MemoryUsage returns the bytes accounted to the installed index.
func (c *Controller) MemoryUsage() int64 {
	return c.resources.MemoryUsage()
}

// Close stops the worker pool after queued builds and probes have run.
// Subsequent Initialize calls return ErrClosed and probes are refused.
func (c *Controller) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.mu.Lock()
	c.resolveLocked(ErrClosed)
	c.mu.Unlock()

	c.pool.Close()

	if old := c.current.Swap(nil); old != nil {
		c.resources.ReleaseMemory(old.memBytes)
	}
	c.state.Store(int32(StateUnbuilt))
	return nil
}

func finite(v model.Vec3) bool {
	for axis := range 3 {
		f := float64(v.Axis(axis))
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
