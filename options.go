package starprobe

import (
	"log/slog"

	"github.com/hupe1980/starprobe/octant"
)

type options struct {
	metricsCollector    MetricsCollector
	logger              *Logger
	workers             int
	strategy            octant.Strategy
	buildConcurrency    int
	maxConcurrentBuilds int64
	maxProbeRate        float64
	probeBurst          int
	memoryLimit         int64
	displayBox          Box
	probeCallback       func(ProbeResult)
}

// Option configures a Controller.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &starprobe.BasicMetricsCollector{}
//	c := starprobe.New(starprobe.WithMetricsCollector(metrics))
//	// ... use c ...
//	stats := metrics.GetStats()
//	fmt.Printf("Probes: %d, dropped: %d\n", stats.ProbeCount, stats.ProbeDropped)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := starprobe.NewJSONLogger(slog.LevelInfo)
//	c := starprobe.New(starprobe.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithWorkers sets the size of the worker pool that runs builds and probes.
// If n <= 0, GOMAXPROCS workers are used.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithStrategy selects how single-nearest queries treat octant boundaries.
// The default, octant.StrategyOwnOctant, searches only the probe's own octant.
func WithStrategy(s octant.Strategy) Option {
	return func(o *options) {
		o.strategy = s
	}
}

// WithBuildConcurrency limits how many octant trees build at once.
// If n <= 0, all 8 build in parallel.
func WithBuildConcurrency(n int) Option {
	return func(o *options) {
		o.buildConcurrency = n
	}
}

// WithMaxConcurrentBuilds sets how many index builds may run at once.
// Superseding builds queue behind running ones. Defaults to 1.
func WithMaxConcurrentBuilds(n int64) Option {
	return func(o *options) {
		o.maxConcurrentBuilds = n
	}
}

// WithMaxProbeRate caps dispatched probes per second with the given burst.
// Probes over the cap are dropped like in-flight collisions. 0 disables the cap.
func WithMaxProbeRate(perSecond float64, burst int) Option {
	return func(o *options) {
		o.maxProbeRate = perSecond
		o.probeBurst = burst
	}
}

// WithMemoryLimit fails builds whose trees would push the accounted memory
// above limit bytes. 0 disables the limit.
func WithMemoryLimit(limit int64) Option {
	return func(o *options) {
		o.memoryLimit = limit
	}
}

// WithDisplayBox sets the display coordinate ranges used by ProbeDisplay and
// ProbeResult.Display. Defaults to DefaultDisplayBox.
func WithDisplayBox(b Box) Option {
	return func(o *options) {
		o.displayBox = b
	}
}

// WithProbeCallback registers fn to receive every completed probe result.
// fn runs on a worker goroutine and must not block.
func WithProbeCallback(fn func(ProbeResult)) Option {
	return func(o *options) {
		o.probeCallback = fn
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		strategy:         octant.StrategyOwnOctant,
		displayBox:       DefaultDisplayBox(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
