package starprobe

import (
	"sync/atomic"
	"time"
)

// DropReason says why a probe was not dispatched.
type DropReason string

const (
	// DropNotReady means no index was installed.
	DropNotReady DropReason = "not_ready"
	// DropInFlight means a previous probe had not returned yet.
	DropInFlight DropReason = "in_flight"
	// DropRateLimited means the probe rate cap was reached.
	DropRateLimited DropReason = "rate_limited"
	// DropPoolBusy means the worker pool queue was full.
	DropPoolBusy DropReason = "pool_busy"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    probes  prometheus.Counter
//	    builds  prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordProbe(duration time.Duration, found bool) {
//	    p.probes.Inc()
//	}
type MetricsCollector interface {
	// RecordBuild is called after each index build that ran to completion or failed.
	// points is the size of the point set, err is nil if successful.
	RecordBuild(points int, duration time.Duration, err error)

	// RecordProbe is called after each dispatched probe query.
	RecordProbe(duration time.Duration, found bool)

	// RecordProbeDropped is called for every probe that was not dispatched.
	RecordProbeDropped(reason DropReason)

	// RecordKNN is called after each K-nearest query.
	RecordKNN(k int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBuild(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordProbe(time.Duration, bool)       {}
func (NoopMetricsCollector) RecordProbeDropped(DropReason)         {}
func (NoopMetricsCollector) RecordKNN(int, time.Duration, error)   {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	BuildCount       atomic.Int64
	BuildErrors      atomic.Int64
	BuildPoints      atomic.Int64
	BuildTotalNanos  atomic.Int64
	ProbeCount       atomic.Int64
	ProbeMisses      atomic.Int64
	ProbeTotalNanos  atomic.Int64
	ProbeDropped     atomic.Int64
	ProbeInFlightHit atomic.Int64
	KNNCount         atomic.Int64
	KNNErrors        atomic.Int64
	KNNTotalNanos    atomic.Int64
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(points int, duration time.Duration, err error) {
	b.BuildCount.Add(1)
	b.BuildPoints.Add(int64(points))
	b.BuildTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.BuildErrors.Add(1)
	}
}

// RecordProbe implements MetricsCollector.
func (b *BasicMetricsCollector) RecordProbe(duration time.Duration, found bool) {
	b.ProbeCount.Add(1)
	b.ProbeTotalNanos.Add(duration.Nanoseconds())
	if !found {
		b.ProbeMisses.Add(1)
	}
}

// RecordProbeDropped implements MetricsCollector.
func (b *BasicMetricsCollector) RecordProbeDropped(reason DropReason) {
	b.ProbeDropped.Add(1)
	if reason == DropInFlight {
		b.ProbeInFlightHit.Add(1)
	}
}

// RecordKNN implements MetricsCollector.
func (b *BasicMetricsCollector) RecordKNN(k int, duration time.Duration, err error) {
	b.KNNCount.Add(1)
	b.KNNTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.KNNErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		BuildCount:       b.BuildCount.Load(),
		BuildErrors:      b.BuildErrors.Load(),
		BuildPoints:      b.BuildPoints.Load(),
		BuildAvgNanos:    avgNanos(b.BuildTotalNanos.Load(), b.BuildCount.Load()),
		ProbeCount:       b.ProbeCount.Load(),
		ProbeMisses:      b.ProbeMisses.Load(),
		ProbeAvgNanos:    avgNanos(b.ProbeTotalNanos.Load(), b.ProbeCount.Load()),
		ProbeDropped:     b.ProbeDropped.Load(),
		ProbeInFlightHit: b.ProbeInFlightHit.Load(),
		KNNCount:         b.KNNCount.Load(),
		KNNErrors:        b.KNNErrors.Load(),
		KNNAvgNanos:      avgNanos(b.KNNTotalNanos.Load(), b.KNNCount.Load()),
	}
}

func avgNanos(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	BuildCount       int64
	BuildErrors      int64
	BuildPoints      int64
	BuildAvgNanos    int64
	ProbeCount       int64
	ProbeMisses      int64
	ProbeAvgNanos    int64
	ProbeDropped     int64
	ProbeInFlightHit int64
	KNNCount         int64
	KNNErrors        int64
	KNNAvgNanos      int64
}
