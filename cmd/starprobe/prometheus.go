package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/starprobe"
)

var _ starprobe.MetricsCollector = (*promCollector)(nil)

// promCollector implements starprobe.MetricsCollector
type promCollector struct {
	opLatency   *prometheus.HistogramVec
	buildPoints prometheus.Gauge
	dropped     *prometheus.CounterVec
}

func newPromCollector(reg prometheus.Registerer) *promCollector {
	p := &promCollector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "starprobe_operation_latency_seconds",
			Help:    "Latency of index operations",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
		}, []string{"op", "status"}),
		buildPoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "starprobe_index_points",
			Help: "Points in the most recently built index",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "starprobe_probes_dropped_total",
			Help: "Probes that were not dispatched",
		}, []string{"reason"}),
	}

	reg.MustRegister(p.opLatency, p.buildPoints, p.dropped)
	return p
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (p *promCollector) RecordBuild(points int, d time.Duration, err error) {
	p.opLatency.WithLabelValues("build", status(err)).Observe(d.Seconds())
	if err == nil {
		p.buildPoints.Set(float64(points))
	}
}

func (p *promCollector) RecordProbe(d time.Duration, found bool) {
	s := "found"
	if !found {
		s = "empty"
	}
	p.opLatency.WithLabelValues("probe", s).Observe(d.Seconds())
}

func (p *promCollector) RecordProbeDropped(reason starprobe.DropReason) {
	p.dropped.WithLabelValues(string(reason)).Inc()
}

func (p *promCollector) RecordKNN(k int, d time.Duration, err error) {
	p.opLatency.WithLabelValues("knn", status(err)).Observe(d.Seconds())
}
