// Package metrics exposes rebuild instrumentation in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/simaogato/fxledger-backend/internal/domain"
	"github.com/simaogato/fxledger-backend/internal/usecase/reconcile"
)

const namespace = "fxledger"

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// RebuildMetrics implements reconcile.Observer
type RebuildMetrics struct {
	rebuilds *prometheus.CounterVec
	duration *prometheus.HistogramVec
	matches  *prometheus.CounterVec
	advances *prometheus.HistogramVec
}

// NewRegistry returns a registry carrying the Go runtime and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// NewRebuildMetrics creates the rebuild collectors and registers them with reg
func NewRebuildMetrics(reg prometheus.Registerer) *RebuildMetrics {
	m := &RebuildMetrics{
		rebuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bucket_rebuilds_total",
			Help:      "Bucket rebuilds by party type and outcome.",
		}, []string{"party_type", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bucket_rebuild_duration_seconds",
			Help:      "Wall time of bucket rebuilds, including the database transaction.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"party_type", "outcome"}),
		matches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_written_total",
			Help:      "Matches written by committed rebuilds.",
		}, []string{"party_type"}),
		advances: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "open_advances_per_bucket",
			Help:      "Settlements left with an unmatched balance after a rebuild.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50},
		}, []string{"party_type"}),
	}
	reg.MustRegister(m.rebuilds, m.duration, m.matches, m.advances)
	return m
}

// ObserveRebuild records one rebuild attempt
func (m *RebuildMetrics) ObserveRebuild(key domain.BucketKey, result *reconcile.RebuildResult, elapsed time.Duration, err error) {
	partyType := string(key.Party.Type)
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeFailure
	}

	m.rebuilds.WithLabelValues(partyType, outcome).Inc()
	m.duration.WithLabelValues(partyType, outcome).Observe(elapsed.Seconds())

	if err != nil || result == nil {
		return
	}
	m.matches.WithLabelValues(partyType).Add(float64(len(result.Matches)))
	m.advances.WithLabelValues(partyType).Observe(float64(result.OpenAdvances))
}

// Handler serves the metrics gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
