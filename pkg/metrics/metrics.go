package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Upstream call outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeUnavailable = "unavailable"
	OutcomeMalformed   = "malformed"
)

// Recorder records upstream activity. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
}

// New creates a Recorder whose collectors are registered on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		upstreamRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solarwatts_upstream_requests_total",
				Help: "Total number of requests sent to the PVWatts API by outcome",
			},
			[]string{"outcome"},
		),
		upstreamLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solarwatts_upstream_duration_seconds",
				Help:    "Duration of PVWatts API requests in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 20},
			},
			[]string{"outcome"},
		),
	}
}

// RecordUpstream records one finished upstream request.
func (r *Recorder) RecordUpstream(outcome string, took time.Duration) {
	if r == nil {
		return
	}
	r.upstreamRequests.WithLabelValues(outcome).Inc()
	r.upstreamLatency.WithLabelValues(outcome).Observe(took.Seconds())
}
