package drainer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "stationdrain"

type metrics struct {
	polls             *prometheus.CounterVec
	tracks            *prometheus.CounterVec
	transcodeDuration prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		polls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "polls_total",
			Help:      "Polls of the next-track endpoint by outcome.",
		}, []string{"outcome"}),
		tracks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "tracks_total",
			Help:      "Tracks handled by result.",
		}, []string{"result"}),
		transcodeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "transcode_duration_seconds",
			Help:      "Time spent tagging and relocating a track.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}
}
