package feed

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Load outcomes recorded by the fetch counter.
const (
	outcomeOK        = "ok"
	outcomeError     = "error"
	outcomeStale     = "stale"
	outcomeDebounced = "debounced"
)

// metricsFeed holds Prometheus metrics for feed loading.
type metricsFeed struct {
	once sync.Once

	loads    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	rows     *prometheus.GaugeVec
}

var feedMetrics metricsFeed

func (m *metricsFeed) init() {
	m.once.Do(func() {
		m.loads = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "patchbrowser_feed_loads_total",
			Help: "Feed loads by feed and outcome",
		}, []string{"feed", "outcome"})

		buckets := []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
		m.duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "patchbrowser_feed_load_seconds",
			Help:    "Duration of feed fetch and normalization",
			Buckets: buckets,
		}, []string{"feed"})

		m.rows = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "patchbrowser_feed_rows",
			Help: "Rows held from the last successful load",
		}, []string{"feed"})

		prometheus.MustRegister(m.loads, m.duration, m.rows)
	})
}

// record helpers - used by the loaders
func recordLoad(feed, outcome string, d time.Duration) {
	feedMetrics.init()
	feedMetrics.loads.WithLabelValues(feed, outcome).Inc()
	if outcome == outcomeOK || outcome == outcomeError {
		feedMetrics.duration.WithLabelValues(feed).Observe(d.Seconds())
	}
}

func recordRows(feed string, n int) {
	feedMetrics.init()
	feedMetrics.rows.WithLabelValues(feed).Set(float64(n))
}
