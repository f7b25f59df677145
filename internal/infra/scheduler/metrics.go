package scheduler

import (
	"omninews-ingest/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides Prometheus metrics for the scheduler component: embedded
// config-fallback metrics plus per-track run counters, durations, and the
// fetch-flag gauge.
type Metrics struct {
	*config.ConfigMetrics

	TrackRunsTotal    *prometheus.CounterVec
	TrackDuration     *prometheus.HistogramVec
	TrackLastSuccess  *prometheus.GaugeVec
	FetchFlagEnabled  prometheus.Gauge
	ItemsIngestedTotal *prometheus.CounterVec
}

// NewMetrics creates scheduler metrics; all series are auto-registered via
// promauto when constructed.
func NewMetrics() *Metrics {
	return &Metrics{
		ConfigMetrics: config.NewConfigMetrics("scheduler"),

		TrackRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_track_runs_total",
			Help: "Total number of scheduler track runs by track and status (success/failure)",
		}, []string{"track", "status"}),

		TrackDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scheduler_track_duration_seconds",
			Help:    "Duration of a single scheduler track run",
			Buckets: []float64{0.1, 1, 5, 30, 60, 300, 900, 1800, 3600},
		}, []string{"track"}),

		TrackLastSuccess: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scheduler_track_last_success_timestamp",
			Help: "Unix timestamp of the last successful run of a track",
		}, []string{"track"}),

		FetchFlagEnabled: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_fetch_flag_enabled",
			Help: "1 if the fetch-news track is allowed to start a new crawl, 0 once a crawl has started (a successful crawl leaves it at 0)",
		}),

		ItemsIngestedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_items_ingested_total",
			Help: "Total number of new items ingested, labeled by channel generator",
		}, []string{"generator"}),
	}
}

// RecordRun increments the run counter and duration histogram for a track.
func (m *Metrics) RecordRun(track, status string, seconds float64) {
	m.TrackRunsTotal.WithLabelValues(track, status).Inc()
	m.TrackDuration.WithLabelValues(track).Observe(seconds)
	if status == "success" {
		m.TrackLastSuccess.WithLabelValues(track).SetToCurrentTime()
	}
}

// RecordItemsIngested adds count to the per-generator ingestion counter.
func (m *Metrics) RecordItemsIngested(generator string, count int) {
	m.ItemsIngestedTotal.WithLabelValues(generator).Add(float64(count))
}
