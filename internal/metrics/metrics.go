// Package metrics holds the Prometheus instruments for loads and fetches.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LoadRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xbookmarks_load_runs_total",
		Help: "Total batch loads",
	})
	LoadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "xbookmarks_load_duration_seconds",
		Help:    "Batch load duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	Sources = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xbookmarks_sources_total",
		Help: "Sources processed, by kind and outcome",
	}, []string{"kind", "outcome"})
	RecordsLoaded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xbookmarks_records_loaded_total",
		Help: "Records decoded from all sources",
	})
	RecordsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xbookmarks_records_skipped_total",
		Help: "Array elements skipped because they were not objects",
	})
	FetchAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xbookmarks_fetch_attempts_total",
		Help: "HTTP attempts per candidate kind and outcome",
	}, []string{"candidate", "outcome"})
	WorkingSetSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "xbookmarks_working_set_tweets",
		Help: "Distinct tweets in the current working set",
	})
)

func init() {
	prometheus.MustRegister(LoadRuns, LoadDuration, Sources, RecordsLoaded, RecordsSkipped, FetchAttempts, WorkingSetSize)
}

// Handler returns the /metrics handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveLoadDuration records a load duration.
func ObserveLoadDuration(start time.Time) {
	LoadDuration.Observe(time.Since(start).Seconds())
}

// IncSource counts one processed source.
func IncSource(kind, outcome string) { Sources.WithLabelValues(kind, outcome).Inc() }

// IncFetchAttempt counts one HTTP attempt.
func IncFetchAttempt(candidate, outcome string) {
	FetchAttempts.WithLabelValues(candidate, outcome).Inc()
}
