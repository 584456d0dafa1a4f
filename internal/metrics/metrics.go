package metrics

import (
	"net/http"
	"time"

	"diary-sync/internal/ingest"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder exports per-run counters for the polling mode.
type Recorder struct {
	registry *prometheus.Registry

	runs          *prometheus.CounterVec
	pages         prometheus.Counter
	entries       *prometheus.CounterVec
	failures      *prometheus.CounterVec
	runDuration   prometheus.Summary
	lastSuccessTS prometheus.Gauge
}

func New() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "diary_sync",
		Name:      "runs_total",
		Help:      "Number of batch runs by outcome",
	}, []string{"status"})
	r.pages = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "diary_sync",
		Name:      "pages_fetched_total",
		Help:      "Listing pages requested",
	})
	r.entries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "diary_sync",
		Name:      "entries_total",
		Help:      "Entries seen per pipeline stage",
	}, []string{"stage"})
	r.failures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "diary_sync",
		Name:      "failures_total",
		Help:      "Non-fatal failures by kind",
	}, []string{"kind"})
	r.runDuration = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: "diary_sync",
		Name:      "run_duration_seconds",
		Help:      "Time spent in one batch run",
	})
	r.lastSuccessTS = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "diary_sync",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last run that finished without error",
	})

	r.registry.MustRegister(
		r.runs, r.pages, r.entries, r.failures,
		r.runDuration, r.lastSuccessTS,
	)
	return r
}

// ObserveRun records the outcome of one RunOnce call.
func (r *Recorder) ObserveRun(report ingest.Report, elapsed time.Duration, err error) {
	r.runDuration.Observe(elapsed.Seconds())
	r.pages.Add(float64(report.Pages))

	r.entries.WithLabelValues("fetched").Add(float64(report.Fetched))
	r.entries.WithLabelValues("new").Add(float64(report.New))
	r.entries.WithLabelValues("stored").Add(float64(report.Stored))
	r.entries.WithLabelValues("published").Add(float64(report.Published))

	for _, f := range report.Failures {
		r.failures.WithLabelValues(string(f.Kind)).Inc()
	}

	if err != nil {
		r.runs.WithLabelValues("error").Inc()
		return
	}
	r.runs.WithLabelValues("ok").Inc()
	r.lastSuccessTS.SetToCurrentTime()
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
