// Package metrics exposes crawl counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "jobsscanner"

// Recorder groups the crawl metrics. A nil Recorder records nothing.
type Recorder struct {
	cycles              *prometheus.CounterVec
	cycleDuration       prometheus.Histogram
	consecutiveFailures prometheus.Gauge
	pages               prometheus.Counter
	jobsMatched         prometheus.Counter
	jobsInserted        prometheus.Counter
	insertErrors        prometheus.Counter
	notifyFailures      prometheus.Counter
}

// New registers the metrics with reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Crawl cycles by result.",
		}, []string{"result"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of crawl cycles.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		consecutiveFailures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "consecutive_cycle_failures",
			Help:      "Failed cycles since the last success.",
		}),
		pages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Listing pages fetched.",
		}),
		jobsMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_matched_total",
			Help:      "Jobs that passed the keyword filter.",
		}),
		jobsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_inserted_total",
			Help:      "Jobs stored for the first time.",
		}),
		insertErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insert_errors_total",
			Help:      "Jobs that could not be stored.",
		}),
		notifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Notifications that could not be delivered.",
		}),
	}

	reg.MustRegister(
		r.cycles,
		r.cycleDuration,
		r.consecutiveFailures,
		r.pages,
		r.jobsMatched,
		r.jobsInserted,
		r.insertErrors,
		r.notifyFailures,
	)
	return r
}

// CycleFinished records the outcome and duration of one cycle.
func (r *Recorder) CycleFinished(err error, took time.Duration) {
	if r == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	r.cycles.WithLabelValues(result).Inc()
	r.cycleDuration.Observe(took.Seconds())
}

// SetConsecutiveFailures reports the failure streak of the retry loop.
func (r *Recorder) SetConsecutiveFailures(n int) {
	if r == nil {
		return
	}
	r.consecutiveFailures.Set(float64(n))
}

func (r *Recorder) PageFetched() {
	if r != nil {
		r.pages.Inc()
	}
}

func (r *Recorder) JobMatched() {
	if r != nil {
		r.jobsMatched.Inc()
	}
}

func (r *Recorder) JobInserted() {
	if r != nil {
		r.jobsInserted.Inc()
	}
}

func (r *Recorder) InsertFailed() {
	if r != nil {
		r.insertErrors.Inc()
	}
}

func (r *Recorder) NotificationFailed() {
	if r != nil {
		r.notifyFailures.Inc()
	}
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, log *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
