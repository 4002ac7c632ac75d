package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"PrismPipeline/internal/domain"
	"PrismPipeline/internal/ports"
)

const namespace = "prism"

// Recorder exports run summaries as Prometheus metrics.
type Recorder struct {
	registry *prometheus.Registry

	runs        prometheus.Counter
	fetched     prometheus.Counter
	rejected    prometheus.Counter
	signals     prometheus.Counter
	cards       prometheus.Counter
	failures    *prometheus.CounterVec
	fetchErrors *prometheus.CounterVec
	urgency     prometheus.Gauge
	duration    prometheus.Histogram
	lastRunTS   prometheus.Gauge
}

var _ ports.RunObserver = (*Recorder)(nil)

// NewRecorder registers all collectors on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "runs_total", Help: "Pipeline runs finished.",
		}),
		fetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "documents_fetched_total", Help: "Raw items returned by fetchers.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "documents_rejected_total", Help: "Items rejected by the normalizer.",
		}),
		signals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "signals_stored_total", Help: "Signals upserted.",
		}),
		cards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "cards_generated_total", Help: "Crisis cards generated and stored.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "document_failures_total", Help: "Per-document failures by kind.",
		}, []string{"kind"}),
		fetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "fetch_errors_total", Help: "Fetcher failures by source.",
		}, []string{"source"}),
		urgency: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_run_average_urgency", Help: "Average card urgency of the last run.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "run_duration_seconds", Help: "Wall time of pipeline runs.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		lastRunTS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_run_timestamp_seconds", Help: "Unix time the last run finished.",
		}),
	}

	r.registry.MustRegister(
		r.runs, r.fetched, r.rejected, r.signals, r.cards,
		r.failures, r.fetchErrors, r.urgency, r.duration, r.lastRunTS,
	)
	return r
}

// ObserveRun folds one summary into the collectors.
func (r *Recorder) ObserveRun(s domain.RunSummary) {
	r.runs.Inc()
	r.fetched.Add(float64(s.Fetched))
	r.rejected.Add(float64(s.Rejected))
	r.signals.Add(float64(s.SignalsStored))
	r.cards.Add(float64(s.CardsGenerated))
	r.failures.WithLabelValues("enrich").Add(float64(s.EnrichFailures))
	r.failures.WithLabelValues("card").Add(float64(s.CardFailures))
	r.failures.WithLabelValues("store").Add(float64(s.StoreErrors))
	for source, n := range s.FetchErrors {
		r.fetchErrors.WithLabelValues(source).Add(float64(n))
	}
	r.urgency.Set(s.AverageUrgency)
	if !s.FinishedAt.IsZero() {
		r.duration.Observe(s.FinishedAt.Sub(s.StartedAt).Seconds())
		r.lastRunTS.Set(float64(s.FinishedAt.Unix()))
	}
}

// Registry exposes the underlying registry for gathering or extra collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
