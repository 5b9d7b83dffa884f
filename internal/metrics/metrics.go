// Package metrics exposes Prometheus counters for fits and predictions
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds all Prometheus collectors of the service. Each instance owns
// its registry so that several can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	FitsTotal       *prometheus.CounterVec
	FitDuration     *prometheus.HistogramVec
	FitRows         prometheus.Histogram
	PredictsTotal   *prometheus.CounterVec
	PredictDuration *prometheus.HistogramVec
	ModelsActive    prometheus.Gauge
	ModelsEvicted   prometheus.Counter
	RateLimited     prometheus.Counter
}

// New creates and registers all metrics, plus the Go runtime and process
// collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		FitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decompose_fits_total",
				Help: "Number of model fits by inference method and outcome",
			},
			[]string{"method", "status"},
		),
		FitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "decompose_fit_duration_seconds",
				Help:    "Wall time of model fits",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
			},
			[]string{"method"},
		),
		FitRows: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "decompose_fit_rows",
			Help:    "Number of observations per fit",
			Buckets: prometheus.ExponentialBuckets(16, 4, 8),
		}),
		PredictsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decompose_predictions_total",
				Help: "Number of predict and decompose calls by outcome",
			},
			[]string{"kind", "status"},
		),
		PredictDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "decompose_prediction_duration_seconds",
				Help:    "Wall time of predict and decompose calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		ModelsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "decompose_models_active",
			Help: "Fitted models currently held in the registry",
		}),
		ModelsEvicted: factory.NewCounter(prometheus.CounterOpts{
			Name: "decompose_models_evicted_total",
			Help: "Fitted models dropped by capacity or expiry",
		}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "decompose_fit_rate_limited_total",
			Help: "Fit requests rejected by the rate limiter",
		}),
	}
}

// Registry returns the registry holding every collector
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveFit records one fit
func (m *Metrics) ObserveFit(method string, rows int, d time.Duration, err error) {
	m.FitsTotal.WithLabelValues(method, status(err)).Inc()
	if err != nil {
		return
	}
	m.FitDuration.WithLabelValues(method).Observe(d.Seconds())
	m.FitRows.Observe(float64(rows))
}

// ObservePredict records one predict or decompose call
func (m *Metrics) ObservePredict(kind string, d time.Duration, err error) {
	m.PredictsTotal.WithLabelValues(kind, status(err)).Inc()
	if err == nil {
		m.PredictDuration.WithLabelValues(kind).Observe(d.Seconds())
	}
}

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}
