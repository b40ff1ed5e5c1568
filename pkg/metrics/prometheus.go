package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	collections    *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	alertsTotal    *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	combinedSignal *prometheus.GaugeVec
	queueDepth     prometheus.Gauge
	inFlight       prometheus.Gauge
	latency        *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		collections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalfuse_collections_total",
				Help: "Total collection attempts per source and symbol",
			},
			[]string{"source", "symbol", "result"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalfuse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		alertsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalfuse_alerts_total",
				Help: "Total alerts triggered",
			},
			[]string{"type", "severity"},
		),
		notifications: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalfuse_notifications_total",
				Help: "Total notification deliveries",
			},
			[]string{"channel", "result"},
		),
		combinedSignal: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signalfuse_combined_signal",
				Help: "Last fused combined trading signal per symbol",
			},
			[]string{"symbol"},
		),
		queueDepth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "signalfuse_analysis_queue_depth",
				Help: "Analysis jobs waiting in the queue",
			},
		),
		inFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "signalfuse_analysis_in_flight",
				Help: "Analyses currently running",
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signalfuse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordCollection records one collect attempt outcome.
func (r *Recorder) RecordCollection(source, symbol string, ok bool) {
	r.collections.WithLabelValues(source, symbol, resultLabel(ok)).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordAlert records a triggered alert.
func (r *Recorder) RecordAlert(alertType, severity string) {
	r.alertsTotal.WithLabelValues(alertType, severity).Inc()
}

// RecordNotification records a delivery attempt outcome.
func (r *Recorder) RecordNotification(channel string, ok bool) {
	r.notifications.WithLabelValues(channel, resultLabel(ok)).Inc()
}

// RecordCombinedSignal records the latest combined signal for a symbol.
func (r *Recorder) RecordCombinedSignal(symbol string, v float64) {
	r.combinedSignal.WithLabelValues(symbol).Set(v)
}

// RecordQueueDepth records the analysis queue depth.
func (r *Recorder) RecordQueueDepth(n int) {
	r.queueDepth.Set(float64(n))
}

// RecordInFlight records how many analyses are running.
func (r *Recorder) RecordInFlight(n int) {
	r.inFlight.Set(float64(n))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func resultLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
