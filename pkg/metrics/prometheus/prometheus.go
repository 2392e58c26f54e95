package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements metrics.Collector for Prometheus.
// Register it with a prometheus.Registerer before use.
type PrometheusCollector struct {
	namespace string

	paymentsCreated   *prometheus.CounterVec
	statusChecks      *prometheus.CounterVec
	redemptions       *prometheus.CounterVec
	receipts          *prometheus.CounterVec
	outboxDepth       prometheus.Gauge
	statusLatency     *prometheus.HistogramVec
	redemptionLatency *prometheus.HistogramVec
}

// NewPrometheusCollector creates a new Prometheus metrics collector.
func NewPrometheusCollector(namespace string) *PrometheusCollector {
	return &PrometheusCollector{
		namespace: namespace,
		paymentsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payments_created_total",
				Help:      "Total number of payment transactions created per method",
			},
			[]string{"method"},
		),
		statusChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "status_checks_total",
				Help:      "Total number of status checks per outcome",
			},
			[]string{"outcome"},
		),
		redemptions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "redemptions_total",
				Help:      "Total number of gift link redemptions per outcome",
			},
			[]string{"outcome"},
		),
		receipts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "receipts_total",
				Help:      "Total number of receipt emails per delivery status",
			},
			[]string{"status"},
		),
		outboxDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "receipt_outbox_depth",
				Help:      "Current receipt outbox queue depth",
			},
		),
		statusLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "status_check_duration_seconds",
				Help:      "Status check latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		redemptionLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "redemption_duration_seconds",
				Help:      "Gift link redemption latency including the provider call",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
	}
}

// RecordPaymentCreated increments the created-payments counter.
func (pc *PrometheusCollector) RecordPaymentCreated(method string) {
	pc.paymentsCreated.WithLabelValues(method).Inc()
}

// RecordStatusCheck records a status check outcome and its latency.
func (pc *PrometheusCollector) RecordStatusCheck(outcome string, duration time.Duration) {
	pc.statusChecks.WithLabelValues(outcome).Inc()
	pc.statusLatency.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordRedemption records a redemption outcome and its latency.
func (pc *PrometheusCollector) RecordRedemption(outcome string, duration time.Duration) {
	pc.redemptions.WithLabelValues(outcome).Inc()
	pc.redemptionLatency.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordReceipt records a receipt delivery status.
func (pc *PrometheusCollector) RecordReceipt(status string) {
	pc.receipts.WithLabelValues(status).Inc()
}

// RecordOutboxDepth records the current outbox queue depth.
func (pc *PrometheusCollector) RecordOutboxDepth(depth int) {
	pc.outboxDepth.Set(float64(depth))
}

// Describe implements prometheus.Collector.
func (pc *PrometheusCollector) Describe(ch chan<- *prometheus.Desc) {
	pc.paymentsCreated.Describe(ch)
	pc.statusChecks.Describe(ch)
	pc.redemptions.Describe(ch)
	pc.receipts.Describe(ch)
	pc.outboxDepth.Describe(ch)
	pc.statusLatency.Describe(ch)
	pc.redemptionLatency.Describe(ch)
}

// Collect implements prometheus.Collector.
func (pc *PrometheusCollector) Collect(ch chan<- prometheus.Metric) {
	pc.paymentsCreated.Collect(ch)
	pc.statusChecks.Collect(ch)
	pc.redemptions.Collect(ch)
	pc.receipts.Collect(ch)
	pc.outboxDepth.Collect(ch)
	pc.statusLatency.Collect(ch)
	pc.redemptionLatency.Collect(ch)
}
